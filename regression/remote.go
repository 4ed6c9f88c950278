package regression

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/liamcoop/fieldinsights/insights"
)

// RemoteConfig configures a Remote model client
type RemoteConfig struct {
	URL     string
	Name    string
	Timeout time.Duration

	// MaxRetries bounds retries after the first attempt
	MaxRetries int
	// InitialBackoff is the first retry delay; it grows exponentially
	InitialBackoff time.Duration

	// FailureThreshold consecutive failures open the breaker for OpenTimeout
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// DefaultRemoteConfig returns settings for a nearby inference service
func DefaultRemoteConfig(url string) RemoteConfig {
	return RemoteConfig{
		URL:              url,
		Name:             "yield-model",
		Timeout:          2 * time.Second,
		MaxRetries:       2,
		InitialBackoff:   100 * time.Millisecond,
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
	}
}

type predictRequest struct {
	Features []float64 `json:"features"`
}

type predictResponse struct {
	Prediction *float64 `json:"prediction"`
}

// Remote calls an HTTP inference service. Failed calls are retried with
// exponential backoff and repeated failures open a circuit breaker, after
// which Predict fails fast so the estimators fall back to their rules.
type Remote struct {
	cfg     RemoteConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

var _ insights.Regressor = (*Remote)(nil)

// NewRemote creates a Remote client
func NewRemote(cfg RemoteConfig) *Remote {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	threshold := cfg.FailureThreshold
	return &Remote{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    cfg.Name,
			Timeout: cfg.OpenTimeout,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= threshold
			},
		}),
	}
}

// Predict posts the features and returns the service's prediction
func (r *Remote) Predict(ctx context.Context, features []float64) (float64, error) {
	body, err := json.Marshal(predictRequest{Features: features})
	if err != nil {
		return 0, fmt.Errorf("encode features: %w", err)
	}

	res, err := r.breaker.Execute(func() (interface{}, error) {
		var value float64
		bo := backoff.NewExponentialBackOff()
		if r.cfg.InitialBackoff > 0 {
			bo.InitialInterval = r.cfg.InitialBackoff
		}
		policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(r.cfg.MaxRetries)), ctx)

		err := backoff.Retry(func() error {
			v, err := r.call(ctx, body)
			if err != nil {
				return err
			}
			value = v
			return nil
		}, policy)
		return value, err
	})
	if err != nil {
		return 0, fmt.Errorf("remote model %s: %w", r.cfg.Name, err)
	}
	return res.(float64), nil
}

func (r *Remote) call(ctx context.Context, body []byte) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return 0, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return 0, fmt.Errorf("server returned %s", resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, backoff.Permanent(fmt.Errorf("server returned %s: %s", resp.Status, bytes.TrimSpace(msg)))
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, backoff.Permanent(fmt.Errorf("decode response: %w", err))
	}
	if out.Prediction == nil {
		return 0, backoff.Permanent(fmt.Errorf("response has no prediction"))
	}
	return *out.Prediction, nil
}

// Describe reports the endpoint and breaker state
func (r *Remote) Describe() Info {
	return Info{
		Loaded:   true,
		Type:     "Remote",
		Name:     r.cfg.Name,
		Endpoint: r.cfg.URL,
		State:    r.breaker.State().String(),
	}
}
