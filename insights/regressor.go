package insights

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"
)

// Regressor is an optional statistical model. Implementations must be safe
// for concurrent use; the estimators never mutate them.
type Regressor interface {
	Predict(ctx context.Context, features []float64) (float64, error)
}

// Confidence constants attached to each strategy. They are fixed design
// values, not statistical measures.
const (
	ModelYieldConfidence      = 0.85
	RuleBasedYieldConfidence  = 0.7
	ModelHealthConfidence     = 0.80
	RuleBasedHealthConfidence = 0.75
)

// Option configures an estimator or classifier
type Option func(*options)

type options struct {
	logger *slog.Logger
	now    func() time.Time
}

func defaultOptions() options {
	return options{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
}

// WithLogger sets the logger used to report model fallbacks
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock overrides the timestamp source stamped onto results
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// predictWith runs the model and turns non-finite output into an error so
// callers take the fallback path.
func predictWith(ctx context.Context, m Regressor, features []float64) (float64, error) {
	v, err := m.Predict(ctx, features)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("model returned non-finite value %v", v)
	}
	return v, nil
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
