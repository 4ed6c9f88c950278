// Package regression provides insights.Regressor implementations: a linear
// model persisted as YAML and a remote HTTP inference client.
package regression

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gonum.org/v1/gonum/floats"
	"gopkg.in/yaml.v3"

	"github.com/liamcoop/fieldinsights/insights"
)

// ErrFeatureCount is returned when a feature vector has the wrong length
var ErrFeatureCount = errors.New("feature count mismatch")

// Linear is y = Intercept + Coefficients·x
type Linear struct {
	Name         string    `yaml:"name"`
	Version      string    `yaml:"version"`
	Intercept    float64   `yaml:"intercept"`
	Coefficients []float64 `yaml:"coefficients"`
	Features     []string  `yaml:"features,omitempty"`

	// RSquared is the training fit, set by FitLinear
	RSquared float64 `yaml:"r_squared,omitempty"`
}

var _ insights.Regressor = (*Linear)(nil)

// ParseLinear decodes and checks a YAML model document
func ParseLinear(data []byte) (*Linear, error) {
	var m Linear
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if len(m.Coefficients) == 0 {
		return nil, errors.New("model has no coefficients")
	}
	if len(m.Features) > 0 && len(m.Features) != len(m.Coefficients) {
		return nil, fmt.Errorf("%w: %d feature names for %d coefficients",
			ErrFeatureCount, len(m.Features), len(m.Coefficients))
	}
	return &m, nil
}

// LoadLinear reads a YAML model from path
func LoadLinear(path string) (*Linear, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", path, err)
	}
	m, err := ParseLinear(data)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", path, err)
	}
	return m, nil
}

// Save writes the model to path as YAML
func (m *Linear) Save(path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write model %s: %w", path, err)
	}
	return nil
}

// Predict evaluates the model. It never mutates m.
func (m *Linear) Predict(_ context.Context, features []float64) (float64, error) {
	if len(features) != len(m.Coefficients) {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrFeatureCount, len(features), len(m.Coefficients))
	}
	return m.Intercept + floats.Dot(m.Coefficients, features), nil
}

// Describe reports the model for the model-info endpoint
func (m *Linear) Describe() Info {
	r2 := m.RSquared
	return Info{
		Loaded:   true,
		Type:     "Linear",
		Name:     m.Name,
		Version:  m.Version,
		Features: len(m.Coefficients),
		RSquared: &r2,
	}
}
