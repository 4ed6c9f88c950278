package regression

import (
	"fmt"

	"github.com/liamcoop/fieldinsights/insights"
)

// Info summarises a loaded model
type Info struct {
	Loaded   bool     `json:"loaded"`
	Type     string   `json:"type"`
	Name     string   `json:"name,omitempty"`
	Version  string   `json:"version,omitempty"`
	Features int      `json:"features,omitempty"`
	RSquared *float64 `json:"r_squared,omitempty"`
	Endpoint string   `json:"endpoint,omitempty"`
	State    string   `json:"state,omitempty"`
}

// Describer is implemented by models that can report on themselves
type Describer interface {
	Describe() Info
}

// Describe reports m. A nil model is reported as not loaded.
func Describe(m insights.Regressor) Info {
	if m == nil {
		return Info{Type: "rule_based"}
	}
	if d, ok := m.(Describer); ok {
		return d.Describe()
	}
	return Info{Loaded: true, Type: fmt.Sprintf("%T", m)}
}
