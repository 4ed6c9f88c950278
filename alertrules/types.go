package alertrules

import (
	"errors"
	"time"

	"github.com/liamcoop/fieldinsights/insights"
)

var (
	// ErrRuleNotFound is returned when no rule has the requested ID
	ErrRuleNotFound = errors.New("alert rule not found")
	// ErrRuleExists is returned when adding a rule whose ID is taken
	ErrRuleExists = errors.New("alert rule already exists")
	// ErrInvalidRule wraps every rule validation and compilation failure
	ErrInvalidRule = errors.New("invalid alert rule")
)

// Rule is an agronomist-authored advisory. Expression is a CEL boolean
// over the `conditions` map; when it holds, the rule emits its alert.
type Rule struct {
	ID              string             `json:"id"`
	Name            string             `json:"name"`
	Expression      string             `json:"expression"`
	AlertType       insights.AlertType `json:"alert_type"`
	Severity        insights.Severity  `json:"severity"`
	Title           string             `json:"title"`
	Message         string             `json:"message"`
	Recommendations []string           `json:"recommendations"`
	Priority        int                `json:"priority"`
	Active          bool               `json:"active"`
	CreatedBy       string             `json:"created_by,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// Alert renders the alert this rule emits when it matches
func (r *Rule) Alert() insights.Alert {
	recs := make([]string, len(r.Recommendations))
	copy(recs, r.Recommendations)
	return insights.Alert{
		Type:            r.AlertType,
		Severity:        r.Severity,
		Title:           r.Title,
		Message:         r.Message,
		Recommendations: recs,
		Priority:        r.Priority,
	}
}

// EvaluationResult contains the outcome of evaluating one rule
type EvaluationResult struct {
	RuleID   string
	RuleName string
	Matched  bool
	Error    error
	Trace    any // CEL evaluation state, when tracking is on
}
