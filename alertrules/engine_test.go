package alertrules

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/liamcoop/fieldinsights/insights"
)

func frostRule(id string) *Rule {
	return &Rule{
		ID:              id,
		Name:            "Frost watch",
		Expression:      `conditions.temperature < 2.0`,
		AlertType:       insights.AlertWeather,
		Severity:        insights.SeverityHigh,
		Title:           "Frost Risk",
		Message:         "Night temperatures near freezing.",
		Recommendations: []string{"Cover seedlings overnight"},
		Priority:        2,
		Active:          true,
	}
}

func newTestEngine(t *testing.T, rules ...*Rule) *Engine {
	t.Helper()
	engine, err := NewEngine(NewInMemoryRuleStore())
	if err != nil {
		t.Fatalf("NewEngine() failed: %v", err)
	}
	for _, r := range rules {
		if err := engine.AddRule(r); err != nil {
			t.Fatalf("AddRule(%s) failed: %v", r.ID, err)
		}
	}
	return engine
}

// TestNewEngineCompilesExistingRules checks rules already in the store are
// usable straight after construction.
func TestNewEngineCompilesExistingRules(t *testing.T) {
	store := NewInMemoryRuleStore()
	active := frostRule("rule-1")
	inactive := frostRule("rule-2")
	inactive.Active = false
	for _, r := range []*Rule{active, inactive} {
		if err := store.Add(r); err != nil {
			t.Fatalf("Add() failed: %v", err)
		}
	}

	engine, err := NewEngine(store)
	if err != nil {
		t.Fatalf("NewEngine() failed: %v", err)
	}

	result, err := engine.Evaluate("rule-1", ConditionFacts(insights.Conditions{Temperature: 0}))
	if err != nil {
		t.Fatalf("Evaluate() failed for pre-compiled rule: %v", err)
	}
	if !result.Matched {
		t.Error("frost rule should match at 0 degrees")
	}

	if _, err := engine.Evaluate("rule-2", ConditionFacts(insights.Conditions{})); err == nil {
		t.Error("inactive rule should not be compiled")
	}
}

func TestCompileRuleSuccess(t *testing.T) {
	engine := newTestEngine(t)

	testCases := []struct {
		name       string
		expression string
	}{
		{"Simple boolean", `true`},
		{"Field access", `conditions.temperature > 30.0`},
		{"Index access", `conditions["wind_speed"] >= 15.0`},
		{"Boolean logic", `conditions.humidity > 70.0 && conditions.rainfall_forecast > 20.0`},
		{"Arithmetic", `conditions.temperature - conditions.humidity / 10.0 > 20.0`},
		{"Key presence", `has(conditions.wind_speed)`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if err := engine.CompileRule("test-"+tc.name, tc.expression); err != nil {
				t.Errorf("CompileRule(%q) failed: %v", tc.expression, err)
			}
		})
	}
}

func TestCompileRuleError(t *testing.T) {
	engine := newTestEngine(t)

	testCases := []struct {
		name       string
		expression string
	}{
		{"Syntax error", `conditions.temperature >=`},
		{"Invalid operator", `conditions.temperature === 18.0`},
		{"Undefined variable", `weather.temperature > 0.0`},
		{"Mismatched parens", `(conditions.temperature >= 18.0`},
		{"Non-boolean result", `conditions.temperature * 2.0`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := engine.CompileRule("test-"+tc.name, tc.expression)
			if err == nil {
				t.Fatalf("CompileRule(%q) should return error", tc.expression)
			}
			if !errors.Is(err, ErrInvalidRule) {
				t.Errorf("error should wrap ErrInvalidRule, got %v", err)
			}
		})
	}
}

func TestEvaluateWithTracing(t *testing.T) {
	engine := newTestEngine(t, frostRule("trace-rule"))

	result, err := engine.Evaluate("trace-rule", ConditionFacts(insights.Conditions{Temperature: 10}))
	if err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}
	if result.Matched {
		t.Error("frost rule should not match at 10 degrees")
	}
	if result.Trace == nil {
		t.Error("Result.Trace should be populated when state tracking is on")
	}
	if result.RuleName != "Frost watch" {
		t.Errorf("RuleName = %q, want %q", result.RuleName, "Frost watch")
	}
}

func TestEvaluateMissingRule(t *testing.T) {
	engine := newTestEngine(t)

	_, err := engine.Evaluate("nope", ConditionFacts(insights.Conditions{}))
	if !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("expected ErrRuleNotFound, got %v", err)
	}
}

// TestEvaluateAllContinuesOnError uses a facts map without the
// conditions variable so one rule fails at runtime.
func TestEvaluateAllContinuesOnError(t *testing.T) {
	always := frostRule("always")
	always.Name = "Always"
	always.Expression = `true`
	engine := newTestEngine(t, frostRule("frost"), always)

	results, err := engine.EvaluateAll(map[string]any{})
	if err != nil {
		t.Fatalf("EvaluateAll() failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	byID := map[string]*EvaluationResult{}
	for _, r := range results {
		byID[r.RuleID] = r
	}
	if byID["frost"].Error == nil {
		t.Error("frost rule should fail without conditions")
	}
	if byID["always"].Error != nil || !byID["always"].Matched {
		t.Errorf("always rule should match, got %+v", byID["always"])
	}
}

func TestEngineAlerts(t *testing.T) {
	gusty := &Rule{
		ID:              "gusty-rain",
		Name:            "Gusty rain",
		Expression:      `conditions.wind_speed > 10.0 && conditions.rainfall_forecast > 25.0`,
		AlertType:       insights.AlertWeather,
		Severity:        insights.SeverityMedium,
		Title:           "Storm Front",
		Message:         "Wind with heavy rain expected.",
		Recommendations: []string{"Delay spraying", "Clear drainage channels"},
		Priority:        3,
		Active:          true,
	}
	engine := newTestEngine(t, frostRule("frost"), gusty)

	got := engine.Alerts(insights.Conditions{Temperature: 1, WindSpeed: 12, RainfallForecast: 30})
	want := []insights.Alert{frostRule("frost").Alert(), gusty.Alert()}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Alerts() mismatch (-want +got):\n%s", diff)
	}

	if got := engine.Alerts(insights.Conditions{Temperature: 20}); len(got) != 0 {
		t.Errorf("expected no alerts, got %v", got)
	}
}

func TestEngineFeedsSynthesizer(t *testing.T) {
	engine := newTestEngine(t, frostRule("frost"))
	synth := insights.NewAlertSynthesizer(engine)

	alerts := synth.Synthesize(insights.Conditions{Temperature: 0, SoilMoisture: 50})
	titles := make([]string, len(alerts))
	for i, a := range alerts {
		titles[i] = a.Title
	}
	want := []string{"Frost Risk", "Seasonal Nutrient Check"}
	if diff := cmp.Diff(want, titles); diff != "" {
		t.Errorf("titles mismatch (-want +got):\n%s", diff)
	}
}

func TestEngineAddRule(t *testing.T) {
	engine := newTestEngine(t)

	r := frostRule("")
	if err := engine.AddRule(r); err != nil {
		t.Fatalf("AddRule() failed: %v", err)
	}
	if r.ID == "" {
		t.Fatal("AddRule() should assign an ID")
	}

	stored, err := engine.GetRule(r.ID)
	if err != nil {
		t.Fatalf("GetRule() failed: %v", err)
	}
	if stored.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}

	if err := engine.AddRule(frostRule(r.ID)); !errors.Is(err, ErrRuleExists) {
		t.Errorf("duplicate AddRule() should return ErrRuleExists, got %v", err)
	}
}

func TestEngineAddRuleValidation(t *testing.T) {
	engine := newTestEngine(t)

	bad := frostRule("bad")
	bad.Expression = `conditions.temperature +`
	if err := engine.AddRule(bad); !errors.Is(err, ErrInvalidRule) {
		t.Fatalf("expected ErrInvalidRule, got %v", err)
	}

	if _, err := engine.GetRule("bad"); !errors.Is(err, ErrRuleNotFound) {
		t.Error("invalid rule should not be stored")
	}
}

func TestEngineUpdateRule(t *testing.T) {
	engine := newTestEngine(t, frostRule("frost"))

	updated := frostRule("frost")
	updated.Expression = `conditions.temperature < 5.0`
	if err := engine.UpdateRule(updated); err != nil {
		t.Fatalf("UpdateRule() failed: %v", err)
	}

	res, err := engine.Evaluate("frost", ConditionFacts(insights.Conditions{Temperature: 4}))
	if err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}
	if !res.Matched {
		t.Error("updated expression should be live")
	}
}

func TestEngineUpdateRuleKeepsOldProgramOnFailure(t *testing.T) {
	engine := newTestEngine(t, frostRule("frost"))

	broken := frostRule("frost")
	broken.Expression = `conditions.temperature <`
	if err := engine.UpdateRule(broken); err == nil {
		t.Fatal("UpdateRule() should reject a broken expression")
	}

	missing := frostRule("missing")
	if err := engine.UpdateRule(missing); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("expected ErrRuleNotFound, got %v", err)
	}

	res, err := engine.Evaluate("frost", ConditionFacts(insights.Conditions{Temperature: 1}))
	if err != nil || !res.Matched {
		t.Errorf("original program should still evaluate, got %+v, %v", res, err)
	}
}

func TestEngineDeactivateRule(t *testing.T) {
	engine := newTestEngine(t, frostRule("frost"))

	off := frostRule("frost")
	off.Active = false
	if err := engine.UpdateRule(off); err != nil {
		t.Fatalf("UpdateRule() failed: %v", err)
	}

	if got := engine.Alerts(insights.Conditions{Temperature: -5}); len(got) != 0 {
		t.Errorf("inactive rule should not alert, got %v", got)
	}
	rules, _ := engine.ListRules()
	if len(rules) != 1 {
		t.Errorf("ListRules() should still include inactive rules, got %d", len(rules))
	}
}

func TestEngineDeleteRule(t *testing.T) {
	engine := newTestEngine(t, frostRule("frost"))

	if err := engine.DeleteRule("frost"); err != nil {
		t.Fatalf("DeleteRule() failed: %v", err)
	}
	if got := engine.Alerts(insights.Conditions{Temperature: -5}); len(got) != 0 {
		t.Errorf("deleted rule should not alert, got %v", got)
	}
	if err := engine.DeleteRule("frost"); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("second delete should return ErrRuleNotFound, got %v", err)
	}
}

func TestEngineConcurrentReadWrite(t *testing.T) {
	engine := newTestEngine(t, frostRule("frost"))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			r := frostRule(fmt.Sprintf("rule-%d", i))
			if err := engine.AddRule(r); err != nil {
				t.Errorf("AddRule() failed: %v", err)
			}
		}(i)
		go func() {
			defer wg.Done()
			engine.Alerts(insights.Conditions{Temperature: 0})
		}()
	}
	wg.Wait()

	if got := engine.Alerts(insights.Conditions{Temperature: 0}); len(got) != 11 {
		t.Errorf("got %d alerts, want 11", len(got))
	}
}
