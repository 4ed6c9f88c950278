package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/liamcoop/fieldinsights/insights"
	"github.com/liamcoop/fieldinsights/regression"
)

const field = `{
	"crop": "wheat", "soil_ph": 6.5, "soil_moisture": 50,
	"soil_nitrogen": 45, "soil_phosphorus": 30, "soil_potassium": 200,
	"temperature": 22, "humidity": 60, "rainfall": 600, "acres": 5
}`

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestYieldRuleBased(t *testing.T) {
	out, err := execute(t, field, "yield")
	if err != nil {
		t.Fatalf("yield failed: %v", err)
	}
	var res insights.YieldResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if res.Source != insights.SourceRuleBased {
		t.Errorf("source = %s, want rule_based", res.Source)
	}
	if res.PredictedYield <= 0 {
		t.Errorf("expected a positive yield, got %v", res.PredictedYield)
	}
}

func TestYieldWithModelFile(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "yield.yaml")
	m := &regression.Linear{
		Name:         "acres-only",
		Intercept:    10,
		Coefficients: []float64{0, 0, 0, 0, 0, 0, 0, 0, 2},
	}
	if err := m.Save(model); err != nil {
		t.Fatalf("save model: %v", err)
	}
	input := filepath.Join(dir, "field.json")
	if err := os.WriteFile(input, []byte(field), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "", "yield", "-f", input, "--model", model)
	if err != nil {
		t.Fatalf("yield failed: %v", err)
	}
	var res insights.YieldResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if res.Source != insights.SourceModel {
		t.Errorf("source = %s, want model", res.Source)
	}
	if res.PredictedYield != 20 {
		t.Errorf("predicted_yield = %v, want 20", res.PredictedYield)
	}
}

func TestYieldRejectsInvalidObservation(t *testing.T) {
	_, err := execute(t, strings.Replace(field, `"soil_ph": 6.5`, `"soil_ph": 15`, 1), "yield")
	var verr *insights.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected a validation error, got %v", err)
	}
	if verr.Field != "soil_ph" {
		t.Errorf("field = %s, want soil_ph", verr.Field)
	}
}

func TestHealth(t *testing.T) {
	out, err := execute(t, `{"crop":"rice","ndvi_index":0.8,"temperature":25,"humidity":60,"soil_moisture":50}`, "health")
	if err != nil {
		t.Fatalf("health failed: %v", err)
	}
	var res insights.HealthResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if res.Source != insights.SourceRuleBased {
		t.Errorf("source = %s, want rule_based", res.Source)
	}
}

func TestAlerts(t *testing.T) {
	out, err := execute(t, `{"temperature":38,"humidity":85,"soil_moisture":15,"rainfall_forecast":0,"wind_speed":5}`, "alerts")
	if err != nil {
		t.Fatalf("alerts failed: %v", err)
	}
	var res struct {
		Alerts       []insights.Alert `json:"alerts"`
		Total        int              `json:"total_alerts"`
		HighPriority int              `json:"high_priority_alerts"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	// heat stress, critical moisture, fungal risk and the nutrient reminder
	if res.Total != 4 || len(res.Alerts) != 4 {
		t.Errorf("total_alerts = %d, want 4", res.Total)
	}
	if res.HighPriority != 2 {
		t.Errorf("high_priority_alerts = %d, want 2", res.HighPriority)
	}
	if res.Alerts[0].Priority != 1 {
		t.Errorf("alerts not sorted by priority: %+v", res.Alerts)
	}
}

func TestFitWritesModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.yaml")
	training := `{"name":"toy","features":["x"],"x":[[1],[2],[3],[4]],"y":[3,5,7,9]}`

	if _, err := execute(t, training, "fit", "-o", path, "--version", "2.0"); err != nil {
		t.Fatalf("fit failed: %v", err)
	}

	m, err := regression.LoadLinear(path)
	if err != nil {
		t.Fatalf("load fitted model: %v", err)
	}
	if m.Name != "toy" || m.Version != "2.0" {
		t.Errorf("metadata = %s/%s, want toy/2.0", m.Name, m.Version)
	}
	if math.Abs(m.Intercept-1) > 1e-9 || math.Abs(m.Coefficients[0]-2) > 1e-9 {
		t.Errorf("fit = %v + %v·x, want 1 + 2·x", m.Intercept, m.Coefficients)
	}
}

func TestBadInput(t *testing.T) {
	tests := []struct {
		name string
		in   string
		args []string
	}{
		{"malformed json", "{", []string{"alerts"}},
		{"missing file", "", []string{"yield", "-f", "/nonexistent/field.json"}},
		{"missing model", field, []string{"yield", "--model", "/nonexistent/model.yaml"}},
		{"too few samples", `{"x":[[1]],"y":[1]}`, []string{"fit"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := execute(t, tt.in, tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}
