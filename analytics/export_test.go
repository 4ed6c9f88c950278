package analytics

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/liamcoop/fieldinsights/insights"
	"github.com/liamcoop/fieldinsights/store"
)

func TestParseDatasetAndFormat(t *testing.T) {
	if d, err := ParseDataset(""); err != nil || d != DatasetPredictions {
		t.Errorf("ParseDataset(\"\") = %q, %v", d, err)
	}
	if _, err := ParseDataset("users"); err == nil {
		t.Error("ParseDataset(users) should fail")
	}
	if f, err := ParseFormat("json"); err != nil || f.ContentType() != "application/json" {
		t.Errorf("ParseFormat(json) = %q, %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat(xml) should fail")
	}
}

func TestFilename(t *testing.T) {
	at := time.Date(2024, 6, 1, 8, 15, 0, 0, time.UTC)
	if got := Filename(DatasetAlerts, FormatCSV, at); got != "alerts_20240601_081500.csv" {
		t.Errorf("Filename() = %q", got)
	}
}

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("invalid csv: %v", err)
	}
	return records
}

func TestPredictionTableCSV(t *testing.T) {
	created := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	preds := []*store.Prediction{
		{
			ID: "p1", Crop: "rice", Value: 52.5, Confidence: 0.85, Validated: true, CreatedAt: created,
			Input: insights.FieldObservation{Temperature: 28, Humidity: 70, Rainfall: 900},
			Farmer: &store.Farmer{
				Location: "Kerala", Crops: `["rice"]`, Acres: 3,
				SoilData: map[string]float64{"ph": 6.2, "nitrogen": 40},
			},
		},
		{ID: "p2", Crop: "wheat", Value: 40, Confidence: 0.7, CreatedAt: created},
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, PredictionTable(preds)); err != nil {
		t.Fatalf("WriteCSV() failed: %v", err)
	}
	records := readCSV(t, buf.Bytes())
	if len(records) != 3 {
		t.Fatalf("got %d records, want header + 2", len(records))
	}
	if diff := cmp.Diff(predictionColumns, records[0]); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}

	want := []string{
		"p1", "rice", "52.5", "0.85", "true", "2024-06-01T08:00:00Z",
		"Kerala", "3", `["rice"]`, "6.2", "40", "", "",
		"28", "70", "900",
	}
	if diff := cmp.Diff(want, records[1]); diff != "" {
		t.Errorf("row mismatch (-want +got):\n%s", diff)
	}
	if records[2][6] != "" || records[2][9] != "" {
		t.Errorf("missing farmer should give empty cells, got %v", records[2])
	}
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, AlertTable(nil)); !errors.Is(err, ErrNoData) {
		t.Errorf("WriteCSV(empty) error = %v, want ErrNoData", err)
	}
}

func TestFarmerAndAlertTablesJSON(t *testing.T) {
	water := 12.5
	created := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	farmers := FarmerTable([]*store.Farmer{
		{ID: "f1", Name: "Meera", Email: "m@example.com", Location: "Nashik", Crops: "[]", Acres: 2, WaterLevel: &water, CreatedAt: created},
	})

	var buf bytes.Buffer
	if err := WriteJSON(&buf, farmers); err != nil {
		t.Fatalf("WriteJSON() failed: %v", err)
	}
	var rows []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rows); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(rows) != 1 || rows[0]["farmer_id"] != "f1" || rows[0]["water_level"] != 12.5 || rows[0]["name"] != "Meera" {
		t.Errorf("unexpected rows: %v", rows)
	}

	alerts := AlertTable([]*store.AlertRecord{
		{ID: "a1", Type: insights.AlertPest, Severity: insights.SeverityLow, Title: "Aphids", Message: "Check leaves", FarmerLocation: "Nashik", CreatedAt: created},
	})
	buf.Reset()
	if err := WriteJSON(&buf, alerts); err != nil {
		t.Fatalf("WriteJSON() failed: %v", err)
	}
	rows = nil
	_ = json.Unmarshal(buf.Bytes(), &rows)
	if rows[0]["alert_type"] != "pest" || rows[0]["is_resolved"] != false || rows[0]["farmer_location"] != "Nashik" {
		t.Errorf("unexpected alert rows: %v", rows)
	}

	buf.Reset()
	if err := WriteJSON(&buf, AlertTable(nil)); err != nil {
		t.Fatalf("WriteJSON(empty) failed: %v", err)
	}
	if got := bytes.TrimSpace(buf.Bytes()); string(got) != "[]" {
		t.Errorf("empty JSON export = %s, want []", got)
	}
}
