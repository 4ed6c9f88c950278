package analytics

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/liamcoop/fieldinsights/store"
)

// ErrNoData is returned when a CSV export has no rows
var ErrNoData = errors.New("no data found for the specified criteria")

// Dataset names an exportable table
type Dataset string

const (
	DatasetPredictions Dataset = "predictions"
	DatasetFarmers     Dataset = "farmers"
	DatasetAlerts      Dataset = "alerts"
)

// ParseDataset accepts predictions, farmers or alerts; empty means predictions
func ParseDataset(s string) (Dataset, error) {
	switch d := Dataset(s); d {
	case "":
		return DatasetPredictions, nil
	case DatasetPredictions, DatasetFarmers, DatasetAlerts:
		return d, nil
	default:
		return "", fmt.Errorf("invalid dataset type %q: use 'predictions', 'farmers', or 'alerts'", s)
	}
}

// Format is an export encoding
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat accepts csv or json; empty means csv
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("invalid format %q: use 'csv' or 'json'", s)
	}
}

// ContentType returns the MIME type for the format
func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "text/csv"
}

// Filename names an export taken at now, e.g. predictions_20240601_081500.csv
func Filename(d Dataset, f Format, now time.Time) string {
	return fmt.Sprintf("%s_%s.%s", d, now.Format("20060102_150405"), f)
}

// Table is a flattened export. Every row has one value per column; a nil
// value is written as an empty cell.
type Table struct {
	Columns []string
	Rows    [][]any
}

var predictionColumns = []string{
	"prediction_id", "crop", "prediction", "confidence", "validated", "created_at",
	"farmer_location", "farmer_acres", "farmer_crops",
	"soil_ph", "soil_nitrogen", "soil_phosphorus", "soil_potassium",
	"input_temperature", "input_humidity", "input_rainfall",
}

func soilCell(f *store.Farmer, key string) any {
	if f == nil {
		return nil
	}
	if v, ok := f.SoilData[key]; ok {
		return v
	}
	return nil
}

// PredictionTable flattens predictions with their farmer and inputs
func PredictionTable(preds []*store.Prediction) Table {
	t := Table{Columns: predictionColumns, Rows: make([][]any, 0, len(preds))}
	for _, p := range preds {
		var (
			location, crops string
			acres           float64
		)
		if p.Farmer != nil {
			location, crops, acres = p.Farmer.Location, p.Farmer.Crops, p.Farmer.Acres
		}
		t.Rows = append(t.Rows, []any{
			p.ID, p.Crop, p.Value, p.Confidence, p.Validated, p.CreatedAt,
			location, acres, crops,
			soilCell(p.Farmer, "ph"), soilCell(p.Farmer, "nitrogen"),
			soilCell(p.Farmer, "phosphorus"), soilCell(p.Farmer, "potassium"),
			p.Input.Temperature, p.Input.Humidity, p.Input.Rainfall,
		})
	}
	return t
}

var farmerColumns = []string{
	"farmer_id", "name", "email", "location", "crops", "acres", "water_level", "created_at",
}

// FarmerTable flattens farmer profiles
func FarmerTable(farmers []*store.Farmer) Table {
	t := Table{Columns: farmerColumns, Rows: make([][]any, 0, len(farmers))}
	for _, f := range farmers {
		var water any
		if f.WaterLevel != nil {
			water = *f.WaterLevel
		}
		t.Rows = append(t.Rows, []any{
			f.ID, f.Name, f.Email, f.Location, f.Crops, f.Acres, water, f.CreatedAt,
		})
	}
	return t
}

var alertColumns = []string{
	"alert_id", "alert_type", "severity", "title", "message", "is_resolved", "farmer_location", "created_at",
}

// AlertTable flattens alerts with their farmer location
func AlertTable(alerts []*store.AlertRecord) Table {
	t := Table{Columns: alertColumns, Rows: make([][]any, 0, len(alerts))}
	for _, a := range alerts {
		t.Rows = append(t.Rows, []any{
			a.ID, string(a.Type), string(a.Severity), a.Title, a.Message, a.IsResolved, a.FarmerLocation, a.CreatedAt,
		})
	}
	return t
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}

// WriteCSV writes a header row followed by the table rows
func WriteCSV(w io.Writer, t Table) error {
	if len(t.Rows) == 0 {
		return ErrNoData
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i := range record {
			record[i] = cell(row[i])
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the rows as an indented array of objects keyed by column
func WriteJSON(w io.Writer, t Table) error {
	objects := make([]map[string]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		obj := make(map[string]any, len(t.Columns))
		for i, col := range t.Columns {
			obj[col] = row[i]
		}
		objects = append(objects, obj)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(objects); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}
