package insights

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestValidateFieldObservation(t *testing.T) {
	testCases := []struct {
		name      string
		modify    func(*FieldObservation)
		wantField string
	}{
		{"valid", func(*FieldObservation) {}, ""},
		{"ph lower bound", func(o *FieldObservation) { o.SoilPH = 0 }, ""},
		{"ph upper bound", func(o *FieldObservation) { o.SoilPH = 14 }, ""},
		{"ph above range", func(o *FieldObservation) { o.SoilPH = 15 }, "soil_ph"},
		{"moisture below range", func(o *FieldObservation) { o.SoilMoisture = -5 }, "soil_moisture"},
		{"moisture above range", func(o *FieldObservation) { o.SoilMoisture = 100.1 }, "soil_moisture"},
		{"negative potassium", func(o *FieldObservation) { o.SoilPotassium = -1 }, "soil_potassium"},
		{"temperature lower bound", func(o *FieldObservation) { o.Temperature = -50 }, ""},
		{"temperature below range", func(o *FieldObservation) { o.Temperature = -51 }, "temperature"},
		{"humidity above range", func(o *FieldObservation) { o.Humidity = 101 }, "humidity"},
		{"negative rainfall", func(o *FieldObservation) { o.Rainfall = -0.1 }, "rainfall"},
		{"zero acres", func(o *FieldObservation) { o.Acres = 0 }, "acres"},
		{"infinite rainfall", func(o *FieldObservation) { o.Rainfall = math.Inf(1) }, "rainfall"},
		{"empty crop", func(o *FieldObservation) { o.Crop = "" }, ""},
		{"one letter crop", func(o *FieldObservation) { o.Crop = "x" }, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			obs := optimalField()
			tc.modify(&obs)
			err := ValidateFieldObservation(obs)

			if tc.wantField == "" {
				if err != nil {
					t.Fatalf("expected valid, got %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if verr.Field != tc.wantField {
				t.Errorf("Field = %q, want %q", verr.Field, tc.wantField)
			}
		})
	}
}

func TestValidateCropHealthObservation(t *testing.T) {
	testCases := []struct {
		name    string
		obs     CropHealthObservation
		wantErr bool
	}{
		{"valid", CropHealthObservation{Crop: "rice", NDVIIndex: 0.5, Temperature: 25}, false},
		{"ndvi lower bound", CropHealthObservation{Crop: "rice", NDVIIndex: -1}, false},
		{"ndvi upper bound", CropHealthObservation{Crop: "rice", NDVIIndex: 1}, false},
		{"ndvi above range", CropHealthObservation{Crop: "rice", NDVIIndex: 1.01}, true},
		{"extreme temperature is allowed", CropHealthObservation{Crop: "rice", Temperature: 500}, false},
		{"NaN humidity", CropHealthObservation{Crop: "rice", Humidity: math.NaN()}, true},
		{"empty crop", CropHealthObservation{NDVIIndex: 0.5}, false},
		{"one letter crop", CropHealthObservation{Crop: "x", NDVIIndex: 0.5}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateCropHealthObservation(tc.obs)
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateCropHealthObservation() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestValidateFieldData(t *testing.T) {
	testCases := []struct {
		name      string
		crop      string
		wantField string
	}{
		{"two letter crop", "oa", ""},
		{"fifty characters", strings.Repeat("a", 50), ""},
		{"empty crop", "", "crop"},
		{"blank crop", "   ", "crop"},
		{"one letter crop", "x", "crop"},
		{"long crop", strings.Repeat("a", 51), "crop"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			obs := optimalField()
			obs.Crop = tc.crop
			err := ValidateFieldData(obs)

			if tc.wantField == "" {
				if err != nil {
					t.Fatalf("expected valid, got %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) || verr.Field != tc.wantField {
				t.Errorf("expected %s validation error, got %v", tc.wantField, err)
			}
		})
	}

	obs := optimalField()
	obs.SoilPH = 15
	var verr *ValidationError
	if err := ValidateFieldData(obs); !errors.As(err, &verr) || verr.Field != "soil_ph" {
		t.Errorf("expected range checks to still run, got %v", err)
	}
}

func TestValidationErrorMessage(t *testing.T) {
	obs := optimalField()
	obs.SoilPH = 15
	err := ValidateFieldObservation(obs)
	if err == nil {
		t.Fatal("expected error")
	}
	want := "invalid soil_ph (15): must be at most 14"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestValidateConditions(t *testing.T) {
	if err := ValidateConditions(Conditions{Temperature: 70, WindSpeed: 200}); err != nil {
		t.Errorf("finite readings should pass, got %v", err)
	}
	err := ValidateConditions(Conditions{WindSpeed: math.Inf(-1)})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "wind_speed" {
		t.Errorf("expected wind_speed validation error, got %v", err)
	}
}
