package insights

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// ValidationError reports an input value outside its declared domain
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s (%v): %s", e.Field, e.Value, e.Reason)
}

// bound is an inclusive numeric range check for one named field.
// exclusiveMin turns the lower bound into a strict inequality.
type bound struct {
	field        string
	value        float64
	min, max     float64
	exclusiveMin bool
}

func (b bound) check() error {
	if math.IsNaN(b.value) || math.IsInf(b.value, 0) {
		return &ValidationError{Field: b.field, Value: b.value, Reason: "must be a finite number"}
	}
	if b.exclusiveMin {
		if b.value <= b.min {
			return &ValidationError{Field: b.field, Value: b.value, Reason: fmt.Sprintf("must be greater than %g", b.min)}
		}
	} else if b.value < b.min {
		return &ValidationError{Field: b.field, Value: b.value, Reason: fmt.Sprintf("must be at least %g", b.min)}
	}
	if b.value > b.max {
		return &ValidationError{Field: b.field, Value: b.value, Reason: fmt.Sprintf("must be at most %g", b.max)}
	}
	return nil
}

func checkAll(bounds []bound) error {
	for _, b := range bounds {
		if err := b.check(); err != nil {
			return err
		}
	}
	return nil
}

func validateCrop(crop string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(crop))
	if n < 2 || n > 50 {
		return &ValidationError{Field: "crop", Value: crop, Reason: "must be between 2 and 50 characters"}
	}
	return nil
}

// ValidateFieldObservation checks every numeric field against its declared
// range. Out-of-range values are rejected, never clamped. Any crop name is
// accepted.
func ValidateFieldObservation(o FieldObservation) error {
	inf := math.MaxFloat64
	return checkAll([]bound{
		{field: "soil_ph", value: o.SoilPH, min: 0, max: 14},
		{field: "soil_moisture", value: o.SoilMoisture, min: 0, max: 100},
		{field: "soil_nitrogen", value: o.SoilNitrogen, min: 0, max: inf},
		{field: "soil_phosphorus", value: o.SoilPhosphorus, min: 0, max: inf},
		{field: "soil_potassium", value: o.SoilPotassium, min: 0, max: inf},
		{field: "temperature", value: o.Temperature, min: -50, max: 60},
		{field: "humidity", value: o.Humidity, min: 0, max: 100},
		{field: "rainfall", value: o.Rainfall, min: 0, max: inf},
		{field: "acres", value: o.Acres, min: 0, max: inf, exclusiveMin: true},
	})
}

// ValidateCropHealthObservation checks the NDVI index. The climate readings
// only need to be finite; the scoring rules handle any magnitude.
func ValidateCropHealthObservation(o CropHealthObservation) error {
	inf := math.MaxFloat64
	return checkAll([]bound{
		{field: "ndvi_index", value: o.NDVIIndex, min: -1, max: 1},
		{field: "temperature", value: o.Temperature, min: -inf, max: inf},
		{field: "humidity", value: o.Humidity, min: -inf, max: inf},
		{field: "soil_moisture", value: o.SoilMoisture, min: -inf, max: inf},
	})
}

// ValidateFieldData applies the farmer submission form rules: the crop name
// must be 2 to 50 characters after trimming, then the observation ranges.
func ValidateFieldData(o FieldObservation) error {
	if err := validateCrop(o.Crop); err != nil {
		return err
	}
	return ValidateFieldObservation(o)
}

// ValidateConditions only rejects non-finite readings
func ValidateConditions(c Conditions) error {
	inf := math.MaxFloat64
	return checkAll([]bound{
		{field: "temperature", value: c.Temperature, min: -inf, max: inf},
		{field: "humidity", value: c.Humidity, min: -inf, max: inf},
		{field: "soil_moisture", value: c.SoilMoisture, min: -inf, max: inf},
		{field: "rainfall_forecast", value: c.RainfallForecast, min: -inf, max: inf},
		{field: "wind_speed", value: c.WindSpeed, min: -inf, max: inf},
	})
}
