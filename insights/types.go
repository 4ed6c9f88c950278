package insights

import "time"

// FieldObservation is a single farmer-submitted field measurement
type FieldObservation struct {
	Crop           string  `json:"crop"`
	SoilPH         float64 `json:"soil_ph"`
	SoilMoisture   float64 `json:"soil_moisture"`
	SoilNitrogen   float64 `json:"soil_nitrogen"`
	SoilPhosphorus float64 `json:"soil_phosphorus"`
	SoilPotassium  float64 `json:"soil_potassium"`
	Temperature    float64 `json:"temperature"`
	Humidity       float64 `json:"humidity"`
	Rainfall       float64 `json:"rainfall"`
	Acres          float64 `json:"acres"`
}

// Features returns the ordered feature vector fed to a yield Regressor
func (o FieldObservation) Features() []float64 {
	return []float64{
		o.SoilPH,
		o.SoilMoisture,
		o.SoilNitrogen,
		o.SoilPhosphorus,
		o.SoilPotassium,
		o.Temperature,
		o.Humidity,
		o.Rainfall,
		o.Acres,
	}
}

// CropHealthObservation carries remote-sensing vigor plus the local climate
type CropHealthObservation struct {
	Crop         string  `json:"crop"`
	NDVIIndex    float64 `json:"ndvi_index"`
	Temperature  float64 `json:"temperature"`
	Humidity     float64 `json:"humidity"`
	SoilMoisture float64 `json:"soil_moisture"`
}

// Features returns the ordered feature vector fed to a health Regressor
func (o CropHealthObservation) Features() []float64 {
	return []float64{o.NDVIIndex, o.Temperature, o.Humidity, o.SoilMoisture}
}

// Source identifies which strategy produced a result
type Source string

const (
	SourceModel     Source = "model"
	SourceRuleBased Source = "rule_based"
)

// YieldResult is the outcome of a yield estimate
type YieldResult struct {
	Crop            string    `json:"crop"`
	PredictedYield  float64   `json:"predicted_yield"`
	Confidence      float64   `json:"confidence"`
	Recommendations []string  `json:"recommendations"`
	Source          Source    `json:"source"`
	ProducedAt      time.Time `json:"created_at"`
}

// HealthStatus is the discrete crop health class, ordered by score
type HealthStatus string

const (
	HealthExcellent HealthStatus = "excellent"
	HealthGood      HealthStatus = "good"
	HealthModerate  HealthStatus = "moderate"
	HealthPoor      HealthStatus = "poor"
	HealthCritical  HealthStatus = "critical"
)

// HealthResult is the outcome of a crop health classification
type HealthResult struct {
	Crop             string       `json:"crop"`
	HealthStatus     HealthStatus `json:"health_status"`
	HealthScore      float64      `json:"health_score"`
	StressIndicators []string     `json:"stress_indicators"`
	Recommendations  []string     `json:"recommendations"`
	Confidence       float64      `json:"confidence"`
	Source           Source       `json:"source"`
}

// AlertType categorises an alert
type AlertType string

const (
	AlertIrrigation AlertType = "irrigation"
	AlertPest       AlertType = "pest"
	AlertWeather    AlertType = "weather"
	AlertDisease    AlertType = "disease"
)

// Valid reports whether t is one of the known alert types
func (t AlertType) Valid() bool {
	switch t {
	case AlertIrrigation, AlertPest, AlertWeather, AlertDisease:
		return true
	}
	return false
}

// Severity grades how serious an alert is
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is one of the known severities
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Urgent reports whether the severity counts towards high-priority totals
func (s Severity) Urgent() bool {
	return s == SeverityHigh || s == SeverityCritical
}

// Alert is a computed advisory. Lower Priority means more urgent.
type Alert struct {
	Type            AlertType `json:"type"`
	Severity        Severity  `json:"severity"`
	Title           string    `json:"title"`
	Message         string    `json:"message"`
	Recommendations []string  `json:"recommendations"`
	Priority        int       `json:"priority"`
}

// Conditions is the environmental snapshot the alert rules run against
type Conditions struct {
	Temperature      float64 `json:"temperature"`
	Humidity         float64 `json:"humidity"`
	SoilMoisture     float64 `json:"soil_moisture"`
	RainfallForecast float64 `json:"rainfall_forecast"`
	WindSpeed        float64 `json:"wind_speed"`
}

// Facts exposes the conditions as a flat map keyed by their JSON names
func (c Conditions) Facts() map[string]any {
	return map[string]any{
		"temperature":       c.Temperature,
		"humidity":          c.Humidity,
		"soil_moisture":     c.SoilMoisture,
		"rainfall_forecast": c.RainfallForecast,
		"wind_speed":        c.WindSpeed,
	}
}
