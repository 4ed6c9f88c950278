package insights

import (
	"fmt"
	"slices"
	"strconv"
)

// AlertSource contributes extra alerts for a set of conditions.
// Implementations must not retain or mutate the conditions.
type AlertSource interface {
	Alerts(c Conditions) []Alert
}

// builtinRule evaluates one fixed threshold and yields at most one alert
type builtinRule func(c Conditions) (Alert, bool)

var builtinRules = []builtinRule{
	heatStressAlert,
	lowSoilMoistureAlert,
	fungalRiskAlert,
	highWindAlert,
	nutrientCheckAlert,
}

func heatStressAlert(c Conditions) (Alert, bool) {
	if c.Temperature <= 35 {
		return Alert{}, false
	}
	return Alert{
		Type:     AlertWeather,
		Severity: SeverityHigh,
		Title:    "Heat Stress Warning",
		Message:  fmt.Sprintf("Temperature is %s°C. Crops may experience heat stress.", formatReading(c.Temperature)),
		Recommendations: []string{
			"Increase irrigation frequency",
			"Consider shade netting for sensitive crops",
			"Monitor crops for wilting signs",
			"Harvest early morning if possible",
		},
		Priority: 1,
	}, true
}

func lowSoilMoistureAlert(c Conditions) (Alert, bool) {
	if c.SoilMoisture >= 30 {
		return Alert{}, false
	}
	severity, priority := SeverityHigh, 2
	if c.SoilMoisture < 20 {
		severity, priority = SeverityCritical, 1
	}
	return Alert{
		Type:     AlertIrrigation,
		Severity: severity,
		Title:    "Low Soil Moisture Alert",
		Message:  fmt.Sprintf("Soil moisture is at %s%%. Immediate irrigation recommended.", formatReading(c.SoilMoisture)),
		Recommendations: []string{
			"Start irrigation immediately",
			"Check irrigation system for blockages",
			"Monitor soil moisture levels hourly",
			"Consider drip irrigation for efficiency",
		},
		Priority: priority,
	}, true
}

func fungalRiskAlert(c Conditions) (Alert, bool) {
	if !(c.Humidity > 80 && c.Temperature > 25) {
		return Alert{}, false
	}
	return Alert{
		Type:     AlertPest,
		Severity: SeverityMedium,
		Title:    "Fungal Disease Risk",
		Message:  "High humidity and temperature create favorable conditions for fungal diseases.",
		Recommendations: []string{
			"Apply preventive fungicide spray",
			"Improve air circulation around plants",
			"Reduce irrigation frequency temporarily",
			"Monitor leaves for early disease signs",
		},
		Priority: 3,
	}, true
}

func highWindAlert(c Conditions) (Alert, bool) {
	if c.WindSpeed <= 15 {
		return Alert{}, false
	}
	return Alert{
		Type:     AlertWeather,
		Severity: SeverityMedium,
		Title:    "High Wind Advisory",
		Message:  fmt.Sprintf("Wind speed is %s km/h. Protect vulnerable crops.", formatReading(c.WindSpeed)),
		Recommendations: []string{
			"Install windbreaks for young plants",
			"Secure support stakes and ties",
			"Postpone pesticide applications",
			"Check for physical crop damage after wind subsides",
		},
		Priority: 3,
	}, true
}

// nutrientCheckAlert always fires
func nutrientCheckAlert(Conditions) (Alert, bool) {
	return Alert{
		Type:     AlertDisease,
		Severity: SeverityLow,
		Title:    "Seasonal Nutrient Check",
		Message:  "Consider soil testing for optimal nutrient management.",
		Recommendations: []string{
			"Schedule soil nutrient analysis",
			"Monitor crop color for nutrient deficiency signs",
			"Plan fertilization schedule",
			"Consider organic amendments",
		},
		Priority: 4,
	}, true
}

func formatReading(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// SynthesizeAlerts evaluates the built-in threshold rules. The result always
// holds the seasonal nutrient check and is sorted by ascending priority,
// ties keeping rule order.
func SynthesizeAlerts(c Conditions) []Alert {
	return NewAlertSynthesizer().Synthesize(c)
}

func sortByPriority(alerts []Alert) {
	slices.SortStableFunc(alerts, func(a, b Alert) int {
		return a.Priority - b.Priority
	})
}

// AlertSynthesizer combines the built-in rules with extra sources such as
// agronomist-authored rules.
type AlertSynthesizer struct {
	sources []AlertSource
}

// NewAlertSynthesizer creates a synthesizer over the given extra sources
func NewAlertSynthesizer(sources ...AlertSource) *AlertSynthesizer {
	return &AlertSynthesizer{sources: sources}
}

// Synthesize runs the built-in rules then every extra source in order and
// stable-sorts the combined list by priority.
func (s *AlertSynthesizer) Synthesize(c Conditions) []Alert {
	alerts := make([]Alert, 0, len(builtinRules))
	for _, rule := range builtinRules {
		if a, ok := rule(c); ok {
			alerts = append(alerts, a)
		}
	}
	for _, src := range s.sources {
		alerts = append(alerts, src.Alerts(c)...)
	}
	sortByPriority(alerts)
	return alerts
}

// CountUrgent returns how many alerts are high or critical severity
func CountUrgent(alerts []Alert) int {
	n := 0
	for _, a := range alerts {
		if a.Severity.Urgent() {
			n++
		}
	}
	return n
}

// FieldAlerts derives the alerts stored alongside a field-data submission
func FieldAlerts(o FieldObservation) []Alert {
	alerts := []Alert{}

	if o.SoilMoisture < 30 {
		severity := SeverityMedium
		if o.SoilMoisture < 20 {
			severity = SeverityHigh
		}
		alerts = append(alerts, Alert{
			Type:     AlertIrrigation,
			Severity: severity,
			Title:    "Low Soil Moisture Detected",
			Message:  fmt.Sprintf("Soil moisture is at %s%%. Consider irrigation.", formatReading(o.SoilMoisture)),
			Recommendations: []string{
				"Increase irrigation frequency",
				"Check irrigation system",
				"Monitor soil moisture daily",
			},
			Priority: 2,
		})
	}

	if o.SoilNitrogen < 50 {
		alerts = append(alerts, Alert{
			Type:     AlertDisease,
			Severity: SeverityMedium,
			Title:    "Low Nitrogen Levels",
			Message:  fmt.Sprintf("Soil nitrogen is at %s ppm. Consider fertilization.", formatReading(o.SoilNitrogen)),
			Recommendations: []string{
				"Apply nitrogen fertilizer",
				"Consider organic compost",
				"Test soil again in 2 weeks",
			},
			Priority: 3,
		})
	}

	return alerts
}
