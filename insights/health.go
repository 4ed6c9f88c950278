package insights

import (
	"context"
	"log/slog"
)

// Stress indicator labels. Health recommendations key off these exact strings.
const (
	StressLowVigor     = "Low vegetation vigor detected"
	StressHeat         = "Heat stress risk"
	StressCold         = "Cold stress risk"
	StressLowHumidity  = "Low humidity stress"
	StressHighHumidity = "High humidity disease risk"
	StressWater        = "Water stress"
	StressWaterlogging = "Waterlogging risk"
)

// RuleBasedHealthScore scores crop health in [0,1] from NDVI and climate.
// Each tier group is mutually exclusive and evaluated top-down.
func RuleBasedHealthScore(o CropHealthObservation) (float64, float64) {
	score := 0.5

	switch {
	case o.NDVIIndex > 0.6:
		score += 0.3
	case o.NDVIIndex > 0.4:
		score += 0.1
	case o.NDVIIndex < 0.2:
		score -= 0.3
	}

	if o.Temperature >= 20 && o.Temperature <= 30 {
		score += 0.1
	} else if o.Temperature > 35 || o.Temperature < 5 {
		score -= 0.2
	}

	if o.Humidity >= 50 && o.Humidity <= 70 {
		score += 0.05
	} else if o.Humidity < 30 || o.Humidity > 90 {
		score -= 0.1
	}

	if o.SoilMoisture >= 50 && o.SoilMoisture <= 80 {
		score += 0.1
	} else if o.SoilMoisture < 30 {
		score -= 0.2
	}

	return clamp01(score), RuleBasedHealthConfidence
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// StatusForScore maps a health score onto its status. Thresholds are
// inclusive lower bounds checked from the highest down.
func StatusForScore(score float64) HealthStatus {
	switch {
	case score >= 0.8:
		return HealthExcellent
	case score >= 0.65:
		return HealthGood
	case score >= 0.5:
		return HealthModerate
	case score >= 0.3:
		return HealthPoor
	default:
		return HealthCritical
	}
}

// StressIndicators lists detected stresses in vigor, thermal, humidity,
// moisture order. The result is never nil.
func StressIndicators(o CropHealthObservation) []string {
	indicators := []string{}

	if o.NDVIIndex < 0.4 {
		indicators = append(indicators, StressLowVigor)
	}

	if o.Temperature > 35 {
		indicators = append(indicators, StressHeat)
	} else if o.Temperature < 10 {
		indicators = append(indicators, StressCold)
	}

	if o.Humidity < 30 {
		indicators = append(indicators, StressLowHumidity)
	} else if o.Humidity > 85 {
		indicators = append(indicators, StressHighHumidity)
	}

	if o.SoilMoisture < 30 {
		indicators = append(indicators, StressWater)
	} else if o.SoilMoisture > 90 {
		indicators = append(indicators, StressWaterlogging)
	}

	return indicators
}

// HealthClassifier classifies crop health, preferring the injected model
type HealthClassifier struct {
	model Regressor
	opts  options
}

// NewHealthClassifier creates a classifier. model may be nil.
func NewHealthClassifier(model Regressor, opts ...Option) *HealthClassifier {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &HealthClassifier{model: model, opts: o}
}

// HasModel reports whether a statistical model was injected
func (c *HealthClassifier) HasModel() bool {
	return c.model != nil
}

// Classify validates the observation and returns status, stresses and advice
func (c *HealthClassifier) Classify(ctx context.Context, o CropHealthObservation) (*HealthResult, error) {
	if err := ValidateCropHealthObservation(o); err != nil {
		return nil, err
	}

	score, confidence, source := c.score(ctx, o)
	status := StatusForScore(score)
	indicators := StressIndicators(o)

	return &HealthResult{
		Crop:             o.Crop,
		HealthStatus:     status,
		HealthScore:      round(score, 3),
		StressIndicators: indicators,
		Recommendations:  HealthRecommendations(status, indicators),
		Confidence:       round(confidence, 3),
		Source:           source,
	}, nil
}

func (c *HealthClassifier) score(ctx context.Context, o CropHealthObservation) (float64, float64, Source) {
	if c.model != nil {
		v, err := predictWith(ctx, c.model, o.Features())
		if err == nil {
			return clamp01(v), ModelHealthConfidence, SourceModel
		}
		c.opts.logger.Warn("health model prediction failed, using rule-based fallback",
			slog.String("crop", o.Crop),
			slog.Any("error", err),
		)
	}
	score, confidence := RuleBasedHealthScore(o)
	return score, confidence, SourceRuleBased
}
