package insights

import (
	"context"
	"log/slog"
)

const baseYield = 50.0

// YieldFactors are the multiplicative terms of the rule-based estimate
type YieldFactors struct {
	Soil     float64
	Temp     float64
	Rainfall float64
	Nutrient float64
}

// Product multiplies the factors together with the base yield and acreage
func (f YieldFactors) Product(acres float64) float64 {
	return baseYield * f.Soil * f.Temp * f.Rainfall * f.Nutrient * acres
}

// RuleBasedYieldFactors computes the deterministic factors for an observation.
// pH and moisture adjustments accumulate on the same soil factor.
func RuleBasedYieldFactors(o FieldObservation) YieldFactors {
	soil := 1.0
	if o.SoilPH >= 6.0 && o.SoilPH <= 7.5 {
		soil += 0.1
	} else if o.SoilPH < 5.5 || o.SoilPH > 8.0 {
		soil -= 0.2
	}
	if o.SoilMoisture >= 60 && o.SoilMoisture <= 80 {
		soil += 0.15
	} else if o.SoilMoisture < 40 {
		soil -= 0.3
	}

	temp := 1.0
	if o.Temperature >= 20 && o.Temperature <= 30 {
		temp += 0.1
	} else if o.Temperature > 35 || o.Temperature < 10 {
		temp -= 0.2
	}

	rainfall := 1.0
	if o.Rainfall >= 500 && o.Rainfall <= 1000 {
		rainfall += 0.1
	} else if o.Rainfall < 300 {
		rainfall -= 0.2
	}

	nutrient := 1.0
	if o.SoilNitrogen > 50 {
		nutrient += 0.05
	}
	if o.SoilPhosphorus > 20 {
		nutrient += 0.05
	}
	if o.SoilPotassium > 150 {
		nutrient += 0.05
	}

	return YieldFactors{Soil: soil, Temp: temp, Rainfall: rainfall, Nutrient: nutrient}
}

// RuleBasedYield returns the unrounded rule-based prediction and its confidence
func RuleBasedYield(o FieldObservation) (float64, float64) {
	return RuleBasedYieldFactors(o).Product(o.Acres), RuleBasedYieldConfidence
}

// YieldEstimator predicts crop yield from a field observation, preferring
// the injected model and falling back to the rule-based strategy.
type YieldEstimator struct {
	model Regressor
	opts  options
}

// NewYieldEstimator creates an estimator. model may be nil.
func NewYieldEstimator(model Regressor, opts ...Option) *YieldEstimator {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &YieldEstimator{model: model, opts: o}
}

// HasModel reports whether a statistical model was injected
func (e *YieldEstimator) HasModel() bool {
	return e.model != nil
}

// Estimate validates the observation and produces a yield prediction with
// recommendations. Only validation failures are returned as errors.
func (e *YieldEstimator) Estimate(ctx context.Context, o FieldObservation) (*YieldResult, error) {
	if err := ValidateFieldObservation(o); err != nil {
		return nil, err
	}

	prediction, confidence, source := e.predict(ctx, o)

	return &YieldResult{
		Crop:            o.Crop,
		PredictedYield:  round(prediction, 2),
		Confidence:      round(confidence, 3),
		Recommendations: YieldRecommendations(o, prediction),
		Source:          source,
		ProducedAt:      e.opts.now().UTC(),
	}, nil
}

func (e *YieldEstimator) predict(ctx context.Context, o FieldObservation) (float64, float64, Source) {
	if e.model != nil {
		v, err := predictWith(ctx, e.model, o.Features())
		if err == nil {
			return v, ModelYieldConfidence, SourceModel
		}
		e.opts.logger.Warn("yield model prediction failed, using rule-based fallback",
			slog.String("crop", o.Crop),
			slog.Any("error", err),
		)
	}
	prediction, confidence := RuleBasedYield(o)
	return prediction, confidence, SourceRuleBased
}
