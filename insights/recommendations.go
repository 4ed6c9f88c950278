package insights

// YieldRecommendations derives advisory lines from the observation and the
// unrounded yield prediction. Every check is independent and the output
// order is fixed.
func YieldRecommendations(o FieldObservation, prediction float64) []string {
	recs := []string{}

	if o.SoilPH < 6.0 {
		recs = append(recs, "Consider liming to increase soil pH for better nutrient uptake")
	}
	if o.SoilPH > 8.0 {
		recs = append(recs, "Consider adding organic matter to lower soil pH")
	}
	if o.SoilMoisture < 40 {
		recs = append(recs, "Increase irrigation frequency to maintain optimal soil moisture")
	}
	if o.SoilNitrogen < 50 {
		recs = append(recs, "Apply nitrogen fertilizer to boost crop growth")
	}
	if o.SoilPhosphorus < 20 {
		recs = append(recs, "Consider phosphorus supplementation for root development")
	}
	if o.Temperature > 30 {
		recs = append(recs, "Monitor for heat stress and consider shade protection")
	}
	if prediction < 40 {
		recs = append(recs, "Current conditions may limit yield. Consider soil amendments and improved irrigation")
	}
	if prediction > 80 {
		recs = append(recs, "Excellent growing conditions. Maintain current management practices")
	}

	return recs
}

// stressAdvice pairs each stress indicator with its companion advice.
// The slice order is the order the advice is emitted in.
var stressAdvice = []struct {
	indicator string
	advice    []string
}{
	{StressHeat, []string{"Increase irrigation frequency and consider shade protection"}},
	{StressWater, []string{"Implement immediate irrigation schedule"}},
	{StressLowVigor, []string{
		"Check for nutrient deficiencies and pest issues",
		"Consider soil testing and fertilization",
	}},
	{StressHighHumidity, []string{"Improve air circulation and consider fungicide application"}},
}

// HealthRecommendations derives advisory lines from the health status and
// the detected stress indicators.
func HealthRecommendations(status HealthStatus, indicators []string) []string {
	recs := []string{}

	if status == HealthPoor || status == HealthCritical {
		recs = append(recs,
			"Immediate intervention required - consult agricultural expert",
			"Conduct thorough field inspection",
		)
	}

	present := make(map[string]bool, len(indicators))
	for _, ind := range indicators {
		present[ind] = true
	}
	for _, sa := range stressAdvice {
		if present[sa.indicator] {
			recs = append(recs, sa.advice...)
		}
	}

	if status == HealthExcellent {
		recs = append(recs,
			"Maintain current management practices",
			"Continue regular monitoring",
		)
	}

	return recs
}
