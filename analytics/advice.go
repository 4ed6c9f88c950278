package analytics

import (
	"github.com/liamcoop/fieldinsights/insights"
	"github.com/liamcoop/fieldinsights/store"
)

// AdviceWindow is how many of a farmer's newest predictions feed the advice
const AdviceWindow = 10

// Thresholds for per-farmer advice
const (
	acidicSoilPH          = 6.0
	lowOrganicMatter      = 3.0
	lowAverageConfidence  = 0.7
	frequentIrrigationMin = 3
)

// AdviceItem is one agronomist recommendation for a farmer
type AdviceItem struct {
	Category        string `json:"category"`
	Priority        string `json:"priority"`
	Recommendation  string `json:"recommendation"`
	EstimatedImpact string `json:"estimated_impact"`
}

// AdviceSummary describes the data the advice was based on
type AdviceSummary struct {
	RecentPredictions       int     `json:"recent_predictions"`
	ActiveAlerts            int     `json:"active_alerts"`
	AvgPredictionConfidence float64 `json:"avg_prediction_confidence"`
}

// Advice is the per-farmer recommendation report
type Advice struct {
	FarmerID        string        `json:"farmer_id"`
	Recommendations []AdviceItem  `json:"recommendations"`
	DataSummary     AdviceSummary `json:"data_summary"`
}

// FarmerAdvice derives recommendations from the farmer's soil readings, the
// newest AdviceWindow predictions and the unresolved alerts.
func FarmerAdvice(f *store.Farmer, recent []*store.Prediction, unresolved []*store.AlertRecord) Advice {
	adv := Advice{FarmerID: f.ID, Recommendations: []AdviceItem{}}

	if len(f.SoilData) > 0 {
		if f.Soil("ph", 7) < acidicSoilPH {
			adv.Recommendations = append(adv.Recommendations, AdviceItem{
				Category:        "Soil Management",
				Priority:        "High",
				Recommendation:  "Soil pH is acidic. Consider liming to improve nutrient availability.",
				EstimatedImpact: "15-20% yield improvement",
			})
		}
		if f.Soil("organic_matter", 0) < lowOrganicMatter {
			adv.Recommendations = append(adv.Recommendations, AdviceItem{
				Category:        "Soil Health",
				Priority:        "Medium",
				Recommendation:  "Low organic matter detected. Incorporate compost or cover crops.",
				EstimatedImpact: "10-15% yield improvement",
			})
		}
	}

	if len(recent) > AdviceWindow {
		recent = recent[:AdviceWindow]
	}
	confidences := make([]float64, len(recent))
	for i, p := range recent {
		confidences[i] = p.Confidence
	}
	avgConfidence := mean(confidences)
	if len(recent) > 0 && avgConfidence < lowAverageConfidence {
		adv.Recommendations = append(adv.Recommendations, AdviceItem{
			Category:        "Data Quality",
			Priority:        "Medium",
			Recommendation:  "Consider installing more sensors for better prediction accuracy.",
			EstimatedImpact: "Improved decision making",
		})
	}

	irrigation := 0
	for _, a := range unresolved {
		if a.Type == insights.AlertIrrigation {
			irrigation++
		}
	}
	if irrigation >= frequentIrrigationMin {
		adv.Recommendations = append(adv.Recommendations, AdviceItem{
			Category:        "Water Management",
			Priority:        "High",
			Recommendation:  "Frequent irrigation alerts suggest upgrading to smart irrigation system.",
			EstimatedImpact: "20-30% water savings",
		})
	}

	adv.DataSummary = AdviceSummary{
		RecentPredictions:       len(recent),
		ActiveAlerts:            len(unresolved),
		AvgPredictionConfidence: avgConfidence,
	}
	return adv
}
