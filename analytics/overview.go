// Package analytics computes the agronomist and researcher dashboards from
// stored predictions, alerts and farmer profiles. Every function is pure:
// callers load the rows and this package only aggregates them.
package analytics

import (
	"gonum.org/v1/gonum/stat"

	"github.com/liamcoop/fieldinsights/store"
)

// RecentWindow is how many of the newest predictions feed the overview
const RecentWindow = 100

// CropStats aggregates predictions for one crop
type CropStats struct {
	Count         int     `json:"count"`
	TotalYield    float64 `json:"total_yield"`
	AvgYield      float64 `json:"avg_yield"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// OverviewSummary holds the dashboard counters
type OverviewSummary struct {
	TotalFarmers         int     `json:"total_farmers"`
	TotalPredictions     int     `json:"total_predictions"`
	ValidatedPredictions int     `json:"validated_predictions"`
	PendingValidations   int     `json:"pending_validations"`
	ActiveAlerts         int     `json:"active_alerts"`
	ValidationRate       float64 `json:"validation_rate"`
}

// RecentActivity describes the recent prediction window
type RecentActivity struct {
	AvgYieldPrediction float64 `json:"avg_yield_prediction"`
	MostPredictedCrop  *string `json:"most_predicted_crop"`
}

// Overview is the agronomist dashboard
type Overview struct {
	Summary        OverviewSummary       `json:"summary"`
	CropStatistics map[string]*CropStats `json:"crop_statistics"`
	RecentActivity RecentActivity        `json:"recent_activity"`
}

// OverviewCounts are the totals counted by the caller
type OverviewCounts struct {
	Farmers              int
	Predictions          int
	ValidatedPredictions int
	ActiveAlerts         int
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// BuildOverview combines the counters with statistics over recent, which
// should be the newest RecentWindow predictions, newest first.
func BuildOverview(counts OverviewCounts, recent []*store.Prediction) Overview {
	o := Overview{
		Summary: OverviewSummary{
			TotalFarmers:         counts.Farmers,
			TotalPredictions:     counts.Predictions,
			ValidatedPredictions: counts.ValidatedPredictions,
			PendingValidations:   counts.Predictions - counts.ValidatedPredictions,
			ActiveAlerts:         counts.ActiveAlerts,
		},
		CropStatistics: make(map[string]*CropStats),
	}
	if counts.Predictions > 0 {
		o.Summary.ValidationRate = float64(counts.ValidatedPredictions) / float64(counts.Predictions) * 100
	}

	var (
		order       []string
		yields      = make([]float64, 0, len(recent))
		confidences = make(map[string][]float64)
	)
	for _, p := range recent {
		cs, ok := o.CropStatistics[p.Crop]
		if !ok {
			cs = &CropStats{}
			o.CropStatistics[p.Crop] = cs
			order = append(order, p.Crop)
		}
		cs.Count++
		cs.TotalYield += p.Value
		confidences[p.Crop] = append(confidences[p.Crop], p.Confidence)
		yields = append(yields, p.Value)
	}
	for crop, cs := range o.CropStatistics {
		cs.AvgYield = cs.TotalYield / float64(cs.Count)
		cs.AvgConfidence = mean(confidences[crop])
	}

	o.RecentActivity.AvgYieldPrediction = mean(yields)

	// Ties go to the crop seen first, i.e. the most recently predicted
	best := 0
	for _, crop := range order {
		if n := o.CropStatistics[crop].Count; n > best {
			best = n
			top := crop
			o.RecentActivity.MostPredictedCrop = &top
		}
	}
	return o
}
