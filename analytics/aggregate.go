package analytics

import (
	"sort"

	"github.com/liamcoop/fieldinsights/store"
)

// TopCropsLimit is how many crops the aggregate ranks
const TopCropsLimit = 5

// CropPerformance ranks one crop by its average predicted yield
type CropPerformance struct {
	Crop            string  `json:"crop"`
	AvgYield        float64 `json:"avg_yield"`
	AvgConfidence   float64 `json:"avg_confidence"`
	PredictionCount int     `json:"prediction_count"`
}

// RegionStats aggregates predictions for one farmer location
type RegionStats struct {
	TotalYield float64 `json:"total_yield"`
	Count      int     `json:"count"`
	AvgYield   float64 `json:"avg_yield"`
}

// SeasonStats is a seasonal projection of the average yield
type SeasonStats struct {
	AvgYield        float64 `json:"avg_yield"`
	PredictionCount int     `json:"prediction_count"`
}

// AlertStats counts alerts of one type
type AlertStats struct {
	Total      int            `json:"total"`
	BySeverity map[string]int `json:"by_severity"`
}

// Aggregate is the researcher insight report
type Aggregate struct {
	TotalFarmers        int                     `json:"total_farmers"`
	TotalPredictions    int                     `json:"total_predictions"`
	AverageYield        float64                 `json:"average_yield"`
	TopPerformingCrops  []CropPerformance       `json:"top_performing_crops"`
	RegionalPerformance map[string]*RegionStats `json:"regional_performance"`
	SeasonalTrends      map[string]SeasonStats  `json:"seasonal_trends"`
	AlertStatistics     map[string]*AlertStats  `json:"alert_statistics"`
}

// season scales the window average into a per-season projection. The
// divisor spreads the prediction count over the season.
type season struct {
	name    string
	factor  float64
	divisor int
}

var seasons = []season{
	{"spring", 0.9, 4},
	{"summer", 1.1, 3},
	{"fall", 1.2, 3},
	{"winter", 0.8, 6},
}

// BuildAggregate summarises predictions and alerts from the research window.
// Predictions should carry their Farmer for regional grouping.
func BuildAggregate(totalFarmers int, preds []*store.Prediction, alerts []*store.AlertRecord) Aggregate {
	agg := Aggregate{
		TotalFarmers:        totalFarmers,
		TotalPredictions:    len(preds),
		TopPerformingCrops:  []CropPerformance{},
		RegionalPerformance: make(map[string]*RegionStats),
		SeasonalTrends:      make(map[string]SeasonStats, len(seasons)),
		AlertStatistics:     make(map[string]*AlertStats),
	}

	yields := make([]float64, 0, len(preds))
	type cropAcc struct {
		yields      []float64
		confidences []float64
	}
	crops := make(map[string]*cropAcc)

	for _, p := range preds {
		yields = append(yields, p.Value)

		acc, ok := crops[p.Crop]
		if !ok {
			acc = &cropAcc{}
			crops[p.Crop] = acc
		}
		acc.yields = append(acc.yields, p.Value)
		acc.confidences = append(acc.confidences, p.Confidence)

		if p.Farmer != nil && p.Farmer.Location != "" {
			rs, ok := agg.RegionalPerformance[p.Farmer.Location]
			if !ok {
				rs = &RegionStats{}
				agg.RegionalPerformance[p.Farmer.Location] = rs
			}
			rs.TotalYield += p.Value
			rs.Count++
		}
	}
	agg.AverageYield = mean(yields)

	for crop, acc := range crops {
		agg.TopPerformingCrops = append(agg.TopPerformingCrops, CropPerformance{
			Crop:            crop,
			AvgYield:        mean(acc.yields),
			AvgConfidence:   mean(acc.confidences),
			PredictionCount: len(acc.yields),
		})
	}
	sort.Slice(agg.TopPerformingCrops, func(i, j int) bool {
		a, b := agg.TopPerformingCrops[i], agg.TopPerformingCrops[j]
		if a.AvgYield != b.AvgYield {
			return a.AvgYield > b.AvgYield
		}
		return a.Crop < b.Crop
	})
	if len(agg.TopPerformingCrops) > TopCropsLimit {
		agg.TopPerformingCrops = agg.TopPerformingCrops[:TopCropsLimit]
	}

	for _, rs := range agg.RegionalPerformance {
		rs.AvgYield = rs.TotalYield / float64(rs.Count)
	}

	for _, s := range seasons {
		agg.SeasonalTrends[s.name] = SeasonStats{
			AvgYield:        agg.AverageYield * s.factor,
			PredictionCount: len(preds) / s.divisor,
		}
	}

	for _, a := range alerts {
		st, ok := agg.AlertStatistics[string(a.Type)]
		if !ok {
			st = &AlertStats{BySeverity: make(map[string]int)}
			agg.AlertStatistics[string(a.Type)] = st
		}
		st.Total++
		st.BySeverity[string(a.Severity)]++
	}

	return agg
}
