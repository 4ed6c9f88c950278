package analytics

import (
	"testing"

	"github.com/liamcoop/fieldinsights/insights"
	"github.com/liamcoop/fieldinsights/store"
)

func categories(a Advice) []string {
	out := make([]string, len(a.Recommendations))
	for i, r := range a.Recommendations {
		out[i] = r.Category
	}
	return out
}

func TestFarmerAdvice(t *testing.T) {
	lowConfidence := []*store.Prediction{
		pred("rice", 40, 0.6, base, ""),
		pred("rice", 42, 0.65, base, ""),
	}
	goodConfidence := []*store.Prediction{pred("rice", 40, 0.85, base, "")}
	irrigation := []*store.AlertRecord{
		alert(insights.AlertIrrigation, insights.SeverityHigh),
		alert(insights.AlertIrrigation, insights.SeverityMedium),
		alert(insights.AlertIrrigation, insights.SeverityHigh),
	}

	testCases := []struct {
		name   string
		soil   map[string]float64
		preds  []*store.Prediction
		alerts []*store.AlertRecord
		want   []string
	}{
		{"no data", nil, nil, nil, []string{}},
		{"acidic soil without organic matter reading", map[string]float64{"ph": 5.5}, nil, nil,
			[]string{"Soil Management", "Soil Health"}},
		{"healthy soil", map[string]float64{"ph": 6.8, "organic_matter": 4}, nil, nil, []string{}},
		{"ph defaults to neutral", map[string]float64{"organic_matter": 5}, nil, nil, []string{}},
		{"low confidence", nil, lowConfidence, nil, []string{"Data Quality"}},
		{"good confidence", nil, goodConfidence, nil, []string{}},
		{"frequent irrigation alerts", nil, nil, irrigation, []string{"Water Management"}},
		{"two irrigation alerts", nil, nil, irrigation[:2], []string{}},
		{"everything", map[string]float64{"ph": 5, "organic_matter": 1}, lowConfidence, irrigation,
			[]string{"Soil Management", "Soil Health", "Data Quality", "Water Management"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := &store.Farmer{ID: "farmer-1", SoilData: tc.soil}
			adv := FarmerAdvice(f, tc.preds, tc.alerts)
			got := categories(adv)
			if len(got) != len(tc.want) {
				t.Fatalf("categories = %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("categories = %v, want %v", got, tc.want)
					break
				}
			}
			if adv.FarmerID != "farmer-1" {
				t.Errorf("FarmerID = %q", adv.FarmerID)
			}
		})
	}
}

func TestFarmerAdviceSummaryUsesNewestWindow(t *testing.T) {
	preds := make([]*store.Prediction, 0, 12)
	for i := 0; i < AdviceWindow; i++ {
		preds = append(preds, pred("rice", 40, 0.75, base, ""))
	}
	// older predictions beyond the window would drag the average down
	preds = append(preds, pred("rice", 40, 0.1, base, ""), pred("rice", 40, 0.1, base, ""))

	adv := FarmerAdvice(&store.Farmer{ID: "f"}, preds, []*store.AlertRecord{alert(insights.AlertPest, insights.SeverityLow)})
	if adv.DataSummary.RecentPredictions != AdviceWindow {
		t.Errorf("recent predictions = %d, want %d", adv.DataSummary.RecentPredictions, AdviceWindow)
	}
	if adv.DataSummary.AvgPredictionConfidence != 0.75 {
		t.Errorf("avg confidence = %v, want 0.75", adv.DataSummary.AvgPredictionConfidence)
	}
	if adv.DataSummary.ActiveAlerts != 1 {
		t.Errorf("active alerts = %d, want 1", adv.DataSummary.ActiveAlerts)
	}
	if len(adv.Recommendations) != 0 {
		t.Errorf("unexpected recommendations %v", categories(adv))
	}
}
