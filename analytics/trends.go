package analytics

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/liamcoop/fieldinsights/store"
)

// TrendsLimit caps how many of the newest predictions a trend report reads
const TrendsLimit = 1000

// Period is the bucket width of a trend report
type Period string

const (
	Daily   Period = "daily"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
	Yearly  Period = "yearly"
)

// ParsePeriod accepts daily, weekly, monthly or yearly; empty means monthly
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case "":
		return Monthly, nil
	case Daily, Weekly, Monthly, Yearly:
		return p, nil
	default:
		return "", fmt.Errorf("invalid time period %q: use daily, weekly, monthly or yearly", s)
	}
}

// Key returns the bucket label for t. Labels sort chronologically.
func (p Period) Key(t time.Time) string {
	t = t.UTC()
	switch p {
	case Daily:
		return t.Format("2006-01-02")
	case Weekly:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case Monthly:
		return t.Format("2006-01")
	default:
		return strconv.Itoa(t.Year())
	}
}

// CropTrend aggregates one crop inside a bucket
type CropTrend struct {
	Count      int     `json:"count"`
	TotalYield float64 `json:"total_yield"`
	AvgYield   float64 `json:"avg_yield"`
}

// TrendBucket aggregates the predictions in one period
type TrendBucket struct {
	Period           string                `json:"period"`
	TotalPredictions int                   `json:"total_predictions"`
	AvgYield         float64               `json:"avg_yield"`
	AvgConfidence    float64               `json:"avg_confidence"`
	Crops            map[string]*CropTrend `json:"crops"`
}

// TrendSummary averages the bucket averages
type TrendSummary struct {
	TotalPeriods         int     `json:"total_periods"`
	OverallAvgYield      float64 `json:"overall_avg_yield"`
	OverallAvgConfidence float64 `json:"overall_avg_confidence"`
}

// Trends is a time-bucketed prediction report
type Trends struct {
	TimePeriod Period        `json:"time_period"`
	CropType   *string       `json:"crop_type"`
	Region     *string       `json:"region"`
	Trends     []TrendBucket `json:"trends"`
	Summary    TrendSummary  `json:"summary"`
}

// BuildTrends buckets preds by period
func BuildTrends(period Period, preds []*store.Prediction) Trends {
	type acc struct {
		bucket      TrendBucket
		yields      []float64
		confidences []float64
	}
	buckets := make(map[string]*acc)

	for _, p := range preds {
		key := period.Key(p.CreatedAt)
		b, ok := buckets[key]
		if !ok {
			b = &acc{bucket: TrendBucket{Period: key, Crops: make(map[string]*CropTrend)}}
			buckets[key] = b
		}
		b.bucket.TotalPredictions++
		b.yields = append(b.yields, p.Value)
		b.confidences = append(b.confidences, p.Confidence)

		ct, ok := b.bucket.Crops[p.Crop]
		if !ok {
			ct = &CropTrend{}
			b.bucket.Crops[p.Crop] = ct
		}
		ct.Count++
		ct.TotalYield += p.Value
	}

	t := Trends{TimePeriod: period, Trends: make([]TrendBucket, 0, len(buckets))}
	var avgYields, avgConfidences []float64
	for _, b := range buckets {
		b.bucket.AvgYield = mean(b.yields)
		b.bucket.AvgConfidence = mean(b.confidences)
		for _, ct := range b.bucket.Crops {
			ct.AvgYield = ct.TotalYield / float64(ct.Count)
		}
		t.Trends = append(t.Trends, b.bucket)
		avgYields = append(avgYields, b.bucket.AvgYield)
		avgConfidences = append(avgConfidences, b.bucket.AvgConfidence)
	}
	sort.Slice(t.Trends, func(i, j int) bool { return t.Trends[i].Period < t.Trends[j].Period })

	t.Summary = TrendSummary{
		TotalPeriods:         len(t.Trends),
		OverallAvgYield:      mean(avgYields),
		OverallAvgConfidence: mean(avgConfidences),
	}
	return t
}
