package store

import (
	"strconv"
	"time"

	"github.com/liamcoop/fieldinsights/insights"
)

// User is an account holder. Role is one of farmer, agronomist, researcher.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session is an opaque bearer token bound to a user
type Session struct {
	Token     string    `json:"-"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the session is no longer usable at now
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Farmer is the profile attached to a farmer account. Name and Email are
// read-only copies of the owning user's fields.
type Farmer struct {
	ID            string             `json:"id"`
	UserID        string             `json:"user_id"`
	Name          string             `json:"name,omitempty"`
	Email         string             `json:"email,omitempty"`
	Location      string             `json:"location"`
	Crops         string             `json:"crops"`
	Acres         float64            `json:"acres"`
	SoilData      map[string]float64 `json:"soil_data"`
	WaterLevel    *float64           `json:"water_level"`
	ContactNumber string             `json:"contact_number,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// Soil returns the named soil reading, or def when it is absent
func (f *Farmer) Soil(key string, def float64) float64 {
	if v, ok := f.SoilData[key]; ok {
		return v
	}
	return def
}

// FarmerUpdate carries a partial profile update; nil fields are untouched
type FarmerUpdate struct {
	Location      *string            `json:"location"`
	Crops         *string            `json:"crops"`
	Acres         *float64           `json:"acres"`
	ContactNumber *string            `json:"contact_number"`
	SoilData      map[string]float64 `json:"soil_data"`
	WaterLevel    *float64           `json:"water_level"`
}

// Empty reports whether the update changes nothing
func (u FarmerUpdate) Empty() bool {
	return u.Location == nil && u.Crops == nil && u.Acres == nil &&
		u.ContactNumber == nil && u.SoilData == nil && u.WaterLevel == nil
}

// Apply copies the set fields onto f
func (u FarmerUpdate) Apply(f *Farmer) {
	if u.Location != nil {
		f.Location = *u.Location
	}
	if u.Crops != nil {
		f.Crops = *u.Crops
	}
	if u.Acres != nil {
		f.Acres = *u.Acres
	}
	if u.ContactNumber != nil {
		f.ContactNumber = *u.ContactNumber
	}
	if u.SoilData != nil {
		f.SoilData = u.SoilData
	}
	if u.WaterLevel != nil {
		w := *u.WaterLevel
		f.WaterLevel = &w
	}
}

// Prediction is a stored yield estimate together with its inputs
type Prediction struct {
	ID              string                    `json:"id"`
	FarmerID        string                    `json:"farmer_id"`
	Crop            string                    `json:"crop"`
	Value           float64                   `json:"prediction"`
	Confidence      float64                   `json:"confidence"`
	Source          insights.Source           `json:"source"`
	Input           insights.FieldObservation `json:"input_data"`
	Recommendations []string                  `json:"recommendations"`
	ModelVersion    string                    `json:"model_version"`
	Validated       bool                      `json:"validated_by_agronomist"`
	ValidatedBy     string                    `json:"validated_by,omitempty"`
	Comments        string                    `json:"agronomist_comments,omitempty"`
	CreatedAt       time.Time                 `json:"created_at"`
	ValidatedAt     *time.Time                `json:"validated_at,omitempty"`

	// Farmer is the owning profile, filled on list reads
	Farmer *Farmer `json:"farmer,omitempty"`
}

// Validation is an agronomist's verdict on a prediction
type Validation struct {
	IsValid        bool     `json:"is_valid"`
	Comments       string   `json:"comments"`
	CorrectedValue *float64 `json:"corrected_value"`
	ValidatedBy    string   `json:"-"`
}

// applyValidation marks p validated. A rejected prediction with a
// corrected value takes the new value and the comment records the old one.
func applyValidation(p *Prediction, v Validation, now time.Time) {
	p.Validated = true
	p.ValidatedBy = v.ValidatedBy
	p.Comments = v.Comments
	p.ValidatedAt = &now

	if !v.IsValid && v.CorrectedValue != nil {
		original := p.Value
		p.Value = *v.CorrectedValue
		p.Comments += " (Original: " + strconv.FormatFloat(original, 'f', -1, 64) + ", Corrected by agronomist)"
	}
}

// AlertRecord is an alert persisted for a farmer
type AlertRecord struct {
	ID              string             `json:"id"`
	FarmerID        string             `json:"farmer_id"`
	Type            insights.AlertType `json:"alert_type"`
	Severity        insights.Severity  `json:"severity"`
	Title           string             `json:"title"`
	Message         string             `json:"message"`
	Recommendations []string           `json:"recommendations"`
	Priority        int                `json:"priority"`
	IsRead          bool               `json:"is_read"`
	IsResolved      bool               `json:"is_resolved"`
	CreatedAt       time.Time          `json:"created_at"`
	ResolvedAt      *time.Time         `json:"resolved_at,omitempty"`

	// FarmerLocation is filled on reads for export
	FarmerLocation string `json:"farmer_location,omitempty"`
}

// NewAlertRecord converts a computed alert into a record for farmerID
func NewAlertRecord(farmerID string, a insights.Alert) *AlertRecord {
	return &AlertRecord{
		FarmerID:        farmerID,
		Type:            a.Type,
		Severity:        a.Severity,
		Title:           a.Title,
		Message:         a.Message,
		Recommendations: a.Recommendations,
		Priority:        a.Priority,
	}
}

// ResearchData is a researcher-authored dataset entry
type ResearchData struct {
	ID                string         `json:"id"`
	ResearcherID      string         `json:"researcher_id,omitempty"`
	Title             string         `json:"title"`
	Description       string         `json:"description,omitempty"`
	Region            string         `json:"region,omitempty"`
	CropType          string         `json:"crop_type,omitempty"`
	Season            string         `json:"season,omitempty"`
	AggregatedResults map[string]any `json:"aggregated_results,omitempty"`
	NDVIScores        map[string]any `json:"ndvi_scores,omitempty"`
	YieldPredictions  map[string]any `json:"yield_predictions,omitempty"`
	DataSource        string         `json:"data_source"`
	CreatedAt         time.Time      `json:"created_at"`
}
