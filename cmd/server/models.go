package main

import (
	"time"

	"github.com/liamcoop/fieldinsights/alertrules"
	"github.com/liamcoop/fieldinsights/insights"
	"github.com/liamcoop/fieldinsights/regression"
	"github.com/liamcoop/fieldinsights/store"
)

// API request and response models

// SuccessResponse wraps the outcome of a write
type SuccessResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message" example:"Profile updated successfully"`
	Data    any    `json:"data,omitempty"`
} // @name SuccessResponse

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error" example:"invalid request body"`
	Details string `json:"details,omitempty"`
} // @name ErrorResponse

// HealthResponse represents the health check response
type HealthResponse struct {
	Status       string `json:"status" example:"healthy"`
	Storage      string `json:"storage" example:"postgres"`
	ModelsLoaded int    `json:"modelsLoaded" example:"1"`
	Error        string `json:"error,omitempty"`
} // @name HealthResponse

// LoginRequest carries credentials
type LoginRequest struct {
	Email    string `json:"email" example:"grower@example.com" binding:"required"`
	Password string `json:"password" binding:"required"`
} // @name LoginRequest

// UserSummary is the account part of a login response
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name" example:"Asha Patel"`
	Email string `json:"email" example:"grower@example.com"`
	Role  string `json:"role" example:"farmer"`
} // @name UserSummary

// LoginResponse is an issued token plus the account it belongs to
type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type" example:"bearer"`
	ExpiresIn   int         `json:"expires_in" example:"1800"`
	User        UserSummary `json:"user"`
} // @name LoginResponse

// AlertsResponse is the result of synthesizing alerts for a conditions snapshot
type AlertsResponse struct {
	FarmerID           string              `json:"farmer_id,omitempty"`
	GeneratedAt        time.Time           `json:"generated_at"`
	Conditions         insights.Conditions `json:"conditions"`
	Alerts             []insights.Alert    `json:"alerts"`
	TotalAlerts        int                 `json:"total_alerts"`
	HighPriorityAlerts int                 `json:"high_priority_alerts"`
} // @name AlertsResponse

// ModelInfoResponse describes the configured estimators
type ModelInfoResponse struct {
	LoadedModels     []string                   `json:"loaded_models"`
	ModelDetails     map[string]regression.Info `json:"model_details"`
	CustomAlertRules int                        `json:"custom_alert_rules"`
} // @name ModelInfoResponse

// FieldDataResponse is returned after a field submission is stored
type FieldDataResponse struct {
	Prediction      *store.Prediction    `json:"prediction"`
	AlertsGenerated []*store.AlertRecord `json:"alerts_generated"`
} // @name FieldDataResponse

// FarmerStatistics summarises a farmer's history
type FarmerStatistics struct {
	TotalPredictions     int `json:"total_predictions"`
	ValidatedPredictions int `json:"validated_predictions"`
	ActiveAlerts         int `json:"active_alerts"`
} // @name FarmerStatistics

// FarmerDetailResponse is a farmer with their predictions and alerts
type FarmerDetailResponse struct {
	Farmer      *store.Farmer        `json:"farmer"`
	Predictions []*store.Prediction  `json:"predictions"`
	Alerts      []*store.AlertRecord `json:"alerts"`
	Statistics  FarmerStatistics     `json:"statistics"`
} // @name FarmerDetailResponse

// ValidatePredictionRequest is an agronomist's verdict
type ValidatePredictionRequest struct {
	PredictionID   string   `json:"prediction_id" binding:"required"`
	IsValid        bool     `json:"is_valid"`
	Comments       string   `json:"comments"`
	CorrectedValue *float64 `json:"corrected_value,omitempty" example:"48.5"`
} // @name ValidatePredictionRequest

// AlertRuleRequest creates or updates a custom alert rule. On update, nil
// fields keep their stored values.
type AlertRuleRequest struct {
	Name            *string             `json:"name" example:"Frost risk"`
	Expression      *string             `json:"expression" example:"conditions.temperature < 2.0"`
	AlertType       *insights.AlertType `json:"alert_type" example:"weather"`
	Severity        *insights.Severity  `json:"severity" example:"high"`
	Title           *string             `json:"title" example:"Frost Warning"`
	Message         *string             `json:"message"`
	Recommendations []string            `json:"recommendations"`
	Priority        *int                `json:"priority" example:"2"`
	Active          *bool               `json:"active,omitempty" example:"true"`
} // @name AlertRuleRequest

// apply copies the set fields onto r
func (req AlertRuleRequest) apply(r *alertrules.Rule) {
	if req.Name != nil {
		r.Name = *req.Name
	}
	if req.Expression != nil {
		r.Expression = *req.Expression
	}
	if req.AlertType != nil {
		r.AlertType = *req.AlertType
	}
	if req.Severity != nil {
		r.Severity = *req.Severity
	}
	if req.Title != nil {
		r.Title = *req.Title
	}
	if req.Message != nil {
		r.Message = *req.Message
	}
	if req.Recommendations != nil {
		r.Recommendations = req.Recommendations
	}
	if req.Priority != nil {
		r.Priority = *req.Priority
	}
	if req.Active != nil {
		r.Active = *req.Active
	}
}

// RuleEvaluation is one custom rule's outcome for a conditions snapshot
type RuleEvaluation struct {
	RuleID   string  `json:"rule_id"`
	RuleName string  `json:"rule_name"`
	Matched  bool    `json:"matched"`
	Error    *string `json:"error,omitempty"`
} // @name RuleEvaluation

// ResearchDataRequest creates a research entry
type ResearchDataRequest struct {
	Title             string         `json:"title" binding:"required"`
	Description       string         `json:"description"`
	Region            string         `json:"region" example:"Punjab"`
	CropType          string         `json:"crop_type" example:"wheat"`
	Season            string         `json:"season" example:"rabi"`
	AggregatedResults map[string]any `json:"aggregated_results"`
	NDVIScores        map[string]any `json:"ndvi_scores"`
	YieldPredictions  map[string]any `json:"yield_predictions"`
} // @name ResearchDataRequest
