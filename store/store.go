// Package store persists accounts, farmer profiles, predictions, alerts and
// research datasets. InMemoryStore backs tests and single-process runs;
// PostgresStore backs deployments.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a lookup matches nothing
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write violates a uniqueness constraint
	ErrConflict = errors.New("conflict")
)

// DefaultListLimit caps list queries that do not set their own limit
const DefaultListLimit = 50

// FarmerFilter narrows ListFarmers. LocationContains matches
// case-insensitively.
type FarmerFilter struct {
	LocationContains string
}

// PredictionFilter narrows ListPredictions. Zero values do not filter.
// Results are newest first.
type PredictionFilter struct {
	FarmerID         string
	Crop             string
	Since            time.Time
	Validated        *bool
	LocationContains string
	Limit            int
}

// AlertFilter narrows ListAlerts. Results are newest first.
type AlertFilter struct {
	FarmerID       string
	Since          time.Time
	UnresolvedOnly bool
	Limit          int
}

// ResearchFilter narrows ListResearchData. Results are newest first.
type ResearchFilter struct {
	Region   string
	CropType string
	Limit    int
}

// Store is the persistence boundary for the HTTP layer
type Store interface {
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	CreateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, token string) (*Session, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)

	CreateFarmer(ctx context.Context, f *Farmer) error
	GetFarmer(ctx context.Context, id string) (*Farmer, error)
	GetFarmerByUser(ctx context.Context, userID string) (*Farmer, error)
	UpdateFarmer(ctx context.Context, id string, u FarmerUpdate) (*Farmer, error)
	ListFarmers(ctx context.Context, f FarmerFilter) ([]*Farmer, error)

	AddPrediction(ctx context.Context, p *Prediction) error
	GetPrediction(ctx context.Context, id string) (*Prediction, error)
	ListPredictions(ctx context.Context, f PredictionFilter) ([]*Prediction, error)
	ValidatePrediction(ctx context.Context, id string, v Validation) (*Prediction, error)

	AddAlert(ctx context.Context, a *AlertRecord) error
	ListAlerts(ctx context.Context, f AlertFilter) ([]*AlertRecord, error)
	MarkAlertRead(ctx context.Context, farmerID, alertID string) error

	AddResearchData(ctx context.Context, r *ResearchData) error
	ListResearchData(ctx context.Context, f ResearchFilter) ([]*ResearchData, error)
}

func limitOr(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}
