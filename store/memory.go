package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a map-backed Store. Values are copied on the way in and
// out so callers never share state with the store.
type InMemoryStore struct {
	users       map[string]*User
	sessions    map[string]*Session
	farmers     map[string]*Farmer
	predictions map[string]*Prediction
	alerts      map[string]*AlertRecord
	research    map[string]*ResearchData
	mu          sync.RWMutex

	now func() time.Time
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore creates an empty store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users:       make(map[string]*User),
		sessions:    make(map[string]*Session),
		farmers:     make(map[string]*Farmer),
		predictions: make(map[string]*Prediction),
		alerts:      make(map[string]*AlertRecord),
		research:    make(map[string]*ResearchData),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func assignID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func stamp(t *time.Time, now time.Time) {
	if t.IsZero() {
		*t = now
	}
}

func copyUser(u *User) *User {
	c := *u
	return &c
}

func copyFarmer(f *Farmer) *Farmer {
	c := *f
	if f.SoilData != nil {
		c.SoilData = make(map[string]float64, len(f.SoilData))
		for k, v := range f.SoilData {
			c.SoilData[k] = v
		}
	}
	if f.WaterLevel != nil {
		w := *f.WaterLevel
		c.WaterLevel = &w
	}
	return &c
}

func copyPrediction(p *Prediction) *Prediction {
	c := *p
	c.Recommendations = append([]string(nil), p.Recommendations...)
	if p.ValidatedAt != nil {
		t := *p.ValidatedAt
		c.ValidatedAt = &t
	}
	c.Farmer = nil
	return &c
}

func copyAlert(a *AlertRecord) *AlertRecord {
	c := *a
	c.Recommendations = append([]string(nil), a.Recommendations...)
	if a.ResolvedAt != nil {
		t := *a.ResolvedAt
		c.ResolvedAt = &t
	}
	return &c
}

func copyResearch(r *ResearchData) *ResearchData {
	c := *r
	return &c
}

// withUser fills the read-only identity fields of f from its owning user
func (s *InMemoryStore) withUser(f *Farmer) *Farmer {
	c := copyFarmer(f)
	if u, ok := s.users[f.UserID]; ok {
		c.Name = u.Name
		c.Email = u.Email
	}
	return c
}

func (s *InMemoryStore) CreateUser(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(u.Email)
	for _, existing := range s.users {
		if strings.ToLower(existing.Email) == email {
			return fmt.Errorf("email %s: %w", u.Email, ErrConflict)
		}
	}
	assignID(&u.ID)
	if _, exists := s.users[u.ID]; exists {
		return fmt.Errorf("user %s: %w", u.ID, ErrConflict)
	}
	stamp(&u.CreatedAt, s.now())

	s.users[u.ID] = copyUser(u)
	return nil
}

func (s *InMemoryStore) GetUser(_ context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return copyUser(u), nil
}

func (s *InMemoryStore) GetUserByEmail(_ context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email = strings.ToLower(email)
	for _, u := range s.users {
		if strings.ToLower(u.Email) == email {
			return copyUser(u), nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
}

func (s *InMemoryStore) CreateSession(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[sess.Token]; exists {
		return fmt.Errorf("session: %w", ErrConflict)
	}
	if _, ok := s.users[sess.UserID]; !ok {
		return fmt.Errorf("user %s: %w", sess.UserID, ErrNotFound)
	}
	stamp(&sess.CreatedAt, s.now())

	c := *sess
	s.sessions[sess.Token] = &c
	return nil
}

func (s *InMemoryStore) GetSession(_ context.Context, token string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[token]
	if !ok {
		return nil, fmt.Errorf("session: %w", ErrNotFound)
	}
	c := *sess
	return &c, nil
}

func (s *InMemoryStore) DeleteSession(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[token]; !ok {
		return fmt.Errorf("session: %w", ErrNotFound)
	}
	delete(s.sessions, token)
	return nil
}

func (s *InMemoryStore) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for token, sess := range s.sessions {
		if sess.Expired(now) {
			delete(s.sessions, token)
			n++
		}
	}
	return n, nil
}

func (s *InMemoryStore) CreateFarmer(_ context.Context, f *Farmer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[f.UserID]; !ok {
		return fmt.Errorf("user %s: %w", f.UserID, ErrNotFound)
	}
	for _, existing := range s.farmers {
		if existing.UserID == f.UserID {
			return fmt.Errorf("farmer for user %s: %w", f.UserID, ErrConflict)
		}
	}
	assignID(&f.ID)
	now := s.now()
	stamp(&f.CreatedAt, now)
	stamp(&f.UpdatedAt, now)
	if f.SoilData == nil {
		f.SoilData = map[string]float64{}
	}

	s.farmers[f.ID] = copyFarmer(f)
	return nil
}

func (s *InMemoryStore) GetFarmer(_ context.Context, id string) (*Farmer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.farmers[id]
	if !ok {
		return nil, fmt.Errorf("farmer %s: %w", id, ErrNotFound)
	}
	return s.withUser(f), nil
}

func (s *InMemoryStore) GetFarmerByUser(_ context.Context, userID string) (*Farmer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, f := range s.farmers {
		if f.UserID == userID {
			return s.withUser(f), nil
		}
	}
	return nil, fmt.Errorf("farmer for user %s: %w", userID, ErrNotFound)
}

func (s *InMemoryStore) UpdateFarmer(_ context.Context, id string, u FarmerUpdate) (*Farmer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.farmers[id]
	if !ok {
		return nil, fmt.Errorf("farmer %s: %w", id, ErrNotFound)
	}
	updated := copyFarmer(f)
	u.Apply(updated)
	updated.UpdatedAt = s.now()

	s.farmers[id] = copyFarmer(updated)
	return s.withUser(updated), nil
}

func (s *InMemoryStore) ListFarmers(_ context.Context, filter FarmerFilter) ([]*Farmer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(filter.LocationContains)
	farmers := make([]*Farmer, 0, len(s.farmers))
	for _, f := range s.farmers {
		if needle != "" && !strings.Contains(strings.ToLower(f.Location), needle) {
			continue
		}
		farmers = append(farmers, s.withUser(f))
	}
	sort.Slice(farmers, func(i, j int) bool {
		if !farmers[i].CreatedAt.Equal(farmers[j].CreatedAt) {
			return farmers[i].CreatedAt.Before(farmers[j].CreatedAt)
		}
		return farmers[i].ID < farmers[j].ID
	})
	return farmers, nil
}

func (s *InMemoryStore) AddPrediction(_ context.Context, p *Prediction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.farmers[p.FarmerID]; !ok {
		return fmt.Errorf("farmer %s: %w", p.FarmerID, ErrNotFound)
	}
	assignID(&p.ID)
	if _, exists := s.predictions[p.ID]; exists {
		return fmt.Errorf("prediction %s: %w", p.ID, ErrConflict)
	}
	stamp(&p.CreatedAt, s.now())
	if p.ModelVersion == "" {
		p.ModelVersion = "1.0"
	}

	s.predictions[p.ID] = copyPrediction(p)
	return nil
}

func (s *InMemoryStore) GetPrediction(_ context.Context, id string) (*Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.predictions[id]
	if !ok {
		return nil, fmt.Errorf("prediction %s: %w", id, ErrNotFound)
	}
	return copyPrediction(p), nil
}

func newestFirst[T any](items []T, created func(T) time.Time, id func(T) string) {
	sort.Slice(items, func(i, j int) bool {
		ci, cj := created(items[i]), created(items[j])
		if !ci.Equal(cj) {
			return ci.After(cj)
		}
		return id(items[i]) > id(items[j])
	})
}

func (s *InMemoryStore) ListPredictions(_ context.Context, filter PredictionFilter) ([]*Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	location := strings.ToLower(filter.LocationContains)
	preds := make([]*Prediction, 0)
	for _, p := range s.predictions {
		if filter.FarmerID != "" && p.FarmerID != filter.FarmerID {
			continue
		}
		if filter.Crop != "" && p.Crop != filter.Crop {
			continue
		}
		if !filter.Since.IsZero() && p.CreatedAt.Before(filter.Since) {
			continue
		}
		if filter.Validated != nil && p.Validated != *filter.Validated {
			continue
		}
		farmer, ok := s.farmers[p.FarmerID]
		if location != "" && (!ok || !strings.Contains(strings.ToLower(farmer.Location), location)) {
			continue
		}

		c := copyPrediction(p)
		if ok {
			c.Farmer = s.withUser(farmer)
		}
		preds = append(preds, c)
	}

	newestFirst(preds,
		func(p *Prediction) time.Time { return p.CreatedAt },
		func(p *Prediction) string { return p.ID })
	if filter.Limit > 0 && len(preds) > filter.Limit {
		preds = preds[:filter.Limit]
	}
	return preds, nil
}

func (s *InMemoryStore) ValidatePrediction(_ context.Context, id string, v Validation) (*Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.predictions[id]
	if !ok {
		return nil, fmt.Errorf("prediction %s: %w", id, ErrNotFound)
	}
	updated := copyPrediction(p)
	applyValidation(updated, v, s.now())

	s.predictions[id] = copyPrediction(updated)
	return updated, nil
}

func (s *InMemoryStore) AddAlert(_ context.Context, a *AlertRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.farmers[a.FarmerID]; !ok {
		return fmt.Errorf("farmer %s: %w", a.FarmerID, ErrNotFound)
	}
	assignID(&a.ID)
	if _, exists := s.alerts[a.ID]; exists {
		return fmt.Errorf("alert %s: %w", a.ID, ErrConflict)
	}
	stamp(&a.CreatedAt, s.now())

	s.alerts[a.ID] = copyAlert(a)
	return nil
}

func (s *InMemoryStore) ListAlerts(_ context.Context, filter AlertFilter) ([]*AlertRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	alerts := make([]*AlertRecord, 0)
	for _, a := range s.alerts {
		if filter.FarmerID != "" && a.FarmerID != filter.FarmerID {
			continue
		}
		if !filter.Since.IsZero() && a.CreatedAt.Before(filter.Since) {
			continue
		}
		if filter.UnresolvedOnly && a.IsResolved {
			continue
		}
		c := copyAlert(a)
		if f, ok := s.farmers[a.FarmerID]; ok {
			c.FarmerLocation = f.Location
		}
		alerts = append(alerts, c)
	}

	newestFirst(alerts,
		func(a *AlertRecord) time.Time { return a.CreatedAt },
		func(a *AlertRecord) string { return a.ID })
	if filter.Limit > 0 && len(alerts) > filter.Limit {
		alerts = alerts[:filter.Limit]
	}
	return alerts, nil
}

func (s *InMemoryStore) MarkAlertRead(_ context.Context, farmerID, alertID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.alerts[alertID]
	if !ok || a.FarmerID != farmerID {
		return fmt.Errorf("alert %s: %w", alertID, ErrNotFound)
	}
	a.IsRead = true
	return nil
}

func (s *InMemoryStore) AddResearchData(_ context.Context, r *ResearchData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	assignID(&r.ID)
	if _, exists := s.research[r.ID]; exists {
		return fmt.Errorf("research data %s: %w", r.ID, ErrConflict)
	}
	stamp(&r.CreatedAt, s.now())
	if r.DataSource == "" {
		r.DataSource = "system_generated"
	}

	s.research[r.ID] = copyResearch(r)
	return nil
}

func (s *InMemoryStore) ListResearchData(_ context.Context, filter ResearchFilter) ([]*ResearchData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]*ResearchData, 0)
	for _, r := range s.research {
		if filter.Region != "" && r.Region != filter.Region {
			continue
		}
		if filter.CropType != "" && r.CropType != filter.CropType {
			continue
		}
		items = append(items, copyResearch(r))
	}

	newestFirst(items,
		func(r *ResearchData) time.Time { return r.CreatedAt },
		func(r *ResearchData) string { return r.ID })
	limit := limitOr(filter.Limit, DefaultListLimit)
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}
