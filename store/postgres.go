package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
)

// psql builds statements with PostgreSQL $n placeholders
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const (
	userColumns       = "id, name, email, role, password_hash, is_active, created_at"
	farmerColumns     = "f.id, f.user_id, u.name, u.email, f.location, f.crops, f.acres, f.soil_data, f.water_level, f.contact_number, f.created_at, f.updated_at"
	predictionColumns = "p.id, p.farmer_id, p.crop, p.prediction, p.confidence, p.source, p.input_data, p.recommendations, p.model_version, p.validated_by_agronomist, p.validated_by, p.agronomist_comments, p.created_at, p.validated_at"
	alertColumns      = "a.id, a.farmer_id, a.alert_type, a.severity, a.title, a.message, a.recommendations, a.priority, a.is_read, a.is_resolved, a.created_at, a.resolved_at, f.location"
	researchColumns   = "id, researcher_id, title, description, region, crop_type, season, aggregated_results, ndvi_scores, yield_predictions, data_source, created_at"
)

// PostgreSQL error codes the store translates
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqInvalidText         = "22P02"
)

// PostgresStore implements Store on the schema in migrations/
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore wires a sql.DB opened with the postgres driver
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// translate maps driver errors onto the store sentinels
func translate(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return fmt.Errorf("%s: %w", what, ErrConflict)
		case pqForeignKeyViolation, pqInvalidText:
			return fmt.Errorf("%s: %w", what, ErrNotFound)
		}
	}
	return fmt.Errorf("%s: %w", what, err)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// jsonb encodes v as text for a JSONB column; a nil map becomes SQL NULL
func jsonb(v map[string]any) (any, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, u *User) error {
	assignID(&u.ID)
	stamp(&u.CreatedAt, time.Now().UTC())

	query, args, err := psql.Insert("users").
		Columns("id", "name", "email", "role", "password_hash", "is_active", "created_at").
		Values(u.ID, u.Name, u.Email, u.Role, u.PasswordHash, u.IsActive, u.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert user: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return translate(err, "insert user")
	}
	return nil
}

func scanUser(row rowScanner) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.PasswordHash, &u.IsActive, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *PostgresStore) getUser(ctx context.Context, where sq.Sqlizer) (*User, error) {
	query, args, err := psql.Select(userColumns).From("users").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user: %w", err)
	}
	u, err := scanUser(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, translate(err, "select user")
	}
	return u, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (*User, error) {
	return s.getUser(ctx, sq.Eq{"id": id})
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.getUser(ctx, sq.Expr("lower(email) = lower(?)", email))
}

func (s *PostgresStore) CreateSession(ctx context.Context, sess *Session) error {
	stamp(&sess.CreatedAt, time.Now().UTC())

	query, args, err := psql.Insert("sessions").
		Columns("token", "user_id", "expires_at", "created_at").
		Values(sess.Token, sess.UserID, sess.ExpiresAt, sess.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert session: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return translate(err, "insert session")
	}
	return nil
}

func (s *PostgresStore) GetSession(ctx context.Context, token string) (*Session, error) {
	query, args, err := psql.Select("token", "user_id", "expires_at", "created_at").
		From("sessions").
		Where(sq.Eq{"token": token}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select session: %w", err)
	}

	var sess Session
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&sess.Token, &sess.UserID, &sess.ExpiresAt, &sess.CreatedAt)
	if err != nil {
		return nil, translate(err, "select session")
	}
	return &sess, nil
}

func (s *PostgresStore) DeleteSession(ctx context.Context, token string) error {
	query, args, err := psql.Delete("sessions").Where(sq.Eq{"token": token}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete session: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return translate(err, "delete session")
	}
	return expectRows(res, "delete session")
}

func (s *PostgresStore) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	query, args, err := psql.Delete("sessions").Where(sq.LtOrEq{"expires_at": now}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete sessions: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete sessions: %w", err)
	}
	return res.RowsAffected()
}

func expectRows(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) CreateFarmer(ctx context.Context, f *Farmer) error {
	assignID(&f.ID)
	now := time.Now().UTC()
	stamp(&f.CreatedAt, now)
	stamp(&f.UpdatedAt, now)
	if f.SoilData == nil {
		f.SoilData = map[string]float64{}
	}
	if f.Crops == "" {
		f.Crops = "[]"
	}
	soil, err := json.Marshal(f.SoilData)
	if err != nil {
		return fmt.Errorf("marshal soil data: %w", err)
	}

	query, args, err := psql.Insert("farmers").
		Columns("id", "user_id", "location", "crops", "acres", "soil_data", "water_level", "contact_number", "created_at", "updated_at").
		Values(f.ID, f.UserID, f.Location, f.Crops, f.Acres, string(soil), f.WaterLevel, nullString(f.ContactNumber), f.CreatedAt, f.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert farmer: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return translate(err, "insert farmer")
	}
	return nil
}

func scanFarmer(row rowScanner) (*Farmer, error) {
	var (
		f       Farmer
		soil    []byte
		water   sql.NullFloat64
		contact sql.NullString
	)
	err := row.Scan(&f.ID, &f.UserID, &f.Name, &f.Email, &f.Location, &f.Crops, &f.Acres,
		&soil, &water, &contact, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := decodeSoil(soil, &f); err != nil {
		return nil, err
	}
	if water.Valid {
		w := water.Float64
		f.WaterLevel = &w
	}
	f.ContactNumber = contact.String
	return &f, nil
}

func decodeSoil(raw []byte, f *Farmer) error {
	f.SoilData = map[string]float64{}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &f.SoilData); err != nil {
		return fmt.Errorf("decode soil data: %w", err)
	}
	return nil
}

func farmerSelect() sq.SelectBuilder {
	return psql.Select(farmerColumns).From("farmers f").Join("users u ON u.id = f.user_id")
}

func (s *PostgresStore) getFarmer(ctx context.Context, where sq.Sqlizer) (*Farmer, error) {
	query, args, err := farmerSelect().Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select farmer: %w", err)
	}
	f, err := scanFarmer(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, translate(err, "select farmer")
	}
	return f, nil
}

func (s *PostgresStore) GetFarmer(ctx context.Context, id string) (*Farmer, error) {
	return s.getFarmer(ctx, sq.Eq{"f.id": id})
}

func (s *PostgresStore) GetFarmerByUser(ctx context.Context, userID string) (*Farmer, error) {
	return s.getFarmer(ctx, sq.Eq{"f.user_id": userID})
}

func (s *PostgresStore) UpdateFarmer(ctx context.Context, id string, u FarmerUpdate) (*Farmer, error) {
	update := psql.Update("farmers").Set("updated_at", time.Now().UTC()).Where(sq.Eq{"id": id})
	if u.Location != nil {
		update = update.Set("location", *u.Location)
	}
	if u.Crops != nil {
		update = update.Set("crops", *u.Crops)
	}
	if u.Acres != nil {
		update = update.Set("acres", *u.Acres)
	}
	if u.ContactNumber != nil {
		update = update.Set("contact_number", nullString(*u.ContactNumber))
	}
	if u.SoilData != nil {
		soil, err := json.Marshal(u.SoilData)
		if err != nil {
			return nil, fmt.Errorf("marshal soil data: %w", err)
		}
		update = update.Set("soil_data", string(soil))
	}
	if u.WaterLevel != nil {
		update = update.Set("water_level", *u.WaterLevel)
	}

	query, args, err := update.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update farmer: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "update farmer")
	}
	if err := expectRows(res, "update farmer"); err != nil {
		return nil, err
	}
	return s.GetFarmer(ctx, id)
}

func (s *PostgresStore) ListFarmers(ctx context.Context, filter FarmerFilter) ([]*Farmer, error) {
	sel := farmerSelect().OrderBy("f.created_at", "f.id")
	if filter.LocationContains != "" {
		sel = sel.Where(sq.ILike{"f.location": "%" + filter.LocationContains + "%"})
	}
	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list farmers: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query farmers: %w", err)
	}
	defer rows.Close()

	farmers := make([]*Farmer, 0)
	for rows.Next() {
		f, err := scanFarmer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan farmer: %w", err)
		}
		farmers = append(farmers, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return farmers, nil
}

func (s *PostgresStore) AddPrediction(ctx context.Context, p *Prediction) error {
	assignID(&p.ID)
	stamp(&p.CreatedAt, time.Now().UTC())
	if p.ModelVersion == "" {
		p.ModelVersion = "1.0"
	}
	input, err := json.Marshal(p.Input)
	if err != nil {
		return fmt.Errorf("marshal input data: %w", err)
	}
	recs := p.Recommendations
	if recs == nil {
		recs = []string{}
	}

	query, args, err := psql.Insert("predictions").
		Columns("id", "farmer_id", "crop", "prediction", "confidence", "source", "input_data",
			"recommendations", "model_version", "validated_by_agronomist", "validated_by",
			"agronomist_comments", "created_at", "validated_at").
		Values(p.ID, p.FarmerID, p.Crop, p.Value, p.Confidence, string(p.Source), string(input),
			pq.Array(recs), p.ModelVersion, p.Validated, nullString(p.ValidatedBy),
			nullString(p.Comments), p.CreatedAt, nullTime(p.ValidatedAt)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert prediction: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return translate(err, "insert prediction")
	}
	return nil
}

// predictionDest returns the scan targets for predictionColumns and a
// function that finishes decoding once Scan has filled them
func predictionDest(p *Prediction) ([]any, func() error) {
	var (
		input       []byte
		validatedBy sql.NullString
		comments    sql.NullString
		validatedAt sql.NullTime
	)
	dest := []any{&p.ID, &p.FarmerID, &p.Crop, &p.Value, &p.Confidence, &p.Source, &input,
		pq.Array(&p.Recommendations), &p.ModelVersion, &p.Validated, &validatedBy,
		&comments, &p.CreatedAt, &validatedAt}

	finish := func() error {
		if len(input) > 0 {
			if err := json.Unmarshal(input, &p.Input); err != nil {
				return fmt.Errorf("decode input data: %w", err)
			}
		}
		if p.Recommendations == nil {
			p.Recommendations = []string{}
		}
		p.ValidatedBy = validatedBy.String
		p.Comments = comments.String
		p.ValidatedAt = timePtr(validatedAt)
		return nil
	}
	return dest, finish
}

func scanPrediction(row rowScanner) (*Prediction, error) {
	var p Prediction
	dest, finish := predictionDest(&p)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if err := finish(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) GetPrediction(ctx context.Context, id string) (*Prediction, error) {
	query, args, err := psql.Select(predictionColumns).From("predictions p").Where(sq.Eq{"p.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select prediction: %w", err)
	}
	p, err := scanPrediction(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, translate(err, "select prediction")
	}
	return p, nil
}

func (s *PostgresStore) ListPredictions(ctx context.Context, filter PredictionFilter) ([]*Prediction, error) {
	sel := psql.Select(predictionColumns + ", " + farmerColumns).
		From("predictions p").
		Join("farmers f ON f.id = p.farmer_id").
		Join("users u ON u.id = f.user_id").
		OrderBy("p.created_at DESC", "p.id DESC")

	if filter.FarmerID != "" {
		sel = sel.Where(sq.Eq{"p.farmer_id": filter.FarmerID})
	}
	if filter.Crop != "" {
		sel = sel.Where(sq.Eq{"p.crop": filter.Crop})
	}
	if !filter.Since.IsZero() {
		sel = sel.Where(sq.GtOrEq{"p.created_at": filter.Since})
	}
	if filter.Validated != nil {
		sel = sel.Where(sq.Eq{"p.validated_by_agronomist": *filter.Validated})
	}
	if filter.LocationContains != "" {
		sel = sel.Where(sq.ILike{"f.location": "%" + filter.LocationContains + "%"})
	}
	if filter.Limit > 0 {
		sel = sel.Limit(uint64(filter.Limit))
	}

	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list predictions: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	preds := make([]*Prediction, 0)
	for rows.Next() {
		var (
			p       Prediction
			f       Farmer
			soil    []byte
			water   sql.NullFloat64
			contact sql.NullString
		)
		dest, finish := predictionDest(&p)
		dest = append(dest, &f.ID, &f.UserID, &f.Name, &f.Email, &f.Location, &f.Crops, &f.Acres,
			&soil, &water, &contact, &f.CreatedAt, &f.UpdatedAt)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		if err := finish(); err != nil {
			return nil, err
		}
		if err := decodeSoil(soil, &f); err != nil {
			return nil, err
		}
		if water.Valid {
			w := water.Float64
			f.WaterLevel = &w
		}
		f.ContactNumber = contact.String
		p.Farmer = &f
		preds = append(preds, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return preds, nil
}

func (s *PostgresStore) ValidatePrediction(ctx context.Context, id string, v Validation) (*Prediction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin validate: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args, err := psql.Select(predictionColumns).
		From("predictions p").
		Where(sq.Eq{"p.id": id}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select prediction: %w", err)
	}
	p, err := scanPrediction(tx.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, translate(err, "select prediction")
	}

	applyValidation(p, v, time.Now().UTC())

	query, args, err = psql.Update("predictions").
		Set("prediction", p.Value).
		Set("validated_by_agronomist", p.Validated).
		Set("validated_by", nullString(p.ValidatedBy)).
		Set("agronomist_comments", nullString(p.Comments)).
		Set("validated_at", nullTime(p.ValidatedAt)).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build validate prediction: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, translate(err, "validate prediction")
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit validate: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) AddAlert(ctx context.Context, a *AlertRecord) error {
	assignID(&a.ID)
	stamp(&a.CreatedAt, time.Now().UTC())
	recs := a.Recommendations
	if recs == nil {
		recs = []string{}
	}

	query, args, err := psql.Insert("alerts").
		Columns("id", "farmer_id", "alert_type", "severity", "title", "message",
			"recommendations", "priority", "is_read", "is_resolved", "created_at", "resolved_at").
		Values(a.ID, a.FarmerID, string(a.Type), string(a.Severity), a.Title, a.Message,
			pq.Array(recs), a.Priority, a.IsRead, a.IsResolved, a.CreatedAt, nullTime(a.ResolvedAt)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert alert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return translate(err, "insert alert")
	}
	return nil
}

func scanAlert(row rowScanner) (*AlertRecord, error) {
	var (
		a          AlertRecord
		resolvedAt sql.NullTime
	)
	err := row.Scan(&a.ID, &a.FarmerID, &a.Type, &a.Severity, &a.Title, &a.Message,
		pq.Array(&a.Recommendations), &a.Priority, &a.IsRead, &a.IsResolved, &a.CreatedAt,
		&resolvedAt, &a.FarmerLocation)
	if err != nil {
		return nil, err
	}
	a.ResolvedAt = timePtr(resolvedAt)
	if a.Recommendations == nil {
		a.Recommendations = []string{}
	}
	return &a, nil
}

func (s *PostgresStore) ListAlerts(ctx context.Context, filter AlertFilter) ([]*AlertRecord, error) {
	sel := psql.Select(alertColumns).
		From("alerts a").
		Join("farmers f ON f.id = a.farmer_id").
		OrderBy("a.created_at DESC", "a.id DESC")

	if filter.FarmerID != "" {
		sel = sel.Where(sq.Eq{"a.farmer_id": filter.FarmerID})
	}
	if !filter.Since.IsZero() {
		sel = sel.Where(sq.GtOrEq{"a.created_at": filter.Since})
	}
	if filter.UnresolvedOnly {
		sel = sel.Where(sq.Eq{"a.is_resolved": false})
	}
	if filter.Limit > 0 {
		sel = sel.Limit(uint64(filter.Limit))
	}

	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list alerts: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	alerts := make([]*AlertRecord, 0)
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return alerts, nil
}

func (s *PostgresStore) MarkAlertRead(ctx context.Context, farmerID, alertID string) error {
	query, args, err := psql.Update("alerts").
		Set("is_read", true).
		Where(sq.Eq{"id": alertID, "farmer_id": farmerID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark alert read: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return translate(err, "mark alert read")
	}
	return expectRows(res, "mark alert read")
}

func (s *PostgresStore) AddResearchData(ctx context.Context, r *ResearchData) error {
	assignID(&r.ID)
	stamp(&r.CreatedAt, time.Now().UTC())
	if r.DataSource == "" {
		r.DataSource = "system_generated"
	}

	aggregated, err := jsonb(r.AggregatedResults)
	if err != nil {
		return fmt.Errorf("marshal aggregated results: %w", err)
	}
	ndvi, err := jsonb(r.NDVIScores)
	if err != nil {
		return fmt.Errorf("marshal ndvi scores: %w", err)
	}
	yields, err := jsonb(r.YieldPredictions)
	if err != nil {
		return fmt.Errorf("marshal yield predictions: %w", err)
	}

	query, args, err := psql.Insert("research_data").
		Columns("id", "researcher_id", "title", "description", "region", "crop_type", "season",
			"aggregated_results", "ndvi_scores", "yield_predictions", "data_source", "created_at").
		Values(r.ID, nullString(r.ResearcherID), r.Title, nullString(r.Description),
			nullString(r.Region), nullString(r.CropType), nullString(r.Season),
			aggregated, ndvi, yields, r.DataSource, r.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert research data: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return translate(err, "insert research data")
	}
	return nil
}

func scanResearch(row rowScanner) (*ResearchData, error) {
	var (
		r                                  ResearchData
		researcher, desc, region, crop     sql.NullString
		season                             sql.NullString
		aggregated, ndvi, yieldPredictions []byte
	)
	err := row.Scan(&r.ID, &researcher, &r.Title, &desc, &region, &crop, &season,
		&aggregated, &ndvi, &yieldPredictions, &r.DataSource, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	r.ResearcherID = researcher.String
	r.Description = desc.String
	r.Region = region.String
	r.CropType = crop.String
	r.Season = season.String

	for _, field := range []struct {
		raw []byte
		dst *map[string]any
	}{
		{aggregated, &r.AggregatedResults},
		{ndvi, &r.NDVIScores},
		{yieldPredictions, &r.YieldPredictions},
	} {
		if len(field.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(field.raw, field.dst); err != nil {
			return nil, fmt.Errorf("decode research payload: %w", err)
		}
	}
	return &r, nil
}

func (s *PostgresStore) ListResearchData(ctx context.Context, filter ResearchFilter) ([]*ResearchData, error) {
	sel := psql.Select(researchColumns).
		From("research_data").
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limitOr(filter.Limit, DefaultListLimit)))
	if filter.Region != "" {
		sel = sel.Where(sq.Eq{"region": filter.Region})
	}
	if filter.CropType != "" {
		sel = sel.Where(sq.Eq{"crop_type": filter.CropType})
	}

	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list research data: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query research data: %w", err)
	}
	defer rows.Close()

	items := make([]*ResearchData, 0)
	for rows.Next() {
		r, err := scanResearch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan research data: %w", err)
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return items, nil
}
