package alertrules

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

const ruleColumns = `id, name, expression, alert_type, severity, title, message,
	recommendations, priority, active, created_by, created_at, updated_at`

// PostgresRuleStore implements RuleStore backed by the alert_rules table
type PostgresRuleStore struct {
	db *sql.DB
}

// NewPostgresRuleStore creates a PostgreSQL-backed RuleStore
func NewPostgresRuleStore(db *sql.DB) *PostgresRuleStore {
	return &PostgresRuleStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*Rule, error) {
	var (
		r         Rule
		createdBy sql.NullString
	)
	err := row.Scan(
		&r.ID,
		&r.Name,
		&r.Expression,
		&r.AlertType,
		&r.Severity,
		&r.Title,
		&r.Message,
		pq.Array(&r.Recommendations),
		&r.Priority,
		&r.Active,
		&createdBy,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.CreatedBy = createdBy.String
	if r.Recommendations == nil {
		r.Recommendations = []string{}
	}
	return &r, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Add inserts a new rule
func (s *PostgresRuleStore) Add(rule *Rule) error {
	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	_, err := s.db.Exec(`
		INSERT INTO alert_rules (`+ruleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, rule.ID, rule.Name, rule.Expression, rule.AlertType, rule.Severity,
		rule.Title, rule.Message, pq.Array(rule.Recommendations), rule.Priority,
		rule.Active, nullable(rule.CreatedBy), rule.CreatedAt, rule.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("%w: %s", ErrRuleExists, rule.ID)
		}
		return fmt.Errorf("failed to insert rule: %w", err)
	}

	return nil
}

// Get retrieves a rule by ID
func (s *PostgresRuleStore) Get(id string) (*Rule, error) {
	row := s.db.QueryRow(`
		SELECT `+ruleColumns+`
		FROM alert_rules
		WHERE id = $1
	`, id)

	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	return rule, nil
}

// List returns every rule, oldest first
func (s *PostgresRuleStore) List() ([]*Rule, error) {
	return s.query(`
		SELECT ` + ruleColumns + `
		FROM alert_rules
		ORDER BY created_at ASC, id ASC
	`)
}

// ListActive returns the active rules, oldest first
func (s *PostgresRuleStore) ListActive() ([]*Rule, error) {
	return s.query(`
		SELECT ` + ruleColumns + `
		FROM alert_rules
		WHERE active = true
		ORDER BY created_at ASC, id ASC
	`)
}

func (s *PostgresRuleStore) query(q string, args ...any) ([]*Rule, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	rules := []*Rule{}
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	return rules, nil
}

// Update modifies an existing rule. CreatedAt and CreatedBy are kept.
func (s *PostgresRuleStore) Update(rule *Rule) error {
	rule.UpdatedAt = time.Now().UTC()

	row := s.db.QueryRow(`
		UPDATE alert_rules
		SET name = $1, expression = $2, alert_type = $3, severity = $4,
			title = $5, message = $6, recommendations = $7, priority = $8,
			active = $9, updated_at = $10
		WHERE id = $11
		RETURNING created_at, created_by
	`, rule.Name, rule.Expression, rule.AlertType, rule.Severity, rule.Title,
		rule.Message, pq.Array(rule.Recommendations), rule.Priority, rule.Active,
		rule.UpdatedAt, rule.ID)

	var createdBy sql.NullString
	err := row.Scan(&rule.CreatedAt, &createdBy)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrRuleNotFound, rule.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	rule.CreatedBy = createdBy.String

	return nil
}

// Delete removes a rule
func (s *PostgresRuleStore) Delete(id string) error {
	result, err := s.db.Exec(`DELETE FROM alert_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}

	return nil
}
