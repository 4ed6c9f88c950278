//go:build integration
// +build integration

package alertrules_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/liamcoop/fieldinsights/alertrules"
	"github.com/liamcoop/fieldinsights/insights"

	_ "github.com/lib/pq"
)

// setupTestDB creates a PostgreSQL container and returns a migrated connection
func setupTestDB(t *testing.T) (*sql.DB, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "fieldinsights_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	connStr := fmt.Sprintf("host=%s port=%s user=test password=test dbname=fieldinsights_test sslmode=disable", host, port.Port())

	var db *sql.DB
	for i := 0; i < 30; i++ {
		db, err = sql.Open("postgres", connStr)
		if err == nil {
			if err = db.Ping(); err == nil {
				break
			}
		}
		time.Sleep(time.Second)
	}
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	migrationSQL, err := os.ReadFile(filepath.Join("..", "migrations", "000001_initial_schema.up.sql"))
	if err != nil {
		t.Fatalf("Failed to read migration file: %v", err)
	}
	if _, err := db.Exec(string(migrationSQL)); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		db.Close()
		container.Terminate(ctx)
	}
	return db, cleanup
}

func newRule(name string) *alertrules.Rule {
	return &alertrules.Rule{
		ID:              uuid.NewString(),
		Name:            name,
		Expression:      `conditions.humidity > 85.0`,
		AlertType:       insights.AlertDisease,
		Severity:        insights.SeverityMedium,
		Title:           "Blight Watch",
		Message:         "Sustained humidity favours late blight.",
		Recommendations: []string{"Scout lower canopy", "Prepare copper spray"},
		Priority:        3,
		Active:          true,
	}
}

func TestPostgresRuleStore_BasicCRUD(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := alertrules.NewPostgresRuleStore(db)

	rule := newRule("blight watch")
	if err := store.Add(rule); err != nil {
		t.Fatalf("Failed to add rule: %v", err)
	}
	if err := store.Add(rule); !errors.Is(err, alertrules.ErrRuleExists) {
		t.Errorf("Expected ErrRuleExists on duplicate, got %v", err)
	}

	retrieved, err := store.Get(rule.ID)
	if err != nil {
		t.Fatalf("Failed to get rule: %v", err)
	}
	if retrieved.Name != "blight watch" || retrieved.Severity != insights.SeverityMedium {
		t.Errorf("Unexpected rule: %+v", retrieved)
	}
	if len(retrieved.Recommendations) != 2 {
		t.Errorf("Expected 2 recommendations, got %v", retrieved.Recommendations)
	}

	rule.Active = false
	rule.Priority = 7
	if err := store.Update(rule); err != nil {
		t.Fatalf("Failed to update rule: %v", err)
	}
	active, err := store.ListActive()
	if err != nil {
		t.Fatalf("Failed to list active rules: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("Expected 0 active rules, got %d", len(active))
	}
	all, _ := store.List()
	if len(all) != 1 || all[0].Priority != 7 {
		t.Errorf("Expected updated rule in List(), got %+v", all)
	}

	if err := store.Delete(rule.ID); err != nil {
		t.Fatalf("Failed to delete rule: %v", err)
	}
	if _, err := store.Get(rule.ID); !errors.Is(err, alertrules.ErrRuleNotFound) {
		t.Errorf("Expected ErrRuleNotFound, got %v", err)
	}
	if err := store.Update(rule); !errors.Is(err, alertrules.ErrRuleNotFound) {
		t.Errorf("Expected ErrRuleNotFound on update, got %v", err)
	}
}

func TestPostgresRuleStore_EngineRoundTrip(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := alertrules.NewPostgresRuleStore(db)
	if err := store.Add(newRule("blight watch")); err != nil {
		t.Fatalf("Failed to add rule: %v", err)
	}

	engine, err := alertrules.NewEngine(store,
		alertrules.WithCache(alertrules.NewInMemoryRulesCache(alertrules.CacheConfig{TTL: time.Second})))
	if err != nil {
		t.Fatalf("NewEngine() failed: %v", err)
	}

	alerts := engine.Alerts(insights.Conditions{Humidity: 92})
	if len(alerts) != 1 || alerts[0].Title != "Blight Watch" {
		t.Errorf("Expected blight alert, got %+v", alerts)
	}
}
