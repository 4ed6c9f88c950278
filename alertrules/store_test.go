package alertrules

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestRuleStoreInterfaceExists(t *testing.T) {
	var _ RuleStore = (*InMemoryRuleStore)(nil)
	var _ RuleStore = (*PostgresRuleStore)(nil)
}

func TestInMemoryRuleStoreAddGet(t *testing.T) {
	store := NewInMemoryRuleStore()

	rule := frostRule("test-1")
	if err := store.Add(rule); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}

	retrieved, err := store.Get("test-1")
	if err != nil {
		t.Fatalf("Get() failed after Add(): %v", err)
	}
	if retrieved.Name != rule.Name || retrieved.Expression != rule.Expression {
		t.Errorf("Get() = %+v, want %+v", retrieved, rule)
	}
	if retrieved.CreatedAt.IsZero() || !retrieved.CreatedAt.Equal(retrieved.UpdatedAt) {
		t.Errorf("timestamps not stamped: created=%v updated=%v", retrieved.CreatedAt, retrieved.UpdatedAt)
	}
}

func TestInMemoryRuleStoreAddDuplicate(t *testing.T) {
	store := NewInMemoryRuleStore()

	if err := store.Add(frostRule("dup")); err != nil {
		t.Fatalf("first Add() failed: %v", err)
	}
	if err := store.Add(frostRule("dup")); !errors.Is(err, ErrRuleExists) {
		t.Errorf("duplicate Add() should return ErrRuleExists, got %v", err)
	}
}

func TestInMemoryRuleStoreGetNotFound(t *testing.T) {
	store := NewInMemoryRuleStore()

	if _, err := store.Get("missing"); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("Get() should return ErrRuleNotFound, got %v", err)
	}
}

// TestInMemoryRuleStoreIsolation checks callers cannot mutate stored rules
// through the pointers they passed in or got back.
func TestInMemoryRuleStoreIsolation(t *testing.T) {
	store := NewInMemoryRuleStore()

	rule := frostRule("iso")
	if err := store.Add(rule); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	rule.Name = "mutated"
	rule.Recommendations[0] = "mutated"

	got, _ := store.Get("iso")
	if got.Name != "Frost watch" || got.Recommendations[0] != "Cover seedlings overnight" {
		t.Errorf("stored rule changed through caller pointer: %+v", got)
	}

	got.Title = "changed"
	again, _ := store.Get("iso")
	if again.Title != "Frost Risk" {
		t.Error("stored rule changed through returned pointer")
	}
}

func TestInMemoryRuleStoreUpdate(t *testing.T) {
	store := NewInMemoryRuleStore()

	original := frostRule("upd")
	original.CreatedBy = "agro-1"
	if err := store.Add(original); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	created := original.CreatedAt

	time.Sleep(5 * time.Millisecond)

	updated := frostRule("upd")
	updated.Priority = 5
	if err := store.Update(updated); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}

	got, _ := store.Get("upd")
	if got.Priority != 5 {
		t.Errorf("Priority = %d, want 5", got.Priority)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt changed: %v -> %v", created, got.CreatedAt)
	}
	if got.CreatedBy != "agro-1" {
		t.Errorf("CreatedBy = %q, want agro-1", got.CreatedBy)
	}
	if !got.UpdatedAt.After(created) {
		t.Error("UpdatedAt should advance on Update()")
	}
}

func TestInMemoryRuleStoreUpdateNotFound(t *testing.T) {
	store := NewInMemoryRuleStore()

	if err := store.Update(frostRule("ghost")); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("Update() should return ErrRuleNotFound, got %v", err)
	}
}

func TestInMemoryRuleStoreListActive(t *testing.T) {
	store := NewInMemoryRuleStore()

	for i, active := range []bool{true, false, true} {
		r := frostRule(fmt.Sprintf("rule-%d", i))
		r.Active = active
		if err := store.Add(r); err != nil {
			t.Fatalf("Add() failed: %v", err)
		}
	}

	active, err := store.ListActive()
	if err != nil {
		t.Fatalf("ListActive() failed: %v", err)
	}
	if len(active) != 2 || active[0].ID != "rule-0" || active[1].ID != "rule-2" {
		t.Errorf("ListActive() returned %v", ruleIDs(active))
	}

	all, _ := store.List()
	if len(all) != 3 {
		t.Errorf("List() returned %d rules, want 3", len(all))
	}
}

func TestInMemoryRuleStoreListEmpty(t *testing.T) {
	store := NewInMemoryRuleStore()

	active, err := store.ListActive()
	if err != nil {
		t.Fatalf("ListActive() failed: %v", err)
	}
	if active == nil || len(active) != 0 {
		t.Errorf("ListActive() on empty store = %#v, want empty non-nil slice", active)
	}
}

func TestInMemoryRuleStoreDelete(t *testing.T) {
	store := NewInMemoryRuleStore()

	if err := store.Add(frostRule("del")); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	if err := store.Delete("del"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := store.Get("del"); !errors.Is(err, ErrRuleNotFound) {
		t.Error("rule should be gone after Delete()")
	}
	if err := store.Delete("del"); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("second Delete() should return ErrRuleNotFound, got %v", err)
	}
}

func TestInMemoryRuleStoreConcurrentAdd(t *testing.T) {
	store := NewInMemoryRuleStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := store.Add(frostRule(fmt.Sprintf("rule-%d", i))); err != nil {
				t.Errorf("Add() failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	all, _ := store.List()
	if len(all) != 50 {
		t.Errorf("got %d rules, want 50", len(all))
	}
}

func ruleIDs(rules []*Rule) []string {
	ids := make([]string, len(rules))
	for i, r := range rules {
		ids[i] = r.ID
	}
	return ids
}
