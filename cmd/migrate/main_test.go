package main

import (
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
)

type fakeMigrator struct {
	upErr   error
	steps   int
	forced  int
	version uint
	calls   []string
}

func (f *fakeMigrator) Up() error {
	f.calls = append(f.calls, "up")
	return f.upErr
}

func (f *fakeMigrator) Down() error {
	f.calls = append(f.calls, "down")
	return nil
}

func (f *fakeMigrator) Steps(n int) error {
	f.calls = append(f.calls, "steps")
	f.steps = n
	return nil
}

func (f *fakeMigrator) Version() (uint, bool, error) {
	f.calls = append(f.calls, "version")
	return f.version, false, nil
}

func (f *fakeMigrator) Force(v int) error {
	f.calls = append(f.calls, "force")
	f.forced = v
	return nil
}

func TestRunUpNoChangeIsSuccess(t *testing.T) {
	m := &fakeMigrator{upErr: migrate.ErrNoChange}
	if err := run(m, "up", nil); err != nil {
		t.Errorf("up with no change should succeed, got %v", err)
	}
}

func TestRunUpFailure(t *testing.T) {
	m := &fakeMigrator{upErr: errors.New("syntax error")}
	if err := run(m, "up", nil); err == nil {
		t.Error("expected error")
	}
}

func TestRunNumericCommands(t *testing.T) {
	m := &fakeMigrator{}
	if err := run(m, "steps", []string{"-1"}); err != nil {
		t.Fatalf("steps failed: %v", err)
	}
	if m.steps != -1 {
		t.Errorf("steps = %d, want -1", m.steps)
	}

	if err := run(m, "force", []string{"1"}); err != nil {
		t.Fatalf("force failed: %v", err)
	}
	if m.forced != 1 {
		t.Errorf("forced = %d, want 1", m.forced)
	}

	for _, args := range [][]string{nil, {"one"}} {
		if err := run(m, "force", args); err == nil {
			t.Errorf("force %v: expected error", args)
		}
	}
}

func TestRunUnknownCommand(t *testing.T) {
	m := &fakeMigrator{}
	if err := run(m, "sideways", nil); err == nil {
		t.Error("expected error")
	}
	if len(m.calls) != 0 {
		t.Errorf("unknown command should not touch the database, got %v", m.calls)
	}
}
