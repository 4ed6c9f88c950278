package logger

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"warning", LevelWarn, false},
		{" error ", LevelError, false},
		{"trace", LevelTrace, false},
		{"verbose", LevelInfo, true},
		{"", LevelInfo, true},
	}
	for _, tc := range testCases {
		got, err := ParseLevel(tc.in)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, %v", tc.in, got, err)
		}
	}
}

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ERROR_SAMPLE_RATE", "50")
	t.Setenv("OTEL_ENABLED", "TRUE")
	t.Setenv("OTEL_SERVICE_NAME", "field-api")

	opts := OptionsFromEnv()
	if opts.Level != LevelDebug || opts.SampleRate != 50 || !opts.OTEL || opts.ServiceName != "field-api" {
		t.Errorf("OptionsFromEnv() = %+v", opts)
	}

	t.Setenv("ERROR_SAMPLE_RATE", "-3")
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("OTEL_SERVICE_NAME", "")
	opts = OptionsFromEnv()
	if opts.SampleRate != 1 || opts.OTEL || opts.ServiceName != DefaultServiceName {
		t.Errorf("OptionsFromEnv() defaults = %+v", opts)
	}
}

func TestSetupJSON(t *testing.T) {
	if err := Setup(context.Background(), Options{Level: LevelWarn}); err != nil {
		t.Fatalf("Setup() failed: %v", err)
	}
	defer SetLevel(LevelInfo)

	if GetLevel() != LevelWarn {
		t.Errorf("level = %v, want WARN", GetLevel())
	}
	if Logger.Enabled(context.Background(), LevelInfo) {
		t.Error("info should be filtered at WARN")
	}
	if err := Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() for JSON output = %v", err)
	}
}

func TestWarnAndErrorAlwaysCount(t *testing.T) {
	sampleRate.Store(1000)
	defer sampleRate.Store(1)

	warnings, errs := TotalWarnings.Load(), TotalErrors.Load()
	for i := 0; i < 10; i++ {
		Warn("sampled warning")
		Error("sampled error")
	}
	if TotalWarnings.Load()-warnings != 10 || TotalErrors.Load()-errs != 10 {
		t.Error("counters should ignore sampling")
	}
}

func TestObserveHTTP(t *testing.T) {
	c5, c4, c404, c401, slow := Total5xxErrors.Load(), Total4xxErrors.Load(), Total404Errors.Load(), Total401Errors.Load(), SlowRequests.Load()

	ObserveHTTP(200, time.Millisecond)
	ObserveHTTP(404, time.Millisecond)
	ObserveHTTP(401, time.Millisecond)
	ObserveHTTP(503, 3*time.Second)

	if Total5xxErrors.Load()-c5 != 1 || Total4xxErrors.Load()-c4 != 2 {
		t.Error("status class counters off")
	}
	if Total404Errors.Load()-c404 != 1 || Total401Errors.Load()-c401 != 1 {
		t.Error("specific status counters off")
	}
	if SlowRequests.Load()-slow != 1 {
		t.Error("slow request not counted")
	}
}

func TestComponent(t *testing.T) {
	if Component("store") == nil {
		t.Fatal("Component() returned nil")
	}
}
