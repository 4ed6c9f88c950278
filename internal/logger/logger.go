// Package logger holds the process-wide structured logger. Output is JSON on
// stdout, or OpenTelemetry logs over OTLP gRPC when OTEL_ENABLED=true.
// Warnings and errors are sampled but always counted so /metrics stays exact.
package logger

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	LevelTrace = slog.Level(-8)
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
	LevelFatal = slog.Level(12)
)

// DefaultServiceName identifies this service in exported logs
const DefaultServiceName = "fieldinsights"

// SlowRequestThreshold marks a request as slow in the HTTP helpers
const SlowRequestThreshold = 2 * time.Second

var (
	// Logger is the process-wide logger. It is usable before Setup runs.
	Logger *slog.Logger

	programLevel = new(slog.LevelVar)
	sampleRate   atomic.Int32
	shutdownFunc func(context.Context) error
)

// Counters exported through /metrics. They count every event, sampled or not.
var (
	TotalErrors    atomic.Int64
	TotalWarnings  atomic.Int64
	Total5xxErrors atomic.Int64
	Total4xxErrors atomic.Int64
	Total400Errors atomic.Int64
	Total401Errors atomic.Int64
	Total404Errors atomic.Int64
	SlowRequests   atomic.Int64
	ModelFallbacks atomic.Int64
)

func init() {
	sampleRate.Store(1)
	programLevel.Set(slog.LevelInfo)
	Logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: programLevel}))
}

// Options configures Setup
type Options struct {
	Level       slog.Level
	SampleRate  int
	OTEL        bool
	ServiceName string
}

// OptionsFromEnv reads LOG_LEVEL, ERROR_SAMPLE_RATE, OTEL_ENABLED and
// OTEL_SERVICE_NAME. Unset or invalid values keep their defaults.
func OptionsFromEnv() Options {
	opts := Options{Level: LevelInfo, SampleRate: 1, ServiceName: DefaultServiceName}

	if lvl, err := ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		opts.Level = lvl
	}
	if rate, err := strconv.Atoi(os.Getenv("ERROR_SAMPLE_RATE")); err == nil && rate > 0 {
		opts.SampleRate = rate
	}
	opts.OTEL = strings.EqualFold(os.Getenv("OTEL_ENABLED"), "true")
	if name := os.Getenv("OTEL_SERVICE_NAME"); name != "" {
		opts.ServiceName = name
	}
	return opts
}

// Setup installs the process logger. When OTEL setup fails it falls back to
// JSON and returns the error so the caller can report it.
func Setup(ctx context.Context, opts Options) error {
	programLevel.Set(opts.Level)
	if opts.SampleRate < 1 {
		opts.SampleRate = 1
	}
	sampleRate.Store(int32(opts.SampleRate))
	if opts.ServiceName == "" {
		opts.ServiceName = DefaultServiceName
	}

	if !opts.OTEL {
		useJSON()
		return nil
	}

	shutdown, err := useOTEL(ctx, opts.ServiceName)
	if err != nil {
		useJSON()
		return fmt.Errorf("otel logging unavailable, using json: %w", err)
	}
	shutdownFunc = shutdown
	return nil
}

func useJSON() {
	Logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: programLevel}))
	slog.SetDefault(Logger)
}

func useOTEL(ctx context.Context, serviceName string) (func(context.Context) error, error) {
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	exporter, err := otlploggrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	provider := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)

	handler := otelslog.NewHandler(serviceName, otelslog.WithLoggerProvider(provider))
	Logger = slog.New(&levelHandler{level: programLevel, handler: handler})
	slog.SetDefault(Logger)

	return provider.Shutdown, nil
}

// levelHandler applies the program level to a handler that has none
type levelHandler struct {
	level   slog.Leveler
	handler slog.Handler
}

func (h *levelHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *levelHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.handler.Handle(ctx, r)
}

func (h *levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelHandler{level: h.level, handler: h.handler.WithAttrs(attrs)}
}

func (h *levelHandler) WithGroup(name string) slog.Handler {
	return &levelHandler{level: h.level, handler: h.handler.WithGroup(name)}
}

// Shutdown flushes exported logs. It is a no-op for JSON output.
func Shutdown(ctx context.Context) error {
	if shutdownFunc != nil {
		return shutdownFunc(ctx)
	}
	return nil
}

// Component returns a logger tagged with the component name
func Component(name string) *slog.Logger {
	return Logger.With("component", name)
}

// SetLevel changes the minimum level at runtime
func SetLevel(level slog.Level) {
	programLevel.Set(level)
}

// GetLevel returns the minimum level
func GetLevel() slog.Level {
	return programLevel.Level()
}

// ParseLevel converts a level name to slog.Level
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace, nil
	case "DEBUG":
		return LevelDebug, nil
	case "INFO":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	case "FATAL":
		return LevelFatal, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// shouldSample keeps one in every sampleRate messages
func shouldSample() bool {
	rate := sampleRate.Load()
	if rate <= 1 {
		return true
	}
	return rand.Intn(int(rate)) == 0
}

func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

// Warn counts every call and logs a sample
func Warn(msg string, args ...any) {
	TotalWarnings.Add(1)
	if shouldSample() {
		Logger.Warn(msg, args...)
	}
}

// Error counts every call and logs a sample
func Error(msg string, args ...any) {
	TotalErrors.Add(1)
	if shouldSample() {
		Logger.Error(msg, args...)
	}
}

// Fatal logs, flushes and exits
func Fatal(msg string, args ...any) {
	Logger.Log(context.Background(), LevelFatal, msg, args...)
	_ = Shutdown(context.Background())
	os.Exit(1)
}

// ObserveHTTP updates the HTTP counters for a finished request
func ObserveHTTP(status int, elapsed time.Duration) {
	switch {
	case status >= 500:
		Total5xxErrors.Add(1)
		TotalErrors.Add(1)
	case status >= 400:
		Total4xxErrors.Add(1)
		TotalWarnings.Add(1)
		switch status {
		case 400:
			Total400Errors.Add(1)
		case 401:
			Total401Errors.Add(1)
		case 404:
			Total404Errors.Add(1)
		}
	}
	if elapsed >= SlowRequestThreshold {
		SlowRequests.Add(1)
		TotalWarnings.Add(1)
	}
}

// WarnModelFallback counts a model failure that fell back to the rules
func WarnModelFallback() {
	ModelFallbacks.Add(1)
	TotalWarnings.Add(1)
}
