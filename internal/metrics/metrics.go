// Package metrics registers the Prometheus collectors served at /metrics
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/liamcoop/fieldinsights/insights"
	"github.com/liamcoop/fieldinsights/internal/logger"
)

// Metrics owns a registry and the collectors recorded by the server
type Metrics struct {
	registry *prometheus.Registry

	predictions     *prometheus.CounterVec
	alerts          *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fieldinsights_predictions_total",
			Help: "Estimates produced, by kind and strategy.",
		}, []string{"kind", "source"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fieldinsights_alerts_total",
			Help: "Alerts synthesized, by type and severity.",
		}, []string{"type", "severity"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fieldinsights_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		m.predictions,
		m.alerts,
		m.requestDuration,
		counterFunc("fieldinsights_log_errors_total", "Errors logged, before sampling.", logger.TotalErrors.Load),
		counterFunc("fieldinsights_log_warnings_total", "Warnings logged, before sampling.", logger.TotalWarnings.Load),
		counterFunc("fieldinsights_model_fallbacks_total", "Model failures answered by the rule-based strategy.", logger.ModelFallbacks.Load),
		counterFunc("fieldinsights_slow_requests_total", "Requests slower than the slow-request threshold.", logger.SlowRequests.Load),
		counterFunc("fieldinsights_http_client_errors_total", "Responses with a 4xx status.", logger.Total4xxErrors.Load),
		counterFunc("fieldinsights_http_server_errors_total", "Responses with a 5xx status.", logger.Total5xxErrors.Load),
		counterFunc("fieldinsights_http_unauthorized_total", "Responses with a 401 status.", logger.Total401Errors.Load),
	)
	return m
}

func counterFunc(name, help string, load func() int64) prometheus.CounterFunc {
	return prometheus.NewCounterFunc(prometheus.CounterOpts{Name: name, Help: help}, func() float64 {
		return float64(load())
	})
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObservePrediction counts one estimate
func (m *Metrics) ObservePrediction(kind string, source insights.Source) {
	m.predictions.WithLabelValues(kind, string(source)).Inc()
}

// ObserveAlerts counts synthesized alerts
func (m *Metrics) ObserveAlerts(alerts []insights.Alert) {
	for _, a := range alerts {
		m.alerts.WithLabelValues(string(a.Type), string(a.Severity)).Inc()
	}
}

// ObserveRequest records a finished HTTP request
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
