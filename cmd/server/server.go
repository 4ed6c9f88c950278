package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/liamcoop/fieldinsights/alertrules"
	"github.com/liamcoop/fieldinsights/auth"
	"github.com/liamcoop/fieldinsights/insights"
	"github.com/liamcoop/fieldinsights/internal/logger"
	"github.com/liamcoop/fieldinsights/internal/metrics"
	"github.com/liamcoop/fieldinsights/store"
)

// Deps are the collaborators a Server is built from. Store and Rules are
// required; the models may be nil.
type Deps struct {
	Store store.Store
	Rules alertrules.RuleStore
	// DB is pinged by the health check when the stores are Postgres-backed
	DB *sql.DB

	YieldModel  insights.Regressor
	HealthModel insights.Regressor

	SessionTTL     time.Duration
	RulesCacheTTL  time.Duration
	RequestTimeout time.Duration
	BcryptCost     int
	Now            func() time.Time
}

type Server struct {
	store   store.Store
	db      *sql.DB
	auth    *auth.Service
	engine  *alertrules.Engine
	metrics *metrics.Metrics

	yieldModel  insights.Regressor
	healthModel insights.Regressor
	yield       *insights.YieldEstimator
	health      *insights.HealthClassifier
	alerts      *insights.AlertSynthesizer

	timeout time.Duration
	now     func() time.Time
	log     *slog.Logger
	router  *chi.Mux
}

func NewServer(d Deps) (*Server, error) {
	if d.Store == nil || d.Rules == nil {
		return nil, errors.New("store and rule store are required")
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 60 * time.Second
	}

	engine, err := alertrules.NewEngine(d.Rules,
		alertrules.WithCache(alertrules.NewInMemoryRulesCache(alertrules.CacheConfig{TTL: d.RulesCacheTTL})),
		alertrules.WithLogger(logger.Component("alertrules")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create alert rules engine: %w", err)
	}

	authOpts := []auth.Option{
		auth.WithClock(d.Now),
		auth.WithLogger(logger.Component("auth")),
	}
	if d.SessionTTL > 0 {
		authOpts = append(authOpts, auth.WithSessionTTL(d.SessionTTL))
	}
	if d.BcryptCost > 0 {
		authOpts = append(authOpts, auth.WithBcryptCost(d.BcryptCost))
	}

	coreOpts := []insights.Option{
		insights.WithLogger(logger.Component("insights")),
		insights.WithClock(d.Now),
	}

	s := &Server{
		store:       d.Store,
		db:          d.DB,
		auth:        auth.NewService(d.Store, authOpts...),
		engine:      engine,
		metrics:     metrics.New(),
		yieldModel:  d.YieldModel,
		healthModel: d.HealthModel,
		yield:       insights.NewYieldEstimator(d.YieldModel, coreOpts...),
		health:      insights.NewHealthClassifier(d.HealthModel, coreOpts...),
		alerts:      insights.NewAlertSynthesizer(engine),
		timeout:     d.RequestTimeout,
		now:         d.Now,
		log:         logger.Component("http"),
	}

	s.setupRoutes()

	return s, nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.timeout))

	r.Get("/api/v1/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/signup", s.handleSignup)
		r.Post("/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)
			r.Get("/me", s.handleMe)
			r.Post("/logout", s.handleLogout)
			r.Post("/refresh", s.handleRefresh)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		// Decision core, open to every role
		r.Route("/api/v1/ml", func(r chi.Router) {
			r.Post("/predict-yield", s.handlePredictYield)
			r.Post("/crop-health", s.handleCropHealth)
			r.Post("/alerts", s.handleGenerateAlerts)
			r.Get("/model-info", s.handleModelInfo)
		})

		r.Route("/api/v1/farmer", func(r chi.Router) {
			r.Use(requireGroup(auth.RoleFarmer))
			r.Get("/profile", s.handleGetProfile)
			r.Put("/profile", s.handleUpdateProfile)
			r.Post("/field-data", s.handleFieldData)
			r.Get("/predictions", s.handleMyPredictions)
			r.Get("/alerts", s.handleMyAlerts)
			r.Put("/alerts/{alertId}/read", s.handleMarkAlertRead)
		})

		r.Route("/api/v1/agronomist", func(r chi.Router) {
			r.Use(requireGroup(auth.RoleAgronomist))
			r.Get("/farmers", s.handleListFarmers)
			r.Get("/farmers/{farmerId}", s.handleFarmerDetails)
			r.Get("/farmers/{farmerId}/recommendations", s.handleFarmerRecommendations)
			r.Get("/predictions/pending", s.handlePendingPredictions)
			r.Post("/predictions/validate", s.handleValidatePrediction)
			r.Get("/analytics/overview", s.handleOverview)

			r.Route("/alert-rules", func(r chi.Router) {
				r.Get("/", s.handleListRules)
				r.Post("/", s.handleCreateRule)
				r.Post("/evaluate", s.handleEvaluateRules)
				r.Get("/{ruleId}", s.handleGetRule)
				r.Put("/{ruleId}", s.handleUpdateRule)
				r.Delete("/{ruleId}", s.handleDeleteRule)
			})
		})

		r.Route("/api/v1/researcher", func(r chi.Router) {
			r.Use(requireGroup(auth.RoleResearcher))
			r.Get("/aggregate-data", s.handleAggregateData)
			r.Get("/download-dataset", s.handleDownloadDataset)
			r.Post("/research-data", s.handleCreateResearchData)
			r.Get("/research-data", s.handleListResearchData)
			r.Get("/analytics/trends", s.handleTrends)
		})
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// instrument logs each request and records its latency and status
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		elapsed := time.Since(start)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}

		logger.ObserveHTTP(status, elapsed)
		s.metrics.ObserveRequest(r.Method, route, status, elapsed)

		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case elapsed >= logger.SlowRequestThreshold:
			level = slog.LevelWarn
		}
		s.log.Log(r.Context(), level, "request",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("route", route),
			slog.Int("status", status),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Duration("elapsed", elapsed),
		)
	})
}

type ctxKey int

const (
	userKey ctxKey = iota
	tokenKey
)

// authenticate resolves the bearer token into the calling user
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			respondError(w, http.StatusUnauthorized, "missing bearer token", auth.ErrUnauthenticated)
			return
		}
		token = strings.TrimSpace(token)

		user, err := s.auth.Authenticate(r.Context(), token)
		if err != nil {
			if statusFor(err) == http.StatusUnauthorized {
				w.Header().Set("WWW-Authenticate", "Bearer")
			}
			fail(w, r, "authentication failed", err)
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		ctx = context.WithValue(ctx, tokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireGroup admits only users whose role owns the route group
func requireGroup(role auth.Role) func(http.Handler) http.Handler {
	group, err := role.RouteGroup()
	if err != nil {
		panic(err)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := currentUser(r)
			if user == nil || !auth.Role(user.Role).Allows(group) {
				respondError(w, http.StatusForbidden,
					fmt.Sprintf("only %s accounts can access this endpoint", role), auth.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func currentUser(r *http.Request) *store.User {
	u, _ := r.Context().Value(userKey).(*store.User)
	return u
}

func currentToken(r *http.Request) string {
	t, _ := r.Context().Value(tokenKey).(string)
	return t
}

// Health check handler
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "healthy", Storage: "memory"}
	if s.yieldModel != nil {
		resp.ModelsLoaded++
	}
	if s.healthModel != nil {
		resp.ModelsLoaded++
	}

	if s.db != nil {
		resp.Storage = "postgres"
		if err := s.db.PingContext(r.Context()); err != nil {
			resp.Status = "unhealthy"
			resp.Error = err.Error()
			respondJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

// observeYield records an estimate and counts a model fallback
func (s *Server) observeYield(res *insights.YieldResult) {
	s.metrics.ObservePrediction("yield", res.Source)
	if s.yield.HasModel() && res.Source == insights.SourceRuleBased {
		logger.WarnModelFallback()
	}
}

func (s *Server) observeHealth(res *insights.HealthResult) {
	s.metrics.ObservePrediction("health", res.Source)
	if s.health.HasModel() && res.Source == insights.SourceRuleBased {
		logger.WarnModelFallback()
	}
}
