package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/liamcoop/fieldinsights/alertrules"
	"github.com/liamcoop/fieldinsights/analytics"
	"github.com/liamcoop/fieldinsights/auth"
	"github.com/liamcoop/fieldinsights/insights"
	"github.com/liamcoop/fieldinsights/internal/logger"
	"github.com/liamcoop/fieldinsights/store"
)

const maxBodyBytes = 1 << 20

// errBadRequest marks malformed requests that never reached the domain layer
var errBadRequest = errors.New("bad request")

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := ErrorResponse{Error: message}
	if err != nil {
		response.Details = err.Error()
	}
	respondJSON(w, status, response)
}

func respondSuccess(w http.ResponseWriter, status int, message string, data any) {
	respondJSON(w, status, SuccessResponse{Success: true, Message: message, Data: data})
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	var verr *insights.ValidationError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, errBadRequest),
		errors.Is(err, auth.ErrInvalidInput),
		errors.Is(err, alertrules.ErrInvalidRule):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInactive),
		errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, alertrules.ErrRuleNotFound),
		errors.Is(err, analytics.ErrNoData):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict),
		errors.Is(err, auth.ErrEmailTaken),
		errors.Is(err, alertrules.ErrRuleExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail responds with the status matching err. Server errors are logged.
func fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error(message,
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
	}
	respondError(w, status, message, err)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// queryInt reads a non-negative integer query parameter, returning def when
// it is absent
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", errBadRequest, name)
	}
	return n, nil
}
