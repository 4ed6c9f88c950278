package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/liamcoop/fieldinsights/analytics"
	"github.com/liamcoop/fieldinsights/store"
)

func (s *Server) handleListFarmers(w http.ResponseWriter, r *http.Request) {
	farmers, err := s.store.ListFarmers(r.Context(), store.FarmerFilter{
		LocationContains: r.URL.Query().Get("region"),
	})
	if err != nil {
		fail(w, r, "failed to fetch farmers", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"farmers":     farmers,
		"total_count": len(farmers),
	})
}

func (s *Server) handleFarmerDetails(w http.ResponseWriter, r *http.Request) {
	farmerID := chi.URLParam(r, "farmerId")

	f, err := s.store.GetFarmer(r.Context(), farmerID)
	if err != nil {
		fail(w, r, "farmer not found", err)
		return
	}

	preds, err := s.store.ListPredictions(r.Context(), store.PredictionFilter{FarmerID: f.ID})
	if err != nil {
		fail(w, r, "failed to fetch predictions", err)
		return
	}
	alerts, err := s.store.ListAlerts(r.Context(), store.AlertFilter{FarmerID: f.ID})
	if err != nil {
		fail(w, r, "failed to fetch alerts", err)
		return
	}

	stats := FarmerStatistics{TotalPredictions: len(preds)}
	for _, p := range preds {
		if p.Validated {
			stats.ValidatedPredictions++
		}
	}
	for _, a := range alerts {
		if !a.IsResolved {
			stats.ActiveAlerts++
		}
	}

	respondJSON(w, http.StatusOK, FarmerDetailResponse{
		Farmer:      f,
		Predictions: preds,
		Alerts:      alerts,
		Statistics:  stats,
	})
}

func (s *Server) handleFarmerRecommendations(w http.ResponseWriter, r *http.Request) {
	farmerID := chi.URLParam(r, "farmerId")

	f, err := s.store.GetFarmer(r.Context(), farmerID)
	if err != nil {
		fail(w, r, "farmer not found", err)
		return
	}

	recent, err := s.store.ListPredictions(r.Context(), store.PredictionFilter{
		FarmerID: f.ID,
		Limit:    analytics.AdviceWindow,
	})
	if err != nil {
		fail(w, r, "failed to fetch predictions", err)
		return
	}
	unresolved, err := s.store.ListAlerts(r.Context(), store.AlertFilter{
		FarmerID:       f.ID,
		UnresolvedOnly: true,
	})
	if err != nil {
		fail(w, r, "failed to fetch alerts", err)
		return
	}

	respondJSON(w, http.StatusOK, analytics.FarmerAdvice(f, recent, unresolved))
}

func (s *Server) handlePendingPredictions(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", store.DefaultListLimit)
	if err != nil {
		fail(w, r, "invalid query", err)
		return
	}

	pending := false
	preds, err := s.store.ListPredictions(r.Context(), store.PredictionFilter{
		Validated: &pending,
		Limit:     limit,
	})
	if err != nil {
		fail(w, r, "failed to fetch pending predictions", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"predictions": preds,
		"total_count": len(preds),
	})
}

func (s *Server) handleValidatePrediction(w http.ResponseWriter, r *http.Request) {
	var req ValidatePredictionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, "invalid request body", err)
		return
	}
	if req.PredictionID == "" {
		respondError(w, http.StatusBadRequest, "prediction_id is required", nil)
		return
	}

	updated, err := s.store.ValidatePrediction(r.Context(), req.PredictionID, store.Validation{
		IsValid:        req.IsValid,
		Comments:       req.Comments,
		CorrectedValue: req.CorrectedValue,
		ValidatedBy:    currentUser(r).ID,
	})
	if err != nil {
		fail(w, r, "failed to validate prediction", err)
		return
	}

	respondSuccess(w, http.StatusOK, "Prediction validated successfully", map[string]any{
		"prediction_id":      req.PredictionID,
		"is_valid":           req.IsValid,
		"updated_prediction": updated,
	})
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	farmers, err := s.store.ListFarmers(ctx, store.FarmerFilter{})
	if err != nil {
		fail(w, r, "failed to fetch analytics", err)
		return
	}
	preds, err := s.store.ListPredictions(ctx, store.PredictionFilter{})
	if err != nil {
		fail(w, r, "failed to fetch analytics", err)
		return
	}
	active, err := s.store.ListAlerts(ctx, store.AlertFilter{UnresolvedOnly: true})
	if err != nil {
		fail(w, r, "failed to fetch analytics", err)
		return
	}

	counts := analytics.OverviewCounts{
		Farmers:      len(farmers),
		Predictions:  len(preds),
		ActiveAlerts: len(active),
	}
	for _, p := range preds {
		if p.Validated {
			counts.ValidatedPredictions++
		}
	}

	recent := preds
	if len(recent) > analytics.RecentWindow {
		recent = recent[:analytics.RecentWindow]
	}

	respondJSON(w, http.StatusOK, analytics.BuildOverview(counts, recent))
}
