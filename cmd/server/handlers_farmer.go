package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/liamcoop/fieldinsights/insights"
	"github.com/liamcoop/fieldinsights/store"
)

// myFarmer loads the profile of the calling farmer
func (s *Server) myFarmer(r *http.Request) (*store.Farmer, error) {
	f, err := s.store.GetFarmerByUser(r.Context(), currentUser(r).ID)
	if err != nil {
		return nil, fmt.Errorf("farmer profile: %w", err)
	}
	return f, nil
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	f, err := s.myFarmer(r)
	if err != nil {
		fail(w, r, "failed to fetch farmer profile", err)
		return
	}
	respondJSON(w, http.StatusOK, f)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var upd store.FarmerUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		fail(w, r, "invalid request body", err)
		return
	}
	if upd.Empty() {
		respondError(w, http.StatusBadRequest, "No data provided for update", nil)
		return
	}

	f, err := s.myFarmer(r)
	if err != nil {
		fail(w, r, "failed to update profile", err)
		return
	}

	updated, err := s.store.UpdateFarmer(r.Context(), f.ID, upd)
	if err != nil {
		fail(w, r, "failed to update profile", err)
		return
	}

	respondSuccess(w, http.StatusOK, "Profile updated successfully", updated)
}

// handleFieldData runs the yield estimator on a field submission, stores the
// prediction and stores any alerts the readings warrant
func (s *Server) handleFieldData(w http.ResponseWriter, r *http.Request) {
	var obs insights.FieldObservation
	if err := decodeJSON(w, r, &obs); err != nil {
		fail(w, r, "invalid request body", err)
		return
	}

	f, err := s.myFarmer(r)
	if err != nil {
		fail(w, r, "failed to add field data", err)
		return
	}

	if err := insights.ValidateFieldData(obs); err != nil {
		fail(w, r, "failed to add field data", err)
		return
	}

	res, err := s.yield.Estimate(r.Context(), obs)
	if err != nil {
		fail(w, r, "failed to add field data", err)
		return
	}
	s.observeYield(res)

	pred := &store.Prediction{
		FarmerID:        f.ID,
		Crop:            res.Crop,
		Value:           res.PredictedYield,
		Confidence:      res.Confidence,
		Source:          res.Source,
		Input:           obs,
		Recommendations: res.Recommendations,
	}
	if err := s.store.AddPrediction(r.Context(), pred); err != nil {
		fail(w, r, "failed to store prediction", err)
		return
	}

	alerts := insights.FieldAlerts(obs)
	s.metrics.ObserveAlerts(alerts)

	// The prediction is already stored, so an alert write failure only
	// drops that alert from the response.
	records := make([]*store.AlertRecord, 0, len(alerts))
	for _, a := range alerts {
		rec := store.NewAlertRecord(f.ID, a)
		if err := s.store.AddAlert(r.Context(), rec); err != nil {
			s.log.Error("failed to store field alert, keeping prediction",
				slog.String("prediction_id", pred.ID),
				slog.String("farmer_id", f.ID),
				slog.String("alert", a.Title),
				slog.Any("error", err),
			)
			continue
		}
		records = append(records, rec)
	}

	respondSuccess(w, http.StatusCreated, "Field data added and prediction generated successfully", FieldDataResponse{
		Prediction:      pred,
		AlertsGenerated: records,
	})
}

func (s *Server) handleMyPredictions(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		fail(w, r, "invalid query", err)
		return
	}

	f, err := s.myFarmer(r)
	if err != nil {
		fail(w, r, "failed to fetch predictions", err)
		return
	}

	preds, err := s.store.ListPredictions(r.Context(), store.PredictionFilter{FarmerID: f.ID, Limit: limit})
	if err != nil {
		fail(w, r, "failed to fetch predictions", err)
		return
	}
	respondJSON(w, http.StatusOK, preds)
}

func (s *Server) handleMyAlerts(w http.ResponseWriter, r *http.Request) {
	f, err := s.myFarmer(r)
	if err != nil {
		fail(w, r, "failed to fetch alerts", err)
		return
	}

	alerts, err := s.store.ListAlerts(r.Context(), store.AlertFilter{
		FarmerID:       f.ID,
		UnresolvedOnly: r.URL.Query().Get("unresolved") == "true",
	})
	if err != nil {
		fail(w, r, "failed to fetch alerts", err)
		return
	}
	respondJSON(w, http.StatusOK, alerts)
}

func (s *Server) handleMarkAlertRead(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "alertId")

	f, err := s.myFarmer(r)
	if err != nil {
		fail(w, r, "failed to mark alert as read", err)
		return
	}

	if err := s.store.MarkAlertRead(r.Context(), f.ID, alertID); err != nil {
		fail(w, r, "alert not found", err)
		return
	}
	respondSuccess(w, http.StatusOK, "Alert marked as read", nil)
}
