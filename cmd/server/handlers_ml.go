package main

import (
	"net/http"

	"github.com/liamcoop/fieldinsights/insights"
	"github.com/liamcoop/fieldinsights/regression"
)

func (s *Server) handlePredictYield(w http.ResponseWriter, r *http.Request) {
	var obs insights.FieldObservation
	if err := decodeJSON(w, r, &obs); err != nil {
		fail(w, r, "invalid request body", err)
		return
	}

	res, err := s.yield.Estimate(r.Context(), obs)
	if err != nil {
		fail(w, r, "yield prediction failed", err)
		return
	}
	s.observeYield(res)

	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleCropHealth(w http.ResponseWriter, r *http.Request) {
	var obs insights.CropHealthObservation
	if err := decodeJSON(w, r, &obs); err != nil {
		fail(w, r, "invalid request body", err)
		return
	}

	res, err := s.health.Classify(r.Context(), obs)
	if err != nil {
		fail(w, r, "crop health analysis failed", err)
		return
	}
	s.observeHealth(res)

	respondJSON(w, http.StatusOK, res)
}

// handleGenerateAlerts synthesizes alerts for a conditions snapshot. The
// optional farmer_id query parameter is echoed back.
func (s *Server) handleGenerateAlerts(w http.ResponseWriter, r *http.Request) {
	var cond insights.Conditions
	if err := decodeJSON(w, r, &cond); err != nil {
		fail(w, r, "invalid request body", err)
		return
	}
	if err := insights.ValidateConditions(cond); err != nil {
		fail(w, r, "alert generation failed", err)
		return
	}

	alerts := s.alerts.Synthesize(cond)
	s.metrics.ObserveAlerts(alerts)

	respondJSON(w, http.StatusOK, AlertsResponse{
		FarmerID:           r.URL.Query().Get("farmer_id"),
		GeneratedAt:        s.now(),
		Conditions:         cond,
		Alerts:             alerts,
		TotalAlerts:        len(alerts),
		HighPriorityAlerts: insights.CountUrgent(alerts),
	})
}

func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	resp := ModelInfoResponse{
		LoadedModels: []string{},
		ModelDetails: map[string]regression.Info{
			"yield_model":       regression.Describe(s.yieldModel),
			"crop_health_model": regression.Describe(s.healthModel),
		},
	}
	for _, name := range []string{"yield_model", "crop_health_model"} {
		if resp.ModelDetails[name].Loaded {
			resp.LoadedModels = append(resp.LoadedModels, name)
		}
	}

	rules, err := s.engine.ListRules()
	if err != nil {
		fail(w, r, "failed to list alert rules", err)
		return
	}
	for _, rule := range rules {
		if rule.Active {
			resp.CustomAlertRules++
		}
	}

	respondJSON(w, http.StatusOK, resp)
}
