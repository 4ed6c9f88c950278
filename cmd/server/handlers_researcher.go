package main

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/liamcoop/fieldinsights/analytics"
	"github.com/liamcoop/fieldinsights/store"
)

const defaultDaysBack = 30

// since reads days_back and returns the start of the window
func (s *Server) since(r *http.Request) (time.Time, error) {
	days, err := queryInt(r, "days_back", defaultDaysBack)
	if err != nil {
		return time.Time{}, err
	}
	return s.now().AddDate(0, 0, -days), nil
}

func (s *Server) handleAggregateData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	since, err := s.since(r)
	if err != nil {
		fail(w, r, "invalid query", err)
		return
	}

	farmers, err := s.store.ListFarmers(ctx, store.FarmerFilter{LocationContains: q.Get("region")})
	if err != nil {
		fail(w, r, "failed to fetch aggregated data", err)
		return
	}
	preds, err := s.store.ListPredictions(ctx, store.PredictionFilter{
		Crop:  q.Get("crop_type"),
		Since: since,
	})
	if err != nil {
		fail(w, r, "failed to fetch aggregated data", err)
		return
	}
	alerts, err := s.store.ListAlerts(ctx, store.AlertFilter{Since: since})
	if err != nil {
		fail(w, r, "failed to fetch aggregated data", err)
		return
	}

	respondJSON(w, http.StatusOK, analytics.BuildAggregate(len(farmers), preds, alerts))
}

// handleDownloadDataset exports predictions, farmers or alerts as CSV or JSON
func (s *Server) handleDownloadDataset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	dataset, err := analytics.ParseDataset(q.Get("dataset_type"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid dataset type", err)
		return
	}
	format, err := analytics.ParseFormat(strings.ToLower(q.Get("format")))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid format", err)
		return
	}
	since, err := s.since(r)
	if err != nil {
		fail(w, r, "invalid query", err)
		return
	}

	var table analytics.Table
	switch dataset {
	case analytics.DatasetPredictions:
		preds, err := s.store.ListPredictions(ctx, store.PredictionFilter{
			Crop:             q.Get("crop_type"),
			LocationContains: q.Get("region"),
			Since:            since,
		})
		if err != nil {
			fail(w, r, "failed to generate dataset", err)
			return
		}
		table = analytics.PredictionTable(preds)
	case analytics.DatasetFarmers:
		farmers, err := s.store.ListFarmers(ctx, store.FarmerFilter{LocationContains: q.Get("region")})
		if err != nil {
			fail(w, r, "failed to generate dataset", err)
			return
		}
		table = analytics.FarmerTable(farmers)
	case analytics.DatasetAlerts:
		alerts, err := s.store.ListAlerts(ctx, store.AlertFilter{Since: since})
		if err != nil {
			fail(w, r, "failed to generate dataset", err)
			return
		}
		table = analytics.AlertTable(alerts)
	}

	var buf bytes.Buffer
	if format == analytics.FormatJSON {
		err = analytics.WriteJSON(&buf, table)
	} else {
		err = analytics.WriteCSV(&buf, table)
	}
	if err != nil {
		fail(w, r, "failed to generate dataset", err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%s", analytics.Filename(dataset, format, s.now())))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

func (s *Server) handleCreateResearchData(w http.ResponseWriter, r *http.Request) {
	var req ResearchDataRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, r, "invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		respondError(w, http.StatusBadRequest, "title is required", nil)
		return
	}

	item := &store.ResearchData{
		ResearcherID:      currentUser(r).ID,
		Title:             req.Title,
		Description:       req.Description,
		Region:            req.Region,
		CropType:          req.CropType,
		Season:            req.Season,
		AggregatedResults: req.AggregatedResults,
		NDVIScores:        req.NDVIScores,
		YieldPredictions:  req.YieldPredictions,
		DataSource:        "researcher_input",
	}
	if err := s.store.AddResearchData(r.Context(), item); err != nil {
		fail(w, r, "failed to create research data", err)
		return
	}

	respondSuccess(w, http.StatusCreated, "Research data created successfully", item)
}

func (s *Server) handleListResearchData(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", store.DefaultListLimit)
	if err != nil {
		fail(w, r, "invalid query", err)
		return
	}

	items, err := s.store.ListResearchData(r.Context(), store.ResearchFilter{
		Region:   r.URL.Query().Get("region"),
		CropType: r.URL.Query().Get("crop_type"),
		Limit:    limit,
	})
	if err != nil {
		fail(w, r, "failed to fetch research data", err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	period, err := analytics.ParsePeriod(q.Get("time_period"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid time period", err)
		return
	}

	crop, region := q.Get("crop_type"), q.Get("region")
	preds, err := s.store.ListPredictions(r.Context(), store.PredictionFilter{
		Crop:             crop,
		LocationContains: region,
		Limit:            analytics.TrendsLimit,
	})
	if err != nil {
		fail(w, r, "failed to fetch trends", err)
		return
	}

	trends := analytics.BuildTrends(period, preds)
	if crop != "" {
		trends.CropType = &crop
	}
	if region != "" {
		trends.Region = &region
	}
	respondJSON(w, http.StatusOK, trends)
}
