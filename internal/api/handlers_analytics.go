// Product Analytics - Cohort Retention, Funnels, and A/B Experimentation
// Copyright 2026 Aakash Malhan
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Aakash-Malhan/product-analytics-ab-testing

// This file contains the analytics endpoints: cohort retention, activation
// funnel, product KPIs, and the raw event sample. Statistics are computed in
// the database package; handlers parse parameters and shape responses.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Aakash-Malhan/product-analytics-ab-testing/internal/database"
	"github.com/Aakash-Malhan/product-analytics-ab-testing/internal/metrics"
)

// AnalyticsRetention returns cohort-based user retention analysis.
//
// Method: GET
// Path: /api/v1/analytics/retention
//
// Query Parameters:
//   - max_weeks: Maximum weeks to track per cohort (default from config, max: 52)
//   - min_cohort_size: Minimum users to include a cohort (default from config)
func (h *Handler) AnalyticsRetention(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	cohortCfg := database.CohortRetentionConfig{
		MaxWeeks:      h.cfg.Analytics.MaxWeeks,
		MinCohortSize: h.cfg.Analytics.MinCohortSize,
		Granularity:   h.cfg.Analytics.CohortGranularity,
	}

	if maxWeeks := r.URL.Query().Get("max_weeks"); maxWeeks != "" {
		val, err := strconv.Atoi(maxWeeks)
		if err != nil || val <= 0 || val > 52 {
			rw.BadRequest("max_weeks must be an integer between 1 and 52")
			return
		}
		cohortCfg.MaxWeeks = val
	}

	if minSize := r.URL.Query().Get("min_cohort_size"); minSize != "" {
		val, err := strconv.Atoi(minSize)
		if err != nil || val <= 0 {
			rw.BadRequest("min_cohort_size must be a positive integer")
			return
		}
		cohortCfg.MinCohortSize = val
	}

	start := time.Now()
	result, err := h.db.GetCohortRetentionAnalytics(r.Context(), cohortCfg)
	metrics.RecordDBQuery("cohort", time.Since(start), err)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.Success(result)
}

// AnalyticsFunnel returns the three-step activation funnel.
//
// Method: GET
// Path: /api/v1/analytics/funnel
//
// Query Parameters:
//   - include_records: "true" to include per-user funnel outcomes
func (h *Handler) AnalyticsFunnel(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	funnelCfg := database.FunnelConfig{
		ActivationMinViews:   h.cfg.Analytics.ActivationMinViews,
		ActivationWindowDays: h.cfg.Analytics.ActivationWindowDays,
	}

	includeRecords := r.URL.Query().Get("include_records") == "true"

	start := time.Now()
	result, err := h.db.GetFunnelAnalytics(r.Context(), funnelCfg, includeRecords)
	metrics.RecordDBQuery("funnel", time.Since(start), err)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.Success(result)
}

// AnalyticsKPIs returns headline engagement numbers for the dashboard.
//
// Method: GET
// Path: /api/v1/analytics/kpis
func (h *Handler) AnalyticsKPIs(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	start := time.Now()
	result, err := h.db.GetProductKPIs(r.Context())
	metrics.RecordDBQuery("kpi", time.Since(start), err)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.Success(result)
}

// EventsSample returns the earliest loaded events for inspection.
//
// Method: GET
// Path: /api/v1/events/sample
//
// Query Parameters:
//   - limit: Maximum rows to return (default and cap from config)
func (h *Handler) EventsSample(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	limit := h.cfg.API.DefaultSampleLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		val, err := strconv.Atoi(raw)
		if err != nil || val <= 0 {
			rw.BadRequest("limit must be a positive integer")
			return
		}
		limit = val
	}
	if limit > h.cfg.API.MaxSampleLimit {
		limit = h.cfg.API.MaxSampleLimit
	}

	events, err := h.db.GetEventSample(r.Context(), limit)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.Success(map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}
