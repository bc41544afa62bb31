// Product Analytics - Cohort Retention, Funnels, and A/B Experimentation
// Copyright 2026 Aakash Malhan
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Aakash-Malhan/product-analytics-ab-testing

package api

import (
	"net/http"
	"time"

	"github.com/Aakash-Malhan/product-analytics-ab-testing/internal/models"
)

// HealthStatus is the health endpoint payload.
type HealthStatus struct {
	Status            string             `json:"status"`
	Version           string             `json:"version"`
	DatabaseConnected bool               `json:"database_connected"`
	EventsLoaded      int64              `json:"events_loaded"`
	LoadReport        *models.LoadReport `json:"load_report,omitempty"`
	UptimeSeconds     float64            `json:"uptime_seconds"`
}

// Health returns overall system health including the last load report.
//
// Method: GET
// Path: /api/v1/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	dbConnected := h.db != nil && h.db.Ping(r.Context()) == nil

	var eventCount int64
	if dbConnected {
		if count, err := h.db.EventCount(r.Context()); err == nil {
			eventCount = count
		}
	}

	status := "healthy"
	if !dbConnected || eventCount == 0 {
		status = "degraded"
	}

	rw.Success(HealthStatus{
		Status:            status,
		Version:           "1.0.0",
		DatabaseConnected: dbConnected,
		EventsLoaded:      eventCount,
		LoadReport:        h.report,
		UptimeSeconds:     time.Since(h.startTime).Seconds(),
	})
}

// HealthLive is the liveness probe; it succeeds whenever the process serves
// requests.
//
// Method: GET
// Path: /api/v1/health/live
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, map[string]string{"status": "alive"})
}

// HealthReady is the readiness probe: the database must answer and events
// must be loaded before the API is ready to serve analytics.
//
// Method: GET
// Path: /api/v1/health/ready
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if h.db == nil || h.db.Ping(r.Context()) != nil {
		rw.ServiceUnavailable("database not available")
		return
	}

	count, err := h.db.EventCount(r.Context())
	if err != nil || count == 0 {
		rw.ServiceUnavailable("no events loaded")
		return
	}

	rw.Success(map[string]string{"status": "ready"})
}
