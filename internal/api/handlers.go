// Product Analytics - Cohort Retention, Funnels, and A/B Experimentation
// Copyright 2026 Aakash Malhan
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Aakash-Malhan/product-analytics-ab-testing

package api

import (
	"time"

	"github.com/Aakash-Malhan/product-analytics-ab-testing/internal/config"
	"github.com/Aakash-Malhan/product-analytics-ab-testing/internal/database"
	"github.com/Aakash-Malhan/product-analytics-ab-testing/internal/models"
)

// Handler holds the dependencies for all HTTP handlers.
type Handler struct {
	db        *database.DB
	cfg       *config.Config
	report    *models.LoadReport
	startTime time.Time
}

// NewHandler creates the handler set. The load report comes from the ingest
// run that precedes serving; readiness reports degraded until events exist.
func NewHandler(db *database.DB, cfg *config.Config, report *models.LoadReport) *Handler {
	return &Handler{
		db:        db,
		cfg:       cfg,
		report:    report,
		startTime: time.Now(),
	}
}
