// Product Analytics - Cohort Retention, Funnels, and A/B Experimentation
// Copyright 2026 Aakash Malhan
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Aakash-Malhan/product-analytics-ab-testing

package api

import (
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/Aakash-Malhan/product-analytics-ab-testing/internal/experiment"
	"github.com/Aakash-Malhan/product-analytics-ab-testing/internal/logging"
	"github.com/Aakash-Malhan/product-analytics-ab-testing/internal/metrics"
	"github.com/Aakash-Malhan/product-analytics-ab-testing/internal/validation"
)

// maxExperimentBodySize caps the experiment run request body.
const maxExperimentBodySize = 4 * 1024

// ExperimentRunRequest overrides experiment parameters for a single run.
// Absent fields fall back to configuration.
type ExperimentRunRequest struct {
	// LiftPct is the simulated multiplicative treatment lift, e.g. 0.12
	// for +12%. Negative values simulate a harmful treatment.
	LiftPct *float64 `json:"lift_pct,omitempty" validate:"omitempty,gte=-1,lte=10"`

	Seed           *int64   `json:"seed,omitempty"`
	TreatmentRatio *float64 `json:"treatment_ratio,omitempty" validate:"omitempty,gt=0,lt=1"`

	MetricWindowDays    *int  `json:"metric_window_days,omitempty" validate:"omitempty,min=2,max=90"`
	CovariateWindowDays *int  `json:"covariate_window_days,omitempty" validate:"omitempty,min=1,max=89"`
	CUPEDEnabled        *bool `json:"cuped_enabled,omitempty"`
}

// ExperimentRun executes a full A/B experiment over the loaded events and
// returns the report.
//
// Method: POST
// Path: /api/v1/experiment/run
//
// Body: ExperimentRunRequest (all fields optional; empty body runs with
// configured defaults).
func (h *Handler) ExperimentRun(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req ExperimentRunRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, maxExperimentBodySize))
	if err != nil {
		rw.BadRequest("failed to read request body")
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			rw.BadRequest("invalid JSON body: " + err.Error())
			return
		}
	}

	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.ValidationError("invalid experiment parameters", verr.Fields())
		return
	}

	// Per-run overrides on top of the configured experiment defaults
	expCfg := h.cfg.Experiment
	if req.Seed != nil {
		expCfg.Seed = *req.Seed
	}
	if req.TreatmentRatio != nil {
		expCfg.TreatmentRatio = *req.TreatmentRatio
	}
	if req.MetricWindowDays != nil {
		expCfg.MetricWindowDays = *req.MetricWindowDays
	}
	if req.CovariateWindowDays != nil {
		expCfg.CovariateWindowDays = *req.CovariateWindowDays
	}
	if req.CUPEDEnabled != nil {
		expCfg.CUPEDEnabled = *req.CUPEDEnabled
	}
	if expCfg.CovariateWindowDays >= expCfg.MetricWindowDays {
		rw.BadRequest("covariate_window_days must be shorter than metric_window_days")
		return
	}

	params := experiment.RunParams{UseDefaultLift: true}
	if req.LiftPct != nil {
		params = experiment.RunParams{LiftPct: *req.LiftPct}
	}

	start := time.Now()

	userMetrics, err := h.db.GetUserMetrics(r.Context(), expCfg.MetricWindowDays, expCfg.CovariateWindowDays)
	metrics.RecordDBQuery("user_metrics", time.Since(start), err)
	if err != nil {
		metrics.RecordExperimentRun(time.Since(start), true, err)
		rw.DatabaseError(err)
		return
	}

	engine := experiment.New(expCfg)
	report, err := engine.Run(r.Context(), userMetrics, params)
	if err != nil {
		metrics.RecordExperimentRun(time.Since(start), true, err)
		logging.Ctx(r.Context()).Error().Err(err).Msg("Experiment run failed")
		rw.InternalError("experiment run failed")
		return
	}

	metrics.RecordExperimentRun(time.Since(start), report.SRM.Healthy, nil)
	rw.Success(report)
}
