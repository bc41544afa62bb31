// Product Analytics - Cohort Retention, Funnels, and A/B Experimentation
// Copyright 2026 Aakash Malhan
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Aakash-Malhan/product-analytics-ab-testing

package api

import (
	_ "embed"
	"net/http"
)

//go:embed static/index.html
var dashboardHTML []byte

// Dashboard serves the embedded single-page dashboard. All numbers it shows
// come from the JSON API; the page only draws them.
//
// Method: GET
// Path: /
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if _, err := w.Write(dashboardHTML); err != nil {
		// Client went away mid-write; nothing to do.
		return
	}
}
