// Product Analytics - Cohort Retention, Funnels, and A/B Experimentation
// Copyright 2026 Aakash Malhan
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Aakash-Malhan/product-analytics-ab-testing

package models

import "time"

// Funnel step names, in order.
const (
	FunnelStepSignup     = "signup"
	FunnelStepActivation = "activation"
	FunnelStepDay7Return = "day7_return"
)

// FunnelRecord is the per-user funnel outcome.
//
// Invariant: RetainedDay7 implies Activated. A user observed returning on
// day 7 without having activated is a pipeline bug, not a data condition.
type FunnelRecord struct {
	UserID int `json:"user_id"`

	// Activated is true when the user produced the required number of views
	// within the activation window of their first event.
	Activated bool `json:"activated"`

	// ActivationDay is the day offset (0-based, whole days from first
	// event) on which the activation threshold was crossed. Nil when the
	// user never activated.
	ActivationDay *int `json:"activation_day,omitempty"`

	// RetainedDay7 is true when the user produced at least one event in
	// the trailing window [7.0, 8.0) days after their first event.
	RetainedDay7 bool `json:"retained_day7"`
}

// FunnelStep is one aggregated step of the activation funnel.
type FunnelStep struct {
	// Step is the step name: signup, activation, or day7_return.
	Step string `json:"step"`

	// Users is the count of users reaching this step.
	Users int `json:"users"`

	// RateVsSignup is Users divided by the signup step count.
	RateVsSignup float64 `json:"rate_vs_signup"`

	// RateVsPrevious is Users divided by the previous step count.
	RateVsPrevious float64 `json:"rate_vs_previous"`
}

// FunnelAnalytics is the full activation funnel result.
type FunnelAnalytics struct {
	// Steps holds the three funnel steps in order.
	Steps []FunnelStep `json:"steps"`

	// Records holds the per-user outcomes. Omitted from API responses when
	// only aggregates are requested.
	Records []FunnelRecord `json:"records,omitempty"`

	// Window documents the exact boundaries used, so readers of a report
	// never have to guess whether day 7 is inclusive.
	Window FunnelWindow `json:"window"`

	GeneratedAt time.Time `json:"generated_at"`
	QueryTimeMs int64     `json:"query_time_ms"`
}

// FunnelWindow pins down the funnel boundary semantics.
type FunnelWindow struct {
	// ActivationMinViews is the view count required within the activation
	// window (inclusive upper bound, days_since <= ActivationWindowDays).
	ActivationMinViews   int `json:"activation_min_views"`
	ActivationWindowDays int `json:"activation_window_days"`

	// Day7 return counts events with days_since in [7.0, 8.0): a trailing
	// one-day window starting exactly seven days after the first event.
	Day7WindowStartDays float64 `json:"day7_window_start_days"`
	Day7WindowEndDays   float64 `json:"day7_window_end_days"`
}

// ProductKPIs holds headline engagement numbers for the dashboard.
type ProductKPIs struct {
	AvgDAU         float64 `json:"avg_dau"`
	PeakDAU        float64 `json:"peak_dau"`
	DAUMAUProxy    float64 `json:"dau_mau_proxy"`
	AvgDailyEvents float64 `json:"avg_daily_events"`

	GeneratedAt time.Time `json:"generated_at"`
}
