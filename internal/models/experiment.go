// Product Analytics - Cohort Retention, Funnels, and A/B Experimentation
// Copyright 2026 Aakash Malhan
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Aakash-Malhan/product-analytics-ab-testing

// This file contains A/B experiment models: variant assignment, the SRM
// health check, and Welch's t-test results with and without CUPED
// adjustment.
package models

import "time"

// Variant identifies an experiment arm.
type Variant string

// Experiment arms. Assignment is a disjoint, total partition of the user
// population into these two variants.
const (
	VariantControl   Variant = "control"
	VariantTreatment Variant = "treatment"
)

// Valid reports whether the variant is a known arm.
func (v Variant) Valid() bool {
	return v == VariantControl || v == VariantTreatment
}

// ExperimentAssignment maps one user to an arm.
type ExperimentAssignment struct {
	UserID  int     `json:"user_id"`
	Variant Variant `json:"variant"`
}

// UserMetric is the per-user experiment input: the outcome metric and its
// pre-period covariate.
type UserMetric struct {
	UserID int `json:"user_id"`

	// Views is the count of view events within the metric window of the
	// user's first event.
	Views float64 `json:"views"`

	// PreViews is the count of view events within the shorter pre-period
	// window, used as the CUPED covariate.
	PreViews float64 `json:"pre_views"`
}

// SRMCheck is the sample-ratio-mismatch health check result.
type SRMCheck struct {
	ControlCount   int `json:"control_count"`
	TreatmentCount int `json:"treatment_count"`

	// ExpectedTreatmentRatio is the configured assignment ratio under test.
	ExpectedTreatmentRatio float64 `json:"expected_treatment_ratio"`

	// ChiSquare is the goodness-of-fit statistic (1 degree of freedom).
	ChiSquare float64 `json:"chi_square"`

	// PValue is in [0, 1]. Values below the configured alpha indicate the
	// observed split is unlikely under the intended design.
	PValue float64 `json:"p_value"`

	// Healthy is false when PValue < the configured alpha.
	Healthy bool `json:"healthy"`
}

// ExperimentResult is one two-sample comparison between the arms.
type ExperimentResult struct {
	// MetricName names the compared metric, e.g. "views_7d".
	MetricName string `json:"metric_name"`

	ControlMean   float64 `json:"control_mean"`
	TreatmentMean float64 `json:"treatment_mean"`

	// LiftPct is (treatment_mean - control_mean) / control_mean * 100.
	LiftPct float64 `json:"lift_pct"`

	// TStat and PValue come from Welch's unequal-variance t-test; PValue
	// is two-sided and in [0, 1].
	TStat  float64 `json:"t_stat"`
	PValue float64 `json:"p_value"`

	// CIDiffLow / CIDiffHigh bound the 95% confidence interval for the
	// difference in means.
	CIDiffLow  float64 `json:"ci_diff_low"`
	CIDiffHigh float64 `json:"ci_diff_high"`

	// CUPEDAdjusted is true when the metric was CUPED-adjusted before the
	// test. False also covers the fallback when the covariate was missing
	// or degenerate.
	CUPEDAdjusted bool `json:"cuped_adjusted"`

	// CUPEDTheta is the regression coefficient used for adjustment; zero
	// when CUPEDAdjusted is false.
	CUPEDTheta float64 `json:"cuped_theta,omitempty"`

	// Undefined is true when test preconditions were unmet (an empty arm,
	// fewer than two observations, or zero variance in both arms). The
	// statistical fields are zero-valued and must not be interpreted.
	Undefined bool `json:"undefined"`

	// UndefinedReason explains why the result is undefined.
	UndefinedReason string `json:"undefined_reason,omitempty"`
}

// MetricDistribution summarizes the per-variant metric distribution for the
// dashboard histogram.
type MetricDistribution struct {
	Variant Variant `json:"variant"`
	Count   int64   `json:"count"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Mean    float64 `json:"mean"`
	P50     float64 `json:"p50"`
	P90     float64 `json:"p90"`
	P99     float64 `json:"p99"`

	// Buckets holds fixed-width histogram buckets for charting.
	Buckets []DistributionBucket `json:"buckets"`
}

// DistributionBucket is one histogram bar.
type DistributionBucket struct {
	// UpperBound is the inclusive upper edge of the bucket.
	UpperBound float64 `json:"upper_bound"`
	Count      int64   `json:"count"`
}

// ExperimentReport is the complete output of one experiment run.
type ExperimentReport struct {
	// TotalUsers is the size of the assigned population. Always equals
	// SRM.ControlCount + SRM.TreatmentCount.
	TotalUsers int `json:"total_users"`

	SRM SRMCheck `json:"srm"`

	// Plain is the unadjusted Welch comparison; CUPED is the
	// CUPED-adjusted one. CUPED is nil when adjustment is disabled.
	Plain *ExperimentResult `json:"plain"`
	CUPED *ExperimentResult `json:"cuped,omitempty"`

	// Distributions holds per-variant metric distributions of the plain
	// (unadjusted) metric.
	Distributions []MetricDistribution `json:"distributions"`

	// Parameters echoes the run inputs for reproducibility.
	Parameters ExperimentParameters `json:"parameters"`

	GeneratedAt time.Time `json:"generated_at"`
	QueryTimeMs int64     `json:"query_time_ms"`
}

// ExperimentParameters echoes the inputs that produced a report.
type ExperimentParameters struct {
	Seed                int64   `json:"seed"`
	TreatmentRatio      float64 `json:"treatment_ratio"`
	SimulatedLiftPct    float64 `json:"simulated_lift_pct"`
	MetricWindowDays    int     `json:"metric_window_days"`
	CovariateWindowDays int     `json:"covariate_window_days"`
	SRMAlpha            float64 `json:"srm_alpha"`
}
