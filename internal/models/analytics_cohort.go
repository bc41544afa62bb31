// Product Analytics - Cohort Retention, Funnels, and A/B Experimentation
// Copyright 2026 Aakash Malhan
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Aakash-Malhan/product-analytics-ab-testing

// This file contains cohort retention analytics models. A cohort is the set
// of users whose first event falls in the same calendar week; retention is
// the share of each cohort active in later weeks.
package models

import "time"

// CohortRetentionAnalytics is the full cohort retention analysis result.
type CohortRetentionAnalytics struct {
	// Cohorts contains per-cohort retention series.
	Cohorts []CohortData `json:"cohorts"`

	// Summary provides aggregate retention statistics.
	Summary CohortRetentionSummary `json:"summary"`

	// RetentionCurve provides week-by-week average retention for charting.
	RetentionCurve []RetentionPoint `json:"retention_curve"`

	// Metadata provides query provenance information.
	Metadata CohortQueryMetadata `json:"metadata"`
}

// CohortData is one weekly cohort with its retention series.
type CohortData struct {
	// CohortWeek is the ISO week the cohort formed (YYYY-Www).
	CohortWeek string `json:"cohort_week"`

	// CohortStartDate is the first day of the cohort week.
	CohortStartDate time.Time `json:"cohort_start_date"`

	// CohortSize is the count of unique users whose first event fell in
	// this week.
	CohortSize int `json:"cohort_size"`

	// Retention holds one entry per observed week offset. Week 0 is the
	// formation week itself. Offsets with zero active users are omitted,
	// not zero-filled.
	Retention []WeekRetention `json:"retention"`

	// AverageRetention is the mean retention rate across tracked weeks,
	// excluding week 0.
	AverageRetention float64 `json:"average_retention"`
}

// WeekRetention is the retention measurement at one week offset.
//
// Invariant: RetainedUsers <= the owning cohort's CohortSize.
type WeekRetention struct {
	// WeekOffset is the number of whole weeks since cohort formation.
	WeekOffset int `json:"week_offset"`

	// RetainedUsers is the count of cohort users with at least one event
	// in this offset week.
	RetainedUsers int `json:"retained_users"`

	// RetentionRate is (RetainedUsers / CohortSize) * 100.
	RetentionRate float64 `json:"retention_rate"`

	// WeekDate is the calendar date of the offset week.
	WeekDate time.Time `json:"week_date"`
}

// CohortRetentionSummary aggregates statistics across all cohorts.
type CohortRetentionSummary struct {
	TotalCohorts      int `json:"total_cohorts"`
	TotalUsersTracked int `json:"total_users_tracked"`

	// Week1Retention is the average retention rate at week 1 across cohorts.
	Week1Retention float64 `json:"week1_retention"`

	// Week4Retention is the average retention rate at week 4 across cohorts.
	Week4Retention float64 `json:"week4_retention"`

	// OverallAverageRetention averages all post-formation retention rates.
	OverallAverageRetention float64 `json:"overall_average_retention"`

	// BestPerformingCohort / WorstPerformingCohort identify the cohort
	// weeks with the highest and lowest average retention.
	BestPerformingCohort  string `json:"best_performing_cohort"`
	WorstPerformingCohort string `json:"worst_performing_cohort"`

	// RetentionTrend is "improving", "declining", "stable", or
	// "insufficient_data" when fewer than four cohorts exist.
	RetentionTrend string `json:"retention_trend"`
}

// RetentionPoint is one point on the aggregate retention curve.
type RetentionPoint struct {
	WeekOffset       int     `json:"week_offset"`
	AverageRetention float64 `json:"average_retention"`
	MedianRetention  float64 `json:"median_retention"`
	MinRetention     float64 `json:"min_retention"`
	MaxRetention     float64 `json:"max_retention"`

	// CohortsWithData is how many cohorts contribute to this offset.
	CohortsWithData int `json:"cohorts_with_data"`
}

// CohortQueryMetadata provides provenance for a cohort analysis run.
type CohortQueryMetadata struct {
	// QueryHash is a deterministic hash of the query parameters, useful
	// for cache validation and reproducibility checks.
	QueryHash string `json:"query_hash"`

	// CohortGranularity is the cohort bucket size ("week").
	CohortGranularity string `json:"cohort_granularity"`

	// MaxWeeksTracked is the maximum week offset per cohort.
	MaxWeeksTracked int `json:"max_weeks_tracked"`

	// EventCount is the total number of events analyzed.
	EventCount int64 `json:"event_count"`

	GeneratedAt time.Time `json:"generated_at"`
	QueryTimeMs int64     `json:"query_time_ms"`
}
