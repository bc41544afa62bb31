// Product Analytics - Cohort Retention, Funnels, and A/B Experimentation
// Copyright 2026 Aakash Malhan
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Aakash-Malhan/product-analytics-ab-testing

// This file contains cohort retention analytics following industry practice
// from Mixpanel, Amplitude, and similar product analytics platforms.
//
// Cohort retention analysis helps understand:
// - When users typically stop using the service (churn points)
// - Which cohorts have best/worst retention (identify successful periods)
// - Overall user engagement health over time
//
// The implementation uses DuckDB window functions for efficient cohort calculations.
package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/Aakash-Malhan/product-analytics-ab-testing/internal/models"
)

// CohortRetentionConfig configures cohort analysis parameters.
type CohortRetentionConfig struct {
	// MaxWeeks is the maximum number of weeks to track per cohort (default: 12)
	MaxWeeks int

	// MinCohortSize is the minimum users required to include a cohort (default: 3)
	MinCohortSize int

	// Granularity is the cohort bucket size; only "week" is supported.
	Granularity string
}

// DefaultCohortConfig returns sensible default configuration.
func DefaultCohortConfig() CohortRetentionConfig {
	return CohortRetentionConfig{
		MaxWeeks:      12,
		MinCohortSize: 3,
		Granularity:   "week",
	}
}

// GetCohortRetentionAnalytics calculates cohort retention metrics over the
// loaded events. Each user belongs to the cohort of the calendar week of
// their first event; retention at offset k counts cohort users with at least
// one event k weeks later.
func (db *DB) GetCohortRetentionAnalytics(ctx context.Context, config CohortRetentionConfig) (*models.CohortRetentionAnalytics, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	startTime := time.Now()

	// Apply defaults for zero values
	if config.MaxWeeks == 0 {
		config.MaxWeeks = 12
	}
	if config.MinCohortSize == 0 {
		config.MinCohortSize = 3
	}
	if config.Granularity == "" {
		config.Granularity = "week"
	}
	if config.Granularity != "week" {
		return nil, fmt.Errorf("unsupported cohort granularity %q", config.Granularity)
	}

	cohortData, eventCount, err := db.executeCohortQuery(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to execute cohort query: %w", err)
	}

	summary := calculateCohortSummary(cohortData)
	retentionCurve := buildRetentionCurve(cohortData, config.MaxWeeks)

	return &models.CohortRetentionAnalytics{
		Cohorts:        cohortData,
		Summary:        summary,
		RetentionCurve: retentionCurve,
		Metadata: models.CohortQueryMetadata{
			QueryHash:         generateCohortQueryHash(config),
			CohortGranularity: config.Granularity,
			MaxWeeksTracked:   config.MaxWeeks,
			EventCount:        eventCount,
			GeneratedAt:       time.Now(),
			QueryTimeMs:       time.Since(startTime).Milliseconds(),
		},
	}, nil
}

// executeCohortQuery runs the cohort retention SQL query.
func (db *DB) executeCohortQuery(ctx context.Context, config CohortRetentionConfig) ([]models.CohortData, int64, error) {
	// Step 1: Assign each user to a cohort via their first event
	// Step 2: For each cohort, count active users per week offset
	// Step 3: Calculate retention rates
	query := `
		WITH user_first_activity AS (
			-- Assign each user to their cohort based on first event
			SELECT
				user_id,
				DATE_TRUNC('week', MIN(ts)) AS cohort_week
			FROM events
			GROUP BY user_id
		),
		user_weekly_activity AS (
			-- Get all weeks where each user was active
			SELECT DISTINCT
				user_id,
				DATE_TRUNC('week', ts) AS activity_week
			FROM events
		),
		cohort_retention AS (
			-- Join to calculate week offset and retention
			SELECT
				ufa.cohort_week,
				DATEDIFF('week', ufa.cohort_week, uwa.activity_week) AS week_offset,
				COUNT(DISTINCT uwa.user_id) AS retained_users
			FROM user_first_activity ufa
			JOIN user_weekly_activity uwa ON ufa.user_id = uwa.user_id
			WHERE DATEDIFF('week', ufa.cohort_week, uwa.activity_week) >= 0
				AND DATEDIFF('week', ufa.cohort_week, uwa.activity_week) <= ?
			GROUP BY ufa.cohort_week, week_offset
		),
		cohort_sizes AS (
			-- Get initial size of each cohort
			SELECT
				cohort_week,
				COUNT(DISTINCT user_id) AS cohort_size
			FROM user_first_activity
			GROUP BY cohort_week
			HAVING COUNT(DISTINCT user_id) >= ?
		),
		event_count AS (
			SELECT COUNT(*) AS total FROM events
		)
		SELECT
			cs.cohort_week,
			cs.cohort_size,
			cr.week_offset,
			cr.retained_users,
			(SELECT total FROM event_count) AS event_count
		FROM cohort_sizes cs
		JOIN cohort_retention cr ON cs.cohort_week = cr.cohort_week
		ORDER BY cs.cohort_week, cr.week_offset
	`

	stmt, err := db.prepared(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	rows, err := stmt.QueryContext(ctx, config.MaxWeeks, config.MinCohortSize)
	if err != nil {
		return nil, 0, fmt.Errorf("query cohort data: %w", err)
	}
	defer closeQuietly(rows)

	cohortMap := make(map[string]*models.CohortData)
	var eventCount int64

	for rows.Next() {
		var cohortWeek time.Time
		var cohortSize, weekOffset, retainedUsers int
		var evtCount int64

		if err := rows.Scan(&cohortWeek, &cohortSize, &weekOffset, &retainedUsers, &evtCount); err != nil {
			return nil, 0, fmt.Errorf("scan cohort row: %w", err)
		}

		eventCount = evtCount
		cohortKey := cohortWeek.Format("2006-W02")

		if _, exists := cohortMap[cohortKey]; !exists {
			cohortMap[cohortKey] = &models.CohortData{
				CohortWeek:      cohortKey,
				CohortStartDate: cohortWeek,
				CohortSize:      cohortSize,
				Retention:       make([]models.WeekRetention, 0, config.MaxWeeks+1),
			}
		}

		retentionRate := 0.0
		if cohortSize > 0 {
			retentionRate = float64(retainedUsers) / float64(cohortSize) * 100.0
		}

		cohortMap[cohortKey].Retention = append(cohortMap[cohortKey].Retention, models.WeekRetention{
			WeekOffset:    weekOffset,
			RetainedUsers: retainedUsers,
			RetentionRate: retentionRate,
			WeekDate:      cohortWeek.AddDate(0, 0, weekOffset*7),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate cohort rows: %w", err)
	}

	// The per-row event count never arrives when every cohort falls below the
	// min-size filter; fetch it directly so metadata stays accurate.
	if len(cohortMap) == 0 {
		count, err := db.EventCount(ctx)
		if err != nil {
			return nil, 0, err
		}
		eventCount = count
	}

	// Convert map to sorted slice
	cohorts := make([]models.CohortData, 0, len(cohortMap))
	for _, cohort := range cohortMap {
		// Average retention excludes week 0, which is 100% by construction
		var totalRetention float64
		var retentionPoints int
		for _, r := range cohort.Retention {
			if r.WeekOffset > 0 {
				totalRetention += r.RetentionRate
				retentionPoints++
			}
		}
		if retentionPoints > 0 {
			cohort.AverageRetention = totalRetention / float64(retentionPoints)
		}
		cohorts = append(cohorts, *cohort)
	}

	sort.Slice(cohorts, func(i, j int) bool {
		return cohorts[i].CohortStartDate.Before(cohorts[j].CohortStartDate)
	})

	return cohorts, eventCount, nil
}

// calculateCohortSummary computes aggregate statistics across all cohorts.
func calculateCohortSummary(cohorts []models.CohortData) models.CohortRetentionSummary {
	summary := models.CohortRetentionSummary{
		TotalCohorts: len(cohorts),
	}

	if len(cohorts) == 0 {
		summary.RetentionTrend = "insufficient_data"
		return summary
	}

	var week1Rates, week4Rates []float64
	var allRetentionRates []float64
	var bestRetention, worstRetention float64 = 0, 100
	var bestCohort, worstCohort string

	for _, cohort := range cohorts {
		summary.TotalUsersTracked += cohort.CohortSize

		for _, r := range cohort.Retention {
			if r.WeekOffset == 1 {
				week1Rates = append(week1Rates, r.RetentionRate)
			}
			if r.WeekOffset == 4 {
				week4Rates = append(week4Rates, r.RetentionRate)
			}
			if r.WeekOffset > 0 {
				allRetentionRates = append(allRetentionRates, r.RetentionRate)
			}
		}

		if cohort.AverageRetention > bestRetention {
			bestRetention = cohort.AverageRetention
			bestCohort = cohort.CohortWeek
		}
		if cohort.AverageRetention < worstRetention {
			worstRetention = cohort.AverageRetention
			worstCohort = cohort.CohortWeek
		}
	}

	summary.Week1Retention = average(week1Rates)
	summary.Week4Retention = average(week4Rates)
	summary.OverallAverageRetention = average(allRetentionRates)
	summary.BestPerformingCohort = bestCohort
	summary.WorstPerformingCohort = worstCohort
	summary.RetentionTrend = calculateRetentionTrend(cohorts)

	return summary
}

// buildRetentionCurve creates aggregate retention curve data.
func buildRetentionCurve(cohorts []models.CohortData, maxWeeks int) []models.RetentionPoint {
	if len(cohorts) == 0 {
		return []models.RetentionPoint{}
	}

	weekData := make(map[int][]float64)
	for _, cohort := range cohorts {
		for _, r := range cohort.Retention {
			if r.WeekOffset <= maxWeeks {
				weekData[r.WeekOffset] = append(weekData[r.WeekOffset], r.RetentionRate)
			}
		}
	}

	curve := make([]models.RetentionPoint, 0, maxWeeks+1)
	for week := 0; week <= maxWeeks; week++ {
		rates := weekData[week]
		if len(rates) == 0 {
			continue
		}

		curve = append(curve, models.RetentionPoint{
			WeekOffset:       week,
			AverageRetention: average(rates),
			MedianRetention:  median(rates),
			MinRetention:     minFloat(rates),
			MaxRetention:     maxFloat(rates),
			CohortsWithData:  len(rates),
		})
	}

	return curve
}

// calculateRetentionTrend compares recent cohorts to older ones.
func calculateRetentionTrend(cohorts []models.CohortData) string {
	if len(cohorts) < 4 {
		return "insufficient_data"
	}

	midpoint := len(cohorts) / 2
	var earlyAvg, lateAvg float64
	var earlyCount, lateCount int

	for i, cohort := range cohorts {
		if i < midpoint {
			earlyAvg += cohort.AverageRetention
			earlyCount++
		} else {
			lateAvg += cohort.AverageRetention
			lateCount++
		}
	}

	if earlyCount > 0 {
		earlyAvg /= float64(earlyCount)
	}
	if lateCount > 0 {
		lateAvg /= float64(lateCount)
	}

	diff := lateAvg - earlyAvg
	if diff > 5 {
		return "improving"
	}
	if diff < -5 {
		return "declining"
	}
	return "stable"
}

// generateCohortQueryHash creates a deterministic hash for query reproducibility.
func generateCohortQueryHash(config CohortRetentionConfig) string {
	canonical := fmt.Sprintf("cohort|max_weeks=%d|min_size=%d|granularity=%s",
		config.MaxWeeks, config.MinCohortSize, config.Granularity)

	hash := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(hash[:8]) // First 8 bytes = 16 hex chars
}

// Helper functions for statistics

func average(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func minFloat(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxFloat(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
