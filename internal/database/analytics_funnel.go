// Product Analytics - Cohort Retention, Funnels, and A/B Experimentation
// Copyright 2026 Aakash Malhan
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Aakash-Malhan/product-analytics-ab-testing

// This file contains the activation funnel: signup (first event), activation
// (enough views soon after signup), and day-7 return. Day offsets are
// measured in fractional days from each user's first event, so the funnel is
// anchored per-user rather than on calendar days.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/Aakash-Malhan/product-analytics-ab-testing/internal/models"
)

// Day-7 return counts events in the trailing window [7.0, 8.0) days after
// the first event. The lower bound is inclusive and the upper exclusive so
// adjacent daily windows never double-count an event.
const (
	day7WindowStartDays = 7.0
	day7WindowEndDays   = 8.0
)

// FunnelConfig configures the activation funnel boundaries.
type FunnelConfig struct {
	// ActivationMinViews is the view count required for activation.
	ActivationMinViews int

	// ActivationWindowDays is the activation window measured in days from
	// the first event, inclusive.
	ActivationWindowDays int
}

// DefaultFunnelConfig returns the standard activation definition: five views
// within three days of signup.
func DefaultFunnelConfig() FunnelConfig {
	return FunnelConfig{
		ActivationMinViews:   5,
		ActivationWindowDays: 3,
	}
}

// GetFunnelAnalytics computes per-user funnel outcomes and the aggregated
// three-step funnel. includeRecords controls whether the per-user records
// are returned; aggregate-only callers should skip them to keep responses
// small.
func (db *DB) GetFunnelAnalytics(ctx context.Context, config FunnelConfig, includeRecords bool) (*models.FunnelAnalytics, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	startTime := time.Now()

	if config.ActivationMinViews <= 0 {
		config.ActivationMinViews = 5
	}
	if config.ActivationWindowDays <= 0 {
		config.ActivationWindowDays = 3
	}

	records, err := db.executeFunnelQuery(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to execute funnel query: %w", err)
	}

	analytics := &models.FunnelAnalytics{
		Steps: aggregateFunnelSteps(records),
		Window: models.FunnelWindow{
			ActivationMinViews:   config.ActivationMinViews,
			ActivationWindowDays: config.ActivationWindowDays,
			Day7WindowStartDays:  day7WindowStartDays,
			Day7WindowEndDays:    day7WindowEndDays,
		},
		GeneratedAt: time.Now(),
		QueryTimeMs: time.Since(startTime).Milliseconds(),
	}
	if includeRecords {
		analytics.Records = records
	}

	return analytics, nil
}

// executeFunnelQuery computes the per-user funnel outcomes in a single pass.
//
// A user activates when their Nth view lands within the activation window;
// the activation day is the whole-day offset of that view. Day-7 return
// requires any event in [7.0, 8.0) days after the first event, and is only
// credited to activated users.
func (db *DB) executeFunnelQuery(ctx context.Context, config FunnelConfig) ([]models.FunnelRecord, error) {
	query := `
		WITH first_events AS (
			SELECT user_id, MIN(ts) AS t0
			FROM events
			GROUP BY user_id
		),
		view_offsets AS (
			SELECT
				e.user_id,
				(EPOCH(e.ts) - EPOCH(f.t0)) / 86400.0 AS days_since,
				ROW_NUMBER() OVER (PARTITION BY e.user_id ORDER BY e.ts) AS view_seq
			FROM events e
			JOIN first_events f ON e.user_id = f.user_id
			WHERE e.kind = 'view'
		),
		activation AS (
			-- The Nth view decides activation; its day offset is the
			-- activation day.
			SELECT
				user_id,
				CAST(FLOOR(days_since) AS INTEGER) AS activation_day
			FROM view_offsets
			WHERE view_seq = ? AND days_since <= ?
		),
		day7_return AS (
			SELECT DISTINCT e.user_id
			FROM events e
			JOIN first_events f ON e.user_id = f.user_id
			WHERE (EPOCH(e.ts) - EPOCH(f.t0)) / 86400.0 >= ?
				AND (EPOCH(e.ts) - EPOCH(f.t0)) / 86400.0 < ?
		)
		SELECT
			f.user_id,
			a.user_id IS NOT NULL AS activated,
			a.activation_day,
			(a.user_id IS NOT NULL AND d.user_id IS NOT NULL) AS retained_day7
		FROM first_events f
		LEFT JOIN activation a ON f.user_id = a.user_id
		LEFT JOIN day7_return d ON f.user_id = d.user_id
		ORDER BY f.user_id
	`

	stmt, err := db.prepared(ctx, query)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx,
		config.ActivationMinViews, float64(config.ActivationWindowDays),
		day7WindowStartDays, day7WindowEndDays)
	if err != nil {
		return nil, fmt.Errorf("query funnel data: %w", err)
	}
	defer closeQuietly(rows)

	var records []models.FunnelRecord
	for rows.Next() {
		var rec models.FunnelRecord
		var activationDay *int
		if err := rows.Scan(&rec.UserID, &rec.Activated, &activationDay, &rec.RetainedDay7); err != nil {
			return nil, fmt.Errorf("scan funnel row: %w", err)
		}
		rec.ActivationDay = activationDay
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate funnel rows: %w", err)
	}

	return records, nil
}

// aggregateFunnelSteps folds per-user records into the three ordered steps.
func aggregateFunnelSteps(records []models.FunnelRecord) []models.FunnelStep {
	signups := len(records)
	var activated, retained int
	for _, rec := range records {
		if rec.Activated {
			activated++
		}
		if rec.RetainedDay7 {
			retained++
		}
	}

	counts := []struct {
		step  string
		users int
	}{
		{models.FunnelStepSignup, signups},
		{models.FunnelStepActivation, activated},
		{models.FunnelStepDay7Return, retained},
	}

	steps := make([]models.FunnelStep, 0, len(counts))
	previous := signups
	for i, c := range counts {
		step := models.FunnelStep{
			Step:  c.step,
			Users: c.users,
		}
		if signups > 0 {
			step.RateVsSignup = float64(c.users) / float64(signups)
		}
		if i == 0 {
			step.RateVsPrevious = step.RateVsSignup
		} else if previous > 0 {
			step.RateVsPrevious = float64(c.users) / float64(previous)
		}
		previous = c.users
		steps = append(steps, step)
	}

	return steps
}
