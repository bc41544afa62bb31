// Product Analytics - Cohort Retention, Funnels, and A/B Experimentation
// Copyright 2026 Aakash Malhan
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Aakash-Malhan/product-analytics-ab-testing

package database

import (
	"context"
	"fmt"

	"github.com/Aakash-Malhan/product-analytics-ab-testing/internal/models"
)

// GetUserMetrics extracts the per-user experiment inputs: the outcome metric
// (views within metricWindowDays of the user's first event) and the CUPED
// covariate (views within covariateWindowDays). Both windows are anchored on
// the same first event, so the covariate is a strict prefix of the metric.
// Results are ordered by user ID for deterministic downstream assignment.
func (db *DB) GetUserMetrics(ctx context.Context, metricWindowDays, covariateWindowDays int) ([]models.UserMetric, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if covariateWindowDays >= metricWindowDays {
		return nil, fmt.Errorf("covariate window (%dd) must be shorter than metric window (%dd)",
			covariateWindowDays, metricWindowDays)
	}

	query := `
		WITH first_events AS (
			SELECT user_id, MIN(ts) AS t0
			FROM events
			GROUP BY user_id
		)
		SELECT
			f.user_id,
			CAST(COUNT(*) FILTER (
				WHERE e.kind = 'view'
				AND (EPOCH(e.ts) - EPOCH(f.t0)) / 86400.0 <= ?
			) AS DOUBLE) AS views,
			CAST(COUNT(*) FILTER (
				WHERE e.kind = 'view'
				AND (EPOCH(e.ts) - EPOCH(f.t0)) / 86400.0 <= ?
			) AS DOUBLE) AS pre_views
		FROM first_events f
		JOIN events e ON e.user_id = f.user_id
		GROUP BY f.user_id
		ORDER BY f.user_id
	`

	stmt, err := db.prepared(ctx, query)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx,
		float64(metricWindowDays), float64(covariateWindowDays))
	if err != nil {
		return nil, fmt.Errorf("query user metrics: %w", err)
	}
	defer closeQuietly(rows)

	var metrics []models.UserMetric
	for rows.Next() {
		var m models.UserMetric
		if err := rows.Scan(&m.UserID, &m.Views, &m.PreViews); err != nil {
			return nil, fmt.Errorf("scan user metric row: %w", err)
		}
		metrics = append(metrics, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user metric rows: %w", err)
	}

	return metrics, nil
}
