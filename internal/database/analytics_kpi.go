// Product Analytics - Cohort Retention, Funnels, and A/B Experimentation
// Copyright 2026 Aakash Malhan
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Aakash-Malhan/product-analytics-ab-testing

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/Aakash-Malhan/product-analytics-ab-testing/internal/models"
)

// GetProductKPIs computes the headline engagement numbers: average and peak
// daily active users, average daily event volume, and a DAU/MAU stickiness
// proxy (average DAU divided by average monthly actives).
func (db *DB) GetProductKPIs(ctx context.Context) (*models.ProductKPIs, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `
		WITH daily AS (
			SELECT
				DATE_TRUNC('day', ts) AS day,
				COUNT(DISTINCT user_id) AS dau,
				COUNT(*) AS events
			FROM events
			GROUP BY day
		),
		monthly AS (
			SELECT
				DATE_TRUNC('month', ts) AS month,
				COUNT(DISTINCT user_id) AS mau
			FROM events
			GROUP BY month
		)
		SELECT
			COALESCE(AVG(d.dau), 0),
			CAST(COALESCE(MAX(d.dau), 0) AS DOUBLE),
			COALESCE(AVG(d.events), 0),
			COALESCE((SELECT AVG(mau) FROM monthly), 0)
		FROM daily d
	`

	var avgDAU, peakDAU, avgDailyEvents, avgMAU float64
	if err := db.conn.QueryRowContext(ctx, query).Scan(&avgDAU, &peakDAU, &avgDailyEvents, &avgMAU); err != nil {
		return nil, fmt.Errorf("query product KPIs: %w", err)
	}

	kpis := &models.ProductKPIs{
		AvgDAU:         avgDAU,
		PeakDAU:        peakDAU,
		AvgDailyEvents: avgDailyEvents,
		GeneratedAt:    time.Now(),
	}
	if avgMAU > 0 {
		kpis.DAUMAUProxy = avgDAU / avgMAU
	}

	return kpis, nil
}
