// Product Analytics - Cohort Retention, Funnels, and A/B Experimentation
// Copyright 2026 Aakash Malhan
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Aakash-Malhan/product-analytics-ab-testing

// Package ingest orchestrates the dataset load: raw MovieLens files are
// parsed, engagement events derived, and everything written into DuckDB in
// one pass. A load is a whole-dataset rebuild; partial loads never survive.
package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/Aakash-Malhan/product-analytics-ab-testing/internal/config"
	"github.com/Aakash-Malhan/product-analytics-ab-testing/internal/database"
	"github.com/Aakash-Malhan/product-analytics-ab-testing/internal/dataset"
	"github.com/Aakash-Malhan/product-analytics-ab-testing/internal/logging"
	"github.com/Aakash-Malhan/product-analytics-ab-testing/internal/metrics"
	"github.com/Aakash-Malhan/product-analytics-ab-testing/internal/models"
)

// Loader runs dataset loads into the database.
type Loader struct {
	cfg *config.DatasetConfig
	db  *database.DB
}

// New creates a dataset loader.
func New(cfg *config.DatasetConfig, db *database.DB) *Loader {
	return &Loader{cfg: cfg, db: db}
}

// Load reads the configured dataset files, derives engagement events, and
// loads them into the database. Returns a report of what was loaded.
func (l *Loader) Load(ctx context.Context) (*models.LoadReport, error) {
	startTime := time.Now()

	report, err := l.load(ctx)
	if err != nil {
		metrics.IngestDuration.Observe(time.Since(startTime).Seconds())
		return nil, err
	}

	metrics.RecordIngest(time.Since(startTime),
		report.RatingsLoaded, report.UsersLoaded, report.MoviesLoaded,
		report.RowsDropped, report.EventsDerived)

	logging.Info().
		Int("ratings", report.RatingsLoaded).
		Int("events", report.EventsDerived).
		Int("users", report.DistinctUsers).
		Int("dropped", report.RowsDropped).
		Dur("elapsed", time.Since(startTime)).
		Msg("Dataset load complete")

	return report, nil
}

func (l *Loader) load(ctx context.Context) (*models.LoadReport, error) {
	ratingsPath := filepath.Join(l.cfg.Path, l.cfg.RatingsFile)

	logging.Info().Str("path", ratingsPath).Msg("Loading ratings")
	ratings, err := dataset.ReadRatings(ratingsPath)
	if err != nil {
		return nil, fmt.Errorf("read ratings: %w", err)
	}
	if len(ratings.Ratings) == 0 {
		return nil, fmt.Errorf("ratings file %s contained no valid rows", ratingsPath)
	}

	events := dataset.DeriveEvents(ratings.Ratings)

	if err := l.db.InsertEvents(ctx, events); err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	report := &models.LoadReport{
		RatingsRead:   ratings.RowsRead,
		RatingsLoaded: len(ratings.Ratings),
		RowsDropped:   ratings.RowsDropped,
		EventsDerived: len(events),
		DistinctUsers: dataset.DistinctUsers(events),
	}

	// Dimension files are optional; events alone drive the analytics.
	if l.cfg.UsersFile != "" {
		usersPath := filepath.Join(l.cfg.Path, l.cfg.UsersFile)
		users, dropped, err := dataset.ReadUsers(usersPath)
		if err != nil {
			return nil, fmt.Errorf("read users: %w", err)
		}
		if err := l.db.InsertUsers(ctx, users); err != nil {
			return nil, fmt.Errorf("load users: %w", err)
		}
		report.UsersLoaded = len(users)
		report.RowsDropped += dropped
	}

	if l.cfg.MoviesFile != "" {
		moviesPath := filepath.Join(l.cfg.Path, l.cfg.MoviesFile)
		movies, dropped, err := dataset.ReadMovies(moviesPath)
		if err != nil {
			return nil, fmt.Errorf("read movies: %w", err)
		}
		if err := l.db.InsertMovies(ctx, movies); err != nil {
			return nil, fmt.Errorf("load movies: %w", err)
		}
		report.MoviesLoaded = len(movies)
		report.RowsDropped += dropped
	}

	return report, nil
}
