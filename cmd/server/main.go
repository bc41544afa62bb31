// Product Analytics - Cohort Retention, Funnels, and A/B Experimentation
// Copyright 2026 Aakash Malhan
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Aakash-Malhan/product-analytics-ab-testing

// Package main is the entry point for the product analytics server.
//
// The server loads the MovieLens-format dataset, derives engagement events
// (view / like / comment), and serves cohort retention, activation funnel,
// product KPI, and A/B experiment analytics over a REST API backed by DuckDB.
//
// # Application Architecture
//
// Startup runs in the following order:
//
//  1. Configuration: layered Koanf v2 (defaults, optional YAML file, env vars)
//  2. Logging: zerolog (JSON or console)
//  3. Database: DuckDB, file-backed or in-memory
//  4. Ingest: parse ratings, derive events, load into DuckDB
//  5. HTTP server: chi router under a suture supervisor tree
//
// # Configuration
//
// Settings come from environment variables or a config.yaml file; see
// internal/config for the full mapping. The essentials:
//   - DATASET_PATH: directory holding ratings.dat (plus optional users.dat,
//     movies.dat)
//   - DATABASE_PATH: DuckDB file path, or ":memory:"
//   - SERVER_HOST / SERVER_PORT: listen address (default 0.0.0.0:8080)
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the server stops accepting
// connections, in-flight requests get 10 seconds to finish, and the database
// is closed before exit.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Aakash-Malhan/product-analytics-ab-testing/internal/api"
	"github.com/Aakash-Malhan/product-analytics-ab-testing/internal/config"
	"github.com/Aakash-Malhan/product-analytics-ab-testing/internal/database"
	"github.com/Aakash-Malhan/product-analytics-ab-testing/internal/ingest"
	"github.com/Aakash-Malhan/product-analytics-ab-testing/internal/logging"
	"github.com/Aakash-Malhan/product-analytics-ab-testing/internal/supervisor"
	"github.com/Aakash-Malhan/product-analytics-ab-testing/internal/supervisor/services"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("dataset_path", cfg.Dataset.Path).
		Str("db_path", cfg.Database.Path).
		Msg("Starting product analytics server")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized")

	// Dataset load is part of startup: the API is useless without events,
	// so a failed load is fatal.
	loadCtx, loadCancel := context.WithTimeout(context.Background(), cfg.Dataset.LoadTimeout)
	report, err := ingest.New(&cfg.Dataset, db).Load(loadCtx)
	loadCancel()
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error().Err(closeErr).Msg("Error closing database")
		}
		logging.Fatal().Err(err).Msg("Failed to load dataset")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := api.NewHandler(db, cfg, report)
	router := api.NewRouter(handler, &cfg.API)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// The supervisor logs through slog; bridge it to zerolog.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain until the supervisor closes the channel
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Application stopped gracefully")
}
