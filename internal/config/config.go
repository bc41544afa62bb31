// Product Analytics - Cohort Retention, Funnels, and A/B Experimentation
// Copyright 2026 Aakash Malhan
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Aakash-Malhan/product-analytics-ab-testing

// Package config provides layered configuration loading via Koanf v2.
//
// Precedence (highest wins): environment variables > YAML config file >
// built-in defaults. See koanf.go for the loader and the env mapping table.
package config

import "time"

// Config is the root configuration for the analytics service.
type Config struct {
	Dataset    DatasetConfig    `koanf:"dataset"`
	Database   DatabaseConfig   `koanf:"database"`
	Analytics  AnalyticsConfig  `koanf:"analytics"`
	Experiment ExperimentConfig `koanf:"experiment"`
	Server     ServerConfig     `koanf:"server"`
	API        APIConfig        `koanf:"api"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// DatasetConfig locates the raw MovieLens files on disk.
type DatasetConfig struct {
	// Path is the directory containing the dataset files.
	Path string `koanf:"path" validate:"required"`

	// RatingsFile is the ratings file name inside Path. Both the MovieLens
	// "::"-separated .dat format and headered CSV are supported.
	RatingsFile string `koanf:"ratings_file" validate:"required"`

	// UsersFile and MoviesFile are optional dimension files. Empty disables
	// loading them (events can be derived from ratings alone).
	UsersFile  string `koanf:"users_file"`
	MoviesFile string `koanf:"movies_file"`

	// LoadTimeout bounds the whole parse-derive-insert pipeline at startup.
	LoadTimeout time.Duration `koanf:"load_timeout"`
}

// DatabaseConfig tunes the embedded DuckDB store.
type DatabaseConfig struct {
	// Path is the DuckDB database file. ":memory:" keeps the store in RAM,
	// which is the default since a pipeline run rebuilds all tables anyway.
	Path string `koanf:"path" validate:"required"`

	// MaxMemory is the DuckDB memory limit (e.g. "2GB").
	MaxMemory string `koanf:"max_memory"`

	// Threads is the DuckDB thread count. 0 = runtime.NumCPU().
	Threads int `koanf:"threads" validate:"min=0"`
}

// AnalyticsConfig fixes the cohort and funnel window semantics.
//
// Window boundaries are deliberately explicit here rather than implied:
// activation counts views with days_since_first_event <= ActivationWindowDays
// (inclusive), and day-7 retention counts events in [7.0, 8.0) days, a
// trailing one-day window.
type AnalyticsConfig struct {
	// CohortGranularity is the cohort bucket size. Only "week" is supported.
	CohortGranularity string `koanf:"cohort_granularity" validate:"oneof=week"`

	// MaxWeeks is the maximum week offset tracked per cohort.
	MaxWeeks int `koanf:"max_weeks" validate:"min=1"`

	// MinCohortSize excludes cohorts with fewer users from reports.
	MinCohortSize int `koanf:"min_cohort_size" validate:"min=1"`

	// FunnelWindowDays bounds the whole funnel observation window.
	FunnelWindowDays int `koanf:"funnel_window_days" validate:"min=1"`

	// ActivationMinViews is the view count required for activation.
	ActivationMinViews int `koanf:"activation_min_views" validate:"min=1"`

	// ActivationWindowDays is the activation window in days from first event.
	ActivationWindowDays int `koanf:"activation_window_days" validate:"min=1"`
}

// ExperimentConfig holds the A/B simulator defaults.
type ExperimentConfig struct {
	// TreatmentRatio is the fraction of users assigned to treatment.
	TreatmentRatio float64 `koanf:"treatment_ratio" validate:"gt=0,lt=1"`

	// Seed drives both assignment and the simulated outcome noise, making
	// experiment runs reproducible.
	Seed int64 `koanf:"seed"`

	// DefaultLiftPct is the simulated multiplicative treatment lift.
	DefaultLiftPct float64 `koanf:"default_lift_pct" validate:"gte=0,lte=1"`

	// MetricWindowDays is the outcome metric window (views within N days of
	// each user's first event).
	MetricWindowDays int `koanf:"metric_window_days" validate:"min=1"`

	// CovariateWindowDays is the pre-period window for the CUPED covariate.
	// Must be shorter than MetricWindowDays to carry any signal.
	CovariateWindowDays int `koanf:"covariate_window_days" validate:"min=1"`

	// SRMAlpha is the p-value threshold below which the sample ratio
	// mismatch check flags the experiment as unhealthy.
	SRMAlpha float64 `koanf:"srm_alpha" validate:"gt=0,lt=1"`

	// CUPEDEnabled toggles the CUPED-adjusted analysis.
	CUPEDEnabled bool `koanf:"cuped_enabled"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host" validate:"required"`
	Port    int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout time.Duration `koanf:"timeout"`
}

// APIConfig holds API behavior settings.
type APIConfig struct {
	// DefaultSampleLimit is the default row count for the event sample endpoint.
	DefaultSampleLimit int `koanf:"default_sample_limit" validate:"min=1"`

	// MaxSampleLimit caps the event sample endpoint.
	MaxSampleLimit int `koanf:"max_sample_limit" validate:"min=1"`

	// RateLimitRequests / RateLimitWindow bound per-IP request rates.
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"min=1"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`

	// CORSOrigins lists allowed CORS origins.
	CORSOrigins []string `koanf:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error fatal disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}
