// Product Analytics - Cohort Retention, Funnels, and A/B Experimentation
// Copyright 2026 Aakash Malhan
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Aakash-Malhan/product-analytics-ab-testing

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order
// of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/product-analytics/config.yaml",
	"/etc/product-analytics/config.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all defaults applied. These are applied
// first, then overridden by the config file and environment variables.
func defaultConfig() *Config {
	return &Config{
		Dataset: DatasetConfig{
			Path:        "data/ml-1m",
			RatingsFile: "ratings.dat",
			UsersFile:   "users.dat",
			MoviesFile:  "movies.dat",
			LoadTimeout: 5 * time.Minute,
		},
		Database: DatabaseConfig{
			Path:      ":memory:",
			MaxMemory: "2GB",
			Threads:   0, // 0 = use runtime.NumCPU()
		},
		Analytics: AnalyticsConfig{
			CohortGranularity:    "week",
			MaxWeeks:             12,
			MinCohortSize:        3,
			FunnelWindowDays:     7,
			ActivationMinViews:   5,
			ActivationWindowDays: 3,
		},
		Experiment: ExperimentConfig{
			TreatmentRatio:      0.5,
			Seed:                42,
			DefaultLiftPct:      0.12,
			MetricWindowDays:    7,
			CovariateWindowDays: 1,
			SRMAlpha:            0.01,
			CUPEDEnabled:        true,
		},
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8080,
			Timeout: 30 * time.Second,
		},
		API: APIConfig{
			DefaultSampleLimit: 100,
			MaxSampleLimit:     1000,
			RateLimitRequests:  100,
			RateLimitWindow:    time.Minute,
			CORSOrigins:        []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML file (if found)
//  3. Environment variables: override any setting
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: optional config file
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Env vars arrive as strings; convert known slice fields
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths are parsed as comma-separated
// slices when they come from the environment.
var sliceConfigPaths = []string{
	"api.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for
// known slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML file or defaults)
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to config paths.
// Unmapped variables are ignored so random environment noise never leaks
// into the configuration.
var envMappings = map[string]string{
	// Dataset mappings
	"dataset_path":         "dataset.path",
	"dataset_ratings_file": "dataset.ratings_file",
	"dataset_users_file":   "dataset.users_file",
	"dataset_movies_file":  "dataset.movies_file",
	"dataset_load_timeout": "dataset.load_timeout",

	// Database mappings
	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	// Analytics mappings
	"cohort_granularity":     "analytics.cohort_granularity",
	"cohort_max_weeks":       "analytics.max_weeks",
	"cohort_min_size":        "analytics.min_cohort_size",
	"funnel_window_days":     "analytics.funnel_window_days",
	"activation_min_views":   "analytics.activation_min_views",
	"activation_window_days": "analytics.activation_window_days",

	// Experiment mappings
	"experiment_treatment_ratio":  "experiment.treatment_ratio",
	"experiment_seed":             "experiment.seed",
	"experiment_default_lift_pct": "experiment.default_lift_pct",
	"experiment_metric_window":    "experiment.metric_window_days",
	"experiment_covariate_window": "experiment.covariate_window_days",
	"experiment_srm_alpha":        "experiment.srm_alpha",
	"experiment_cuped_enabled":    "experiment.cuped_enabled",

	// Server mappings
	"http_host":    "server.host",
	"http_port":    "server.port",
	"http_timeout": "server.timeout",

	// API mappings
	"api_default_sample_limit": "api.default_sample_limit",
	"api_max_sample_limit":     "api.max_sample_limit",
	"rate_limit_requests":      "api.rate_limit_requests",
	"rate_limit_window":        "api.rate_limit_window",
	"cors_origins":             "api.cors_origins",

	// Logging mappings
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps environment variable names to koanf config paths.
//
// Examples:
//   - DATASET_PATH -> dataset.path
//   - HTTP_PORT -> server.port
//   - EXPERIMENT_SRM_ALPHA -> experiment.srm_alpha
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	// Skip unmapped keys entirely
	return ""
}
