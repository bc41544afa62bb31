// Product Analytics - Cohort Retention, Funnels, and A/B Experimentation
// Copyright 2026 Aakash Malhan
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Aakash-Malhan/product-analytics-ab-testing

package config

import (
	"fmt"

	"github.com/Aakash-Malhan/product-analytics-ab-testing/internal/validation"
)

// Validate checks that the configuration is complete and internally
// consistent. Struct tags cover ranges and formats; the hand checks below
// cover cross-field constraints the tags can't express.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Experiment.CovariateWindowDays >= c.Experiment.MetricWindowDays {
		return fmt.Errorf("EXPERIMENT_COVARIATE_WINDOW (%d) must be shorter than EXPERIMENT_METRIC_WINDOW (%d)",
			c.Experiment.CovariateWindowDays, c.Experiment.MetricWindowDays)
	}

	if c.Analytics.ActivationWindowDays > c.Analytics.FunnelWindowDays {
		return fmt.Errorf("ACTIVATION_WINDOW_DAYS (%d) cannot exceed FUNNEL_WINDOW_DAYS (%d)",
			c.Analytics.ActivationWindowDays, c.Analytics.FunnelWindowDays)
	}

	if c.API.DefaultSampleLimit > c.API.MaxSampleLimit {
		return fmt.Errorf("API_DEFAULT_SAMPLE_LIMIT (%d) cannot exceed API_MAX_SAMPLE_LIMIT (%d)",
			c.API.DefaultSampleLimit, c.API.MaxSampleLimit)
	}

	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", c.Server.Timeout)
	}

	return nil
}
