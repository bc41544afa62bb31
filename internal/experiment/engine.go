// Product Analytics - Cohort Retention, Funnels, and A/B Experimentation
// Copyright 2026 Aakash Malhan
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Aakash-Malhan/product-analytics-ab-testing

// Package experiment implements the A/B experiment engine: deterministic
// variant assignment, a simulated treatment effect, the sample-ratio-
// mismatch health check, and Welch's t-test with optional CUPED variance
// reduction.
//
// The engine is a simulator over real engagement data: assignment and the
// injected lift are driven by a seeded RNG, so the same configuration always
// reproduces the same report.
package experiment

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/Aakash-Malhan/product-analytics-ab-testing/internal/config"
	"github.com/Aakash-Malhan/product-analytics-ab-testing/internal/logging"
	"github.com/Aakash-Malhan/product-analytics-ab-testing/internal/models"
)

// noiseStdDev is the standard deviation of the gaussian noise added to
// simulated outcomes in both arms.
const noiseStdDev = 0.5

// MetricVariant pairs a user's metric with their assigned arm after outcome
// simulation.
type MetricVariant struct {
	UserID  int
	Variant models.Variant

	// Value is the outcome metric with simulated measurement noise, and
	// the lift applied for treatment users.
	Value float64

	// Covariate is the pre-period metric, never touched by simulation.
	Covariate float64
}

// Engine runs experiments against per-user metrics.
type Engine struct {
	cfg config.ExperimentConfig
}

// New creates an experiment engine with the given configuration.
func New(cfg config.ExperimentConfig) *Engine {
	return &Engine{cfg: cfg}
}

// RunParams overrides per-run knobs; zero values fall back to configuration.
type RunParams struct {
	// LiftPct is the simulated treatment lift. Negative values are valid
	// (a harmful treatment); NaN or unset (0 with UseDefaultLift) falls
	// back to the configured default.
	LiftPct        float64
	UseDefaultLift bool
}

// Run executes a full experiment: assignment, outcome simulation, SRM check,
// the plain Welch comparison, and the CUPED-adjusted one when enabled.
func (e *Engine) Run(ctx context.Context, metrics []models.UserMetric, params RunParams) (*models.ExperimentReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(metrics) == 0 {
		return nil, fmt.Errorf("no user metrics to run experiment on")
	}

	startTime := time.Now()

	lift := params.LiftPct
	if params.UseDefaultLift {
		lift = e.cfg.DefaultLiftPct
	}

	assignments := e.AssignUsers(metrics)
	observed := e.SimulateOutcomes(metrics, assignments, lift)

	var nControl, nTreatment int
	for _, a := range assignments {
		if a.Variant == models.VariantTreatment {
			nTreatment++
		} else {
			nControl++
		}
	}

	srm := e.CheckSRM(nControl, nTreatment)
	if !srm.Healthy {
		logging.Warn().
			Int("control", nControl).
			Int("treatment", nTreatment).
			Float64("p_value", srm.PValue).
			Msg("Sample ratio mismatch detected, results are suspect")
	}

	controlY, treatmentY := splitByVariant(observed, func(mv MetricVariant) float64 { return mv.Value })

	plain := WelchTTest(e.metricName(), controlY, treatmentY)

	report := &models.ExperimentReport{
		TotalUsers:    len(assignments),
		SRM:           srm,
		Plain:         &plain,
		Distributions: buildDistributions(observed),
		Parameters: models.ExperimentParameters{
			Seed:                e.cfg.Seed,
			TreatmentRatio:      e.cfg.TreatmentRatio,
			SimulatedLiftPct:    lift * 100,
			MetricWindowDays:    e.cfg.MetricWindowDays,
			CovariateWindowDays: e.cfg.CovariateWindowDays,
			SRMAlpha:            e.cfg.SRMAlpha,
		},
		GeneratedAt: time.Now(),
	}

	if e.cfg.CUPEDEnabled {
		cuped := e.runCUPED(observed)
		report.CUPED = &cuped
	}

	report.QueryTimeMs = time.Since(startTime).Milliseconds()
	return report, nil
}

// AssignUsers deterministically partitions users into control and treatment.
// Metrics are assigned in user-ID order so the same seed and population
// always produce the same split, regardless of input ordering.
func (e *Engine) AssignUsers(metrics []models.UserMetric) []models.ExperimentAssignment {
	ordered := make([]models.UserMetric, len(metrics))
	copy(ordered, metrics)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].UserID < ordered[j].UserID })

	rng := rand.New(rand.NewSource(e.cfg.Seed)) //nolint:gosec // math/rand is fine for experiment simulation

	assignments := make([]models.ExperimentAssignment, len(ordered))
	for i, m := range ordered {
		variant := models.VariantControl
		if rng.Float64() < e.cfg.TreatmentRatio {
			variant = models.VariantTreatment
		}
		assignments[i] = models.ExperimentAssignment{UserID: m.UserID, Variant: variant}
	}
	return assignments
}

// SimulateOutcomes applies the simulated treatment effect. Both arms receive
// gaussian measurement noise; treatment users additionally get their metric
// multiplied by (1 + lift). The covariate is pre-period data and is never
// modified for either arm.
func (e *Engine) SimulateOutcomes(metrics []models.UserMetric, assignments []models.ExperimentAssignment, lift float64) []MetricVariant {
	variantByUser := make(map[int]models.Variant, len(assignments))
	for _, a := range assignments {
		variantByUser[a.UserID] = a.Variant
	}

	ordered := make([]models.UserMetric, len(metrics))
	copy(ordered, metrics)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].UserID < ordered[j].UserID })

	// A separate seed stream keeps noise independent of assignment draws.
	rng := rand.New(rand.NewSource(e.cfg.Seed + 1)) //nolint:gosec // math/rand is fine for experiment simulation

	observed := make([]MetricVariant, 0, len(ordered))
	for _, m := range ordered {
		variant, ok := variantByUser[m.UserID]
		if !ok {
			continue
		}
		noise := rng.NormFloat64() * noiseStdDev
		value := m.Views + noise
		if variant == models.VariantTreatment {
			value = m.Views*(1+lift) + noise
		}
		observed = append(observed, MetricVariant{
			UserID:    m.UserID,
			Variant:   variant,
			Value:     value,
			Covariate: m.PreViews,
		})
	}
	return observed
}

// runCUPED adjusts the observed metric with the pre-period covariate and
// reruns the Welch comparison. When the covariate is degenerate the result
// falls back to the unadjusted metric with CUPEDAdjusted=false.
func (e *Engine) runCUPED(observed []MetricVariant) models.ExperimentResult {
	y := make([]float64, len(observed))
	x := make([]float64, len(observed))
	for i, mv := range observed {
		y[i] = mv.Value
		x[i] = mv.Covariate
	}

	adjusted, theta, ok := CUPEDAdjust(y, x)

	adjObserved := make([]MetricVariant, len(observed))
	copy(adjObserved, observed)
	for i := range adjObserved {
		adjObserved[i].Value = adjusted[i]
	}

	controlY, treatmentY := splitByVariant(adjObserved, func(mv MetricVariant) float64 { return mv.Value })
	result := WelchTTest(e.metricName()+"_cuped", controlY, treatmentY)
	result.CUPEDAdjusted = ok
	if ok {
		result.CUPEDTheta = theta
	} else {
		logging.Debug().Msg("CUPED covariate degenerate, falling back to unadjusted metric")
	}
	return result
}

// metricName labels results with the configured outcome window, e.g.
// "views_7d".
func (e *Engine) metricName() string {
	return fmt.Sprintf("views_%dd", e.cfg.MetricWindowDays)
}

// splitByVariant separates observed values into control and treatment slices.
func splitByVariant(observed []MetricVariant, value func(MetricVariant) float64) (control, treatment []float64) {
	for _, mv := range observed {
		if mv.Variant == models.VariantTreatment {
			treatment = append(treatment, value(mv))
		} else {
			control = append(control, value(mv))
		}
	}
	return control, treatment
}
