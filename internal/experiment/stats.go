// Product Analytics - Cohort Retention, Funnels, and A/B Experimentation
// Copyright 2026 Aakash Malhan
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Aakash-Malhan/product-analytics-ab-testing

package experiment

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/Aakash-Malhan/product-analytics-ab-testing/internal/models"
)

// varianceEpsilon guards divisions by a covariate variance that is zero for
// all practical purposes.
const varianceEpsilon = 1e-9

// ciZ is the two-sided 95% normal quantile used for the difference CI.
const ciZ = 1.96

// WelchTTest runs Welch's unequal-variance t-test comparing treatment
// against control. The p-value is two-sided with Welch-Satterthwaite degrees
// of freedom. Preconditions that cannot be met (an empty arm, fewer than two
// observations per arm, or zero variance in both arms) yield an Undefined
// result rather than NaNs.
func WelchTTest(metricName string, control, treatment []float64) models.ExperimentResult {
	result := models.ExperimentResult{MetricName: metricName}

	if len(control) == 0 || len(treatment) == 0 {
		result.Undefined = true
		result.UndefinedReason = "one or both arms are empty"
		return result
	}
	if len(control) < 2 || len(treatment) < 2 {
		result.Undefined = true
		result.UndefinedReason = "fewer than two observations in an arm"
		return result
	}

	meanC, varC := meanVariance(control)
	meanT, varT := meanVariance(treatment)

	result.ControlMean = meanC
	result.TreatmentMean = meanT
	if meanC != 0 {
		result.LiftPct = (meanT - meanC) / meanC * 100
	}

	nC := float64(len(control))
	nT := float64(len(treatment))
	seSq := varC/nC + varT/nT
	if seSq < varianceEpsilon {
		result.Undefined = true
		result.UndefinedReason = "zero variance in both arms"
		return result
	}
	se := math.Sqrt(seSq)

	result.TStat = (meanT - meanC) / se

	// Welch-Satterthwaite degrees of freedom
	df := seSq * seSq / (varC*varC/(nC*nC*(nC-1)) + varT*varT/(nT*nT*(nT-1)))

	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	result.PValue = 2 * tDist.Survival(math.Abs(result.TStat))

	diff := meanT - meanC
	result.CIDiffLow = diff - ciZ*se
	result.CIDiffHigh = diff + ciZ*se

	return result
}

// CUPEDAdjust applies the CUPED transform y' = y - theta*(x - mean(x)) with
// theta = Cov(x, y) / Var(x), both computed over the pooled population. When
// the covariate variance is effectively zero the original values are
// returned unchanged and ok is false.
func CUPEDAdjust(y, x []float64) (adjusted []float64, theta float64, ok bool) {
	adjusted = make([]float64, len(y))
	copy(adjusted, y)

	if len(y) != len(x) || len(y) < 2 {
		return adjusted, 0, false
	}

	meanX, varX := meanVariance(x)
	if varX < varianceEpsilon {
		return adjusted, 0, false
	}

	theta = stat.Covariance(x, y, nil) / varX
	for i := range adjusted {
		adjusted[i] = y[i] - theta*(x[i]-meanX)
	}
	return adjusted, theta, true
}

// CheckSRM runs the chi-square goodness-of-fit test (1 degree of freedom)
// comparing the observed control/treatment split against the expected ratio.
func (e *Engine) CheckSRM(nControl, nTreatment int) models.SRMCheck {
	check := models.SRMCheck{
		ControlCount:           nControl,
		TreatmentCount:         nTreatment,
		ExpectedTreatmentRatio: e.cfg.TreatmentRatio,
	}

	total := float64(nControl + nTreatment)
	if total == 0 {
		check.Healthy = false
		return check
	}

	expT := total * e.cfg.TreatmentRatio
	expC := total - expT
	if expT <= 0 || expC <= 0 {
		check.Healthy = false
		return check
	}

	obsC := float64(nControl)
	obsT := float64(nTreatment)
	check.ChiSquare = (obsC-expC)*(obsC-expC)/expC + (obsT-expT)*(obsT-expT)/expT

	chi := distuv.ChiSquared{K: 1}
	check.PValue = chi.Survival(check.ChiSquare)
	check.Healthy = check.PValue >= e.cfg.SRMAlpha

	return check
}

// meanVariance returns the mean and the unbiased (n-1) sample variance.
// Degenerate inputs return zeros instead of gonum's NaNs.
func meanVariance(vals []float64) (mean, variance float64) {
	switch len(vals) {
	case 0:
		return 0, 0
	case 1:
		return vals[0], 0
	}
	return stat.MeanVariance(vals, nil)
}
