// Product Analytics - Cohort Retention, Funnels, and A/B Experimentation
// Copyright 2026 Aakash Malhan
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Aakash-Malhan/product-analytics-ab-testing

package experiment

import (
	"math"
	"math/rand"
	"testing"
)

func TestWelchTTestDetectsDifference(t *testing.T) {

	rng := rand.New(rand.NewSource(7)) //nolint:gosec // deterministic test data
	control := make([]float64, 200)
	treatment := make([]float64, 200)
	for i := range control {
		control[i] = 10 + rng.NormFloat64()
		treatment[i] = 12 + rng.NormFloat64()
	}

	result := WelchTTest("views_7d", control, treatment)
	if result.Undefined {
		t.Fatalf("result unexpectedly undefined: %s", result.UndefinedReason)
	}

	if result.PValue >= 0.001 {
		t.Errorf("expected tiny p-value for 2-sigma shift, got %f", result.PValue)
	}
	if result.TStat <= 0 {
		t.Errorf("expected positive t-stat, got %f", result.TStat)
	}
	if result.LiftPct < 10 || result.LiftPct > 30 {
		t.Errorf("expected lift near 20%%, got %f", result.LiftPct)
	}
	if result.CIDiffLow <= 0 {
		t.Errorf("expected CI excluding zero, got [%f, %f]", result.CIDiffLow, result.CIDiffHigh)
	}
}

func TestWelchTTestNoDifference(t *testing.T) {

	rng := rand.New(rand.NewSource(11)) //nolint:gosec // deterministic test data
	control := make([]float64, 500)
	treatment := make([]float64, 500)
	for i := range control {
		control[i] = 5 + rng.NormFloat64()
		treatment[i] = 5 + rng.NormFloat64()
	}

	result := WelchTTest("views_7d", control, treatment)
	if result.Undefined {
		t.Fatalf("result unexpectedly undefined: %s", result.UndefinedReason)
	}
	if result.PValue < 0.001 {
		t.Errorf("identical populations should rarely yield p=%f", result.PValue)
	}
	if result.CIDiffLow > 0 || result.CIDiffHigh < 0 {
		t.Errorf("expected CI containing zero, got [%f, %f]", result.CIDiffLow, result.CIDiffHigh)
	}
}

func TestWelchTTestUndefinedCases(t *testing.T) {

	tests := []struct {
		name      string
		control   []float64
		treatment []float64
	}{
		{"empty control", nil, []float64{1, 2, 3}},
		{"empty treatment", []float64{1, 2, 3}, nil},
		{"single observation", []float64{1}, []float64{2, 3}},
		{"zero variance both arms", []float64{5, 5, 5}, []float64{5, 5, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := WelchTTest("views_7d", tt.control, tt.treatment)
			if !result.Undefined {
				t.Errorf("expected undefined result, got %+v", result)
			}
			if result.UndefinedReason == "" {
				t.Error("expected a reason for the undefined result")
			}
			if result.PValue != 0 || result.TStat != 0 {
				t.Errorf("undefined result should have zero statistics, got %+v", result)
			}
		})
	}
}

func TestWelchTTestPValueRange(t *testing.T) {

	result := WelchTTest("views_7d", []float64{1, 2, 3, 4}, []float64{2, 3, 4, 5})
	if result.PValue < 0 || result.PValue > 1 {
		t.Errorf("p-value out of [0,1]: %f", result.PValue)
	}
}

func TestCUPEDAdjustReducesVariance(t *testing.T) {

	// Outcome is strongly driven by the covariate, so CUPED should strip
	// most of the variance.
	rng := rand.New(rand.NewSource(3)) //nolint:gosec // deterministic test data
	n := 1000
	x := make([]float64, n)
	y := make([]float64, n)
	for i := range x {
		x[i] = rng.Float64() * 10
		y[i] = 2*x[i] + rng.NormFloat64()*0.1
	}

	adjusted, theta, ok := CUPEDAdjust(y, x)
	if !ok {
		t.Fatal("expected successful adjustment")
	}
	if theta < 1.9 || theta > 2.1 {
		t.Errorf("expected theta near 2, got %f", theta)
	}

	_, varBefore := meanVariance(y)
	_, varAfter := meanVariance(adjusted)
	if varAfter >= varBefore/10 {
		t.Errorf("expected at least 10x variance reduction, got %f -> %f", varBefore, varAfter)
	}

	// The adjustment is mean-preserving
	meanBefore, _ := meanVariance(y)
	meanAfter, _ := meanVariance(adjusted)
	if math.Abs(meanBefore-meanAfter) > 1e-9 {
		t.Errorf("adjustment shifted the mean: %f -> %f", meanBefore, meanAfter)
	}
}

func TestCUPEDAdjustDegenerateCovariate(t *testing.T) {

	y := []float64{1, 2, 3, 4}
	x := []float64{5, 5, 5, 5} // zero variance

	adjusted, theta, ok := CUPEDAdjust(y, x)
	if ok {
		t.Error("expected fallback for zero-variance covariate")
	}
	if theta != 0 {
		t.Errorf("expected zero theta on fallback, got %f", theta)
	}
	for i := range y {
		if adjusted[i] != y[i] {
			t.Errorf("fallback should return values unchanged, got %v", adjusted)
		}
	}
}

func TestCUPEDAdjustMismatchedLengths(t *testing.T) {

	_, _, ok := CUPEDAdjust([]float64{1, 2, 3}, []float64{1, 2})
	if ok {
		t.Error("expected fallback for mismatched slice lengths")
	}
}

func TestCheckSRMBalanced(t *testing.T) {

	engine := New(testConfig())

	check := engine.CheckSRM(5000, 5010)
	if !check.Healthy {
		t.Errorf("expected healthy SRM for near-even split, got p=%f", check.PValue)
	}
	if check.PValue < 0 || check.PValue > 1 {
		t.Errorf("p-value out of [0,1]: %f", check.PValue)
	}
}

func TestCheckSRMImbalanced(t *testing.T) {

	engine := New(testConfig())

	check := engine.CheckSRM(6000, 4000)
	if check.Healthy {
		t.Errorf("expected SRM detection for 60/40 split at n=10000, got p=%f", check.PValue)
	}
	if check.ChiSquare <= 0 {
		t.Errorf("expected positive chi-square statistic, got %f", check.ChiSquare)
	}
}

func TestCheckSRMEmpty(t *testing.T) {

	engine := New(testConfig())

	check := engine.CheckSRM(0, 0)
	if check.Healthy {
		t.Error("expected unhealthy SRM for zero users")
	}
}

func TestMeanVariance(t *testing.T) {

	mean, variance := meanVariance([]float64{2, 4, 6, 8})
	if mean != 5 {
		t.Errorf("expected mean 5, got %f", mean)
	}
	// Sample variance with n-1: ((9+1+1+9)/3)
	want := 20.0 / 3.0
	if math.Abs(variance-want) > 1e-12 {
		t.Errorf("expected variance %f, got %f", want, variance)
	}

	mean, variance = meanVariance(nil)
	if mean != 0 || variance != 0 {
		t.Errorf("expected zeros for empty input, got %f, %f", mean, variance)
	}
}

func TestBuildBuckets(t *testing.T) {

	vals := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	buckets := buildBuckets(vals, 0, 10)
	if len(buckets) != bucketCount {
		t.Fatalf("expected %d buckets, got %d", bucketCount, len(buckets))
	}

	var total int64
	for _, b := range buckets {
		total += b.Count
	}
	if total != int64(len(vals)) {
		t.Errorf("bucket counts sum to %d, expected %d", total, len(vals))
	}
	if buckets[len(buckets)-1].UpperBound != 10 {
		t.Errorf("expected final upper bound 10, got %f", buckets[len(buckets)-1].UpperBound)
	}
}

func TestBuildBucketsDegenerateRange(t *testing.T) {

	buckets := buildBuckets([]float64{3, 3, 3}, 3, 3)
	if len(buckets) != 1 {
		t.Fatalf("expected single bucket for degenerate range, got %d", len(buckets))
	}
	if buckets[0].Count != 3 {
		t.Errorf("expected count 3, got %d", buckets[0].Count)
	}
}
