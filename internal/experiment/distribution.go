// Product Analytics - Cohort Retention, Funnels, and A/B Experimentation
// Copyright 2026 Aakash Malhan
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Aakash-Malhan/product-analytics-ab-testing

package experiment

import (
	"math"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/Aakash-Malhan/product-analytics-ab-testing/internal/models"
)

// Histogram recording scale: metric values carry simulated fractional noise,
// so they are recorded at millesimal resolution to keep three decimal places
// of quantile precision.
const (
	histogramScale    = 1000
	histogramMaxValue = 1_000_000 * histogramScale
	bucketCount       = 10
)

// buildDistributions summarizes the per-variant metric distributions of the
// observed (unadjusted) metric for the dashboard histogram.
func buildDistributions(observed []MetricVariant) []models.MetricDistribution {
	byVariant := map[models.Variant][]float64{}
	for _, mv := range observed {
		byVariant[mv.Variant] = append(byVariant[mv.Variant], mv.Value)
	}

	dists := make([]models.MetricDistribution, 0, 2)
	for _, variant := range []models.Variant{models.VariantControl, models.VariantTreatment} {
		vals := byVariant[variant]
		if len(vals) == 0 {
			continue
		}
		dists = append(dists, summarizeVariant(variant, vals))
	}
	return dists
}

// summarizeVariant computes quantiles via an HDR histogram and fixed-width
// buckets over the raw values.
func summarizeVariant(variant models.Variant, vals []float64) models.MetricDistribution {
	hist := hdrhistogram.New(1, histogramMaxValue, 3)

	minV := vals[0]
	maxV := vals[0]
	var sum float64
	for _, v := range vals {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
		sum += v

		// Simulated noise can push a zero-view metric slightly negative;
		// clamp for recording since the histogram tracks magnitudes only.
		scaled := int64(math.Round(math.Max(v, 0) * histogramScale))
		if scaled > histogramMaxValue {
			scaled = histogramMaxValue
		}
		_ = hist.RecordValue(scaled)
	}

	dist := models.MetricDistribution{
		Variant: variant,
		Count:   int64(len(vals)),
		Min:     minV,
		Max:     maxV,
		Mean:    sum / float64(len(vals)),
		P50:     float64(hist.ValueAtQuantile(50)) / histogramScale,
		P90:     float64(hist.ValueAtQuantile(90)) / histogramScale,
		P99:     float64(hist.ValueAtQuantile(99)) / histogramScale,
		Buckets: buildBuckets(vals, minV, maxV),
	}
	return dist
}

// buildBuckets folds values into fixed-width buckets spanning [min, max].
func buildBuckets(vals []float64, minV, maxV float64) []models.DistributionBucket {
	if maxV <= minV {
		return []models.DistributionBucket{{UpperBound: maxV, Count: int64(len(vals))}}
	}

	width := (maxV - minV) / bucketCount
	buckets := make([]models.DistributionBucket, bucketCount)
	for i := range buckets {
		buckets[i].UpperBound = minV + width*float64(i+1)
	}

	for _, v := range vals {
		idx := int((v - minV) / width)
		if idx >= bucketCount {
			idx = bucketCount - 1
		}
		if idx < 0 {
			idx = 0
		}
		buckets[idx].Count++
	}
	return buckets
}
