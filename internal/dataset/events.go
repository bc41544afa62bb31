// Product Analytics - Cohort Retention, Funnels, and A/B Experimentation
// Copyright 2026 Aakash Malhan
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Aakash-Malhan/product-analytics-ab-testing

package dataset

import (
	"sort"

	"github.com/Aakash-Malhan/product-analytics-ab-testing/internal/models"
)

// Rating thresholds for deriving engagement events. MovieLens carries only
// ratings, so richer engagement signals are synthesized from them: every
// rating is a view, strong ratings add a like, and near-perfect ratings add
// a comment.
const (
	likeThreshold    = 4.0
	commentThreshold = 4.5
)

// DeriveEvents expands ratings into engagement events, sorted by timestamp.
// A single 5-star rating yields three events (view, like, comment) sharing
// the same timestamp.
func DeriveEvents(ratings []models.Rating) []models.Event {
	// view always; like and comment only above their thresholds
	events := make([]models.Event, 0, len(ratings)+len(ratings)/2)

	for _, r := range ratings {
		events = append(events, models.Event{
			UserID:    r.UserID,
			ItemID:    r.MovieID,
			Kind:      models.EventView,
			Rating:    r.Rating,
			Timestamp: r.Timestamp,
		})
		if r.Rating >= likeThreshold {
			events = append(events, models.Event{
				UserID:    r.UserID,
				ItemID:    r.MovieID,
				Kind:      models.EventLike,
				Rating:    r.Rating,
				Timestamp: r.Timestamp,
			})
		}
		if r.Rating >= commentThreshold {
			events = append(events, models.Event{
				UserID:    r.UserID,
				ItemID:    r.MovieID,
				Kind:      models.EventComment,
				Rating:    r.Rating,
				Timestamp: r.Timestamp,
			})
		}
	}

	// Deterministic order: timestamp, then user, then item, then kind.
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		if a.UserID != b.UserID {
			return a.UserID < b.UserID
		}
		if a.ItemID != b.ItemID {
			return a.ItemID < b.ItemID
		}
		return a.Kind < b.Kind
	})

	return events
}

// DistinctUsers returns the number of unique users across events.
func DistinctUsers(events []models.Event) int {
	seen := make(map[int]struct{})
	for _, e := range events {
		seen[e.UserID] = struct{}{}
	}
	return len(seen)
}
