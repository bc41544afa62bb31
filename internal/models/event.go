// Product Analytics - Cohort Retention, Funnels, and A/B Experimentation
// Copyright 2026 Aakash Malhan
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Aakash-Malhan/product-analytics-ab-testing

// Package models provides the data structures shared across the analytics
// pipeline. All records are created once per pipeline run and treated as
// read-only afterwards; nothing mutates them in place.
package models

import "time"

// EventKind classifies a derived engagement event.
type EventKind string

// Engagement event kinds derived from ratings. Every rating produces a view;
// high ratings additionally produce like and comment events.
const (
	EventView    EventKind = "view"
	EventLike    EventKind = "like"
	EventComment EventKind = "comment"
)

// Valid reports whether the kind is one of the known engagement kinds.
func (k EventKind) Valid() bool {
	switch k {
	case EventView, EventLike, EventComment:
		return true
	}
	return false
}

// Event is a single normalized engagement event. Immutable once loaded.
type Event struct {
	UserID    int       `json:"user_id"`
	ItemID    int       `json:"item_id"`
	Kind      EventKind `json:"kind"`
	Rating    float64   `json:"rating"`
	Timestamp time.Time `json:"timestamp"`
}

// Rating is one raw row from the ratings file before event derivation.
type Rating struct {
	UserID    int       `json:"user_id"`
	MovieID   int       `json:"movie_id"`
	Rating    float64   `json:"rating"`
	Timestamp time.Time `json:"timestamp"`
}

// User is one row from the MovieLens users file.
type User struct {
	UserID     int    `json:"user_id"`
	Gender     string `json:"gender"`
	Age        int    `json:"age"`
	Occupation int    `json:"occupation"`
	ZipCode    string `json:"zip_code"`
}

// Movie is one row from the MovieLens movies file.
type Movie struct {
	MovieID int    `json:"movie_id"`
	Title   string `json:"title"`
	Genres  string `json:"genres"`
}

// LoadReport summarizes a dataset ingest run. Malformed rows are dropped and
// counted rather than failing the load.
type LoadReport struct {
	RatingsRead   int `json:"ratings_read"`
	RatingsLoaded int `json:"ratings_loaded"`
	RowsDropped   int `json:"rows_dropped"`
	EventsDerived int `json:"events_derived"`
	UsersLoaded   int `json:"users_loaded"`
	MoviesLoaded  int `json:"movies_loaded"`
	DistinctUsers int `json:"distinct_users"`
}
