// Product Analytics - Cohort Retention, Funnels, and A/B Experimentation
// Copyright 2026 Aakash Malhan
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Aakash-Malhan/product-analytics-ab-testing

package database

import (
	"context"
	"fmt"

	"github.com/Aakash-Malhan/product-analytics-ab-testing/internal/models"
)

// InsertEvents replaces the events table contents with the given events.
// Rows are written inside a single transaction so a failed load never leaves
// a half-populated table behind.
func (db *DB) InsertEvents(ctx context.Context, events []models.Event) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin event insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM events"); err != nil {
		return fmt.Errorf("truncate events: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO events (user_id, item_id, kind, rating, ts) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare event insert: %w", err)
	}
	defer closeQuietly(stmt)

	for i := range events {
		e := &events[i]
		if _, err := stmt.ExecContext(ctx, e.UserID, e.ItemID, string(e.Kind), e.Rating, e.Timestamp); err != nil {
			return fmt.Errorf("insert event for user %d: %w", e.UserID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit event insert: %w", err)
	}
	return nil
}

// InsertUsers replaces the users dimension table contents.
func (db *DB) InsertUsers(ctx context.Context, users []models.User) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin user insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM users"); err != nil {
		return fmt.Errorf("truncate users: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO users (user_id, gender, age, occupation, zip_code) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare user insert: %w", err)
	}
	defer closeQuietly(stmt)

	for i := range users {
		u := &users[i]
		if _, err := stmt.ExecContext(ctx, u.UserID, u.Gender, u.Age, u.Occupation, u.ZipCode); err != nil {
			return fmt.Errorf("insert user %d: %w", u.UserID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit user insert: %w", err)
	}
	return nil
}

// InsertMovies replaces the movies dimension table contents.
func (db *DB) InsertMovies(ctx context.Context, movies []models.Movie) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin movie insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM movies"); err != nil {
		return fmt.Errorf("truncate movies: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO movies (movie_id, title, genres) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare movie insert: %w", err)
	}
	defer closeQuietly(stmt)

	for i := range movies {
		m := &movies[i]
		if _, err := stmt.ExecContext(ctx, m.MovieID, m.Title, m.Genres); err != nil {
			return fmt.Errorf("insert movie %d: %w", m.MovieID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit movie insert: %w", err)
	}
	return nil
}
