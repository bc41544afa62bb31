// Product Analytics - Cohort Retention, Funnels, and A/B Experimentation
// Copyright 2026 Aakash Malhan
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Aakash-Malhan/product-analytics-ab-testing

package dataset

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Aakash-Malhan/product-analytics-ab-testing/internal/models"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadRatingsDat(t *testing.T) {
	path := writeFile(t, "ratings.dat",
		"1::1193::5::978300760\n"+
			"1::661::3::978302109\n"+
			"2::1357::5::978298709\n")

	res, err := ReadRatings(path)
	if err != nil {
		t.Fatalf("ReadRatings failed: %v", err)
	}

	if res.RowsRead != 3 || res.RowsDropped != 0 {
		t.Errorf("expected 3 read / 0 dropped, got %d / %d", res.RowsRead, res.RowsDropped)
	}
	if len(res.Ratings) != 3 {
		t.Fatalf("expected 3 ratings, got %d", len(res.Ratings))
	}

	first := res.Ratings[0]
	if first.UserID != 1 || first.MovieID != 1193 || first.Rating != 5 {
		t.Errorf("unexpected first rating %+v", first)
	}
	if !first.Timestamp.Equal(time.Unix(978300760, 0).UTC()) {
		t.Errorf("unexpected timestamp %v", first.Timestamp)
	}
}

func TestReadRatingsDropsMalformedRows(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		wantLoaded  int
		wantDropped int
	}{
		{
			name:        "missing field",
			content:     "1::1193::5\n2::661::3::978302109\n",
			wantLoaded:  1,
			wantDropped: 1,
		},
		{
			name:        "non-numeric user id",
			content:     "abc::1193::5::978300760\n2::661::3::978302109\n",
			wantLoaded:  1,
			wantDropped: 1,
		},
		{
			name:        "zero user id",
			content:     "0::1193::5::978300760\n",
			wantLoaded:  0,
			wantDropped: 1,
		},
		{
			name:        "bad timestamp",
			content:     "1::1193::5::not-a-time\n",
			wantLoaded:  0,
			wantDropped: 1,
		},
		{
			name:        "negative rating",
			content:     "1::1193::-2::978300760\n",
			wantLoaded:  0,
			wantDropped: 1,
		},
		{
			name:        "blank lines skipped without counting",
			content:     "\n\n1::1193::5::978300760\n\n",
			wantLoaded:  1,
			wantDropped: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "ratings.dat", tt.content)
			res, err := ReadRatings(path)
			if err != nil {
				t.Fatalf("ReadRatings failed: %v", err)
			}
			if len(res.Ratings) != tt.wantLoaded {
				t.Errorf("expected %d loaded, got %d", tt.wantLoaded, len(res.Ratings))
			}
			if res.RowsDropped != tt.wantDropped {
				t.Errorf("expected %d dropped, got %d", tt.wantDropped, res.RowsDropped)
			}
		})
	}
}

func TestReadRatingsCSV(t *testing.T) {
	path := writeFile(t, "ratings.csv",
		"userId,movieId,rating,timestamp\n"+
			"1,1193,5,978300760\n"+
			"2,661,3.5,978302109\n"+
			"bad,661,3,978302109\n")

	res, err := ReadRatings(path)
	if err != nil {
		t.Fatalf("ReadRatings failed: %v", err)
	}

	if len(res.Ratings) != 2 {
		t.Fatalf("expected 2 ratings, got %d", len(res.Ratings))
	}
	if res.RowsDropped != 1 {
		t.Errorf("expected 1 dropped, got %d", res.RowsDropped)
	}
	if res.Ratings[1].Rating != 3.5 {
		t.Errorf("expected fractional rating preserved, got %f", res.Ratings[1].Rating)
	}
}

func TestReadRatingsCSVMissingColumn(t *testing.T) {
	path := writeFile(t, "ratings.csv", "userId,movieId,rating\n1,2,3\n")
	if _, err := ReadRatings(path); err == nil {
		t.Fatal("expected error for missing timestamp column")
	}
}

func TestReadRatingsMissingFile(t *testing.T) {
	if _, err := ReadRatings(filepath.Join(t.TempDir(), "nope.dat")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestReadUsersAndMovies(t *testing.T) {
	usersPath := writeFile(t, "users.dat",
		"1::F::1::10::48067\n"+
			"2::M::56::16::70072\n"+
			"broken row\n")
	users, dropped, err := ReadUsers(usersPath)
	if err != nil {
		t.Fatalf("ReadUsers failed: %v", err)
	}
	if len(users) != 2 || dropped != 1 {
		t.Errorf("expected 2 users / 1 dropped, got %d / %d", len(users), dropped)
	}
	if users[0].Gender != "F" || users[0].Age != 1 {
		t.Errorf("unexpected user %+v", users[0])
	}

	moviesPath := writeFile(t, "movies.dat",
		"1::Toy Story (1995)::Animation|Children's|Comedy\n"+
			"2::Jumanji (1995)::Adventure|Children's|Fantasy\n")
	movies, dropped, err := ReadMovies(moviesPath)
	if err != nil {
		t.Fatalf("ReadMovies failed: %v", err)
	}
	if len(movies) != 2 || dropped != 0 {
		t.Errorf("expected 2 movies / 0 dropped, got %d / %d", len(movies), dropped)
	}
	if movies[0].Title != "Toy Story (1995)" {
		t.Errorf("unexpected title %q", movies[0].Title)
	}
}

func TestDeriveEvents(t *testing.T) {
	ts := time.Unix(978300760, 0).UTC()
	ratings := []models.Rating{
		{UserID: 1, MovieID: 10, Rating: 3, Timestamp: ts},
		{UserID: 1, MovieID: 11, Rating: 4, Timestamp: ts.Add(time.Hour)},
		{UserID: 2, MovieID: 12, Rating: 5, Timestamp: ts.Add(-time.Hour)},
	}

	events := DeriveEvents(ratings)

	// 3 views + 2 likes (>=4) + 1 comment (>=4.5)
	if len(events) != 6 {
		t.Fatalf("expected 6 events, got %d", len(events))
	}

	counts := map[models.EventKind]int{}
	for _, e := range events {
		counts[e.Kind]++
	}
	if counts[models.EventView] != 3 || counts[models.EventLike] != 2 || counts[models.EventComment] != 1 {
		t.Errorf("unexpected kind counts %v", counts)
	}

	// Sorted by timestamp: user 2's events first
	if events[0].UserID != 2 {
		t.Errorf("expected earliest event first, got %+v", events[0])
	}
	for i := 1; i < len(events); i++ {
		if events[i].Timestamp.Before(events[i-1].Timestamp) {
			t.Errorf("events not sorted at index %d", i)
		}
	}
}

func TestDistinctUsers(t *testing.T) {
	events := []models.Event{
		{UserID: 1}, {UserID: 1}, {UserID: 2}, {UserID: 3},
	}
	if got := DistinctUsers(events); got != 3 {
		t.Errorf("expected 3 distinct users, got %d", got)
	}
}
