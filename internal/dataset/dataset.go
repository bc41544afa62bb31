// Product Analytics - Cohort Retention, Funnels, and A/B Experimentation
// Copyright 2026 Aakash Malhan
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Aakash-Malhan/product-analytics-ab-testing

// Package dataset reads raw MovieLens files and normalizes them into typed
// records.
//
// Two ratings formats are accepted: the MovieLens 1M "::"-separated .dat
// layout (Latin-1 encoded) and headered CSV (userId,movieId,rating,timestamp)
// for user-supplied data. Malformed rows are dropped and counted rather than
// failing the load; a missing or unreadable file is an error for the caller.
package dataset

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"

	"github.com/Aakash-Malhan/product-analytics-ab-testing/internal/logging"
	"github.com/Aakash-Malhan/product-analytics-ab-testing/internal/models"
)

// datSeparator is the MovieLens 1M field separator.
const datSeparator = "::"

// RatingsResult carries parsed ratings plus drop accounting.
type RatingsResult struct {
	Ratings []models.Rating

	// RowsRead counts data rows seen, RowsDropped counts rows rejected for
	// missing IDs, non-parseable numbers, or bad timestamps.
	RowsRead    int
	RowsDropped int
}

// ReadRatings reads a ratings file, detecting the format from the extension:
// ".csv" selects the headered CSV layout, everything else the "::" layout.
func ReadRatings(path string) (*RatingsResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ratings file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return parseRatingsCSV(f)
	}
	return parseRatingsDat(f)
}

// parseRatingsDat parses the MovieLens "::" layout. The 1M files are
// Latin-1 encoded; ratings rows are pure ASCII but the decoder keeps the
// parser uniform with the movies file.
func parseRatingsDat(r io.Reader) (*RatingsResult, error) {
	res := &RatingsResult{}
	scanner := bufio.NewScanner(charmap.ISO8859_1.NewDecoder().Reader(r))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		res.RowsRead++

		fields := strings.Split(line, datSeparator)
		rating, ok := parseRatingFields(fields)
		if !ok {
			res.RowsDropped++
			continue
		}
		res.Ratings = append(res.Ratings, rating)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ratings: %w", err)
	}

	logDropped(res)
	return res, nil
}

// parseRatingsCSV parses headered CSV with userId,movieId,rating,timestamp
// columns in any order.
func parseRatingsCSV(r io.Reader) (*RatingsResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	idx := map[string]int{}
	for i, col := range header {
		idx[strings.ToLower(strings.TrimSpace(col))] = i
	}
	userCol, userOK := idx["userid"]
	movieCol, movieOK := idx["movieid"]
	ratingCol, ratingOK := idx["rating"]
	tsCol, tsOK := idx["timestamp"]
	if !userOK || !movieOK || !ratingOK || !tsOK {
		return nil, fmt.Errorf("csv header missing required columns, got %v", header)
	}

	res := &RatingsResult{}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		res.RowsRead++

		maxCol := max(max(userCol, movieCol), max(ratingCol, tsCol))
		if len(record) <= maxCol {
			res.RowsDropped++
			continue
		}

		rating, ok := parseRatingFields([]string{
			record[userCol], record[movieCol], record[ratingCol], record[tsCol],
		})
		if !ok {
			res.RowsDropped++
			continue
		}
		res.Ratings = append(res.Ratings, rating)
	}

	logDropped(res)
	return res, nil
}

// parseRatingFields validates and converts one [user, movie, rating, ts] row.
func parseRatingFields(fields []string) (models.Rating, bool) {
	if len(fields) != 4 {
		return models.Rating{}, false
	}

	userID, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil || userID <= 0 {
		return models.Rating{}, false
	}
	movieID, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil || movieID <= 0 {
		return models.Rating{}, false
	}
	rating, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
	if err != nil || rating < 0 {
		return models.Rating{}, false
	}
	ts, err := strconv.ParseInt(strings.TrimSpace(fields[3]), 10, 64)
	if err != nil || ts <= 0 {
		return models.Rating{}, false
	}

	return models.Rating{
		UserID:    userID,
		MovieID:   movieID,
		Rating:    rating,
		Timestamp: time.Unix(ts, 0).UTC(),
	}, true
}

// ReadUsers reads the MovieLens users.dat file
// (UserID::Gender::Age::Occupation::Zip). Malformed rows are dropped.
func ReadUsers(path string) ([]models.User, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open users file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var users []models.User
	dropped := 0
	scanner := bufio.NewScanner(charmap.ISO8859_1.NewDecoder().Reader(f))

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Split(line, datSeparator)
		if len(fields) != 5 {
			dropped++
			continue
		}
		userID, err := strconv.Atoi(fields[0])
		if err != nil || userID <= 0 {
			dropped++
			continue
		}
		age, err := strconv.Atoi(fields[2])
		if err != nil {
			dropped++
			continue
		}
		occupation, err := strconv.Atoi(fields[3])
		if err != nil {
			dropped++
			continue
		}

		users = append(users, models.User{
			UserID:     userID,
			Gender:     fields[1],
			Age:        age,
			Occupation: occupation,
			ZipCode:    fields[4],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read users: %w", err)
	}

	return users, dropped, nil
}

// ReadMovies reads the MovieLens movies.dat file (MovieID::Title::Genres).
// Titles can contain Latin-1 accented characters, hence the decoder.
// Titles containing "::" never occur in the published dataset, so a row
// with extra separators is treated as malformed and dropped.
func ReadMovies(path string) ([]models.Movie, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open movies file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var movies []models.Movie
	dropped := 0
	scanner := bufio.NewScanner(charmap.ISO8859_1.NewDecoder().Reader(f))

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Split(line, datSeparator)
		if len(fields) != 3 {
			dropped++
			continue
		}
		movieID, err := strconv.Atoi(fields[0])
		if err != nil || movieID <= 0 {
			dropped++
			continue
		}

		movies = append(movies, models.Movie{
			MovieID: movieID,
			Title:   fields[1],
			Genres:  fields[2],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read movies: %w", err)
	}

	return movies, dropped, nil
}

// logDropped reports drop counts once per file, matching the policy of
// dropping malformed rows rather than failing the load.
func logDropped(res *RatingsResult) {
	if res.RowsDropped > 0 {
		logging.Warn().
			Int("rows_read", res.RowsRead).
			Int("rows_dropped", res.RowsDropped).
			Msg("Dropped malformed rating rows")
	}
}
