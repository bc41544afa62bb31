// Product Analytics - Cohort Retention, Funnels, and A/B Experimentation
// Copyright 2026 Aakash Malhan
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Aakash-Malhan/product-analytics-ab-testing

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/Aakash-Malhan/product-analytics-ab-testing/internal/config"
	"github.com/Aakash-Malhan/product-analytics-ab-testing/internal/database"
	"github.com/Aakash-Malhan/product-analytics-ab-testing/internal/models"
)

func testAPIConfig() *config.Config {
	return &config.Config{
		Analytics: config.AnalyticsConfig{
			CohortGranularity:    "week",
			MaxWeeks:             12,
			MinCohortSize:        1,
			FunnelWindowDays:     7,
			ActivationMinViews:   5,
			ActivationWindowDays: 3,
		},
		Experiment: config.ExperimentConfig{
			TreatmentRatio:      0.5,
			Seed:                42,
			DefaultLiftPct:      0.12,
			MetricWindowDays:    7,
			CovariateWindowDays: 1,
			SRMAlpha:            0.01,
			CUPEDEnabled:        true,
		},
		API: config.APIConfig{
			DefaultSampleLimit: 10,
			MaxSampleLimit:     100,
			RateLimitRequests:  10000,
			RateLimitWindow:    time.Minute,
		},
	}
}

// newTestServer builds a router over an in-memory database seeded with a
// small but realistic event set.
func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	db, err := database.New(&config.DatabaseConfig{
		Path:      ":memory:",
		MaxMemory: "512MB",
		Threads:   2,
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})

	base := time.Date(2000, 1, 3, 12, 0, 0, 0, time.UTC)
	var events []models.Event
	for user := 1; user <= 40; user++ {
		for i := 0; i < 3+user%6; i++ {
			events = append(events, models.Event{
				UserID:    user,
				ItemID:    100 + i,
				Kind:      models.EventView,
				Rating:    4.0,
				Timestamp: base.Add(time.Duration(user%3)*24*time.Hour + time.Duration(i)*time.Hour),
			})
		}
		// Half the users come back a week later
		if user%2 == 0 {
			events = append(events, models.Event{
				UserID:    user,
				ItemID:    200,
				Kind:      models.EventView,
				Rating:    4.0,
				Timestamp: base.AddDate(0, 0, 7).Add(time.Duration(user%3) * 24 * time.Hour),
			})
		}
	}
	if err := db.InsertEvents(context.Background(), events); err != nil {
		t.Fatalf("failed to seed events: %v", err)
	}

	cfg := testAPIConfig()
	handler := NewHandler(db, cfg, &models.LoadReport{
		RatingsLoaded: len(events),
		EventsDerived: len(events),
		DistinctUsers: 40,
	})
	return NewRouter(handler, &cfg.API).Setup()
}

// doRequest executes a request and decodes the response envelope.
func doRequest(t *testing.T, srv http.Handler, method, path string, body string) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var envelope APIResponse
	if strings.Contains(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("failed to decode response envelope: %v\nbody: %s", err, rec.Body.String())
		}
	}
	return rec, envelope
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rec, envelope := doRequest(t, srv, http.MethodGet, "/api/v1/health/live", "")
	if rec.Code != http.StatusOK {
		t.Errorf("live: expected 200, got %d", rec.Code)
	}
	if !envelope.Success {
		t.Error("live: expected success envelope")
	}

	rec, _ = doRequest(t, srv, http.MethodGet, "/api/v1/health/ready", "")
	if rec.Code != http.StatusOK {
		t.Errorf("ready: expected 200 with events loaded, got %d", rec.Code)
	}

	rec, envelope = doRequest(t, srv, http.MethodGet, "/api/v1/health", "")
	if rec.Code != http.StatusOK {
		t.Errorf("health: expected 200, got %d", rec.Code)
	}
	data, ok := envelope.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("health: unexpected data shape: %T", envelope.Data)
	}
	if data["status"] != "healthy" {
		t.Errorf("health: expected healthy, got %v", data["status"])
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(t)

	rec, envelope := doRequest(t, srv, http.MethodGet, "/api/v1/health/live", "")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID response header")
	}
	if envelope.Meta == nil || envelope.Meta.RequestID == "" {
		t.Error("expected request ID in response meta")
	}
}

func TestAnalyticsRetentionEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec, envelope := doRequest(t, srv, http.MethodGet, "/api/v1/analytics/retention", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !envelope.Success {
		t.Fatal("expected success envelope")
	}

	raw, err := json.Marshal(envelope.Data)
	if err != nil {
		t.Fatalf("re-marshal data: %v", err)
	}
	var analytics models.CohortRetentionAnalytics
	if err := json.Unmarshal(raw, &analytics); err != nil {
		t.Fatalf("decode analytics: %v", err)
	}

	if len(analytics.Cohorts) == 0 {
		t.Fatal("expected at least one cohort")
	}
	for _, cohort := range analytics.Cohorts {
		for _, r := range cohort.Retention {
			if r.RetainedUsers > cohort.CohortSize {
				t.Errorf("cohort %s week %d: retained %d exceeds size %d",
					cohort.CohortWeek, r.WeekOffset, r.RetainedUsers, cohort.CohortSize)
			}
		}
	}
}

func TestAnalyticsRetentionBadParams(t *testing.T) {
	srv := newTestServer(t)

	tests := []string{
		"/api/v1/analytics/retention?max_weeks=0",
		"/api/v1/analytics/retention?max_weeks=banana",
		"/api/v1/analytics/retention?max_weeks=100",
		"/api/v1/analytics/retention?min_cohort_size=-1",
	}
	for _, path := range tests {
		rec, envelope := doRequest(t, srv, http.MethodGet, path, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, rec.Code)
		}
		if envelope.Success {
			t.Errorf("%s: expected error envelope", path)
		}
		if envelope.Error == nil || envelope.Error.Code != ErrCodeBadRequest {
			t.Errorf("%s: expected BAD_REQUEST code", path)
		}
	}
}

func TestAnalyticsFunnelEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec, envelope := doRequest(t, srv, http.MethodGet, "/api/v1/analytics/funnel", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	raw, _ := json.Marshal(envelope.Data)
	var funnel models.FunnelAnalytics
	if err := json.Unmarshal(raw, &funnel); err != nil {
		t.Fatalf("decode funnel: %v", err)
	}

	if len(funnel.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(funnel.Steps))
	}
	if funnel.Steps[0].Users != 40 {
		t.Errorf("expected 40 signups, got %d", funnel.Steps[0].Users)
	}
	if len(funnel.Records) != 0 {
		t.Error("expected per-user records omitted by default")
	}

	// With include_records the per-user outcomes appear
	_, envelope = doRequest(t, srv, http.MethodGet, "/api/v1/analytics/funnel?include_records=true", "")
	raw, _ = json.Marshal(envelope.Data)
	if err := json.Unmarshal(raw, &funnel); err != nil {
		t.Fatalf("decode funnel with records: %v", err)
	}
	if len(funnel.Records) != 40 {
		t.Errorf("expected 40 records, got %d", len(funnel.Records))
	}
	for _, record := range funnel.Records {
		if record.RetainedDay7 && !record.Activated {
			t.Errorf("user %d retained without activating", record.UserID)
		}
	}
}

func TestAnalyticsKPIsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec, envelope := doRequest(t, srv, http.MethodGet, "/api/v1/analytics/kpis", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	raw, _ := json.Marshal(envelope.Data)
	var kpis models.ProductKPIs
	if err := json.Unmarshal(raw, &kpis); err != nil {
		t.Fatalf("decode KPIs: %v", err)
	}
	if kpis.AvgDAU <= 0 || kpis.PeakDAU <= 0 {
		t.Errorf("expected positive DAU numbers, got %+v", kpis)
	}
}

func TestEventsSampleEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec, envelope := doRequest(t, srv, http.MethodGet, "/api/v1/events/sample?limit=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data := envelope.Data.(map[string]interface{})
	if count := data["count"].(float64); count != 5 {
		t.Errorf("expected 5 events, got %v", count)
	}

	// The configured maximum caps oversized requests
	_, envelope = doRequest(t, srv, http.MethodGet, "/api/v1/events/sample?limit=100000", "")
	data = envelope.Data.(map[string]interface{})
	if count := data["count"].(float64); count > 100 {
		t.Errorf("expected limit capped at 100, got %v", count)
	}

	rec, _ = doRequest(t, srv, http.MethodGet, "/api/v1/events/sample?limit=-3", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for negative limit, got %d", rec.Code)
	}
}

func TestExperimentRunEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec, envelope := doRequest(t, srv, http.MethodPost, "/api/v1/experiment/run", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	raw, _ := json.Marshal(envelope.Data)
	var report models.ExperimentReport
	if err := json.Unmarshal(raw, &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}

	if report.TotalUsers != 40 {
		t.Errorf("expected 40 users, got %d", report.TotalUsers)
	}
	if report.SRM.ControlCount+report.SRM.TreatmentCount != report.TotalUsers {
		t.Errorf("SRM counts do not sum to total: %+v", report.SRM)
	}
	if report.Plain == nil {
		t.Fatal("expected plain result")
	}
	if report.CUPED == nil {
		t.Fatal("expected CUPED result with cuped_enabled default")
	}
	if report.Parameters.Seed != 42 {
		t.Errorf("expected default seed echoed, got %d", report.Parameters.Seed)
	}
}

func TestExperimentRunOverrides(t *testing.T) {
	srv := newTestServer(t)

	body := `{"lift_pct": 0.5, "seed": 7, "cuped_enabled": false}`
	rec, envelope := doRequest(t, srv, http.MethodPost, "/api/v1/experiment/run", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	raw, _ := json.Marshal(envelope.Data)
	var report models.ExperimentReport
	if err := json.Unmarshal(raw, &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}

	if report.Parameters.Seed != 7 {
		t.Errorf("expected seed override 7, got %d", report.Parameters.Seed)
	}
	if report.Parameters.SimulatedLiftPct != 50 {
		t.Errorf("expected 50%% lift echoed, got %f", report.Parameters.SimulatedLiftPct)
	}
	if report.CUPED != nil {
		t.Error("expected CUPED disabled by override")
	}
}

func TestExperimentRunValidation(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"ratio out of range", `{"treatment_ratio": 1.5}`},
		{"negative metric window", `{"metric_window_days": -1}`},
		{"covariate not shorter", `{"metric_window_days": 7, "covariate_window_days": 7}`},
		{"malformed JSON", `{"lift_pct": `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, envelope := doRequest(t, srv, http.MethodPost, "/api/v1/experiment/run", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			if envelope.Success {
				t.Error("expected error envelope")
			}
		})
	}
}

func TestDashboardServed(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Content-Type"), "text/html") {
		t.Errorf("expected HTML content type, got %s", rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "Product Analytics") {
		t.Error("expected dashboard markup in response")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_") {
		t.Error("expected prometheus exposition output")
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t)

	rec, _ := doRequest(t, srv, http.MethodGet, "/api/v1/analytics/kpis", "")
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected nosniff header")
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("expected frame deny header")
	}
}
