// Product Analytics - Cohort Retention, Funnels, and A/B Experimentation
// Copyright 2026 Aakash Malhan
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Aakash-Malhan/product-analytics-ab-testing

// This file provides HTTP routing using the Chi router.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Aakash-Malhan/product-analytics-ab-testing/internal/config"
	"github.com/Aakash-Malhan/product-analytics-ab-testing/internal/middleware"
)

// Router wires handlers and middleware into the HTTP surface.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router from the handler set and API configuration.
func NewRouter(handler *Handler, apiCfg *config.APIConfig) *Router {
	mwConfig := DefaultChiMiddlewareConfig()
	mwConfig.CORSAllowedOrigins = apiCfg.CORSOrigins
	mwConfig.RateLimitRequests = apiCfg.RateLimitRequests
	if apiCfg.RateLimitWindow > 0 {
		mwConfig.RateLimitWindow = apiCfg.RateLimitWindow
	}

	return &Router{
		handler:       handler,
		chiMiddleware: NewChiMiddleware(mwConfig),
	}
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to all routes in order
	r.Use(RequestIDWithLogging())      // X-Request-ID header with logging context
	r.Use(chimiddleware.RealIP)        // Extract real IP from X-Forwarded-For
	r.Use(chimiddleware.Recoverer)     // Recover from panics
	r.Use(router.chiMiddleware.CORS()) // CORS must be global to handle OPTIONS preflight

	// Health endpoints skip rate limiting so probes never get throttled
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Get("/", router.handler.Health)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	// Analytics and data endpoints
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))

		r.Get("/analytics/retention", router.handler.AnalyticsRetention)
		r.Get("/analytics/funnel", router.handler.AnalyticsFunnel)
		r.Get("/analytics/kpis", router.handler.AnalyticsKPIs)
		r.Get("/events/sample", router.handler.EventsSample)

		r.Post("/experiment/run", router.handler.ExperimentRun)
	})

	// Prometheus scrape endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	// Embedded dashboard
	r.Get("/", router.handler.Dashboard)

	return r
}
