package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Dhwanijoshi3/nestle-chatbot/cmd/widget/internal/handlers"
	"github.com/Dhwanijoshi3/nestle-chatbot/cmd/widget/internal/middleware"
)

type routerDeps struct {
	chat    *handlers.ChatHandler
	graph   *handlers.GraphHandler
	api     *handlers.APIHandler
	health  *handlers.HealthHandler
	page    *handlers.PageHandler
	limiter middleware.Limiter
	logger  *zap.Logger
}

func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.NewTracingMiddleware(d.logger).Middleware)
	r.Use(middleware.NewRequestMetrics(d.logger).Middleware)
	r.Use(corsMiddleware)

	// Only the routes that reach the backend are limited. The WebSocket is
	// limited per question, not per upgrade.
	limited := func(next http.Handler) http.Handler { return next }
	if d.limiter != nil {
		limited = middleware.NewRateLimiter(d.limiter, d.logger).Middleware
		d.chat.LimitMessages(d.limiter)
	}

	// Page and assets
	r.Get("/", d.page.Index)
	r.Get("/static/*", d.page.Static)

	// Health and metrics
	r.Get("/health", d.health.Health)
	r.Get("/readiness", d.health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// Chat
	r.With(limited).Post("/chat", d.chat.Chat)
	r.Get("/ws", d.chat.WebSocket)

	// Graph manager
	r.Group(func(r chi.Router) {
		r.Use(limited)
		r.Get("/graph/stats", d.graph.Stats)
		r.Post("/graph/add-node", d.graph.AddNode)
		r.Post("/graph/add-relationship", d.graph.AddRelationship)
	})

	// Local formatting, no backend call
	r.Post("/api/format", d.api.Format)
	r.Post("/api/normalize", d.api.Normalize)

	return r
}

// corsMiddleware adds CORS headers so the widget can be embedded on another origin
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, traceparent, tracestate, X-Request-ID")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
