package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Dhwanijoshi3/nestle-chatbot/internal/metrics"
)

// RequestMetrics records a prometheus sample and an access log line per request.
type RequestMetrics struct {
	logger *zap.Logger
}

// NewRequestMetrics creates the access log and metrics middleware.
func NewRequestMetrics(logger *zap.Logger) *RequestMetrics {
	return &RequestMetrics{logger: logger}
}

// Middleware returns the HTTP middleware function
func (rm *RequestMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := routePattern(r)
		elapsed := time.Since(start)
		metrics.RecordHTTP(route, r.Method, strconv.Itoa(status), elapsed.Seconds())

		rm.logger.Info("Request served",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", elapsed),
			zap.String("trace_id", TraceID(r.Context())),
		)
	})
}

// routePattern uses the matched chi pattern so metric labels stay bounded.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
