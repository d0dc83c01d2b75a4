package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/propagation"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Dhwanijoshi3/nestle-chatbot/internal/tracing"
)

var propagator = propagation.TraceContext{}

// TracingMiddleware joins the browser's trace, or starts one, and opens a
// server span for the request. Backend calls made with the request context
// become children of that span.
type TracingMiddleware struct {
	logger *zap.Logger
}

// NewTracingMiddleware creates a new tracing middleware
func NewTracingMiddleware(logger *zap.Logger) *TracingMiddleware {
	return &TracingMiddleware{
		logger: logger,
	}
}

// Middleware returns the HTTP middleware function
func (tm *TracingMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		if !oteltrace.SpanContextFromContext(ctx).IsValid() {
			ctx = oteltrace.ContextWithRemoteSpanContext(ctx, oteltrace.NewSpanContext(oteltrace.SpanContextConfig{
				TraceID:    headerTraceID(r),
				SpanID:     newSpanID(),
				TraceFlags: oteltrace.FlagsSampled,
				Remote:     true,
			}))
		}

		ctx, span := tracing.StartServerSpan(ctx, r.Method, r.URL.Path)
		defer span.End()

		sc := span.SpanContext()
		traceID, spanID := sc.TraceID().String(), sc.SpanID().String()
		w.Header().Set("X-Trace-ID", traceID)
		w.Header().Set("X-Span-ID", spanID)

		tm.logger.Debug("Request received",
			zap.String("trace_id", traceID),
			zap.String("span_id", spanID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
		)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TraceID returns the request's trace ID, or "" outside the middleware.
func TraceID(ctx context.Context) string {
	sc := oteltrace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}

// headerTraceID reuses X-Trace-ID or X-Request-ID when it is a 32 digit hex
// ID (dashes allowed), otherwise it makes a new one.
func headerTraceID(r *http.Request) oteltrace.TraceID {
	for _, h := range []string{"X-Trace-ID", "X-Request-ID"} {
		v := strings.ReplaceAll(strings.ToLower(r.Header.Get(h)), "-", "")
		if id, err := oteltrace.TraceIDFromHex(v); err == nil {
			return id
		}
	}
	return oteltrace.TraceID(uuid.New())
}

func newSpanID() oteltrace.SpanID {
	var id oteltrace.SpanID
	u := uuid.New()
	copy(id[:], u[:8])
	return id
}
