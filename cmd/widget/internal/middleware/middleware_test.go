package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Dhwanijoshi3/nestle-chatbot/internal/tracing"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestTracingMiddlewarePropagatesToBackend(t *testing.T) {
	tm := NewTracingMiddleware(zaptest.NewLogger(t))

	var outgoing string
	h := tm.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracing.StartHTTPSpan(r.Context(), "chat", http.MethodPost, "http://backend/chat")
		defer span.End()
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://backend/chat", nil)
		require.NoError(t, err)
		tracing.InjectTraceparent(ctx, req)
		outgoing = req.Header.Get("traceparent")
	}))

	t.Run("joins the incoming trace", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/chat", nil)
		req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
		h.ServeHTTP(httptest.NewRecorder(), req)
		assert.True(t, strings.HasPrefix(outgoing, "00-4bf92f3577b34da6a3ce929d0e0e4736-"), outgoing)
	})

	t.Run("starts a trace when none is sent", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", nil))
		traceID := rec.Header().Get("X-Trace-ID")
		require.Len(t, traceID, 32)
		assert.True(t, strings.HasPrefix(outgoing, "00-"+traceID+"-"), outgoing)
	})
}

func TestTracingMiddleware(t *testing.T) {
	tm := NewTracingMiddleware(zaptest.NewLogger(t))

	var seen string
	h := tm.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = TraceID(r.Context())
	}))

	t.Run("generates IDs", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Len(t, rec.Header().Get("X-Trace-ID"), 32)
		assert.NotEmpty(t, rec.Header().Get("X-Span-ID"))
		assert.Equal(t, rec.Header().Get("X-Trace-ID"), seen)
	})

	t.Run("uses traceparent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", rec.Header().Get("X-Trace-ID"))
		assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", seen)
	})

	t.Run("reuses a hex request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "0af76519-16cd-43dd-8448-eb211c80319c")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, "0af7651916cd43dd8448eb211c80319c", seen)
	})

	t.Run("replaces a non hex request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "req-1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Len(t, seen, 32)
		assert.Equal(t, rec.Header().Get("X-Trace-ID"), seen)
	})

	assert.Empty(t, TraceID(context.Background()))
}

func TestMemoryLimiter(t *testing.T) {
	l := NewMemoryLimiter(60, 2)
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	d, err := l.Allow(ctx, "a")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)

	d, _ = l.Allow(ctx, "a")
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)

	d, _ = l.Allow(ctx, "a")
	assert.False(t, d.Allowed)
	assert.Equal(t, 60, d.Limit)
	assert.True(t, d.ResetAt.After(now))

	d, _ = l.Allow(ctx, "b")
	assert.True(t, d.Allowed, "clients are limited independently")

	now = now.Add(time.Second)
	d, _ = l.Allow(ctx, "a")
	assert.True(t, d.Allowed, "one token refills per second at 60/min")
}

func TestMemoryLimiterSweep(t *testing.T) {
	l := NewMemoryLimiter(60, 1)
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }

	_, _ = l.Allow(context.Background(), "old")
	now = now.Add(time.Hour)
	l.sweep(now)
	assert.Empty(t, l.clients)
}

func newRedisLimiter(t *testing.T, perMinute int) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLimiter(client, perMinute), mr
}

func TestRedisLimiter(t *testing.T) {
	l, mr := newRedisLimiter(t, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}
	d, err := l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.True(t, d.ResetAt.After(time.Now()))

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Contains(t, keys[0], "ratelimit:client:1.2.3.4:")
	assert.Greater(t, mr.TTL(keys[0]), time.Duration(0))
}

func TestRateLimiterMiddleware(t *testing.T) {
	l, _ := newRedisLimiter(t, 1)
	h := NewRateLimiter(l, zaptest.NewLogger(t)).Middleware(okHandler)

	req := httptest.NewRequest(http.MethodPost, "/chat", nil)
	req.RemoteAddr = "10.0.0.1:5555"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Rate limit exceeded", body["error"])
	assert.NotEmpty(t, body["message"])

	other := httptest.NewRequest(http.MethodPost, "/chat", nil)
	other.RemoteAddr = "10.0.0.2:5555"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiterFailsOpen(t *testing.T) {
	l, mr := newRedisLimiter(t, 1)
	mr.Close()
	h := NewRateLimiter(l, zaptest.NewLogger(t)).Middleware(okHandler)

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimiterMemoryBurst(t *testing.T) {
	h := NewRateLimiter(NewMemoryLimiter(1, 3), zaptest.NewLogger(t)).Middleware(okHandler)

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{200, 200, 200, 429}, codes)
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", ClientKey(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	assert.Equal(t, "203.0.113.5", ClientKey(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "nohost"
	assert.Equal(t, "nohost", ClientKey(req))
}

func TestRequestMetricsUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(NewRequestMetrics(zaptest.NewLogger(t)).Middleware)
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/items/{id}", routePattern(r))
		w.WriteHeader(http.StatusAccepted)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/42", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)

	assert.Equal(t, "unmatched", routePattern(httptest.NewRequest(http.MethodGet, "/", nil)))
}
