package middleware

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Dhwanijoshi3/nestle-chatbot/internal/metrics"
)

// RateLimitWindow is the fixed window used by the redis limiter.
const RateLimitWindow = time.Minute

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter decides whether the client identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
	Name() string
}

// MemoryLimiter keeps a token bucket per client in process.
type MemoryLimiter struct {
	perMinute int
	burst     int
	idleTTL   time.Duration
	now       func() time.Time

	mu      sync.Mutex
	clients map[string]*clientBucket
	checks  int
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewMemoryLimiter allows requestsPerMinute on average with bursts of up
// to burst requests.
func NewMemoryLimiter(requestsPerMinute, burst int) *MemoryLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &MemoryLimiter{
		perMinute: requestsPerMinute,
		burst:     burst,
		idleTTL:   10 * time.Minute,
		now:       time.Now,
		clients:   make(map[string]*clientBucket),
	}
}

func (l *MemoryLimiter) Name() string { return "memory" }

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.checks++
	if l.checks%1024 == 0 {
		l.sweep(now)
	}

	b, ok := l.clients[key]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(rate.Limit(float64(l.perMinute)/60), l.burst)}
		l.clients[key] = b
	}
	b.lastSeen = now

	allowed := b.limiter.AllowN(now, 1)
	tokens := b.limiter.TokensAt(now)
	d := Decision{
		Allowed:   allowed,
		Limit:     l.perMinute,
		Remaining: int(math.Max(0, math.Floor(tokens))),
		ResetAt:   now,
	}
	if tokens < 1 && l.perMinute > 0 {
		wait := time.Duration((1 - tokens) * float64(time.Minute) / float64(l.perMinute))
		d.ResetAt = now.Add(wait)
	}
	return d, nil
}

// sweep drops buckets that have not been used for idleTTL.
func (l *MemoryLimiter) sweep(now time.Time) {
	for k, b := range l.clients {
		if now.Sub(b.lastSeen) > l.idleTTL {
			delete(l.clients, k)
		}
	}
}

// RedisLimiter counts requests per client in a one-minute window shared by
// every widget instance.
type RedisLimiter struct {
	redis     *redis.Client
	perMinute int
	now       func() time.Time
}

// NewRedisLimiter creates a new redis-backed limiter.
func NewRedisLimiter(client *redis.Client, requestsPerMinute int) *RedisLimiter {
	return &RedisLimiter{
		redis:     client,
		perMinute: requestsPerMinute,
		now:       time.Now,
	}
}

func (l *RedisLimiter) Name() string { return "redis" }

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	window := l.now().Truncate(RateLimitWindow)
	windowKey := fmt.Sprintf("ratelimit:client:%s:%d", key, window.Unix())
	resetAt := window.Add(RateLimitWindow)

	pipe := l.redis.Pipeline()
	incr := pipe.Incr(ctx, windowKey)
	pipe.Expire(ctx, windowKey, RateLimitWindow+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{Allowed: true, Limit: l.perMinute, Remaining: l.perMinute, ResetAt: resetAt}, fmt.Errorf("rate limit check: %w", err)
	}

	count := incr.Val()
	remaining := l.perMinute - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= int64(l.perMinute),
		Limit:     l.perMinute,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}

// RateLimiter provides rate limiting middleware
type RateLimiter struct {
	limiter Limiter
	logger  *zap.Logger
	now     func() time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limiter Limiter, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{
		limiter: limiter,
		logger:  logger,
		now:     time.Now,
	}
}

// Middleware returns the HTTP middleware function
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := ClientKey(r)

		d, err := rl.limiter.Allow(r.Context(), key)
		if err != nil {
			// Fail open
			rl.logger.Error("Rate limit check failed", zap.String("limiter", rl.limiter.Name()), zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

		if !d.Allowed {
			rl.logger.Warn("Rate limit exceeded",
				zap.String("client", key),
				zap.String("path", r.URL.Path),
				zap.String("trace_id", TraceID(r.Context())),
			)
			metrics.RateLimited.WithLabelValues(rl.limiter.Name()).Inc()

			retry := int64(math.Ceil(d.ResetAt.Sub(rl.now()).Seconds()))
			if retry < 1 {
				retry = 1
			}
			w.Header().Set("Retry-After", strconv.FormatInt(retry, 10))
			sendRateLimitError(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ClientKey identifies the caller: the first X-Forwarded-For hop if present,
// otherwise the remote host.
func ClientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func sendRateLimitError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	response := map[string]interface{}{
		"error":   "Rate limit exceeded",
		"message": "Too many requests. Please retry after the rate limit window resets.",
	}
	_ = json.NewEncoder(w).Encode(response)
}
