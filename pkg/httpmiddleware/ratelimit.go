package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

// TooManyRequestsMessage is the error body of a limited request.
const TooManyRequestsMessage = "Too many requests, please try again later."

// RateLimitConfig configures the per-client sliding window limiter.
type RateLimitConfig struct {
	// Max is the number of requests a client may make per Window.
	Max    int
	Window time.Duration
	// KeyFunc identifies the client. Defaults to the client IP.
	KeyFunc func(*http.Request) string
	// Skip exempts matching requests, such as probes and static assets.
	Skip func(*http.Request) bool
	// MeterProvider receives the rejected request counter. Nil disables it.
	MeterProvider metric.MeterProvider
}

// slidingWindow approximates a rolling request count from two adjacent fixed
// windows: the previous one is weighted by how much of it still overlaps.
type slidingWindow struct {
	start time.Time
	curr  float64
	prev  float64
}

func (sw *slidingWindow) advance(now time.Time, size time.Duration) {
	elapsed := now.Sub(sw.start)
	if elapsed < size {
		return
	}
	sw.prev = sw.curr
	if elapsed >= 2*size {
		sw.prev = 0
	}
	sw.curr = 0
	sw.start = now.Truncate(size)
}

func (sw *slidingWindow) count(now time.Time, size time.Duration) float64 {
	overlap := max(0, 1-now.Sub(sw.start).Seconds()/size.Seconds())
	return sw.prev*overlap + sw.curr
}

// quota is the outcome of one rate limit check.
type quota struct {
	remaining int
	resetAt   time.Time
	allowed   bool
}

func (q quota) writeHeaders(h http.Header, limit int) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(q.remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(q.resetAt.Unix(), 10))
	if !q.allowed {
		wait := max(time.Until(q.resetAt), 0)
		h.Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
	}
}

type rateLimiter struct {
	cfg      RateLimitConfig
	rejected metric.Int64Counter

	mu      sync.Mutex
	windows map[string]*slidingWindow
}

func newRateLimiter(cfg RateLimitConfig) *rateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = clientIP
	}
	mp := cfg.MeterProvider
	if mp == nil {
		mp = noop.NewMeterProvider()
	}
	rejected, err := mp.Meter("storefront/httpmiddleware").Int64Counter("http.server.rate_limited",
		metric.WithDescription("Requests rejected by the rate limiter"),
	)
	if err != nil {
		rejected, _ = noop.NewMeterProvider().Meter("").Int64Counter("")
	}
	return &rateLimiter{
		cfg:      cfg,
		rejected: rejected,
		windows:  make(map[string]*slidingWindow),
	}
}

// take counts one request for key unless the client is over its limit.
func (rl *rateLimiter) take(key string, now time.Time) quota {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	sw, ok := rl.windows[key]
	if !ok {
		sw = &slidingWindow{start: now}
		rl.windows[key] = sw
	}
	sw.advance(now, rl.cfg.Window)

	q := quota{resetAt: sw.start.Add(rl.cfg.Window)}
	used := sw.count(now, rl.cfg.Window)
	if used >= float64(rl.cfg.Max) {
		return q
	}
	sw.curr++
	q.allowed = true
	q.remaining = max(int(float64(rl.cfg.Max)-used-1), 0)
	return q
}

// evict drops clients idle for two full windows.
func (rl *rateLimiter) evict(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, sw := range rl.windows {
		if now.Sub(sw.start) >= 2*rl.cfg.Window {
			delete(rl.windows, key)
		}
	}
}

func (rl *rateLimiter) evictLoop(ctx context.Context) {
	ticker := time.NewTicker(2 * rl.cfg.Window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.evict(now)
		}
	}
}

func (rl *rateLimiter) middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rl.cfg.Skip != nil && rl.cfg.Skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			key := rl.cfg.KeyFunc(r)
			q := rl.take(key, time.Now())
			q.writeHeaders(w.Header(), rl.cfg.Max)
			if !q.allowed {
				rl.rejected.Add(r.Context(), 1)
				zctx.From(r.Context()).Debug("Rate limited", zap.String("key", key))
				writeError(w, http.StatusTooManyRequests, TooManyRequestsMessage)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit enforces a per-client sliding window limit, answering excess
// requests with 429 and {"error": TooManyRequestsMessage}. Every counted
// response carries X-RateLimit-Limit, X-RateLimit-Remaining and
// X-RateLimit-Reset.
//
// Idle clients are never evicted; long-running servers should use
// RateLimitWithCleanup.
func RateLimit(cfg RateLimitConfig) Middleware {
	return newRateLimiter(cfg).middleware()
}

// RateLimitWithCleanup is RateLimit plus a goroutine that evicts idle
// clients until ctx is done.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	rl := newRateLimiter(cfg)
	go rl.evictLoop(ctx)
	return rl.middleware()
}

// clientIP returns the first X-Forwarded-For hop, then X-Real-IP, then the
// connection's remote host.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
