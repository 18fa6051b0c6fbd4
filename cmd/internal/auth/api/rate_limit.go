package api

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

	"github.com/redis/go-redis/v9"
)

// Limiter counts hits per key in fixed windows.
// Allow reports whether the hit is within budget and, if not, how long until the window resets.
type Limiter interface {
	Allow(ctx context.Context, key string, now time.Time) (bool, time.Duration, error)
}

// MemoryLimiter is a process-local fixed-window limiter.
type MemoryLimiter struct {
	max    int
	window time.Duration

	mu      sync.Mutex
	buckets map[string]bucket
	sweepAt time.Time
}

type bucket struct {
	start time.Time
	count int
}

func NewMemoryLimiter(limit int, win time.Duration) *MemoryLimiter {
	return &MemoryLimiter{max: limit, window: win, buckets: make(map[string]bucket)}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, now time.Time) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.After(l.sweepAt) {
		for k, b := range l.buckets {
			if !now.Before(b.start.Add(l.window)) {
				delete(l.buckets, k)
			}
		}
		l.sweepAt = now.Add(l.window)
	}

	b, ok := l.buckets[key]
	if !ok || !now.Before(b.start.Add(l.window)) {
		b = bucket{start: now}
	}
	b.count++
	l.buckets[key] = b

	if b.count > l.max {
		return false, b.start.Add(l.window).Sub(now), nil
	}
	return true, 0, nil
}

// RedisLimiter shares the fixed window across instances through INCR + EXPIRE.
type RedisLimiter struct {
	client redis.UniversalClient
	max    int
	window time.Duration
	prefix string
}

func NewRedisLimiter(client redis.UniversalClient, limit int, win time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, max: limit, window: win, prefix: "moviescore:throttle:"}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, _ time.Time) (bool, time.Duration, error) {
	k := l.prefix + key

	count, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return false, 0, fmt.Errorf("throttle incr: %w", err)
	}
	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			return false, 0, fmt.Errorf("throttle expire: %w", err)
		}
	}
	if count <= int64(l.max) {
		return true, 0, nil
	}

	ttl, err := l.client.TTL(ctx, k).Result()
	if err != nil || ttl <= 0 {
		ttl = l.window
	}
	return false, ttl, nil
}

// throttle limits requests per client IP under scope.
func (h *Handler) throttle(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if h.limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := scope + ":" + ipKey(clientIP(r, h.cfg.TrustProxy))
			ok, retryAfter, err := h.limiter.Allow(r.Context(), key, h.now())
			if err != nil {
				h.log.Error("auth.throttle.fail", "scope", scope, "err", err)
				writeError(w, http.StatusServiceUnavailable, "server_busy", "please retry later")
				return
			}
			if !ok {
				h.metrics.event(scope, "rate_limited")
				h.insertAudit(r.Context(), "auth.rate_limited", nil, nil, r, map[string]any{
					"scope":         scope,
					"retry_after_s": int64(math.Ceil(retryAfter.Seconds())),
				})
				writeRateLimited(w, retryAfter)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.FormatInt(int64(math.Ceil(retryAfter.Seconds())), 10))
	}
	writeError(w, http.StatusTooManyRequests, "rate_limited", "too many attempts")
}

func ipKey(ip net.IP) string {
	if ip == nil {
		return "unknown"
	}
	return ip.String()
}

func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip
		}
	}
	return nil
}

func parseForwardedIP(raw string) net.IP {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for _, p := range parts {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			return ip
		}
	}
	return nil
}
