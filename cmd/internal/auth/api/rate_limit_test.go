package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMemoryLimiter_FixedWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(2, time.Minute)

	for i := 0; i < 2; i++ {
		ok, _, err := l.Allow(ctx, "login:10.0.0.1", now)
		if err != nil || !ok {
			t.Fatalf("hit %d: expected allow, got ok=%v err=%v", i+1, ok, err)
		}
	}

	ok, retry, err := l.Allow(ctx, "login:10.0.0.1", now.Add(20*time.Second))
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if ok {
		t.Fatalf("expected third hit to be throttled")
	}
	if retry != 40*time.Second {
		t.Fatalf("expected retry=40s, got %v", retry)
	}

	if ok, _, _ := l.Allow(ctx, "login:10.0.0.2", now); !ok {
		t.Fatalf("keys must be independent")
	}

	if ok, _, _ := l.Allow(ctx, "login:10.0.0.1", now.Add(time.Minute)); !ok {
		t.Fatalf("expected a fresh window after expiry")
	}
}

func TestRedisLimiter_FixedWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	l := NewRedisLimiter(client, 2, time.Minute)
	now := time.Now()

	for i := 0; i < 2; i++ {
		ok, _, err := l.Allow(ctx, "login:10.0.0.1", now)
		if err != nil || !ok {
			t.Fatalf("hit %d: expected allow, got ok=%v err=%v", i+1, ok, err)
		}
	}

	ok, retry, err := l.Allow(ctx, "login:10.0.0.1", now)
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if ok {
		t.Fatalf("expected third hit to be throttled")
	}
	if retry <= 0 || retry > time.Minute {
		t.Fatalf("unexpected retry: %v", retry)
	}

	mr.FastForward(time.Minute + time.Second)

	if ok, _, err := l.Allow(ctx, "login:10.0.0.1", now); err != nil || !ok {
		t.Fatalf("expected a fresh window after expiry, got ok=%v err=%v", ok, err)
	}
}

func TestRedisLimiter_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	if _, _, err := NewRedisLimiter(client, 1, time.Minute).Allow(context.Background(), "k", time.Now()); err == nil {
		t.Fatalf("expected error when redis is down")
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = "192.0.2.10:5555"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	if got := clientIP(req, false).String(); got != "192.0.2.10" {
		t.Fatalf("untrusted proxy: got %s", got)
	}
	if got := clientIP(req, true).String(); got != "203.0.113.7" {
		t.Fatalf("trusted proxy: got %s", got)
	}

	req.RemoteAddr = "garbage"
	if ip := clientIP(req, false); ip != nil {
		t.Fatalf("expected nil ip, got %v", ip)
	}
	if got := ipKey(nil); got != "unknown" {
		t.Fatalf("ipKey(nil)=%q", got)
	}
}

func TestWriteRateLimited(t *testing.T) {
	rr := httptest.NewRecorder()
	writeRateLimited(rr, 1500*time.Millisecond)

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d", rr.Code)
	}
	if got := rr.Header().Get("Retry-After"); got != "2" {
		t.Fatalf("Retry-After=%q, want 2", got)
	}
}
