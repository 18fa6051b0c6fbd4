package api

import (
	"testing"
	"time"

	"github.com/gouveags/moviescore/cmd/internal/auth/session"
)

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	t.Setenv("MOVIESCORE_AUTH_TRUST_PROXY", "")
	t.Setenv("MOVIESCORE_AUTH_MAX_BODY_BYTES", "")
	t.Setenv("MOVIESCORE_AUTH_THROTTLE_MAX", "")
	t.Setenv("MOVIESCORE_AUTH_THROTTLE_WINDOW", "")

	cfg := LoadConfigFromEnv(false, session.DefaultConfig())

	if cfg.Production || cfg.TrustProxy {
		t.Fatalf("expected development defaults, got %+v", cfg)
	}
	if cfg.AccessTTL != 5*time.Minute {
		t.Fatalf("AccessTTL=%v, want 5m", cfg.AccessTTL)
	}
	if cfg.RefreshTTL != 7*24*time.Hour {
		t.Fatalf("RefreshTTL=%v, want 168h", cfg.RefreshTTL)
	}
	if cfg.ThrottleMax != 30 || cfg.ThrottleWindow != time.Minute {
		t.Fatalf("unexpected throttle defaults: %d per %v", cfg.ThrottleMax, cfg.ThrottleWindow)
	}
}

func TestLoadConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("MOVIESCORE_AUTH_TRUST_PROXY", "true")
	t.Setenv("MOVIESCORE_AUTH_MAX_BODY_BYTES", "2048")
	t.Setenv("MOVIESCORE_AUTH_THROTTLE_MAX", "-3")
	t.Setenv("MOVIESCORE_AUTH_THROTTLE_WINDOW", "10s")

	sess := session.DefaultConfig()
	sess.AccessTokenTTL = time.Minute

	cfg := LoadConfigFromEnv(true, sess)

	if !cfg.Production || !cfg.TrustProxy {
		t.Fatalf("expected production with trusted proxy, got %+v", cfg)
	}
	if cfg.MaxBodyBytes != 2048 {
		t.Fatalf("MaxBodyBytes=%d", cfg.MaxBodyBytes)
	}
	if cfg.ThrottleMax != 30 {
		t.Fatalf("invalid max must fall back to default, got %d", cfg.ThrottleMax)
	}
	if cfg.ThrottleWindow != 10*time.Second {
		t.Fatalf("ThrottleWindow=%v", cfg.ThrottleWindow)
	}
	if cfg.AccessTTL != time.Minute {
		t.Fatalf("AccessTTL must follow the session config, got %v", cfg.AccessTTL)
	}
}
