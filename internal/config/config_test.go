package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SHARE_LINK_SECRET", "test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: unexpected error %v", err)
	}

	if cfg.ServerPort != 8080 {
		t.Errorf("ServerPort = %d, want 8080", cfg.ServerPort)
	}
	if cfg.DBName != "clinic" {
		t.Errorf("DBName = %q, want clinic", cfg.DBName)
	}
	if cfg.SessionTTL != 12*time.Hour {
		t.Errorf("SessionTTL = %v, want 12h", cfg.SessionTTL)
	}
	if !cfg.RateLimit.Enabled {
		t.Error("rate limiting should default to enabled")
	}
	if cfg.RateLimit.LoginMaxRequests != 5 {
		t.Errorf("LoginMaxRequests = %d, want 5", cfg.RateLimit.LoginMaxRequests)
	}
	if cfg.RateLimit.LoginWindow != 15*time.Minute {
		t.Errorf("LoginWindow = %v, want 15m", cfg.RateLimit.LoginWindow)
	}
	if cfg.HasRedis() {
		t.Error("redis should default to unconfigured")
	}
	if cfg.HasSMTP() {
		t.Error("smtp should default to unconfigured")
	}
	if cfg.HasWhatsApp() {
		t.Error("whatsapp should default to unconfigured")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SHARE_LINK_SECRET", "test-secret")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("RATE_LIMIT_LOGIN_MAX", "10")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: unexpected error %v", err)
	}

	if cfg.ServerPort != 9090 {
		t.Errorf("ServerPort = %d, want 9090", cfg.ServerPort)
	}
	if cfg.SessionTTL != time.Hour {
		t.Errorf("SessionTTL = %v, want 1h", cfg.SessionTTL)
	}
	if cfg.RateLimit.Enabled {
		t.Error("rate limiting should be disabled")
	}
	if cfg.RateLimit.LoginMaxRequests != 10 {
		t.Errorf("LoginMaxRequests = %d, want 10", cfg.RateLimit.LoginMaxRequests)
	}
	if !cfg.HasRedis() {
		t.Error("redis should be configured")
	}
}

func TestLoadRequiresShareLinkSecret(t *testing.T) {
	t.Setenv("SHARE_LINK_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load must fail without SHARE_LINK_SECRET")
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("SHARE_LINK_SECRET", "test-secret")
	t.Setenv("SERVER_PORT", "not-a-number")
	t.Setenv("SESSION_TTL", "not-a-duration")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: unexpected error %v", err)
	}
	if cfg.ServerPort != 8080 {
		t.Errorf("ServerPort = %d, want default 8080", cfg.ServerPort)
	}
	if cfg.SessionTTL != 12*time.Hour {
		t.Errorf("SessionTTL = %v, want default 12h", cfg.SessionTTL)
	}
}
