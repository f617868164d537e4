package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "7080" {
		t.Errorf("expected default port 7080, got %q", cfg.Port)
	}
	if cfg.VersionStore != "memory" {
		t.Errorf("expected memory version store, got %q", cfg.VersionStore)
	}
	if cfg.PlanCacheSize != 256 {
		t.Errorf("expected cache size 256, got %d", cfg.PlanCacheSize)
	}
	if cfg.TracingEnabled {
		t.Error("tracing should be disabled by default")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("VERSION_STORE", "postgres")
	t.Setenv("PLAN_CACHE_SIZE", "32")
	t.Setenv("READ_TIMEOUT", "5s")
	t.Setenv("S3_USE_SSL", "true")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com,")
	t.Setenv("REDIS_URL", "redis://cache:6379")

	cfg := Load()

	if cfg.Port != "9000" {
		t.Errorf("expected port 9000, got %q", cfg.Port)
	}
	if cfg.VersionStore != "postgres" {
		t.Errorf("expected postgres, got %q", cfg.VersionStore)
	}
	if cfg.PlanCacheSize != 32 {
		t.Errorf("expected cache size 32, got %d", cfg.PlanCacheSize)
	}
	if cfg.ReadTimeout != 5*time.Second {
		t.Errorf("expected 5s read timeout, got %v", cfg.ReadTimeout)
	}
	if !cfg.S3UseSSL {
		t.Error("expected S3UseSSL")
	}
	if cfg.RateLimitRPS != 2.5 {
		t.Errorf("expected 2.5 rps, got %v", cfg.RateLimitRPS)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example.com" {
		t.Errorf("unexpected CORS origins %v", cfg.CORSOrigins)
	}
	if cfg.RedisAddr() != "cache:6379" {
		t.Errorf("expected cache:6379, got %q", cfg.RedisAddr())
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("PLAN_CACHE_SIZE", "lots")
	t.Setenv("WRITE_TIMEOUT", "soon")

	cfg := Load()
	if cfg.PlanCacheSize != 256 {
		t.Errorf("expected fallback 256, got %d", cfg.PlanCacheSize)
	}
	if cfg.WriteTimeout != 30*time.Second {
		t.Errorf("expected fallback 30s, got %v", cfg.WriteTimeout)
	}
}
