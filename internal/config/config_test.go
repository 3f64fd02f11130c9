package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Session.Duration != 7*24*time.Hour {
		t.Errorf("session duration = %v, want 7 days", cfg.Session.Duration)
	}
	if cfg.Session.VerifyInterval != 30*time.Second {
		t.Errorf("verify interval = %v, want 30s", cfg.Session.VerifyInterval)
	}
	if cfg.Session.WarningWindow != 10*time.Second {
		t.Errorf("warning window = %v, want 10s", cfg.Session.WarningWindow)
	}
	if cfg.Cache.Version != "v1.3.0" {
		t.Errorf("cache version = %q, want v1.3.0", cfg.Cache.Version)
	}
	if cfg.Cache.FreshPath != "videos.json" {
		t.Errorf("fresh path = %q, want videos.json", cfg.Cache.FreshPath)
	}
	if len(cfg.Cache.Manifest) == 0 {
		t.Error("default manifest must not be empty")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SESSION_VERIFY_INTERVAL", "5s")
	t.Setenv("CACHE_VERSION", "v2.0.0")
	t.Setenv("CACHE_MANIFEST", "/,/app.js")

	cfg := Load()

	if cfg.Session.VerifyInterval != 5*time.Second {
		t.Errorf("verify interval = %v, want 5s override", cfg.Session.VerifyInterval)
	}
	if cfg.Cache.Version != "v2.0.0" {
		t.Errorf("cache version = %q, want v2.0.0 override", cfg.Cache.Version)
	}
	if len(cfg.Cache.Manifest) != 2 || cfg.Cache.Manifest[1] != "/app.js" {
		t.Errorf("manifest override = %v, want [/ /app.js]", cfg.Cache.Manifest)
	}
}

func TestRedisAddr(t *testing.T) {
	r := RedisConfig{Host: "redis", Port: "6380"}
	if r.Addr() != "redis:6380" {
		t.Errorf("Addr = %q, want redis:6380", r.Addr())
	}
}
