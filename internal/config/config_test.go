package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.HTTPPort == "" {
		t.Error("HTTPPort default missing")
	}
	if cfg.Timezone == "" {
		t.Error("Timezone default missing")
	}
	if cfg.RateLimitPerMin <= 0 {
		t.Errorf("RateLimitPerMin = %d, want positive", cfg.RateLimitPerMin)
	}
}

func TestLocation(t *testing.T) {
	cfg := App{Timezone: "Asia/Manila"}
	loc, err := cfg.Location()
	if err != nil {
		t.Fatalf("Location: %v", err)
	}
	if loc.String() != "Asia/Manila" {
		t.Errorf("location = %s, want Asia/Manila", loc)
	}

	cfg.Timezone = "Not/AZone"
	if _, err := cfg.Location(); err == nil {
		t.Error("Location accepted an invalid zone")
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("TEST_DURATION", "90s")
	if got := durationEnv("TEST_DURATION", time.Minute); got != 90*time.Second {
		t.Errorf("durationEnv = %v, want 90s", got)
	}
	t.Setenv("TEST_DURATION", "nonsense")
	if got := durationEnv("TEST_DURATION", time.Minute); got != time.Minute {
		t.Errorf("durationEnv fallback = %v, want 1m", got)
	}

	t.Setenv("TEST_INT", "42")
	if got := intEnv("TEST_INT", 7); got != 42 {
		t.Errorf("intEnv = %d, want 42", got)
	}
	t.Setenv("TEST_INT", "nonsense")
	if got := intEnv("TEST_INT", 7); got != 7 {
		t.Errorf("intEnv fallback = %d, want 7", got)
	}
}
