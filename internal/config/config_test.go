package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.MatchThreshold != 0.4 {
		t.Errorf("expected default match threshold 0.4, got %g", cfg.MatchThreshold)
	}
	if cfg.HTTPPort == "" {
		t.Error("expected a default http port")
	}
	if cfg.AccessTTL != 15*time.Minute {
		t.Errorf("expected default access ttl 15m, got %s", cfg.AccessTTL)
	}
}

func TestFloatEnv(t *testing.T) {
	t.Setenv("MATCH_THRESHOLD", "0.55")
	if got := floatEnv("MATCH_THRESHOLD", 0.4); got != 0.55 {
		t.Errorf("expected 0.55, got %g", got)
	}

	t.Setenv("MATCH_THRESHOLD", "not-a-float")
	if got := floatEnv("MATCH_THRESHOLD", 0.4); got != 0.4 {
		t.Errorf("expected fallback 0.4, got %g", got)
	}
}

func TestBoolEnv(t *testing.T) {
	t.Setenv("FACE_SKIP", "true")
	if !boolEnv("FACE_SKIP", false) {
		t.Error("expected true")
	}

	t.Setenv("FACE_SKIP", "0")
	if boolEnv("FACE_SKIP", true) {
		t.Error("expected false")
	}

	t.Setenv("FACE_SKIP", "banana")
	if !boolEnv("FACE_SKIP", true) {
		t.Error("expected fallback true")
	}
}

func TestDurationEnv(t *testing.T) {
	t.Setenv("ACCESS_TTL", "30m")
	if got := durationEnv("ACCESS_TTL", time.Minute); got != 30*time.Minute {
		t.Errorf("expected 30m, got %s", got)
	}

	t.Setenv("ACCESS_TTL", "bogus")
	if got := durationEnv("ACCESS_TTL", time.Minute); got != time.Minute {
		t.Errorf("expected fallback 1m, got %s", got)
	}
}

func TestIntEnv(t *testing.T) {
	t.Setenv("RATE_LIMIT_PER_MIN", "42")
	if got := intEnv("RATE_LIMIT_PER_MIN", 120); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
}
