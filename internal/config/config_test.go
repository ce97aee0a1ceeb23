package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/clinic_test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %q", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Errorf("expected default env development, got %q", cfg.Env)
	}
	if cfg.DBMaxConns != 20 {
		t.Errorf("expected default max conns 20, got %d", cfg.DBMaxConns)
	}
	if cfg.SlotLockTTL != 5*time.Second {
		t.Errorf("expected default lock TTL 5s, got %s", cfg.SlotLockTTL)
	}
	if cfg.ReminderLookahead != 24*time.Hour {
		t.Errorf("expected default lookahead 24h, got %s", cfg.ReminderLookahead)
	}
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Error("expected error when DATABASE_URL is missing")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/clinic_test")
	t.Setenv("PORT", "9100")
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != "9100" {
		t.Errorf("expected port 9100, got %q", cfg.Port)
	}
	if !cfg.IsProduction() {
		t.Error("expected production mode")
	}
}

func TestValidate_ProductionNeedsSecret(t *testing.T) {
	cfg := &Config{Env: "production", SlotLockTTL: time.Second, ReminderLookahead: time.Hour}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for production without JWT_SECRET")
	}

	cfg.JWTSecret = "secret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_DevAllowsMissingSecret(t *testing.T) {
	cfg := &Config{Env: "development", SlotLockTTL: time.Second, ReminderLookahead: time.Hour}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error in dev mode: %v", err)
	}
}

func TestValidate_RejectsNonPositiveDurations(t *testing.T) {
	cfg := &Config{Env: "development", SlotLockTTL: 0, ReminderLookahead: time.Hour}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero SLOT_LOCK_TTL")
	}
	cfg = &Config{Env: "development", SlotLockTTL: time.Second, ReminderLookahead: -time.Hour}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative REMINDER_LOOKAHEAD")
	}
}
