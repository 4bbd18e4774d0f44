package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "dev-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("AccessTokenTTL = %v, want 15m", cfg.AccessTokenTTL)
	}
	if cfg.RefreshTokenTTL != 7*24*time.Hour {
		t.Fatalf("RefreshTokenTTL = %v, want 168h", cfg.RefreshTokenTTL)
	}
	if cfg.OTPTTL != 5*time.Minute {
		t.Fatalf("OTPTTL = %v, want 5m", cfg.OTPTTL)
	}
	if cfg.OTPPepper != "dev-secret" {
		t.Fatalf("OTPPepper should fall back to JWT_SECRET, got %q", cfg.OTPPepper)
	}
	if cfg.RefreshRotation {
		t.Fatalf("rotation must be off by default")
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("Address = %q", cfg.Address())
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error without JWT_SECRET")
	}
}

func TestLoadProductionRequiresBackends(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("SMS_GATEWAY_URL", "https://sms.example.test/send")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error without DATABASE_URL in production")
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/auth")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.IsDev() {
		t.Fatalf("production must not be treated as dev")
	}
}

func TestLoadProductionRequiresSMSGateway(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("DATABASE_URL", "postgres://localhost/auth")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("SMS_GATEWAY_URL", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error without SMS_GATEWAY_URL in production")
	}

	t.Setenv("APP_ENV", "test")
	if _, err := Load(); err != nil {
		t.Fatalf("test env may log codes instead of sending them: %v", err)
	}
}

func TestLoadProductionRejectsShortSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "short")
	t.Setenv("DATABASE_URL", "postgres://localhost/auth")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	if _, err := Load(); err == nil {
		t.Fatalf("expected short secret to be rejected")
	}
}

func TestLoadCustomDurations(t *testing.T) {
	t.Setenv("JWT_SECRET", "dev-secret")
	t.Setenv("ACCESS_TOKEN_TTL", "5m")
	t.Setenv("REFRESH_TOKEN_TTL", "72h")
	t.Setenv("OTP_TTL", "90s")
	t.Setenv("REFRESH_ROTATION", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AccessTokenTTL != 5*time.Minute || cfg.RefreshTokenTTL != 72*time.Hour || cfg.OTPTTL != 90*time.Second {
		t.Fatalf("unexpected durations: %+v", cfg)
	}
	if !cfg.RefreshRotation {
		t.Fatalf("expected rotation enabled")
	}
}

func TestLoadRejectsRefreshShorterThanAccess(t *testing.T) {
	t.Setenv("JWT_SECRET", "dev-secret")
	t.Setenv("ACCESS_TOKEN_TTL", "2h")
	t.Setenv("REFRESH_TOKEN_TTL", "1h")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when refresh ttl <= access ttl")
	}
}

func TestLoadRejectsUnknownLogFormat(t *testing.T) {
	t.Setenv("JWT_SECRET", "dev-secret")
	t.Setenv("LOG_FORMAT", "xml")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown log format")
	}
}
