package config_test

import (
	"testing"
	"time"

	"github.com/Abraxas-365/authbuilder/pkg/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg := config.Load()

	if cfg.Auth.Token.AccessTTL != 60*time.Minute {
		t.Errorf("access ttl = %v", cfg.Auth.Token.AccessTTL)
	}
	if cfg.Auth.Token.RefreshTTL != 7*24*time.Hour {
		t.Errorf("refresh ttl = %v", cfg.Auth.Token.RefreshTTL)
	}
	if cfg.Auth.Token.SweepInterval != 30*time.Minute {
		t.Errorf("sweep interval = %v", cfg.Auth.Token.SweepInterval)
	}
	if cfg.Auth.OTP.TTL != 10*time.Minute {
		t.Errorf("otp ttl = %v", cfg.Auth.OTP.TTL)
	}
	if cfg.SMTP.Host != "smtp.gmail.com" || cfg.SMTP.Port != 587 {
		t.Errorf("smtp defaults = %+v", cfg.SMTP)
	}
	if cfg.Auth.AdminEmail != "admin@admin.com" {
		t.Errorf("admin email = %q", cfg.Auth.AdminEmail)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DEFAULT_SMTP_HOST", "mail.example.com")
	t.Setenv("DEFAULT_SMTP_PORT", "465")
	t.Setenv("DEFAULT_SMTP_SECURE", "yes")
	t.Setenv("DEFAULT_SMTP_USER", "bot@example.com")
	t.Setenv("OTP_TTL", "5m")
	t.Setenv("JOBX_QUEUES", "notifications, default ,")

	cfg := config.Load()

	if cfg.SMTP.Host != "mail.example.com" || cfg.SMTP.Port != 465 || !cfg.SMTP.Secure {
		t.Fatalf("unexpected smtp %+v", cfg.SMTP)
	}
	if cfg.SMTP.From != "bot@example.com" {
		t.Fatalf("from should default to the smtp user, got %q", cfg.SMTP.From)
	}
	if cfg.Auth.OTP.TTL != 5*time.Minute {
		t.Fatalf("otp ttl = %v", cfg.Auth.OTP.TTL)
	}
	if got := cfg.Jobx.Queues; len(got) != 2 || got[0] != "notifications" || got[1] != "default" {
		t.Fatalf("queues = %v", got)
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("DEFAULT_SMTP_PORT", "not-a-number")
	t.Setenv("TOKEN_ACCESS_TTL", "soon")

	cfg := config.Load()
	if cfg.SMTP.Port != 587 || cfg.Auth.Token.AccessTTL != time.Hour {
		t.Fatalf("expected fallbacks, got port=%d ttl=%v", cfg.SMTP.Port, cfg.Auth.Token.AccessTTL)
	}
}
