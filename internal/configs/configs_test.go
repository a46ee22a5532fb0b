package config

import (
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"APP_HOST", "APP_PORT", "DATABASE_DSN", "RATE_LIMIT_PER_MINUTE", "TELEGRAM_TOKEN", "REMINDER_WORKERS"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AppURL != "127.0.0.1:8080" {
		t.Fatalf("unexpected app url %q", cfg.AppURL)
	}
	if cfg.DatabaseDSN != "tasks.db" || cfg.RateLimit != 120 || cfg.ReminderWorkers != 2 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadCollectsErrors(t *testing.T) {
	t.Setenv("RATE_LIMIT_PER_MINUTE", "lots")
	t.Setenv("REMINDER_WORKERS", "0")
	t.Setenv("TELEGRAM_TOKEN", "token")
	t.Setenv("TELEGRAM_CHAT_ID", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected an error")
	}
	for _, want := range []string{"RATE_LIMIT_PER_MINUTE", "REMINDER_WORKERS", "TELEGRAM_CHAT_ID"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}
