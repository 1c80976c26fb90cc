package config

import (
	"errors"
	"testing"
	"time"
)

func setRequiredBotEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DISCORD_BOT_TOKEN", "token-1")
	t.Setenv("POW_CHANNEL_ID", "chan-1")
	t.Setenv("BACKEND_API_URL", "https://backend.example")
}

func TestLoadBotAppliesDefaults(t *testing.T) {
	setRequiredBotEnv(t)

	cfg, err := LoadBot(NewViper())
	if err != nil {
		t.Fatalf("LoadBot: %v", err)
	}
	if cfg.BotToken != "token-1" || cfg.ChannelID != "chan-1" || cfg.BackendURL != "https://backend.example" {
		t.Fatalf("unexpected required values: %+v", cfg)
	}
	if cfg.HTTPAddress != ":3001" {
		t.Fatalf("expected default address, got %q", cfg.HTTPAddress)
	}
	if cfg.BackendTimeout != 10*time.Second {
		t.Fatalf("expected default timeout, got %v", cfg.BackendTimeout)
	}
	expected := BackfillConfig{PageSize: 100, MaxPages: 5, PageDelay: time.Second, MessageDelay: 500 * time.Millisecond}
	if cfg.Backfill != expected {
		t.Fatalf("expected %+v, got %+v", expected, cfg.Backfill)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "json" {
		t.Fatalf("unexpected logging defaults: %q %q", cfg.LogLevel, cfg.LogFormat)
	}
}

func TestLoadBotMissingRequiredValues(t *testing.T) {
	testCases := []struct {
		name  string
		unset string
		want  error
	}{
		{name: "token", unset: "DISCORD_BOT_TOKEN", want: ErrMissingBotToken},
		{name: "channel", unset: "POW_CHANNEL_ID", want: ErrMissingChannelID},
		{name: "backend", unset: "BACKEND_API_URL", want: ErrMissingBackendURL},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			setRequiredBotEnv(t)
			t.Setenv(testCase.unset, "")

			_, err := LoadBot(NewViper())
			if !errors.Is(err, testCase.want) {
				t.Fatalf("expected %v, got %v", testCase.want, err)
			}
		})
	}
}

func TestLoadBotPrefixedEnvOverrides(t *testing.T) {
	setRequiredBotEnv(t)
	t.Setenv("POWBOT_DISCORD_CHANNEL_ID", "chan-2")
	t.Setenv("POWBOT_BACKFILL_MAX_PAGES", "9")
	t.Setenv("POWBOT_BACKFILL_PAGE_DELAY", "2s")
	t.Setenv("POWBOT_BACKEND_TIMEOUT", "3s")

	cfg, err := LoadBot(NewViper())
	if err != nil {
		t.Fatalf("LoadBot: %v", err)
	}
	if cfg.ChannelID != "chan-2" {
		t.Fatalf("expected prefixed channel id to win, got %q", cfg.ChannelID)
	}
	if cfg.Backfill.MaxPages != 9 || cfg.Backfill.PageDelay != 2*time.Second {
		t.Fatalf("unexpected backfill overrides: %+v", cfg.Backfill)
	}
	if cfg.BackendTimeout != 3*time.Second {
		t.Fatalf("unexpected timeout override: %v", cfg.BackendTimeout)
	}
}

func TestLoadBotRejectsOversizedPage(t *testing.T) {
	setRequiredBotEnv(t)
	t.Setenv("POWBOT_BACKFILL_PAGE_SIZE", "101")

	if _, err := LoadBot(NewViper()); err == nil {
		t.Fatalf("expected page size validation error")
	}
}

func TestHTTPAddressResolution(t *testing.T) {
	testCases := []struct {
		name    string
		port    string
		address string
		want    string
	}{
		{name: "default", want: ":3001"},
		{name: "legacy port", port: "4000", want: ":4000"},
		{name: "explicit address wins", port: "4000", address: "127.0.0.1:9000", want: "127.0.0.1:9000"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			setRequiredBotEnv(t)
			t.Setenv("BOT_PORT", testCase.port)
			t.Setenv("POWBOT_HTTP_ADDRESS", testCase.address)

			cfg, err := LoadBot(NewViper())
			if err != nil {
				t.Fatalf("LoadBot: %v", err)
			}
			if cfg.HTTPAddress != testCase.want {
				t.Fatalf("expected %q, got %q", testCase.want, cfg.HTTPAddress)
			}
		})
	}
}

func TestLoadBackend(t *testing.T) {
	t.Setenv("POWBOT_AUTH_SIGNING_SECRET", "secret")

	cfg, err := LoadBackend(NewViper())
	if err != nil {
		t.Fatalf("LoadBackend: %v", err)
	}
	if cfg.DatabasePath != "pow-backend.db" || cfg.SigningSecret != "secret" {
		t.Fatalf("unexpected backend config: %+v", cfg)
	}

	configViper := NewViper()
	configViper.Set("database.path", " ")
	if _, err := LoadBackend(configViper); err == nil {
		t.Fatalf("expected database path validation error")
	}
}
