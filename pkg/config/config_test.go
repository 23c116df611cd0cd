package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	return path
}

func TestLoadConfigFromEnvPath(t *testing.T) {
	path := writeConfig(t, `{
	  "telegram": {"token": "123:abc", "mode": "polling"},
	  "relay": {"source_chat_id": "-4873981826", "registration_secret": "abc123"},
	  "registry": {"backend": "file", "path": "dest.json"},
	  "gateway": {"host": "0.0.0.0", "port": 10000},
	  "logging": {"format": "json", "level": "debug", "add_source": true}
	}`)

	t.Setenv("RELAYGUARD_CONFIG", path)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}

	if cfg.Relay.SourceChatID != "-4873981826" {
		t.Fatalf("relay.source_chat_id = %q, want %q", cfg.Relay.SourceChatID, "-4873981826")
	}
	if cfg.Registry.Path != "dest.json" {
		t.Fatalf("registry.path = %q, want %q", cfg.Registry.Path, "dest.json")
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("logging.format = %q, want %q", cfg.Logging.Format, "json")
	}
	if cfg.Relay.SendTimeoutSeconds != defaultSendTimeout {
		t.Fatalf("relay.send_timeout_seconds = %d, want default %d", cfg.Relay.SendTimeoutSeconds, defaultSendTimeout)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeConfig(t, `{
	  "telegram": {"token": "file-token"},
	  "relay": {"source_chat_id": "-1"},
	  "registry": {}
	}`)

	t.Setenv("RELAYGUARD_CONFIG", path)
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("RELAY_REGISTRATION_SECRET", "s3cret")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}

	if cfg.Telegram.Token != "env-token" {
		t.Fatalf("telegram.token = %q, want env override", cfg.Telegram.Token)
	}
	if cfg.Relay.RegistrationSecret != "s3cret" {
		t.Fatalf("relay.registration_secret = %q, want %q", cfg.Relay.RegistrationSecret, "s3cret")
	}
	if cfg.Telegram.Mode != ModePolling {
		t.Fatalf("telegram.mode = %q, want default %q", cfg.Telegram.Mode, ModePolling)
	}
	if cfg.Registry.Backend != "file" {
		t.Fatalf("registry.backend = %q, want default %q", cfg.Registry.Backend, "file")
	}
}

func TestLoadConfigInvalidEnvPath(t *testing.T) {
	t.Setenv("RELAYGUARD_CONFIG", filepath.Join(t.TempDir(), "missing.json"))

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for missing config path")
	}
}

func TestValidateWebhookRequiresPortAndBaseURL(t *testing.T) {
	cfg := &Config{}
	cfg.Telegram.Mode = ModeWebhook
	cfg.Registry.Backend = "file"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for webhook mode without port")
	}

	cfg.Telegram.WebhookPort = 10000
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for webhook mode without base_url")
	}

	cfg.Gateway.BaseURL = "https://relay.example.com"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate error: %v", err)
	}
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := &Config{}
	cfg.Telegram.Mode = ModePolling
	cfg.Registry.Backend = "redis"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown registry backend")
	}
}
