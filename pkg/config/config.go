package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config is the root runtime configuration loaded from config.json.
type Config struct {
	Telegram   TelegramConfig   `json:"telegram"`
	Relay      RelayConfig      `json:"relay"`
	Classifier ClassifierConfig `json:"classifier,omitempty"`
	Registry   RegistryConfig   `json:"registry"`
	Gateway    GatewayConfig    `json:"gateway"`
	Logging    LoggingConfig    `json:"logging,omitempty"`
}

// TelegramConfig configures the Telegram transport.
type TelegramConfig struct {
	Token       string `json:"token" env:"TELEGRAM_BOT_TOKEN"`
	Mode        string `json:"mode" env:"RELAYGUARD_MODE"`
	WebhookPort int    `json:"webhook_port" env:"PORT"`
	SecretToken string `json:"secret_token" env:"TELEGRAM_WEBHOOK_SECRET"`
}

// RelayConfig configures the forwarding pipeline and registration workflow.
type RelayConfig struct {
	SourceChatID       string `json:"source_chat_id" env:"RELAY_SOURCE_CHAT_ID"`
	RegistrationSecret string `json:"registration_secret" env:"RELAY_REGISTRATION_SECRET"`
	OwnerID            string `json:"owner_id" env:"RELAY_OWNER_ID"`
	DeleteFlagged      bool   `json:"delete_flagged"`
	SendTimeoutSeconds int    `json:"send_timeout_seconds"`
}

// ClassifierConfig configures the content-safety rule sets.
//
// Empty keyword/blocklist/TLD sets fall back to built-in defaults; an empty
// allowlist disables allowlist checking entirely.
type ClassifierConfig struct {
	Keywords       map[string]string `json:"keywords,omitempty"`
	BlockedDomains []string          `json:"blocked_domains,omitempty"`
	SuspiciousTLDs []string          `json:"suspicious_tlds,omitempty"`
	AllowedDomains []string          `json:"allowed_domains,omitempty"`
}

// RegistryConfig selects and locates the destination registry backend.
type RegistryConfig struct {
	Backend string `json:"backend" env:"RELAYGUARD_REGISTRY_BACKEND"`
	Path    string `json:"path" env:"RELAYGUARD_REGISTRY_PATH"`
}

// GatewayConfig configures the status server and keep-alive pinger.
type GatewayConfig struct {
	Host                     string `json:"host"`
	Port                     int    `json:"port"`
	BaseURL                  string `json:"base_url" env:"RELAYGUARD_BASE_URL"`
	KeepaliveIntervalSeconds int    `json:"keepalive_interval_seconds"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `json:"format,omitempty"`
	Level     string `json:"level,omitempty"`
	AddSource bool   `json:"add_source,omitempty"`
}

const (
	// ModePolling pulls updates via long polling.
	ModePolling = "polling"
	// ModeWebhook receives updates pushed to a local HTTP listener.
	ModeWebhook = "webhook"
)

const (
	defaultRegistryBackend = "file"
	defaultRegistryPath    = "destinations.json"
	defaultSendTimeout     = 10
)

// LoadConfig resolves config.json, unmarshals it, and applies environment overrides.
func LoadConfig() (*Config, error) {
	configPath, err := findConfigPath()
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("apply environment overrides: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations the relay cannot start with.
func (c *Config) Validate() error {
	switch c.Telegram.Mode {
	case ModePolling, ModeWebhook:
	default:
		return fmt.Errorf("unsupported telegram mode %q", c.Telegram.Mode)
	}

	if c.Telegram.Mode == ModeWebhook {
		if c.Telegram.WebhookPort <= 0 {
			return fmt.Errorf("telegram.webhook_port is required in webhook mode")
		}
		if strings.TrimSpace(c.Gateway.BaseURL) == "" {
			return fmt.Errorf("gateway.base_url is required in webhook mode")
		}
	}

	switch c.Registry.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("unsupported registry backend %q", c.Registry.Backend)
	}

	return nil
}

// applyDefaults fills zero values that have sensible runtime defaults.
func applyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	cfg.Telegram.Mode = strings.ToLower(strings.TrimSpace(cfg.Telegram.Mode))
	if cfg.Telegram.Mode == "" {
		cfg.Telegram.Mode = ModePolling
	}

	cfg.Registry.Backend = strings.ToLower(strings.TrimSpace(cfg.Registry.Backend))
	if cfg.Registry.Backend == "" {
		cfg.Registry.Backend = defaultRegistryBackend
	}

	if strings.TrimSpace(cfg.Registry.Path) == "" {
		cfg.Registry.Path = defaultRegistryPath
	}

	if cfg.Relay.SendTimeoutSeconds <= 0 {
		cfg.Relay.SendTimeoutSeconds = defaultSendTimeout
	}
}

// findConfigPath resolves the active config file location.
//
// Precedence is RELAYGUARD_CONFIG first, then cwd-local fallback paths.
func findConfigPath() (string, error) {
	if value := strings.TrimSpace(os.Getenv("RELAYGUARD_CONFIG")); value != "" {
		if info, err := os.Stat(value); err == nil && !info.IsDir() {
			return value, nil
		}
		return "", fmt.Errorf("RELAYGUARD_CONFIG does not point to a file: %s", value)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	candidates := []string{
		filepath.Join(cwd, "config.json"),
		filepath.Join(cwd, "config", "config.json"),
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("config.json not found (checked %s and %s)", candidates[0], candidates[1])
}
