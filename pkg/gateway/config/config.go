// Package config loads gateway configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every tunable the gateway and the presence core read.
type Config struct {
	Addr string `env:"GOOF_ADDR" envDefault:":5000"`

	// DiscordToken authenticates the messaging bot. When empty, the token is
	// read from DiscordTokenFile instead (the historical deployment shape).
	DiscordToken     string `env:"GOOF_DISCORD_TOKEN"`
	DiscordTokenFile string `env:"GOOF_DISCORD_TOKEN_FILE" envDefault:"TOKEN"`

	// InviteBaseURL is embedded in invite notifications.
	InviteBaseURL string `env:"GOOF_INVITE_BASE_URL" envDefault:"https://auth.awesomesauce.software"`

	AvatarDir string `env:"GOOF_AVATAR_DIR" envDefault:"avatars"`
	DBPath    string `env:"GOOF_DB_PATH" envDefault:"gooftuber.db"`

	CodeTTL         time.Duration `env:"GOOF_CODE_TTL" envDefault:"300s"`
	InviteTTL       time.Duration `env:"GOOF_INVITE_TTL" envDefault:"24h"`
	LiveStateTTL    time.Duration `env:"GOOF_LIVE_STATE_TTL" envDefault:"60s"`
	JanitorInterval time.Duration `env:"GOOF_JANITOR_INTERVAL" envDefault:"60s"`
	PersistInterval time.Duration `env:"GOOF_PERSIST_INTERVAL" envDefault:"60s"`

	// Relay connection loop tunables.
	RelayPollInterval    time.Duration `env:"GOOF_RELAY_POLL_INTERVAL" envDefault:"50ms"`
	RelayInertTimeout    time.Duration `env:"GOOF_RELAY_INERT_TIMEOUT" envDefault:"30s"`
	RelayWriteTimeout    time.Duration `env:"GOOF_RELAY_WRITE_TIMEOUT" envDefault:"5s"`
	RelayPingInterval    time.Duration `env:"GOOF_RELAY_PING_INTERVAL" envDefault:"20s"`
	RelayMaxMessageBytes int64         `env:"GOOF_RELAY_MAX_MESSAGE_BYTES" envDefault:"4096"`

	CORSAllowedOrigins []string `env:"GOOF_CORS_ORIGINS" envSeparator:","`

	MetricsNamespace string `env:"GOOF_METRICS_NAMESPACE" envDefault:"gooftuber"`

	ReadHeaderTimeout   time.Duration `env:"GOOF_READ_HEADER_TIMEOUT" envDefault:"10s"`
	ShutdownGracePeriod time.Duration `env:"GOOF_SHUTDOWN_GRACE_PERIOD" envDefault:"30s"`
}

// LoadFromEnv parses and validates the configuration.
func LoadFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if strings.TrimSpace(cfg.Addr) == "" {
		return Config{}, fmt.Errorf("GOOF_ADDR must not be empty")
	}
	if strings.TrimSpace(cfg.InviteBaseURL) == "" {
		return Config{}, fmt.Errorf("GOOF_INVITE_BASE_URL must not be empty")
	}
	if strings.TrimSpace(cfg.AvatarDir) == "" {
		return Config{}, fmt.Errorf("GOOF_AVATAR_DIR must not be empty")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return Config{}, fmt.Errorf("GOOF_DB_PATH must not be empty")
	}
	if cfg.CodeTTL <= 0 {
		return Config{}, fmt.Errorf("GOOF_CODE_TTL must be > 0")
	}
	if cfg.InviteTTL <= 0 {
		return Config{}, fmt.Errorf("GOOF_INVITE_TTL must be > 0")
	}
	if cfg.LiveStateTTL <= 0 {
		return Config{}, fmt.Errorf("GOOF_LIVE_STATE_TTL must be > 0")
	}
	if cfg.JanitorInterval <= 0 {
		return Config{}, fmt.Errorf("GOOF_JANITOR_INTERVAL must be > 0")
	}
	if cfg.PersistInterval <= 0 {
		return Config{}, fmt.Errorf("GOOF_PERSIST_INTERVAL must be > 0")
	}
	if cfg.RelayPollInterval <= 0 {
		return Config{}, fmt.Errorf("GOOF_RELAY_POLL_INTERVAL must be > 0")
	}
	if cfg.RelayInertTimeout <= 0 {
		return Config{}, fmt.Errorf("GOOF_RELAY_INERT_TIMEOUT must be > 0")
	}
	if cfg.RelayWriteTimeout <= 0 {
		return Config{}, fmt.Errorf("GOOF_RELAY_WRITE_TIMEOUT must be > 0")
	}
	if cfg.RelayPingInterval <= 0 {
		return Config{}, fmt.Errorf("GOOF_RELAY_PING_INTERVAL must be > 0")
	}
	if cfg.RelayMaxMessageBytes <= 0 {
		return Config{}, fmt.Errorf("GOOF_RELAY_MAX_MESSAGE_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.MetricsNamespace) == "" {
		return Config{}, fmt.Errorf("GOOF_METRICS_NAMESPACE must not be empty")
	}
	if cfg.ReadHeaderTimeout <= 0 {
		return Config{}, fmt.Errorf("GOOF_READ_HEADER_TIMEOUT must be > 0")
	}
	if cfg.ShutdownGracePeriod <= 0 {
		return Config{}, fmt.Errorf("GOOF_SHUTDOWN_GRACE_PERIOD must be > 0")
	}
	return cfg, nil
}

// ResolveDiscordToken returns the configured token, falling back to the token
// file when the env var is unset. A missing file is an error: the messenger
// is not optional in production.
func (c Config) ResolveDiscordToken() (string, error) {
	if token := strings.TrimSpace(c.DiscordToken); token != "" {
		return token, nil
	}
	raw, err := os.ReadFile(c.DiscordTokenFile)
	if err != nil {
		return "", fmt.Errorf("read discord token file %q: %w", c.DiscordTokenFile, err)
	}
	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", fmt.Errorf("discord token file %q is empty", c.DiscordTokenFile)
	}
	return token, nil
}
