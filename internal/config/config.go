// Package config loads agent configuration from file, environment, and
// the local .env secret file.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	tberrors "github.com/yughpatel/TraceBack/internal/errors"
)

// APIKeyEnvVar is the environment variable holding the oracle credential.
const APIKeyEnvVar = "GEMINI_API_KEY"

// Config holds all configuration for the traceback agent.
type Config struct {
	// APIKey is the oracle credential. Resolved from .env or the
	// environment at startup; never written to config files or logs.
	APIKey string `mapstructure:"-"`

	// Models is the ordered oracle fallback chain, most preferred first.
	Models []string `mapstructure:"models"`

	// Endpoint overrides the oracle base URL (testing, proxies).
	Endpoint string `mapstructure:"endpoint"`

	// ExtractLines bounds the excerpt sent for full extraction.
	ExtractLines int `mapstructure:"extract_lines"`

	// ChatLines bounds the excerpt sent as investigation context.
	ChatLines int `mapstructure:"chat_lines"`

	// HistoryTurns bounds how many prior turns are replayed to the oracle.
	HistoryTurns int `mapstructure:"history_turns"`

	// RequestTimeout is the per-call oracle timeout.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	// Listen is the serve-mode bind address.
	Listen string `mapstructure:"listen"`

	// Verbose enables debug logging.
	Verbose bool `mapstructure:"verbose"`
}

// DefaultConfig returns configuration with default values. The line
// bounds mirror the limits the extraction protocol was tuned for.
func DefaultConfig() *Config {
	return &Config{
		Models: []string{
			"gemini-3-flash-preview",
			"gemini-2.5-flash",
			"gemini-2.5-pro",
		},
		ExtractLines:   5000,
		ChatLines:      2000,
		HistoryTurns:   8,
		RequestTimeout: 120 * time.Second,
		Listen:         ":8690",
	}
}

// Load loads configuration with the following precedence (lowest to highest):
// 1. Default values
// 2. Config file (./traceback.yaml or ~/.traceback.yaml)
// 3. Environment variables (TRACEBACK_*)
// The API key is resolved separately from .env / the environment.
func Load(configPath string) (*Config, error) {
	// Secrets first so the environment lookup below sees them. A missing
	// .env is fine; the key may come from the real environment.
	_ = godotenv.Load()

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("models", defaults.Models)
	v.SetDefault("endpoint", "")
	v.SetDefault("extract_lines", defaults.ExtractLines)
	v.SetDefault("chat_lines", defaults.ChatLines)
	v.SetDefault("history_turns", defaults.HistoryTurns)
	v.SetDefault("request_timeout", defaults.RequestTimeout)
	v.SetDefault("listen", defaults.Listen)
	v.SetDefault("verbose", false)

	v.SetConfigName("traceback")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			v.AddConfigPath(filepath.Join(xdgConfig, "traceback"))
		}
	}

	v.SetEnvPrefix("TRACEBACK")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, tberrors.NewTracebackError(
				tberrors.ErrCodeConfigInvalid, "failed to read config file", err)
		}
		// No config file is fine; defaults and env apply.
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, tberrors.NewTracebackError(
			tberrors.ErrCodeConfigInvalid, "failed to unmarshal config", err)
	}

	cfg.APIKey = os.Getenv(APIKeyEnvVar)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration. A missing API key is a fatal,
// user-visible configuration error, reported once before any oracle call.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return tberrors.NewConfigMissingKeyError(APIKeyEnvVar)
	}
	if len(c.Models) == 0 {
		return tberrors.NewConfigValidationError("models", c.Models, "at least one oracle model is required")
	}
	if c.ExtractLines <= 0 {
		return tberrors.NewConfigValidationError("extract_lines", c.ExtractLines, "must be positive")
	}
	if c.ChatLines <= 0 {
		return tberrors.NewConfigValidationError("chat_lines", c.ChatLines, "must be positive")
	}
	if c.ChatLines > c.ExtractLines {
		return tberrors.NewConfigValidationError("chat_lines", c.ChatLines, "must not exceed extract_lines")
	}
	if c.HistoryTurns <= 0 {
		return tberrors.NewConfigValidationError("history_turns", c.HistoryTurns, "must be positive")
	}
	if c.RequestTimeout <= 0 {
		return tberrors.NewConfigValidationError("request_timeout", c.RequestTimeout, "must be positive")
	}
	return nil
}
