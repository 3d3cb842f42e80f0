// Package config loads service settings from HORIZONS_* environment
// variables and an optional YAML file. Environment variables win.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/star/horizons/internal/auth"
	"github.com/star/horizons/internal/client"
)

// EnvPrefix is prepended to every environment variable, e.g.
// HORIZONS_CLIENT_TIMEOUT for client.timeout.
const EnvPrefix = "HORIZONS"

// Config is the effective configuration.
type Config struct {
	HTTPAddr   string
	TrustProxy bool // take client addresses from X-Forwarded-For
	LogLevel   slog.Level
	Auth       auth.Config
	Client     client.Config
	Limits     Limits
}

// Limits caps concurrent gateway requests that reach Horizons.
type Limits struct {
	MaxConcurrentPerIP int
	MaxConcurrent      int
}

func defaults(v *viper.Viper) {
	def := client.DefaultConfig()
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("trust_proxy", "false")
	v.SetDefault("log_level", "info")
	v.SetDefault("auth.enabled", "false")
	v.SetDefault("auth.token", "")
	v.SetDefault("limits.max_concurrent_per_ip", "4")
	v.SetDefault("limits.max_concurrent", "32")
	v.SetDefault("client.base_url", def.BaseURL)
	v.SetDefault("client.center", def.Center)
	v.SetDefault("client.timeout", def.Timeout.String())
	v.SetDefault("client.max_attempts", strconv.Itoa(def.MaxAttempts))
	v.SetDefault("client.backoff", def.Backoff.String())
	v.SetDefault("client.max_body_bytes", strconv.FormatInt(def.MaxBodyBytes, 10))
}

// Load reads the configuration. path may be empty, in which case only the
// environment and defaults are used. Invalid optional values are logged and
// replaced by their default; an unreadable file or enabled auth without a
// token is an error.
func Load(path string, logger *slog.Logger) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	defaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	def := client.DefaultConfig()
	cfg := Config{
		HTTPAddr:   v.GetString("http_addr"),
		TrustProxy: boolValue(v, logger, "trust_proxy", false),
		LogLevel:   logLevel(v, logger),
		Client: client.Config{
			BaseURL:      v.GetString("client.base_url"),
			Center:       v.GetString("client.center"),
			Timeout:      positiveDuration(v, logger, "client.timeout", def.Timeout),
			MaxAttempts:  int(positiveInt(v, logger, "client.max_attempts", int64(def.MaxAttempts))),
			Backoff:      nonNegativeDuration(v, logger, "client.backoff", def.Backoff),
			MaxBodyBytes: positiveInt(v, logger, "client.max_body_bytes", def.MaxBodyBytes),
		},
		Limits: Limits{
			MaxConcurrentPerIP: int(positiveInt(v, logger, "limits.max_concurrent_per_ip", 4)),
			MaxConcurrent:      int(positiveInt(v, logger, "limits.max_concurrent", 32)),
		},
	}

	authCfg, err := loadAuth(v)
	if err != nil {
		return Config{}, err
	}
	cfg.Auth = authCfg

	logger.Info("config loaded",
		"file", v.ConfigFileUsed(),
		"http_addr", cfg.HTTPAddr,
		"trust_proxy", cfg.TrustProxy,
		"log_level", cfg.LogLevel.String(),
		"auth_enabled", cfg.Auth.Enabled,
		"base_url", cfg.Client.BaseURL,
		"center", cfg.Client.Center,
		"timeout_seconds", cfg.Client.Timeout.Seconds(),
		"max_attempts", cfg.Client.MaxAttempts,
		"backoff_seconds", cfg.Client.Backoff.Seconds(),
		"max_body_bytes", cfg.Client.MaxBodyBytes,
		"max_concurrent_per_ip", cfg.Limits.MaxConcurrentPerIP,
		"max_concurrent", cfg.Limits.MaxConcurrent,
	)
	return cfg, nil
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func loadAuth(v *viper.Viper) (auth.Config, error) {
	cfg := auth.Config{}

	enabledStr := v.GetString("auth.enabled")
	enabled, err := strconv.ParseBool(enabledStr)
	if err != nil {
		return cfg, fmt.Errorf("%s must be a boolean value (true/false/1/0), got %q", envName("auth.enabled"), enabledStr)
	}
	cfg.Enabled = enabled

	if cfg.Enabled {
		cfg.Token = v.GetString("auth.token")
		if cfg.Token == "" {
			return cfg, errors.New(envName("auth.token") + " is required when auth is enabled")
		}
	}
	return cfg, nil
}

func logLevel(v *viper.Viper, logger *slog.Logger) slog.Level {
	var level slog.Level
	raw := v.GetString("log_level")
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		logger.Warn("invalid log_level value, using default", "value", raw, "default", "info")
		return slog.LevelInfo
	}
	return level
}

func boolValue(v *viper.Viper, logger *slog.Logger, key string, def bool) bool {
	raw := v.GetString(key)
	b, err := strconv.ParseBool(raw)
	if err != nil {
		logger.Warn("invalid "+key+" value, using default", "value", raw, "default", def)
		return def
	}
	return b
}

func positiveDuration(v *viper.Viper, logger *slog.Logger, key string, def time.Duration) time.Duration {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		logger.Warn("invalid "+key+" value, using default", "value", raw, "default", def.String())
		return def
	}
	return d
}

func nonNegativeDuration(v *viper.Viper, logger *slog.Logger, key string, def time.Duration) time.Duration {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		logger.Warn("invalid "+key+" value, using default", "value", raw, "default", def.String())
		return def
	}
	return d
}

func positiveInt(v *viper.Viper, logger *slog.Logger, key string, def int64) int64 {
	raw := v.GetString(key)
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 1 {
		logger.Warn("invalid "+key+" value, using default", "value", raw, "default", def)
		return def
	}
	return n
}
