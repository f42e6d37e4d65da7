// Package config loads the server configuration from config.yaml and
// LIBRARIAN_* environment variables. Configuration is read once at startup
// and immutable afterwards.
package config

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// Config is the full server configuration.
type Config struct {
	DefaultLanguage string          `mapstructure:"default_language"`
	UserAgent       string          `mapstructure:"user_agent"`
	RequestTimeout  time.Duration   `mapstructure:"request_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
	HTTP            ChannelConfig   `mapstructure:"http"`
	WebSocket       ChannelConfig   `mapstructure:"websocket"`
	Logging         LoggingConfig   `mapstructure:"logging"`
}

// RateLimitConfig shapes the token bucket guarding upstream calls.
type RateLimitConfig struct {
	Capacity     int     `mapstructure:"capacity"`
	RefillPerSec float64 `mapstructure:"refill_per_sec"`
}

// ChannelConfig is the listen address and endpoint path of one network
// channel.
type ChannelConfig struct {
	Addr     string `mapstructure:"addr"`
	Endpoint string `mapstructure:"endpoint"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DefaultLanguage: "en",
		UserAgent:       "librarian/1.0 (https://github.com/mlziade/librarian)",
		RequestTimeout:  15 * time.Second,
		RateLimit: RateLimitConfig{
			Capacity:     10,
			RefillPerSec: 2,
		},
		HTTP: ChannelConfig{
			Addr:     ":8080",
			Endpoint: "/mcp",
		},
		WebSocket: ChannelConfig{
			Addr:     ":8081",
			Endpoint: "/ws",
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
	}
}

// Load reads the configuration from the given file, or from ./config.yaml
// and ~/.librarian/config.yaml when no file is named. A missing config file
// is not an error; defaults and environment variables apply.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	defaults := Default()
	v.SetDefault("default_language", defaults.DefaultLanguage)
	v.SetDefault("user_agent", defaults.UserAgent)
	v.SetDefault("request_timeout", defaults.RequestTimeout)
	v.SetDefault("rate_limit.capacity", defaults.RateLimit.Capacity)
	v.SetDefault("rate_limit.refill_per_sec", defaults.RateLimit.RefillPerSec)
	v.SetDefault("http.addr", defaults.HTTP.Addr)
	v.SetDefault("http.endpoint", defaults.HTTP.Endpoint)
	v.SetDefault("websocket.addr", defaults.WebSocket.Addr)
	v.SetDefault("websocket.endpoint", defaults.WebSocket.Endpoint)
	v.SetDefault("logging.level", defaults.Logging.Level)

	v.SetEnvPrefix("LIBRARIAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.librarian")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &cfg, nil
}
