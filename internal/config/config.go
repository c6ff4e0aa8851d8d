// Package config handles loading and validating the respeecher configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for the respeecher CLI and daemon.
type Config struct {
	Respeecher RespeecherConfig `mapstructure:"respeecher"`
	Server     ServerConfig     `mapstructure:"server"`
	Transports TransportsConfig `mapstructure:"transports"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// RespeecherConfig holds the backend connection and the synthesis defaults.
type RespeecherConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	Domain       string        `mapstructure:"domain"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Verbose      bool          `mapstructure:"verbose"`
	Project      string        `mapstructure:"project"`  // Empty means resolver.DefaultProject
	Folder       string        `mapstructure:"folder"`   // Empty means resolver.DefaultFolder
	Language     string        `mapstructure:"language"` // ISO-639-1 text language
}

// ServerConfig holds the health check server settings.
type ServerConfig struct {
	HealthPort int `mapstructure:"health_port"`
}

// TransportsConfig holds the configuration for each transport layer.
type TransportsConfig struct {
	GRPC GRPCConfig `mapstructure:"grpc"`
	HTTP HTTPConfig `mapstructure:"http"`
}

// GRPCConfig configures the gRPC transport.
type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// HTTPConfig configures the HTTP transport.
type HTTPConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Load reads the configuration from file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./respeecher.yaml, ./configs/respeecher.yaml, /etc/respeecher/respeecher.yaml.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("respeecher.api_key", "")
	v.SetDefault("respeecher.domain", "https://gateway.respeecher.com")
	v.SetDefault("respeecher.poll_interval", "500ms")
	v.SetDefault("respeecher.timeout", "120s")
	v.SetDefault("respeecher.verbose", false)
	v.SetDefault("respeecher.project", "")
	v.SetDefault("respeecher.folder", "")
	v.SetDefault("respeecher.language", "en")
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("transports.grpc.enabled", true)
	v.SetDefault("transports.grpc.port", 50051)
	v.SetDefault("transports.http.enabled", true)
	v.SetDefault("transports.http.port", 8080)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("respeecher")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/respeecher")
	}

	// Environment variables: RESPEECHER_RESPEECHER_DOMAIN, RESPEECHER_SERVER_HEALTH_PORT, etc.
	v.SetEnvPrefix("RESPEECHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The API key also reads the unprefixed-section name RESPEECHER_API_KEY, which wins.
	if err := v.BindEnv("respeecher.api_key", "RESPEECHER_API_KEY", "RESPEECHER_RESPEECHER_API_KEY"); err != nil {
		return nil, fmt.Errorf("binding api key env: %w", err)
	}

	// Read config file (optional; env vars and defaults are sufficient)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Debug("no config file found, using defaults and environment variables")
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Resolve env var references in sensitive fields (e.g., "${RESPEECHER_API_KEY}")
	cfg.Respeecher.APIKey = resolveEnvRef(cfg.Respeecher.APIKey)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Respeecher.PollInterval <= 0 {
		return fmt.Errorf("respeecher.poll_interval must be positive, got %s", c.Respeecher.PollInterval)
	}
	if c.Respeecher.Timeout <= 0 {
		return fmt.Errorf("respeecher.timeout must be positive, got %s", c.Respeecher.Timeout)
	}
	return nil
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		envKey := val[2 : len(val)-1]
		if envVal := os.Getenv(envKey); envVal != "" {
			return envVal
		}
	}
	return val
}

// SetupLogging configures the global slog logger based on config.
func SetupLogging(cfg LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
