// Package config loads client configuration from a YAML file, environment
// variables (AFPFS_ prefix), and defaults, in that order of precedence
// (env overrides file, file overrides defaults).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/marmos91/afpfs/internal/bytesize"
)

// Config is the top-level client configuration.
type Config struct {
	Connection ConnectionConfig `mapstructure:"connection" yaml:"connection"`
	Session    SessionConfig    `mapstructure:"session" yaml:"session"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics" yaml:"metrics"`
}

// ConnectionConfig controls the DSI transport.
type ConnectionConfig struct {
	// Address is the server's host:port.
	Address string `mapstructure:"address" validate:"required" yaml:"address"`

	// DialTimeout bounds the initial TCP connect.
	DialTimeout time.Duration `mapstructure:"dial_timeout" validate:"required,gt=0" yaml:"dial_timeout"`

	// RequestTimeout is loaded from configuration but not passed to the
	// connection; a command waits for its reply until the caller's context
	// ends or the connection closes.
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`

	// TickleInterval is how often this client sends DSI_TICKLE, whether or
	// not other traffic is flowing.
	// Default: 30s, matching the common AFP server idle-disconnect window.
	TickleInterval time.Duration `mapstructure:"tickle_interval" validate:"required,gt=0" yaml:"tickle_interval"`

	// MaxPendingRequests caps outstanding unanswered requests on the
	// connection (bounded by the 16-bit DSI request ID space regardless).
	MaxPendingRequests int `mapstructure:"max_pending_requests" validate:"required,gt=0,lte=65535" yaml:"max_pending_requests"`

	// MaxReplyPayload caps how large a single reply's declared length may
	// be before the connection refuses to buffer it. Accepts human-readable
	// sizes ("64MiB", "128000000").
	MaxReplyPayload bytesize.ByteSize `mapstructure:"max_reply_payload" validate:"required,gt=0" yaml:"max_reply_payload"`
}

// SessionConfig controls login and version negotiation.
type SessionConfig struct {
	// MinimumVersion is an AFP dialect string (e.g. "AFP3.1") loaded from
	// configuration; version negotiation does not consult it and always
	// takes the best version both sides support.
	MinimumVersion string `mapstructure:"minimum_version" yaml:"minimum_version"`

	// AllowAnonymous is loaded from configuration but not consulted by the
	// session layer, which logs in anonymously only when no credential
	// source is supplied.
	AllowAnonymous bool `mapstructure:"allow_anonymous" yaml:"allow_anonymous"`

	// LoginRetries bounds the interactive credential retry loop.
	LoginRetries int `mapstructure:"login_retries" validate:"gte=0" yaml:"login_retries"`
}

// LoggingConfig controls logging behavior, mirroring internal/logger.Config.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// MetricsConfig controls the optional Prometheus metrics registry.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Address string `mapstructure:"address" yaml:"address"`
}

// Load reads configuration from configPath (or the default search path if
// empty), environment variables, and defaults, then validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if found {
		if err := v.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	} else {
		bindEnvOverrides(v, cfg)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("AFPFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("afpfs")
		v.SetConfigType("yaml")
	}
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		return false, fmt.Errorf("read config file: %w", err)
	}
	return true, nil
}

// bindEnvOverrides applies AFPFS_CONNECTION_ADDRESS and AFPFS_LOGGING_LEVEL
// directly onto the default config when no file was found, since
// viper.Unmarshal only pulls values viper knows the keys for ahead of time.
// Other settings keep their defaults in that case.
func bindEnvOverrides(v *viper.Viper, cfg *Config) {
	if addr := v.GetString("connection.address"); addr != "" {
		cfg.Connection.Address = addr
	}
	if lvl := v.GetString("logging.level"); lvl != "" {
		cfg.Logging.Level = lvl
	}
}

var validate = validator.New()

// Validate checks struct tags on cfg.
func Validate(cfg *Config) error {
	return validate.Struct(cfg)
}
