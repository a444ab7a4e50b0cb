// Package config loads dynarename settings from defaults, an optional YAML
// file, DYNARENAME_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/conduit-lang/dynarename/internal/journal"
	"github.com/conduit-lang/dynarename/internal/rewrite"
)

// EnvPrefix is prepended to every environment variable
const EnvPrefix = "DYNARENAME"

// ErrNoTable is returned when a command needs a table and none is configured
var ErrNoTable = errors.New("no table given (use --table or DYNARENAME_TABLE)")

// ErrNoReplacements is returned when a run has no directives
var ErrNoReplacements = errors.New("no replacements given (use --replace old>new)")

// Config represents the dynarename configuration
type Config struct {
	Table   string        `mapstructure:"table"`
	Replace []string      `mapstructure:"replace"`
	AWS     AWSConfig     `mapstructure:"aws"`
	Journal JournalConfig `mapstructure:"journal"`
	Lock    LockConfig    `mapstructure:"lock"`
	Log     LogConfig     `mapstructure:"log"`
	NoColor bool          `mapstructure:"no_color"`
	Yes     bool          `mapstructure:"yes"`
}

// AWSConfig selects how DynamoDB is reached
type AWSConfig struct {
	Region   string `mapstructure:"region"`
	Profile  string `mapstructure:"profile"`
	Endpoint string `mapstructure:"endpoint"`
	// Timeout is a duration ("30s") or a plain number of seconds
	Timeout string `mapstructure:"timeout"`
	// CallTimeout is Timeout parsed by Load
	CallTimeout time.Duration `mapstructure:"-"`
}

// JournalConfig represents the optional applied-writes journal
type JournalConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// Enabled reports whether a journal DSN is configured
func (j JournalConfig) Enabled() bool {
	return j.DSN != ""
}

// LockConfig represents the optional Redis run lock
type LockConfig struct {
	RedisAddr string        `mapstructure:"redis_addr"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// Enabled reports whether a Redis address is configured
func (l LockConfig) Enabled() bool {
	return l.RedisAddr != ""
}

// LogConfig represents diagnostic logging
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// New returns a viper instance with defaults and environment lookup set up.
// Flags are bound onto it by the command layer before Load is called.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("table", "")
	v.SetDefault("replace", []string{})
	v.SetDefault("aws.region", "")
	v.SetDefault("aws.profile", "")
	v.SetDefault("aws.endpoint", "")
	v.SetDefault("aws.timeout", "")
	v.SetDefault("journal.driver", journal.DriverSQLite)
	v.SetDefault("journal.dsn", "")
	v.SetDefault("lock.redis_addr", "")
	v.SetDefault("lock.ttl", 15*time.Minute)
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")
	v.SetDefault("no_color", false)
	v.SetDefault("yes", false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads dynarename.yaml from the working directory, or file when given,
// and decodes the merged settings
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("dynarename")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Rules parses the configured directives for a run. The table and every
// directive are checked before anything remote happens.
func (c *Config) Rules() ([]rewrite.Replace, error) {
	if c.Table == "" {
		return nil, ErrNoTable
	}
	if len(c.Replace) == 0 {
		return nil, ErrNoReplacements
	}
	return rewrite.ParseReplaces(c.Replace)
}

// ParseTimeout accepts a Go duration or a number of seconds. Empty means none.
func ParseTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("timeout must not be negative, got: %s", s)
		}
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: expected seconds or a duration like 30s", s)
	}
	if d < 0 {
		return 0, fmt.Errorf("timeout must not be negative, got: %s", s)
	}
	return d, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	timeout, err := ParseTimeout(cfg.AWS.Timeout)
	if err != nil {
		return err
	}
	cfg.AWS.CallTimeout = timeout

	if cfg.Journal.Enabled() {
		if err := journal.ValidateDriver(cfg.Journal.Driver); err != nil {
			return err
		}
	}

	if cfg.Lock.Enabled() && cfg.Lock.TTL <= 0 {
		return fmt.Errorf("lock.ttl must be positive, got: %s", cfg.Lock.TTL)
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got: %s", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got: %s", cfg.Log.Format)
	}

	return nil
}
