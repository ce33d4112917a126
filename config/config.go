package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment variable the CLI reads.
const EnvPrefix = "LIBSEAT"

// Config holds all configuration values.
type Config struct {
	APIURL            string        `mapstructure:"api_url"`
	Token             string        `mapstructure:"token"`
	MinHour           int           `mapstructure:"min_hour"`
	MaxHour           int           `mapstructure:"max_hour"`
	DefaultStart      int           `mapstructure:"default_start"`
	DefaultEnd        int           `mapstructure:"default_end"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	LogLevel          string        `mapstructure:"log_level"`
	LogFile           string        `mapstructure:"log_file"`
	Env               string        `mapstructure:"env"`
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("api_url", "http://localhost:8000")
	v.SetDefault("token", "")
	v.SetDefault("min_hour", 9)
	v.SetDefault("max_hour", 18)
	v.SetDefault("default_start", 9)
	v.SetDefault("default_end", 11)
	v.SetDefault("request_timeout", "12s")
	v.SetDefault("requests_per_second", 8)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("env", "production")
}

// Load reads .env, an optional config.yaml and LIBSEAT_* variables into a
// validated Config. Values already bound on v (flags) take precedence.
func Load(v *viper.Viper) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	SetDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "libseat-cli"))
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects hour bounds that cannot host a one-hour interval and a
// default interval that falls outside them.
func (c Config) Validate() error {
	if c.APIURL == "" {
		return errors.New("api_url is required")
	}
	if c.MinHour < 0 || c.MaxHour > 24 || c.MaxHour <= c.MinHour {
		return fmt.Errorf("invalid hour bounds %d-%d", c.MinHour, c.MaxHour)
	}
	if c.DefaultStart < c.MinHour || c.DefaultEnd > c.MaxHour || c.DefaultEnd <= c.DefaultStart {
		return fmt.Errorf("default interval %d-%d is outside %d-%d", c.DefaultStart, c.DefaultEnd, c.MinHour, c.MaxHour)
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request_timeout must be positive")
	}
	if c.RequestsPerSecond < 0 {
		return errors.New("requests_per_second must not be negative")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}
