package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full application configuration. Thresholds and limits are
// carried explicitly so services receive them at construction instead of
// reading ambient state.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Commands  CommandConfig   `yaml:"commands"`
	Anomaly   AnomalyConfig   `yaml:"anomaly"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type ServerConfig struct {
	Port        string `yaml:"port"`
	DatabaseURL string `yaml:"database_url"`
}

type AuthConfig struct {
	JWTSecret       string        `yaml:"jwt_secret"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`
	BcryptCost      int           `yaml:"bcrypt_cost"`
}

// CommandConfig bounds the command lifecycle.
type CommandConfig struct {
	MaxRetries       int `yaml:"max_retries"`
	PendingBatchSize int `yaml:"pending_batch_size"`
}

// AnomalyConfig holds the detector thresholds.
type AnomalyConfig struct {
	OverfillThreshold int           `yaml:"overfill_threshold"` // fill % above which a bin is overfilled
	OverfillRecency   time.Duration `yaml:"overfill_recency"`   // reading must be this fresh to count
	OfflineAfter      time.Duration `yaml:"offline_after"`      // staleness before a sensor is offline
	LowConfidence     int           `yaml:"low_confidence"`     // classification confidence cutoff
	ImageWindow       time.Duration `yaml:"image_window"`       // how far back to scan unverified images
	SweepInterval     time.Duration `yaml:"sweep_interval"`     // 0 disables the background sweep
}

// UnmarshalYAML parses duration fields from strings like "15m" while
// leaving unspecified keys at their current (default) values.
func (a *AuthConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		JWTSecret       *string `yaml:"jwt_secret"`
		AccessTokenTTL  *string `yaml:"access_token_ttl"`
		RefreshTokenTTL *string `yaml:"refresh_token_ttl"`
		BcryptCost      *int    `yaml:"bcrypt_cost"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.JWTSecret != nil {
		a.JWTSecret = *raw.JWTSecret
	}
	if raw.BcryptCost != nil {
		a.BcryptCost = *raw.BcryptCost
	}
	if err := setDuration(&a.AccessTokenTTL, raw.AccessTokenTTL); err != nil {
		return err
	}
	return setDuration(&a.RefreshTokenTTL, raw.RefreshTokenTTL)
}

func (a *AnomalyConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		OverfillThreshold *int    `yaml:"overfill_threshold"`
		OverfillRecency   *string `yaml:"overfill_recency"`
		OfflineAfter      *string `yaml:"offline_after"`
		LowConfidence     *int    `yaml:"low_confidence"`
		ImageWindow       *string `yaml:"image_window"`
		SweepInterval     *string `yaml:"sweep_interval"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.OverfillThreshold != nil {
		a.OverfillThreshold = *raw.OverfillThreshold
	}
	if raw.LowConfidence != nil {
		a.LowConfidence = *raw.LowConfidence
	}
	for _, pair := range []struct {
		dst *time.Duration
		src *string
	}{
		{&a.OverfillRecency, raw.OverfillRecency},
		{&a.OfflineAfter, raw.OfflineAfter},
		{&a.ImageWindow, raw.ImageWindow},
		{&a.SweepInterval, raw.SweepInterval},
	} {
		if err := setDuration(pair.dst, pair.src); err != nil {
			return err
		}
	}
	return nil
}

func setDuration(dst *time.Duration, src *string) error {
	if src == nil {
		return nil
	}
	d, err := time.ParseDuration(*src)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", *src, err)
	}
	*dst = d
	return nil
}

type RateLimitConfig struct {
	GeneralPerMin int `yaml:"general_per_min"` // per client IP
	AuthPerWindow int `yaml:"auth_per_window"` // login attempts per 15 min window
	DevicePerMin  int `yaml:"device_per_min"`  // per device API key
}

// Default returns the configuration with production defaults applied.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port: "8080",
		},
		Auth: AuthConfig{
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 7 * 24 * time.Hour,
			BcryptCost:      12,
		},
		Commands: CommandConfig{
			MaxRetries:       3,
			PendingBatchSize: 10,
		},
		Anomaly: AnomalyConfig{
			OverfillThreshold: 90,
			OverfillRecency:   time.Hour,
			OfflineAfter:      2 * time.Hour,
			LowConfidence:     60,
			ImageWindow:       24 * time.Hour,
			SweepInterval:     15 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			GeneralPerMin: 100,
			AuthPerWindow: 5,
			DevicePerMin:  60,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// environment variable overrides, in that order.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Server.DatabaseURL = v
	}
	if v := os.Getenv("APP_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("BCRYPT_COST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Auth.BcryptCost = n
		}
	}
	if v := os.Getenv("COMMAND_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Commands.MaxRetries = n
		}
	}
	if v := os.Getenv("ANOMALY_SWEEP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Anomaly.SweepInterval = d
		}
	}
	if v := os.Getenv("RATE_LIMIT_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RateLimit.GeneralPerMin = n
		}
	}
}
