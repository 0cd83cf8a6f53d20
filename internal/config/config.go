// Package config defines the top-level configuration for the alphawatch
// service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ALPHAWATCH_* environment variables.
type Config struct {
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Engine   EngineConfig   `toml:"engine"`
	Feed     FeedConfig     `toml:"feed"`
	Channels ChannelsConfig `toml:"channels"`
	Server   ServerConfig   `toml:"server"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for the notification
// archive.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// duration wraps time.Duration so TOML values like "30s" decode directly.
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// EngineConfig holds evaluation-engine timing parameters.
type EngineConfig struct {
	CycleInterval   duration `toml:"cycle_interval"`
	ChannelTimeout  duration `toml:"channel_timeout"`
	UserConcurrency int      `toml:"user_concurrency"`
	RetentionDays   int      `toml:"retention_days"`
	ArchiveInterval duration `toml:"archive_interval"`
}

// FeedConfig holds market data feed parameters. The defaults point at the
// Alpaca data API; any vendor with compatible endpoints works.
type FeedConfig struct {
	DataHost    string `toml:"data_host"`
	TradingHost string `toml:"trading_host"`
	APIKey      string `toml:"api_key"`
	APISecret   string `toml:"api_secret"`
}

// SMTPConfig holds SMTP credentials for the email channel.
type SMTPConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	From     string `toml:"from"`
}

// SMSConfig holds parameters for the HTTP SMS gateway channel.
type SMSConfig struct {
	GatewayURL string `toml:"gateway_url"`
	APIKey     string `toml:"api_key"`
	SenderID   string `toml:"sender_id"`
}

// APNSConfig holds Apple Push Notification service token credentials for the
// push channel.
type APNSConfig struct {
	KeyPath    string `toml:"key_path"`
	KeyID      string `toml:"key_id"`
	TeamID     string `toml:"team_id"`
	Topic      string `toml:"topic"`
	Production bool   `toml:"production"`
}

// ChannelsConfig groups credentials for the outbound notification channels.
// A channel with no credentials configured is simply not wired; deliveries
// requesting it are recorded as failed.
type ChannelsConfig struct {
	SMTP SMTPConfig `toml:"smtp"`
	SMS  SMSConfig  `toml:"sms"`
	APNS APNSConfig `toml:"apns"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Postgres: PostgresConfig{
			DSN:           "",
			Host:          "localhost",
			Port:          5432,
			Database:      "alphawatch",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "alphawatch-archive",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Engine: EngineConfig{
			CycleInterval:   duration{30 * time.Second},
			ChannelTimeout:  duration{15 * time.Second},
			UserConcurrency: 8,
			RetentionDays:   90,
			ArchiveInterval: duration{6 * time.Hour},
		},
		Feed: FeedConfig{
			DataHost:    "https://data.alpaca.markets",
			TradingHost: "https://paper-api.alpaca.markets",
		},
		Channels: ChannelsConfig{
			SMTP: SMTPConfig{Port: 587},
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Mode:     ModeFull,
		LogLevel: "info",
	}
}

// Run modes.
const (
	ModeEngine = "engine"
	ModeServer = "server"
	ModeFull   = "full"
)

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	ModeEngine: true,
	ModeServer: true,
	ModeFull:   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: engine, server, full)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3 — only checked when the archive is enabled.
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
	}

	// Engine
	if c.Engine.CycleInterval.Duration < time.Second {
		errs = append(errs, fmt.Sprintf("engine: cycle_interval must be >= 1s, got %s", c.Engine.CycleInterval.Duration))
	}
	if c.Engine.ChannelTimeout.Duration <= 0 {
		errs = append(errs, "engine: channel_timeout must be > 0")
	}
	if c.Engine.UserConcurrency < 1 {
		errs = append(errs, "engine: user_concurrency must be >= 1")
	}
	if c.Engine.RetentionDays < 1 {
		errs = append(errs, "engine: retention_days must be >= 1")
	}

	// Channels — SMTP and APNs credentials must be complete when present.
	smtp := c.Channels.SMTP
	if smtp.Host != "" {
		if smtp.Port <= 0 || smtp.Port > 65535 {
			errs = append(errs, fmt.Sprintf("channels.smtp: port must be 1-65535, got %d", smtp.Port))
		}
		if smtp.From == "" {
			errs = append(errs, "channels.smtp: from must be set when host is set")
		}
	}
	apns := c.Channels.APNS
	ak := apns.KeyPath != ""
	ai := apns.KeyID != ""
	at := apns.TeamID != ""
	if ak || ai || at {
		if !(ak && ai && at) {
			errs = append(errs, "channels.apns: key_path, key_id, and team_id must all be set together")
		}
		if apns.Topic == "" {
			errs = append(errs, "channels.apns: topic must be set when credentials are set")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
