package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ALPHAWATCH_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ALPHAWATCH_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "ALPHAWATCH_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "ALPHAWATCH_DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "ALPHAWATCH_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "ALPHAWATCH_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "ALPHAWATCH_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "ALPHAWATCH_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "ALPHAWATCH_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "ALPHAWATCH_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "ALPHAWATCH_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "ALPHAWATCH_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "ALPHAWATCH_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "ALPHAWATCH_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ALPHAWATCH_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ALPHAWATCH_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ALPHAWATCH_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ALPHAWATCH_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ALPHAWATCH_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "ALPHAWATCH_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "ALPHAWATCH_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "ALPHAWATCH_S3_REGION")
	setStr(&cfg.S3.Bucket, "ALPHAWATCH_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "ALPHAWATCH_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "ALPHAWATCH_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "ALPHAWATCH_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "ALPHAWATCH_S3_FORCE_PATH_STYLE")

	// ── Engine ──
	setDuration(&cfg.Engine.CycleInterval, "ALPHAWATCH_ENGINE_CYCLE_INTERVAL")
	setDuration(&cfg.Engine.ChannelTimeout, "ALPHAWATCH_ENGINE_CHANNEL_TIMEOUT")
	setInt(&cfg.Engine.UserConcurrency, "ALPHAWATCH_ENGINE_USER_CONCURRENCY")
	setInt(&cfg.Engine.RetentionDays, "ALPHAWATCH_ENGINE_RETENTION_DAYS")
	setDuration(&cfg.Engine.ArchiveInterval, "ALPHAWATCH_ENGINE_ARCHIVE_INTERVAL")

	// ── Feed ──
	setStr(&cfg.Feed.DataHost, "ALPHAWATCH_FEED_DATA_HOST")
	setStr(&cfg.Feed.TradingHost, "ALPHAWATCH_FEED_TRADING_HOST")
	setStr(&cfg.Feed.APIKey, "ALPHAWATCH_FEED_API_KEY")
	setStr(&cfg.Feed.APISecret, "ALPHAWATCH_FEED_API_SECRET")

	// ── Channels ──
	setStr(&cfg.Channels.SMTP.Host, "ALPHAWATCH_SMTP_HOST")
	setInt(&cfg.Channels.SMTP.Port, "ALPHAWATCH_SMTP_PORT")
	setStr(&cfg.Channels.SMTP.Username, "ALPHAWATCH_SMTP_USERNAME")
	setStr(&cfg.Channels.SMTP.Password, "ALPHAWATCH_SMTP_PASSWORD")
	setStr(&cfg.Channels.SMTP.From, "ALPHAWATCH_SMTP_FROM")
	setStr(&cfg.Channels.SMS.GatewayURL, "ALPHAWATCH_SMS_GATEWAY_URL")
	setStr(&cfg.Channels.SMS.APIKey, "ALPHAWATCH_SMS_API_KEY")
	setStr(&cfg.Channels.SMS.SenderID, "ALPHAWATCH_SMS_SENDER_ID")
	setStr(&cfg.Channels.APNS.KeyPath, "ALPHAWATCH_APNS_KEY_PATH")
	setStr(&cfg.Channels.APNS.KeyID, "ALPHAWATCH_APNS_KEY_ID")
	setStr(&cfg.Channels.APNS.TeamID, "ALPHAWATCH_APNS_TEAM_ID")
	setStr(&cfg.Channels.APNS.Topic, "ALPHAWATCH_APNS_TOPIC")
	setBool(&cfg.Channels.APNS.Production, "ALPHAWATCH_APNS_PRODUCTION")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "ALPHAWATCH_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "ALPHAWATCH_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "ALPHAWATCH_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "ALPHAWATCH_SERVER_API_KEY")

	// ── Top-level ──
	setStr(&cfg.Mode, "ALPHAWATCH_MODE")
	setStr(&cfg.LogLevel, "ALPHAWATCH_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
