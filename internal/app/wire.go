package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "alphawatch/internal/blob/s3"
	"alphawatch/internal/cache/redis"
	"alphawatch/internal/config"
	"alphawatch/internal/domain"
	"alphawatch/internal/engine"
	"alphawatch/internal/notify"
	"alphawatch/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Stores
	Thresholds    domain.ThresholdStore
	Notifications domain.NotificationStore
	Bots          domain.BotStore
	Contacts      *postgres.ContactStore

	// Coordination
	LockManager domain.LockManager
	EventBus    domain.EventBus
	RateLimiter domain.RateLimiter

	// Cold storage (nil unless s3.enabled)
	BlobWriter engine.BlobWriter

	// Outbound channels, built from whatever credentials are configured.
	Senders []notify.Sender

	// Raw clients, retained for the health endpoint's dependency probes.
	PG    *postgres.Client
	Redis *redis.Client

	Clock domain.Clock
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{Clock: domain.RealClock{}}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	deps.PG = pgClient
	pool := pgClient.Pool()
	deps.Thresholds = postgres.NewThresholdStore(pool)
	deps.Notifications = postgres.NewNotificationStore(pool)
	deps.Bots = postgres.NewBotStore(pool)
	deps.Contacts = postgres.NewContactStore(pool)

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.Redis = redisClient
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.EventBus = redis.NewEventBus(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)

	// --- S3 cold storage (optional) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.BlobWriter = s3blob.NewWriter(s3Client)
	}

	// --- Outbound channels ---
	deps.Senders = buildSenders(cfg, deps.Contacts, logger)

	return deps, cleanup, nil
}

// buildSenders constructs one sender per channel with complete credentials.
// Channels without credentials stay unwired; the dispatcher records requests
// for them as failed deliveries.
func buildSenders(cfg *config.Config, recipient notify.Recipient, logger *slog.Logger) []notify.Sender {
	var senders []notify.Sender

	if smtp := cfg.Channels.SMTP; smtp.Host != "" {
		senders = append(senders, notify.NewEmailSender(notify.EmailConfig{
			Host:     smtp.Host,
			Port:     smtp.Port,
			Username: smtp.Username,
			Password: smtp.Password,
			From:     smtp.From,
		}, recipient))
	}

	if sms := cfg.Channels.SMS; sms.GatewayURL != "" {
		senders = append(senders, notify.NewSMSSender(notify.SMSConfig{
			GatewayURL: sms.GatewayURL,
			APIKey:     sms.APIKey,
			SenderID:   sms.SenderID,
		}, recipient))
	}

	if apns := cfg.Channels.APNS; apns.KeyPath != "" {
		push, err := notify.NewPushSender(notify.PushConfig{
			KeyPath:    apns.KeyPath,
			KeyID:      apns.KeyID,
			TeamID:     apns.TeamID,
			Topic:      apns.Topic,
			Production: apns.Production,
		}, recipient)
		if err != nil {
			logger.Warn("wire: push channel disabled",
				slog.String("error", err.Error()),
			)
		} else {
			senders = append(senders, push)
		}
	}

	return senders
}
