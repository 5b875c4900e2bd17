package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/eventum/internal/address"
	s3blob "github.com/alanyoungcy/eventum/internal/blob/s3"
	"github.com/alanyoungcy/eventum/internal/cache/redis"
	"github.com/alanyoungcy/eventum/internal/config"
	"github.com/alanyoungcy/eventum/internal/domain"
	"github.com/alanyoungcy/eventum/internal/engine"
	"github.com/alanyoungcy/eventum/internal/notify"
	"github.com/alanyoungcy/eventum/internal/store/memory"
	"github.com/alanyoungcy/eventum/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Stores
	MarketStore domain.MarketStore
	Ledger      domain.TokenLedger
	AuditStore  domain.AuditStore
	Atomic      domain.Atomic

	// Coordination
	MarketCache domain.MarketCache
	LockManager domain.LockManager
	SignalBus   domain.SignalBus

	// Blob storage
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader
	Archiver   domain.Archiver

	// Engine
	Engine *engine.Engine

	// Notifications
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
//
// In serve mode the stores are Postgres, coordination runs on Redis, and the
// archiver writes to S3. In standalone mode everything is in-memory, which
// is useful for local development and demos.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}
	standalone := strings.ToLower(cfg.Mode) == "standalone"

	if standalone {
		store := memory.NewStore()
		deps.MarketStore = store
		deps.AuditStore = store
		deps.Atomic = store
		deps.Ledger = memory.NewLedger()
		deps.MarketCache = memory.NewCache()
		deps.LockManager = memory.NewLockManager()
		deps.SignalBus = memory.NewSignalBus()
	} else {
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

		pool := pgClient.Pool()
		deps.MarketStore = postgres.NewMarketStore(pool)
		deps.Ledger = postgres.NewLedgerStore(pool)
		deps.AuditStore = postgres.NewAuditStore(pool)
		deps.Atomic = postgres.NewAtomic(pool)

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

		deps.MarketCache = redis.NewMarketCache(redisClient, cfg.Engine.CacheTTL.Duration)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)

		// --- S3 blob storage (only when archiving is enabled) ---
		if cfg.Archive.Enabled {
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
			closers = append(closers, func() { _ = s3Client.Close() })

			deps.BlobWriter = s3blob.NewWriter(s3Client)
			deps.BlobReader = s3blob.NewReader(s3Client)
			deps.Archiver = s3blob.NewArchiver(deps.BlobWriter, deps.MarketStore, deps.AuditStore)
		}
	}

	// The shared collateral class must exist before any market can accept
	// deposits. Creation is idempotent across restarts.
	if err := deps.Ledger.CreateClass(ctx, address.CollateralClass()); err != nil &&
		!errors.Is(err, domain.ErrAlreadyInitialized) {
		cleanup()
		return nil, nil, fmt.Errorf("wire: collateral class: %w", err)
	}

	// --- Engine ---
	deps.Engine = engine.New(engine.Deps{
		Markets: deps.MarketStore,
		Ledger:  deps.Ledger,
		Audit:   deps.AuditStore,
		Atomic:  deps.Atomic,
		Locks:   deps.LockManager,
		Cache:   deps.MarketCache,
		Bus:     deps.SignalBus,
		Logger:  logger,
		LockTTL: cfg.Engine.LockTTL.Duration,
	})

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
