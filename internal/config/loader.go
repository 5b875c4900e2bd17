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
// built-in defaults, applies EVENTUM_* environment variable overrides, and
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

// applyEnvOverrides reads well-known EVENTUM_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "EVENTUM_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "EVENTUM_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "EVENTUM_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "EVENTUM_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "EVENTUM_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "EVENTUM_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "EVENTUM_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "EVENTUM_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "EVENTUM_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "EVENTUM_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "EVENTUM_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "EVENTUM_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "EVENTUM_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "EVENTUM_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "EVENTUM_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "EVENTUM_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "EVENTUM_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "EVENTUM_S3_REGION")
	setStr(&cfg.S3.Bucket, "EVENTUM_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "EVENTUM_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "EVENTUM_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "EVENTUM_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "EVENTUM_S3_FORCE_PATH_STYLE")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "EVENTUM_ARCHIVE_ENABLED")
	setDuration(&cfg.Archive.Interval, "EVENTUM_ARCHIVE_INTERVAL")
	setInt(&cfg.Archive.RetentionDays, "EVENTUM_ARCHIVE_RETENTION_DAYS")

	// ── Engine ──
	setStr(&cfg.Engine.CollateralSymbol, "EVENTUM_ENGINE_COLLATERAL_SYMBOL")
	setDuration(&cfg.Engine.LockTTL, "EVENTUM_ENGINE_LOCK_TTL")
	setDuration(&cfg.Engine.CacheTTL, "EVENTUM_ENGINE_CACHE_TTL")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "EVENTUM_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "EVENTUM_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "EVENTUM_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "EVENTUM_SERVER_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "EVENTUM_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "EVENTUM_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "EVENTUM_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "EVENTUM_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "EVENTUM_MODE")
	setStr(&cfg.LogLevel, "EVENTUM_LOG_LEVEL")
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
