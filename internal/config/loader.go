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
// built-in defaults, applies TRISCAN_* environment variable overrides, and
// returns the final Config. An empty path skips the file. The returned Config
// has NOT been validated; the caller should invoke Config.Validate() after
// Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known TRISCAN_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Scanner ──
	setStringSlice(&cfg.Scanner.Exchanges, "TRISCAN_SCANNER_EXCHANGES")
	setFloat64(&cfg.Scanner.FeePctPerLeg, "TRISCAN_SCANNER_FEE_PCT_PER_LEG")
	setFloat64(&cfg.Scanner.MinProfitPct, "TRISCAN_SCANNER_MIN_PROFIT_PCT")
	setFloat64(&cfg.Scanner.MinPlausiblePct, "TRISCAN_SCANNER_MIN_PLAUSIBLE_PCT")
	setFloat64(&cfg.Scanner.MaxPlausiblePct, "TRISCAN_SCANNER_MAX_PLAUSIBLE_PCT")
	setInt(&cfg.Scanner.MaxAssets, "TRISCAN_SCANNER_MAX_ASSETS")
	setStr(&cfg.Scanner.ReversePolicy, "TRISCAN_SCANNER_REVERSE_POLICY")
	setStr(&cfg.Scanner.LiquidityMode, "TRISCAN_SCANNER_LIQUIDITY_MODE")
	setFloat64(&cfg.Scanner.MinLegLiquidity, "TRISCAN_SCANNER_MIN_LEG_LIQUIDITY")
	setDuration(&cfg.Scanner.FetchTimeout, "TRISCAN_SCANNER_FETCH_TIMEOUT")
	setInt(&cfg.Scanner.Workers, "TRISCAN_SCANNER_WORKERS")
	setDuration(&cfg.Scanner.Interval, "TRISCAN_SCANNER_INTERVAL")
	setDuration(&cfg.Scanner.LockTTL, "TRISCAN_SCANNER_LOCK_TTL")
	setStr(&cfg.Scanner.Source, "TRISCAN_SCANNER_SOURCE")
	setStr(&cfg.Scanner.Record, "TRISCAN_SCANNER_RECORD")
	setFloat64(&cfg.Scanner.AlertProfitPct, "TRISCAN_SCANNER_ALERT_PROFIT_PCT")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "TRISCAN_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "TRISCAN_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "TRISCAN_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "TRISCAN_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "TRISCAN_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "TRISCAN_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "TRISCAN_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "TRISCAN_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "TRISCAN_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "TRISCAN_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "TRISCAN_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "TRISCAN_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "TRISCAN_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "TRISCAN_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "TRISCAN_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "TRISCAN_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "TRISCAN_REDIS_TLS_ENABLED")
	setInt(&cfg.Redis.ExchangeRateLimit, "TRISCAN_REDIS_EXCHANGE_RATE_LIMIT")
	setDuration(&cfg.Redis.ReportTTL, "TRISCAN_REDIS_REPORT_TTL")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "TRISCAN_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "TRISCAN_S3_REGION")
	setStr(&cfg.S3.Bucket, "TRISCAN_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "TRISCAN_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "TRISCAN_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "TRISCAN_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "TRISCAN_S3_FORCE_PATH_STYLE")
	setStr(&cfg.S3.Prefix, "TRISCAN_S3_PREFIX")

	// ── Kafka ──
	setBool(&cfg.Kafka.Enabled, "TRISCAN_KAFKA_ENABLED")
	setStringSlice(&cfg.Kafka.Brokers, "TRISCAN_KAFKA_BROKERS")
	setStr(&cfg.Kafka.Topic, "TRISCAN_KAFKA_TOPIC")
	setBool(&cfg.Kafka.EnsureTopic, "TRISCAN_KAFKA_ENSURE_TOPIC")

	// ── Server ──
	setInt(&cfg.Server.Port, "TRISCAN_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "TRISCAN_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "TRISCAN_SERVER_API_KEY")
	setStr(&cfg.Server.APIKeyHash, "TRISCAN_SERVER_API_KEY_HASH")
	setInt(&cfg.Server.RateLimit, "TRISCAN_SERVER_RATE_LIMIT")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "TRISCAN_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "TRISCAN_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "TRISCAN_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "TRISCAN_NOTIFY_EVENTS")

	// ── Metrics ──
	setBool(&cfg.Metrics.Enabled, "TRISCAN_METRICS_ENABLED")
	setStr(&cfg.Metrics.Path, "TRISCAN_METRICS_PATH")

	// ── Top-level ──
	setStr(&cfg.Mode, "TRISCAN_MODE")
	setStr(&cfg.LogLevel, "TRISCAN_LOG_LEVEL")
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

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
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
