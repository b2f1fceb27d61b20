// Package config defines the top-level configuration for the triangular
// arbitrage scanner and provides validation helpers.
package config

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by TRISCAN_* environment variables.
type Config struct {
	Scanner   ScannerConfig             `toml:"scanner"`
	Exchanges map[string]ExchangeConfig `toml:"exchanges"`
	Redis     RedisConfig               `toml:"redis"`
	Postgres  PostgresConfig            `toml:"postgres"`
	S3        S3Config                  `toml:"s3"`
	Kafka     KafkaConfig               `toml:"kafka"`
	Server    ServerConfig              `toml:"server"`
	Notify    NotifyConfig              `toml:"notify"`
	Metrics   MetricsConfig             `toml:"metrics"`
	Mode      string                    `toml:"mode"`
	LogLevel  string                    `toml:"log_level"`
}

// ScannerConfig holds detection parameters and the scan schedule.
type ScannerConfig struct {
	// Exchanges is the set scanned when a request names none.
	Exchanges       []string `toml:"exchanges"`
	FeePctPerLeg    float64  `toml:"fee_pct_per_leg"`
	MinProfitPct    float64  `toml:"min_profit_pct"`
	MinPlausiblePct float64  `toml:"min_plausible_pct"`
	MaxPlausiblePct float64  `toml:"max_plausible_pct"`
	MaxAssets       int      `toml:"max_assets"`
	// ReversePolicy is "synthesize" or "listed_only".
	ReversePolicy string `toml:"reverse_policy"`
	// LiquidityMode is "advisory" or "exclude".
	LiquidityMode   string   `toml:"liquidity_mode"`
	MinLegLiquidity float64  `toml:"min_leg_liquidity"`
	FetchTimeout    duration `toml:"fetch_timeout"`
	Workers         int      `toml:"workers"`
	// Interval between periodic scans in watch and server mode; 0 disables
	// the loop in server mode.
	Interval duration `toml:"interval"`
	LockTTL  duration `toml:"lock_ttl"`
	// Source is where quotes come from: "live", "s3" or "postgres".
	Source string `toml:"source"`
	// Record stores every fetched quote set: "", "s3" or "postgres".
	Record string `toml:"record"`
	// AlertProfitPct triggers a notification for opportunities at or above it.
	AlertProfitPct float64 `toml:"alert_profit_pct"`
}

// ExchangeConfig overrides adapter settings for one exchange.
type ExchangeConfig struct {
	BaseURL            string   `toml:"base_url"`
	Timeout            duration `toml:"timeout"`
	InsecureSkipVerify bool     `toml:"insecure_skip_verify"`
	QuoteAssets        []string `toml:"quote_assets"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	// ExchangeRateLimit caps outbound REST calls per exchange per second
	// across all instances. 0 disables.
	ExchangeRateLimit int      `toml:"exchange_rate_limit"`
	ReportTTL         duration `toml:"report_ttl"`
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

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	// Prefix is prepended to snapshot object keys, e.g. "quotes/".
	Prefix string `toml:"prefix"`
}

// KafkaConfig holds the scan report stream settings.
type KafkaConfig struct {
	Enabled     bool     `toml:"enabled"`
	Brokers     []string `toml:"brokers"`
	Topic       string   `toml:"topic"`
	EnsureTopic bool     `toml:"ensure_topic"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
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

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// APIKey or APIKeyHash (bcrypt) protect the scan endpoints when set.
	APIKey     string `toml:"api_key"`
	APIKeyHash string `toml:"api_key_hash"`
	// RateLimit is the number of requests per client per minute; needs redis.
	RateLimit int `toml:"rate_limit"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Scanner: ScannerConfig{
			Exchanges:       []string{"binance", "kucoin", "bybit", "gateio"},
			FeePctPerLeg:    0.1,
			MinProfitPct:    0,
			MinPlausiblePct: -99,
			MaxPlausiblePct: 100,
			MaxAssets:       250,
			ReversePolicy:   "synthesize",
			LiquidityMode:   "advisory",
			FetchTimeout:    duration{30 * time.Second},
			Interval:        duration{time.Minute},
			LockTTL:         duration{2 * time.Minute},
			Source:          "live",
			AlertProfitPct:  1.0,
		},
		Exchanges: map[string]ExchangeConfig{},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
			ReportTTL:  duration{time.Hour},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "triscan-data",
			ForcePathStyle: true,
			Prefix:         "quotes/",
		},
		Kafka: KafkaConfig{
			Brokers: []string{"localhost:9092"},
			Topic:   "triscan.scans",
		},
		Server: ServerConfig{
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:8501"},
			RateLimit:   60,
		},
		Notify: NotifyConfig{
			Events: []string{"opportunity", "scan_failed"},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Mode:     "server",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server": true,
	"scan":   true,
	"watch":  true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var (
	validSources = []string{"live", "s3", "postgres"}
	validRecords = []string{"", "s3", "postgres"}
)

// NeedsPostgres reports whether the configured source or recorder uses
// PostgreSQL.
func (c *Config) NeedsPostgres() bool {
	return c.Scanner.Source == "postgres" || c.Scanner.Record == "postgres"
}

// NeedsS3 reports whether the configured source or recorder uses object
// storage.
func (c *Config) NeedsS3() bool {
	return c.Scanner.Source == "s3" || c.Scanner.Record == "s3"
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, scan, watch)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Scanner
	s := c.Scanner
	if math.IsNaN(s.FeePctPerLeg) || s.FeePctPerLeg < 0 || s.FeePctPerLeg >= 100 {
		errs = append(errs, fmt.Sprintf("scanner: fee_pct_per_leg must be in [0, 100), got %v", s.FeePctPerLeg))
	}
	if s.MinPlausiblePct >= s.MaxPlausiblePct {
		errs = append(errs, "scanner: min_plausible_pct must be below max_plausible_pct")
	}
	if s.MaxAssets != 0 && s.MaxAssets < 3 {
		errs = append(errs, fmt.Sprintf("scanner: max_assets must be 0 or >= 3, got %d", s.MaxAssets))
	}
	if s.ReversePolicy != "synthesize" && s.ReversePolicy != "listed_only" {
		errs = append(errs, fmt.Sprintf("scanner: unknown reverse_policy %q (valid: synthesize, listed_only)", s.ReversePolicy))
	}
	if s.LiquidityMode != "advisory" && s.LiquidityMode != "exclude" {
		errs = append(errs, fmt.Sprintf("scanner: unknown liquidity_mode %q (valid: advisory, exclude)", s.LiquidityMode))
	}
	if s.MinLegLiquidity < 0 {
		errs = append(errs, "scanner: min_leg_liquidity must be >= 0")
	}
	if s.FetchTimeout.Duration <= 0 {
		errs = append(errs, "scanner: fetch_timeout must be > 0")
	}
	if s.Workers < 0 {
		errs = append(errs, "scanner: workers must be >= 0")
	}
	if s.Interval.Duration < 0 {
		errs = append(errs, "scanner: interval must be >= 0")
	}
	if c.Mode == "watch" && s.Interval.Duration == 0 {
		errs = append(errs, "scanner: interval must be > 0 in watch mode")
	}
	if !slices.Contains(validSources, s.Source) {
		errs = append(errs, fmt.Sprintf("scanner: unknown source %q (valid: live, s3, postgres)", s.Source))
	}
	if !slices.Contains(validRecords, s.Record) {
		errs = append(errs, fmt.Sprintf("scanner: unknown record target %q (valid: s3, postgres)", s.Record))
	}
	if s.Source != "live" && s.Record != "" {
		errs = append(errs, "scanner: record requires source = \"live\"")
	}
	if len(s.Exchanges) == 0 {
		errs = append(errs, "scanner: exchanges must not be empty")
	}

	// Postgres
	if c.NeedsPostgres() {
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
		if c.Postgres.PoolMinConns < 0 || c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must be between 0 and pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.NeedsS3() {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
	}

	// Kafka
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			errs = append(errs, "kafka: brokers must not be empty when enabled")
		}
		if c.Kafka.Topic == "" {
			errs = append(errs, "kafka: topic must not be empty when enabled")
		}
	}

	// Server
	if c.Mode == "server" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server: rate_limit must be >= 0")
		}
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = append(errs, "metrics: path must start with /")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
