package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/triscan/internal/arbitrage"
	s3blob "github.com/alanyoungcy/triscan/internal/blob/s3"
	"github.com/alanyoungcy/triscan/internal/cache/memory"
	"github.com/alanyoungcy/triscan/internal/cache/redis"
	"github.com/alanyoungcy/triscan/internal/config"
	"github.com/alanyoungcy/triscan/internal/domain"
	"github.com/alanyoungcy/triscan/internal/exchange"
	"github.com/alanyoungcy/triscan/internal/metrics"
	"github.com/alanyoungcy/triscan/internal/notify"
	"github.com/alanyoungcy/triscan/internal/scan"
	"github.com/alanyoungcy/triscan/internal/server/handler"
	"github.com/alanyoungcy/triscan/internal/service"
	"github.com/alanyoungcy/triscan/internal/store/postgres"
	"github.com/alanyoungcy/triscan/internal/stream"
)

// Dependencies bundles everything the modes need. It is built by Wire and
// released by the cleanup function Wire returns.
type Dependencies struct {
	Registry *exchange.Registry
	Scanner  *scan.Scanner
	Service  *service.ScanService

	// Caches. Lock and Limiter are nil when Redis is disabled.
	Cache   domain.ReportCache
	Bus     domain.SignalBus
	Lock    domain.LockManager
	Limiter domain.RateLimiter

	// Ticker snapshot stores by backend name ("s3", "postgres").
	Tickers map[string]domain.TickerStore

	Publisher domain.ReportPublisher // nil when Kafka is disabled
	Notifier  *notify.Notifier
	Metrics   *metrics.Metrics // nil when metrics are disabled

	// Checks are reported by the health endpoint.
	Checks map[string]handler.Checker
}

// Wire builds the dependencies for cfg. On error every resource opened so
// far is released before returning.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, err
	}

	deps := &Dependencies{
		Tickers: make(map[string]domain.TickerStore),
		Checks:  make(map[string]handler.Checker),
	}

	// --- Redis, or in-process fallbacks ---
	if cfg.Redis.Enabled {
		rc, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: redis: %w", err))
		}
		closers = append(closers, func() { _ = rc.Close() })

		deps.Cache = redis.NewReportCache(rc, cfg.Redis.ReportTTL.Duration)
		deps.Bus = redis.NewSignalBus(rc)
		deps.Lock = redis.NewLockManager(rc)
		deps.Limiter = redis.NewRateLimiter(rc, cfg.Redis.ExchangeRateLimit, time.Second)
		deps.Checks["redis"] = rc.Ping
	} else {
		deps.Cache = memory.NewReportCache()
		deps.Bus = memory.NewSignalBus()
	}

	// --- PostgreSQL ticker snapshots ---
	if cfg.NeedsPostgres() {
		pg, err := postgres.New(ctx, postgres.ClientConfig{
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
			return fail(fmt.Errorf("wire: postgres: %w", err))
		}
		closers = append(closers, pg.Close)

		if cfg.Postgres.RunMigrations {
			if err := pg.RunMigrations(ctx); err != nil {
				return fail(fmt.Errorf("wire: postgres migrations: %w", err))
			}
		}
		deps.Tickers["postgres"] = postgres.NewTickerStore(pg.Pool())
		deps.Checks["postgres"] = pg.Pool().Ping
	}

	// --- S3 ticker snapshots ---
	if cfg.NeedsS3() {
		sc, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: s3: %w", err))
		}
		deps.Tickers["s3"] = s3blob.NewSnapshotStore(sc, cfg.S3.Prefix)
		deps.Checks["s3"] = sc.Health
	}

	// --- Quote providers ---
	deps.Registry = exchange.NewRegistry()
	if err := registerProviders(deps.Registry, cfg, deps); err != nil {
		return fail(fmt.Errorf("wire: exchanges: %w", err))
	}

	var recorder domain.QuoteRecorder
	if cfg.Scanner.Record != "" {
		recorder = deps.Tickers[cfg.Scanner.Record]
	}
	deps.Scanner = scan.New(deps.Registry, scan.Config{
		Detection:    DetectionConfig(cfg.Scanner),
		FetchTimeout: cfg.Scanner.FetchTimeout.Duration,
		Workers:      cfg.Scanner.Workers,
	}, recorder, logger)

	// --- Report stream ---
	if cfg.Kafka.Enabled {
		if cfg.Kafka.EnsureTopic {
			if err := stream.EnsureTopic(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic); err != nil {
				return fail(fmt.Errorf("wire: kafka: %w", err))
			}
		}
		pub, err := stream.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return fail(fmt.Errorf("wire: kafka: %w", err))
		}
		closers = append(closers, func() { _ = pub.Close() })
		deps.Publisher = pub
	}

	// --- Metrics and notifications ---
	if cfg.Metrics.Enabled {
		deps.Metrics = metrics.New()
	}

	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	sd := service.ScanDeps{
		Scanner:   deps.Scanner,
		Cache:     deps.Cache,
		Bus:       deps.Bus,
		Publisher: deps.Publisher,
		Lock:      deps.Lock,
	}
	if deps.Metrics != nil {
		sd.Observer = deps.Metrics
	}
	if deps.Notifier.Enabled() {
		sd.Alerter = deps.Notifier
	}
	deps.Service = service.NewScanService(sd, service.ScanConfig{
		LockTTL:        cfg.Scanner.LockTTL.Duration,
		AlertProfitPct: cfg.Scanner.AlertProfitPct,
	}, logger)

	return deps, cleanup, nil
}

// registerProviders registers one provider per configured exchange: the
// live REST adapter, or a replay of the stored snapshots.
func registerProviders(reg *exchange.Registry, cfg *config.Config, deps *Dependencies) error {
	if cfg.Scanner.Source != "live" {
		store, ok := deps.Tickers[cfg.Scanner.Source]
		if !ok {
			return fmt.Errorf("source %q is not wired", cfg.Scanner.Source)
		}
		exchange.RegisterReplays(reg, store, cfg.Scanner.Exchanges)
		return nil
	}

	for _, name := range cfg.Scanner.Exchanges {
		p, err := exchange.New(name, exchangeOptions(cfg, name, deps.Limiter))
		if err != nil {
			return err
		}
		reg.Register(p)
	}
	return nil
}

func exchangeOptions(cfg *config.Config, name string, limiter domain.RateLimiter) exchange.Options {
	ec := cfg.Exchanges[name]
	opts := exchange.Options{
		BaseURL:            ec.BaseURL,
		Timeout:            ec.Timeout.Duration,
		InsecureSkipVerify: ec.InsecureSkipVerify,
		QuoteAssets:        ec.QuoteAssets,
	}
	if opts.Timeout <= 0 {
		opts.Timeout = cfg.Scanner.FetchTimeout.Duration
	}
	if limiter != nil && cfg.Redis.ExchangeRateLimit > 0 {
		opts.Limiter = limiter
	}
	return opts
}

// DetectionConfig maps the scanner section onto detection parameters.
func DetectionConfig(s config.ScannerConfig) arbitrage.Config {
	return arbitrage.Config{
		FeePctPerLeg:      s.FeePctPerLeg,
		MinProfitAfterPct: s.MinProfitPct,
		MinPlausiblePct:   s.MinPlausiblePct,
		MaxPlausiblePct:   s.MaxPlausiblePct,
		MaxAssets:         s.MaxAssets,
		Reverse:           arbitrage.ReversePolicy(s.ReversePolicy),
		Liquidity:         arbitrage.LiquidityMode(s.LiquidityMode),
		MinLegLiquidity:   s.MinLegLiquidity,
	}
}
