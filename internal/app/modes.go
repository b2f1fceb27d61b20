package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sugawarayuuta/sonnet"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/triscan/internal/scan"
	"github.com/alanyoungcy/triscan/internal/server"
	"github.com/alanyoungcy/triscan/internal/server/handler"
	"github.com/alanyoungcy/triscan/internal/server/ws"
	"github.com/alanyoungcy/triscan/internal/service"
)

const shutdownTimeout = 5 * time.Second

// ScanMode runs one scan and prints the report as indented JSON. It fails
// when no exchange could be scanned.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	report, err := deps.Service.Scan(ctx, a.defaultRequest())
	if err != nil {
		return fmt.Errorf("scan mode: %w", err)
	}

	data, err := sonnet.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("scan mode: encode report: %w", err)
	}
	if _, err := a.out.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("scan mode: write report: %w", err)
	}

	if failed := report.Failed(); len(failed) > 0 && len(failed) == len(report.Exchanges) {
		return fmt.Errorf("scan mode: every exchange failed: %v", failed)
	}
	return nil
}

// WatchMode scans every scanner.interval until ctx is cancelled.
func (a *App) WatchMode(ctx context.Context, deps *Dependencies) error {
	err := deps.Service.Run(ctx, a.cfg.Scanner.Interval.Duration, a.defaultRequest())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// ServerMode serves the HTTP API and WebSocket hub, plus the periodic scan
// loop when scanner.interval is positive.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	g, ctx := errgroup.WithContext(ctx)
	started := time.Now().UTC()

	hub := ws.NewHub(deps.Bus, []string{service.ChannelScan}, ws.Config{
		Mode:      a.cfg.Mode,
		StartedAt: started,
	}, a.logger)
	g.Go(func() error {
		if err := hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("ws hub: %w", err)
		}
		return nil
	})

	handlers := server.Handlers{
		Health: handler.NewHealthHandler(deps.Checks, a.logger),
		Status: handler.NewStatusHandler(a.cfg.Mode, started, deps.Service),
		Scan:   handler.NewScanHandler(deps.Service, a.logger),
	}
	if deps.Metrics != nil {
		handlers.Metrics = deps.Metrics.Handler()
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		APIKeyHash:  a.cfg.Server.APIKeyHash,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  time.Minute,
		MetricsPath: a.cfg.Metrics.Path,
	}, handlers, hub, deps.Limiter, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	if interval := a.cfg.Scanner.Interval.Duration; interval > 0 {
		g.Go(func() error {
			err := deps.Service.Run(ctx, interval, a.defaultRequest())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		a.logger.InfoContext(ctx, "periodic scans disabled; scanning on request only")
	}

	a.logger.InfoContext(ctx, "server mode running",
		slog.Int("port", a.cfg.Server.Port),
		slog.Duration("interval", a.cfg.Scanner.Interval.Duration),
	)
	return g.Wait()
}

func (a *App) defaultRequest() scan.Request {
	return scan.Request{Exchanges: a.cfg.Scanner.Exchanges}
}
