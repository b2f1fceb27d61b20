// Command triscan scans centralized exchanges for triangular arbitrage. It
// loads configuration, validates it, sets up signal handling and runs the
// configured mode. Positional arguments replace the configured exchanges.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alanyoungcy/triscan/internal/app"
	"github.com/alanyoungcy/triscan/internal/config"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to TOML configuration file")
	mode := flag.String("mode", "", "override mode: scan, watch or server")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: triscan [-config file] [-mode scan|watch|server] [exchange ...]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	path := *configPath
	if !flagSet("config") {
		// The default file is optional; built-in defaults apply without it.
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			path = ""
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config %s: %v\n", *configPath, err)
		os.Exit(1)
	}
	if *mode != "" {
		cfg.Mode = *mode
	}
	if args := flag.Args(); len(args) > 0 {
		cfg.Scanner.Exchanges = normalizeNames(args)
	}

	// Scan mode owns stdout for its JSON report.
	var logOut io.Writer = os.Stdout
	if strings.EqualFold(cfg.Mode, "scan") {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("triscan starting",
		slog.String("mode", cfg.Mode),
		slog.String("config", path),
		slog.Any("settings", config.RedactedConfig(cfg)),
	)

	application := app.New(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = application.Run(ctx)
	stop()
	application.Close()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("application exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("triscan stopped")
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func flagSet(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func normalizeNames(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		for _, n := range strings.Split(a, ",") {
			if n = strings.ToLower(strings.TrimSpace(n)); n != "" {
				out = append(out, n)
			}
		}
	}
	return out
}
