package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/kalshibot/config"
	"github.com/alejandrodnm/kalshibot/internal/adapters/crypto"
	"github.com/alejandrodnm/kalshibot/internal/adapters/kalshi"
	"github.com/alejandrodnm/kalshibot/internal/adapters/notify"
	"github.com/alejandrodnm/kalshibot/internal/adapters/storage"
	"github.com/alejandrodnm/kalshibot/internal/adapters/weather"
	"github.com/alejandrodnm/kalshibot/internal/engine"
	"github.com/alejandrodnm/kalshibot/internal/metrics"
	"github.com/alejandrodnm/kalshibot/internal/ports"
	"github.com/alejandrodnm/kalshibot/internal/strategy"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one evaluation cycle and exit")
	dryRun := flag.Bool("dry-run", false, "evaluate and log but never place orders")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	report := flag.Bool("report", false, "print the trade log report and exit")
	settle := flag.Bool("settle", false, "reconcile pending settlements and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *dryRun {
		cfg.Bot.DryRun = true
	}
	setupLogger(cfg.Log)

	slog.Info("kalshibot starting",
		"config", *configPath,
		"strategy", cfg.Bot.Strategy,
		"env", cfg.Kalshi.Env,
		"interval", cfg.Interval(),
		"dry_run", cfg.Bot.DryRun,
		"once", *once,
	)

	var auth kalshi.AuthFunc
	if cfg.Kalshi.KeyID != "" && cfg.Kalshi.PrivateKeyPath != "" {
		auth, err = kalshi.NewRSAAuth(cfg.Kalshi.KeyID, cfg.Kalshi.PrivateKeyPath)
		if err != nil {
			slog.Error("failed to load credentials", "err", err)
			os.Exit(1)
		}
	} else if !cfg.Bot.DryRun {
		slog.Error("missing credentials", "hint", "set KALSHI_KEY_ID and KALSHI_PRIVATE_KEY_PATH, or use -dry-run")
		os.Exit(1)
	}

	client := kalshi.NewClient(cfg.Kalshi.Env, auth)
	markets := kalshi.NewMarkets(client)
	executor := kalshi.NewOrders(client)

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	notifier := notify.NewConsole(*verbose)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *report {
		printReport(ctx, store, notifier)
		return
	}

	strat, forecasts, prices := buildStrategy(cfg)

	eng, err := engine.New(
		engine.Config{
			Underlyings:   cfg.Bot.Underlyings,
			DaysAhead:     cfg.Bot.DaysAhead,
			Interval:      cfg.Interval(),
			DryRun:        cfg.Bot.DryRun,
			DailyCap:      cfg.Bot.DailyCap,
			ReserveOnFill: cfg.Bot.ReserveOnFill,
			ClosePolicy:   engine.ClosePolicy(cfg.Bot.ClosePolicy),
			WindowMinutes: cfg.Bot.WindowMinutes,
			PriceSymbol:   cfg.Bot.PriceSymbol,
		},
		strat, markets, markets, executor, store, notifier, forecasts, prices,
	)
	if err != nil {
		slog.Error("failed to build engine", "err", err)
		os.Exit(1)
	}

	if *settle {
		n, err := eng.CheckSettlements(ctx)
		if err != nil {
			slog.Error("settlement check failed", "err", err)
			os.Exit(1)
		}
		slog.Info("settlement check complete", "settled", n)
		return
	}

	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.Serve(cfg.Metrics.Addr); err != nil {
				slog.Warn("metrics server stopped", "err", err)
			}
		}()
	}

	if *once {
		if err := eng.RunOnce(ctx); err != nil {
			slog.Error("cycle failed", "err", err)
			os.Exit(1)
		}
		return
	}

	if err := eng.Run(ctx); err != nil {
		slog.Error("engine exited with error", "err", err)
		os.Exit(1)
	}
	slog.Info("kalshibot stopped cleanly")
}

// buildStrategy construye la variante activa y los providers de señal que
// necesita; los que no aplican quedan nil.
func buildStrategy(cfg *config.Config) (strategy.Strategy, ports.ForecastProvider, ports.PriceProvider) {
	switch cfg.Bot.Strategy {
	case "edge":
		e := cfg.Strategy.Edge
		return strategy.NewEdgeThreshold(strategy.EdgeConfig{
			MinEdge:        e.MinEdge,
			MinBucketPrice: e.MinBucketPrice,
			MaxBucketPrice: e.MaxBucketPrice,
			MaxTotalCost:   e.MaxTotalCost,
			MaxBuckets:     e.MaxBuckets,
			BaseContracts:  e.BaseContracts,
			MaxPerMarket:   e.MaxPerMarket,
			HighConfidence: e.HighConfidence,
			FadeThreshold:  e.FadeThreshold,
		}), weather.NewNWS(), nil
	case "momentum":
		m := cfg.Strategy.Momentum
		return strategy.NewMomentum(strategy.MomentumConfig{
			MinConfidence:   m.MinConfidence,
			MaxMinutesLeft:  m.MaxMinutesLeft,
			MinMinutesLeft:  m.MinMinutesLeft,
			MinChangePct:    m.MinChangePct,
			StrongMovePct:   m.StrongMovePct,
			MomentumBonus:   m.MomentumBonus,
			StrongMoveBonus: m.StrongMoveBonus,
			MaxPrice:        m.MaxPrice,
			MaxContracts:    m.MaxContracts,
			MinContracts:    m.MinContracts,
			ScaleSize:       !m.FixedSize,
		}), nil, crypto.NewBinance(true)
	default:
		s := cfg.Strategy.Spread
		return strategy.NewSpread(strategy.SpreadConfig{
			MinBucketPrice:  s.MinBucketPrice,
			MaxBucketPrice:  s.MaxBucketPrice,
			MaxTotalCost:    s.MaxTotalCost,
			ContractsPerLeg: s.ContractsPerLeg,
		}), nil, nil
	}
}

func printReport(ctx context.Context, store *storage.SQLiteStorage, notifier *notify.Console) {
	summary, err := store.Summary(ctx)
	if err != nil {
		slog.Error("failed to load summary", "err", err)
		os.Exit(1)
	}
	recent, err := store.GetRecent(ctx, 20)
	if err != nil {
		slog.Error("failed to load recent trades", "err", err)
		os.Exit(1)
	}
	notifier.PrintReport(summary, recent)
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
