package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/edgebot/config"
	"github.com/alejandrodnm/edgebot/internal/adapters/binance"
	"github.com/alejandrodnm/edgebot/internal/adapters/correlation"
	"github.com/alejandrodnm/edgebot/internal/adapters/execution"
	"github.com/alejandrodnm/edgebot/internal/adapters/journal"
	"github.com/alejandrodnm/edgebot/internal/adapters/notify"
	"github.com/alejandrodnm/edgebot/internal/adapters/polymarket"
	"github.com/alejandrodnm/edgebot/internal/adapters/storage"
	"github.com/alejandrodnm/edgebot/internal/application/engine"
	"github.com/alejandrodnm/edgebot/internal/application/report"
	"github.com/alejandrodnm/edgebot/internal/application/resolver"
	"github.com/alejandrodnm/edgebot/internal/domain"
	"github.com/alejandrodnm/edgebot/internal/metrics"
	"github.com/alejandrodnm/edgebot/internal/ports"
	"github.com/alejandrodnm/edgebot/internal/risk"
)

const strategyName = "edge-arb"

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one decision cycle and exit")
	reportOnly := flag.Bool("report", false, "print the 24h summary and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	metricsAddr := flag.String("metrics-addr", "", "prometheus listen address (overrides config)")
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
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}
	setupLogger(cfg.Log)

	live := cfg.Mode == "live"
	slog.Info("edgebot starting",
		"config", *configPath,
		"mode", cfg.Mode,
		"markets", len(cfg.Markets),
		"interval", cfg.PollInterval(),
		"once", *once,
	)

	store, err := storage.NewSQLiteStore(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	jnl, err := journal.New(cfg.Storage.JournalPath, store)
	if err != nil {
		slog.Error("failed to open journal", "err", err, "path", cfg.Storage.JournalPath)
		os.Exit(1)
	}
	defer jnl.Close()

	notifier := notify.NewConsole(*verbose)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *reportOnly {
		printSummary(ctx, jnl, store, notifier, cfg.Estimator.FeeBpsDefault)
		return
	}

	client := polymarket.NewClient(cfg.API.Base, cfg.API.APIKey)

	var executor ports.OrderExecutor
	var paper *execution.PaperExecutor
	if live {
		executor = client
	} else {
		paper = execution.NewPaperExecutor()
		executor = paper
	}

	corr, err := correlation.NewStatic(cfg.Correlations)
	if err != nil {
		slog.Error("invalid correlation matrix", "err", err)
		os.Exit(1)
	}

	now := time.Now().UTC()
	state := risk.NewState(cfg.ResetLocation(), now)
	openPositions, err := store.GetOpenPositions(ctx)
	if err != nil {
		slog.Error("failed to load open positions", "err", err)
		os.Exit(1)
	}
	state.Rehydrate(openPositions)
	if len(openPositions) > 0 {
		slog.Info("rehydrated open positions", "count", len(openPositions))
	}

	gate := risk.NewGate(cfg.RiskLimits(), state, corr)

	policy, err := domain.NewFairValuePolicy(cfg.Estimator.Policy, cfg.Estimator.PolicyParam)
	if err != nil {
		slog.Error("invalid fair value policy", "err", err)
		os.Exit(1)
	}

	feed, err := binance.NewFeed(cfg.Feed.WSBase, cfg.Feed.Symbols, cfg.Feed.SymbolMap, cfg.MaxTickAge())
	if err != nil {
		slog.Error("failed to start feed", "err", err)
		os.Exit(1)
	}
	defer feed.Close()

	engMarkets := make([]engine.Market, len(cfg.Markets))
	for i, m := range cfg.Markets {
		engMarkets[i] = engine.Market{ID: m.ID, Symbol: m.Symbol}
	}
	eng := engine.New(engine.Config{
		Strategy:    strategyName,
		Live:        live,
		Venue:       "polymarket",
		Markets:     engMarkets,
		FeedTimeout: cfg.FeedTimeout(),
		Estimator:   cfg.EstimatorParams(),
		Sizing:      cfg.SizingParams(),
	}, feed, client, executor, jnl, store, notifier, gate, state, policy)

	var settled func(string)
	if paper != nil {
		settled = paper.Settle
	}
	res := resolver.New(strategyName, live, client, state, jnl, store, settled)

	if *once {
		if err := eng.RunOnce(ctx); err != nil {
			slog.Error("cycle failed", "err", err)
			os.Exit(1)
		}
		res.RunOnce(ctx)
		printSummary(ctx, jnl, store, notifier, cfg.Estimator.FeeBpsDefault)
		return
	}

	if cfg.Metrics.Addr != "" {
		srv := metrics.Serve(cfg.Metrics.Addr)
		defer srv.Close()
		slog.Info("metrics listening", "addr", cfg.Metrics.Addr)
	}

	// Los límites de riesgo se pueden retocar en caliente editando el
	// YAML; el resto de la config requiere reinicio.
	go func() {
		if err := config.Watch(ctx, *configPath, func(next *config.Config) {
			eng.SetLimits(next.RiskLimits())
		}); err != nil && ctx.Err() == nil {
			slog.Warn("config watcher stopped", "err", err)
		}
	}()

	go watchStopFile(ctx, cancel)

	go func() {
		if err := res.Run(ctx, cfg.PollInterval()); err != nil && ctx.Err() == nil {
			slog.Error("resolver exited", "err", err)
		}
	}()

	if err := eng.Run(ctx, cfg.PollInterval()); err != nil && ctx.Err() == nil {
		slog.Error("engine exited with error", "err", err)
		os.Exit(1)
	}

	printSummary(context.Background(), jnl, store, notifier, cfg.Estimator.FeeBpsDefault)
	slog.Info("edgebot stopped cleanly")
}

// watchStopFile cancels the run when a STOP file appears next to the
// binary. Handy on boxes where sending signals is awkward.
func watchStopFile(ctx context.Context, cancel context.CancelFunc) {
	const stopFile = "STOP"
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := os.Stat(stopFile); err == nil {
				slog.Info("STOP file detected — shutting down")
				os.Remove(stopFile)
				cancel()
				return
			}
		}
	}
}

func printSummary(ctx context.Context, jnl ports.Journal, store ports.AuditStore, notifier ports.Notifier, feeBps float64) {
	summary, err := report.Build(ctx, jnl, store, 24*time.Hour, feeBps)
	if err != nil {
		slog.Warn("summary unavailable", "err", err)
		return
	}
	if err := notifier.NotifySummary(ctx, summary); err != nil {
		slog.Warn("notifier error", "err", err)
	}
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
