package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"vertex/internal/config"
	"vertex/internal/journal"
	"vertex/internal/market"
	"vertex/internal/performance"
	"vertex/internal/provider"
	"vertex/internal/rank"
	"vertex/internal/replay"
	"vertex/internal/risk"
	"vertex/internal/scheduler"
	"vertex/internal/selector"
	"vertex/internal/sentiment"
)

func main() {
	// Parse CLI flags.
	configPath := flag.String("config", "", "Path to config file (default: $VERTEX_CONFIG_PATH, then config.toml)")
	once := flag.Bool("once", false, "Run a single scan cycle and exit")
	report := flag.Bool("report", false, "Print the performance report and exit")
	settlePrice := flag.Float64("settle", 0, "Settle open scans at this expiration close price and exit")
	replayMode := flag.Bool("replay", false, "Replay journaled scans under an alternative weighting")
	replayFrom := flag.String("from", "", "Replay start date (YYYY-MM-DD)")
	replayTo := flag.String("to", "", "Replay end date (YYYY-MM-DD)")
	weighting := flag.String("weighting", "", "Override the ranking weighting (sentiment_scale or blend)")
	sentimentOverride := flag.Float64("sentiment", -1, "Override the aggregate sentiment score in [0, 1]")
	flag.Parse()

	// Set up structured logging; the level is revisited once config is loaded.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	slog.Info("vertex starting")

	// Load configuration.
	path := *configPath
	if path == "" {
		path = os.Getenv("VERTEX_CONFIG_PATH")
	}
	if path == "" {
		path = "config.toml"
	}

	cfg, err := config.Load(path)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.General.LogLevel),
	})))

	// Initialize the journal database.
	database, err := journal.Open(cfg.General.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := journal.Migrate(database); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database initialized", "path", cfg.General.DBPath)

	jrnl := journal.New(database)
	tracker := performance.NewTracker(database, cfg.Risk.AccountSize)

	pol := risk.Policy{
		AccountSize:            cfg.Risk.AccountSize,
		MaxBuyingPowerFraction: cfg.Risk.MaxBuyingPowerFraction,
		MinRiskReward:          cfg.Risk.MinRiskReward,
	}

	weightingPolicy, err := weightingFor(cfg, *weighting)
	if err != nil {
		slog.Error("invalid weighting", "error", err)
		os.Exit(1)
	}

	// Report mode.
	if *report {
		r, err := tracker.Generate()
		if err != nil {
			slog.Error("performance report failed", "error", err)
			os.Exit(1)
		}
		performance.LogReport(r)
		return
	}

	// Settlement mode.
	if *settlePrice > 0 {
		settled, err := jrnl.Settle(cfg.Market.Symbol, *settlePrice, time.Now())
		if err != nil {
			slog.Error("settlement failed", "error", err)
			os.Exit(1)
		}
		slog.Info("settlement complete",
			"symbol", cfg.Market.Symbol,
			"close", *settlePrice,
			"recommendations_settled", settled,
		)
		return
	}

	selCfg := selector.Config{
		MinVolume: cfg.Selection.MinVolume,
		MaxWidth:  cfg.Selection.MaxStrikeWidth,
		Weighting: weightingPolicy,
	}

	// Replay mode.
	if *replayMode {
		runner := replay.NewRunner(jrnl, selCfg, pol, cfg.Selection.TopN)
		if _, err := runner.Run(*replayFrom, *replayTo); err != nil {
			slog.Error("replay failed", "error", err)
			os.Exit(1)
		}
		return
	}

	// Live mode: wire the market-data source.
	src, err := newSource(cfg.Provider)
	if err != nil {
		slog.Error("failed to initialize provider", "error", err)
		os.Exit(1)
	}

	cache := market.NewCache(cfg.Market.CacheTTL.Duration)
	scanner := market.NewScanner(src, cache, cfg.Market)

	var sentSrc sentiment.Source = sentiment.NewAggregator(cfg.Sentiment)
	if *sentimentOverride >= 0 {
		sentSrc = sentiment.Fixed(*sentimentOverride)
		slog.Info("sentiment overridden", "score", *sentimentOverride)
	}

	sel := selector.New(selCfg)
	sched := scheduler.New(scanner, sentSrc, sel, jrnl, tracker, pol, cfg)

	if *once {
		if err := sched.RunOnce(context.Background()); err != nil {
			os.Exit(1)
		}
		return
	}

	// Graceful shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	if err := sched.Run(ctx); err != nil && err != context.Canceled {
		slog.Error("scheduler error", "error", err)
		os.Exit(1)
	}

	slog.Info("vertex stopped")
}

// newSource builds the market-data source the config selects.
func newSource(cfg config.ProviderConfig) (market.Source, error) {
	switch cfg.Mode {
	case "api":
		token := os.Getenv(cfg.TokenEnv)
		if token == "" {
			return nil, fmt.Errorf("%s not set", cfg.TokenEnv)
		}
		return provider.NewClient(cfg, token), nil
	case "file":
		return provider.NewFile(cfg.SnapshotPath), nil
	default:
		return nil, fmt.Errorf("unknown provider mode %q", cfg.Mode)
	}
}

// weightingFor resolves the ranking policy, letting the CLI flag override
// the configured name.
func weightingFor(cfg *config.Config, override string) (rank.Policy, error) {
	name := cfg.Ranking.Weighting
	if override != "" {
		name = override
	}
	switch name {
	case "sentiment_scale":
		return rank.SentimentScale{}, nil
	case "blend":
		return rank.Blend{
			Probability: cfg.Ranking.BlendProbability,
			RiskReward:  cfg.Ranking.BlendRiskReward,
			Sentiment:   cfg.Ranking.BlendSentiment,
		}, nil
	default:
		return nil, fmt.Errorf("unknown weighting %q", name)
	}
}

func logLevel(s string) slog.Level {
	switch s {
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
