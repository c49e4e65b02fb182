package scheduler

import (
	"context"
	"log/slog"
	"time"

	"vertex/internal/config"
	"vertex/internal/journal"
	"vertex/internal/market"
	"vertex/internal/order"
	"vertex/internal/performance"
	"vertex/internal/risk"
	"vertex/internal/selector"
	"vertex/internal/sentiment"
)

// Scheduler orchestrates the scan loop: snapshot, sentiment, selection,
// journal, report. It stops recommending once the scanned expiration has
// passed or the drawdown limit is breached.
type Scheduler struct {
	scanner   *market.Scanner
	sentiment sentiment.Source
	sel       *selector.Selector
	journal   *journal.Journal
	tracker   *performance.Tracker
	pol       risk.Policy
	cfg       *config.Config

	expired bool
	halted  bool
}

// New creates a Scheduler with all dependencies.
func New(
	scanner *market.Scanner,
	sent sentiment.Source,
	sel *selector.Selector,
	jrnl *journal.Journal,
	tracker *performance.Tracker,
	pol risk.Policy,
	cfg *config.Config,
) *Scheduler {
	return &Scheduler{
		scanner:   scanner,
		sentiment: sent,
		sel:       sel,
		journal:   jrnl,
		tracker:   tracker,
		pol:       pol,
		cfg:       cfg,
	}
}

// Run starts the periodic loops and blocks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	slog.Info("scheduler starting",
		"symbol", s.cfg.Market.Symbol,
		"scan_interval", s.cfg.Schedule.ScanInterval.Duration,
		"performance_interval", s.cfg.Schedule.PerformanceInterval.Duration,
	)

	// Run first cycle immediately.
	if err := s.runScanCycle(ctx); err != nil {
		slog.Error("scan cycle failed", "error", err)
	}

	scanTicker := time.NewTicker(s.cfg.Schedule.ScanInterval.Duration)
	perfTicker := time.NewTicker(s.cfg.Schedule.PerformanceInterval.Duration)
	defer scanTicker.Stop()
	defer perfTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler shutting down")
			return ctx.Err()
		case <-scanTicker.C:
			if err := s.runScanCycle(ctx); err != nil {
				slog.Error("scan cycle failed", "error", err)
			}
		case <-perfTicker.C:
			s.runPerformanceReport()
		}
	}
}

// RunOnce executes a single scan cycle and returns its hard failure, if any.
// Soft outcomes (a chain that yields nothing) are journaled, not errors.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	return s.runScanCycle(ctx)
}

func (s *Scheduler) runScanCycle(ctx context.Context) error {
	if s.halted {
		slog.Warn("scanning halted by drawdown limit")
		return nil
	}
	if s.expired {
		slog.Info("expiration passed, no further scans")
		return nil
	}
	if s.breachedDrawdown() {
		s.halted = true
		return nil
	}

	now := time.Now()
	snap, err := s.scanner.Snapshot(ctx, s.cfg.Market.Symbol)
	if err != nil {
		slog.Error("snapshot failed", "symbol", s.cfg.Market.Symbol, "error", err)
		return err
	}
	if now.After(snap.Expiration) {
		s.expired = true
		slog.Info("expiration passed, no further scans",
			"expiration", snap.Expiration.Format(time.RFC3339))
		return nil
	}

	sent := s.sentiment.Aggregate()
	mctx := s.scanner.Context(snap, now, sent)

	res, runErr := s.sel.Run(snap.Quotes, mctx, s.pol, s.cfg.Selection.TopN)

	scan := journal.Scan{
		Symbol:     snap.Symbol,
		ScannedAt:  now,
		Expiration: snap.Expiration,
		Context:    mctx,
		Funnel:     res.Funnel,
	}
	if runErr != nil {
		scan.Outcome = runErr.Error()
	}

	id, err := s.journal.RecordScan(scan, snap.Quotes, res.Recommendations)
	if err != nil {
		slog.Error("journaling scan failed", "error", err)
		return err
	}

	for _, rec := range res.Recommendations {
		d := order.Describe(rec)
		slog.Info("recommendation",
			"scan_id", id,
			"rank", d.Rank,
			"order", d.OrderLine,
			"breakeven", d.Breakeven,
			"probability", d.PoP,
			"contracts", d.Contracts,
			"total_risk", d.TotalRisk,
			"total_reward", d.TotalReward,
		)
	}

	slog.Info("scan cycle complete",
		"scan_id", id,
		"symbol", snap.Symbol,
		"recommendations", len(res.Recommendations),
		"sentiment", sent,
	)
	return nil
}

// breachedDrawdown consults the tracker against the configured halt
// threshold. A zero threshold disables the halt.
func (s *Scheduler) breachedDrawdown() bool {
	if s.cfg.Risk.MaxDrawdownPct <= 0 {
		return false
	}

	report, err := s.tracker.Generate()
	if err != nil {
		slog.Error("drawdown check failed", "error", err)
		return false
	}
	if report.MaxDrawdown >= s.cfg.Risk.MaxDrawdownPct {
		slog.Warn("drawdown limit breached, halting new recommendations",
			"max_drawdown", report.MaxDrawdown,
			"limit", s.cfg.Risk.MaxDrawdownPct,
		)
		return true
	}
	return false
}

func (s *Scheduler) runPerformanceReport() {
	report, err := s.tracker.Generate()
	if err != nil {
		slog.Error("performance report failed", "error", err)
		return
	}
	performance.LogReport(report)
}
