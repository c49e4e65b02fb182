package replay

import (
	"fmt"
	"log/slog"
	"time"

	"vertex/internal/journal"
	"vertex/internal/pricing"
	"vertex/internal/rank"
	"vertex/internal/risk"
	"vertex/internal/selector"
)

// Runner re-runs journaled scans through the live pipeline under an
// alternative weighting and compares the picks, and their settled outcomes,
// against what was recommended at the time. Read-only over the journal.
type Runner struct {
	journal   *journal.Journal
	sel       *selector.Selector
	weighting string
	pol       risk.Policy
	topN      int
}

func NewRunner(j *journal.Journal, cfg selector.Config, pol risk.Policy, topN int) *Runner {
	weighting := "sentiment_scale"
	if cfg.Weighting != nil {
		weighting = cfg.Weighting.Name()
	}
	return &Runner{
		journal:   j,
		sel:       selector.New(cfg),
		weighting: weighting,
		pol:       pol,
		topN:      topN,
	}
}

// Summary is the aggregate outcome of one replay.
type Summary struct {
	Weighting    string
	Scans        int
	Replayed     int
	SameTopPick  int
	ChangedPicks int
	OriginalPnL  float64 // settled top picks as journaled
	ReplayedPnL  float64 // settled top picks under the alternative weighting
}

// Run replays every journaled scan in the date range, oldest first.
func (r *Runner) Run(fromStr, toStr string) (*Summary, error) {
	from, to, err := parseDateRange(fromStr, toStr)
	if err != nil {
		return nil, err
	}

	scans, err := r.journal.ScansBetween(from, to)
	if err != nil {
		return nil, fmt.Errorf("loading scans: %w", err)
	}
	if len(scans) == 0 {
		return nil, fmt.Errorf("no scans found in range %s to %s",
			from.Format("2006-01-02"), to.Format("2006-01-02"))
	}

	slog.Info("replay starting",
		"weighting", r.weighting,
		"from", from.Format("2006-01-02"),
		"to", to.Format("2006-01-02"),
		"scans", len(scans),
	)

	summary := &Summary{Weighting: r.weighting, Scans: len(scans)}
	for _, scan := range scans {
		if err := r.replayScan(scan, summary); err != nil {
			slog.Warn("replay scan failed", "scan_id", scan.ID, "error", err)
		}
	}

	slog.Info("=== REPLAY RESULTS ===",
		"weighting", summary.Weighting,
		"scans", summary.Scans,
		"replayed", summary.Replayed,
		"same_top_pick", summary.SameTopPick,
		"changed_picks", summary.ChangedPicks,
		"original_pnl", summary.OriginalPnL,
		"replayed_pnl", summary.ReplayedPnL,
	)
	return summary, nil
}

func (r *Runner) replayScan(scan journal.StoredScan, summary *Summary) error {
	quotes, err := r.journal.Chain(scan.ID)
	if err != nil {
		return fmt.Errorf("loading chain: %w", err)
	}
	if len(quotes) == 0 {
		return nil
	}

	res, runErr := r.sel.Run(quotes, scan.Context, r.pol, r.topN)
	if len(res.Recommendations) == 0 {
		// A typed empty result is a legitimate replay outcome.
		if runErr != nil {
			slog.Debug("replay produced no picks", "scan_id", scan.ID, "reason", runErr.Error())
		}
		return nil
	}
	summary.Replayed++
	replayTop := res.Recommendations[0]

	original, err := r.journal.Recommendations(scan.ID)
	if err != nil {
		return fmt.Errorf("loading original picks: %w", err)
	}
	if len(original) == 0 {
		return nil
	}
	originalTop := original[0]

	if originalTop.LongStrike == replayTop.Long.Strike && originalTop.ShortStrike == replayTop.Short.Strike {
		summary.SameTopPick++
	} else {
		summary.ChangedPicks++
		slog.Info("replay changed top pick",
			"scan_id", scan.ID,
			"original", fmt.Sprintf("%v/%v", originalTop.LongStrike, originalTop.ShortStrike),
			"replay", fmt.Sprintf("%v/%v", replayTop.Long.Strike, replayTop.Short.Strike),
		)
	}

	if scan.Settled {
		if originalTop.PnL != nil {
			summary.OriginalPnL += *originalTop.PnL
		}
		summary.ReplayedPnL += hypotheticalPnL(replayTop, scan.SettlePrice)
	}
	return nil
}

// hypotheticalPnL settles one replayed pick at the journaled close price.
func hypotheticalPnL(rec rank.Recommendation, closePrice float64) float64 {
	payoff := pricing.SpreadPayoff(rec.Long.Strike, rec.Short.Strike, closePrice)
	return (payoff - rec.NetDebit) * pricing.ContractMultiplier * float64(rec.Contracts)
}

func parseDateRange(fromStr, toStr string) (time.Time, time.Time, error) {
	var from, to time.Time

	if fromStr == "" {
		from = time.Now().AddDate(0, 0, -30) // Default: 30 days back.
	} else {
		var err error
		from, err = time.Parse("2006-01-02", fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parsing from date: %w", err)
		}
	}

	if toStr == "" {
		to = time.Now()
	} else {
		var err error
		to, err = time.Parse("2006-01-02", toStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parsing to date: %w", err)
		}
		// The named day is included in the window.
		to = to.AddDate(0, 0, 1)
	}

	return from, to, nil
}
