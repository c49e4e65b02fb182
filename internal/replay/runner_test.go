package replay

import (
	"math"
	"strings"
	"testing"
	"time"

	"vertex/internal/journal"
	"vertex/internal/market"
	"vertex/internal/rank"
	"vertex/internal/risk"
	"vertex/internal/selector"
)

func replayChain() []market.OptionQuote {
	call := func(strike, bid, ask float64, volume int) market.OptionQuote {
		return market.OptionQuote{Type: market.Call, Strike: strike, Bid: bid, Ask: ask, Volume: volume}
	}
	return []market.OptionQuote{
		call(575, 4.20, 4.40, 320),
		call(580, 2.40, 2.50, 510),
		call(585, 0.95, 1.05, 430),
		call(590, 0.35, 0.45, 150),
	}
}

func replayContext() market.Context {
	return market.Context{
		Spot:         578.25,
		ImpliedVol:   0.15,
		TimeToExpiry: 4.0 / (24 * 365),
		RiskFreeRate: 0.05,
		Sentiment:    0.5,
	}
}

// seedReplayJournal records one real scan produced by the default weighting
// and settles it at 578.
func seedReplayJournal(t *testing.T, pol risk.Policy) *journal.Journal {
	t.Helper()
	db, err := journal.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	if err := journal.Migrate(db); err != nil {
		t.Fatal(err)
	}
	j := journal.New(db)

	chain := replayChain()
	res, err := selector.New(selector.Config{}).Run(chain, replayContext(), pol, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Recommendations) == 0 {
		t.Fatal("fixture chain produced no recommendations")
	}

	scan := journal.Scan{
		Symbol:     "SPY",
		ScannedAt:  time.Date(2026, 8, 20, 14, 0, 0, 0, time.UTC),
		Expiration: time.Date(2026, 8, 20, 20, 0, 0, 0, time.UTC),
		Context:    replayContext(),
		Funnel:     res.Funnel,
	}
	if _, err := j.RecordScan(scan, chain, res.Recommendations); err != nil {
		t.Fatal(err)
	}
	if _, err := j.Settle("SPY", 578.00, time.Date(2026, 8, 20, 20, 0, 0, 0, time.UTC)); err != nil {
		t.Fatal(err)
	}
	return j
}

func TestRun_SameWeightingReproducesPicks(t *testing.T) {
	pol := risk.Policy{AccountSize: 10000, MaxBuyingPowerFraction: 0.05, MinRiskReward: 1.0}
	j := seedReplayJournal(t, pol)

	r := NewRunner(j, selector.Config{}, pol, 5)
	summary, err := r.Run("2026-08-20", "2026-08-20")
	if err != nil {
		t.Fatal(err)
	}

	if summary.Scans != 1 || summary.Replayed != 1 {
		t.Fatalf("expected 1 scan replayed, got %+v", summary)
	}
	if summary.SameTopPick != 1 || summary.ChangedPicks != 0 {
		t.Errorf("same weighting changed the top pick: %+v", summary)
	}
	if math.Abs(summary.ReplayedPnL-summary.OriginalPnL) > 1e-6 {
		t.Errorf("same weighting diverged on pnl: original %f, replayed %f",
			summary.OriginalPnL, summary.ReplayedPnL)
	}
	if summary.OriginalPnL == 0 {
		t.Error("settled scan contributed no pnl")
	}
}

func TestRun_AlternativeWeighting(t *testing.T) {
	pol := risk.Policy{AccountSize: 10000, MaxBuyingPowerFraction: 0.05, MinRiskReward: 1.0}
	j := seedReplayJournal(t, pol)

	r := NewRunner(j, selector.Config{Weighting: rank.DefaultBlend()}, pol, 5)
	summary, err := r.Run("2026-08-20", "2026-08-20")
	if err != nil {
		t.Fatal(err)
	}

	if summary.Weighting != "blend" {
		t.Errorf("weighting name: got %q", summary.Weighting)
	}
	if summary.Replayed != 1 {
		t.Errorf("expected 1 scan replayed, got %d", summary.Replayed)
	}
	if summary.SameTopPick+summary.ChangedPicks != 1 {
		t.Errorf("top pick neither matched nor changed: %+v", summary)
	}
}

func TestRun_EmptyRange(t *testing.T) {
	pol := risk.Policy{AccountSize: 10000, MaxBuyingPowerFraction: 0.05, MinRiskReward: 1.0}
	j := seedReplayJournal(t, pol)

	_, err := NewRunner(j, selector.Config{}, pol, 5).Run("2025-01-01", "2025-01-31")
	if err == nil || !strings.Contains(err.Error(), "no scans found") {
		t.Fatalf("expected no-scans error, got %v", err)
	}
}

func TestRun_BadDate(t *testing.T) {
	pol := risk.Policy{AccountSize: 10000, MaxBuyingPowerFraction: 0.05, MinRiskReward: 1.0}
	j := seedReplayJournal(t, pol)

	_, err := NewRunner(j, selector.Config{}, pol, 5).Run("yesterday", "")
	if err == nil {
		t.Fatal("expected parse error")
	}
}
