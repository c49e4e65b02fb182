package journal

import (
	"database/sql"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"vertex/internal/market"
	"vertex/internal/pricing"
	"vertex/internal/rank"
	"vertex/internal/risk"
	"vertex/internal/selector"
	"vertex/internal/spread"
)

func openTestJournal(t *testing.T) (*sql.DB, *Journal) {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	if err := Migrate(db); err != nil {
		t.Fatal(err)
	}
	return db, New(db)
}

func testScan(id string, scannedAt time.Time) Scan {
	return Scan{
		ID:         id,
		Symbol:     "SPY",
		ScannedAt:  scannedAt,
		Expiration: time.Date(2026, 8, 22, 20, 0, 0, 0, time.UTC),
		Context: market.Context{
			Spot:         578.25,
			ImpliedVol:   0.15,
			TimeToExpiry: 4.0 / (24 * 365),
			RiskFreeRate: 0.05,
			Sentiment:    0.62,
		},
		Funnel: selector.Funnel{Input: 12, Normalized: 10, Candidates: 7, Priced: 7, Sized: 5, Ranked: 3},
	}
}

func testRecommendation(longStrike, shortStrike, longAsk, shortBid float64, contracts, rnk int) rank.Recommendation {
	c := spread.Candidate{
		Long:  market.OptionQuote{Type: market.Call, Strike: longStrike, Bid: longAsk - 0.10, Ask: longAsk},
		Short: market.OptionQuote{Type: market.Call, Strike: shortStrike, Bid: shortBid, Ask: shortBid + 0.10},
	}
	debit := longAsk - shortBid
	p := pricing.Priced{
		Candidate: c,
		NetDebit:  debit,
		MaxLoss:   debit * pricing.ContractMultiplier,
		MaxProfit: (c.Width() - debit) * pricing.ContractMultiplier,
		Breakeven: longStrike + debit,
		PoP:       0.42,
	}
	p.RiskReward = p.MaxProfit / p.MaxLoss
	return rank.Recommendation{
		Sized: risk.Sized{
			Priced:      p,
			Contracts:   contracts,
			TotalRisk:   float64(contracts) * p.MaxLoss,
			TotalReward: float64(contracts) * p.MaxProfit,
		},
		ExpectedValue: 12.5,
		Score:         9.3,
		Rank:          rnk,
	}
}

func TestMigrate_CreatesAllTables(t *testing.T) {
	db, _ := openTestJournal(t)

	tables := []string{"schema_version", "scans", "recommendations", "chain_quotes"}
	for _, table := range tables {
		row := db.QueryRow(
			`SELECT count(*) FROM sqlite_master WHERE type='table' AND name=?`, table)
		var count int
		if err := row.Scan(&count); err != nil {
			t.Fatalf("checking table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("table %s not found", table)
		}
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db, _ := openTestJournal(t)

	// Second run must not error.
	if err := Migrate(db); err != nil {
		t.Fatal(err)
	}
}

func TestRecordScan_RoundTrip(t *testing.T) {
	_, j := openTestJournal(t)

	scannedAt := time.Date(2026, 8, 22, 14, 30, 5, 123456789, time.UTC)
	quotes := []market.OptionQuote{
		{Type: market.Call, Strike: 580, Bid: 2.40, Ask: 2.50, Last: 2.45, Volume: 510, OpenInterest: 1200, ImpliedVol: 0.152},
		{Type: market.Call, Strike: 585, Bid: 0.95, Ask: 1.05, Volume: 430},
	}
	rec := testRecommendation(580, 585, 2.50, 0.95, 3, 1)

	id, err := j.RecordScan(testScan("scan-1", scannedAt), quotes, []rank.Recommendation{rec})
	if err != nil {
		t.Fatal(err)
	}
	if id != "scan-1" {
		t.Errorf("expected preset id kept, got %q", id)
	}

	scans, err := j.ScansBetween(scannedAt.Add(-time.Minute), scannedAt.Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(scans) != 1 {
		t.Fatalf("expected 1 scan, got %d", len(scans))
	}

	s := scans[0]
	if !s.ScannedAt.Equal(scannedAt) {
		t.Errorf("scanned_at round trip: got %s", s.ScannedAt)
	}
	if s.Context.Spot != 578.25 || s.Context.Sentiment != 0.62 {
		t.Errorf("context round trip: %+v", s.Context)
	}
	if s.Funnel.Candidates != 7 || s.Funnel.Ranked != 3 {
		t.Errorf("funnel round trip: %+v", s.Funnel)
	}
	if s.Settled {
		t.Error("fresh scan marked settled")
	}

	chain, err := j.Chain(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(chain) != 2 {
		t.Fatalf("expected 2 chain quotes, got %d", len(chain))
	}
	if chain[0].Strike != 580 || chain[0].ImpliedVol != 0.152 {
		t.Errorf("chain quote round trip: %+v", chain[0])
	}
	if !chain[0].Expiration.Equal(s.Expiration) {
		t.Error("chain quote not pinned to scan expiration")
	}

	recs, err := j.Recommendations(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(recs))
	}
	r := recs[0]
	if r.LongStrike != 580 || r.ShortStrike != 585 || r.Contracts != 3 {
		t.Errorf("recommendation round trip: %+v", r)
	}
	if r.NetDebit != 1.55 {
		t.Errorf("net debit round trip: got %f", r.NetDebit)
	}
	if !strings.Contains(r.OrderLine, "BUY 3 580 CALL") {
		t.Errorf("order line not rendered: %q", r.OrderLine)
	}
	if r.PnL != nil {
		t.Errorf("unsettled recommendation carries pnl %f", *r.PnL)
	}
}

func TestRecordScan_AssignsID(t *testing.T) {
	_, j := openTestJournal(t)

	id, err := j.RecordScan(testScan("", time.Now()), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("generated id %q is not a uuid: %v", id, err)
	}
}

func TestSettle_ComputesPayoffPnL(t *testing.T) {
	_, j := openTestJournal(t)

	scannedAt := time.Date(2026, 8, 22, 14, 30, 0, 0, time.UTC)
	recs := []rank.Recommendation{
		testRecommendation(580, 585, 2.50, 0.95, 3, 1), // debit 1.55
		testRecommendation(585, 590, 1.05, 0.35, 7, 2), // debit 0.70
	}
	id, err := j.RecordScan(testScan("", scannedAt), nil, recs)
	if err != nil {
		t.Fatal(err)
	}

	// Close at 584.20: first spread pays 4.20, second expires worthless.
	settled, err := j.Settle("SPY", 584.20, scannedAt.Add(6*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if settled != 2 {
		t.Errorf("expected 2 recommendations settled, got %d", settled)
	}

	stored, err := j.Recommendations(id)
	if err != nil {
		t.Fatal(err)
	}
	if stored[0].PnL == nil || math.Abs(*stored[0].PnL-795) > 1e-6 {
		t.Errorf("first pnl: got %v, want 795", stored[0].PnL)
	}
	if stored[1].PnL == nil || math.Abs(*stored[1].PnL-(-490)) > 1e-6 {
		t.Errorf("second pnl: got %v, want -490", stored[1].PnL)
	}

	scans, err := j.ScansBetween(scannedAt.Add(-time.Minute), scannedAt.Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if !scans[0].Settled || scans[0].SettlePrice != 584.20 {
		t.Errorf("scan not marked settled: %+v", scans[0])
	}

	// Already settled: a second pass finds nothing open.
	settled, err = j.Settle("SPY", 590, scannedAt.Add(7*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if settled != 0 {
		t.Errorf("resettle touched %d recommendations", settled)
	}
}

func TestSettle_IgnoresOtherSymbols(t *testing.T) {
	_, j := openTestJournal(t)

	scan := testScan("", time.Now())
	scan.Symbol = "QQQ"
	id, err := j.RecordScan(scan, nil, []rank.Recommendation{testRecommendation(480, 485, 2.00, 0.80, 2, 1)})
	if err != nil {
		t.Fatal(err)
	}

	settled, err := j.Settle("SPY", 584.20, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if settled != 0 {
		t.Errorf("settled %d recommendations for the wrong symbol", settled)
	}

	stored, err := j.Recommendations(id)
	if err != nil {
		t.Fatal(err)
	}
	if stored[0].PnL != nil {
		t.Error("other symbol's recommendation settled")
	}
}

func TestScansBetween_HalfOpenWindow(t *testing.T) {
	_, j := openTestJournal(t)

	base := time.Date(2026, 8, 22, 14, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if _, err := j.RecordScan(testScan("", base.Add(time.Duration(i)*time.Hour)), nil, nil); err != nil {
			t.Fatal(err)
		}
	}

	scans, err := j.ScansBetween(base, base.Add(2*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(scans) != 2 {
		t.Fatalf("expected 2 scans in [from, to), got %d", len(scans))
	}
	if !scans[0].ScannedAt.Equal(base) {
		t.Errorf("expected oldest first, got %s", scans[0].ScannedAt)
	}
}
