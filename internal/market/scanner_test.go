package market

import (
	"context"
	"math"
	"testing"
	"time"

	"vertex/internal/config"
)

// fakeSource counts fetches and serves a fixed snapshot.
type fakeSource struct {
	snap    Snapshot
	fetches int
}

func (f *fakeSource) Snapshot(_ context.Context, symbol string) (Snapshot, error) {
	f.fetches++
	snap := f.snap
	snap.Symbol = symbol
	return snap, nil
}

func testMarketConfig() config.MarketConfig {
	return config.MarketConfig{
		Symbol:            "SPY",
		CacheTTL:          config.Duration{Duration: time.Minute},
		DefaultImpliedVol: 0.15,
		RiskFreeRate:      0.05,
	}
}

func testSnapshot() Snapshot {
	expiration := time.Date(2026, 8, 22, 20, 0, 0, 0, time.UTC)
	return Snapshot{
		Spot:       578.25,
		Expiration: expiration,
		Quotes: []OptionQuote{
			{Type: Call, Strike: 575, Bid: 4.20, Ask: 4.40, Volume: 320, ImpliedVol: 0.18, Expiration: expiration},
			{Type: Call, Strike: 580, Bid: 2.40, Ask: 2.50, Volume: 510, ImpliedVol: 0.152, Expiration: expiration},
			{Type: Put, Strike: 580, Bid: 3.10, Ask: 3.20, Volume: 200, ImpliedVol: 0.21, Expiration: expiration},
		},
	}
}

func TestScanner_Snapshot_ReusesCachedFetch(t *testing.T) {
	src := &fakeSource{snap: testSnapshot()}
	s := NewScanner(src, NewCache(time.Minute), testMarketConfig())

	first, err := s.Snapshot(context.Background(), "SPY")
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Snapshot(context.Background(), "SPY")
	if err != nil {
		t.Fatal(err)
	}

	if src.fetches != 1 {
		t.Errorf("expected 1 provider fetch inside the TTL, got %d", src.fetches)
	}
	if first.Spot != second.Spot || len(first.Quotes) != len(second.Quotes) {
		t.Error("cached snapshot differs from fetched one")
	}
}

func TestScanner_Snapshot_ExpiredCacheRefetches(t *testing.T) {
	src := &fakeSource{snap: testSnapshot()}
	s := NewScanner(src, NewCache(-time.Second), testMarketConfig())

	for i := 0; i < 2; i++ {
		if _, err := s.Snapshot(context.Background(), "SPY"); err != nil {
			t.Fatal(err)
		}
	}
	if src.fetches != 2 {
		t.Errorf("expected a fetch per call with expired cache, got %d", src.fetches)
	}
}

func TestScanner_Context_VolProxyFromNearestCall(t *testing.T) {
	s := NewScanner(&fakeSource{}, NewCache(time.Minute), testMarketConfig())
	snap := testSnapshot()

	mctx := s.Context(snap, snap.Expiration.Add(-4*time.Hour), 0.5)

	// Spot 578.25 sits nearest the 580 call; the put's vol is ignored.
	if mctx.ImpliedVol != 0.152 {
		t.Errorf("implied vol proxy: got %f, want 0.152", mctx.ImpliedVol)
	}
	if mctx.Spot != 578.25 || mctx.RiskFreeRate != 0.05 || mctx.Sentiment != 0.5 {
		t.Errorf("context fields: %+v", mctx)
	}
}

func TestScanner_Context_FallsBackToDefaultVol(t *testing.T) {
	s := NewScanner(&fakeSource{}, NewCache(time.Minute), testMarketConfig())
	snap := testSnapshot()
	for i := range snap.Quotes {
		snap.Quotes[i].ImpliedVol = 0
	}

	mctx := s.Context(snap, snap.Expiration.Add(-4*time.Hour), 0.5)
	if mctx.ImpliedVol != 0.15 {
		t.Errorf("expected configured default vol, got %f", mctx.ImpliedVol)
	}
}

func TestScanner_Context_TimeToExpiryInYears(t *testing.T) {
	s := NewScanner(&fakeSource{}, NewCache(time.Minute), testMarketConfig())
	snap := testSnapshot()

	mctx := s.Context(snap, snap.Expiration.Add(-4*time.Hour), 0.5)
	want := 4.0 / (24 * 365)
	if math.Abs(mctx.TimeToExpiry-want) > 1e-12 {
		t.Errorf("time to expiry: got %g, want %g", mctx.TimeToExpiry, want)
	}

	// At the expiration instant the clock reads zero.
	mctx = s.Context(snap, snap.Expiration, 0.5)
	if mctx.TimeToExpiry != 0 {
		t.Errorf("expected zero at expiration, got %g", mctx.TimeToExpiry)
	}
}
