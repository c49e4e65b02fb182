package market

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"vertex/internal/config"
)

// Source supplies chain snapshots for one underlying. Implementations own
// their transport, authentication, and rate limiting.
type Source interface {
	Snapshot(ctx context.Context, symbol string) (Snapshot, error)
}

// Scanner fetches chain snapshots through a Source and derives the pricing
// context a selection run needs.
type Scanner struct {
	src   Source
	cache *Cache
	cfg   config.MarketConfig
}

func NewScanner(src Source, cache *Cache, cfg config.MarketConfig) *Scanner {
	return &Scanner{src: src, cache: cache, cfg: cfg}
}

// Snapshot returns the current chain snapshot, reusing a cached one when
// still fresh.
func (s *Scanner) Snapshot(ctx context.Context, symbol string) (Snapshot, error) {
	if snap, ok := s.cache.Get(symbol); ok {
		return snap, nil
	}

	snap, err := s.src.Snapshot(ctx, symbol)
	if err != nil {
		return Snapshot{}, fmt.Errorf("fetching chain snapshot: %w", err)
	}
	if snap.Taken.IsZero() {
		snap.Taken = time.Now()
	}
	s.cache.Set(snap)

	slog.Info("chain snapshot fetched",
		"symbol", symbol,
		"quotes", len(snap.Quotes),
		"spot", snap.Spot,
		"expiration", snap.Expiration.Format(time.RFC3339),
	)
	return snap, nil
}

// Context assembles the market context for a snapshot at the given time.
// The volatility proxy is the implied vol of the call nearest the spot,
// falling back to the configured default when the chain carries no greeks.
func (s *Scanner) Context(snap Snapshot, now time.Time, sentiment float64) Context {
	vol := impliedVolProxy(snap)
	if vol <= 0 {
		vol = s.cfg.DefaultImpliedVol
	}

	tte := snap.Expiration.Sub(now).Hours() / (24 * 365)

	return Context{
		Spot:         snap.Spot,
		ImpliedVol:   vol,
		TimeToExpiry: tte,
		RiskFreeRate: s.cfg.RiskFreeRate,
		Sentiment:    sentiment,
	}
}

func impliedVolProxy(snap Snapshot) float64 {
	best := 0.0
	bestDist := math.MaxFloat64
	for _, q := range snap.Quotes {
		if q.Type != Call || q.ImpliedVol <= 0 {
			continue
		}
		d := math.Abs(q.Strike - snap.Spot)
		if d < bestDist {
			bestDist = d
			best = q.ImpliedVol
		}
	}
	return best
}
