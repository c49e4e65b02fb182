package selector

import (
	"fmt"
	"log/slog"
	"math"

	"vertex/internal/market"
	"vertex/internal/pricing"
	"vertex/internal/rank"
	"vertex/internal/risk"
	"vertex/internal/spread"
)

// Config tunes the chain filters of one selector.
type Config struct {
	MinVolume int         // liquidity floor quotes must clear
	MaxWidth  float64     // widest admissible strike distance
	Weighting rank.Policy // scoring policy; SentimentScale when nil
}

// Selector runs the spread-selection pipeline over one quote chain:
// normalize, enumerate, price, risk-filter, rank. It holds only its
// construction-time tuning, so one instance may serve concurrent scans.
type Selector struct {
	cfg Config
}

func New(cfg Config) *Selector {
	if cfg.MinVolume == 0 {
		cfg.MinVolume = 10
	}
	if cfg.MaxWidth == 0 {
		cfg.MaxWidth = 10
	}
	if cfg.Weighting == nil {
		cfg.Weighting = rank.SentimentScale{}
	}
	return &Selector{cfg: cfg}
}

// Funnel counts the survivors of each pipeline stage for one scan.
type Funnel struct {
	Input      int
	Normalized int
	Candidates int
	Priced     int
	Sized      int
	Ranked     int
}

// Result is one scan's recommendations with its funnel counts.
type Result struct {
	Recommendations []rank.Recommendation
	Funnel          Funnel
}

// Select runs the pipeline and returns the top recommendations, best first.
// Identical inputs always produce identical ordered output. A chain or
// market that yields nothing comes back as an empty list with a typed
// reason (InsufficientDataError, NoViableSpreadsError), never a fault.
func (s *Selector) Select(quotes []market.OptionQuote, mctx market.Context, pol risk.Policy, topN int) ([]rank.Recommendation, error) {
	res, err := s.Run(quotes, mctx, pol, topN)
	return res.Recommendations, err
}

// Run is Select plus the stage-by-stage funnel, for callers that journal it.
func (s *Selector) Run(quotes []market.OptionQuote, mctx market.Context, pol risk.Policy, topN int) (Result, error) {
	res, err := s.pipeline(quotes, mctx, pol, topN)

	f := res.Funnel
	if err != nil {
		slog.Warn("scan produced no recommendations",
			"reason", err.Error(),
			"quotes_in", f.Input,
			"normalized", f.Normalized,
			"candidates", f.Candidates,
			"priced", f.Priced,
			"sized", f.Sized,
		)
		return res, err
	}

	slog.Info("scan funnel",
		"quotes_in", f.Input,
		"normalized", f.Normalized,
		"candidates", f.Candidates,
		"priced", f.Priced,
		"sized", f.Sized,
		"ranked", f.Ranked,
	)
	return res, nil
}

func (s *Selector) pipeline(quotes []market.OptionQuote, mctx market.Context, pol risk.Policy, topN int) (Result, error) {
	res := Result{Funnel: Funnel{Input: len(quotes)}}

	if err := validateContext(mctx); err != nil {
		return res, err
	}

	normalized := market.Normalize(quotes, s.cfg.MinVolume)
	res.Funnel.Normalized = len(normalized)
	if len(normalized) < 2 {
		return res, &InsufficientDataError{
			Reason: fmt.Sprintf("%d valid strikes after normalization, need at least 2", len(normalized)),
		}
	}

	candidates := spread.Enumerate(normalized, s.cfg.MaxWidth)
	res.Funnel.Candidates = len(candidates)
	if len(candidates) == 0 {
		return res, &NoViableSpreadsError{Stage: StageEnumerate, Candidates: len(normalized)}
	}

	priced := make([]pricing.Priced, 0, len(candidates))
	for _, c := range candidates {
		p, err := pricing.Price(c, mctx)
		if err != nil {
			// Numeric domain trouble drops the candidate, never the scan.
			slog.Debug("candidate dropped at pricing",
				"long_strike", c.Long.Strike,
				"short_strike", c.Short.Strike,
				"error", err.Error(),
			)
			continue
		}
		priced = append(priced, p)
	}
	res.Funnel.Priced = len(priced)
	if len(priced) == 0 {
		return res, &NoViableSpreadsError{Stage: StagePrice, Candidates: len(candidates)}
	}

	sized := risk.NewManager(pol).Apply(priced)
	res.Funnel.Sized = len(sized)
	if len(sized) == 0 {
		return res, &NoViableSpreadsError{Stage: StageRisk, Candidates: len(priced)}
	}

	res.Recommendations = rank.Rank(sized, mctx, s.cfg.Weighting, topN)
	res.Funnel.Ranked = len(res.Recommendations)
	return res, nil
}

// validateContext rejects a market context the pricing model cannot price
// against. A non-finite field upstream would otherwise fail every candidate
// one by one; catching it here names the real problem.
func validateContext(mctx market.Context) error {
	fields := []struct {
		name  string
		value float64
	}{
		{"underlying_price", mctx.Spot},
		{"implied_vol", mctx.ImpliedVol},
		{"time_to_expiry", mctx.TimeToExpiry},
		{"risk_free_rate", mctx.RiskFreeRate},
		{"sentiment_score", mctx.Sentiment},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return &InsufficientDataError{
				Reason: fmt.Sprintf("market context %s is %v", f.name, f.value),
			}
		}
	}
	if mctx.Spot <= 0 {
		return &InsufficientDataError{
			Reason: fmt.Sprintf("market context underlying_price is %v, need positive", mctx.Spot),
		}
	}
	return nil
}
