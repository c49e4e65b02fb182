package rank

import (
	"vertex/internal/market"
	"vertex/internal/risk"
)

// Policy converts a spread's expected value into the score it is ranked by.
// Implementations must be pure so identical scans rank identically.
type Policy interface {
	Name() string
	Score(ev float64, s risk.Sized, mctx market.Context) float64
}

// SentimentScale is the default weighting: expected value scaled by
// (0.5 + 0.5*sentiment). The ranking stays monotonic in expected value, and
// the 0.5 floor keeps sentiment from zeroing a positive-EV trade.
type SentimentScale struct{}

func (SentimentScale) Name() string { return "sentiment_scale" }

func (SentimentScale) Score(ev float64, _ risk.Sized, mctx market.Context) float64 {
	return ev * (0.5 + 0.5*clamp01(mctx.Sentiment))
}

// Blend is the additive weighting: probability of profit, risk/reward, and
// sentiment combined on fixed weights. Risk/reward is squashed to [0,1) as
// rr/(1+rr) so the unbounded term cannot dominate the bounded ones.
type Blend struct {
	Probability float64
	RiskReward  float64
	Sentiment   float64
}

// DefaultBlend returns the 40/30/30 weighting.
func DefaultBlend() Blend {
	return Blend{Probability: 0.40, RiskReward: 0.30, Sentiment: 0.30}
}

func (Blend) Name() string { return "blend" }

func (b Blend) Score(_ float64, s risk.Sized, mctx market.Context) float64 {
	rr := s.RiskReward / (1 + s.RiskReward)
	return b.Probability*s.PoP + b.RiskReward*rr + b.Sentiment*clamp01(mctx.Sentiment)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
