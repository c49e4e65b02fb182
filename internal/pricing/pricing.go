package pricing

import (
	"fmt"
	"math"

	"vertex/internal/market"
	"vertex/internal/spread"
)

// ContractMultiplier is the share count one equity option contract controls.
const ContractMultiplier = 100

// Priced is a candidate plus its per-contract economics and probability of
// profit. Immutable once computed.
type Priced struct {
	spread.Candidate
	NetDebit   float64 // per share, worst-case fill
	MaxLoss    float64 // per contract
	MaxProfit  float64 // per contract
	Breakeven  float64
	PoP        float64 // probability the underlying closes above breakeven
	RiskReward float64
}

// NumericDomainError reports a non-finite quantity at the pricing boundary.
// Candidates that trip it are dropped so NaN and Inf never reach ranking.
type NumericDomainError struct {
	Quantity string
	Value    float64
}

func (e *NumericDomainError) Error() string {
	return fmt.Sprintf("numeric domain: %s is %v", e.Quantity, e.Value)
}

// Price computes the economics and probability of profit for one candidate.
// The debit is conservative: long ask paid, short bid received.
func Price(c spread.Candidate, mctx market.Context) (Priced, error) {
	if err := checkFinite("spot", mctx.Spot); err != nil {
		return Priced{}, err
	}
	if err := checkFinite("implied_vol", mctx.ImpliedVol); err != nil {
		return Priced{}, err
	}
	if err := checkFinite("time_to_expiry", mctx.TimeToExpiry); err != nil {
		return Priced{}, err
	}
	if err := checkFinite("risk_free_rate", mctx.RiskFreeRate); err != nil {
		return Priced{}, err
	}

	netDebit := c.DebitEstimate()
	p := Priced{
		Candidate: c,
		NetDebit:  netDebit,
		MaxLoss:   netDebit * ContractMultiplier,
		MaxProfit: (c.Width() - netDebit) * ContractMultiplier,
		Breakeven: c.Long.Strike + netDebit,
		PoP:       probabilityAbove(c.Long.Strike+netDebit, mctx),
	}
	p.RiskReward = p.MaxProfit / p.MaxLoss

	if err := checkFinite("probability_of_profit", p.PoP); err != nil {
		return Priced{}, err
	}
	if err := checkFinite("risk_reward", p.RiskReward); err != nil {
		return Priced{}, err
	}
	return p, nil
}

func checkFinite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &NumericDomainError{Quantity: name, Value: v}
	}
	return nil
}

// SpreadPayoff returns the per-share expiration value of a bull call spread
// with the given strikes when the underlying closes at price: zero below the
// long strike, capped at the width above the short strike.
func SpreadPayoff(longStrike, shortStrike, closePrice float64) float64 {
	v := closePrice - longStrike
	if v < 0 {
		return 0
	}
	if width := shortStrike - longStrike; v > width {
		return width
	}
	return v
}
