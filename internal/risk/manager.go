package risk

import (
	"fmt"
	"math"

	"vertex/internal/pricing"
)

// Policy holds the hard limits one selection run is sized against.
type Policy struct {
	AccountSize            float64
	MaxBuyingPowerFraction float64 // share of the account one trade may put at risk
	MinRiskReward          float64
}

// DefaultPolicy returns the standard limits for the given account size.
func DefaultPolicy(accountSize float64) Policy {
	return Policy{
		AccountSize:            accountSize,
		MaxBuyingPowerFraction: 0.05,
		MinRiskReward:          1.0,
	}
}

// Sized is a priced spread approved by the risk filters, with its contract
// count and total exposure.
type Sized struct {
	pricing.Priced
	Contracts   int
	TotalRisk   float64
	TotalReward float64
}

// Manager applies the risk/reward filter and position sizing to priced
// spreads.
type Manager struct {
	pol Policy
}

// NewManager panics on a policy no caller should construct: sizing against a
// non-positive account or a negative buying-power fraction is a programming
// error, not an input condition.
func NewManager(pol Policy) *Manager {
	if pol.AccountSize <= 0 {
		panic(fmt.Sprintf("risk: account size must be positive, got %v", pol.AccountSize))
	}
	if pol.MaxBuyingPowerFraction < 0 {
		panic(fmt.Sprintf("risk: buying-power fraction must be non-negative, got %v", pol.MaxBuyingPowerFraction))
	}
	return &Manager{pol: pol}
}

// Budget returns the dollar risk budget one trade may consume.
func (m *Manager) Budget() float64 {
	return m.pol.AccountSize * m.pol.MaxBuyingPowerFraction
}

// Apply filters and sizes every priced spread. Spreads under the risk/reward
// floor or too expensive for a single contract are dropped, not errors.
// Invariant for every emitted position: contracts x max loss per contract
// never exceeds the budget.
func (m *Manager) Apply(priced []pricing.Priced) []Sized {
	budget := m.Budget()

	sized := make([]Sized, 0, len(priced))
	for _, p := range priced {
		if p.RiskReward < m.pol.MinRiskReward {
			continue
		}

		contracts := contractsFor(p.MaxLoss, budget)
		if contracts < 1 {
			continue
		}

		sized = append(sized, Sized{
			Priced:      p,
			Contracts:   contracts,
			TotalRisk:   float64(contracts) * p.MaxLoss,
			TotalReward: float64(contracts) * p.MaxProfit,
		})
	}
	return sized
}

// contractsFor floors the affordable contract count. Always floor: the cap
// holds for any input only because sizing never rounds up.
func contractsFor(maxLossPerContract, budget float64) int {
	if maxLossPerContract <= 0 {
		return 0
	}
	return int(math.Floor(budget / maxLossPerContract))
}
