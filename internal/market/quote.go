package market

import "time"

// Option type values as providers report them.
const (
	Call = "call"
	Put  = "put"
)

// OptionQuote is one contract quote from the chain of a single expiration.
type OptionQuote struct {
	Symbol       string // OCC-style contract symbol, empty if the provider omits it
	Type         string // "call" or "put"
	Strike       float64
	Bid          float64
	Ask          float64
	Last         float64
	Volume       int
	OpenInterest int
	ImpliedVol   float64 // per-contract IV when greeks are available, else 0
	Expiration   time.Time
}

// Mid returns the bid/ask midpoint.
func (q OptionQuote) Mid() float64 {
	return (q.Bid + q.Ask) / 2
}

// Context is the market state one selection run prices against.
// It is assembled once per scan and never mutated.
type Context struct {
	Spot         float64 // current underlying price
	ImpliedVol   float64 // annualized volatility proxy
	TimeToExpiry float64 // years until expiration
	RiskFreeRate float64 // annualized risk-free rate
	Sentiment    float64 // aggregate bullish sentiment in [0,1]
}

// Snapshot is one fetched view of an underlying's 0-DTE chain.
type Snapshot struct {
	Symbol     string
	Spot       float64
	Quotes     []OptionQuote
	Expiration time.Time
	Taken      time.Time
}
