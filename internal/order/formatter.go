package order

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"vertex/internal/rank"
)

// Description is the broker-agnostic rendering of one recommendation.
// Building one performs no I/O; where it ends up is the caller's concern.
type Description struct {
	Rank         int
	Strategy     string
	Contracts    int
	LongStrike   float64
	ShortStrike  float64
	LongPremium  float64 // ask paid per share
	ShortPremium float64 // bid received per share
	NetDebit     float64
	MaxProfit    float64 // per contract
	MaxLoss      float64 // per contract
	Breakeven    float64
	PoP          float64
	TotalRisk    float64
	TotalReward  float64
	OrderLine    string
}

// Describe maps one ranked recommendation to its order description.
func Describe(rec rank.Recommendation) Description {
	return Description{
		Rank:         rec.Rank,
		Strategy:     "bull call spread",
		Contracts:    rec.Contracts,
		LongStrike:   rec.Long.Strike,
		ShortStrike:  rec.Short.Strike,
		LongPremium:  rec.Long.Ask,
		ShortPremium: rec.Short.Bid,
		NetDebit:     rec.NetDebit,
		MaxProfit:    rec.MaxProfit,
		MaxLoss:      rec.MaxLoss,
		Breakeven:    rec.Breakeven,
		PoP:          rec.PoP,
		TotalRisk:    rec.TotalRisk,
		TotalReward:  rec.TotalReward,
		OrderLine: fmt.Sprintf("BUY %d %s CALL / SELL %d %s CALL @ %s DEBIT",
			rec.Contracts, strike(rec.Long.Strike),
			rec.Contracts, strike(rec.Short.Strike),
			money(rec.NetDebit)),
	}
}

// Text renders the description as a human-readable block for console output.
func (d Description) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d %s: %s\n", d.Rank, d.Strategy, d.OrderLine)
	fmt.Fprintf(&b, "   legs: long %s @ %s, short %s @ %s\n",
		strike(d.LongStrike), money(d.LongPremium), strike(d.ShortStrike), money(d.ShortPremium))
	fmt.Fprintf(&b, "   breakeven %s, probability of profit %.1f%%\n", strike(d.Breakeven), d.PoP*100)
	fmt.Fprintf(&b, "   per contract: max profit $%s, max loss $%s\n", money(d.MaxProfit), money(d.MaxLoss))
	fmt.Fprintf(&b, "   position: %d contracts, total risk $%s, total reward $%s",
		d.Contracts, money(d.TotalRisk), money(d.TotalReward))
	return b.String()
}

// money renders a dollar quantity to exact cents, free of binary-float dust.
func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// strike renders a strike or price level without trailing zeros.
func strike(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
