package spread

import "vertex/internal/market"

// Candidate is a two-leg debit call spread: buy the lower strike, sell the
// higher strike, same expiration.
type Candidate struct {
	Long  market.OptionQuote
	Short market.OptionQuote
}

// Width returns the strike distance between the legs.
func (c Candidate) Width() float64 {
	return c.Short.Strike - c.Long.Strike
}

// DebitEstimate returns the worst-case opening cost per share: pay the ask
// on the long leg, receive the bid on the short leg.
func (c Candidate) DebitEstimate() float64 {
	return c.Long.Ask - c.Short.Bid
}

// Enumerate emits every admissible ordered strike pair from a normalized,
// strike-sorted chain. Pairs are rejected inline when the debit estimate is
// non-positive or at least the width, and when the width exceeds maxWidth.
func Enumerate(quotes []market.OptionQuote, maxWidth float64) []Candidate {
	var out []Candidate
	for i := 0; i < len(quotes); i++ {
		for j := i + 1; j < len(quotes); j++ {
			c := Candidate{Long: quotes[i], Short: quotes[j]}
			if !c.Long.Expiration.Equal(c.Short.Expiration) {
				continue
			}

			width := c.Width()
			if width <= 0 {
				continue
			}
			if width > maxWidth {
				// Strikes are sorted, so every later pair is wider still.
				break
			}

			debit := c.DebitEstimate()
			if debit <= 0 || debit >= width {
				continue
			}

			out = append(out, c)
		}
	}
	return out
}
