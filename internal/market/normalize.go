package market

import (
	"math"
	"sort"
)

// Normalize filters a raw chain down to liquid, well-formed calls sorted
// ascending by strike. Quotes with a missing side, inverted markets,
// non-positive strikes, and volume below minVolume are dropped. Duplicate
// strikes collapse to the higher-volume quote.
func Normalize(quotes []OptionQuote, minVolume int) []OptionQuote {
	byStrike := make(map[float64]OptionQuote, len(quotes))

	for _, q := range quotes {
		if q.Type != Call {
			continue
		}
		if !validPrice(q.Strike) {
			continue
		}
		if !validPrice(q.Bid) || !validPrice(q.Ask) {
			continue
		}
		if q.Bid > q.Ask {
			continue
		}
		if q.Volume < minVolume {
			continue
		}
		if prev, ok := byStrike[q.Strike]; ok && prev.Volume >= q.Volume {
			continue
		}
		byStrike[q.Strike] = q
	}

	out := make([]OptionQuote, 0, len(byStrike))
	for _, q := range byStrike {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Strike < out[j].Strike })
	return out
}

// validPrice reports whether x is a usable positive price.
// NaN and infinities fail; a zero bid means the side is missing.
func validPrice(x float64) bool {
	return x > 0 && !math.IsInf(x, 1)
}
