package rank

import (
	"sort"

	"vertex/internal/market"
	"vertex/internal/risk"
)

// Recommendation is a sized spread with its expected value, weighted score,
// and final rank (1 is best).
type Recommendation struct {
	risk.Sized
	ExpectedValue float64
	Score         float64
	Rank          int
}

// IsTopRanked reports whether the recommendation sits within the top n.
func (r Recommendation) IsTopRanked(n int) bool {
	return r.Rank > 0 && r.Rank <= n
}

// Rank scores sized spreads under the weighting policy, orders them best
// first, and returns the top n with ranks assigned. Ties break to higher
// probability of profit, then lower total risk, then lower strikes, so the
// ordering is total and identical inputs always rank identically.
func Rank(sized []risk.Sized, mctx market.Context, pol Policy, topN int) []Recommendation {
	recs := make([]Recommendation, 0, len(sized))
	for _, s := range sized {
		ev := expectedValue(s)
		recs = append(recs, Recommendation{
			Sized:         s,
			ExpectedValue: ev,
			Score:         pol.Score(ev, s, mctx),
		})
	}

	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.PoP != b.PoP {
			return a.PoP > b.PoP
		}
		if a.TotalRisk != b.TotalRisk {
			return a.TotalRisk < b.TotalRisk
		}
		if a.Long.Strike != b.Long.Strike {
			return a.Long.Strike < b.Long.Strike
		}
		return a.Short.Strike < b.Short.Strike
	})

	if topN > 0 && len(recs) > topN {
		recs = recs[:topN]
	}
	for i := range recs {
		recs[i].Rank = i + 1
	}
	return recs
}

// expectedValue is the probability-weighted dollar outcome of the position.
func expectedValue(s risk.Sized) float64 {
	return s.PoP*s.TotalReward - (1-s.PoP)*s.TotalRisk
}
