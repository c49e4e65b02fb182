package pricing

import (
	"math"

	"vertex/internal/market"
)

// normalCDF returns the standard normal CDF via the error function.
func normalCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// probabilityAbove returns the risk-neutral probability that the underlying
// finishes above level at expiry under the Black-Scholes lognormal model:
//
//	d2 = (ln(S/level) + (r - vol^2/2)*T) / (vol*sqrt(T))
//	P  = normalCDF(d2)
//
// An expired or zero-vol chain has a known outcome, so the probability
// collapses to a step at level with no division.
func probabilityAbove(level float64, mctx market.Context) float64 {
	vol := mctx.ImpliedVol
	tte := mctx.TimeToExpiry

	if tte <= 0 || vol <= 0 {
		if mctx.Spot > level {
			return 1
		}
		return 0
	}

	d2 := (math.Log(mctx.Spot/level) + (mctx.RiskFreeRate-0.5*vol*vol)*tte) / (vol * math.Sqrt(tte))
	return normalCDF(d2)
}
