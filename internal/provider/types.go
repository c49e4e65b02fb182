package provider

// Wire types for the Tradier-style market-data endpoints, trimmed to the
// fields the scanner consumes.

type quoteResponse struct {
	Quotes struct {
		Quote underlyingQuote `json:"quote"`
	} `json:"quotes"`
}

type underlyingQuote struct {
	Symbol string  `json:"symbol"`
	Last   float64 `json:"last"`
}

type expirationsResponse struct {
	Expirations struct {
		Date []string `json:"date"`
	} `json:"expirations"`
}

type chainResponse struct {
	Options struct {
		Option []chainOption `json:"option"`
	} `json:"options"`
}

type chainOption struct {
	Symbol         string  `json:"symbol"`
	OptionType     string  `json:"option_type"`
	Strike         float64 `json:"strike"`
	Bid            float64 `json:"bid"`
	Ask            float64 `json:"ask"`
	Last           float64 `json:"last"`
	Volume         int     `json:"volume"`
	OpenInterest   int     `json:"open_interest"`
	ExpirationDate string  `json:"expiration_date"`
	Greeks         *greeks `json:"greeks"`
}

type greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
	MidIV float64 `json:"mid_iv"`
}
