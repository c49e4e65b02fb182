package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"vertex/internal/config"
	"vertex/internal/market"
)

// Client fetches chain snapshots from a Tradier-style REST API. Every request
// waits on the rate limiter first, so a snapshot (quote, expirations, chain)
// never bursts past the provider's allowance.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	limiter    *rate.Limiter
}

func NewClient(cfg config.ProviderConfig, token string) *Client {
	burst := int(cfg.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout.Duration},
		baseURL:    cfg.BaseURL,
		token:      token,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
	}
}

// Snapshot fetches the spot quote, resolves the nearest expiration on or
// after today, and pulls that expiration's chain with greeks.
func (c *Client) Snapshot(ctx context.Context, symbol string) (market.Snapshot, error) {
	spot, err := c.spot(ctx, symbol)
	if err != nil {
		return market.Snapshot{}, err
	}

	day, err := c.nearestExpiration(ctx, symbol, time.Now())
	if err != nil {
		return market.Snapshot{}, err
	}

	quotes, err := c.chain(ctx, symbol, day)
	if err != nil {
		return market.Snapshot{}, err
	}

	return market.Snapshot{
		Symbol:     symbol,
		Spot:       spot,
		Quotes:     quotes,
		Expiration: expirationClose(day),
		Taken:      time.Now(),
	}, nil
}

func (c *Client) spot(ctx context.Context, symbol string) (float64, error) {
	var res quoteResponse
	if err := c.get(ctx, "/markets/quotes", url.Values{"symbols": {symbol}}, &res); err != nil {
		return 0, fmt.Errorf("fetching quote: %w", err)
	}
	if res.Quotes.Quote.Last <= 0 {
		return 0, fmt.Errorf("no quote for %s", symbol)
	}
	return res.Quotes.Quote.Last, nil
}

func (c *Client) nearestExpiration(ctx context.Context, symbol string, now time.Time) (time.Time, error) {
	var res expirationsResponse
	if err := c.get(ctx, "/markets/options/expirations", url.Values{"symbol": {symbol}}, &res); err != nil {
		return time.Time{}, fmt.Errorf("fetching expirations: %w", err)
	}

	// ISO dates compare correctly as strings.
	today := now.Format("2006-01-02")
	var best time.Time
	for _, d := range res.Expirations.Date {
		if d < today {
			continue
		}
		day, err := time.Parse("2006-01-02", d)
		if err != nil {
			return time.Time{}, fmt.Errorf("parsing expiration %q: %w", d, err)
		}
		if best.IsZero() || day.Before(best) {
			best = day
		}
	}
	if best.IsZero() {
		return time.Time{}, fmt.Errorf("no expiration on or after %s for %s", today, symbol)
	}
	return best, nil
}

func (c *Client) chain(ctx context.Context, symbol string, day time.Time) ([]market.OptionQuote, error) {
	var res chainResponse
	query := url.Values{
		"symbol":     {symbol},
		"expiration": {day.Format("2006-01-02")},
		"greeks":     {"true"},
	}
	if err := c.get(ctx, "/markets/options/chains", query, &res); err != nil {
		return nil, fmt.Errorf("fetching chain: %w", err)
	}

	expiration := expirationClose(day)
	quotes := make([]market.OptionQuote, 0, len(res.Options.Option))
	for _, o := range res.Options.Option {
		q := market.OptionQuote{
			Symbol:       o.Symbol,
			Type:         o.OptionType,
			Strike:       o.Strike,
			Bid:          o.Bid,
			Ask:          o.Ask,
			Last:         o.Last,
			Volume:       o.Volume,
			OpenInterest: o.OpenInterest,
			Expiration:   expiration,
		}
		if o.Greeks != nil {
			q.ImpliedVol = o.Greeks.MidIV
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}

// get performs one rate-limited authenticated request and decodes the JSON
// body into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s returned status %d: %s", path, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

// expirationClose pins an expiration date to the 16:00 New York equity
// close, or 21:00 UTC when tzdata is unavailable.
func expirationClose(day time.Time) time.Time {
	if loc, err := time.LoadLocation("America/New_York"); err == nil {
		return time.Date(day.Year(), day.Month(), day.Day(), 16, 0, 0, 0, loc)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), 21, 0, 0, 0, time.UTC)
}
