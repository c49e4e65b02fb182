package market

import (
	"math"
	"testing"
)

func callQuote(strike, bid, ask float64, volume int) OptionQuote {
	return OptionQuote{Type: Call, Strike: strike, Bid: bid, Ask: ask, Volume: volume}
}

func TestNormalize_SortsByStrike(t *testing.T) {
	quotes := []OptionQuote{
		callQuote(585, 0.90, 1.00, 120),
		callQuote(575, 4.10, 4.30, 80),
		callQuote(580, 2.40, 2.50, 200),
	}

	out := Normalize(quotes, 10)
	if len(out) != 3 {
		t.Fatalf("expected 3 quotes, got %d", len(out))
	}
	for i := 1; i < len(out); i++ {
		if out[i].Strike <= out[i-1].Strike {
			t.Errorf("quotes not sorted ascending: %f then %f", out[i-1].Strike, out[i].Strike)
		}
	}
}

func TestNormalize_DropsPuts(t *testing.T) {
	quotes := []OptionQuote{
		callQuote(580, 2.40, 2.50, 200),
		{Type: Put, Strike: 575, Bid: 1.10, Ask: 1.20, Volume: 500},
	}

	out := Normalize(quotes, 10)
	if len(out) != 1 {
		t.Fatalf("expected 1 quote, got %d", len(out))
	}
	if out[0].Type != Call {
		t.Errorf("expected only calls to survive, got %s", out[0].Type)
	}
}

func TestNormalize_DropsMissingSides(t *testing.T) {
	quotes := []OptionQuote{
		callQuote(580, 0, 2.50, 200),  // no bid
		callQuote(585, 0.95, 0, 200),  // no ask
		callQuote(590, 0.40, 0.50, 200),
	}

	out := Normalize(quotes, 10)
	if len(out) != 1 {
		t.Fatalf("expected 1 quote, got %d", len(out))
	}
	if out[0].Strike != 590 {
		t.Errorf("expected strike 590 to survive, got %f", out[0].Strike)
	}
}

func TestNormalize_DropsBelowLiquidityFloor(t *testing.T) {
	quotes := []OptionQuote{
		callQuote(580, 2.40, 2.50, 9),
		callQuote(585, 0.90, 1.00, 10),
	}

	out := Normalize(quotes, 10)
	if len(out) != 1 {
		t.Fatalf("expected 1 quote, got %d", len(out))
	}
	if out[0].Strike != 585 {
		t.Errorf("expected strike 585 (volume at floor) to survive, got %f", out[0].Strike)
	}
}

func TestNormalize_DropsInvertedMarket(t *testing.T) {
	quotes := []OptionQuote{
		callQuote(580, 2.60, 2.50, 200), // bid above ask
		callQuote(585, 0.90, 1.00, 200),
	}

	out := Normalize(quotes, 10)
	if len(out) != 1 || out[0].Strike != 585 {
		t.Fatalf("expected only the well-formed quote to survive, got %d", len(out))
	}
}

func TestNormalize_DropsNonFinitePrices(t *testing.T) {
	quotes := []OptionQuote{
		callQuote(580, math.NaN(), 2.50, 200),
		callQuote(585, 0.90, math.Inf(1), 200),
		callQuote(590, 0.40, 0.50, 200),
	}

	out := Normalize(quotes, 10)
	if len(out) != 1 || out[0].Strike != 590 {
		t.Fatalf("expected non-finite quotes dropped, got %d survivors", len(out))
	}
}

func TestNormalize_CollapsesDuplicateStrikes(t *testing.T) {
	quotes := []OptionQuote{
		callQuote(580, 2.40, 2.50, 50),
		callQuote(580, 2.38, 2.52, 400),
	}

	out := Normalize(quotes, 10)
	if len(out) != 1 {
		t.Fatalf("expected duplicate strikes collapsed, got %d", len(out))
	}
	if out[0].Volume != 400 {
		t.Errorf("expected the higher-volume quote kept, got volume %d", out[0].Volume)
	}
}

func TestNormalize_EmptyChain(t *testing.T) {
	out := Normalize(nil, 10)
	if len(out) != 0 {
		t.Errorf("expected empty output for empty chain, got %d", len(out))
	}
}
