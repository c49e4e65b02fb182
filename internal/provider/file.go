package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"vertex/internal/market"
)

// snapshotFile is the recording format file mode replays. Expiration is
// RFC 3339, or a bare date that settles at the equity close.
type snapshotFile struct {
	Symbol     string      `json:"symbol"`
	Spot       float64     `json:"spot"`
	Expiration string      `json:"expiration"`
	Quotes     []fileQuote `json:"quotes"`
}

type fileQuote struct {
	Symbol       string  `json:"symbol,omitempty"`
	Type         string  `json:"type"`
	Strike       float64 `json:"strike"`
	Bid          float64 `json:"bid"`
	Ask          float64 `json:"ask"`
	Last         float64 `json:"last,omitempty"`
	Volume       int     `json:"volume"`
	OpenInterest int     `json:"open_interest,omitempty"`
	ImpliedVol   float64 `json:"implied_vol,omitempty"`
}

// File serves a recorded snapshot from disk for offline and simulation runs.
// Every call re-reads the file, so a simulation can swap recordings between
// scans.
type File struct {
	path string
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Snapshot(_ context.Context, symbol string) (market.Snapshot, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return market.Snapshot{}, fmt.Errorf("reading snapshot file: %w", err)
	}

	var rec snapshotFile
	if err := json.Unmarshal(data, &rec); err != nil {
		return market.Snapshot{}, fmt.Errorf("parsing snapshot file: %w", err)
	}
	if rec.Symbol != "" && rec.Symbol != symbol {
		return market.Snapshot{}, fmt.Errorf("snapshot file holds %s, want %s", rec.Symbol, symbol)
	}

	expiration, err := time.Parse(time.RFC3339, rec.Expiration)
	if err != nil {
		day, dayErr := time.Parse("2006-01-02", rec.Expiration)
		if dayErr != nil {
			return market.Snapshot{}, fmt.Errorf("parsing expiration %q: %w", rec.Expiration, err)
		}
		expiration = expirationClose(day)
	}

	snap := market.Snapshot{
		Symbol:     symbol,
		Spot:       rec.Spot,
		Expiration: expiration,
		Taken:      time.Now(),
		Quotes:     make([]market.OptionQuote, 0, len(rec.Quotes)),
	}
	for _, q := range rec.Quotes {
		snap.Quotes = append(snap.Quotes, market.OptionQuote{
			Symbol:       q.Symbol,
			Type:         q.Type,
			Strike:       q.Strike,
			Bid:          q.Bid,
			Ask:          q.Ask,
			Last:         q.Last,
			Volume:       q.Volume,
			OpenInterest: q.OpenInterest,
			ImpliedVol:   q.ImpliedVol,
			Expiration:   expiration,
		})
	}
	return snap, nil
}
