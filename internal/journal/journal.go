package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"vertex/internal/market"
	"vertex/internal/order"
	"vertex/internal/pricing"
	"vertex/internal/rank"
	"vertex/internal/selector"
)

// timeLayout keeps a fixed-width fraction so stored timestamps order
// lexicographically the same as chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// Open creates or opens the journal database at the given path with WAL mode
// enabled.
func Open(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	// Enable foreign keys.
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return db, nil
}

// Migrate runs the schema creation SQL. Safe to call multiple times due to IF NOT EXISTS.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	// Record schema version 1 if not already present.
	_, err := db.Exec(`INSERT OR IGNORE INTO schema_version (version) VALUES (1)`)
	if err != nil {
		return fmt.Errorf("recording schema version: %w", err)
	}

	return nil
}

// Scan is one journaled selection run.
type Scan struct {
	ID         string
	Symbol     string
	ScannedAt  time.Time
	Expiration time.Time
	Context    market.Context
	Funnel     selector.Funnel
	Outcome    string // empty when the run produced recommendations
}

// StoredScan is a scan read back from the journal.
type StoredScan struct {
	Scan
	Settled     bool
	SettlePrice float64 // meaningful only when Settled
}

// StoredRecommendation is one journaled pick. PnL stays nil until the scan
// settles.
type StoredRecommendation struct {
	ScanID        string
	Rank          int
	LongStrike    float64
	ShortStrike   float64
	LongPremium   float64
	ShortPremium  float64
	NetDebit      float64
	MaxProfit     float64
	MaxLoss       float64
	Breakeven     float64
	Probability   float64
	RiskReward    float64
	Contracts     int
	TotalRisk     float64
	TotalReward   float64
	ExpectedValue float64
	Score         float64
	OrderLine     string
	PnL           *float64
}

// Journal persists scans, their raw chains, and their recommendations.
type Journal struct {
	db *sql.DB
}

func New(db *sql.DB) *Journal {
	return &Journal{db: db}
}

// RecordScan writes the scan, its chain, and its ranked recommendations in
// one transaction. A fresh id is assigned when the scan carries none; the id
// used is returned either way.
func (j *Journal) RecordScan(scan Scan, quotes []market.OptionQuote, recs []rank.Recommendation) (string, error) {
	if scan.ID == "" {
		scan.ID = uuid.NewString()
	}

	tx, err := j.db.Begin()
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO scans (id, symbol, scanned_at, expiration, spot, implied_vol, time_to_expiry,
			risk_free_rate, sentiment, quotes_in, normalized, candidates, priced, sized, ranked, outcome)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		scan.ID, scan.Symbol, formatTime(scan.ScannedAt), formatTime(scan.Expiration),
		scan.Context.Spot, scan.Context.ImpliedVol, scan.Context.TimeToExpiry,
		scan.Context.RiskFreeRate, scan.Context.Sentiment,
		scan.Funnel.Input, scan.Funnel.Normalized, scan.Funnel.Candidates,
		scan.Funnel.Priced, scan.Funnel.Sized, scan.Funnel.Ranked, scan.Outcome)
	if err != nil {
		return "", fmt.Errorf("inserting scan: %w", err)
	}

	for _, q := range quotes {
		if _, err := tx.Exec(`
			INSERT INTO chain_quotes (scan_id, type, strike, bid, ask, last, volume, open_interest, implied_vol)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			scan.ID, q.Type, q.Strike, q.Bid, q.Ask, q.Last, q.Volume, q.OpenInterest, q.ImpliedVol); err != nil {
			return "", fmt.Errorf("inserting chain quote: %w", err)
		}
	}

	for _, rec := range recs {
		d := order.Describe(rec)
		if _, err := tx.Exec(`
			INSERT INTO recommendations (scan_id, rank, long_strike, short_strike, long_premium, short_premium,
				net_debit, max_profit, max_loss, breakeven, probability, risk_reward,
				contracts, total_risk, total_reward, expected_value, score, order_line)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			scan.ID, rec.Rank, rec.Long.Strike, rec.Short.Strike, d.LongPremium, d.ShortPremium,
			rec.NetDebit, rec.MaxProfit, rec.MaxLoss, rec.Breakeven, rec.PoP, rec.RiskReward,
			rec.Contracts, rec.TotalRisk, rec.TotalReward, rec.ExpectedValue, rec.Score, d.OrderLine); err != nil {
			return "", fmt.Errorf("inserting recommendation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing scan: %w", err)
	}
	return scan.ID, nil
}

// Settle closes every open scan for the symbol at the given expiration close
// price: each recommendation's pnl becomes its spread payoff at that close
// minus the debit paid, across its contracts. Intended for the 0-DTE
// workflow, where a symbol's open scans share one expiration. Returns the
// number of recommendations settled.
func (j *Journal) Settle(symbol string, closePrice float64, settledAt time.Time) (int, error) {
	tx, err := j.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	scanIDs, err := collectStrings(tx, `SELECT id FROM scans WHERE symbol = ? AND settled = 0`, symbol)
	if err != nil {
		return 0, fmt.Errorf("listing open scans: %w", err)
	}

	settled := 0
	for _, scanID := range scanIDs {
		type recRow struct {
			id          int64
			longStrike  float64
			shortStrike float64
			netDebit    float64
			contracts   int
		}

		rows, err := tx.Query(`
			SELECT id, long_strike, short_strike, net_debit, contracts
			FROM recommendations WHERE scan_id = ?`, scanID)
		if err != nil {
			return 0, fmt.Errorf("listing recommendations: %w", err)
		}
		var recs []recRow
		for rows.Next() {
			var r recRow
			if err := rows.Scan(&r.id, &r.longStrike, &r.shortStrike, &r.netDebit, &r.contracts); err != nil {
				rows.Close()
				return 0, fmt.Errorf("scanning recommendation: %w", err)
			}
			recs = append(recs, r)
		}
		if err := rows.Close(); err != nil {
			return 0, fmt.Errorf("reading recommendations: %w", err)
		}

		for _, r := range recs {
			payoff := pricing.SpreadPayoff(r.longStrike, r.shortStrike, closePrice)
			pnl := (payoff - r.netDebit) * pricing.ContractMultiplier * float64(r.contracts)
			if _, err := tx.Exec(`UPDATE recommendations SET pnl = ? WHERE id = ?`, pnl, r.id); err != nil {
				return 0, fmt.Errorf("settling recommendation: %w", err)
			}
			settled++
		}

		if _, err := tx.Exec(`
			UPDATE scans SET settled = 1, settle_price = ?, settled_at = ? WHERE id = ?`,
			closePrice, formatTime(settledAt), scanID); err != nil {
			return 0, fmt.Errorf("settling scan: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing settlement: %w", err)
	}
	return settled, nil
}

// ScansBetween returns the scans recorded in [from, to), oldest first.
func (j *Journal) ScansBetween(from, to time.Time) ([]StoredScan, error) {
	rows, err := j.db.Query(`
		SELECT id, symbol, scanned_at, expiration, spot, implied_vol, time_to_expiry,
			risk_free_rate, sentiment, quotes_in, normalized, candidates, priced, sized, ranked,
			outcome, settled, settle_price
		FROM scans
		WHERE scanned_at >= ? AND scanned_at < ?
		ORDER BY scanned_at`, formatTime(from), formatTime(to))
	if err != nil {
		return nil, fmt.Errorf("querying scans: %w", err)
	}
	defer rows.Close()

	var scans []StoredScan
	for rows.Next() {
		var (
			s           StoredScan
			scannedAt   string
			expiration  string
			settled     int
			settlePrice sql.NullFloat64
		)
		if err := rows.Scan(&s.ID, &s.Symbol, &scannedAt, &expiration,
			&s.Context.Spot, &s.Context.ImpliedVol, &s.Context.TimeToExpiry,
			&s.Context.RiskFreeRate, &s.Context.Sentiment,
			&s.Funnel.Input, &s.Funnel.Normalized, &s.Funnel.Candidates,
			&s.Funnel.Priced, &s.Funnel.Sized, &s.Funnel.Ranked,
			&s.Outcome, &settled, &settlePrice); err != nil {
			return nil, fmt.Errorf("scanning scan row: %w", err)
		}
		if s.ScannedAt, err = parseTime(scannedAt); err != nil {
			return nil, fmt.Errorf("parsing scanned_at: %w", err)
		}
		if s.Expiration, err = parseTime(expiration); err != nil {
			return nil, fmt.Errorf("parsing expiration: %w", err)
		}
		s.Settled = settled != 0
		if settlePrice.Valid {
			s.SettlePrice = settlePrice.Float64
		}
		scans = append(scans, s)
	}
	return scans, rows.Err()
}

// Chain returns the quote chain stored for one scan, each quote pinned to
// the scan's expiration.
func (j *Journal) Chain(scanID string) ([]market.OptionQuote, error) {
	rows, err := j.db.Query(`
		SELECT cq.type, cq.strike, cq.bid, cq.ask, cq.last, cq.volume, cq.open_interest, cq.implied_vol,
			s.expiration
		FROM chain_quotes cq
		JOIN scans s ON s.id = cq.scan_id
		WHERE cq.scan_id = ?
		ORDER BY cq.id`, scanID)
	if err != nil {
		return nil, fmt.Errorf("querying chain: %w", err)
	}
	defer rows.Close()

	var quotes []market.OptionQuote
	for rows.Next() {
		var (
			q          market.OptionQuote
			expiration string
		)
		if err := rows.Scan(&q.Type, &q.Strike, &q.Bid, &q.Ask, &q.Last,
			&q.Volume, &q.OpenInterest, &q.ImpliedVol, &expiration); err != nil {
			return nil, fmt.Errorf("scanning chain row: %w", err)
		}
		if q.Expiration, err = parseTime(expiration); err != nil {
			return nil, fmt.Errorf("parsing expiration: %w", err)
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

// Recommendations returns one scan's stored picks, best rank first.
func (j *Journal) Recommendations(scanID string) ([]StoredRecommendation, error) {
	rows, err := j.db.Query(`
		SELECT scan_id, rank, long_strike, short_strike, long_premium, short_premium,
			net_debit, max_profit, max_loss, breakeven, probability, risk_reward,
			contracts, total_risk, total_reward, expected_value, score, order_line, pnl
		FROM recommendations
		WHERE scan_id = ?
		ORDER BY rank`, scanID)
	if err != nil {
		return nil, fmt.Errorf("querying recommendations: %w", err)
	}
	defer rows.Close()

	var recs []StoredRecommendation
	for rows.Next() {
		var (
			r   StoredRecommendation
			pnl sql.NullFloat64
		)
		if err := rows.Scan(&r.ScanID, &r.Rank, &r.LongStrike, &r.ShortStrike,
			&r.LongPremium, &r.ShortPremium, &r.NetDebit, &r.MaxProfit, &r.MaxLoss,
			&r.Breakeven, &r.Probability, &r.RiskReward, &r.Contracts,
			&r.TotalRisk, &r.TotalReward, &r.ExpectedValue, &r.Score,
			&r.OrderLine, &pnl); err != nil {
			return nil, fmt.Errorf("scanning recommendation row: %w", err)
		}
		if pnl.Valid {
			v := pnl.Float64
			r.PnL = &v
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

func collectStrings(tx *sql.Tx, query string, args ...any) ([]string, error) {
	rows, err := tx.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
