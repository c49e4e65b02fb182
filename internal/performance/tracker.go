package performance

import (
	"database/sql"
	"fmt"
	"math"
)

// Tracker computes hypothetical performance metrics from the journal. The
// simulated strategy takes the top-ranked pick of every scan at its
// worst-case debit, so settled rank-1 rows are the position history.
type Tracker struct {
	db              *sql.DB
	startingAccount float64
}

func NewTracker(db *sql.DB, startingAccount float64) *Tracker {
	return &Tracker{db: db, startingAccount: startingAccount}
}

// Report contains all performance metrics.
type Report struct {
	Scans            int
	ProductiveScans  int // scans that produced at least one pick
	Recommendations  int
	SettledPositions int
	Wins             int
	Losses           int
	WinRate          float64
	TotalRisk        float64
	TotalPnL         float64
	ROI              float64
	AvgProbability   float64
	StartingAccount  float64
	PeakEquity       float64
	MaxDrawdown      float64
}

// Generate computes the full performance report.
func (t *Tracker) Generate() (*Report, error) {
	r := &Report{StartingAccount: t.startingAccount}

	if err := t.computeCounts(r); err != nil {
		return nil, fmt.Errorf("computing scan counts: %w", err)
	}
	if err := t.computeSettled(r); err != nil {
		return nil, fmt.Errorf("computing settled stats: %w", err)
	}
	if err := t.computeDrawdown(r); err != nil {
		return nil, fmt.Errorf("computing drawdown: %w", err)
	}

	return r, nil
}

func (t *Tracker) computeCounts(r *Report) error {
	row := t.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN ranked > 0 THEN 1 ELSE 0 END), 0)
		FROM scans`)
	if err := row.Scan(&r.Scans, &r.ProductiveScans); err != nil {
		return err
	}

	row = t.db.QueryRow(`SELECT COUNT(*) FROM recommendations`)
	return row.Scan(&r.Recommendations)
}

func (t *Tracker) computeSettled(r *Report) error {
	row := t.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN rec.pnl > 0 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN rec.pnl < 0 THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(rec.total_risk), 0),
		       COALESCE(SUM(rec.pnl), 0),
		       COALESCE(AVG(rec.probability), 0)
		FROM recommendations rec
		JOIN scans s ON s.id = rec.scan_id
		WHERE s.settled = 1 AND rec.rank = 1 AND rec.pnl IS NOT NULL`)
	if err := row.Scan(&r.SettledPositions, &r.Wins, &r.Losses,
		&r.TotalRisk, &r.TotalPnL, &r.AvgProbability); err != nil {
		return err
	}

	if r.SettledPositions > 0 {
		r.WinRate = float64(r.Wins) / float64(r.SettledPositions)
	}
	if r.TotalRisk > 0 {
		r.ROI = r.TotalPnL / r.TotalRisk
	}
	return nil
}

// computeDrawdown walks the cumulative pnl curve of settled top picks from
// the starting account, oldest scan first.
func (t *Tracker) computeDrawdown(r *Report) error {
	rows, err := t.db.Query(`
		SELECT rec.pnl
		FROM recommendations rec
		JOIN scans s ON s.id = rec.scan_id
		WHERE s.settled = 1 AND rec.rank = 1 AND rec.pnl IS NOT NULL
		ORDER BY s.scanned_at ASC`)
	if err != nil {
		return err
	}
	defer rows.Close()

	equity := t.startingAccount
	peak := equity
	var maxDD float64
	for rows.Next() {
		var pnl float64
		if err := rows.Scan(&pnl); err != nil {
			return err
		}
		equity += pnl
		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			dd := (peak - equity) / peak
			maxDD = math.Max(maxDD, dd)
		}
	}
	r.PeakEquity = peak
	r.MaxDrawdown = maxDD
	return rows.Err()
}
