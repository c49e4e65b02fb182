package performance

import (
	"log/slog"
)

// LogReport logs the performance report as structured JSON.
func LogReport(r *Report) {
	slog.Info("=== PERFORMANCE REPORT ===",
		"scans", r.Scans,
		"productive_scans", r.ProductiveScans,
		"recommendations", r.Recommendations,
		"settled_positions", r.SettledPositions,
		"wins", r.Wins,
		"losses", r.Losses,
		"win_rate", r.WinRate,
		"total_risk", r.TotalRisk,
		"total_pnl", r.TotalPnL,
		"roi", r.ROI,
		"avg_probability", r.AvgProbability,
		"starting_account", r.StartingAccount,
		"peak_equity", r.PeakEquity,
		"max_drawdown", r.MaxDrawdown,
	)
}
