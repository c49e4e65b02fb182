package sentiment

import (
	"log/slog"

	"vertex/internal/config"
)

// Source yields the bullish sentiment scalar for one scan cycle.
type Source interface {
	Aggregate() float64
}

// Component is one named sentiment input in [0, 1].
type Component struct {
	Name   string
	Score  float64
	Weight float64
}

// Aggregator combines named component scores into the single scalar the
// ranking weighs. Weights are normalized at aggregation so a config whose
// weights do not sum to exactly one still produces a [0, 1] result.
type Aggregator struct {
	components []Component
}

func NewAggregator(cfg config.SentimentConfig) *Aggregator {
	return &Aggregator{
		components: []Component{
			{Name: "news", Score: cfg.News.Score, Weight: cfg.News.Weight},
			{Name: "options_flow", Score: cfg.OptionsFlow.Score, Weight: cfg.OptionsFlow.Weight},
			{Name: "technicals", Score: cfg.Technicals.Score, Weight: cfg.Technicals.Weight},
			{Name: "breadth", Score: cfg.Breadth.Score, Weight: cfg.Breadth.Weight},
		},
	}
}

// Components returns a copy of the configured components.
func (a *Aggregator) Components() []Component {
	out := make([]Component, len(a.components))
	copy(out, a.components)
	return out
}

// Aggregate returns the weighted average of the component scores, clamped
// to [0, 1]. All weights zero yields the neutral 0.5.
func (a *Aggregator) Aggregate() float64 {
	var weighted, total float64
	for _, c := range a.components {
		if c.Weight <= 0 {
			continue
		}
		weighted += c.Weight * clamp01(c.Score)
		total += c.Weight
	}
	if total <= 0 {
		return 0.5
	}
	score := clamp01(weighted / total)

	slog.Debug("sentiment aggregated", "score", score, "components", len(a.components))
	return score
}

// Fixed is a Source pinned to one value, for runs that supply their own
// sentiment from the command line.
type Fixed float64

func (f Fixed) Aggregate() float64 {
	return clamp01(float64(f))
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
