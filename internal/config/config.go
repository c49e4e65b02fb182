package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	General   GeneralConfig   `toml:"general"`
	Schedule  ScheduleConfig  `toml:"schedule"`
	Provider  ProviderConfig  `toml:"provider"`
	Market    MarketConfig    `toml:"market"`
	Selection SelectionConfig `toml:"selection"`
	Risk      RiskConfig      `toml:"risk"`
	Ranking   RankingConfig   `toml:"ranking"`
	Sentiment SentimentConfig `toml:"sentiment"`
}

type GeneralConfig struct {
	DBPath   string `toml:"db_path"`
	LogLevel string `toml:"log_level"`
}

type ScheduleConfig struct {
	ScanInterval        Duration `toml:"scan_interval"`
	PerformanceInterval Duration `toml:"performance_interval"`
}

// ProviderConfig selects and tunes the market-data source. Mode "api" talks
// to a Tradier-style REST endpoint; mode "file" replays a recorded snapshot.
type ProviderConfig struct {
	Mode              string   `toml:"mode"`
	BaseURL           string   `toml:"base_url"`
	TokenEnv          string   `toml:"token_env"`
	SnapshotPath      string   `toml:"snapshot_path"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	Timeout           Duration `toml:"timeout"`
}

type MarketConfig struct {
	Symbol            string   `toml:"symbol"`
	CacheTTL          Duration `toml:"cache_ttl"`
	DefaultImpliedVol float64  `toml:"default_implied_vol"`
	RiskFreeRate      float64  `toml:"risk_free_rate"`
}

type SelectionConfig struct {
	MinVolume      int     `toml:"min_volume"`
	MaxStrikeWidth float64 `toml:"max_strike_width"`
	TopN           int     `toml:"top_n"`
}

type RiskConfig struct {
	AccountSize            float64 `toml:"account_size"`
	MaxBuyingPowerFraction float64 `toml:"max_buying_power_fraction"`
	MinRiskReward          float64 `toml:"min_risk_reward"`
	MaxDrawdownPct         float64 `toml:"max_drawdown_pct"`
}

// RankingConfig names the weighting policy and carries the blend constants.
type RankingConfig struct {
	Weighting        string  `toml:"weighting"`
	BlendProbability float64 `toml:"blend_probability"`
	BlendRiskReward  float64 `toml:"blend_risk_reward"`
	BlendSentiment   float64 `toml:"blend_sentiment"`
}

// SentimentConfig holds the per-component scores and the weights that
// aggregate them. Scores are static simulation values; a live feed would
// overwrite them per cycle.
type SentimentConfig struct {
	News        ComponentConfig `toml:"news"`
	OptionsFlow ComponentConfig `toml:"options_flow"`
	Technicals  ComponentConfig `toml:"technicals"`
	Breadth     ComponentConfig `toml:"breadth"`
}

type ComponentConfig struct {
	Score  float64 `toml:"score"`
	Weight float64 `toml:"weight"`
}

// Duration wraps time.Duration for TOML unmarshaling.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		General: GeneralConfig{
			DBPath:   "./data/vertex.db",
			LogLevel: "info",
		},
		Schedule: ScheduleConfig{
			ScanInterval:        Duration{5 * time.Minute},
			PerformanceInterval: Duration{1 * time.Hour},
		},
		Provider: ProviderConfig{
			Mode:              "api",
			BaseURL:           "https://sandbox.tradier.com/v1",
			TokenEnv:          "TRADIER_API_KEY",
			SnapshotPath:      "./data/snapshot.json",
			RequestsPerSecond: 2,
			Timeout:           Duration{10 * time.Second},
		},
		Market: MarketConfig{
			Symbol:            "SPY",
			CacheTTL:          Duration{30 * time.Second},
			DefaultImpliedVol: 0.15,
			RiskFreeRate:      0.05,
		},
		Selection: SelectionConfig{
			MinVolume:      10,
			MaxStrikeWidth: 10,
			TopN:           5,
		},
		Risk: RiskConfig{
			AccountSize:            10000,
			MaxBuyingPowerFraction: 0.05,
			MinRiskReward:          1.0,
			MaxDrawdownPct:         0.20,
		},
		Ranking: RankingConfig{
			Weighting:        "sentiment_scale",
			BlendProbability: 0.40,
			BlendRiskReward:  0.30,
			BlendSentiment:   0.30,
		},
		Sentiment: SentimentConfig{
			News:        ComponentConfig{Score: 0.5, Weight: 0.40},
			OptionsFlow: ComponentConfig{Score: 0.5, Weight: 0.25},
			Technicals:  ComponentConfig{Score: 0.5, Weight: 0.20},
			Breadth:     ComponentConfig{Score: 0.5, Weight: 0.15},
		},
	}
}

// Validate rejects configurations no run should start under. Limits that
// would make the risk manager panic are caught here, at the boundary.
func (c *Config) Validate() error {
	switch c.General.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("general.log_level must be debug, info, warn, or error, got %q", c.General.LogLevel)
	}

	if c.Schedule.ScanInterval.Duration <= 0 {
		return fmt.Errorf("schedule.scan_interval must be positive, got %s", c.Schedule.ScanInterval.Duration)
	}
	if c.Schedule.PerformanceInterval.Duration <= 0 {
		return fmt.Errorf("schedule.performance_interval must be positive, got %s", c.Schedule.PerformanceInterval.Duration)
	}

	switch c.Provider.Mode {
	case "api":
		if c.Provider.BaseURL == "" {
			return fmt.Errorf("provider.base_url required in api mode")
		}
		if c.Provider.RequestsPerSecond <= 0 {
			return fmt.Errorf("provider.requests_per_second must be positive, got %v", c.Provider.RequestsPerSecond)
		}
		if c.Provider.Timeout.Duration <= 0 {
			return fmt.Errorf("provider.timeout must be positive, got %s", c.Provider.Timeout.Duration)
		}
	case "file":
		if c.Provider.SnapshotPath == "" {
			return fmt.Errorf("provider.snapshot_path required in file mode")
		}
	default:
		return fmt.Errorf("provider.mode must be api or file, got %q", c.Provider.Mode)
	}

	if c.Market.Symbol == "" {
		return fmt.Errorf("market.symbol required")
	}
	if c.Market.CacheTTL.Duration < 0 {
		return fmt.Errorf("market.cache_ttl must not be negative, got %s", c.Market.CacheTTL.Duration)
	}
	if !finite(c.Market.DefaultImpliedVol) || c.Market.DefaultImpliedVol <= 0 {
		return fmt.Errorf("market.default_implied_vol must be positive, got %v", c.Market.DefaultImpliedVol)
	}
	if !finite(c.Market.RiskFreeRate) {
		return fmt.Errorf("market.risk_free_rate must be finite, got %v", c.Market.RiskFreeRate)
	}

	if c.Selection.MinVolume < 0 {
		return fmt.Errorf("selection.min_volume must not be negative, got %d", c.Selection.MinVolume)
	}
	if !finite(c.Selection.MaxStrikeWidth) || c.Selection.MaxStrikeWidth <= 0 {
		return fmt.Errorf("selection.max_strike_width must be positive, got %v", c.Selection.MaxStrikeWidth)
	}
	if c.Selection.TopN < 1 {
		return fmt.Errorf("selection.top_n must be at least 1, got %d", c.Selection.TopN)
	}

	if !finite(c.Risk.AccountSize) || c.Risk.AccountSize <= 0 {
		return fmt.Errorf("risk.account_size must be positive, got %v", c.Risk.AccountSize)
	}
	if !finite(c.Risk.MaxBuyingPowerFraction) || c.Risk.MaxBuyingPowerFraction < 0 || c.Risk.MaxBuyingPowerFraction > 1 {
		return fmt.Errorf("risk.max_buying_power_fraction must be in [0, 1], got %v", c.Risk.MaxBuyingPowerFraction)
	}
	if !finite(c.Risk.MinRiskReward) || c.Risk.MinRiskReward < 0 {
		return fmt.Errorf("risk.min_risk_reward must not be negative, got %v", c.Risk.MinRiskReward)
	}
	if !finite(c.Risk.MaxDrawdownPct) || c.Risk.MaxDrawdownPct < 0 || c.Risk.MaxDrawdownPct > 1 {
		return fmt.Errorf("risk.max_drawdown_pct must be in [0, 1], got %v", c.Risk.MaxDrawdownPct)
	}

	switch c.Ranking.Weighting {
	case "sentiment_scale", "blend":
	default:
		return fmt.Errorf("ranking.weighting must be sentiment_scale or blend, got %q", c.Ranking.Weighting)
	}
	blendTotal := 0.0
	for key, w := range map[string]float64{
		"ranking.blend_probability": c.Ranking.BlendProbability,
		"ranking.blend_risk_reward": c.Ranking.BlendRiskReward,
		"ranking.blend_sentiment":   c.Ranking.BlendSentiment,
	} {
		if !finite(w) || w < 0 || w > 1 {
			return fmt.Errorf("%s must be in [0, 1], got %v", key, w)
		}
		blendTotal += w
	}
	if blendTotal <= 0 {
		return fmt.Errorf("ranking blend weights must not all be zero")
	}

	weightTotal := 0.0
	for key, comp := range map[string]ComponentConfig{
		"sentiment.news":         c.Sentiment.News,
		"sentiment.options_flow": c.Sentiment.OptionsFlow,
		"sentiment.technicals":   c.Sentiment.Technicals,
		"sentiment.breadth":      c.Sentiment.Breadth,
	} {
		if !finite(comp.Score) || comp.Score < 0 || comp.Score > 1 {
			return fmt.Errorf("%s.score must be in [0, 1], got %v", key, comp.Score)
		}
		if !finite(comp.Weight) || comp.Weight < 0 {
			return fmt.Errorf("%s.weight must not be negative, got %v", key, comp.Weight)
		}
		weightTotal += comp.Weight
	}
	if weightTotal <= 0 {
		return fmt.Errorf("sentiment component weights must not all be zero")
	}

	return nil
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
