package config

// Config describes one backtest run. field names mirror the yaml file;
// the json tags are what the api accepts and what Hash is computed over
type Config struct {
	Run       RunConfig       `yaml:"run" json:"run"`
	Universe  UniverseConfig  `yaml:"universe" json:"universe"`
	Factors   FactorsConfig   `yaml:"factors" json:"factors"`
	Rebalance RebalanceConfig `yaml:"rebalance" json:"rebalance"`
	Signals   SignalsConfig   `yaml:"signals" json:"signals"`
	Execution ExecutionConfig `yaml:"execution" json:"execution"`
}

type RunConfig struct {
	// YYYY-MM-DD, inclusive
	Start       string  `yaml:"start" json:"start"`
	End         string  `yaml:"end" json:"end"`
	InitialCash float64 `yaml:"initial_cash" json:"initial_cash"`
}

type UniverseConfig struct {
	// empty means every security the source lists
	Symbols []string `yaml:"symbols" json:"symbols"`
	// subtracted from momentum when set
	Benchmark string `yaml:"benchmark" json:"benchmark"`
	// series used as the regime level, e.g. ^VIX
	VolatilityIndex string `yaml:"volatility_index" json:"volatility_index"`
}

type FactorsConfig struct {
	Policy        string       `yaml:"policy" json:"policy"`
	MissingPolicy string       `yaml:"missing_policy" json:"missing_policy"`
	MinSample     int          `yaml:"min_sample" json:"min_sample"`
	Items         []FactorItem `yaml:"items" json:"items"`
}

type FactorItem struct {
	Name   string  `yaml:"name" json:"name"`
	Weight float64 `yaml:"weight" json:"weight"`
	// custom factors only. built-ins are referenced by name alone
	Expression  string `yaml:"expression" json:"expression"`
	Orientation string `yaml:"orientation" json:"orientation"`
}

type RebalanceConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Frequency string `yaml:"frequency" json:"frequency"`
	// exactly one of TopK and TopPercentile
	TopK          int     `yaml:"top_k" json:"top_k"`
	TopPercentile float64 `yaml:"top_percentile" json:"top_percentile"`
	// top picks the best composites, bottom the worst
	Select string `yaml:"select" json:"select"`
	Side   string `yaml:"side" json:"side"`
}

type SignalsConfig struct {
	Enabled bool          `yaml:"enabled" json:"enabled"`
	Side    string        `yaml:"side" json:"side"`
	Regime  RegimeConfig  `yaml:"regime" json:"regime"`
	Breach  BreachConfig  `yaml:"breach" json:"breach"`
	Drift   DriftConfig   `yaml:"drift" json:"drift"`
	Filters FiltersConfig `yaml:"filters" json:"filters"`
	Exit    ExitConfig    `yaml:"exit" json:"exit"`
}

type RegimeConfig struct {
	Threshold  float64 `yaml:"threshold" json:"threshold"`
	Multiplier float64 `yaml:"multiplier" json:"multiplier"`
	Window     int     `yaml:"window" json:"window"`
}

type BreachConfig struct {
	Quantile          float64 `yaml:"quantile" json:"quantile"`
	Lookback          int     `yaml:"lookback" json:"lookback"`
	Direction         string  `yaml:"direction" json:"direction"`
	MinRelativeVolume float64 `yaml:"min_relative_volume" json:"min_relative_volume"`
	VolumeWindow      int     `yaml:"volume_window" json:"volume_window"`
}

// DriftConfig enables the post-earnings gap scanner as a second entry
// trigger next to the breach
type DriftConfig struct {
	Enabled           bool    `yaml:"enabled" json:"enabled"`
	MinGap            float64 `yaml:"min_gap" json:"min_gap"`
	MinRelativeVolume float64 `yaml:"min_relative_volume" json:"min_relative_volume"`
	VolumeWindow      int     `yaml:"volume_window" json:"volume_window"`
}

type FiltersConfig struct {
	ExcludeSectors []string `yaml:"exclude_sectors" json:"exclude_sectors"`
	MinMarketCap   float64  `yaml:"min_market_cap" json:"min_market_cap"`
	// symbol -> YYYY-MM-DD dates
	NegativeEvents map[string][]string `yaml:"negative_events" json:"negative_events"`
}

type ExitConfig struct {
	BandWindow        int `yaml:"band_window" json:"band_window"`
	MaxHoldingPeriods int `yaml:"max_holding_periods" json:"max_holding_periods"`
}

type ExecutionConfig struct {
	Timing string       `yaml:"timing" json:"timing"`
	Sizing SizingConfig `yaml:"sizing" json:"sizing"`
}

type SizingConfig struct {
	Method         string  `yaml:"method" json:"method"`
	WinProbability float64 `yaml:"win_probability" json:"win_probability"`
	RewardRisk     float64 `yaml:"reward_risk" json:"reward_risk"`
	Fraction       float64 `yaml:"fraction" json:"fraction"`
}

const (
	Select_Top    = "top"
	Select_Bottom = "bottom"

	Sizing_EqualWeight = "equal_weight"
	Sizing_Kelly       = "kelly"
)

// ApplyDefaults fills the optional enums. it runs before Validate so a
// minimal file only has to name what it changes
func (c *Config) ApplyDefaults() {
	if c.Factors.Policy == "" {
		c.Factors.Policy = "strict"
	}
	if c.Factors.MissingPolicy == "" {
		c.Factors.MissingPolicy = "exclude"
	}
	if c.Rebalance.Select == "" {
		c.Rebalance.Select = Select_Top
	}
	if c.Rebalance.Side == "" {
		c.Rebalance.Side = "long"
	}
	if c.Signals.Side == "" {
		c.Signals.Side = "long"
	}
	if c.Signals.Breach.Direction == "" {
		c.Signals.Breach.Direction = "downside"
	}
	if c.Signals.Breach.VolumeWindow == 0 {
		c.Signals.Breach.VolumeWindow = 20
	}
	if c.Signals.Drift.Enabled {
		if c.Signals.Drift.MinGap == 0 {
			c.Signals.Drift.MinGap = 0.02
		}
		if c.Signals.Drift.MinRelativeVolume == 0 {
			c.Signals.Drift.MinRelativeVolume = 1.5
		}
		if c.Signals.Drift.VolumeWindow == 0 {
			c.Signals.Drift.VolumeWindow = 20
		}
	}
	if c.Execution.Timing == "" {
		c.Execution.Timing = "next_open"
	}
	if c.Execution.Sizing.Method == "" {
		c.Execution.Sizing.Method = Sizing_EqualWeight
	}
	for i := range c.Factors.Items {
		item := &c.Factors.Items[i]
		if item.Weight == 0 {
			item.Weight = 1
		}
		if item.Expression != "" && item.Orientation == "" {
			item.Orientation = "higher_is_better"
		}
	}
}
