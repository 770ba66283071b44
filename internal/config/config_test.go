package config

import (
	"encoding/json"
	"errors"
	"testing"

	"factorlab/internal/backtest"
	"factorlab/internal/domain"
	"factorlab/internal/factor"
	"factorlab/internal/rank"
	"factorlab/internal/signal"
	"factorlab/internal/util"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const validYaml = `
run:
  start: 2020-01-01
  end: 2021-12-31
  initial_cash: 100000
universe:
  symbols: [AAPL, MSFT, GOOG]
  benchmark: SPY
  volatility_index: ^VIX
factors:
  policy: best_available
  min_sample: 3
  items:
    - name: earnings_yield
    - name: return_on_capital
      weight: 2
    - name: cheapness
      expression: "marketCap / net_income"
      orientation: lower_is_better
rebalance:
  enabled: true
  frequency: monthly
  top_k: 2
signals:
  enabled: true
  regime:
    threshold: 20
    multiplier: 1.2
    window: 20
  breach:
    quantile: 0.05
    lookback: 60
  drift:
    enabled: true
    min_gap: 0.03
  filters:
    exclude_sectors: [Utilities]
    negative_events:
      MSFT: [2020-03-02]
  exit:
    band_window: 20
    max_holding_periods: 10
execution:
  timing: same_close
  sizing:
    method: kelly
    win_probability: 0.55
    reward_risk: 1.5
    fraction: 0.5
`

func requireConfigError(t *testing.T, err error, field string) {
	t.Helper()
	require.Error(t, err)
	cfgErr := domain.ConfigurationError{}
	require.True(t, errors.As(err, &cfgErr), "expected ConfigurationError, got %v", err)
	require.Equal(t, field, cfgErr.Field)
}

func TestParse(t *testing.T) {
	t.Run("happy path", func(t *testing.T) {
		cfg, err := Parse([]byte(validYaml))
		require.NoError(t, err)

		require.Equal(t, "exclude", cfg.Factors.MissingPolicy)
		require.Equal(t, 1.0, cfg.Factors.Items[0].Weight)
		require.Equal(t, 2.0, cfg.Factors.Items[1].Weight)
		require.Equal(t, "long", cfg.Rebalance.Side)
		require.Equal(t, Select_Top, cfg.Rebalance.Select)
		require.Equal(t, "downside", cfg.Signals.Breach.Direction)
		require.Equal(t, 20, cfg.Signals.Breach.VolumeWindow)

		start, end, err := cfg.Dates()
		require.NoError(t, err)
		require.Equal(t, util.NewDate(2020, 1, 1), start)
		require.Equal(t, util.NewDate(2021, 12, 31), end)

		require.Equal(t, "", cmp.Diff([]string{"AAPL", "MSFT", "GOOG", "SPY", "^VIX"}, cfg.Symbols()))
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := Parse([]byte(validYaml + "\nextra: true\n"))
		require.Error(t, err)
	})

	t.Run("empty document", func(t *testing.T) {
		_, err := Parse([]byte(""))
		requireConfigError(t, err, "run.start")
	})

	t.Run("json matches yaml", func(t *testing.T) {
		fromYaml, err := Parse([]byte(validYaml))
		require.NoError(t, err)
		body, err := json.Marshal(fromYaml)
		require.NoError(t, err)

		fromJson, err := ParseJSON(body)
		require.NoError(t, err)
		require.Equal(t, "", cmp.Diff(fromYaml, fromJson))
	})

	t.Run("json unknown field", func(t *testing.T) {
		_, err := ParseJSON([]byte(`{"run": {"start": "2020-01-01"}, "extra": 1}`))
		require.ErrorContains(t, err, "unknown field")
	})
}

func TestValidate(t *testing.T) {
	cases := map[string]struct {
		mutate func(c *Config)
		field  string
	}{
		"start after end": {
			mutate: func(c *Config) { c.Run.Start = "2022-01-01" },
			field:  "run",
		},
		"no cash": {
			mutate: func(c *Config) { c.Run.InitialCash = 0 },
			field:  "run.initial_cash",
		},
		"nothing enabled": {
			mutate: func(c *Config) {
				c.Rebalance.Enabled = false
				c.Signals.Enabled = false
			},
			field: "strategy",
		},
		"negative weight": {
			mutate: func(c *Config) { c.Factors.Items[0].Weight = -1 },
			field:  "factors.items[0].weight",
		},
		"unknown factor": {
			mutate: func(c *Config) { c.Factors.Items[0].Name = "magic" },
			field:  "factors.items[0].name",
		},
		"bad expression": {
			mutate: func(c *Config) { c.Factors.Items[2].Expression = "marketCap / (" },
			field:  "factors.items[2].expression",
		},
		"unknown missing policy": {
			mutate: func(c *Config) { c.Factors.MissingPolicy = "zero" },
			field:  "factors.missing_policy",
		},
		"both selections": {
			mutate: func(c *Config) { c.Rebalance.TopPercentile = 0.1 },
			field:  "rebalance",
		},
		"bad frequency": {
			mutate: func(c *Config) { c.Rebalance.Frequency = "fortnightly" },
			field:  "rebalance.frequency",
		},
		"quantile out of range": {
			mutate: func(c *Config) { c.Signals.Breach.Quantile = 1 },
			field:  "signals.breach.quantile",
		},
		"negative drift gap": {
			mutate: func(c *Config) { c.Signals.Drift.MinGap = -0.01 },
			field:  "signals.drift.min_gap",
		},
		"zero drift window": {
			mutate: func(c *Config) { c.Signals.Drift.VolumeWindow = 0 },
			field:  "signals.drift.volume_window",
		},
		"zero threshold": {
			mutate: func(c *Config) { c.Signals.Regime.Threshold = 0 },
			field:  "signals.regime.threshold",
		},
		"zero window": {
			mutate: func(c *Config) { c.Signals.Regime.Window = 0 },
			field:  "signals.regime.window",
		},
		"missing volatility index": {
			mutate: func(c *Config) { c.Universe.VolatilityIndex = "" },
			field:  "universe.volatility_index",
		},
		"kelly without edge": {
			mutate: func(c *Config) { c.Execution.Sizing.WinProbability = 0 },
			field:  "execution.sizing.win_probability",
		},
		"unknown timing": {
			mutate: func(c *Config) { c.Execution.Timing = "vwap" },
			field:  "execution.timing",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			cfg, err := Parse([]byte(validYaml))
			require.NoError(t, err)
			tc.mutate(cfg)
			requireConfigError(t, Validate(cfg), tc.field)
		})
	}
}

func TestHash(t *testing.T) {
	a, err := Parse([]byte(validYaml))
	require.NoError(t, err)
	b, err := Parse([]byte(validYaml))
	require.NoError(t, err)

	hashA, err := Hash(a)
	require.NoError(t, err)
	hashB, err := Hash(b)
	require.NoError(t, err)
	require.Equal(t, hashA, hashB)
	require.Len(t, hashA, 64)

	b.Rebalance.TopK = 3
	hashC, err := Hash(b)
	require.NoError(t, err)
	require.NotEqual(t, hashA, hashC)
}

func TestBuilders(t *testing.T) {
	cfg, err := Parse([]byte(validYaml))
	require.NoError(t, err)

	lib, err := cfg.Library()
	require.NoError(t, err)
	def, ok := lib.Definition("cheapness")
	require.True(t, ok)
	require.Equal(t, domain.Orientation_LowerIsBetter, def.Orientation)
	_, ok = lib.Definition(factor.EarningsYield)
	require.True(t, ok)

	require.Equal(t, factor.Policy_BestAvailable, cfg.FactorPolicy())
	require.Equal(t, rank.Options{MissingPolicy: rank.MissingPolicy_Exclude, MinSample: 3}, cfg.RankOptions())

	sigCfg, err := cfg.SignalConfig()
	require.NoError(t, err)
	require.Equal(t, 20.0, sigCfg.Regime.Threshold)
	require.Equal(t, 0.05, sigCfg.Breach.Quantile)
	require.Equal(t, signal.DriftConfig{Enabled: true, MinGap: 0.03, MinRelativeVolume: 1.5, VolumeWindow: 20}, sigCfg.Drift)
	require.Equal(t, "", cmp.Diff([]string{"Utilities"}, sigCfg.Filter.ExcludeSectors))
	require.Len(t, sigCfg.Filter.NegativeEvents["MSFT"], 1)
	require.Equal(t, util.NewDate(2020, 3, 2), sigCfg.Filter.NegativeEvents["MSFT"][0])

	opts := cfg.SimulatorOptions()
	require.Equal(t, backtest.SameDayClose{}, opts.Execution)
	require.Equal(t, backtest.Kelly{WinProbability: 0.55, RewardRisk: 1.5, Fraction: 0.5}, opts.Sizer)
	require.Equal(t, domain.PositionSide_Long, opts.RebalanceSide)
}
