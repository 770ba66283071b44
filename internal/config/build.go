package config

import (
	"fmt"
	"sort"
	"time"

	"factorlab/internal/backtest"
	"factorlab/internal/domain"
	"factorlab/internal/factor"
	"factorlab/internal/rank"
	"factorlab/internal/signal"
	"factorlab/internal/util"

	"github.com/shopspring/decimal"
)

// the builders below assume a config that passed Validate

func (c *Config) Dates() (time.Time, time.Time, error) {
	start, err := util.ParseDate(c.Run.Start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := util.ParseDate(c.Run.End)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func (c *Config) InitialCash() decimal.Decimal {
	return decimal.NewFromFloat(c.Run.InitialCash)
}

// Library returns the built-in factors plus the configured expression
// factors
func (c *Config) Library() (*factor.Library, error) {
	extra := []factor.Definition{}
	for _, item := range c.Factors.Items {
		if item.Expression == "" {
			continue
		}
		def, err := factor.NewExpressionDefinition(item.Name, item.Expression, domain.Orientation(item.Orientation))
		if err != nil {
			return nil, fmt.Errorf("failed to build factor %s: %w", item.Name, err)
		}
		extra = append(extra, def)
	}
	return factor.NewLibrary(extra...), nil
}

func (c *Config) FactorPolicy() factor.Policy {
	return factor.Policy(c.Factors.Policy)
}

func (c *Config) RankOptions() rank.Options {
	return rank.Options{
		MissingPolicy: rank.MissingPolicy(c.Factors.MissingPolicy),
		MinSample:     c.Factors.MinSample,
	}
}

func (c *Config) SignalConfig() (signal.Config, error) {
	events := map[string][]time.Time{}
	for symbol, dates := range c.Signals.Filters.NegativeEvents {
		for _, d := range dates {
			t, err := util.ParseDate(d)
			if err != nil {
				return signal.Config{}, fmt.Errorf("failed to parse negative event for %s: %w", symbol, err)
			}
			events[symbol] = append(events[symbol], t)
		}
	}
	sectors := append([]string{}, c.Signals.Filters.ExcludeSectors...)
	sort.Strings(sectors)

	s := c.Signals
	return signal.Config{
		Regime: signal.RegimeConfig{
			Threshold:  s.Regime.Threshold,
			Multiplier: s.Regime.Multiplier,
			Window:     s.Regime.Window,
		},
		Breach: signal.BreachConfig{
			Quantile:          s.Breach.Quantile,
			Lookback:          s.Breach.Lookback,
			Direction:         signal.BreachDirection(s.Breach.Direction),
			MinRelativeVolume: s.Breach.MinRelativeVolume,
			VolumeWindow:      s.Breach.VolumeWindow,
		},
		Drift: signal.DriftConfig{
			Enabled:           s.Drift.Enabled,
			MinGap:            s.Drift.MinGap,
			MinRelativeVolume: s.Drift.MinRelativeVolume,
			VolumeWindow:      s.Drift.VolumeWindow,
		},
		Filter: signal.FilterConfig{
			ExcludeSectors: sectors,
			MinMarketCap:   s.Filters.MinMarketCap,
			NegativeEvents: events,
		},
		Exit: signal.ExitConfig{
			BandWindow:        s.Exit.BandWindow,
			MaxHoldingPeriods: s.Exit.MaxHoldingPeriods,
		},
	}, nil
}

func (c *Config) SimulatorOptions() backtest.Options {
	var execution backtest.ExecutionPolicy = backtest.NextBarOpen{}
	if c.Execution.Timing == (backtest.SameDayClose{}).Name() {
		execution = backtest.SameDayClose{}
	}

	var sizer backtest.Sizer = backtest.EqualWeight{}
	if c.Execution.Sizing.Method == Sizing_Kelly {
		sizer = backtest.Kelly{
			WinProbability: c.Execution.Sizing.WinProbability,
			RewardRisk:     c.Execution.Sizing.RewardRisk,
			Fraction:       c.Execution.Sizing.Fraction,
		}
	}

	return backtest.Options{
		Execution:     execution,
		Sizer:         sizer,
		RebalanceSide: domain.PositionSide(c.Rebalance.Side),
		SignalSide:    domain.PositionSide(c.Signals.Side),
	}
}

// Symbols lists every series the run needs: the universe plus the
// benchmark and volatility index when configured. nil means the whole
// source universe
func (c *Config) Symbols() []string {
	if len(c.Universe.Symbols) == 0 {
		return nil
	}
	seen := map[string]bool{}
	out := []string{}
	for _, s := range append(append([]string{}, c.Universe.Symbols...), c.Universe.Benchmark, c.Universe.VolatilityIndex) {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
