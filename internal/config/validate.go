package config

import (
	"fmt"
	"math"

	"factorlab/internal/backtest"
	"factorlab/internal/domain"
	"factorlab/internal/factor"
	"factorlab/internal/rank"
	"factorlab/internal/signal"
	"factorlab/internal/util"
)

func invalid(field, format string, args ...any) error {
	return domain.ConfigurationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func oneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return invalid(field, "must be one of %v, got %q", allowed, value)
}

// Validate fails on the first invalid field. it runs before anything is
// loaded or simulated
func Validate(cfg *Config) error {
	if err := validateRun(cfg.Run); err != nil {
		return err
	}
	if !cfg.Rebalance.Enabled && !cfg.Signals.Enabled {
		return invalid("strategy", "enable rebalance, signals or both")
	}
	if err := validateFactors(cfg.Factors, cfg.Rebalance.Enabled); err != nil {
		return err
	}
	if cfg.Rebalance.Enabled {
		if err := validateRebalance(cfg.Rebalance); err != nil {
			return err
		}
	}
	if cfg.Signals.Enabled {
		if cfg.Universe.VolatilityIndex == "" {
			return invalid("universe.volatility_index", "required when signals are enabled")
		}
		if err := validateSignals(cfg.Signals); err != nil {
			return err
		}
	}
	return validateExecution(cfg.Execution)
}

func validateRun(run RunConfig) error {
	start, err := util.ParseDate(run.Start)
	if err != nil {
		return invalid("run.start", "%v", err)
	}
	end, err := util.ParseDate(run.End)
	if err != nil {
		return invalid("run.end", "%v", err)
	}
	if !start.Before(end) {
		return invalid("run", "start must be before end")
	}
	if !(run.InitialCash > 0) || math.IsInf(run.InitialCash, 0) {
		return invalid("run.initial_cash", "must be > 0")
	}
	return nil
}

func validateFactors(f FactorsConfig, required bool) error {
	if err := oneOf("factors.policy", f.Policy,
		string(factor.Policy_Strict), string(factor.Policy_Proxy), string(factor.Policy_BestAvailable)); err != nil {
		return err
	}
	if err := oneOf("factors.missing_policy", f.MissingPolicy,
		string(rank.MissingPolicy_Exclude), string(rank.MissingPolicy_Penalize), string(rank.MissingPolicy_Partial)); err != nil {
		return err
	}
	if f.MinSample < 0 {
		return invalid("factors.min_sample", "must be >= 0")
	}
	if required && len(f.Items) == 0 {
		return invalid("factors.items", "at least one factor is required for rebalancing")
	}

	builtins := factor.NewLibrary()
	seen := map[string]bool{}
	for i, item := range f.Items {
		field := fmt.Sprintf("factors.items[%d]", i)
		if item.Name == "" {
			return invalid(field+".name", "required")
		}
		if seen[item.Name] {
			return invalid(field+".name", "duplicate factor %q", item.Name)
		}
		seen[item.Name] = true

		if !(item.Weight > 0) || math.IsInf(item.Weight, 0) {
			return invalid(field+".weight", "must be > 0")
		}
		if item.Expression == "" {
			if _, ok := builtins.Definition(item.Name); !ok {
				return invalid(field+".name", "unknown factor %q and no expression given", item.Name)
			}
			continue
		}
		if err := oneOf(field+".orientation", item.Orientation,
			string(domain.Orientation_HigherIsBetter), string(domain.Orientation_LowerIsBetter)); err != nil {
			return err
		}
		if _, err := factor.NewExpressionDefinition(item.Name, item.Expression, domain.Orientation(item.Orientation)); err != nil {
			return invalid(field+".expression", "%v", err)
		}
	}
	return nil
}

func validateRebalance(r RebalanceConfig) error {
	if _, err := backtest.ParseFrequency(r.Frequency); err != nil {
		return invalid("rebalance.frequency", "%v", err)
	}
	if (r.TopK > 0) == (r.TopPercentile > 0) {
		return invalid("rebalance", "set exactly one of top_k and top_percentile")
	}
	if r.TopK < 0 {
		return invalid("rebalance.top_k", "must be > 0")
	}
	if r.TopPercentile < 0 || r.TopPercentile > 1 {
		return invalid("rebalance.top_percentile", "must be in (0, 1]")
	}
	if err := oneOf("rebalance.select", r.Select, Select_Top, Select_Bottom); err != nil {
		return err
	}
	return oneOf("rebalance.side", r.Side, string(domain.PositionSide_Long), string(domain.PositionSide_Short))
}

func validateSignals(s SignalsConfig) error {
	if err := oneOf("signals.side", s.Side, string(domain.PositionSide_Long), string(domain.PositionSide_Short)); err != nil {
		return err
	}
	if !(s.Regime.Threshold > 0) {
		return invalid("signals.regime.threshold", "must be > 0")
	}
	if !(s.Regime.Multiplier > 0) {
		return invalid("signals.regime.multiplier", "must be > 0")
	}
	if s.Regime.Window <= 0 {
		return invalid("signals.regime.window", "must be > 0")
	}
	if !(s.Breach.Quantile > 0 && s.Breach.Quantile < 1) {
		return invalid("signals.breach.quantile", "must be in (0, 1)")
	}
	if s.Breach.Lookback <= 0 {
		return invalid("signals.breach.lookback", "must be > 0")
	}
	if s.Breach.Quantile*float64(s.Breach.Lookback) < 1 {
		return invalid("signals.breach.lookback", "too short to estimate the %v quantile", s.Breach.Quantile)
	}
	if err := oneOf("signals.breach.direction", s.Breach.Direction,
		string(signal.BreachDirection_Downside), string(signal.BreachDirection_Upside)); err != nil {
		return err
	}
	if s.Breach.MinRelativeVolume < 0 {
		return invalid("signals.breach.min_relative_volume", "must be >= 0")
	}
	if s.Breach.VolumeWindow <= 0 {
		return invalid("signals.breach.volume_window", "must be > 0")
	}
	if s.Drift.Enabled {
		if !(s.Drift.MinGap > 0) {
			return invalid("signals.drift.min_gap", "must be > 0")
		}
		if s.Drift.MinRelativeVolume < 0 {
			return invalid("signals.drift.min_relative_volume", "must be >= 0")
		}
		if s.Drift.VolumeWindow <= 0 {
			return invalid("signals.drift.volume_window", "must be > 0")
		}
	}
	if s.Filters.MinMarketCap < 0 {
		return invalid("signals.filters.min_market_cap", "must be >= 0")
	}
	for symbol, dates := range s.Filters.NegativeEvents {
		for _, d := range dates {
			if _, err := util.ParseDate(d); err != nil {
				return invalid("signals.filters.negative_events."+symbol, "%v", err)
			}
		}
	}
	if s.Exit.BandWindow < 0 {
		return invalid("signals.exit.band_window", "must be >= 0")
	}
	if s.Exit.MaxHoldingPeriods < 0 {
		return invalid("signals.exit.max_holding_periods", "must be >= 0")
	}
	return nil
}

func validateExecution(e ExecutionConfig) error {
	if err := oneOf("execution.timing", e.Timing, backtest.SameDayClose{}.Name(), backtest.NextBarOpen{}.Name()); err != nil {
		return err
	}
	if err := oneOf("execution.sizing.method", e.Sizing.Method, Sizing_EqualWeight, Sizing_Kelly); err != nil {
		return err
	}
	if e.Sizing.Method != Sizing_Kelly {
		return nil
	}
	if !(e.Sizing.WinProbability > 0 && e.Sizing.WinProbability < 1) {
		return invalid("execution.sizing.win_probability", "must be in (0, 1)")
	}
	if !(e.Sizing.RewardRisk > 0) {
		return invalid("execution.sizing.reward_risk", "must be > 0")
	}
	if e.Sizing.Fraction < 0 || e.Sizing.Fraction > 1 {
		return invalid("execution.sizing.fraction", "must be in [0, 1]")
	}
	return nil
}
