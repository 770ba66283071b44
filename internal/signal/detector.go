package signal

import (
	"time"

	"factorlab/internal/domain"

	"github.com/montanaflynn/stats"
)

type BreachDirection string

const (
	BreachDirection_Downside BreachDirection = "downside"
	BreachDirection_Upside   BreachDirection = "upside"
)

type RegimeConfig struct {
	Threshold  float64
	Multiplier float64
	Window     int
}

type BreachConfig struct {
	// tail probability, e.g. 0.05 for the 5th percentile
	Quantile  float64
	Lookback  int
	Direction BreachDirection
	// optional relative volume confirmation. 0 disables it
	MinRelativeVolume float64
	VolumeWindow      int
}

type FilterConfig struct {
	ExcludeSectors []string
	MinMarketCap   float64
	// externally supplied idiosyncratic negative events by symbol
	NegativeEvents map[string][]time.Time
}

type Config struct {
	Regime RegimeConfig
	Breach BreachConfig
	Drift  DriftConfig
	Filter FilterConfig
	Exit   ExitConfig
}

type Detector struct {
	cfg             Config
	excludedSectors map[string]bool
	negativeEvents  map[string]map[time.Time]bool
}

func NewDetector(cfg Config) *Detector {
	if cfg.Breach.Direction == "" {
		cfg.Breach.Direction = BreachDirection_Downside
	}
	if cfg.Breach.VolumeWindow == 0 {
		cfg.Breach.VolumeWindow = 20
	}
	if cfg.Drift.VolumeWindow == 0 {
		cfg.Drift.VolumeWindow = 20
	}
	d := &Detector{
		cfg:             cfg,
		excludedSectors: map[string]bool{},
		negativeEvents:  map[string]map[time.Time]bool{},
	}
	for _, s := range cfg.Filter.ExcludeSectors {
		d.excludedSectors[s] = true
	}
	for symbol, dates := range cfg.Filter.NegativeEvents {
		d.negativeEvents[symbol] = map[time.Time]bool{}
		for _, date := range dates {
			d.negativeEvents[symbol][date] = true
		}
	}
	return d
}

func (d *Detector) Config() Config {
	return d.cfg
}

// RegimeStress fires when the level is above the absolute threshold, or
// above multiplier times its trailing average. the threshold alone is
// enough, so a short history only matters when it doesn't fire
func (d *Detector) RegimeStress(ctx MarketContext) domain.Signal {
	out := domain.Signal{
		Date:  ctx.Date,
		Kind:  domain.SignalKind_RegimeStress,
		State: domain.SignalState_InsufficientData,
	}
	if ctx.Level == nil {
		return out
	}
	level := *ctx.Level
	cfg := d.cfg.Regime

	if level > cfg.Threshold {
		out.State = domain.SignalState_True
		out.Strength = level / cfg.Threshold
		return out
	}
	if ctx.MovingAverage == nil {
		return out
	}
	ma := *ctx.MovingAverage
	out.Strength = level / ma
	if ma > 0 && level > cfg.Multiplier*ma {
		out.State = domain.SignalState_True
	} else {
		out.State = domain.SignalState_False
	}
	return out
}

// IdiosyncraticBreach compares today's return with the tail of the
// trailing return distribution. bars must end on or before date. the
// exclusion reason is set whenever the state is insufficient data
func (d *Detector) IdiosyncraticBreach(symbol string, bars []domain.PriceBar, date time.Time) (domain.Signal, domain.ExclusionReason) {
	out := domain.Signal{
		Symbol: symbol,
		Date:   date,
		Kind:   domain.SignalKind_IdiosyncraticBreach,
		State:  domain.SignalState_InsufficientData,
	}
	cfg := d.cfg.Breach

	if len(bars) == 0 || !bars[len(bars)-1].Date.Equal(date) {
		return out, domain.ExclusionReason_DataUnavailable
	}
	if len(bars) < cfg.Lookback+2 {
		return out, domain.ExclusionReason_InsufficientSample
	}

	window := bars[len(bars)-cfg.Lookback-2:]
	history := make([]float64, 0, cfg.Lookback)
	for i := 1; i < len(window)-1; i++ {
		history = append(history, window[i].AdjClose/window[i-1].AdjClose-1)
	}
	last := window[len(window)-1]
	today := last.AdjClose/window[len(window)-2].AdjClose - 1

	percent := cfg.Quantile * 100
	if cfg.Direction == BreachDirection_Upside {
		percent = 100 - percent
	}
	threshold, err := stats.Percentile(history, percent)
	if err != nil {
		return out, domain.ExclusionReason_InsufficientSample
	}

	breached := today < threshold
	out.Strength = threshold - today
	if cfg.Direction == BreachDirection_Upside {
		breached = today > threshold
		out.Strength = today - threshold
	}

	if breached && cfg.MinRelativeVolume > 0 {
		rvol, ok := relativeVolume(bars, cfg.VolumeWindow)
		if !ok {
			return out, domain.ExclusionReason_InsufficientSample
		}
		breached = rvol >= cfg.MinRelativeVolume
	}

	out.State = domain.SignalState_False
	if breached {
		out.State = domain.SignalState_True
	}
	return out, ""
}

// today's volume over the mean of the preceding window
func relativeVolume(bars []domain.PriceBar, window int) (float64, bool) {
	if len(bars) < window+1 {
		return 0, false
	}
	volumes := make([]float64, 0, window)
	for _, b := range bars[len(bars)-window-1 : len(bars)-1] {
		volumes = append(volumes, float64(b.Volume))
	}
	mean, err := stats.Mean(volumes)
	if err != nil || mean <= 0 {
		return 0, false
	}
	return float64(bars[len(bars)-1].Volume) / mean, true
}

// Filter applies the quality/exclusion rules. marketCap may be nil when
// it could not be computed
func (d *Detector) Filter(sec domain.Security, marketCap *float64, date time.Time) (bool, domain.ExclusionReason) {
	if d.excludedSectors[sec.Sector] {
		return false, domain.ExclusionReason_FilteredSector
	}
	if d.cfg.Filter.MinMarketCap > 0 {
		if marketCap == nil {
			return false, domain.ExclusionReason_DataUnavailable
		}
		if *marketCap < d.cfg.Filter.MinMarketCap {
			return false, domain.ExclusionReason_FilteredMarketCap
		}
	}
	if d.negativeEvents[sec.Symbol][date] {
		return false, domain.ExclusionReason_NegativeEvent
	}
	return true, ""
}

type EntryDecision struct {
	Enter bool
	// set when the security was not considered at all
	Excluded domain.ExclusionReason
}

// Entry combines regime, breach and filter. an insufficient regime
// blocks every entry that date without counting as an exclusion
func (d *Detector) Entry(regime, breach domain.Signal, breachReason domain.ExclusionReason, passed bool, filterReason domain.ExclusionReason) EntryDecision {
	if !passed {
		return EntryDecision{Excluded: filterReason}
	}
	if breach.Insufficient() {
		return EntryDecision{Excluded: breachReason}
	}
	return EntryDecision{
		Enter: regime.IsTrue() && breach.IsTrue(),
	}
}
