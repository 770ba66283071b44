package signal

import (
	"time"

	"factorlab/internal/domain"

	"github.com/montanaflynn/stats"
)

type ExitConfig struct {
	// moving average window used as the band midpoint. 0 disables the
	// mean reversion exit
	BandWindow int
	// 0 disables the time-stop
	MaxHoldingPeriods int
}

type BarSource interface {
	BarsThrough(symbol string, date time.Time) []domain.PriceBar
}

// ExitEvaluator checks the exit conditions of signal-driven positions.
// checks run in a fixed order and the first one that fires wins: mean
// reversion, regime cleared, time-stop
type ExitEvaluator struct {
	bars   BarSource
	regime map[time.Time]domain.Signal
	cfg    ExitConfig
}

func NewExitEvaluator(bars BarSource, regime map[time.Time]domain.Signal, cfg ExitConfig) ExitEvaluator {
	return ExitEvaluator{
		bars:   bars,
		regime: regime,
		cfg:    cfg,
	}
}

func (e ExitEvaluator) CheckExit(pos domain.Position, date time.Time, heldPeriods int) (domain.ExitReason, bool) {
	if e.revertedToBand(pos, date) {
		return domain.ExitReason_MeanReversion, true
	}
	if sig, ok := e.regime[date]; ok && sig.State == domain.SignalState_False {
		return domain.ExitReason_RegimeCleared, true
	}
	if e.cfg.MaxHoldingPeriods > 0 && heldPeriods >= e.cfg.MaxHoldingPeriods {
		return domain.ExitReason_TimeStop, true
	}
	return "", false
}

func (e ExitEvaluator) revertedToBand(pos domain.Position, date time.Time) bool {
	if e.cfg.BandWindow <= 0 {
		return false
	}
	bars := e.bars.BarsThrough(pos.Symbol, date)
	if len(bars) < e.cfg.BandWindow || !bars[len(bars)-1].Date.Equal(date) {
		return false
	}
	closes := make([]float64, 0, e.cfg.BandWindow)
	for _, b := range bars[len(bars)-e.cfg.BandWindow:] {
		closes = append(closes, b.AdjClose)
	}
	mid, err := stats.Mean(closes)
	if err != nil {
		return false
	}
	last := bars[len(bars)-1].AdjClose
	if pos.Side == domain.PositionSide_Short {
		return last <= mid
	}
	return last >= mid
}
