package signal

import (
	"time"

	"factorlab/internal/domain"
)

// DriftConfig is the post-earnings drift scanner. a gap up on heavy
// volume that holds into the close is taken as an entry on its own,
// without waiting for regime stress
type DriftConfig struct {
	Enabled bool
	// open over the previous close, minus one
	MinGap            float64
	MinRelativeVolume float64
	VolumeWindow      int
}

// the close may give back at most this much of the open
const driftHoldRatio = 0.99

// EarningsDrift checks the gap between date's open and the previous
// close. bars must end on or before date
func (d *Detector) EarningsDrift(symbol string, bars []domain.PriceBar, date time.Time) (domain.Signal, domain.ExclusionReason) {
	out := domain.Signal{
		Symbol: symbol,
		Date:   date,
		Kind:   domain.SignalKind_EarningsDrift,
		State:  domain.SignalState_InsufficientData,
	}
	cfg := d.cfg.Drift

	if len(bars) == 0 || !bars[len(bars)-1].Date.Equal(date) {
		return out, domain.ExclusionReason_DataUnavailable
	}
	rvol, ok := relativeVolume(bars, cfg.VolumeWindow)
	if !ok {
		return out, domain.ExclusionReason_InsufficientSample
	}

	today := bars[len(bars)-1]
	prevClose := bars[len(bars)-2].AdjClose
	if prevClose <= 0 {
		return out, domain.ExclusionReason_DataUnavailable
	}
	open := today.AdjustedOpen()
	gap := open/prevClose - 1

	out.Strength = gap
	out.State = domain.SignalState_False
	if gap > cfg.MinGap && rvol > cfg.MinRelativeVolume && today.AdjClose > open*driftHoldRatio {
		out.State = domain.SignalState_True
	}
	return out, ""
}
