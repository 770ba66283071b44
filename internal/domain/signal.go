package domain

import (
	"time"
)

type SignalKind string

const (
	SignalKind_RegimeStress        SignalKind = "regime_stress"
	SignalKind_IdiosyncraticBreach SignalKind = "idiosyncratic_breach"
	SignalKind_EarningsDrift       SignalKind = "earnings_drift"
)

type SignalState string

const (
	SignalState_True             SignalState = "true"
	SignalState_False            SignalState = "false"
	SignalState_InsufficientData SignalState = "insufficient_data"
)

type Signal struct {
	// empty for market-wide signals
	Symbol   string      `json:"symbol,omitempty"`
	Date     time.Time   `json:"date"`
	Kind     SignalKind  `json:"kind"`
	State    SignalState `json:"state"`
	Strength float64     `json:"strength"`
}

func (s Signal) IsTrue() bool {
	return s.State == SignalState_True
}

func (s Signal) Insufficient() bool {
	return s.State == SignalState_InsufficientData
}
