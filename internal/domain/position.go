package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PositionSide string

const (
	PositionSide_Long  PositionSide = "long"
	PositionSide_Short PositionSide = "short"
)

// Sign is +1 for longs and -1 for shorts
func (s PositionSide) Sign() decimal.Decimal {
	if s == PositionSide_Short {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

type PositionOrigin string

const (
	PositionOrigin_Rebalance PositionOrigin = "rebalance"
	PositionOrigin_Signal    PositionOrigin = "signal"
)

type ExitReason string

const (
	ExitReason_Rebalance     ExitReason = "rebalance"
	ExitReason_MeanReversion ExitReason = "mean_reversion"
	ExitReason_RegimeCleared ExitReason = "regime_cleared"
	ExitReason_TimeStop      ExitReason = "time_stop"
	ExitReason_ForcedClose   ExitReason = "forced_close"
)

type PositionState string

const (
	PositionState_Flat   PositionState = "flat"
	PositionState_Open   PositionState = "open"
	PositionState_Closed PositionState = "closed"
)

type Position struct {
	ID         uuid.UUID       `json:"id"`
	Symbol     string          `json:"symbol"`
	Side       PositionSide    `json:"side"`
	Origin     PositionOrigin  `json:"origin"`
	EntryDate  time.Time       `json:"entryDate"`
	EntryPrice decimal.Decimal `json:"entryPrice"`
	Quantity   decimal.Decimal `json:"quantity"`

	ExitDate    *time.Time       `json:"exitDate"`
	ExitPrice   *decimal.Decimal `json:"exitPrice"`
	ExitReason  ExitReason       `json:"exitReason,omitempty"`
	ForcedClose bool             `json:"forcedClose"`
}

func (p Position) State() PositionState {
	if p.ExitDate != nil {
		return PositionState_Closed
	}
	return PositionState_Open
}

// MarketValue is the signed contribution of the position to portfolio
// equity at the given price
func (p Position) MarketValue(price decimal.Decimal) decimal.Decimal {
	return p.Side.Sign().Mul(p.Quantity).Mul(price)
}

// RealizedReturn is nil until the position is closed
func (p Position) RealizedReturn() *float64 {
	if p.ExitPrice == nil || p.EntryPrice.IsZero() {
		return nil
	}
	ret := p.ExitPrice.Sub(p.EntryPrice).Div(p.EntryPrice).Mul(p.Side.Sign()).InexactFloat64()
	return &ret
}

type EquityCurvePoint struct {
	Date          time.Time       `json:"date"`
	Value         decimal.Decimal `json:"value"`
	Cash          decimal.Decimal `json:"cash"`
	OpenPositions int             `json:"openPositions"`
}
