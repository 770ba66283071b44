package backtest

import (
	"time"

	"factorlab/internal/domain"

	"github.com/shopspring/decimal"
)

type PriceSource interface {
	BarOn(symbol string, date time.Time) (domain.PriceBar, bool)
	NextBar(symbol string, date time.Time) (domain.PriceBar, bool)
	LatestBar(symbol string, date time.Time) (domain.PriceBar, bool)
	LastBar(symbol string) (domain.PriceBar, bool)
}

type Fill struct {
	Date  time.Time
	Price decimal.Decimal
}

// ExecutionPolicy decides when and at what price a decision made at the
// close of decisionDate executes. entries and exits share one policy
type ExecutionPolicy interface {
	Name() string
	Fill(prices PriceSource, symbol string, decisionDate time.Time) (Fill, bool)
}

// SameDayClose fills at the adjusted close of the decision bar. when the
// security has no bar that day the order waits for its next close
type SameDayClose struct{}

func (SameDayClose) Name() string {
	return "same_close"
}

func (SameDayClose) Fill(prices PriceSource, symbol string, decisionDate time.Time) (Fill, bool) {
	bar, ok := prices.BarOn(symbol, decisionDate)
	if !ok {
		bar, ok = prices.NextBar(symbol, decisionDate)
		if !ok {
			return Fill{}, false
		}
	}
	return Fill{
		Date:  bar.Date,
		Price: decimal.NewFromFloat(bar.AdjClose),
	}, true
}

// NextBarOpen fills at the open of the security's next bar, on the same
// adjusted basis as the closes used for marking
type NextBarOpen struct{}

func (NextBarOpen) Name() string {
	return "next_open"
}

func (NextBarOpen) Fill(prices PriceSource, symbol string, decisionDate time.Time) (Fill, bool) {
	bar, ok := prices.NextBar(symbol, decisionDate)
	if !ok {
		return Fill{}, false
	}
	return Fill{
		Date:  bar.Date,
		Price: decimal.NewFromFloat(bar.AdjustedOpen()),
	}, true
}

type SizingInput struct {
	Equity decimal.Decimal
	Cash   decimal.Decimal
	// positions that will be open once the pending decisions fill,
	// including the one being sized
	Concurrent int
}

// Sizer returns the amount of capital to commit to one new position.
// the simulator caps it at available cash for longs
type Sizer interface {
	Name() string
	Allocation(in SizingInput) decimal.Decimal
}

type EqualWeight struct{}

func (EqualWeight) Name() string {
	return "equal_weight"
}

func (EqualWeight) Allocation(in SizingInput) decimal.Decimal {
	if in.Concurrent <= 0 {
		return decimal.Zero
	}
	return in.Equity.Div(decimal.NewFromInt(int64(in.Concurrent)))
}

// Kelly sizes each position at a fraction of equity from a supplied win
// probability and reward/risk ratio: f = W - (1-W)/R
type Kelly struct {
	WinProbability float64
	RewardRisk     float64
	// multiplier on the full kelly bet, e.g. 0.5 for half kelly
	Fraction float64
}

func (Kelly) Name() string {
	return "kelly"
}

func (k Kelly) BetFraction() float64 {
	if k.RewardRisk <= 0 {
		return 0
	}
	f := k.WinProbability - (1-k.WinProbability)/k.RewardRisk
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	fraction := k.Fraction
	if fraction == 0 {
		fraction = 1
	}
	return f * fraction
}

func (k Kelly) Allocation(in SizingInput) decimal.Decimal {
	return in.Equity.Mul(decimal.NewFromFloat(k.BetFraction()))
}
