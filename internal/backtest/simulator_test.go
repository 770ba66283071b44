package backtest

import (
	"context"
	"testing"
	"time"

	"factorlab/internal/data"
	"factorlab/internal/domain"
	"factorlab/internal/util"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var day0 = util.NewDate(2021, 3, 1)

func day(i int) time.Time {
	return day0.AddDate(0, 0, i)
}

// bars with open == close, one per consecutive day
func bars(symbol string, prices ...float64) []domain.PriceBar {
	out := []domain.PriceBar{}
	for i, p := range prices {
		out = append(out, domain.PriceBar{
			Symbol:   symbol,
			Date:     day(i),
			Open:     p,
			Close:    p,
			AdjClose: p,
			Volume:   100,
		})
	}
	return out
}

func newStore(t *testing.T, series ...[]domain.PriceBar) *data.Store {
	in := data.Input{Bars: map[string][]domain.PriceBar{}}
	for _, s := range series {
		in.Bars[s[0].Symbol] = s
		in.Securities = append(in.Securities, domain.Security{Symbol: s[0].Symbol})
	}
	store, err := data.NewStore(in)
	require.NoError(t, err)
	return store
}

type timeStop struct {
	periods int
}

func (r timeStop) CheckExit(pos domain.Position, date time.Time, held int) (domain.ExitReason, bool) {
	if held >= r.periods {
		return domain.ExitReason_TimeStop, true
	}
	return "", false
}

func requireFloat(t *testing.T, expected float64, actual decimal.Decimal) {
	t.Helper()
	require.InDelta(t, expected, actual.InexactFloat64(), 1e-6)
}

func TestSimulator_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("time stop exit", func(t *testing.T) {
		store := newStore(t, bars("AAPL", 100, 100, 100, 97, 97))
		sim := NewSimulator(Options{Execution: SameDayClose{}})

		out, err := sim.Run(ctx, Input{
			Calendar:    store.TradingDays(day(0), day(4)),
			Prices:      store,
			InitialCash: decimal.NewFromInt(1000),
			Entries:     map[time.Time][]string{day(0): {"AAPL"}},
			ExitRule:    timeStop{periods: 3},
		})
		require.NoError(t, err)

		require.Len(t, out.Positions, 1)
		pos := out.Positions[0]
		require.Equal(t, domain.PositionState_Closed, pos.State())
		require.Equal(t, day(0), pos.EntryDate)
		require.Equal(t, day(3), *pos.ExitDate)
		require.Equal(t, domain.ExitReason_TimeStop, pos.ExitReason)
		require.False(t, pos.ForcedClose)
		require.InDelta(t, -0.03, *pos.RealizedReturn(), 1e-9)

		require.Len(t, out.EquityCurve, 5)
		requireFloat(t, 1000, out.EquityCurve[0].Value)
		require.Equal(t, 1, out.EquityCurve[0].OpenPositions)
		requireFloat(t, 970, out.EquityCurve[3].Value)
		requireFloat(t, 970, out.EquityCurve[3].Cash)
		require.Equal(t, 0, out.EquityCurve[3].OpenPositions)
	})

	t.Run("rebalance rotates holdings at next open", func(t *testing.T) {
		store := newStore(t,
			bars("A", 10, 11, 12, 13, 14),
			bars("B", 20, 20, 20, 25, 30),
		)
		sim := NewSimulator(Options{Execution: NextBarOpen{}})

		out, err := sim.Run(ctx, Input{
			Calendar:    store.TradingDays(day(0), day(4)),
			Prices:      store,
			InitialCash: decimal.NewFromInt(1100),
			Rebalances: []RebalanceTarget{
				{Date: day(0), Symbols: []string{"A"}},
				{Date: day(2), Symbols: []string{"B"}},
			},
		})
		require.NoError(t, err)
		require.Len(t, out.Positions, 2)

		a := out.Positions[0]
		require.Equal(t, "A", a.Symbol)
		require.Equal(t, domain.PositionOrigin_Rebalance, a.Origin)
		require.Equal(t, day(1), a.EntryDate)
		requireFloat(t, 11, a.EntryPrice)
		requireFloat(t, 100, a.Quantity)
		require.Equal(t, day(3), *a.ExitDate)
		require.Equal(t, domain.ExitReason_Rebalance, a.ExitReason)

		b := out.Positions[1]
		require.Equal(t, "B", b.Symbol)
		require.Equal(t, day(3), b.EntryDate)
		requireFloat(t, 25, b.EntryPrice)
		require.Nil(t, b.ExitDate)

		// 100 shares of A bought at 11 and sold at 13. B was sized off the
		// 1200 equity at the decision close, leaving 100 in cash
		requireFloat(t, 48, b.Quantity)
		requireFloat(t, 1300, out.EquityCurve[3].Value)
		requireFloat(t, 100, out.EquityCurve[3].Cash)
		requireFloat(t, 100+48*30, out.EquityCurve[4].Value)

		for i := 1; i < len(out.EquityCurve); i++ {
			require.True(t, out.EquityCurve[i-1].Date.Before(out.EquityCurve[i].Date))
		}
	})

	t.Run("delisted security is force closed", func(t *testing.T) {
		store := newStore(t,
			bars("A", 10, 10, 10, 10, 10),
			bars("GONE", 50, 40, 30),
		)
		sim := NewSimulator(Options{Execution: SameDayClose{}})

		out, err := sim.Run(ctx, Input{
			Calendar:    store.TradingDays(day(0), day(4)),
			Prices:      store,
			InitialCash: decimal.NewFromInt(1000),
			Rebalances: []RebalanceTarget{
				{Date: day(0), Symbols: []string{"A", "GONE"}},
			},
		})
		require.NoError(t, err)
		require.Len(t, out.Positions, 2)

		gone := out.Positions[1]
		require.Equal(t, "GONE", gone.Symbol)
		require.True(t, gone.ForcedClose)
		require.Equal(t, domain.ExitReason_ForcedClose, gone.ExitReason)
		require.Equal(t, day(2), *gone.ExitDate)
		requireFloat(t, 30, *gone.ExitPrice)
		require.InDelta(t, -0.4, *gone.RealizedReturn(), 1e-9)

		require.Equal(t, domain.PositionState_Open, out.Positions[0].State())
		// 500 in A untouched, 500 in GONE lost 40%
		requireFloat(t, 800, out.EquityCurve[4].Value)
	})

	t.Run("series ending right after entry is force closed", func(t *testing.T) {
		store := newStore(t,
			bars("A", 10, 10, 10, 10, 10),
			bars("GONE", 50, 40),
		)
		sim := NewSimulator(Options{Execution: NextBarOpen{}})

		out, err := sim.Run(ctx, Input{
			Calendar:    store.TradingDays(day(0), day(4)),
			Prices:      store,
			InitialCash: decimal.NewFromInt(1000),
			Entries:     map[time.Time][]string{day(0): {"GONE"}},
			ExitRule:    timeStop{periods: 1},
		})
		require.NoError(t, err)
		require.Len(t, out.Positions, 1)
		require.True(t, out.Positions[0].ForcedClose)
		require.Equal(t, day(1), out.Positions[0].EntryDate)
		require.Equal(t, day(1), *out.Positions[0].ExitDate)
	})

	t.Run("exit decided on the last day stays open at next open", func(t *testing.T) {
		store := newStore(t, bars("AAPL", 100, 100, 100, 97))
		sim := NewSimulator(Options{Execution: NextBarOpen{}})

		out, err := sim.Run(ctx, Input{
			Calendar:    store.TradingDays(day(0), day(3)),
			Prices:      store,
			InitialCash: decimal.NewFromInt(1000),
			Entries:     map[time.Time][]string{day(0): {"AAPL"}},
			ExitRule:    timeStop{periods: 2},
		})
		require.NoError(t, err)
		require.Len(t, out.Positions, 1)

		pos := out.Positions[0]
		require.Equal(t, domain.PositionState_Open, pos.State())
		require.Nil(t, pos.ExitDate)
		require.False(t, pos.ForcedClose)
		require.Equal(t, domain.ExitReason(""), pos.ExitReason)
		requireFloat(t, 10, pos.Quantity)

		last := out.EquityCurve[len(out.EquityCurve)-1]
		require.Equal(t, day(3), last.Date)
		require.Equal(t, 1, last.OpenPositions)
		requireFloat(t, 970, last.Value)
	})

	t.Run("rebalance on the last day keeps holdings at next open", func(t *testing.T) {
		store := newStore(t,
			bars("A", 10, 10, 10, 10),
			bars("B", 20, 20, 20, 20),
		)
		sim := NewSimulator(Options{Execution: NextBarOpen{}})

		out, err := sim.Run(ctx, Input{
			Calendar:    store.TradingDays(day(0), day(3)),
			Prices:      store,
			InitialCash: decimal.NewFromInt(1000),
			Rebalances: []RebalanceTarget{
				{Date: day(0), Symbols: []string{"A"}},
				{Date: day(3), Symbols: []string{"B"}},
			},
		})
		require.NoError(t, err)
		require.Len(t, out.Positions, 1)

		a := out.Positions[0]
		require.Equal(t, "A", a.Symbol)
		require.Equal(t, domain.PositionState_Open, a.State())
		require.False(t, a.ForcedClose)
		// B has no bar after the run to fill against
		require.Equal(t, 1, out.Exclusions[domain.ExclusionReason_UnfilledOrder])

		last := out.EquityCurve[len(out.EquityCurve)-1]
		require.Equal(t, 1, last.OpenPositions)
		requireFloat(t, 1000, last.Value)
	})

	t.Run("exit decided on the series last day is force closed at next open", func(t *testing.T) {
		store := newStore(t,
			bars("A", 10, 10, 10, 10, 10),
			bars("GONE", 50, 40, 30),
		)
		sim := NewSimulator(Options{Execution: NextBarOpen{}})

		out, err := sim.Run(ctx, Input{
			Calendar:    store.TradingDays(day(0), day(4)),
			Prices:      store,
			InitialCash: decimal.NewFromInt(1000),
			Entries:     map[time.Time][]string{day(0): {"GONE"}},
			ExitRule:    timeStop{periods: 1},
		})
		require.NoError(t, err)
		require.Len(t, out.Positions, 1)

		gone := out.Positions[0]
		require.True(t, gone.ForcedClose)
		require.Equal(t, domain.ExitReason_ForcedClose, gone.ExitReason)
		require.Equal(t, day(2), *gone.ExitDate)
		requireFloat(t, 30, *gone.ExitPrice)
		requireFloat(t, 750, out.EquityCurve[4].Value)
	})

	t.Run("entry with no bar left is unfilled", func(t *testing.T) {
		store := newStore(t, bars("A", 10, 10, 10))
		sim := NewSimulator(Options{Execution: NextBarOpen{}})

		out, err := sim.Run(ctx, Input{
			Calendar:    store.TradingDays(day(0), day(2)),
			Prices:      store,
			InitialCash: decimal.NewFromInt(1000),
			Entries:     map[time.Time][]string{day(2): {"A"}},
		})
		require.NoError(t, err)
		require.Empty(t, out.Positions)
		require.Equal(t, 1, out.Exclusions[domain.ExclusionReason_UnfilledOrder])
	})

	t.Run("signal entry skipped while holding", func(t *testing.T) {
		store := newStore(t, bars("A", 10, 10, 10, 10))
		sim := NewSimulator(Options{Execution: SameDayClose{}})

		out, err := sim.Run(ctx, Input{
			Calendar:    store.TradingDays(day(0), day(3)),
			Prices:      store,
			InitialCash: decimal.NewFromInt(1000),
			Entries: map[time.Time][]string{
				day(0): {"A"},
				day(1): {"A"},
			},
		})
		require.NoError(t, err)
		require.Len(t, out.Positions, 1)
	})

	t.Run("short positions profit from falling prices", func(t *testing.T) {
		store := newStore(t, bars("A", 10, 8))
		sim := NewSimulator(Options{Execution: SameDayClose{}, RebalanceSide: domain.PositionSide_Short})

		out, err := sim.Run(ctx, Input{
			Calendar:    store.TradingDays(day(0), day(1)),
			Prices:      store,
			InitialCash: decimal.NewFromInt(1000),
			Rebalances:  []RebalanceTarget{{Date: day(0), Symbols: []string{"A"}}},
		})
		require.NoError(t, err)
		requireFloat(t, 1200, out.EquityCurve[1].Value)
	})

	t.Run("rerun is identical", func(t *testing.T) {
		store := newStore(t,
			bars("A", 10, 11, 12, 13, 14),
			bars("B", 20, 19, 20, 25, 30),
		)
		in := Input{
			Calendar:    store.TradingDays(day(0), day(4)),
			Prices:      store,
			InitialCash: decimal.NewFromInt(1000),
			Rebalances: []RebalanceTarget{
				{Date: day(0), Symbols: []string{"A", "B"}},
				{Date: day(2), Symbols: []string{"B"}},
			},
			Entries:  map[time.Time][]string{day(1): {"A"}},
			ExitRule: timeStop{periods: 2},
		}
		first, err := NewSimulator(Options{}).Run(ctx, in)
		require.NoError(t, err)
		second, err := NewSimulator(Options{}).Run(ctx, in)
		require.NoError(t, err)
		require.Equal(t, "", cmp.Diff(first, second))

		for _, p := range first.Positions {
			if p.ExitDate != nil {
				require.False(t, p.ExitDate.Before(p.EntryDate))
			}
		}
	})

	t.Run("rejects empty calendar", func(t *testing.T) {
		_, err := NewSimulator(Options{}).Run(ctx, Input{InitialCash: decimal.NewFromInt(1)})
		require.Error(t, err)
	})
}

func TestKelly(t *testing.T) {
	k := Kelly{WinProbability: 0.6, RewardRisk: 2}
	require.InDelta(t, 0.4, k.BetFraction(), 1e-9)

	k.Fraction = 0.5
	require.InDelta(t, 0.2, k.BetFraction(), 1e-9)
	requireFloat(t, 200, k.Allocation(SizingInput{Equity: decimal.NewFromInt(1000)}))

	losing := Kelly{WinProbability: 0.3, RewardRisk: 1}
	require.Equal(t, 0.0, losing.BetFraction())
}

type calendar []time.Time

func (c calendar) NextTradingDay(date time.Time) (time.Time, bool) {
	for _, d := range c {
		if !d.Before(date) {
			return d, true
		}
	}
	return time.Time{}, false
}

func weekdays(start, end time.Time) calendar {
	out := calendar{}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			out = append(out, d)
		}
	}
	return out
}

func TestRebalanceDates(t *testing.T) {
	cal := weekdays(util.NewDate(2021, 1, 1), util.NewDate(2021, 12, 31))

	t.Run("monthly rolls to next trading day", func(t *testing.T) {
		dates, err := RebalanceDates("monthly", util.NewDate(2021, 1, 2), util.NewDate(2021, 5, 31), cal)
		require.NoError(t, err)
		require.Equal(t, "", cmp.Diff([]time.Time{
			util.NewDate(2021, 1, 4),
			util.NewDate(2021, 2, 1),
			util.NewDate(2021, 3, 1),
			util.NewDate(2021, 4, 1),
			// may 1st is a saturday
			util.NewDate(2021, 5, 3),
		}, dates))
	})

	t.Run("quarterly", func(t *testing.T) {
		dates, err := RebalanceDates("quarterly", util.NewDate(2021, 1, 4), util.NewDate(2021, 12, 31), cal)
		require.NoError(t, err)
		require.Equal(t, "", cmp.Diff([]time.Time{
			util.NewDate(2021, 1, 4),
			util.NewDate(2021, 4, 1),
			util.NewDate(2021, 7, 1),
			util.NewDate(2021, 10, 1),
		}, dates))
	})

	t.Run("cron spec", func(t *testing.T) {
		dates, err := RebalanceDates("0 0 15 * *", util.NewDate(2021, 1, 15), util.NewDate(2021, 3, 31), cal)
		require.NoError(t, err)
		require.Equal(t, "", cmp.Diff([]time.Time{
			util.NewDate(2021, 1, 15),
			util.NewDate(2021, 2, 15),
			util.NewDate(2021, 3, 15),
		}, dates))
	})

	t.Run("invalid frequency", func(t *testing.T) {
		_, err := RebalanceDates("every now and then", util.NewDate(2021, 1, 4), util.NewDate(2021, 3, 31), cal)
		require.Error(t, err)
	})
}
