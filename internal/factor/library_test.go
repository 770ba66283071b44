package factor

import (
	"errors"
	"math"
	"testing"

	"factorlab/internal/domain"
	"factorlab/internal/util"

	"github.com/stretchr/testify/require"
)

func observation(fields map[string]float64, price *float64) Observation {
	return Observation{
		Symbol: "AAPL",
		Date:   util.NewDate(2021, 3, 1),
		Snapshot: &domain.FundamentalSnapshot{
			Symbol: "AAPL",
			AsOf:   util.NewDate(2021, 1, 1),
			Fields: fields,
		},
		Price: price,
	}
}

func TestLibrary_Evaluate(t *testing.T) {
	lib := NewLibrary()

	t.Run("strict earnings yield", func(t *testing.T) {
		obs := observation(map[string]float64{
			FieldEBIT:              100,
			FieldSharesOutstanding: 10,
			FieldTotalDebt:         300,
			FieldCash:              100,
		}, util.FloatPointer(80))

		v, err := lib.Evaluate(EarningsYield, obs, Policy_Strict)
		require.NoError(t, err)
		require.NotNil(t, v.Value)
		// ev = 800 + 300 - 100
		require.InDelta(t, 0.1, *v.Value, 1e-9)
		require.Equal(t, domain.FactorMode_Strict, v.Mode)
		require.False(t, v.Fallback)
	})

	t.Run("strict is unavailable without full field set", func(t *testing.T) {
		obs := observation(map[string]float64{
			FieldEPS: 5,
		}, util.FloatPointer(50))

		v, err := lib.Evaluate(EarningsYield, obs, Policy_Strict)
		require.NoError(t, err)
		require.Nil(t, v.Value)
		require.Equal(t, domain.FactorMode_Strict, v.Mode)
		require.Contains(t, v.Reason, "missing")
	})

	t.Run("proxy earnings yield", func(t *testing.T) {
		obs := observation(map[string]float64{
			FieldEPS: 5,
		}, util.FloatPointer(50))

		v, err := lib.Evaluate(EarningsYield, obs, Policy_Proxy)
		require.NoError(t, err)
		require.InDelta(t, 0.1, *v.Value, 1e-9)
		require.Equal(t, domain.FactorMode_Proxy, v.Mode)
		require.False(t, v.Fallback)
	})

	t.Run("proxy earnings yield from pe ratio", func(t *testing.T) {
		obs := observation(map[string]float64{
			FieldPERatio: 20,
		}, nil)

		v, err := lib.Evaluate(EarningsYield, obs, Policy_Proxy)
		require.NoError(t, err)
		require.InDelta(t, 0.05, *v.Value, 1e-9)
	})

	t.Run("best available flags fallback", func(t *testing.T) {
		obs := observation(map[string]float64{
			FieldEPS: 5,
		}, util.FloatPointer(50))

		v, err := lib.Evaluate(EarningsYield, obs, Policy_BestAvailable)
		require.NoError(t, err)
		require.InDelta(t, 0.1, *v.Value, 1e-9)
		require.Equal(t, domain.FactorMode_Proxy, v.Mode)
		require.True(t, v.Fallback)
	})

	t.Run("best available prefers strict", func(t *testing.T) {
		obs := observation(map[string]float64{
			FieldEBIT:               50,
			FieldTotalAssets:        600,
			FieldCurrentLiabilities: 100,
			FieldNetIncome:          10,
		}, nil)

		v, err := lib.Evaluate(ReturnOnCapital, obs, Policy_BestAvailable)
		require.NoError(t, err)
		require.InDelta(t, 0.1, *v.Value, 1e-9)
		require.Equal(t, domain.FactorMode_Strict, v.Mode)
		require.False(t, v.Fallback)
	})

	t.Run("non-positive enterprise value is unavailable", func(t *testing.T) {
		obs := observation(map[string]float64{
			FieldEBIT:              100,
			FieldSharesOutstanding: 1,
			FieldTotalDebt:         0,
			FieldCash:              500,
		}, util.FloatPointer(10))

		v, err := lib.Evaluate(EarningsYield, obs, Policy_Strict)
		require.NoError(t, err)
		require.Nil(t, v.Value)
		require.Equal(t, "non-positive enterprise value", v.Reason)
	})

	t.Run("missing snapshot is unavailable", func(t *testing.T) {
		obs := Observation{Symbol: "AAPL", Date: util.NewDate(2021, 1, 1)}
		v, err := lib.Evaluate(ROE, obs, Policy_Strict)
		require.NoError(t, err)
		require.Nil(t, v.Value)
	})

	t.Run("malformed snapshot is an error", func(t *testing.T) {
		obs := observation(nil, nil)
		_, err := lib.Evaluate(ROE, obs, Policy_Strict)
		require.Error(t, err)
		require.True(t, errors.As(err, &domain.MalformedInputError{}))
	})

	t.Run("look-ahead snapshot is an error", func(t *testing.T) {
		obs := observation(map[string]float64{}, nil)
		obs.Snapshot.AsOf = util.NewDate(2022, 1, 1)
		_, err := lib.Evaluate(ROE, obs, Policy_Strict)
		require.Error(t, err)
	})

	t.Run("unknown factor", func(t *testing.T) {
		_, err := lib.Evaluate("nope", observation(map[string]float64{}, nil), Policy_Strict)
		require.ErrorIs(t, err, domain.ErrUnknownFactor)
	})

	t.Run("factor without proxy uses strict under proxy policy", func(t *testing.T) {
		obs := observation(map[string]float64{}, nil)
		v, err := lib.Evaluate(Momentum12_1, obs, Policy_Proxy)
		require.NoError(t, err)
		require.Equal(t, domain.FactorMode_Strict, v.Mode)
		require.Nil(t, v.Value)
	})
}

func TestBuiltins(t *testing.T) {
	lib := NewLibrary()

	t.Run("buyback yield proxy uses year-ago shares", func(t *testing.T) {
		obs := observation(map[string]float64{FieldSharesOutstanding: 95}, nil)
		obs.YearAgo = &domain.FundamentalSnapshot{
			AsOf:   util.NewDate(2020, 1, 1),
			Fields: map[string]float64{FieldSharesOutstanding: 100},
		}
		v, err := lib.Evaluate(BuybackYield, obs, Policy_Proxy)
		require.NoError(t, err)
		require.InDelta(t, 0.05, *v.Value, 1e-9)
	})

	t.Run("peg", func(t *testing.T) {
		obs := observation(map[string]float64{FieldEPS: 2, FieldEPSGrowth: 0.1}, util.FloatPointer(40))
		v, err := lib.Evaluate(PEG, obs, Policy_Strict)
		require.NoError(t, err)
		// pe 20 / growth 10
		require.InDelta(t, 2.0, *v.Value, 1e-9)
	})

	t.Run("peg with negative growth is unavailable", func(t *testing.T) {
		obs := observation(map[string]float64{FieldEPS: 2, FieldEPSGrowth: -0.1}, util.FloatPointer(40))
		v, err := lib.Evaluate(PEG, obs, Policy_Strict)
		require.NoError(t, err)
		require.Nil(t, v.Value)
	})

	t.Run("altman z strict and proxy", func(t *testing.T) {
		fields := map[string]float64{
			FieldTotalAssets:        1000,
			FieldTotalLiabilities:   500,
			FieldCurrentAssets:      300,
			FieldCurrentLiabilities: 200,
			FieldRetainedEarnings:   100,
			FieldEBIT:               50,
			FieldTotalRevenue:       800,
			FieldSharesOutstanding:  10,
			FieldStockholdersEquity: 250,
		}
		obs := observation(fields, util.FloatPointer(100))

		v, err := lib.Evaluate(AltmanZ, obs, Policy_Strict)
		require.NoError(t, err)
		expected := 1.2*0.1 + 1.4*0.1 + 3.3*0.05 + 0.6*2 + 1.0*0.8
		require.InDelta(t, expected, *v.Value, 1e-9)

		v, err = lib.Evaluate(AltmanZ, obs, Policy_Proxy)
		require.NoError(t, err)
		expected = 1.2*0.1 + 1.4*0.1 + 3.3*0.05 + 0.6*0.5 + 1.0*0.8
		require.InDelta(t, expected, *v.Value, 1e-9)
	})

	t.Run("momentum needs a year of bars", func(t *testing.T) {
		bars := []domain.PriceBar{}
		for i := 0; i <= 252; i++ {
			price := 100.0
			if i >= 252-21 {
				price = 110
			}
			bars = append(bars, domain.PriceBar{AdjClose: price})
		}
		obs := Observation{Symbol: "AAPL", Date: util.NewDate(2021, 1, 1), Bars: bars}
		v, err := lib.Evaluate(Momentum12_1, obs, Policy_Strict)
		require.NoError(t, err)
		require.InDelta(t, 0.1, *v.Value, 1e-9)

		obs.Bars = bars[1:]
		v, err = lib.Evaluate(Momentum12_1, obs, Policy_Strict)
		require.NoError(t, err)
		require.Nil(t, v.Value)
	})

	t.Run("volatility of flat prices is zero", func(t *testing.T) {
		bars := []domain.PriceBar{}
		for i := 0; i < 21; i++ {
			bars = append(bars, domain.PriceBar{AdjClose: 10})
		}
		obs := Observation{Symbol: "AAPL", Date: util.NewDate(2021, 1, 1), Bars: bars}
		v, err := lib.Evaluate(Volatility20d, obs, Policy_Strict)
		require.NoError(t, err)
		require.Equal(t, 0.0, *v.Value)
	})

	t.Run("non-finite result is unavailable", func(t *testing.T) {
		obs := observation(map[string]float64{FieldDividendPerShare: math.MaxFloat64}, util.FloatPointer(1e-300))
		v, err := lib.Evaluate(DividendYield, obs, Policy_Proxy)
		require.NoError(t, err)
		require.Nil(t, v.Value)
		require.Equal(t, "non-finite result", v.Reason)
	})
}
