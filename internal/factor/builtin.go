package factor

import (
	"math"

	"factorlab/internal/domain"

	"github.com/montanaflynn/stats"
)

const (
	EarningsYield   = "earnings_yield"
	ReturnOnCapital = "return_on_capital"
	BuybackYield    = "buyback_yield"
	DividendYield   = "dividend_yield"
	PEG             = "peg"
	GrowthRate      = "growth_rate"
	ROE             = "roe"
	AltmanZ         = "altman_z"
	Momentum12_1    = "momentum_12_1"
	Volatility20d   = "volatility_20d"
)

const (
	tradingDaysPerYear  = 252
	tradingDaysPerMonth = 21
	volatilityWindow    = 20
)

func builtins() []Definition {
	higher := domain.Orientation_HigherIsBetter
	lower := domain.Orientation_LowerIsBetter
	return []Definition{
		{Name: EarningsYield, Orientation: higher, Strict: earningsYieldStrict, Proxy: earningsYieldProxy},
		{Name: ReturnOnCapital, Orientation: higher, Strict: returnOnCapitalStrict, Proxy: returnOnCapitalProxy},
		{Name: BuybackYield, Orientation: higher, Strict: buybackYieldStrict, Proxy: buybackYieldProxy},
		{Name: DividendYield, Orientation: higher, Strict: dividendYieldStrict, Proxy: dividendYieldProxy},
		{Name: PEG, Orientation: lower, Strict: pegStrict, Proxy: pegProxy},
		{Name: GrowthRate, Orientation: higher, Strict: growthRateStrict, Proxy: growthRateProxy},
		{Name: ROE, Orientation: higher, Strict: roeStrict, Proxy: roeProxy},
		{Name: AltmanZ, Orientation: higher, Strict: altmanZStrict, Proxy: altmanZProxy},
		{Name: Momentum12_1, Orientation: higher, Strict: momentum12_1},
		{Name: Volatility20d, Orientation: lower, Strict: volatility20d},
	}
}

// ebit / (market cap + debt - cash)
func earningsYieldStrict(obs Observation) (float64, error) {
	r := newFieldReader(obs)
	ebit := r.get(FieldEBIT)
	ev := r.marketCap() + r.get(FieldTotalDebt) - r.get(FieldCash)
	r.positive("enterprise value", ev)
	if r.err != nil {
		return 0, r.err
	}
	return ebit / ev, nil
}

// eps / price, or 1 / pe when only the ratio is reported
func earningsYieldProxy(obs Observation) (float64, error) {
	r := newFieldReader(obs)
	if r.has(FieldEPS) && obs.Price != nil {
		return r.get(FieldEPS) / r.price(), nil
	}
	pe := r.positive(FieldPERatio, r.get(FieldPERatio))
	if r.err != nil {
		return 0, r.err
	}
	return 1 / pe, nil
}

// ebit / (total assets - current liabilities)
func returnOnCapitalStrict(obs Observation) (float64, error) {
	r := newFieldReader(obs)
	ebit := r.get(FieldEBIT)
	capital := r.positive("capital employed", r.get(FieldTotalAssets)-r.get(FieldCurrentLiabilities))
	if r.err != nil {
		return 0, r.err
	}
	return ebit / capital, nil
}

// return on assets
func returnOnCapitalProxy(obs Observation) (float64, error) {
	r := newFieldReader(obs)
	netIncome := r.get(FieldNetIncome)
	assets := r.positive(FieldTotalAssets, r.get(FieldTotalAssets))
	if r.err != nil {
		return 0, r.err
	}
	return netIncome / assets, nil
}

// cash spent on repurchases over market cap. providers report the
// outflow as negative, so only the magnitude is used
func buybackYieldStrict(obs Observation) (float64, error) {
	r := newFieldReader(obs)
	repurchased := math.Abs(r.get(FieldRepurchaseOfStock))
	mcap := r.positive("market cap", r.marketCap())
	if r.err != nil {
		return 0, r.err
	}
	return repurchased / mcap, nil
}

// year-over-year reduction in share count
func buybackYieldProxy(obs Observation) (float64, error) {
	r := newFieldReader(obs)
	shares := r.get(FieldSharesOutstanding)
	prior := r.positive("year-ago shares", r.yearAgo(FieldSharesOutstanding))
	if r.err != nil {
		return 0, r.err
	}
	return (prior - shares) / prior, nil
}

func dividendYieldStrict(obs Observation) (float64, error) {
	r := newFieldReader(obs)
	paid := math.Abs(r.get(FieldDividendsPaid))
	mcap := r.positive("market cap", r.marketCap())
	if r.err != nil {
		return 0, r.err
	}
	return paid / mcap, nil
}

func dividendYieldProxy(obs Observation) (float64, error) {
	r := newFieldReader(obs)
	dps := r.get(FieldDividendPerShare)
	price := r.price()
	if r.err != nil {
		return 0, r.err
	}
	return dps / price, nil
}

// (price / eps) / (eps growth in percent)
func pegStrict(obs Observation) (float64, error) {
	r := newFieldReader(obs)
	eps := r.positive(FieldEPS, r.get(FieldEPS))
	growth := r.positive(FieldEPSGrowth, r.get(FieldEPSGrowth))
	price := r.price()
	if r.err != nil {
		return 0, r.err
	}
	return (price / eps) / (growth * 100), nil
}

func pegProxy(obs Observation) (float64, error) {
	r := newFieldReader(obs)
	peg := r.positive(FieldPEGRatio, r.get(FieldPEGRatio))
	if r.err != nil {
		return 0, r.err
	}
	return peg, nil
}

// revenue growth against the snapshot published a year earlier
func growthRateStrict(obs Observation) (float64, error) {
	r := newFieldReader(obs)
	revenue := r.get(FieldTotalRevenue)
	prior := r.positive("year-ago revenue", r.yearAgo(FieldTotalRevenue))
	if r.err != nil {
		return 0, r.err
	}
	return (revenue - prior) / prior, nil
}

func growthRateProxy(obs Observation) (float64, error) {
	r := newFieldReader(obs)
	g := r.get(FieldRevenueGrowth)
	if r.err != nil {
		return 0, r.err
	}
	return g, nil
}

func roeStrict(obs Observation) (float64, error) {
	r := newFieldReader(obs)
	netIncome := r.get(FieldNetIncome)
	equity := r.positive(FieldStockholdersEquity, r.get(FieldStockholdersEquity))
	if r.err != nil {
		return 0, r.err
	}
	return netIncome / equity, nil
}

// equity including minority interest
func roeProxy(obs Observation) (float64, error) {
	r := newFieldReader(obs)
	netIncome := r.get(FieldNetIncome)
	equity := r.positive(FieldTotalEquity, r.get(FieldTotalEquity))
	if r.err != nil {
		return 0, r.err
	}
	return netIncome / equity, nil
}

func altmanZStrict(obs Observation) (float64, error) {
	r := newFieldReader(obs)
	return altmanZ(r, r.marketCap())
}

// book equity stands in for market value of equity
func altmanZProxy(obs Observation) (float64, error) {
	r := newFieldReader(obs)
	return altmanZ(r, r.get(FieldStockholdersEquity))
}

// 1.2A + 1.4B + 3.3C + 0.6D + 1.0E
func altmanZ(r *fieldReader, equityValue float64) (float64, error) {
	assets := r.positive(FieldTotalAssets, r.get(FieldTotalAssets))
	liabilities := r.positive(FieldTotalLiabilities, r.get(FieldTotalLiabilities))
	workingCapital := r.get(FieldCurrentAssets) - r.get(FieldCurrentLiabilities)
	retained := r.get(FieldRetainedEarnings)
	ebit := r.get(FieldEBIT)
	revenue := r.get(FieldTotalRevenue)
	if r.err != nil {
		return 0, r.err
	}

	a := workingCapital / assets
	b := retained / assets
	c := ebit / assets
	d := equityValue / liabilities
	e := revenue / assets
	return 1.2*a + 1.4*b + 3.3*c + 0.6*d + 1.0*e, nil
}

// return from 12 months ago to 1 month ago, net of the benchmark when
// one is supplied
func momentum12_1(obs Observation) (float64, error) {
	m, err := skipMonthReturn(obs.Bars)
	if err != nil {
		return 0, err
	}
	if len(obs.Benchmark) > 0 {
		bm, err := skipMonthReturn(obs.Benchmark)
		if err != nil {
			return 0, err
		}
		m -= bm
	}
	return m, nil
}

func skipMonthReturn(bars []domain.PriceBar) (float64, error) {
	if len(bars) < tradingDaysPerYear+1 {
		return 0, missingDataError{What: "one year of price history"}
	}
	last := len(bars) - 1
	from := bars[last-tradingDaysPerYear].AdjClose
	to := bars[last-tradingDaysPerMonth].AdjClose
	return to/from - 1, nil
}

// annualized stdev of the last 20 daily returns
func volatility20d(obs Observation) (float64, error) {
	if len(obs.Bars) < volatilityWindow+1 {
		return 0, missingDataError{What: "20 days of price history"}
	}
	window := obs.Bars[len(obs.Bars)-volatilityWindow-1:]
	returns := make([]float64, 0, volatilityWindow)
	for i := 1; i < len(window); i++ {
		returns = append(returns, window[i].AdjClose/window[i-1].AdjClose-1)
	}
	stdev, err := stats.StandardDeviationSample(returns)
	if err != nil {
		return 0, missingDataError{What: "return sample"}
	}
	return stdev * math.Sqrt(tradingDaysPerYear), nil
}
