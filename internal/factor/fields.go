package factor

// snapshot field names as delivered by the fundamentals provider
const (
	FieldEBIT               = "ebit"
	FieldNetIncome          = "net_income"
	FieldTotalRevenue       = "total_revenue"
	FieldTotalDebt          = "total_debt"
	FieldCash               = "cash"
	FieldSharesOutstanding  = "shares_outstanding"
	FieldTotalAssets        = "total_assets"
	FieldCurrentAssets      = "current_assets"
	FieldCurrentLiabilities = "current_liabilities"
	FieldTotalLiabilities   = "total_liabilities"
	FieldRetainedEarnings   = "retained_earnings"
	FieldStockholdersEquity = "stockholders_equity"
	FieldTotalEquity        = "total_equity"
	FieldEPS                = "eps"
	FieldEPSGrowth          = "eps_growth"
	FieldPERatio            = "pe_ratio"
	FieldPEGRatio           = "peg_ratio"
	FieldRevenueGrowth      = "revenue_growth"
	FieldDividendsPaid      = "dividends_paid"
	FieldDividendPerShare   = "dividend_per_share"
	FieldRepurchaseOfStock  = "repurchase_of_stock"
)

// fieldReader reads snapshot fields and remembers the first one that
// was missing, so a formula can read everything it needs and check
// once at the end
type fieldReader struct {
	obs Observation
	err error
}

func newFieldReader(obs Observation) *fieldReader {
	r := &fieldReader{obs: obs}
	if obs.Snapshot == nil {
		r.err = missingDataError{What: "fundamental snapshot"}
	}
	return r
}

func (r *fieldReader) get(field string) float64 {
	if r.err != nil {
		return 0
	}
	v, ok := r.obs.Snapshot.Get(field)
	if !ok {
		r.err = missingDataError{What: field}
		return 0
	}
	return v
}

func (r *fieldReader) has(field string) bool {
	if r.obs.Snapshot == nil {
		return false
	}
	_, ok := r.obs.Snapshot.Get(field)
	return ok
}

func (r *fieldReader) yearAgo(field string) float64 {
	if r.err != nil {
		return 0
	}
	if r.obs.YearAgo == nil {
		r.err = missingDataError{What: "year-ago snapshot"}
		return 0
	}
	v, ok := r.obs.YearAgo.Get(field)
	if !ok {
		r.err = missingDataError{What: "year-ago " + field}
		return 0
	}
	return v
}

func (r *fieldReader) price() float64 {
	if r.err != nil {
		return 0
	}
	if r.obs.Price == nil {
		r.err = missingDataError{What: "price"}
		return 0
	}
	return *r.obs.Price
}

func (r *fieldReader) marketCap() float64 {
	return r.price() * r.get(FieldSharesOutstanding)
}

// positive fails the read when a denominator is not usable
func (r *fieldReader) positive(what string, v float64) float64 {
	if r.err == nil && v <= 0 {
		r.err = missingDataError{What: what, NonPositive: true}
	}
	return v
}

// MarketCap is price times shares outstanding, when both are known
func MarketCap(obs Observation) (float64, bool) {
	r := newFieldReader(obs)
	v := r.marketCap()
	if r.err != nil {
		return 0, false
	}
	return v, true
}
