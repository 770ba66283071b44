package signal

import (
	"time"

	"factorlab/internal/domain"

	"github.com/montanaflynn/stats"
)

// MarketContext is the market-wide state for a single date. it is built
// once per date and handed to every check that needs it
type MarketContext struct {
	Date  time.Time
	Level *float64
	// mean of the window observations strictly before Date
	MovingAverage *float64
}

// NewMarketContext reads the volatility index level on date and its
// trailing average. a missing bar on date leaves Level nil
func NewMarketContext(series []domain.PriceBar, date time.Time, window int) MarketContext {
	ctx := MarketContext{Date: date}

	end := len(series)
	for end > 0 && series[end-1].Date.After(date) {
		end--
	}
	history := series[:end]
	if end > 0 && series[end-1].Date.Equal(date) {
		level := series[end-1].AdjClose
		ctx.Level = &level
		history = series[:end-1]
	}

	if window > 0 && len(history) >= window {
		closes := make([]float64, 0, window)
		for _, b := range history[len(history)-window:] {
			closes = append(closes, b.AdjClose)
		}
		if ma, err := stats.Mean(closes); err == nil {
			ctx.MovingAverage = &ma
		}
	}

	return ctx
}
