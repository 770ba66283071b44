package repository

import (
	"context"
	"fmt"
	"math"
	"time"

	"factorlab/internal/domain"
	"factorlab/internal/util"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"golang.org/x/time/rate"
)

//go:generate mockgen -source=yahoo_price.repository.go -destination=mocks/mock_yahoo_price.repository.go

type PriceFetcher interface {
	FetchPriceBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.PriceBar, error)
}

type yahooPriceRepositoryHandler struct {
	limiter *rate.Limiter
}

// NewYahooPriceRepository fetches daily bars from yahoo finance, at
// most requestsPerSecond chart requests per second
func NewYahooPriceRepository(requestsPerSecond float64) PriceFetcher {
	return yahooPriceRepositoryHandler{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

func (h yahooPriceRepositoryHandler) FetchPriceBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.PriceBar, error) {
	if err := h.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := &chart.Params{
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Symbol:   symbol,
		Interval: datetime.OneDay,
	}
	iter := chart.Get(params)

	out := []domain.PriceBar{}
	for iter.Next() {
		bar := iter.Bar()
		date := util.TruncateDay(time.Unix(int64(bar.Timestamp), 0).UTC())
		if len(out) > 0 && !out[len(out)-1].Date.Before(date) {
			// yahoo occasionally repeats the latest bar
			continue
		}
		out = append(out, domain.PriceBar{
			Symbol:   symbol,
			Date:     date,
			Open:     chartValue(bar.Open),
			Close:    chartValue(bar.Close),
			AdjClose: chartValue(bar.AdjClose),
			Volume:   int64(bar.Volume),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to get prices for %s: %w", symbol, err)
	}

	return out, nil
}

// chart bars hold decimals upstream and floats in the fork we build
// against. NaN fails store validation
func chartValue(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case interface{ InexactFloat64() float64 }:
		return x.InexactFloat64()
	}
	return math.NaN()
}
