package repository

import (
	"context"
	"time"

	"factorlab/internal/domain"
)

//go:generate mockgen -source=time_series.repository.go -destination=mocks/mock_time_series.repository.go

// TimeSeriesSource loads the raw inputs of a run. implementations only
// fetch; ordering and validation happen in data.NewStore
type TimeSeriesSource interface {
	// nil symbols lists every security the source knows about
	ListSecurities(ctx context.Context, symbols []string) ([]domain.Security, error)
	ListPriceBars(ctx context.Context, symbols []string, start, end time.Time) (map[string][]domain.PriceBar, error)
	// every snapshot published on or before end
	ListFundamentals(ctx context.Context, symbols []string, end time.Time) (map[string][]domain.FundamentalSnapshot, error)
}

// TimeSeriesSink persists ingested data
type TimeSeriesSink interface {
	AddSecurities(ctx context.Context, securities []domain.Security) error
	AddPriceBars(ctx context.Context, bars []domain.PriceBar) error
}

func symbolSet(symbols []string) map[string]bool {
	if symbols == nil {
		return nil
	}
	out := map[string]bool{}
	for _, s := range symbols {
		out[s] = true
	}
	return out
}
