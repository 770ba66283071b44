package service

import (
	"context"
	"fmt"
	"time"

	"factorlab/internal/domain"
	"factorlab/internal/logger"
	"factorlab/internal/repository"
)

type IngestPricesInput struct {
	Symbols []string
	Start   time.Time
	End     time.Time
	// recorded for symbols the sink has not seen yet
	Securities map[string]domain.Security
}

type IngestPricesResult struct {
	Added  map[string]int `json:"added"`
	Failed []string       `json:"failed"`
}

type IngestService interface {
	IngestPrices(ctx context.Context, in IngestPricesInput) (*IngestPricesResult, error)
}

type ingestServiceHandler struct {
	Fetcher repository.PriceFetcher
	Sink    repository.TimeSeriesSink
}

func NewIngestService(fetcher repository.PriceFetcher, sink repository.TimeSeriesSink) IngestService {
	return ingestServiceHandler{
		Fetcher: fetcher,
		Sink:    sink,
	}
}

// IngestPrices pulls daily bars symbol by symbol. a failed symbol does
// not stop the others; the call only fails when nothing could be added
func (h ingestServiceHandler) IngestPrices(ctx context.Context, in IngestPricesInput) (*IngestPricesResult, error) {
	log := logger.FromContext(ctx)
	if len(in.Symbols) == 0 {
		return nil, fmt.Errorf("no symbols to ingest")
	}

	securities := make([]domain.Security, 0, len(in.Symbols))
	for _, symbol := range in.Symbols {
		sec, ok := in.Securities[symbol]
		if !ok {
			sec = domain.Security{Symbol: symbol, Status: domain.ListingStatus_Listed}
		}
		securities = append(securities, sec)
	}
	if err := h.Sink.AddSecurities(ctx, securities); err != nil {
		return nil, fmt.Errorf("failed to add securities: %w", err)
	}

	result := &IngestPricesResult{
		Added:  map[string]int{},
		Failed: []string{},
	}
	errors := []error{}
	for _, symbol := range in.Symbols {
		bars, err := h.Fetcher.FetchPriceBars(ctx, symbol, in.Start, in.End)
		if err == nil {
			err = h.Sink.AddPriceBars(ctx, bars)
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			err = fmt.Errorf("failed to ingest prices for %s: %w", symbol, err)
			log.Warn(err)
			errors = append(errors, err)
			result.Failed = append(result.Failed, symbol)
			continue
		}
		result.Added[symbol] = len(bars)
		log.Infof("added %d bars for %s", len(bars), symbol)
	}

	if len(errors) == len(in.Symbols) {
		return nil, fmt.Errorf("failed to ingest %d/%d symbols. first err: %w", len(errors), len(in.Symbols), errors[0])
	}
	return result, nil
}
