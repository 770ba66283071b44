package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"factorlab/internal/data"
	"factorlab/internal/domain"
	"factorlab/internal/factor"
	"factorlab/internal/logger"
	"factorlab/internal/util"
)

// FactorValuesOnDay holds factor -> symbol -> value for one date
type FactorValuesOnDay map[string]map[string]domain.FactorValue

type ComputeFactorValuesInput struct {
	Store   *data.Store
	Dates   []time.Time
	Symbols []string
	Factors []string
	Policy  factor.Policy
	// optional series subtracted from momentum
	Benchmark string
}

type FactorScoreService interface {
	ComputeFactorValues(ctx context.Context, in ComputeFactorValuesInput) (map[time.Time]FactorValuesOnDay, error)
}

type factorScoreServiceHandler struct {
	Library *factor.Library
}

func NewFactorScoreService(library *factor.Library) FactorScoreService {
	return factorScoreServiceHandler{
		Library: library,
	}
}

type factorWorkInput struct {
	Symbol string
	Date   time.Time
}

type factorWorkResult struct {
	Symbol string
	Date   time.Time
	Values []domain.FactorValue
	Err    error
}

// ObservationAt assembles the point-in-time inputs of one security on
// one date. the price is the raw close so it lines up with shares
// outstanding
func ObservationAt(store *data.Store, symbol string, date time.Time, benchmark string) factor.Observation {
	obs := factor.Observation{
		Symbol: symbol,
		Date:   date,
		Bars:   store.BarsThrough(symbol, date),
	}
	if snapshot, ok := store.SnapshotAsOf(symbol, date); ok {
		obs.Snapshot = &snapshot
	}
	if yearAgo, ok := store.YearAgoSnapshot(symbol, date); ok {
		obs.YearAgo = &yearAgo
	}
	if bar, ok := store.LatestBar(symbol, date); ok {
		obs.Price = util.FloatPointer(bar.Close)
	}
	if benchmark != "" && benchmark != symbol {
		obs.Benchmark = store.BarsThrough(benchmark, date)
	}
	return obs
}

// ComputeFactorValues evaluates every requested factor for every
// (security, date) pair on a pool of workers. values are fully
// materialized before returning, so ranking never sees a partial date
func (h factorScoreServiceHandler) ComputeFactorValues(ctx context.Context, in ComputeFactorValuesInput) (map[time.Time]FactorValuesOnDay, error) {
	log := logger.FromContext(ctx)
	profile := domain.GetProfile(ctx)

	for _, name := range in.Factors {
		if _, ok := h.Library.Definition(name); !ok {
			return nil, fmt.Errorf("failed to compute factor values: %w: %s", domain.ErrUnknownFactor, name)
		}
	}

	inputs := []factorWorkInput{}
	for _, date := range in.Dates {
		for _, symbol := range in.Symbols {
			inputs = append(inputs, factorWorkInput{
				Symbol: symbol,
				Date:   date,
			})
		}
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("cannot compute factor values with 0 inputs")
	}
	log.Infof("computing %d factors for %d security-dates", len(in.Factors), len(inputs))

	_, endSpan := profile.StartNewSpan("evaluate factors")
	defer endSpan()

	inputCh := make(chan factorWorkInput, len(inputs))
	resultCh := make(chan factorWorkResult, len(inputs))
	numGoroutines := 10
	for _, f := range inputs {
		inputCh <- f
	}
	close(inputCh)

	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case input, ok := <-inputCh:
					if !ok {
						return
					}
					values, err := h.evaluate(in, input)
					if err != nil {
						err = fmt.Errorf("failed to compute factors for %s on %s: %w", input.Symbol, input.Date.Format(time.DateOnly), err)
					}
					resultCh <- factorWorkResult{
						Symbol: input.Symbol,
						Date:   input.Date,
						Values: values,
						Err:    err,
					}
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	out := map[time.Time]FactorValuesOnDay{}
	var firstErr error
	unavailable := 0
	for res := range resultCh {
		if res.Err != nil {
			if firstErr == nil {
				firstErr = res.Err
			}
			continue
		}
		day, ok := out[res.Date]
		if !ok {
			day = FactorValuesOnDay{}
			for _, name := range in.Factors {
				day[name] = map[string]domain.FactorValue{}
			}
			out[res.Date] = day
		}
		for _, v := range res.Values {
			day[v.Factor][res.Symbol] = v
			if !v.Available() {
				unavailable++
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if firstErr != nil {
		return nil, firstErr
	}

	log.Infof("computed factor values, %d unavailable", unavailable)
	return out, nil
}

func (h factorScoreServiceHandler) evaluate(in ComputeFactorValuesInput, input factorWorkInput) ([]domain.FactorValue, error) {
	obs := ObservationAt(in.Store, input.Symbol, input.Date, in.Benchmark)
	values := make([]domain.FactorValue, 0, len(in.Factors))
	for _, name := range in.Factors {
		v, err := h.Library.Evaluate(name, obs, in.Policy)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}
