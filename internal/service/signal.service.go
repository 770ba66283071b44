package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"factorlab/internal/data"
	"factorlab/internal/domain"
	"factorlab/internal/factor"
	"factorlab/internal/logger"
	"factorlab/internal/signal"
)

type ScanSignalsInput struct {
	Store *data.Store
	// trading days to scan, ascending
	Dates           []time.Time
	Symbols         []string
	VolatilityIndex string
}

type ScanSignalsResult struct {
	Regime map[time.Time]domain.Signal
	// symbols cleared for a signal entry, keyed by decision date
	Entries  map[time.Time][]string
	Breaches int
	// post-earnings gaps that opened an entry
	Drifts     int
	Exclusions domain.ExclusionCounts
}

type SignalService interface {
	Scan(ctx context.Context, in ScanSignalsInput) (*ScanSignalsResult, error)
}

type signalServiceHandler struct {
	Detector *signal.Detector
}

func NewSignalService(detector *signal.Detector) SignalService {
	return signalServiceHandler{
		Detector: detector,
	}
}

type signalWorkResult struct {
	Symbol     string
	Entries    []time.Time
	Breaches   int
	Drifts     int
	Exclusions domain.ExclusionCounts
}

// Scan builds the market context once per date, then checks every
// security's breach and filter state on a pool of workers
func (h signalServiceHandler) Scan(ctx context.Context, in ScanSignalsInput) (*ScanSignalsResult, error) {
	log := logger.FromContext(ctx)
	profile := domain.GetProfile(ctx)

	if len(in.Dates) == 0 {
		return nil, fmt.Errorf("cannot scan signals with 0 dates")
	}

	_, endSpan := profile.StartNewSpan("regime signals")
	series := in.Store.Bars(in.VolatilityIndex)
	regime := map[time.Time]domain.Signal{}
	insufficientRegime := 0
	for _, date := range in.Dates {
		mc := signal.NewMarketContext(series, date, h.Detector.Config().Regime.Window)
		regime[date] = h.Detector.RegimeStress(mc)
		if regime[date].Insufficient() {
			insufficientRegime++
		}
	}
	endSpan()
	if insufficientRegime > 0 {
		log.Warnf("regime signal had insufficient data on %d of %d days", insufficientRegime, len(in.Dates))
	}

	_, endSpan = profile.StartNewSpan("breach signals")
	defer endSpan()

	inputCh := make(chan string, len(in.Symbols))
	resultCh := make(chan signalWorkResult, len(in.Symbols))
	numGoroutines := 10
	for _, symbol := range in.Symbols {
		inputCh <- symbol
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
				case symbol, ok := <-inputCh:
					if !ok {
						return
					}
					resultCh <- h.scanSymbol(in, regime, symbol)
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	out := &ScanSignalsResult{
		Regime:     regime,
		Entries:    map[time.Time][]string{},
		Exclusions: domain.ExclusionCounts{},
	}
	for res := range resultCh {
		for _, date := range res.Entries {
			out.Entries[date] = append(out.Entries[date], res.Symbol)
		}
		out.Breaches += res.Breaches
		out.Drifts += res.Drifts
		out.Exclusions.Merge(res.Exclusions)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for date := range out.Entries {
		sort.Strings(out.Entries[date])
	}

	log.Infof("found %d breaches, %d earnings drifts and %d entry dates across %d securities", out.Breaches, out.Drifts, len(out.Entries), len(in.Symbols))
	return out, nil
}

func (h signalServiceHandler) scanSymbol(in ScanSignalsInput, regime map[time.Time]domain.Signal, symbol string) signalWorkResult {
	res := signalWorkResult{
		Symbol:     symbol,
		Exclusions: domain.ExclusionCounts{},
	}
	sec, ok := in.Store.Security(symbol)
	if !ok {
		sec = domain.Security{Symbol: symbol}
	}

	drift := h.Detector.Config().Drift.Enabled
	for _, date := range in.Dates {
		bars := in.Store.BarsThrough(symbol, date)
		breach, breachReason := h.Detector.IdiosyncraticBreach(symbol, bars, date)
		if breach.IsTrue() {
			res.Breaches++
		}

		var marketCap *float64
		if mcap, ok := factor.MarketCap(ObservationAt(in.Store, symbol, date, "")); ok {
			marketCap = &mcap
		}
		passed, filterReason := h.Detector.Filter(sec, marketCap, date)

		decision := h.Detector.Entry(regime[date], breach, breachReason, passed, filterReason)
		if drift && passed && !decision.Enter {
			// a confirmed gap enters regardless of regime
			if gap, _ := h.Detector.EarningsDrift(symbol, bars, date); gap.IsTrue() {
				res.Drifts++
				decision = signal.EntryDecision{Enter: true}
			}
		}
		if decision.Excluded != "" {
			res.Exclusions.Add(decision.Excluded, 1)
		}
		if decision.Enter {
			res.Entries = append(res.Entries, date)
		}
	}
	return res
}
