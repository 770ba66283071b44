package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"factorlab/internal/backtest"
	"factorlab/internal/calculator"
	"factorlab/internal/config"
	"factorlab/internal/data"
	"factorlab/internal/domain"
	"factorlab/internal/factor"
	"factorlab/internal/logger"
	"factorlab/internal/rank"
	"factorlab/internal/repository"
	"factorlab/internal/service"
	"factorlab/internal/signal"

	"github.com/google/uuid"
)

// bars before the run start that are loaded so trailing windows (12-1
// momentum, regime average, breach lookback) are full on day one
const warmupYears = 2

type RankingOnDay struct {
	rank.Result
	Targets []string `json:"targets"`
	// movement since the previous rebalance
	Changes map[string]int `json:"changes"`
}

type BacktestResult struct {
	RunID       uuid.UUID                 `json:"runId"`
	ConfigHash  string                    `json:"configHash"`
	EquityCurve []domain.EquityCurvePoint `json:"equityCurve"`
	Positions   []domain.Position         `json:"positions"`
	Summary     *calculator.Summary       `json:"summary"`
	Rankings    []RankingOnDay            `json:"rankings"`
	Profile     *domain.Profile           `json:"profile,omitempty"`
}

type RankResult struct {
	rank.Result
	ConfigHash string `json:"configHash"`
}

type BacktestApp interface {
	Backtest(ctx context.Context, cfg *config.Config) (*BacktestResult, error)
	Rank(ctx context.Context, cfg *config.Config, date time.Time) (*RankResult, error)
	Optimize(ctx context.Context, base *config.Config, grid config.Grid) ([]OptimizeResult, error)
}

type backtestAppHandler struct {
	Source repository.TimeSeriesSource
}

func NewBacktestApp(source repository.TimeSeriesSource) BacktestApp {
	return backtestAppHandler{
		Source: source,
	}
}

// RunID is derived from the config hash so the same config always
// produces the same id
func RunID(configHash string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("factorlab/"+configHash))
}

// Backtest loads the run's data, ranks the universe on every rebalance
// date, scans for signal entries and replays both through the
// simulator. cfg must have passed config.Validate
func (h backtestAppHandler) Backtest(ctx context.Context, cfg *config.Config) (*BacktestResult, error) {
	log := logger.FromContext(ctx)
	profile, endProfile := domain.NewProfile()
	ctx = domain.WithProfile(ctx, profile)

	hash, err := config.Hash(cfg)
	if err != nil {
		return nil, err
	}
	runID := RunID(hash)
	log = log.With("runId", runID.String())
	ctx = logger.WithContext(ctx, log)

	start, end, err := cfg.Dates()
	if err != nil {
		return nil, fmt.Errorf("failed to read run dates: %w", err)
	}

	store, err := h.loadStore(ctx, cfg, start.AddDate(-warmupYears, 0, 0), end)
	if err != nil {
		return nil, err
	}
	calendar := store.TradingDays(start, end)
	if len(calendar) == 0 {
		return nil, fmt.Errorf("no trading days between %s and %s", start.Format(time.DateOnly), end.Format(time.DateOnly))
	}
	universe := rankUniverse(cfg, store)
	log.Infof("running backtest over %d trading days and %d securities", len(calendar), len(universe))

	in := backtest.Input{
		Calendar:    calendar,
		Prices:      store,
		InitialCash: cfg.InitialCash(),
	}
	exclusions := domain.ExclusionCounts{}

	rankings := []RankingOnDay{}
	if cfg.Rebalance.Enabled {
		dates, err := backtest.RebalanceDates(cfg.Rebalance.Frequency, start, end, store)
		if err != nil {
			return nil, fmt.Errorf("failed to compute rebalance dates: %w", err)
		}
		rankings, err = h.rankDates(ctx, cfg, store, universe, dates)
		if err != nil {
			return nil, err
		}
		for _, r := range rankings {
			in.Rebalances = append(in.Rebalances, backtest.RebalanceTarget{
				Date:    r.Date,
				Symbols: r.Targets,
			})
			exclusions.Merge(r.Exclusions)
		}
	}

	if cfg.Signals.Enabled {
		signalCfg, err := cfg.SignalConfig()
		if err != nil {
			return nil, err
		}
		scan, err := service.NewSignalService(signal.NewDetector(signalCfg)).Scan(ctx, service.ScanSignalsInput{
			Store:           store,
			Dates:           calendar,
			Symbols:         universe,
			VolatilityIndex: cfg.Universe.VolatilityIndex,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan signals: %w", err)
		}
		in.Entries = scan.Entries
		in.ExitRule = signal.NewExitEvaluator(store, scan.Regime, signalCfg.Exit)
		exclusions.Merge(scan.Exclusions)
	}

	span, endSpan := profile.StartNewSpan("simulate")
	out, err := backtest.NewSimulator(cfg.SimulatorOptions()).Run(ctx, in)
	endSpan()
	if err != nil {
		return nil, fmt.Errorf("failed to run simulation: %w", err)
	}
	exclusions.Merge(out.Exclusions)
	log.Infof("simulated %d positions in %dms", len(out.Positions), *span.ElapsedMs)

	for _, p := range out.Positions {
		if p.ForcedClose {
			log.Warnf("position %s in %s was force closed on %s", p.ID, p.Symbol, p.ExitDate.Format(time.DateOnly))
		}
	}
	if n := exclusions[domain.ExclusionReason_UnfilledOrder]; n > 0 {
		log.Warnf("%d orders had no fill bar and were cancelled", n)
	}

	summary, err := calculator.Aggregate(out.EquityCurve, out.Positions, exclusions)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate results: %w", err)
	}
	endProfile()

	return &BacktestResult{
		RunID:       runID,
		ConfigHash:  hash,
		EquityCurve: out.EquityCurve,
		Positions:   out.Positions,
		Summary:     summary,
		Rankings:    rankings,
		Profile:     profile,
	}, nil
}

// Rank computes the composite ranking of the configured universe on a
// single date
func (h backtestAppHandler) Rank(ctx context.Context, cfg *config.Config, date time.Time) (*RankResult, error) {
	hash, err := config.Hash(cfg)
	if err != nil {
		return nil, err
	}
	store, err := h.loadStore(ctx, cfg, date.AddDate(-warmupYears, 0, 0), date)
	if err != nil {
		return nil, err
	}
	universe := rankUniverse(cfg, store)

	library, err := cfg.Library()
	if err != nil {
		return nil, err
	}
	values, err := service.NewFactorScoreService(library).ComputeFactorValues(ctx, service.ComputeFactorValuesInput{
		Store:     store,
		Dates:     []time.Time{date},
		Symbols:   universe,
		Factors:   factorNames(cfg),
		Policy:    cfg.FactorPolicy(),
		Benchmark: cfg.Universe.Benchmark,
	})
	if err != nil {
		return nil, err
	}

	vectors, err := factorVectors(cfg, library, values[date])
	if err != nil {
		return nil, err
	}
	result := rank.NewEngine(cfg.RankOptions()).Rank(date, universe, vectors)
	logSkipped(ctx, result)
	return &RankResult{
		Result:     result,
		ConfigHash: hash,
	}, nil
}

func (h backtestAppHandler) loadStore(ctx context.Context, cfg *config.Config, start, end time.Time) (*data.Store, error) {
	profile := domain.GetProfile(ctx)
	_, endSpan := profile.StartNewSpan("load data")
	defer endSpan()

	symbols := cfg.Symbols()
	securities, err := h.Source.ListSecurities(ctx, symbols)
	if err != nil {
		return nil, fmt.Errorf("failed to list securities: %w", err)
	}
	bars, err := h.Source.ListPriceBars(ctx, symbols, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list price bars: %w", err)
	}
	fundamentals, err := h.Source.ListFundamentals(ctx, symbols, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list fundamentals: %w", err)
	}

	store, err := data.NewStore(data.Input{
		Securities:   securities,
		Bars:         bars,
		Fundamentals: fundamentals,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build store: %w", err)
	}
	return store, nil
}

func (h backtestAppHandler) rankDates(ctx context.Context, cfg *config.Config, store *data.Store, universe []string, dates []time.Time) ([]RankingOnDay, error) {
	library, err := cfg.Library()
	if err != nil {
		return nil, err
	}
	values, err := service.NewFactorScoreService(library).ComputeFactorValues(ctx, service.ComputeFactorValuesInput{
		Store:     store,
		Dates:     dates,
		Symbols:   universe,
		Factors:   factorNames(cfg),
		Policy:    cfg.FactorPolicy(),
		Benchmark: cfg.Universe.Benchmark,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compute factor values: %w", err)
	}

	_, endSpan := domain.GetProfile(ctx).StartNewSpan("rank")
	defer endSpan()

	engine := rank.NewEngine(cfg.RankOptions())
	out := make([]RankingOnDay, 0, len(dates))
	var prev *rank.Result
	for _, date := range dates {
		vectors, err := factorVectors(cfg, library, values[date])
		if err != nil {
			return nil, err
		}
		result := engine.Rank(date, universe, vectors)
		logSkipped(ctx, result)

		targets, err := service.SelectTargets(service.SelectTargetsInput{
			Scores:        result.Scores,
			TopK:          cfg.Rebalance.TopK,
			TopPercentile: cfg.Rebalance.TopPercentile,
			FromBottom:    cfg.Rebalance.Select == config.Select_Bottom,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to select targets on %s: %w", date.Format(time.DateOnly), err)
		}

		day := RankingOnDay{
			Result:  result,
			Targets: targets,
			Changes: map[string]int{},
		}
		if prev != nil {
			day.Changes = rank.Changes(*prev, result)
		}
		out = append(out, day)
		prev = &out[len(out)-1].Result
	}
	return out, nil
}

func logSkipped(ctx context.Context, result rank.Result) {
	log := logger.FromContext(ctx)
	for _, s := range result.Skipped {
		log.Warnf("skipping factor %s on %s, only %d values available", s.Factor, result.Date.Format(time.DateOnly), s.Available)
	}
}

func factorNames(cfg *config.Config) []string {
	out := make([]string, 0, len(cfg.Factors.Items))
	for _, item := range cfg.Factors.Items {
		out = append(out, item.Name)
	}
	return out
}

func factorVectors(cfg *config.Config, library *factor.Library, values service.FactorValuesOnDay) ([]rank.FactorVector, error) {
	out := make([]rank.FactorVector, 0, len(cfg.Factors.Items))
	for _, item := range cfg.Factors.Items {
		def, ok := library.Definition(item.Name)
		if !ok {
			return nil, fmt.Errorf("failed to build factor vectors: %w: %s", domain.ErrUnknownFactor, item.Name)
		}
		out = append(out, rank.FactorVector{
			Name:        item.Name,
			Orientation: def.Orientation,
			Weight:      item.Weight,
			Values:      values[item.Name],
		})
	}
	return out, nil
}

// rankUniverse is every tradable security the run considers. the
// benchmark and volatility index only feed other calculations
func rankUniverse(cfg *config.Config, store *data.Store) []string {
	skip := map[string]bool{
		cfg.Universe.Benchmark:       true,
		cfg.Universe.VolatilityIndex: true,
	}
	out := []string{}
	for _, symbol := range store.Symbols() {
		if !skip[symbol] {
			out = append(out, symbol)
		}
	}
	sort.Strings(out)
	return out
}
