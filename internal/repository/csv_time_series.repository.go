package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"factorlab/internal/domain"
	"factorlab/internal/util"

	"github.com/gocarina/gocsv"
)

const (
	SecuritiesFile   = "securities.csv"
	PricesFile       = "prices.csv"
	FundamentalsFile = "fundamentals.csv"
)

type securityRow struct {
	Symbol   string `csv:"symbol"`
	Sector   string `csv:"sector"`
	Industry string `csv:"industry"`
	Status   string `csv:"status"`
}

type priceBarRow struct {
	Symbol   string  `csv:"symbol"`
	Date     string  `csv:"date"`
	Open     float64 `csv:"open"`
	Close    float64 `csv:"close"`
	AdjClose float64 `csv:"adj_close"`
	Volume   int64   `csv:"volume"`
}

// long format, one row per reported field
type fundamentalRow struct {
	Symbol string  `csv:"symbol"`
	AsOf   string  `csv:"as_of"`
	Field  string  `csv:"field"`
	Value  float64 `csv:"value"`
}

type CsvTimeSeriesRepository interface {
	TimeSeriesSource
	TimeSeriesSink
}

// csvTimeSeriesRepositoryHandler reads and writes a directory holding
// securities.csv, prices.csv and an optional fundamentals.csv
type csvTimeSeriesRepositoryHandler struct {
	Dir string
	mu  *sync.Mutex
}

func NewCsvTimeSeriesRepository(dir string) CsvTimeSeriesRepository {
	return csvTimeSeriesRepositoryHandler{
		Dir: dir,
		mu:  &sync.Mutex{},
	}
}

func readRows[T any](path string, optional bool) ([]T, error) {
	rows := []T{}
	f, err := os.Open(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return rows, nil
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return rows, nil
		}
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return rows, nil
}

func writeRows[T any](path string, rows []T) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(&rows, f); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func (h csvTimeSeriesRepositoryHandler) ListSecurities(ctx context.Context, symbols []string) ([]domain.Security, error) {
	rows, err := readRows[securityRow](filepath.Join(h.Dir, SecuritiesFile), false)
	if err != nil {
		return nil, err
	}
	wanted := symbolSet(symbols)

	out := []domain.Security{}
	for _, row := range rows {
		if wanted != nil && !wanted[row.Symbol] {
			continue
		}
		out = append(out, domain.Security{
			Symbol:   row.Symbol,
			Sector:   row.Sector,
			Industry: row.Industry,
			Status:   domain.ListingStatus(row.Status),
		})
	}
	return out, nil
}

func (h csvTimeSeriesRepositoryHandler) ListPriceBars(ctx context.Context, symbols []string, start, end time.Time) (map[string][]domain.PriceBar, error) {
	rows, err := readRows[priceBarRow](filepath.Join(h.Dir, PricesFile), false)
	if err != nil {
		return nil, err
	}
	wanted := symbolSet(symbols)

	out := map[string][]domain.PriceBar{}
	for i, row := range rows {
		if wanted != nil && !wanted[row.Symbol] {
			continue
		}
		date, err := util.ParseDate(row.Date)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s row %d: %w", PricesFile, i+1, err)
		}
		if date.Before(start) || date.After(end) {
			continue
		}
		out[row.Symbol] = append(out[row.Symbol], domain.PriceBar{
			Symbol:   row.Symbol,
			Date:     date,
			Open:     row.Open,
			Close:    row.Close,
			AdjClose: row.AdjClose,
			Volume:   row.Volume,
		})
	}
	return out, nil
}

func (h csvTimeSeriesRepositoryHandler) ListFundamentals(ctx context.Context, symbols []string, end time.Time) (map[string][]domain.FundamentalSnapshot, error) {
	rows, err := readRows[fundamentalRow](filepath.Join(h.Dir, FundamentalsFile), true)
	if err != nil {
		return nil, err
	}
	wanted := symbolSet(symbols)

	type key struct {
		symbol string
		asOf   time.Time
	}
	snapshots := map[key]*domain.FundamentalSnapshot{}
	for i, row := range rows {
		if wanted != nil && !wanted[row.Symbol] {
			continue
		}
		asOf, err := util.ParseDate(row.AsOf)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s row %d: %w", FundamentalsFile, i+1, err)
		}
		if asOf.After(end) {
			continue
		}
		k := key{row.Symbol, asOf}
		if _, ok := snapshots[k]; !ok {
			snapshots[k] = &domain.FundamentalSnapshot{
				Symbol: row.Symbol,
				AsOf:   asOf,
				Fields: map[string]float64{},
			}
		}
		snapshots[k].Fields[row.Field] = row.Value
	}

	out := map[string][]domain.FundamentalSnapshot{}
	for _, s := range snapshots {
		out[s.Symbol] = append(out[s.Symbol], *s)
	}
	for symbol := range out {
		sort.Slice(out[symbol], func(i, j int) bool {
			return out[symbol][i].AsOf.Before(out[symbol][j].AsOf)
		})
	}
	return out, nil
}

func (h csvTimeSeriesRepositoryHandler) AddSecurities(ctx context.Context, securities []domain.Security) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	path := filepath.Join(h.Dir, SecuritiesFile)
	rows, err := readRows[securityRow](path, true)
	if err != nil {
		return err
	}
	bySymbol := map[string]securityRow{}
	for _, row := range rows {
		bySymbol[row.Symbol] = row
	}
	for _, s := range securities {
		status := string(s.Status)
		if status == "" {
			status = string(domain.ListingStatus_Listed)
		}
		bySymbol[s.Symbol] = securityRow{
			Symbol:   s.Symbol,
			Sector:   s.Sector,
			Industry: s.Industry,
			Status:   status,
		}
	}

	merged := make([]securityRow, 0, len(bySymbol))
	for _, row := range bySymbol {
		merged = append(merged, row)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Symbol < merged[j].Symbol
	})
	return writeRows(path, merged)
}

// AddPriceBars merges bars into prices.csv. a bar for an existing
// (symbol, date) replaces the old one
func (h csvTimeSeriesRepositoryHandler) AddPriceBars(ctx context.Context, bars []domain.PriceBar) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	path := filepath.Join(h.Dir, PricesFile)
	rows, err := readRows[priceBarRow](path, true)
	if err != nil {
		return err
	}
	type key struct {
		symbol string
		date   string
	}
	byKey := map[key]priceBarRow{}
	for _, row := range rows {
		byKey[key{row.Symbol, row.Date}] = row
	}
	for _, b := range bars {
		row := priceBarRow{
			Symbol:   b.Symbol,
			Date:     util.FormatDate(b.Date),
			Open:     b.Open,
			Close:    b.Close,
			AdjClose: b.AdjClose,
			Volume:   b.Volume,
		}
		byKey[key{row.Symbol, row.Date}] = row
	}

	merged := make([]priceBarRow, 0, len(byKey))
	for _, row := range byKey {
		merged = append(merged, row)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Symbol != merged[j].Symbol {
			return merged[i].Symbol < merged[j].Symbol
		}
		return merged[i].Date < merged[j].Date
	})
	return writeRows(path, merged)
}
