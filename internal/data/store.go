package data

import (
	"fmt"
	"math"
	"sort"
	"time"

	"factorlab/internal/domain"
	"factorlab/internal/util"
)

// Input is the raw, pre-fetched data for a run. bars may include
// symbols that are not part of the security universe, such as a
// volatility index or a benchmark
type Input struct {
	Securities   []domain.Security
	Bars         map[string][]domain.PriceBar
	Fundamentals map[string][]domain.FundamentalSnapshot
}

// Store is the frozen, validated view of a run's input. nothing in it
// changes after NewStore returns, so it can be read from any number of
// goroutines
type Store struct {
	securities map[string]domain.Security
	symbols    []string
	bars       map[string][]domain.PriceBar
	snapshots  map[string][]domain.FundamentalSnapshot
	calendar   []time.Time
}

func NewStore(in Input) (*Store, error) {
	s := &Store{
		securities: map[string]domain.Security{},
		bars:       map[string][]domain.PriceBar{},
		snapshots:  map[string][]domain.FundamentalSnapshot{},
	}

	for _, sec := range in.Securities {
		if sec.Symbol == "" {
			return nil, domain.MalformedInputError{Reason: "security with empty symbol"}
		}
		if _, ok := s.securities[sec.Symbol]; ok {
			return nil, domain.MalformedInputError{Symbol: sec.Symbol, Reason: "duplicate security"}
		}
		if sec.Status == "" {
			sec.Status = domain.ListingStatus_Listed
		}
		s.securities[sec.Symbol] = sec
		s.symbols = append(s.symbols, sec.Symbol)
	}
	sort.Strings(s.symbols)

	days := map[time.Time]struct{}{}
	for symbol, bars := range in.Bars {
		normalized, err := validateBars(symbol, bars)
		if err != nil {
			return nil, err
		}
		s.bars[symbol] = normalized
		for _, b := range normalized {
			days[b.Date] = struct{}{}
		}
	}

	for symbol, snapshots := range in.Fundamentals {
		normalized, err := validateSnapshots(symbol, snapshots)
		if err != nil {
			return nil, err
		}
		s.snapshots[symbol] = normalized
	}

	for d := range days {
		s.calendar = append(s.calendar, d)
	}
	sort.Slice(s.calendar, func(i, j int) bool {
		return s.calendar[i].Before(s.calendar[j])
	})

	return s, nil
}

func validateBars(symbol string, bars []domain.PriceBar) ([]domain.PriceBar, error) {
	out := make([]domain.PriceBar, 0, len(bars))
	for i, b := range bars {
		if b.Symbol != "" && b.Symbol != symbol {
			return nil, domain.MalformedInputError{Symbol: symbol, Reason: fmt.Sprintf("bar %d belongs to %s", i, b.Symbol)}
		}
		b.Symbol = symbol
		b.Date = util.TruncateDay(b.Date)
		for _, p := range []float64{b.Open, b.Close, b.AdjClose} {
			if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
				return nil, domain.MalformedInputError{Symbol: symbol, Reason: fmt.Sprintf("non-positive or non-finite price on %s", util.FormatDate(b.Date))}
			}
		}
		if b.Volume < 0 {
			return nil, domain.MalformedInputError{Symbol: symbol, Reason: fmt.Sprintf("negative volume on %s", util.FormatDate(b.Date))}
		}
		if len(out) > 0 && !out[len(out)-1].Date.Before(b.Date) {
			return nil, domain.MalformedInputError{Symbol: symbol, Reason: fmt.Sprintf("bars not strictly chronological at %s", util.FormatDate(b.Date))}
		}
		out = append(out, b)
	}
	return out, nil
}

func validateSnapshots(symbol string, snapshots []domain.FundamentalSnapshot) ([]domain.FundamentalSnapshot, error) {
	out := make([]domain.FundamentalSnapshot, 0, len(snapshots))
	for _, snap := range snapshots {
		if snap.Symbol != "" && snap.Symbol != symbol {
			return nil, domain.MalformedInputError{Symbol: symbol, Reason: "snapshot belongs to " + snap.Symbol}
		}
		if snap.AsOf.IsZero() {
			return nil, domain.MalformedInputError{Symbol: symbol, Reason: "snapshot without as-of date"}
		}
		if snap.Fields == nil {
			return nil, domain.MalformedInputError{Symbol: symbol, Reason: "snapshot without fields"}
		}
		snap.Symbol = symbol
		snap.AsOf = util.TruncateDay(snap.AsOf)
		if len(out) > 0 && !out[len(out)-1].AsOf.Before(snap.AsOf) {
			return nil, domain.MalformedInputError{Symbol: symbol, Reason: "snapshots not strictly chronological at " + util.FormatDate(snap.AsOf)}
		}
		// copy so later edits by the caller can't leak into the store
		fields := make(map[string]float64, len(snap.Fields))
		for k, v := range snap.Fields {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, domain.MalformedInputError{Symbol: symbol, Reason: fmt.Sprintf("non-finite field %s on %s", k, util.FormatDate(snap.AsOf))}
			}
			fields[k] = v
		}
		snap.Fields = fields
		out = append(out, snap)
	}
	return out, nil
}

// Symbols returns the universe in ascending order
func (s *Store) Symbols() []string {
	out := make([]string, len(s.symbols))
	copy(out, s.symbols)
	return out
}

func (s *Store) Securities() []domain.Security {
	out := make([]domain.Security, 0, len(s.symbols))
	for _, symbol := range s.symbols {
		out = append(out, s.securities[symbol])
	}
	return out
}

func (s *Store) Security(symbol string) (domain.Security, bool) {
	sec, ok := s.securities[symbol]
	return sec, ok
}

// Bars returns the full series. callers must treat it as read-only
func (s *Store) Bars(symbol string) []domain.PriceBar {
	return s.bars[symbol]
}

// BarsThrough returns the prefix of the series dated on or before date
func (s *Store) BarsThrough(symbol string, date time.Time) []domain.PriceBar {
	bars := s.bars[symbol]
	i := sort.Search(len(bars), func(i int) bool {
		return bars[i].Date.After(date)
	})
	return bars[:i]
}

func (s *Store) BarOn(symbol string, date time.Time) (domain.PriceBar, bool) {
	bars := s.bars[symbol]
	i := sort.Search(len(bars), func(i int) bool {
		return !bars[i].Date.Before(date)
	})
	if i < len(bars) && bars[i].Date.Equal(date) {
		return bars[i], true
	}
	return domain.PriceBar{}, false
}

// LatestBar returns the last bar on or before date
func (s *Store) LatestBar(symbol string, date time.Time) (domain.PriceBar, bool) {
	bars := s.BarsThrough(symbol, date)
	if len(bars) == 0 {
		return domain.PriceBar{}, false
	}
	return bars[len(bars)-1], true
}

// NextBar returns the first bar strictly after date
func (s *Store) NextBar(symbol string, date time.Time) (domain.PriceBar, bool) {
	bars := s.bars[symbol]
	i := sort.Search(len(bars), func(i int) bool {
		return bars[i].Date.After(date)
	})
	if i < len(bars) {
		return bars[i], true
	}
	return domain.PriceBar{}, false
}

func (s *Store) LastBar(symbol string) (domain.PriceBar, bool) {
	bars := s.bars[symbol]
	if len(bars) == 0 {
		return domain.PriceBar{}, false
	}
	return bars[len(bars)-1], true
}

// SnapshotAsOf returns the latest snapshot published on or before date
func (s *Store) SnapshotAsOf(symbol string, date time.Time) (domain.FundamentalSnapshot, bool) {
	snaps := s.snapshots[symbol]
	i := sort.Search(len(snaps), func(i int) bool {
		return snaps[i].AsOf.After(date)
	})
	if i == 0 {
		return domain.FundamentalSnapshot{}, false
	}
	return snaps[i-1], true
}

// YearAgoSnapshot returns the latest snapshot at least one year older
// than the one visible on date
func (s *Store) YearAgoSnapshot(symbol string, date time.Time) (domain.FundamentalSnapshot, bool) {
	current, ok := s.SnapshotAsOf(symbol, date)
	if !ok {
		return domain.FundamentalSnapshot{}, false
	}
	return s.SnapshotAsOf(symbol, current.AsOf.AddDate(-1, 0, 0))
}

// TradingDays lists every date with at least one bar in [start, end]
func (s *Store) TradingDays(start, end time.Time) []time.Time {
	out := []time.Time{}
	for _, d := range s.calendar {
		if d.Before(start) {
			continue
		}
		if d.After(end) {
			break
		}
		out = append(out, d)
	}
	return out
}

// NextTradingDay returns the first trading day on or after date
func (s *Store) NextTradingDay(date time.Time) (time.Time, bool) {
	i := sort.Search(len(s.calendar), func(i int) bool {
		return !s.calendar[i].Before(date)
	})
	if i < len(s.calendar) {
		return s.calendar[i], true
	}
	return time.Time{}, false
}
