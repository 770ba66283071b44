package rank

import (
	"sort"
	"time"

	"factorlab/internal/domain"
)

// MissingPolicy decides what happens to a security's composite when one
// of the active factors has no value for it
type MissingPolicy string

const (
	// composite is undefined. the default
	MissingPolicy_Exclude MissingPolicy = "exclude"
	// missing factor counts as worst rank + 1
	MissingPolicy_Penalize MissingPolicy = "penalize"
	// composite sums only the factors that are available
	MissingPolicy_Partial MissingPolicy = "partial"
)

type Options struct {
	MissingPolicy MissingPolicy
	// factors with fewer available values than this are dropped for the
	// whole universe on that date
	MinSample int
}

type FactorVector struct {
	Name        string
	Orientation domain.Orientation
	// zero means 1
	Weight float64
	Values map[string]domain.FactorValue
}

type SkippedFactor struct {
	Factor    string `json:"factor"`
	Available int    `json:"available"`
}

type Result struct {
	Date time.Time `json:"date"`
	// per factor, ordered by rank
	Ranks map[string][]domain.Rank `json:"ranks"`
	// defined composites, most attractive first
	Scores []domain.CompositeScore `json:"scores"`
	// undefined composites, by symbol
	Undefined  []domain.CompositeScore `json:"undefined"`
	Skipped    []SkippedFactor         `json:"skipped"`
	Exclusions domain.ExclusionCounts  `json:"exclusions"`
}

type Engine struct {
	opts Options
}

func NewEngine(opts Options) *Engine {
	if opts.MissingPolicy == "" {
		opts.MissingPolicy = MissingPolicy_Exclude
	}
	return &Engine{opts: opts}
}

type entry struct {
	symbol string
	value  float64
}

// RankFactor orders the securities with an available value and assigns
// positions 1..N. ties on value fall back to symbol so the order is total
func RankFactor(date time.Time, v FactorVector, universe []string) []domain.Rank {
	entries := []entry{}
	for _, symbol := range universe {
		fv, ok := v.Values[symbol]
		if !ok || !fv.Available() {
			continue
		}
		entries = append(entries, entry{symbol: symbol, value: *fv.Value})
	}

	higherIsBetter := v.Orientation != domain.Orientation_LowerIsBetter
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.value != b.value {
			if higherIsBetter {
				return a.value > b.value
			}
			return a.value < b.value
		}
		return a.symbol < b.symbol
	})

	out := make([]domain.Rank, 0, len(entries))
	for i, e := range entries {
		out = append(out, domain.Rank{
			Symbol:   e.symbol,
			Date:     date,
			Factor:   v.Name,
			Position: i + 1,
		})
	}
	return out
}

// Rank builds one composite per security in the universe. the inputs
// must be the complete set of values for the date
func (e *Engine) Rank(date time.Time, universe []string, vectors []FactorVector) Result {
	symbols := make([]string, len(universe))
	copy(symbols, universe)
	sort.Strings(symbols)

	result := Result{
		Date:       date,
		Ranks:      map[string][]domain.Rank{},
		Scores:     []domain.CompositeScore{},
		Undefined:  []domain.CompositeScore{},
		Skipped:    []SkippedFactor{},
		Exclusions: domain.ExclusionCounts{},
	}

	type activeFactor struct {
		vector FactorVector
		ranks  map[string]int
		worst  int
	}
	active := []activeFactor{}
	for _, v := range vectors {
		ranks := RankFactor(date, v, symbols)
		if len(ranks) < e.opts.MinSample || len(ranks) == 0 {
			result.Skipped = append(result.Skipped, SkippedFactor{
				Factor:    v.Name,
				Available: len(ranks),
			})
			continue
		}
		result.Ranks[v.Name] = ranks
		bySymbol := make(map[string]int, len(ranks))
		for _, r := range ranks {
			bySymbol[r.Symbol] = r.Position
		}
		active = append(active, activeFactor{
			vector: v,
			ranks:  bySymbol,
			worst:  len(ranks),
		})
	}

	if len(active) > 0 {
		// every security on the date loses a skipped factor. when nothing
		// is active the undefined composites below carry the count instead
		for range result.Skipped {
			result.Exclusions.Add(domain.ExclusionReason_InsufficientSample, len(symbols))
		}
	}

	for _, symbol := range symbols {
		score := domain.CompositeScore{
			Symbol: symbol,
			Date:   date,
			Ranks:  map[string]int{},
		}
		if len(active) == 0 {
			result.Undefined = append(result.Undefined, score)
			result.Exclusions.Add(domain.ExclusionReason_InsufficientSample, 1)
			continue
		}

		total := 0.0
		contributing := 0
		for _, f := range active {
			weight := f.vector.Weight
			if weight == 0 {
				weight = 1
			}
			position, ok := f.ranks[symbol]
			if !ok {
				score.Missing = append(score.Missing, f.vector.Name)
				if e.opts.MissingPolicy != MissingPolicy_Penalize {
					continue
				}
				position = f.worst + 1
				score.Penalized = append(score.Penalized, f.vector.Name)
			}
			score.Ranks[f.vector.Name] = position
			total += weight * float64(position)
			contributing++
		}

		defined := contributing > 0
		if e.opts.MissingPolicy == MissingPolicy_Exclude && len(score.Missing) > 0 {
			defined = false
		}
		if e.opts.MissingPolicy == MissingPolicy_Penalize && len(score.Penalized) == len(active) {
			// nothing real backs this composite
			defined = false
		}
		if !defined {
			result.Undefined = append(result.Undefined, score)
			result.Exclusions.Add(domain.ExclusionReason_DataUnavailable, 1)
			continue
		}

		score.Score = &total
		result.Scores = append(result.Scores, score)
	}

	sort.SliceStable(result.Scores, func(i, j int) bool {
		a, b := result.Scores[i], result.Scores[j]
		if *a.Score != *b.Score {
			return *a.Score < *b.Score
		}
		return a.Symbol < b.Symbol
	})

	return result
}

// Changes reports how many places each security moved between two
// rankings. positive means it became more attractive. securities that
// are not defined in both rankings are left out
func Changes(prev, curr Result) map[string]int {
	prevPos := map[string]int{}
	for i, s := range prev.Scores {
		prevPos[s.Symbol] = i + 1
	}
	out := map[string]int{}
	for i, s := range curr.Scores {
		if p, ok := prevPos[s.Symbol]; ok {
			out[s.Symbol] = p - (i + 1)
		}
	}
	return out
}
