package factor

import (
	"fmt"
	"math"
	"sort"
	"time"

	"factorlab/internal/domain"
)

type Policy string

const (
	Policy_Strict        Policy = "strict"
	Policy_Proxy         Policy = "proxy"
	Policy_BestAvailable Policy = "best_available"
)

// Observation is everything a factor may look at for one security on
// one date. all of it must already be point-in-time as of Date
type Observation struct {
	Symbol    string
	Date      time.Time
	Snapshot  *domain.FundamentalSnapshot
	YearAgo   *domain.FundamentalSnapshot
	Price     *float64
	Bars      []domain.PriceBar
	Benchmark []domain.PriceBar
}

type missingDataError struct {
	What        string
	NonPositive bool
}

func (e missingDataError) Error() string {
	if e.NonPositive {
		return fmt.Sprintf("non-positive %s", e.What)
	}
	return fmt.Sprintf("missing %s", e.What)
}

// Formula computes a factor or reports why it can't. formulas never do
// i/o and only return missingDataError
type Formula func(obs Observation) (float64, error)

type Definition struct {
	Name        string
	Orientation domain.Orientation
	Strict      Formula
	// optional; factors without one use Strict under every policy
	Proxy Formula
}

type Library struct {
	definitions map[string]Definition
}

// NewLibrary returns the built-in factors plus any extra definitions.
// extras override built-ins with the same name
func NewLibrary(extra ...Definition) *Library {
	l := &Library{
		definitions: map[string]Definition{},
	}
	for _, def := range builtins() {
		l.definitions[def.Name] = def
	}
	for _, def := range extra {
		l.definitions[def.Name] = def
	}
	return l
}

func (l *Library) Definition(name string) (Definition, bool) {
	def, ok := l.definitions[name]
	return def, ok
}

func (l *Library) Names() []string {
	names := make([]string, 0, len(l.definitions))
	for name := range l.definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Evaluate computes one factor for one observation. missing or unusable
// fields produce an unavailable value; only malformed observations and
// unknown factor names are errors
func (l *Library) Evaluate(name string, obs Observation, policy Policy) (domain.FactorValue, error) {
	if err := validateObservation(obs); err != nil {
		return domain.FactorValue{}, err
	}
	def, ok := l.definitions[name]
	if !ok {
		return domain.FactorValue{}, fmt.Errorf("%w: %s", domain.ErrUnknownFactor, name)
	}

	out := domain.FactorValue{
		Symbol: obs.Symbol,
		Date:   obs.Date,
		Factor: name,
	}

	switch {
	case policy == Policy_Proxy && def.Proxy != nil:
		out.Mode = domain.FactorMode_Proxy
		out.Value, out.Reason = run(def.Proxy, obs)
	case policy == Policy_BestAvailable:
		out.Mode = domain.FactorMode_Strict
		out.Value, out.Reason = run(def.Strict, obs)
		if out.Value == nil && def.Proxy != nil {
			strictReason := out.Reason
			out.Value, out.Reason = run(def.Proxy, obs)
			out.Mode = domain.FactorMode_Proxy
			if out.Value != nil {
				out.Fallback = true
				out.Reason = "strict unavailable: " + strictReason
			} else {
				out.Reason = fmt.Sprintf("strict: %s; proxy: %s", strictReason, out.Reason)
			}
		}
	default:
		out.Mode = domain.FactorMode_Strict
		out.Value, out.Reason = run(def.Strict, obs)
	}

	return out, nil
}

func run(f Formula, obs Observation) (*float64, string) {
	v, err := f(obs)
	if err != nil {
		return nil, err.Error()
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, "non-finite result"
	}
	return &v, ""
}

func validateObservation(obs Observation) error {
	if obs.Symbol == "" {
		return domain.MalformedInputError{Reason: "observation without symbol"}
	}
	if obs.Date.IsZero() {
		return domain.MalformedInputError{Symbol: obs.Symbol, Reason: "observation without date"}
	}
	for _, snap := range []*domain.FundamentalSnapshot{obs.Snapshot, obs.YearAgo} {
		if snap == nil {
			continue
		}
		if snap.Fields == nil {
			return domain.MalformedInputError{Symbol: obs.Symbol, Reason: "snapshot without fields"}
		}
		if snap.AsOf.After(obs.Date) {
			return domain.MalformedInputError{Symbol: obs.Symbol, Reason: "snapshot published after observation date"}
		}
		for k, v := range snap.Fields {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return domain.MalformedInputError{Symbol: obs.Symbol, Reason: "non-finite field " + k}
			}
		}
	}
	if obs.Price != nil && (math.IsNaN(*obs.Price) || *obs.Price <= 0) {
		return domain.MalformedInputError{Symbol: obs.Symbol, Reason: "non-positive price"}
	}
	return nil
}
