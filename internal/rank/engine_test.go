package rank

import (
	"math/rand"
	"sort"
	"testing"
	"time"

	"factorlab/internal/domain"
	"factorlab/internal/util"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var testDate = util.NewDate(2022, 6, 30)

func vector(name string, orientation domain.Orientation, values map[string]*float64) FactorVector {
	out := FactorVector{
		Name:        name,
		Orientation: orientation,
		Values:      map[string]domain.FactorValue{},
	}
	for symbol, v := range values {
		out.Values[symbol] = domain.FactorValue{
			Symbol: symbol,
			Date:   testDate,
			Factor: name,
			Value:  v,
			Mode:   domain.FactorMode_Strict,
		}
	}
	return out
}

func f(v float64) *float64 {
	return &v
}

func positions(scores []domain.CompositeScore) map[string]float64 {
	out := map[string]float64{}
	for _, s := range scores {
		out[s.Symbol] = *s.Score
	}
	return out
}

func TestEngine_Rank(t *testing.T) {
	universe := []string{"A", "B", "C", "D", "E"}
	earningsYield := vector("earnings_yield", domain.Orientation_HigherIsBetter, map[string]*float64{
		"A": f(0.10),
		"B": f(0.08),
		"C": nil,
		"D": f(0.05),
		"E": f(0.12),
	})

	t.Run("single factor with unavailable security", func(t *testing.T) {
		result := NewEngine(Options{}).Rank(testDate, universe, []FactorVector{earningsYield})

		require.Equal(t, "", cmp.Diff(map[string]float64{
			"A": 2,
			"B": 3,
			"D": 4,
			"E": 1,
		}, positions(result.Scores)))

		order := []string{}
		for _, s := range result.Scores {
			order = append(order, s.Symbol)
		}
		require.Equal(t, []string{"E", "A", "B", "D"}, order)

		require.Len(t, result.Undefined, 1)
		require.Equal(t, "C", result.Undefined[0].Symbol)
		require.Nil(t, result.Undefined[0].Score)
		require.Equal(t, 1, result.Exclusions[domain.ExclusionReason_DataUnavailable])
	})

	t.Run("penalize gives worst rank plus one", func(t *testing.T) {
		result := NewEngine(Options{MissingPolicy: MissingPolicy_Penalize}).Rank(testDate, universe, []FactorVector{earningsYield})

		require.Equal(t, 5.0, positions(result.Scores)["C"])
		require.Equal(t, "C", result.Scores[len(result.Scores)-1].Symbol)
		require.Equal(t, []string{"earnings_yield"}, result.Scores[len(result.Scores)-1].Penalized)
		require.Empty(t, result.Undefined)
	})

	t.Run("exclude drops securities missing any factor", func(t *testing.T) {
		roe := vector("roe", domain.Orientation_HigherIsBetter, map[string]*float64{
			"A": f(0.3), "B": f(0.1), "C": f(0.2), "D": nil, "E": f(0.05),
		})
		result := NewEngine(Options{}).Rank(testDate, universe, []FactorVector{earningsYield, roe})

		// roe ranks A=1 C=2 B=3 E=4
		require.Equal(t, "", cmp.Diff(map[string]float64{
			"A": 2 + 1,
			"B": 3 + 3,
			"E": 1 + 4,
		}, positions(result.Scores)))
		require.Equal(t, 2, result.Exclusions[domain.ExclusionReason_DataUnavailable])
	})

	t.Run("partial composites sum what is available", func(t *testing.T) {
		roe := vector("roe", domain.Orientation_HigherIsBetter, map[string]*float64{
			"A": f(0.3), "B": f(0.1), "C": f(0.2), "D": nil, "E": f(0.05),
		})
		result := NewEngine(Options{MissingPolicy: MissingPolicy_Partial}).Rank(testDate, universe, []FactorVector{earningsYield, roe})

		require.Equal(t, "", cmp.Diff(map[string]float64{
			"A": 3,
			"B": 6,
			"C": 2,
			"D": 4,
			"E": 5,
		}, positions(result.Scores)))
	})

	t.Run("weights and lower is better", func(t *testing.T) {
		peg := vector("peg", domain.Orientation_LowerIsBetter, map[string]*float64{
			"A": f(3), "B": f(1), "C": f(2), "D": f(4), "E": f(5),
		})
		peg.Weight = 2
		result := NewEngine(Options{MissingPolicy: MissingPolicy_Partial}).Rank(testDate, universe, []FactorVector{peg})

		require.Equal(t, "", cmp.Diff(map[string]float64{
			"A": 6, "B": 2, "C": 4, "D": 8, "E": 10,
		}, positions(result.Scores)))
	})

	t.Run("ties broken by symbol", func(t *testing.T) {
		tied := vector("x", domain.Orientation_HigherIsBetter, map[string]*float64{
			"B": f(1), "A": f(1), "C": f(1),
		})
		ranks := RankFactor(testDate, tied, []string{"C", "B", "A"})
		require.Equal(t, "A", ranks[0].Symbol)
		require.Equal(t, "B", ranks[1].Symbol)
		require.Equal(t, "C", ranks[2].Symbol)
	})

	t.Run("thin sample drops factor for everyone", func(t *testing.T) {
		thin := vector("thin", domain.Orientation_HigherIsBetter, map[string]*float64{
			"A": f(1), "B": nil, "C": nil, "D": nil, "E": nil,
		})
		result := NewEngine(Options{MinSample: 3}).Rank(testDate, universe, []FactorVector{earningsYield, thin})

		require.Equal(t, []SkippedFactor{{Factor: "thin", Available: 1}}, result.Skipped)
		require.Equal(t, 5, result.Exclusions[domain.ExclusionReason_InsufficientSample])
		require.Len(t, result.Scores, 4)
		_, ok := result.Ranks["thin"]
		require.False(t, ok)
	})

	t.Run("no usable factors", func(t *testing.T) {
		result := NewEngine(Options{MinSample: 10}).Rank(testDate, universe, []FactorVector{earningsYield})
		require.Empty(t, result.Scores)
		require.Len(t, result.Undefined, 5)
		require.Equal(t, 5, result.Exclusions[domain.ExclusionReason_InsufficientSample])
	})

	t.Run("each skipped factor is counted", func(t *testing.T) {
		roe := vector("roe", domain.Orientation_HigherIsBetter, map[string]*float64{"A": f(0.2)})
		pb := vector("pb", domain.Orientation_LowerIsBetter, map[string]*float64{"B": f(1)})
		result := NewEngine(Options{MinSample: 3}).Rank(testDate, universe, []FactorVector{earningsYield, roe, pb})

		require.Len(t, result.Skipped, 2)
		require.Equal(t, 10, result.Exclusions[domain.ExclusionReason_InsufficientSample])
	})
}

func TestEngine_RankProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	universe := []string{}
	values := map[string]*float64{}
	for i := 0; i < 200; i++ {
		symbol := string(rune('A'+i%26)) + string(rune('A'+i/26))
		universe = append(universe, symbol)
		if rng.Float64() < 0.2 {
			values[symbol] = nil
			continue
		}
		// coarse values so ties are common
		values[symbol] = f(float64(rng.Intn(20)))
	}
	v := vector("x", domain.Orientation_HigherIsBetter, values)

	t.Run("ranks are a permutation of 1..N", func(t *testing.T) {
		ranks := RankFactor(testDate, v, universe)
		available := 0
		for _, val := range values {
			if val != nil {
				available++
			}
		}
		require.Len(t, ranks, available)

		got := []int{}
		for _, r := range ranks {
			got = append(got, r.Position)
		}
		sort.Ints(got)
		for i, p := range got {
			require.Equal(t, i+1, p)
		}
	})

	t.Run("deterministic regardless of input order", func(t *testing.T) {
		engine := NewEngine(Options{})
		first := engine.Rank(testDate, universe, []FactorVector{v})

		shuffled := make([]string, len(universe))
		copy(shuffled, universe)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		second := engine.Rank(testDate, shuffled, []FactorVector{v})

		require.Equal(t, "", cmp.Diff(first, second))
	})
}

func TestChanges(t *testing.T) {
	engine := NewEngine(Options{})
	prev := engine.Rank(testDate, []string{"A", "B", "C"}, []FactorVector{
		vector("x", domain.Orientation_HigherIsBetter, map[string]*float64{"A": f(3), "B": f(2), "C": f(1)}),
	})
	curr := engine.Rank(testDate.Add(24*time.Hour), []string{"A", "B", "C"}, []FactorVector{
		vector("x", domain.Orientation_HigherIsBetter, map[string]*float64{"A": f(1), "B": f(2), "C": f(3)}),
	})

	require.Equal(t, map[string]int{"A": -2, "B": 0, "C": 2}, Changes(prev, curr))
}
