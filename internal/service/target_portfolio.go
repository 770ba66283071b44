package service

import (
	"fmt"
	"math"

	"factorlab/internal/domain"
)

type SelectTargetsInput struct {
	// defined composites, most attractive first
	Scores        []domain.CompositeScore
	TopK          int
	TopPercentile float64
	// "bottom" takes the least attractive end of the ranking
	FromBottom bool
}

// SelectTargets picks the symbols the portfolio should hold after a
// rebalance. exactly one of TopK and TopPercentile is used
func SelectTargets(in SelectTargetsInput) ([]string, error) {
	if (in.TopK > 0) == (in.TopPercentile > 0) {
		return nil, fmt.Errorf("exactly one of top k (%d) and top percentile (%f) must be set", in.TopK, in.TopPercentile)
	}

	n := in.TopK
	if in.TopPercentile > 0 {
		n = int(math.Ceil(in.TopPercentile * float64(len(in.Scores))))
	}
	if n > len(in.Scores) {
		n = len(in.Scores)
	}

	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		idx := i
		if in.FromBottom {
			idx = len(in.Scores) - 1 - i
		}
		score := in.Scores[idx]
		if !score.Defined() {
			return nil, fmt.Errorf("undefined composite for %s cannot be selected", score.Symbol)
		}
		out = append(out, score.Symbol)
	}
	return out, nil
}
