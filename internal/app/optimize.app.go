package app

import (
	"context"
	"fmt"
	"sort"

	"factorlab/internal/calculator"
	"factorlab/internal/config"
	"factorlab/internal/logger"

	"github.com/google/uuid"
)

type OptimizeResult struct {
	Params     map[string]any      `json:"params"`
	RunID      uuid.UUID           `json:"runId"`
	ConfigHash string              `json:"configHash"`
	Summary    *calculator.Summary `json:"summary"`
}

// Optimize backtests every combination of grid over base and returns
// them best sharpe ratio first. runs without a sharpe ratio sort last,
// ties keep grid order
func (h backtestAppHandler) Optimize(ctx context.Context, base *config.Config, grid config.Grid) ([]OptimizeResult, error) {
	log := logger.FromContext(ctx)

	variants, err := grid.Variants(base)
	if err != nil {
		return nil, err
	}
	log.Infof("optimizing over %d parameter combinations", len(variants))

	out := make([]OptimizeResult, 0, len(variants))
	for _, v := range variants {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := h.Backtest(ctx, v.Config)
		if err != nil {
			return nil, fmt.Errorf("failed to backtest %v: %w", v.Params, err)
		}
		out = append(out, OptimizeResult{
			Params:     v.Params,
			RunID:      result.RunID,
			ConfigHash: result.ConfigHash,
			Summary:    result.Summary,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Summary.SharpeRatio, out[j].Summary.SharpeRatio
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		return *a > *b
	})
	if best := out[0]; best.Summary.SharpeRatio != nil {
		log.Infof("best sharpe %.3f with %v", *best.Summary.SharpeRatio, best.Params)
	}
	return out, nil
}
