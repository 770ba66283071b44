package calculator

import (
	"fmt"
	"math"

	"factorlab/internal/domain"

	"github.com/montanaflynn/stats"
)

type PositionCounts struct {
	Opened      int `json:"opened"`
	Closed      int `json:"closed"`
	Open        int `json:"open"`
	ForcedClose int `json:"forcedClose"`
	Wins        int `json:"wins"`
	Losses      int `json:"losses"`
}

type Summary struct {
	StartValue  float64 `json:"startValue"`
	EndValue    float64 `json:"endValue"`
	TotalReturn float64 `json:"totalReturn"`
	// nil when the curve covers less than a day
	AnnualizedReturn *float64 `json:"annualizedReturn"`
	// negative fraction of the running peak, 0 when equity never fell
	MaxDrawdown float64 `json:"maxDrawdown"`
	// share of closed positions with a positive realized return
	WinRate *float64 `json:"winRate"`
	// mean winning return over the absolute mean losing return
	AverageRewardRisk *float64 `json:"averageRewardRisk"`
	// fraction of curve points with at least one open position
	Exposure        float64                `json:"exposure"`
	AnnualizedStdev *float64               `json:"annualizedStdev"`
	SharpeRatio     *float64               `json:"sharpeRatio"`
	Positions       PositionCounts         `json:"positions"`
	Exclusions      domain.ExclusionCounts `json:"exclusions"`
}

// Aggregate reduces a finished simulation to its summary statistics. it
// only reads its inputs, so running it twice gives the same summary
func Aggregate(curve []domain.EquityCurvePoint, positions []domain.Position, exclusions domain.ExclusionCounts) (*Summary, error) {
	if len(curve) == 0 {
		return nil, fmt.Errorf("cannot aggregate an empty equity curve")
	}
	for i := 1; i < len(curve); i++ {
		if !curve[i-1].Date.Before(curve[i].Date) {
			return nil, fmt.Errorf("equity curve is not ordered at %v", curve[i].Date)
		}
	}

	startValue := curve[0].Value.InexactFloat64()
	endValue := curve[len(curve)-1].Value.InexactFloat64()
	if startValue <= 0 {
		return nil, fmt.Errorf("starting equity must be positive, got %f", startValue)
	}

	summary := &Summary{
		StartValue:  startValue,
		EndValue:    endValue,
		TotalReturn: endValue/startValue - 1,
		MaxDrawdown: maxDrawdown(curve),
		Exposure:    exposure(curve),
		Positions:   countPositions(positions),
		Exclusions:  domain.ExclusionCounts{},
	}
	summary.Exclusions.Merge(exclusions)

	numHours := curve[len(curve)-1].Date.Sub(curve[0].Date).Hours()
	numYears := numHours / (365 * 24)
	if numYears > 0 && endValue > 0 {
		annualizedReturn := math.Pow(endValue/startValue, 1/numYears) - 1
		summary.AnnualizedReturn = &annualizedReturn
	}

	returns, err := dailyReturns(curve)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate returns: %w", err)
	}
	if len(returns) >= 2 {
		stdev, err := stats.StandardDeviationSample(returns)
		if err != nil {
			return nil, fmt.Errorf("failed to calculate stdev: %w", err)
		}
		annualizedStdev := stdev * math.Sqrt(252)
		summary.AnnualizedStdev = &annualizedStdev
		if annualizedStdev > 0 && summary.AnnualizedReturn != nil {
			sharpe := *summary.AnnualizedReturn / annualizedStdev
			summary.SharpeRatio = &sharpe
		}
	}

	summary.WinRate, summary.AverageRewardRisk, err = tradeStats(positions)
	if err != nil {
		return nil, err
	}

	return summary, nil
}

func dailyReturns(curve []domain.EquityCurvePoint) ([]float64, error) {
	returns := []float64{}
	for i := 1; i < len(curve); i++ {
		last := curve[i-1].Value
		if last.IsZero() {
			return nil, fmt.Errorf("equity reached zero on %v", curve[i-1].Date)
		}
		returns = append(returns, curve[i].Value.Sub(last).Div(last).InexactFloat64())
	}
	return returns, nil
}

func maxDrawdown(curve []domain.EquityCurvePoint) float64 {
	peak := curve[0].Value.InexactFloat64()
	worst := 0.0
	for _, pt := range curve {
		v := pt.Value.InexactFloat64()
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		if dd := v/peak - 1; dd < worst {
			worst = dd
		}
	}
	return worst
}

func exposure(curve []domain.EquityCurvePoint) float64 {
	invested := 0
	for _, pt := range curve {
		if pt.OpenPositions > 0 {
			invested++
		}
	}
	return float64(invested) / float64(len(curve))
}

func countPositions(positions []domain.Position) PositionCounts {
	counts := PositionCounts{Opened: len(positions)}
	for _, p := range positions {
		if p.State() != domain.PositionState_Closed {
			counts.Open++
			continue
		}
		counts.Closed++
		if p.ForcedClose {
			counts.ForcedClose++
		}
		if ret := p.RealizedReturn(); ret != nil {
			if *ret > 0 {
				counts.Wins++
			} else if *ret < 0 {
				counts.Losses++
			}
		}
	}
	return counts
}

func tradeStats(positions []domain.Position) (*float64, *float64, error) {
	closed := 0
	wins, losses := []float64{}, []float64{}
	for _, p := range positions {
		ret := p.RealizedReturn()
		if ret == nil {
			continue
		}
		closed++
		if *ret > 0 {
			wins = append(wins, *ret)
		} else if *ret < 0 {
			losses = append(losses, *ret)
		}
	}
	if closed == 0 {
		return nil, nil, nil
	}

	winRate := float64(len(wins)) / float64(closed)
	if len(wins) == 0 || len(losses) == 0 {
		return &winRate, nil, nil
	}

	meanWin, err := stats.Mean(wins)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to average wins: %w", err)
	}
	meanLoss, err := stats.Mean(losses)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to average losses: %w", err)
	}
	rewardRisk := meanWin / math.Abs(meanLoss)
	return &winRate, &rewardRisk, nil
}
