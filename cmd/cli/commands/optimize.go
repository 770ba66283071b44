package commands

import (
	"factorlab/cmd"
	"factorlab/internal/app"
	"factorlab/internal/config"
	"factorlab/internal/logger"

	"github.com/spf13/cobra"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Backtest every combination of a parameter grid, best sharpe first",
	Example: `  factorlab optimize --config strategy.yaml --grid grid.yaml

  # grid.yaml
  rebalance.top_k: [5, 10, 20]
  signals.breach.quantile: [0.05, 0.1]`,
	RunE: runOptimize,
}

var (
	optimizeConfigPath string
	optimizeGridPath   string
	optimizeTop        int
)

func init() {
	rootCmd.AddCommand(optimizeCmd)

	optimizeCmd.Flags().StringVarP(&optimizeConfigPath, "config", "c", "", "base strategy config file")
	optimizeCmd.Flags().StringVarP(&optimizeGridPath, "grid", "g", "", "yaml file of config path -> values to try")
	optimizeCmd.Flags().IntVar(&optimizeTop, "top", 0, "print only the best n results")
	_ = optimizeCmd.MarkFlagRequired("config")
	_ = optimizeCmd.MarkFlagRequired("grid")
}

func runOptimize(c *cobra.Command, args []string) error {
	base, err := config.Load(optimizeConfigPath)
	if err != nil {
		return err
	}
	grid, err := config.LoadGrid(optimizeGridPath)
	if err != nil {
		return err
	}
	deps, err := cmd.InitializeDependencies(dataDir)
	if err != nil {
		return err
	}
	defer cmd.CloseDependencies(deps)

	ctx := logger.WithContext(c.Context(), deps.Log)
	results, err := app.NewBacktestApp(deps.Source).Optimize(ctx, base, grid)
	if err != nil {
		return err
	}
	if optimizeTop > 0 && optimizeTop < len(results) {
		results = results[:optimizeTop]
	}
	return printJson(results)
}
