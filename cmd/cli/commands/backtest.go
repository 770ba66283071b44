package commands

import (
	"factorlab/cmd"
	"factorlab/internal/app"
	"factorlab/internal/config"
	"factorlab/internal/logger"

	"github.com/spf13/cobra"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run a backtest and print the result as json",
	Example: `  factorlab backtest --config strategy.yaml --data ./data
  factorlab backtest --config strategy.yaml --summary`,
	RunE: runBacktest,
}

var (
	backtestConfigPath string
	backtestSummary    bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVarP(&backtestConfigPath, "config", "c", "", "strategy config file")
	backtestCmd.Flags().BoolVar(&backtestSummary, "summary", false, "print only the summary")
	_ = backtestCmd.MarkFlagRequired("config")
}

func runBacktest(c *cobra.Command, args []string) error {
	cfg, err := config.Load(backtestConfigPath)
	if err != nil {
		return err
	}
	deps, err := cmd.InitializeDependencies(dataDir)
	if err != nil {
		return err
	}
	defer cmd.CloseDependencies(deps)

	ctx := logger.WithContext(c.Context(), deps.Log)
	result, err := app.NewBacktestApp(deps.Source).Backtest(ctx, cfg)
	if err != nil {
		return err
	}
	if backtestSummary {
		return printJson(result.Summary)
	}
	return printJson(result)
}
