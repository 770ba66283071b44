package commands

import (
	"factorlab/cmd"
	"factorlab/internal/app"
	"factorlab/internal/config"
	"factorlab/internal/logger"
	"factorlab/internal/util"

	"github.com/spf13/cobra"
)

var rankCmd = &cobra.Command{
	Use:     "rank",
	Short:   "Rank the configured universe on one date",
	Example: `  factorlab rank --config strategy.yaml --date 2021-06-30 --data ./data`,
	RunE:    runRank,
}

var (
	rankConfigPath string
	rankDate       string
)

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().StringVarP(&rankConfigPath, "config", "c", "", "strategy config file")
	rankCmd.Flags().StringVar(&rankDate, "date", "", "ranking date, YYYY-MM-DD")
	_ = rankCmd.MarkFlagRequired("config")
	_ = rankCmd.MarkFlagRequired("date")
}

func runRank(c *cobra.Command, args []string) error {
	date, err := util.ParseDate(rankDate)
	if err != nil {
		return err
	}
	cfg, err := config.Load(rankConfigPath)
	if err != nil {
		return err
	}
	deps, err := cmd.InitializeDependencies(dataDir)
	if err != nil {
		return err
	}
	defer cmd.CloseDependencies(deps)

	ctx := logger.WithContext(c.Context(), deps.Log)
	result, err := app.NewBacktestApp(deps.Source).Rank(ctx, cfg, date)
	if err != nil {
		return err
	}
	return printJson(result)
}
