package commands

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "factorlab",
	Short: "Factor ranking and backtest engine",
	Long: `factorlab ranks an equity universe by composite factor scores and
replays rank-driven and signal-driven strategies over historical data.

Data comes from a csv directory (--data) or from postgres when no
directory is given.`,
	SilenceUsage: true,
}

var dataDir string

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "csv data directory (securities.csv, prices.csv, fundamentals.csv)")
}

// Execute runs the cli. ctrl+c cancels the running command's context
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func printJson(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
