package commands

import (
	"fmt"
	"strings"
	"time"

	"factorlab/cmd"
	"factorlab/internal/logger"
	"factorlab/internal/repository"
	"factorlab/internal/service"
	"factorlab/internal/util"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Download daily bars from yahoo finance into the data store",
	Example: `  factorlab ingest --symbols AAPL,MSFT,^VIX --start 2018-01-01 --data ./data
  factorlab ingest --symbols SPY --start 2018-01-01 --rps 0.5`,
	RunE: runIngest,
}

var (
	ingestSymbols string
	ingestStart   string
	ingestEnd     string
	ingestRps     float64
)

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&ingestSymbols, "symbols", "", "comma separated symbols")
	ingestCmd.Flags().StringVar(&ingestStart, "start", "2018-01-01", "first date, YYYY-MM-DD")
	ingestCmd.Flags().StringVar(&ingestEnd, "end", "", "last date, YYYY-MM-DD. defaults to today")
	ingestCmd.Flags().Float64Var(&ingestRps, "rps", 2, "max yahoo requests per second")
	_ = ingestCmd.MarkFlagRequired("symbols")
}

func runIngest(c *cobra.Command, args []string) error {
	symbols := []string{}
	for _, s := range strings.Split(ingestSymbols, ",") {
		if s = strings.TrimSpace(s); s != "" {
			symbols = append(symbols, s)
		}
	}
	start, err := util.ParseDate(ingestStart)
	if err != nil {
		return err
	}
	end := util.TruncateDay(time.Now().UTC())
	if ingestEnd != "" {
		if end, err = util.ParseDate(ingestEnd); err != nil {
			return err
		}
	}
	if !start.Before(end) {
		return fmt.Errorf("start %s must be before end %s", ingestStart, util.FormatDate(end))
	}

	deps, err := cmd.InitializeDependencies(dataDir)
	if err != nil {
		return err
	}
	defer cmd.CloseDependencies(deps)

	ctx := logger.WithContext(c.Context(), deps.Log)
	ingestService := service.NewIngestService(repository.NewYahooPriceRepository(ingestRps), deps.Sink)
	result, err := ingestService.IngestPrices(ctx, service.IngestPricesInput{
		Symbols: symbols,
		Start:   start,
		End:     end,
	})
	if err != nil {
		return err
	}
	return printJson(result)
}
