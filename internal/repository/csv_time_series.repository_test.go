package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"factorlab/internal/domain"
	"factorlab/internal/util"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestCsvTimeSeriesRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, SecuritiesFile, "symbol,sector,industry,status\nAAPL,Tech,Hardware,listed\nXOM,Energy,Oil,delisted\n")
		writeFile(t, dir, PricesFile, "symbol,date,open,close,adj_close,volume\n"+
			"AAPL,2021-01-04,10,11,10.5,100\n"+
			"AAPL,2021-01-05,11,12,11.5,200\n"+
			"XOM,2021-01-04,50,51,49,300\n"+
			"AAPL,2021-02-01,12,13,12.5,100\n")
		writeFile(t, dir, FundamentalsFile, "symbol,as_of,field,value\n"+
			"AAPL,2020-12-31,ebit,100\n"+
			"AAPL,2020-12-31,cash,5\n"+
			"AAPL,2020-09-30,ebit,90\n"+
			"AAPL,2021-03-31,ebit,120\n")

		repo := NewCsvTimeSeriesRepository(dir)

		securities, err := repo.ListSecurities(ctx, nil)
		require.NoError(t, err)
		require.Equal(t, "", cmp.Diff([]domain.Security{
			{Symbol: "AAPL", Sector: "Tech", Industry: "Hardware", Status: domain.ListingStatus_Listed},
			{Symbol: "XOM", Sector: "Energy", Industry: "Oil", Status: domain.ListingStatus_Delisted},
		}, securities))

		bars, err := repo.ListPriceBars(ctx, []string{"AAPL"}, util.NewDate(2021, 1, 1), util.NewDate(2021, 1, 31))
		require.NoError(t, err)
		require.Equal(t, "", cmp.Diff(map[string][]domain.PriceBar{
			"AAPL": {
				{Symbol: "AAPL", Date: util.NewDate(2021, 1, 4), Open: 10, Close: 11, AdjClose: 10.5, Volume: 100},
				{Symbol: "AAPL", Date: util.NewDate(2021, 1, 5), Open: 11, Close: 12, AdjClose: 11.5, Volume: 200},
			},
		}, bars))

		snapshots, err := repo.ListFundamentals(ctx, nil, util.NewDate(2021, 1, 31))
		require.NoError(t, err)
		require.Equal(t, "", cmp.Diff(map[string][]domain.FundamentalSnapshot{
			"AAPL": {
				{Symbol: "AAPL", AsOf: util.NewDate(2020, 9, 30), Fields: map[string]float64{"ebit": 90}},
				{Symbol: "AAPL", AsOf: util.NewDate(2020, 12, 31), Fields: map[string]float64{"ebit": 100, "cash": 5}},
			},
		}, snapshots))
	})

	t.Run("fundamentals are optional", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, SecuritiesFile, "symbol,sector,industry,status\nAAPL,Tech,Hardware,listed\n")
		writeFile(t, dir, PricesFile, "symbol,date,open,close,adj_close,volume\nAAPL,2021-01-04,10,11,10.5,100\n")

		snapshots, err := NewCsvTimeSeriesRepository(dir).ListFundamentals(ctx, nil, util.NewDate(2021, 1, 31))
		require.NoError(t, err)
		require.Empty(t, snapshots)
	})

	t.Run("bad date", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, PricesFile, "symbol,date,open,close,adj_close,volume\nAAPL,01/04/2021,10,11,10.5,100\n")

		_, err := NewCsvTimeSeriesRepository(dir).ListPriceBars(ctx, nil, util.NewDate(2021, 1, 1), util.NewDate(2021, 1, 31))
		require.Error(t, err)
	})

	t.Run("add merges and round trips", func(t *testing.T) {
		dir := t.TempDir()
		repo := NewCsvTimeSeriesRepository(dir)

		require.NoError(t, repo.AddPriceBars(ctx, []domain.PriceBar{
			{Symbol: "MSFT", Date: util.NewDate(2021, 1, 5), Open: 1, Close: 2, AdjClose: 2, Volume: 10},
			{Symbol: "MSFT", Date: util.NewDate(2021, 1, 4), Open: 1, Close: 1, AdjClose: 1, Volume: 10},
		}))
		// replaces the 01-05 bar
		require.NoError(t, repo.AddPriceBars(ctx, []domain.PriceBar{
			{Symbol: "MSFT", Date: util.NewDate(2021, 1, 5), Open: 3, Close: 3, AdjClose: 3, Volume: 30},
		}))
		require.NoError(t, repo.AddSecurities(ctx, []domain.Security{{Symbol: "MSFT", Sector: "Tech"}}))

		bars, err := repo.ListPriceBars(ctx, nil, util.NewDate(2021, 1, 1), util.NewDate(2021, 1, 31))
		require.NoError(t, err)
		require.Len(t, bars["MSFT"], 2)
		require.Equal(t, util.NewDate(2021, 1, 4), bars["MSFT"][0].Date)
		require.Equal(t, 3.0, bars["MSFT"][1].Close)

		securities, err := repo.ListSecurities(ctx, []string{"MSFT"})
		require.NoError(t, err)
		require.Equal(t, []domain.Security{{Symbol: "MSFT", Sector: "Tech", Status: domain.ListingStatus_Listed}}, securities)
	})
}
