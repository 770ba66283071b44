package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"factorlab/internal/db/models/postgres/public/model"
	. "factorlab/internal/db/models/postgres/public/table"
	"factorlab/internal/domain"

	. "github.com/go-jet/jet/v2/postgres"
)

type postgresTimeSeriesRepositoryHandler struct {
	Db *sql.DB
}

type PostgresTimeSeriesRepository interface {
	TimeSeriesSource
	TimeSeriesSink
}

func NewPostgresTimeSeriesRepository(db *sql.DB) PostgresTimeSeriesRepository {
	return postgresTimeSeriesRepositoryHandler{Db: db}
}

func symbolExpressions(symbols []string) []Expression {
	out := make([]Expression, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, String(s))
	}
	return out
}

func (h postgresTimeSeriesRepositoryHandler) ListSecurities(ctx context.Context, symbols []string) ([]domain.Security, error) {
	query := Security.
		SELECT(Security.AllColumns).
		ORDER_BY(Security.Symbol.ASC())
	if symbols != nil {
		query = query.WHERE(Security.Symbol.IN(symbolExpressions(symbols)...))
	}

	result := []model.Security{}
	if err := query.QueryContext(ctx, h.Db, &result); err != nil {
		return nil, fmt.Errorf("failed to list securities: %w", err)
	}

	out := make([]domain.Security, 0, len(result))
	for _, m := range result {
		sec := domain.Security{
			Symbol: m.Symbol,
			Status: domain.ListingStatus(m.Status),
		}
		if m.Sector != nil {
			sec.Sector = *m.Sector
		}
		if m.Industry != nil {
			sec.Industry = *m.Industry
		}
		out = append(out, sec)
	}
	return out, nil
}

func (h postgresTimeSeriesRepositoryHandler) ListPriceBars(ctx context.Context, symbols []string, start, end time.Time) (map[string][]domain.PriceBar, error) {
	conditions := []BoolExpression{
		PriceBar.Date.BETWEEN(DateT(start), DateT(end)),
	}
	if symbols != nil {
		conditions = append(conditions, PriceBar.Symbol.IN(symbolExpressions(symbols)...))
	}
	query := PriceBar.
		SELECT(PriceBar.AllColumns).
		WHERE(AND(conditions...)).
		ORDER_BY(PriceBar.Symbol.ASC(), PriceBar.Date.ASC())

	result := []model.PriceBar{}
	if err := query.QueryContext(ctx, h.Db, &result); err != nil {
		return nil, fmt.Errorf("failed to list price bars: %w", err)
	}

	out := map[string][]domain.PriceBar{}
	for _, m := range result {
		out[m.Symbol] = append(out[m.Symbol], domain.PriceBar{
			Symbol:   m.Symbol,
			Date:     m.Date,
			Open:     m.Open,
			Close:    m.Close,
			AdjClose: m.AdjClose,
			Volume:   m.Volume,
		})
	}
	return out, nil
}

// ListFundamentals folds the long-format rows back into one snapshot
// per (symbol, as_of)
func (h postgresTimeSeriesRepositoryHandler) ListFundamentals(ctx context.Context, symbols []string, end time.Time) (map[string][]domain.FundamentalSnapshot, error) {
	conditions := []BoolExpression{
		FundamentalSnapshot.AsOf.LT_EQ(DateT(end)),
	}
	if symbols != nil {
		conditions = append(conditions, FundamentalSnapshot.Symbol.IN(symbolExpressions(symbols)...))
	}
	query := FundamentalSnapshot.
		SELECT(FundamentalSnapshot.AllColumns).
		WHERE(AND(conditions...)).
		ORDER_BY(FundamentalSnapshot.Symbol.ASC(), FundamentalSnapshot.AsOf.ASC())

	result := []model.FundamentalSnapshot{}
	if err := query.QueryContext(ctx, h.Db, &result); err != nil {
		return nil, fmt.Errorf("failed to list fundamentals: %w", err)
	}

	out := map[string][]domain.FundamentalSnapshot{}
	for _, m := range result {
		snaps := out[m.Symbol]
		if len(snaps) == 0 || !snaps[len(snaps)-1].AsOf.Equal(m.AsOf) {
			snaps = append(snaps, domain.FundamentalSnapshot{
				Symbol: m.Symbol,
				AsOf:   m.AsOf,
				Fields: map[string]float64{},
			})
		}
		snaps[len(snaps)-1].Fields[m.Field] = m.Value
		out[m.Symbol] = snaps
	}
	return out, nil
}

func (h postgresTimeSeriesRepositoryHandler) AddSecurities(ctx context.Context, securities []domain.Security) error {
	if len(securities) == 0 {
		return nil
	}
	models := []model.Security{}
	for _, s := range securities {
		m := model.Security{
			Symbol:    s.Symbol,
			Status:    string(s.Status),
			CreatedAt: time.Now().UTC(),
		}
		if m.Status == "" {
			m.Status = string(domain.ListingStatus_Listed)
		}
		if s.Sector != "" {
			m.Sector = &s.Sector
		}
		if s.Industry != "" {
			m.Industry = &s.Industry
		}
		models = append(models, m)
	}

	query := Security.
		INSERT(Security.AllColumns).
		MODELS(models).
		ON_CONFLICT(Security.Symbol).
		DO_UPDATE(
			SET(
				Security.Sector.SET(Security.EXCLUDED.Sector),
				Security.Industry.SET(Security.EXCLUDED.Industry),
				Security.Status.SET(Security.EXCLUDED.Status),
			),
		)
	if _, err := query.ExecContext(ctx, h.Db); err != nil {
		return fmt.Errorf("failed to add securities to db: %w", err)
	}
	return nil
}

func (h postgresTimeSeriesRepositoryHandler) AddPriceBars(ctx context.Context, bars []domain.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}
	models := []model.PriceBar{}
	for _, b := range bars {
		models = append(models, model.PriceBar{
			Symbol:    b.Symbol,
			Date:      b.Date,
			Open:      b.Open,
			Close:     b.Close,
			AdjClose:  b.AdjClose,
			Volume:    b.Volume,
			CreatedAt: time.Now().UTC(),
		})
	}

	query := PriceBar.
		INSERT(PriceBar.AllColumns).
		MODELS(models).
		ON_CONFLICT(
			PriceBar.Symbol, PriceBar.Date,
		).DO_UPDATE(
		SET(
			PriceBar.Open.SET(PriceBar.EXCLUDED.Open),
			PriceBar.Close.SET(PriceBar.EXCLUDED.Close),
			PriceBar.AdjClose.SET(PriceBar.EXCLUDED.AdjClose),
			PriceBar.Volume.SET(PriceBar.EXCLUDED.Volume),
		),
	)
	if _, err := query.ExecContext(ctx, h.Db); err != nil {
		return fmt.Errorf("failed to add price bars to db: %w", err)
	}
	return nil
}
