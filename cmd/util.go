package cmd

import (
	"database/sql"
	"fmt"
	"os"

	"factorlab/api"
	"factorlab/internal/app"
	"factorlab/internal/config"
	"factorlab/internal/logger"
	"factorlab/internal/repository"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// data directory used instead of postgres when set
const dataDirEnv = "FACTORLAB_DATA_DIR"

type Dependencies struct {
	Db         *sql.DB
	Source     repository.TimeSeriesSource
	Sink       repository.TimeSeriesSink
	ApiHandler *api.ApiHandler
	Log        *zap.SugaredLogger
}

func CloseDependencies(deps *Dependencies) {
	if deps.Db == nil {
		return
	}
	if err := deps.Db.Close(); err != nil {
		deps.Log.Errorf("failed to close db: %v", err)
	}
}

// InitializeDependencies wires the time series store and the api. a
// csv directory (the argument, or FACTORLAB_DATA_DIR) takes precedence
// over postgres
func InitializeDependencies(dataDir string) (*Dependencies, error) {
	// missing .env is fine outside local dev
	_ = godotenv.Load()

	deps := &Dependencies{
		Log: logger.New(),
	}
	if dataDir == "" {
		dataDir = os.Getenv(dataDirEnv)
	}

	if dataDir != "" {
		repo := repository.NewCsvTimeSeriesRepository(dataDir)
		deps.Source = repo
		deps.Sink = repo
		deps.Log.Infof("reading time series from %s", dataDir)
	} else {
		secrets, err := config.LoadSecrets()
		if err != nil {
			return nil, fmt.Errorf("failed to load secrets: %w", err)
		}
		dbConn, err := sql.Open("postgres", secrets.Db.ToConnectionStr())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to db: %w", err)
		}
		repo := repository.NewPostgresTimeSeriesRepository(dbConn)
		deps.Db = dbConn
		deps.Source = repo
		deps.Sink = repo
	}

	deps.ApiHandler = api.NewApiHandler(app.NewBacktestApp(deps.Source), deps.Log)
	return deps, nil
}
