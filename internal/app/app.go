package app

import (
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/manogolf/nhl-splits/external/nhlapi"
	"github.com/manogolf/nhl-splits/internal/config"
	"github.com/manogolf/nhl-splits/internal/domain/pbp"
	"github.com/manogolf/nhl-splits/internal/infrastructure/repository/postgres"
	"github.com/manogolf/nhl-splits/internal/platform/logging"
	"github.com/manogolf/nhl-splits/internal/platform/resilience"
	"github.com/manogolf/nhl-splits/internal/usecase"
)

// Application bundles the wired backfill service with the resources it owns.
type Application struct {
	DB       *sqlx.DB
	Backfill *usecase.BackfillService
}

func NewApplication(cfg config.Config, logger *logging.Logger) (*Application, error) {
	if logger == nil {
		logger = logging.Default()
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	feedClient := nhlapi.NewClient(nhlapi.ClientConfig{
		HTTPClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   cfg.NHLAPITimeout,
		},
		APIWebBaseURL:   cfg.NHLAPIWebBaseURL,
		StatsAPIBaseURL: cfg.NHLStatsAPIBaseURL,
		Timeout:         cfg.NHLAPITimeout,
		MaxRetries:      cfg.NHLAPIMaxRetries,
		Logger:          logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.NHLCircuitEnabled,
			FailureThreshold: cfg.NHLCircuitFailureCount,
			OpenTimeout:      cfg.NHLCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.NHLCircuitHalfOpenMaxReq,
		},
	})

	backfill := usecase.NewBackfillService(
		feedClient,
		postgres.NewSkaterGameLogRepository(db),
		postgres.NewGoalieGameLogRepository(db),
		postgres.NewBackfillProgressRepository(db),
		pbp.Options{
			ReboundWindowSeconds: cfg.ReboundWindowSeconds,
			HighDangerKeywords:   cfg.HighDangerKeywords,
		},
		logger,
	)

	return &Application{
		DB:       db,
		Backfill: backfill,
	}, nil
}

func (a *Application) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

func openDB(cfg config.Config) (*sqlx.DB, error) {
	dbURL := normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary)

	db, err := otelsqlx.Connect("postgres", dbURL,
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithDBName(dbNameFromURL(cfg.DBURL)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	return db, nil
}
