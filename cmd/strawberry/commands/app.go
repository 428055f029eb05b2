package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/strawberry/internal/acquisition"
	"github.com/wonny/strawberry/internal/contracts"
	"github.com/wonny/strawberry/internal/external/alphavantage"
	"github.com/wonny/strawberry/internal/pipeline"
	"github.com/wonny/strawberry/internal/pipelineconfig"
	"github.com/wonny/strawberry/internal/storage"
	"github.com/wonny/strawberry/pkg/config"
	"github.com/wonny/strawberry/pkg/database"
	"github.com/wonny/strawberry/pkg/httputil"
	"github.com/wonny/strawberry/pkg/logger"
	"github.com/wonny/strawberry/pkg/metrics"
	"github.com/wonny/strawberry/pkg/redis"
)

const cachePrefix = "strawberry"

// app holds the collaborators shared by every command
type app struct {
	cfg      *config.Config
	pipeline *pipelineconfig.Config
	log      *logger.Logger
	metrics  *metrics.Registry

	redis *redis.Client
	cache *redis.Cache
	db    *database.DB

	raw   *storage.FileStore
	files *storage.FileStore // fact tables on disk
	facts *storage.Multi     // files, then Postgres when configured
}

// newApp loads the configuration and opens the stores. Postgres and Redis
// are optional: an empty DATABASE_URL or REDIS_ENABLED=false leaves them out.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)

	pipelinePath := cfg.Storage.PipelinePath()
	if pipelineFile != "" {
		pipelinePath = pipelineFile
	}
	pcfg, err := pipelineconfig.LoadOrDefault(pipelinePath)
	if err != nil {
		return nil, fmt.Errorf("load pipeline config %s: %w", pipelinePath, err)
	}

	var m *metrics.Registry
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	rc, err := redis.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	a := &app{
		cfg:      cfg,
		pipeline: pcfg,
		log:      log,
		metrics:  m,
		redis:    rc,
		cache:    redis.NewCache(rc, cachePrefix),
		raw:      storage.NewFileStore(cfg.Storage.AcquisitionPath()),
		files:    storage.NewFileStore(cfg.Storage.TransformedPath()),
	}

	var sink contracts.TableStore
	db, err := database.New(ctx, cfg)
	switch {
	case errors.Is(err, database.ErrNotConfigured):
		log.Debug("DATABASE_URL not set, fact tables are written to files only")
	case err != nil:
		rc.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	default:
		pg := storage.NewPostgresStore(db.Pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			db.Close()
			rc.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		a.db = db
		sink = pg
		log.Info("Connected to database, fact tables are mirrored to Postgres")
	}
	a.facts = storage.NewMulti(a.files, sink)

	return a, nil
}

// Close releases the connections
func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	a.redis.Close()
}

// tickers reads the ticker list, or returns args when given
func (a *app) tickers(args []string) ([]string, error) {
	if len(args) > 0 {
		return pipelineconfig.NormalizeTickers(args), nil
	}

	path := a.cfg.Storage.TickersPath()
	if tickersFile != "" {
		path = tickersFile
	}
	tickers, err := pipelineconfig.LoadTickers(path)
	if err != nil {
		return nil, fmt.Errorf("load tickers: %w", err)
	}
	return tickers, nil
}

// tickerSource returns the configured list on every call so a running
// server picks up edits to the file
func (a *app) tickerSource() func() ([]string, error) {
	return func() ([]string, error) { return a.tickers(nil) }
}

// runner builds the pipeline over the raw and fact stores
func (a *app) runner() (*pipeline.Runner, error) {
	return pipeline.New(a.pipeline, pipeline.Deps{
		Raw:     a.raw,
		Facts:   storage.NewCachedStore(a.facts, a.cache, a.metrics, a.log),
		Runs:    a.facts,
		Metrics: a.metrics,
	}, a.log)
}

// acquirer builds the AlphaVantage acquisition loop. It needs an API key.
func (a *app) acquirer() (*acquisition.Acquirer, error) {
	if err := a.cfg.RequireAPIKey(); err != nil {
		return nil, err
	}

	limiter := redis.NewRateLimiter(a.redis, cachePrefix)
	httpClient := httputil.New(a.log, a.cfg.AlphaVantage.Timeout).
		WithRateLimiter(limiter, redis.AlphaVantageBurstLimit)

	attributes := make(map[string]string, len(a.pipeline.Acquisition.Tables))
	for _, t := range a.pipeline.Acquisition.Tables {
		attributes[t.Name] = t.Attribute
	}

	client := alphavantage.NewClient(httpClient, a.cfg.AlphaVantage, attributes, limiter, a.metrics, a.log)
	return acquisition.New(client, a.raw, a.pipeline.AcquisitionNames(), a.metrics, a.log), nil
}
