package commands

import (
	"context"
	"fmt"

	"github.com/wonny/stockscan/internal/backtest"
	"github.com/wonny/stockscan/internal/contracts"
	"github.com/wonny/stockscan/internal/external/dart"
	"github.com/wonny/stockscan/internal/external/naver"
	"github.com/wonny/stockscan/internal/universe"
	"github.com/wonny/stockscan/pkg/config"
	"github.com/wonny/stockscan/pkg/database"
	"github.com/wonny/stockscan/pkg/httputil"
	"github.com/wonny/stockscan/pkg/logger"
	"github.com/wonny/stockscan/pkg/redis"
)

// runtime wires config, providers and the scan pipeline for a command.
// ⭐ SSOT: 커맨드 의존성 조립은 여기서만
type runtime struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *database.DB  // nil when persistence is not configured
	cache    *redis.Client // no-op when Redis is disabled
	engine   *backtest.Engine
	scanner  *backtest.Scanner
	universe contracts.UniverseProvider
	repo     *backtest.Repository // nil without a database
}

// initRuntime loads config and builds the full scan pipeline.
// universeCSV overrides the market-cap ranking universe with a stock list file.
func initRuntime(universeCSV string) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)

	// Naver throttles aggressive chart clients, keep well under their limit
	httpClient := httputil.New(log).WithRateLimit(5, 2)

	naverClient := naver.NewClient(httpClient, log, cfg.Naver)
	dartClient := dart.NewClient(cfg.DART, log)

	var prices contracts.PriceProvider = naverClient
	cache, err := redis.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	if cache.Enabled() {
		store := redis.NewCache(cache, "stockscan")
		prices = naver.NewCachedPriceProvider(naverClient, store, log)
		dartClient.WithCache(store)
		log.Info("Provider cache enabled")
	}

	var filings contracts.FilingProvider
	if dartClient.HasCredentials() {
		filings = dartClient
	} else {
		log.Warn("DART_API_KEY not set, fundamental conditions will match nothing")
	}

	var uni contracts.UniverseProvider
	if universeCSV != "" {
		uni, err = universe.LoadCSV(universeCSV)
		if err != nil {
			return nil, fmt.Errorf("load universe file: %w", err)
		}
	} else {
		uni = universe.NewProvider(naverClient, log, 0)
	}

	engine := backtest.NewEngine(prices, filings, log)
	scanner := backtest.NewScanner(engine, log, cfg.Scan.Workers)

	rt := &runtime{
		cfg:      cfg,
		log:      log,
		cache:    cache,
		engine:   engine,
		scanner:  scanner,
		universe: uni,
	}

	if cfg.HasDatabase() {
		db, err := database.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		repo := backtest.NewRepository(db.Pool)
		if err := repo.EnsureSchema(context.Background()); err != nil {
			db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		rt.db = db
		rt.repo = repo
		log.Info("Connected to database")
	}

	return rt, nil
}

// Close releases database and cache connections
func (rt *runtime) Close() {
	if rt.db != nil {
		rt.db.Close()
	}
	if rt.cache != nil {
		_ = rt.cache.Close()
	}
}
