// Package app wires catalog storage, the result cache and the services on
// top of them from a Config.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/catalogq/internal/cache"
	"github.com/kailas-cloud/catalogq/internal/config"
	dbRedis "github.com/kailas-cloud/catalogq/internal/db/redis"
	"github.com/kailas-cloud/catalogq/internal/db/sqlite"
	domcat "github.com/kailas-cloud/catalogq/internal/domain/catalog"
	"github.com/kailas-cloud/catalogq/internal/metrics"
	catalogrepo "github.com/kailas-cloud/catalogq/internal/repository/catalog"
	"github.com/kailas-cloud/catalogq/internal/repository/catalogmem"
	"github.com/kailas-cloud/catalogq/internal/repository/catalogsql"
	cataloguc "github.com/kailas-cloud/catalogq/internal/usecase/catalog"
	healthuc "github.com/kailas-cloud/catalogq/internal/usecase/health"
	searchuc "github.com/kailas-cloud/catalogq/internal/usecase/search"
)

// catalogStore serves both searches and item writes.
type catalogStore interface {
	searchuc.Fetcher
	cataloguc.Repository
}

// App holds the wired services.
type App struct {
	Search  *searchuc.Service
	Catalog *cataloguc.Service
	Health  *healthuc.Service
	Results *cache.Engine[domcat.Page]

	cfg    *config.Config
	logger *zap.Logger
	pinger healthuc.DBPinger
	close  func() error

	stopOnce sync.Once
	stop     context.CancelFunc
	wg       sync.WaitGroup
}

// Options tune what New wires beyond the config.
type Options struct {
	// Instrument reports to the process-wide Prometheus registry.
	Instrument bool
}

// New opens the storage the config names and wires the services over it.
// cfg must have passed Validate.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	vocabs, err := cfg.Vocabularies()
	if err != nil {
		return nil, err
	}

	store, pinger, closeFn, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	var cacheOpts []cache.Option
	var m searchuc.Metrics
	if opts.Instrument {
		metrics.RegisterQueryMetrics()
		cacheOpts = append(cacheOpts,
			cache.WithCounter(metrics.QueryCacheTotal),
			cache.WithGauge(metrics.CacheEntries),
		)
		m = searchuc.Metrics{
			FetchTotal:    metrics.FetchTotal,
			FetchDuration: metrics.FetchDuration,
			DedupTotal:    metrics.SearchDedupTotal,
		}
	}

	results, err := cache.New[domcat.Page](cfg.CacheSettings(), cacheOpts...)
	if err != nil {
		_ = closeFn()
		return nil, err
	}

	search := searchuc.New(store, results, vocabs, m, logger.Named("search"))
	return &App{
		Search:  search,
		Catalog: cataloguc.New(store, search),
		Health:  healthuc.New(pinger, search, results),
		Results: results,
		cfg:     cfg,
		logger:  logger,
		pinger:  pinger,
		close:   closeFn,
		stop:    func() {},
	}, nil
}

// Start launches the cache janitor and the warmup queries. They stop when
// ctx is done or Close is called.
func (a *App) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	a.stop = cancel

	if a.cfg.Cache.SweepIntervalSec > 0 {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.Results.RunJanitor(ctx, time.Duration(a.cfg.Cache.SweepIntervalSec)*time.Second)
		}()
	}

	if queries := a.cfg.Warmup(); len(queries) > 0 {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			warmed, err := a.Search.Warmup(ctx, queries)
			if err != nil {
				a.logger.Warn("Warmup interrupted", zap.Error(err))
				return
			}
			a.logger.Info("Warmup finished", zap.Int("queries", warmed))
		}()
	}
}

// Ping checks storage connectivity. The in-memory catalog is always up.
func (a *App) Ping(ctx context.Context) error {
	if a.pinger == nil {
		return nil
	}
	return a.pinger.Ping(ctx)
}

// Close stops background work and releases storage.
func (a *App) Close() error {
	var err error
	a.stopOnce.Do(func() {
		a.stop()
		a.wg.Wait()
		err = a.close()
	})
	return err
}

// openStore opens the catalog store named by the database driver. pinger
// is nil when there is nothing to ping.
func openStore(
	ctx context.Context, cfg *config.Config, logger *zap.Logger,
) (catalogStore, healthuc.DBPinger, func() error, error) {
	readiness := time.Duration(cfg.Database.ReadinessTimeout) * time.Second

	switch cfg.Database.Driver {
	case config.DriverRedis, config.DriverValkey:
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:        cfg.Database.Addrs,
			Username:     cfg.Database.Username,
			Password:     cfg.Database.Password,
			NoTextSearch: cfg.Database.Driver == config.DriverValkey,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("create %s store: %w", cfg.Database.Driver, err)
		}
		closeFn := func() error { store.Close(); return nil }
		if err := store.WaitForReady(ctx, readiness); err != nil {
			store.Close()
			return nil, nil, nil, fmt.Errorf("database not ready: %w", err)
		}
		repo := catalogrepo.New(store, cfg.Storage.KeyPrefix, cfg.Search.PageSize)
		for _, ns := range cfg.NamespaceNames() {
			if err := repo.EnsureIndex(ctx, ns); err != nil {
				store.Close()
				return nil, nil, nil, fmt.Errorf("ensure index for %s: %w", ns, err)
			}
		}
		logger.Info("Connected to database",
			zap.String("driver", cfg.Database.Driver),
			zap.Strings("db_addrs", cfg.Database.Addrs),
			zap.Bool("text_search", store.SupportsTextSearch(ctx)),
		)
		return repo, store, closeFn, nil

	case config.DriverSQLite:
		store, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err := store.WaitForReady(ctx, readiness); err != nil {
			return nil, nil, nil, errors.Join(fmt.Errorf("database not ready: %w", err), store.Close())
		}
		logger.Info("Opened database", zap.String("db_path", cfg.Database.Path))
		return catalogsql.New(store.DB(), cfg.Search.PageSize), store, store.Close, nil

	case config.DriverMemory:
		logger.Warn("Serving an in-memory catalog; items are lost on restart")
		return catalogmem.New(cfg.Search.PageSize), nil, func() error { return nil }, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
}
