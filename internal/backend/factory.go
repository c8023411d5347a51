package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ledgerly/internal/amqp"
	"ledgerly/internal/cache"
	"ledgerly/internal/config"
	"ledgerly/internal/ledger"
	"ledgerly/internal/log"
	"ledgerly/internal/stats"
	"ledgerly/internal/storage"
	"ledgerly/internal/storage/memory"
	"ledgerly/internal/upload"
)

const (
	statsCacheSize       = 500
	statsCleanupInterval = time.Minute
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger}
}

// cleanups runs registered release functions in reverse order.
type cleanups []func() error

func (c cleanups) run() error {
	var errs []error
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, cfg Config) (*BackendResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var release cleanups
	fail := func(err error) (*BackendResult, error) {
		if cerr := release.run(); cerr != nil {
			f.logger.Warn("Cleanup after failed backend creation", log.FieldError, cerr)
		}
		return nil, err
	}

	store, ready, err := f.createStore(cfg, &release)
	if err != nil {
		return fail(err)
	}

	uploader, err := f.createUploader(cfg)
	if err != nil {
		return fail(err)
	}

	amqpClient, err := f.createAMQPClient(cfg, &release)
	if err != nil {
		return fail(err)
	}

	reportCache, cacheReady, err := f.createStatsCache(ctx, cfg, &release)
	if err != nil {
		return fail(err)
	}
	cachedStats := stats.NewCached(stats.NewAggregator(store, f.logger), reportCache)

	events := ledger.Publishers{cachedStats}
	engineCfg := ledger.Config{
		Uploader:   uploader,
		Logger:     f.logger,
		BatchSize:  cfg.CascadeBatchSize,
		FolderRoot: cfg.UploadFolderRoot,
	}
	if amqpClient != nil {
		events = append(events, amqpClient)
		if cfg.CascadeMode == config.CascadeAMQP {
			engineCfg.Dispatcher = amqpClient
		}
	}
	engineCfg.Events = events

	engine := ledger.New(store, engineCfg)
	release = append(release, func() error {
		engine.Wait()
		return nil
	})

	f.logger.Info("Initialized backend",
		"backend", cfg.Type.String(),
		"cascade_mode", cfg.CascadeMode,
		"upload_provider", cfg.UploadProvider,
		"stats_cache", cfg.StatsCache,
		"amqp_enabled", amqpClient != nil)

	return &BackendResult{
		Backend: &Backend{
			Engine: engine,
			Stats:  cachedStats,
			Store:  store,
			Ready: func(ctx context.Context) error {
				if err := ready(ctx); err != nil {
					return err
				}
				return cacheReady(ctx)
			},
		},
		Cleanup: release.run,
	}, nil
}

func noopReady(context.Context) error { return nil }

func (f *DefaultFactory) createStore(cfg Config, release *cleanups) (ledger.Store, func(context.Context) error, error) {
	switch cfg.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		*release = append(*release, repo.Close)
		f.logger.Info("Initialized SQLite store", "db_path", cfg.SQLiteDBPath, "schema_version", repo.SchemaVersion())
		return repo, repo.Ping, nil
	case MemoryBackend:
		f.logger.Info("Initialized memory store")
		return memory.New(), noopReady, nil
	default:
		return nil, nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
}

func (f *DefaultFactory) createUploader(cfg Config) (ledger.Uploader, error) {
	if cfg.UploadProvider != config.UploadCloudinary {
		return ledger.PassthroughUploader{}, nil
	}
	c, err := upload.NewCloudinary(upload.Config{
		CloudName:    cfg.CloudinaryCloudName,
		UploadPreset: cfg.CloudinaryUploadPreset,
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary uploader: %w", err)
	}
	return c, nil
}

// createAMQPClient connects to the broker when one is configured. Losing the
// broker only costs event forwarding unless purges depend on it.
func (f *DefaultFactory) createAMQPClient(cfg Config, release *cleanups) (*amqp.Client, error) {
	if cfg.AMQPURL == "" {
		return nil, nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, f.logger)
	if err != nil {
		if cfg.CascadeMode == config.CascadeAMQP {
			return nil, fmt.Errorf("failed to initialize AMQP client: %w", err)
		}
		f.logger.Warn("Failed to initialize AMQP client, continuing without event forwarding", log.FieldError, err)
		return nil, nil
	}
	*release = append(*release, client.Close)
	f.logger.Info("Initialized AMQP client",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)
	return client, nil
}

func (f *DefaultFactory) createStatsCache(ctx context.Context, cfg Config, release *cleanups) (cache.Cache[stats.Report], func(context.Context) error, error) {
	ttl := cfg.StatsCacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	if cfg.StatsCache == config.StatsCacheRedis {
		client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize redis stats cache: %w", err)
		}
		*release = append(*release, client.Close)
		f.logger.Info("Initialized redis stats cache", "ttl", ttl.String())
		ready := func(ctx context.Context) error { return client.Ping(ctx).Err() }
		return cache.NewRedisCache[stats.Report](client, cache.KeyPrefix, ttl, f.logger), ready, nil
	}

	lru := cache.NewLRUCache[stats.Report](statsCacheSize, ttl)
	manager := cache.NewManager(f.logger)
	manager.Register(lru)
	manager.StartCleanup(statsCleanupInterval)
	*release = append(*release, func() error {
		manager.Stop()
		return nil
	})
	return lru, noopReady, nil
}
