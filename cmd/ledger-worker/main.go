// Command ledger-worker consumes the ledger queue. It purges the
// transactions of deleted wallets and, when a spreadsheet is configured,
// mirrors ledger events to Google Sheets.
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"ledgerly/internal/amqp"
	"ledgerly/internal/cache"
	"ledgerly/internal/cli"
	"ledgerly/internal/config"
	"ledgerly/internal/ledger"
	"ledgerly/internal/log"
	"ledgerly/internal/sheets"
	"ledgerly/internal/sheets/google"
	"ledgerly/internal/stats"
	"ledgerly/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentWorker)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}
	if cfg.DataBackend != config.BackendSQLite {
		logger.Error("The worker needs DATA_BACKEND=sqlite to share data with ledgerd",
			"backend", cfg.DataBackend)
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		_ = repo.Close()
		os.Exit(1)
	}

	// Purges change the stats ledgerd serves, so the worker drops them from
	// the cache both processes share.
	events := ledger.Publishers{client}
	var redisClient *redis.Client
	if cfg.StatsCache == config.StatsCacheRedis {
		redisClient, err = cache.NewRedisClient(context.Background(), cfg.RedisURL)
		if err != nil {
			logger.Error("Failed to connect to the stats cache", log.FieldError, err)
			_ = client.Close()
			_ = repo.Close()
			os.Exit(1)
		}
		reports := cache.NewRedisCache[stats.Report](redisClient, cache.KeyPrefix, cfg.StatsCacheTTL, logger)
		events = append(events, stats.NewCached(stats.NewAggregator(repo, logger), reports))
	} else {
		logger.Warn("STATS_CACHE is not redis, purges will not refresh ledgerd stats until they expire")
	}

	engine := ledger.New(repo, ledger.Config{
		Logger:     logger,
		BatchSize:  cfg.CascadeBatchSize,
		FolderRoot: cfg.UploadFolderRoot,
		Events:     events,
	})

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(context.Context) {
		if err := client.Close(); err != nil {
			logger.Warn("Error closing AMQP client", log.FieldError, err)
		}
		engine.Wait()
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("Error closing redis client", log.FieldError, err)
			}
		}
		if err := repo.Close(); err != nil {
			logger.Warn("Error closing SQLite repository", log.FieldError, err)
		}
	})

	var mirror sheets.Mirror
	if cfg.SheetsEnabled() {
		gs, err := google.New(ctx, google.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		}, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets mirror", log.FieldError, err)
			os.Exit(1)
		}
		mirror = gs
		logger.Info("Sheets mirror enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	}

	processor := worker.NewProcessor(engine, mirror, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting ledger worker",
			"exchange", cfg.AMQPExchange,
			"queue", cfg.AMQPQueue)
		return client.Consume(gctx, processor.Handle)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Consumer stopped with error", log.FieldError, err)
	}

	cli.WaitForShutdown(ctx, done)
}
