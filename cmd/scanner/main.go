// The scanner binary runs the periodic bucket scan: one shot by
// default, or on a fixed interval with -interval. The HTTP server's
// POST /api/v1/scan goes through the same service code.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/gmarches/s3catalog/internal/audit"
	"github.com/gmarches/s3catalog/internal/cache"
	"github.com/gmarches/s3catalog/internal/config"
	"github.com/gmarches/s3catalog/internal/repository/postgres"
	"github.com/gmarches/s3catalog/internal/service"
	"github.com/gmarches/s3catalog/internal/storage"
	"github.com/gmarches/s3catalog/pkg/logger"
)

func main() {
	interval := flag.Duration("interval", 0, "rescan interval (0 runs a single scan and exits)")
	timeout := flag.Duration("timeout", 30*time.Minute, "per-scan timeout")
	flag.Parse()

	cfg := config.Load()
	logger.SetLevel(cfg.Server.Mode)

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := db.EnsureSchema(ctx); err != nil {
		cancel()
		logger.Log.Fatal().Err(err).Msg("failed to ensure schema")
	}
	cancel()

	store, err := storage.NewMinioClient(cfg.Store)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("failed to create object store client")
	}

	queryCache, err := cache.NewQueryCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("query cache unavailable, continuing without it")
		queryCache = cache.NewNoopQueryCache()
	}

	auditLog := audit.NewLogger(postgres.NewAuditRepository(db.DB))
	scanner := service.NewScanner(store, postgres.NewCatalogRepository(db.DB), auditLog, queryCache,
		service.WithScanPrefix(cfg.Scan.Prefix),
		service.WithScanBatchSize(cfg.Scan.BatchSize),
	)

	runScan := func() {
		scanCtx, scanCancel := context.WithTimeout(context.Background(), *timeout)
		defer scanCancel()

		start := time.Now()
		result, err := scanner.Scan(scanCtx)
		if err != nil {
			logger.Log.Error().Err(err).Msg("scan failed")
			return
		}
		logger.Log.Info().
			Str("scan_date", result.ScanDate).
			Int64("files_processed", result.FilesProcessed).
			Int64("total_size", result.TotalSizeBytes).
			Dur("elapsed", time.Since(start)).
			Msg("scan finished")
	}

	runScan()
	if *interval <= 0 {
		return
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for range ticker.C {
		runScan()
	}
}
