package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gmarches/s3catalog/internal/api"
	"github.com/gmarches/s3catalog/internal/audit"
	"github.com/gmarches/s3catalog/internal/cache"
	"github.com/gmarches/s3catalog/internal/config"
	"github.com/gmarches/s3catalog/internal/repository/postgres"
	"github.com/gmarches/s3catalog/internal/service"
	"github.com/gmarches/s3catalog/internal/storage"
	"github.com/gmarches/s3catalog/internal/transform"
	"github.com/gmarches/s3catalog/pkg/logger"
)

func main() {
	cfg := config.Load()

	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
		logger.SetLevel("debug")
	} else {
		gin.SetMode(gin.ReleaseMode)
		logger.UseJSON()
	}

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
	catalogRepo := postgres.NewCatalogRepository(db.DB)

	var sftpKey []byte
	if cfg.SFTP.PrivateKeyFile != "" {
		sftpKey, err = os.ReadFile(cfg.SFTP.PrivateKeyFile)
		if err != nil {
			logger.Log.Fatal().Err(err).Str("file", cfg.SFTP.PrivateKeyFile).Msg("failed to read sftp private key")
		}
	}

	services := &api.Services{
		Scanner: service.NewScanner(store, catalogRepo, auditLog, queryCache,
			service.WithScanPrefix(cfg.Scan.Prefix),
			service.WithScanBatchSize(cfg.Scan.BatchSize),
		),
		Directory: service.NewDirectory(catalogRepo, auditLog, queryCache),
		Grantor:   service.NewGrantor(store, auditLog, cfg.Store.Bucket),

		ExcelConverter: transform.NewExcelConverter(store, auditLog),
		ZipExtractor:   transform.NewZipExtractor(store, auditLog),
		CSVLoader:      transform.NewCSVLoader(store, db.DB, auditLog),
		SFTPSender:     transform.NewSFTPSender(store, auditLog, sftpKey),
	}

	router := api.NewRouter(services, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Log.Info().Msg("server exiting")
}
