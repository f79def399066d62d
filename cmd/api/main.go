package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/rrrobertsson/airmango-admin-panel/internal/config"
	"github.com/rrrobertsson/airmango-admin-panel/internal/logging"
	"github.com/rrrobertsson/airmango-admin-panel/internal/metrics"
	miniorepo "github.com/rrrobertsson/airmango-admin-panel/internal/repository/minio"
	"github.com/rrrobertsson/airmango-admin-panel/internal/repository/postgres"
	"github.com/rrrobertsson/airmango-admin-panel/internal/service"
	transport "github.com/rrrobertsson/airmango-admin-panel/internal/transport/http"
	"github.com/rrrobertsson/airmango-admin-panel/internal/upload"
	"github.com/rrrobertsson/airmango-admin-panel/internal/util"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	var (
		shipper *logging.LogstashWriter
		extra   []io.Writer
	)
	if cfg.LogstashTCPAddr != "" {
		shipper, err = logging.NewLogstashWriter(cfg.LogstashTCPAddr)
		if err != nil {
			log.Fatal().Err(err).Msg("logstash writer")
		}
		defer shipper.Close()
		extra = append(extra, shipper)
	}
	logger := logging.New(cfg.LogLevel, extra...)
	log.Logger = logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx)

	db, err := postgres.New(ctx, cfg.DatabaseURL, postgres.PoolOptions{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer db.Close()

	directClient, err := miniorepo.NewClient(cfg.MinIO.Endpoint, cfg.MinIO.DirectAccessKey, cfg.MinIO.DirectSecretKey, cfg.MinIO.UseSSL)
	if err != nil {
		logger.Fatal().Err(err).Msg("minio direct client")
	}
	privilegedClient, err := miniorepo.NewClient(cfg.MinIO.Endpoint, cfg.MinIO.PrivilegedAccessKey, cfg.MinIO.PrivilegedSecretKey, cfg.MinIO.UseSSL)
	if err != nil {
		logger.Fatal().Err(err).Msg("minio privileged client")
	}
	directStorage := miniorepo.NewStorage(directClient, cfg.MinIO.PublicURL)
	privilegedStorage := miniorepo.NewStorage(privilegedClient, cfg.MinIO.PublicURL)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	uploadMetrics := metrics.NewUploadMetrics(registry)
	tripMetrics := metrics.NewTripMetrics(registry)

	users := postgres.NewUserRepo(db)
	sessions := postgres.NewSessionRepo(db)
	trips := postgres.NewTripRepo(db)

	jwtManager := util.NewJWTManager(cfg.JWTSecret, cfg.SessionTTL)
	authService := service.NewAuthService(users, sessions, jwtManager, cfg.IdentityTTL)

	bucketCache := upload.NewBucketCache(cfg.Uploads.BucketCacheTTL)
	privileged := upload.NewUploader(privilegedStorage, upload.UploaderConfig{
		Name:    "privileged",
		Buckets: bucketCache,
		Metrics: uploadMetrics,
	})
	var fallback upload.Transport = privileged
	if cfg.Uploads.RelayURL != "" {
		fallback = upload.NewRelayClient(cfg.Uploads.RelayURL, &http.Client{Timeout: cfg.Uploads.RelayTimeout})
	}
	direct := upload.NewUploader(directStorage, upload.UploaderConfig{
		Name:     "direct",
		Fallback: fallback,
		Buckets:  bucketCache,
		Metrics:  uploadMetrics,
	})

	buckets := service.TripBuckets{DayMedia: cfg.MinIO.BucketDayMedia, Covers: cfg.MinIO.BucketCovers}
	tripService := service.NewTripService(trips)
	saveService := service.NewTripSaveService(trips, privilegedStorage,
		upload.NewCoordinator(authService, direct, cfg.Uploads.Concurrency),
		service.TripSaveConfig{Buckets: buckets, Metrics: tripMetrics})
	deleteService := service.NewTripDeleteService(trips, privilegedStorage, buckets, tripMetrics)
	userService := service.NewUserService(users)

	e := transport.NewRouter(transport.RouterConfig{
		AllowOrigins: cfg.AllowOrigins,
		Logger:       logger,
		Gatherer:     registry,
	})
	transport.RegisterSwagger(e, transport.DefaultSwaggerPath)
	transport.RegisterAuth(e, authService)
	transport.RegisterUsers(e, authService, userService)
	transport.RegisterTrips(e, authService, transport.TripHandlerConfig{
		Reader:    tripService,
		Saver:     saveService,
		Deleter:   deleteService,
		MaxMemory: cfg.Uploads.MaxMemory,
	})
	transport.RegisterUploads(e, authService, transport.UploadHandlerConfig{
		// The relay is the privileged path; it never falls back further.
		Uploader:  upload.NewCoordinator(nil, privileged, cfg.Uploads.Concurrency),
		Buckets:   []string{cfg.MinIO.BucketDayMedia, cfg.MinIO.BucketCovers},
		MaxMemory: cfg.Uploads.MaxMemory,
	})

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("api listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
	if shipper != nil && shipper.Dropped() > 0 {
		logger.Warn().Uint64("dropped", shipper.Dropped()).Msg("log lines dropped while logstash was unreachable")
	}
	logger.Info().Msg("api stopped")
}
