package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"card-template-pipeline/pkg/config"
	"card-template-pipeline/pkg/jobstore"
	"card-template-pipeline/pkg/logging"
	"card-template-pipeline/pkg/messaging"
	"card-template-pipeline/pkg/metrics"
	"card-template-pipeline/pkg/processor"
	"card-template-pipeline/pkg/repository"
	"card-template-pipeline/pkg/storage"
	"card-template-pipeline/pkg/worker"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, "worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to Redis
	rdb, err := jobstore.Connect(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Redis connection failed")
	}
	defer rdb.Close()
	log.Info().Msg("connected to Redis")

	// Connect to PostgreSQL
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("PostgreSQL connection failed")
	}
	defer pool.Close()

	repo := repository.NewTemplateRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure schema")
	}
	log.Info().Msg("connected to PostgreSQL")

	// Wait for MinIO
	objects, err := storage.WaitForMinIO(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("MinIO connection failed")
	}
	log.Info().Str("bucket", objects.BucketName).Msg("connected to MinIO")

	// Connect to RabbitMQ
	conn, err := messaging.Dial(ctx, cfg.RabbitURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("RabbitMQ connection failed")
	}
	defer conn.Close()
	log.Info().Msg("connected to RabbitMQ")

	ch, err := conn.Channel()
	if err != nil {
		log.Fatal().Err(err).Msg("RabbitMQ channel creation failed")
	}
	defer ch.Close()

	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: metrics.Handler()}
	go func() {
		log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listening")
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()

	proc := processor.NewImageProcessor(objects, log)
	handler := worker.NewHandler(jobstore.New(rdb, cfg.JobTTL), proc, repo, objects, log)

	log.Info().Int("concurrency", cfg.WorkerConcurrency).Msg("worker started, waiting for jobs")
	if err := messaging.Consume(ctx, ch, cfg.JobsQueue, cfg.WorkerConcurrency, handler.Handle, log); err != nil {
		log.Error().Err(err).Msg("consumer stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("metrics shutdown failed")
	}
	log.Info().Msg("worker stopped")
}
