package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"card-template-pipeline/pkg/analyzer"
	"card-template-pipeline/pkg/api"
	"card-template-pipeline/pkg/config"
	"card-template-pipeline/pkg/jobstore"
	"card-template-pipeline/pkg/logging"
	"card-template-pipeline/pkg/messaging"
	"card-template-pipeline/pkg/storage"
	"card-template-pipeline/pkg/templates"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, "api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry, err := loadRegistry(cfg.TemplateSpecsPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.TemplateSpecsPath).Msg("failed to load template specs")
	}
	log.Info().Str("version", registry.Version()).Int("templates", len(registry.List())).Msg("template specs loaded")

	// --- Redis ---
	rdb, err := jobstore.Connect(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("connected to Redis")

	// --- MinIO ---
	objects, err := storage.WaitForMinIO(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MinIO")
	}
	log.Info().Str("bucket", objects.BucketName).Msg("connected to MinIO")

	// --- RabbitMQ ---
	conn, err := messaging.Dial(ctx, cfg.RabbitURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer conn.Close()
	log.Info().Msg("connected to RabbitMQ")

	ch, err := conn.Channel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open channel")
	}
	defer ch.Close()

	publisher, err := messaging.NewPublisher(ch, cfg.JobsQueue, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to declare queue")
	}

	// --- HTTP Server ---
	app := api.NewApp(int(cfg.MaxUploadSize)+1<<20, log)
	server := api.NewServer(
		analyzer.New(registry),
		objects,
		jobstore.New(rdb, cfg.JobTTL),
		publisher,
		cfg,
		log,
	)
	server.Routes(app)

	go func() {
		log.Info().Str("addr", cfg.APIAddr).Msg("API listening")
		if err := app.Listen(cfg.APIAddr); err != nil {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
}

func loadRegistry(path string) (*templates.Registry, error) {
	if path == "" {
		return templates.Default(), nil
	}
	return templates.LoadFile(path)
}
