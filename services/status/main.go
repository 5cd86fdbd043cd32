package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"card-template-pipeline/pkg/api"
	"card-template-pipeline/pkg/config"
	"card-template-pipeline/pkg/jobstore"
	"card-template-pipeline/pkg/logging"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, "status")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to Redis
	rdb, err := jobstore.Connect(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("connected to Redis")

	app := api.NewApp(1<<20, log)
	api.NewStatusServer(jobstore.New(rdb, cfg.JobTTL), log).Routes(app)

	go func() {
		log.Info().Str("addr", cfg.StatusAddr).Msg("status service listening")
		if err := app.Listen(cfg.StatusAddr); err != nil {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
}
