package api

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"card-template-pipeline/pkg/analyzer"
	"card-template-pipeline/pkg/config"
	"card-template-pipeline/pkg/metrics"
	"card-template-pipeline/pkg/types"
)

// ObjectStore stores raw uploads.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	RemoveObject(ctx context.Context, key string) error
}

// JobStore reads and writes job state.
type JobStore interface {
	Get(ctx context.Context, id string) (*types.TemplateJob, error)
	Save(ctx context.Context, job *types.TemplateJob) error
}

// JobPublisher queues jobs for the worker.
type JobPublisher interface {
	PublishJob(ctx context.Context, job *types.TemplateJob) error
}

// Server serves the template upload API.
type Server struct {
	analyzer  *analyzer.Analyzer
	objects   ObjectStore
	jobs      JobStore
	publisher JobPublisher
	cfg       *config.Config
	log       zerolog.Logger
}

// NewServer creates the upload API server.
func NewServer(
	az *analyzer.Analyzer,
	objects ObjectStore,
	jobs JobStore,
	publisher JobPublisher,
	cfg *config.Config,
	log zerolog.Logger,
) *Server {
	return &Server{
		analyzer:  az,
		objects:   objects,
		jobs:      jobs,
		publisher: publisher,
		cfg:       cfg,
		log:       log,
	}
}

// Routes registers the upload API routes on app.
func (s *Server) Routes(app *fiber.App) {
	app.Get("/health", handleHealth)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	app.Get("/template-types", s.handleListTemplateTypes)
	app.Post("/templates/analyze", s.handleAnalyze)
	app.Post("/templates", s.handleUpload)
}

// NewApp creates a fiber app with JSON errors and panic recovery. bodyLimit
// caps request bodies in bytes.
func NewApp(bodyLimit int, log zerolog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit:             bodyLimit,
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			if code >= fiber.StatusInternalServerError {
				log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})
	app.Use(recover.New())
	return app
}

func handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func errorResponse(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}
