package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"card-template-pipeline/pkg/jobstore"
)

// StatusServer serves job status lookups.
type StatusServer struct {
	jobs JobStore
	log  zerolog.Logger
}

// NewStatusServer creates a status server reading from jobs.
func NewStatusServer(jobs JobStore, log zerolog.Logger) *StatusServer {
	return &StatusServer{jobs: jobs, log: log}
}

// Routes registers the status routes on app.
func (s *StatusServer) Routes(app *fiber.App) {
	app.Get("/health", handleHealth)
	app.Get("/jobs/:id", s.handleGetJob)
}

func (s *StatusServer) handleGetJob(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return errorResponse(c, fiber.StatusBadRequest, "invalid job ID")
	}

	job, err := s.jobs.Get(c.UserContext(), id)
	if errors.Is(err, jobstore.ErrJobNotFound) {
		return errorResponse(c, fiber.StatusNotFound, "job not found")
	}
	if err != nil {
		s.log.Error().Err(err).Str("job_id", id).Msg("failed to get job")
		return errorResponse(c, fiber.StatusInternalServerError, "failed to get job")
	}

	return c.JSON(job)
}
