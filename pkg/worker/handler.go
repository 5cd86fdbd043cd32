package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"card-template-pipeline/pkg/jobstore"
	"card-template-pipeline/pkg/messaging"
	"card-template-pipeline/pkg/metrics"
	"card-template-pipeline/pkg/processor"
	"card-template-pipeline/pkg/repository"
	"card-template-pipeline/pkg/types"
)

// JobStore reads and writes job state.
type JobStore interface {
	Get(ctx context.Context, id string) (*types.TemplateJob, error)
	Save(ctx context.Context, job *types.TemplateJob) error
}

// Processor renders a job's template.
type Processor interface {
	ProcessJob(ctx context.Context, job *types.TemplateJob) (*types.ProcessedTemplate, error)
}

// TemplateRepository persists rendered templates.
type TemplateRepository interface {
	Create(ctx context.Context, rec *repository.TemplateRecord) error
}

// ObjectRemover deletes stored objects.
type ObjectRemover interface {
	RemoveObject(ctx context.Context, key string) error
}

// Handler turns queued template jobs into rendered, persisted templates.
type Handler struct {
	jobs    JobStore
	proc    Processor
	repo    TemplateRepository
	objects ObjectRemover
	log     zerolog.Logger
}

// NewHandler creates a job handler.
func NewHandler(jobs JobStore, proc Processor, repo TemplateRepository, objects ObjectRemover, log zerolog.Logger) *Handler {
	return &Handler{jobs: jobs, proc: proc, repo: repo, objects: objects, log: log}
}

// Handle processes one queued job. Returned errors wrapped with
// messaging.Retryable ask for redelivery.
func (h *Handler) Handle(ctx context.Context, body []byte) error {
	var job types.TemplateJob
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("failed to parse job: %w", err)
	}
	log := h.log.With().Str("job_id", job.ID).Str("template_type", string(job.TemplateType)).Logger()

	current, err := h.jobs.Get(ctx, job.ID)
	switch {
	case err == nil && current.IsTerminal():
		log.Info().Str("status", current.Status).Msg("job already finished, skipping")
		return nil
	case err != nil && !errors.Is(err, jobstore.ErrJobNotFound):
		return messaging.Retryable(err)
	}

	log.Info().Str("analysis", string(job.Analysis.Status)).Bool("forced", job.Forced).Msg("received job")

	job.Status = types.StatusInProgress
	if err := h.jobs.Save(ctx, &job); err != nil {
		return messaging.Retryable(err)
	}

	result, err := h.proc.ProcessJob(ctx, &job)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, processor.ErrStorage) {
			log.Warn().Err(err).Msg("processing interrupted, will retry")
			return messaging.Retryable(err)
		}
		return h.fail(ctx, &job, err, log)
	}
	metrics.ObserveProcessing(string(job.TemplateType), result.ProcessingTime)

	rec := &repository.TemplateRecord{
		ID:               uuid.New(),
		JobID:            job.ID,
		TemplateType:     job.TemplateType,
		OriginalFilename: job.OriginalFilename,
		StorageKey:       result.OutputKey,
		Format:           result.Format,
		Width:            result.Width,
		Height:           result.Height,
		OriginalWidth:    result.OriginalWidth,
		OriginalHeight:   result.OriginalHeight,
		ScaleFactor:      result.ScaleFactor,
		UploadQuality:    result.UploadQuality,
		UploadStatus:     result.UploadStatus,
		Forced:           job.Forced,
		SizeBytes:        result.Size,
		CreatedAt:        time.Now(),
	}
	if err := h.repo.Create(ctx, rec); err != nil {
		log.Error().Err(err).Msg("failed to persist template, removing rendered object")
		if rmErr := h.objects.RemoveObject(ctx, result.OutputKey); rmErr != nil {
			log.Error().Err(rmErr).Str("output_key", result.OutputKey).Msg("failed to remove orphaned object")
		}
		metrics.RecordJob("retry")
		return messaging.Retryable(err)
	}

	now := time.Now()
	job.Status = types.StatusCompleted
	job.Result = result
	job.CompletedAt = &now
	if err := h.jobs.Save(ctx, &job); err != nil {
		return messaging.Retryable(err)
	}

	h.removeSource(ctx, &job, log)
	metrics.RecordJob(types.StatusCompleted)
	log.Info().Str("output_key", result.OutputKey).Msg("finished job")
	return nil
}

// removeSource deletes the raw upload once the job reached a terminal state.
func (h *Handler) removeSource(ctx context.Context, job *types.TemplateJob, log zerolog.Logger) {
	if err := h.objects.RemoveObject(ctx, job.SourceKey); err != nil {
		log.Error().Err(err).Str("source_key", job.SourceKey).Msg("failed to remove raw upload")
	}
}

// fail records a permanent processing failure on the job.
func (h *Handler) fail(ctx context.Context, job *types.TemplateJob, cause error, log zerolog.Logger) error {
	log.Error().Err(cause).Msg("failed to process job")

	now := time.Now()
	job.Status = types.StatusFailed
	job.Error = cause.Error()
	job.CompletedAt = &now
	if err := h.jobs.Save(ctx, job); err != nil {
		return messaging.Retryable(err)
	}

	h.removeSource(ctx, job, log)
	metrics.RecordJob(types.StatusFailed)
	return nil
}
