package api

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"card-template-pipeline/pkg/analyzer"
	"card-template-pipeline/pkg/metrics"
	"card-template-pipeline/pkg/processor"
	"card-template-pipeline/pkg/storage"
	"card-template-pipeline/pkg/templates"
	"card-template-pipeline/pkg/types"
)

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// upload is a decoded multipart template upload.
type upload struct {
	templateType templates.ID
	filename     string
	contentType  string
	data         []byte
	analysis     analyzer.Analysis
}

type analyzeResponse struct {
	Analysis analyzer.Analysis `json:"analysis"`
	Prompt   analyzer.Prompt   `json:"prompt"`
}

func (s *Server) handleListTemplateTypes(c *fiber.Ctx) error {
	reg := s.analyzer.Registry()
	return c.JSON(fiber.Map{
		"version":   reg.Version(),
		"templates": reg.List(),
	})
}

// handleAnalyze reports how an upload would be handled without storing it.
func (s *Server) handleAnalyze(c *fiber.Ctx) error {
	up, err := s.readUpload(c)
	if err != nil {
		return err
	}
	return c.JSON(analyzeResponse{
		Analysis: up.analysis,
		Prompt:   analyzer.BuildPrompt(up.analysis),
	})
}

// handleUpload accepts a template upload and queues it for rendering.
func (s *Server) handleUpload(c *fiber.Ctx) error {
	up, err := s.readUpload(c)
	if err != nil {
		return err
	}

	format := c.FormValue("format", s.cfg.OutputFormat)
	if !types.IsValidFormat(format) {
		return errorResponse(c, fiber.StatusBadRequest, "unsupported output format: "+format)
	}
	force := false
	if raw := c.FormValue("force"); raw != "" {
		if force, err = strconv.ParseBool(raw); err != nil {
			return errorResponse(c, fiber.StatusBadRequest, "force must be true or false")
		}
	}

	prompt := analyzer.BuildPrompt(up.analysis)
	if up.analysis.Status == analyzer.StatusNotCompatible && !force {
		metrics.RecordRejected(string(analyzer.StatusNotCompatible))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":    up.analysis.Message,
			"analysis": up.analysis,
			"prompt":   prompt,
		})
	}

	ctx := c.UserContext()
	jobID := uuid.New().String()
	job := &types.TemplateJob{
		ID:               jobID,
		Status:           types.StatusPending,
		TemplateType:     up.templateType,
		SourceKey:        storage.RawKey(jobID, up.filename),
		OriginalFilename: up.filename,
		SourceSize:       int64(len(up.data)),
		Output:           types.OutputOptions{Format: format, Quality: s.cfg.OutputQuality},
		Forced:           force,
		Analysis:         up.analysis,
		CreatedAt:        time.Now(),
	}
	log := s.log.With().Str("job_id", jobID).Str("template_type", string(up.templateType)).Logger()

	if err := s.objects.PutObject(ctx, job.SourceKey, bytes.NewReader(up.data), job.SourceSize, up.contentType); err != nil {
		log.Error().Err(err).Msg("failed to store upload")
		return errorResponse(c, fiber.StatusInternalServerError, "failed to store upload")
	}

	if err := s.jobs.Save(ctx, job); err != nil {
		log.Error().Err(err).Msg("failed to save job")
		s.removeRaw(c, job.SourceKey)
		return errorResponse(c, fiber.StatusInternalServerError, "failed to save job")
	}

	if err := s.publisher.PublishJob(ctx, job); err != nil {
		log.Error().Err(err).Msg("failed to publish job")
		s.removeRaw(c, job.SourceKey)
		now := time.Now()
		job.Status = types.StatusFailed
		job.Error = "failed to queue job"
		job.CompletedAt = &now
		if err := s.jobs.Save(ctx, job); err != nil {
			log.Error().Err(err).Msg("failed to mark job failed")
		}
		return errorResponse(c, fiber.StatusInternalServerError, "failed to publish job")
	}

	log.Info().
		Str("analysis", string(up.analysis.Status)).
		Str("size", humanize.Bytes(uint64(job.SourceSize))).
		Bool("forced", force).
		Msg("queued template job")

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message": "Job created successfully",
		"job":     job,
		"prompt":  prompt,
	})
}

func (s *Server) removeRaw(c *fiber.Ctx, key string) {
	if err := s.objects.RemoveObject(c.UserContext(), key); err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("failed to remove orphaned upload")
	}
}

// readUpload reads the multipart file, extracts its dimensions and analyzes
// it against the requested template type.
func (s *Server) readUpload(c *fiber.Ctx) (*upload, error) {
	templateType := templates.ID(c.FormValue("template_type"))
	if templateType == "" {
		return nil, fiber.NewError(fiber.StatusBadRequest, "template_type is required")
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "file is required")
	}
	if fh.Size > s.cfg.MaxUploadSize {
		metrics.RecordRejected("too_large")
		return nil, fiber.NewError(fiber.StatusRequestEntityTooLarge,
			"file exceeds "+humanize.Bytes(uint64(s.cfg.MaxUploadSize)))
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "failed to read file")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "failed to read file")
	}

	dims, err := processor.DecodeDimensions(bytes.NewReader(data))
	if err != nil {
		metrics.RecordRejected("undecodable")
		return nil, fiber.NewError(fiber.StatusBadRequest, "file is not a supported image")
	}

	a, err := s.analyzer.AnalyzeTemplate(dims.Width, dims.Height, templateType)
	switch {
	case errors.Is(err, templates.ErrUnknownTemplateSpec):
		return nil, fiber.NewError(fiber.StatusBadRequest, "unknown template_type: "+string(templateType))
	case errors.Is(err, analyzer.ErrInvalidDimensions):
		metrics.RecordRejected("invalid_dimensions")
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	case err != nil:
		return nil, err
	}
	metrics.RecordAnalysis(string(templateType), string(a.Status))

	return &upload{
		templateType: templateType,
		filename:     safeFilename(fh.Filename, dims.Format),
		contentType:  "image/" + dims.Format,
		data:         data,
		analysis:     a,
	}, nil
}

func safeFilename(name, format string) string {
	name = unsafeFilename.ReplaceAllString(filepath.Base(name), "-")
	if name == "" || name == "." || name == "-" {
		return "source." + format
	}
	return name
}
