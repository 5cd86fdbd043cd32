package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"card-template-pipeline/pkg/analyzer"
	"card-template-pipeline/pkg/templates"
)

// ErrTemplateNotFound is returned when a template record does not exist.
var ErrTemplateNotFound = errors.New("template record not found")

// TemplateRecord is the persisted result of a rendered template upload.
type TemplateRecord struct {
	ID               uuid.UUID
	JobID            string
	TemplateType     templates.ID
	OriginalFilename string
	StorageKey       string
	Format           string
	Width            int
	Height           int
	OriginalWidth    int
	OriginalHeight   int
	ScaleFactor      float64
	UploadQuality    analyzer.Quality
	UploadStatus     analyzer.Status
	Forced           bool
	SizeBytes        int64
	CreatedAt        time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS card_templates (
	id                UUID PRIMARY KEY,
	job_id            TEXT NOT NULL UNIQUE,
	template_type     TEXT NOT NULL,
	original_filename TEXT NOT NULL DEFAULT '',
	storage_key       TEXT NOT NULL,
	format            TEXT NOT NULL,
	width             INTEGER NOT NULL,
	height            INTEGER NOT NULL,
	original_width    INTEGER NOT NULL,
	original_height   INTEGER NOT NULL,
	scale_factor      DOUBLE PRECISION NOT NULL,
	upload_quality    TEXT NOT NULL,
	upload_status     TEXT NOT NULL,
	forced            BOOLEAN NOT NULL DEFAULT FALSE,
	size_bytes        BIGINT NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL
)`

// TemplateRepository handles database operations for rendered templates.
type TemplateRepository struct {
	pool *pgxpool.Pool
}

// NewTemplateRepository creates a new template repository.
func NewTemplateRepository(pool *pgxpool.Pool) *TemplateRepository {
	return &TemplateRepository{pool: pool}
}

// EnsureSchema creates the card_templates table if needed.
func (r *TemplateRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Create inserts a template record. Redelivered jobs are ignored by job_id.
func (r *TemplateRepository) Create(ctx context.Context, rec *TemplateRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO card_templates (id, job_id, template_type, original_filename, storage_key, format,
			width, height, original_width, original_height, scale_factor, upload_quality, upload_status,
			forced, size_bytes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (job_id) DO NOTHING
	`, rec.ID, rec.JobID, rec.TemplateType, rec.OriginalFilename, rec.StorageKey, rec.Format,
		rec.Width, rec.Height, rec.OriginalWidth, rec.OriginalHeight, rec.ScaleFactor, rec.UploadQuality,
		rec.UploadStatus, rec.Forced, rec.SizeBytes, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create template record: %w", err)
	}
	return nil
}

// GetByID retrieves a template record by ID. It returns ErrTemplateNotFound
// when no record has that ID.
func (r *TemplateRepository) GetByID(ctx context.Context, id uuid.UUID) (*TemplateRecord, error) {
	var rec TemplateRecord
	err := r.pool.QueryRow(ctx, `
		SELECT id, job_id, template_type, original_filename, storage_key, format, width, height,
			original_width, original_height, scale_factor, upload_quality, upload_status, forced,
			size_bytes, created_at
		FROM card_templates WHERE id = $1
	`, id).Scan(&rec.ID, &rec.JobID, &rec.TemplateType, &rec.OriginalFilename, &rec.StorageKey, &rec.Format,
		&rec.Width, &rec.Height, &rec.OriginalWidth, &rec.OriginalHeight, &rec.ScaleFactor, &rec.UploadQuality,
		&rec.UploadStatus, &rec.Forced, &rec.SizeBytes, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTemplateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template record: %w", err)
	}
	return &rec, nil
}
