package types

import (
	"time"

	"card-template-pipeline/pkg/analyzer"
	"card-template-pipeline/pkg/templates"
)

// TemplateJob is one accepted template upload waiting to be rendered
type TemplateJob struct {
	ID               string             `json:"id"`
	Status           string             `json:"status"`
	TemplateType     templates.ID       `json:"template_type"`
	SourceKey        string             `json:"source_key"`
	OriginalFilename string             `json:"original_filename"`
	SourceSize       int64              `json:"source_size"`
	Output           OutputOptions      `json:"output"`
	Forced           bool               `json:"forced"` // accepted despite a not_compatible analysis
	Analysis         analyzer.Analysis  `json:"analysis"`
	CreatedAt        time.Time          `json:"created_at"`
	CompletedAt      *time.Time         `json:"completed_at,omitempty"`
	Result           *ProcessedTemplate `json:"result,omitempty"`
	Error            string             `json:"error,omitempty"`
}

// OutputOptions controls how the rendered template is encoded
type OutputOptions struct {
	Format  string `json:"format"`  // jpeg, png, webp
	Quality int    `json:"quality"` // 1-100 for JPEG/WebP
}

// ProcessedTemplate is the rendered template written to object storage
type ProcessedTemplate struct {
	OutputKey      string           `json:"output_key"`
	Size           int64            `json:"size"` // file size in bytes
	Width          int              `json:"width"`
	Height         int              `json:"height"`
	Format         string           `json:"format"`
	OriginalWidth  int              `json:"original_width"`
	OriginalHeight int              `json:"original_height"`
	ScaleFactor    float64          `json:"scale_factor"`
	UploadQuality  analyzer.Quality `json:"upload_quality"`
	UploadStatus   analyzer.Status  `json:"upload_status"`
	Cropped        bool             `json:"cropped"`
	ProcessingTime time.Duration    `json:"processing_time"`
}

// IsTerminal returns true once the job will not change again.
func (j *TemplateJob) IsTerminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// JobStatus constants
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// ImageFormat constants
const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
	FormatWebP = "webp"
)

// IsValidFormat reports whether f is a supported output format.
func IsValidFormat(f string) bool {
	switch f {
	case FormatJPEG, FormatPNG, FormatWebP:
		return true
	}
	return false
}
