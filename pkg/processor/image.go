package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/disintegration/imaging"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"card-template-pipeline/pkg/analyzer"
	"card-template-pipeline/pkg/storage"
	"card-template-pipeline/pkg/types"
)

var (
	// ErrNotCompatible is returned when rendering an incompatible upload that was not forced.
	ErrNotCompatible = errors.New("image is not compatible with the template")
	// ErrDimensionMismatch is returned when the decoded image differs from the analyzed size.
	ErrDimensionMismatch = errors.New("decoded image size does not match analysis")
	// ErrStorage wraps object storage failures that may succeed on a later attempt.
	ErrStorage = errors.New("object storage unavailable")
)

// ObjectStore is the part of object storage the processor needs.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	GetObject(ctx context.Context, key string) (io.ReadCloser, error)
}

// ImageProcessor renders uploaded images into template assets
type ImageProcessor struct {
	store  ObjectStore
	filter imaging.ResampleFilter
	log    zerolog.Logger
}

// NewImageProcessor creates a processor reading and writing through store.
func NewImageProcessor(store ObjectStore, log zerolog.Logger) *ImageProcessor {
	return &ImageProcessor{
		store:  store,
		filter: imaging.Lanczos,
		log:    log,
	}
}

// ProcessJob crops and scales the job's source image according to its
// analysis and uploads the result.
func (p *ImageProcessor) ProcessJob(ctx context.Context, job *types.TemplateJob) (*types.ProcessedTemplate, error) {
	a := job.Analysis
	if a.Status == analyzer.StatusNotCompatible && !job.Forced {
		return nil, ErrNotCompatible
	}

	startTime := time.Now()
	log := p.log.With().Str("job_id", job.ID).Str("template_type", string(job.TemplateType)).Logger()

	img, err := p.downloadImage(ctx, job.SourceKey)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	if bounds.Dx() != a.OriginalWidth || bounds.Dy() != a.OriginalHeight {
		return nil, fmt.Errorf("%w: decoded %dx%d, analyzed %dx%d",
			ErrDimensionMismatch, bounds.Dx(), bounds.Dy(), a.OriginalWidth, a.OriginalHeight)
	}

	rendered := Render(img, a.CropRect, a.TargetWidth, a.TargetHeight, p.filter)

	var buf bytes.Buffer
	if err := Encode(&buf, rendered, job.Output.Format, job.Output.Quality); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	format := normalizeFormat(job.Output.Format)
	outputKey := storage.TemplateKey(string(job.TemplateType), job.ID, format)
	size := int64(buf.Len())
	if err := p.store.PutObject(ctx, outputKey, &buf, size, ContentType(format)); err != nil {
		return nil, fmt.Errorf("%w: failed to upload result: %w", ErrStorage, err)
	}

	out := rendered.Bounds()
	result := &types.ProcessedTemplate{
		OutputKey:      outputKey,
		Size:           size,
		Width:          out.Dx(),
		Height:         out.Dy(),
		Format:         format,
		OriginalWidth:  a.OriginalWidth,
		OriginalHeight: a.OriginalHeight,
		ScaleFactor:    a.ScaleFactor,
		UploadQuality:  a.Quality,
		UploadStatus:   a.Status,
		Cropped:        a.CropRect != nil,
		ProcessingTime: time.Since(startTime),
	}

	log.Info().
		Str("output_key", outputKey).
		Str("size", humanize.Bytes(uint64(size))).
		Bool("cropped", result.Cropped).
		Float64("scale_factor", a.ScaleFactor).
		Dur("took", result.ProcessingTime).
		Msg("rendered template")

	return result, nil
}

// downloadImage downloads and decodes an image from object storage. A
// missing object is permanent; other storage errors wrap ErrStorage.
func (p *ImageProcessor) downloadImage(ctx context.Context, objectKey string) (image.Image, error) {
	obj, err := p.store.GetObject(ctx, objectKey)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to download image: %w", ErrStorage, err)
	}
	defer obj.Close()

	img, err := imaging.Decode(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// Render extracts crop (when non-nil) from img and resizes it to exactly
// width x height. Without a crop the whole frame is resized.
func Render(img image.Image, crop *analyzer.Rect, width, height int, filter imaging.ResampleFilter) image.Image {
	src := img
	if crop != nil {
		origin := img.Bounds().Min
		src = imaging.Crop(img, image.Rect(
			origin.X+crop.X,
			origin.Y+crop.Y,
			origin.X+crop.X+crop.Width,
			origin.Y+crop.Y+crop.Height,
		))
	}

	if b := src.Bounds(); b.Dx() == width && b.Dy() == height {
		return src
	}
	return imaging.Resize(src, width, height, filter)
}
