package processor

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	// also the registered "webp" decoder for image.Decode and DecodeConfig
	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"card-template-pipeline/pkg/types"
)

const defaultQuality = 90

var (
	// ErrUnsupportedFormat is returned for output formats we cannot encode.
	ErrUnsupportedFormat = errors.New("unsupported output format")
	// ErrUnsupportedImage is returned for uploads we cannot decode.
	ErrUnsupportedImage = errors.New("unsupported image format")
)

// Dimensions is the header information of an uploaded image.
type Dimensions struct {
	Width  int
	Height int
	Format string
}

// DecodeDimensions reads the image size from r without decoding pixels.
func DecodeDimensions(r io.Reader) (Dimensions, error) {
	cfg, format, err := image.DecodeConfig(r)
	if errors.Is(err, image.ErrFormat) {
		return Dimensions{}, ErrUnsupportedImage
	}
	if err != nil {
		return Dimensions{}, fmt.Errorf("failed to read image header: %w", err)
	}
	return Dimensions{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

// Encode writes img to w in the given format. An empty format means JPEG.
func Encode(w io.Writer, img image.Image, format string, quality int) error {
	if quality <= 0 || quality > 100 {
		quality = defaultQuality
	}

	switch normalizeFormat(format) {
	case types.FormatJPEG:
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case types.FormatPNG:
		return imaging.Encode(w, img, imaging.PNG)
	case types.FormatWebP:
		return webp.Encode(w, img, &webp.Options{Quality: float32(quality)})
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// ContentType returns the MIME type for an output format.
func ContentType(format string) string {
	return "image/" + normalizeFormat(format)
}

func normalizeFormat(format string) string {
	switch format {
	case "", "jpg":
		return types.FormatJPEG
	}
	return format
}
