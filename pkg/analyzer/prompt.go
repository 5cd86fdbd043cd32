package analyzer

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Variant is the banner style a prompt is rendered with.
type Variant string

const (
	VariantSuccess Variant = "success"
	VariantInfo    Variant = "info"
	VariantWarning Variant = "warning"
	VariantError   Variant = "error"
)

// Prompt is the user-facing summary of an Analysis.
type Prompt struct {
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Variant        Variant `json:"variant"`
	ShowPreview    bool    `json:"show_preview"`
	ShowCropAdjust bool    `json:"show_crop_adjust"`
}

// BuildPrompt renders the banner shown for a.
func BuildPrompt(a Analysis) Prompt {
	switch a.Status {
	case StatusExact:
		return Prompt{
			Title:       "Perfect fit",
			Description: fmt.Sprintf("Your image is exactly %s and will be used as-is.", dims(a.TargetWidth, a.TargetHeight)),
			Variant:     VariantSuccess,
		}
	case StatusCorrectRatio:
		return Prompt{
			Title: "Image will be resized",
			Description: fmt.Sprintf("Your image (%s) has the right proportions and will be scaled to %s (%s%% of its original size).",
				dims(a.OriginalWidth, a.OriginalHeight), dims(a.TargetWidth, a.TargetHeight), percent(a.ScaleFactor)),
			Variant:     VariantInfo,
			ShowPreview: true,
		}
	case StatusTooSmall:
		desc := fmt.Sprintf("Your image (%s) is smaller than %s and will be enlarged by %s%%. Expected quality: %s.",
			dims(a.OriginalWidth, a.OriginalHeight), dims(a.TargetWidth, a.TargetHeight), percent(a.ScaleFactor-1), a.Quality)
		if trim := trimSentence(a); trim != "" {
			desc += " " + trim
		}
		return Prompt{
			Title:          "Image is smaller than recommended",
			Description:    desc,
			Variant:        VariantWarning,
			ShowPreview:    true,
			ShowCropAdjust: a.CropRect != nil,
		}
	case StatusWrongRatio:
		desc := fmt.Sprintf("Your image's proportions are %s%% off the %s template.",
			percent(a.RatioDelta), dims(a.TargetWidth, a.TargetHeight))
		if trim := trimSentence(a); trim != "" {
			desc += " " + trim
		}
		return Prompt{
			Title:          "Image will be cropped",
			Description:    desc,
			Variant:        VariantWarning,
			ShowPreview:    true,
			ShowCropAdjust: true,
		}
	case StatusNotCompatible:
		return Prompt{
			Title: "Image not compatible",
			Description: fmt.Sprintf("Your image (%s, ratio %s:1) differs from the required %s:1 ratio by %s%%. Upload an image closer to %s.",
				dims(a.OriginalWidth, a.OriginalHeight), ratio(a.OriginalRatio), ratio(a.TargetRatio),
				percent(a.RatioDelta), dims(a.TargetWidth, a.TargetHeight)),
			Variant: VariantError,
		}
	}
	return Prompt{Title: "Unknown result", Description: a.Message, Variant: VariantError}
}

// message is the one-line explanation stored on the Analysis.
func message(a Analysis) string {
	switch a.Status {
	case StatusExact:
		return "image matches the template size exactly"
	case StatusCorrectRatio:
		return fmt.Sprintf("aspect ratio matches; image will be scaled to %s%%", percent(a.ScaleFactor))
	case StatusTooSmall:
		if trimSentence(a) != "" {
			return fmt.Sprintf("image must be cropped and enlarged by %s%% (quality %s)", percent(a.ScaleFactor-1), a.Quality)
		}
		return fmt.Sprintf("image must be enlarged by %s%% (quality %s)", percent(a.ScaleFactor-1), a.Quality)
	case StatusWrongRatio:
		return fmt.Sprintf("aspect ratio is %s%% off; image will be cropped", percent(a.RatioDelta))
	case StatusNotCompatible:
		return fmt.Sprintf("aspect ratio is %s%% off, more than the %s%% allowed", percent(a.RatioDelta), percent(MaxRatioDeviation))
	}
	return ""
}

// trimSentence describes the crop, or returns "" when rounding left the
// frame untouched.
func trimSentence(a Analysis) string {
	c := a.CropRect
	switch {
	case c == nil:
		return ""
	case c.Width < a.OriginalWidth:
		return fmt.Sprintf("%s px will be trimmed from the left and right edges.", humanize.Comma(int64(a.OriginalWidth-c.Width)))
	case c.Height < a.OriginalHeight:
		return fmt.Sprintf("%s px will be trimmed from the top and bottom edges.", humanize.Comma(int64(a.OriginalHeight-c.Height)))
	}
	return ""
}

func dims(w, h int) string {
	return fmt.Sprintf("%s×%s px", humanize.Comma(int64(w)), humanize.Comma(int64(h)))
}

func percent(f float64) string {
	return humanize.FtoaWithDigits(f*100, 1)
}

func ratio(f float64) string {
	return humanize.FtoaWithDigits(f, 2)
}
