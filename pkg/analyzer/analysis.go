// Package analyzer decides how an uploaded image maps onto a template spec:
// use it as-is, crop it, scale it, or reject it.
package analyzer

import (
	"errors"
	"fmt"
	"math"

	"card-template-pipeline/pkg/templates"
)

const (
	// RatioTolerance is the relative aspect deviation below which no crop is applied.
	RatioTolerance = 0.005
	// MaxRatioDeviation is the relative aspect deviation above which an image is rejected.
	MaxRatioDeviation = 0.10
)

// ErrInvalidDimensions is returned for non-positive image dimensions.
var ErrInvalidDimensions = errors.New("invalid image dimensions")

// Status classifies an upload against a template spec.
type Status string

const (
	StatusExact         Status = "exact"
	StatusCorrectRatio  Status = "correct_ratio"
	StatusWrongRatio    Status = "wrong_ratio"
	StatusTooSmall      Status = "too_small"
	StatusNotCompatible Status = "not_compatible"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusExact, StatusCorrectRatio, StatusWrongRatio, StatusTooSmall, StatusNotCompatible:
		return true
	}
	return false
}

// Rect is a region in original image pixel coordinates.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Analysis is the outcome of analyzing one upload. It copies the spec fields
// it was computed against so it stays valid without the registry.
type Analysis struct {
	TemplateID     templates.ID `json:"template_id"`
	Status         Status       `json:"status"`
	OriginalWidth  int          `json:"original_width"`
	OriginalHeight int          `json:"original_height"`
	OriginalRatio  float64      `json:"original_ratio"`
	TargetWidth    int          `json:"target_width"`
	TargetHeight   int          `json:"target_height"`
	TargetRatio    float64      `json:"target_ratio"`
	RatioDelta     float64      `json:"ratio_delta"`
	// ScaleFactor is informational only when Status is StatusNotCompatible.
	ScaleFactor float64 `json:"scale_factor"`
	CropRect    *Rect   `json:"crop_rect"`
	Quality     Quality `json:"quality_rating"`
	Message     string  `json:"message"`
}

// NeedsCrop reports whether a crop must be applied before resizing.
func (a Analysis) NeedsCrop() bool {
	return a.CropRect != nil
}

// measurement holds everything the classification rules look at.
type measurement struct {
	exactSize    bool
	ratio        float64
	ratioDelta   float64
	ratioMatches bool
	crop         *Rect
	scaleFactor  float64
}

func measure(width, height int, spec templates.Spec) measurement {
	m := measurement{
		exactSize: width == spec.Width && height == spec.Height,
		ratio:     float64(width) / float64(height),
	}
	m.ratioDelta = math.Abs(m.ratio-spec.AspectRatio) / spec.AspectRatio
	m.ratioMatches = m.ratioDelta <= RatioTolerance

	switch {
	case m.exactSize:
		m.scaleFactor = 1.0
	case m.ratioDelta > MaxRatioDeviation, m.ratioMatches:
		m.scaleFactor = float64(spec.Width) / float64(width)
	default:
		r := CropRect(width, height, spec.AspectRatio)
		m.crop = &r
		m.scaleFactor = float64(spec.Width) / float64(r.Width)
	}
	return m
}

// rule maps a condition on the measurement to a status. Rules are evaluated
// in order and the first match wins.
type rule struct {
	status Status
	match  func(m measurement) bool
}

var rules = []rule{
	{StatusExact, func(m measurement) bool { return m.exactSize }},
	{StatusNotCompatible, func(m measurement) bool { return m.ratioDelta > MaxRatioDeviation }},
	{StatusTooSmall, func(m measurement) bool { return m.scaleFactor > 1.0 }},
	{StatusWrongRatio, func(m measurement) bool { return !m.ratioMatches }},
	{StatusCorrectRatio, func(measurement) bool { return true }},
}

func classify(m measurement) Status {
	for _, r := range rules {
		if r.match(m) {
			return r.status
		}
	}
	return StatusCorrectRatio
}

// Analyze classifies an image of the given size against spec.
func Analyze(width, height int, spec templates.Spec) (Analysis, error) {
	if width <= 0 || height <= 0 {
		return Analysis{}, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	if spec.Width <= 0 || spec.Height <= 0 || spec.AspectRatio <= 0 {
		return Analysis{}, fmt.Errorf("%w: %s", templates.ErrInvalidSpec, spec.ID)
	}

	m := measure(width, height, spec)
	a := Analysis{
		TemplateID:     spec.ID,
		Status:         classify(m),
		OriginalWidth:  width,
		OriginalHeight: height,
		OriginalRatio:  m.ratio,
		TargetWidth:    spec.Width,
		TargetHeight:   spec.Height,
		TargetRatio:    spec.AspectRatio,
		RatioDelta:     m.ratioDelta,
		ScaleFactor:    m.scaleFactor,
		CropRect:       m.crop,
		Quality:        RateQuality(m.scaleFactor),
	}
	a.Message = message(a)
	return a, nil
}

// CropRect returns the largest centered region of a width x height image
// whose aspect ratio is targetRatio. Only one axis is trimmed.
func CropRect(width, height int, targetRatio float64) Rect {
	if float64(width)/float64(height) > targetRatio {
		cropWidth := clamp(int(math.Round(float64(height)*targetRatio)), 1, width)
		return Rect{
			X:      int(math.Round(float64(width-cropWidth) / 2)),
			Y:      0,
			Width:  cropWidth,
			Height: height,
		}
	}
	cropHeight := clamp(int(math.Round(float64(width)/targetRatio)), 1, height)
	return Rect{
		X:      0,
		Y:      int(math.Round(float64(height-cropHeight) / 2)),
		Width:  width,
		Height: cropHeight,
	}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// Analyzer resolves template ids against an injected registry.
type Analyzer struct {
	registry *templates.Registry
}

// New creates an Analyzer over registry.
func New(registry *templates.Registry) *Analyzer {
	return &Analyzer{registry: registry}
}

// AnalyzeTemplate analyzes an image against the spec registered under id.
func (a *Analyzer) AnalyzeTemplate(width, height int, id templates.ID) (Analysis, error) {
	spec, err := a.registry.Lookup(id)
	if err != nil {
		return Analysis{}, err
	}
	return Analyze(width, height, spec)
}

// Registry returns the registry the analyzer resolves against.
func (a *Analyzer) Registry() *templates.Registry {
	return a.registry
}
