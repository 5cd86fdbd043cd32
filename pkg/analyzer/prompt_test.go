package analyzer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateQuality(t *testing.T) {
	tests := []struct {
		scale float64
		want  Quality
	}{
		{0.5, QualityExcellent},
		{1.0, QualityExcellent},
		{1.05, QualityGood},
		{1.1, QualityGood},
		{1.2, QualityFair},
		{1.3, QualityFair},
		{1.3001, QualityPoor},
		{1.5, QualityPoor},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RateQuality(tt.scale), "scale %v", tt.scale)
	}
}

func TestBuildPrompt(t *testing.T) {
	spec := cardSpec(t)

	tests := []struct {
		name       string
		w, h       int
		variant    Variant
		preview    bool
		cropAdjust bool
		contains   string
	}{
		{"exact", 1013, 638, VariantSuccess, false, false, "exactly 1,013×638 px"},
		{"correct ratio", 2026, 1276, VariantInfo, true, false, "(50% of its original size)"},
		{"too small with crop", 800, 500, VariantWarning, true, true, "6 px will be trimmed from the left and right edges"},
		{"too small without crop", 506, 319, VariantWarning, true, false, "enlarged by"},
		{"wrong ratio", 2000, 1300, VariantWarning, true, true, "40 px will be trimmed from the top and bottom edges"},
		{"not compatible", 600, 600, VariantError, false, false, "ratio 1:1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Analyze(tt.w, tt.h, spec)
			require.NoError(t, err)

			p := BuildPrompt(a)
			assert.Equal(t, tt.variant, p.Variant)
			assert.Equal(t, tt.preview, p.ShowPreview)
			assert.Equal(t, tt.cropAdjust, p.ShowCropAdjust)
			assert.NotEmpty(t, p.Title)
			assert.Contains(t, p.Description, tt.contains)
		})
	}
}

func TestBuildPrompt_UntrimmedCropHasNoTrimSentence(t *testing.T) {
	// rounding makes the crop of a 3x2 image cover the whole frame
	a, err := Analyze(3, 2, cardSpec(t))
	require.NoError(t, err)
	require.Equal(t, StatusTooSmall, a.Status)
	require.NotNil(t, a.CropRect)
	require.Equal(t, Rect{X: 0, Y: 0, Width: 3, Height: 2}, *a.CropRect)

	p := BuildPrompt(a)
	assert.NotContains(t, p.Description, "trimmed")
	assert.True(t, strings.HasSuffix(p.Description, "Expected quality: poor."), p.Description)
	assert.NotContains(t, a.Message, "cropped")
}

func TestBuildPrompt_Deterministic(t *testing.T) {
	a, err := Analyze(800, 500, cardSpec(t))
	require.NoError(t, err)
	assert.Equal(t, BuildPrompt(a), BuildPrompt(a))
}

func TestStatusAndQuality_IsValid(t *testing.T) {
	for _, s := range []Status{StatusExact, StatusCorrectRatio, StatusWrongRatio, StatusTooSmall, StatusNotCompatible} {
		assert.True(t, s.IsValid())
	}
	assert.False(t, Status("ok").IsValid())
	assert.True(t, QualityFair.IsValid())
	assert.False(t, Quality("great").IsValid())
}
