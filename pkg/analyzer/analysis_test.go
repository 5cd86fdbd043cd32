package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"card-template-pipeline/pkg/templates"
)

func cardSpec(t *testing.T) templates.Spec {
	t.Helper()
	s, err := templates.Default().Lookup(templates.PhysicalCard)
	require.NoError(t, err)
	return s
}

func TestAnalyze_ExactMatchForEverySpec(t *testing.T) {
	for _, spec := range templates.Default().List() {
		t.Run(string(spec.ID), func(t *testing.T) {
			a, err := Analyze(spec.Width, spec.Height, spec)
			require.NoError(t, err)
			assert.Equal(t, StatusExact, a.Status)
			assert.Equal(t, 1.0, a.ScaleFactor)
			assert.Nil(t, a.CropRect)
			assert.Equal(t, QualityExcellent, a.Quality)
			assert.Equal(t, spec.ID, a.TemplateID)
		})
	}
}

func TestAnalyze_CardScenarios(t *testing.T) {
	spec := cardSpec(t)

	tests := []struct {
		name    string
		w, h    int
		status  Status
		quality Quality
		scale   float64
		crop    *Rect
	}{
		{"exact", 1013, 638, StatusExact, QualityExcellent, 1.0, nil},
		{"double size", 2026, 1276, StatusCorrectRatio, QualityExcellent, 0.5, nil},
		{"slightly wide and small", 800, 500, StatusTooSmall, QualityFair, 1013.0 / 794.0, &Rect{X: 3, Y: 0, Width: 794, Height: 500}},
		{"square", 600, 600, StatusNotCompatible, QualityPoor, 1013.0 / 600.0, nil},
		{"near ratio downscale", 1200, 755, StatusCorrectRatio, QualityExcellent, 1013.0 / 1200.0, nil},
		{"wide needs crop", 2400, 1400, StatusWrongRatio, QualityExcellent, 1013.0 / 2223.0, &Rect{X: 89, Y: 0, Width: 2223, Height: 1400}},
		{"tall needs crop", 2000, 1300, StatusWrongRatio, QualityExcellent, 1013.0 / 2000.0, &Rect{X: 0, Y: 20, Width: 2000, Height: 1260}},
		{"half size", 506, 319, StatusTooSmall, QualityPoor, 1013.0 / 506.0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Analyze(tt.w, tt.h, spec)
			require.NoError(t, err)
			assert.Equal(t, tt.status, a.Status)
			assert.Equal(t, tt.quality, a.Quality)
			assert.InDelta(t, tt.scale, a.ScaleFactor, 1e-9)
			assert.Equal(t, tt.crop, a.CropRect)
			assert.Equal(t, tt.w, a.OriginalWidth)
			assert.Equal(t, tt.h, a.OriginalHeight)
			assert.Equal(t, 1013, a.TargetWidth)
			assert.Equal(t, 638, a.TargetHeight)
			assert.NotEmpty(t, a.Message)
		})
	}
}

func TestAnalyze_RatioDelta(t *testing.T) {
	spec := cardSpec(t)

	a, err := Analyze(800, 500, spec)
	require.NoError(t, err)
	assert.InDelta(t, 1.6, a.OriginalRatio, 1e-12)
	assert.InDelta(t, 0.0077, a.RatioDelta, 0.0001)

	a, err = Analyze(600, 600, spec)
	require.NoError(t, err)
	assert.InDelta(t, 0.37, a.RatioDelta, 0.001)
}

func TestAnalyze_NotCompatibleDominatesSize(t *testing.T) {
	spec := cardSpec(t)
	for _, d := range [][2]int{{10000, 10000}, {1, 10}, {20000, 5000}, {1013, 1013}, {3, 1}} {
		a, err := Analyze(d[0], d[1], spec)
		require.NoError(t, err)
		assert.Equal(t, StatusNotCompatible, a.Status, "%dx%d", d[0], d[1])
		assert.Nil(t, a.CropRect)
		assert.InDelta(t, float64(spec.Width)/float64(d[0]), a.ScaleFactor, 1e-12)
	}
}

func TestAnalyze_TooSmallKeepsCrop(t *testing.T) {
	spec := cardSpec(t)

	// ~5% too wide and narrower than the template after cropping
	a, err := Analyze(700, 420, spec)
	require.NoError(t, err)
	assert.InDelta(t, 0.05, a.RatioDelta, 0.001)
	assert.Equal(t, StatusTooSmall, a.Status)
	require.NotNil(t, a.CropRect)
	assert.Equal(t, Rect{X: 17, Y: 0, Width: 667, Height: 420}, *a.CropRect)
	assert.Greater(t, a.ScaleFactor, 1.0)
	assert.Equal(t, QualityPoor, a.Quality)
	assert.True(t, a.NeedsCrop())
}

func TestAnalyze_InvalidDimensions(t *testing.T) {
	spec := cardSpec(t)
	for _, d := range [][2]int{{0, 10}, {10, 0}, {-5, 10}, {10, -5}} {
		_, err := Analyze(d[0], d[1], spec)
		assert.ErrorIs(t, err, ErrInvalidDimensions)
	}
}

func TestAnalyze_RejectsUnbuiltSpec(t *testing.T) {
	_, err := Analyze(100, 100, templates.Spec{ID: "raw", Width: 100, Height: 100})
	assert.ErrorIs(t, err, templates.ErrInvalidSpec)
}

func TestAnalyzer_AnalyzeTemplate(t *testing.T) {
	custom, err := templates.NewSpec("square", "Square", 500, 500, templates.CategoryDigital, nil)
	require.NoError(t, err)
	reg, err := templates.NewRegistry(custom)
	require.NoError(t, err)

	az := New(reg)

	a, err := az.AnalyzeTemplate(1000, 1000, "square")
	require.NoError(t, err)
	assert.Equal(t, StatusCorrectRatio, a.Status)
	assert.Equal(t, 0.5, a.ScaleFactor)

	_, err = az.AnalyzeTemplate(1000, 1000, templates.PhysicalCard)
	assert.ErrorIs(t, err, templates.ErrUnknownTemplateSpec)

	_, err = az.AnalyzeTemplate(0, 1000, "square")
	assert.ErrorIs(t, err, ErrInvalidDimensions)
}

func TestClassify_RuleOrder(t *testing.T) {
	tests := []struct {
		name string
		m    measurement
		want Status
	}{
		{"exact wins over everything", measurement{exactSize: true, ratioDelta: 0.5, scaleFactor: 2}, StatusExact},
		{"incompatible wins over too small", measurement{ratioDelta: 0.2, scaleFactor: 2}, StatusNotCompatible},
		{"too small wins over wrong ratio", measurement{ratioDelta: 0.05, scaleFactor: 1.2}, StatusTooSmall},
		{"wrong ratio", measurement{ratioDelta: 0.05, scaleFactor: 0.8}, StatusWrongRatio},
		{"correct ratio", measurement{ratioDelta: 0.001, ratioMatches: true, scaleFactor: 1.0}, StatusCorrectRatio},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.m))
		})
	}
}

func TestCropRect_Invariants(t *testing.T) {
	ratios := []float64{}
	for _, s := range templates.Default().List() {
		ratios = append(ratios, s.AspectRatio)
	}
	ratios = append(ratios, 1.0, 0.75)

	for _, tr := range ratios {
		for w := 300; w <= 3000; w += 137 {
			for h := 300; h <= 3000; h += 149 {
				r := CropRect(w, h, tr)

				assert.GreaterOrEqual(t, r.X, 0)
				assert.GreaterOrEqual(t, r.Y, 0)
				assert.LessOrEqual(t, r.X+r.Width, w)
				assert.LessOrEqual(t, r.Y+r.Height, h)
				assert.True(t, r.X == 0 || r.Y == 0, "crop trims both axes for %dx%d", w, h)
				assert.InEpsilon(t, tr, float64(r.Width)/float64(r.Height), 0.01, "%dx%d @ %f", w, h, tr)

				left, right := r.X, w-r.X-r.Width
				top, bottom := r.Y, h-r.Y-r.Height
				assert.LessOrEqual(t, abs(left-right), 1)
				assert.LessOrEqual(t, abs(top-bottom), 1)
			}
		}
	}
}

func TestCropRect_KeepsFullAxis(t *testing.T) {
	wide := CropRect(2000, 500, 2.0)
	assert.Equal(t, Rect{X: 500, Y: 0, Width: 1000, Height: 500}, wide)

	tall := CropRect(500, 2000, 0.5)
	assert.Equal(t, Rect{X: 0, Y: 500, Width: 500, Height: 1000}, tall)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
