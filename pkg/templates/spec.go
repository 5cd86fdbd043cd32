package templates

import (
	"errors"
	"fmt"
	"maps"
)

// ID identifies a supported output format
type ID string

// Built-in template types
const (
	PhysicalCard ID = "physical-card"
	AppleWallet  ID = "apple-wallet"
	GoogleWallet ID = "google-wallet"
)

// Category groups template types by the medium they are produced for
type Category string

const (
	CategoryPhysical Category = "physical"
	CategoryDigital  Category = "digital"
)

// IsValid reports whether c is one of the known categories.
func (c Category) IsValid() bool {
	switch c {
	case CategoryPhysical, CategoryDigital:
		return true
	}
	return false
}

var (
	// ErrUnknownTemplateSpec is returned when a template id is not registered.
	ErrUnknownTemplateSpec = errors.New("unknown template spec")
	// ErrInvalidSpec is returned when a spec cannot be constructed.
	ErrInvalidSpec = errors.New("invalid template spec")
)

// Spec is the fixed target geometry for one output format.
type Spec struct {
	ID          ID       `json:"id"`
	Name        string   `json:"name"`
	Width       int      `json:"width"`
	Height      int      `json:"height"`
	AspectRatio float64  `json:"aspect_ratio"`
	Category    Category `json:"category"`
	// GuidePresets are named pixel offsets used by the editor for layout guides.
	GuidePresets map[string]int `json:"guide_presets,omitempty"`
}

// NewSpec builds a Spec and derives its aspect ratio from width and height.
func NewSpec(id ID, name string, width, height int, category Category, guides map[string]int) (Spec, error) {
	if id == "" {
		return Spec{}, fmt.Errorf("%w: empty id", ErrInvalidSpec)
	}
	if width <= 0 || height <= 0 {
		return Spec{}, fmt.Errorf("%w: %s has non-positive size %dx%d", ErrInvalidSpec, id, width, height)
	}
	if !category.IsValid() {
		return Spec{}, fmt.Errorf("%w: %s has unknown category %q", ErrInvalidSpec, id, category)
	}
	return Spec{
		ID:           id,
		Name:         name,
		Width:        width,
		Height:       height,
		AspectRatio:  float64(width) / float64(height),
		Category:     category,
		GuidePresets: maps.Clone(guides),
	}, nil
}

func (s Spec) clone() Spec {
	s.GuidePresets = maps.Clone(s.GuidePresets)
	return s
}

func mustSpec(id ID, name string, width, height int, category Category, guides map[string]int) Spec {
	s, err := NewSpec(id, name, width, height, category, guides)
	if err != nil {
		panic(err)
	}
	return s
}

// Builtin returns the template types shipped with the service.
func Builtin() []Spec {
	return []Spec{
		mustSpec(PhysicalCard, "Physical card", 1013, 638, CategoryPhysical, map[string]int{
			"bleed":         12,
			"safe_margin":   38,
			"corner_radius": 38,
			"chip_left":     110,
			"chip_top":      230,
		}),
		mustSpec(AppleWallet, "Apple Wallet strip", 1125, 432, CategoryDigital, map[string]int{
			"safe_margin": 30,
			"logo_top":    0,
		}),
		mustSpec(GoogleWallet, "Google Wallet hero", 1032, 336, CategoryDigital, map[string]int{
			"safe_margin": 24,
		}),
	}
}
