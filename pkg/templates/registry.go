package templates

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Registry is a read-only set of template specs. It is built once at
// startup and handed to whoever needs it.
type Registry struct {
	version string
	specs   map[ID]Spec
	order   []ID
}

// NewRegistry builds a registry from specs. Duplicate ids are rejected.
func NewRegistry(specs ...Spec) (*Registry, error) {
	r := &Registry{specs: make(map[ID]Spec, len(specs))}
	for _, s := range specs {
		if _, dup := r.specs[s.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %s", ErrInvalidSpec, s.ID)
		}
		r.specs[s.ID] = s.clone()
		r.order = append(r.order, s.ID)
	}
	return r, nil
}

// Default returns a registry holding the built-in specs.
func Default() *Registry {
	r, err := NewRegistry(Builtin()...)
	if err != nil {
		panic(err)
	}
	r.version = "builtin"
	return r
}

// Lookup returns a copy of the spec registered under id.
func (r *Registry) Lookup(id ID) (Spec, error) {
	s, ok := r.specs[id]
	if !ok {
		return Spec{}, fmt.Errorf("%w: %q", ErrUnknownTemplateSpec, id)
	}
	return s.clone(), nil
}

// List returns all specs in registration order.
func (r *Registry) List() []Spec {
	out := make([]Spec, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.specs[id].clone())
	}
	return out
}

// Version is the version label of the source the registry was built from.
func (r *Registry) Version() string {
	return r.version
}

// fileFormat is the on-disk layout of a template spec file.
type fileFormat struct {
	Version   string `yaml:"version"`
	Templates []struct {
		ID       string         `yaml:"id"`
		Name     string         `yaml:"name"`
		Width    int            `yaml:"width"`
		Height   int            `yaml:"height"`
		Category string         `yaml:"category"`
		Guides   map[string]int `yaml:"guide_presets"`
	} `yaml:"templates"`
}

// Parse builds a registry from a YAML document. Aspect ratios are always
// derived from width and height, never read from the document.
func Parse(data []byte) (*Registry, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse template specs: %w", err)
	}
	if len(f.Templates) == 0 {
		return nil, fmt.Errorf("%w: no templates defined", ErrInvalidSpec)
	}

	specs := make([]Spec, 0, len(f.Templates))
	for _, t := range f.Templates {
		s, err := NewSpec(ID(t.ID), t.Name, t.Width, t.Height, Category(t.Category), t.Guides)
		if err != nil {
			return nil, err
		}
		specs = append(specs, s)
	}

	r, err := NewRegistry(specs...)
	if err != nil {
		return nil, err
	}
	r.version = f.Version
	return r, nil
}

// LoadFile reads a YAML template spec file.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template specs: %w", err)
	}
	return Parse(data)
}
