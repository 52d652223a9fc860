package sources

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrUnknownSource is returned when a caller asks for a source id that is not
// in the catalog. This is the one error class that surfaces to callers as a
// hard failure; it indicates a caller/config mismatch, not live-data noise.
var ErrUnknownSource = fmt.Errorf("unknown source")

// Registry is the immutable source catalog consulted on every query.
type Registry struct {
	byID  map[string]Descriptor
	order []string
}

// NewRegistry builds a registry from a descriptor list. Descriptor ids must be
// unique and complete.
func NewRegistry(descs []Descriptor) (*Registry, error) {
	r := &Registry{
		byID:  make(map[string]Descriptor, len(descs)),
		order: make([]string, 0, len(descs)),
	}

	for _, d := range descs {
		if d.ID == "" {
			return nil, fmt.Errorf("source descriptor missing id")
		}
		if d.PrimaryLocation == "" {
			return nil, fmt.Errorf("source %q: primary location is required", d.ID)
		}
		if d.PrimaryLayout.OwnerField == "" || d.PrimaryLayout.DimensionField == "" {
			return nil, fmt.Errorf("source %q: primary key layout is incomplete", d.ID)
		}
		if d.AltLayout != nil && d.AltLocation == "" {
			return nil, fmt.Errorf("source %q: alt layout without alt location", d.ID)
		}
		if _, exists := r.byID[d.ID]; exists {
			return nil, fmt.Errorf("duplicate source id %q", d.ID)
		}
		r.byID[d.ID] = d
		r.order = append(r.order, d.ID)
	}

	if len(r.order) == 0 {
		return nil, fmt.Errorf("source catalog is empty")
	}

	return r, nil
}

// Get returns the descriptor for a source id.
func (r *Registry) Get(id string) (Descriptor, error) {
	d, ok := r.byID[id]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownSource, id)
	}
	return d, nil
}

// List returns all descriptors in catalog order.
func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Len returns the number of sources in the catalog.
func (r *Registry) Len() int {
	return len(r.order)
}

// catalogFile is the YAML shape of an external source catalog.
type catalogFile struct {
	Sources []Descriptor `yaml:"sources"`
}

// LoadCatalog reads a YAML catalog file. The file replaces the builtin
// catalog entirely; it is read once at startup.
func LoadCatalog(path string) ([]Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read source catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse source catalog: %w", err)
	}
	if len(file.Sources) == 0 {
		return nil, fmt.Errorf("source catalog %s defines no sources", path)
	}

	return file.Sources, nil
}
