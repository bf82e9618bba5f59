// Package registry holds the static responder catalogue: which endpoints the
// engine may query, with the origin and cost metadata bias attribution needs.
// The catalogue is read-only at runtime; per-run selection is an explicit
// argument to the dispatcher, never mutable process state.
package registry

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	dErrors "conclave/pkg/domain-errors"
)

// DefaultTimeout applies to catalogue entries that do not set their own.
const DefaultTimeout = 60 * time.Second

// ErrUnknownResponder is returned by Get for ids absent from the catalogue.
var ErrUnknownResponder = dErrors.New(dErrors.CodeNotFound, "unknown responder id")

// Registry is the read-only responder catalogue.
type Registry struct {
	byID  map[string]Descriptor
	order []string
}

// New builds a registry from descriptors. Duplicate ids and missing fields are
// load-time errors; a bad catalogue should fail startup, not a run.
func New(descriptors []Descriptor) (*Registry, error) {
	r := &Registry{byID: make(map[string]Descriptor, len(descriptors))}
	for _, d := range descriptors {
		if d.ID == "" {
			return nil, fmt.Errorf("responder descriptor with empty id")
		}
		if _, dup := r.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate responder id %q", d.ID)
		}
		if d.Origin == "" {
			return nil, fmt.Errorf("responder %q has no origin tag", d.ID)
		}
		if !d.Tier.IsValid() {
			return nil, fmt.Errorf("responder %q has invalid cost tier %q", d.ID, d.Tier)
		}
		if d.Timeout <= 0 {
			d.Timeout = DefaultTimeout
		}
		r.byID[d.ID] = d
		r.order = append(r.order, d.ID)
	}
	sort.Strings(r.order)
	return r, nil
}

// Load builds the registry from the built-in seed catalogue, optionally
// overlaid with descriptors from a YAML file. File entries replace seed
// entries with the same id and may add new ones.
func Load(path string) (*Registry, error) {
	descriptors := seedCatalogue()
	if path != "" {
		overlay, err := readCatalogueFile(path)
		if err != nil {
			return nil, err
		}
		descriptors = applyOverlay(descriptors, overlay)
	}
	return New(descriptors)
}

// Get retrieves a descriptor by id.
func (r *Registry) Get(id string) (Descriptor, error) {
	d, ok := r.byID[id]
	if !ok {
		return Descriptor{}, ErrUnknownResponder
	}
	return d, nil
}

// All returns every descriptor in stable id order.
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Free returns the free-tier descriptors in stable id order. This is the
// "default tier" used when a run names no responders.
func (r *Registry) Free() []Descriptor {
	var out []Descriptor
	for _, id := range r.order {
		if d := r.byID[id]; d.Free {
			out = append(out, d)
		}
	}
	return out
}

// Resolve maps responder ids to descriptors, failing on the first unknown id
// so a mistyped selection surfaces as invalid input rather than a silent skip.
func (r *Registry) Resolve(ids []string) ([]Descriptor, error) {
	out := make([]Descriptor, 0, len(ids))
	for _, id := range ids {
		d, err := r.Get(id)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown responder id: "+id)
		}
		out = append(out, d)
	}
	return out, nil
}

type catalogueFile struct {
	Responders []Descriptor `yaml:"responders"`
}

func readCatalogueFile(path string) ([]Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalogue %s: %w", path, err)
	}
	var f catalogueFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalogue %s: %w", path, err)
	}
	return f.Responders, nil
}

func applyOverlay(base, overlay []Descriptor) []Descriptor {
	merged := make([]Descriptor, 0, len(base)+len(overlay))
	replaced := make(map[string]Descriptor, len(overlay))
	for _, d := range overlay {
		replaced[d.ID] = d
	}
	for _, d := range base {
		if o, ok := replaced[d.ID]; ok {
			merged = append(merged, o)
			delete(replaced, d.ID)
			continue
		}
		merged = append(merged, d)
	}
	for _, d := range overlay {
		if _, still := replaced[d.ID]; still {
			merged = append(merged, d)
		}
	}
	return merged
}
