package authoring

import (
	"errors"
	"fmt"
	"sort"

	"mapsmith.ai/internal/sim/mapdef"
	"mapsmith.ai/internal/sim/tasks"
)

const (
	StartStructure = "STRUCTURE"
	StartRegion    = "REGION"
	StartCopy      = "COPY"
)

var (
	ErrMissingName     = errors.New("missing name")
	ErrUnknownKind     = errors.New("unknown task kind")
	ErrUnknownLayout   = errors.New("unknown layout")
	ErrUnknownTemplate = errors.New("unknown template")
)

// Store is the part of the map definition the factory needs.
type Store interface {
	mapdef.Appender
	Lookup(ref string) (mapdef.Structure, bool)
}

// StartRequest asks for a new root task for one operator.
type StartRequest struct {
	Kind     string `json:"kind"`
	Name     string `json:"name"`
	Layout   string `json:"layout,omitempty"`
	Template string `json:"template,omitempty"`
}

// Factory builds root tasks from start requests.
type Factory struct {
	store   Store
	layouts map[string]Layout
}

func NewFactory(store Store, layouts map[string]Layout) *Factory {
	cp := make(map[string]Layout, len(layouts))
	for k, v := range layouts {
		cp[k] = v
	}
	return &Factory{store: store, layouts: cp}
}

// Layouts returns the configured layout names in sorted order.
func (f *Factory) Layouts() []string {
	out := make([]string, 0, len(f.layouts))
	for k := range f.layouts {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (f *Factory) New(req StartRequest) (tasks.Task, error) {
	if req.Name == "" {
		return nil, ErrMissingName
	}
	switch req.Kind {
	case StartStructure:
		l, ok := f.layouts[req.Layout]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownLayout, req.Layout)
		}
		return NewStructureTask(f.store, l, req.Name), nil
	case StartRegion:
		return NewRegionTask(f.store, req.Name), nil
	case StartCopy:
		ref, ok := f.store.Lookup(req.Template)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, req.Template)
		}
		return NewCopyTask(f.store, ref, req.Name), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, req.Kind)
	}
}
