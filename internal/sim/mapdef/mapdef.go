package mapdef

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"mapsmith.ai/internal/geom"
)

const (
	KindStructure = "STRUCTURE"
	KindRegion    = "REGION"
	KindCopy      = "COPY"
)

type NamedPoint struct {
	Name string    `json:"name"`
	Pos  geom.Vec3 `json:"pos"`
}

type NamedBox struct {
	Name string   `json:"name"`
	Box  geom.Box `json:"box"`
}

// Transform records how a copied structure was derived from its template.
type Transform struct {
	TemplateID string     `json:"template_id"`
	Basis      geom.Basis `json:"basis"`
	Mirrored   bool       `json:"mirrored,omitempty"`
}

// Structure is one authored record: an anchor pair plus named points and
// regions laid out relative to it.
type Structure struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Kind        string       `json:"kind"`
	Owner       string       `json:"owner"`
	AnchorA     geom.Vec3    `json:"anchor_a"`
	AnchorB     geom.Vec3    `json:"anchor_b"`
	Points      []NamedPoint `json:"points,omitempty"`
	Regions     []NamedBox   `json:"regions,omitempty"`
	Transform   *Transform   `json:"transform,omitempty"`
	CreatedTick uint64       `json:"created_tick"`
}

func (s Structure) Point(name string) (geom.Vec3, bool) {
	for _, p := range s.Points {
		if p.Name == name {
			return p.Pos, true
		}
	}
	return geom.Vec3{}, false
}

func (s Structure) Region(name string) (geom.Box, bool) {
	for _, r := range s.Regions {
		if r.Name == name {
			return r.Box, true
		}
	}
	return geom.Box{}, false
}

func (s Structure) clone() Structure {
	s.Points = append([]NamedPoint(nil), s.Points...)
	s.Regions = append([]NamedBox(nil), s.Regions...)
	if s.Transform != nil {
		t := *s.Transform
		s.Transform = &t
	}
	return s
}

// Appender is the write side of a map definition. Authoring tasks append
// exactly once, on successful completion.
type Appender interface {
	AppendRecord(s Structure) (Structure, error)
}

// Definition is the in-memory map definition. It is written from the
// scheduler goroutine and may be read from any goroutine.
type Definition struct {
	name string
	ns   uuid.UUID

	mu         sync.RWMutex
	structures []Structure
	byID       map[string]int
	listeners  []func(Structure)
}

func New(name string) *Definition {
	return &Definition{
		name: name,
		ns:   uuid.NewSHA1(uuid.NameSpaceURL, []byte("mapsmith:"+name)),
		byID: map[string]int{},
	}
}

func (d *Definition) Name() string { return d.name }

// OnAppend registers fn to be called, outside the lock, after every successful
// append. Listeners must not block.
func (d *Definition) OnAppend(fn func(Structure)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, fn)
}

// AppendRecord stores s. An empty ID is replaced with a name-based UUID derived
// from the definition name and the record's position, so replays assign the
// same ids.
func (d *Definition) AppendRecord(s Structure) (Structure, error) {
	if s.Name == "" {
		return Structure{}, fmt.Errorf("mapdef: structure without name")
	}
	d.mu.Lock()
	if s.ID == "" {
		s.ID = uuid.NewSHA1(d.ns, []byte(fmt.Sprintf("%d/%s/%s", len(d.structures), s.Owner, s.Name))).String()
	}
	if _, dup := d.byID[s.ID]; dup {
		d.mu.Unlock()
		return Structure{}, fmt.Errorf("mapdef: duplicate structure id %s", s.ID)
	}
	s = s.clone()
	d.byID[s.ID] = len(d.structures)
	d.structures = append(d.structures, s)
	listeners := append([]func(Structure){}, d.listeners...)
	d.mu.Unlock()

	for _, fn := range listeners {
		fn(s.clone())
	}
	return s.clone(), nil
}

func (d *Definition) Get(id string) (Structure, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	i, ok := d.byID[id]
	if !ok {
		return Structure{}, false
	}
	return d.structures[i].clone(), true
}

// Lookup resolves a structure by id, falling back to the most recent
// structure with that name.
func (d *Definition) Lookup(ref string) (Structure, bool) {
	if s, ok := d.Get(ref); ok {
		return s, true
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	for i := len(d.structures) - 1; i >= 0; i-- {
		if d.structures[i].Name == ref {
			return d.structures[i].clone(), true
		}
	}
	return Structure{}, false
}

func (d *Definition) Structures() []Structure {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Structure, 0, len(d.structures))
	for _, s := range d.structures {
		out = append(out, s.clone())
	}
	return out
}

func (d *Definition) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.structures)
}

// Digest hashes the ordered structure list.
func (d *Definition) Digest() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	h := sha256.New()
	enc := json.NewEncoder(h)
	for _, s := range d.structures {
		_ = enc.Encode(s)
	}
	return hex.EncodeToString(h.Sum(nil))
}
