package authoring

import (
	"fmt"

	"mapsmith.ai/internal/geom"
	"mapsmith.ai/internal/sim/mapdef"
	"mapsmith.ai/internal/sim/tasks"
)

// Composite runs its steps one after another, each step delegating to a
// single child task, then calls finish once.
type Composite struct {
	steps  []func(c *tasks.Context)
	next   int
	finish func(c *tasks.Context)
}

func (t *Composite) Handle(*tasks.Context, tasks.Event) tasks.Status { return tasks.Continue }

func (t *Composite) Resume(c *tasks.Context) tasks.Status {
	if t.next < len(t.steps) {
		step := t.steps[t.next]
		t.next++
		step(c)
		return tasks.Continue
	}
	if t.finish != nil {
		t.finish(c)
	}
	return tasks.Done
}

// Layout names the points and regions a structure kind is made of.
type Layout struct {
	Kind    string   `yaml:"kind" json:"kind"`
	Points  []string `yaml:"points" json:"points"`
	Regions []string `yaml:"regions" json:"regions"`
}

// NewStructureTask authors a structure: its anchor pair, then every point and
// region of layout, in order. The record is appended once all are confirmed.
func NewStructureTask(def mapdef.Appender, layout Layout, name string) *Composite {
	rec := mapdef.Structure{Name: name, Kind: layout.Kind}
	if rec.Kind == "" {
		rec.Kind = mapdef.KindStructure
	}
	t := &Composite{}

	t.steps = append(t.steps,
		func(c *tasks.Context) {
			c.Await(tasks.NewPick(name+" / anchor A", func(p geom.Vec3) { rec.AnchorA = p }))
		},
		func(c *tasks.Context) {
			c.Await(tasks.NewPick(name+" / anchor B", func(p geom.Vec3) { rec.AnchorB = p }))
		},
	)
	for _, pn := range layout.Points {
		pn := pn
		t.steps = append(t.steps, func(c *tasks.Context) {
			c.Await(tasks.NewPick(name+" / "+pn, func(p geom.Vec3) {
				rec.Points = append(rec.Points, mapdef.NamedPoint{Name: pn, Pos: p})
			}))
		})
	}
	for _, rn := range layout.Regions {
		rn := rn
		t.steps = append(t.steps, func(c *tasks.Context) {
			c.Await(tasks.NewBoxEdit(name+" / "+rn, c.Settings().RenderInterval, func(b geom.Box) {
				rec.Regions = append(rec.Regions, mapdef.NamedBox{Name: rn, Box: b})
			}))
		})
	}
	t.finish = func(c *tasks.Context) { commit(c, def, rec) }
	return t
}

// NewRegionTask authors a single free-standing region. Its anchors are the
// region's first and last cells.
func NewRegionTask(def mapdef.Appender, name string) *Composite {
	rec := mapdef.Structure{Name: name, Kind: mapdef.KindRegion}
	t := &Composite{}
	t.steps = []func(c *tasks.Context){
		func(c *tasks.Context) {
			c.Await(tasks.NewBoxEdit(name, c.Settings().RenderInterval, func(b geom.Box) {
				rec.AnchorA = b.Min
				rec.AnchorB = b.LastCell()
				rec.Regions = []mapdef.NamedBox{{Name: name, Box: b}}
			}))
		},
	}
	t.finish = func(c *tasks.Context) { commit(c, def, rec) }
	return t
}

// NewCopyTask places a copy of ref: the operator picks the new anchor pair,
// then previews and optionally mirrors the transported structure.
func NewCopyTask(def mapdef.Appender, ref mapdef.Structure, name string) *Composite {
	var (
		a, b geom.Vec3
		rec  mapdef.Structure
	)
	t := &Composite{}
	t.steps = []func(c *tasks.Context){
		func(c *tasks.Context) {
			c.Await(tasks.NewPick(name+" / anchor A (as "+ref.Name+")", func(p geom.Vec3) { a = p }))
		},
		func(c *tasks.Context) {
			c.Await(tasks.NewPick(name+" / anchor B (as "+ref.Name+")", func(p geom.Vec3) { b = p }))
		},
		func(c *tasks.Context) {
			c.Await(tasks.NewCopyTemplate(ref, a, b, func(s mapdef.Structure) { rec = s }))
		},
	}
	t.finish = func(c *tasks.Context) {
		rec.Name = name
		commit(c, def, rec)
	}
	return t
}

func commit(c *tasks.Context, def mapdef.Appender, rec mapdef.Structure) {
	rec.Owner = c.Operator()
	rec.CreatedTick = c.Tick()
	stored, err := def.AppendRecord(rec)
	if err != nil {
		c.Notify(fmt.Sprintf("could not save %s: %v", rec.Name, err))
		return
	}
	c.Notify(fmt.Sprintf("saved %s %s (%s)", stored.Kind, stored.Name, stored.ID))
}
