package tasks

import (
	"fmt"

	"mapsmith.ai/internal/geom"
	"mapsmith.ai/internal/render"
)

// Pick captures a single grid cell: TARGET sets the pending cell, CONFIRM
// accepts it. CONFIRM without a pending cell is ignored.
type Pick struct {
	Label string

	pending *geom.Vec3
	done    func(geom.Vec3)
}

func NewPick(label string, done func(geom.Vec3)) *Pick {
	return &Pick{Label: label, done: done}
}

// Pending returns the currently previewed cell, if any.
func (p *Pick) Pending() (geom.Vec3, bool) {
	if p.pending == nil {
		return geom.Vec3{}, false
	}
	return *p.pending, true
}

func (p *Pick) Handle(c *Context, ev Event) Status {
	switch ev.Kind {
	case EventTargetTrigger:
		cell := ev.Target.Floor()
		p.pending = &cell
	case EventTick:
		if p.pending == nil {
			c.Status(fmt.Sprintf("%s: target a block to pick it", p.Label))
			return Continue
		}
		render.Point(c, *p.pending)
		c.Status(fmt.Sprintf("%s: %s (confirm to accept)", p.Label, *p.pending))
	case EventConfirm:
		if p.pending == nil {
			return Continue
		}
		if p.done != nil {
			p.done(*p.pending)
		}
		return Done
	}
	return Continue
}
