package tasks

import (
	"fmt"
	"math"

	"mapsmith.ai/internal/geom"
	"mapsmith.ai/internal/render"
)

type boxPhase uint8

const (
	boxCorners boxPhase = iota
	boxResize
)

// BoxEdit authors an axis-aligned region in two phases: two corner picks,
// then interactive face dragging. CONFIRM with a face selected ends that
// drag; CONFIRM in neutral finishes the box.
type BoxEdit struct {
	Label    string
	Interval float64

	done  func(geom.Box)
	phase boxPhase

	cornerA, cornerB *geom.Vec3

	box      geom.Box
	face     geom.Face
	dragging bool
	dragDist float64
	cooldown int
	renderIn int
	lastAim  geom.Vec3
	aimKnown bool
}

// NewBoxEdit returns a region editor. interval <= 0 uses the session's
// configured render interval.
func NewBoxEdit(label string, interval float64, done func(geom.Box)) *BoxEdit {
	return &BoxEdit{Label: label, Interval: interval, done: done}
}

// Box returns the region as currently edited.
func (b *BoxEdit) Box() geom.Box { return b.box }

// Selected returns the face being dragged, if any.
func (b *BoxEdit) Selected() (geom.Face, bool) { return b.face, b.dragging }

func (b *BoxEdit) Resume(c *Context) Status {
	if b.phase != boxCorners {
		return Continue
	}
	switch {
	case b.cornerA == nil:
		c.Await(NewPick(b.Label+" / Point A", func(p geom.Vec3) { b.cornerA = &p }))
	case b.cornerB == nil:
		c.Await(NewPick(b.Label+" / Point B", func(p geom.Vec3) { b.cornerB = &p }))
	default:
		b.box = geom.BoxFromCorners(*b.cornerA, *b.cornerB)
		b.phase = boxResize
		b.renderIn = 0
	}
	return Continue
}

func (b *BoxEdit) Handle(c *Context, ev Event) Status {
	if b.phase != boxResize {
		return Continue
	}
	switch ev.Kind {
	case EventTick:
		b.tick(c)
	case EventTrigger:
		b.trySelect(c)
	case EventConfirm:
		if b.dragging {
			b.dragging = false
			b.renderIn = 0
			c.Notify(fmt.Sprintf("%s: face set, %s", b.Label, b.box))
			return Continue
		}
		if b.done != nil {
			b.done(b.box)
		}
		return Done
	}
	return Continue
}

func (b *BoxEdit) tick(c *Context) {
	set := c.Settings()
	if b.cooldown > 0 {
		b.cooldown--
	}

	if pose, ok := c.Pose(); ok {
		aim := b.aimPoint(pose, set.Reach)
		if b.dragging {
			b.drag(aim)
		}
		if !b.aimKnown || aim != b.lastAim {
			b.renderIn = 0
		}
		b.lastAim, b.aimKnown = aim, true
	}

	if b.renderIn <= 0 {
		var hl *geom.Face
		if b.dragging {
			f := b.face
			hl = &f
		}
		interval := b.Interval
		if interval <= 0 {
			interval = set.RenderInterval
		}
		render.Box(c, b.box, interval, hl)
		b.renderIn = set.RenderEveryTicks - 1
	} else {
		b.renderIn--
	}

	if b.dragging {
		c.Status(fmt.Sprintf("%s: dragging %s face, %s (confirm to set)", b.Label, b.face, b.box))
	} else {
		c.Status(fmt.Sprintf("%s: %s (trigger a face to resize, confirm to finish)", b.Label, b.box))
	}
}

// aimPoint snaps the operator's aim to the nearest grid lattice point. While
// dragging, the aim sits at the distance the face was grabbed at.
func (b *BoxEdit) aimPoint(pose Pose, reach float64) geom.Vec3 {
	dist := reach
	if b.dragging {
		dist = b.dragDist
	}
	p := pose.Eye.Add(pose.Dir.Normalize().Scale(dist))
	return geom.Vec3{X: math.Round(p.X), Y: math.Round(p.Y), Z: math.Round(p.Z)}
}

func (b *BoxEdit) trySelect(c *Context) {
	if b.dragging || b.cooldown > 0 {
		return
	}
	b.cooldown = c.Settings().TriggerCooldownTicks
	pose, ok := c.Pose()
	if !ok {
		return
	}
	hit, ok := geom.CastFaces(pose.Eye, pose.Dir.Normalize(), b.box)
	if !ok {
		return
	}
	b.face = hit.Face
	b.dragging = true
	b.dragDist = hit.Distance
	b.renderIn = 0
}

// drag moves the selected face's plane to v on its axis. The box never gets
// thinner than one cell; pulling a face through the opposite one flips the
// selection to that side.
func (b *BoxEdit) drag(aim geom.Vec3) {
	axis := b.face.Axis()
	v := aim.Axis(axis)
	lo, hi := b.box.Min.Axis(axis), b.box.Max.Axis(axis)

	if b.face.Positive() {
		switch {
		case v > lo:
			b.box.Max = b.box.Max.WithAxis(axis, v)
		case v == lo:
			b.box.Max = b.box.Max.WithAxis(axis, lo+1)
		default:
			b.box.Min = b.box.Min.WithAxis(axis, v)
			b.box.Max = b.box.Max.WithAxis(axis, lo+1)
			b.face = b.face.Opposite()
		}
		return
	}
	switch {
	case v < hi:
		b.box.Min = b.box.Min.WithAxis(axis, v)
	case v == hi:
		b.box.Min = b.box.Min.WithAxis(axis, hi-1)
	default:
		b.box.Min = b.box.Min.WithAxis(axis, hi-1)
		b.box.Max = b.box.Max.WithAxis(axis, v)
		b.face = b.face.Opposite()
	}
}
