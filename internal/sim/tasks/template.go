package tasks

import (
	"fmt"
	"math"

	"mapsmith.ai/internal/geom"
	"mapsmith.ai/internal/render"
	"mapsmith.ai/internal/sim/mapdef"
)

// DeriveBasis finds the quarter-turn/mirror basis that carries the anchor
// delta before onto after in the horizontal plane. Y always stays up.
//
// The dominant horizontal axis of each delta fixes where the template's
// primary axis goes. The remaining axis is fixed by the deltas too when both
// have a non-zero component on it; otherwise it is ambiguous, flippable is
// true, and the proper rotation (no mirror) is chosen.
func DeriveBasis(before, after geom.Vec3) (basis geom.Basis, secondary geom.Axis, flippable bool) {
	mb, ma := dominant(before), dominant(after)
	nb, na := otherHorizontal(mb), otherHorizontal(ma)

	s := sign(before.Axis(mb)) * sign(after.Axis(ma))
	basis = geom.Basis{Y: geom.Unit(geom.AxisY)}
	basis = basis.WithAxis(mb, geom.Unit(ma).Scale(s))

	bn, an := before.Axis(nb), after.Axis(na)
	if bn != 0 && an != 0 {
		basis = basis.WithAxis(nb, geom.Unit(na).Scale(sign(bn)*sign(an)))
		return basis, nb, false
	}
	basis = basis.WithAxis(nb, geom.Unit(na))
	if basis.Det() < 0 {
		basis = basis.WithAxis(nb, geom.Unit(na).Scale(-1))
	}
	return basis, nb, true
}

func dominant(d geom.Vec3) geom.Axis {
	if math.Abs(d.X) >= math.Abs(d.Z) {
		return geom.AxisX
	}
	return geom.AxisZ
}

func otherHorizontal(a geom.Axis) geom.Axis {
	if a == geom.AxisX {
		return geom.AxisZ
	}
	return geom.AxisX
}

func sign(f float64) float64 {
	if f < 0 {
		return -1
	}
	return 1
}

// CopyTemplate previews ref transported onto a new anchor pair and lets the
// operator mirror the ambiguous axis with TRIGGER before committing.
type CopyTemplate struct {
	ref       mapdef.Structure
	anchorA   geom.Vec3
	anchorB   geom.Vec3
	basis     geom.Basis
	secondary geom.Axis
	flippable bool
	done      func(mapdef.Structure)
}

func NewCopyTemplate(ref mapdef.Structure, anchorA, anchorB geom.Vec3, done func(mapdef.Structure)) *CopyTemplate {
	basis, secondary, flippable := DeriveBasis(ref.AnchorB.Sub(ref.AnchorA), anchorB.Sub(anchorA))
	return &CopyTemplate{
		ref:       ref,
		anchorA:   anchorA,
		anchorB:   anchorB,
		basis:     basis,
		secondary: secondary,
		flippable: flippable,
		done:      done,
	}
}

func (t *CopyTemplate) Basis() geom.Basis { return t.basis }
func (t *CopyTemplate) Flippable() bool   { return t.flippable }

// MapPoint carries a point of the template into the new frame.
func (t *CopyTemplate) MapPoint(p geom.Vec3) geom.Vec3 {
	return t.anchorA.Add(t.basis.Apply(p.Sub(t.ref.AnchorA)))
}

// MapBox maps the first and last cells of b and rebuilds the box around them,
// so mirrored boxes keep covering whole cells.
func (t *CopyTemplate) MapBox(b geom.Box) geom.Box {
	return geom.BoxFromCorners(t.MapPoint(b.Min), t.MapPoint(b.LastCell()))
}

// Mapped returns the transported structure; identity fields (id, name, owner)
// are left for the caller.
func (t *CopyTemplate) Mapped() mapdef.Structure {
	out := mapdef.Structure{
		Kind:    mapdef.KindCopy,
		AnchorA: t.anchorA,
		AnchorB: t.anchorB,
		Transform: &mapdef.Transform{
			TemplateID: t.ref.ID,
			Basis:      t.basis,
			Mirrored:   t.basis.Det() < 0,
		},
	}
	for _, p := range t.ref.Points {
		out.Points = append(out.Points, mapdef.NamedPoint{Name: p.Name, Pos: t.MapPoint(p.Pos)})
	}
	for _, r := range t.ref.Regions {
		out.Regions = append(out.Regions, mapdef.NamedBox{Name: r.Name, Box: t.MapBox(r.Box)})
	}
	return out
}

func (t *CopyTemplate) Handle(c *Context, ev Event) Status {
	switch ev.Kind {
	case EventTick:
		m := t.Mapped()
		for _, r := range m.Regions {
			render.Box(c, r.Box, c.Settings().RenderInterval, nil)
		}
		for _, p := range m.Points {
			render.Point(c, p.Pos)
		}
		hint := "confirm to place"
		if t.flippable {
			hint = "trigger to mirror, confirm to place"
		}
		c.Status(fmt.Sprintf("copy of %s: %s (%s)", t.ref.Name, describeBasis(t.basis), hint))
	case EventTrigger:
		if !t.flippable {
			return Continue
		}
		t.basis = t.basis.WithAxis(t.secondary, t.basis.Axis(t.secondary).Scale(-1))
	case EventConfirm:
		if t.done != nil {
			t.done(t.Mapped())
		}
		return Done
	}
	return Continue
}

func describeBasis(b geom.Basis) string {
	turns := "rotated"
	switch {
	case b.X == geom.Unit(geom.AxisX) && b.Det() > 0:
		turns = "no rotation"
	case b.X == geom.Unit(geom.AxisX).Scale(-1) && b.Det() > 0:
		turns = "rotated 180"
	case b.X == geom.Unit(geom.AxisZ).Scale(-1) && b.Det() > 0:
		turns = "rotated 90"
	case b.X == geom.Unit(geom.AxisZ) && b.Det() > 0:
		turns = "rotated 270"
	case b.Det() < 0:
		turns = "mirrored"
	}
	return turns
}
