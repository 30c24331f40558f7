package tasks

import (
	"testing"

	"mapsmith.ai/internal/geom"
	"mapsmith.ai/internal/sim/mapdef"
)

func island() mapdef.Structure {
	return mapdef.Structure{
		ID:      "tpl",
		Name:    "red",
		AnchorA: geom.V(0, 64, 0),
		AnchorB: geom.V(4, 64, 0),
		Points: []mapdef.NamedPoint{
			{Name: "spawn", Pos: geom.V(2, 65, 1)},
			{Name: "generator", Pos: geom.V(-3, 64, 5)},
		},
		Regions: []mapdef.NamedBox{
			{Name: "base", Box: geom.Box{Min: geom.V(0, 64, 0), Max: geom.V(3, 66, 2)}},
		},
	}
}

func TestDeriveBasis_TableOfDiscreteTransforms(t *testing.T) {
	cases := []struct {
		name      string
		before    geom.Vec3
		after     geom.Vec3
		x, z      geom.Vec3
		flippable bool
	}{
		{name: "same", before: geom.V(4, 0, 0), after: geom.V(4, 0, 0), x: geom.V(1, 0, 0), z: geom.V(0, 0, 1), flippable: true},
		{name: "reversed", before: geom.V(4, 0, 0), after: geom.V(-4, 0, 0), x: geom.V(-1, 0, 0), z: geom.V(0, 0, -1), flippable: true},
		{name: "quarter", before: geom.V(4, 0, 0), after: geom.V(0, 0, 4), x: geom.V(0, 0, 1), z: geom.V(-1, 0, 0), flippable: true},
		{name: "quarter back", before: geom.V(4, 0, 0), after: geom.V(0, 0, -4), x: geom.V(0, 0, -1), z: geom.V(1, 0, 0), flippable: true},
		{name: "diagonal identity", before: geom.V(5, 0, 2), after: geom.V(5, 0, 2), x: geom.V(1, 0, 0), z: geom.V(0, 0, 1), flippable: false},
		{name: "diagonal mirror", before: geom.V(5, 0, 2), after: geom.V(5, 0, -2), x: geom.V(1, 0, 0), z: geom.V(0, 0, -1), flippable: false},
	}
	for _, c := range cases {
		b, _, flippable := DeriveBasis(c.before, c.after)
		if b.X != c.x || b.Z != c.z || b.Y != geom.V(0, 1, 0) {
			t.Fatalf("%s: basis=%+v want x=%v z=%v", c.name, b, c.x, c.z)
		}
		if flippable != c.flippable {
			t.Fatalf("%s: flippable=%v want %v", c.name, flippable, c.flippable)
		}
		if c.flippable && b.Det() != 1 {
			t.Fatalf("%s: ambiguous case should default to a rotation, det=%v", c.name, b.Det())
		}
	}
}

func TestCopyTemplate_SameAnchorsIsIdentity(t *testing.T) {
	refs := []mapdef.Structure{island()}
	diag := island()
	diag.AnchorB = geom.V(7, 64, 3)
	refs = append(refs, diag)

	for _, ref := range refs {
		tpl := NewCopyTemplate(ref, ref.AnchorA, ref.AnchorB, nil)
		m := tpl.Mapped()
		for i, p := range ref.Points {
			if m.Points[i].Pos != p.Pos || m.Points[i].Name != p.Name {
				t.Fatalf("point %s mapped to %v want %v", p.Name, m.Points[i].Pos, p.Pos)
			}
		}
		for i, r := range ref.Regions {
			if m.Regions[i].Box != r.Box {
				t.Fatalf("region %s mapped to %v want %v", r.Name, m.Regions[i].Box, r.Box)
			}
		}
		if m.Transform == nil || m.Transform.TemplateID != "tpl" || m.Transform.Mirrored {
			t.Fatalf("unexpected transform %+v", m.Transform)
		}
	}
}

func TestCopyTemplate_QuarterTurnAndMirrorToggle(t *testing.T) {
	c, ports, _ := newTestContext()
	var got []mapdef.Structure
	tpl := NewCopyTemplate(island(), geom.V(100, 64, 100), geom.V(100, 64, 104), func(s mapdef.Structure) { got = append(got, s) })
	r := NewRunner(c, tpl)

	m := tpl.Mapped()
	if p, _ := m.Point("spawn"); p != geom.V(99, 65, 102) {
		t.Fatalf("spawn=%v want (99, 65, 102)", p)
	}
	base, _ := m.Region("base")
	if want := (geom.Box{Min: geom.V(99, 64, 100), Max: geom.V(101, 66, 103)}); base != want {
		t.Fatalf("base=%v want %v", base, want)
	}
	orig, _ := island().Region("base")
	if base.Volume() != orig.Volume() {
		t.Fatalf("volume changed %v -> %v", orig.Volume(), base.Volume())
	}

	ports.reset()
	r.Feed(Tick())
	if len(ports.markers) == 0 || ports.status == "" {
		t.Fatalf("tick should preview the mapped structure")
	}

	r.Feed(Trigger())
	if !tpl.Flippable() || tpl.Basis().Det() != -1 {
		t.Fatalf("trigger should mirror the ambiguous axis, det=%v", tpl.Basis().Det())
	}
	if tpl.Basis().X != geom.V(0, 0, 1) {
		t.Fatalf("primary axis must not change on mirror, got %v", tpl.Basis().X)
	}
	if p, _ := tpl.Mapped().Point("spawn"); p != geom.V(101, 65, 102) {
		t.Fatalf("mirrored spawn=%v want (101, 65, 102)", p)
	}

	if !r.Feed(Confirm()) {
		t.Fatalf("confirm should finish")
	}
	if len(got) != 1 || !got[0].Transform.Mirrored {
		t.Fatalf("sink got %+v", got)
	}
}

func TestCopyTemplate_TriggerIgnoredWhenDetermined(t *testing.T) {
	c, _, _ := newTestContext()
	ref := island()
	ref.AnchorB = geom.V(5, 64, 2)
	tpl := NewCopyTemplate(ref, geom.V(0, 0, 0), geom.V(5, 0, -2), nil)
	r := NewRunner(c, tpl)
	before := tpl.Basis()
	r.Feed(Trigger())
	if tpl.Basis() != before {
		t.Fatalf("basis changed on non-flippable template")
	}
}
