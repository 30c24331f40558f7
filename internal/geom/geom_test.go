package geom

import (
	"math"
	"testing"
)

func TestBoxFromCorners_NormalizesAndCountsCells(t *testing.T) {
	cases := []struct {
		a, b Vec3
	}{
		{a: V(0, 0, 0), b: V(3, 0, 3)},
		{a: V(3, 0, 3), b: V(0, 0, 0)},
		{a: V(-5, 10, 2), b: V(4, -2, 2)},
		{a: V(7, 7, 7), b: V(7, 7, 7)},
		{a: V(1.9, -0.5, 3.2), b: V(-2.1, 4, 0)},
	}
	for _, c := range cases {
		box := BoxFromCorners(c.a, c.b)
		if !box.Valid() {
			t.Fatalf("BoxFromCorners(%v,%v)=%v is not valid", c.a, c.b, box)
		}
		fa, fb := c.a.Floor(), c.b.Floor()
		want := (math.Abs(fa.X-fb.X) + 1) * (math.Abs(fa.Y-fb.Y) + 1) * (math.Abs(fa.Z-fb.Z) + 1)
		if got := box.Volume(); got != want {
			t.Fatalf("volume of %v = %v want %v", box, got, want)
		}
	}

	box := BoxFromCorners(V(0, 0, 0), V(3, 0, 3))
	if box.Min != V(0, 0, 0) || box.Max != V(4, 1, 4) {
		t.Fatalf("unexpected box %v", box)
	}
}

func TestFace_OppositeAndAxis(t *testing.T) {
	for _, f := range Faces {
		o := f.Opposite()
		if o.Opposite() != f {
			t.Fatalf("%v opposite twice = %v", f, o.Opposite())
		}
		if o.Axis() != f.Axis() || o.Positive() == f.Positive() {
			t.Fatalf("%v opposite %v has wrong axis/sign", f, o)
		}
	}
	if PosX.String() != "+X" || NegZ.String() != "-Z" {
		t.Fatalf("face names: %s %s", PosX, NegZ)
	}
}

func TestIntersectAxisPlane_Parallel(t *testing.T) {
	if _, ok := IntersectAxisPlane(V(0, 0, 0), V(0, 1, 0), AxisX, 5); ok {
		t.Fatalf("parallel ray should not intersect")
	}
	s, ok := IntersectAxisPlane(V(0, 0, 0), V(2, 0, 0), AxisX, 5)
	if !ok || s != 2.5 {
		t.Fatalf("s=%v ok=%v want 2.5 true", s, ok)
	}
}

func TestRayHitsFace_RequiresStrictInterior(t *testing.T) {
	box := Box{Min: V(0, 0, 0), Max: V(4, 1, 4)}
	// Ray grazing the edge z=4 must not count as a hit on +X.
	if _, ok := RayHitsFace(V(10, 0.5, 4), V(-1, 0, 0), box, PosX); ok {
		t.Fatalf("edge hit should be rejected")
	}
	if s, ok := RayHitsFace(V(10, 0.5, 2), V(-1, 0, 0), box, PosX); !ok || s != 6 {
		t.Fatalf("s=%v ok=%v want 6 true", s, ok)
	}
}

func TestCastFaces_NearestAndDeterministic(t *testing.T) {
	box := Box{Min: V(0, 0, 0), Max: V(4, 1, 4)}
	origin := V(10, 0.5, 2)
	dir := V(-1, 0, 0)
	for i := 0; i < 3; i++ {
		hit, ok := CastFaces(origin, dir, box)
		if !ok {
			t.Fatalf("expected hit")
		}
		if hit.Face != PosX || hit.Distance != 6 {
			t.Fatalf("hit=%+v want +X at 6", hit)
		}
	}

	hit, ok := CastFaces(V(2, 5, 2), V(0.1, -1, 0.05).Normalize(), box)
	if !ok || hit.Face != PosY {
		t.Fatalf("top-down hit=%+v ok=%v want +Y", hit, ok)
	}
}

func TestCastFaces_AwayRayMisses(t *testing.T) {
	box := Box{Min: V(0, 0, 0), Max: V(4, 1, 4)}
	if hit, ok := CastFaces(V(10, 0.5, 2), V(1, 0, 0), box); ok {
		t.Fatalf("away ray hit %+v", hit)
	}
	if hit, ok := CastFaces(V(10, 5, 10), V(1, 1, 1).Normalize(), box); ok {
		t.Fatalf("away ray hit %+v", hit)
	}
}

func TestNearestHit_TieKeepsFirst(t *testing.T) {
	hit, ok := NearestHit([]Hit{
		{Face: NegX, Distance: -1},
		{Face: PosZ, Distance: 3},
		{Face: PosY, Distance: 3},
	})
	if !ok || hit.Face != PosZ {
		t.Fatalf("hit=%+v ok=%v want +Z", hit, ok)
	}
	if _, ok := NearestHit(nil); ok {
		t.Fatalf("empty candidates should miss")
	}
}

func TestNormalize_PanicsOnZero(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	_ = Vec3{}.Normalize()
}
