package geom

// IntersectAxisPlane returns the ray parameter s such that origin+s*dir lies on
// the plane axis=value. ok is false when the ray is parallel to the plane.
func IntersectAxisPlane(origin, dir Vec3, axis Axis, value float64) (s float64, ok bool) {
	d := dir.Axis(axis)
	if d == 0 {
		return 0, false
	}
	return (value - origin.Axis(axis)) / d, true
}

// RayHitsFace intersects the ray with the plane of face f and accepts the hit
// only when the other two coordinates fall strictly inside the box.
func RayHitsFace(origin, dir Vec3, box Box, f Face) (float64, bool) {
	axis := f.Axis()
	s, ok := IntersectAxisPlane(origin, dir, axis, box.Plane(f))
	if !ok {
		return 0, false
	}
	hit := origin.Add(dir.Scale(s))
	for _, a := range Axes {
		if a == axis {
			continue
		}
		v := hit.Axis(a)
		if v <= box.Min.Axis(a) || v >= box.Max.Axis(a) {
			return 0, false
		}
	}
	return s, true
}

type Hit struct {
	Face     Face
	Distance float64
}

// NearestHit returns the candidate with the smallest non-negative distance.
// On equal distances the first candidate wins.
func NearestHit(candidates []Hit) (Hit, bool) {
	var (
		best  Hit
		found bool
	)
	for _, c := range candidates {
		if c.Distance < 0 {
			continue
		}
		if !found || c.Distance < best.Distance {
			best = c
			found = true
		}
	}
	return best, found
}

// CastFaces tests all six faces of box in Faces order and returns the nearest
// one in front of the origin.
func CastFaces(origin, dir Vec3, box Box) (Hit, bool) {
	hits := make([]Hit, 0, len(Faces))
	for _, f := range Faces {
		if s, ok := RayHitsFace(origin, dir, box, f); ok {
			hits = append(hits, Hit{Face: f, Distance: s})
		}
	}
	return NearestHit(hits)
}
