package geom

// Basis is a change of basis given by the world-space images of the local
// X, Y and Z unit vectors.
type Basis struct {
	X Vec3 `json:"x"`
	Y Vec3 `json:"y"`
	Z Vec3 `json:"z"`
}

var Identity = Basis{X: Vec3{1, 0, 0}, Y: Vec3{0, 1, 0}, Z: Vec3{0, 0, 1}}

// Apply maps a local offset into world space.
func (b Basis) Apply(v Vec3) Vec3 {
	return b.X.Scale(v.X).Add(b.Y.Scale(v.Y)).Add(b.Z.Scale(v.Z))
}

// Det is +1 for rotations and -1 for mirrored bases.
func (b Basis) Det() float64 { return b.X.Dot(b.Y.Cross(b.Z)) }

func (b Basis) Axis(a Axis) Vec3 {
	switch a {
	case AxisX:
		return b.X
	case AxisY:
		return b.Y
	default:
		return b.Z
	}
}

func (b Basis) WithAxis(a Axis, v Vec3) Basis {
	switch a {
	case AxisX:
		b.X = v
	case AxisY:
		b.Y = v
	default:
		b.Z = v
	}
	return b
}

// Unit returns the positive unit vector along a.
func Unit(a Axis) Vec3 { return Vec3{}.WithAxis(a, 1) }
