package geom

import "math"

type Axis uint8

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

var Axes = [3]Axis{AxisX, AxisY, AxisZ}

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "X"
	case AxisY:
		return "Y"
	default:
		return "Z"
	}
}

// Face names one of the six bounding planes of a Box by signed axis.
type Face uint8

const (
	PosX Face = iota
	NegX
	PosY
	NegY
	PosZ
	NegZ
)

// Faces is the fixed enumeration order used when casting against a box.
// Ties in NearestHit resolve to the earlier entry.
var Faces = [6]Face{PosX, NegX, PosY, NegY, PosZ, NegZ}

func (f Face) Axis() Axis { return Axis(f / 2) }

// Positive reports whether the face bounds the max side of its axis.
func (f Face) Positive() bool { return f%2 == 0 }

func (f Face) Opposite() Face {
	if f.Positive() {
		return f + 1
	}
	return f - 1
}

func (f Face) String() string {
	if f.Positive() {
		return "+" + f.Axis().String()
	}
	return "-" + f.Axis().String()
}

// Box is an axis-aligned cuboid. Max is exclusive: a box covering the single
// cell (0,0,0) is {Min: (0,0,0), Max: (1,1,1)}.
type Box struct {
	Min Vec3 `json:"min"`
	Max Vec3 `json:"max"`
}

// BoxFromCorners builds the box covering every grid cell between two picked
// cells, inclusive on both ends.
func BoxFromCorners(a, b Vec3) Box {
	a, b = a.Floor(), b.Floor()
	return Box{
		Min: Vec3{math.Min(a.X, b.X), math.Min(a.Y, b.Y), math.Min(a.Z, b.Z)},
		Max: Vec3{math.Max(a.X, b.X) + 1, math.Max(a.Y, b.Y) + 1, math.Max(a.Z, b.Z) + 1},
	}
}

func (b Box) Valid() bool {
	return b.Min.X <= b.Max.X && b.Min.Y <= b.Max.Y && b.Min.Z <= b.Max.Z
}

func (b Box) Size() Vec3 { return b.Max.Sub(b.Min) }

// Volume is the number of whole grid cells covered by the box.
func (b Box) Volume() float64 {
	s := b.Size()
	return s.X * s.Y * s.Z
}

// Contains reports whether p lies inside the box (max exclusive).
func (b Box) Contains(p Vec3) bool {
	for _, a := range Axes {
		v := p.Axis(a)
		if v < b.Min.Axis(a) || v >= b.Max.Axis(a) {
			return false
		}
	}
	return true
}

// Plane returns the coordinate of the plane containing face f.
func (b Box) Plane(f Face) float64 {
	if f.Positive() {
		return b.Max.Axis(f.Axis())
	}
	return b.Min.Axis(f.Axis())
}

// LastCell returns the lower corner of the cell at the max end of the box.
func (b Box) LastCell() Vec3 { return b.Max.Sub(Vec3{1, 1, 1}) }

func (b Box) String() string { return b.Min.String() + " .. " + b.Max.String() }
