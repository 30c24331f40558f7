package render

import (
	"math"

	"mapsmith.ai/internal/geom"
)

type Style string

const (
	StyleNormal    Style = "NORMAL"
	StyleHighlight Style = "HIGHLIGHT"
	StylePoint     Style = "POINT"
)

// Sink receives marker requests. Rendering them is up to the client.
type Sink interface {
	Marker(p geom.Vec3, style Style)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(p geom.Vec3, style Style)

func (f SinkFunc) Marker(p geom.Vec3, style Style) { f(p, style) }

// Box samples the surface of box on an even lattice no coarser than interval
// and requests one marker per surface sample. Samples on the highlighted face
// (if any) use StyleHighlight.
func Box(sink Sink, box geom.Box, interval float64, highlighted *geom.Face) int {
	if interval <= 0 {
		interval = 1
	}
	var (
		n    [3]int
		step [3]float64
	)
	for i, a := range geom.Axes {
		extent := box.Max.Axis(a) - box.Min.Axis(a)
		n[i] = int(math.Ceil(extent / interval))
		if n[i] < 1 {
			n[i] = 1
		}
		step[i] = extent / float64(n[i])
	}

	emitted := 0
	for i := 0; i <= n[0]; i++ {
		for j := 0; j <= n[1]; j++ {
			for k := 0; k <= n[2]; k++ {
				onX := i == 0 || i == n[0]
				onY := j == 0 || j == n[1]
				onZ := k == 0 || k == n[2]
				if !onX && !onY && !onZ {
					continue
				}
				p := geom.Vec3{
					X: box.Min.X + float64(i)*step[0],
					Y: box.Min.Y + float64(j)*step[1],
					Z: box.Min.Z + float64(k)*step[2],
				}
				style := StyleNormal
				if highlighted != nil && onFace(*highlighted, [3]int{i, j, k}, n) {
					style = StyleHighlight
				}
				sink.Marker(p, style)
				emitted++
			}
		}
	}
	return emitted
}

func onFace(f geom.Face, idx, n [3]int) bool {
	a := int(f.Axis())
	if f.Positive() {
		return idx[a] == n[a]
	}
	return idx[a] == 0
}

// Point previews a single grid cell by marking its centre.
func Point(sink Sink, cell geom.Vec3) {
	sink.Marker(cell.Floor().Add(geom.Vec3{X: 0.5, Y: 0.5, Z: 0.5}), StylePoint)
}
