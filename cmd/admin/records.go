package main

import (
	"fmt"
	"strconv"
	"strings"

	"mapsmith.ai/internal/geom"
	"mapsmith.ai/internal/sim/mapdef"
)

type recordFilter struct {
	Kind string
	// Box keeps structures whose first anchor lies inside it.
	Box *geom.Box
}

func (f recordFilter) match(st mapdef.Structure) bool {
	if f.Kind != "" && st.Kind != f.Kind {
		return false
	}
	if f.Box != nil && !f.Box.Contains(st.AnchorA.Floor()) {
		return false
	}
	return true
}

// parseAABB reads "x1,y1,z1:x2,y2,z2" as the cells between two corners.
func parseAABB(s string) (geom.Box, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return geom.Box{}, fmt.Errorf("expected x1,y1,z1:x2,y2,z2")
	}
	a, err := parseVec3(parts[0])
	if err != nil {
		return geom.Box{}, err
	}
	b, err := parseVec3(parts[1])
	if err != nil {
		return geom.Box{}, err
	}
	return geom.BoxFromCorners(a, b), nil
}

func parseVec3(s string) (geom.Vec3, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 3 {
		return geom.Vec3{}, fmt.Errorf("expected x,y,z")
	}
	var v [3]float64
	for i := 0; i < 3; i++ {
		n, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil {
			return geom.Vec3{}, err
		}
		v[i] = n
	}
	return geom.FromArray(v), nil
}
