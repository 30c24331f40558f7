package main

import (
	"testing"

	"mapsmith.ai/internal/geom"
	"mapsmith.ai/internal/sim/mapdef"
)

func TestParseAABB(t *testing.T) {
	box, err := parseAABB("4,70,-2:0, 64, 3")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := geom.Box{Min: geom.V(0, 64, -2), Max: geom.V(5, 71, 4)}
	if box != want {
		t.Fatalf("box=%v want %v", box, want)
	}
	for _, bad := range []string{"", "1,2,3", "1,2:3,4,5", "a,b,c:1,2,3"} {
		if _, err := parseAABB(bad); err == nil {
			t.Fatalf("parseAABB(%q) should fail", bad)
		}
	}
}

func TestRecordFilter(t *testing.T) {
	box, _ := parseAABB("0,0,0:9,9,9")
	inside := mapdef.Structure{Name: "a", Kind: mapdef.KindRegion, AnchorA: geom.V(9.5, 0, 0)}
	outside := mapdef.Structure{Name: "b", Kind: mapdef.KindRegion, AnchorA: geom.V(10, 0, 0)}
	island := mapdef.Structure{Name: "c", Kind: "ISLAND", AnchorA: geom.V(1, 1, 1)}

	f := recordFilter{Kind: mapdef.KindRegion, Box: &box}
	if !f.match(inside) || f.match(outside) || f.match(island) {
		t.Fatalf("kind+box filter mismatch")
	}
	if !(recordFilter{}).match(outside) {
		t.Fatalf("empty filter should match everything")
	}
}
