package tasks

import (
	"testing"

	"mapsmith.ai/internal/geom"
	"mapsmith.ai/internal/render"
)

func TestBoxEdit_EndToEndPickDragConfirm(t *testing.T) {
	c, _, pv := newTestContext()
	var got []geom.Box
	edit := NewBoxEdit("Base", 1, func(b geom.Box) { got = append(got, b) })
	r := NewRunner(c, edit)

	pickCorners(r, geom.V(0, 0, 0), geom.V(3, 0, 3))
	want := geom.Box{Min: geom.V(0, 0, 0), Max: geom.V(4, 1, 4)}
	if edit.Box() != want {
		t.Fatalf("box=%v want %v", edit.Box(), want)
	}
	if r.Active() != Task(edit) {
		t.Fatalf("box editor should be active after both picks, got %T", r.Active())
	}

	pv.set(geom.V(10, 0.5, 2), geom.V(-1, 0, 0))
	r.Feed(Trigger())
	face, ok := edit.Selected()
	if !ok || face != geom.PosX {
		t.Fatalf("selected=%v ok=%v want +X", face, ok)
	}

	for i, eyeX := range []float64{11, 12, 13} {
		pv.set(geom.V(eyeX, 0.5, 2), geom.V(-1, 0, 0))
		r.Feed(Tick())
		if want := 5 + float64(i); edit.Box().Max.X != want {
			t.Fatalf("tick %d max.x=%v want %v", i, edit.Box().Max.X, want)
		}
	}

	if r.Feed(Confirm()) {
		t.Fatalf("first confirm should only commit the face")
	}
	if _, ok := edit.Selected(); ok {
		t.Fatalf("face should be released after confirm")
	}
	if len(got) != 0 {
		t.Fatalf("result emitted early: %v", got)
	}
	if !r.Feed(Confirm()) {
		t.Fatalf("second confirm should finish")
	}
	if len(got) != 1 {
		t.Fatalf("result emitted %d times", len(got))
	}
	if want := (geom.Box{Min: geom.V(0, 0, 0), Max: geom.V(7, 1, 4)}); got[0] != want {
		t.Fatalf("result=%v want %v", got[0], want)
	}
}

func TestBoxEdit_DragThroughOppositeFaceFlips(t *testing.T) {
	c, _, pv := newTestContext()
	edit := NewBoxEdit("Base", 1, nil)
	r := NewRunner(c, edit)
	pickCorners(r, geom.V(0, 0, 0), geom.V(3, 0, 3))

	pv.set(geom.V(10, 0.5, 2), geom.V(-1, 0, 0))
	r.Feed(Trigger())

	steps := []struct {
		eyeX     float64
		face     geom.Face
		min, max float64
	}{
		{eyeX: 8, face: geom.PosX, min: 0, max: 2},
		{eyeX: 6, face: geom.PosX, min: 0, max: 1},
		{eyeX: 5, face: geom.NegX, min: -1, max: 1},
		{eyeX: 3, face: geom.NegX, min: -3, max: 1},
		{eyeX: 7, face: geom.NegX, min: 0, max: 1},
		{eyeX: 9, face: geom.PosX, min: 0, max: 3},
	}
	for i, s := range steps {
		pv.set(geom.V(s.eyeX, 0.5, 2), geom.V(-1, 0, 0))
		r.Feed(Tick())
		b := edit.Box()
		if !b.Valid() {
			t.Fatalf("step %d: invalid box %v", i, b)
		}
		face, _ := edit.Selected()
		if face != s.face || b.Min.X != s.min || b.Max.X != s.max {
			t.Fatalf("step %d: face=%v x=[%v,%v) want %v [%v,%v)", i, face, b.Min.X, b.Max.X, s.face, s.min, s.max)
		}
		if b.Min.Z != 0 || b.Max.Z != 4 || b.Min.Y != 0 || b.Max.Y != 1 {
			t.Fatalf("step %d: other axes changed: %v", i, b)
		}
	}
}

func TestBoxEdit_TriggerCooldownAndSelectionGuards(t *testing.T) {
	c, _, pv := newTestContext()
	edit := NewBoxEdit("Base", 1, nil)
	r := NewRunner(c, edit)
	pickCorners(r, geom.V(0, 0, 0), geom.V(3, 0, 3))

	// A miss still starts the cooldown.
	pv.set(geom.V(10, 0.5, 2), geom.V(1, 0, 0))
	r.Feed(Trigger())
	if _, ok := edit.Selected(); ok {
		t.Fatalf("away ray must not select")
	}

	pv.set(geom.V(10, 0.5, 2), geom.V(-1, 0, 0))
	r.Feed(Trigger())
	if _, ok := edit.Selected(); ok {
		t.Fatalf("trigger during cooldown must be ignored")
	}
	for i := 0; i < DefaultSettings().TriggerCooldownTicks; i++ {
		r.Feed(Tick())
	}
	r.Feed(Trigger())
	face, ok := edit.Selected()
	if !ok || face != geom.PosX {
		t.Fatalf("selected=%v ok=%v after cooldown", face, ok)
	}

	// Already dragging: another trigger does not re-select.
	for i := 0; i < DefaultSettings().TriggerCooldownTicks; i++ {
		r.Feed(Tick())
	}
	pv.set(geom.V(2, 10, 2), geom.V(0, -1, 0))
	r.Feed(Trigger())
	if face, _ := edit.Selected(); face != geom.PosX {
		t.Fatalf("selection changed to %v while dragging", face)
	}
}

func TestBoxEdit_RenderThrottle(t *testing.T) {
	c, ports, pv := newTestContext()
	edit := NewBoxEdit("Base", 1, nil)
	r := NewRunner(c, edit)
	pickCorners(r, geom.V(0, 0, 0), geom.V(3, 0, 3))
	pv.set(geom.V(10, 0.5, 2), geom.V(-1, 0, 0))

	every := DefaultSettings().RenderEveryTicks
	rendered := 0
	for i := 0; i < every+1; i++ {
		ports.reset()
		r.Feed(Tick())
		if len(ports.markers) > 0 {
			rendered++
		}
	}
	if rendered != 2 {
		t.Fatalf("stationary aim rendered %d times in %d ticks, want 2", rendered, every+1)
	}

	ports.reset()
	r.Feed(Tick())
	if len(ports.markers) != 0 {
		t.Fatalf("unexpected render without aim change")
	}
	// Moving the aim renders immediately.
	pv.set(geom.V(10, 0.5, 3), geom.V(-1, 0, 0))
	ports.reset()
	r.Feed(Tick())
	if len(ports.markers) == 0 {
		t.Fatalf("aim change should render immediately")
	}

	// Selecting a face renders with a highlight on the next tick.
	r.Feed(Trigger())
	ports.reset()
	r.Feed(Tick())
	highlighted := 0
	for _, s := range ports.styles {
		if s == render.StyleHighlight {
			highlighted++
		}
	}
	if highlighted == 0 {
		t.Fatalf("expected highlighted markers after selecting a face")
	}
}

func TestBoxEdit_EventsBeforeCornersAreRoutedToPicks(t *testing.T) {
	c, _, pv := newTestContext()
	edit := NewBoxEdit("Base", 1, nil)
	r := NewRunner(c, edit)
	pv.set(geom.V(10, 0.5, 2), geom.V(-1, 0, 0))

	r.Feed(Trigger())
	r.Feed(Confirm())
	if r.Depth() != 2 {
		t.Fatalf("depth=%d want 2 while picking Point A", r.Depth())
	}
	pick, ok := r.Active().(*Pick)
	if !ok || pick.Label != "Base / Point A" {
		t.Fatalf("active=%T %+v", r.Active(), r.Active())
	}
}
