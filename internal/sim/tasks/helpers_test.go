package tasks

import (
	"mapsmith.ai/internal/geom"
	"mapsmith.ai/internal/render"
)

type recPorts struct {
	markers  []geom.Vec3
	styles   []render.Style
	status   string
	notices  []string
	statuses int
}

func (r *recPorts) Marker(p geom.Vec3, s render.Style) {
	r.markers = append(r.markers, p)
	r.styles = append(r.styles, s)
}

func (r *recPorts) Status(_ string, text string) {
	r.status = text
	r.statuses++
}

func (r *recPorts) Notify(_ string, text string) { r.notices = append(r.notices, text) }

func (r *recPorts) reset() {
	r.markers = r.markers[:0]
	r.styles = r.styles[:0]
}

type poseVar struct {
	pose Pose
	ok   bool
}

func (p *poseVar) set(eye, dir geom.Vec3) { p.pose, p.ok = Pose{Eye: eye, Dir: dir}, true }
func (p *poseVar) get() (Pose, bool)      { return p.pose, p.ok }

func newTestContext() (*Context, *recPorts, *poseVar) {
	ports := &recPorts{}
	pv := &poseVar{}
	set := DefaultSettings()
	return NewContext("op1", ports, set, pv.get), ports, pv
}

// pickCorners feeds the target+confirm pairs that complete two Location-Picks.
func pickCorners(r *Runner, a, b geom.Vec3) {
	r.Feed(TargetTrigger(a))
	r.Feed(Confirm())
	r.Feed(TargetTrigger(b))
	r.Feed(Confirm())
}
