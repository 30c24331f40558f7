package scheduler

import (
	"sort"

	"mapsmith.ai/internal/geom"
	"mapsmith.ai/internal/render"
)

type Marker struct {
	Pos   geom.Vec3    `json:"pos"`
	Style render.Style `json:"style"`
}

// Output receives what a step produced. Frame is broadcast to every
// operator; Status and Notify are addressed to one.
type Output interface {
	Frame(tick uint64, markers []Marker)
	Status(operator, text string)
	Notify(operator, text string)
}

type notice struct {
	operator string
	text     string
}

// frameBuffer collects task output during a step. Status lines are
// latest-wins per operator; notices keep their order.
type frameBuffer struct {
	out     Output
	markers []Marker
	status  map[string]string
	notices []notice
}

func newFrameBuffer(out Output) *frameBuffer {
	return &frameBuffer{out: out, status: map[string]string{}}
}

func (b *frameBuffer) Marker(p geom.Vec3, style render.Style) {
	b.markers = append(b.markers, Marker{Pos: p, Style: style})
}

func (b *frameBuffer) Status(operator, text string) { b.status[operator] = text }

func (b *frameBuffer) Notify(operator, text string) {
	b.notices = append(b.notices, notice{operator: operator, text: text})
}

func (b *frameBuffer) flush(tick uint64) {
	if b.out != nil {
		if len(b.markers) > 0 {
			b.out.Frame(tick, append([]Marker(nil), b.markers...))
		}
		ops := make([]string, 0, len(b.status))
		for op := range b.status {
			ops = append(ops, op)
		}
		sort.Strings(ops)
		for _, op := range ops {
			b.out.Status(op, b.status[op])
		}
		for _, n := range b.notices {
			b.out.Notify(n.operator, n.text)
		}
	}
	b.markers = b.markers[:0]
	b.notices = b.notices[:0]
	for op := range b.status {
		delete(b.status, op)
	}
}
