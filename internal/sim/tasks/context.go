package tasks

import (
	"mapsmith.ai/internal/geom"
	"mapsmith.ai/internal/render"
)

// Pose is where an operator is looking from and towards.
type Pose struct {
	Eye geom.Vec3
	Dir geom.Vec3
}

// Ports is the outbound side of a session.
type Ports interface {
	Marker(p geom.Vec3, style render.Style)
	Status(operator, text string)
	Notify(operator, text string)
}

type Settings struct {
	// Base sampling interval for region wireframes.
	RenderInterval float64
	// Re-render a stationary box every this many ticks.
	RenderEveryTicks int
	// Ticks to wait after a face-selection attempt before accepting another.
	TriggerCooldownTicks int
	// Distance of the neutral aim point from the operator's eye.
	Reach float64
}

func DefaultSettings() Settings {
	return Settings{
		RenderInterval:       1,
		RenderEveryTicks:     10,
		TriggerCooldownTicks: 4,
		Reach:                5,
	}
}

// Context is handed to every Handle/Resume call of one session.
type Context struct {
	operator string
	ports    Ports
	settings Settings
	pose     func() (Pose, bool)
	tick     uint64

	await Task
}

// NewContext binds a session to its operator. pose may be nil when the
// operator's view is unknown.
func NewContext(operator string, ports Ports, settings Settings, pose func() (Pose, bool)) *Context {
	if ports == nil {
		ports = discard{}
	}
	return &Context{operator: operator, ports: ports, settings: settings, pose: pose}
}

func (c *Context) Operator() string   { return c.operator }
func (c *Context) Settings() Settings { return c.settings }

// Tick is the simulation step currently being processed.
func (c *Context) Tick() uint64     { return c.tick }
func (c *Context) SetTick(t uint64) { c.tick = t }

// Pose reports the operator's current eye position and aim direction.
// ok is false when no pose is known or the aim direction is zero.
func (c *Context) Pose() (Pose, bool) {
	if c.pose == nil {
		return Pose{}, false
	}
	p, ok := c.pose()
	if !ok || p.Dir == (geom.Vec3{}) {
		return Pose{}, false
	}
	return p, true
}

func (c *Context) Marker(p geom.Vec3, style render.Style) { c.ports.Marker(p, style) }
func (c *Context) Status(text string)                     { c.ports.Status(c.operator, text) }
func (c *Context) Notify(text string)                     { c.ports.Notify(c.operator, text) }

// Await delegates all following events to child until it terminates. The
// calling task stays parked underneath it.
func (c *Context) Await(child Task) { c.await = child }

func (c *Context) takeAwait() Task {
	t := c.await
	c.await = nil
	return t
}

type discard struct{}

func (discard) Marker(geom.Vec3, render.Style) {}
func (discard) Status(string, string)          {}
func (discard) Notify(string, string)          {}
