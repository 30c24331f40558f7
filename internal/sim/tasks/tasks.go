package tasks

import (
	"mapsmith.ai/internal/geom"
)

type EventKind string

const (
	EventTick          EventKind = "TICK"
	EventTrigger       EventKind = "TRIGGER"
	EventTargetTrigger EventKind = "TARGET"
	EventConfirm       EventKind = "CONFIRM"
)

// Event is one input delivered to a task. Target is only meaningful for
// EventTargetTrigger.
type Event struct {
	Kind   EventKind
	Target geom.Vec3
}

func Tick() Event                     { return Event{Kind: EventTick} }
func Trigger() Event                  { return Event{Kind: EventTrigger} }
func Confirm() Event                  { return Event{Kind: EventConfirm} }
func TargetTrigger(p geom.Vec3) Event { return Event{Kind: EventTargetTrigger, Target: p} }

type Status uint8

const (
	Continue Status = iota
	Done
)

// Task is a resumable unit of authoring work. Handle consumes one event and
// either parks (Continue) or terminates (Done). Invalid events are ignored,
// never reported.
type Task interface {
	Handle(c *Context, ev Event) Status
}

// Parent is a Task that delegates to children through Context.Await.
// Resume runs when the task becomes active and again after every awaited
// child terminates; it does not consume an event.
type Parent interface {
	Task
	Resume(c *Context) Status
}
