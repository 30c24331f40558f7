package scheduler

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"time"

	"mapsmith.ai/internal/geom"
	"mapsmith.ai/internal/sim/authoring"
)

type InputKind string

const (
	InputStart   InputKind = "START"
	InputPose    InputKind = "POSE"
	InputTrigger InputKind = "TRIGGER"
	InputTarget  InputKind = "TARGET"
	InputConfirm InputKind = "CONFIRM"
	InputAbandon InputKind = "ABANDON"
	// InputLeave is queued by Leave when an operator disconnects.
	InputLeave   InputKind = "LEAVE"
)

// Input is one operator input, queued until the next step.
type Input struct {
	Operator string                  `json:"operator"`
	Kind     InputKind               `json:"kind"`
	Start    *authoring.StartRequest `json:"start,omitempty"`
	Eye      geom.Vec3               `json:"eye"`
	Dir      geom.Vec3               `json:"dir"`
	Target   geom.Vec3               `json:"target"`
}

var ErrInboxFull = errors.New("scheduler inbox full")

type Metrics struct {
	Tick     uint64  `json:"tick"`
	Sessions int     `json:"sessions"`
	Inbox    int     `json:"inbox"`
	StepMS   float64 `json:"step_ms"`
}

func (s *Scheduler) Metrics() Metrics { return s.metrics.Load().(Metrics) }

// Submit queues in for the next step. Safe for concurrent use.
func (s *Scheduler) Submit(in Input) error {
	select {
	case s.inbox <- in:
		return nil
	default:
		return ErrInboxFull
	}
}

// Leave abandons the operator's session at the next step. Sends block, so
// a disconnect is never lost.
func (s *Scheduler) Leave() chan<- string { return s.leave }

func (s *Scheduler) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(s.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pending []Input
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case in := <-s.inbox:
			pending = append(pending, in)
		case id := <-s.leave:
			// The reader submits before it leaves, so anything already in
			// the inbox belongs ahead of the LEAVE.
			pending = s.drainInbox(pending)
			pending = append(pending, Input{Operator: id, Kind: InputLeave})
		case <-ticker.C:
			s.step(pending)
			pending = pending[:0]
		}
	}
}

func (s *Scheduler) drainInbox(pending []Input) []Input {
	for {
		select {
		case in := <-s.inbox:
			pending = append(pending, in)
		default:
			return pending
		}
	}
}

// StepOnce runs one step with inputs and returns the tick it processed and
// the digest after it.
func (s *Scheduler) StepOnce(inputs []Input) (tick uint64, digest string) {
	return s.step(inputs)
}

func (s *Scheduler) step(inputs []Input) (uint64, string) {
	start := time.Now()
	now := s.tick.Load()

	for _, in := range inputs {
		s.apply(in)
	}
	s.expireIdle()
	s.DispatchTick()
	s.out.flush(now)

	digest := s.Digest()
	if s.stepLog != nil {
		var recorded []Input
		if len(inputs) > 0 {
			recorded = append(recorded, inputs...)
		}
		if err := s.stepLog.WriteStep(StepLogEntry{Tick: now, Inputs: recorded, Digest: digest}); err != nil {
			s.logf("step log tick=%d: %v", now, err)
		}
	}

	next := s.tick.Add(1)
	s.metrics.Store(Metrics{
		Tick:     next,
		Sessions: len(s.sessions),
		Inbox:    len(s.inbox),
		StepMS:   float64(time.Since(start).Microseconds()) / 1000.0,
	})
	return now, digest
}

func (s *Scheduler) apply(in Input) {
	switch in.Kind {
	case InputStart:
		if in.Start == nil {
			return
		}
		if s.HasSession(in.Operator) {
			s.out.Notify(in.Operator, "E_CONFLICT: a session is already active")
			return
		}
		root, err := s.factory.New(*in.Start)
		if err != nil {
			s.out.Notify(in.Operator, "E_BAD_REQUEST: "+err.Error())
			return
		}
		s.startSession(in.Operator, root, *in.Start)
	case InputPose:
		s.SetPose(in.Operator, in.Eye, in.Dir)
	case InputTrigger:
		s.DispatchTrigger(in.Operator)
	case InputTarget:
		s.DispatchTargetTrigger(in.Operator, in.Target)
	case InputConfirm:
		s.DispatchConfirm(in.Operator)
	case InputAbandon:
		if s.AbandonSession(in.Operator) {
			s.out.Notify(in.Operator, "session abandoned")
		}
	case InputLeave:
		s.AbandonSession(in.Operator)
		delete(s.poses, in.Operator)
	}
}

// Digest hashes the current tick, the map definition and the set of active
// sessions with their delegation depth.
func (s *Scheduler) Digest() string {
	h := sha256.New()
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], s.tick.Load())
	h.Write(tmp[:])
	if s.def != nil {
		h.Write([]byte(s.def.Digest()))
	}
	for _, id := range s.Operators() {
		binary.LittleEndian.PutUint64(tmp[:], uint64(len(id)))
		h.Write(tmp[:])
		h.Write([]byte(id))
		binary.LittleEndian.PutUint64(tmp[:], uint64(s.sessions[id].runner.Depth()))
		h.Write(tmp[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}
