package scheduler

import (
	"log"
	"sort"
	"sync/atomic"

	"mapsmith.ai/internal/geom"
	"mapsmith.ai/internal/sim/authoring"
	"mapsmith.ai/internal/sim/tasks"
)

type Config struct {
	TickRateHz int
	Settings   tasks.Settings
	// Abandon sessions without operator input for this many ticks. 0 disables.
	SessionIdleTicks uint64
	InboxSize        int
}

// TaskFactory builds the root task of a new session.
type TaskFactory interface {
	New(req authoring.StartRequest) (tasks.Task, error)
}

// Digester is implemented by the map definition.
type Digester interface {
	Digest() string
}

type StepLogger interface {
	WriteStep(entry StepLogEntry) error
}

type StepLogEntry struct {
	Tick   uint64  `json:"tick"`
	Inputs []Input `json:"inputs,omitempty"`
	Digest string  `json:"digest"`
}

// SessionObserver is told when sessions start and end. Calls happen on the
// scheduler goroutine and must not block.
type SessionObserver interface {
	SessionStarted(operator string, req authoring.StartRequest, tick uint64)
	SessionEnded(operator string, reason string, tick uint64)
}

const (
	EndDone      = "done"
	EndAbandoned = "abandoned"
	EndExpired   = "expired"
)

type session struct {
	runner    *tasks.Runner
	req       authoring.StartRequest
	lastInput uint64
}

// Scheduler owns every authoring session. All methods except Submit,
// Metrics and Tick must be called from the goroutine running Run (or
// driving StepOnce).
type Scheduler struct {
	cfg     Config
	factory TaskFactory
	def     Digester

	tick  atomic.Uint64
	inbox chan Input
	leave chan string

	sessions map[string]*session
	poses    map[string]tasks.Pose

	out      *frameBuffer
	stepLog  StepLogger
	observer SessionObserver
	logger   *log.Logger

	metrics atomic.Value // Metrics
}

func New(cfg Config, factory TaskFactory, def Digester, out Output) *Scheduler {
	if cfg.TickRateHz <= 0 {
		cfg.TickRateHz = 20
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = 1024
	}
	s := &Scheduler{
		cfg:      cfg,
		factory:  factory,
		def:      def,
		inbox:    make(chan Input, cfg.InboxSize),
		leave:    make(chan string, 256),
		sessions: map[string]*session{},
		poses:    map[string]tasks.Pose{},
		out:      newFrameBuffer(out),
	}
	s.metrics.Store(Metrics{})
	return s
}

func (s *Scheduler) SetStepLogger(l StepLogger)           { s.stepLog = l }
func (s *Scheduler) SetSessionObserver(o SessionObserver) { s.observer = o }
func (s *Scheduler) SetLogger(l *log.Logger)              { s.logger = l }

func (s *Scheduler) Tick() uint64 { return s.tick.Load() }

func (s *Scheduler) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

// HasSession reports whether operator currently owns a session.
func (s *Scheduler) HasSession(operator string) bool {
	_, ok := s.sessions[operator]
	return ok
}

// Operators returns the operators with an active session, sorted.
func (s *Scheduler) Operators() []string {
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// StartSession installs root as operator's task. It is a no-op returning
// false when the operator already has a session.
func (s *Scheduler) StartSession(operator string, root tasks.Task) bool {
	return s.startSession(operator, root, authoring.StartRequest{})
}

func (s *Scheduler) startSession(operator string, root tasks.Task, req authoring.StartRequest) bool {
	if operator == "" || root == nil {
		return false
	}
	if _, ok := s.sessions[operator]; ok {
		return false
	}
	c := tasks.NewContext(operator, s.out, s.cfg.Settings, func() (tasks.Pose, bool) {
		p, ok := s.poses[operator]
		return p, ok
	})
	now := s.tick.Load()
	c.SetTick(now)
	sess := &session{req: req, lastInput: now}
	s.sessions[operator] = sess
	if s.observer != nil {
		s.observer.SessionStarted(operator, req, now)
	}
	sess.runner = tasks.NewRunner(c, root)
	if sess.runner.Done() {
		s.endSession(operator, EndDone)
	}
	return true
}

// AbandonSession drops operator's session without completing it.
func (s *Scheduler) AbandonSession(operator string) bool {
	if _, ok := s.sessions[operator]; !ok {
		return false
	}
	s.endSession(operator, EndAbandoned)
	return true
}

func (s *Scheduler) endSession(operator, reason string) {
	delete(s.sessions, operator)
	if s.observer != nil {
		s.observer.SessionEnded(operator, reason, s.tick.Load())
	}
}

// SetPose records where operator is looking. A zero dir clears the aim.
func (s *Scheduler) SetPose(operator string, eye, dir geom.Vec3) {
	s.poses[operator] = tasks.Pose{Eye: eye, Dir: dir}
}

// DispatchTick advances every session by one tick, in operator order.
func (s *Scheduler) DispatchTick() {
	now := s.tick.Load()
	for _, id := range s.Operators() {
		sess, ok := s.sessions[id]
		if !ok {
			continue
		}
		sess.runner.Context().SetTick(now)
		if sess.runner.Feed(tasks.Tick()) {
			s.endSession(id, EndDone)
		}
	}
}

func (s *Scheduler) DispatchTrigger(operator string) bool {
	return s.dispatch(operator, tasks.Trigger())
}

func (s *Scheduler) DispatchTargetTrigger(operator string, target geom.Vec3) bool {
	return s.dispatch(operator, tasks.TargetTrigger(target))
}

func (s *Scheduler) DispatchConfirm(operator string) bool {
	return s.dispatch(operator, tasks.Confirm())
}

// dispatch feeds ev to operator's session. Events for operators without a
// session are dropped.
func (s *Scheduler) dispatch(operator string, ev tasks.Event) bool {
	sess, ok := s.sessions[operator]
	if !ok {
		return false
	}
	now := s.tick.Load()
	sess.lastInput = now
	sess.runner.Context().SetTick(now)
	if sess.runner.Feed(ev) {
		s.endSession(operator, EndDone)
	}
	return true
}

func (s *Scheduler) expireIdle() {
	if s.cfg.SessionIdleTicks == 0 {
		return
	}
	now := s.tick.Load()
	for _, id := range s.Operators() {
		sess := s.sessions[id]
		if now-sess.lastInput >= s.cfg.SessionIdleTicks {
			s.out.Notify(id, "session expired after inactivity")
			s.endSession(id, EndExpired)
		}
	}
}
