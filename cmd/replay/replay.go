package main

import (
	"errors"
	"fmt"
	"os"

	persistlog "mapsmith.ai/internal/persistence/log"
	"mapsmith.ai/internal/sim/authoring"
	"mapsmith.ai/internal/sim/mapdef"
	"mapsmith.ai/internal/sim/scheduler"
	"mapsmith.ai/internal/sim/tuning"
)

type Options struct {
	StepsDir   string
	RecordsDir string
	Tuning     tuning.Tuning
	// ToTick stops after this tick of the last run. 0 replays everything.
	ToTick  uint64
	Records bool
}

type Result struct {
	Runs           int
	Steps          uint64
	Structures     int
	RecordsChecked bool
}

type run struct {
	def   *mapdef.Definition
	sched *scheduler.Scheduler
}

type discard struct{}

func (discard) Frame(uint64, []scheduler.Marker) {}
func (discard) Status(string, string)            {}
func (discard) Notify(string, string)            {}

func newRun(t tuning.Tuning, appended *[]mapdef.Structure) run {
	def := mapdef.New(t.MapName)
	def.OnAppend(func(st mapdef.Structure) { *appended = append(*appended, st) })
	sched := scheduler.New(scheduler.Config{
		TickRateHz:       t.TickRateHz,
		Settings:         t.Settings(),
		SessionIdleTicks: uint64(t.SessionIdleTicks),
		InboxSize:        t.InboxSize,
	}, authoring.NewFactory(def, t.Layouts), def, discard{})
	return run{def: def, sched: sched}
}

// replay re-executes the step log and checks every digest. A step at tick 0
// after other steps starts a new server run with an empty definition.
func replay(opts Options) (Result, error) {
	var (
		res      Result
		appended []mapdef.Structure
		cur      run
		started  bool
	)
	errStop := errors.New("stop")
	err := persistlog.ReadSteps(opts.StepsDir, func(e scheduler.StepLogEntry) error {
		if !started || (e.Tick == 0 && cur.sched.Tick() != 0) {
			cur = newRun(opts.Tuning, &appended)
			started = true
			res.Runs++
		}
		if e.Tick != cur.sched.Tick() {
			return fmt.Errorf("tick mismatch in run %d: want=%d got=%d", res.Runs, cur.sched.Tick(), e.Tick)
		}
		tick, digest := cur.sched.StepOnce(e.Inputs)
		if tick != e.Tick {
			return fmt.Errorf("internal tick mismatch: stepped=%d entry=%d", tick, e.Tick)
		}
		if digest != e.Digest {
			return fmt.Errorf("digest mismatch in run %d at tick %d: got=%s want=%s", res.Runs, tick, digest, e.Digest)
		}
		res.Steps++
		if opts.ToTick != 0 && tick >= opts.ToTick {
			return errStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return res, err
	}
	if !started {
		return res, fmt.Errorf("no steps found in %s", opts.StepsDir)
	}
	res.Structures = len(appended)

	if !opts.Records || errors.Is(err, errStop) {
		return res, nil
	}
	if _, statErr := os.Stat(opts.RecordsDir); os.IsNotExist(statErr) {
		return res, nil
	}
	i := 0
	err = persistlog.ReadRecords(opts.RecordsDir, func(st mapdef.Structure) error {
		if i >= len(appended) {
			return fmt.Errorf("record %s (%s) was not reproduced", st.ID, st.Name)
		}
		if got := appended[i]; got.ID != st.ID || got.Name != st.Name || got.Kind != st.Kind {
			return fmt.Errorf("record %d: got %s %q (%s) want %s %q (%s)", i, got.ID, got.Name, got.Kind, st.ID, st.Name, st.Kind)
		}
		i++
		return nil
	})
	if err != nil {
		return res, err
	}
	if i != len(appended) {
		return res, fmt.Errorf("replay produced %d structures, record log has %d", len(appended), i)
	}
	res.RecordsChecked = true
	return res, nil
}
