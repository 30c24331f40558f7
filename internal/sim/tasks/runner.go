package tasks

// Runner drives one task tree. Delegation is an explicit stack: only the top
// task sees events, and a finished child hands control back to its parent
// through Resume without consuming or replaying an event.
type Runner struct {
	c     *Context
	stack []Task
}

// NewRunner activates root immediately, so a Parent root has already
// delegated to its first child when NewRunner returns.
func NewRunner(c *Context, root Task) *Runner {
	r := &Runner{c: c}
	c.Await(root)
	r.settle(Continue)
	return r
}

func (r *Runner) Context() *Context { return r.c }

func (r *Runner) Done() bool { return len(r.stack) == 0 }

// Depth is the number of tasks on the delegation stack.
func (r *Runner) Depth() int { return len(r.stack) }

// Active returns the task that will receive the next event.
func (r *Runner) Active() Task {
	if len(r.stack) == 0 {
		return nil
	}
	return r.stack[len(r.stack)-1]
}

// Feed delivers ev to the active task and reports whether the whole tree has
// terminated.
func (r *Runner) Feed(ev Event) bool {
	if len(r.stack) == 0 {
		return true
	}
	st := r.stack[len(r.stack)-1].Handle(r.c, ev)
	r.settle(st)
	return len(r.stack) == 0
}

// settle applies the outcome of the last Handle/Resume on the stack top.
func (r *Runner) settle(st Status) {
	for {
		if child := r.c.takeAwait(); child != nil {
			// Awaiting implies the caller keeps running.
			r.stack = append(r.stack, child)
			p, ok := child.(Parent)
			if !ok {
				return
			}
			st = p.Resume(r.c)
			continue
		}
		if st == Continue {
			return
		}
		r.stack = r.stack[:len(r.stack)-1]
		if len(r.stack) == 0 {
			return
		}
		p, ok := r.stack[len(r.stack)-1].(Parent)
		if !ok {
			return
		}
		st = p.Resume(r.c)
	}
}
