package kernel

// Task is the kernel's per-task control block. AddTask and Initialize
// allocate each Task themselves and return a pointer to it; neither
// accepts a Task allocated by the caller.
//
// Every field here is mutated only while the scheduler is paused (k.mu
// held). That includes sleepCount, which the tick engine and sync-object
// wakeups write from outside the owning task's own flow; the wakeup path
// (wake) additionally brackets its write with the port's DisableInterrupts.
type Task struct {
	// Name is an optional diagnostic label, never compared or used for
	// scheduling — carried over from the original's `const char *name`
	// debug field (SPEC_FULL.md §12 "Named tasks").
	Name string

	// fn receives the task itself as well as its parameter. Unlike the
	// original's implicit "current task" (meaningful on a single core with
	// no goroutines), the Go port has no thread-local storage to recover
	// "which task am I" from inside a blocking call — so a task's own
	// handle is threaded through explicitly, idiomatic-Go style, and the
	// public API (Sleep, Yield, Lock, Wait, ...) is expressed as methods on
	// *Task rather than package-level functions operating on a hidden
	// current-task global. See DESIGN.md for this Open Question's
	// resolution.
	fn    func(*Task, any)
	param any

	basePriority      Priority
	effectivePriority Priority

	sleepCount  sleepCounter
	pauseCount  uint8
	terminating bool

	next       *Task // ring link
	waiterNext *Task // waiter-list link
	isWaitingFor *syncObject
	acquiredHead *syncObject

	join *syncObject // notification-flavour, embedded (spec.md §4.7)

	// baton is the Go-native stand-in for the stored stack pointer: a task
	// is "descheduled" by blocking on a receive from its own baton, and
	// "resumed" by the scheduler sending to it. Because a parked goroutine
	// already retains its own call stack, this single channel does the
	// entire job of the original's register-save/restore assembly — see
	// SPEC_FULL.md's header paragraph and DESIGN.md for why this
	// substitution is faithful to spec.md's semantics.
	baton chan struct{}

	// stackBuffer is the caller-provided scratch buffer threaded through
	// AddTask for API fidelity with the original's caller-allocated stack
	// (spec.md §4.3). The Go port does not execute on it — goroutines
	// manage their own stack — but it is painted with a sentinel at
	// AddTask time so Stats can report a synthetic high-water mark
	// (SPEC_FULL.md §12 "Debug stack-painting").
	stackBuffer []byte

	started chan struct{} // closed once the task's goroutine has started, just before it first parks on baton
}

const stackPaintByte = 0xA5

// newTask wires the bookkeeping common to both AddTask and Initialize's
// synthetic main/idle tasks.
func newTask(name string, priority Priority, fn func(*Task, any), param any, stackBuffer []byte) *Task {
	for i := range stackBuffer {
		stackBuffer[i] = stackPaintByte
	}
	return &Task{
		Name:              name,
		fn:                fn,
		param:             param,
		basePriority:      priority,
		effectivePriority: priority,
		baton:             make(chan struct{}, 1),
		stackBuffer:       stackBuffer,
		join:              newNotificationSyncObject(),
		started:           make(chan struct{}),
	}
}

// BasePriority returns t's configured priority, unaffected by any
// inheritance currently in effect.
func (t *Task) BasePriority() Priority {
	k.mu.Lock()
	defer k.mu.Unlock()
	return t.basePriority
}

// EffectivePriority returns t's current scheduling priority, which may be
// temporarily raised above BasePriority by priority inheritance
// (spec.md §4.4).
func (t *Task) EffectivePriority() Priority {
	k.mu.Lock()
	defer k.mu.Unlock()
	return t.effectivePriority
}

// IsTerminating reports whether t has begun or finished terminating.
func (t *Task) IsTerminating() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return t.terminating
}

// park blocks the calling goroutine until the scheduler resumes this task.
func (t *Task) park() {
	<-t.baton
}

// resume wakes t's goroutine. Must only be called by the scheduler while
// installing t as the new current task.
func (t *Task) resume() {
	t.baton <- struct{}{}
}

// run is the trampoline every AddTask-created goroutine starts in — the Go
// analogue of the original's TaskStartup, which pops the function pointer
// and parameter off the seeded stack and calls through to them before
// falling into TerminateTask.
func (k *kernelState) run(t *Task) {
	close(t.started)
	t.park()
	t.fn(t, t.param)
	k.terminateTask(t)
}
