package kernel

import (
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"
	uatomic "go.uber.org/atomic"

	"github.com/bmildner/SimpleTaskSwitcher/internal/kassert"
	"github.com/bmildner/SimpleTaskSwitcher/platform"
)

// kernelState is the scheduler core: the ring of known tasks, the tick
// count, and the pause gate. There is exactly one instance, k, mirroring
// the original's file-scope statics in Switcher.c — a single switcher
// serves a single core.
//
// mu is the pause gate: holding it is what "the scheduler is paused"
// means in this port. Every field below it is only ever written while mu
// is held; the atomic counters (activeTasks, tickLo/tickHi) are also read
// without it, by the idle task and GetTickCount. Holding mu for every
// write is what lets the tick-delivery goroutine (running
// on the Platform Port's own goroutine, not any task's) safely share
// access with whichever task is currently running kernel code.
type kernelState struct {
	mu sync.Mutex

	port   platform.Port
	logger *logrus.Entry

	ringHead *Task
	current  *Task
	idle     *Task
	count    int
	capacity int

	activeTasks uatomic.Uint32

	// tickLo/tickHi form the 64-bit tick count as two atomically-updated
	// halves with a software carry (spec.md §4.2), the same trick the
	// original uses to keep the common-path increment a single-register
	// operation on an 8-bit target; Go does not need it for correctness,
	// but the shape is kept for fidelity and because GetTickCount must
	// still observe a consistent pair without taking the pause gate.
	tickLo uatomic.Uint32
	tickHi uatomic.Uint32

	initialized bool
}

var k kernelState

// Initialize wires up the scheduler: it creates the idle task, installs
// port as the tick/preempt source, and returns a Task handle standing in
// for the calling goroutine itself — the "main task" (spec.md §4.3
// "Initialize"). Unlike every other task, the main task's goroutine is
// the caller's own; no trampoline goroutine is spawned for it.
func Initialize(capacity int, port platform.Port, mainName string, mainStackBuffer, idleStackBuffer []byte) (*Task, error) {
	if port == nil {
		return nil, ErrInvalidParameter
	}
	if capacity < 2 {
		return nil, ErrInvalidParameter
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	k.port = port
	k.capacity = capacity
	k.logger = logrus.WithField("component", "kernel")

	main := newTask(mainName, PriorityNormal, nil, nil, mainStackBuffer)
	idle := newTask("idle", PriorityIdle, idleLoop, nil, idleStackBuffer)

	main.next = idle
	idle.next = main
	k.ringHead = main
	k.current = main
	k.idle = idle
	k.count = 2

	k.activeTasks.Store(1) // main counts as active; idle never does

	k.initialized = true

	k.logger.WithFields(logrus.Fields{"capacity": capacity, "main": mainName}).Info("kernel initialized")

	go k.run(idle)

	k.mu.Unlock()
	<-idle.started
	k.mu.Lock()

	k.port.Start(k.handleTick)
	k.port.ResetPreemptiveSlice()

	return main, nil
}

// AddTask registers a new task and links it into the ring immediately
// after self (spec.md §4.3 "AddTask"). If the new task outranks self, self
// yields before returning so the higher-priority task runs right away.
func (self *Task) AddTask(name string, priority Priority, fn func(*Task, any), param any, stackBuffer []byte) (*Task, error) {
	if fn == nil || priority == PriorityIdle {
		return nil, ErrInvalidParameter
	}

	k.mu.Lock()
	if !k.initialized {
		k.mu.Unlock()
		return nil, ErrNotInitialized
	}
	if k.count >= k.capacity {
		k.mu.Unlock()
		return nil, ErrTooManyTasks
	}

	t := newTask(name, priority, fn, param, stackBuffer)
	t.next = self.next
	self.next = t
	k.count++
	k.activeTasks.Inc()
	k.port.Nudge()

	k.logger.WithFields(logrus.Fields{"task": name, "priority": priority}).Debug("task added")
	k.mu.Unlock()

	go k.run(t)
	<-t.started

	if priority > self.effectivePriority {
		self.Yield()
	}
	return t, nil
}

// IsKnownTask reports whether t is currently registered with the kernel.
func IsKnownTask(t *Task) bool {
	if t == nil {
		return false
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	return isLinked(t)
}

func isLinked(t *Task) bool {
	if k.ringHead == nil {
		return false
	}
	iter := k.ringHead
	for {
		if iter == t {
			return true
		}
		iter = iter.next
		if iter == k.ringHead {
			return false
		}
	}
}

// GetTickCount returns the monotone tick counter (spec.md §4.2).
func GetTickCount() uint64 {
	for {
		hi1 := k.tickHi.Load()
		lo := k.tickLo.Load()
		hi2 := k.tickHi.Load()
		if hi1 == hi2 {
			return uint64(hi1)<<32 | uint64(lo)
		}
	}
}

// ready reports whether t can be selected to run: not sleeping, not
// blocked on a sync object (sleepCount doubles as both, per spec.md §3),
// and not mid-termination.
func ready(t *Task) bool {
	return t.sleepCount == 0 && !t.terminating
}

// selectNext implements the next-task-selection algorithm (spec.md §4.1):
// the highest-effective-priority ready task in the ring, FIFO among equal
// priorities starting just after current, falling back to idle.
func (k *kernelState) selectNext() *Task {
	best := k.idle
	iter := k.current.next
	for i := 0; i < k.count; i++ {
		if iter != k.idle && ready(iter) {
			if best == k.idle || iter.effectivePriority > best.effectivePriority {
				best = iter
			}
		}
		iter = iter.next
	}
	return best
}

// enter is the common scheduler entry point every blocking or yielding
// kernel call funnels through (spec.md §4.1's Yielded / PreemptiveSwitch /
// ForcedSwitch / TerminatingTask sources all resolve to this same
// selection logic — the Go port's cooperative-preemption model means only
// self's own goroutine ever calls it, never a background IRQ source; see
// DESIGN.md). Caller must hold k.mu; enter releases and reacquires it
// around the actual context switch.
func (self *Task) enter(terminating bool) {
	for {
		next := k.selectNext()
		k.port.ClearPreemptPending()
		k.port.ClearForcedPending()

		if next == self && !terminating {
			k.port.ResetPreemptiveSlice()
			return
		}

		k.current = next
		k.port.ResetPreemptiveSlice()
		k.logger.WithFields(logrus.Fields{"from": self.Name, "to": next.Name}).Debug("switching task")

		k.mu.Unlock()
		next.resume()
		if terminating {
			// self's goroutine is exiting for good: nobody will ever send
			// on its baton again, so it must not park. The pause gate was
			// already released above; the newly installed task (or
			// whoever it hands off to next) owns it from here.
			return
		}
		self.park()
		k.mu.Lock()

		// Coalesce: if a higher-priority condition arrived while we were
		// off-CPU, loop and reselect before returning control to self's
		// caller (spec.md §4.1 step 4).
		if k.port.PreemptPending() || k.port.ForcedPending() {
			continue
		}
		return
	}
}

// CheckPoint gives a CPU-bound task a place to cooperate with a pending
// preemption request. Go cannot suspend another goroutine's execution at
// an arbitrary point the way a real timer IRQ suspends whatever the core
// was doing, so a task that never calls a blocking kernel function and
// never calls CheckPoint can starve lower-priority tasks indefinitely —
// an accepted, documented limitation of the software Platform Port (see
// DESIGN.md).
func (self *Task) CheckPoint() {
	k.mu.Lock()
	pending := k.port.PreemptPending() || k.port.ForcedPending()
	k.mu.Unlock()
	if pending {
		self.Yield()
	}
}

// Yield gives up the CPU for this tick without sleeping (spec.md §4.3).
func (self *Task) Yield() {
	k.mu.Lock()
	defer k.mu.Unlock()
	self.enter(false)
}

// PauseSwitching nests a request to suppress scheduler IRQs (spec.md
// §4.1 "Pause/Resume gate"). Must be balanced by ResumeSwitching from the
// same task.
func (self *Task) PauseSwitching() {
	if self.pauseCount == 0 {
		k.mu.Lock()
	}
	self.pauseCount++
}

// ResumeSwitching unwinds one level of PauseSwitching. On the outermost
// call it releases the pause gate, which lets a tick that arrived while
// paused run; a pending preempt or forced-switch flag is left for the next
// scheduler entry or CheckPoint.
func (self *Task) ResumeSwitching() {
	kassert.Assert(self.pauseCount > 0, "ResumeSwitching without a matching PauseSwitching")
	self.pauseCount--
	if self.pauseCount == 0 {
		k.mu.Unlock()
	}
}

// Sleep blocks self for the given number of ticks, or until woken, or
// forever for TimeoutInfinite (spec.md §4.2). TimeoutNone returns
// immediately without switching.
func (self *Task) Sleep(timeout Timeout) {
	if timeout == TimeoutNone {
		return
	}

	k.mu.Lock()
	self.sleepCount = timeout
	k.activeTasks.Dec()
	self.enter(false)
	k.mu.Unlock()
}

// terminateTask retires t: wakes its joiners, unlinks it from the ring,
// and switches away permanently (spec.md §4.3 "TerminateTask"). Called by
// Task.run once fn returns, or by Terminate for self-termination.
func (k *kernelState) terminateTask(t *Task) {
	k.mu.Lock()

	// t is always the running task here, so always active; decrement
	// unconditionally before marking it terminating, matching the
	// original's unconditional g_ActiveTasks-- (gating on ready(t) after
	// terminating is set would always skip this).
	k.activeTasks.Dec()

	t.terminating = true
	if t.join.waiters != nil {
		k.notifyAll(t.join)
	}

	iter := k.ringHead
	for iter.next != t {
		iter = iter.next
	}
	iter.next = t.next
	if k.ringHead == t {
		k.ringHead = t.next
	}
	k.count--

	k.logger.WithField("task", t.Name).Debug("task terminated")

	t.enter(true)
	// enter returns here with k.mu already released (see enter's
	// terminating branch): t's goroutine has handed off the CPU for the
	// last time and is about to exit.
}

// Terminate ends self early, equivalent to fn returning (spec.md §4.3).
func (self *Task) Terminate() {
	k.terminateTask(self)
	runtime.Goexit()
}

// JoinTask blocks self until other has terminated, or timeout elapses
// (spec.md §4.7). Returns ErrTimeout if the wait expires first.
func (self *Task) JoinTask(other *Task, timeout Timeout) error {
	if other == self {
		return ErrInvalidParameter
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if !isLinked(other) {
		if other != nil && other.terminating {
			return nil
		}
		return ErrInvalidParameter
	}

	other.join.queue(self)
	self.sleepCount = timeout
	k.activeTasks.Dec()
	self.enter(false)

	if self.isWaitingFor == nil {
		return nil
	}
	other.join.unqueue(self)
	return ErrTimeout
}
