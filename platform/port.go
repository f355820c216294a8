// Package platform defines the Platform Port contract (spec.md §6): the
// collaborators a target supplies so the scheduler core never has to know
// how interrupts, context switches, or low-power idling actually work on
// the hardware underneath it.
//
// The reference target here is not a particular MCU but "goroutines on the
// Go runtime": Software, this package's only Port implementation, stands in
// for the register-save/restore assembly, timer/vector setup, and
// low-power-idle primitive spec.md §1 keeps out of scope. See
// SPEC_FULL.md's header paragraph and DESIGN.md for why a goroutine parked
// on a channel is a faithful stand-in for a saved stack pointer, and for
// the one genuine limitation that substitution can't paper over: Go has no
// supported way to suspend another goroutine's execution at an arbitrary
// point, so preemption of a CPU-bound task is cooperative here rather than
// truly asynchronous.
package platform

// Port is what the scheduler core requires from its target, mirroring
// spec.md §6's Platform Port bullet list minus the context save/restore
// primitive (which the Go port gets for free from goroutine parking, see
// kernel.Task.baton) and minus raw IRQ vector wiring (Start/Stop below play
// that role instead of bare interrupt hooks).
type Port interface {
	// DisableInterrupts brackets the short, ISR-racy windows spec.md §5
	// calls out (sleep-counter and active-task-counter writes). The
	// returned func restores the prior state; callers must invoke it
	// exactly once.
	DisableInterrupts() (restore func())

	// ResetPreemptiveSlice rearms the preemptive time-slice timer so a
	// freshly scheduled task gets a full slice (spec.md §4.1 step 3). On
	// expiry the slice timer sets the preempt-pending flag.
	ResetPreemptiveSlice()

	// RequestForcedSwitch raises the forced-switch flag from any context,
	// the primitive spec.md §4.1 "Forced switch" describes for honouring a
	// newly raised priority.
	RequestForcedSwitch()

	// PreemptPending/ClearPreemptPending and ForcedPending/ClearForcedPending
	// are the "predicates and clear operations for each scheduler IRQ flag"
	// spec.md §6 requires, consumed by the next-task-selection coalescing
	// step (spec.md §4.1 step 4).
	PreemptPending() bool
	ClearPreemptPending()
	ForcedPending() bool
	ClearForcedPending()

	// Start begins delivering the tick IRQ by calling onTick once per
	// configured tick period, until Stop. onTick must be safe to call from
	// a goroutine other than any task's.
	Start(onTick func())
	Stop()

	// IdleWait is the low-power-idle primitive (spec.md §4.1 "Idle
	// behaviour"): it returns at once if active reports a non-zero
	// active-task count and otherwise blocks until the next Nudge,
	// honouring the "enable interrupts, then one instruction, then
	// sleep" no-lost-wakeup guarantee by construction (a semaphore acquire
	// can never miss a release that happened concurrently).
	IdleWait(active func() uint32)

	// Nudge wakes a parked IdleWait. The scheduler calls it whenever the
	// active-task count transitions away from zero, the Go-port
	// replacement for a real target's wake interrupt reaching the idle
	// task's halted core.
	Nudge()
}
