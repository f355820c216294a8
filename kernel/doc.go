// Package kernel implements SimpleTaskSwitcher's scheduler core: a
// preemptive, fixed-priority task switcher with transitive priority
// inheritance across a recursive mutex and a latching event, built on a
// common sync-object substrate (spec.md §§3-4).
//
// A goroutine stands in for each task's execution context, parked on a
// per-task channel ("baton") instead of a saved stack pointer; the
// scheduler's job of picking who runs next is unchanged, only how it
// hands over the CPU differs. See the platform package and DESIGN.md for
// the accepted limits of that substitution.
package kernel
