package platform

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// Software is the reference Port: a goroutine-and-channel stand-in for
// the timer/vector hardware a real target would supply. It is the only
// Port this module ships, used by both the demo CLI and the test suite.
type Software struct {
	mu sync.Mutex // brackets DisableInterrupts, mirroring a real cli/sei pair

	tickPeriod time.Duration
	sliceTicks uint32

	stop    chan struct{}
	stopped chan struct{}

	preemptPending atomic.Bool
	forcedPending  atomic.Bool

	sliceTimer  *time.Timer
	sliceResets atomic.Uint64 // invalidates an in-flight slice-expiry fire after a reset

	idleSem      *semaphore.Weighted
	idleSignaled atomic.Bool
}

// NewSoftware builds a Port that delivers a tick every period and treats
// sliceTicks ticks as one preemptive time slice.
func NewSoftware(period time.Duration, sliceTicks uint32) *Software {
	if sliceTicks == 0 {
		sliceTicks = 1
	}
	s := &Software{
		tickPeriod: period,
		sliceTicks: sliceTicks,
		idleSem:    semaphore.NewWeighted(1),
	}
	// Drain the sole permit so the first IdleWait call genuinely blocks
	// until a Nudge, rather than returning immediately because
	// the semaphore started full.
	_ = s.idleSem.Acquire(context.Background(), 1)
	return s
}

func (s *Software) DisableInterrupts() func() {
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Software) ResetPreemptiveSlice() {
	gen := s.sliceResets.Add(1)
	if s.sliceTimer != nil {
		s.sliceTimer.Stop()
	}
	d := s.tickPeriod * time.Duration(s.sliceTicks)
	s.sliceTimer = time.AfterFunc(d, func() {
		if s.sliceResets.Load() == gen {
			s.preemptPending.Store(true)
		}
	})
}

func (s *Software) RequestForcedSwitch() { s.forcedPending.Store(true) }

func (s *Software) PreemptPending() bool     { return s.preemptPending.Load() }
func (s *Software) ClearPreemptPending()     { s.preemptPending.Store(false) }
func (s *Software) ForcedPending() bool      { return s.forcedPending.Load() }
func (s *Software) ClearForcedPending()      { s.forcedPending.Store(false) }

// Start launches the tick-delivery goroutine. onTick runs synchronously on
// that goroutine once per tickPeriod until Stop; it must not block for
// longer than tickPeriod or ticks will visibly back up (the Go port has no
// single-flag coalescing to fall back on here, see DESIGN.md).
func (s *Software) Start(onTick func()) {
	s.stop = make(chan struct{})
	s.stopped = make(chan struct{})
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(s.tickPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				onTick()
			case <-s.stop:
				return
			}
		}
	}()
}

func (s *Software) Stop() {
	if s.stop == nil {
		return
	}
	close(s.stop)
	<-s.stopped
}

// IdleWait returns at once if active reports a non-zero count; otherwise it
// blocks until a Nudge arrives (one sent earlier and not yet consumed
// counts) and returns without checking active again. The semaphore
// acquire gives the "enable interrupts, then sleep" guarantee for free: a
// Nudge that happens concurrently with the check is never lost, because
// a blocked Acquire is satisfied by a Release that races in after the
// check ran, rather than a polled flag that could be cleared in between.
func (s *Software) IdleWait(active func() uint32) {
	if active() > 0 {
		return
	}
	_ = s.idleSem.Acquire(context.Background(), 1)
	s.idleSignaled.Store(false)
}

// Nudge wakes a parked IdleWait; the caller's idle loop re-checks active on
// its next IdleWait call. The signaled flag
// collapses any number of wakes that land before IdleWait consumes one
// into a single outstanding permit, matching the "single pending event"
// shape of a real wake interrupt.
func (s *Software) Nudge() {
	if s.idleSignaled.CompareAndSwap(false, true) {
		s.idleSem.Release(1)
	}
}
