package platform

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIdleWaitBlocksUntilActive(t *testing.T) {
	s := NewSoftware(time.Millisecond, 5)

	var active atomic.Uint32
	woke := make(chan struct{})

	go func() {
		s.IdleWait(func() uint32 { return active.Load() })
		close(woke)
	}()

	select {
	case <-woke:
		t.Fatal("IdleWait returned before Nudge while the count was still zero")
	case <-time.After(20 * time.Millisecond):
	}

	active.Store(1)
	s.Nudge()

	select {
	case <-woke:
	case <-time.After(time.Second):
		t.Fatal("IdleWait never woke after Nudge")
	}
}

func TestIdleWaitReturnsImmediatelyWhenAlreadyActive(t *testing.T) {
	s := NewSoftware(time.Millisecond, 5)
	done := make(chan struct{})
	go func() {
		s.IdleWait(func() uint32 { return 1 })
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("IdleWait blocked despite an already-active count")
	}
}

func TestPreemptPendingLatchesAfterSlice(t *testing.T) {
	s := NewSoftware(time.Millisecond, 2)
	s.ResetPreemptiveSlice()

	require.Eventually(t, s.PreemptPending, time.Second, time.Millisecond)

	s.ClearPreemptPending()
	require.False(t, s.PreemptPending())
}

func TestResetPreemptiveSliceCancelsAnEarlierFire(t *testing.T) {
	s := NewSoftware(5*time.Millisecond, 1)
	s.ResetPreemptiveSlice()
	time.Sleep(2 * time.Millisecond)
	s.ResetPreemptiveSlice() // restarts the slice before it would have fired

	require.False(t, s.PreemptPending())
}

func TestForcedPendingRoundTrips(t *testing.T) {
	s := NewSoftware(time.Millisecond, 5)
	require.False(t, s.ForcedPending())
	s.RequestForcedSwitch()
	require.True(t, s.ForcedPending())
	s.ClearForcedPending()
	require.False(t, s.ForcedPending())
}

func TestStartDeliversTicks(t *testing.T) {
	s := NewSoftware(time.Millisecond, 5)
	var count atomic.Int32
	s.Start(func() { count.Add(1) })
	defer s.Stop()

	require.Eventually(t, func() bool { return count.Load() >= 3 }, time.Second, time.Millisecond)
}
