package kernel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bmildner/SimpleTaskSwitcher/platform"
)

// newTestKernel resets the package-level kernel instance and initializes a
// fresh one on a fast software Platform Port. There is exactly one kernel
// instance per process (spec.md §3, mirroring the original's file-scope
// statics), so every test needs its own reset rather than relying on
// isolation between table cases.
func newTestKernel(t *testing.T) (*Task, *platform.Software) {
	t.Helper()
	k = kernelState{}

	port := platform.NewSoftware(time.Millisecond, 5)
	main, err := Initialize(8, port, "main", make([]byte, 128), make([]byte, 128))
	require.NoError(t, err)

	t.Cleanup(port.Stop)
	return main, port
}

// pump repeatedly steps main aside with a short Sleep and checks cond,
// until cond holds or timeout elapses. The test goroutine doubles as the
// main task's own goroutine: a priority scheduler never preempts main for
// a lower-priority task just because main calls CheckPoint, so actually
// sleeping (going not-ready) is what gives every other task, regardless
// of its priority relative to main's, a turn to run.
func pump(t *testing.T, main *Task, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return
		}
		if !time.Now().Before(deadline) {
			require.True(t, cond(), "condition never became true within %s", timeout)
			return
		}
		main.Sleep(1)
	}
}

// sent reports whether a value is available on ch without blocking.
func sent(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func TestAddTaskRespectsCapacity(t *testing.T) {
	main, _ := newTestKernel(t)

	// capacity is 8; main and idle already occupy two slots, so six more
	// additions should fit exactly before AddTask refuses a seventh.
	for i := 0; i < 6; i++ {
		_, err := main.AddTask("filler", PriorityLow, func(*Task, any) {}, nil, make([]byte, 64))
		require.NoError(t, err)
	}

	_, err := main.AddTask("overflow", PriorityLow, func(*Task, any) {}, nil, make([]byte, 64))
	require.ErrorIs(t, err, ErrTooManyTasks)
}

func TestAddTaskRejectsInvalidParameters(t *testing.T) {
	main, _ := newTestKernel(t)

	_, err := main.AddTask("nilfn", PriorityLow, nil, nil, make([]byte, 64))
	require.ErrorIs(t, err, ErrInvalidParameter)

	_, err = main.AddTask("idle-prio", PriorityIdle, func(*Task, any) {}, nil, make([]byte, 64))
	require.ErrorIs(t, err, ErrInvalidParameter)
}

func TestJoinTaskRejectsSelf(t *testing.T) {
	main, _ := newTestKernel(t)

	require.ErrorIs(t, main.JoinTask(main, TimeoutInfinite), ErrInvalidParameter)
}

func TestMutexPriorityInheritance(t *testing.T) {
	main, _ := newTestKernel(t)

	mu := NewMutex()
	highAcquired := make(chan struct{}, 1)
	lowUnlocked := make(chan struct{}, 1)

	low, err := main.AddTask("low", PriorityLow, func(self *Task, _ any) {
		require.NoError(t, mu.Lock(self, TimeoutInfinite))
		self.Sleep(40) // hold the mutex long enough for high to queue behind it
		require.NoError(t, mu.Unlock(self))
		lowUnlocked <- struct{}{}
	}, nil, make([]byte, 128))
	require.NoError(t, err)

	_, err = main.AddTask("high", PriorityHigh, func(self *Task, _ any) {
		self.Sleep(5) // let low take the lock first
		require.NoError(t, mu.Lock(self, TimeoutInfinite))
		highAcquired <- struct{}{}
		require.NoError(t, mu.Unlock(self))
	}, nil, make([]byte, 128))
	require.NoError(t, err)

	pump(t, main, time.Second, func() bool {
		return low.EffectivePriority() == PriorityHigh
	})

	pump(t, main, time.Second, func() bool { return sent(highAcquired) })
	pump(t, main, time.Second, func() bool { return sent(lowUnlocked) })

	pump(t, main, time.Second, func() bool {
		return low.EffectivePriority() == low.BasePriority()
	})
}

func TestEventNotifyWakesWaiter(t *testing.T) {
	main, _ := newTestKernel(t)

	ev := NewEvent()
	result := make(chan error, 1)

	_, err := main.AddTask("waiter", PriorityHigh, func(self *Task, _ any) {
		result <- ev.Wait(self, TimeoutMaximum)
	}, nil, make([]byte, 128))
	require.NoError(t, err)

	_, err = main.AddTask("notifier", PriorityLow, func(self *Task, _ any) {
		ev.NotifyOne(self)
	}, nil, make([]byte, 128))
	require.NoError(t, err)

	pump(t, main, time.Second, func() bool { return len(result) > 0 })
	require.NoError(t, <-result)
}

func TestEventNotificationLatchesWithNoWaiter(t *testing.T) {
	main, _ := newTestKernel(t)

	ev := NewEvent()
	ev.NotifyOne(main)

	result := make(chan error, 1)
	_, err := main.AddTask("late-waiter", PriorityLow, func(self *Task, _ any) {
		result <- ev.Wait(self, TimeoutNone)
	}, nil, make([]byte, 128))
	require.NoError(t, err)

	pump(t, main, time.Second, func() bool { return len(result) > 0 })
	require.NoError(t, <-result, "a latched notification must satisfy the next Wait without blocking")
}

func TestEventWaitTimesOutWithoutNotify(t *testing.T) {
	main, _ := newTestKernel(t)

	ev := NewEvent()
	result := make(chan error, 1)

	_, err := main.AddTask("waiter", PriorityLow, func(self *Task, _ any) {
		result <- ev.Wait(self, Timeout(3))
	}, nil, make([]byte, 128))
	require.NoError(t, err)

	pump(t, main, time.Second, func() bool { return len(result) > 0 })
	require.ErrorIs(t, <-result, ErrTimeout)
}

func TestJoinTaskWaitsForCompletion(t *testing.T) {
	main, _ := newTestKernel(t)

	finished := make(chan struct{}, 1)
	worker, err := main.AddTask("worker", PriorityNormal, func(self *Task, _ any) {
		self.Sleep(5)
		finished <- struct{}{}
	}, nil, make([]byte, 128))
	require.NoError(t, err)

	require.NoError(t, main.JoinTask(worker, TimeoutMaximum))
	require.True(t, sent(finished), "JoinTask returned before the joined task finished")
}

func TestJoinTaskOnAlreadyFinishedTaskReturnsImmediately(t *testing.T) {
	main, _ := newTestKernel(t)

	done := make(chan struct{}, 1)
	worker, err := main.AddTask("quick", PriorityNormal, func(*Task, any) {
		done <- struct{}{}
	}, nil, make([]byte, 128))
	require.NoError(t, err)

	pump(t, main, time.Second, func() bool { return sent(done) })
	pump(t, main, time.Second, func() bool { return !IsKnownTask(worker) })

	require.NoError(t, main.JoinTask(worker, TimeoutMaximum))
}

func TestMutexRecursiveLocking(t *testing.T) {
	main, _ := newTestKernel(t)

	mu := NewMutex()
	result := make(chan error, 1)

	_, err := main.AddTask("recurse", PriorityNormal, func(self *Task, _ any) {
		if err := mu.Lock(self, TimeoutInfinite); err != nil {
			result <- err
			return
		}
		if err := mu.Lock(self, TimeoutInfinite); err != nil {
			result <- err
			return
		}
		// Unlocking once must not release ownership to anyone else yet.
		if err := mu.Unlock(self); err != nil {
			result <- err
			return
		}
		result <- mu.Unlock(self)
	}, nil, make([]byte, 128))
	require.NoError(t, err)

	pump(t, main, time.Second, func() bool { return len(result) > 0 })
	require.NoError(t, <-result)
}

func TestMutexUnlockByNonOwnerFails(t *testing.T) {
	main, _ := newTestKernel(t)

	mu := NewMutex()
	result := make(chan error, 1)

	_, err := main.AddTask("intruder", PriorityNormal, func(self *Task, _ any) {
		result <- mu.Unlock(self)
	}, nil, make([]byte, 128))
	require.NoError(t, err)

	pump(t, main, time.Second, func() bool { return len(result) > 0 })
	require.ErrorIs(t, <-result, ErrResourceNotOwned)
}
