package kernel

// Mutex is a recursive, priority-inheriting lock built on the common
// sync-object substrate (spec.md §4.5). The owning task may lock it
// multiple times without blocking itself; each Lock must be matched by an
// Unlock before any other task can acquire it.
type Mutex struct {
	so    *syncObject
	depth uint16
}

// NewMutex returns a Mutex ready to use, initially unowned.
func NewMutex() *Mutex {
	return &Mutex{so: newOwnershipSyncObject()}
}

// Lock acquires m for self, blocking up to timeout ticks if it is held by
// another task (spec.md §4.5, grounded on the original's LockMutex in
// Mutex.c). A task that already owns m simply bumps its recursion depth.
func (m *Mutex) Lock(self *Task, timeout Timeout) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if !k.initialized {
		return ErrNotInitialized
	}

	if m.so.isCurrentOwner(self) {
		m.depth++
		return nil
	}

	if m.so.isFree() {
		m.so.acquire(self)
		m.depth = 1
		return nil
	}

	if timeout == TimeoutNone {
		return ErrTimeout
	}

	m.so.queue(self)
	self.sleepCount = timeout
	k.activeTasks.Dec()
	self.enter(false)

	if m.so.pendingNewOwner && m.so.currentOrNextOwner == self {
		m.so.unqueue(self)
		m.so.acquire(self)
		m.depth = 1
		return nil
	}
	m.so.unqueue(self)
	return ErrTimeout
}

// TryLock attempts to acquire m without blocking, equivalent to
// Lock(self, TimeoutNone) but without the wait-queue overhead on failure.
func (m *Mutex) TryLock(self *Task) bool {
	return m.Lock(self, TimeoutNone) == nil
}

// Unlock releases one level of self's recursion depth on m, handing
// ownership to the highest-priority waiter once depth reaches zero
// (spec.md §4.5). Returns ErrResourceNotOwned if self does not hold m.
func (m *Mutex) Unlock(self *Task) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if !m.so.isCurrentOwner(self) {
		return ErrResourceNotOwned
	}

	m.depth--
	if m.depth > 0 {
		return nil
	}

	k.release(m.so, self)
	// Re-enter the scheduler unconditionally: if release just woke a
	// higher-priority waiter, the normal selection algorithm hands it the
	// CPU right away; otherwise self stays current unless an
	// equal-priority task is ready ahead of it in ring order. No separate forced-switch signal is needed here because
	// self's own goroutine is doing the reselecting synchronously.
	self.enter(false)
	return nil
}
