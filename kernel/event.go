package kernel

// Event is a latching notification primitive built on the notification
// flavour of the sync-object substrate (spec.md §4.6). NotifyOne/NotifyAll
// wake waiters immediately; if nobody is waiting, the notification
// latches so the very next Wait call returns without blocking, covering
// the race between a notifier and a not-yet-waiting task.
type Event struct {
	so *syncObject
}

// NewEvent returns an Event ready to use, with no pending notification.
func NewEvent() *Event {
	return &Event{so: newNotificationSyncObject()}
}

// Wait blocks self until the event is notified or timeout ticks elapse. A
// latched notification from an earlier NotifyOne/NotifyAll is consumed
// immediately without blocking (spec.md §4.6).
func (e *Event) Wait(self *Task, timeout Timeout) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if !k.initialized {
		return ErrNotInitialized
	}

	if e.so.pendingNotification {
		e.so.pendingNotification = false
		return nil
	}

	if timeout == TimeoutNone {
		return ErrTimeout
	}

	e.so.queue(self)
	self.sleepCount = timeout
	k.activeTasks.Dec()
	self.enter(false)

	if self.isWaitingFor == nil {
		return nil
	}
	e.so.unqueue(self)
	return ErrTimeout
}

// NotifyOne wakes the highest-priority waiter, or latches a pending
// notification if nobody is currently waiting (spec.md §4.6).
func (e *Event) NotifyOne(self *Task) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if e.so.waiters == nil {
		e.so.pendingNotification = true
		return
	}
	k.notifyOne(e.so)
	self.enter(false)
}

// NotifyAll wakes every waiter, or latches a pending notification if
// nobody is currently waiting.
func (e *Event) NotifyAll(self *Task) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if e.so.waiters == nil {
		e.so.pendingNotification = true
		return
	}
	k.notifyAll(e.so)
	self.enter(false)
}
