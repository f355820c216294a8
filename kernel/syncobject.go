package kernel

import "github.com/bmildner/SimpleTaskSwitcher/internal/kassert"

// syncObject is the common substrate under Mutex and Event: a
// priority-sorted waiter queue plus either ownership or notification
// metadata, selected by hasOwnership. It mirrors the teacher's semaRoot
// (runtime/sema.go) in spirit — a shared wait-queue data structure
// parameterized by what "being woken" means for the caller — but the
// waiter list here is the plain priority-sorted singly linked list
// spec.md §3 specifies, not a treap, since a sync object is expected to
// carry at most a handful of waiters on an 8-bit target.
//
// All methods require the caller to already hold the scheduler paused;
// none of them take the pause gate themselves.
type syncObject struct {
	waiters *Task // head of the priority-sorted waiter list

	hasOwnership bool // ownership flavour (Mutex) vs notification flavour (Event)

	// Ownership-flavour fields. currentOrNextOwner's meaning depends on
	// pendingNewOwner: the current owner when false, the designated
	// successor (§3 "PendingNewOwner") when true.
	currentOrNextOwner *Task
	pendingNewOwner    bool
	acquiredNext       *syncObject // link in owner's acquired list

	// Notification-flavour field.
	pendingNotification bool
}

func newOwnershipSyncObject() *syncObject {
	return &syncObject{hasOwnership: true}
}

func newNotificationSyncObject() *syncObject {
	return &syncObject{hasOwnership: false}
}

// isFree reports the Free ownership state (§3).
func (s *syncObject) isFree() bool {
	kassert.Assert(s.hasOwnership, "isFree on notification sync object")
	return s.currentOrNextOwner == nil
}

// isOwned reports whether s has a settled owner (Owned state; false while
// PendingNewOwner, since the designee has not yet finalized).
func (s *syncObject) isOwned() bool {
	kassert.Assert(s.hasOwnership, "isOwned on notification sync object")
	return s.currentOrNextOwner != nil && !s.pendingNewOwner
}

func (s *syncObject) isCurrentOwner(task *Task) bool {
	kassert.Assert(s.hasOwnership, "isCurrentOwner on notification sync object")
	return !s.pendingNewOwner && s.currentOrNextOwner == task
}

// addToWaiters inserts task into s's waiter list, sorted by effective
// priority descending, FIFO within ties (spec.md §4.4 Queue step 1).
func (s *syncObject) addToWaiters(task *Task) {
	kassert.Assert(task.waiterNext == nil, "task already linked on a waiter list")

	if s.waiters == nil || s.waiters.effectivePriority < task.effectivePriority {
		task.waiterNext = s.waiters
		s.waiters = task
	} else {
		iter := s.waiters
		for iter.waiterNext != nil && iter.waiterNext.effectivePriority >= task.effectivePriority {
			iter = iter.waiterNext
		}
		task.waiterNext = iter.waiterNext
		iter.waiterNext = task
	}
	task.isWaitingFor = s
}

// removeFromWaiters removes task from s's waiter list.
func (s *syncObject) removeFromWaiters(task *Task) {
	kassert.Assert(task.isWaitingFor == s, "task not waiting on this sync object")

	if s.waiters == task {
		s.waiters = task.waiterNext
	} else {
		iter := s.waiters
		kassert.Assert(iter != nil, "waiter list empty while removing a waiter")
		for iter.waiterNext != task {
			iter = iter.waiterNext
			kassert.Assert(iter != nil, "task not found on its own waiter list")
		}
		iter.waiterNext = task.waiterNext
	}
	task.waiterNext = nil
	task.isWaitingFor = nil
}

// wake zeroes task's sleep counter and bumps the active-task counter if it
// was sleeping, under the kernel's full interrupt-disable window — the
// narrow race the tick engine and any ISR-driven wakeup share (spec.md §5).
func (k *kernelState) wake(task *Task) {
	restore := k.port.DisableInterrupts()
	woke := task.sleepCount > 0
	if woke {
		task.sleepCount = 0
		k.activeTasks.Inc()
	}
	restore()
	if woke {
		k.port.Nudge()
	}
}

// acquire finalizes ownership for task (spec.md §4.4 Acquire). Precondition:
// s is Free, or PendingNewOwner with task as the designated successor.
func (s *syncObject) acquire(task *Task) {
	kassert.Assert(s.hasOwnership, "acquire on notification sync object")
	kassert.Assert(s.isFree() || (s.pendingNewOwner && s.currentOrNextOwner == task),
		"acquire precondition violated")

	s.currentOrNextOwner = task
	s.pendingNewOwner = false

	s.acquiredNext = task.acquiredHead
	task.acquiredHead = s

	if s.waiters != nil && s.waiters.effectivePriority > task.effectivePriority {
		task.effectivePriority = s.waiters.effectivePriority
	}
}

// release hands s off to its designated successor, if any, and
// de-inherits the releasing task (spec.md §4.4 Release).
func (k *kernelState) release(s *syncObject, task *Task) {
	kassert.Assert(s.hasOwnership, "release on notification sync object")
	kassert.Assert(s.isCurrentOwner(task), "release by non-owner")

	// 1. unlink s from task's acquired list.
	if task.acquiredHead == s {
		task.acquiredHead = s.acquiredNext
	} else {
		iter := task.acquiredHead
		kassert.Assert(iter != nil, "acquired list empty during release")
		for iter.acquiredNext != s {
			iter = iter.acquiredNext
			kassert.Assert(iter != nil, "sync object not found on owner's acquired list")
		}
		iter.acquiredNext = s.acquiredNext
	}
	s.acquiredNext = nil

	// 2/3. hand off or go Free.
	if s.waiters == nil {
		s.currentOrNextOwner = nil
	} else {
		s.currentOrNextOwner = s.waiters
		s.pendingNewOwner = true
		k.wake(s.currentOrNextOwner)
	}

	// 4. de-inherit the releaser.
	if task.effectivePriority > task.basePriority {
		kassert.Assert(task.isWaitingFor == nil, "releasing task is itself queued")

		newPrio := task.basePriority
		for iter := task.acquiredHead; iter != nil; iter = iter.acquiredNext {
			if iter.waiters != nil && iter.waiters.effectivePriority > newPrio {
				newPrio = iter.waiters.effectivePriority
			}
		}
		task.effectivePriority = newPrio
	}
}

// queue adds task to s's waiter list and runs the transitive
// priority-inheritance walk (spec.md §4.4 Queue).
func (s *syncObject) queue(task *Task) {
	kassert.Assert(!s.hasOwnership || (!s.isFree() && !s.isCurrentOwner(task)),
		"queue precondition violated")

	s.addToWaiters(task)

	cur := s
	for cur != nil && cur.hasOwnership && cur.isOwned() && cur.currentOrNextOwner.effectivePriority < task.effectivePriority {
		owner := cur.currentOrNextOwner
		owner.effectivePriority = task.effectivePriority

		if owner.isWaitingFor != nil {
			w := owner.isWaitingFor
			w.removeFromWaiters(owner)
			w.addToWaiters(owner)
			cur = w
		} else {
			cur = nil
		}
	}
}

// unqueue removes task from s's waiter list and runs the de-inheritance
// walk (spec.md §4.4 Unqueue).
func (s *syncObject) unqueue(task *Task) {
	kassert.Assert(s.waiters != nil, "unqueue on empty waiter list")
	kassert.Assert(task.isWaitingFor == s, "unqueue of task not waiting on s")
	kassert.Assert(!s.hasOwnership || !s.isCurrentOwner(task), "unqueue of current owner")

	s.removeFromWaiters(task)

	cur := s
	for cur.hasOwnership && cur.isOwned() &&
		cur.currentOrNextOwner.effectivePriority > cur.currentOrNextOwner.basePriority &&
		cur.currentOrNextOwner.effectivePriority == task.effectivePriority {

		owner := cur.currentOrNextOwner
		newPrio := owner.basePriority
		for iter := owner.acquiredHead; iter != nil; iter = iter.acquiredNext {
			if iter.hasOwnership && iter.waiters != nil && iter.waiters.effectivePriority > newPrio {
				newPrio = iter.waiters.effectivePriority
			}
		}

		if newPrio != owner.effectivePriority && owner.isWaitingFor != nil {
			owner.effectivePriority = newPrio
			w := owner.isWaitingFor
			w.removeFromWaiters(owner)
			w.addToWaiters(owner)
			cur = w
		} else {
			owner.effectivePriority = newPrio
			break
		}
	}
}

// notifyOne wakes the highest-priority waiter (notification flavour only).
func (k *kernelState) notifyOne(s *syncObject) {
	kassert.Assert(!s.hasOwnership, "notifyOne on ownership sync object")
	kassert.Assert(s.waiters != nil, "notifyOne on empty waiter list")

	task := s.waiters
	s.removeFromWaiters(task)
	k.wake(task)
}

// notifyAll wakes every waiter (notification flavour only).
func (k *kernelState) notifyAll(s *syncObject) {
	kassert.Assert(!s.hasOwnership, "notifyAll on ownership sync object")
	kassert.Assert(s.waiters != nil, "notifyAll on empty waiter list")

	for s.waiters != nil {
		k.notifyOne(s)
	}
}
