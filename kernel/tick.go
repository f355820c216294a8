package kernel

// handleTick is the tick engine (spec.md §4.2): it runs once per
// configured tick period on the Platform Port's own delivery goroutine,
// never on a task's. It advances the monotone tick count, counts down
// every task's finite sleep, and wakes whichever ones reach zero.
//
// Because the Go port's tick delivery is a real goroutine call rather
// than a one-shot hardware flag, there is nothing to coalesce here: a
// tick that arrives while the pause gate is held by some task simply
// blocks on k.mu until that task resumes switching, then runs in full —
// so, unlike the 8-bit original, no tick is ever silently dropped while
// masked (see DESIGN.md).
func (k *kernelState) handleTick() {
	k.mu.Lock()
	defer k.mu.Unlock()

	lo := k.tickLo.Add(1)
	if lo == 0 {
		k.tickHi.Add(1)
	}

	woke := false
	iter := k.ringHead
	for i := 0; i < k.count; i++ {
		t := iter
		iter = iter.next

		if t.sleepCount > 0 && t.sleepCount != TimeoutInfinite {
			t.sleepCount--
			if t.sleepCount == 0 {
				k.activeTasks.Inc()
				woke = true
			}
		}
	}
	if woke {
		k.port.Nudge()
	}

	current := k.current
	if ready(current) {
		best := k.selectNext()
		if best != current && best.effectivePriority > current.effectivePriority {
			k.port.RequestForcedSwitch()
		}
	}
}
