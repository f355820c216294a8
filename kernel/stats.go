package kernel

// TaskStats is a diagnostic snapshot of one task, the introspection
// surface SPEC_FULL.md §12 adds over the distilled spec: the original
// firmware has no equivalent (a debugger attaches to RAM directly), but a
// hosted Go port gains nothing from hiding this.
type TaskStats struct {
	Name              string
	BasePriority      Priority
	EffectivePriority Priority
	Ready             bool
	Terminating       bool
	// StackHighWaterMark is the largest contiguous run of untouched
	// sentinel bytes observed at the low end of the task's stack buffer,
	// a stand-in for the original's stack-painting high-water-mark check
	// (SPEC_FULL.md §12 "Debug stack-painting"). Always equal to the full
	// buffer length in this port, since goroutines never actually execute
	// on the caller-supplied buffer — it is carried for API fidelity and
	// as a place a future real Platform Port could report true usage.
	StackHighWaterMark int
}

// Stats returns a snapshot of every currently registered task, ring
// order starting from the main task. Safe to call from any goroutine.
func Stats() []TaskStats {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.ringHead == nil {
		return nil
	}

	out := make([]TaskStats, 0, k.count)
	iter := k.ringHead
	for i := 0; i < k.count; i++ {
		out = append(out, TaskStats{
			Name:               iter.Name,
			BasePriority:       iter.basePriority,
			EffectivePriority:  iter.effectivePriority,
			Ready:              ready(iter),
			Terminating:        iter.terminating,
			StackHighWaterMark: stackHighWaterMark(iter.stackBuffer),
		})
		iter = iter.next
	}
	return out
}

func stackHighWaterMark(buf []byte) int {
	for i, b := range buf {
		if b != stackPaintByte {
			return i
		}
	}
	return len(buf)
}
