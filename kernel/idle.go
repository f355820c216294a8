package kernel

// idleLoop is the body of the synthetic idle task Initialize creates.
// It never appears in selectNext's candidate scan (spec.md §4.1 "Idle
// behaviour") and exists purely as the fallback selection when no other
// task is ready — its only job is to let the Platform Port put the core
// into its lowest-power wait until something becomes active again.
func idleLoop(self *Task, _ any) {
	for {
		k.port.IdleWait(k.activeTasks.Load)
		self.Yield()
	}
}
