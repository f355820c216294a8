// Package scenario builds the priority-inheritance walkthroughs from
// spec.md §8 on top of the kernel package, for stsdemo to drive and print.
package scenario

import (
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bmildner/SimpleTaskSwitcher/kernel"
	"github.com/bmildner/SimpleTaskSwitcher/platform"
)

// Scenario is one runnable walkthrough.
type Scenario struct {
	Name        string
	Description string
	run         func(log *logrus.Logger) error
}

// HighPriority is the priority given to each scenario's contending task
// (spec.md §8's "H"). Overridable from the command line via --priority.
var HighPriority = kernel.PriorityHigh

// TickPeriod and SliceTicks configure the software Platform Port every
// scenario builds its kernel instance on. Overridable via --tick-period
// and --slice-ticks.
var (
	TickPeriod = 2 * time.Millisecond
	SliceTicks = uint32(10)
)

var registry = map[string]Scenario{}

func register(s Scenario) { registry[s.Name] = s }

// Names returns every registered scenario name, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Get looks up a scenario by name.
func Get(name string) (Scenario, bool) {
	s, ok := registry[name]
	return s, ok
}

// Run executes s against a fresh Software platform port, logging at the
// given level.
func (s Scenario) Run(level logrus.Level) error {
	log := logrus.New()
	log.SetLevel(level)
	return s.run(log)
}

func newKernel(log *logrus.Logger) (*kernel.Task, *platform.Software, error) {
	port := platform.NewSoftware(TickPeriod, SliceTicks)
	main, err := kernel.Initialize(8, port, "main", make([]byte, 256), make([]byte, 256))
	if err != nil {
		return nil, nil, err
	}
	logrus.SetLevel(log.GetLevel())
	return main, port, nil
}

func dumpStats(log *logrus.Logger, label string) {
	for _, st := range kernel.Stats() {
		log.WithFields(logrus.Fields{
			"task":  st.Name,
			"base":  st.BasePriority,
			"eff":   st.EffectivePriority,
			"ready": st.Ready,
			"stage": label,
		}).Info("task state")
	}
}

func init() {
	register(Scenario{
		Name:        "inherit",
		Description: "low-priority task holds a mutex a high-priority task needs; the low task inherits priority until it unlocks",
		run:         runInherit,
	})
	register(Scenario{
		Name:        "event",
		Description: "a high-priority task waits on an event a low-priority task later notifies",
		run:         runEvent,
	})
}

func runInherit(log *logrus.Logger) error {
	main, port, err := newKernel(log)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer port.Stop()

	mu := kernel.NewMutex()

	low, err := main.AddTask("low", kernel.PriorityLow, func(self *kernel.Task, _ any) {
		if err := mu.Lock(self, kernel.TimeoutInfinite); err != nil {
			log.WithError(err).Error("low: lock failed")
			return
		}
		log.Info("low: acquired mutex, working")
		self.Sleep(20)
		log.WithField("eff", self.EffectivePriority()).Info("low: releasing mutex")
		_ = mu.Unlock(self)
	}, nil, make([]byte, 256))
	if err != nil {
		return err
	}

	_, err = main.AddTask("high", HighPriority, func(self *kernel.Task, _ any) {
		self.Sleep(2)
		log.Info("high: requesting mutex, should drive low's priority up")
		if err := mu.Lock(self, kernel.TimeoutInfinite); err != nil {
			log.WithError(err).Error("high: lock failed")
			return
		}
		log.Info("high: acquired mutex")
		_ = mu.Unlock(self)
	}, nil, make([]byte, 256))
	if err != nil {
		return err
	}

	dumpStats(log, "start")
	_ = main.JoinTask(low, kernel.TimeoutMaximum)
	dumpStats(log, "end")
	return nil
}

func runEvent(log *logrus.Logger) error {
	main, port, err := newKernel(log)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer port.Stop()

	ev := kernel.NewEvent()

	waiter, err := main.AddTask("waiter", HighPriority, func(self *kernel.Task, _ any) {
		log.Info("waiter: waiting for event")
		err := ev.Wait(self, kernel.TimeoutMaximum)
		log.WithError(err).Info("waiter: woke up")
	}, nil, make([]byte, 256))
	if err != nil {
		return err
	}

	_, err = main.AddTask("notifier", kernel.PriorityLow, func(self *kernel.Task, _ any) {
		self.Sleep(10)
		log.Info("notifier: notifying event")
		ev.NotifyOne(self)
	}, nil, make([]byte, 256))
	if err != nil {
		return err
	}

	_ = main.JoinTask(waiter, kernel.TimeoutMaximum)
	return nil
}
