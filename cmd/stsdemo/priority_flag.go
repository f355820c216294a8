package main

import (
	"fmt"

	"github.com/bmildner/SimpleTaskSwitcher/kernel"
)

// priorityFlag adapts kernel.Priority to pflag.Value so --priority accepts
// the named levels from spec.md §3 instead of a raw uint8.
type priorityFlag struct {
	value *kernel.Priority
}

var priorityNames = map[string]kernel.Priority{
	"lowest":  kernel.PriorityLowest,
	"low":     kernel.PriorityLow,
	"normal":  kernel.PriorityNormal,
	"high":    kernel.PriorityHigh,
	"highest": kernel.PriorityHighest,
}

func (f priorityFlag) String() string {
	if f.value == nil {
		return "normal"
	}
	for name, p := range priorityNames {
		if p == *f.value {
			return name
		}
	}
	return fmt.Sprintf("%d", *f.value)
}

func (f priorityFlag) Set(s string) error {
	p, ok := priorityNames[s]
	if !ok {
		return fmt.Errorf("unknown priority %q (want one of lowest, low, normal, high, highest)", s)
	}
	*f.value = p
	return nil
}

func (f priorityFlag) Type() string { return "priority" }
