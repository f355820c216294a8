// Package kassert provides the kernel's debug-assertion trap.
//
// The teacher's sync.Mutex carries a bare forward declaration,
// `func throw(string) // provided by runtime`, filled in elsewhere by the
// runtime it ships with. SimpleTaskSwitcher has no lower layer to hand that
// off to, so kassert is that lower layer: in debug builds an invariant
// violation is unrecoverable and the kernel has no path back from it, so it
// logs and aborts the process rather than returning an error.
package kassert

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Debug gates whether Assert actually checks its condition. Production
// builds of embedded targets compile assertions out entirely; the Go port
// exposes the same toggle as a package variable instead of a build tag,
// since the kernel is consumed as a library rather than recompiled per
// invocation.
var Debug = true

// Assert traps with a fatal log line when cond is false and Debug is
// enabled. It mirrors SWITCHER_ASSERT from the original source: there is no
// recovery path, so this never returns when it fires.
func Assert(cond bool, format string, args ...any) {
	if !Debug || cond {
		return
	}
	Throw(fmt.Sprintf(format, args...))
}

// Throw unconditionally traps the kernel with msg, ignoring the Debug
// toggle. Assert calls it when a checked condition fails; nothing else in
// the module calls it. It matches the original's inline cli()-then-halt
// on fatal conditions.
func Throw(msg string) {
	logrus.WithField("component", "kernel").Fatal("kernel invariant violated: " + msg)
	panic("kernel invariant violated: " + msg)
}
