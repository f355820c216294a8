// Command stsdemo exercises SimpleTaskSwitcher's priority-inheritance
// behaviour from the command line (spec.md §8's scenarios), logging each
// scenario's steps and, with --verbose, every task switch the kernel makes.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.WithError(err).Error("stsdemo failed")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
