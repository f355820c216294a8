package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bmildner/SimpleTaskSwitcher/cmd/stsdemo/scenario"
	"github.com/bmildner/SimpleTaskSwitcher/kernel"
)

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "stsdemo [scenario]",
		Short: "Run a SimpleTaskSwitcher priority-inheritance walkthrough",
		Long: "stsdemo builds a small kernel instance on the software Platform Port\n" +
			"and drives one of spec.md §8's scenarios to completion, logging each\n" +
			"task's priority and readiness as the scheduler resolves inheritance.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, ok := scenario.Get(args[0])
			if !ok {
				return fmt.Errorf("unknown scenario %q (available: %v)", args[0], scenario.Names())
			}
			level := logrus.InfoLevel
			if verbose {
				level = logrus.DebugLevel
			}
			return s.Run(level)
		},
	}

	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug-level scheduler tracing")
	root.Flags().Var(priorityFlag{&scenario.HighPriority}, "priority",
		"priority of the scenario's contending task (lowest, low, normal, high, highest)")
	root.Flags().DurationVar(&scenario.TickPeriod, "tick-period", scenario.TickPeriod,
		"software Platform Port tick period")
	root.Flags().Uint32Var(&scenario.SliceTicks, "slice-ticks", scenario.SliceTicks,
		"number of ticks in one preemptive time slice")
	root.AddCommand(newListCmd())
	root.AddCommand(newStatsCmd())

	return root
}

// newStatsCmd runs a scenario to completion and prints a final ps-style
// snapshot of every task's priority and readiness (SPEC_FULL.md §12
// "GetTaskList / task introspection").
func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats [scenario]",
		Short: "Run a scenario and print final task stats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, ok := scenario.Get(args[0])
			if !ok {
				return fmt.Errorf("unknown scenario %q (available: %v)", args[0], scenario.Names())
			}
			if err := s.Run(logrus.WarnLevel); err != nil {
				return err
			}
			cmd.Printf("%-12s %-6s %-6s %-8s %s\n", "TASK", "BASE", "EFF", "READY", "TERMINATING")
			for _, st := range kernel.Stats() {
				cmd.Printf("%-12s %-6d %-6d %-8t %t\n", st.Name, st.BasePriority, st.EffectivePriority, st.Ready, st.Terminating)
			}
			return nil
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available scenarios",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range scenario.Names() {
				s, _ := scenario.Get(name)
				cmd.Printf("%-10s %s\n", s.Name, s.Description)
			}
			return nil
		},
	}
}
