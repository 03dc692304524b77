// Package cli implements the taskgroup demo command.
package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the command tree. Each call returns a fresh tree with
// its own configuration state.
func NewRootCmd() *cobra.Command {
	var cfgFile string
	root := &cobra.Command{
		Use:   "taskgroup",
		Short: "Structured task group demo",
		Long: `taskgroup fans work out to a structured task group and fans the
results back in as tasks complete. No task outlives the group.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML)")
	root.AddCommand(newRunCmd(&cfgFile))
	return root
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}
