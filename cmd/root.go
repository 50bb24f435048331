// Package cmd defines and implements the CLI commands for the
// docfoundry executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docfoundry",
		Short: "Documentation aggregation and sync service",
		Long: `docfoundry keeps a searchable index of external documentation in
sync with its sources. It crawls registered documentation links on
cron schedules, converts pages to markdown, and skips re-indexing of
unchanged content via content hashing.`,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (YAML)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSyncCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
