package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/docfoundry/docfoundry/internal/docsync"
	"github.com/docfoundry/docfoundry/internal/scheduler"
)

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync [job]",
		Short: "Run one sync job and exit",
		Long: fmt.Sprintf(`Runs a single named job to completion and exits non-zero if it
fails. Defaults to %s. Known jobs: %s.`,
			scheduler.JobDailySync, strings.Join(scheduler.JobNames, ", ")),
		Args: cobra.MaximumNArgs(1),
		RunE: runSync,
	}
}

func runSync(cmd *cobra.Command, args []string) error {
	name := scheduler.JobDailySync
	if len(args) == 1 {
		name = args[0]
	}

	a, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	state, err := a.sched.Trigger(cmd.Context(), name)
	if err != nil {
		return err
	}

	st, _ := a.sched.Board().Get(name)
	a.logger.Info("job finished",
		zap.String("job", name),
		zap.String("state", string(state)),
		zap.Int("items", st.Items),
		zap.Int("errors", st.Errors),
		zap.Duration("duration", st.Duration),
	)

	switch state {
	case docsync.JobStateFailed:
		return fmt.Errorf("job %s failed: %s", name, st.LastError)
	case docsync.JobStateIdle:
		return fmt.Errorf("job %s is disabled in configuration", name)
	}
	return nil
}
