package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adityabisht-lab/reddit-video-generator/internal/store"
	"github.com/adityabisht-lab/reddit-video-generator/internal/types"
)

// JobsCmd inspects the job queue from the command line.
func JobsCmd(st *store.Store) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect the job queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := st.Stats()
			if err != nil {
				return err
			}
			for _, status := range []types.Status{
				types.StatusPending, types.StatusFetching, types.StatusComposing,
				types.StatusRendering, types.StatusCompleted, types.StatusError,
			} {
				fmt.Printf("%-10s %d\n", status, stats[status])
			}
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list [status]",
		Short: "List jobs in a given status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status := types.Status(args[0])
			if !status.Valid() {
				return fmt.Errorf("unknown status %q", args[0])
			}
			jobs, err := st.ListByStatus(status)
			if err != nil {
				return err
			}
			for _, job := range jobs {
				detail := job.ArtifactRef
				if job.Status == types.StatusError {
					detail = job.ErrorDetail
				}
				fmt.Printf("%s  %-10s  %s  %s\n", job.ID, job.Status, job.SourceRef, detail)
			}
			fmt.Printf("%d job(s)\n", len(jobs))
			return nil
		},
	}
	jobsCmd.AddCommand(listCmd)

	return jobsCmd
}
