package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alphalat/alphalat/internal/epochs"
	"github.com/alphalat/alphalat/internal/lateral"
	"github.com/alphalat/alphalat/internal/store"
)

func newResultsCmd(a *app) *cobra.Command {
	var (
		task  string
		runID string
	)

	cmd := &cobra.Command{
		Use:   "results [subject]",
		Short: "Show the alpha table of a run",
		Long: `Show the alpha power table and per-condition lateralization index of
the latest run of a dataset, or of the run given with --run.

The index is (contra - ipsi) / (contra + ipsi).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s *store.SQLiteStore) error {
				run, err := findRun(cmd.Context(), s, args, task, runID)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "RUN: %s\n", run.ID)
				fmt.Fprintf(out, "SUBJECT: sub-%s %s\n", run.Subject, run.Task)
				fmt.Fprintf(out, "FINISHED: %s\n", run.FinishedAt.Local().Format("2006-01-02 15:04:05"))
				fmt.Fprintf(out, "BAND: %g-%g Hz\n", run.Params.FMin, run.Params.FMax)
				fmt.Fprintln(out)

				table := run.Table()
				if err := printTable(out, table); err != nil {
					return err
				}

				indices := table.LateralizationIndex()
				fmt.Fprintln(out)
				fmt.Fprintln(out, "CONDITION           CONTRA      IPSI        INDEX")
				fmt.Fprintln(out, strings.Repeat("─", 52))
				for _, idx := range indices {
					fmt.Fprintf(out, "%-18s  %-10.4g  %-10.4g  %+.3f\n", idx.Condition, idx.Contra, idx.Ipsi, idx.Value)
				}

				if summary, err := lateral.Summarize(indices); err == nil {
					fmt.Fprintln(out)
					fmt.Fprintf(out, "Lateralization: mean %+.3f, median %+.3f, sd %.3f, range [%+.3f, %+.3f] over %d conditions\n",
						summary.Mean, summary.Median, summary.StdDev, summary.Min, summary.Max, summary.N)
				}
				return nil
			})
		},
	}

	addTaskFlag(cmd, &task)
	cmd.Flags().StringVar(&runID, "run", "", "run id (defaults to the latest run)")
	return cmd
}

// findRun returns the run with the given id, or the latest run of the
// dataset named by args.
func findRun(ctx context.Context, s store.Store, args []string, task, runID string) (*store.Run, error) {
	if runID != "" {
		run, err := s.GetRun(ctx, runID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("run %s not found", runID)
		}
		return run, err
	}

	t, err := epochs.ParseTask(task)
	if err != nil {
		return nil, err
	}
	ds, err := resolveDataset(ctx, s, args, t)
	if err != nil {
		return nil, err
	}
	run, err := s.LatestRun(ctx, ds.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("sub-%s %s has no runs yet; run 'alat analyze %s' first", ds.Subject, ds.Task, ds.Subject)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}
