package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alphalat/alphalat/internal/store"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored datasets",
		Long:  `List all stored datasets with their trial counts and latest run.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s *store.SQLiteStore) error {
				ctx := cmd.Context()
				out := cmd.OutOrStdout()

				datasets, err := s.ListDatasets(ctx)
				if err != nil {
					return fmt.Errorf("failed to list datasets: %w", err)
				}

				if len(datasets) == 0 {
					fmt.Fprintln(out, "No datasets yet.")
					fmt.Fprintln(out)
					fmt.Fprintln(out, "Add one with:")
					fmt.Fprintln(out, "  alat import <subject> --task N2pc --epochs file.json")
					return nil
				}

				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "SUBJECT\tTASK\tTRIALS\tCHANNELS\tSFREQ\tLAST RUN\tCREATED")

				for _, ds := range datasets {
					lastRun := "-"
					run, err := s.LatestRun(ctx, ds.ID)
					switch {
					case err == nil:
						lastRun = run.FinishedAt.Local().Format("2006-01-02 15:04")
					case !errors.Is(err, store.ErrNotFound):
						return fmt.Errorf("failed to get runs for sub-%s: %w", ds.Subject, err)
					}

					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%g\t%s\t%s\n",
						ds.Subject,
						ds.Task,
						formatNumber(ds.NTrials),
						len(ds.Channels),
						ds.SFreq,
						lastRun,
						ds.CreatedAt.Format("2006-01-02"),
					)
				}

				return w.Flush()
			})
		},
	}
}

func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%d,%03d", n/1000, n%1000)
	}
	return fmt.Sprintf("%d,%03d,%03d", n/1000000, (n/1000)%1000, n%1000)
}
