package cli

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alphalat/alphalat/internal/epochs"
	"github.com/alphalat/alphalat/internal/pipeline"
	"github.com/alphalat/alphalat/internal/store"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var (
		task    string
		workers int
	)

	cmd := &cobra.Command{
		Use:   "analyze [subject]",
		Short: "Compute the alpha lateralization table",
		Long: `Run the analysis on a stored N2pc dataset: split the trials into the six
target/distractor conditions, measure mean alpha power over the right and
left posterior clusters, and store the resulting table as a new run.

Without a subject you are asked to pick one.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			t, err := epochs.ParseTask(task)
			if err != nil {
				return err
			}
			if t != epochs.TaskN2pc {
				return fmt.Errorf("analysis needs an %s dataset, got %s", epochs.TaskN2pc, t)
			}

			params := a.cfg.Params()
			if cmd.Flags().Changed("workers") {
				params.Workers = workers
			}

			return a.withStore(func(s *store.SQLiteStore) error {
				ds, err := resolveDataset(ctx, s, args, t)
				if err != nil {
					return err
				}
				ep, err := s.LoadEpochs(ctx, ds.ID)
				if err != nil {
					return fmt.Errorf("failed to load epochs: %w", err)
				}

				reg := prometheus.NewRegistry()
				metrics, err := pipeline.NewMetrics(reg)
				if err != nil {
					return err
				}

				logger := a.logger.With(zap.String("subject", ds.Subject))
				res, runErr := pipeline.Run(ctx, ep, pipeline.Options{
					Params:  &params,
					Logger:  logger,
					Metrics: metrics,
				})

				// Failed runs are counted too
				if path := a.cfg.Metrics.TextfilePath; path != "" {
					if err := pipeline.WriteTextfile(path, reg); err != nil {
						logger.Warn("failed to write metrics", zap.Error(err))
					}
				}
				if runErr != nil {
					return runErr
				}

				if err := s.SaveRun(ctx, res.Record(ds.ID)); err != nil {
					return fmt.Errorf("failed to save run: %w", err)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "RUN: %s\n", res.RunID)
				fmt.Fprintf(out, "SUBJECT: sub-%s %s\n", ds.Subject, ds.Task)
				fmt.Fprintf(out, "BAND: %g-%g Hz, clusters %v / %v\n", params.FMin, params.FMax, params.Right, params.Left)
				fmt.Fprintln(out)
				return printTable(out, res.Table)
			})
		},
	}

	addTaskFlag(cmd, &task)
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "parallel slice workers (0 uses all CPUs)")
	return cmd
}
