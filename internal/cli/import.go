package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alphalat/alphalat/internal/epochs"
	"github.com/alphalat/alphalat/internal/store"
)

func newImportCmd(a *app) *cobra.Command {
	var (
		task    string
		path    string
		replace bool
	)

	cmd := &cobra.Command{
		Use:   "import <subject>",
		Short: "Store an epochs file for a subject",
		Long: `Store already-epoched data for a subject and task.

The file is the JSON epochs document written by 'alat epoch' or any tool
producing the same layout: channels, sfreq, tmin, event_id and trials.

Example:
  alat import 07 --task N2pc --epochs sub-07-N2pc-epo.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := epochs.ParseTask(task)
			if err != nil {
				return err
			}

			in, err := openInput(path)
			if err != nil {
				return err
			}
			defer in.Close()

			ep, err := epochs.ReadJSON(in)
			if err != nil {
				return err
			}

			return a.withStore(func(s *store.SQLiteStore) error {
				ds, err := s.SaveDataset(cmd.Context(), args[0], t, ep, replace)
				if errors.Is(err, store.ErrExists) {
					return fmt.Errorf("sub-%s %s is already imported; pass --replace to overwrite it", args[0], t)
				}
				if err != nil {
					return err
				}
				a.logger.Debug("dataset imported", zap.Int64("dataset_id", ds.ID), zap.String("file", path))
				fmt.Fprintf(cmd.OutOrStdout(), "Imported sub-%s %s: %d trials, %d channels at %g Hz\n",
					ds.Subject, ds.Task, ds.NTrials, len(ds.Channels), ds.SFreq)
				return nil
			})
		},
	}

	addTaskFlag(cmd, &task)
	cmd.Flags().StringVarP(&path, "epochs", "e", "", "epochs JSON file ('-' for stdin)")
	cmd.Flags().BoolVar(&replace, "replace", false, "replace an existing dataset and its runs")
	_ = cmd.MarkFlagRequired("epochs")
	return cmd
}
