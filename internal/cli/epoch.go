package cli

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alphalat/alphalat/internal/blob"
	"github.com/alphalat/alphalat/internal/epochs"
	"github.com/alphalat/alphalat/internal/store"
)

func newEpochCmd(a *app) *cobra.Command {
	var (
		task       string
		recPath    string
		eventsPath string
		sfreq      float64
		noBaseline bool
		replace    bool
	)

	cmd := &cobra.Command{
		Use:   "epoch <subject>",
		Short: "Epoch a continuous recording and store it",
		Long: `Cut a continuous recording into trials using the task preset and store
the result for a subject.

N2pc keeps correctly answered trials only (stimulus codes 1-8 followed by a
128 response) and subtracts the pre-stimulus baseline. Alpheye keeps the
image onsets. Resting-state tasks ignore events and cut 2 s windows.

The selected events are written to the derivatives sink.

Example:
  alat epoch 07 --task N2pc --recording sub-07-N2pc.csv --sfreq 512 --events sub-07-N2pc-events.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			subject := args[0]

			t, err := epochs.ParseTask(task)
			if err != nil {
				return err
			}
			preset, err := epochs.PresetFor(t)
			if err != nil {
				return err
			}

			in, err := openInput(recPath)
			if err != nil {
				return err
			}
			rec, err := epochs.ReadRecordingCSV(in, sfreq)
			in.Close()
			if err != nil {
				return err
			}

			var events []epochs.Event
			if !preset.FixedLength {
				if eventsPath == "" {
					return fmt.Errorf("--events is required for task %s", t)
				}
				in, err := openInput(eventsPath)
				if err != nil {
					return err
				}
				events, err = epochs.ReadEventsCSV(in)
				in.Close()
				if err != nil {
					return err
				}
			}

			selected := preset.SelectEvents(events, rec.NSamples(), rec.SFreq)
			opts := epochs.OptionsFromPreset(preset)
			if noBaseline {
				opts.Baseline = false
			}
			ep, err := epochs.Epoch(rec, selected, opts)
			if err != nil {
				return err
			}
			if ep.Len() == 0 {
				return fmt.Errorf("no trials survived epoching (%d events selected)", len(selected))
			}
			a.logger.Info("epoched recording",
				zap.String("subject", subject),
				zap.String("task", string(t)),
				zap.Int("events", len(selected)),
				zap.Int("trials", ep.Len()))

			sink, err := blob.Open(ctx, a.cfg.Blob)
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := epochs.WriteEventsCSV(&buf, selected); err != nil {
				return err
			}
			key := blob.EventListKey(subject, t)
			if err := sink.Put(ctx, key, &buf, "text/csv"); err != nil {
				return fmt.Errorf("failed to write event list: %w", err)
			}

			return a.withStore(func(s *store.SQLiteStore) error {
				ds, err := s.SaveDataset(ctx, subject, t, ep, replace)
				if errors.Is(err, store.ErrExists) {
					return fmt.Errorf("sub-%s %s is already stored; pass --replace to overwrite it", subject, t)
				}
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Stored sub-%s %s: %d trials from %d selected events\n", ds.Subject, ds.Task, ds.NTrials, len(selected))
				fmt.Fprintf(out, "Event list: %s:%s\n", sink.Driver(), key)
				return nil
			})
		},
	}

	addTaskFlag(cmd, &task)
	cmd.Flags().StringVarP(&recPath, "recording", "r", "", "continuous recording CSV, one column per channel")
	cmd.Flags().StringVarP(&eventsPath, "events", "e", "", "event list CSV (timepoint,duration,stim)")
	cmd.Flags().Float64Var(&sfreq, "sfreq", 512, "sampling rate of the recording in Hz")
	cmd.Flags().BoolVar(&noBaseline, "no-baseline", false, "skip baseline correction")
	cmd.Flags().BoolVar(&replace, "replace", false, "replace an existing dataset and its runs")
	_ = cmd.MarkFlagRequired("recording")
	return cmd
}
