package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/alphalat/alphalat/internal/blob"
	"github.com/alphalat/alphalat/internal/export"
	"github.com/alphalat/alphalat/internal/store"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		task   string
		runID  string
		format string
		out    string
		sink   bool
	)

	cmd := &cobra.Command{
		Use:   "export [subject]",
		Short: "Export a run's alpha table",
		Long: `Export the alpha power table of a run as CSV, JSON or XLSX.

By default the table goes to stdout. --out writes a file; --sink stores it in
the configured derivatives store under
sub-<id>/alpha/sub-<id>-alpha-power-<task>.<format>.

Examples:
  alat export 07 --format csv > alpha.csv
  alat export 07 --format xlsx --out alpha.xlsx
  alat export 07 --format csv --sink`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			if sink && out != "" {
				return fmt.Errorf("--out and --sink are mutually exclusive")
			}

			return a.withStore(func(s *store.SQLiteStore) error {
				run, err := findRun(ctx, s, args, task, runID)
				if err != nil {
					return err
				}

				var buf bytes.Buffer
				meta := export.Meta{Subject: run.Subject, Task: string(run.Task), RunID: run.ID}
				if err := export.Write(&buf, f, meta, run.Table()); err != nil {
					return err
				}

				switch {
				case sink:
					dst, err := blob.Open(ctx, a.cfg.Blob)
					if err != nil {
						return err
					}
					key := blob.DerivativeKey(run.Subject, run.Task, string(f))
					if err := dst.Put(ctx, key, &buf, f.ContentType()); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Exported %s:%s\n", dst.Driver(), key)
				case out != "":
					if err := os.WriteFile(out, buf.Bytes(), 0644); err != nil {
						return fmt.Errorf("failed to write %s: %w", out, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Exported %s\n", out)
				default:
					if _, err := io.Copy(cmd.OutOrStdout(), &buf); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	addTaskFlag(cmd, &task)
	cmd.Flags().StringVar(&runID, "run", "", "run id (defaults to the latest run)")
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "output format (csv, json or xlsx)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file")
	cmd.Flags().BoolVar(&sink, "sink", false, "write to the derivatives store")
	return cmd
}
