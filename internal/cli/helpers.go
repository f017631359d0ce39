package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/alphalat/alphalat/internal/epochs"
	"github.com/alphalat/alphalat/internal/lateral"
	"github.com/alphalat/alphalat/internal/store"
)

// withStore opens the database, executes the function, and handles cleanup.
func (a *app) withStore(fn func(*store.SQLiteStore) error) error {
	s, err := store.Open(a.cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer s.Close()

	return fn(s)
}

func addTaskFlag(cmd *cobra.Command, task *string) {
	names := make([]string, 0, len(epochs.Tasks()))
	for _, t := range epochs.Tasks() {
		names = append(names, string(t))
	}
	cmd.Flags().StringVarP(task, "task", "t", string(epochs.TaskN2pc), "task ("+strings.Join(names, ", ")+")")
}

// resolveDataset finds the dataset named by the optional subject argument,
// prompting for one when the subject is omitted and several match.
func resolveDataset(ctx context.Context, s store.Store, args []string, task epochs.Task) (*store.Dataset, error) {
	if len(args) > 0 {
		ds, err := s.GetDataset(ctx, args[0], task)
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("dataset sub-%s %s not found", args[0], task)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get dataset: %w", err)
		}
		return ds, nil
	}

	all, err := s.ListDatasets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	var matching []*store.Dataset
	for _, ds := range all {
		if ds.Task == task {
			matching = append(matching, ds)
		}
	}
	return pickDataset(matching, task)
}

func pickDataset(datasets []*store.Dataset, task epochs.Task) (*store.Dataset, error) {
	switch len(datasets) {
	case 0:
		return nil, fmt.Errorf("no %s datasets yet; add one with 'alat import' or 'alat epoch'", task)
	case 1:
		return datasets[0], nil
	}

	items := make([]string, len(datasets))
	for i, ds := range datasets {
		items[i] = fmt.Sprintf("sub-%s (%d trials)", ds.Subject, ds.NTrials)
	}
	prompt := promptui.Select{
		Label: "Subject",
		Items: items,
		Size:  10,
	}
	idx, _, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) {
			return nil, fmt.Errorf("canceled")
		}
		return nil, err
	}
	return datasets[idx], nil
}

// printTable writes the alpha power table in aligned columns.
func printTable(out io.Writer, t *lateral.Table) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CONDITION\tTARGET\tDISTRACTOR\tALPHA SIDE\tCLUSTER\tPOWER")
	for _, r := range t.Rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.6g\n",
			r.Condition, r.TargetSide, r.DistractorSide, r.AlphaSide, r.Cluster, r.Power)
	}
	return w.Flush()
}

// getTokenFilePath returns the path to the token file
func getTokenFilePath(dbPath string) string {
	// Store token file alongside the database
	dir := filepath.Dir(dbPath)
	return filepath.Join(dir, ".alat-token")
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f, nil
}
