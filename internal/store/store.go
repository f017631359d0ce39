package store

import (
	"context"

	"github.com/alphalat/alphalat/internal/epochs"
)

// Store defines the interface for dataset and run persistence
type Store interface {
	// Dataset operations
	SaveDataset(ctx context.Context, subject string, task epochs.Task, s *epochs.Store, replace bool) (*Dataset, error)
	GetDataset(ctx context.Context, subject string, task epochs.Task) (*Dataset, error)
	ListDatasets(ctx context.Context) ([]*Dataset, error)
	LoadEpochs(ctx context.Context, datasetID int64) (*epochs.Store, error)
	DeleteDataset(ctx context.Context, subject string, task epochs.Task) error

	// Run operations
	SaveRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	LatestRun(ctx context.Context, datasetID int64) (*Run, error)
	ListRuns(ctx context.Context, datasetID int64) ([]*Run, error)

	// Lifecycle
	Close() error
}
