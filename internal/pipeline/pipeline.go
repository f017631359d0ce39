// Package pipeline runs the full analysis: reorganize the trials into the six
// slices, reduce each slice to cluster power, and build the table.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alphalat/alphalat/internal/conditions"
	"github.com/alphalat/alphalat/internal/epochs"
	"github.com/alphalat/alphalat/internal/lateral"
	"github.com/alphalat/alphalat/internal/spectral"
	"github.com/alphalat/alphalat/internal/store"
)

// Stage names used in errors, logs and metrics.
const (
	StageReorganize = "reorganize"
	StagePower      = "power"
	StageTable      = "table"
)

// Options configures a run. Zero values select the defaults.
type Options struct {
	Params      *spectral.Params
	Transformer spectral.Transformer
	Logger      *zap.Logger
	Metrics     *Metrics
}

// SliceSummary describes one analysis slice.
type SliceSummary struct {
	Label  string `json:"label"`
	Trials int    `json:"trials"`
}

// Result is the outcome of a run.
type Result struct {
	RunID      uuid.UUID                `json:"run_id"`
	Params     spectral.Params          `json:"params"`
	Slices     []SliceSummary           `json:"slices"`
	Powers     []lateral.ConditionPower `json:"powers"`
	Table      *lateral.Table           `json:"table"`
	StartedAt  time.Time                `json:"started_at"`
	FinishedAt time.Time                `json:"finished_at"`
}

// StageError wraps the error that aborted a run.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return e.Stage + ": " + e.Err.Error() }

func (e *StageError) Unwrap() error { return e.Err }

// Run executes the pipeline on an N2pc store. Any stage error aborts the run.
func Run(ctx context.Context, s *epochs.Store, opts Options) (res *Result, err error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	params := spectral.DefaultParams()
	if opts.Params != nil {
		params = *opts.Params
	}

	res = &Result{RunID: uuid.New(), Params: params, StartedAt: time.Now().UTC()}
	logger = logger.With(zap.String("run_id", res.RunID.String()))
	defer func() { opts.Metrics.runDone(err) }()

	logger.Info("starting run", zap.Int("trials", s.Len()), zap.Int("channels", len(s.Channels())))

	start := time.Now()
	slices, err := conditions.Reorganize(s)
	if err != nil {
		return nil, &StageError{Stage: StageReorganize, Err: err}
	}
	opts.Metrics.observeStage(StageReorganize, start)
	for _, sl := range slices {
		res.Slices = append(res.Slices, SliceSummary{Label: string(sl.Label), Trials: sl.Len()})
		opts.Metrics.addTrials(string(sl.Label), sl.Len())
	}
	logger.Debug("reorganized", zap.Any("slices", res.Slices))

	estOpts := []spectral.Option{spectral.WithLogger(logger)}
	if opts.Transformer != nil {
		estOpts = append(estOpts, spectral.WithTransformer(opts.Transformer))
	}
	est, err := spectral.NewEstimator(params, estOpts...)
	if err != nil {
		return nil, &StageError{Stage: StagePower, Err: err}
	}

	start = time.Now()
	right, left, err := est.BandPower(ctx, slices)
	if err != nil {
		return nil, &StageError{Stage: StagePower, Err: err}
	}
	opts.Metrics.observeStage(StagePower, start)

	start = time.Now()
	labels := conditions.Labels(slices)
	res.Powers, err = lateral.Zip(labels, right, left)
	if err != nil {
		return nil, &StageError{Stage: StageTable, Err: err}
	}
	res.Table, err = lateral.BuildFromPowers(res.Powers)
	if err != nil {
		return nil, &StageError{Stage: StageTable, Err: err}
	}
	opts.Metrics.observeStage(StageTable, start)

	res.FinishedAt = time.Now().UTC()
	logger.Info("run complete",
		zap.Int("rows", len(res.Table.Rows)),
		zap.Duration("elapsed", res.FinishedAt.Sub(res.StartedAt)))
	return res, nil
}


// Record converts the result into a run of the given dataset for persistence.
func (r *Result) Record(datasetID int64) *store.Run {
	slices := make([]store.SliceCount, len(r.Slices))
	for i, sl := range r.Slices {
		slices[i] = store.SliceCount{Label: sl.Label, Trials: sl.Trials}
	}
	return &store.Run{
		ID:         r.RunID.String(),
		DatasetID:  datasetID,
		Params:     r.Params,
		Slices:     slices,
		Rows:       append([]lateral.Row(nil), r.Table.Rows...),
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
}
