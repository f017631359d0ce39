package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/alphalat/alphalat/internal/epochs"
	"github.com/alphalat/alphalat/internal/lateral"
	"github.com/alphalat/alphalat/internal/pipeline"
	"github.com/alphalat/alphalat/internal/spectral"
	"github.com/alphalat/alphalat/internal/testutil"
)

func TestRun(t *testing.T) {
	s := testutil.N2pcStore(t, testutil.DefaultSynth())
	reg := prometheus.NewRegistry()
	metrics, err := pipeline.NewMetrics(reg)
	require.NoError(t, err)
	core, logs := observer.New(zap.InfoLevel)

	res, err := pipeline.Run(context.Background(), s, pipeline.Options{
		Logger:  zap.New(core),
		Metrics: metrics,
	})
	require.NoError(t, err)

	require.Len(t, res.Slices, 6)
	assert.Equal(t, pipeline.SliceSummary{Label: "dis_vert/target_r", Trials: 20}, res.Slices[5])
	require.Len(t, res.Table.Rows, 12)
	assert.Equal(t, lateral.ClusterRight, res.Table.Rows[0].Cluster)
	assert.Equal(t, lateral.ClusterLeft, res.Table.Rows[6].Cluster)
	assert.Equal(t, res.Powers[0].Right, res.Table.Rows[0].Power)
	assert.Equal(t, res.Powers[0].Left, res.Table.Rows[6].Power)
	assert.NotEqual(t, uuid.Nil, res.RunID)
	assert.Equal(t, spectral.DefaultParams(), res.Params)
	assert.False(t, res.FinishedAt.Before(res.StartedAt))

	assert.Equal(t, 2, logs.FilterField(zap.String("run_id", res.RunID.String())).Len())
	assert.Equal(t, 1.0, counterValue(t, reg, "alat_runs_total"))
	count, err := promtest.GatherAndCount(reg, "alat_stage_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestResult_Record(t *testing.T) {
	ctx := context.Background()
	s := testutil.N2pcStore(t, testutil.DefaultSynth())
	db := testutil.SetupTestStore(t)

	ds, err := db.SaveDataset(ctx, "07", epochs.TaskN2pc, s, false)
	require.NoError(t, err)
	res, err := pipeline.Run(ctx, s, pipeline.Options{})
	require.NoError(t, err)

	run := res.Record(ds.ID)
	require.NoError(t, db.SaveRun(ctx, run))

	got, err := db.GetRun(ctx, res.RunID.String())
	require.NoError(t, err)
	assert.Equal(t, "07", got.Subject)
	assert.Equal(t, res.Table.Rows, got.Rows)
	require.Len(t, got.Slices, 6)
	assert.Equal(t, 20, got.Slices[4].Trials)
	assert.WithinDuration(t, res.FinishedAt, got.FinishedAt, time.Millisecond)
}

func TestRun_MissingCondition(t *testing.T) {
	eventID := epochs.N2pcEventID()
	delete(eventID, epochs.DisLeftTargetR)
	s, err := epochs.New(epochs.Layout{Channels: testutil.Channels, SFreq: 256, NTimes: 257}, eventID, nil)
	require.NoError(t, err)

	_, err = pipeline.Run(context.Background(), s, pipeline.Options{})

	var se *pipeline.StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, pipeline.StageReorganize, se.Stage)
	assert.ErrorIs(t, err, epochs.ErrMissingCondition)
}

func TestRun_PowerStageError(t *testing.T) {
	cfg := testutil.DefaultSynth()
	s := testutil.N2pcStore(t, cfg)
	params := spectral.DefaultParams()
	params.Right = []string{"P8", "CP6"}

	_, err := pipeline.Run(context.Background(), s, pipeline.Options{Params: &params})

	var se *pipeline.StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, pipeline.StagePower, se.Stage)
	assert.ErrorIs(t, err, spectral.ErrInsufficientData)
}

func TestWriteTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := pipeline.NewMetrics(reg)
	require.NoError(t, err)
	_, err = pipeline.Run(context.Background(), testutil.N2pcStore(t, testutil.DefaultSynth()), pipeline.Options{Metrics: metrics})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "alat.prom")
	require.NoError(t, pipeline.WriteTextfile(path, reg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `alat_runs_total{outcome="success"} 1`)
	assert.Contains(t, string(data), `alat_trials_total{condition="dis_vert/target_l"} 20`)
}

func TestNewMetrics_DoubleRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := pipeline.NewMetrics(reg)
	require.NoError(t, err)

	_, err = pipeline.NewMetrics(reg)
	assert.Error(t, err)
}

func counterValue(t *testing.T, g prometheus.Gatherer, name string) float64 {
	t.Helper()
	families, err := g.Gather()
	require.NoError(t, err)
	var total float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			total += m.GetCounter().GetValue()
		}
		return total
	}
	t.Fatalf("metric %s not gathered", name)
	return 0
}
