package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphalat/alphalat/internal/epochs"
	"github.com/alphalat/alphalat/internal/lateral"
	"github.com/alphalat/alphalat/internal/spectral"
	"github.com/alphalat/alphalat/internal/store"
	"github.com/alphalat/alphalat/internal/testutil"
)

func smallSynth() testutil.Synth {
	cfg := testutil.DefaultSynth()
	cfg.PerCondition = 2
	cfg.NTimes = 16
	return cfg
}

func TestSaveAndLoadDataset(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()
	ep := testutil.N2pcStore(t, smallSynth())

	d, err := s.SaveDataset(ctx, "07", epochs.TaskN2pc, ep, false)
	require.NoError(t, err)
	assert.Equal(t, 16, d.NTrials)

	got, err := s.GetDataset(ctx, "07", epochs.TaskN2pc)
	require.NoError(t, err)
	assert.Equal(t, d.ID, got.ID)
	assert.Equal(t, testutil.Channels, got.Channels)
	assert.Equal(t, epochs.N2pcEventID(), got.EventID)
	assert.Equal(t, 256.0, got.SFreq)

	loaded, err := s.LoadEpochs(ctx, d.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(ep.Trials(), loaded.Trials()); diff != "" {
		t.Errorf("trials mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, ep.Layout(), loaded.Layout())
}

func TestSaveDataset_Exists(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()
	ep := testutil.N2pcStore(t, smallSynth())

	first, err := s.SaveDataset(ctx, "07", epochs.TaskN2pc, ep, false)
	require.NoError(t, err)

	_, err = s.SaveDataset(ctx, "07", epochs.TaskN2pc, ep, false)
	assert.True(t, errors.Is(err, store.ErrExists))

	require.NoError(t, s.SaveRun(ctx, sampleRun(first.ID)))

	replaced, err := s.SaveDataset(ctx, "07", epochs.TaskN2pc, ep, true)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, replaced.ID)

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, runs, "replacing a dataset drops its runs")
}

func TestGetDataset_NotFound(t *testing.T) {
	s := testutil.SetupTestStore(t)

	_, err := s.GetDataset(context.Background(), "99", epochs.TaskN2pc)
	assert.Equal(t, store.ErrNotFound, err)

	_, err = s.LoadEpochs(context.Background(), 42)
	assert.Equal(t, store.ErrNotFound, err)
}

func TestListAndDeleteDatasets(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()
	ep := testutil.N2pcStore(t, smallSynth())

	for _, subj := range []string{"12", "03"} {
		_, err := s.SaveDataset(ctx, subj, epochs.TaskN2pc, ep, false)
		require.NoError(t, err)
	}

	list, err := s.ListDatasets(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "03", list[0].Subject)

	require.NoError(t, s.DeleteDataset(ctx, "03", epochs.TaskN2pc))
	assert.Equal(t, store.ErrNotFound, s.DeleteDataset(ctx, "03", epochs.TaskN2pc))

	list, err = s.ListDatasets(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func sampleRun(datasetID int64) *store.Run {
	table, _ := lateral.Build(
		[]string{"no_dis/target_l", "dis_vert/target_r"},
		[]float64{1.5, 2.5},
		[]float64{3.5, 4.5},
	)
	start := time.UnixMilli(time.Now().UnixMilli())
	return &store.Run{
		ID:         uuid.NewString(),
		DatasetID:  datasetID,
		Params:     spectral.DefaultParams(),
		Slices:     []store.SliceCount{{Label: "no_dis/target_l", Trials: 10}, {Label: "dis_vert/target_r", Trials: 20}},
		Rows:       table.Rows,
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
	}
}

func TestSaveAndGetRun(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()
	d, err := s.SaveDataset(ctx, "07", epochs.TaskN2pc, testutil.N2pcStore(t, smallSynth()), false)
	require.NoError(t, err)

	run := sampleRun(d.ID)
	require.NoError(t, s.SaveRun(ctx, run))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "07", got.Subject)
	assert.Equal(t, epochs.TaskN2pc, got.Task)
	assert.Equal(t, run.Params, got.Params)
	assert.Equal(t, run.Slices, got.Slices)
	assert.Equal(t, run.Rows, got.Rows)
	assert.True(t, run.StartedAt.Equal(got.StartedAt))
	assert.True(t, run.FinishedAt.Equal(got.FinishedAt))

	_, err = s.GetRun(ctx, "missing")
	assert.Equal(t, store.ErrNotFound, err)
}

func TestLatestRun(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()
	d, err := s.SaveDataset(ctx, "07", epochs.TaskN2pc, testutil.N2pcStore(t, smallSynth()), false)
	require.NoError(t, err)

	_, err = s.LatestRun(ctx, d.ID)
	assert.Equal(t, store.ErrNotFound, err)

	older := sampleRun(d.ID)
	older.StartedAt = older.StartedAt.Add(-time.Hour)
	newer := sampleRun(d.ID)
	require.NoError(t, s.SaveRun(ctx, newer))
	require.NoError(t, s.SaveRun(ctx, older))

	latest, err := s.LatestRun(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, latest.ID)
	assert.Len(t, latest.Rows, 4)

	runs, err := s.ListRuns(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, newer.ID, runs[0].ID)
	assert.Equal(t, older.ID, runs[1].ID)
}
