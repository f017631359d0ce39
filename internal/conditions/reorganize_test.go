package conditions_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphalat/alphalat/internal/conditions"
	"github.com/alphalat/alphalat/internal/epochs"
	"github.com/alphalat/alphalat/internal/testutil"
)

func TestReorganize_OrderAndSizes(t *testing.T) {
	s := testutil.N2pcStore(t, testutil.DefaultSynth())

	slices, err := conditions.Reorganize(s)
	require.NoError(t, err)

	want := []string{
		"no_dis/target_l",
		"no_dis/target_r",
		"dis_right/target_l",
		"dis_left/target_r",
		"dis_vert/target_l",
		"dis_vert/target_r",
	}
	if diff := cmp.Diff(want, conditions.Labels(slices)); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}

	sizes := make([]int, len(slices))
	for i, sl := range slices {
		sizes[i] = sl.Len()
	}
	assert.Equal(t, []int{10, 10, 10, 10, 20, 20}, sizes)
	assert.Equal(t, s.Len(), conditions.Total(slices))
}

func TestReorganize_EveryTrialOnce(t *testing.T) {
	s := testutil.N2pcStore(t, testutil.DefaultSynth())

	slices, err := conditions.Reorganize(s)
	require.NoError(t, err)

	seen := make(map[int]int)
	for _, sl := range slices {
		for _, tr := range sl.Epochs.Trials() {
			seen[tr.Index]++
		}
	}
	require.Len(t, seen, s.Len())
	for idx, n := range seen {
		assert.Equal(t, 1, n, "trial %d", idx)
	}
}

func TestReorganize_VerticalIsTopThenBottom(t *testing.T) {
	s := testutil.N2pcStore(t, testutil.DefaultSynth())
	top, err := s.Select(epochs.DisTopTargetL)
	require.NoError(t, err)
	bot, err := s.Select(epochs.DisBotTargetL)
	require.NoError(t, err)

	slices, err := conditions.Reorganize(s)
	require.NoError(t, err)

	vert := slices[4].Epochs
	var want []int
	for _, tr := range top.Trials() {
		want = append(want, tr.Index)
	}
	for _, tr := range bot.Trials() {
		want = append(want, tr.Index)
	}
	var got []int
	for _, tr := range vert.Trials() {
		got = append(got, tr.Index)
		assert.Equal(t, epochs.DisVertTargetL, tr.Condition)
	}
	assert.Equal(t, want, got)
}

func TestReorganize_MissingCondition(t *testing.T) {
	eventID := epochs.N2pcEventID()
	delete(eventID, epochs.DisBotTargetR)
	s, err := epochs.New(epochs.Layout{Channels: []string{"P7"}, SFreq: 100, NTimes: 1}, eventID, nil)
	require.NoError(t, err)

	_, err = conditions.Reorganize(s)

	var mce *epochs.MissingConditionError
	require.ErrorAs(t, err, &mce)
	assert.Equal(t, epochs.DisBotTargetR, mce.Condition)
}

func TestReorganize_EmptyBucketsKeepLabels(t *testing.T) {
	s, err := epochs.New(epochs.Layout{Channels: []string{"P7"}, SFreq: 100, NTimes: 1}, epochs.N2pcEventID(), nil)
	require.NoError(t, err)

	slices, err := conditions.Reorganize(s)
	require.NoError(t, err)

	require.Len(t, slices, 6)
	assert.Equal(t, epochs.DisVertTargetR, slices[5].Label)
	assert.Equal(t, 0, conditions.Total(slices))
}
