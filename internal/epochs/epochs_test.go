package epochs_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphalat/alphalat/internal/epochs"
	"github.com/alphalat/alphalat/internal/testutil"
)

func smallStore(t *testing.T, sfreq float64, conds ...epochs.Condition) *epochs.Store {
	t.Helper()
	eventID := make(map[epochs.Condition]int)
	var trials []epochs.Trial
	for i, c := range conds {
		if _, ok := eventID[c]; !ok {
			eventID[c] = len(eventID) + 1
		}
		trials = append(trials, epochs.Trial{
			Index:     i,
			Condition: c,
			Data:      [][]float64{{float64(i), 0, 1}, {0, float64(i), 1}},
		})
	}
	s, err := epochs.New(epochs.Layout{Channels: []string{"P7", "P8"}, SFreq: sfreq}, eventID, trials)
	require.NoError(t, err)
	return s
}

func TestNew_InfersNTimes(t *testing.T) {
	s := smallStore(t, 100, epochs.NoDisTargetL)

	assert.Equal(t, 3, s.NTimes())
	assert.Equal(t, []float64{0, 0.01, 0.02}, s.Times())
}

func TestNew_RejectsBadShapes(t *testing.T) {
	eventID := map[epochs.Condition]int{epochs.NoDisTargetL: 3}
	layout := epochs.Layout{Channels: []string{"P7", "P8"}, SFreq: 100}

	_, err := epochs.New(layout, eventID, []epochs.Trial{
		{Index: 0, Condition: epochs.NoDisTargetL, Data: [][]float64{{1, 2}}},
	})
	assert.ErrorIs(t, err, epochs.ErrInvalidTrials)

	_, err = epochs.New(layout, eventID, []epochs.Trial{
		{Index: 0, Condition: epochs.NoDisTargetL, Data: [][]float64{{1, 2}, {1, 2}}},
		{Index: 1, Condition: epochs.NoDisTargetL, Data: [][]float64{{1, 2}, {1}}},
	})
	assert.ErrorIs(t, err, epochs.ErrInvalidTrials)

	_, err = epochs.New(layout, eventID, []epochs.Trial{
		{Index: 0, Condition: epochs.NoDisTargetL, Data: [][]float64{{1}, {1}}},
		{Index: 0, Condition: epochs.NoDisTargetL, Data: [][]float64{{1}, {1}}},
	})
	assert.ErrorIs(t, err, epochs.ErrInvalidTrials)
}

func TestNew_RejectsUnknownTag(t *testing.T) {
	_, err := epochs.New(
		epochs.Layout{Channels: []string{"P7"}, SFreq: 100},
		map[epochs.Condition]int{epochs.NoDisTargetL: 3},
		[]epochs.Trial{{Index: 0, Condition: epochs.NoDisTargetR, Data: [][]float64{{1}}}},
	)
	assert.ErrorIs(t, err, epochs.ErrMissingCondition)
}

func TestSelect_PreservesOrder(t *testing.T) {
	s := smallStore(t, 100, epochs.NoDisTargetL, epochs.NoDisTargetR, epochs.NoDisTargetL, epochs.NoDisTargetL)

	sub, err := s.Select(epochs.NoDisTargetL)
	require.NoError(t, err)

	require.Equal(t, 3, sub.Len())
	assert.Equal(t, []int{0, 2, 3}, []int{sub.Trial(0).Index, sub.Trial(1).Index, sub.Trial(2).Index})
	assert.Equal(t, []epochs.Condition{epochs.NoDisTargetL}, sub.Vocabulary())
	assert.Equal(t, 4, s.Len(), "parent store must be untouched")
}

func TestSelect_MissingCondition(t *testing.T) {
	s := smallStore(t, 100, epochs.NoDisTargetL)

	_, err := s.Select(epochs.DisTopTargetL)

	var mce *epochs.MissingConditionError
	require.ErrorAs(t, err, &mce)
	assert.Equal(t, epochs.DisTopTargetL, mce.Condition)
	assert.ErrorIs(t, err, epochs.ErrMissingCondition)
}

func TestSelect_EmptyButDeclared(t *testing.T) {
	eventID := map[epochs.Condition]int{epochs.NoDisTargetL: 3, epochs.NoDisTargetR: 4}
	s, err := epochs.New(epochs.Layout{Channels: []string{"P7"}, SFreq: 100, NTimes: 2}, eventID, []epochs.Trial{
		{Index: 0, Condition: epochs.NoDisTargetL, Data: [][]float64{{1, 2}}},
	})
	require.NoError(t, err)

	sub, err := s.Select(epochs.NoDisTargetR)
	require.NoError(t, err)
	assert.Equal(t, 0, sub.Len())
	assert.Equal(t, 2, sub.NTimes())
}

func TestSelectPart(t *testing.T) {
	s := testutil.N2pcStore(t, testutil.DefaultSynth())

	right, err := s.SelectPart("target_r")
	require.NoError(t, err)
	assert.Equal(t, 40, right.Len())
	for _, c := range right.Conditions() {
		assert.True(t, c.HasPart("target_r"), c)
	}

	_, err = s.SelectPart("target_up")
	assert.ErrorIs(t, err, epochs.ErrMissingCondition)
}

func TestConcatenate(t *testing.T) {
	s := smallStore(t, 100, epochs.DisTopTargetL, epochs.DisBotTargetL, epochs.DisTopTargetL)
	top, err := s.Select(epochs.DisTopTargetL)
	require.NoError(t, err)
	bot, err := s.Select(epochs.DisBotTargetL)
	require.NoError(t, err)

	merged, err := epochs.Concatenate(top, bot)
	require.NoError(t, err)

	require.Equal(t, 3, merged.Len())
	assert.Equal(t, []int{0, 2, 1}, []int{merged.Trial(0).Index, merged.Trial(1).Index, merged.Trial(2).Index})
	assert.Equal(t, []epochs.Condition{epochs.DisTopTargetL, epochs.DisBotTargetL}, merged.Conditions())
}

func TestConcatenate_MismatchedSampleRate(t *testing.T) {
	a := smallStore(t, 100, epochs.NoDisTargetL)
	b := smallStore(t, 512, epochs.NoDisTargetL)

	_, err := epochs.Concatenate(a, b)

	var ime *epochs.IncompatibleMergeError
	require.True(t, errors.As(err, &ime))
	assert.ErrorIs(t, err, epochs.ErrIncompatibleMerge)
	assert.Contains(t, ime.Reason, "sampling rates")
}

func TestConcatenate_MismatchedChannels(t *testing.T) {
	a := smallStore(t, 100, epochs.NoDisTargetL)
	b, err := epochs.New(
		epochs.Layout{Channels: []string{"P7", "PO8"}, SFreq: 100},
		map[epochs.Condition]int{epochs.NoDisTargetR: 4},
		[]epochs.Trial{{Index: 7, Condition: epochs.NoDisTargetR, Data: [][]float64{{0, 0, 0}, {0, 0, 0}}}},
	)
	require.NoError(t, err)

	_, err = epochs.Concatenate(a, b)
	assert.ErrorIs(t, err, epochs.ErrIncompatibleMerge)
}

func TestConcatenate_DuplicateTrial(t *testing.T) {
	a := smallStore(t, 100, epochs.NoDisTargetL)

	_, err := epochs.Concatenate(a, a)
	assert.ErrorIs(t, err, epochs.ErrIncompatibleMerge)
}

func TestRelabel(t *testing.T) {
	s := smallStore(t, 100, epochs.DisTopTargetR, epochs.DisBotTargetR)

	r := s.Relabel(epochs.DisVertTargetR, epochs.CodeDisVertTargetR)

	assert.Equal(t, []epochs.Condition{epochs.DisVertTargetR}, r.Conditions())
	assert.Equal(t, map[epochs.Condition]int{epochs.DisVertTargetR: epochs.CodeDisVertTargetR}, r.EventID())
	assert.Equal(t, []epochs.Condition{epochs.DisTopTargetR, epochs.DisBotTargetR}, s.Conditions())
	assert.Equal(t, s.Trial(1).Index, r.Trial(1).Index)
}

func TestAccessorsReturnCopies(t *testing.T) {
	s := smallStore(t, 100, epochs.NoDisTargetL)

	ch := s.Channels()
	ch[0] = "Fz"
	ids := s.EventID()
	ids[epochs.Human] = 4

	assert.Equal(t, 0, s.ChannelIndex("P7"))
	assert.Equal(t, -1, s.ChannelIndex("Fz"))
	assert.False(t, s.HasCondition(epochs.Human))
}
