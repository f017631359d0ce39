package spectral

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphalat/alphalat/internal/epochs"
)

func TestMorletWavelet_Shape(t *testing.T) {
	w := MorletWavelet(256, 10, 1)

	// sigma = 1/(20π) s; 5 sigma spans 20.37 samples, so 21 per side.
	require.Len(t, w, 41)

	var energy float64
	for _, c := range w {
		energy += real(c)*real(c) + imag(c)*imag(c)
	}
	assert.InDelta(t, 2.0, energy, 1e-12)

	mid := len(w) / 2
	assert.InDelta(t, 0, imag(w[mid]), 1e-15)
	assert.Greater(t, real(w[mid]), 0.0)
	for i := 1; i <= mid; i++ {
		assert.InDelta(t, cmplx.Abs(w[mid-i]), cmplx.Abs(w[mid+i]), 1e-12)
	}
}

func singleTrialStore(t *testing.T, sfreq float64, signal []float64) *epochs.Store {
	t.Helper()
	s, err := epochs.New(
		epochs.Layout{Channels: []string{"Oz"}, SFreq: sfreq},
		map[epochs.Condition]int{epochs.NoDisTargetL: 3},
		[]epochs.Trial{{Index: 0, Condition: epochs.NoDisTargetL, Data: [][]float64{signal}}},
	)
	require.NoError(t, err)
	return s
}

// directPower convolves in the time domain and keeps the centred part.
func directPower(signal []float64, w []complex128) []float64 {
	n, m := len(signal), len(w)
	full := make([]complex128, n+m-1)
	for i, x := range signal {
		for j, c := range w {
			full[i+j] += complex(x, 0) * c
		}
	}
	start := (m - 1) / 2
	out := make([]float64, n)
	for i := range out {
		c := full[start+i]
		out[i] = real(c)*real(c) + imag(c)*imag(c)
	}
	return out
}

func TestMorletPower_MatchesDirectConvolution(t *testing.T) {
	const sfreq = 128.0
	signal := make([]float64, 100)
	for i := range signal {
		tm := float64(i) / sfreq
		signal[i] = math.Sin(2*math.Pi*10*tm) + 0.3*math.Cos(2*math.Pi*23*tm+0.4)
	}
	s := singleTrialStore(t, sfreq, signal)

	tfr, err := Morlet{}.Power(s, []float64{10}, []int{0}, []float64{3}, 1)
	require.NoError(t, err)

	want := directPower(signal, MorletWavelet(sfreq, 10, 3))
	require.Len(t, tfr.Power[0][0], len(want))
	for i := range want {
		assert.InDelta(t, want[i], tfr.Power[0][0][i], 1e-9, "sample %d", i)
	}
}

func TestMorletPower_Decim(t *testing.T) {
	signal := make([]float64, 100)
	for i := range signal {
		signal[i] = math.Sin(float64(i) / 3)
	}
	s := singleTrialStore(t, 128, signal)

	full, err := Morlet{}.Power(s, []float64{10}, []int{0}, []float64{3}, 1)
	require.NoError(t, err)
	dec, err := Morlet{}.Power(s, []float64{10}, []int{0}, []float64{3}, 3)
	require.NoError(t, err)

	require.Len(t, dec.Times, 34)
	require.Len(t, dec.Power[0][0], 34)
	for j, v := range dec.Power[0][0] {
		assert.Equal(t, full.Power[0][0][3*j], v)
		assert.Equal(t, full.Times[3*j], dec.Times[j])
	}
}

func TestMorletPower_WaveletTooLong(t *testing.T) {
	s := singleTrialStore(t, 256, make([]float64, 20))

	_, err := Morlet{}.Power(s, []float64{8}, []int{0}, []float64{4}, 1)
	assert.ErrorContains(t, err, "longer than")
}

func TestMorletPower_AveragesTrials(t *testing.T) {
	a := make([]float64, 64)
	b := make([]float64, 64)
	for i := range a {
		a[i] = math.Sin(2 * math.Pi * 10 * float64(i) / 64)
		b[i] = 3 * a[i]
	}
	s, err := epochs.New(
		epochs.Layout{Channels: []string{"Oz"}, SFreq: 64},
		map[epochs.Condition]int{epochs.NoDisTargetL: 3},
		[]epochs.Trial{
			{Index: 0, Condition: epochs.NoDisTargetL, Data: [][]float64{a}},
			{Index: 1, Condition: epochs.NoDisTargetL, Data: [][]float64{b}},
		},
	)
	require.NoError(t, err)
	single := singleTrialStore(t, 64, a)

	avg, err := Morlet{}.Power(s, []float64{10}, []int{0}, []float64{3}, 1)
	require.NoError(t, err)
	one, err := Morlet{}.Power(single, []float64{10}, []int{0}, []float64{3}, 1)
	require.NoError(t, err)

	// (1 + 9) / 2
	for i := range avg.Power[0][0] {
		assert.InDelta(t, 5*one.Power[0][0][i], avg.Power[0][0][i], 1e-9)
	}
}
