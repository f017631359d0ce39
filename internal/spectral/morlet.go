package spectral

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"

	"github.com/alphalat/alphalat/internal/epochs"
)

// TFR is trial-averaged time-frequency power indexed [channel][freq][time].
type TFR struct {
	Channels []string
	Freqs    []float64
	Times    []float64
	Power    [][][]float64
}

// Transformer computes trial-averaged power for the picked channels.
type Transformer interface {
	Power(s *epochs.Store, freqs []float64, picks []int, cycles []float64, decim int) (*TFR, error)
}

// Morlet convolves each trial with complex Morlet wavelets.
type Morlet struct{}

// MorletWavelet returns the wavelet for one frequency, sampled at sfreq over
// ±5 standard deviations of its Gaussian envelope and scaled to an L2 norm
// of √2.
func MorletWavelet(sfreq, freq, nCycles float64) []complex128 {
	sigma := nCycles / (2 * math.Pi * freq)
	half := 0
	for float64(half)/sfreq < 5*sigma {
		half++
	}
	// half samples cover [0, 5σ); mirror them around zero.
	w := make([]complex128, 2*half-1)
	var norm float64
	for i := range w {
		t := float64(i-(half-1)) / sfreq
		env := math.Exp(-t * t / (2 * sigma * sigma))
		w[i] = cmplx.Exp(complex(0, 2*math.Pi*freq*t)) * complex(env, 0)
		norm += real(w[i])*real(w[i]) + imag(w[i])*imag(w[i])
	}
	scale := complex(1/(math.Sqrt(0.5)*math.Sqrt(norm)), 0)
	for i := range w {
		w[i] *= scale
	}
	return w
}

// Power implements Transformer.
func (Morlet) Power(s *epochs.Store, freqs []float64, picks []int, cycles []float64, decim int) (*TFR, error) {
	if len(freqs) == 0 {
		return nil, fmt.Errorf("no frequencies requested")
	}
	if len(cycles) != len(freqs) {
		return nil, fmt.Errorf("got %d cycle counts for %d frequencies", len(cycles), len(freqs))
	}
	if decim < 1 {
		decim = 1
	}
	if s.Len() == 0 {
		return nil, fmt.Errorf("no trials to transform")
	}

	nSig := s.NTimes()
	wavelets := make([][]complex128, len(freqs))
	maxLen := 0
	for i, f := range freqs {
		w := MorletWavelet(s.SFreq(), f, cycles[i])
		if len(w) > nSig {
			return nil, fmt.Errorf("wavelet at %g Hz spans %d samples, longer than the %d-sample signal", f, len(w), nSig)
		}
		wavelets[i] = w
		maxLen = max(maxLen, len(w))
	}

	n := nextPow2(nSig + maxLen - 1)
	fft := fourier.NewCmplxFFT(n)
	kernels := make([][]complex128, len(freqs))
	buf := make([]complex128, n)
	for i, w := range wavelets {
		clear(buf)
		copy(buf, w)
		kernels[i] = fft.Coefficients(nil, buf)
	}

	channels := s.Channels()
	out := &TFR{
		Freqs: append([]float64(nil), freqs...),
		Times: decimate(s.Times(), decim),
		Power: make([][][]float64, len(picks)),
	}
	nOut := len(out.Times)
	for p, ch := range picks {
		if ch < 0 || ch >= len(channels) {
			return nil, fmt.Errorf("channel pick %d out of range", ch)
		}
		out.Channels = append(out.Channels, channels[ch])
		out.Power[p] = make([][]float64, len(freqs))
		for f := range freqs {
			out.Power[p][f] = make([]float64, nOut)
		}
	}

	spec := make([]complex128, n)
	prod := make([]complex128, n)
	conv := make([]complex128, n)
	for _, tr := range s.Trials() {
		for p, ch := range picks {
			clear(buf)
			for i, v := range tr.Data[ch] {
				buf[i] = complex(v, 0)
			}
			fft.Coefficients(spec, buf)
			for f, k := range kernels {
				for i := range prod {
					prod[i] = spec[i] * k[i]
				}
				fft.Sequence(conv, prod)
				start := (len(wavelets[f]) - 1) / 2
				row := out.Power[p][f]
				for j, i := 0, 0; i < nSig; i += decim {
					c := conv[start+i] / complex(float64(n), 0)
					row[j] += real(c)*real(c) + imag(c)*imag(c)
					j++
				}
			}
		}
	}

	inv := 1 / float64(s.Len())
	for p := range out.Power {
		for f := range out.Power[p] {
			floats.Scale(inv, out.Power[p][f])
		}
	}
	return out, nil
}

func decimate(xs []float64, step int) []float64 {
	var out []float64
	for i := 0; i < len(xs); i += step {
		out = append(out, xs[i])
	}
	return out
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
