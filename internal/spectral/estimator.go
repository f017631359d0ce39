// Package spectral reduces epoch slices to one alpha-band power value per
// electrode cluster.
package spectral

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/alphalat/alphalat/internal/conditions"
	"github.com/alphalat/alphalat/internal/epochs"
)

// Params configures the band-power reduction.
type Params struct {
	FMin float64 `json:"fmin"`
	FMax float64 `json:"fmax"`
	Step float64 `json:"step"`
	// Right and Left name the electrodes of each cluster.
	Right []string `json:"right"`
	Left  []string `json:"left"`
	// Cycles per frequency are f / CyclesDivisor.
	CyclesDivisor float64 `json:"cycles_divisor"`
	Decim         int     `json:"decim"`
	// Workers bounds the slices transformed concurrently. Zero means GOMAXPROCS.
	Workers int `json:"workers"`
}

// DefaultParams returns the 8-12 Hz band over the posterior clusters.
func DefaultParams() Params {
	return Params{
		FMin:          8,
		FMax:          12,
		Step:          1,
		Right:         []string{"P8", "P10", "PO8"},
		Left:          []string{"P7", "P9", "PO7"},
		CyclesDivisor: 2,
		Decim:         1,
	}
}

// Validate checks that the parameters describe a non-empty band.
func (p Params) Validate() error {
	switch {
	case p.FMin <= 0:
		return fmt.Errorf("fmin must be positive, got %g", p.FMin)
	case p.FMax < p.FMin:
		return fmt.Errorf("fmax (%g) must not be below fmin (%g)", p.FMax, p.FMin)
	case p.Step <= 0:
		return fmt.Errorf("frequency step must be positive, got %g", p.Step)
	case p.CyclesDivisor <= 0:
		return fmt.Errorf("cycles divisor must be positive, got %g", p.CyclesDivisor)
	case p.Decim < 1:
		return fmt.Errorf("decim must be at least 1, got %d", p.Decim)
	case len(p.Right) == 0 || len(p.Left) == 0:
		return errors.New("both electrode clusters must be named")
	case p.Workers < 0:
		return fmt.Errorf("workers must not be negative, got %d", p.Workers)
	}
	return nil
}

// Freqs returns FMin, FMin+Step, ... up to and including FMax.
func (p Params) Freqs() []float64 {
	n := int(math.Floor((p.FMax-p.FMin)/p.Step+1e-9)) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = p.FMin + float64(i)*p.Step
	}
	return out
}

// Cycles returns the wavelet cycle count for each frequency.
func (p Params) Cycles(freqs []float64) []float64 {
	out := make([]float64, len(freqs))
	for i, f := range freqs {
		out[i] = f / p.CyclesDivisor
	}
	return out
}

// Estimator computes cluster band power for epoch slices.
type Estimator struct {
	params      Params
	transformer Transformer
	logger      *zap.Logger
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithTransformer replaces the Morlet transform.
func WithTransformer(t Transformer) Option {
	return func(e *Estimator) { e.transformer = t }
}

// WithWorkers overrides Params.Workers.
func WithWorkers(n int) Option {
	return func(e *Estimator) { e.params.Workers = n }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Estimator) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEstimator validates p and returns an Estimator.
func NewEstimator(p Params, opts ...Option) (*Estimator, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid spectral parameters: %w", err)
	}
	e := &Estimator{params: p, transformer: Morlet{}, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Params returns the estimator's parameters.
func (e *Estimator) Params() Params { return e.params }

// BandPower returns the right- and left-cluster power of every slice,
// position i of each result belonging to slices[i].
func (e *Estimator) BandPower(ctx context.Context, slices []conditions.Slice) (right, left []float64, err error) {
	right = make([]float64, len(slices))
	left = make([]float64, len(slices))

	workers := e.params.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, sl := range slices {
		i, sl := i, sl
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, l, err := e.SlicePower(sl.Epochs)
			if err != nil {
				var ide *InsufficientDataError
				if errors.As(err, &ide) {
					ide.Slice, ide.Label = i, string(sl.Label)
					return ide
				}
				return fmt.Errorf("slice %d (%s): %w", i, sl.Label, err)
			}
			right[i], left[i] = r, l
			e.logger.Debug("slice power",
				zap.Int("slice", i),
				zap.String("condition", string(sl.Label)),
				zap.Int("trials", sl.Len()),
				zap.Float64("right", r),
				zap.Float64("left", l))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return right, left, nil
}

// SlicePower transforms one slice and reduces it per cluster. Errors about
// the slice's content are *InsufficientDataError with Slice unset.
func (e *Estimator) SlicePower(s *epochs.Store) (right, left float64, err error) {
	if s.Len() == 0 {
		return 0, 0, &InsufficientDataError{Reason: "no trials"}
	}
	picks, err := e.picks(s)
	if err != nil {
		return 0, 0, err
	}

	freqs := e.params.Freqs()
	tfr, err := e.transformer.Power(s, freqs, picks, e.params.Cycles(freqs), e.params.Decim)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to compute time-frequency power: %w", err)
	}

	nRight := len(e.params.Right)
	right, err = MeanPower(tfr, 0, nRight)
	if err != nil {
		return 0, 0, err
	}
	left, err = MeanPower(tfr, nRight, len(picks))
	if err != nil {
		return 0, 0, err
	}
	return right, left, nil
}

// picks resolves both clusters to channel positions, right cluster first.
func (e *Estimator) picks(s *epochs.Store) ([]int, error) {
	names := append(append([]string(nil), e.params.Right...), e.params.Left...)
	picks := make([]int, len(names))
	for i, name := range names {
		idx := s.ChannelIndex(name)
		if idx < 0 {
			return nil, &InsufficientDataError{Reason: fmt.Sprintf("electrode %s not in layout", name)}
		}
		picks[i] = idx
	}
	return picks, nil
}

// MeanPower averages channels [from, to) of tfr at every (freq, time) point,
// then averages those values over the whole plane.
func MeanPower(tfr *TFR, from, to int) (float64, error) {
	if from < 0 || to > len(tfr.Power) || from >= to {
		return 0, fmt.Errorf("channel range [%d, %d) outside %d channels", from, to, len(tfr.Power))
	}
	nFreq := len(tfr.Power[from])
	if nFreq == 0 || len(tfr.Power[from][0]) == 0 {
		return 0, errors.New("empty time-frequency plane")
	}
	nTime := len(tfr.Power[from][0])

	plane := make([]float64, 0, nFreq*nTime)
	perPoint := make([]float64, to-from)
	for f := 0; f < nFreq; f++ {
		for t := 0; t < nTime; t++ {
			for c := from; c < to; c++ {
				perPoint[c-from] = tfr.Power[c][f][t]
			}
			plane = append(plane, stat.Mean(perPoint, nil))
		}
	}
	return stat.Mean(plane, nil), nil
}
