package lateral

import (
	"errors"
	"fmt"

	"github.com/montanaflynn/stats"
)

// ErrNoIndices is returned when summarizing an empty index list.
var ErrNoIndices = errors.New("no lateralization indices")

// Summary describes the spread of lateralization indices across conditions.
type Summary struct {
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Summarize computes descriptive statistics over the index values.
func Summarize(indices []Index) (Summary, error) {
	if len(indices) == 0 {
		return Summary{}, ErrNoIndices
	}
	values := make(stats.Float64Data, len(indices))
	for i, idx := range indices {
		values[i] = idx.Value
	}

	s := Summary{N: len(values)}
	var err error
	if s.Mean, err = values.Mean(); err != nil {
		return Summary{}, fmt.Errorf("failed to compute mean: %w", err)
	}
	if s.Median, err = values.Median(); err != nil {
		return Summary{}, fmt.Errorf("failed to compute median: %w", err)
	}
	if s.StdDev, err = values.StandardDeviation(); err != nil {
		return Summary{}, fmt.Errorf("failed to compute standard deviation: %w", err)
	}
	if s.Min, err = values.Min(); err != nil {
		return Summary{}, fmt.Errorf("failed to compute min: %w", err)
	}
	if s.Max, err = values.Max(); err != nil {
		return Summary{}, fmt.Errorf("failed to compute max: %w", err)
	}
	return s, nil
}
