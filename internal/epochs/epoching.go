package epochs

import (
	"fmt"
	"math"
)

// EpochOptions controls how windows are cut around events.
type EpochOptions struct {
	EventID  map[Condition]int
	TMin     float64
	TMax     float64
	Baseline bool
}

// OptionsFromPreset copies the epoching fields of a task preset.
func OptionsFromPreset(p Preset) EpochOptions {
	return EpochOptions{EventID: p.EventID, TMin: p.TMin, TMax: p.TMax, Baseline: p.Baseline}
}

// Epoch cuts one trial per event whose code belongs to the vocabulary.
// Windows that run past either end of the recording are dropped, as are
// events repeating the onset of an earlier one. Trial indices are positions
// in events.
func Epoch(rec *Recording, events []Event, opts EpochOptions) (*Store, error) {
	if opts.TMax <= opts.TMin {
		return nil, fmt.Errorf("tmax (%g) must be greater than tmin (%g)", opts.TMax, opts.TMin)
	}
	if len(rec.Data) != len(rec.Channels) {
		return nil, fmt.Errorf("recording has %d signal rows for %d channels", len(rec.Data), len(rec.Channels))
	}

	byCode := make(map[int]Condition, len(opts.EventID))
	for c, code := range opts.EventID {
		byCode[code] = c
	}

	offset := int(math.Round(opts.TMin * rec.SFreq))
	nTimes := int(math.Round((opts.TMax-opts.TMin)*rec.SFreq)) + 1
	total := rec.NSamples()
	baselineEnd := -offset // sample index of t=0 inside the window

	var trials []Trial
	onsets := make(map[int]bool)
	for i, ev := range events {
		cond, ok := byCode[ev.Code]
		if !ok {
			continue
		}
		if onsets[ev.Sample] {
			continue
		}
		onsets[ev.Sample] = true

		start := ev.Sample + offset
		if start < 0 || start+nTimes > total {
			continue
		}

		data := make([][]float64, len(rec.Channels))
		for ch := range rec.Channels {
			row := make([]float64, nTimes)
			copy(row, rec.Data[ch][start:start+nTimes])
			if opts.Baseline && baselineEnd >= 0 {
				subtractMean(row, baselineEnd+1)
			}
			data[ch] = row
		}
		trials = append(trials, Trial{
			Index:     i,
			Onset:     float64(ev.Sample) / rec.SFreq,
			Condition: cond,
			Data:      data,
		})
	}

	layout := Layout{Channels: rec.Channels, SFreq: rec.SFreq, TMin: float64(offset) / rec.SFreq, NTimes: nTimes}
	return New(layout, opts.EventID, trials)
}

// subtractMean removes the mean of row[:n] from the whole row.
func subtractMean(row []float64, n int) {
	if n > len(row) {
		n = len(row)
	}
	if n == 0 {
		return
	}
	var sum float64
	for _, v := range row[:n] {
		sum += v
	}
	mean := sum / float64(n)
	for i := range row {
		row[i] -= mean
	}
}
