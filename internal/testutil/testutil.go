// Package testutil builds fixtures shared by package tests.
package testutil

import (
	"math"
	"testing"

	"github.com/alphalat/alphalat/internal/epochs"
	"github.com/alphalat/alphalat/internal/store"
)

// Channels used by synthetic stores: both posterior clusters plus a midline site.
var Channels = []string{"P7", "P9", "PO7", "P8", "P10", "PO8", "Oz"}

// SetupTestStore opens a SQLite store in a per-test directory.
func SetupTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	dbPath := t.TempDir() + "/test.db"

	s, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
	})

	return s
}

// Synth describes a synthetic N2pc dataset.
type Synth struct {
	PerCondition int
	SFreq        float64
	TMin         float64
	NTimes       int
	// Amplitudes of a 10 Hz sinusoid on the left and right clusters.
	LeftAmp  float64
	RightAmp float64
}

// DefaultSynth is 10 trials per condition of one second at 256 Hz.
func DefaultSynth() Synth {
	return Synth{PerCondition: 10, SFreq: 256, TMin: -0.2, NTimes: 257, LeftAmp: 1, RightAmp: 2}
}

// N2pcStore builds an eight-condition store. Trials are interleaved across
// conditions the way they arrive in a recording.
func N2pcStore(t *testing.T, cfg Synth) *epochs.Store {
	t.Helper()

	eventID := epochs.N2pcEventID()
	conds := epochs.N2pcConditions()
	var trials []epochs.Trial
	idx := 0
	for rep := 0; rep < cfg.PerCondition; rep++ {
		for ci, c := range conds {
			trials = append(trials, epochs.Trial{
				Index:     idx,
				Onset:     float64(idx) * 1.5,
				Condition: c,
				Data:      synthSignal(cfg, float64(ci+1)*0.1+float64(rep)*0.01),
			})
			idx++
		}
	}

	s, err := epochs.New(epochs.Layout{Channels: Channels, SFreq: cfg.SFreq, TMin: cfg.TMin, NTimes: cfg.NTimes}, eventID, trials)
	if err != nil {
		t.Fatalf("failed to build synthetic store: %v", err)
	}
	return s
}

func synthSignal(cfg Synth, phase float64) [][]float64 {
	data := make([][]float64, len(Channels))
	for ch, name := range Channels {
		amp := 0.0
		switch name {
		case "P7", "P9", "PO7":
			amp = cfg.LeftAmp
		case "P8", "P10", "PO8":
			amp = cfg.RightAmp
		}
		row := make([]float64, cfg.NTimes)
		for i := range row {
			tm := cfg.TMin + float64(i)/cfg.SFreq
			row[i] = amp * math.Sin(2*math.Pi*10*tm+phase)
		}
		data[ch] = row
	}
	return data
}
