// Package epochs holds the trial data model: immutable trials that share a
// channel layout, a sampling rate and a time axis, plus the selection and
// concatenation operations the analysis is built on.
package epochs

import (
	"fmt"
	"slices"
)

// Trial is one epoch of multichannel signal aligned to a stimulus event.
// Data is indexed [channel][sample] and must not be modified once the trial
// belongs to a Store.
type Trial struct {
	Index     int
	Onset     float64 // seconds from recording start
	Condition Condition
	Data      [][]float64
}

// Layout describes the axes every trial in a Store shares.
type Layout struct {
	Channels []string
	SFreq    float64
	TMin     float64
	NTimes   int // inferred from the first trial when zero
}

// Store is an ordered, read-only collection of trials.
type Store struct {
	layout  Layout
	eventID map[Condition]int
	trials  []Trial
}

// New validates the trials against the layout and vocabulary and returns a Store.
func New(layout Layout, eventID map[Condition]int, trials []Trial) (*Store, error) {
	if len(layout.Channels) == 0 {
		return nil, fmt.Errorf("%w: no channels", ErrInvalidTrials)
	}
	if layout.SFreq <= 0 {
		return nil, fmt.Errorf("%w: sampling rate must be positive, got %g", ErrInvalidTrials, layout.SFreq)
	}
	if layout.NTimes == 0 && len(trials) > 0 && len(trials[0].Data) > 0 {
		layout.NTimes = len(trials[0].Data[0])
	}

	seen := make(map[int]bool, len(trials))
	for i, tr := range trials {
		if _, ok := eventID[tr.Condition]; !ok {
			return nil, fmt.Errorf("trial %d: %w", tr.Index, &MissingConditionError{Condition: tr.Condition})
		}
		if seen[tr.Index] {
			return nil, fmt.Errorf("%w: duplicate trial index %d", ErrInvalidTrials, tr.Index)
		}
		seen[tr.Index] = true
		if len(tr.Data) != len(layout.Channels) {
			return nil, fmt.Errorf("%w: trial %d (position %d) has %d channels, want %d",
				ErrInvalidTrials, tr.Index, i, len(tr.Data), len(layout.Channels))
		}
		for ch, row := range tr.Data {
			if len(row) != layout.NTimes {
				return nil, fmt.Errorf("%w: trial %d channel %s has %d samples, want %d",
					ErrInvalidTrials, tr.Index, layout.Channels[ch], len(row), layout.NTimes)
			}
		}
	}

	return &Store{
		layout:  cloneLayout(layout),
		eventID: cloneEventID(eventID),
		trials:  slices.Clone(trials),
	}, nil
}

// Len returns the number of trials.
func (s *Store) Len() int { return len(s.trials) }

// Channels returns the channel names in layout order.
func (s *Store) Channels() []string { return slices.Clone(s.layout.Channels) }

// SFreq returns the sampling rate in Hz.
func (s *Store) SFreq() float64 { return s.layout.SFreq }

// TMin returns the time of the first sample relative to the event, in seconds.
func (s *Store) TMin() float64 { return s.layout.TMin }

// NTimes returns the number of samples per trial and channel.
func (s *Store) NTimes() int { return s.layout.NTimes }

// Layout returns a copy of the shared axes.
func (s *Store) Layout() Layout { return cloneLayout(s.layout) }

// Times returns the time axis in seconds.
func (s *Store) Times() []float64 {
	times := make([]float64, s.layout.NTimes)
	for i := range times {
		times[i] = s.layout.TMin + float64(i)/s.layout.SFreq
	}
	return times
}

// Trials returns the trials in order. The signal matrices are shared.
func (s *Store) Trials() []Trial { return slices.Clone(s.trials) }

// Trial returns the i-th trial.
func (s *Store) Trial(i int) Trial { return s.trials[i] }

// EventID returns a copy of the tag vocabulary.
func (s *Store) EventID() map[Condition]int { return cloneEventID(s.eventID) }

// Vocabulary returns the tags of the vocabulary ordered by trigger code.
func (s *Store) Vocabulary() []Condition { return sortedByCode(s.eventID) }

// HasCondition reports whether tag is part of the vocabulary.
func (s *Store) HasCondition(tag Condition) bool {
	_, ok := s.eventID[tag]
	return ok
}

// Conditions returns the distinct tags carried by the trials, in trial order.
func (s *Store) Conditions() []Condition {
	var out []Condition
	seen := make(map[Condition]bool)
	for _, tr := range s.trials {
		if !seen[tr.Condition] {
			seen[tr.Condition] = true
			out = append(out, tr.Condition)
		}
	}
	return out
}

// Counts returns the number of trials per tag.
func (s *Store) Counts() map[Condition]int {
	counts := make(map[Condition]int, len(s.eventID))
	for _, tr := range s.trials {
		counts[tr.Condition]++
	}
	return counts
}

// ChannelIndex returns the position of a named channel, or -1.
func (s *Store) ChannelIndex(name string) int {
	return slices.Index(s.layout.Channels, name)
}

// Select returns a store restricted to trials tagged with tag, preserving
// trial order. The vocabulary of the result contains only tag.
func (s *Store) Select(tag Condition) (*Store, error) {
	code, ok := s.eventID[tag]
	if !ok {
		return nil, &MissingConditionError{Condition: tag}
	}
	var trials []Trial
	for _, tr := range s.trials {
		if tr.Condition == tag {
			trials = append(trials, tr)
		}
	}
	return &Store{
		layout:  cloneLayout(s.layout),
		eventID: map[Condition]int{tag: code},
		trials:  trials,
	}, nil
}

// SelectPart returns the trials whose tag contains part as one of its
// slash-separated components, e.g. "target_r".
func (s *Store) SelectPart(part string) (*Store, error) {
	eventID := make(map[Condition]int)
	for c, code := range s.eventID {
		if c.HasPart(part) {
			eventID[c] = code
		}
	}
	if len(eventID) == 0 {
		return nil, &MissingConditionError{Condition: Condition(part)}
	}
	var trials []Trial
	for _, tr := range s.trials {
		if _, ok := eventID[tr.Condition]; ok {
			trials = append(trials, tr)
		}
	}
	return &Store{layout: cloneLayout(s.layout), eventID: eventID, trials: trials}, nil
}

// Relabel returns a store whose trials and vocabulary carry the single tag.
// Trial indices and signals are unchanged.
func (s *Store) Relabel(tag Condition, code int) *Store {
	trials := make([]Trial, len(s.trials))
	for i, tr := range s.trials {
		tr.Condition = tag
		trials[i] = tr
	}
	return &Store{
		layout:  cloneLayout(s.layout),
		eventID: map[Condition]int{tag: code},
		trials:  trials,
	}
}

// Concatenate returns a's trials followed by b's. Both stores must share the
// channel layout, sampling rate and time axis.
func Concatenate(a, b *Store) (*Store, error) {
	if !slices.Equal(a.layout.Channels, b.layout.Channels) {
		return nil, &IncompatibleMergeError{Reason: fmt.Sprintf("channel layouts differ (%d vs %d channels)",
			len(a.layout.Channels), len(b.layout.Channels))}
	}
	if a.layout.SFreq != b.layout.SFreq {
		return nil, &IncompatibleMergeError{Reason: fmt.Sprintf("sampling rates differ (%g Hz vs %g Hz)",
			a.layout.SFreq, b.layout.SFreq)}
	}
	if a.layout.TMin != b.layout.TMin || a.layout.NTimes != b.layout.NTimes {
		return nil, &IncompatibleMergeError{Reason: "time axes differ"}
	}

	eventID := cloneEventID(a.eventID)
	for c, code := range b.eventID {
		if existing, ok := eventID[c]; ok && existing != code {
			return nil, &IncompatibleMergeError{Reason: fmt.Sprintf("condition %q has codes %d and %d", c, existing, code)}
		}
		eventID[c] = code
	}

	trials := make([]Trial, 0, len(a.trials)+len(b.trials))
	trials = append(trials, a.trials...)
	seen := make(map[int]bool, len(a.trials))
	for _, tr := range a.trials {
		seen[tr.Index] = true
	}
	for _, tr := range b.trials {
		if seen[tr.Index] {
			return nil, &IncompatibleMergeError{Reason: fmt.Sprintf("trial index %d present in both stores", tr.Index)}
		}
		trials = append(trials, tr)
	}

	return &Store{layout: cloneLayout(a.layout), eventID: eventID, trials: trials}, nil
}

func cloneLayout(l Layout) Layout {
	l.Channels = slices.Clone(l.Channels)
	return l
}

func cloneEventID(in map[Condition]int) map[Condition]int {
	out := make(map[Condition]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
