// Package conditions reorganizes N2pc epochs into the six analysis slices.
package conditions

import (
	"errors"
	"fmt"

	"github.com/alphalat/alphalat/internal/epochs"
)

// ErrAmbiguousSlice is returned when a slice's vocabulary does not name
// exactly one condition.
var ErrAmbiguousSlice = errors.New("slice does not carry exactly one condition")

// Slice is a labelled subset of trials.
type Slice struct {
	Label  epochs.Condition
	Epochs *epochs.Store
}

// Len returns the number of trials in the slice.
func (s Slice) Len() int { return s.Epochs.Len() }

// Positions of the merged buckets in the canonical N2pc order.
const (
	topL = 0
	topR = 1
	botL = 4
	botR = 5
)

// Reorganize splits an N2pc store into six slices:
//
//	no_dis/target_l, no_dis/target_r,
//	dis_right/target_l, dis_left/target_r,
//	dis_vert/target_l, dis_vert/target_r
//
// The vertical slices concatenate the top and bottom distractor trials for
// each target side, top first. Every trial of the input lands in exactly one
// slice.
func Reorganize(s *epochs.Store) ([]Slice, error) {
	conds := epochs.N2pcConditions()
	buckets := make([]*epochs.Store, len(conds))
	for i, c := range conds {
		b, err := s.Select(c)
		if err != nil {
			return nil, fmt.Errorf("failed to select bucket %d: %w", i, err)
		}
		buckets[i] = b
	}

	vertL, err := epochs.Concatenate(buckets[topL], buckets[botL])
	if err != nil {
		return nil, fmt.Errorf("failed to merge %s with %s: %w", conds[topL], conds[botL], err)
	}
	vertR, err := epochs.Concatenate(buckets[topR], buckets[botR])
	if err != nil {
		return nil, fmt.Errorf("failed to merge %s with %s: %w", conds[topR], conds[botR], err)
	}

	merged := map[int]bool{topL: true, topR: true, botL: true, botR: true}
	stores := make([]*epochs.Store, 0, 6)
	for i, b := range buckets {
		if !merged[i] {
			stores = append(stores, b)
		}
	}
	stores = append(stores,
		vertL.Relabel(epochs.DisVertTargetL, epochs.CodeDisVertTargetL),
		vertR.Relabel(epochs.DisVertTargetR, epochs.CodeDisVertTargetR),
	)

	slices := make([]Slice, len(stores))
	for i, st := range stores {
		label, err := soleLabel(st)
		if err != nil {
			return nil, fmt.Errorf("slice %d: %w", i, err)
		}
		slices[i] = Slice{Label: label, Epochs: st}
	}
	return slices, nil
}

// Labels returns the slice labels in order.
func Labels(slices []Slice) []string {
	out := make([]string, len(slices))
	for i, s := range slices {
		out[i] = string(s.Label)
	}
	return out
}

// Total returns the number of trials across slices.
func Total(slices []Slice) int {
	n := 0
	for _, s := range slices {
		n += s.Len()
	}
	return n
}

// soleLabel reads the label from the vocabulary so empty slices are still named.
func soleLabel(s *epochs.Store) (epochs.Condition, error) {
	vocab := s.Vocabulary()
	if len(vocab) != 1 {
		return "", fmt.Errorf("%w: vocabulary %v", ErrAmbiguousSlice, vocab)
	}
	return vocab[0], nil
}
