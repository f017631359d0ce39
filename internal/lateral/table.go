// Package lateral turns per-condition cluster power into the long-format
// lateralization table.
package lateral

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Side is the hemifield a target or distractor appeared in.
type Side string

const (
	SideNone     Side = "none"
	SideLeft     Side = "left"
	SideRight    Side = "right"
	SideVertical Side = "vertical"
)

// Relation places a cluster relative to the target.
type Relation string

const (
	Ipsi   Relation = "ipsi"
	Contra Relation = "contra"
)

// Cluster names an electrode cluster.
type Cluster string

const (
	ClusterRight Cluster = "right"
	ClusterLeft  Cluster = "left"
)

// ErrLabelParse matches every *LabelParseError.
var ErrLabelParse = errors.New("cannot parse condition label")

// LabelParseError reports a condition label the table cannot classify.
type LabelParseError struct {
	Index  int
	Label  string
	Reason string
}

func (e *LabelParseError) Error() string {
	return fmt.Sprintf("label %d %q: %s", e.Index, e.Label, e.Reason)
}

func (e *LabelParseError) Is(target error) bool {
	return target == ErrLabelParse
}

// ConditionPower is the band power of one condition on both clusters.
type ConditionPower struct {
	Label string
	Right float64
	Left  float64
}

// Zip pairs labels with the power lists computed for them.
func Zip(labels []string, right, left []float64) ([]ConditionPower, error) {
	if len(right) != len(labels) || len(left) != len(labels) {
		return nil, fmt.Errorf("got %d labels, %d right and %d left power values", len(labels), len(right), len(left))
	}
	out := make([]ConditionPower, len(labels))
	for i, l := range labels {
		out[i] = ConditionPower{Label: l, Right: right[i], Left: left[i]}
	}
	return out, nil
}

// Row is one line of the lateralization table.
type Row struct {
	Condition      string   `json:"condition"`
	TargetSide     Side     `json:"target_side"`
	DistractorSide Side     `json:"distractor_side"`
	AlphaSide      Relation `json:"alpha_side"`
	Cluster        Cluster  `json:"cluster"`
	Power          float64  `json:"alpha_power"`
}

// Table holds the right-cluster rows followed by the left-cluster rows, each
// block in condition order.
type Table struct {
	Rows []Row `json:"rows"`
}

// Header lists the table columns.
var Header = []string{"condition", "target_side", "distractor_side", "alpha_side", "cluster", "alpha_power"}

// Build creates the table from parallel label and power lists.
func Build(labels []string, right, left []float64) (*Table, error) {
	powers, err := Zip(labels, right, left)
	if err != nil {
		return nil, err
	}
	return BuildFromPowers(powers)
}

// BuildFromPowers creates the table with 2·len(powers) rows.
func BuildFromPowers(powers []ConditionPower) (*Table, error) {
	type parsed struct {
		target, distractor Side
	}
	sides := make([]parsed, len(powers))
	for i, p := range powers {
		target, err := TargetSide(p.Label)
		if err != nil {
			return nil, &LabelParseError{Index: i, Label: p.Label, Reason: err.Error()}
		}
		distractor, err := DistractorSide(p.Label)
		if err != nil {
			return nil, &LabelParseError{Index: i, Label: p.Label, Reason: err.Error()}
		}
		sides[i] = parsed{target, distractor}
	}

	t := &Table{Rows: make([]Row, 0, 2*len(powers))}
	for _, cl := range []Cluster{ClusterRight, ClusterLeft} {
		for i, p := range powers {
			power := p.Right
			if cl == ClusterLeft {
				power = p.Left
			}
			t.Rows = append(t.Rows, Row{
				Condition:      p.Label,
				TargetSide:     sides[i].target,
				DistractorSide: sides[i].distractor,
				AlphaSide:      AlphaSide(cl, sides[i].target),
				Cluster:        cl,
				Power:          power,
			})
		}
	}
	return t, nil
}

// TargetSide reads the target hemifield from a label containing exactly one
// of target_l and target_r.
func TargetSide(label string) (Side, error) {
	l := strings.Contains(label, "target_l")
	r := strings.Contains(label, "target_r")
	switch {
	case l && r:
		return "", errors.New("names both target sides")
	case l:
		return SideLeft, nil
	case r:
		return SideRight, nil
	}
	return "", errors.New("names no target side")
}

// DistractorSide reads the distractor position from a label. dis_top counts
// as no distractor; dis_vert, dis_mid and dis_bot are vertical.
func DistractorSide(label string) (Side, error) {
	switch {
	case strings.Contains(label, "dis_top"), strings.Contains(label, "no_dis"):
		return SideNone, nil
	case strings.Contains(label, "dis_right"):
		return SideRight, nil
	case strings.Contains(label, "dis_left"):
		return SideLeft, nil
	case strings.Contains(label, "dis_vert"), strings.Contains(label, "dis_mid"), strings.Contains(label, "dis_bot"):
		return SideVertical, nil
	}
	return "", errors.New("names no known distractor position")
}

// AlphaSide is contra when the cluster sits in the hemisphere opposite the target.
func AlphaSide(c Cluster, target Side) Relation {
	if (c == ClusterRight) == (target == SideLeft) {
		return Contra
	}
	return Ipsi
}

// Records returns the header followed by one string row per table row.
func (t *Table) Records() [][]string {
	out := make([][]string, 0, len(t.Rows)+1)
	out = append(out, append([]string(nil), Header...))
	for _, r := range t.Rows {
		out = append(out, []string{
			r.Condition,
			string(r.TargetSide),
			string(r.DistractorSide),
			string(r.AlphaSide),
			string(r.Cluster),
			strconv.FormatFloat(r.Power, 'g', -1, 64),
		})
	}
	return out
}

// Index is the lateralization of one condition.
type Index struct {
	Condition string  `json:"condition"`
	Contra    float64 `json:"contra"`
	Ipsi      float64 `json:"ipsi"`
	Value     float64 `json:"index"`
}

// LateralizationIndex returns (contra − ipsi) / (contra + ipsi) per condition
// in first-seen order. A zero denominator yields 0.
func (t *Table) LateralizationIndex() []Index {
	var order []string
	byCond := make(map[string]*Index)
	for _, r := range t.Rows {
		idx, ok := byCond[r.Condition]
		if !ok {
			idx = &Index{Condition: r.Condition}
			byCond[r.Condition] = idx
			order = append(order, r.Condition)
		}
		if r.AlphaSide == Contra {
			idx.Contra = r.Power
		} else {
			idx.Ipsi = r.Power
		}
	}
	out := make([]Index, len(order))
	for i, c := range order {
		idx := byCond[c]
		if sum := idx.Contra + idx.Ipsi; sum != 0 {
			idx.Value = (idx.Contra - idx.Ipsi) / sum
		}
		out[i] = *idx
	}
	return out
}
