package epochs

import (
	"sort"
	"strings"
)

// Condition is the categorical tag attached to every trial.
type Condition string

// N2pc stimulus conditions. The part before the slash is the distractor
// position, the part after it the side the target appeared on.
const (
	DisTopTargetL   Condition = "dis_top/target_l"
	DisTopTargetR   Condition = "dis_top/target_r"
	NoDisTargetL    Condition = "no_dis/target_l"
	NoDisTargetR    Condition = "no_dis/target_r"
	DisBotTargetL   Condition = "dis_bot/target_l"
	DisBotTargetR   Condition = "dis_bot/target_r"
	DisRightTargetL Condition = "dis_right/target_l"
	DisLeftTargetR  Condition = "dis_left/target_r"

	// Merged top+bottom buckets.
	DisVertTargetL Condition = "dis_vert/target_l"
	DisVertTargetR Condition = "dis_vert/target_r"
)

// Trigger codes for the merged buckets. They sit after the eight stimulus
// codes so they never collide with a recorded trigger.
const (
	CodeDisVertTargetL = 9
	CodeDisVertTargetR = 10
)

var n2pcConditions = []Condition{
	DisTopTargetL,
	DisTopTargetR,
	NoDisTargetL,
	NoDisTargetR,
	DisBotTargetL,
	DisBotTargetR,
	DisRightTargetL,
	DisLeftTargetR,
}

// N2pcConditions returns the eight N2pc conditions in declared vocabulary order.
func N2pcConditions() []Condition {
	out := make([]Condition, len(n2pcConditions))
	copy(out, n2pcConditions)
	return out
}

// N2pcEventID maps each N2pc condition to its trigger code (1..8).
func N2pcEventID() map[Condition]int {
	ids := make(map[Condition]int, len(n2pcConditions))
	for i, c := range n2pcConditions {
		ids[c] = i + 1
	}
	return ids
}

// Parts splits a hierarchical tag on "/".
func (c Condition) Parts() []string {
	return strings.Split(string(c), "/")
}

// HasPart reports whether one of the slash-separated parts equals part.
func (c Condition) HasPart(part string) bool {
	for _, p := range c.Parts() {
		if p == part {
			return true
		}
	}
	return false
}

// sortedByCode orders a vocabulary by trigger code, then by name.
func sortedByCode(eventID map[Condition]int) []Condition {
	out := make([]Condition, 0, len(eventID))
	for c := range eventID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		ci, cj := eventID[out[i]], eventID[out[j]]
		if ci != cj {
			return ci < cj
		}
		return out[i] < out[j]
	})
	return out
}
