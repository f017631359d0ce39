package epochs

import (
	"fmt"
	"strings"
)

// Task names an experimental paradigm recorded in a session.
type Task string

const (
	TaskN2pc          Task = "N2pc"
	TaskAlpheye       Task = "Alpheye"
	TaskRestingOpen   Task = "RESTINGSTATEOPEN"
	TaskRestingClosed Task = "RESTINGSTATECLOSE"
)

// Tag used for the fixed-length windows cut from resting-state recordings.
const FakeEvent Condition = "fake_event"

// Alpheye image conditions.
const (
	Landscape Condition = "Landscape"
	Human     Condition = "Human"
)

// Preset holds the epoching parameters of a task.
type Preset struct {
	Task    Task
	EventID map[Condition]int
	TMin    float64
	TMax    float64
	// Baseline subtracts the mean of [TMin, 0] from every channel.
	Baseline bool
	// FixedLength cuts consecutive windows instead of following events.
	FixedLength bool
}

// Tasks lists the known tasks.
func Tasks() []Task {
	return []Task{TaskN2pc, TaskAlpheye, TaskRestingOpen, TaskRestingClosed}
}

// ParseTask matches s against the known task names, ignoring case.
func ParseTask(s string) (Task, error) {
	for _, t := range Tasks() {
		if strings.EqualFold(string(t), s) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown task %q", s)
}

// PresetFor returns the epoching preset of a task.
func PresetFor(task Task) (Preset, error) {
	switch task {
	case TaskN2pc:
		return Preset{Task: task, EventID: N2pcEventID(), TMin: -0.2, TMax: 0.8, Baseline: true}, nil
	case TaskAlpheye:
		return Preset{
			Task:    task,
			EventID: map[Condition]int{Landscape: 2, Human: 4},
			TMin:    -0.2,
			TMax:    6.0,
		}, nil
	case TaskRestingOpen, TaskRestingClosed:
		return Preset{
			Task:        task,
			EventID:     map[Condition]int{FakeEvent: 1},
			TMin:        0,
			TMax:        2.0,
			FixedLength: true,
		}, nil
	}
	return Preset{}, fmt.Errorf("no preset for task %q", task)
}

// SelectEvents keeps the events a task epochs on.
func (p Preset) SelectEvents(events []Event, nSamples int, sfreq float64) []Event {
	switch {
	case p.FixedLength:
		return FixedLengthEvents(nSamples, sfreq, p.TMax-p.TMin)
	case p.Task == TaskN2pc:
		return SelectCorrect(events)
	default:
		codes := make([]int, 0, len(p.EventID))
		for _, code := range p.EventID {
			codes = append(codes, code)
		}
		return SelectCodes(events, codes...)
	}
}
