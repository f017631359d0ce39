package epochs

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
)

// ResponseCorrect is the trigger written after a correct response.
const ResponseCorrect = 128

// Event is one trigger in a recording, positioned in samples.
type Event struct {
	Sample   int
	Duration int
	Code     int
}

var eventHeader = []string{"timepoint", "duration", "stim"}

func isStimulus(code int) bool { return code >= 1 && code <= 8 }

// SelectCorrect keeps the stimulus triggers (1..8) that are immediately
// followed by a correct-response trigger, together with those responses.
func SelectCorrect(events []Event) []Event {
	var out []Event
	for i, ev := range events {
		switch {
		case isStimulus(ev.Code) && i+1 < len(events) && events[i+1].Code == ResponseCorrect:
			out = append(out, ev)
		case ev.Code == ResponseCorrect && i > 0 && isStimulus(events[i-1].Code):
			out = append(out, ev)
		}
	}
	return out
}

// SelectCodes keeps the events whose code is one of codes.
func SelectCodes(events []Event, codes ...int) []Event {
	var out []Event
	for _, ev := range events {
		if slices.Contains(codes, ev.Code) {
			out = append(out, ev)
		}
	}
	return out
}

// FixedLengthEvents places code-1 events every duration seconds across a
// recording of nSamples samples.
func FixedLengthEvents(nSamples int, sfreq, duration float64) []Event {
	step := int(duration * sfreq)
	if step <= 0 {
		return nil
	}
	var out []Event
	for s := 0; s < nSamples; s += step {
		out = append(out, Event{Sample: s, Code: 1})
	}
	return out
}

// ReadEventsCSV parses an event list with a timepoint,duration,stim header.
func ReadEventsCSV(r io.Reader) ([]Event, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(eventHeader)

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("event list is empty")
		}
		return nil, fmt.Errorf("failed to read event header: %w", err)
	}
	if !slices.Equal(header, eventHeader) {
		return nil, fmt.Errorf("unexpected event header %v, want %v", header, eventHeader)
	}

	var events []Event
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		var vals [3]int
		for i, field := range record {
			v, err := parseInt(field)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid %s %q: %w", line, eventHeader[i], field, err)
			}
			vals[i] = v
		}
		events = append(events, Event{Sample: vals[0], Duration: vals[1], Code: vals[2]})
	}
	return events, nil
}

// WriteEventsCSV writes events with a timepoint,duration,stim header.
func WriteEventsCSV(w io.Writer, events []Event) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(eventHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, ev := range events {
		row := []string{strconv.Itoa(ev.Sample), strconv.Itoa(ev.Duration), strconv.Itoa(ev.Code)}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write event: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// parseInt accepts integral values written as floats ("512.0").
func parseInt(s string) (int, error) {
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("not an integer")
	}
	return int(f), nil
}
