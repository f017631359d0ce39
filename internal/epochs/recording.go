package epochs

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
)

// Recording is a continuous multichannel signal indexed [channel][sample].
type Recording struct {
	Channels []string
	SFreq    float64
	Data     [][]float64
}

// NSamples returns the recording length in samples.
func (r *Recording) NSamples() int {
	if len(r.Data) == 0 {
		return 0
	}
	return len(r.Data[0])
}

// ReadRecordingCSV parses a continuous recording laid out one sample per row
// with a header of channel names.
func ReadRecordingCSV(r io.Reader, sfreq float64) (*Recording, error) {
	if sfreq <= 0 {
		return nil, fmt.Errorf("sampling rate must be positive, got %g", sfreq)
	}
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("recording is empty")
		}
		return nil, fmt.Errorf("failed to read channel header: %w", err)
	}
	channels := make([]string, len(header))
	copy(channels, header)

	data := make([][]float64, len(channels))
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		for ch, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d channel %s: invalid sample %q", line, channels[ch], field)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("line %d channel %s: non-finite sample", line, channels[ch])
			}
			data[ch] = append(data[ch], v)
		}
	}

	return &Recording{Channels: channels, SFreq: sfreq, Data: data}, nil
}
