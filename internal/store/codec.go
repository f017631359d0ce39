package store

import (
	"encoding/binary"
	"fmt"
	"math"
)

// encodeSignal packs a [channel][sample] matrix as little-endian float64s,
// channel-major.
func encodeSignal(data [][]float64) []byte {
	n := 0
	for _, row := range data {
		n += len(row)
	}
	buf := make([]byte, 0, 8*n)
	for _, row := range data {
		for _, v := range row {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
		}
	}
	return buf
}

func decodeSignal(b []byte, nChannels, nTimes int) ([][]float64, error) {
	if len(b) != 8*nChannels*nTimes {
		return nil, fmt.Errorf("signal blob has %d bytes, want %d", len(b), 8*nChannels*nTimes)
	}
	data := make([][]float64, nChannels)
	for ch := range data {
		row := make([]float64, nTimes)
		for i := range row {
			off := 8 * (ch*nTimes + i)
			row[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[off:]))
		}
		data[ch] = row
	}
	return data, nil
}
