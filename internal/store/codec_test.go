package store

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalCodec(t *testing.T) {
	data := [][]float64{{1, -2.5, math.Pi}, {0, math.MaxFloat64, -math.SmallestNonzeroFloat64}}

	blob := encodeSignal(data)
	require.Len(t, blob, 48)

	got, err := decodeSignal(blob, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	_, err = decodeSignal(blob, 2, 4)
	assert.Error(t, err)
}
