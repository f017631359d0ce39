package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/alphalat/alphalat/internal/lateral"
)

func sampleTable(t *testing.T) *lateral.Table {
	t.Helper()
	table, err := lateral.Build(
		[]string{"no_dis/target_l", "dis_left/target_r"},
		[]float64{1, 2},
		[]float64{3, 0.5},
	)
	require.NoError(t, err)
	return table
}

var meta = Meta{Subject: "07", Task: "N2pc", RunID: "run-1"}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(".XLSX")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)
	assert.Equal(t, "text/csv", FormatCSV.ContentType())

	_, err = ParseFormat("parquet")
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, meta, sampleTable(t)))

	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 5)
	assert.Equal(t, lateral.Header, recs[0])
	assert.Equal(t, []string{"dis_left/target_r", "right", "left", "contra", "left", "0.5"}, recs[4])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, meta, sampleTable(t)))

	var doc struct {
		Subject        string          `json:"subject"`
		RunID          string          `json:"run_id"`
		Rows           []lateral.Row   `json:"rows"`
		Lateralization []lateral.Index `json:"lateralization"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "07", doc.Subject)
	assert.Equal(t, "run-1", doc.RunID)
	assert.Len(t, doc.Rows, 4)
	require.Len(t, doc.Lateralization, 2)
	assert.InDelta(t, (1.0-3.0)/4.0, doc.Lateralization[0].Value, 1e-12)
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatXLSX, meta, sampleTable(t)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetPower, SheetIndex}, f.GetSheetList())

	rows, err := f.GetRows(SheetPower)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, lateral.Header, rows[0])
	assert.Equal(t, "no_dis/target_l", rows[1][0])
	assert.Equal(t, "contra", rows[1][3])

	idx, err := f.GetRows(SheetIndex)
	require.NoError(t, err)
	assert.Len(t, idx, 3)
}

func TestWrite_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Write(&buf, Format("pdf"), meta, sampleTable(t)))
}
