// Package export writes a lateralization table as CSV, JSON or XLSX.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/alphalat/alphalat/internal/lateral"
)

// Format is an output file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// Formats lists the supported formats.
func Formats() []Format { return []Format{FormatCSV, FormatJSON, FormatXLSX} }

// ParseFormat accepts a format name with or without a leading dot.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimPrefix(s, ".")))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown export format %q (want csv, json or xlsx)", s)
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatJSON:
		return "application/json"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/octet-stream"
}

// Meta identifies the run a table came from.
type Meta struct {
	Subject string `json:"subject"`
	Task    string `json:"task"`
	RunID   string `json:"run_id"`
}

type document struct {
	Meta
	Rows           []lateral.Row   `json:"rows"`
	Lateralization []lateral.Index `json:"lateralization"`
}

// Write encodes t in format f.
func Write(w io.Writer, f Format, meta Meta, t *lateral.Table) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, t)
	case FormatJSON:
		return WriteJSON(w, meta, t)
	case FormatXLSX:
		return WriteXLSX(w, meta, t)
	}
	return fmt.Errorf("unknown export format %q", f)
}

// WriteCSV writes the header and rows.
func WriteCSV(w io.Writer, t *lateral.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(t.Records()); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

// WriteJSON writes the rows with the per-condition lateralization index.
func WriteJSON(w io.Writer, meta Meta, t *lateral.Table) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	doc := document{Meta: meta, Rows: t.Rows, Lateralization: t.LateralizationIndex()}
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to write json: %w", err)
	}
	return nil
}

const (
	SheetPower = "alpha_power"
	SheetIndex = "lateralization"
)

// WriteXLSX writes a workbook with the table on one sheet and the
// lateralization index on another.
func WriteXLSX(w io.Writer, meta Meta, t *lateral.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetPower); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if err := setRow(f, SheetPower, 1, toCells(lateral.Header)); err != nil {
		return err
	}
	for i, r := range t.Rows {
		cells := []interface{}{
			r.Condition,
			string(r.TargetSide),
			string(r.DistractorSide),
			string(r.AlphaSide),
			string(r.Cluster),
			r.Power,
		}
		if err := setRow(f, SheetPower, i+2, cells); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(SheetIndex); err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}
	if err := setRow(f, SheetIndex, 1, []interface{}{"condition", "contra", "ipsi", "index"}); err != nil {
		return err
	}
	for i, idx := range t.LateralizationIndex() {
		if err := setRow(f, SheetIndex, i+2, []interface{}{idx.Condition, idx.Contra, idx.Ipsi, idx.Value}); err != nil {
			return err
		}
	}

	f.SetDocProps(&excelize.DocProperties{
		Title:       fmt.Sprintf("sub-%s %s alpha power", meta.Subject, meta.Task),
		Description: "run " + meta.RunID,
		Creator:     "alat",
	})

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toCells(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
