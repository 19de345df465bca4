package services

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/diegohenriquecode/employees-service-sub002/internal/models"
)

// XLSXContentType is the MIME type of generated spreadsheets.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// RenderSheet renders report rows into an xlsx binary with a single sheet
// named after the report type. The header row comes from the column order of
// the first data row; no rows means an empty sheet, not an error.
func RenderSheet(sheetName string, rows []models.ReportRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet %s: %w", sheetName, err)
	}

	if len(rows) > 0 {
		for i, col := range rows[0].Columns() {
			cell, err := excelize.CoordinatesToCellName(i+1, 1)
			if err != nil {
				return nil, fmt.Errorf("failed to address header cell: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, col); err != nil {
				return nil, fmt.Errorf("failed to write header cell: %w", err)
			}
		}
		for r, row := range rows {
			for i, c := range row {
				cell, err := excelize.CoordinatesToCellName(i+1, r+2)
				if err != nil {
					return nil, fmt.Errorf("failed to address cell: %w", err)
				}
				if err := f.SetCellValue(sheetName, cell, c.Value); err != nil {
					return nil, fmt.Errorf("failed to write cell: %w", err)
				}
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render sheet: %w", err)
	}
	return buf.Bytes(), nil
}

// ParseSheet reads the first sheet of an xlsx binary and splits it into the
// header row and the data rows. A sheet with only a header yields an empty
// row slice.
func ParseSheet(data []byte) (header []string, rows [][]string, err error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open sheet: %w", err)
	}
	defer f.Close()

	all, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet rows: %w", err)
	}
	if len(all) == 0 {
		return nil, nil, nil
	}
	return all[0], all[1:], nil
}

// HeaderColumn locates a header cell in the original sheet.
type HeaderColumn struct {
	Letter string
	Index  int
}

// NormalizeHeader canonicalizes a header cell: Unicode-decompose, strip
// diacritics, lowercase, trim. "Função " and "FUNCAO" both normalize to
// "funcao".
func NormalizeHeader(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// BuildHeaderMap maps each normalized header cell back to its original
// column letter. The reverse map is what lets a validation failure point the
// user at a literal spreadsheet column.
func BuildHeaderMap(header []string) map[string]HeaderColumn {
	m := make(map[string]HeaderColumn, len(header))
	for i, cell := range header {
		if strings.TrimSpace(cell) == "" {
			continue
		}
		key := NormalizeHeader(cell)
		if _, exists := m[key]; exists {
			continue
		}
		letter, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			continue
		}
		m[key] = HeaderColumn{Letter: letter, Index: i}
	}
	return m
}
