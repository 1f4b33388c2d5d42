// Package importer provides CSV and Excel import functionality for box lists.
// It supports automatic delimiter detection, flexible column mapping, and
// case-insensitive header recognition.
package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/piwi3910/Palletizer/internal/model"
	"github.com/xuri/excelize/v2"
)

// ImportResult holds the results of an import operation.
type ImportResult struct {
	Boxes    []model.Box
	Errors   []string
	Warnings []string
}

// Pool returns the imported boxes keyed by id, the form the engine packs.
func (r ImportResult) Pool() map[string]model.Box {
	pool := make(map[string]model.Box, len(r.Boxes))
	for _, b := range r.Boxes {
		pool[b.ID] = b
	}
	return pool
}

// ColumnMapping maps semantic column roles to their indices in the data.
type ColumnMapping struct {
	ID       int
	Width    int
	Depth    int
	Height   int
	Weight   int
	Quantity int
}

// headerAliases maps canonical column names to their accepted aliases (all lowercase).
var headerAliases = map[string][]string{
	"id":       {"id", "box", "box id", "name", "label", "sku", "item"},
	"width":    {"width", "w", "x", "length", "len", "l"},
	"depth":    {"depth", "d", "y", "breadth"},
	"height":   {"height", "h", "z"},
	"weight":   {"weight", "wt", "kg", "mass"},
	"quantity": {"quantity", "qty", "count", "num", "amount", "pcs", "pieces"},
}

// DetectCSVDelimiter reads the file content and determines the most likely CSV delimiter.
// It tries comma, semicolon, tab, and pipe. The delimiter that produces the most
// consistent (non-one) column count across lines wins.
func DetectCSVDelimiter(data []byte) rune {
	candidates := []rune{',', ';', '\t', '|'}
	bestDelimiter := ','
	bestScore := 0

	for _, delim := range candidates {
		reader := csv.NewReader(bytes.NewReader(data))
		reader.Comma = delim
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1

		records, err := reader.ReadAll()
		if err != nil || len(records) < 1 {
			continue
		}

		firstCols := len(records[0])
		if firstCols < 2 {
			continue
		}

		score := 0
		for _, row := range records {
			if len(row) == firstCols {
				score++
			}
		}

		// Prefer delimiters with higher consistency and more columns
		weighted := score*10 + firstCols
		if weighted > bestScore {
			bestScore = weighted
			bestDelimiter = delim
		}
	}

	return bestDelimiter
}

// DetectColumns examines a header row and returns a ColumnMapping.
// It performs case-insensitive matching against known aliases for each column role.
// Returns the mapping and true if a header was detected, or a default positional
// mapping and false if no header was found.
func DetectColumns(row []string) (ColumnMapping, bool) {
	mapping := ColumnMapping{ID: -1, Width: -1, Depth: -1, Height: -1, Weight: -1, Quantity: -1}
	roles := map[string]*int{
		"id":       &mapping.ID,
		"width":    &mapping.Width,
		"depth":    &mapping.Depth,
		"height":   &mapping.Height,
		"weight":   &mapping.Weight,
		"quantity": &mapping.Quantity,
	}

	isHeader := false
	for i, cell := range row {
		normalized := strings.ToLower(strings.TrimSpace(cell))
		for role, aliases := range headerAliases {
			for _, alias := range aliases {
				if normalized == alias {
					isHeader = true
					if idx := roles[role]; *idx == -1 {
						*idx = i
					}
				}
			}
		}
	}

	if !isHeader {
		// Fall back to positional mapping: ID, Width, Depth, Height, Weight, Quantity
		return ColumnMapping{ID: 0, Width: 1, Depth: 2, Height: 3, Weight: 4, Quantity: 5}, false
	}

	return mapping, true
}

// getCell safely retrieves a cell value from a row by column index.
// Returns empty string if the index is out of range or negative.
func getCell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseMillimetres parses a positive dimension. Fractions are rounded to
// the nearest millimetre with a warning.
func parseMillimetres(s, name, rowLabel string) (int, string, string) {
	if s == "" {
		return 0, fmt.Sprintf("%s: Missing %s value", rowLabel, name), ""
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Sprintf("%s: Invalid %s '%s'", rowLabel, name, s), ""
	}
	rounded := int(math.Round(v))
	if rounded <= 0 {
		return 0, fmt.Sprintf("%s: %s must be positive", rowLabel, strings.ToUpper(name[:1])+name[1:]), ""
	}
	var warning string
	if float64(rounded) != v {
		warning = fmt.Sprintf("%s: %s '%s' rounded to %d", rowLabel, name, s, rounded)
	}
	return rounded, "", warning
}

// parseRow extracts the boxes of a row using the given column mapping. A
// quantity above one expands into ids suffixed -1, -2, ...
// Returns the boxes, any error message, and any warning messages.
func parseRow(row []string, mapping ColumnMapping, rowLabel string, boxCount int) ([]model.Box, string, []string) {
	id := getCell(row, mapping.ID)
	if id == "" {
		id = fmt.Sprintf("box-%d", boxCount+1)
	}

	var warnings []string
	dims := make([]int, 3)
	for i, col := range []struct {
		name string
		idx  int
	}{{"width", mapping.Width}, {"depth", mapping.Depth}, {"height", mapping.Height}} {
		v, errMsg, warning := parseMillimetres(getCell(row, col.idx), col.name, rowLabel)
		if errMsg != "" {
			return nil, errMsg, nil
		}
		if warning != "" {
			warnings = append(warnings, warning)
		}
		dims[i] = v
	}

	weight := 0
	if s := getCell(row, mapping.Weight); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v < 0 {
			return nil, fmt.Sprintf("%s: Invalid weight '%s'", rowLabel, s), nil
		}
		weight = int(math.Ceil(v))
	}

	qty := 1
	if s := getCell(row, mapping.Quantity); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Sprintf("%s: Invalid quantity '%s'", rowLabel, s), nil
		}
		if v <= 0 {
			return nil, fmt.Sprintf("%s: Quantity must be positive", rowLabel), nil
		}
		qty = v
	}

	if qty == 1 {
		return []model.Box{model.NewBox(id, dims[0], dims[1], dims[2], weight)}, "", warnings
	}
	boxes := make([]model.Box, qty)
	for i := range boxes {
		boxes[i] = model.NewBox(fmt.Sprintf("%s-%d", id, i+1), dims[0], dims[1], dims[2], weight)
	}
	return boxes, "", warnings
}

// isEmptyRow returns true if the row has no meaningful content.
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// ImportCSV imports boxes from a CSV file.
// It automatically detects the delimiter and maps columns by header names.
// Supports comma, semicolon, tab, and pipe delimiters.
func ImportCSV(path string) ImportResult {
	result := ImportResult{}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open file: %v", err))
		return result
	}

	if len(bytes.TrimSpace(data)) == 0 {
		result.Errors = append(result.Errors, "File is empty")
		return result
	}

	delimiter := DetectCSVDelimiter(data)
	var warnings []string
	if delimiter != ',' {
		delimName := map[rune]string{';': "semicolon", '\t': "tab", '|': "pipe"}[delimiter]
		warnings = append(warnings, fmt.Sprintf("Detected %s delimiter", delimName))
	}

	records, err := readCSV(bytes.NewReader(data), delimiter)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read CSV: %v", err))
		return result
	}

	if len(records) == 0 {
		result.Errors = append(result.Errors, "File is empty")
		return result
	}

	return importFromRows(records, "Line", warnings)
}

// ImportCSVFromReader imports boxes from a CSV reader with a specific delimiter.
// This is useful for testing or when the delimiter is already known.
func ImportCSVFromReader(reader io.Reader, delimiter rune) ImportResult {
	result := ImportResult{}

	records, err := readCSV(reader, delimiter)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read CSV: %v", err))
		return result
	}

	if len(records) == 0 {
		result.Errors = append(result.Errors, "File is empty")
		return result
	}

	return importFromRows(records, "Line", nil)
}

func readCSV(r io.Reader, delimiter rune) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.Comment = '#'
	return reader.ReadAll()
}

// ImportExcel imports boxes from an Excel (.xlsx) file.
// Reads the first sheet and auto-detects column mapping from headers.
func ImportExcel(path string) ImportResult {
	result := ImportResult{}

	f, err := excelize.OpenFile(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open Excel file: %v", err))
		return result
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		result.Errors = append(result.Errors, "Excel file has no sheets")
		return result
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot read Excel data: %v", err))
		return result
	}

	if len(rows) == 0 {
		result.Errors = append(result.Errors, "Sheet is empty")
		return result
	}

	return importFromRows(rows, "Row", nil)
}

// ImportFile dispatches on the file extension: .xlsx goes to ImportExcel,
// everything else is read as CSV.
func ImportFile(path string) ImportResult {
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return ImportExcel(path)
	}
	return ImportCSV(path)
}

// importFromRows is the shared import logic for both CSV and Excel data.
// It detects headers, maps columns, and parses each row into boxes.
func importFromRows(rows [][]string, rowPrefix string, initialWarnings []string) ImportResult {
	result := ImportResult{
		Warnings: initialWarnings,
	}

	if len(rows) == 0 {
		result.Errors = append(result.Errors, "No data rows found")
		return result
	}

	mapping, hasHeader := DetectColumns(rows[0])
	startRow := 0
	if hasHeader {
		startRow = 1
		result.Warnings = append(result.Warnings, "Detected header row, skipping")

		missing := []string{}
		if mapping.Width == -1 {
			missing = append(missing, "Width")
		}
		if mapping.Depth == -1 {
			missing = append(missing, "Depth")
		}
		if mapping.Height == -1 {
			missing = append(missing, "Height")
		}
		if len(missing) > 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("Required columns not found in header: %s", strings.Join(missing, ", ")))
			return result
		}
	} else if len(rows[0]) >= 4 {
		if _, err := strconv.ParseFloat(strings.TrimSpace(rows[0][1]), 64); err != nil {
			// Unrecognized header: skip it but keep positional mapping
			startRow = 1
			result.Warnings = append(result.Warnings, "Detected header row, skipping")
		}
	}

	seen := make(map[string]string)
	for i := startRow; i < len(rows); i++ {
		row := rows[i]
		if isEmptyRow(row) {
			continue
		}

		rowLabel := fmt.Sprintf("%s %d", rowPrefix, i+1)
		boxes, errMsg, warnings := parseRow(row, mapping, rowLabel, len(result.Boxes))
		if errMsg != "" {
			result.Errors = append(result.Errors, errMsg)
			continue
		}
		result.Warnings = append(result.Warnings, warnings...)

		for _, b := range boxes {
			if prev, dup := seen[b.ID]; dup {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: Duplicate box id '%s' (first seen on %s)", rowLabel, b.ID, prev))
				continue
			}
			seen[b.ID] = rowLabel
			result.Boxes = append(result.Boxes, b)
		}
	}

	if len(result.Boxes) == 0 && len(result.Errors) == 0 {
		result.Errors = append(result.Errors, "No valid boxes found in file")
	}

	return result
}
