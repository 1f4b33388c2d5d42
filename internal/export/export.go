package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/piwi3910/Palletizer/internal/model"
)

// Supported export formats.
const (
	FormatCSV    = "csv"
	FormatXLSX   = "xlsx"
	FormatPDF    = "pdf"
	FormatLabels = "labels"
	FormatDXF    = "dxf"
)

// Formats lists every supported export format.
var Formats = []string{FormatCSV, FormatXLSX, FormatPDF, FormatLabels, FormatDXF}

// WriteAll writes the requested formats into dir and returns the written
// paths. Every format is attempted; the first error is returned.
func WriteAll(dir string, res model.PackResult, settings model.PackSettings, formats []string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	var paths []string
	var firstErr error
	keep := func(err error, written ...string) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
		paths = append(paths, written...)
	}

	for _, format := range formats {
		switch strings.ToLower(strings.TrimSpace(format)) {
		case FormatCSV:
			written, err := ExportCSV(dir, res)
			keep(err, written...)
		case FormatXLSX:
			path := filepath.Join(dir, "result.xlsx")
			if err := ExportXLSX(path, res); err != nil {
				keep(fmt.Errorf("xlsx: %w", err))
			} else {
				keep(nil, path)
			}
		case FormatPDF:
			path := filepath.Join(dir, "report.pdf")
			if err := ExportPDF(path, res, settings); err != nil {
				keep(fmt.Errorf("pdf: %w", err))
			} else {
				keep(nil, path)
			}
		case FormatLabels:
			path := filepath.Join(dir, "labels.pdf")
			if err := ExportLabels(path, res); err != nil {
				keep(fmt.Errorf("labels: %w", err))
			} else {
				keep(nil, path)
			}
		case FormatDXF:
			for i, p := range res.Pallets {
				path := filepath.Join(dir, fmt.Sprintf("pallet_%02d.dxf", i+1))
				if err := ExportDXF(path, p); err != nil {
					keep(fmt.Errorf("dxf: %w", err))
				} else {
					keep(nil, path)
				}
			}
		default:
			keep(fmt.Errorf("unknown export format %q", format))
		}
	}
	return paths, firstErr
}
