package excel

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/d66d666/SchMang-sub000/internal/model"
	"github.com/d66d666/SchMang-sub000/pkg/errors"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/unicode/norm"
)

// XLSXParser reads the first worksheet of an Office Open XML workbook.
type XLSXParser struct{}

func NewXLSXParser() *XLSXParser {
	return &XLSXParser{}
}

func (p *XLSXParser) Parse(ctx context.Context, data []byte) ([]model.RosterRow, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open Excel file: %v", errors.ErrInvalidFileFormat, err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.ErrInvalidFileFormat
	}

	// Raw values keep national ids and phone numbers free of number formatting.
	rows, err := file.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}

	return buildRows(rows), nil
}

// buildRows turns a header line plus data lines into roster rows. Blank lines
// are dropped and columns with an empty header are ignored.
func buildRows(records [][]string) []model.RosterRow {
	if len(records) == 0 {
		return nil
	}

	header := make([]string, len(records[0]))
	for i, col := range records[0] {
		header[i] = normalizeHeader(col)
	}

	var rows []model.RosterRow
	for _, record := range records[1:] {
		if isBlank(record) {
			continue
		}

		row := make(model.RosterRow, len(header))
		for i, col := range header {
			if col == "" {
				continue
			}
			if _, dup := row[col]; dup {
				continue
			}
			if i < len(record) {
				row[col] = record[i]
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}

	return rows
}

func normalizeHeader(col string) string {
	col = strings.TrimPrefix(col, "\ufeff")
	return norm.NFC.String(strings.TrimSpace(col))
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
