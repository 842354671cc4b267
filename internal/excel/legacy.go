package excel

import (
	"bytes"
	"context"
	"fmt"

	"github.com/d66d666/SchMang-sub000/internal/model"
	"github.com/d66d666/SchMang-sub000/pkg/errors"

	"github.com/extrame/xls"
)

// XLSParser reads the first sheet of a legacy BIFF (.xls) workbook.
type XLSParser struct{}

func NewXLSParser() *XLSParser {
	return &XLSParser{}
}

func (p *XLSParser) Parse(ctx context.Context, data []byte) (rows []model.RosterRow, err error) {
	// The BIFF decoder panics on some truncated files.
	defer func() {
		if r := recover(); r != nil {
			rows = nil
			err = fmt.Errorf("%w: %v", errors.ErrInvalidFileFormat, r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open Excel file: %v", errors.ErrInvalidFileFormat, err)
	}
	if wb.NumSheets() == 0 {
		return nil, errors.ErrInvalidFileFormat
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, errors.ErrInvalidFileFormat
	}

	records := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			records = append(records, nil)
			continue
		}

		cells := make([]string, row.LastCol())
		for j := range cells {
			cells[j] = row.Col(j)
		}
		records = append(records, cells)
	}

	return buildRows(records), nil
}
