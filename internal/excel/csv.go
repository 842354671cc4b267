package excel

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/d66d666/SchMang-sub000/internal/model"
	pkgerrors "github.com/d66d666/SchMang-sub000/pkg/errors"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

type CSVParser struct{}

func NewCSVParser() *CSVParser {
	return &CSVParser{}
}

func (p *CSVParser) Parse(ctx context.Context, data []byte) ([]model.RosterRow, error) {
	reader := csv.NewReader(transform.NewReader(bytes.NewReader(data), csvDecoder(data)))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read CSV: %v", pkgerrors.ErrInvalidFileFormat, err)
		}
		records = append(records, record)
	}

	return buildRows(records), nil
}

// csvDecoder picks the encoding of an uploaded CSV. A BOM selects UTF-8 or
// UTF-16. Without one, bytes that are not valid UTF-8 are read as
// Windows-1256, the ANSI code page Excel uses on Arabic Windows.
func csvDecoder(data []byte) transform.Transformer {
	if hasBOM(data) || utf8.Valid(data) {
		return unicode.BOMOverride(unicode.UTF8.NewDecoder())
	}
	return charmap.Windows1256.NewDecoder()
}

func hasBOM(data []byte) bool {
	return bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) ||
		bytes.HasPrefix(data, []byte{0xFF, 0xFE}) ||
		bytes.HasPrefix(data, []byte{0xFE, 0xFF})
}
