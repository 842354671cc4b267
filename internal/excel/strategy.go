package excel

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/d66d666/SchMang-sub000/internal/model"
	"github.com/d66d666/SchMang-sub000/pkg/errors"
)

type Parser interface {
	Parse(ctx context.Context, data []byte) ([]model.RosterRow, error)
}

type ParsingStrategy interface {
	Parse(ctx context.Context, data []byte) ([]model.RosterRow, error)
	Validate(ctx context.Context, kind model.ImportKind, rows []model.RosterRow) error
}

type ExcelStrategy struct {
	parser Parser
}

// NewStrategy picks a parser from the uploaded file's extension.
func NewStrategy(filename string) (ParsingStrategy, error) {
	var parser Parser
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		parser = NewXLSXParser()
	case ".xls":
		parser = NewXLSParser()
	case ".csv":
		parser = NewCSVParser()
	default:
		return nil, errors.ErrUnsupportedFormat
	}

	return &ExcelStrategy{parser: parser}, nil
}

func (s *ExcelStrategy) Parse(ctx context.Context, data []byte) ([]model.RosterRow, error) {
	return s.parser.Parse(ctx, data)
}

func (s *ExcelStrategy) Validate(ctx context.Context, kind model.ImportKind, rows []model.RosterRow) error {
	return ValidateColumns(kind, rows)
}
