package excel

import (
	"context"
	"testing"
	"unicode/utf8"

	"github.com/d66d666/SchMang-sub000/internal/model"
	"github.com/d66d666/SchMang-sub000/pkg/errors"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

func workbook(t *testing.T, rows ...[]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestXLSXParser_ReadsFirstSheetWithRawNumbers(t *testing.T) {
	data := workbook(t,
		[]interface{}{" اسم الطالب ", "السجل المدني", "الصف", "المجموعة", "الحالة"},
		[]interface{}{"أحمد", 1098765432, "أول", "A", "استئذان"},
		[]interface{}{"", "", "", "", ""},
		[]interface{}{"سالم", "1098765433", "ثاني", "B"},
	)

	rows, err := NewXLSXParser().Parse(context.Background(), data)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.Equal(t, "أحمد", rows[0].Get(model.ColStudentName))
	require.Equal(t, "1098765432", rows[0].Get(model.ColNationalID))
	require.Equal(t, "استئذان", rows[0].Get(model.ColStatus))

	status, present := rows[1][model.ColStatus]
	require.True(t, present)
	require.Equal(t, "", status)
}

func TestXLSXParser_RejectsGarbage(t *testing.T) {
	_, err := NewXLSXParser().Parse(context.Background(), []byte("not a workbook"))
	require.ErrorIs(t, err, errors.ErrInvalidFileFormat)
}

func TestXLSXParser_HeaderOnlyYieldsNoRows(t *testing.T) {
	data := workbook(t, []interface{}{"اسم المعلم", "رقم جوال المعلم"})

	rows, err := NewXLSXParser().Parse(context.Background(), data)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestCSVParser_StripsBOMAndPadsShortRows(t *testing.T) {
	data := []byte("\xef\xbb\xbfاسم المعلم,رقم جوال المعلم,التخصص\nخالد,0501111111\nمنى,0502222222,رياضيات\n")

	rows, err := NewCSVParser().Parse(context.Background(), data)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.Equal(t, "خالد", rows[0].Get(model.ColTeacherName))
	require.Equal(t, "", rows[0].Get(model.ColSpecialization))
	require.Equal(t, "رياضيات", rows[1].Get(model.ColSpecialization))
}

func TestCSVParser_DecodesUTF16WithBOM(t *testing.T) {
	text := "اسم المعلم,رقم جوال المعلم\nخالد,0501111111\n"
	utf16 := []byte{0xFF, 0xFE}
	for _, r := range text {
		utf16 = append(utf16, byte(r), byte(r>>8))
	}

	rows, err := NewCSVParser().Parse(context.Background(), utf16)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "0501111111", rows[0].Get(model.ColTeacherPhone))
}

func TestCSVParser_DecodesWindows1256WithoutBOM(t *testing.T) {
	text := "اسم المعلم,رقم جوال المعلم,التخصص\nخالد,0501111111,رياضيات\n"
	ansi, err := charmap.Windows1256.NewEncoder().Bytes([]byte(text))
	require.NoError(t, err)
	require.False(t, utf8.Valid(ansi))

	rows, err := NewCSVParser().Parse(context.Background(), ansi)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "خالد", rows[0].Get(model.ColTeacherName))
	require.Equal(t, "رياضيات", rows[0].Get(model.ColSpecialization))
	require.NoError(t, ValidateColumns(model.ImportTeachers, rows))
}

func TestCSVParser_PlainUTF8WithoutBOM(t *testing.T) {
	rows, err := NewCSVParser().Parse(context.Background(), []byte("اسم المعلم,رقم جوال المعلم\nمنى,0502222222\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "منى", rows[0].Get(model.ColTeacherName))
}

func TestNewStrategy_ByExtension(t *testing.T) {
	for _, name := range []string{"roster.xlsx", "ROSTER.XLS", "teachers.csv"} {
		s, err := NewStrategy(name)
		require.NoError(t, err, name)
		require.NotNil(t, s)
	}

	_, err := NewStrategy("roster.ods")
	require.ErrorIs(t, err, errors.ErrUnsupportedFormat)
}
