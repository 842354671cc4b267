package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyFile          = errors.New("الملف فارغ أو لا يحتوي على بيانات")
	ErrInvalidFileFormat  = errors.New("invalid file format")
	ErrUnsupportedFormat  = errors.New("unsupported file format: expected .xlsx, .xls or .csv")
	ErrUnknownImportKind  = errors.New("unknown import kind")
	ErrJobNotFound        = errors.New("import job not found")
	ErrRecordNotFound     = errors.New("record not found")
	ErrStorageUnavailable = errors.New("upload storage is not configured")
)

type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s' with value '%v': %s",
		e.Field, e.Value, e.Message)
}

// MissingColumnsError reports required roster columns absent from the header.
// Doc carries the human readable column contract for the roster kind.
type MissingColumnsError struct {
	Kind    string
	Missing []string
	Doc     string
}

func (e *MissingColumnsError) Error() string {
	var b strings.Builder
	b.WriteString("الأعمدة التالية غير موجودة في الملف: ")
	b.WriteString(strings.Join(e.Missing, "، "))
	if e.Doc != "" {
		b.WriteString("\n\n")
		b.WriteString(e.Doc)
	}
	return b.String()
}

// UnresolvedGroupError means a row references a (stage, group) pair with no group id.
type UnresolvedGroupError struct {
	Stage string
	Name  string
}

func (e *UnresolvedGroupError) Error() string {
	return fmt.Sprintf("تعذر تحديد المجموعة: الصف %q - المجموعة %q", e.Stage, e.Name)
}

type GroupCreationError struct {
	Stage string
	Name  string
	Err   error
}

func (e *GroupCreationError) Error() string {
	return fmt.Sprintf("فشل إنشاء المجموعة %s - %s: %v", e.Stage, e.Name, e.Err)
}

func (e *GroupCreationError) Unwrap() error {
	return e.Err
}

// UnknownPersistenceError is an insert failure that is not a duplicate-key conflict.
// The insert loop stops at the first one.
type UnknownPersistenceError struct {
	Identifier string
	Err        error
}

func (e *UnknownPersistenceError) Error() string {
	return fmt.Sprintf("فشل حفظ السجل %s: %v", e.Identifier, e.Err)
}

func (e *UnknownPersistenceError) Unwrap() error {
	return e.Err
}

// IsFatalImportError reports whether err belongs to the import validation or
// commit taxonomy, as opposed to an infrastructure failure.
func IsFatalImportError(err error) bool {
	var (
		missing    *MissingColumnsError
		unresolved *UnresolvedGroupError
		group      *GroupCreationError
		unknown    *UnknownPersistenceError
	)
	return errors.Is(err, ErrEmptyFile) ||
		errors.Is(err, ErrUnsupportedFormat) ||
		errors.Is(err, ErrInvalidFileFormat) ||
		errors.As(err, &missing) ||
		errors.As(err, &unresolved) ||
		errors.As(err, &group) ||
		errors.As(err, &unknown)
}
