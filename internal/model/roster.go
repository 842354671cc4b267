package model

import "strings"

type ImportKind string

const (
	ImportStudents ImportKind = "students"
	ImportTeachers ImportKind = "teachers"
)

func ParseImportKind(s string) (ImportKind, bool) {
	switch ImportKind(s) {
	case ImportStudents, ImportTeachers:
		return ImportKind(s), true
	}
	return "", false
}

// DuplicatePolicy picks which in-file occurrence of a repeated identifier survives.
type DuplicatePolicy string

const (
	KeepFirst DuplicatePolicy = "first"
	KeepLast  DuplicatePolicy = "last"
)

func ParseDuplicatePolicy(s string) (DuplicatePolicy, bool) {
	switch DuplicatePolicy(s) {
	case KeepFirst, KeepLast:
		return DuplicatePolicy(s), true
	}
	return "", false
}

// Student roster columns.
const (
	ColStudentName    = "اسم الطالب"
	ColNationalID     = "السجل المدني"
	ColStage          = "الصف"
	ColGroup          = "المجموعة"
	ColStudentPhone   = "جوال الطالب"
	ColGuardianPhone  = "جوال ولي الامر"
	ColGuardianPhone2 = "جوالي ولي الامر"
	ColGuardianPhone3 = "جوال ولي الأمر"
	ColStatus         = "الحالة"
)

// Teacher roster columns.
const (
	ColTeacherName    = "اسم المعلم"
	ColTeacherPhone   = "رقم جوال المعلم"
	ColSpecialization = "التخصص"
)

// GuardianPhoneColumns lists the accepted guardian phone headers in priority order.
var GuardianPhoneColumns = []string{ColGuardianPhone, ColGuardianPhone2, ColGuardianPhone3}

// RosterRow maps a column header to the text of one spreadsheet cell.
type RosterRow map[string]string

// Get returns the raw cell value, or "" when the column is absent.
func (r RosterRow) Get(column string) string {
	return r[column]
}

// Trimmed returns the cell value with surrounding whitespace removed.
func (r RosterRow) Trimmed(column string) string {
	return strings.TrimSpace(r[column])
}

// FirstNonEmpty returns the first trimmed non-empty value among columns.
func (r RosterRow) FirstNonEmpty(columns ...string) string {
	for _, c := range columns {
		if v := r.Trimmed(c); v != "" {
			return v
		}
	}
	return ""
}

// GroupKey identifies a group by its trimmed stage and name. Comparison is case-sensitive.
type GroupKey struct {
	Stage string
	Name  string
}

func NewGroupKey(stage, name string) GroupKey {
	return GroupKey{Stage: strings.TrimSpace(stage), Name: strings.TrimSpace(name)}
}

func (k GroupKey) String() string {
	return k.Stage + "|" + k.Name
}

func (k GroupKey) Empty() bool {
	return k.Stage == "" || k.Name == ""
}
