// Package importer reconciles an uploaded student or teacher roster against
// the persisted roster.
//
// A run is strictly sequential: column contract, group resolution (students
// only), reconciliation, commit, summary. Nothing spans the run in a
// transaction. Groups created before a fatal error stay committed, and rows
// written before an unknown insert error stay written.
package importer

import (
	"context"

	"github.com/d66d666/SchMang-sub000/internal/model"
)

// Store is the backing store the importer reads from and writes to.
type Store interface {
	ListGroups(ctx context.Context) ([]model.Group, error)
	CreateGroup(ctx context.Context, group *model.Group) error

	StudentIDsByNationalID(ctx context.Context, nationalIDs []string) (map[string]string, error)
	ApplyStudentWrites(ctx context.Context, writes []model.StudentWrite) ([]model.WriteResult, error)

	TeacherIDsByPhone(ctx context.Context, phones []string) (map[string]string, error)
	ApplyTeacherWrites(ctx context.Context, writes []model.TeacherWrite) ([]model.WriteResult, error)
}

// Mirror receives every successfully committed entity.
type Mirror interface {
	PutGroup(ctx context.Context, group model.Group) error
	PutStudent(ctx context.Context, student model.Student) error
	PutTeacher(ctx context.Context, teacher model.Teacher) error
}

type noopMirror struct{}

func (noopMirror) PutGroup(context.Context, model.Group) error { return nil }
func (noopMirror) PutStudent(context.Context, model.Student) error { return nil }
func (noopMirror) PutTeacher(context.Context, model.Teacher) error { return nil }

type Options struct {
	Kind model.ImportKind
	// OnDuplicate overrides the configured policy for this run when set.
	OnDuplicate model.DuplicatePolicy
	// OnComplete is called once at the end of every successful run.
	OnComplete func(*Result)
}

type Result struct {
	Kind             model.ImportKind `json:"kind"`
	Inserted         int              `json:"inserted"`
	Updated          int              `json:"updated"`
	Skipped          int              `json:"skipped"`
	Failed           int              `json:"failed"`
	GroupsCreated    int              `json:"groups_created"`
	DuplicatesInFile []string         `json:"duplicates_in_file,omitempty"`
	Warnings         []string         `json:"warnings,omitempty"`
	Message          string           `json:"message"`
	Warning          string           `json:"warning,omitempty"`
}

func (r *Result) Response() model.ImportResponse {
	return model.ImportResponse{
		Success:          true,
		Message:          r.Message,
		Warning:          r.Warning,
		Inserted:         r.Inserted,
		Updated:          r.Updated,
		Skipped:          r.Skipped,
		Failed:           r.Failed,
		GroupsCreated:    r.GroupsCreated,
		DuplicatesInFile: r.DuplicatesInFile,
		Warnings:         r.Warnings,
	}
}
