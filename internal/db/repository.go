package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/d66d666/SchMang-sub000/internal/model"
	pkgerrors "github.com/d66d666/SchMang-sub000/pkg/errors"

	"github.com/jmoiron/sqlx"
)

// lookupChunk bounds the number of placeholders in one IN (...) lookup.
const lookupChunk = 500

type Repository interface {
	ListGroups(ctx context.Context) ([]model.Group, error)
	CreateGroup(ctx context.Context, group *model.Group) error

	StudentIDsByNationalID(ctx context.Context, nationalIDs []string) (map[string]string, error)
	ApplyStudentWrites(ctx context.Context, writes []model.StudentWrite) ([]model.WriteResult, error)
	GetStudent(ctx context.Context, id string) (*model.Student, error)
	ListStudents(ctx context.Context) ([]model.Student, error)

	TeacherIDsByPhone(ctx context.Context, phones []string) (map[string]string, error)
	ApplyTeacherWrites(ctx context.Context, writes []model.TeacherWrite) ([]model.WriteResult, error)
	GetTeacher(ctx context.Context, id string) (*model.Teacher, error)
	ListTeachers(ctx context.Context) ([]model.Teacher, error)

	CreateImportJob(ctx context.Context, job *model.ImportJob) error
	GetImportJob(ctx context.Context, id string) (*model.ImportJob, error)
	UpdateImportJob(ctx context.Context, job *model.ImportJob) error
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListGroups(ctx context.Context) ([]model.Group, error) {
	query := `SELECT id, stage, name, display_order, created_at FROM student_groups ORDER BY display_order, stage, name`

	var groups []model.Group
	if err := r.db.SelectContext(ctx, &groups, query); err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return groups, nil
}

func (r *repository) CreateGroup(ctx context.Context, group *model.Group) error {
	query := r.db.Rebind(`INSERT INTO student_groups (id, stage, name, display_order, created_at) VALUES (?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query, group.ID, group.Stage, group.Name, group.DisplayOrder, group.CreatedAt)
	return err
}

func (r *repository) StudentIDsByNationalID(ctx context.Context, nationalIDs []string) (map[string]string, error) {
	return r.idsByKey(ctx, `SELECT national_id AS k, id FROM students WHERE national_id IN (?)`, nationalIDs)
}

func (r *repository) TeacherIDsByPhone(ctx context.Context, phones []string) (map[string]string, error) {
	return r.idsByKey(ctx, `SELECT phone AS k, id FROM teachers WHERE phone IN (?)`, phones)
}

func (r *repository) idsByKey(ctx context.Context, baseQuery string, keys []string) (map[string]string, error) {
	ids := make(map[string]string, len(keys))

	for start := 0; start < len(keys); start += lookupChunk {
		end := start + lookupChunk
		if end > len(keys) {
			end = len(keys)
		}

		query, args, err := sqlx.In(baseQuery, keys[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to build lookup query: %w", err)
		}

		var pairs []struct {
			K  string `db:"k"`
			ID string `db:"id"`
		}
		if err := r.db.SelectContext(ctx, &pairs, r.db.Rebind(query), args...); err != nil {
			return nil, fmt.Errorf("failed to look up existing records: %w", err)
		}

		for _, p := range pairs {
			ids[p.K] = p.ID
		}
	}

	return ids, nil
}

// ApplyStudentWrites executes each write on its own, in slice order, and
// reports one result per write. A duplicate national id on insert is a
// conflict and the loop continues; any other insert error stops the run and
// marks every later write abandoned. A failed update does not stop the run.
func (r *repository) ApplyStudentWrites(ctx context.Context, writes []model.StudentWrite) ([]model.WriteResult, error) {
	insert := r.db.Rebind(`INSERT INTO students (id, national_id, name, phone, guardian_phone, grade, group_id, status, special_status_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	update := r.db.Rebind(`UPDATE students SET name = ?, phone = ?, guardian_phone = ?, grade = ?, group_id = ?, status = ?
		WHERE id = ?`)

	return applyWrites(len(writes), StudentsNationalIDIndex, func(i int) (model.WriteOp, string, error) {
		s := writes[i].Student
		var err error
		if writes[i].Op == model.OpInsert {
			_, err = r.db.ExecContext(ctx, insert, s.ID, s.NationalID, s.Name, s.Phone, s.GuardianPhone,
				s.Grade, s.GroupID, s.Status, s.SpecialStatusID)
		} else {
			err = requireRow(r.db.ExecContext(ctx, update, s.Name, s.Phone, s.GuardianPhone, s.Grade, s.GroupID, s.Status, s.ID))
		}
		return writes[i].Op, s.ID, err
	}), nil
}

func (r *repository) ApplyTeacherWrites(ctx context.Context, writes []model.TeacherWrite) ([]model.WriteResult, error) {
	insert := r.db.Rebind(`INSERT INTO teachers (id, name, phone, specialization) VALUES (?, ?, ?, ?)`)
	update := r.db.Rebind(`UPDATE teachers SET name = ?, specialization = ? WHERE id = ?`)

	return applyWrites(len(writes), TeachersPhoneIndex, func(i int) (model.WriteOp, string, error) {
		t := writes[i].Teacher
		var err error
		if writes[i].Op == model.OpInsert {
			_, err = r.db.ExecContext(ctx, insert, t.ID, t.Name, t.Phone, t.Specialization)
		} else {
			err = requireRow(r.db.ExecContext(ctx, update, t.Name, t.Specialization, t.ID))
		}
		return writes[i].Op, t.ID, err
	}), nil
}

// requireRow fails an update that matched no row, as when the record was
// deleted after the id lookup. MySQL reports matched rows only with
// clientFoundRows, which DatabaseDSN sets.
func requireRow(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return pkgerrors.ErrRecordNotFound
	}
	return nil
}

func applyWrites(n int, uniqueIndex string, exec func(i int) (model.WriteOp, string, error)) []model.WriteResult {
	results := make([]model.WriteResult, 0, n)
	halted := false

	for i := 0; i < n; i++ {
		if halted {
			results = append(results, model.WriteResult{Index: i, Outcome: model.OutcomeAbandoned})
			continue
		}

		op, id, err := exec(i)
		res := model.WriteResult{Index: i, Op: op, ID: id, Outcome: model.OutcomeApplied}
		switch {
		case err == nil:
		case op == model.OpInsert && IsDuplicateKey(err, uniqueIndex):
			res.Outcome = model.OutcomeConflict
			res.Err = err
		default:
			res.Outcome = model.OutcomeFailed
			res.Err = err
			if op == model.OpInsert {
				halted = true
			}
		}
		results = append(results, res)
	}

	return results
}

func (r *repository) GetStudent(ctx context.Context, id string) (*model.Student, error) {
	query := r.db.Rebind(`SELECT id, national_id, name, phone, guardian_phone, grade, group_id, status, special_status_id
		FROM students WHERE id = ?`)

	var student model.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, pkgerrors.ErrRecordNotFound
		}
		return nil, err
	}
	return &student, nil
}

func (r *repository) ListStudents(ctx context.Context) ([]model.Student, error) {
	query := `SELECT id, national_id, name, phone, guardian_phone, grade, group_id, status, special_status_id FROM students`

	var students []model.Student
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	return students, nil
}

func (r *repository) GetTeacher(ctx context.Context, id string) (*model.Teacher, error) {
	query := r.db.Rebind(`SELECT id, name, phone, specialization FROM teachers WHERE id = ?`)

	var teacher model.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, pkgerrors.ErrRecordNotFound
		}
		return nil, err
	}
	return &teacher, nil
}

func (r *repository) ListTeachers(ctx context.Context) ([]model.Teacher, error) {
	query := `SELECT id, name, phone, specialization FROM teachers`

	var teachers []model.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query); err != nil {
		return nil, fmt.Errorf("failed to list teachers: %w", err)
	}
	return teachers, nil
}

func (r *repository) CreateImportJob(ctx context.Context, job *model.ImportJob) error {
	now := time.Now().UTC()
	job.CreatedAt, job.UpdatedAt = now, now

	query := r.db.Rebind(`INSERT INTO import_jobs (id, kind, filename, s3_key, on_duplicate, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query, job.ID, job.Kind, job.Filename, job.S3Key, job.OnDuplicate,
		job.Status, job.CreatedAt, job.UpdatedAt)
	return err
}

func (r *repository) GetImportJob(ctx context.Context, id string) (*model.ImportJob, error) {
	query := r.db.Rebind(`SELECT id, kind, filename, s3_key, on_duplicate, status, message, warning,
		inserted, updated, skipped, groups_created, created_at, updated_at
		FROM import_jobs WHERE id = ?`)

	var job model.ImportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, pkgerrors.ErrJobNotFound
		}
		return nil, err
	}
	return &job, nil
}

func (r *repository) UpdateImportJob(ctx context.Context, job *model.ImportJob) error {
	job.UpdatedAt = time.Now().UTC()

	query := r.db.Rebind(`UPDATE import_jobs SET status = ?, message = ?, warning = ?,
		inserted = ?, updated = ?, skipped = ?, groups_created = ?, updated_at = ?
		WHERE id = ?`)
	_, err := r.db.ExecContext(ctx, query, job.Status, job.Message, job.Warning,
		job.Inserted, job.Updated, job.Skipped, job.GroupsCreated, job.UpdatedAt, job.ID)
	return err
}
