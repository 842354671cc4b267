package db

import (
	"context"
	stderrors "errors"
	"regexp"
	"testing"

	"github.com/d66d666/SchMang-sub000/internal/model"
	"github.com/d66d666/SchMang-sub000/pkg/errors"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T, driver string) (Repository, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewRepository(sqlx.NewDb(conn, driver)), mock
}

func studentWrite(op model.WriteOp, id, nationalID string) model.StudentWrite {
	return model.StudentWrite{Op: op, Student: model.Student{
		ID: id, NationalID: nationalID, Name: "طالب " + nationalID, Grade: "أول", GroupID: "g-1", Status: model.StatusActive,
	}}
}

func TestApplyStudentWrites_ClassifiesEachRow(t *testing.T) {
	repo, mock := newMockRepo(t, "pgx")

	insert := regexp.QuoteMeta("INSERT INTO students")
	update := regexp.QuoteMeta("UPDATE students SET")

	mock.ExpectExec(insert).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insert).WillReturnError(&pgconn.PgError{
		Code: "23505", ConstraintName: StudentsNationalIDIndex,
		Message: `duplicate key value violates unique constraint "students_national_id_key"`,
	})
	mock.ExpectExec(update).WillReturnError(stderrors.New("connection reset"))
	mock.ExpectExec(insert).WillReturnError(&pgconn.PgError{Code: "23503", Message: "foreign key violation"})

	writes := []model.StudentWrite{
		studentWrite(model.OpInsert, "s-1", "1"),
		studentWrite(model.OpInsert, "s-2", "2"),
		studentWrite(model.OpUpdate, "s-3", "3"),
		studentWrite(model.OpInsert, "s-4", "4"),
		studentWrite(model.OpUpdate, "s-5", "5"),
	}

	results, err := repo.ApplyStudentWrites(context.Background(), writes)
	require.NoError(t, err)
	require.Len(t, results, 5)

	require.Equal(t, model.OutcomeApplied, results[0].Outcome)
	require.Equal(t, "s-1", results[0].ID)
	require.Equal(t, model.OutcomeConflict, results[1].Outcome)
	require.Equal(t, model.OutcomeFailed, results[2].Outcome)
	require.Equal(t, model.OpUpdate, results[2].Op)
	require.Equal(t, model.OutcomeFailed, results[3].Outcome)
	require.Equal(t, model.OutcomeAbandoned, results[4].Outcome)
	require.Equal(t, 4, results[4].Index)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyStudentWrites_UpdateOfDeletedRowFails(t *testing.T) {
	repo, mock := newMockRepo(t, "pgx")

	update := regexp.QuoteMeta("UPDATE students SET")
	mock.ExpectExec(update).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(update).WillReturnResult(sqlmock.NewResult(0, 1))

	results, err := repo.ApplyStudentWrites(context.Background(), []model.StudentWrite{
		studentWrite(model.OpUpdate, "s-gone", "1"),
		studentWrite(model.OpUpdate, "s-2", "2"),
	})
	require.NoError(t, err)

	require.Equal(t, model.OutcomeFailed, results[0].Outcome)
	require.ErrorIs(t, results[0].Err, errors.ErrRecordNotFound)
	require.Equal(t, model.OutcomeApplied, results[1].Outcome)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyTeacherWrites_UpdateOfDeletedRowFails(t *testing.T) {
	repo, mock := newMockRepo(t, "mysql")

	mock.ExpectExec(regexp.QuoteMeta("UPDATE teachers SET name = ?, specialization = ? WHERE id = ?")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	results, err := repo.ApplyTeacherWrites(context.Background(), []model.TeacherWrite{
		{Op: model.OpUpdate, Teacher: model.Teacher{ID: "t-gone", Name: "خالد", Phone: "0501"}},
	})
	require.NoError(t, err)
	require.Equal(t, model.OutcomeFailed, results[0].Outcome)
	require.ErrorIs(t, results[0].Err, errors.ErrRecordNotFound)
}

func TestApplyTeacherWrites_ConflictOnOtherIndexIsFatal(t *testing.T) {
	repo, mock := newMockRepo(t, "mysql")

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO teachers (id, name, phone, specialization) VALUES (?, ?, ?, ?)")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'x' for key 'teachers.PRIMARY'"})

	writes := []model.TeacherWrite{
		{Op: model.OpInsert, Teacher: model.Teacher{ID: "t-1", Name: "خالد", Phone: "0501"}},
		{Op: model.OpInsert, Teacher: model.Teacher{ID: "t-2", Name: "منى", Phone: "0502"}},
	}

	results, err := repo.ApplyTeacherWrites(context.Background(), writes)
	require.NoError(t, err)
	require.Equal(t, model.OutcomeFailed, results[0].Outcome)
	require.Equal(t, model.OutcomeAbandoned, results[1].Outcome)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentIDsByNationalID_RebindsInClause(t *testing.T) {
	repo, mock := newMockRepo(t, "pgx")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT national_id AS k, id FROM students WHERE national_id IN ($1, $2)")).
		WithArgs("1", "2").
		WillReturnRows(sqlmock.NewRows([]string{"k", "id"}).AddRow("1", "s-1"))

	ids, err := repo.StudentIDsByNationalID(context.Background(), []string{"1", "2"})
	require.NoError(t, err)
	require.Equal(t, map[string]string{"1": "s-1"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentIDsByNationalID_NoKeysNoQuery(t *testing.T) {
	repo, mock := newMockRepo(t, "pgx")

	ids, err := repo.StudentIDsByNationalID(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetImportJob_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t, "pgx")

	mock.ExpectQuery(regexp.QuoteMeta("FROM import_jobs WHERE id = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetImportJob(context.Background(), "missing")
	require.ErrorIs(t, err, errors.ErrJobNotFound)
}

func TestIsDuplicateKey(t *testing.T) {
	pgDup := &pgconn.PgError{Code: "23505", ConstraintName: TeachersPhoneIndex}
	require.True(t, IsDuplicateKey(pgDup, TeachersPhoneIndex))
	require.True(t, IsDuplicateKey(pgDup, ""))
	require.False(t, IsDuplicateKey(pgDup, StudentsNationalIDIndex))

	myDup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry '1' for key 'students.students_national_id_key'"}
	require.True(t, IsDuplicateKey(myDup, StudentsNationalIDIndex))
	require.False(t, IsDuplicateKey(&mysql.MySQLError{Number: 1452}, ""))

	require.False(t, IsDuplicateKey(stderrors.New("duplicate key"), ""))
	require.False(t, IsDuplicateKey(nil, ""))
}
