package db

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

// Unique indexes the import relies on.
const (
	StudentsNationalIDIndex = "students_national_id_key"
	TeachersPhoneIndex      = "teachers_phone_key"
)

const (
	pgUniqueViolation   = "23505"
	mysqlDuplicateEntry = 1062
)

// IsDuplicateKey reports whether err is a unique violation on index.
// An empty index matches any unique violation.
func IsDuplicateKey(err error, index string) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgUniqueViolation {
			return false
		}
		return index == "" || pgErr.ConstraintName == index || strings.Contains(pgErr.Message, index)
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		if myErr.Number != mysqlDuplicateEntry {
			return false
		}
		return index == "" || strings.Contains(myErr.Message, index)
	}

	return false
}
