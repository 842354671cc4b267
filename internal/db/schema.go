package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS student_groups (
		id VARCHAR(36) PRIMARY KEY,
		stage TEXT NOT NULL,
		name TEXT NOT NULL,
		display_order INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS students (
		id VARCHAR(36) PRIMARY KEY,
		national_id TEXT NOT NULL CONSTRAINT ` + StudentsNationalIDIndex + ` UNIQUE,
		name TEXT NOT NULL,
		phone TEXT,
		guardian_phone TEXT,
		grade TEXT NOT NULL,
		group_id VARCHAR(36) NOT NULL REFERENCES student_groups(id),
		status TEXT NOT NULL DEFAULT 'نشط',
		special_status_id VARCHAR(36)
	)`,
	`CREATE TABLE IF NOT EXISTS teachers (
		id VARCHAR(36) PRIMARY KEY,
		name TEXT NOT NULL,
		phone TEXT NOT NULL CONSTRAINT ` + TeachersPhoneIndex + ` UNIQUE,
		specialization TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS import_jobs (
		id VARCHAR(36) PRIMARY KEY,
		kind TEXT NOT NULL,
		filename TEXT NOT NULL,
		s3_key TEXT NOT NULL,
		on_duplicate TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		message TEXT,
		warning TEXT,
		inserted INTEGER NOT NULL DEFAULT 0,
		updated INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		groups_created INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS student_groups (
		id VARCHAR(36) PRIMARY KEY,
		stage VARCHAR(191) NOT NULL,
		name VARCHAR(191) NOT NULL,
		display_order INT NOT NULL DEFAULT 0,
		created_at DATETIME(6) NOT NULL
	) DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS students (
		id VARCHAR(36) PRIMARY KEY,
		national_id VARCHAR(64) NOT NULL,
		name VARCHAR(255) NOT NULL,
		phone VARCHAR(32),
		guardian_phone VARCHAR(32),
		grade VARCHAR(191) NOT NULL,
		group_id VARCHAR(36) NOT NULL,
		status VARCHAR(32) NOT NULL,
		special_status_id VARCHAR(36),
		UNIQUE KEY ` + StudentsNationalIDIndex + ` (national_id),
		FOREIGN KEY (group_id) REFERENCES student_groups(id)
	) DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS teachers (
		id VARCHAR(36) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		phone VARCHAR(32) NOT NULL,
		specialization VARCHAR(255),
		UNIQUE KEY ` + TeachersPhoneIndex + ` (phone)
	) DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS import_jobs (
		id VARCHAR(36) PRIMARY KEY,
		kind VARCHAR(16) NOT NULL,
		filename VARCHAR(255) NOT NULL,
		s3_key VARCHAR(512) NOT NULL,
		on_duplicate VARCHAR(8) NOT NULL DEFAULT '',
		status VARCHAR(16) NOT NULL,
		message TEXT,
		warning TEXT,
		inserted INT NOT NULL DEFAULT 0,
		updated INT NOT NULL DEFAULT 0,
		skipped INT NOT NULL DEFAULT 0,
		groups_created INT NOT NULL DEFAULT 0,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL
	) DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the roster tables when they do not exist.
// Group (stage, name) carries no unique index, so concurrent imports can
// create the same group twice.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	statements := postgresSchema
	if db.DriverName() == "mysql" {
		statements = mysqlSchema
	}

	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
