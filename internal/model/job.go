package model

import "time"

type JobStatus string

const (
	JobStatusQueued  JobStatus = "QUEUED"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusDone    JobStatus = "DONE"
	JobStatusFailed  JobStatus = "FAILED"
)

type ImportJob struct {
	ID            string     `json:"id" db:"id"`
	Kind          ImportKind `json:"kind" db:"kind"`
	Filename      string     `json:"filename" db:"filename"`
	S3Key         string     `json:"s3_key" db:"s3_key"`
	OnDuplicate   string     `json:"on_duplicate,omitempty" db:"on_duplicate"`
	Status        JobStatus  `json:"status" db:"status"`
	Message       *string    `json:"message,omitempty" db:"message"`
	Warning       *string    `json:"warning,omitempty" db:"warning"`
	Inserted      int        `json:"inserted" db:"inserted"`
	Updated       int        `json:"updated" db:"updated"`
	Skipped       int        `json:"skipped" db:"skipped"`
	GroupsCreated int        `json:"groups_created" db:"groups_created"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}
