package model

import "time"

// ImportJobMessage is the queue payload for an asynchronous import.
type ImportJobMessage struct {
	JobID       string     `json:"job_id"`
	Kind        ImportKind `json:"kind"`
	Filename    string     `json:"filename"`
	S3Key       string     `json:"s3_key"`
	OnDuplicate string     `json:"on_duplicate,omitempty"`
	EnqueuedAt  time.Time  `json:"enqueued_at"`
}

type ImportResponse struct {
	Success          bool     `json:"success"`
	Message          string   `json:"message"`
	Warning          string   `json:"warning,omitempty"`
	Inserted         int      `json:"inserted"`
	Updated          int      `json:"updated"`
	Skipped          int      `json:"skipped"`
	Failed           int      `json:"failed"`
	GroupsCreated    int      `json:"groups_created"`
	DuplicatesInFile []string `json:"duplicates_in_file,omitempty"`
	Warnings         []string `json:"warnings,omitempty"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
