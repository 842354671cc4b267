package storage

import (
	"context"
	"path"
)

// Storage archives uploaded roster files for asynchronous imports.
type Storage interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// RosterKey returns the object key for a job's uploaded file.
func RosterKey(prefix, jobID, filename string) string {
	return path.Join(prefix, jobID, path.Base(filename))
}
