package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/d66d666/SchMang-sub000/internal/config"
	"github.com/d66d666/SchMang-sub000/pkg/errors"

	"github.com/stretchr/testify/require"
)

// fakeS3 serves path-style object requests from memory.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := strings.TrimPrefix(r.URL.Path, "/")
	switch r.Method {
	case http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		f.objects[key] = data
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		data, ok := f.objects[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `<Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			return
		}
		w.Write(data)
	case http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestStorage(t *testing.T) (*S3Storage, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: make(map[string][]byte)}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.Storage.S3 = config.S3Config{
		Endpoint:  srv.URL,
		AccessKey: "test",
		SecretKey: "test",
		Bucket:    "rosters",
		Region:    "us-east-1",
	}

	s, err := NewS3Storage(cfg)
	require.NoError(t, err)
	return s, fake
}

func TestS3Storage_PutGetDelete(t *testing.T) {
	s, fake := newTestStorage(t)
	ctx := context.Background()
	key := RosterKey("imports", "job-1", "students.xlsx")

	require.NoError(t, s.Put(ctx, key, []byte("roster")))
	require.Contains(t, fake.objects, "rosters/imports/job-1/students.xlsx")

	data, err := s.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, "roster", string(data))

	require.NoError(t, s.Delete(ctx, key))
	_, err = s.Get(ctx, key)
	require.Error(t, err)
}

func TestNewS3Storage_RequiresBucket(t *testing.T) {
	_, err := NewS3Storage(&config.Config{})
	require.ErrorIs(t, err, errors.ErrStorageUnavailable)
}

func TestRosterKey_StripsDirectories(t *testing.T) {
	require.Equal(t, "imports/job-1/a.csv", RosterKey("imports", "job-1", "../../a.csv"))
}
