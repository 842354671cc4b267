package mirror

import (
	"context"
	"testing"

	"github.com/d66d666/SchMang-sub000/internal/model"
	"github.com/d66d666/SchMang-sub000/pkg/errors"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	groups   []model.Group
	students map[string]model.Student
	teachers map[string]model.Teacher
	gets     int
}

func (f *fakeSource) ListGroups(ctx context.Context) ([]model.Group, error) { return f.groups, nil }

func (f *fakeSource) ListStudents(ctx context.Context) ([]model.Student, error) {
	var out []model.Student
	for _, s := range f.students {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeSource) ListTeachers(ctx context.Context) ([]model.Teacher, error) {
	var out []model.Teacher
	for _, t := range f.teachers {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeSource) GetStudent(ctx context.Context, id string) (*model.Student, error) {
	f.gets++
	s, ok := f.students[id]
	if !ok {
		return nil, errors.ErrRecordNotFound
	}
	return &s, nil
}

func (f *fakeSource) GetTeacher(ctx context.Context, id string) (*model.Teacher, error) {
	f.gets++
	t, ok := f.teachers[id]
	if !ok {
		return nil, errors.ErrRecordNotFound
	}
	return &t, nil
}

func newMirror(t *testing.T, src Source) (*RedisMirror, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisMirror(client, src, "test"), srv
}

func TestRedisMirror_ReadThroughPopulatesOnMiss(t *testing.T) {
	src := &fakeSource{students: map[string]model.Student{
		"s-1": {ID: "s-1", NationalID: "1", Name: "أحمد", Status: model.StatusActive},
	}}
	m, srv := newMirror(t, src)
	ctx := context.Background()

	got, err := m.GetStudent(ctx, "s-1")
	require.NoError(t, err)
	require.Equal(t, "أحمد", got.Name)
	require.Equal(t, 1, src.gets)
	require.True(t, srv.Exists("test:students"))

	got, err = m.GetStudent(ctx, "s-1")
	require.NoError(t, err)
	require.Equal(t, "1", got.NationalID)
	require.Equal(t, 1, src.gets, "second read is served by the mirror")

	_, err = m.GetStudent(ctx, "missing")
	require.ErrorIs(t, err, errors.ErrRecordNotFound)
}

func TestRedisMirror_WriteThrough(t *testing.T) {
	m, srv := newMirror(t, &fakeSource{})
	ctx := context.Background()

	require.NoError(t, m.PutTeacher(ctx, model.Teacher{ID: "t-1", Name: "خالد", Phone: "0501"}))
	require.Contains(t, srv.HGet("test:teachers", "t-1"), "0501")

	got, err := m.GetTeacher(ctx, "t-1")
	require.NoError(t, err)
	require.Equal(t, "خالد", got.Name)
}

func TestRedisMirror_ResyncReplacesContentsAndClearsStale(t *testing.T) {
	src := &fakeSource{
		groups:   []model.Group{{ID: "g-1", Stage: "أول", Name: "A"}},
		students: map[string]model.Student{"s-1": {ID: "s-1", NationalID: "1"}},
	}
	m, srv := newMirror(t, src)
	ctx := context.Background()

	require.NoError(t, m.PutStudent(ctx, model.Student{ID: "gone", NationalID: "9"}))
	requireStale(t, m, true)

	stats, err := m.Resync(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Groups)
	require.Equal(t, 1, stats.Students)
	require.Equal(t, 1, stats.Attempts)
	requireStale(t, m, false)

	require.Equal(t, "", srv.HGet("test:students", "gone"))
	require.NotEmpty(t, srv.HGet("test:students", "s-1"))
	require.NotEmpty(t, srv.HGet("test:groups", "g-1"))
	require.False(t, srv.Exists("test:teachers"))
}

func TestRedisMirror_StaleIsSharedAcrossInstances(t *testing.T) {
	m, srv := newMirror(t, &fakeSource{})
	ctx := context.Background()

	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	other := NewRedisMirror(client, &fakeSource{}, "test")

	_, err := m.Resync(ctx)
	require.NoError(t, err)
	requireStale(t, other, false)

	require.NoError(t, other.MarkStale(ctx))
	requireStale(t, m, true)
}

func TestRedisMirror_HandleReconnectFlagsStale(t *testing.T) {
	m, _ := newMirror(t, &fakeSource{})
	ctx := context.Background()

	_, err := m.Resync(ctx)
	require.NoError(t, err)

	cn := m.client.Conn(ctx)
	defer cn.Close()
	m.HandleReconnect(ctx, cn)

	requireStale(t, m, true)
}

func TestRedisMirror_FailedWriteFlagsStale(t *testing.T) {
	m, srv := newMirror(t, &fakeSource{})
	ctx := context.Background()

	_, err := m.Resync(ctx)
	require.NoError(t, err)
	requireStale(t, m, false)

	require.NoError(t, srv.Set("test:students", "not a hash"))
	require.Error(t, m.PutStudent(ctx, model.Student{ID: "s-1", NationalID: "1"}))

	requireStale(t, m, true)
}

// hookedSource runs during while the resync is listing, up to limit times.
type hookedSource struct {
	*fakeSource
	during func(ctx context.Context) error
	calls  int
	limit  int
}

func (h *hookedSource) ListTeachers(ctx context.Context) ([]model.Teacher, error) {
	if h.calls < h.limit {
		h.calls++
		if err := h.during(ctx); err != nil {
			return nil, err
		}
	}
	return h.fakeSource.ListTeachers(ctx)
}

func newConcurrentCommit(t *testing.T, limit int) (*RedisMirror, *hookedSource) {
	t.Helper()
	src := &hookedSource{
		fakeSource: &fakeSource{students: map[string]model.Student{"s-1": {ID: "s-1", NationalID: "1", Name: "OLD"}}},
		limit:      limit,
	}
	m, _ := newMirror(t, src)
	src.during = func(ctx context.Context) error {
		updated := model.Student{ID: "s-1", NationalID: "1", Name: "NEW"}
		src.students["s-1"] = updated
		return m.PutStudent(ctx, updated)
	}
	return m, src
}

func TestRedisMirror_ResyncKeepsConcurrentWrite(t *testing.T) {
	m, _ := newConcurrentCommit(t, 1)
	ctx := context.Background()

	stats, err := m.Resync(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Attempts)

	got, err := m.GetStudent(ctx, "s-1")
	require.NoError(t, err)
	require.Equal(t, "NEW", got.Name)
	requireStale(t, m, false)
}

func TestRedisMirror_ResyncGivesUpWhileWritesKeepLanding(t *testing.T) {
	m, _ := newConcurrentCommit(t, resyncAttempts)
	ctx := context.Background()

	_, err := m.Resync(ctx)
	require.ErrorIs(t, err, ErrResyncConflict)
	requireStale(t, m, true)

	got, err := m.GetStudent(ctx, "s-1")
	require.NoError(t, err)
	require.Equal(t, "NEW", got.Name)
}

func TestRedisMirror_MarkStaleDuringResyncForcesRetake(t *testing.T) {
	src := &hookedSource{fakeSource: &fakeSource{}, limit: 1}
	m, _ := newMirror(t, src)
	src.during = m.MarkStale
	ctx := context.Background()

	stats, err := m.Resync(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Attempts)
	require.Equal(t, 1, src.calls)
	requireStale(t, m, false)
}

func requireStale(t *testing.T, m *RedisMirror, want bool) {
	t.Helper()
	stale, err := m.Stale(context.Background())
	require.NoError(t, err)
	require.Equal(t, want, stale)
}
