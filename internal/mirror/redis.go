package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/d66d666/SchMang-sub000/internal/logger"
	"github.com/d66d666/SchMang-sub000/internal/metrics"
	"github.com/d66d666/SchMang-sub000/internal/model"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

// Source is the system of record the mirror reads through to and resyncs from.
type Source interface {
	ListGroups(ctx context.Context) ([]model.Group, error)
	ListStudents(ctx context.Context) ([]model.Student, error)
	ListTeachers(ctx context.Context) ([]model.Teacher, error)
	GetStudent(ctx context.Context, id string) (*model.Student, error)
	GetTeacher(ctx context.Context, id string) (*model.Teacher, error)
}

// Bookkeeping keys, next to the entity hashes under the same prefix.
const (
	staleKey  = "stale"
	syncedKey = "synced_at"
	writesKey = "writes"
)

const resyncAttempts = 3

// ErrResyncConflict is returned when every resync attempt raced with a write.
var ErrResyncConflict = errors.New("mirror written during every resync attempt")

// RedisMirror keeps one Redis hash per entity kind, keyed by entity id.
// Writes go through on every successful commit. A full resync rebuilds all
// hashes and clears the stale flag.
//
// The stale flag lives in Redis so every process sharing the prefix sees it.
// A mirror that has never been resynced also reports stale.
type RedisMirror struct {
	client *redis.Client
	source Source
	prefix string
	log    zerolog.Logger
}

func NewRedisMirror(client *redis.Client, source Source, prefix string) *RedisMirror {
	return &RedisMirror{
		client: client,
		source: source,
		prefix: prefix,
		log:    logger.For("mirror"),
	}
}

func (m *RedisMirror) key(kind string) string {
	return m.prefix + ":" + kind
}

func (m *RedisMirror) PutGroup(ctx context.Context, group model.Group) error {
	return m.put(ctx, "groups", group.ID, group)
}

func (m *RedisMirror) PutStudent(ctx context.Context, student model.Student) error {
	return m.put(ctx, "students", student.ID, student)
}

func (m *RedisMirror) PutTeacher(ctx context.Context, teacher model.Teacher) error {
	return m.put(ctx, "teachers", teacher.ID, teacher)
}

func (m *RedisMirror) put(ctx context.Context, kind, id string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	_, err = m.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, m.key(kind), id, data)
		pipe.Incr(ctx, m.key(writesKey))
		return nil
	})
	if err != nil {
		metrics.RecordMirrorWrite(kind, false)
		if serr := m.MarkStale(ctx); serr != nil {
			m.log.Warn().Err(serr).Str("kind", kind).Msg("Could not flag mirror stale after failed write")
		}
		return fmt.Errorf("failed to mirror %s %s: %w", kind, id, err)
	}
	metrics.RecordMirrorWrite(kind, true)
	return nil
}

// GetStudent reads from the mirror and falls back to the source on a miss,
// populating the mirror with what it found.
func (m *RedisMirror) GetStudent(ctx context.Context, id string) (*model.Student, error) {
	var student model.Student
	hit, err := m.get(ctx, "students", id, &student)
	if err != nil {
		m.log.Warn().Err(err).Str("student_id", id).Msg("Mirror read failed, reading from source")
	}
	if hit {
		return &student, nil
	}

	found, err := m.source.GetStudent(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := m.PutStudent(ctx, *found); err != nil {
		m.log.Warn().Err(err).Str("student_id", id).Msg("Failed to populate mirror")
	}
	return found, nil
}

func (m *RedisMirror) GetTeacher(ctx context.Context, id string) (*model.Teacher, error) {
	var teacher model.Teacher
	hit, err := m.get(ctx, "teachers", id, &teacher)
	if err != nil {
		m.log.Warn().Err(err).Str("teacher_id", id).Msg("Mirror read failed, reading from source")
	}
	if hit {
		return &teacher, nil
	}

	found, err := m.source.GetTeacher(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := m.PutTeacher(ctx, *found); err != nil {
		m.log.Warn().Err(err).Str("teacher_id", id).Msg("Failed to populate mirror")
	}
	return found, nil
}

func (m *RedisMirror) get(ctx context.Context, kind, id string, dst interface{}) (bool, error) {
	data, err := m.client.HGet(ctx, m.key(kind), id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.RecordMirrorRead(kind, false)
			return false, nil
		}
		return false, err
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	metrics.RecordMirrorRead(kind, true)
	return true, nil
}

type flagSetter interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// MarkStale flags the mirror for a full resync.
func (m *RedisMirror) MarkStale(ctx context.Context) error {
	return m.markStale(ctx, m.client)
}

// HandleReconnect is the Redis reconnect hook. It flags the mirror stale over
// the connection being established, since the pool is not usable from inside
// the dial.
func (m *RedisMirror) HandleReconnect(ctx context.Context, cn *redis.Conn) {
	if err := m.markStale(ctx, cn); err != nil {
		m.log.Warn().Err(err).Msg("Could not flag mirror stale on reconnect")
		return
	}
	m.log.Info().Msg("Redis reconnected, mirror flagged for resync")
}

func (m *RedisMirror) markStale(ctx context.Context, c flagSetter) error {
	if err := c.Set(ctx, m.key(staleKey), time.Now().UTC().Format(time.RFC3339), 0).Err(); err != nil {
		return fmt.Errorf("failed to flag mirror stale: %w", err)
	}
	return nil
}

// Stale reports whether the mirror was flagged or has never been resynced.
func (m *RedisMirror) Stale(ctx context.Context) (bool, error) {
	n, err := m.client.Exists(ctx, m.key(staleKey)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to read mirror state: %w", err)
	}
	if n > 0 {
		return true, nil
	}

	n, err = m.client.Exists(ctx, m.key(syncedKey)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to read mirror state: %w", err)
	}
	return n == 0, nil
}

type ResyncStats struct {
	Groups   int           `json:"groups"`
	Students int           `json:"students"`
	Teachers int           `json:"teachers"`
	Attempts int           `json:"attempts"`
	Duration time.Duration `json:"duration"`
}

// Resync replaces every mirrored hash with the current contents of the source.
//
// The snapshot is taken under WATCH on the write counter and the stale flag.
// A write-through or MarkStale landing before the swap aborts it and the
// snapshot is retaken, so a resync never overwrites a newer record nor
// clears a flag raised while it ran.
func (m *RedisMirror) Resync(ctx context.Context) (*ResyncStats, error) {
	start := time.Now()

	for attempt := 1; attempt <= resyncAttempts; attempt++ {
		stats, err := m.resyncOnce(ctx)
		if errors.Is(err, redis.TxFailedErr) {
			m.log.Warn().Int("attempt", attempt).Msg("Mirror written during resync, retaking snapshot")
			continue
		}
		if err != nil {
			return nil, err
		}

		stats.Attempts = attempt
		stats.Duration = time.Since(start)
		m.log.Info().
			Int("groups", stats.Groups).
			Int("students", stats.Students).
			Int("teachers", stats.Teachers).
			Int("attempts", attempt).
			Dur("duration", stats.Duration).
			Msg("Mirror resync completed")
		return stats, nil
	}

	return nil, ErrResyncConflict
}

func (m *RedisMirror) resyncOnce(ctx context.Context) (*ResyncStats, error) {
	var stats *ResyncStats

	err := m.client.Watch(ctx, func(tx *redis.Tx) error {
		entries, snap, err := m.snapshot(ctx)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for kind, values := range entries {
				pipe.Del(ctx, m.key(kind))
				if len(values) > 0 {
					pipe.HSet(ctx, m.key(kind), values)
				}
			}
			pipe.Del(ctx, m.key(staleKey))
			pipe.Set(ctx, m.key(syncedKey), time.Now().UTC().Format(time.RFC3339), 0)
			return nil
		})
		if err != nil {
			if errors.Is(err, redis.TxFailedErr) {
				return err
			}
			return fmt.Errorf("failed to write mirror: %w", err)
		}

		stats = snap
		return nil
	}, m.key(writesKey), m.key(staleKey))

	return stats, err
}

func (m *RedisMirror) snapshot(ctx context.Context) (map[string]map[string]interface{}, *ResyncStats, error) {
	groups, err := m.source.ListGroups(ctx)
	if err != nil {
		return nil, nil, err
	}
	students, err := m.source.ListStudents(ctx)
	if err != nil {
		return nil, nil, err
	}
	teachers, err := m.source.ListTeachers(ctx)
	if err != nil {
		return nil, nil, err
	}

	entries := map[string]map[string]interface{}{
		"groups":   make(map[string]interface{}, len(groups)),
		"students": make(map[string]interface{}, len(students)),
		"teachers": make(map[string]interface{}, len(teachers)),
	}
	for _, g := range groups {
		if err := encodeInto(entries["groups"], g.ID, g); err != nil {
			return nil, nil, err
		}
	}
	for _, s := range students {
		if err := encodeInto(entries["students"], s.ID, s); err != nil {
			return nil, nil, err
		}
	}
	for _, t := range teachers {
		if err := encodeInto(entries["teachers"], t.ID, t); err != nil {
			return nil, nil, err
		}
	}

	return entries, &ResyncStats{Groups: len(groups), Students: len(students), Teachers: len(teachers)}, nil
}

func encodeInto(dst map[string]interface{}, id string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	dst[id] = string(data)
	return nil
}
