package importer

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/d66d666/SchMang-sub000/internal/model"
)

var errFakeDuplicate = stderrors.New("duplicate key")

// memStore is an in-memory Store. Hooks inject failures by identifier.
type memStore struct {
	mu       sync.Mutex
	groups   []model.Group
	students map[string]model.Student // by national id
	teachers map[string]model.Teacher // by phone

	groupCalls int
	bulkCalls  int

	failGroup      func(model.GroupKey) error
	failInsert     func(key string) error
	failUpdate     func(key string) error
	conflictInsert func(key string) bool
}

func newMemStore() *memStore {
	return &memStore{
		students: make(map[string]model.Student),
		teachers: make(map[string]model.Teacher),
	}
}

func (m *memStore) ListGroups(ctx context.Context) ([]model.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Group(nil), m.groups...), nil
}

func (m *memStore) CreateGroup(ctx context.Context, group *model.Group) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groupCalls++
	if m.failGroup != nil {
		if err := m.failGroup(group.Key()); err != nil {
			return err
		}
	}
	m.groups = append(m.groups, *group)
	return nil
}

func (m *memStore) StudentIDsByNationalID(ctx context.Context, nationalIDs []string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make(map[string]string)
	for _, id := range nationalIDs {
		if s, ok := m.students[id]; ok {
			ids[id] = s.ID
		}
	}
	return ids, nil
}

func (m *memStore) TeacherIDsByPhone(ctx context.Context, phones []string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make(map[string]string)
	for _, p := range phones {
		if t, ok := m.teachers[p]; ok {
			ids[p] = t.ID
		}
	}
	return ids, nil
}

// apply mirrors the outcome rules of the SQL repository.
func (m *memStore) apply(n int, op func(i int) model.WriteOp, key func(i int) string, id func(i int) string, write func(i int) error) []model.WriteResult {
	results := make([]model.WriteResult, n)
	halted := false
	for i := 0; i < n; i++ {
		res := model.WriteResult{Index: i, Op: op(i), ID: id(i)}
		switch {
		case halted:
			res.Outcome = model.OutcomeAbandoned
		case res.Op == model.OpInsert && m.conflictInsert != nil && m.conflictInsert(key(i)):
			res.Outcome, res.Err = model.OutcomeConflict, errFakeDuplicate
		case res.Op == model.OpInsert && m.failInsert != nil && m.failInsert(key(i)) != nil:
			res.Outcome, res.Err = model.OutcomeFailed, m.failInsert(key(i))
			halted = true
		case res.Op == model.OpUpdate && m.failUpdate != nil && m.failUpdate(key(i)) != nil:
			res.Outcome, res.Err = model.OutcomeFailed, m.failUpdate(key(i))
		default:
			if err := write(i); err != nil {
				res.Outcome, res.Err = model.OutcomeFailed, err
			} else {
				res.Outcome = model.OutcomeApplied
			}
		}
		results[i] = res
	}
	return results
}

func (m *memStore) ApplyStudentWrites(ctx context.Context, writes []model.StudentWrite) ([]model.WriteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bulkCalls++
	return m.apply(len(writes),
		func(i int) model.WriteOp { return writes[i].Op },
		func(i int) string { return writes[i].Student.NationalID },
		func(i int) string { return writes[i].Student.ID },
		func(i int) error {
			m.students[writes[i].Student.NationalID] = writes[i].Student
			return nil
		},
	), nil
}

func (m *memStore) ApplyTeacherWrites(ctx context.Context, writes []model.TeacherWrite) ([]model.WriteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bulkCalls++
	return m.apply(len(writes),
		func(i int) model.WriteOp { return writes[i].Op },
		func(i int) string { return writes[i].Teacher.Phone },
		func(i int) string { return writes[i].Teacher.ID },
		func(i int) error {
			m.teachers[writes[i].Teacher.Phone] = writes[i].Teacher
			return nil
		},
	), nil
}

type memMirror struct {
	groups   []model.Group
	students []model.Student
	teachers []model.Teacher
	fail     error
}

func (m *memMirror) PutGroup(ctx context.Context, group model.Group) error {
	if m.fail != nil {
		return m.fail
	}
	m.groups = append(m.groups, group)
	return nil
}

func (m *memMirror) PutStudent(ctx context.Context, student model.Student) error {
	if m.fail != nil {
		return m.fail
	}
	m.students = append(m.students, student)
	return nil
}

func (m *memMirror) PutTeacher(ctx context.Context, teacher model.Teacher) error {
	if m.fail != nil {
		return m.fail
	}
	m.teachers = append(m.teachers, teacher)
	return nil
}

func studentRow(name, nationalID, stage, group string) model.RosterRow {
	return model.RosterRow{
		model.ColStudentName: name,
		model.ColNationalID:  nationalID,
		model.ColStage:       stage,
		model.ColGroup:       group,
	}
}

func teacherRow(name, phone, specialization string) model.RosterRow {
	return model.RosterRow{
		model.ColTeacherName:    name,
		model.ColTeacherPhone:   phone,
		model.ColSpecialization: specialization,
	}
}
