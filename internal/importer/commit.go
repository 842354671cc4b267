package importer

import (
	"context"
	"fmt"

	"github.com/d66d666/SchMang-sub000/internal/model"
	"github.com/d66d666/SchMang-sub000/pkg/errors"

	"github.com/google/uuid"
)

type Counts struct {
	Inserted      int
	Updated       int
	Skipped       int
	Failed        int
	GroupsCreated int
}

// commitStudents submits the plan as one bulk write, inserts first, and
// counts the per-row results. A row counts as inserted or updated only when
// its mirror write succeeds as well.
func (s *Service) commitStudents(ctx context.Context, plan *StudentPlan) (Counts, error) {
	writes := make([]model.StudentWrite, 0, len(plan.Inserts)+len(plan.Updates))
	for _, student := range plan.Inserts {
		student.ID = uuid.NewString()
		writes = append(writes, model.StudentWrite{Op: model.OpInsert, Student: student})
	}
	for _, student := range plan.Updates {
		writes = append(writes, model.StudentWrite{Op: model.OpUpdate, Student: student})
	}

	var counts Counts
	if len(writes) == 0 {
		return counts, nil
	}

	results, err := s.store.ApplyStudentWrites(ctx, writes)
	if err != nil {
		return counts, fmt.Errorf("failed to write students: %w", err)
	}

	var fatal error
	abandoned := 0
	for _, res := range results {
		student := writes[res.Index].Student
		log := s.log.With().Str("national_id", student.NationalID).Str("op", string(res.Op)).Logger()

		switch res.Outcome {
		case model.OutcomeApplied:
			if err := s.mirror.PutStudent(ctx, student); err != nil {
				log.Warn().Err(err).Msg("Failed to mirror student")
				counts.Failed++
				continue
			}
			if res.Op == model.OpInsert {
				counts.Inserted++
			} else {
				counts.Updated++
			}
		case model.OutcomeConflict:
			log.Info().Msg("Student already exists, skipped")
			counts.Skipped++
		case model.OutcomeFailed:
			if res.Op == model.OpInsert {
				fatal = &errors.UnknownPersistenceError{Identifier: student.NationalID, Err: res.Err}
				continue
			}
			log.Error().Err(res.Err).Msg("Failed to update student")
			counts.Failed++
		case model.OutcomeAbandoned:
			abandoned++
		}
	}

	if abandoned > 0 {
		s.log.Warn().Int("abandoned", abandoned).Msg("Remaining student writes abandoned")
	}
	return counts, fatal
}

func (s *Service) commitTeachers(ctx context.Context, plan *TeacherPlan) (Counts, error) {
	writes := make([]model.TeacherWrite, 0, len(plan.Inserts)+len(plan.Updates))
	for _, teacher := range plan.Inserts {
		teacher.ID = uuid.NewString()
		writes = append(writes, model.TeacherWrite{Op: model.OpInsert, Teacher: teacher})
	}
	for _, teacher := range plan.Updates {
		writes = append(writes, model.TeacherWrite{Op: model.OpUpdate, Teacher: teacher})
	}

	var counts Counts
	if len(writes) == 0 {
		return counts, nil
	}

	results, err := s.store.ApplyTeacherWrites(ctx, writes)
	if err != nil {
		return counts, fmt.Errorf("failed to write teachers: %w", err)
	}

	var fatal error
	abandoned := 0
	for _, res := range results {
		teacher := writes[res.Index].Teacher
		log := s.log.With().Str("phone", teacher.Phone).Str("op", string(res.Op)).Logger()

		switch res.Outcome {
		case model.OutcomeApplied:
			if err := s.mirror.PutTeacher(ctx, teacher); err != nil {
				log.Warn().Err(err).Msg("Failed to mirror teacher")
				counts.Failed++
				continue
			}
			if res.Op == model.OpInsert {
				counts.Inserted++
			} else {
				counts.Updated++
			}
		case model.OutcomeConflict:
			log.Info().Msg("Teacher already exists, skipped")
			counts.Skipped++
		case model.OutcomeFailed:
			if res.Op == model.OpInsert {
				fatal = &errors.UnknownPersistenceError{Identifier: teacher.Phone, Err: res.Err}
				continue
			}
			log.Error().Err(res.Err).Msg("Failed to update teacher")
			counts.Failed++
		case model.OutcomeAbandoned:
			abandoned++
		}
	}

	if abandoned > 0 {
		s.log.Warn().Int("abandoned", abandoned).Msg("Remaining teacher writes abandoned")
	}
	return counts, fatal
}
