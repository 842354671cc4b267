package importer

import (
	"fmt"

	"github.com/d66d666/SchMang-sub000/internal/model"
	"github.com/d66d666/SchMang-sub000/pkg/errors"
)

type StudentPlan struct {
	Inserts          []model.Student
	Updates          []model.Student
	DuplicatesInFile []string
	Warnings         []string
}

type TeacherPlan struct {
	Inserts          []model.Teacher
	Updates          []model.Teacher
	DuplicatesInFile []string
	Warnings         []string
}

// dedupe tracks identifiers already kept from the current file.
type dedupe struct {
	policy model.DuplicatePolicy
	index  map[string]int
}

func newDedupe(policy model.DuplicatePolicy) *dedupe {
	return &dedupe{policy: policy, index: make(map[string]int)}
}

// place returns where the row with id goes in the kept list: append (-1),
// replace at i, or drop. Under KeepFirst a repeated id is always dropped.
func (d *dedupe) place(id string, next int) (slot int, keep bool) {
	i, seen := d.index[id]
	if !seen {
		d.index[id] = next
		return -1, true
	}
	if d.policy == model.KeepLast {
		return i, true
	}
	return 0, false
}

func duplicateEntry(name, id string) string {
	return fmt.Sprintf("%s (%s)", name, id)
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// StudentNationalIDs returns the distinct trimmed national ids of rows that
// carry both a name and a national id.
func StudentNationalIDs(rows []model.RosterRow) []string {
	return distinctKeys(rows, model.ColStudentName, model.ColNationalID)
}

// TeacherPhones returns the distinct trimmed phones of rows that carry both a
// name and a phone.
func TeacherPhones(rows []model.RosterRow) []string {
	return distinctKeys(rows, model.ColTeacherName, model.ColTeacherPhone)
}

func distinctKeys(rows []model.RosterRow, nameCol, keyCol string) []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, row := range rows {
		name, key := row.Trimmed(nameCol), row.Trimmed(keyCol)
		if name == "" || key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}

// ReconcileStudents classifies student rows into inserts and updates.
//
// groupIDs must hold every (stage, group) pair referenced by the rows; a
// missing pair is fatal. existing maps national id to the current student id.
// Row numbers in warnings count the header as line 1.
func ReconcileStudents(rows []model.RosterRow, groupIDs map[model.GroupKey]string, existing map[string]string, policy model.DuplicatePolicy) (*StudentPlan, error) {
	plan := &StudentPlan{}
	seen := newDedupe(policy)
	var kept []model.Student

	for i, row := range rows {
		name := row.Trimmed(model.ColStudentName)
		nationalID := row.Trimmed(model.ColNationalID)
		if name == "" || nationalID == "" {
			continue
		}

		key := model.NewGroupKey(row.Get(model.ColStage), row.Get(model.ColGroup))
		if key.Empty() {
			plan.Warnings = append(plan.Warnings,
				fmt.Sprintf("السطر %d: تم تخطي الطالب %s لعدم تحديد الصف أو المجموعة", i+2, duplicateEntry(name, nationalID)))
			continue
		}

		groupID, ok := groupIDs[key]
		if !ok {
			return nil, &errors.UnresolvedGroupError{Stage: key.Stage, Name: key.Name}
		}

		student := model.Student{
			NationalID:    nationalID,
			Name:          name,
			Phone:         optional(row.Trimmed(model.ColStudentPhone)),
			GuardianPhone: optional(row.FirstNonEmpty(model.GuardianPhoneColumns...)),
			Grade:         key.Stage,
			GroupID:       groupID,
			Status:        model.ParseStudentStatus(row.Get(model.ColStatus)),
		}

		slot, keep := seen.place(nationalID, len(kept))
		switch {
		case !keep:
			plan.DuplicatesInFile = append(plan.DuplicatesInFile, duplicateEntry(name, nationalID))
		case slot >= 0:
			plan.DuplicatesInFile = append(plan.DuplicatesInFile, duplicateEntry(kept[slot].Name, nationalID))
			kept[slot] = student
		default:
			kept = append(kept, student)
		}
	}

	for _, student := range kept {
		if id, ok := existing[student.NationalID]; ok {
			student.ID = id
			plan.Updates = append(plan.Updates, student)
		} else {
			plan.Inserts = append(plan.Inserts, student)
		}
	}

	return plan, nil
}

// ReconcileTeachers classifies teacher rows into inserts and updates.
// existing maps phone to the current teacher id.
func ReconcileTeachers(rows []model.RosterRow, existing map[string]string, policy model.DuplicatePolicy) *TeacherPlan {
	plan := &TeacherPlan{}
	seen := newDedupe(policy)
	var kept []model.Teacher

	for _, row := range rows {
		name := row.Trimmed(model.ColTeacherName)
		phone := row.Trimmed(model.ColTeacherPhone)
		if name == "" || phone == "" {
			continue
		}

		teacher := model.Teacher{
			Name:           name,
			Phone:          phone,
			Specialization: optional(row.Trimmed(model.ColSpecialization)),
		}

		slot, keep := seen.place(phone, len(kept))
		switch {
		case !keep:
			plan.DuplicatesInFile = append(plan.DuplicatesInFile, duplicateEntry(name, phone))
		case slot >= 0:
			plan.DuplicatesInFile = append(plan.DuplicatesInFile, duplicateEntry(kept[slot].Name, phone))
			kept[slot] = teacher
		default:
			kept = append(kept, teacher)
		}
	}

	for _, teacher := range kept {
		if id, ok := existing[teacher.Phone]; ok {
			teacher.ID = id
			plan.Updates = append(plan.Updates, teacher)
		} else {
			plan.Inserts = append(plan.Inserts, teacher)
		}
	}

	return plan
}
