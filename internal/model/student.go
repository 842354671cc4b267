package model

type StudentStatus string

const (
	StatusActive     StudentStatus = "نشط"
	StatusPermission StudentStatus = "استئذان"
)

// ParseStudentStatus accepts only the exact permission token; anything else is active.
func ParseStudentStatus(raw string) StudentStatus {
	if raw == string(StatusPermission) {
		return StatusPermission
	}
	return StatusActive
}

type Student struct {
	ID              string        `json:"id" db:"id"`
	NationalID      string        `json:"national_id" db:"national_id"`
	Name            string        `json:"name" db:"name"`
	Phone           *string       `json:"phone,omitempty" db:"phone"`
	GuardianPhone   *string       `json:"guardian_phone,omitempty" db:"guardian_phone"`
	Grade           string        `json:"grade" db:"grade"`
	GroupID         string        `json:"group_id" db:"group_id"`
	Status          StudentStatus `json:"status" db:"status"`
	SpecialStatusID *string       `json:"special_status_id" db:"special_status_id"`
}
