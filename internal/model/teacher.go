package model

type Teacher struct {
	ID             string  `json:"id" db:"id"`
	Name           string  `json:"name" db:"name"`
	Phone          string  `json:"phone" db:"phone"`
	Specialization *string `json:"specialization,omitempty" db:"specialization"`
}
