package model

import "time"

type Group struct {
	ID           string    `json:"id" db:"id"`
	Stage        string    `json:"stage" db:"stage"`
	Name         string    `json:"name" db:"name"`
	DisplayOrder int       `json:"display_order" db:"display_order"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

func (g Group) Key() GroupKey {
	return NewGroupKey(g.Stage, g.Name)
}
