package models

import "time"

// Room is the persisted form of a schedulable space.
type Room struct {
	ID        string    `db:"id" json:"id"`
	TermID    string    `db:"term_id" json:"termId"`
	Number    string    `db:"number" json:"number"`
	Capacity  int       `db:"capacity" json:"capacity"`
	Type      string    `db:"type" json:"type"`
	Building  string    `db:"building" json:"building"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// RoomFilter encapsulates allowed search parameters for listing rooms.
type RoomFilter struct {
	TermID   string
	Building string
	Search   string
	Page     int
	PageSize int
}
