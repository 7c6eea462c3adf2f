package models

import (
	"database/sql"
	"time"
)

// User is a phone-number-identified account. The wa_id is assigned once at
// registration (or first webhook contact sighting) and never changes.
type User struct {
	WaID         string         `db:"wa_id" json:"wa_id"`
	Name         string         `db:"name" json:"name"`
	Email        sql.NullString `db:"email" json:"email,omitempty"`
	ProfileImage sql.NullString `db:"profile_image" json:"profile_image,omitempty"`
	IsOnline     bool           `db:"is_online" json:"is_online"`
	LastSeen     time.Time      `db:"last_seen" json:"last_seen"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}
