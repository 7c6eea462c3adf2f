package models

import "time"

// BlockRelation is a directional block. Symmetry is enforced at the check
// site: either direction disallows sending.
type BlockRelation struct {
	BlockedBy   string    `db:"blocked_by" json:"blocked_by"`
	BlockedUser string    `db:"blocked_user" json:"blocked_user"`
	BlockedAt   time.Time `db:"blocked_at" json:"blocked_at"`
	Reason      string    `db:"reason" json:"reason"`
}
