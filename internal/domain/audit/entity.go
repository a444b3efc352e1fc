package audit

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Action names recorded for admin decisions
const (
	ActionUpgradeApproved = "business.upgrade_approved"
	ActionUpgradeRejected = "business.upgrade_rejected"
)

const TargetBusiness = "business"

// Entry is one admin action. Entries are append-only.
type Entry struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	ActorID    uuid.UUID       `db:"actor_id" json:"actor_id"`
	Action     string          `db:"action" json:"action"`
	TargetType string          `db:"target_type" json:"target_type"`
	TargetID   uuid.UUID       `db:"target_id" json:"target_id"`
	Reason     sql.NullString  `db:"reason" json:"-"`
	OldValue   json.RawMessage `db:"old_value" json:"old_value,omitempty"`
	NewValue   json.RawMessage `db:"new_value" json:"new_value,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// Filter narrows List; nil fields match everything
type Filter struct {
	ActorID    *uuid.UUID
	TargetID   *uuid.UUID
	Action     *string
	TargetType *string
	Limit      int
	Offset     int
}
