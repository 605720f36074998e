package models

import (
	"slices"
	"time"
)

// Audit event types.
const (
	EventCreate       = "CREATE"
	EventCreateWithID = "CREATE_WITH_ID"
	EventUpdate       = "UPDATE"
	EventDelete       = "DELETE"
)

// EventTypes lists every type the audit log records.
var EventTypes = []string{EventCreate, EventCreateWithID, EventUpdate, EventDelete}

// IsEventType reports whether s is one of EventTypes. Matching is exact.
func IsEventType(s string) bool {
	return slices.Contains(EventTypes, s)
}

// UserEvent is a single audit log entry.
type UserEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"` // one of EventTypes
	UserID      int       `json:"user_id"`
	Description string    `json:"description"`
}
