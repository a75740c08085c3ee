package model

import (
	"strings"
	"time"
)

type EventStatus string

const (
	StatusPending    EventStatus = "pending"
	StatusInProgress EventStatus = "in_progress"
	StatusFinished   EventStatus = "finished"
	StatusFailed     EventStatus = "failed"
)

func (s EventStatus) String() string {
	return string(s)
}

func (s EventStatus) Valid() bool {
	return s == StatusPending || s == StatusInProgress || s == StatusFinished || s == StatusFailed
}

// ParseEventStatus normalizes input. Returns (value, true) if valid;
// otherwise (pending, false).
func ParseEventStatus(s string) (EventStatus, bool) {
	st := EventStatus(strings.ToLower(strings.TrimSpace(s)))
	if st.Valid() {
		return st, true
	}
	return StatusPending, false
}

// Event is the DB entity persisted in the events table.
//
// Hash is the idempotency key: unique among stored events, defaulted to the
// event id when the dispatcher does not supply one. DependsOn references a
// prerequisite event and is enforced as a foreign key.
type Event struct {
	ID          string      `db:"id" json:"id"`
	Hash        string      `db:"hash" json:"hash"`
	Sender      *string     `db:"sender" json:"sender,omitempty"`
	Topic       string      `db:"topic" json:"topic"`
	Project     *string     `db:"project_name" json:"project,omitempty"`
	User        *string     `db:"user_name" json:"user,omitempty"`
	DependsOn   *string     `db:"depends_on" json:"dependsOn,omitempty"`
	Status      EventStatus `db:"status" json:"status"`
	Description string      `db:"description" json:"description"`
	Summary     JSONMap     `db:"summary" json:"summary"`
	Payload     JSONMap     `db:"payload" json:"payload"`
	Progress    float64     `db:"progress" json:"progress"`
	Retries     int         `db:"retries" json:"retries"`
	CreatedAt   time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updatedAt"`
}

// EventPatch is a partial update of an event row. Nil fields are left
// untouched by the store.
type EventPatch struct {
	Sender      *string
	Project     *string
	User        *string
	Status      *EventStatus
	Description *string
	Summary     JSONMap
	Payload     JSONMap
	Progress    *float64
	Retries     *int
}

// IsZero reports whether the patch carries no field at all.
func (p EventPatch) IsZero() bool {
	return p.Sender == nil && p.Project == nil && p.User == nil &&
		p.Status == nil && p.Description == nil && p.Summary == nil &&
		p.Payload == nil && p.Progress == nil && p.Retries == nil
}

// Apply overlays the patch on an in-memory copy of the event. Used for the
// store=false update path, where the broadcast reflects the patch but the
// row is never written.
func (p EventPatch) Apply(ev Event) Event {
	if p.Sender != nil {
		ev.Sender = p.Sender
	}
	if p.Project != nil {
		ev.Project = p.Project
	}
	if p.User != nil {
		ev.User = p.User
	}
	if p.Status != nil {
		ev.Status = *p.Status
	}
	if p.Description != nil {
		ev.Description = *p.Description
	}
	if p.Summary != nil {
		ev.Summary = p.Summary
	}
	if p.Payload != nil {
		ev.Payload = p.Payload
	}
	if p.Progress != nil {
		ev.Progress = *p.Progress
	}
	if p.Retries != nil {
		ev.Retries = *p.Retries
	}
	return ev
}
