package model

import "time"

// Message is the JSON envelope published to the broadcast channel for every
// dispatch and update, stored or not. Store tells listeners whether the
// event can be queried back by id.
type Message struct {
	ID          string      `json:"id"`
	Topic       string      `json:"topic"`
	Project     *string     `json:"project"`
	User        *string     `json:"user"`
	DependsOn   *string     `json:"dependsOn"`
	Description string      `json:"description"`
	Summary     JSONMap     `json:"summary"`
	Status      EventStatus `json:"status"`
	Progress    *float64    `json:"progress,omitempty"`
	Sender      *string     `json:"sender"`
	Store       bool        `json:"store"`
	Recipients  []string    `json:"recipients"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// NewMessage builds the broadcast envelope for an event. Recipients nil
// means "all listeners".
func NewMessage(ev Event, store bool, progress *float64, recipients []string) Message {
	return Message{
		ID:          ev.ID,
		Topic:       ev.Topic,
		Project:     ev.Project,
		User:        ev.User,
		DependsOn:   ev.DependsOn,
		Description: ev.Description,
		Summary:     ev.Summary,
		Status:      ev.Status,
		Progress:    progress,
		Sender:      ev.Sender,
		Store:       store,
		Recipients:  recipients,
		CreatedAt:   ev.CreatedAt,
		UpdatedAt:   ev.UpdatedAt,
	}
}
