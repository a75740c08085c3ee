package stream

import "github.com/jmehdipour/event-stream/internal/model"

// DispatchOpts carries the optional inputs of Dispatch. The zero value
// creates a stored, finished one-shot event with a fresh unique hash.
type DispatchOpts struct {
	Sender      *string
	Hash        *string // idempotency key; defaults to the generated id
	Project     *string
	User        *string
	DependsOn   *string // prerequisite event id, must exist
	Description string
	Summary     model.JSONMap
	Payload     model.JSONMap

	// Pending creates the event as work-in-progress (status pending,
	// progress 0) instead of a finished one-shot.
	Pending bool

	// Transient skips persistence entirely: the event is broadcast but can
	// never be fetched back by id.
	Transient bool

	// Reuse upserts on the hash constraint instead of failing on conflict.
	// See Stream.Dispatch for the identity caveat.
	Reuse bool

	// Recipients narrows the broadcast to the named listeners. Nil means
	// all listeners.
	Recipients []string
}

// UpdateOpts carries the optional inputs of Update. Nil fields leave the
// corresponding column untouched.
type UpdateOpts struct {
	Sender      *string
	Project     *string
	User        *string
	Status      *model.EventStatus
	Description *string
	Summary     model.JSONMap
	Payload     model.JSONMap
	Progress    *float64
	Retries     *int

	// Transient broadcasts the patched view without persisting anything.
	Transient bool

	Recipients []string
}

func (o UpdateOpts) patch() model.EventPatch {
	return model.EventPatch{
		Sender:      o.Sender,
		Project:     o.Project,
		User:        o.User,
		Status:      o.Status,
		Description: o.Description,
		Summary:     o.Summary,
		Payload:     o.Payload,
		Progress:    o.Progress,
		Retries:     o.Retries,
	}
}

// Ptr is a convenience for filling optional fields.
func Ptr[T any](v T) *T { return &v }
