package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jmehdipour/event-stream/internal/model"
)

// EventsRepository defines persistence for the events table as the stream
// facade consumes it.
type EventsRepository interface {
	// Insert writes a single event row. With reuse=true the insert upserts
	// on the unique hash constraint and replaces all mutable columns,
	// including id: the existing logical event is reassigned to the new id.
	// Callers holding the old id will get ErrNotFound from Get afterwards.
	Insert(ctx context.Context, ev model.Event, reuse bool) error

	// Update applies a partial patch, stamps updated_at and returns the row
	// as persisted. Returns (nil, nil) when no row has that id.
	Update(ctx context.Context, id string, patch model.EventPatch) (*model.Event, error)

	// Get returns the full event row, or ErrNotFound.
	Get(ctx context.Context, id string) (model.Event, error)
}

// SweepRepository defines the bulk-delete predicates used by the retention
// sweeper. Each call is a single statement; idempotency comes from the
// predicates themselves.
type SweepRepository interface {
	// DeleteStaleActions removes action events stuck in pending state since
	// before cutoff.
	DeleteStaleActions(ctx context.Context, topics []string, cutoff time.Time) (int64, error)

	// SelectLogWindow lists log events created inside (from, to), oldest
	// first. Used to archive rows the log sweep is about to delete.
	SelectLogWindow(ctx context.Context, topics []string, from, to time.Time) ([]model.Event, error)

	// DeleteLogWindow removes log events created inside (from, to).
	DeleteLogWindow(ctx context.Context, topics []string, from, to time.Time) (int64, error)

	// DeleteRetentionBatch removes up to limit events last updated before
	// cutoff, oldest first, skipping every event some other event still
	// depends on. Returns the number of rows deleted; the caller loops
	// until it reaches zero.
	DeleteRetentionBatch(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

// EventsRepositoryImpl is the sqlx/MySQL implementation of both interfaces.
type EventsRepositoryImpl struct {
	db *sqlx.DB
}

func NewEventsRepository(db *sqlx.DB) *EventsRepositoryImpl {
	return &EventsRepositoryImpl{db: db}
}

const insertColumns = `
		(id, hash, sender, topic, project_name, user_name, depends_on,
		 status, description, summary, payload, progress, retries,
		 created_at, updated_at)
`

func (r *EventsRepositoryImpl) Insert(ctx context.Context, ev model.Event, reuse bool) error {
	q := `INSERT INTO events ` + insertColumns + `
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if reuse {
		q += `
		ON DUPLICATE KEY UPDATE
			id           = VALUES(id),
			sender       = VALUES(sender),
			topic        = VALUES(topic),
			project_name = VALUES(project_name),
			user_name    = VALUES(user_name),
			depends_on   = VALUES(depends_on),
			status       = VALUES(status),
			description  = VALUES(description),
			summary      = VALUES(summary),
			payload      = VALUES(payload),
			progress     = VALUES(progress),
			updated_at   = VALUES(updated_at)`
	}

	_, err := r.db.ExecContext(ctx, q,
		ev.ID, ev.Hash, ev.Sender, ev.Topic, ev.Project, ev.User, ev.DependsOn,
		ev.Status.String(), ev.Description, ev.Summary, ev.Payload,
		ev.Progress, ev.Retries, ev.CreatedAt, ev.UpdatedAt,
	)
	if err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (r *EventsRepositoryImpl) Update(ctx context.Context, id string, patch model.EventPatch) (*model.Event, error) {
	sets := []string{"updated_at = NOW(3)"}
	args := []any{}

	if patch.Sender != nil {
		sets = append(sets, "sender = ?")
		args = append(args, *patch.Sender)
	}
	if patch.Project != nil {
		sets = append(sets, "project_name = ?")
		args = append(args, *patch.Project)
	}
	if patch.User != nil {
		sets = append(sets, "user_name = ?")
		args = append(args, *patch.User)
	}
	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, patch.Status.String())
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.Summary != nil {
		sets = append(sets, "summary = ?")
		args = append(args, patch.Summary)
	}
	if patch.Payload != nil {
		sets = append(sets, "payload = ?")
		args = append(args, patch.Payload)
	}
	if patch.Progress != nil {
		sets = append(sets, "progress = ?")
		args = append(args, *patch.Progress)
	}
	if patch.Retries != nil {
		sets = append(sets, "retries = ?")
		args = append(args, *patch.Retries)
	}

	q := "UPDATE events SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	args = append(args, id)

	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		return nil, mapWriteError(err)
	}

	// RowsAffected is 0 both for a missing row and a no-op change, so read
	// the row back to tell them apart (and to feed the broadcast).
	ev, err := r.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func (r *EventsRepositoryImpl) Get(ctx context.Context, id string) (model.Event, error) {
	const q = `
		SELECT id, hash, sender, topic, project_name, user_name, depends_on,
		       status, description, summary, payload, progress, retries,
		       created_at, updated_at
		FROM events WHERE id = ?`

	var ev model.Event
	if err := r.db.GetContext(ctx, &ev, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Event{}, ErrNotFound
		}
		return model.Event{}, err
	}
	return ev, nil
}
