package repository

import (
	"context"
	"encoding/json"

	"github.com/jmoiron/sqlx"

	"github.com/jmehdipour/event-stream/internal/model"
)

// LogArchive stores log events the sweeper is about to delete, so reports
// keep a long-term view after the events table is trimmed.
type LogArchive interface {
	InsertEvents(ctx context.Context, events []model.Event) error
}

// CHLogArchive writes archived log events to ClickHouse.
type CHLogArchive struct {
	ch *sqlx.DB
}

func NewCHLogArchive(ch *sqlx.DB) *CHLogArchive {
	return &CHLogArchive{ch: ch}
}

// InsertEvents appends a batch of log events to the archive table. ULID ids
// make re-inserted rows harmless duplicates for the ReplacingMergeTree.
func (a *CHLogArchive) InsertEvents(ctx context.Context, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := a.ch.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events_log
			(id, topic, sender, project_name, user_name, status,
			 description, summary, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, ev := range events {
		summary, err := json.Marshal(ev.Summary)
		if err != nil {
			return err
		}
		payload, err := json.Marshal(ev.Payload)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			ev.ID, ev.Topic, strOrEmpty(ev.Sender),
			strOrEmpty(ev.Project), strOrEmpty(ev.User),
			ev.Status.String(), ev.Description,
			string(summary), string(payload),
			ev.CreatedAt, ev.UpdatedAt,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
