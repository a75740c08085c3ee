package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jmehdipour/event-stream/internal/model"
)

func (r *EventsRepositoryImpl) DeleteStaleActions(ctx context.Context, topics []string, cutoff time.Time) (int64, error) {
	if len(topics) == 0 {
		return 0, nil
	}
	const base = `
		DELETE FROM events
		WHERE topic IN (?) AND status = 'pending' AND created_at < ?`

	q, args, err := sqlx.In(base, topics, cutoff)
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(q), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *EventsRepositoryImpl) SelectLogWindow(ctx context.Context, topics []string, from, to time.Time) ([]model.Event, error) {
	if len(topics) == 0 {
		return nil, nil
	}
	const base = `
		SELECT id, hash, sender, topic, project_name, user_name, depends_on,
		       status, description, summary, payload, progress, retries,
		       created_at, updated_at
		FROM events
		WHERE topic IN (?) AND created_at > ? AND created_at < ?
		ORDER BY created_at ASC`

	q, args, err := sqlx.In(base, topics, from, to)
	if err != nil {
		return nil, err
	}
	var rows []model.Event
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), args...); err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteLogWindow deletes log events inside the trailing band (from, to).
// Rows older than the band survive on purpose: they only exist when past
// sweeps kept failing, and keeping them is the diagnostic signal.
func (r *EventsRepositoryImpl) DeleteLogWindow(ctx context.Context, topics []string, from, to time.Time) (int64, error) {
	if len(topics) == 0 {
		return 0, nil
	}
	const base = `
		DELETE FROM events
		WHERE topic IN (?) AND created_at > ? AND created_at < ?`

	q, args, err := sqlx.In(base, topics, from, to)
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(q), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteRetentionBatch deletes one bounded batch of expired events. The
// derived table keeps MySQL happy about deleting from a table referenced in
// a subquery, and the NOT IN clause excludes every event some other event
// still depends on, so a surviving event can never lose its prerequisite.
func (r *EventsRepositoryImpl) DeleteRetentionBatch(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	const q = `
		DELETE FROM events
		WHERE id IN (
			SELECT id FROM (
				SELECT e.id
				FROM events e
				WHERE e.updated_at < ?
				AND e.id NOT IN (
					SELECT depends_on FROM events
					WHERE depends_on IS NOT NULL
				)
				ORDER BY e.updated_at ASC
				LIMIT ?
			) AS expired
		)`

	res, err := r.db.ExecContext(ctx, q, cutoff, limit)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
