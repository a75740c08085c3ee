package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmehdipour/event-stream/internal/model"
)

func newMockRepo(t *testing.T) (*EventsRepositoryImpl, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	dbx := sqlx.NewDb(mockDB, "mysql")
	return NewEventsRepository(dbx), mock
}

func testEvent() model.Event {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return model.Event{
		ID:        "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		Hash:      "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		Topic:     "entity.project.changed",
		Status:    model.StatusFinished,
		Summary:   model.JSONMap{},
		Payload:   model.JSONMap{},
		Progress:  100,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestInsertPlain(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`INSERT INTO events`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Insert(context.Background(), testEvent(), false)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertReuseUpserts(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`INSERT INTO events[\s\S]*ON DUPLICATE KEY UPDATE[\s\S]*id\s+= VALUES\(id\)`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := repo.Insert(context.Background(), testEvent(), true)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		number uint16
		kind   ConstraintKind
	}{
		{"duplicate hash", 1062, ConstraintDuplicateHash},
		{"missing dependency", 1452, ConstraintMissingDependency},
		{"reuse blocked", 1451, ConstraintReuseBlocked},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)

			mock.ExpectExec(`INSERT INTO events`).
				WillReturnError(&mysql.MySQLError{Number: tc.number})

			err := repo.Insert(context.Background(), testEvent(), false)
			require.Error(t, err)

			var ce *ConstraintError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tc.kind, ce.Kind)
			assert.True(t, IsConstraint(err))
		})
	}
}

func TestInsertPassesThroughUnknownErrors(t *testing.T) {
	repo, mock := newMockRepo(t)

	driverErr := &mysql.MySQLError{Number: 1205} // lock wait timeout
	mock.ExpectExec(`INSERT INTO events`).WillReturnError(driverErr)

	err := repo.Insert(context.Background(), testEvent(), false)
	require.ErrorIs(t, err, driverErr)
	assert.False(t, IsConstraint(err))
}

var eventColumns = []string{
	"id", "hash", "sender", "topic", "project_name", "user_name", "depends_on",
	"status", "description", "summary", "payload", "progress", "retries",
	"created_at", "updated_at",
}

func eventRow(ev model.Event) *sqlmock.Rows {
	return sqlmock.NewRows(eventColumns).AddRow(
		ev.ID, ev.Hash, ev.Sender, ev.Topic, ev.Project, ev.User, ev.DependsOn,
		ev.Status.String(), ev.Description, []byte("{}"), []byte("{}"),
		ev.Progress, ev.Retries, ev.CreatedAt, ev.UpdatedAt,
	)
}

func TestUpdateBuildsPartialSet(t *testing.T) {
	repo, mock := newMockRepo(t)
	ev := testEvent()

	status := model.StatusFailed
	retries := 3

	mock.ExpectExec(`UPDATE events SET updated_at = NOW\(3\), status = \?, retries = \? WHERE id = \?`).
		WithArgs(status.String(), retries, ev.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT id, hash, sender,[\s\S]*FROM events WHERE id = \?`).
		WithArgs(ev.ID).
		WillReturnRows(eventRow(ev))

	updated, err := repo.Update(context.Background(), ev.ID, model.EventPatch{
		Status:  &status,
		Retries: &retries,
	})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, ev.ID, updated.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateMissingRowReturnsNil(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE events SET updated_at = NOW\(3\) WHERE id = \?`).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT id, hash, sender,[\s\S]*FROM events WHERE id = \?`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(eventColumns))

	updated, err := repo.Update(context.Background(), "missing", model.EventPatch{})
	require.NoError(t, err)
	assert.Nil(t, updated)
}

func TestGetNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT id, hash, sender,[\s\S]*FROM events WHERE id = \?`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(eventColumns))

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetScansRow(t *testing.T) {
	repo, mock := newMockRepo(t)
	ev := testEvent()

	mock.ExpectQuery(`SELECT id, hash, sender,[\s\S]*FROM events WHERE id = \?`).
		WithArgs(ev.ID).
		WillReturnRows(eventRow(ev))

	got, err := repo.Get(context.Background(), ev.ID)
	require.NoError(t, err)
	assert.Equal(t, ev.ID, got.ID)
	assert.Equal(t, model.StatusFinished, got.Status)
	assert.Equal(t, model.JSONMap{}, got.Summary)
}

func TestDeleteStaleActions(t *testing.T) {
	repo, mock := newMockRepo(t)
	cutoff := time.Date(2026, 3, 1, 11, 50, 0, 0, time.UTC)

	mock.ExpectExec(`DELETE FROM events[\s\S]*topic IN \(\?\)[\s\S]*status = 'pending'[\s\S]*created_at < \?`).
		WithArgs("action.launcher", cutoff).
		WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := repo.DeleteStaleActions(context.Background(), []string{"action.launcher"}, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}

func TestDeleteStaleActionsNoTopics(t *testing.T) {
	repo, _ := newMockRepo(t)

	n, err := repo.DeleteStaleActions(context.Background(), nil, time.Now())
	require.NoError(t, err)
	assert.Zero(t, n, "no topics, no statement")
}

func TestDeleteLogWindow(t *testing.T) {
	repo, mock := newMockRepo(t)
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(30 * 24 * time.Hour)

	mock.ExpectExec(`DELETE FROM events[\s\S]*topic IN \(\?, \?\)[\s\S]*created_at > \?[\s\S]*created_at < \?`).
		WithArgs("log.info", "log.error", from, to).
		WillReturnResult(sqlmock.NewResult(0, 12))

	n, err := repo.DeleteLogWindow(context.Background(), []string{"log.info", "log.error"}, from, to)
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)
}

func TestDeleteRetentionBatch(t *testing.T) {
	repo, mock := newMockRepo(t)
	cutoff := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`DELETE FROM events[\s\S]*NOT IN \([\s\S]*SELECT depends_on FROM events[\s\S]*ORDER BY e\.updated_at ASC[\s\S]*LIMIT \?`).
		WithArgs(cutoff, 5000).
		WillReturnResult(sqlmock.NewResult(0, 5000))

	n, err := repo.DeleteRetentionBatch(context.Background(), cutoff, 5000)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), n)
}
