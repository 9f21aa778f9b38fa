package db

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMockArchive(t *testing.T) (*Archive, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewArchive(sqlx.NewDb(conn, "postgres"), zap.NewNop()), mock
}

func TestSaveRun(t *testing.T) {
	archive, mock := newMockArchive(t)
	id := uuid.New()
	done := time.Now()

	mock.ExpectExec(`INSERT INTO analysis_runs`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := archive.SaveRun(context.Background(), &RunRecord{
		ID:          id,
		State:       "completed",
		InputDigest: "abc123",
		Report:      "# Product Attack Plan",
		AgentsRun:   8,
		AgentsOk:    7,
		AgentsError: 1,
		Detail:      JSONB{"teams": []any{}},
		StartedAt:   done.Add(-time.Minute),
		CompletedAt: &done,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRunRequiresID(t *testing.T) {
	archive, _ := newMockArchive(t)
	err := archive.SaveRun(context.Background(), &RunRecord{State: "completed"})
	require.Error(t, err)
}

func TestGetRunNotFound(t *testing.T) {
	archive, mock := newMockArchive(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM analysis_runs WHERE id`).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	_, err := archive.GetRun(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListRuns(t *testing.T) {
	archive, mock := newMockArchive(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "state", "input_digest", "warning",
		"agents_run", "agents_ok", "agents_error", "started_at", "completed_at",
	}).
		AddRow(uuid.New(), "completed", "d1", "", 8, 8, 0, now, now).
		AddRow(uuid.New(), "failed", "d2", "", 8, 0, 8, now.Add(-time.Hour), now.Add(-time.Hour))

	mock.ExpectQuery(`SELECT id, state, input_digest`).
		WithArgs(50).
		WillReturnRows(rows)

	runs, err := archive.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "completed", runs[0].State)
	assert.Equal(t, 8, runs[1].AgentsError)
}

func TestJSONBRoundTrip(t *testing.T) {
	src := JSONB{"agents_ok": float64(3), "warning": "thin harvest"}
	val, err := src.Value()
	require.NoError(t, err)

	var dst JSONB
	require.NoError(t, dst.Scan(val))
	assert.Equal(t, src, dst)
}

func TestJSONBScanNil(t *testing.T) {
	var j JSONB
	require.NoError(t, j.Scan(nil))
	assert.Nil(t, j)
}
