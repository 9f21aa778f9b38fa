// Package db persists completed analysis runs to PostgreSQL. The
// archive is written once per terminal run and read back for history
// listings; in-flight runs live only in memory.
package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no archived run matches the id.
var ErrNotFound = errors.New("run not found")

// JSONB maps a PostgreSQL jsonb column.
type JSONB map[string]interface{}

// Value implements driver.Valuer.
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner.
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into JSONB", value)
	}
	return json.Unmarshal(bytes, j)
}

// RunRecord is one archived analysis run.
type RunRecord struct {
	ID          uuid.UUID `db:"id"`
	State       string    `db:"state"`
	InputDigest string    `db:"input_digest"`
	Report      string    `db:"report"`
	Warning     string    `db:"warning"`
	AgentsRun   int       `db:"agents_run"`
	AgentsOk    int       `db:"agents_ok"`
	AgentsError int       `db:"agents_error"`
	// Detail holds the serialized run document: team outcomes and the
	// aggregated dossier.
	Detail      JSONB      `db:"detail"`
	StartedAt   time.Time  `db:"started_at"`
	CompletedAt *time.Time `db:"completed_at"`
	CreatedAt   time.Time  `db:"created_at"`
}

// RunSummary is the listing projection: everything but the heavy report
// and detail columns.
type RunSummary struct {
	ID          uuid.UUID  `db:"id"`
	State       string     `db:"state"`
	InputDigest string     `db:"input_digest"`
	Warning     string     `db:"warning"`
	AgentsRun   int        `db:"agents_run"`
	AgentsOk    int        `db:"agents_ok"`
	AgentsError int        `db:"agents_error"`
	StartedAt   time.Time  `db:"started_at"`
	CompletedAt *time.Time `db:"completed_at"`
}

// Archive is the run archive backed by PostgreSQL.
type Archive struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// Open connects to PostgreSQL and verifies the connection.
func Open(dsn string, logger *zap.Logger) (*Archive, error) {
	conn, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)
	return &Archive{db: conn, logger: logger}, nil
}

// NewArchive wraps an existing connection, used by tests.
func NewArchive(conn *sqlx.DB, logger *zap.Logger) *Archive {
	return &Archive{db: conn, logger: logger}
}

// Close releases the connection pool.
func (a *Archive) Close() error { return a.db.Close() }

const schema = `
CREATE TABLE IF NOT EXISTS analysis_runs (
    id            UUID PRIMARY KEY,
    state         TEXT NOT NULL,
    input_digest  TEXT NOT NULL,
    report        TEXT NOT NULL DEFAULT '',
    warning       TEXT NOT NULL DEFAULT '',
    agents_run    INT  NOT NULL DEFAULT 0,
    agents_ok     INT  NOT NULL DEFAULT 0,
    agents_error  INT  NOT NULL DEFAULT 0,
    detail        JSONB,
    started_at    TIMESTAMPTZ NOT NULL,
    completed_at  TIMESTAMPTZ,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS analysis_runs_digest_idx ON analysis_runs (input_digest);
CREATE INDEX IF NOT EXISTS analysis_runs_started_idx ON analysis_runs (started_at DESC);
`

// Migrate creates the archive table when missing.
func (a *Archive) Migrate(ctx context.Context) error {
	if _, err := a.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate analysis_runs: %w", err)
	}
	return nil
}

const insertRun = `
INSERT INTO analysis_runs
    (id, state, input_digest, report, warning, agents_run, agents_ok, agents_error, detail, started_at, completed_at)
VALUES
    (:id, :state, :input_digest, :report, :warning, :agents_run, :agents_ok, :agents_error, :detail, :started_at, :completed_at)`

// SaveRun archives one terminal run.
func (a *Archive) SaveRun(ctx context.Context, rec *RunRecord) error {
	if rec.ID == uuid.Nil {
		return fmt.Errorf("run record has no id")
	}
	if _, err := a.db.NamedExecContext(ctx, insertRun, rec); err != nil {
		return fmt.Errorf("insert run %s: %w", rec.ID, err)
	}
	a.logger.Debug("Run archived",
		zap.String("run_id", rec.ID.String()),
		zap.String("state", rec.State),
	)
	return nil
}

// GetRun loads one archived run by id.
func (a *Archive) GetRun(ctx context.Context, id uuid.UUID) (*RunRecord, error) {
	var rec RunRecord
	err := a.db.GetContext(ctx, &rec,
		`SELECT * FROM analysis_runs WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return &rec, nil
}

// ListRuns returns the most recent runs, newest first.
func (a *Archive) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var runs []RunSummary
	err := a.db.SelectContext(ctx, &runs,
		`SELECT id, state, input_digest, warning, agents_run, agents_ok, agents_error, started_at, completed_at
		 FROM analysis_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}
