package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/cbdata-group/listing-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS bank_runs (
	id         TEXT PRIMARY KEY,
	bank_name  TEXT NOT NULL,
	stage      TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	detail     TEXT,
	started_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_bank_runs_bank_name ON bank_runs(bank_name);
CREATE INDEX IF NOT EXISTS idx_bank_runs_stage ON bank_runs(stage);
CREATE INDEX IF NOT EXISTS idx_bank_runs_bank_stage ON bank_runs(bank_name, stage, started_at DESC);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) RecordStage(ctx context.Context, bankName string, stage model.Stage, status model.StageStatus, detail string) (*model.BankRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bank_runs (id, bank_name, stage, status, detail, started_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, bankName, string(stage), string(status), detail, now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert run for %s", bankName)
	}

	return &model.BankRun{
		ID:        id,
		BankName:  bankName,
		Stage:     stage,
		Status:    status,
		Detail:    detail,
		StartedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) LatestStage(ctx context.Context, bankName string, stage model.Stage) (*model.BankRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, bank_name, stage, status, detail, started_at, updated_at FROM bank_runs
		 WHERE bank_name = ? AND stage = ?
		 ORDER BY started_at DESC, id DESC LIMIT 1`,
		bankName, string(stage),
	)

	r, err := scanBankRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: latest stage %s/%s", bankName, stage)
	}
	return r, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.BankRun, error) {
	query := `SELECT id, bank_name, stage, status, detail, started_at, updated_at FROM bank_runs WHERE 1=1`
	var args []any

	if filter.BankName != "" {
		query += ` AND bank_name = ?`
		args = append(args, filter.BankName)
	}
	if filter.Stage != "" {
		query += ` AND stage = ?`
		args = append(args, string(filter.Stage))
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY started_at DESC, id DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.BankRun
	for rows.Next() {
		r, err := scanBankRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanBankRun(row scannable) (*model.BankRun, error) {
	var r model.BankRun
	var detail sql.NullString

	err := row.Scan(&r.ID, &r.BankName, &r.Stage, &r.Status, &detail, &r.StartedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.Detail = detail.String
	return &r, nil
}
