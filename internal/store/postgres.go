package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/cbdata-group/listing-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock's pool
// satisfies it, which keeps the Postgres backend unit-testable without
// a live server.
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used ledger operations.
var preparedStatements = map[string]string{
	"insert_bank_run": `INSERT INTO bank_runs (id, bank_name, stage, status, detail, started_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
	"latest_stage": `SELECT id, bank_name, stage, status, detail, started_at, updated_at FROM bank_runs
	 WHERE bank_name = $1 AND stage = $2
	 ORDER BY started_at DESC, id DESC LIMIT 1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS bank_runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	bank_name  TEXT NOT NULL,
	stage      TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	detail     TEXT,
	started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_bank_runs_bank_name ON bank_runs(bank_name);
CREATE INDEX IF NOT EXISTS idx_bank_runs_stage ON bank_runs(stage);
CREATE INDEX IF NOT EXISTS idx_bank_runs_bank_stage ON bank_runs(bank_name, stage, started_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) RecordStage(ctx context.Context, bankName string, stage model.Stage, status model.StageStatus, detail string) (*model.BankRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO bank_runs (id, bank_name, stage, status, detail, started_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, bankName, string(stage), string(status), detail, now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert run for %s", bankName)
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

func (s *PostgresStore) LatestStage(ctx context.Context, bankName string, stage model.Stage) (*model.BankRun, error) {
	var r model.BankRun
	var detail *string

	err := s.pool.QueryRow(ctx,
		`SELECT id, bank_name, stage, status, detail, started_at, updated_at FROM bank_runs
		 WHERE bank_name = $1 AND stage = $2
		 ORDER BY started_at DESC, id DESC LIMIT 1`,
		bankName, string(stage),
	).Scan(&r.ID, &r.BankName, &r.Stage, &r.Status, &detail, &r.StartedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: latest stage %s/%s", bankName, stage)
	}
	if detail != nil {
		r.Detail = *detail
	}
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.BankRun, error) {
	query := `SELECT id, bank_name, stage, status, detail, started_at, updated_at FROM bank_runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.BankName != "" {
		query += fmt.Sprintf(` AND bank_name = $%d`, argIdx)
		args = append(args, filter.BankName)
		argIdx++
	}
	if filter.Stage != "" {
		query += fmt.Sprintf(` AND stage = $%d`, argIdx)
		args = append(args, string(filter.Stage))
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY started_at DESC, id DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.BankRun
	for rows.Next() {
		var r model.BankRun
		var detail *string
		if err := rows.Scan(&r.ID, &r.BankName, &r.Stage, &r.Status, &detail, &r.StartedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if detail != nil {
			r.Detail = *detail
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}
