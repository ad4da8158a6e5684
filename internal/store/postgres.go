package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/RG-FIDES/square-one-coffee/internal/db"
	"github.com/RG-FIDES/square-one-coffee/internal/tabular"
)

// PostgresStore implements Store on a shared Postgres server, for teams
// querying the consolidated tables concurrently.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
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

// NewPostgresWithPool wraps an existing pool, used by tests.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) ReplaceTable(ctx context.Context, name string, t *tabular.Table) error {
	table := sanitizeIdent(name)
	cols := columnIdents(t.Columns)
	if len(cols) == 0 {
		return eris.Errorf("postgres: table %s has no columns", table)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS "%s"`, table)); err != nil {
		return eris.Wrapf(err, "postgres: drop %s", table)
	}

	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = fmt.Sprintf(`"%s" TEXT`, c)
	}
	create := fmt.Sprintf(`CREATE TABLE "%s" (%s)`, table, strings.Join(defs, ", "))
	if _, err := tx.Exec(ctx, create); err != nil {
		return eris.Wrapf(err, "postgres: create %s", table)
	}

	rows := make([][]any, len(t.Rows))
	for i, row := range t.Rows {
		vals := make([]any, len(cols))
		for j := range cols {
			if j < len(row) {
				vals[j] = row[j]
			} else {
				vals[j] = ""
			}
		}
		rows[i] = vals
	}
	if _, err := db.CopyFrom(ctx, tx, table, cols, rows); err != nil {
		return eris.Wrapf(err, "postgres: copy into %s", table)
	}

	return eris.Wrapf(tx.Commit(ctx), "postgres: commit %s", table)
}

func (s *PostgresStore) HasTable(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT to_regclass($1) IS NOT NULL`,
		sanitizeIdent(name),
	).Scan(&exists)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: check table %s", name)
	}
	return exists, nil
}

func (s *PostgresStore) RowCount(ctx context.Context, name string) (int, error) {
	var n int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM "%s"`, sanitizeIdent(name))
	if err := s.pool.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, eris.Wrapf(err, "postgres: count %s", name)
	}
	return n, nil
}

func (s *PostgresStore) SizeBytes(ctx context.Context) (int64, error) {
	var size int64
	err := s.pool.QueryRow(ctx, `SELECT pg_database_size(current_database())`).Scan(&size)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: database size")
	}
	return size, nil
}
