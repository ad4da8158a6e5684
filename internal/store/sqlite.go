package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/RG-FIDES/square-one-coffee/internal/tabular"
)

// SQLiteStore implements Store on a single database file via
// modernc.org/sqlite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLite opens (or creates) the store file and configures WAL mode.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
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
	return &SQLiteStore{db: db, path: path}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ReplaceTable(ctx context.Context, name string, t *tabular.Table) error {
	table := sanitizeIdent(name)
	cols := columnIdents(t.Columns)
	if len(cols) == 0 {
		return eris.Errorf("sqlite: table %s has no columns", table)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS "%s"`, table)); err != nil {
		return eris.Wrapf(err, "sqlite: drop %s", table)
	}

	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = fmt.Sprintf(`"%s" TEXT`, c)
	}
	create := fmt.Sprintf(`CREATE TABLE "%s" (%s)`, table, strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return eris.Wrapf(err, "sqlite: create %s", table)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	insert := fmt.Sprintf(`INSERT INTO "%s" VALUES (%s)`, table, placeholders)
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return eris.Wrapf(err, "sqlite: prepare insert %s", table)
	}
	defer stmt.Close() //nolint:errcheck

	args := make([]any, len(cols))
	for _, row := range t.Rows {
		for i := range cols {
			if i < len(row) {
				args[i] = row[i]
			} else {
				args[i] = ""
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return eris.Wrapf(err, "sqlite: insert into %s", table)
		}
	}

	return eris.Wrapf(tx.Commit(), "sqlite: commit %s", table)
}

func (s *SQLiteStore) HasTable(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`,
		sanitizeIdent(name),
	).Scan(&n)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: check table %s", name)
	}
	return n > 0, nil
}

func (s *SQLiteStore) RowCount(ctx context.Context, name string) (int, error) {
	var n int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM "%s"`, sanitizeIdent(name))
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, eris.Wrapf(err, "sqlite: count %s", name)
	}
	return n, nil
}

func (s *SQLiteStore) SizeBytes(_ context.Context) (int64, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: stat store file")
	}
	return info.Size(), nil
}
