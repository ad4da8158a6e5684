// Package store consolidates staged artifacts into one relational store,
// one table per stage, fully overwritten per run. SQLite is the default
// single-file backend; Postgres is the shared-server alternative.
package store

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/RG-FIDES/square-one-coffee/internal/tabular"
)

// TableCount is one consolidated table's verified row count.
type TableCount struct {
	Table string `json:"table" yaml:"table"`
	Rows  int    `json:"rows" yaml:"rows"`
}

/// Summary is the consolidation run's outcome: per-table verified counts,
// stages skipped for missing artifacts, and final store size.
type Summary struct {
	Tables    []TableCount `json:"tables" yaml:"tables"`
	Skipped   []string     `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	TotalRows int          `json:"total_rows" yaml:"total_rows"`
	SizeBytes int64        `json:"size_bytes" yaml:"size_bytes"`
}

// Store is the consolidation backend. Tables are always replaced whole;
// there is no append or migration path, which keeps re-runs deterministic.
type Store interface {
	// ReplaceTable drops any existing table of that name and writes the
	// given rows, all within one transaction.
	ReplaceTable(ctx context.Context, name string, t *tabular.Table) error

	// HasTable reports whether the named table exists.
	HasTable(ctx context.Context, name string) (bool, error)

	// RowCount returns the row count of the named table.
	RowCount(ctx context.Context, name string) (int, error)

	// SizeBytes returns the store's total on-disk size.
	SizeBytes(ctx context.Context) (int64, error)

	Close() error
}

var identCleaner = regexp.MustCompile(`[^a-z0-9_]+`)

// sanitizeIdent normalizes a table or column name to a safe SQL identifier.
// Civic dataset headers arrive with spaces, punctuation, and mixed case.
func sanitizeIdent(name string) string {
	s := identCleaner.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "col"
	}
	if s[0] >= '0' && s[0] <= '9' {
		s = "c_" + s
	}
	return s
}

// columnIdents sanitizes every column, deduplicating collisions.
func columnIdents(columns []string) []string {
	out := make([]string, 0, len(columns))
	seen := make(map[string]int, len(columns))
	for _, c := range columns {
		ident := sanitizeIdent(c)
		if n, dup := seen[ident]; dup {
			seen[ident] = n + 1
			ident = ident + "_" + strconv.Itoa(n+1)
		} else {
			seen[ident] = 1
		}
		out = append(out, ident)
	}
	return out
}
