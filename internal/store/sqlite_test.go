package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RG-FIDES/square-one-coffee/internal/tabular"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "soc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func cafesTable() *tabular.Table {
	t := tabular.New([]string{"place_id", "name", "latitude"})
	t.AppendRow([]string{"pid-1", "Square One Coffee", "53.5444"})
	t.AppendRow([]string{"pid-2", "Brew Central", "53.5200"})
	return t
}

func TestSQLiteReplaceTable(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceTable(ctx, "cafes", cafesTable()))

	ok, err := s.HasTable(ctx, "cafes")
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := s.RowCount(ctx, "cafes")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	size, err := s.SizeBytes(ctx)
	require.NoError(t, err)
	assert.Greater(t, size, int64(0))
}

func TestSQLiteReplaceTable_OverwritesWhole(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceTable(ctx, "cafes", cafesTable()))

	smaller := tabular.New([]string{"place_id", "name"})
	smaller.AppendRow([]string{"pid-9", "Only One"})
	require.NoError(t, s.ReplaceTable(ctx, "cafes", smaller))

	n, err := s.RowCount(ctx, "cafes")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteReplaceTable_RaggedRowsPadded(t *testing.T) {
	s := newTestSQLite(t)

	tbl := tabular.New([]string{"a", "b", "c"})
	tbl.Rows = append(tbl.Rows, []string{"only-a"})
	require.NoError(t, s.ReplaceTable(context.Background(), "ragged", tbl))

	n, err := s.RowCount(context.Background(), "ragged")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteHasTable_Absent(t *testing.T) {
	s := newTestSQLite(t)
	ok, err := s.HasTable(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSanitizeIdent(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"cafes", "cafes"},
		{"Average Daily Traffic", "average_daily_traffic"},
		{"  Ward # ", "ward"},
		{"2024 count", "c_2024_count"},
		{"", "col"},
		{"!!!", "col"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeIdent(tt.in), tt.in)
	}
}

func TestColumnIdents_Dedup(t *testing.T) {
	got := columnIdents([]string{"Name", "name", "NAME "})
	assert.Equal(t, []string{"name", "name_2", "name_3"}, got)
}
