package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RG-FIDES/square-one-coffee/internal/stage"
	"github.com/RG-FIDES/square-one-coffee/internal/tabular"
)

func stageTable(t *testing.T, dir stage.Dir, name string, rows int) {
	t.Helper()
	tbl := tabular.New([]string{"id", "value"})
	for i := 0; i < rows; i++ {
		tbl.AppendRow([]string{string(rune('a' + i)), "v"})
	}
	require.NoError(t, dir.Write(name, tbl))
}

func TestConsolidate_SkipsMissingArtifacts(t *testing.T) {
	dir := stage.Dir{Root: t.TempDir()}
	stageTable(t, dir, stage.Cafes, 3)
	stageTable(t, dir, stage.Population, 2)
	// No boundary artifact staged: the store misses only that table.

	s := newTestSQLite(t)
	summary, err := NewConsolidator(dir, s).Run(context.Background())
	require.NoError(t, err)

	assert.Contains(t, summary.Skipped, stage.Neighbourhoods)
	assert.NotContains(t, summary.Skipped, stage.Cafes)

	ctx := context.Background()
	ok, _ := s.HasTable(ctx, stage.Neighbourhoods)
	assert.False(t, ok)
	ok, _ = s.HasTable(ctx, stage.Cafes)
	assert.True(t, ok)

	n, err := s.RowCount(ctx, stage.Cafes)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 5, summary.TotalRows)
}

func TestConsolidate_Idempotent(t *testing.T) {
	dir := stage.Dir{Root: t.TempDir()}
	stageTable(t, dir, stage.Cafes, 4)

	s := newTestSQLite(t)
	c := NewConsolidator(dir, s)

	first, err := c.Run(context.Background())
	require.NoError(t, err)
	second, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.Tables, second.Tables)
	assert.Equal(t, first.TotalRows, second.TotalRows)

	n, err := s.RowCount(context.Background(), stage.Cafes)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestConsolidate_ExtraTables(t *testing.T) {
	dir := stage.Dir{Root: t.TempDir()}
	stageTable(t, dir, stage.Cafes, 1)

	meta := tabular.New([]string{"key", "value"})
	meta.AppendRow([]string{"generated_by", "soc-etl"})

	s := newTestSQLite(t)
	summary, err := NewConsolidator(dir, s).Run(context.Background(), NamedTable{Name: "metadata", Table: meta})
	require.NoError(t, err)

	ok, _ := s.HasTable(context.Background(), "metadata")
	assert.True(t, ok)
	assert.Len(t, summary.Tables, 2)
}
