package stage

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RG-FIDES/square-one-coffee/internal/tabular"
)

func testTable() *tabular.Table {
	t := tabular.New([]string{"place_id", "name"})
	t.AppendRow([]string{"p1", "Square One Coffee - Oliver"})
	t.AppendRow([]string{"p2", "Brew Central"})
	return t
}

func TestWriteAndLoad_PrefersCSV(t *testing.T) {
	dir := Dir{Root: t.TempDir()}
	require.NoError(t, dir.Write(Cafes, testTable()))

	loaded, format, err := dir.Load(Cafes)
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, format)
	assert.Equal(t, 2, loaded.NumRows())
	assert.Equal(t, "Brew Central", loaded.Value(1, "name"))
}

func TestLoad_FallsBackToGob(t *testing.T) {
	dir := Dir{Root: t.TempDir()}
	require.NoError(t, dir.Write(Population, testTable()))
	require.NoError(t, os.Remove(dir.CSVPath(Population)))

	loaded, format, err := dir.Load(Population)
	require.NoError(t, err)
	assert.Equal(t, FormatGob, format)
	assert.Equal(t, 2, loaded.NumRows())
}

func TestLoad_MissingArtifact(t *testing.T) {
	dir := Dir{Root: t.TempDir()}
	_, _, err := dir.Load(Neighbourhoods)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestExists(t *testing.T) {
	dir := Dir{Root: t.TempDir()}
	assert.False(t, dir.Exists(Cafes))
	require.NoError(t, dir.Write(Cafes, testTable()))
	assert.True(t, dir.Exists(Cafes))

	require.NoError(t, os.Remove(dir.CSVPath(Cafes)))
	assert.True(t, dir.Exists(Cafes), "gob form alone still counts")
}

func TestWrite_OverwritesPriorRun(t *testing.T) {
	dir := Dir{Root: t.TempDir()}
	require.NoError(t, dir.Write(Cafes, testTable()))

	smaller := tabular.New([]string{"place_id", "name"})
	smaller.AppendRow([]string{"p9", "Daily Lab"})
	require.NoError(t, dir.Write(Cafes, smaller))

	loaded, _, err := dir.Load(Cafes)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.NumRows())
}
