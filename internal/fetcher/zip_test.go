package fetcher

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for name, content := range entries {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return path
}

func TestExtractZIP(t *testing.T) {
	zipPath := writeTestZip(t, map[string]string{
		"boundaries.shp": "shp-bytes",
		"boundaries.dbf": "dbf-bytes",
	})

	dest := t.TempDir()
	paths, err := ExtractZIP(zipPath, dest)
	require.NoError(t, err)
	assert.Len(t, paths, 2)

	shp := FindBySuffix(paths, ".shp")
	require.NotEmpty(t, shp)
	data, err := os.ReadFile(shp)
	require.NoError(t, err)
	assert.Equal(t, "shp-bytes", string(data))
}

func TestExtractZIP_RejectsZipSlip(t *testing.T) {
	zipPath := writeTestZip(t, map[string]string{"../escape.txt": "nope"})
	_, err := ExtractZIP(zipPath, t.TempDir())
	assert.Error(t, err)
}

func TestFindBySuffix(t *testing.T) {
	paths := []string{"/tmp/a.dbf", "/tmp/b.SHP"}
	assert.Equal(t, "/tmp/b.SHP", FindBySuffix(paths, ".shp"))
	assert.Equal(t, "", FindBySuffix(paths, ".prj"))
}
