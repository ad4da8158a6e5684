package spatial

import (
	"path/filepath"
	"testing"

	shp "github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBoundaryShapefile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hoods.shp")

	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)

	fields := []shp.Field{
		shp.StringField("number", 16),
		shp.StringField("name", 64),
	}
	w.SetFields(fields)

	square := &shp.Polygon{
		NumParts:  1,
		NumPoints: 5,
		Parts:     []int32{0},
		Points: []shp.Point{
			{X: -113.52, Y: 53.53},
			{X: -113.50, Y: 53.53},
			{X: -113.50, Y: 53.55},
			{X: -113.52, Y: 53.55},
			{X: -113.52, Y: 53.53},
		},
	}
	w.Write(square)
	w.WriteAttribute(0, 0, "1090")
	w.WriteAttribute(0, 1, "Oliver")

	w.Close()
	return path
}

func TestLoadShapefile(t *testing.T) {
	path := writeBoundaryShapefile(t)

	hoods, err := LoadShapefile(path, ShapefileOptions{IDField: "number", NameField: "name"})
	require.NoError(t, err)
	require.Len(t, hoods, 1)
	assert.Equal(t, "1090", hoods[0].ID)
	assert.Equal(t, "Oliver", hoods[0].Name)

	// Re-encoded geometry behaves identically to an endpoint-sourced one.
	b, err := ParseBoundary(hoods[0].ID, hoods[0].Name, hoods[0].Geometry)
	require.NoError(t, err)
	assert.True(t, b.Contains(-113.51, 53.54))
	assert.False(t, b.Contains(-113.49, 53.54))
}

func TestLoadShapefile_MissingFile(t *testing.T) {
	_, err := LoadShapefile(filepath.Join(t.TempDir(), "absent.shp"), ShapefileOptions{})
	assert.Error(t, err)
}
