package spatial

import (
	"strings"

	shp "github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	geojson "github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/RG-FIDES/square-one-coffee/internal/model"
)

// ShapefileOptions names the attribute fields carrying boundary identity.
type ShapefileOptions struct {
	IDField   string // default "number"
	NameField string // default "name"
	DescField string
}

// LoadShapefile reads neighbourhood boundaries from a local shapefile, the
// alternate boundary source when the GeoJSON endpoint is unavailable.
// Geometries are re-encoded as GeoJSON so downstream handling is identical.
func LoadShapefile(path string, opts ShapefileOptions) ([]model.Neighbourhood, error) {
	if opts.IDField == "" {
		opts.IDField = "number"
	}
	if opts.NameField == "" {
		opts.NameField = "name"
	}

	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "spatial: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fieldIdx := make(map[string]int)
	for i, f := range reader.Fields() {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}

	attr := func(name string) string {
		idx, ok := fieldIdx[strings.ToLower(name)]
		if !ok {
			return ""
		}
		v := strings.TrimRight(reader.Attribute(idx), "\x00")
		return strings.TrimSpace(v)
	}

	var hoods []model.Neighbourhood
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()

		poly, ok := shape.(*shp.Polygon)
		if !ok || len(poly.Points) == 0 {
			skipped++
			continue
		}

		encoded, err := encodePolygonShape(poly)
		if err != nil {
			skipped++
			continue
		}

		hoods = append(hoods, model.Neighbourhood{
			ID:          attr(opts.IDField),
			Name:        attr(opts.NameField),
			Geometry:    encoded,
			Description: attr(opts.DescField),
		})
	}

	if skipped > 0 {
		zap.L().Debug("skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	if len(hoods) == 0 {
		return nil, eris.Errorf("spatial: no polygon records in %s", path)
	}
	return hoods, nil
}

// encodePolygonShape converts a shapefile polygon record to GeoJSON. Every
// part becomes one ring of a single polygon; shapefile ring orientation
// conventions are not re-derived here since containment tests ignore winding.
func encodePolygonShape(poly *shp.Polygon) (string, error) {
	parts := make([]int, 0, len(poly.Parts)+1)
	for _, p := range poly.Parts {
		parts = append(parts, int(p))
	}
	parts = append(parts, len(poly.Points))

	rings := make([][]geom.Coord, 0, len(parts)-1)
	for i := 0; i+1 < len(parts); i++ {
		start, end := parts[i], parts[i+1]
		if end <= start {
			continue
		}
		ring := make([]geom.Coord, 0, end-start)
		for _, pt := range poly.Points[start:end] {
			ring = append(ring, geom.Coord{pt.X, pt.Y})
		}
		// Close the ring if the source left it open.
		if len(ring) > 0 && !ring[0].Equal(geom.XY, ring[len(ring)-1]) {
			ring = append(ring, ring[0])
		}
		rings = append(rings, ring)
	}
	if len(rings) == 0 {
		return "", eris.New("spatial: polygon record has no usable rings")
	}

	g := geom.NewPolygon(geom.XY)
	if _, err := g.SetCoords(rings); err != nil {
		return "", eris.Wrap(err, "spatial: build polygon coords")
	}
	encoded, err := geojson.Marshal(g)
	if err != nil {
		return "", eris.Wrap(err, "spatial: encode polygon")
	}
	return string(encoded), nil
}
