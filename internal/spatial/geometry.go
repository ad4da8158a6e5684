// Package spatial assigns discovered points to containing neighbourhood
// polygons and derives area, density, and market metrics. All geometry is
// unprojected lon/lat; area uses a planar approximation scaled to km, which
// is adequate at Edmonton's extent.
package spatial

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	geojson "github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/xy"
)

// kmPerDegreeLat approximates one degree of latitude in kilometers.
const kmPerDegreeLat = 111.0

// Boundary is one neighbourhood polygon prepared for containment tests.
type Boundary struct {
	ID       string
	Name     string
	polygons []*geom.Polygon
}

// ParseBoundary decodes a GeoJSON Polygon or MultiPolygon into a Boundary.
func ParseBoundary(id, name, geoJSON string) (*Boundary, error) {
	var g geom.T
	if err := geojson.Unmarshal([]byte(geoJSON), &g); err != nil {
		return nil, eris.Wrapf(err, "spatial: parse geometry for %s", name)
	}

	b := &Boundary{ID: id, Name: name}
	switch t := g.(type) {
	case *geom.Polygon:
		b.polygons = append(b.polygons, t)
	case *geom.MultiPolygon:
		for i := 0; i < t.NumPolygons(); i++ {
			b.polygons = append(b.polygons, t.Polygon(i))
		}
	default:
		return nil, eris.Errorf("spatial: geometry for %s is %T, want polygonal", name, g)
	}
	if len(b.polygons) == 0 {
		return nil, eris.Errorf("spatial: geometry for %s has no rings", name)
	}
	return b, nil
}

// Contains tests strict point-in-polygon containment: inside the exterior
// ring and outside every hole, for any of the boundary's polygons.
func (b *Boundary) Contains(lng, lat float64) bool {
	p := geom.Coord{lng, lat}
	for _, poly := range b.polygons {
		if poly.NumLinearRings() == 0 {
			continue
		}
		if !xy.IsPointInRing(poly.Layout(), p, poly.LinearRing(0).FlatCoords()) {
			continue
		}
		inHole := false
		for i := 1; i < poly.NumLinearRings(); i++ {
			if xy.IsPointInRing(poly.Layout(), p, poly.LinearRing(i).FlatCoords()) {
				inHole = true
				break
			}
		}
		if !inHole {
			return true
		}
	}
	return false
}

// AreaKM2 computes the planar-approximation area in square kilometers:
// degree-space area scaled by km-per-degree in each axis, with longitude
// corrected by the cosine of the polygon's mean latitude.
func (b *Boundary) AreaKM2() float64 {
	var total float64
	for _, poly := range b.polygons {
		areaDeg := poly.Area()
		if areaDeg <= 0 {
			continue
		}
		midLat := meanLatitude(poly)
		total += areaDeg * kmPerDegreeLat * kmPerDegreeLat * math.Cos(midLat*math.Pi/180)
	}
	return total
}

func meanLatitude(poly *geom.Polygon) float64 {
	if poly.NumLinearRings() == 0 {
		return 0
	}
	coords := poly.LinearRing(0).FlatCoords()
	stride := poly.Stride()
	if stride < 2 || len(coords) < stride {
		return 0
	}
	var sum float64
	n := 0
	for i := 0; i+1 < len(coords); i += stride {
		sum += coords[i+1]
		n++
	}
	return sum / float64(n)
}

// DistanceKM is the planar distance between two lon/lat points, longitude
// scaled by the cosine of the mean latitude.
func DistanceKM(lat1, lng1, lat2, lng2 float64) float64 {
	midLat := (lat1 + lat2) / 2 * math.Pi / 180
	dLat := (lat2 - lat1) * kmPerDegreeLat
	dLng := (lng2 - lng1) * kmPerDegreeLat * math.Cos(midLat)
	return math.Sqrt(dLat*dLat + dLng*dLng)
}
