package spatial

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RG-FIDES/square-one-coffee/internal/model"
)

// squareGeoJSON builds a closed square ring from (lng, lat) spanning d
// degrees on each side.
func squareGeoJSON(lng, lat, d float64) string {
	return fmt.Sprintf(
		`{"type":"Polygon","coordinates":[[[%f,%f],[%f,%f],[%f,%f],[%f,%f],[%f,%f]]]}`,
		lng, lat, lng+d, lat, lng+d, lat+d, lng, lat+d, lng, lat,
	)
}

func TestParseBoundary_RejectsNonPolygonal(t *testing.T) {
	_, err := ParseBoundary("1", "Point", `{"type":"Point","coordinates":[1,2]}`)
	assert.Error(t, err)

	_, err = ParseBoundary("1", "Bad", `not json`)
	assert.Error(t, err)
}

func TestBoundaryContains(t *testing.T) {
	b, err := ParseBoundary("1090", "Oliver", squareGeoJSON(-113.52, 53.53, 0.02))
	require.NoError(t, err)

	assert.True(t, b.Contains(-113.51, 53.54))
	assert.False(t, b.Contains(-113.49, 53.54))
	assert.False(t, b.Contains(-113.51, 53.56))
}

func TestBoundaryContains_Hole(t *testing.T) {
	// A ring with a hole in its middle: points in the hole are outside.
	geoJSON := `{"type":"Polygon","coordinates":[
		[[-113.52,53.53],[-113.48,53.53],[-113.48,53.57],[-113.52,53.57],[-113.52,53.53]],
		[[-113.51,53.54],[-113.49,53.54],[-113.49,53.56],[-113.51,53.56],[-113.51,53.54]]
	]}`
	b, err := ParseBoundary("1", "Donut", geoJSON)
	require.NoError(t, err)

	assert.False(t, b.Contains(-113.50, 53.55), "hole interior")
	assert.True(t, b.Contains(-113.515, 53.535), "between rings")
}

func TestAreaKM2_KnownSquare(t *testing.T) {
	// A square spanning d degrees at latitude 53.54 has planar area
	// d*111 * d*111*cos(lat) square kilometers.
	const d = 0.02
	b, err := ParseBoundary("1", "Square", squareGeoJSON(-113.50, 53.53, d))
	require.NoError(t, err)

	expected := d * 111 * d * 111 * math.Cos((53.53+d/2)*math.Pi/180)
	assert.InDelta(t, expected, b.AreaKM2(), expected*0.001)
}

func TestEnrich_DensityScenario(t *testing.T) {
	// Polygon sized for 2.0 square kilometers and population 5000 yields
	// density 2500 per square kilometer.
	lat := 53.53
	d := math.Sqrt(2.0/math.Cos(lat*math.Pi/180)) / 111
	hood := model.Neighbourhood{ID: "1", Name: "Oliver", Geometry: squareGeoJSON(-113.50, lat, d)}
	pop := model.Population{Name: "OLIVER", Total: 5000}

	engine := NewEngine([]model.Neighbourhood{hood}, []model.Population{pop})
	rows, summary := engine.Enrich([]model.Cafe{
		{Name: "Inside Cafe", Latitude: lat + d/2, Longitude: -113.50 + d/2},
	})
	require.Len(t, rows, 1)
	assert.Equal(t, 1, summary.Assigned)
	assert.Equal(t, 1, summary.PopMatched)

	row := rows[0]
	require.NotNil(t, row.Neighbourhood)
	assert.Equal(t, "Oliver", *row.Neighbourhood)
	require.NotNil(t, row.AreaKM2)
	assert.InDelta(t, 2.0, *row.AreaKM2, 0.01)
	require.NotNil(t, row.Density)
	assert.InDelta(t, 2500.0, *row.Density, 15)
}

func TestEnrich_OutsideEveryPolygonYieldsNulls(t *testing.T) {
	hood := model.Neighbourhood{ID: "1", Name: "Oliver", Geometry: squareGeoJSON(-113.52, 53.53, 0.02)}
	engine := NewEngine([]model.Neighbourhood{hood}, nil)

	rows, summary := engine.Enrich([]model.Cafe{
		{Name: "River Valley Kiosk", Latitude: 53.40, Longitude: -113.40},
	})
	require.Len(t, rows, 1)
	assert.Equal(t, 1, summary.Unassigned)
	assert.Nil(t, rows[0].Neighbourhood)
	assert.Nil(t, rows[0].Population)
	assert.Nil(t, rows[0].AreaKM2)
	assert.Nil(t, rows[0].Density)
}

func TestEnrich_NameJoinIsCaseAndWhitespaceInsensitive(t *testing.T) {
	hood := model.Neighbourhood{ID: "1", Name: " Oliver ", Geometry: squareGeoJSON(-113.52, 53.53, 0.02)}
	pop := model.Population{Name: "OLIVER", Total: 12000}

	engine := NewEngine([]model.Neighbourhood{hood}, []model.Population{pop})
	rows, _ := engine.Enrich([]model.Cafe{
		{Name: "Inside Cafe", Latitude: 53.54, Longitude: -113.51},
	})
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].Population)
	assert.Equal(t, 12000, *rows[0].Population)
}

func TestEnrich_UnmatchedNameYieldsNullPopulation(t *testing.T) {
	hood := model.Neighbourhood{ID: "1", Name: "Oliver", Geometry: squareGeoJSON(-113.52, 53.53, 0.02)}
	pop := model.Population{Name: "Strathcona", Total: 9000}

	engine := NewEngine([]model.Neighbourhood{hood}, []model.Population{pop})
	rows, summary := engine.Enrich([]model.Cafe{
		{Name: "Inside Cafe", Latitude: 53.54, Longitude: -113.51},
	})
	require.Len(t, rows, 1)
	assert.Equal(t, 1, summary.PopUnmatched)
	assert.Nil(t, rows[0].Population)
	assert.Nil(t, rows[0].Density)
	assert.NotNil(t, rows[0].AreaKM2)
}

func TestEnrich_OverlapFlaggedNotTieBroken(t *testing.T) {
	// Two overlapping squares: the point sits in both, assignment stays
	// first-match in input order and the row is flagged.
	a := model.Neighbourhood{ID: "1", Name: "First", Geometry: squareGeoJSON(-113.52, 53.53, 0.02)}
	b := model.Neighbourhood{ID: "2", Name: "Second", Geometry: squareGeoJSON(-113.53, 53.53, 0.02)}

	engine := NewEngine([]model.Neighbourhood{a, b}, nil)
	rows, summary := engine.Enrich([]model.Cafe{
		{Name: "Overlap Cafe", Latitude: 53.54, Longitude: -113.515},
	})
	require.Len(t, rows, 1)
	assert.Equal(t, 1, summary.Ambiguous)
	assert.True(t, rows[0].AmbiguousAssignment)
	require.NotNil(t, rows[0].Neighbourhood)
	assert.Equal(t, "First", *rows[0].Neighbourhood)
}

func TestEnrich_BadGeometrySkippedNotFatal(t *testing.T) {
	bad := model.Neighbourhood{ID: "1", Name: "Broken", Geometry: "{"}
	good := model.Neighbourhood{ID: "2", Name: "Oliver", Geometry: squareGeoJSON(-113.52, 53.53, 0.02)}

	engine := NewEngine([]model.Neighbourhood{bad, good}, nil)
	rows, summary := engine.Enrich([]model.Cafe{
		{Name: "Inside Cafe", Latitude: 53.54, Longitude: -113.51},
	})
	assert.Equal(t, 1, summary.BadGeometry)
	require.NotNil(t, rows[0].Neighbourhood)
	assert.Equal(t, "Oliver", *rows[0].Neighbourhood)
}

func TestDeriveMarketFields(t *testing.T) {
	rating := 4.0
	reviews := 99
	tier := 1

	engine := NewEngine(nil, nil)
	rows, _ := engine.Enrich([]model.Cafe{
		{
			Name:        "Square One Coffee - Oliver",
			Latitude:    DowntownLat,
			Longitude:   DowntownLng,
			Rating:      &rating,
			RatingCount: &reviews,
			PriceTier:   &tier,
		},
		{Name: "Far Out Beans", Latitude: 53.70, Longitude: -113.30},
	})
	require.Len(t, rows, 2)

	soc := rows[0]
	assert.True(t, soc.IsSOC)
	assert.InDelta(t, 0, soc.DistanceFromDowntownKM, 1e-9)
	assert.Equal(t, model.ZoneCore, soc.Zone)
	assert.Equal(t, model.PriceBudget, soc.PriceCategory)
	require.NotNil(t, soc.QualityScore)
	assert.InDelta(t, 4.0*math.Log(100), *soc.QualityScore, 1e-9)

	far := rows[1]
	assert.False(t, far.IsSOC)
	assert.Equal(t, model.ZonePeripheral, far.Zone)
	assert.Empty(t, far.PriceCategory)
	assert.Nil(t, far.QualityScore)
}

func TestZoneAndPriceBuckets(t *testing.T) {
	assert.Equal(t, model.ZoneCore, zoneFor(2.0))
	assert.Equal(t, model.ZoneInner, zoneFor(4.9))
	assert.Equal(t, model.ZoneOuter, zoneFor(10.0))
	assert.Equal(t, model.ZonePeripheral, zoneFor(10.1))

	assert.Equal(t, model.PriceBudget, PriceCategoryFor(3.50))
	assert.Equal(t, model.PriceModerate, PriceCategoryFor(4.99))
	assert.Equal(t, model.PricePremium, PriceCategoryFor(6.50))
	assert.Equal(t, model.PriceLuxury, PriceCategoryFor(6.51))
}
