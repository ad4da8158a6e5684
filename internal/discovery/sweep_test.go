package discovery

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RG-FIDES/square-one-coffee/internal/model"
	"github.com/RG-FIDES/square-one-coffee/internal/resilience"
	"github.com/RG-FIDES/square-one-coffee/internal/stage"
	"github.com/RG-FIDES/square-one-coffee/pkg/places"
)

type mockClient struct {
	searches    []func(req places.NearbySearchRequest) (*places.SearchResponse, error)
	searchCalls int
	searchReqs  []places.NearbySearchRequest
	details     map[string]*places.PlaceDetail
	detailErrs  map[string]error
	detailCalls int
}

func (m *mockClient) NearbySearch(_ context.Context, req places.NearbySearchRequest) (*places.SearchResponse, error) {
	m.searchReqs = append(m.searchReqs, req)
	if m.searchCalls >= len(m.searches) {
		m.searchCalls++
		return &places.SearchResponse{Status: "ZERO_RESULTS"}, nil
	}
	fn := m.searches[m.searchCalls]
	m.searchCalls++
	return fn(req)
}

func (m *mockClient) Details(_ context.Context, placeID string) (*places.PlaceDetail, error) {
	m.detailCalls++
	if err, ok := m.detailErrs[placeID]; ok {
		return nil, err
	}
	if d, ok := m.details[placeID]; ok {
		return d, nil
	}
	return &places.PlaceDetail{PlaceID: placeID, FormattedAddress: "somewhere"}, nil
}

func cafePlace(id, name string, lat, lng float64) places.Place {
	p := places.Place{
		PlaceID: id,
		Name:    name,
		Types:   []string{"cafe"},
	}
	p.Geometry.Location.Lat = lat
	p.Geometry.Location.Lng = lng
	return p
}

func fastConfig(region Region, spacing float64) Config {
	return Config{
		Region:         region,
		SpacingDeg:     spacing,
		Types:          []string{"cafe"},
		RequestDelay:   time.Microsecond,
		PageTokenDelay: time.Microsecond,
		QuotaCooldown:  time.Microsecond,
	}
}

func TestGenerateCells(t *testing.T) {
	region := Region{LatMin: 53.40, LatMax: 53.70, LngMin: -113.70, LngMax: -113.30}
	cells, err := GenerateCells(region, 0.1)
	require.NoError(t, err)

	// 0.3 degrees of latitude and 0.4 of longitude at 0.1 spacing.
	assert.Len(t, cells, 3*4)
	assert.Equal(t, "0:0", cells[0].Key())
	assert.InDelta(t, 53.45, cells[0].Lat, 1e-9)
	assert.InDelta(t, -113.65, cells[0].Lng, 1e-9)
	for _, c := range cells {
		assert.True(t, region.Contains(c.Lat, c.Lng), "cell %s outside region", c.Key())
	}
}

func TestGenerateCells_Degenerate(t *testing.T) {
	_, err := GenerateCells(Region{LatMin: 1, LatMax: 1}, 0.1)
	assert.Error(t, err)

	_, err = GenerateCells(Region{LatMin: 1, LatMax: 2, LngMin: 1, LngMax: 2}, 0)
	assert.Error(t, err)
}

func TestSearchRadiusCoversCellCorners(t *testing.T) {
	spacing := 0.05
	radius := SearchRadiusMeters(spacing)
	halfDiagonalM := spacing * KMPerDegree * 1000 * 0.7072 // sqrt(2)/2, rounded up
	assert.Greater(t, radius, halfDiagonalM)
}

func TestSweep_DedupAcrossCells(t *testing.T) {
	// Single row of two cells; the same place appears in both overlapping
	// search circles and must be collected once.
	region := Region{LatMin: 53.50, LatMax: 53.55, LngMin: -113.55, LngMax: -113.45}
	dup := cafePlace("pid-dup", "Twice Roasted", 53.525, -113.50)

	client := &mockClient{
		searches: []func(places.NearbySearchRequest) (*places.SearchResponse, error){
			func(places.NearbySearchRequest) (*places.SearchResponse, error) {
				return &places.SearchResponse{Status: "OK", Results: []places.Place{dup, cafePlace("pid-a", "Corner Cafe", 53.52, -113.53)}}, nil
			},
			func(places.NearbySearchRequest) (*places.SearchResponse, error) {
				return &places.SearchResponse{Status: "OK", Results: []places.Place{dup}}, nil
			},
		},
	}

	coord := NewCoordinator(client, fastConfig(region, 0.05))
	cafes, res, err := coord.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, cafes, 2)
	assert.Equal(t, 1, res.Duplicates)
	assert.Equal(t, 3, res.RawResults)
	assert.Equal(t, 2, res.CellsSearched)
}

func TestSweep_FilterRejectsIrrelevant(t *testing.T) {
	region := Region{LatMin: 53.50, LatMax: 53.55, LngMin: -113.50, LngMax: -113.45}
	gas := places.Place{PlaceID: "pid-gas", Name: "Petro Stop", Types: []string{"gas_station", "cafe"}}
	gas.Geometry.Location.Lat, gas.Geometry.Location.Lng = 53.52, -113.47

	client := &mockClient{
		searches: []func(places.NearbySearchRequest) (*places.SearchResponse, error){
			func(places.NearbySearchRequest) (*places.SearchResponse, error) {
				return &places.SearchResponse{Status: "OK", Results: []places.Place{
					gas,
					cafePlace("pid-keep", "Transcend Coffee", 53.52, -113.47),
				}}, nil
			},
		},
	}

	coord := NewCoordinator(client, fastConfig(region, 0.05))
	cafes, res, err := coord.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, cafes, 1)
	assert.Equal(t, "pid-keep", cafes[0].PlaceID)
	assert.Equal(t, 1, res.Filtered)
}

func TestSweep_PaginationFollowsToken(t *testing.T) {
	region := Region{LatMin: 53.50, LatMax: 53.55, LngMin: -113.50, LngMax: -113.45}

	client := &mockClient{
		searches: []func(places.NearbySearchRequest) (*places.SearchResponse, error){
			func(req places.NearbySearchRequest) (*places.SearchResponse, error) {
				return &places.SearchResponse{
					Status:        "OK",
					Results:       []places.Place{cafePlace("pid-1", "Page One Cafe", 53.52, -113.47)},
					NextPageToken: "tok-next",
				}, nil
			},
			func(req places.NearbySearchRequest) (*places.SearchResponse, error) {
				return &places.SearchResponse{
					Status:  "OK",
					Results: []places.Place{cafePlace("pid-2", "Page Two Cafe", 53.53, -113.48)},
				}, nil
			},
		},
	}

	coord := NewCoordinator(client, fastConfig(region, 0.05))
	cafes, _, err := coord.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, cafes, 2)
	require.Len(t, client.searchReqs, 2)
	assert.Empty(t, client.searchReqs[0].PageToken)
	assert.Equal(t, "tok-next", client.searchReqs[1].PageToken)
	// Continuation requests carry only the token.
	assert.Empty(t, client.searchReqs[1].Type)
}

func TestSweep_QuotaRetriesOnceAfterCooldown(t *testing.T) {
	region := Region{LatMin: 53.50, LatMax: 53.55, LngMin: -113.50, LngMax: -113.45}

	client := &mockClient{
		searches: []func(places.NearbySearchRequest) (*places.SearchResponse, error){
			func(places.NearbySearchRequest) (*places.SearchResponse, error) {
				return nil, resilience.NewQuotaError(eris.New("places: daily cap"))
			},
			func(places.NearbySearchRequest) (*places.SearchResponse, error) {
				return &places.SearchResponse{Status: "OK", Results: []places.Place{cafePlace("pid-1", "Recovered Cafe", 53.52, -113.47)}}, nil
			},
		},
	}

	coord := NewCoordinator(client, fastConfig(region, 0.05))
	cafes, res, err := coord.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, cafes, 1)
	assert.Equal(t, 1, res.QuotaEvents)
	assert.Equal(t, 0, res.FailedQueries)
}

func TestSweep_PersistentQuotaSkipsQuery(t *testing.T) {
	region := Region{LatMin: 53.50, LatMax: 53.55, LngMin: -113.50, LngMax: -113.45}
	quota := func(places.NearbySearchRequest) (*places.SearchResponse, error) {
		return nil, resilience.NewQuotaError(eris.New("places: daily cap"))
	}

	client := &mockClient{
		searches: []func(places.NearbySearchRequest) (*places.SearchResponse, error){quota, quota},
	}

	coord := NewCoordinator(client, fastConfig(region, 0.05))
	cafes, res, err := coord.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, cafes)
	assert.Equal(t, 1, res.FailedQueries)
}

func TestSweep_AbortsOnTransportErrorWithNothingCollected(t *testing.T) {
	region := Region{LatMin: 53.50, LatMax: 53.55, LngMin: -113.50, LngMax: -113.45}

	client := &mockClient{
		searches: []func(places.NearbySearchRequest) (*places.SearchResponse, error){
			func(places.NearbySearchRequest) (*places.SearchResponse, error) {
				return nil, &resilience.TransientError{Err: context.DeadlineExceeded, StatusCode: 503}
			},
		},
	}

	coord := NewCoordinator(client, fastConfig(region, 0.05))
	_, _, err := coord.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no results collected")
}

func TestSweep_MissingIdentifierIsFatal(t *testing.T) {
	region := Region{LatMin: 53.50, LatMax: 53.55, LngMin: -113.50, LngMax: -113.45}

	client := &mockClient{
		searches: []func(places.NearbySearchRequest) (*places.SearchResponse, error){
			func(places.NearbySearchRequest) (*places.SearchResponse, error) {
				return &places.SearchResponse{Status: "OK", Results: []places.Place{
					cafePlace("pid-ok", "Fine Cafe", 53.52, -113.47),
					cafePlace("", "Nameless Id Cafe", 53.52, -113.47),
				}}, nil
			},
		},
	}

	coord := NewCoordinator(client, fastConfig(region, 0.05))
	_, _, err := coord.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing identifier")
}

func TestSweep_DetailFailureKeepsSummary(t *testing.T) {
	region := Region{LatMin: 53.50, LatMax: 53.55, LngMin: -113.50, LngMax: -113.45}

	client := &mockClient{
		searches: []func(places.NearbySearchRequest) (*places.SearchResponse, error){
			func(places.NearbySearchRequest) (*places.SearchResponse, error) {
				return &places.SearchResponse{Status: "OK", Results: []places.Place{
					cafePlace("pid-good", "Detailed Cafe", 53.52, -113.47),
					cafePlace("pid-bad", "Summary Only Cafe", 53.53, -113.48),
				}}, nil
			},
		},
		details: map[string]*places.PlaceDetail{
			"pid-good": {PlaceID: "pid-good", FormattedAddress: "123 Jasper Ave", Phone: "780-555-0100"},
		},
		detailErrs: map[string]error{
			"pid-bad": &resilience.TransientError{Err: context.DeadlineExceeded, StatusCode: 500},
		},
	}

	coord := NewCoordinator(client, fastConfig(region, 0.05))
	cafes, res, err := coord.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, cafes, 2)

	byID := map[string]model.Cafe{}
	for _, c := range cafes {
		byID[c.PlaceID] = c
	}
	assert.True(t, byID["pid-good"].DetailFetched)
	assert.Equal(t, "123 Jasper Ave", byID["pid-good"].Address)
	assert.False(t, byID["pid-bad"].DetailFetched)
	assert.Equal(t, "Summary Only Cafe", byID["pid-bad"].Name)
	assert.Equal(t, 1, res.DetailsFailed)
	assert.Equal(t, 1, res.DetailsOK)
}

func TestSweep_ResumeSkipsCompletedCells(t *testing.T) {
	region := Region{LatMin: 53.50, LatMax: 53.55, LngMin: -113.55, LngMax: -113.45}
	cpPath := filepath.Join(t.TempDir(), "sweep.json")

	first := &mockClient{
		searches: []func(places.NearbySearchRequest) (*places.SearchResponse, error){
			func(places.NearbySearchRequest) (*places.SearchResponse, error) {
				return &places.SearchResponse{Status: "OK", Results: []places.Place{cafePlace("pid-1", "First Cell Cafe", 53.52, -113.53)}}, nil
			},
			func(places.NearbySearchRequest) (*places.SearchResponse, error) {
				return &places.SearchResponse{Status: "OK", Results: []places.Place{cafePlace("pid-2", "Second Cell Cafe", 53.52, -113.47)}}, nil
			},
		},
	}

	cfg := fastConfig(region, 0.05)
	cfg.CheckpointPath = cpPath
	cafes, _, err := NewCoordinator(first, cfg).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, cafes, 2)

	// Second run with a fresh client: everything is checkpointed, so no
	// search requests go out and both records survive.
	second := &mockClient{}
	cafes, res, err := NewCoordinator(second, cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, cafes, 2)
	assert.Equal(t, 0, res.CellsSearched)
	assert.Equal(t, 2, res.CellsResumed)
	assert.Empty(t, second.searchReqs)
}

func TestCafeTableRoundTrip(t *testing.T) {
	rating := 4.5
	count := 120
	tier := 2
	in := []model.Cafe{
		{
			PlaceID:       "pid-1",
			Name:          "Square One Coffee",
			Address:       "10123 102 St NW",
			Latitude:      53.5444,
			Longitude:     -113.4909,
			Types:         []string{"cafe", "food"},
			Rating:        &rating,
			RatingCount:   &count,
			Status:        model.StatusOperational,
			PriceTier:     &tier,
			DetailFetched: true,
			DiscoveredAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			PlaceID:   "pid-2",
			Name:      "No Rating Cafe",
			Latitude:  53.50,
			Longitude: -113.40,
			Status:    model.StatusTemporarilyClosed,
		},
	}

	out, err := CafesFromTable(TableFromCafes(in))
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, in[0].PlaceID, out[0].PlaceID)
	assert.Equal(t, in[0].Types, out[0].Types)
	require.NotNil(t, out[0].Rating)
	assert.InDelta(t, 4.5, *out[0].Rating, 1e-9)
	assert.Equal(t, in[0].DiscoveredAt, out[0].DiscoveredAt)

	assert.Nil(t, out[1].Rating)
	assert.Nil(t, out[1].RatingCount)
	assert.Nil(t, out[1].PriceTier)
	assert.False(t, out[1].DetailFetched)
}

func TestStageCafes_MissingNameFatal(t *testing.T) {
	dir := stage.Dir{Root: t.TempDir()}
	cafes := []model.Cafe{
		{PlaceID: "pid-1", Name: "Good Cafe", Latitude: 53.5, Longitude: -113.5, Status: model.StatusOperational},
		{PlaceID: "pid-2", Latitude: 53.5, Longitude: -113.5, Status: model.StatusOperational},
	}

	report, err := StageCafes(dir, cafes)
	require.Error(t, err)
	assert.True(t, report.HasErrors())
	assert.False(t, dir.Exists(stage.Cafes))
}

func TestStageCafes_WritesArtifact(t *testing.T) {
	dir := stage.Dir{Root: t.TempDir()}
	cafes := []model.Cafe{
		{PlaceID: "pid-1", Name: "Good Cafe", Latitude: 53.5, Longitude: -113.5, Status: model.StatusOperational},
	}

	report, err := StageCafes(dir, cafes)
	require.NoError(t, err)
	assert.Equal(t, 1, report.RowCount)
	assert.True(t, dir.Exists(stage.Cafes))

	loaded, _, err := dir.Load(stage.Cafes)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.NumRows())
	assert.Equal(t, "Good Cafe", loaded.Value(0, "name"))
}
