package spatial

import (
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/RG-FIDES/square-one-coffee/internal/model"
	"github.com/RG-FIDES/square-one-coffee/internal/opendata"
)

// Downtown reference point (Jasper Ave & 101 St area), for distance zoning.
const (
	DowntownLat = 53.5444
	DowntownLng = -113.4909
)

// Summary is the enrichment stage's end-of-run accounting.
type Summary struct {
	Points       int `json:"points" yaml:"points"`
	Assigned     int `json:"assigned" yaml:"assigned"`
	Unassigned   int `json:"unassigned" yaml:"unassigned"`
	Ambiguous    int `json:"ambiguous" yaml:"ambiguous"`
	PopMatched   int `json:"population_matched" yaml:"population_matched"`
	PopUnmatched int `json:"population_unmatched" yaml:"population_unmatched"`
	BadGeometry  int `json:"bad_geometry" yaml:"bad_geometry"`
}

// Engine performs point-in-polygon assignment and density derivation over
// already-materialized inputs.
type Engine struct {
	boundaries []*Boundary
	areas      map[string]float64
	population map[string]model.Population
	summary    Summary
}

// NewEngine prepares boundaries and the name-normalized population index.
// Individual geometry parse failures are logged and counted, not fatal:
// partial enrichment is acceptable output.
func NewEngine(hoods []model.Neighbourhood, pops []model.Population) *Engine {
	e := &Engine{
		areas:      make(map[string]float64),
		population: make(map[string]model.Population, len(pops)),
	}

	for _, h := range hoods {
		b, err := ParseBoundary(h.ID, h.Name, h.Geometry)
		if err != nil {
			e.summary.BadGeometry++
			zap.L().Warn("skipping unparseable boundary",
				zap.String("neighbourhood", h.Name), zap.Error(err))
			continue
		}
		e.boundaries = append(e.boundaries, b)
		e.areas[b.ID] = b.AreaKM2()
	}

	for _, p := range pops {
		e.population[opendata.NormalizeName(p.Name)] = p
	}
	return e
}

// Assign finds the containing boundary for a point. The second return counts
// how many boundaries contain the point; assignment is first-match in input
// order, and multi-containment is surfaced, never silently tie-broken.
func (e *Engine) Assign(lng, lat float64) (*Boundary, int) {
	var first *Boundary
	matches := 0
	for _, b := range e.boundaries {
		if b.Contains(lng, lat) {
			if first == nil {
				first = b
			}
			matches++
		}
	}
	return first, matches
}

// Enrich assigns every café to a neighbourhood and derives density and
// market fields. Points outside every polygon get a null assignment.
func (e *Engine) Enrich(cafes []model.Cafe) ([]model.EnrichedCafe, Summary) {
	out := make([]model.EnrichedCafe, 0, len(cafes))
	summary := e.summary
	summary.Points = len(cafes)

	for _, c := range cafes {
		row := model.EnrichedCafe{
			Name:      c.Name,
			Address:   c.Address,
			Latitude:  c.Latitude,
			Longitude: c.Longitude,
		}

		b, matches := e.Assign(c.Longitude, c.Latitude)
		if b == nil {
			summary.Unassigned++
		} else {
			summary.Assigned++
			name := b.Name
			row.Neighbourhood = &name
			if matches > 1 {
				summary.Ambiguous++
				row.AmbiguousAssignment = true
				zap.L().Warn("point contained by multiple boundaries, keeping first match",
					zap.String("cafe", c.Name),
					zap.String("assigned", b.Name),
					zap.Int("matches", matches),
				)
			}

			if area := e.areas[b.ID]; area > 0 {
				a := area
				row.AreaKM2 = &a
			}

			if pop, ok := e.population[opendata.NormalizeName(b.Name)]; ok {
				summary.PopMatched++
				total := pop.Total
				row.Population = &total
				if row.AreaKM2 != nil && *row.AreaKM2 > 0 {
					density := float64(total) / *row.AreaKM2
					row.Density = &density
				}
			} else {
				summary.PopUnmatched++
			}
		}

		deriveMarketFields(&row, c)
		out = append(out, row)
	}

	zap.L().Info("enrichment complete",
		zap.Int("points", summary.Points),
		zap.Int("assigned", summary.Assigned),
		zap.Int("unassigned", summary.Unassigned),
		zap.Int("ambiguous", summary.Ambiguous),
		zap.Int("population_matched", summary.PopMatched),
	)
	return out, summary
}

// tierAvgPrice maps the 1-4 price tier onto a representative average
// beverage price in dollars, feeding the price-category buckets.
var tierAvgPrice = map[int]float64{1: 3.00, 2: 4.50, 3: 6.00, 4: 7.50}

func deriveMarketFields(row *model.EnrichedCafe, c model.Cafe) {
	row.DistanceFromDowntownKM = DistanceKM(c.Latitude, c.Longitude, DowntownLat, DowntownLng)
	row.Zone = zoneFor(row.DistanceFromDowntownKM)

	if c.PriceTier != nil {
		if price, ok := tierAvgPrice[*c.PriceTier]; ok {
			row.PriceCategory = PriceCategoryFor(price)
		}
	}

	if c.Rating != nil {
		reviews := 0
		if c.RatingCount != nil && *c.RatingCount > 0 {
			reviews = *c.RatingCount
		}
		score := *c.Rating * math.Log(float64(reviews)+1)
		row.QualityScore = &score
	}

	row.IsSOC = strings.Contains(strings.ToLower(c.Name), "square one")
}

func zoneFor(distanceKM float64) model.LocationZone {
	switch {
	case distanceKM <= 2:
		return model.ZoneCore
	case distanceKM <= 5:
		return model.ZoneInner
	case distanceKM <= 10:
		return model.ZoneOuter
	default:
		return model.ZonePeripheral
	}
}

// PriceCategoryFor buckets an average beverage price in dollars.
func PriceCategoryFor(avgPrice float64) model.PriceCategory {
	switch {
	case avgPrice <= 3.50:
		return model.PriceBudget
	case avgPrice <= 5.00:
		return model.PriceModerate
	case avgPrice <= 6.50:
		return model.PricePremium
	default:
		return model.PriceLuxury
	}
}
