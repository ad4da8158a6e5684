// Package discovery implements exhaustive café discovery: a lattice of
// overlapping nearby-search cells swept against the places API, with
// dedup, relevance filtering, pagination, and per-place detail fetch.
package discovery

import (
	"fmt"
	"math"

	"github.com/rotisserie/eris"
)

// KMPerDegree approximates kilometers per degree of latitude at
// mid-latitudes. Edmonton sits at ~53.5°N where this holds well enough for
// cell sizing.
const KMPerDegree = 111.0

// overlapFactor scales the search radius beyond the half-diagonal of a cell
// so adjacent circles overlap and points on cell edges cannot fall into a
// coverage gap.
const overlapFactor = 1.15

// Region is the sweep's bounding envelope in unprojected lon/lat.
type Region struct {
	LatMin float64
	LatMax float64
	LngMin float64
	LngMax float64
}

// Contains reports whether the coordinate falls inside the envelope.
func (r Region) Contains(lat, lng float64) bool {
	return lat >= r.LatMin && lat <= r.LatMax && lng >= r.LngMin && lng <= r.LngMax
}

// Valid reports whether the envelope is non-degenerate.
func (r Region) Valid() bool {
	return r.LatMax > r.LatMin && r.LngMax > r.LngMin
}

// Cell is one search center in the lattice.
type Cell struct {
	Row int     `json:"row"`
	Col int     `json:"col"`
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Key identifies a cell within a run, for checkpointing.
func (c Cell) Key() string {
	return fmt.Sprintf("%d:%d", c.Row, c.Col)
}

// GenerateCells tiles the region into a regular lattice at the given angular
// spacing, centers offset half a step from the envelope edge so the first
// and last circles still cover the corners.
func GenerateCells(region Region, spacingDeg float64) ([]Cell, error) {
	if !region.Valid() {
		return nil, eris.New("grid: degenerate region")
	}
	if spacingDeg <= 0 {
		return nil, eris.New("grid: spacing must be positive")
	}

	var cells []Cell
	row := 0
	for lat := region.LatMin + spacingDeg/2; lat < region.LatMax; lat += spacingDeg {
		col := 0
		for lng := region.LngMin + spacingDeg/2; lng < region.LngMax; lng += spacingDeg {
			cells = append(cells, Cell{Row: row, Col: col, Lat: lat, Lng: lng})
			col++
		}
		row++
	}
	return cells, nil
}

// SearchRadiusMeters derives the per-cell search radius from the spacing:
// half the cell diagonal, scaled so neighboring circles overlap.
func SearchRadiusMeters(spacingDeg float64) float64 {
	halfDiagonalKM := spacingDeg * KMPerDegree * math.Sqrt2 / 2
	return halfDiagonalKM * overlapFactor * 1000
}
