// Package model defines the typed records exchanged between pipeline stages.
// Loosely-typed wire formats (CSV rows, API payloads) are converted into these
// types exactly once, at the ingestion boundary.
package model

import "time"

// OperatingStatus is the business status reported by the places API.
type OperatingStatus string

const (
	StatusOperational       OperatingStatus = "operational"
	StatusTemporarilyClosed OperatingStatus = "temporarily_closed"
	StatusPermanentlyClosed OperatingStatus = "permanently_closed"
)

// Cafe is a point of interest discovered by the grid sweep. PlaceID is the
// external stable identifier and is unique within a discovery run.
type Cafe struct {
	PlaceID          string          `json:"place_id" db:"place_id"`
	Name             string          `json:"name" db:"name"`
	Address          string          `json:"address,omitempty" db:"address"`
	Latitude         float64         `json:"latitude" db:"latitude"`
	Longitude        float64         `json:"longitude" db:"longitude"`
	Types            []string        `json:"types,omitempty" db:"types"`
	Rating           *float64        `json:"rating,omitempty" db:"rating"`
	RatingCount      *int            `json:"rating_count,omitempty" db:"rating_count"`
	Status           OperatingStatus `json:"status" db:"status"`
	PriceTier        *int            `json:"price_tier,omitempty" db:"price_tier"`
	Phone            string          `json:"phone,omitempty" db:"phone"`
	Website          string          `json:"website,omitempty" db:"website"`
	Hours            string          `json:"hours,omitempty" db:"hours"`
	Description      string          `json:"description,omitempty" db:"description"`
	DetailFetched    bool            `json:"detail_fetched" db:"detail_fetched"`
	DiscoveredAt     time.Time       `json:"discovered_at" db:"discovered_at"`
	DiscoveryCellRow int             `json:"discovery_cell_row" db:"discovery_cell_row"`
	DiscoveryCellCol int             `json:"discovery_cell_col" db:"discovery_cell_col"`
}
