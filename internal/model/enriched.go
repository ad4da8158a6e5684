package model

// PriceCategory buckets an average beverage price.
type PriceCategory string

const (
	PriceBudget   PriceCategory = "budget"
	PriceModerate PriceCategory = "moderate"
	PricePremium  PriceCategory = "premium"
	PriceLuxury   PriceCategory = "luxury"
)

// LocationZone buckets distance from the downtown reference point.
type LocationZone string

const (
	ZoneCore       LocationZone = "core"
	ZoneInner      LocationZone = "inner"
	ZoneOuter      LocationZone = "outer"
	ZonePeripheral LocationZone = "peripheral"
)

// EnrichedCafe is the spatial-enrichment output row. Neighbourhood fields are
// nil when the point falls outside every boundary polygon; Population and
// Density are nil when the name join finds no census record or the polygon
// area is zero. Downstream consumers key rows by (Name, Address).
type EnrichedCafe struct {
	Name          string   `json:"name" db:"name"`
	Address       string   `json:"address" db:"address"`
	Latitude      float64  `json:"latitude" db:"latitude"`
	Longitude     float64  `json:"longitude" db:"longitude"`
	Neighbourhood *string  `json:"neighbourhood,omitempty" db:"neighbourhood"`
	Population    *int     `json:"population,omitempty" db:"population"`
	AreaKM2       *float64 `json:"area_km2,omitempty" db:"area_km2"`
	Density       *float64 `json:"density,omitempty" db:"density"`

	// Derived market fields.
	DistanceFromDowntownKM float64       `json:"distance_from_downtown_km" db:"distance_from_downtown_km"`
	Zone                   LocationZone  `json:"location_zone" db:"location_zone"`
	PriceCategory          PriceCategory `json:"price_category,omitempty" db:"price_category"`
	QualityScore           *float64      `json:"quality_score,omitempty" db:"quality_score"`
	IsSOC                  bool          `json:"is_soc" db:"is_soc"`
	AmbiguousAssignment    bool          `json:"ambiguous_assignment" db:"ambiguous_assignment"`
}
