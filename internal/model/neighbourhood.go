package model

// Neighbourhood is an administrative boundary polygon. Geometry carries the
// boundary rings as a GeoJSON Polygon or MultiPolygon in lon/lat (EPSG:4326);
// area is always derived from the rings, never ingested.
type Neighbourhood struct {
	ID          string `json:"neighbourhood_id" db:"neighbourhood_id"`
	Name        string `json:"name" db:"name"`
	Geometry    string `json:"geometry" db:"geometry"`
	Description string `json:"description,omitempty" db:"description"`
}

// Population is one neighbourhood's census count. Name is the join key
// against Neighbourhood because the two civic datasets do not share stable
// identifiers; matching is case- and whitespace-insensitive.
type Population struct {
	NeighbourhoodID string `json:"neighbourhood_id" db:"neighbourhood_id"`
	Name            string `json:"name" db:"name"`
	Total           int    `json:"total" db:"total"`
	Ward            string `json:"ward" db:"ward"`
}
