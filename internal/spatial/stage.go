package spatial

import (
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/RG-FIDES/square-one-coffee/internal/discovery"
	"github.com/RG-FIDES/square-one-coffee/internal/model"
	"github.com/RG-FIDES/square-one-coffee/internal/opendata"
	"github.com/RG-FIDES/square-one-coffee/internal/stage"
	"github.com/RG-FIDES/square-one-coffee/internal/tabular"
)

var enrichedColumns = []string{
	"name", "address", "latitude", "longitude", "neighbourhood",
	"population", "area_km2", "density", "distance_from_downtown_km",
	"location_zone", "price_category", "quality_score", "is_soc",
	"ambiguous_assignment",
}

// RunStage loads the café, boundary, and population artifacts, enriches, and
// writes the enriched artifact. Fully recomputed every run.
func RunStage(dir stage.Dir) (Summary, error) {
	cafeTable, _, err := dir.Load(stage.Cafes)
	if err != nil {
		return Summary{}, eris.Wrap(err, "spatial: load café artifact")
	}
	cafes, err := discovery.CafesFromTable(cafeTable)
	if err != nil {
		return Summary{}, err
	}

	hoodTable, _, err := dir.Load(stage.Neighbourhoods)
	if err != nil {
		return Summary{}, eris.Wrap(err, "spatial: load boundary artifact")
	}
	hoods, err := opendata.NeighbourhoodsFromTable(hoodTable)
	if err != nil {
		return Summary{}, err
	}

	popTable, _, err := dir.Load(stage.Population)
	if err != nil {
		return Summary{}, eris.Wrap(err, "spatial: load population artifact")
	}
	pops, err := opendata.PopulationFromTable(popTable)
	if err != nil {
		return Summary{}, err
	}

	enriched, summary := NewEngine(hoods, pops).Enrich(cafes)
	if err := dir.Write(stage.Enriched, TableFromEnriched(enriched)); err != nil {
		return summary, err
	}
	return summary, nil
}

// TableFromEnriched flattens enrichment rows into the staged tabular form.
// Nulls serialize as empty cells.
func TableFromEnriched(rows []model.EnrichedCafe) *tabular.Table {
	t := tabular.New(enrichedColumns)
	for _, r := range rows {
		t.AppendRow([]string{
			r.Name,
			r.Address,
			strconv.FormatFloat(r.Latitude, 'f', -1, 64),
			strconv.FormatFloat(r.Longitude, 'f', -1, 64),
			strCell(r.Neighbourhood),
			intCell(r.Population),
			floatCell(r.AreaKM2),
			floatCell(r.Density),
			strconv.FormatFloat(r.DistanceFromDowntownKM, 'f', 4, 64),
			string(r.Zone),
			string(r.PriceCategory),
			floatCell(r.QualityScore),
			strconv.FormatBool(r.IsSOC),
			strconv.FormatBool(r.AmbiguousAssignment),
		})
	}
	return t
}

func strCell(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func intCell(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func floatCell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
