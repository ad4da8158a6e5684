package opendata

import (
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/RG-FIDES/square-one-coffee/internal/model"
	"github.com/RG-FIDES/square-one-coffee/internal/tabular"
)

// NeighbourhoodsFromTable converts the staged boundary table into typed
// records. Features without geometry are skipped with an error: a boundary
// record is useless without its rings.
func NeighbourhoodsFromTable(t *tabular.Table) ([]model.Neighbourhood, error) {
	for _, col := range []string{"neighbourhood_id", "name", "geometry"} {
		if t.ColIndex(col) < 0 {
			return nil, eris.Errorf("opendata: boundary table missing column %q", col)
		}
	}

	out := make([]model.Neighbourhood, 0, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		n := model.Neighbourhood{
			ID:          t.Value(i, "neighbourhood_id"),
			Name:        t.Value(i, "name"),
			Geometry:    t.Value(i, "geometry"),
			Description: t.Value(i, "description"),
		}
		if n.Geometry == "" {
			return nil, eris.Errorf("opendata: boundary row %d (%s) has no geometry", i, n.Name)
		}
		out = append(out, n)
	}
	return out, nil
}

// TableFromNeighbourhoods builds the staged boundary table from typed
// records, for boundary sources that bypass the endpoint (shapefile loads).
func TableFromNeighbourhoods(hoods []model.Neighbourhood) *tabular.Table {
	t := tabular.New([]string{"neighbourhood_id", "name", "description", "geometry"})
	for _, n := range hoods {
		t.AppendRow([]string{n.ID, n.Name, n.Description, n.Geometry})
	}
	return t
}

// PopulationFromTable converts the staged population table into typed
// records. Rows with an unparseable count are skipped; the validation stage
// already flagged them.
func PopulationFromTable(t *tabular.Table) ([]model.Population, error) {
	for _, col := range []string{"neighbourhood_name", "population"} {
		if t.ColIndex(col) < 0 {
			return nil, eris.Errorf("opendata: population table missing column %q", col)
		}
	}

	out := make([]model.Population, 0, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		total, err := strconv.Atoi(t.Value(i, "population"))
		if err != nil || total < 0 {
			continue
		}
		out = append(out, model.Population{
			NeighbourhoodID: t.Value(i, "neighbourhood_number"),
			Name:            t.Value(i, "neighbourhood_name"),
			Total:           total,
			Ward:            t.Value(i, "ward"),
		})
	}
	return out, nil
}
