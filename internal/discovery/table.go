package discovery

import (
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/RG-FIDES/square-one-coffee/internal/model"
	"github.com/RG-FIDES/square-one-coffee/internal/opendata"
	"github.com/RG-FIDES/square-one-coffee/internal/stage"
	"github.com/RG-FIDES/square-one-coffee/internal/tabular"
	"github.com/RG-FIDES/square-one-coffee/internal/validate"
)

var cafeColumns = []string{
	"place_id", "name", "address", "latitude", "longitude", "types",
	"rating", "rating_count", "status", "price_tier", "phone", "website",
	"hours", "description", "detail_fetched", "discovered_at",
	"discovery_cell_row", "discovery_cell_col",
}

// CafeRules is the quality rule set for the discovered-café table. A missing
// identifier or name is an error and aborts staging.
func CafeRules() validate.RuleSet {
	return validate.RuleSet{
		Required: []string{"place_id", "name", "latitude", "longitude"},
		Key:      "place_id",
		Ranges: []validate.RangeRule{
			{Column: "rating", Min: 1, Max: 5},
			{Column: "price_tier", Min: 1, Max: 4},
			{Column: "latitude", Min: opendata.EdmontonLatMin, Max: opendata.EdmontonLatMax},
			{Column: "longitude", Min: opendata.EdmontonLngMin, Max: opendata.EdmontonLngMax},
		},
		Enums: []validate.EnumRule{
			{Column: "status", Allowed: []string{
				string(model.StatusOperational),
				string(model.StatusTemporarilyClosed),
				string(model.StatusPermanentlyClosed),
			}},
		},
		Flagged:  []string{"rating", "price_tier"},
		Optional: []string{"phone", "website", "hours", "description"},
	}
}

// TableFromCafes flattens records into the staged tabular form. Null-capable
// fields serialize as empty cells.
func TableFromCafes(cafes []model.Cafe) *tabular.Table {
	t := tabular.New(cafeColumns)
	for _, c := range cafes {
		row := []string{
			c.PlaceID,
			c.Name,
			c.Address,
			strconv.FormatFloat(c.Latitude, 'f', -1, 64),
			strconv.FormatFloat(c.Longitude, 'f', -1, 64),
			strings.Join(c.Types, "|"),
			floatCell(c.Rating),
			intCell(c.RatingCount),
			string(c.Status),
			intCell(c.PriceTier),
			c.Phone,
			c.Website,
			c.Hours,
			c.Description,
			strconv.FormatBool(c.DetailFetched),
			c.DiscoveredAt.UTC().Format(time.RFC3339),
			strconv.Itoa(c.DiscoveryCellRow),
			strconv.Itoa(c.DiscoveryCellCol),
		}
		t.AppendRow(row)
	}
	return t
}

// CafesFromTable parses a staged café table back into typed records.
func CafesFromTable(t *tabular.Table) ([]model.Cafe, error) {
	for _, col := range []string{"place_id", "name", "latitude", "longitude"} {
		if t.ColIndex(col) < 0 {
			return nil, eris.Errorf("discovery: staged table missing column %q", col)
		}
	}

	cafes := make([]model.Cafe, 0, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		lat, err := strconv.ParseFloat(t.Value(i, "latitude"), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "discovery: row %d latitude", i)
		}
		lng, err := strconv.ParseFloat(t.Value(i, "longitude"), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "discovery: row %d longitude", i)
		}

		c := model.Cafe{
			PlaceID:     t.Value(i, "place_id"),
			Name:        t.Value(i, "name"),
			Address:     t.Value(i, "address"),
			Latitude:    lat,
			Longitude:   lng,
			Status:      model.OperatingStatus(t.Value(i, "status")),
			Phone:       t.Value(i, "phone"),
			Website:     t.Value(i, "website"),
			Hours:       t.Value(i, "hours"),
			Description: t.Value(i, "description"),
		}
		if types := t.Value(i, "types"); types != "" {
			c.Types = strings.Split(types, "|")
		}
		c.Rating = parseFloatCell(t.Value(i, "rating"))
		c.RatingCount = parseIntCell(t.Value(i, "rating_count"))
		c.PriceTier = parseIntCell(t.Value(i, "price_tier"))
		c.DetailFetched = t.Value(i, "detail_fetched") == "true"
		if ts, err := time.Parse(time.RFC3339, t.Value(i, "discovered_at")); err == nil {
			c.DiscoveredAt = ts
		}
		if row := parseIntCell(t.Value(i, "discovery_cell_row")); row != nil {
			c.DiscoveryCellRow = *row
		}
		if col := parseIntCell(t.Value(i, "discovery_cell_col")); col != nil {
			c.DiscoveryCellCol = *col
		}
		cafes = append(cafes, c)
	}
	return cafes, nil
}

// StageCafes validates discovered records and writes the café artifact.
// Validation errors are fatal; warnings are logged and staged anyway.
func StageCafes(dir stage.Dir, cafes []model.Cafe) (*validate.Report, error) {
	t := TableFromCafes(cafes)
	report := validate.Apply(stage.Cafes, t, CafeRules())
	if report.HasErrors() {
		return report, eris.Errorf("discovery: café table failed validation with %d errors", report.Errors)
	}
	if report.Warnings > 0 {
		zap.L().Warn("café table staged with warnings",
			zap.Int("warnings", report.Warnings),
			zap.Int("rows", report.RowCount),
		)
	}
	if err := dir.Write(stage.Cafes, t); err != nil {
		return report, err
	}
	return report, nil
}

func floatCell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func intCell(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func parseFloatCell(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseIntCell(s string) *int {
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}
