// Package opendata ingests civic open datasets: one generic fetch, validate,
// standardize, stage pipeline parameterized by a per-dataset spec. Adding a
// dataset means adding a registry entry, not a new stage.
package opendata

import (
	"github.com/rotisserie/eris"

	"github.com/RG-FIDES/square-one-coffee/internal/stage"
	"github.com/RG-FIDES/square-one-coffee/internal/validate"
)

// PayloadFormat is the wire form a dataset endpoint serves.
type PayloadFormat string

const (
	FormatCSV     PayloadFormat = "csv"
	FormatGeoJSON PayloadFormat = "geojson"
	FormatXLSX    PayloadFormat = "xlsx"
)

// Edmonton's bounding envelope, used for coordinate range rules.
const (
	EdmontonLatMin = 53.40
	EdmontonLatMax = 53.70
	EdmontonLngMin = -113.70
	EdmontonLngMax = -113.30
)

// DatasetSpec parameterizes one ingestion stage end to end: where the data
// lives, how it is shaped, which rules gate it, and which categorical columns
// get standardized.
type DatasetSpec struct {
	// Name is the stage and store table name.
	Name string

	// Endpoint is the extract URL. The record limit is appended as the
	// LimitParam query parameter when set.
	Endpoint   string
	LimitParam string

	Format PayloadFormat

	// XLSX reads skip this many leading rows before the header.
	SkipRows int

	Rules       validate.RuleSet
	Standardize []Standardizer

	// Columns renames source headers to the staged schema, applied before
	// validation. Keys are source headers, values staged column names.
	Columns map[string]string
}

// Registry returns every ingested civic dataset in stage order.
func Registry() []DatasetSpec {
	return []DatasetSpec{
		{
			Name:       stage.PropertyValues,
			Endpoint:   "https://data.edmonton.ca/resource/q7d6-ambg.csv",
			LimitParam: "$limit",
			Format:     FormatCSV,
			Rules: validate.RuleSet{
				Required: []string{"account_number", "assessed_value", "neighbourhood"},
				Key:      "account_number",
				Ranges: []validate.RangeRule{
					{Column: "assessed_value", Min: 1_000, Max: 50_000_000},
					{Column: "latitude", Min: EdmontonLatMin, Max: EdmontonLatMax},
					{Column: "longitude", Min: EdmontonLngMin, Max: EdmontonLngMax},
				},
				Enums: []validate.EnumRule{
					{Column: "assessment_class", Allowed: []string{"residential", "commercial", "farmland", "other residential"}},
				},
				Optional: []string{"suite", "garage", "latitude", "longitude"},
			},
			Standardize: []Standardizer{
				TitleCase("neighbourhood"),
				LowerCase("assessment_class"),
			},
		},
		{
			Name:       stage.TransitStops,
			Endpoint:   "https://data.edmonton.ca/resource/4vt2-8zrq.csv",
			LimitParam: "$limit",
			Format:     FormatCSV,
			Rules: validate.RuleSet{
				Required: []string{"stop_id", "stop_name", "latitude", "longitude"},
				Key:      "stop_id",
				Ranges: []validate.RangeRule{
					{Column: "latitude", Min: EdmontonLatMin, Max: EdmontonLatMax},
					{Column: "longitude", Min: EdmontonLngMin, Max: EdmontonLngMax},
				},
				Enums: []validate.EnumRule{
					{Column: "service_type", Allowed: []string{"bus", "lrt", "on demand"}},
				},
				Optional: []string{"service_type"},
			},
			Standardize: []Standardizer{
				LowerCase("service_type"),
			},
		},
		{
			Name:       stage.TrafficVolumes,
			Endpoint:   "https://data.edmonton.ca/resource/brte-y4xw.csv",
			LimitParam: "$limit",
			Format:     FormatCSV,
			Rules: validate.RuleSet{
				Required: []string{"location_description", "average_daily_traffic"},
				Ranges: []validate.RangeRule{
					{Column: "average_daily_traffic", Min: 0, Max: 200_000},
					{Column: "latitude", Min: EdmontonLatMin, Max: EdmontonLatMax},
					{Column: "longitude", Min: EdmontonLngMin, Max: EdmontonLngMax},
				},
				Optional: []string{"latitude", "longitude", "count_year"},
			},
		},
		{
			Name:     stage.Neighbourhoods,
			Endpoint: "https://data.edmonton.ca/resource/jfvj-x253.geojson",
			Format:   FormatGeoJSON,
			Rules: validate.RuleSet{
				Required: []string{"neighbourhood_id", "name", "geometry"},
				Key:      "neighbourhood_id",
				Optional: []string{"description"},
			},
			Standardize: []Standardizer{
				TitleCase("name"),
			},
			Columns: map[string]string{
				"number":           "neighbourhood_id",
				"name":             "name",
				"description_text": "description",
			},
		},
		{
			Name:       stage.Population,
			Endpoint:   "https://data.edmonton.ca/resource/p5xw-tcbj.csv",
			LimitParam: "$limit",
			Format:     FormatCSV,
			Rules: validate.RuleSet{
				Required: []string{"neighbourhood_name", "population"},
				Ranges: []validate.RangeRule{
					{Column: "population", Min: 0, Max: 100_000},
				},
				Optional: []string{"ward", "neighbourhood_number"},
			},
			Standardize: []Standardizer{
				TitleCase("neighbourhood_name"),
			},
			Columns: map[string]string{
				"neighbourhood":    "neighbourhood_name",
				"total_population": "population",
			},
		},
	}
}

// Lookup finds a dataset spec by stage name.
func Lookup(name string) (DatasetSpec, error) {
	for _, spec := range Registry() {
		if spec.Name == name {
			return spec, nil
		}
	}
	return DatasetSpec{}, eris.Errorf("opendata: unknown dataset %q", name)
}
