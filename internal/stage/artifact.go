// Package stage manages durable per-stage artifacts. Every pipeline stage
// writes its output table to one conventional location in two forms: a
// canonical CSV and a gob-encoded binary equivalent. Consumers prefer the
// CSV and fall back to the gob when the CSV is absent.
package stage

import (
	"encoding/gob"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/RG-FIDES/square-one-coffee/internal/tabular"
)

// Stage names double as table names in the consolidated store. They are a
// stability contract with downstream report consumers.
const (
	Cafes          = "cafes"
	PropertyValues = "property_assessments"
	TransitStops   = "transit_stops"
	TrafficVolumes = "traffic_volumes"
	Neighbourhoods = "neighbourhoods"
	Population     = "population"
	Enriched       = "cafes_enriched"
)

// All lists every stage in consolidation order.
func All() []string {
	return []string{
		Cafes,
		PropertyValues,
		TransitStops,
		TrafficVolumes,
		Neighbourhoods,
		Population,
		Enriched,
	}
}

// Format identifies which artifact form was loaded.
type Format string

const (
	FormatCSV Format = "csv"
	FormatGob Format = "gob"
)

// Dir is the staged-artifact directory.
type Dir struct {
	Root string
}

// CSVPath returns the canonical CSV path for a stage.
func (d Dir) CSVPath(stage string) string {
	return filepath.Join(d.Root, stage+".csv")
}

// GobPath returns the binary fallback path for a stage.
func (d Dir) GobPath(stage string) string {
	return filepath.Join(d.Root, stage+".gob")
}

// Write persists the table under the stage's conventional paths, both forms.
// Artifacts are immutable per run: an existing artifact is overwritten whole.
func (d Dir) Write(stage string, t *tabular.Table) error {
	if err := os.MkdirAll(d.Root, 0o755); err != nil {
		return eris.Wrap(err, "stage: create staging dir")
	}

	csvFile, err := os.Create(d.CSVPath(stage))
	if err != nil {
		return eris.Wrapf(err, "stage: create %s csv", stage)
	}
	defer csvFile.Close() //nolint:errcheck
	if err := t.WriteCSV(csvFile); err != nil {
		return eris.Wrapf(err, "stage: write %s csv", stage)
	}

	gobFile, err := os.Create(d.GobPath(stage))
	if err != nil {
		return eris.Wrapf(err, "stage: create %s gob", stage)
	}
	defer gobFile.Close() //nolint:errcheck
	if err := gob.NewEncoder(gobFile).Encode(t); err != nil {
		return eris.Wrapf(err, "stage: encode %s gob", stage)
	}

	zap.L().Info("staged artifact written",
		zap.String("stage", stage),
		zap.Int("rows", t.NumRows()),
		zap.String("path", d.CSVPath(stage)),
	)
	return nil
}

// Load reads a stage artifact, preferring the CSV form. Returns os.ErrNotExist
// (wrapped) when neither form is present.
func (d Dir) Load(stage string) (*tabular.Table, Format, error) {
	if f, err := os.Open(d.CSVPath(stage)); err == nil {
		defer f.Close() //nolint:errcheck
		t, err := tabular.ReadCSV(f)
		if err != nil {
			return nil, FormatCSV, eris.Wrapf(err, "stage: parse %s csv", stage)
		}
		return t, FormatCSV, nil
	}

	if f, err := os.Open(d.GobPath(stage)); err == nil {
		defer f.Close() //nolint:errcheck
		var t tabular.Table
		if err := gob.NewDecoder(f).Decode(&t); err != nil {
			return nil, FormatGob, eris.Wrapf(err, "stage: decode %s gob", stage)
		}
		return &t, FormatGob, nil
	}

	return nil, "", eris.Wrapf(os.ErrNotExist, "stage: no artifact for %s under %s", stage, d.Root)
}

// Exists reports whether any artifact form is present for the stage.
func (d Dir) Exists(stage string) bool {
	if _, err := os.Stat(d.CSVPath(stage)); err == nil {
		return true
	}
	_, err := os.Stat(d.GobPath(stage))
	return err == nil
}
