// Package report assembles the structured end-of-run report: per-stage
// record counts, error/warning tallies, completeness, and quality tiers,
// serialized as YAML next to the staged artifacts.
package report

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/RG-FIDES/square-one-coffee/internal/tabular"
	"github.com/RG-FIDES/square-one-coffee/internal/validate"
)

// FileName is the report's conventional name in the staging directory.
const FileName = "report.yaml"

// StageEntry is one stage's outcome in the run report.
type StageEntry struct {
	Stage      string           `yaml:"stage"`
	RowsIn     int              `yaml:"rows_in"`
	RowsOut    int              `yaml:"rows_out"`
	Errors     int              `yaml:"errors"`
	Warnings   int              `yaml:"warnings"`
	Infos      int              `yaml:"infos"`
	Tiers      map[string]int   `yaml:"tiers,omitempty"`
	Counters   map[string]int   `yaml:"counters,omitempty"`
	Validation *validate.Report `yaml:"validation,omitempty"`
}

// RunReport is the whole pipeline run's report.
type RunReport struct {
	RunID       string       `yaml:"run_id"`
	GeneratedAt time.Time    `yaml:"generated_at"`
	Stages      []StageEntry `yaml:"stages"`
}

// New creates an empty run report.
func New() *RunReport {
	return &RunReport{
		RunID:       uuid.New().String(),
		GeneratedAt: time.Now().UTC(),
	}
}

// AddValidation records an ingestion or discovery stage's validation outcome.
func (r *RunReport) AddValidation(stage string, rep *validate.Report) {
	entry := StageEntry{Stage: stage}
	if rep != nil {
		entry.RowsIn = rep.RowCount
		entry.RowsOut = rep.RowCount
		if rep.HasErrors() {
			entry.RowsOut = 0
		}
		entry.Errors = rep.Errors
		entry.Warnings = rep.Warnings
		entry.Infos = rep.Infos
		entry.Validation = rep

		entry.Tiers = make(map[string]int, 4)
		for tier, n := range validate.TierDistribution(rep.RowFlags) {
			entry.Tiers[string(tier)] = n
		}
	}
	r.Upsert(entry)
}

// AddCounters records a stage with free-form counters, for stages whose
// outcome is not a validation report (discovery sweep, enrichment).
func (r *RunReport) AddCounters(stage string, rowsIn, rowsOut int, counters map[string]int) {
	r.Upsert(StageEntry{
		Stage:    stage,
		RowsIn:   rowsIn,
		RowsOut:  rowsOut,
		Counters: counters,
	})
}

// Save writes the report as YAML under dir and logs a one-line summary.
func (r *RunReport) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(err, "report: create dir")
	}

	data, err := yaml.Marshal(r)
	if err != nil {
		return eris.Wrap(err, "report: marshal")
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "report: write %s", path)
	}

	zap.L().Info("run report written",
		zap.String("path", path),
		zap.Int("stages", len(r.Stages)),
	)
	return nil
}

// Load reads a previously saved report, merging new stage entries into it on
// subsequent stage runs. A missing file yields a fresh report.
func Load(dir string) (*RunReport, error) {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, eris.Wrap(err, "report: read")
	}

	var r RunReport
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, eris.Wrap(err, "report: parse")
	}
	return &r, nil
}

// Upsert replaces an existing entry for the stage or appends a new one, so
// re-running a single stage refreshes its slice of the report.
func (r *RunReport) Upsert(entry StageEntry) {
	for i := range r.Stages {
		if r.Stages[i].Stage == entry.Stage {
			r.Stages[i] = entry
			return
		}
	}
	r.Stages = append(r.Stages, entry)
}

// CompletenessTable flattens per-column completeness across stages into the
// store's completeness_metrics table.
func (r *RunReport) CompletenessTable() *tabular.Table {
	t := tabular.New([]string{"stage", "column", "total", "complete", "complete_rate"})
	for _, s := range r.Stages {
		if s.Validation == nil {
			continue
		}
		for _, cc := range s.Validation.Completeness {
			t.AppendRow([]string{
				s.Stage,
				cc.Column,
				strconv.Itoa(cc.Total),
				strconv.Itoa(cc.Complete),
				strconv.FormatFloat(cc.CompleteRate, 'f', 4, 64),
			})
		}
	}
	return t
}

// QualityTable flattens tier distributions into the store's
// quality_distribution table.
func (r *RunReport) QualityTable() *tabular.Table {
	t := tabular.New([]string{"stage", "tier", "count"})
	for _, s := range r.Stages {
		if len(s.Tiers) == 0 {
			continue
		}
		tiers := make([]string, 0, len(s.Tiers))
		for tier := range s.Tiers {
			tiers = append(tiers, tier)
		}
		sort.Strings(tiers)
		for _, tier := range tiers {
			t.AppendRow([]string{s.Stage, tier, strconv.Itoa(s.Tiers[tier])})
		}
	}
	return t
}

// MetadataTable is the store's run-metadata key/value table.
func (r *RunReport) MetadataTable() *tabular.Table {
	t := tabular.New([]string{"key", "value"})
	t.AppendRow([]string{"run_id", r.RunID})
	t.AppendRow([]string{"generated_at", r.GeneratedAt.Format(time.RFC3339)})
	t.AppendRow([]string{"stages", strconv.Itoa(len(r.Stages))})
	t.AppendRow([]string{"generated_by", "soc-etl"})
	return t
}
