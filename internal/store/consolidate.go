package store

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/RG-FIDES/square-one-coffee/internal/stage"
	"github.com/RG-FIDES/square-one-coffee/internal/tabular"
)

// NamedTable is an extra table written alongside the stage tables, such as
// run metadata or quality metrics.
type NamedTable struct {
	Name  string
	Table *tabular.Table
}

// Consolidator merges every staged artifact into the store. Missing
// artifacts are skipped with a log line, never an error: the store degrades
// gracefully and consumers tolerate missing tables.
type Consolidator struct {
	dir   stage.Dir
	store Store
}

// NewConsolidator wires the staged-artifact directory to a store backend.
func NewConsolidator(dir stage.Dir, st Store) *Consolidator {
	return &Consolidator{dir: dir, store: st}
}

// Run loads each stage artifact, replaces its table, verifies the written
// row count, and returns the summary. Extras are written after the stage
// tables. Re-running on unchanged artifacts produces identical tables.
func (c *Consolidator) Run(ctx context.Context, extras ...NamedTable) (*Summary, error) {
	log := zap.L().With(zap.String("stage", "consolidate"))
	summary := &Summary{}

	for _, name := range stage.All() {
		if !c.dir.Exists(name) {
			summary.Skipped = append(summary.Skipped, name)
			log.Warn("no artifact for stage, table omitted", zap.String("table", name))
			continue
		}

		t, format, err := c.dir.Load(name)
		if err != nil {
			return summary, eris.Wrapf(err, "consolidate: load %s", name)
		}
		log.Info("loading stage artifact",
			zap.String("table", name),
			zap.String("format", string(format)),
			zap.Int("rows", t.NumRows()),
		)

		if err := c.writeVerified(ctx, name, t, summary); err != nil {
			return summary, err
		}
	}

	for _, extra := range extras {
		if extra.Table == nil {
			continue
		}
		if err := c.writeVerified(ctx, extra.Name, extra.Table, summary); err != nil {
			return summary, err
		}
	}

	if size, err := c.store.SizeBytes(ctx); err == nil {
		summary.SizeBytes = size
	}

	log.Info("consolidation complete",
		zap.Int("tables", len(summary.Tables)),
		zap.Int("total_rows", summary.TotalRows),
		zap.Strings("skipped", summary.Skipped),
		zap.Int64("size_bytes", summary.SizeBytes),
	)
	return summary, nil
}

func (c *Consolidator) writeVerified(ctx context.Context, name string, t *tabular.Table, summary *Summary) error {
	if err := c.store.ReplaceTable(ctx, name, t); err != nil {
		return err
	}

	ok, err := c.store.HasTable(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return eris.Errorf("consolidate: table %s missing after write", name)
	}

	n, err := c.store.RowCount(ctx, name)
	if err != nil {
		return err
	}
	if n != t.NumRows() {
		return eris.Errorf("consolidate: table %s has %d rows, artifact has %d", name, n, t.NumRows())
	}

	summary.Tables = append(summary.Tables, TableCount{Table: name, Rows: n})
	summary.TotalRows += n
	return nil
}
