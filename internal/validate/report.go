package validate

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/RG-FIDES/square-one-coffee/internal/tabular"
)

// maxFindingsPerRule caps how many row-level findings are kept verbatim per
// rule; further hits are counted but not stored.
const maxFindingsPerRule = 25

// ColumnCompleteness tracks non-empty rates for one column.
type ColumnCompleteness struct {
	Column       string  `json:"column" yaml:"column"`
	Total        int     `json:"total" yaml:"total"`
	Complete     int     `json:"complete" yaml:"complete"`
	CompleteRate float64 `json:"complete_rate" yaml:"complete_rate"`
}

// Report is the outcome of applying a RuleSet to a table.
type Report struct {
	RunID        string               `json:"run_id" yaml:"run_id"`
	Dataset      string               `json:"dataset" yaml:"dataset"`
	GeneratedAt  time.Time            `json:"generated_at" yaml:"generated_at"`
	RowCount     int                  `json:"row_count" yaml:"row_count"`
	Errors       int                  `json:"errors" yaml:"errors"`
	Warnings     int                  `json:"warnings" yaml:"warnings"`
	Infos        int                  `json:"infos" yaml:"infos"`
	Findings     []Finding            `json:"findings,omitempty" yaml:"findings,omitempty"`
	Completeness []ColumnCompleteness `json:"completeness" yaml:"completeness"`

	// OutOfRange maps a range-rule column to the fraction of rows outside
	// its configured bounds.
	OutOfRange map[string]float64 `json:"out_of_range,omitempty" yaml:"out_of_range,omitempty"`

	// RowFlags counts WARNING-level findings per row, feeding quality tiers.
	RowFlags []int `json:"-" yaml:"-"`
}

// HasErrors reports whether any ERROR-level finding was recorded.
func (r *Report) HasErrors() bool { return r.Errors > 0 }

// AvgCompleteness is the mean complete-rate across columns, as a percentage.
func (r *Report) AvgCompleteness() float64 {
	if len(r.Completeness) == 0 {
		return 0
	}
	var sum float64
	for _, c := range r.Completeness {
		sum += c.CompleteRate
	}
	return sum / float64(len(r.Completeness)) * 100
}

// Apply runs every rule in rs against the table and produces a Report.
// It never mutates the table; callers decide whether errors are fatal.
func Apply(dataset string, t *tabular.Table, rs RuleSet) *Report {
	rep := &Report{
		RunID:       uuid.New().String(),
		Dataset:     dataset,
		GeneratedAt: time.Now().UTC(),
		RowCount:    t.NumRows(),
		OutOfRange:  make(map[string]float64),
		RowFlags:    make([]int, t.NumRows()),
	}

	checkRequired(t, rs, rep)
	checkUnique(t, rs, rep)
	checkRanges(t, rs, rep)
	checkEnums(t, rs, rep)
	checkFlagged(t, rs, rep)
	measureCompleteness(t, rs, rep)

	zap.L().Info("validation complete",
		zap.String("dataset", dataset),
		zap.Int("rows", rep.RowCount),
		zap.Int("errors", rep.Errors),
		zap.Int("warnings", rep.Warnings),
		zap.Int("infos", rep.Infos),
	)
	return rep
}

func (r *Report) add(f Finding) {
	switch f.Severity {
	case SeverityError:
		r.Errors++
	case SeverityWarning:
		r.Warnings++
		if f.Row >= 0 && f.Row < len(r.RowFlags) {
			r.RowFlags[f.Row]++
		}
	case SeverityInfo:
		r.Infos++
	}

	kept := 0
	for _, existing := range r.Findings {
		if existing.Rule == f.Rule && existing.Column == f.Column {
			kept++
		}
	}
	if kept < maxFindingsPerRule {
		r.Findings = append(r.Findings, f)
	}
}

func checkRequired(t *tabular.Table, rs RuleSet, rep *Report) {
	for _, col := range rs.Required {
		if t.ColIndex(col) < 0 {
			rep.add(Finding{
				Severity: SeverityError,
				Rule:     "required_column",
				Column:   col,
				Row:      -1,
				Message:  "required column missing from dataset",
			})
			continue
		}
		for i := 0; i < t.NumRows(); i++ {
			if strings.TrimSpace(t.Value(i, col)) == "" {
				rep.add(Finding{
					Severity: SeverityError,
					Rule:     "required_field",
					Column:   col,
					Row:      i,
					Message:  "required field is empty",
				})
			}
		}
	}
}

func checkUnique(t *tabular.Table, rs RuleSet, rep *Report) {
	if rs.Key == "" || t.ColIndex(rs.Key) < 0 {
		return
	}
	seen := make(map[string]int, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		v := strings.TrimSpace(t.Value(i, rs.Key))
		if v == "" {
			continue
		}
		if first, dup := seen[v]; dup {
			rep.add(Finding{
				Severity: SeverityError,
				Rule:     "unique_key",
				Column:   rs.Key,
				Row:      i,
				Message:  "duplicate key, first seen at row " + strconv.Itoa(first),
			})
			continue
		}
		seen[v] = i
	}
}

func checkRanges(t *tabular.Table, rs RuleSet, rep *Report) {
	for _, rule := range rs.Ranges {
		if t.ColIndex(rule.Column) < 0 {
			continue
		}
		var present, outside int
		for i := 0; i < t.NumRows(); i++ {
			raw := t.Value(i, rule.Column)
			if strings.TrimSpace(raw) == "" {
				continue
			}
			present++
			v, ok := numericValue(raw)
			if !ok || v < rule.Min || v > rule.Max {
				outside++
				rep.add(Finding{
					Severity: SeverityWarning,
					Rule:     "range",
					Column:   rule.Column,
					Row:      i,
					Message:  "value " + raw + " outside expected range",
				})
			}
		}
		if present > 0 {
			rep.OutOfRange[rule.Column] = float64(outside) / float64(present)
		}
	}
}

func checkEnums(t *tabular.Table, rs RuleSet, rep *Report) {
	for _, rule := range rs.Enums {
		if t.ColIndex(rule.Column) < 0 {
			continue
		}
		novel := make(map[string]bool)
		for i := 0; i < t.NumRows(); i++ {
			v := strings.TrimSpace(t.Value(i, rule.Column))
			if v == "" {
				continue
			}
			if !rule.allows(v) {
				rep.add(Finding{
					Severity: SeverityWarning,
					Rule:     "enum",
					Column:   rule.Column,
					Row:      i,
					Message:  "value " + v + " not in known vocabulary",
				})
				novel[strings.ToLower(v)] = true
			}
		}
		if len(novel) > 0 {
			vals := make([]string, 0, len(novel))
			for v := range novel {
				vals = append(vals, v)
			}
			zap.L().Info("vocabulary drift detected",
				zap.String("column", rule.Column),
				zap.Strings("new_values", vals),
			)
		}
	}
}

func checkFlagged(t *tabular.Table, rs RuleSet, rep *Report) {
	for _, col := range rs.Flagged {
		if t.ColIndex(col) < 0 {
			continue
		}
		for i := 0; i < t.NumRows(); i++ {
			if strings.TrimSpace(t.Value(i, col)) == "" {
				rep.add(Finding{
					Severity: SeverityWarning,
					Rule:     "missing_value",
					Column:   col,
					Row:      i,
					Message:  "expected field is empty",
				})
			}
		}
	}
}

func measureCompleteness(t *tabular.Table, rs RuleSet, rep *Report) {
	for _, col := range t.Columns {
		cc := ColumnCompleteness{Column: col, Total: t.NumRows()}
		for i := 0; i < t.NumRows(); i++ {
			if strings.TrimSpace(t.Value(i, col)) != "" {
				cc.Complete++
			}
		}
		if cc.Total > 0 {
			cc.CompleteRate = float64(cc.Complete) / float64(cc.Total)
		}
		rep.Completeness = append(rep.Completeness, cc)
	}

	// Missing optional fields are informational only.
	for _, col := range rs.Optional {
		idx := t.ColIndex(col)
		if idx < 0 {
			continue
		}
		for i := 0; i < t.NumRows(); i++ {
			if strings.TrimSpace(t.Value(i, col)) == "" {
				rep.add(Finding{
					Severity: SeverityInfo,
					Rule:     "optional_field",
					Column:   col,
					Row:      i,
					Message:  "optional field is empty",
				})
			}
		}
	}
}
