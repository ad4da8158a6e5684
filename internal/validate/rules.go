// Package validate applies field-level quality rules to ingested tables.
// Rules are pure: they classify, count, and report, but never mutate input.
package validate

import (
	"strconv"
	"strings"
)

// Severity classifies a finding. Errors abort the owning stage; warnings are
// flagged and the record retained; info findings feed completeness metrics.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
	SeverityInfo    Severity = "INFO"
)

// Finding is one triggered rule on one row (Row is -1 for table-level
// findings such as a missing column).
type Finding struct {
	Severity Severity `json:"severity" yaml:"severity"`
	Rule     string   `json:"rule" yaml:"rule"`
	Column   string   `json:"column" yaml:"column"`
	Row      int      `json:"row" yaml:"row"`
	Message  string   `json:"message" yaml:"message"`
}

// RangeRule checks that a numeric column stays within [Min, Max].
// Non-numeric values are reported as warnings as well.
type RangeRule struct {
	Column string
	Min    float64
	Max    float64
}

// EnumRule checks a column against a known vocabulary. Unknown values are
// warnings, never rejections: civic vocabularies drift between releases.
type EnumRule struct {
	Column  string
	Allowed []string
}

// RuleSet is the full rule configuration for one dataset.
type RuleSet struct {
	Required []string
	Key      string
	Ranges   []RangeRule
	Enums    []EnumRule

	// Flagged columns yield a WARNING when empty, counting against the
	// row's quality tier; Optional columns yield only an INFO finding.
	Flagged  []string
	Optional []string
}

// numericValue parses a cell as float, tolerating surrounding whitespace and
// thousands separators as published by the open-data portal.
func numericValue(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (r EnumRule) allows(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, a := range r.Allowed {
		if v == strings.ToLower(a) {
			return true
		}
	}
	return false
}
