package opendata

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/RG-FIDES/square-one-coffee/internal/tabular"
)

// Standardizer canonicalizes one categorical column in place. Values are
// always trimmed first.
type Standardizer struct {
	Column    string
	Transform func(string) string
}

var (
	titleCaser = cases.Title(language.English)
	lowerCaser = cases.Lower(language.English)
)

// TitleCase canonicalizes a column to title case, as used for neighbourhood
// names across the civic datasets.
func TitleCase(column string) Standardizer {
	return Standardizer{Column: column, Transform: titleCaser.String}
}

// LowerCase canonicalizes a column to lower case, for category vocabularies.
func LowerCase(column string) Standardizer {
	return Standardizer{Column: column, Transform: lowerCaser.String}
}

// ApplyStandardizers rewrites the configured columns. Unknown columns are
// skipped; the rules layer already reported them if they were required.
func ApplyStandardizers(t *tabular.Table, stds []Standardizer) {
	for _, std := range stds {
		if t.ColIndex(std.Column) < 0 {
			continue
		}
		for i := 0; i < t.NumRows(); i++ {
			v := strings.TrimSpace(t.Value(i, std.Column))
			if v == "" {
				continue
			}
			t.SetValue(i, std.Column, std.Transform(v))
		}
	}
}

// NormalizeName is the join-key normalization shared by the population match:
// case- and whitespace-insensitive.
func NormalizeName(name string) string {
	return strings.ToUpper(strings.Join(strings.Fields(name), " "))
}
