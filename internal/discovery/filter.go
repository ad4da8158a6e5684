package discovery

import (
	"strings"

	"github.com/RG-FIDES/square-one-coffee/pkg/places"
)

// FilterConfig is the heuristic relevance allow/deny configuration. The
// nearby-search API returns plenty of adjacent establishments (gas stations
// with coffee machines, hotel lobbies); the filter keeps the sweep focused
// on actual cafés.
type FilterConfig struct {
	AllowTypes   []string
	DenyTypes    []string
	NameKeywords []string
}

// DefaultFilterConfig returns the café relevance heuristics.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		AllowTypes: []string{"cafe", "coffee_shop", "bakery"},
		DenyTypes: []string{
			"gas_station",
			"convenience_store",
			"lodging",
			"grocery_or_supermarket",
			"supermarket",
			"movie_theater",
		},
		NameKeywords: []string{"coffee", "café", "cafe", "espresso", "roaster", "roastery", "brew"},
	}
}

// Relevant applies the allow/deny heuristics to one search result. Deny
// types win over everything; otherwise a place passes on an allowed type or
// a café-ish name.
func (f FilterConfig) Relevant(p places.Place) bool {
	for _, t := range p.Types {
		for _, deny := range f.DenyTypes {
			if t == deny {
				return false
			}
		}
	}

	for _, t := range p.Types {
		for _, allow := range f.AllowTypes {
			if t == allow {
				return true
			}
		}
	}

	name := strings.ToLower(p.Name)
	for _, kw := range f.NameKeywords {
		if strings.Contains(name, kw) {
			return true
		}
	}

	return false
}
