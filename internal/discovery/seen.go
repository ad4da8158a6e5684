package discovery

// SeenSet tracks place identifiers already collected in this run. It is an
// explicit value threaded through each search call rather than package
// state, so dedup is testable and resumable.
type SeenSet map[string]struct{}

// NewSeenSet creates an empty set, optionally pre-seeded with ids.
func NewSeenSet(ids ...string) SeenSet {
	s := make(SeenSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add records an id. Returns false if it was already present.
func (s SeenSet) Add(id string) bool {
	if _, ok := s[id]; ok {
		return false
	}
	s[id] = struct{}{}
	return true
}

// Contains reports whether the id was already seen.
func (s SeenSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// IDs returns the set contents for checkpointing.
func (s SeenSet) IDs() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	return out
}
