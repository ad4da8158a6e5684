package validate

// Tier is the coarse quality bucket assigned to a record.
type Tier string

const (
	TierExcellent  Tier = "excellent"
	TierGood       Tier = "good"
	TierAcceptable Tier = "acceptable"
	TierPoor       Tier = "poor"
)

// Score converts a triggered-flag count into a 0-100 quality score.
// Each flag costs 10 points.
func Score(flags int) int {
	s := 100 - 10*flags
	if s < 0 {
		s = 0
	}
	return s
}

// TierFor buckets a flag count. Monotonic: more flags never yields a higher
// tier.
func TierFor(flags int) Tier {
	switch s := Score(flags); {
	case s >= 90:
		return TierExcellent
	case s >= 70:
		return TierGood
	case s >= 50:
		return TierAcceptable
	default:
		return TierPoor
	}
}

// TierDistribution counts records per tier given per-row flag counts.
func TierDistribution(rowFlags []int) map[Tier]int {
	dist := make(map[Tier]int, 4)
	for _, flags := range rowFlags {
		dist[TierFor(flags)]++
	}
	return dist
}
