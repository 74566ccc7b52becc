package directions

import "sort"

// similarityFactor bounds how much slower or longer an alternative may be,
// relative to the fastest candidate, and still be offered to the driver.
const similarityFactor = 1.2

// maxAlternatives is the most candidates ever surfaced for confirmation.
const maxAlternatives = 2

// SelectAlternatives reduces a provider's raw candidate list to a short,
// stable short-list: the fastest route plus at most one alternative that is
// within 20% of it on both duration and distance. Near-duplicate detours
// are dropped; a genuinely comparable alternative survives.
//
// The input slice is not modified. An empty input yields an empty result.
func SelectAlternatives(candidates []RouteCandidate) []RouteCandidate {
	if len(candidates) == 0 {
		return nil
	}

	sorted := make([]RouteCandidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DurationSeconds < sorted[j].DurationSeconds
	})

	baseline := sorted[0]
	similar := make([]RouteCandidate, 0, len(sorted))
	for _, candidate := range sorted {
		if float64(candidate.DurationSeconds) <= float64(baseline.DurationSeconds)*similarityFactor &&
			float64(candidate.DistanceMeters) <= float64(baseline.DistanceMeters)*similarityFactor {
			similar = append(similar, candidate)
		}
	}

	switch {
	case len(similar) >= maxAlternatives:
		return similar[:maxAlternatives]
	case len(similar) == 1:
		return similar[:1]
	default:
		// Unreachable in practice: the baseline always passes its own
		// filter. Fall back to the baseline alone.
		return sorted[:1]
	}
}
