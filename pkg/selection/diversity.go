package selection

import "math"

// ObjectiveSpaceDiversity measures population spread as the mean pairwise
// Euclidean distance in normalized objective space, scaled by the space's
// diagonal so the result lands in [0,1]. One or zero candidates read as
// fully diverse.
func ObjectiveSpaceDiversity(candidates []*Candidate, objectives []string) float64 {
	n := len(candidates)
	if n < 2 {
		return 1.0
	}

	total := 0.0
	pairs := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			total += euclidean(candidates[i].NormalizedObjectives, candidates[j].NormalizedObjectives, objectives)
			pairs++
		}
	}

	diagonal := math.Sqrt(float64(len(objectives)))
	if diagonal == 0 {
		return 1.0
	}
	diversity := (total / float64(pairs)) / diagonal
	if diversity > 1 {
		return 1
	}
	return diversity
}
