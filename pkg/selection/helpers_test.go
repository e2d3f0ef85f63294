package selection

// Shared fixtures for the selection tests.

// twoObjectiveSpec is the workhorse spec: both objectives already point
// "up" so normalized values can be written directly in tests.
func twoObjectiveSpec() ObjectiveSpec {
	return ObjectiveSpec{
		"accuracy":   {Direction: Maximize, Weight: 1.0},
		"robustness": {Direction: Maximize, Weight: 1.0},
	}
}

func threeObjectiveSpec() ObjectiveSpec {
	return ObjectiveSpec{
		"accuracy":   {Direction: Maximize, Weight: 1.0},
		"robustness": {Direction: Maximize, Weight: 1.0},
		"cost":       {Direction: Minimize, Weight: 1.0},
	}
}

// normCandidate builds a candidate with normalized objectives filled in
// directly, bypassing the evaluator.
func normCandidate(id string, norm map[string]float64) *Candidate {
	return &Candidate{
		ID:                   id,
		Objectives:           norm,
		NormalizedObjectives: norm,
	}
}

// rankedCandidate additionally carries rank and crowding annotations, as
// the selection operators require.
func rankedCandidate(id string, rank int, crowding Distance, norm map[string]float64) *Candidate {
	c := normCandidate(id, norm)
	c.ParetoRank = rank
	c.CrowdingDistance = crowding
	return c
}

func obj2(a, b float64) map[string]float64 {
	return map[string]float64{"accuracy": a, "robustness": b}
}
