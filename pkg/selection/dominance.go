package selection

import (
	"runtime"
	"sort"

	"github.com/XiaoConstantine/evoselect/pkg/errors"
	"github.com/sourcegraph/conc/pool"
)

// Dominance is the outcome of a pairwise Pareto comparison.
type Dominance int

const (
	NonDominated Dominance = iota
	DominatesOther
	DominatedByOther
)

func (d Dominance) String() string {
	switch d {
	case DominatesOther:
		return "dominates"
	case DominatedByOther:
		return "dominated_by"
	default:
		return "non_dominated"
	}
}

// parallelSortThreshold is the population size above which the O(N^2)
// domination-count pass is spread across goroutines. The result is
// identical to the serial pass since each row is independent.
const parallelSortThreshold = 256

// Comparator performs Pareto dominance tests over normalized objectives.
// An epsilon vector relaxes dominance for noisy measurements; it is only
// consulted when the caller opted in through WithEpsilon.
type Comparator struct {
	objectives []string
	epsilon    map[string]float64
}

// NewComparator creates a comparator over the spec's objective set.
func NewComparator(spec ObjectiveSpec) *Comparator {
	return &Comparator{objectives: spec.Names()}
}

// WithEpsilon returns a comparator that applies per-objective epsilon
// tolerance (noisy-evaluation mode). Objectives absent from the vector get
// zero tolerance.
func (cmp *Comparator) WithEpsilon(epsilon map[string]float64) *Comparator {
	eps := make(map[string]float64, len(epsilon))
	for k, v := range epsilon {
		eps[k] = v
	}
	return &Comparator{objectives: cmp.objectives, epsilon: eps}
}

// Compare reports the dominance relation between a and b over normalized
// objectives. Candidates tied on every objective are non-dominated; there
// is no "equal" outcome.
func (cmp *Comparator) Compare(a, b *Candidate) Dominance {
	if cmp.dominates(a, b) {
		return DominatesOther
	}
	if cmp.dominates(b, a) {
		return DominatedByOther
	}
	return NonDominated
}

// dominates checks whether a dominates b: at least as good everywhere and
// strictly better somewhere. Under epsilon-dominance "at least as good" is
// a[o]+eps[o] >= b[o].
func (cmp *Comparator) dominates(a, b *Candidate) bool {
	strict := false
	for _, name := range cmp.objectives {
		av := a.NormalizedObjectives[name] + cmp.epsilon[name]
		bv := b.NormalizedObjectives[name]
		if av < bv {
			return false
		}
		if av > bv {
			strict = true
		}
	}
	return strict
}

// checkNormalized verifies every candidate carries normalized values for the
// comparator's objective set before any sorting work starts.
func (cmp *Comparator) checkNormalized(candidates []*Candidate) error {
	for _, c := range candidates {
		if c.NormalizedObjectives == nil {
			return errors.WithFields(
				errors.New(errors.MissingAnnotation, "candidate has no normalized objectives"),
				errors.Fields{"candidate_id": c.ID})
		}
		for _, name := range cmp.objectives {
			if _, ok := c.NormalizedObjectives[name]; !ok {
				return errors.WithFields(
					errors.New(errors.MissingAnnotation, "candidate normalization is missing an objective"),
					errors.Fields{"candidate_id": c.ID, "objective": name})
			}
		}
	}
	return nil
}

// FastNonDominatedSort ranks the population into Pareto fronts using the
// Deb et al. domination-count scheme and assigns dense ParetoRank values
// starting at 1. Fronts are returned best first. O(M*N^2), the accepted
// cost at typical population scales of tens to low hundreds.
func (cmp *Comparator) FastNonDominatedSort(candidates []*Candidate) ([][]*Candidate, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	if err := cmp.checkNormalized(candidates); err != nil {
		return nil, err
	}

	n := len(candidates)
	dominated := make([][]int, n)
	domCount := make([]int, n)

	computeRow := func(i int) {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			if cmp.dominates(candidates[i], candidates[j]) {
				dominated[i] = append(dominated[i], j)
			} else if cmp.dominates(candidates[j], candidates[i]) {
				domCount[i]++
			}
		}
	}

	if n >= parallelSortThreshold {
		p := pool.New().WithMaxGoroutines(runtime.GOMAXPROCS(0))
		for i := 0; i < n; i++ {
			i := i
			p.Go(func() { computeRow(i) })
		}
		p.Wait()
	} else {
		for i := 0; i < n; i++ {
			computeRow(i)
		}
	}

	var fronts [][]*Candidate
	var currentIndices []int
	for i := 0; i < n; i++ {
		if domCount[i] == 0 {
			candidates[i].ParetoRank = 1
			currentIndices = append(currentIndices, i)
		}
	}

	rank := 1
	for len(currentIndices) > 0 {
		front := make([]*Candidate, len(currentIndices))
		for k, idx := range currentIndices {
			front[k] = candidates[idx]
		}
		fronts = append(fronts, front)

		var nextIndices []int
		for _, idx := range currentIndices {
			for _, dominatedIdx := range dominated[idx] {
				domCount[dominatedIdx]--
				if domCount[dominatedIdx] == 0 {
					candidates[dominatedIdx].ParetoRank = rank + 1
					nextIndices = append(nextIndices, dominatedIdx)
				}
			}
		}
		rank++
		currentIndices = nextIndices
	}

	return fronts, nil
}

// AssignCrowdingDistance computes crowding distance for every member of a
// single front. The extreme members on each objective axis receive the
// symbolic infinite distance; interior members accumulate the normalized
// gap between their neighbors summed across objectives. Fronts of size
// <= 2 are all boundary.
func (cmp *Comparator) AssignCrowdingDistance(front []*Candidate) {
	if len(front) == 0 {
		return
	}
	if len(front) <= 2 {
		for _, c := range front {
			c.CrowdingDistance = InfiniteDistance()
		}
		return
	}

	for _, c := range front {
		c.CrowdingDistance = FiniteDistance(0)
	}

	sorted := make([]*Candidate, len(front))
	copy(sorted, front)

	for _, name := range cmp.objectives {
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].NormalizedObjectives[name] < sorted[j].NormalizedObjectives[name]
		})

		sorted[0].CrowdingDistance = InfiniteDistance()
		sorted[len(sorted)-1].CrowdingDistance = InfiniteDistance()

		objRange := sorted[len(sorted)-1].NormalizedObjectives[name] - sorted[0].NormalizedObjectives[name]
		if objRange == 0 {
			continue
		}

		for i := 1; i < len(sorted)-1; i++ {
			gap := sorted[i+1].NormalizedObjectives[name] - sorted[i-1].NormalizedObjectives[name]
			sorted[i].CrowdingDistance = sorted[i].CrowdingDistance.Add(gap / objRange)
		}
	}
}

// RankAndCrowd runs the full non-dominated sort and assigns crowding
// distance within every front. This is the standard annotation pass the
// selection operators expect to have run.
func (cmp *Comparator) RankAndCrowd(candidates []*Candidate) ([][]*Candidate, error) {
	fronts, err := cmp.FastNonDominatedSort(candidates)
	if err != nil {
		return nil, err
	}
	for _, front := range fronts {
		cmp.AssignCrowdingDistance(front)
	}
	return fronts, nil
}
