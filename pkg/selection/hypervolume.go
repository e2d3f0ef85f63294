package selection

import (
	"math"
	"sort"

	"github.com/XiaoConstantine/evoselect/pkg/errors"
)

// DefaultReferenceMargin is the fraction of each objective's observed range
// subtracted below the per-objective minimum when auto-deriving a reference
// point (the nadir convention).
const DefaultReferenceMargin = 0.10

// HypervolumeCalculator computes the hypervolume indicator of a solution
// set relative to a reference point, in normalized objective space where
// every objective is maximized. Exact up to 4-5 objectives at typical
// population sizes; not intended to scale beyond that.
type HypervolumeCalculator struct {
	objectives []string
}

// NewHypervolumeCalculator creates a calculator over the spec's objectives.
func NewHypervolumeCalculator(spec ObjectiveSpec) *HypervolumeCalculator {
	return &HypervolumeCalculator{objectives: spec.Names()}
}

// AutoReference derives a reference point from the per-objective minimum
// normalized value minus margin times the observed range. A zero range
// falls back to the margin itself so the point stays strictly dominated.
func (h *HypervolumeCalculator) AutoReference(solutions []*Candidate, margin float64) map[string]float64 {
	if margin <= 0 {
		margin = DefaultReferenceMargin
	}
	ref := make(map[string]float64, len(h.objectives))
	if len(solutions) == 0 {
		for _, name := range h.objectives {
			ref[name] = 0
		}
		return ref
	}
	for _, name := range h.objectives {
		minVal := solutions[0].NormalizedObjectives[name]
		maxVal := minVal
		for _, c := range solutions[1:] {
			v := c.NormalizedObjectives[name]
			if v < minVal {
				minVal = v
			}
			if v > maxVal {
				maxVal = v
			}
		}
		delta := margin * (maxVal - minVal)
		if delta == 0 {
			delta = margin
		}
		ref[name] = minVal - delta
	}
	return ref
}

// validateReference checks that every solution dominates the reference
// point: at least as good on every objective and strictly better on at
// least one. A reference point that fails this produces meaningless
// volumes, so it is rejected up front.
func (h *HypervolumeCalculator) validateReference(solutions []*Candidate, ref map[string]float64) error {
	for _, name := range h.objectives {
		if _, ok := ref[name]; !ok {
			return errors.WithFields(
				errors.New(errors.InvalidReferencePoint, "reference point is missing an objective"),
				errors.Fields{"objective": name})
		}
	}
	for _, c := range solutions {
		strict := false
		for _, name := range h.objectives {
			v := c.NormalizedObjectives[name]
			if v < ref[name] {
				return errors.WithFields(
					errors.New(errors.InvalidReferencePoint, "reference point is not dominated by every solution"),
					errors.Fields{"candidate_id": c.ID, "objective": name, "value": v, "reference": ref[name]})
			}
			if v > ref[name] {
				strict = true
			}
		}
		if !strict {
			return errors.WithFields(
				errors.New(errors.InvalidReferencePoint, "reference point coincides with a solution"),
				errors.Fields{"candidate_id": c.ID})
		}
	}
	return nil
}

// Compute returns the hypervolume of the solution set relative to the
// reference point. 1D uses the closed form, 2D an O(N log N) sweep, and
// three or more objectives the WFG recursive decomposition.
func (h *HypervolumeCalculator) Compute(solutions []*Candidate, ref map[string]float64) (float64, error) {
	if len(solutions) == 0 {
		return 0, nil
	}
	if err := h.validateReference(solutions, ref); err != nil {
		return 0, err
	}

	points := make([][]float64, len(solutions))
	refVec := make([]float64, len(h.objectives))
	for k, name := range h.objectives {
		refVec[k] = ref[name]
	}
	for i, c := range solutions {
		p := make([]float64, len(h.objectives))
		for k, name := range h.objectives {
			p[k] = c.NormalizedObjectives[name]
		}
		points[i] = p
	}

	switch len(h.objectives) {
	case 1:
		return hv1D(points, refVec[0]), nil
	case 2:
		return hv2D(points, refVec), nil
	default:
		return wfg(points, refVec), nil
	}
}

// Contribution returns the exclusive hypervolume contribution of the
// solution with the given id: HV(S) - HV(S without it). For heavily
// overlapping sets in four or more dimensions this is a ranking-quality
// approximation, not an exact accounting.
func (h *HypervolumeCalculator) Contribution(solutions []*Candidate, id string, ref map[string]float64) (float64, error) {
	total, err := h.Compute(solutions, ref)
	if err != nil {
		return 0, err
	}
	rest := make([]*Candidate, 0, len(solutions)-1)
	found := false
	for _, c := range solutions {
		if c.ID == id {
			found = true
			continue
		}
		rest = append(rest, c)
	}
	if !found {
		return 0, errors.WithFields(
			errors.New(errors.ResourceNotFound, "solution is not in the set"),
			errors.Fields{"candidate_id": id})
	}
	without, err := h.Compute(rest, ref)
	if err != nil {
		return 0, err
	}
	return total - without, nil
}

// ImprovementRatio quantifies generation-over-generation frontier growth.
// A previous hypervolume of zero with any current growth is +Inf; two
// zeroes are no improvement.
func ImprovementRatio(current, previous float64) float64 {
	if previous == 0 {
		if current > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return (current - previous) / previous
}

func hv1D(points [][]float64, ref float64) float64 {
	best := math.Inf(-1)
	for _, p := range points {
		if p[0] > best {
			best = p[0]
		}
	}
	if best <= ref {
		return 0
	}
	return best - ref
}

// hv2D sweeps points in descending order of the first objective,
// accumulating the rectangle each point adds above the highest second
// objective already covered.
func hv2D(points [][]float64, ref []float64) float64 {
	sorted := make([][]float64, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i][0] != sorted[j][0] {
			return sorted[i][0] > sorted[j][0]
		}
		return sorted[i][1] > sorted[j][1]
	})

	hv := 0.0
	coveredY := ref[1]
	for _, p := range sorted {
		if p[1] > coveredY {
			hv += (p[0] - ref[0]) * (p[1] - coveredY)
			coveredY = p[1]
		}
	}
	return hv
}

// wfg implements the While-Bradstreet-Barone decomposition: the volume of
// the union is the sum over points of each point's exclusive volume with
// respect to the points after it.
func wfg(points [][]float64, ref []float64) float64 {
	hv := 0.0
	for i := range points {
		hv += exclusiveHV(points[i], points[i+1:], ref)
	}
	return hv
}

// exclusiveHV is the inclusive box volume of p minus the volume of the
// region the remaining points still cover after being clipped to p's box.
func exclusiveHV(p []float64, rest [][]float64, ref []float64) float64 {
	incl := 1.0
	for k := range p {
		side := p[k] - ref[k]
		if side <= 0 {
			return 0
		}
		incl *= side
	}
	if len(rest) == 0 {
		return incl
	}

	limited := limitSet(rest, p)
	return incl - wfg(limited, ref)
}

// limitSet clips every point to p's box and discards the dominated
// leftovers, which keeps the recursion shallow.
func limitSet(rest [][]float64, p []float64) [][]float64 {
	clipped := make([][]float64, len(rest))
	for i, q := range rest {
		c := make([]float64, len(q))
		for k := range q {
			c[k] = math.Min(q[k], p[k])
		}
		clipped[i] = c
	}

	// Drop points dominated within the clipped set.
	keep := make([][]float64, 0, len(clipped))
	for i, a := range clipped {
		dominated := false
		for j, b := range clipped {
			if i == j {
				continue
			}
			if vectorDominatesOrEqual(b, a) && !vectorDominatesOrEqual(a, b) {
				dominated = true
				break
			}
			// Exact duplicates: keep only the first occurrence.
			if j < i && vectorDominatesOrEqual(b, a) && vectorDominatesOrEqual(a, b) {
				dominated = true
				break
			}
		}
		if !dominated {
			keep = append(keep, a)
		}
	}
	return keep
}

func vectorDominatesOrEqual(a, b []float64) bool {
	for k := range a {
		if a[k] < b[k] {
			return false
		}
	}
	return true
}
