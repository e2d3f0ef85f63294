package selection

import (
	"context"

	"github.com/XiaoConstantine/evoselect/pkg/errors"
	"github.com/XiaoConstantine/evoselect/pkg/logging"
)

// PopulationStats holds per-objective min/max over the current population's
// raw values. It is computed once per generation and shared by every
// normalization call.
type PopulationStats struct {
	Min map[string]float64 `json:"min"`
	Max map[string]float64 `json:"max"`
}

// ComputePopulationStats scans the population and records raw min/max per
// declared objective. Candidates with incomplete objective vectors are a
// validation error; the external evaluator must re-measure them first.
func ComputePopulationStats(candidates []*Candidate, spec ObjectiveSpec) (*PopulationStats, error) {
	stats := &PopulationStats{
		Min: make(map[string]float64, len(spec)),
		Max: make(map[string]float64, len(spec)),
	}
	if len(candidates) == 0 {
		return stats, nil
	}

	names := spec.Names()
	for _, c := range candidates {
		if err := spec.checkComplete(c); err != nil {
			return nil, err
		}
	}

	for _, name := range names {
		minVal := candidates[0].Objectives[name]
		maxVal := minVal
		for _, c := range candidates[1:] {
			v := c.Objectives[name]
			if v < minVal {
				minVal = v
			}
			if v > maxVal {
				maxVal = v
			}
		}
		stats.Min[name] = minVal
		stats.Max[name] = maxVal
	}
	return stats, nil
}

// Evaluator normalizes raw objective measurements into [0,1] (higher is
// always better after normalization) and computes the weighted aggregate
// fitness used by single-objective consumers. It is a pure function of
// (raw objectives, population statistics, spec) and performs no I/O.
type Evaluator struct {
	spec ObjectiveSpec
}

// NewEvaluator validates the spec and returns an evaluator bound to it.
func NewEvaluator(spec ObjectiveSpec) (*Evaluator, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &Evaluator{spec: spec}, nil
}

// Spec returns the objective specification the evaluator was built with.
func (e *Evaluator) Spec() ObjectiveSpec {
	return e.spec
}

// Normalize fills the candidate's NormalizedObjectives from its raw values
// and the population statistics. A zero-variance objective (max == min)
// carries no discriminating information, so every candidate receives 1.0
// for it rather than being penalized. Values are clamped to [0,1] to guard
// against floating-point drift.
func (e *Evaluator) Normalize(c *Candidate, stats *PopulationStats) error {
	if err := e.spec.checkComplete(c); err != nil {
		return err
	}

	normalized := make(map[string]float64, len(e.spec))
	for _, name := range e.spec.Names() {
		raw := c.Objectives[name]
		minVal, okMin := stats.Min[name]
		maxVal, okMax := stats.Max[name]
		if !okMin || !okMax {
			return errors.WithFields(
				errors.New(errors.InvalidInput, "population statistics are missing an objective"),
				errors.Fields{"objective": name})
		}

		var norm float64
		if maxVal == minVal {
			norm = 1.0
		} else {
			norm = (raw - minVal) / (maxVal - minVal)
			if e.spec[name].Direction == Minimize {
				norm = 1.0 - norm
			}
		}
		normalized[name] = clamp01(norm)
	}
	c.NormalizedObjectives = normalized
	return nil
}

// AggregateFitness computes the weighted sum of normalized objectives. The
// dominance logic never consults this scalar; it exists for
// backward-compatible single-objective consumers. Weights are used as
// supplied, normalizing them is the caller's responsibility.
func (e *Evaluator) AggregateFitness(c *Candidate) (float64, error) {
	if c.NormalizedObjectives == nil {
		return 0, errors.WithFields(
			errors.New(errors.MissingAnnotation, "candidate has no normalized objectives"),
			errors.Fields{"candidate_id": c.ID})
	}
	total := 0.0
	for _, name := range e.spec.Names() {
		norm, ok := c.NormalizedObjectives[name]
		if !ok {
			return 0, errors.WithFields(
				errors.New(errors.MissingAnnotation, "candidate normalization is missing an objective"),
				errors.Fields{"candidate_id": c.ID, "objective": name})
		}
		total += e.spec[name].Weight * norm
	}
	return total, nil
}

// EvaluatePopulation normalizes every candidate against the population's own
// statistics and fills in aggregate fitness. This is the once-per-generation
// entry point for the external evaluation stage's raw measurements.
func (e *Evaluator) EvaluatePopulation(ctx context.Context, candidates []*Candidate) error {
	if len(candidates) == 0 {
		return nil
	}

	stats, err := ComputePopulationStats(candidates, e.spec)
	if err != nil {
		return err
	}
	for _, c := range candidates {
		if err := e.Normalize(c, stats); err != nil {
			return err
		}
		fitness, err := e.AggregateFitness(c)
		if err != nil {
			return err
		}
		c.AggregateFitness = fitness
	}

	logger := logging.GetLogger()
	logger.Debug(ctx, "Normalized population: candidates=%d, objectives=%d", len(candidates), len(e.spec))
	return nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
