// Package bench runs the selection engine against synthetic ZDT1 problems
// so its convergence behavior can be observed end to end without a real
// prompt evaluation pipeline.
package bench

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/google/uuid"

	"github.com/XiaoConstantine/evoselect/pkg/checkpoint"
	"github.com/XiaoConstantine/evoselect/pkg/errors"
	"github.com/XiaoConstantine/evoselect/pkg/logging"
	"github.com/XiaoConstantine/evoselect/pkg/selection"
)

// DefaultVariables is the ZDT1 decision vector length.
const DefaultVariables = 30

// Options configures a benchmark run.
type Options struct {
	PopulationSize int
	Generations    int
	Seed           int64
	Variables      int // decision vector length, DefaultVariables when zero

	// FrontierMaxSize bounds the tracked frontier; defaults to the
	// population size.
	FrontierMaxSize int

	// CheckpointPath enables SQLite checkpointing when non-empty.
	CheckpointPath string
	RunID          string
}

// GenerationStats is one generation's worth of benchmark output.
type GenerationStats struct {
	Generation   int
	Hypervolume  float64
	Improvement  float64
	FrontierSize int
}

// Report is the outcome of a benchmark run.
type Report struct {
	RunID    string
	Stats    []GenerationStats
	Frontier *selection.Frontier
}

// individual pairs a ZDT1 decision vector with its current candidate id.
type individual struct {
	vars []float64
}

// Objectives returns the raw ZDT1 objective values. Both are minimized;
// the true Pareto front is f2 = 1 - sqrt(f1) at g = 1.
func (ind *individual) Objectives() map[string]float64 {
	f1 := ind.vars[0]
	g := 1.0
	if len(ind.vars) > 1 {
		sum := 0.0
		for _, x := range ind.vars[1:] {
			sum += x
		}
		g = 1 + 9*sum/float64(len(ind.vars)-1)
	}
	f2 := g * (1 - math.Sqrt(f1/g))
	return map[string]float64{"f1": f1, "f2": f2}
}

// ObjectiveSpec is the benchmark's objective space.
func ObjectiveSpec() selection.ObjectiveSpec {
	return selection.ObjectiveSpec{
		"f1": {Direction: selection.Minimize, Weight: 1.0},
		"f2": {Direction: selection.Minimize, Weight: 1.0},
	}
}

// Run executes the benchmark loop: mutate, evaluate, environmental
// selection, frontier update, hypervolume report, per generation.
func Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.PopulationSize < 2 {
		return nil, errors.New(errors.InvalidInput, "population size must be at least 2")
	}
	if opts.Generations < 1 {
		return nil, errors.New(errors.InvalidInput, "generations must be at least 1")
	}
	if opts.Variables == 0 {
		opts.Variables = DefaultVariables
	}
	if opts.FrontierMaxSize == 0 {
		opts.FrontierMaxSize = opts.PopulationSize
	}
	if opts.RunID == "" {
		opts.RunID = uuid.New().String()
	}

	spec := ObjectiveSpec()
	evaluator, err := selection.NewEvaluator(spec)
	if err != nil {
		return nil, err
	}
	environmental := selection.NewEnvironmentalSelector(spec)
	manager, err := selection.NewFrontierManager(spec, selection.FrontierConfig{
		MaxSize:        opts.FrontierMaxSize,
		ArchiveMaxSize: opts.FrontierMaxSize,
	})
	if err != nil {
		return nil, err
	}

	var store *checkpoint.Store
	if opts.CheckpointPath != "" {
		store, err = checkpoint.Open(opts.CheckpointPath)
		if err != nil {
			return nil, err
		}
		defer func() { _ = store.Close() }()
	}

	ctx = logging.WithRunID(ctx, opts.RunID)
	logger := logging.GetLogger()
	rng := rand.New(rand.NewSource(opts.Seed))

	// Random initial population.
	parents := make(map[string]*individual, opts.PopulationSize)
	population := make([]*selection.Candidate, 0, opts.PopulationSize)
	for i := 0; i < opts.PopulationSize; i++ {
		ind := randomIndividual(rng, opts.Variables)
		c := newCandidate(i, 0, ind)
		parents[c.ID] = ind
		population = append(population, c)
	}

	report := &Report{RunID: opts.RunID}
	frontier := manager.NewFrontier(nil)
	prevHV := 0.0

	for gen := 1; gen <= opts.Generations; gen++ {
		genCtx := logging.WithGeneration(ctx, gen)

		// Offspring by gaussian mutation of each parent.
		merged := append([]*selection.Candidate(nil), population...)
		individuals := make(map[string]*individual, 2*opts.PopulationSize)
		for id, ind := range parents {
			individuals[id] = ind
		}
		for i, c := range population {
			child := mutate(rng, parents[c.ID])
			cc := newCandidate(i, gen, child)
			individuals[cc.ID] = child
			merged = append(merged, cc)
		}

		if err := evaluator.EvaluatePopulation(genCtx, merged); err != nil {
			return nil, err
		}
		survivors, err := environmental.Select(genCtx, merged, opts.PopulationSize)
		if err != nil {
			return nil, err
		}

		frontier, err = manager.UpdateFronts(genCtx, frontier, survivors)
		if err != nil {
			return nil, err
		}
		frontier.Generation = gen

		hv, err := manager.Hypervolume(genCtx, frontier)
		if err != nil {
			return nil, err
		}
		improvement := selection.ImprovementRatio(hv, prevHV)
		prevHV = hv

		report.Stats = append(report.Stats, GenerationStats{
			Generation:   gen,
			Hypervolume:  hv,
			Improvement:  improvement,
			FrontierSize: len(frontier.Solutions),
		})
		logger.Info(genCtx, "Generation %d: frontier=%d, hv=%.6f, improvement=%.4f",
			gen, len(frontier.Solutions), hv, improvement)

		if store != nil {
			if err := store.Save(genCtx, opts.RunID, frontier.Snapshot()); err != nil {
				return nil, err
			}
		}

		// Survivors become the next generation's parents.
		population = survivors
		parents = make(map[string]*individual, len(survivors))
		for _, c := range survivors {
			parents[c.ID] = individuals[c.ID]
		}
	}

	report.Frontier = frontier
	return report, nil
}

func randomIndividual(rng *rand.Rand, variables int) *individual {
	vars := make([]float64, variables)
	for i := range vars {
		vars[i] = rng.Float64()
	}
	return &individual{vars: vars}
}

// mutate perturbs each variable with gaussian noise, clamped to [0,1].
func mutate(rng *rand.Rand, parent *individual) *individual {
	vars := make([]float64, len(parent.vars))
	for i, x := range parent.vars {
		v := x + rng.NormFloat64()*0.1
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		vars[i] = v
	}
	return &individual{vars: vars}
}

func newCandidate(index, generation int, ind *individual) *selection.Candidate {
	c := selection.NewCandidate(ind.Objectives(), generation)
	c.Metadata = map[string]interface{}{"index": fmt.Sprintf("g%d-i%d", generation, index)}
	return c
}
