package selection

import (
	"context"
	"math"
	"math/rand"

	"github.com/XiaoConstantine/evoselect/pkg/errors"
	"github.com/XiaoConstantine/evoselect/pkg/logging"
)

// TournamentStrategy selects how tournament winners are decided.
type TournamentStrategy string

const (
	// StrategyPareto compares by (rank ascending, crowding descending).
	StrategyPareto TournamentStrategy = "pareto"
	// StrategyDiversity compares by (crowding descending, rank ascending).
	StrategyDiversity TournamentStrategy = "diversity"
	// StrategyAdaptive picks the tournament size from population
	// diversity: low diversity grows the tournament for more pressure,
	// high diversity shrinks it.
	StrategyAdaptive TournamentStrategy = "adaptive"
)

// DefaultTournamentSize is the k used when none is configured.
const DefaultTournamentSize = 3

// Diversity thresholds for the adaptive strategy, measured as the
// coefficient of variation of finite crowding distances.
const (
	adaptiveLowDiversity  = 0.3
	adaptiveHighDiversity = 1.0
)

// TournamentConfig configures a TournamentSelector.
type TournamentConfig struct {
	Size     int
	Strategy TournamentStrategy
	Seed     int64
}

// TournamentSelector picks parents by running k-way tournaments over a
// rank- and crowding-annotated population.
type TournamentSelector struct {
	size     int
	strategy TournamentStrategy
	rng      *rand.Rand
}

// NewTournamentSelector validates the configuration. A zero size takes the
// default of 3; a zero strategy takes pareto.
func NewTournamentSelector(cfg TournamentConfig) (*TournamentSelector, error) {
	size := cfg.Size
	if size == 0 {
		size = DefaultTournamentSize
	}
	if size < 2 {
		return nil, errors.WithFields(
			errors.New(errors.InvalidConfiguration, "tournament size must be at least 2"),
			errors.Fields{"tournament_size": cfg.Size})
	}
	strategy := cfg.Strategy
	if strategy == "" {
		strategy = StrategyPareto
	}
	switch strategy {
	case StrategyPareto, StrategyDiversity, StrategyAdaptive:
	default:
		return nil, errors.WithFields(
			errors.New(errors.InvalidConfiguration, "unknown tournament strategy"),
			errors.Fields{"strategy": string(cfg.Strategy)})
	}
	return &TournamentSelector{
		size:     size,
		strategy: strategy,
		rng:      rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Select runs count tournaments and returns the winners. Candidates may
// win multiple tournaments. Every candidate must already carry a pareto
// rank and crowding distance; missing annotations fail before any
// selection work happens.
func (s *TournamentSelector) Select(ctx context.Context, candidates []*Candidate, count int) ([]*Candidate, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	if err := checkAnnotated(candidates); err != nil {
		return nil, err
	}

	size := s.size
	if s.strategy == StrategyAdaptive {
		size = s.adaptiveSize(candidates)
	}

	selected := make([]*Candidate, 0, count)
	for i := 0; i < count; i++ {
		best := candidates[s.rng.Intn(len(candidates))]
		for j := 1; j < size; j++ {
			contestant := candidates[s.rng.Intn(len(candidates))]
			if s.beats(contestant, best) {
				best = contestant
			}
		}
		selected = append(selected, best)
	}

	logger := logging.GetLogger()
	logger.Debug(ctx, "Tournament selection: strategy=%s, k=%d, selected=%d of %d",
		s.strategy, size, len(selected), len(candidates))
	return selected, nil
}

// beats decides a single pairwise tournament comparison. Ties on both
// criteria fall back to id ordering so repeated runs with the same seed
// are fully deterministic.
func (s *TournamentSelector) beats(a, b *Candidate) bool {
	switch s.strategy {
	case StrategyDiversity:
		if b.CrowdingDistance.Less(a.CrowdingDistance) {
			return true
		}
		if a.CrowdingDistance.Less(b.CrowdingDistance) {
			return false
		}
		if a.ParetoRank != b.ParetoRank {
			return a.ParetoRank < b.ParetoRank
		}
	default:
		if a.ParetoRank != b.ParetoRank {
			return a.ParetoRank < b.ParetoRank
		}
		if b.CrowdingDistance.Less(a.CrowdingDistance) {
			return true
		}
		if a.CrowdingDistance.Less(b.CrowdingDistance) {
			return false
		}
	}
	return a.ID < b.ID
}

// adaptiveSize derives k from the coefficient of variation of finite
// crowding distances. A uniform, crowded population (low CV) needs more
// pressure; a spread-out one needs less.
func (s *TournamentSelector) adaptiveSize(candidates []*Candidate) int {
	cv := crowdingVariation(candidates)
	switch {
	case cv < adaptiveLowDiversity:
		return s.size + 2
	case cv > adaptiveHighDiversity:
		if s.size-1 >= 2 {
			return s.size - 1
		}
		return 2
	default:
		return s.size
	}
}

// crowdingVariation computes the coefficient of variation of the finite
// crowding distances in the population. Boundary (infinite) members carry
// no spread information and are excluded; an all-boundary population
// reads as maximally diverse.
func crowdingVariation(candidates []*Candidate) float64 {
	var values []float64
	for _, c := range candidates {
		if c.CrowdingDistance.Assigned && !c.CrowdingDistance.Infinite {
			values = append(values, c.CrowdingDistance.Float())
		}
	}
	if len(values) < 2 {
		return math.Inf(1)
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	if mean == 0 {
		return 0
	}

	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values))
	return math.Sqrt(variance) / mean
}

// checkAnnotated validates that rank and crowding annotations are present
// on every candidate. Selectors never substitute defaults for missing
// ranking data.
func checkAnnotated(candidates []*Candidate) error {
	for _, c := range candidates {
		if c.ParetoRank < 1 {
			return errors.WithFields(
				errors.New(errors.MissingAnnotation, "candidate has no pareto rank"),
				errors.Fields{"candidate_id": c.ID})
		}
		if !c.CrowdingDistance.Assigned {
			return errors.WithFields(
				errors.New(errors.MissingAnnotation, "candidate has no crowding distance"),
				errors.Fields{"candidate_id": c.ID})
		}
	}
	return nil
}
