package selection

import (
	"context"
	"math"
	"runtime"

	"github.com/XiaoConstantine/evoselect/pkg/errors"
	"github.com/XiaoConstantine/evoselect/pkg/logging"
	"github.com/sourcegraph/conc/pool"
)

// NicheRadiusStrategy selects how the sharing radius is derived.
type NicheRadiusStrategy string

const (
	// RadiusFixed uses the caller-supplied radius unchanged.
	RadiusFixed NicheRadiusStrategy = "fixed"
	// RadiusPopulationBased scales the radius as c / sqrt(N).
	RadiusPopulationBased NicheRadiusStrategy = "population_based"
	// RadiusObjectiveRange takes a fraction of the normalized
	// objective-space diagonal.
	RadiusObjectiveRange NicheRadiusStrategy = "objective_range"
	// RadiusAdaptive shrinks or grows the radius between calls to steer
	// measured diversity toward a target level.
	RadiusAdaptive NicheRadiusStrategy = "adaptive"
)

// Sharing defaults.
const (
	DefaultSharingAlpha    = 1.0
	DefaultRangeFraction   = 0.10
	DefaultPopulationScale = 0.5
	DefaultTargetDiversity = 0.5
	defaultAdaptiveStep    = 0.10
	parallelShareThreshold = 256
	minAdaptiveRadius      = 1e-3
)

// SharingConfig configures fitness sharing.
type SharingConfig struct {
	Alpha           float64
	Strategy        NicheRadiusStrategy
	Radius          float64 // required for RadiusFixed
	PopulationC     float64 // scale for RadiusPopulationBased
	RangeFraction   float64 // fraction for RadiusObjectiveRange
	TargetDiversity float64 // target for RadiusAdaptive

	// DiversityThreshold gates the adaptive-apply variant: sharing only
	// runs when measured diversity falls below it.
	DiversityThreshold float64
}

// FitnessSharing derates aggregate fitness inside crowded niches so
// isolated solutions keep an advantage. shared(i) = fitness(i) /
// niche_count(i) with sh(d) = 1 - (d/r)^alpha below the radius.
type FitnessSharing struct {
	cfg        SharingConfig
	objectives []string
	radius     float64 // live radius for the adaptive strategy
}

// NewFitnessSharing validates the configuration and applies defaults.
func NewFitnessSharing(spec ObjectiveSpec, cfg SharingConfig) (*FitnessSharing, error) {
	if cfg.Alpha == 0 {
		cfg.Alpha = DefaultSharingAlpha
	}
	if cfg.Alpha < 0 {
		return nil, errors.WithFields(
			errors.New(errors.InvalidConfiguration, "sharing alpha must be positive"),
			errors.Fields{"alpha": cfg.Alpha})
	}
	if cfg.Strategy == "" {
		cfg.Strategy = RadiusObjectiveRange
	}
	switch cfg.Strategy {
	case RadiusFixed:
		if cfg.Radius <= 0 {
			return nil, errors.New(errors.InvalidConfiguration, "fixed niche radius must be positive")
		}
	case RadiusPopulationBased:
		if cfg.PopulationC == 0 {
			cfg.PopulationC = DefaultPopulationScale
		}
		if cfg.PopulationC < 0 {
			return nil, errors.New(errors.InvalidConfiguration, "population-based radius scale must be positive")
		}
	case RadiusObjectiveRange:
		if cfg.RangeFraction == 0 {
			cfg.RangeFraction = DefaultRangeFraction
		}
		if cfg.RangeFraction < 0 || cfg.RangeFraction > 1 {
			return nil, errors.WithFields(
				errors.New(errors.InvalidConfiguration, "range fraction must be in (0,1]"),
				errors.Fields{"range_fraction": cfg.RangeFraction})
		}
	case RadiusAdaptive:
		if cfg.TargetDiversity == 0 {
			cfg.TargetDiversity = DefaultTargetDiversity
		}
		if cfg.TargetDiversity < 0 || cfg.TargetDiversity > 1 {
			return nil, errors.New(errors.InvalidConfiguration, "target diversity must be in (0,1]")
		}
	default:
		return nil, errors.WithFields(
			errors.New(errors.InvalidConfiguration, "unknown niche radius strategy"),
			errors.Fields{"strategy": string(cfg.Strategy)})
	}
	return &FitnessSharing{cfg: cfg, objectives: spec.Names()}, nil
}

// Apply computes shared fitness for every candidate, keyed by id. The
// candidates' own AggregateFitness fields are left untouched so callers
// can compare raw and shared values.
func (fs *FitnessSharing) Apply(ctx context.Context, candidates []*Candidate) (map[string]float64, error) {
	if len(candidates) == 0 {
		return map[string]float64{}, nil
	}
	for _, c := range candidates {
		if c.NormalizedObjectives == nil {
			return nil, errors.WithFields(
				errors.New(errors.MissingAnnotation, "candidate has no normalized objectives"),
				errors.Fields{"candidate_id": c.ID})
		}
	}

	radius := fs.nicheRadius(candidates)
	counts := fs.nicheCounts(candidates, radius)

	shared := make(map[string]float64, len(candidates))
	for i, c := range candidates {
		shared[c.ID] = c.AggregateFitness / counts[i]
	}

	logger := logging.GetLogger()
	logger.Debug(ctx, "Fitness sharing applied: strategy=%s, radius=%.4f, population=%d",
		fs.cfg.Strategy, radius, len(candidates))
	return shared, nil
}

// ApplyAdaptive runs sharing only when measured population diversity falls
// below the configured threshold, avoiding the O(N^2) cost when the
// population is already spread out. The boolean reports whether sharing
// ran; when it did not, the returned map carries the unshared fitness.
func (fs *FitnessSharing) ApplyAdaptive(ctx context.Context, candidates []*Candidate) (map[string]float64, bool, error) {
	if len(candidates) == 0 {
		return map[string]float64{}, false, nil
	}

	diversity := ObjectiveSpaceDiversity(candidates, fs.objectives)
	if diversity >= fs.cfg.DiversityThreshold {
		logger := logging.GetLogger()
		logger.Debug(ctx, "Skipping fitness sharing: diversity=%.3f above threshold=%.3f",
			diversity, fs.cfg.DiversityThreshold)
		out := make(map[string]float64, len(candidates))
		for _, c := range candidates {
			out[c.ID] = c.AggregateFitness
		}
		return out, false, nil
	}

	shared, err := fs.Apply(ctx, candidates)
	if err != nil {
		return nil, false, err
	}
	return shared, true, nil
}

// nicheCounts sums the sharing function over all pairs. Above the size
// threshold the rows are computed in parallel; each row is independent so
// the result matches the serial pass exactly.
func (fs *FitnessSharing) nicheCounts(candidates []*Candidate, radius float64) []float64 {
	n := len(candidates)
	counts := make([]float64, n)

	row := func(i int) {
		total := 0.0
		for j := 0; j < n; j++ {
			d := euclidean(candidates[i].NormalizedObjectives, candidates[j].NormalizedObjectives, fs.objectives)
			total += fs.sh(d, radius)
		}
		// A candidate always shares with itself, so the count is >= 1
		// and the division below is safe.
		counts[i] = total
	}

	if n >= parallelShareThreshold {
		p := pool.New().WithMaxGoroutines(runtime.GOMAXPROCS(0))
		for i := 0; i < n; i++ {
			i := i
			p.Go(func() { row(i) })
		}
		p.Wait()
	} else {
		for i := 0; i < n; i++ {
			row(i)
		}
	}
	return counts
}

// sh is the sharing kernel: 1 - (d/r)^alpha inside the radius, 0 outside.
func (fs *FitnessSharing) sh(d, radius float64) float64 {
	if d >= radius {
		return 0
	}
	return 1 - math.Pow(d/radius, fs.cfg.Alpha)
}

// nicheRadius resolves the radius for this population per the configured
// strategy.
func (fs *FitnessSharing) nicheRadius(candidates []*Candidate) float64 {
	switch fs.cfg.Strategy {
	case RadiusFixed:
		return fs.cfg.Radius
	case RadiusPopulationBased:
		return fs.cfg.PopulationC / math.Sqrt(float64(len(candidates)))
	case RadiusAdaptive:
		if fs.radius == 0 {
			fs.radius = DefaultRangeFraction * fs.diagonal()
		}
		diversity := ObjectiveSpaceDiversity(candidates, fs.objectives)
		if diversity < fs.cfg.TargetDiversity {
			// Too crowded: widen niches to push candidates apart.
			fs.radius *= 1 + defaultAdaptiveStep
		} else if diversity > fs.cfg.TargetDiversity {
			fs.radius *= 1 - defaultAdaptiveStep
			if fs.radius < minAdaptiveRadius {
				fs.radius = minAdaptiveRadius
			}
		}
		return fs.radius
	default: // RadiusObjectiveRange
		return fs.cfg.RangeFraction * fs.diagonal()
	}
}

// diagonal is the length of the normalized objective-space diagonal,
// sqrt(M) for M objectives in [0,1].
func (fs *FitnessSharing) diagonal() float64 {
	return math.Sqrt(float64(len(fs.objectives)))
}

func euclidean(a, b map[string]float64, objectives []string) float64 {
	sum := 0.0
	for _, name := range objectives {
		diff := a[name] - b[name]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}
