package selection

import (
	"context"
	"math"
	"sort"

	"github.com/XiaoConstantine/evoselect/pkg/errors"
	"github.com/XiaoConstantine/evoselect/pkg/logging"
)

// DefaultEliteRatio is the fraction of the population preserved unmodified
// when no absolute count is configured.
const DefaultEliteRatio = 0.15

// DefaultSimilarityFraction sets the frontier-preserving variant's
// similarity threshold as a fraction of the objective-space diagonal.
const DefaultSimilarityFraction = 0.01

// EliteSelector picks the top candidates by (rank ascending, crowding
// distance descending, generation ascending, id ascending). The id is the
// documented deterministic final tiebreak.
type EliteSelector struct {
	objectives []string
}

// NewEliteSelector builds an elite selector over the spec's objectives.
func NewEliteSelector(spec ObjectiveSpec) *EliteSelector {
	return &EliteSelector{objectives: spec.Names()}
}

// eliteLess is the elite ordering: better candidates sort first.
func eliteLess(a, b *Candidate) bool {
	if a.ParetoRank != b.ParetoRank {
		return a.ParetoRank < b.ParetoRank
	}
	if b.CrowdingDistance.Less(a.CrowdingDistance) {
		return true
	}
	if a.CrowdingDistance.Less(b.CrowdingDistance) {
		return false
	}
	if a.Generation != b.Generation {
		return a.Generation < b.Generation
	}
	return a.ID < b.ID
}

// Select returns the top k candidates. An empty population yields an empty
// result; missing rank or crowding annotations are a validation error.
func (s *EliteSelector) Select(ctx context.Context, candidates []*Candidate, k int) ([]*Candidate, error) {
	if len(candidates) == 0 || k <= 0 {
		return nil, nil
	}
	if err := checkAnnotated(candidates); err != nil {
		return nil, err
	}

	sorted := append([]*Candidate(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool { return eliteLess(sorted[i], sorted[j]) })

	if k > len(sorted) {
		k = len(sorted)
	}
	elite := sorted[:k]

	logger := logging.GetLogger()
	logger.Debug(ctx, "Elite selection: population=%d, k=%d", len(candidates), k)
	return elite, nil
}

// SelectFrontierPreserving guarantees rank-1 survival. When the first
// front fits within k it is taken whole and the remainder filled by the
// standard elite ordering; when it exceeds k, the k most mutually diverse
// front-1 members are chosen greedily, skipping near-duplicates closer
// than the similarity threshold in normalized objective space. A
// non-positive threshold takes the default of 1% of the objective-space
// diagonal.
func (s *EliteSelector) SelectFrontierPreserving(ctx context.Context, candidates []*Candidate, k int, similarityThreshold float64) ([]*Candidate, error) {
	if len(candidates) == 0 || k <= 0 {
		return nil, nil
	}
	if err := checkAnnotated(candidates); err != nil {
		return nil, err
	}

	var frontOne []*Candidate
	for _, c := range candidates {
		if c.ParetoRank == 1 {
			frontOne = append(frontOne, c)
		}
	}
	if len(frontOne) == 0 {
		return nil, errors.New(errors.ValidationFailed, "population has no rank-1 candidates")
	}

	logger := logging.GetLogger()

	if len(frontOne) <= k {
		elite := make([]*Candidate, 0, k)
		sort.SliceStable(frontOne, func(i, j int) bool { return eliteLess(frontOne[i], frontOne[j]) })
		elite = append(elite, frontOne...)

		if len(elite) < k {
			rest := make([]*Candidate, 0, len(candidates)-len(frontOne))
			for _, c := range candidates {
				if c.ParetoRank != 1 {
					rest = append(rest, c)
				}
			}
			sort.SliceStable(rest, func(i, j int) bool { return eliteLess(rest[i], rest[j]) })
			need := k - len(elite)
			if need > len(rest) {
				need = len(rest)
			}
			elite = append(elite, rest[:need]...)
		}
		logger.Debug(ctx, "Frontier-preserving elite: front1=%d kept whole, total=%d", len(frontOne), len(elite))
		return elite, nil
	}

	if similarityThreshold <= 0 {
		similarityThreshold = DefaultSimilarityFraction * math.Sqrt(float64(len(s.objectives)))
	}

	// Greedy diversity pass over front 1: walk in elite order, take a
	// member only when it is not a near-duplicate of anything taken.
	sort.SliceStable(frontOne, func(i, j int) bool { return eliteLess(frontOne[i], frontOne[j]) })
	elite := make([]*Candidate, 0, k)
	var skipped []*Candidate
	for _, c := range frontOne {
		if len(elite) == k {
			break
		}
		tooClose := false
		for _, chosen := range elite {
			if s.objectiveDistance(c, chosen) < similarityThreshold {
				tooClose = true
				break
			}
		}
		if tooClose {
			skipped = append(skipped, c)
			continue
		}
		elite = append(elite, c)
	}
	// Backfill from the near-duplicates when diversity alone cannot fill k.
	diverse := len(elite)
	for _, c := range skipped {
		if len(elite) == k {
			break
		}
		elite = append(elite, c)
	}

	logger.Debug(ctx, "Frontier-preserving elite: front1=%d > k=%d, diverse=%d, backfilled=%d",
		len(frontOne), k, diverse, len(elite)-diverse)
	return elite, nil
}

// objectiveDistance is the Euclidean distance between two candidates in
// normalized objective space.
func (s *EliteSelector) objectiveDistance(a, b *Candidate) float64 {
	sum := 0.0
	for _, name := range s.objectives {
		diff := a.NormalizedObjectives[name] - b.NormalizedObjectives[name]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}
