package selection

import (
	"context"
	"sort"

	"github.com/XiaoConstantine/evoselect/pkg/logging"
)

// EnvironmentalSelector implements NSGA-II survivor selection: given a
// merged parent+offspring set it fills the next generation front by front
// and truncates the last, partially included front by crowding distance.
type EnvironmentalSelector struct {
	cmp *Comparator
}

// NewEnvironmentalSelector builds a selector over the spec's objectives.
func NewEnvironmentalSelector(spec ObjectiveSpec) *EnvironmentalSelector {
	return &EnvironmentalSelector{cmp: NewComparator(spec)}
}

// WithComparator swaps in a custom comparator, e.g. one with epsilon
// tolerance for noisy evaluations.
func (s *EnvironmentalSelector) WithComparator(cmp *Comparator) *EnvironmentalSelector {
	return &EnvironmentalSelector{cmp: cmp}
}

// Select re-ranks the merged set and returns target survivors. The
// returned candidates carry fresh rank and crowding annotations. An empty
// input yields an empty result.
func (s *EnvironmentalSelector) Select(ctx context.Context, merged []*Candidate, target int) ([]*Candidate, error) {
	if len(merged) == 0 || target <= 0 {
		return nil, nil
	}

	fronts, err := s.cmp.RankAndCrowd(merged)
	if err != nil {
		return nil, err
	}

	survivors := make([]*Candidate, 0, target)
	perFront := make([]int, 0, len(fronts))
	for _, front := range fronts {
		if len(survivors)+len(front) <= target {
			survivors = append(survivors, front...)
			perFront = append(perFront, len(front))
			if len(survivors) == target {
				break
			}
			continue
		}

		// Partial front: keep the most isolated members.
		remaining := target - len(survivors)
		truncated := append([]*Candidate(nil), front...)
		sort.SliceStable(truncated, func(i, j int) bool {
			if truncated[j].CrowdingDistance.Less(truncated[i].CrowdingDistance) {
				return true
			}
			if truncated[i].CrowdingDistance.Less(truncated[j].CrowdingDistance) {
				return false
			}
			return truncated[i].ID < truncated[j].ID
		})
		survivors = append(survivors, truncated[:remaining]...)
		perFront = append(perFront, remaining)
		break
	}

	logger := logging.GetLogger()
	logger.Debug(ctx, "Environmental selection: merged=%d, target=%d, fronts_used=%d, per_front=%v",
		len(merged), target, len(perFront), perFront)
	return survivors, nil
}
