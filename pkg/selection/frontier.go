package selection

import (
	"context"
	"sort"

	"github.com/XiaoConstantine/evoselect/pkg/errors"
	"github.com/XiaoConstantine/evoselect/pkg/logging"
)

// Frontier holds the live non-dominated set, the ranked fronts of the last
// sort, and a bounded archive of the best solutions ever seen. It is a
// value threaded through the manager's operations; the surrounding
// evolution loop owns the single mutable reference and replaces it
// wholesale each generation.
type Frontier struct {
	Solutions      []*Candidate
	Fronts         [][]*Candidate
	Archive        []*Candidate
	ReferencePoint map[string]float64
	Generation     int

	hypervolume float64
	hvValid     bool
}

// ParetoOptimal returns the current non-dominated set.
func (f *Frontier) ParetoOptimal() []*Candidate {
	return f.Solutions
}

// Front returns the members of the given rank (1 = non-dominated) from the
// last sort, or nil when the rank does not exist.
func (f *Frontier) Front(rank int) []*Candidate {
	if rank < 1 || rank > len(f.Fronts) {
		return nil
	}
	return f.Fronts[rank-1]
}

// Contains reports whether a solution with the given id is on the frontier.
func (f *Frontier) Contains(id string) bool {
	for _, c := range f.Solutions {
		if c.ID == id {
			return true
		}
	}
	return false
}

// FrontierConfig bounds the live set and the archive.
type FrontierConfig struct {
	MaxSize        int
	ArchiveMaxSize int
}

// FrontierManager applies frontier mutations. All methods are pure with
// respect to their Frontier argument: they return a fresh value and leave
// the input untouched, so callers can keep the previous generation around.
type FrontierManager struct {
	cfg FrontierConfig
	cmp *Comparator
	hv  *HypervolumeCalculator
}

// NewFrontierManager validates the size caps and returns a manager bound
// to the objective spec.
func NewFrontierManager(spec ObjectiveSpec, cfg FrontierConfig) (*FrontierManager, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if cfg.MaxSize < 1 {
		return nil, errors.WithFields(
			errors.New(errors.InvalidConfiguration, "frontier max size must be at least 1"),
			errors.Fields{"max_size": cfg.MaxSize})
	}
	if cfg.ArchiveMaxSize < 1 {
		return nil, errors.WithFields(
			errors.New(errors.InvalidConfiguration, "archive size cap must be at least 1"),
			errors.Fields{"archive_max_size": cfg.ArchiveMaxSize})
	}
	return &FrontierManager{
		cfg: cfg,
		cmp: NewComparator(spec),
		hv:  NewHypervolumeCalculator(spec),
	}, nil
}

// NewFrontier creates an empty frontier with the given reference point.
// A nil reference point defers to auto-selection at hypervolume time.
func (m *FrontierManager) NewFrontier(ref map[string]float64) *Frontier {
	return &Frontier{ReferencePoint: ref}
}

func (m *FrontierManager) cloneShell(f *Frontier) *Frontier {
	clone := &Frontier{
		Solutions:      append([]*Candidate(nil), f.Solutions...),
		Archive:        append([]*Candidate(nil), f.Archive...),
		ReferencePoint: f.ReferencePoint,
		Generation:     f.Generation,
		hypervolume:    f.hypervolume,
		hvValid:        f.hvValid,
	}
	clone.Fronts = make([][]*Candidate, len(f.Fronts))
	for i, front := range f.Fronts {
		clone.Fronts[i] = append([]*Candidate(nil), front...)
	}
	return clone
}

// AddSolution inserts a candidate into the non-dominated set. A candidate
// dominated by any existing member is rejected and the frontier returned
// unchanged. Otherwise every member the candidate dominates is removed,
// the candidate is inserted, and the set is trimmed back to the size cap
// by crowding distance, never evicting a boundary member while interior
// members remain.
func (m *FrontierManager) AddSolution(ctx context.Context, f *Frontier, c *Candidate) (*Frontier, bool, error) {
	if err := m.cmp.checkNormalized([]*Candidate{c}); err != nil {
		return f, false, err
	}

	for _, existing := range f.Solutions {
		if existing.ID == c.ID {
			continue
		}
		if m.cmp.Compare(existing, c) == DominatesOther {
			return f, false, nil
		}
	}

	out := m.cloneShell(f)
	kept := out.Solutions[:0]
	for _, existing := range out.Solutions {
		if existing.ID == c.ID {
			continue // replace stale copy of the same candidate
		}
		if m.cmp.Compare(c, existing) == DominatesOther {
			continue
		}
		kept = append(kept, existing)
	}
	out.Solutions = append(kept, c)
	out.Generation = c.Generation
	out.hvValid = false

	if len(out.Solutions) > m.cfg.MaxSize {
		m.trim(ctx, out)
	}
	return out, true, nil
}

// trim recomputes crowding distance over the whole set and drops the
// lowest-distance interior members until the cap is met. Boundary members
// fall back to deterministic id-ordered eviction only when nothing
// interior is left.
func (m *FrontierManager) trim(ctx context.Context, f *Frontier) {
	m.cmp.AssignCrowdingDistance(f.Solutions)

	sorted := append([]*Candidate(nil), f.Solutions...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].CrowdingDistance.Less(sorted[j].CrowdingDistance) {
			return true
		}
		if sorted[j].CrowdingDistance.Less(sorted[i].CrowdingDistance) {
			return false
		}
		return sorted[i].ID < sorted[j].ID
	})

	evicted := 0
	for len(sorted) > m.cfg.MaxSize {
		idx := -1
		for i, c := range sorted {
			if !c.CrowdingDistance.Infinite {
				idx = i
				break
			}
		}
		if idx == -1 {
			idx = 0 // only boundary members remain
		}
		sorted = append(sorted[:idx], sorted[idx+1:]...)
		evicted++
	}
	f.Solutions = sorted

	logger := logging.GetLogger()
	logger.Debug(ctx, "Trimmed frontier to cap: evicted=%d, size=%d", evicted, len(f.Solutions))
}

// RemoveSolution drops a solution by id; a no-op when absent.
func (m *FrontierManager) RemoveSolution(f *Frontier, id string) *Frontier {
	found := false
	for _, c := range f.Solutions {
		if c.ID == id {
			found = true
			break
		}
	}
	if !found {
		return f
	}

	out := m.cloneShell(f)
	kept := out.Solutions[:0]
	for _, c := range out.Solutions {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	out.Solutions = kept
	out.hvValid = false
	return out
}

// UpdateFronts re-ranks an arbitrary candidate set, replacing the
// frontier's fronts and its non-dominated solutions (rank 1). Used when
// the live population, not just the archive, needs rank and crowding
// annotations ahead of selection.
func (m *FrontierManager) UpdateFronts(ctx context.Context, f *Frontier, population []*Candidate) (*Frontier, error) {
	if len(population) == 0 {
		return f, nil
	}
	fronts, err := m.cmp.RankAndCrowd(population)
	if err != nil {
		return f, err
	}

	out := m.cloneShell(f)
	out.Fronts = fronts
	out.Solutions = append([]*Candidate(nil), fronts[0]...)
	out.hvValid = false

	logger := logging.GetLogger()
	logger.Debug(ctx, "Updated fronts: population=%d, fronts=%d, frontier=%d",
		len(population), len(fronts), len(out.Solutions))
	return out, nil
}

// ArchiveSolution appends a record of the candidate to the bounded archive
// independently of the live set. When the cap is exceeded the least
// valuable record, worst (rank, crowding distance), is evicted. The
// archive is a record of the best ever seen, never an input to selection.
func (m *FrontierManager) ArchiveSolution(ctx context.Context, f *Frontier, c *Candidate) *Frontier {
	out := m.cloneShell(f)
	out.Archive = append(out.Archive, c.Clone())

	if len(out.Archive) > m.cfg.ArchiveMaxSize {
		worst := 0
		for i := 1; i < len(out.Archive); i++ {
			if archiveWorse(out.Archive[i], out.Archive[worst]) {
				worst = i
			}
		}
		evictedID := out.Archive[worst].ID
		out.Archive = append(out.Archive[:worst], out.Archive[worst+1:]...)

		logger := logging.GetLogger()
		logger.Debug(ctx, "Archive at cap: evicted=%s, size=%d", evictedID, len(out.Archive))
	}
	return out
}

// archiveWorse orders archive records by descending rank, then ascending
// crowding distance, then id, so the least valuable record sorts first.
func archiveWorse(a, b *Candidate) bool {
	if a.ParetoRank != b.ParetoRank {
		return a.ParetoRank > b.ParetoRank
	}
	if a.CrowdingDistance.Less(b.CrowdingDistance) {
		return true
	}
	if b.CrowdingDistance.Less(a.CrowdingDistance) {
		return false
	}
	return a.ID > b.ID
}

// Hypervolume returns the frontier's hypervolume, computing and caching it
// when the solutions changed since the last call. With no explicit
// reference point the nadir auto-selection applies.
func (m *FrontierManager) Hypervolume(ctx context.Context, f *Frontier) (float64, error) {
	if f.hvValid {
		return f.hypervolume, nil
	}
	if len(f.Solutions) == 0 {
		f.hypervolume = 0
		f.hvValid = true
		return 0, nil
	}

	ref := f.ReferencePoint
	if ref == nil {
		ref = m.hv.AutoReference(f.Solutions, DefaultReferenceMargin)
	}
	hv, err := m.hv.Compute(f.Solutions, ref)
	if err != nil {
		return 0, err
	}
	f.hypervolume = hv
	f.hvValid = true

	logger := logging.GetLogger()
	logger.Debug(ctx, "Computed frontier hypervolume: hv=%.6f, solutions=%d", hv, len(f.Solutions))
	return hv, nil
}

// Calculator exposes the manager's hypervolume calculator for contribution
// queries against the frontier's solution set.
func (m *FrontierManager) Calculator() *HypervolumeCalculator {
	return m.hv
}
