package selection

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, maxSize, archiveMax int) *FrontierManager {
	t.Helper()
	m, err := NewFrontierManager(twoObjectiveSpec(), FrontierConfig{
		MaxSize:        maxSize,
		ArchiveMaxSize: archiveMax,
	})
	require.NoError(t, err)
	return m
}

func TestNewFrontierManagerConfigErrors(t *testing.T) {
	_, err := NewFrontierManager(twoObjectiveSpec(), FrontierConfig{MaxSize: 0, ArchiveMaxSize: 10})
	assert.Error(t, err)

	_, err = NewFrontierManager(twoObjectiveSpec(), FrontierConfig{MaxSize: 10, ArchiveMaxSize: 0})
	assert.Error(t, err)

	_, err = NewFrontierManager(ObjectiveSpec{}, FrontierConfig{MaxSize: 10, ArchiveMaxSize: 10})
	assert.Error(t, err)
}

func TestAddSolutionRejectsDominated(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 10, 10)
	f := m.NewFrontier(refPoint2(0, 0))

	f, added, err := m.AddSolution(ctx, f, normCandidate("strong", obj2(0.8, 0.8)))
	require.NoError(t, err)
	require.True(t, added)

	// Dominated candidate is rejected and the frontier unchanged.
	next, added, err := m.AddSolution(ctx, f, normCandidate("weak", obj2(0.2, 0.2)))
	require.NoError(t, err)
	assert.False(t, added)
	assert.Same(t, f, next)
	assert.Len(t, next.Solutions, 1)
}

func TestAddSolutionSweepsDominated(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 10, 10)
	f := m.NewFrontier(refPoint2(0, 0))

	for i, norm := range []map[string]float64{obj2(0.3, 0.6), obj2(0.6, 0.3), obj2(0.1, 0.9)} {
		var err error
		f, _, err = m.AddSolution(ctx, f, normCandidate(fmt.Sprintf("old%d", i), norm))
		require.NoError(t, err)
	}
	require.Len(t, f.Solutions, 3)

	// A newcomer dominating old0 and old1 removes both, keeps old2.
	f, added, err := m.AddSolution(ctx, f, normCandidate("new", obj2(0.7, 0.7)))
	require.NoError(t, err)
	require.True(t, added)

	assert.Len(t, f.Solutions, 2)
	assert.True(t, f.Contains("new"))
	assert.True(t, f.Contains("old2"))
}

// Non-domination invariant: after any sequence of inserts, no frontier
// member dominates another.
func TestFrontierNonDominationInvariant(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 20, 10)
	cmp := NewComparator(twoObjectiveSpec())
	f := m.NewFrontier(refPoint2(0, 0))

	coords := []map[string]float64{
		obj2(0.1, 0.9), obj2(0.9, 0.1), obj2(0.5, 0.5), obj2(0.4, 0.7),
		obj2(0.7, 0.4), obj2(0.3, 0.3), obj2(0.6, 0.6), obj2(0.2, 0.85),
	}
	for i, norm := range coords {
		var err error
		f, _, err = m.AddSolution(ctx, f, normCandidate(fmt.Sprintf("c%d", i), norm))
		require.NoError(t, err)
	}

	for _, a := range f.Solutions {
		for _, b := range f.Solutions {
			if a.ID == b.ID {
				continue
			}
			assert.Equal(t, NonDominated, cmp.Compare(a, b),
				"%s and %s must be mutually non-dominated", a.ID, b.ID)
		}
	}
}

// Boundary preservation: trimming to the cap never evicts an extreme
// member while interior members remain.
func TestTrimPreservesBoundaries(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 4, 10)
	f := m.NewFrontier(refPoint2(0, 0))

	// Six mutually non-dominated points on a line; extremes are c0/c5.
	for i := 0; i < 6; i++ {
		x := 0.1 + 0.16*float64(i)
		var err error
		f, _, err = m.AddSolution(ctx, f, normCandidate(fmt.Sprintf("c%d", i), obj2(x, 1.0-x)))
		require.NoError(t, err)
	}

	assert.Len(t, f.Solutions, 4)
	assert.True(t, f.Contains("c0"), "min-accuracy boundary must survive trimming")
	assert.True(t, f.Contains("c5"), "max-accuracy boundary must survive trimming")
}

func TestRemoveSolution(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 10, 10)
	f := m.NewFrontier(refPoint2(0, 0))

	f, _, err := m.AddSolution(ctx, f, normCandidate("keep", obj2(0.2, 0.8)))
	require.NoError(t, err)
	f, _, err = m.AddSolution(ctx, f, normCandidate("drop", obj2(0.8, 0.2)))
	require.NoError(t, err)

	f = m.RemoveSolution(f, "drop")
	assert.Len(t, f.Solutions, 1)
	assert.True(t, f.Contains("keep"))

	// Removing an absent id is a no-op returning the same frontier.
	same := m.RemoveSolution(f, "ghost")
	assert.Same(t, f, same)
}

func TestUpdateFronts(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 10, 10)
	f := m.NewFrontier(refPoint2(0, 0))

	population := []*Candidate{
		normCandidate("f1-a", obj2(0.9, 0.1)),
		normCandidate("f1-b", obj2(0.1, 0.9)),
		normCandidate("f2-a", obj2(0.05, 0.05)),
	}

	f, err := m.UpdateFronts(ctx, f, population)
	require.NoError(t, err)

	require.Len(t, f.Fronts, 2)
	assert.Len(t, f.Front(1), 2)
	assert.Len(t, f.Front(2), 1)
	assert.Nil(t, f.Front(3))

	// Rank 1 of the fronts is the frontier's solution set.
	assert.ElementsMatch(t, f.Front(1), f.ParetoOptimal())

	// Empty population is a no-op.
	same, err := m.UpdateFronts(ctx, f, nil)
	require.NoError(t, err)
	assert.Same(t, f, same)
}

func TestArchiveEviction(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 10, 2)
	f := m.NewFrontier(refPoint2(0, 0))

	best := rankedCandidate("best", 1, InfiniteDistance(), obj2(0.9, 0.9))
	good := rankedCandidate("good", 1, FiniteDistance(0.8), obj2(0.7, 0.7))
	poor := rankedCandidate("poor", 3, FiniteDistance(0.1), obj2(0.2, 0.2))

	f = m.ArchiveSolution(ctx, f, poor)
	f = m.ArchiveSolution(ctx, f, best)
	f = m.ArchiveSolution(ctx, f, good)

	require.Len(t, f.Archive, 2)
	ids := []string{f.Archive[0].ID, f.Archive[1].ID}
	assert.Contains(t, ids, "best")
	assert.Contains(t, ids, "good")
	assert.NotContains(t, ids, "poor", "worst (rank, crowding) record is evicted")
}

func TestArchiveIndependentOfSolutions(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 10, 10)
	f := m.NewFrontier(refPoint2(0, 0))

	c := rankedCandidate("solo", 1, InfiniteDistance(), obj2(0.5, 0.5))
	f = m.ArchiveSolution(ctx, f, c)

	assert.Len(t, f.Archive, 1)
	assert.Empty(t, f.Solutions, "archiving must not touch the live set")

	// The archive stores clones: mutating the original does not reach it.
	c.Generation = 99
	assert.Zero(t, f.Archive[0].Generation)
}

func TestHypervolumeCaching(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 10, 10)
	f := m.NewFrontier(refPoint2(0, 0))

	f, _, err := m.AddSolution(ctx, f, normCandidate("a", obj2(0.5, 0.5)))
	require.NoError(t, err)

	hv1, err := m.Hypervolume(ctx, f)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, hv1, 1e-9)

	// Cached: second call returns the same value without recompute.
	hv2, err := m.Hypervolume(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, hv1, hv2)

	// Inserting a non-dominated point invalidates the cache and can only
	// grow the volume.
	f, _, err = m.AddSolution(ctx, f, normCandidate("b", obj2(0.8, 0.2)))
	require.NoError(t, err)
	hv3, err := m.Hypervolume(ctx, f)
	require.NoError(t, err)
	assert.InDelta(t, 0.31, hv3, 1e-9)
	assert.Greater(t, hv3, hv1)
}

func TestHypervolumeEmptyFrontier(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 10, 10)
	f := m.NewFrontier(nil)

	hv, err := m.Hypervolume(ctx, f)
	require.NoError(t, err)
	assert.Zero(t, hv)
}

func TestHypervolumeAutoReferenceFrontier(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 10, 10)
	f := m.NewFrontier(nil) // no explicit reference point

	f, _, err := m.AddSolution(ctx, f, normCandidate("a", obj2(0.5, 0.5)))
	require.NoError(t, err)

	hv, err := m.Hypervolume(ctx, f)
	require.NoError(t, err)
	assert.Greater(t, hv, 0.0)
}
