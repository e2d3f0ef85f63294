package selection

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidateIDs(candidates []*Candidate) []string {
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}
	return ids
}

func buildFrontierForSnapshot(t *testing.T) (*FrontierManager, *Frontier) {
	t.Helper()
	ctx := context.Background()
	m := newTestManager(t, 10, 5)
	f := m.NewFrontier(refPoint2(0, 0))

	population := []*Candidate{
		normCandidate("f1-a", obj2(0.9, 0.1)),
		normCandidate("f1-b", obj2(0.1, 0.9)),
		normCandidate("f2-a", obj2(0.05, 0.05)),
	}
	f, err := m.UpdateFronts(ctx, f, population)
	require.NoError(t, err)

	f = m.ArchiveSolution(ctx, f, rankedCandidate("archived", 1, InfiniteDistance(), obj2(0.8, 0.8)))
	f.Generation = 7

	// Populate the hypervolume cache so restore must carry it too.
	_, err = m.Hypervolume(ctx, f)
	require.NoError(t, err)
	return m, f
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	m, f := buildFrontierForSnapshot(t)

	raw, err := json.Marshal(f.Snapshot())
	require.NoError(t, err)

	var decoded FrontierSnapshot
	require.NoError(t, json.Unmarshal(raw, &decoded))

	restored, err := RestoreFrontier(&decoded)
	require.NoError(t, err)

	assert.Equal(t, f.Generation, restored.Generation)
	assert.Equal(t, f.ReferencePoint, restored.ReferencePoint)
	assert.ElementsMatch(t, candidateIDs(f.Solutions), candidateIDs(restored.Solutions))
	require.Len(t, restored.Fronts, len(f.Fronts))
	for i := range f.Fronts {
		assert.Len(t, restored.Fronts[i], len(f.Fronts[i]))
	}
	require.Len(t, restored.Archive, 1)
	assert.Equal(t, "archived", restored.Archive[0].ID)

	// The cached hypervolume survives the round trip without recompute.
	original, err := m.Hypervolume(ctx, f)
	require.NoError(t, err)
	restoredHV, err := m.Hypervolume(ctx, restored)
	require.NoError(t, err)
	assert.Equal(t, original, restoredHV)
}

func TestSnapshotIsolation(t *testing.T) {
	_, f := buildFrontierForSnapshot(t)

	snap := f.Snapshot()
	require.NotEmpty(t, snap.Solutions)

	// Mutating the live frontier after the snapshot must not reach it.
	f.Solutions[0].Objectives["accuracy"] = -1
	assert.NotEqual(t, -1.0, snap.Solutions[0].Objectives["accuracy"])
}

func TestSnapshotCarriesDeeperFronts(t *testing.T) {
	_, f := buildFrontierForSnapshot(t)

	snap := f.Snapshot()
	require.Len(t, snap.Fronts, 2)
	assert.Len(t, snap.Fronts[0], 2)
	assert.Len(t, snap.Fronts[1], 1)
	// The rank-2 member is not on the frontier, so it travels in Ranked.
	require.Len(t, snap.Ranked, 1)
	assert.Equal(t, "f2-a", snap.Ranked[0].ID)
}

func TestRestoreUnknownCandidate(t *testing.T) {
	snap := &FrontierSnapshot{
		Solutions: []*Candidate{normCandidate("known", obj2(0.5, 0.5))},
		Fronts:    [][]string{{"known", "ghost"}},
	}
	_, err := RestoreFrontier(snap)
	assert.Error(t, err)
}

func TestRestoreEmptySnapshot(t *testing.T) {
	restored, err := RestoreFrontier(&FrontierSnapshot{Generation: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, restored.Generation)
	assert.Empty(t, restored.Solutions)
}
