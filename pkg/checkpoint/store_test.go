package checkpoint

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/XiaoConstantine/evoselect/pkg/errors"
	"github.com/XiaoConstantine/evoselect/pkg/selection"
)

func testSnapshot(generation int, ids ...string) *selection.FrontierSnapshot {
	snap := &selection.FrontierSnapshot{
		Generation:     generation,
		ReferencePoint: map[string]float64{"accuracy": 0, "robustness": 0},
		Hypervolume:    0.31,
		HVValid:        true,
	}
	var front []string
	for _, id := range ids {
		snap.Solutions = append(snap.Solutions, &selection.Candidate{
			ID:                   id,
			Objectives:           map[string]float64{"accuracy": 0.5, "robustness": 0.5},
			NormalizedObjectives: map[string]float64{"accuracy": 0.5, "robustness": 0.5},
			ParetoRank:           1,
			Generation:           generation,
		})
		front = append(front, id)
	}
	if front != nil {
		snap.Fronts = [][]string{front}
	}
	return snap
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	saved := testSnapshot(3, "a", "b")
	require.NoError(t, s.Save(ctx, "run-1", saved))

	loaded, err := s.Load(ctx, "run-1", 3)
	require.NoError(t, err)

	assert.Equal(t, saved.Generation, loaded.Generation)
	assert.Equal(t, saved.ReferencePoint, loaded.ReferencePoint)
	assert.Equal(t, saved.Hypervolume, loaded.Hypervolume)
	assert.True(t, loaded.HVValid)
	require.Len(t, loaded.Solutions, 2)
	assert.Equal(t, "a", loaded.Solutions[0].ID)

	// The snapshot restores to a working frontier.
	f, err := selection.RestoreFrontier(loaded)
	require.NoError(t, err)
	assert.True(t, f.Contains("a"))
	assert.True(t, f.Contains("b"))
}

func TestSaveReplacesSameGeneration(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.Save(ctx, "run-1", testSnapshot(1, "old")))
	require.NoError(t, s.Save(ctx, "run-1", testSnapshot(1, "new")))

	loaded, err := s.Load(ctx, "run-1", 1)
	require.NoError(t, err)
	require.Len(t, loaded.Solutions, 1)
	assert.Equal(t, "new", loaded.Solutions[0].ID)
}

func TestLatest(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for _, gen := range []int{1, 5, 3} {
		require.NoError(t, s.Save(ctx, "run-1", testSnapshot(gen, "a")))
	}
	require.NoError(t, s.Save(ctx, "run-2", testSnapshot(9, "b")))

	latest, err := s.Latest(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 5, latest.Generation, "latest picks the highest generation of the right run")
}

func TestLoadMissing(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.Load(ctx, "run-1", 7)
	require.Error(t, err)

	var structured *pkgerrors.Error
	require.True(t, stderrors.As(err, &structured))
	assert.Equal(t, pkgerrors.ResourceNotFound, structured.Code())

	_, err = s.Latest(ctx, "no-such-run")
	assert.Error(t, err)
}

func TestSaveValidation(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	assert.Error(t, s.Save(ctx, "", testSnapshot(1)))
	assert.Error(t, s.Save(ctx, "run-1", nil))
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for gen := 1; gen <= 5; gen++ {
		require.NoError(t, s.Save(ctx, "run-1", testSnapshot(gen, "a")))
	}
	require.NoError(t, s.Save(ctx, "run-2", testSnapshot(1, "b")))

	require.NoError(t, s.Prune(ctx, "run-1", 2))

	generations, err := s.Generations(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5}, generations)

	// Other runs are untouched.
	generations, err = s.Generations(ctx, "run-2")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, generations)

	assert.Error(t, s.Prune(ctx, "run-1", -1))
}

func TestCanceledContext(t *testing.T) {
	s := openTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Save(ctx, "run-1", testSnapshot(1))
	require.Error(t, err)

	var structured *pkgerrors.Error
	require.True(t, stderrors.As(err, &structured))
	assert.Equal(t, pkgerrors.Canceled, structured.Code())

	_, err = s.Latest(ctx, "run-1")
	assert.Error(t, err)
}

func TestFileBackedStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "checkpoints.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "run-1", testSnapshot(2, "a")))
	require.NoError(t, s.Close())

	// Reopen and read back.
	s2, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = s2.Close() }()

	loaded, err := s2.Latest(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Generation)
}
