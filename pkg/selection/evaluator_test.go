package selection

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/XiaoConstantine/evoselect/pkg/errors"
)

func TestObjectiveSpecValidate(t *testing.T) {
	tests := []struct {
		name    string
		spec    ObjectiveSpec
		wantErr bool
	}{
		{
			name: "valid spec",
			spec: ObjectiveSpec{
				"accuracy": {Direction: Maximize, Weight: 0.6},
				"latency":  {Direction: Minimize, Weight: 0.4},
			},
		},
		{
			name:    "empty spec",
			spec:    ObjectiveSpec{},
			wantErr: true,
		},
		{
			name: "bad direction",
			spec: ObjectiveSpec{
				"accuracy": {Direction: "sideways", Weight: 1},
			},
			wantErr: true,
		},
		{
			name: "negative weight",
			spec: ObjectiveSpec{
				"accuracy": {Direction: Maximize, Weight: -0.5},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	spec := ObjectiveSpec{
		"accuracy": {Direction: Maximize, Weight: 1},
		"latency":  {Direction: Minimize, Weight: 1},
	}
	evaluator, err := NewEvaluator(spec)
	require.NoError(t, err)

	candidates := []*Candidate{
		{ID: "a", Objectives: map[string]float64{"accuracy": 0.9, "latency": 100}},
		{ID: "b", Objectives: map[string]float64{"accuracy": 0.5, "latency": 300}},
		{ID: "c", Objectives: map[string]float64{"accuracy": 0.7, "latency": 200}},
	}

	require.NoError(t, evaluator.EvaluatePopulation(context.Background(), candidates))

	// Best accuracy normalizes to 1, worst to 0.
	assert.InDelta(t, 1.0, candidates[0].NormalizedObjectives["accuracy"], 1e-9)
	assert.InDelta(t, 0.0, candidates[1].NormalizedObjectives["accuracy"], 1e-9)
	assert.InDelta(t, 0.5, candidates[2].NormalizedObjectives["accuracy"], 1e-9)

	// Latency is minimized, so the lowest raw value normalizes to 1.
	assert.InDelta(t, 1.0, candidates[0].NormalizedObjectives["latency"], 1e-9)
	assert.InDelta(t, 0.0, candidates[1].NormalizedObjectives["latency"], 1e-9)
	assert.InDelta(t, 0.5, candidates[2].NormalizedObjectives["latency"], 1e-9)

	// Aggregate fitness is the weighted sum of normalized values.
	assert.InDelta(t, 2.0, candidates[0].AggregateFitness, 1e-9)
	assert.InDelta(t, 0.0, candidates[1].AggregateFitness, 1e-9)
	assert.InDelta(t, 1.0, candidates[2].AggregateFitness, 1e-9)
}

func TestNormalizeZeroVariance(t *testing.T) {
	spec := ObjectiveSpec{
		"accuracy": {Direction: Maximize, Weight: 1},
		"latency":  {Direction: Minimize, Weight: 1},
	}
	evaluator, err := NewEvaluator(spec)
	require.NoError(t, err)

	// Everyone ties on latency: no discriminating information, nobody is
	// penalized.
	candidates := []*Candidate{
		{ID: "a", Objectives: map[string]float64{"accuracy": 0.9, "latency": 100}},
		{ID: "b", Objectives: map[string]float64{"accuracy": 0.5, "latency": 100}},
	}

	require.NoError(t, evaluator.EvaluatePopulation(context.Background(), candidates))

	assert.Equal(t, 1.0, candidates[0].NormalizedObjectives["latency"])
	assert.Equal(t, 1.0, candidates[1].NormalizedObjectives["latency"])
}

func TestNormalizeMissingObjective(t *testing.T) {
	evaluator, err := NewEvaluator(twoObjectiveSpec())
	require.NoError(t, err)

	candidates := []*Candidate{
		{ID: "ok", Objectives: map[string]float64{"accuracy": 1, "robustness": 1}},
		{ID: "broken", Objectives: map[string]float64{"accuracy": 0.5}},
	}

	err = evaluator.EvaluatePopulation(context.Background(), candidates)
	require.Error(t, err)

	var structured *pkgerrors.Error
	require.True(t, stderrors.As(err, &structured))
	assert.Equal(t, pkgerrors.MissingObjective, structured.Code())
	assert.Equal(t, "broken", structured.Fields()["candidate_id"])
	assert.Equal(t, "robustness", structured.Fields()["objective"])
}

func TestNormalizeUndeclaredObjective(t *testing.T) {
	evaluator, err := NewEvaluator(twoObjectiveSpec())
	require.NoError(t, err)

	candidates := []*Candidate{
		{ID: "extra", Objectives: map[string]float64{"accuracy": 1, "robustness": 1, "sparkle": 9}},
	}

	err = evaluator.EvaluatePopulation(context.Background(), candidates)
	require.Error(t, err)

	var structured *pkgerrors.Error
	require.True(t, stderrors.As(err, &structured))
	assert.Equal(t, pkgerrors.InvalidInput, structured.Code())
}

func TestEvaluateEmptyPopulation(t *testing.T) {
	evaluator, err := NewEvaluator(twoObjectiveSpec())
	require.NoError(t, err)
	assert.NoError(t, evaluator.EvaluatePopulation(context.Background(), nil))
}

func TestNormalizedValuesClamped(t *testing.T) {
	evaluator, err := NewEvaluator(twoObjectiveSpec())
	require.NoError(t, err)

	candidates := []*Candidate{
		{ID: "a", Objectives: obj2(0.1, 0.2)},
		{ID: "b", Objectives: obj2(0.9, 0.8)},
		{ID: "c", Objectives: obj2(0.5, 0.5)},
	}
	require.NoError(t, evaluator.EvaluatePopulation(context.Background(), candidates))

	for _, c := range candidates {
		for name, v := range c.NormalizedObjectives {
			assert.GreaterOrEqual(t, v, 0.0, "objective %s of %s", name, c.ID)
			assert.LessOrEqual(t, v, 1.0, "objective %s of %s", name, c.ID)
		}
	}
}
