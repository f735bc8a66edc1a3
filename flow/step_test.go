package flow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopStep(ctx context.Context, fc *Context) error { return nil }

func TestNewStepRequiresRole(t *testing.T) {
	_, err := NewStep("orphan", noopStep, false, false)
	assert.ErrorIs(t, err, ErrNoRoles)

	s, err := NewStep("both", noopStep, true, true)
	require.NoError(t, err)
	assert.True(t, s.RunsOnAggregator())
	assert.True(t, s.RunsOnCollaborator())
}

func TestStepConstructors(t *testing.T) {
	agg := AggregatorStep("aggregate", noopStep)
	assert.Equal(t, "aggregate", agg.Name())
	assert.True(t, agg.RunsOnAggregator())
	assert.False(t, agg.RunsOnCollaborator())

	col := CollaboratorStep("train", noopStep)
	assert.False(t, col.RunsOnAggregator())
	assert.True(t, col.RunsOnCollaborator())

	shared := SharedStep("log_metrics", noopStep)
	assert.True(t, shared.RunsOnAggregator())
	assert.True(t, shared.RunsOnCollaborator())
}

func TestClassify(t *testing.T) {
	agg := AggregatorStep("agg", noopStep)
	col := CollaboratorStep("col", noopStep)
	shared := SharedStep("shared", noopStep)

	tests := []struct {
		name string
		next *Step
		prev *Step
		want TransitionKind
	}{
		{"aggregator to collaborator", col, agg, AggregatorToCollaborator},
		{"aggregator to shared", shared, agg, AggregatorToCollaborator},
		{"collaborator to aggregator", agg, col, CollaboratorToAggregator},
		{"collaborator to shared", shared, col, CollaboratorToAggregator},
		{"aggregator to aggregator", agg, agg, SameParty},
		{"collaborator to collaborator", col, col, SameParty},
		{"shared to aggregator", agg, shared, SameParty},
		{"shared to collaborator", col, shared, SameParty},
		{"no previous step", col, nil, SameParty},
		{"no next step", nil, agg, SameParty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.next, tt.prev))
		})
	}
}

func TestTransitionKindString(t *testing.T) {
	assert.Equal(t, "same_party", SameParty.String())
	assert.Equal(t, "aggregator_to_collaborator", AggregatorToCollaborator.String())
	assert.Equal(t, "collaborator_to_aggregator", CollaboratorToAggregator.String())
}
