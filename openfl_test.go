package openfl

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refai06/openfl/flow"
)

func TestNewRunsAFlowEndToEnd(t *testing.T) {
	f, err := New("quickstart",
		WithCollaborators("portland", "seattle"),
		WithFlowOptions(flow.WithAttributes(map[string]any{
			"collaborators": []string{"portland", "seattle"},
			"rounds":        0,
		})),
	)
	require.NoError(t, err)

	join := flow.AggregatorStep("join", func(ctx context.Context, fc *flow.Context) error {
		v, _ := fc.State().Get("rounds")
		fc.State().Set("rounds", v.(int)+1)
		return nil
	})
	train := flow.CollaboratorStep("train", func(ctx context.Context, fc *flow.Context) error {
		return fc.Next(ctx, join)
	})
	start := flow.AggregatorStep("start", func(ctx context.Context, fc *flow.Context) error {
		return fc.Next(ctx, train, flow.WithForeach("collaborators"))
	})
	require.NoError(t, f.Add(start, train, join))

	require.NoError(t, f.Run(context.Background()))
	v, _ := f.State().Get("rounds")
	assert.Equal(t, 1, v)
}

func TestNewPoolBackend(t *testing.T) {
	f, err := New("pooled",
		WithCollaborators("a", "b", "c"),
		WithPoolBackend(2),
		WithFlowOptions(flow.WithAttributes(map[string]any{
			"collaborators": []string{"a", "b", "c"},
		})),
	)
	require.NoError(t, err)

	join := flow.AggregatorStep("join", func(ctx context.Context, fc *flow.Context) error {
		assert.Len(t, fc.Inputs(), 3)
		return nil
	})
	train := flow.CollaboratorStep("train", func(ctx context.Context, fc *flow.Context) error {
		return fc.Next(ctx, join)
	})
	start := flow.AggregatorStep("start", func(ctx context.Context, fc *flow.Context) error {
		return fc.Next(ctx, train, flow.WithForeach("collaborators"))
	})
	require.NoError(t, f.Add(start, train, join))
	require.NoError(t, f.Run(context.Background()))
}

func TestNewPrometheusObserver(t *testing.T) {
	obs := NewPrometheusObserver("openfl", prometheus.NewRegistry(), nil)
	require.NotNil(t, obs)
	obs.RunFinished("quickstart", nil)
}
