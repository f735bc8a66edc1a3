package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refai06/openfl/flow"
)

// buildRoundFlow wires a classic aggregation round: the aggregator fans the
// model out, every collaborator trains on its shard, and the aggregator
// averages the deltas back in.
func buildRoundFlow(t *testing.T, rt flow.Runtime, ids []string) *flow.Flow {
	t.Helper()
	f := flow.New("round", flow.WithAttributes(map[string]any{
		"collaborators": ids,
		"model":         0.0,
	}))

	end := flow.AggregatorStep("end", func(ctx context.Context, fc *flow.Context) error {
		return nil
	})
	join := flow.AggregatorStep("join", func(ctx context.Context, fc *flow.Context) error {
		total := 0.0
		for _, st := range fc.Inputs() {
			v, ok := st.Get("delta")
			require.True(t, ok)
			total += v.(float64)
		}
		fc.State().Set("model", total/float64(len(fc.Inputs())))
		return fc.Next(ctx, end)
	})
	train := flow.CollaboratorStep("train", func(ctx context.Context, fc *flow.Context) error {
		fc.State().Set("delta", float64(len(fc.Input())))
		return fc.Next(ctx, join)
	})
	start := flow.AggregatorStep("start", func(ctx context.Context, fc *flow.Context) error {
		return fc.Next(ctx, train, flow.WithForeach("collaborators"))
	})
	require.NoError(t, f.Add(start, train, join, end))
	require.NoError(t, f.SetRuntime(rt))
	return f
}

func TestLocalRoundTrip(t *testing.T) {
	ids := []string{"portland", "seattle"}

	backends := map[string]*Local{
		"single": NewLocal(ids),
		"pool":   NewLocal(ids, WithBackend(BackendPool), WithWorkers(2)),
	}
	for name, rt := range backends {
		t.Run(name, func(t *testing.T) {
			defer rt.Close()
			f := buildRoundFlow(t, rt, ids)
			require.NoError(t, f.Run(context.Background()))

			// mean(len("portland"), len("seattle")) = 7.5
			v, ok := f.State().Get("model")
			require.True(t, ok)
			assert.Equal(t, 7.5, v)
		})
	}
}

func TestLocalKindAndCollaborators(t *testing.T) {
	rt := NewLocal([]string{"a", "b"})
	assert.Equal(t, flow.KindLocal, rt.Kind())

	got := rt.Collaborators()
	assert.Equal(t, []string{"a", "b"}, got)
	got[0] = "mutated"
	assert.Equal(t, []string{"a", "b"}, rt.Collaborators())
}

func TestLocalPrivateAttributes(t *testing.T) {
	ids := []string{"a", "b"}
	rt := NewLocal(ids,
		WithAggregatorInit(func(ctx context.Context) (map[string]any, error) {
			return map[string]any{"agg_secret": "s3"}, nil
		}),
		WithCollaboratorInit(func(ctx context.Context, name string) (map[string]any, error) {
			return map[string]any{"shard": "shard-" + name}, nil
		}),
	)
	defer rt.Close()

	var sawSecret bool
	var shards []string

	f := flow.New("private", flow.WithAttributes(map[string]any{
		"collaborators": ids,
	}))
	join := flow.AggregatorStep("join", func(ctx context.Context, fc *flow.Context) error {
		// Collaborator private attributes never reach the aggregator.
		for _, st := range fc.Inputs() {
			assert.False(t, st.Has("shard"))
		}
		return nil
	})
	train := flow.CollaboratorStep("train", func(ctx context.Context, fc *flow.Context) error {
		v, ok := fc.State().Get("shard")
		require.True(t, ok)
		shards = append(shards, v.(string))
		return fc.Next(ctx, join)
	})
	start := flow.AggregatorStep("start", func(ctx context.Context, fc *flow.Context) error {
		sawSecret = fc.State().Has("agg_secret")
		return fc.Next(ctx, train, flow.WithForeach("collaborators"))
	})
	require.NoError(t, f.Add(start, train, join))
	require.NoError(t, f.SetRuntime(rt))
	require.NoError(t, f.Run(context.Background()))

	assert.True(t, sawSecret)
	assert.ElementsMatch(t, []string{"shard-a", "shard-b"}, shards)
	// Aggregator private attributes are stripped from the final state.
	assert.False(t, f.State().Has("agg_secret"))
}

func TestLocalInitializerFailure(t *testing.T) {
	boom := errors.New("no dataset mounted")
	rt := NewLocal([]string{"a"},
		WithCollaboratorInit(func(ctx context.Context, name string) (map[string]any, error) {
			return nil, boom
		}),
	)
	defer rt.Close()

	f := buildRoundFlow(t, rt, []string{"a"})
	err := f.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "initialize collaborator a")
}

func TestLocalStepFailureNamesCollaborator(t *testing.T) {
	ids := []string{"portland", "seattle"}
	rt := NewLocal(ids)
	defer rt.Close()

	boom := errors.New("diverged")
	f := flow.New("failing", flow.WithAttributes(map[string]any{
		"collaborators": ids,
	}))
	join := flow.AggregatorStep("join", func(ctx context.Context, fc *flow.Context) error {
		return nil
	})
	train := flow.CollaboratorStep("train", func(ctx context.Context, fc *flow.Context) error {
		if fc.Input() == "seattle" {
			return boom
		}
		return fc.Next(ctx, join)
	})
	start := flow.AggregatorStep("start", func(ctx context.Context, fc *flow.Context) error {
		return fc.Next(ctx, train, flow.WithForeach("collaborators"))
	})
	require.NoError(t, f.Add(start, train, join))
	require.NoError(t, f.SetRuntime(rt))

	err := f.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "collaborator seattle")
	assert.Contains(t, err.Error(), "step train")
}

func TestLocalDisagreeingTransitionPoints(t *testing.T) {
	ids := []string{"a", "b"}
	rt := NewLocal(ids)
	defer rt.Close()

	f := flow.New("disagree", flow.WithAttributes(map[string]any{
		"collaborators": ids,
	}))
	joinA := flow.AggregatorStep("join_a", func(ctx context.Context, fc *flow.Context) error {
		return nil
	})
	joinB := flow.AggregatorStep("join_b", func(ctx context.Context, fc *flow.Context) error {
		return nil
	})
	train := flow.CollaboratorStep("train", func(ctx context.Context, fc *flow.Context) error {
		if fc.Input() == "a" {
			return fc.Next(ctx, joinA)
		}
		return fc.Next(ctx, joinB)
	})
	start := flow.AggregatorStep("start", func(ctx context.Context, fc *flow.Context) error {
		return fc.Next(ctx, train, flow.WithForeach("collaborators"))
	})
	require.NoError(t, f.Add(start, train, joinA, joinB))
	require.NoError(t, f.SetRuntime(rt))

	err := f.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disagree on transition point")
}

func TestLocalRegionWithoutTransitionPoint(t *testing.T) {
	ids := []string{"a"}
	rt := NewLocal(ids)
	defer rt.Close()

	f := flow.New("no-join", flow.WithAttributes(map[string]any{
		"collaborators": ids,
	}))
	// The collaborator sequence simply stops instead of handing back to the
	// aggregator.
	train := flow.CollaboratorStep("train", func(ctx context.Context, fc *flow.Context) error {
		return nil
	})
	start := flow.AggregatorStep("start", func(ctx context.Context, fc *flow.Context) error {
		return fc.Next(ctx, train, flow.WithForeach("collaborators"))
	})
	require.NoError(t, f.Add(start, train))
	require.NoError(t, f.SetRuntime(rt))

	err := f.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without a transition point")
}
