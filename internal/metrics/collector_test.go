package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/refai06/openfl/flow"
)

func TestCollectorRecordsEngineEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("openfl", reg, nil)

	c.Transition("mnist", flow.AggregatorToCollaborator)
	c.Transition("mnist", flow.AggregatorToCollaborator)
	c.Transition("mnist", flow.CollaboratorToAggregator)
	c.ClonesCreated("mnist", 3)
	c.CheckpointSaved("mnist", nil)
	c.CheckpointSaved("mnist", errors.New("redis down"))
	c.StepExecuted("mnist", "train", 120*time.Millisecond, nil)
	c.StepExecuted("mnist", "train", 80*time.Millisecond, errors.New("diverged"))
	c.RunFinished("mnist", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(
		c.transitionsTotal.WithLabelValues("mnist", "aggregator_to_collaborator")))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		c.transitionsTotal.WithLabelValues("mnist", "collaborator_to_aggregator")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.clonesCreated.WithLabelValues("mnist")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.checkpointsTotal.WithLabelValues("mnist", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.checkpointsTotal.WithLabelValues("mnist", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.stepFailuresTotal.WithLabelValues("mnist", "train")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.runsTotal.WithLabelValues("mnist", "ok")))
}

func TestCollectorImplementsObserver(t *testing.T) {
	var _ flow.Observer = NewCollector("openfl", prometheus.NewRegistry(), nil)
}
