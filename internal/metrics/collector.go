package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/refai06/openfl/flow"
)

// Collector records flow-engine metrics and implements flow.Observer.
type Collector struct {
	transitionsTotal  *prometheus.CounterVec
	clonesCreated     *prometheus.CounterVec
	checkpointsTotal  *prometheus.CounterVec
	stepDuration      *prometheus.HistogramVec
	stepFailuresTotal *prometheus.CounterVec
	runsTotal         *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector registers the engine metric vectors on reg.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.transitionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Total number of step transitions by boundary kind",
		},
		[]string{"flow", "kind"},
	)

	c.clonesCreated = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clones_created_total",
			Help:      "Total number of collaborator state clones created",
		},
		[]string{"flow"},
	)

	c.checkpointsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkpoints_total",
			Help:      "Total number of checkpoint writes",
		},
		[]string{"flow", "status"},
	)

	c.stepDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Step execution duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"flow", "step"},
	)

	c.stepFailuresTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_failures_total",
			Help:      "Total number of failed step executions",
		},
		[]string{"flow", "step"},
	)

	c.runsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of flow runs by outcome",
		},
		[]string{"flow", "status"},
	)

	return c
}

// Transition implements flow.Observer.
func (c *Collector) Transition(flowName string, kind flow.TransitionKind) {
	c.transitionsTotal.WithLabelValues(flowName, kind.String()).Inc()
}

// ClonesCreated implements flow.Observer.
func (c *Collector) ClonesCreated(flowName string, n int) {
	c.clonesCreated.WithLabelValues(flowName).Add(float64(n))
}

// CheckpointSaved implements flow.Observer.
func (c *Collector) CheckpointSaved(flowName string, err error) {
	c.checkpointsTotal.WithLabelValues(flowName, statusLabel(err)).Inc()
}

// StepExecuted implements flow.Observer.
func (c *Collector) StepExecuted(flowName, step string, d time.Duration, err error) {
	c.stepDuration.WithLabelValues(flowName, step).Observe(d.Seconds())
	if err != nil {
		c.stepFailuresTotal.WithLabelValues(flowName, step).Inc()
	}
}

// RunFinished implements flow.Observer.
func (c *Collector) RunFinished(flowName string, err error) {
	c.runsTotal.WithLabelValues(flowName, statusLabel(err)).Inc()
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
