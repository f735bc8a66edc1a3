// Package openfl provides a top-level convenience entry point for building
// federated-learning flows with minimal boilerplate.
//
// Usage:
//
//	import "github.com/refai06/openfl"
//
//	f, err := openfl.New("mnist",
//	    openfl.WithCollaborators("portland", "seattle"),
//	    openfl.WithLogger(logger),
//	)
//
// This is a thin wrapper around [flow.New] plus a local runtime; both
// produce identical results. Use the flow and runtime packages directly
// when you need a federated runtime or a custom execution backend.
package openfl

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/refai06/openfl/flow"
	"github.com/refai06/openfl/internal/metrics"
	"github.com/refai06/openfl/runtime"
)

// Option configures the flow created by [New].
type Option func(*builder)

type builder struct {
	collaborators []string
	backend       runtime.Backend
	workers       int
	logger        *zap.Logger
	flowOpts      []flow.Option
}

// WithCollaborators names the participating collaborators.
func WithCollaborators(names ...string) Option {
	return func(b *builder) { b.collaborators = names }
}

// WithPoolBackend runs collaborator tasks on a goroutine pool bounded to
// workers goroutines.
func WithPoolBackend(workers int) Option {
	return func(b *builder) {
		b.backend = runtime.BackendPool
		b.workers = workers
	}
}

// WithLogger sets a custom zap logger for the flow and its runtime.
func WithLogger(logger *zap.Logger) Option {
	return func(b *builder) { b.logger = logger }
}

// WithFlowOptions forwards options to [flow.New].
func WithFlowOptions(opts ...flow.Option) Option {
	return func(b *builder) { b.flowOpts = append(b.flowOpts, opts...) }
}

// New creates a [flow.Flow] wired to a local runtime.
func New(name string, opts ...Option) (*flow.Flow, error) {
	b := &builder{backend: runtime.BackendSingle, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}

	flowOpts := append([]flow.Option{flow.WithLogger(b.logger)}, b.flowOpts...)
	f := flow.New(name, flowOpts...)

	localOpts := []runtime.LocalOption{
		runtime.WithBackend(b.backend),
		runtime.WithLogger(b.logger),
	}
	if b.workers > 0 {
		localOpts = append(localOpts, runtime.WithWorkers(b.workers))
	}
	if err := f.SetRuntime(runtime.NewLocal(b.collaborators, localOpts...)); err != nil {
		return nil, err
	}
	return f, nil
}

// NewPrometheusObserver returns a [flow.Observer] that publishes transition,
// checkpoint, and step metrics to reg under the given namespace.
func NewPrometheusObserver(namespace string, reg prometheus.Registerer, logger *zap.Logger) flow.Observer {
	return metrics.NewCollector(namespace, reg, logger)
}
