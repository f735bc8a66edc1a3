// Package checkpoint persists flow state records across transitions.
//
// The engine consumes only the flow.Checkpointer interface; this package
// provides the durable side: a Record model, a Store interface with memory,
// redis, and sqlite backends, and a Writer that adapts a Store to
// flow.Checkpointer. The byte layout of a persisted record is an
// implementation detail of each backend and deliberately unspecified.
package checkpoint
