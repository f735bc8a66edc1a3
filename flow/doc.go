// Package flow implements the federated flow execution engine: the state
// model shared between an aggregator and its collaborators, step definitions
// with party-role markers, the transition classifier, attribute filtering
// across party boundaries, per-collaborator state cloning, and the Next/Run
// orchestration surface that user-authored step functions drive.
//
// A flow is a sequence of steps. Each step runs on the aggregator, on every
// collaborator, or on both, and declares its successor by calling
// [Context.Next]. When a transition crosses the aggregator/collaborator
// boundary the engine snapshots and filters state so that each party only
// sees the attributes it is meant to see, fans state out as independent deep
// clones for foreach regions, and merges results back at the transition
// point.
//
// Execution itself is delegated to a [Runtime]; see the runtime package for
// the local and federated implementations.
package flow
