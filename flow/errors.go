package flow

import (
	"errors"
	"fmt"
)

// Configuration errors. All of these are fatal and never retried.
var (
	// ErrUnsupportedRuntime is returned when a runtime reports a kind
	// outside the closed {local, federated} set.
	ErrUnsupportedRuntime = errors.New("unsupported runtime kind")

	// ErrNoRuntime is returned by Run when no runtime has been assigned.
	ErrNoRuntime = errors.New("flow has no runtime assigned")

	// ErrIncludeExclude is returned when a single transition declares both
	// include and exclude attribute lists.
	ErrIncludeExclude = errors.New("include and exclude cannot both be declared on one transition")

	// ErrNoRoles is returned for a step that runs on neither party.
	ErrNoRoles = errors.New("step must run on the aggregator, the collaborators, or both")

	// ErrUnknownStep is returned when a transition targets a step that was
	// never registered with the flow.
	ErrUnknownStep = errors.New("step is not registered with the flow")

	// ErrDuplicateStep is returned when two steps register the same name.
	ErrDuplicateStep = errors.New("step name already registered")

	// ErrNoStart is returned by Run when the flow has no steps.
	ErrNoStart = errors.New("flow has no start step")

	// ErrNextDeclared is returned when a step declares its successor twice.
	ErrNextDeclared = errors.New("next step already declared for this transition")

	// ErrForeachCollection is returned when the foreach option names an
	// attribute that is absent or is not a collection of identities.
	ErrForeachCollection = errors.New("foreach attribute is not a string collection")

	// ErrNoDispatcher is returned by the federated runtime when no dispatch
	// backend has been configured.
	ErrNoDispatcher = errors.New("federated runtime has no dispatcher configured")
)

const serializationRemediation = "state could not be serialized at an " +
	"execution boundary; rerun the flow on the single-process backend, or " +
	"remove the offending attribute (or exclude it) before the transition"

// SerializationError is raised by a boundary that actually serializes state
// (deep cloning, checkpoint encoding, federated dispatch). It is never
// inferred from another error's message text. Fatal to the run.
type SerializationError struct {
	// Op names the operation that failed, e.g. "clone attribute model".
	Op  string
	Err error
}

// NewSerializationError wraps err as a serialization failure of op.
func NewSerializationError(op string, err error) *SerializationError {
	return &SerializationError{Op: op, Err: err}
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialization failed: %s: %v (%s)", e.Op, e.Err, serializationRemediation)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// IsSerialization reports whether err is a serialization failure.
func IsSerialization(err error) bool {
	var se *SerializationError
	return errors.As(err, &se)
}
