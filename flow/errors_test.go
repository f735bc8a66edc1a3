package flow

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSerializationError(t *testing.T) {
	cause := errors.New("unsupported kind func")
	err := NewSerializationError("clone attribute model", cause)

	assert.Contains(t, err.Error(), "clone attribute model")
	assert.Contains(t, err.Error(), "rerun the flow on the single-process backend")
	assert.ErrorIs(t, err, cause)
}

func TestIsSerialization(t *testing.T) {
	err := NewSerializationError("encode checkpoint", errors.New("boom"))
	assert.True(t, IsSerialization(err))

	// Detection survives wrapping.
	wrapped := fmt.Errorf("dispatch region train: %w", err)
	assert.True(t, IsSerialization(wrapped))

	// Detection is by type, never by message text.
	lookalike := errors.New("serialization failed: clone attribute model")
	assert.False(t, IsSerialization(lookalike))
	assert.False(t, IsSerialization(nil))
}
