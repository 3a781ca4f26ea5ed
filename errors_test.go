package stressy

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuntimeError(t *testing.T) {
	cause := errors.New("config is broken")
	err := NewRuntimeError(cause)

	assert.True(t, IsRuntimeError(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "config is broken")

	// survives wrapping
	wrapped := fmt.Errorf("outer: %w", err)
	assert.True(t, IsRuntimeError(wrapped))

	assert.False(t, IsRuntimeError(cause))
	assert.False(t, IsRuntimeError(nil))
}
