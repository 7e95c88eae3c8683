package mpsl

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesCode(t *testing.T) {
	err := newError(CodeAlreadyInitialized, "conflict", nil, nil)
	wrapped := fmt.Errorf("stack init: %w", err)

	assert.True(t, errors.Is(wrapped, ErrAlreadyInitialized))
	assert.False(t, errors.Is(wrapped, ErrInvalidConfig))
	assert.True(t, IsAlreadyInitialized(wrapped))
}

func TestError_Message(t *testing.T) {
	cause := errors.New("boom")
	err := newError(CodeContractViolation, "release without request", cause, nil)

	assert.Equal(t, "CONTRACT_VIOLATION: release without request: boom", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, int32(-14), err.Errno())
}

func TestSameAssertHandler(t *testing.T) {
	a := &assertLog{}
	f := AssertFunc(func(string, uint32) {})

	assert.True(t, sameAssertHandler(nil, nil))
	assert.True(t, sameAssertHandler(a, a))
	assert.True(t, sameAssertHandler(f, f))
	assert.False(t, sameAssertHandler(a, &assertLog{}))
	assert.False(t, sameAssertHandler(a, nil))
	assert.False(t, sameAssertHandler(a, f))
}

// taggedHandler is not comparable with ==.
type taggedHandler struct {
	tags []string
}

func (taggedHandler) Assert(string, uint32) {}

func TestSameAssertHandler_NotComparable(t *testing.T) {
	h := taggedHandler{tags: []string{"radio"}}

	assert.True(t, sameAssertHandler(h, h))
	assert.True(t, sameAssertHandler(h, taggedHandler{tags: []string{"radio"}}))
	assert.False(t, sameAssertHandler(h, taggedHandler{tags: []string{"timer0"}}))
	assert.False(t, sameAssertHandler(h, &assertLog{}))
}

func TestFixedGenerator(t *testing.T) {
	g := NewFixedGenerator("a", "b")
	assert.Equal(t, "a", g.Generate())
	assert.Equal(t, "b", g.Generate())
	assert.Panics(t, func() { g.Generate() })

	assert.Len(t, UUIDv7Generator{}.Generate(), 36)
}
