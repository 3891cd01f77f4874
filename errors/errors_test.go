package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClassString(t *testing.T) {
	assert.Equal(t, "upstream", ClassUpstream.String())
	assert.Equal(t, "callback", ClassCallback.String())
	assert.Equal(t, "overflow", ClassOverflow.String())
	assert.Equal(t, "misuse", ClassMisuse.String())
	assert.Equal(t, "unknown", ErrorClass(42).String())
}

func TestWrapNilErrors(t *testing.T) {
	assert.Nil(t, Wrap(nil, "Map", "OnItem", "transform"))
	assert.Nil(t, WrapCallback(nil, "Map", "OnItem", "transform"))
	assert.Nil(t, WrapOverflow(nil, "Buffer", "Write", "enqueue"))
	assert.Nil(t, WrapMisuse(nil, "Token", "Request", "validate"))
}

func TestWrapPreservesUnderlyingError(t *testing.T) {
	base := stderrors.New("boom")
	wrapped := Wrap(base, "Map", "OnItem", "transform")

	require.Error(t, wrapped)
	assert.True(t, stderrors.Is(wrapped, base))
	assert.Contains(t, wrapped.Error(), "Map.OnItem: transform failed")
}

func TestWrapCallbackClassification(t *testing.T) {
	base := stderrors.New("divide by zero")
	err := WrapCallback(base, "Map", "OnItem", "transform")

	var se *StreamError
	require.True(t, stderrors.As(err, &se))
	assert.Equal(t, ClassCallback, se.Class)
	assert.Equal(t, "Map", se.Operator)
	assert.Equal(t, "OnItem", se.Operation)
	assert.True(t, stderrors.Is(err, base))
	assert.True(t, IsCallback(err))
	assert.False(t, IsOverflow(err))
	assert.False(t, IsMisuse(err))
}

func TestWrapOverflowClassification(t *testing.T) {
	err := WrapOverflow(ErrBufferFull, "OnBackpressure", "OnItem", "enqueue")

	assert.True(t, IsOverflow(err))
	assert.Equal(t, ClassOverflow, Classify(err))
	assert.True(t, stderrors.Is(err, ErrBufferFull))
}

func TestWrapMisuseClassification(t *testing.T) {
	err := WrapMisuse(ErrInvalidDemand, "Range", "Request", "validate demand")

	assert.True(t, IsMisuse(err))
	assert.Equal(t, ClassMisuse, Classify(err))
	assert.True(t, stderrors.Is(err, ErrInvalidDemand))
}

func TestSentinelClassification(t *testing.T) {
	// Bare sentinels classify correctly without a StreamError wrapper
	assert.True(t, IsOverflow(ErrOverflow))
	assert.True(t, IsOverflow(ErrBufferFull))
	assert.True(t, IsMisuse(ErrInvalidDemand))
	assert.True(t, IsMisuse(ErrDoubleSubscription))
	assert.True(t, IsMisuse(ErrSignalAfterTerminal))
}

func TestClassifyDefaultsToUpstream(t *testing.T) {
	assert.Equal(t, ClassUpstream, Classify(stderrors.New("connection reset")))
	assert.Equal(t, ClassUpstream, Classify(nil))
}

func TestClassifyNestedWrapping(t *testing.T) {
	inner := WrapOverflow(ErrBufferFull, "Buffer", "Write", "enqueue")
	outer := fmt.Errorf("pipeline stage 3: %w", inner)

	assert.Equal(t, ClassOverflow, Classify(outer))
	assert.True(t, IsOverflow(outer))
}

func TestRecoveredFromError(t *testing.T) {
	base := stderrors.New("bad state")
	err := Recovered(base, "FlatMap", "OnItem")

	require.Error(t, err)
	assert.True(t, IsCallback(err))
	assert.True(t, stderrors.Is(err, base))
}

func TestRecoveredFromValue(t *testing.T) {
	err := Recovered("index out of range", "Filter", "OnItem")

	require.Error(t, err)
	assert.True(t, IsCallback(err))
	assert.Contains(t, err.Error(), "index out of range")
}

func TestStreamErrorMessageFallback(t *testing.T) {
	se := &StreamError{Class: ClassUpstream, Err: stderrors.New("raw")}
	assert.Equal(t, "raw", se.Error())

	se.Message = "custom message"
	assert.Equal(t, "custom message", se.Error())
}

func TestChecksHandleNil(t *testing.T) {
	assert.False(t, IsOverflow(nil))
	assert.False(t, IsCallback(nil))
	assert.False(t, IsMisuse(nil))
}
