package faults

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPermanent(t *testing.T) {
	err := Permanent(TypeUnsupportedImage, "bad image", errors.New("ext .gif"))

	assert.True(t, IsPermanent(err))
	assert.Equal(t, TypeUnsupportedImage, Kind(err))

	wrapped := fmt.Errorf("intake: %w", err)
	assert.True(t, IsPermanent(wrapped))
	assert.Equal(t, TypeUnsupportedImage, Kind(wrapped))
}

func TestProtocol(t *testing.T) {
	err := Protocol(ErrSessionClosed)

	assert.True(t, IsPermanent(err))
	assert.Equal(t, TypeProtocolViolation, Kind(err))
	assert.Contains(t, err.Error(), "interview session is closed")
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestTransientErrorsAreNotPermanent(t *testing.T) {
	err := errors.New("connection reset by peer")

	assert.False(t, IsPermanent(err))
	assert.Empty(t, Kind(err))
	assert.False(t, IsPermanent(nil))
}

func TestHasKind(t *testing.T) {
	inner := Permanent(TypeTokenLimit, "token limit", nil)
	outer := Permanent(TypeStepFailed, `step "intake" failed`, fmt.Errorf("activity: %w", inner))

	assert.Equal(t, TypeStepFailed, Kind(outer))
	assert.True(t, HasKind(outer, TypeStepFailed))
	assert.True(t, HasKind(outer, TypeTokenLimit))
	assert.False(t, HasKind(outer, TypeUnsupportedImage))
}
