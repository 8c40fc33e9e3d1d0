package errkind

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapPreservesUnderlyingError(t *testing.T) {
	base := errors.New("connection reset")
	wrapped := Wrap(Transient, fmt.Errorf("fetching page: %w", base))

	assert.True(t, errors.Is(wrapped, base))
	assert.Equal(t, Transient, Of(wrapped))
}

func TestWrapNilIsNil(t *testing.T) {
	assert.Nil(t, Wrap(Catastrophic, nil))
}

func TestOfUnclassifiedIsEmpty(t *testing.T) {
	assert.Equal(t, Kind(""), Of(errors.New("plain")))
}

func TestKindSurvivesFurtherWrapping(t *testing.T) {
	inner := Wrap(PerEntity, errors.New("bad image"))
	outer := fmt.Errorf("processing attachment: %w", inner)

	assert.Equal(t, PerEntity, Of(outer))
	assert.True(t, Is(outer, PerEntity))
	assert.False(t, Is(outer, Transient))
}
