package errkind

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(Network, cause, "fetching %s", "model list")

	assert.True(t, Is(err, Network))
	assert.False(t, Is(err, Timeout))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, Network, KindOf(err))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(New(Network, "dropped connection")))
	assert.True(t, Retryable(New(RateLimit, "429")))
	assert.False(t, Retryable(New(Authentication, "bad key")))
	assert.False(t, Retryable(New(Sandbox, "escape")))
	assert.False(t, Retryable(nil))
}

func TestKindOfNonTaggedError(t *testing.T) {
	assert.Equal(t, Internal, KindOf(errors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestWithMeta(t *testing.T) {
	err := New(InvalidArgs, "bad field").WithMeta("field", "path").WithMeta("attempt", 2)
	assert.Equal(t, "path", err.Meta["field"])
	assert.Equal(t, 2, err.Meta["attempt"])
}
