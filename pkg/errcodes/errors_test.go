package errcodes

import (
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestIsRateLimited(t *testing.T) {
	t.Parallel()

	err := errors.Wrap(RateLimited("http://example.com/n1/1/"), "fetch")
	assert.True(t, IsRateLimited(err))
	assert.False(t, IsNoCoherentPage(err))
	assert.False(t, IsRateLimited(errors.New("boom")))
	assert.False(t, IsRateLimited(nil))
}

func TestIsNoCoherentPage(t *testing.T) {
	t.Parallel()

	err := errors.WithStack(NoCoherentPage("n1"))
	assert.True(t, IsNoCoherentPage(err))

	var e *Error
	assert.True(t, errors.As(err, &e))
	assert.Equal(t, http.StatusBadGateway, e.HTTPCode)
	assert.Contains(t, e.Message, "n1")
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	assert.True(t, IsNotFound(NotFound("Work")))
	assert.False(t, IsNotFound(RateLimited("http://example.com/")))
}
