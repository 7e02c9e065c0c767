package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("create work: %w", Conflict("slug taken"))

	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.Equal(t, KindStorage, KindOf(errors.New("boom")))
	assert.Equal(t, KindValidation, KindOf(Validation("title is %s", "required")))
}

func TestIsAuthorization(t *testing.T) {
	assert.True(t, IsAuthorization(Unauthenticated()))
	assert.True(t, IsAuthorization(Forbidden("not yours")))
	assert.False(t, IsAuthorization(NotFound("work")))
	assert.False(t, IsAuthorization(nil))
}

func TestStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:      http.StatusBadRequest,
		KindUnauthenticated: http.StatusUnauthorized,
		KindForbidden:       http.StatusForbidden,
		KindNotFound:        http.StatusNotFound,
		KindConflict:        http.StatusConflict,
		KindStorage:         http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.Status(), kind.String())
	}
}

func TestStorageKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Storage("failed to create work", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to create work", Message(err))
	assert.Equal(t, "internal error", Message(cause))
}
