package policy

import (
	"testing"

	"github.com/google/uuid"
	"github.com/lalith-99/inkwell/internal/apperr"
	"github.com/stretchr/testify/assert"
)

func TestCanMutate(t *testing.T) {
	owner := uuid.New()
	other := uuid.New()

	assert.NoError(t, CanMutate(owner, owner))
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(CanMutate(other, owner)))
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(CanMutate(uuid.Nil, owner)))
}

func TestCanMutateNilOwner(t *testing.T) {
	// An anonymous caller never matches, even against a zero owner id.
	assert.True(t, apperr.IsAuthorization(CanMutate(uuid.Nil, uuid.Nil)))
}

func TestRequirePrincipal(t *testing.T) {
	assert.NoError(t, RequirePrincipal(uuid.New()))
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(RequirePrincipal(uuid.Nil)))
}

func TestCanView(t *testing.T) {
	owner := uuid.New()
	other := uuid.New()

	assert.NoError(t, CanView(owner, owner, false))
	assert.NoError(t, CanView(other, owner, true))
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(CanView(other, owner, false)))
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(CanView(uuid.Nil, owner, true)))
}
