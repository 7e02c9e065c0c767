package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/lalith-99/inkwell/internal/apperr"
	"github.com/lalith-99/inkwell/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileEnsure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a, b, c := uuid.New(), uuid.New(), uuid.New()

	pa, err := env.profiles.Ensure(ctx, a, "Jane.Doe@example.com")
	require.NoError(t, err)
	assert.Equal(t, "jane-doe", pa.Handle)
	assert.Equal(t, "Jane.Doe@example.com", pa.DisplayName)

	again, err := env.profiles.Ensure(ctx, a, "other@example.com")
	require.NoError(t, err)
	assert.Equal(t, pa.ID, again.ID)
	assert.Equal(t, "jane-doe", again.Handle)

	pb, err := env.profiles.Ensure(ctx, b, "jane.doe@elsewhere.org")
	require.NoError(t, err)
	assert.Equal(t, "jane-doe-1", pb.Handle)

	pc, err := env.profiles.Ensure(ctx, c, "")
	require.NoError(t, err)
	assert.Equal(t, "user", pc.Handle)
	assert.Equal(t, "User", pc.DisplayName)

	_, err = env.profiles.Ensure(ctx, uuid.Nil, "x@example.com")
	assertKind(t, apperr.KindUnauthenticated, err)
}

func TestProfileUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()
	_, err := env.profiles.Ensure(ctx, a, "ada@example.com")
	require.NoError(t, err)
	_, err = env.profiles.Ensure(ctx, b, "grace@example.com")
	require.NoError(t, err)

	handle := "lovelace"
	bio := "first programmer"
	p, err := env.profiles.Update(ctx, a, models.ProfileUpdate{Handle: &handle, Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "lovelace", p.Handle)
	require.NotNil(t, p.Bio)
	assert.Equal(t, "first programmer", *p.Bio)

	byHandle, err := env.profiles.GetByHandle(ctx, "lovelace")
	require.NoError(t, err)
	assert.Equal(t, a, byHandle.ID)

	taken := "grace"
	_, err = env.profiles.Update(ctx, a, models.ProfileUpdate{Handle: &taken})
	assertKind(t, apperr.KindConflict, err)

	bad := "No Spaces"
	_, err = env.profiles.Update(ctx, a, models.ProfileUpdate{Handle: &bad})
	assertKind(t, apperr.KindValidation, err)

	_, err = env.profiles.Update(ctx, uuid.New(), models.ProfileUpdate{Bio: &bio})
	assertKind(t, apperr.KindNotFound, err)
}
