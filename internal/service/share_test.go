package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/inkwell/internal/apperr"
	"github.com/lalith-99/inkwell/internal/ident"
	"github.com/lalith-99/inkwell/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func TestShareCreate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := uuid.New()
	w := env.createWork(t, author, "Draft")

	link, err := env.shares.Create(ctx, author, w.ID, nil)
	require.NoError(t, err)
	assert.Len(t, link.Token, ident.TokenLen)
	assert.Equal(t, "https://ink.example/share/"+link.Token, link.URL)
	assert.Nil(t, link.ExpiresAt)

	again, err := env.shares.Create(ctx, author, w.ID, nil)
	require.NoError(t, err)
	assert.NotEqual(t, link.Token, again.Token)

	links, err := env.shares.ListByWork(ctx, author, w.ID)
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, again.ID, links[0].ID)
	assert.True(t, strings.HasSuffix(links[1].URL, link.Token))

	_, err = env.shares.Create(ctx, uuid.New(), w.ID, nil)
	assertKind(t, apperr.KindForbidden, err)

	past := time.Now().Add(-time.Minute)
	_, err = env.shares.Create(ctx, author, w.ID, &past)
	assertKind(t, apperr.KindValidation, err)
}

func TestShareResolveHonoursExpiry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := uuid.New()
	w := env.createWork(t, author, "Draft")

	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	env.shares.now = clock.Now

	expiry := clock.t.Add(time.Hour)
	expiring, err := env.shares.Create(ctx, author, w.ID, &expiry)
	require.NoError(t, err)
	forever, err := env.shares.Create(ctx, author, w.ID, nil)
	require.NoError(t, err)

	got, err := env.shares.Resolve(ctx, expiring.Token)
	require.NoError(t, err)
	assert.Equal(t, expiring.ID, got.ID)

	// Exactly at expires_at the share is already dead.
	clock.t = expiry
	_, err = env.shares.Resolve(ctx, expiring.Token)
	assertKind(t, apperr.KindNotFound, err)

	clock.t = expiry.Add(time.Second)
	_, err = env.shares.Resolve(ctx, expiring.Token)
	assertKind(t, apperr.KindNotFound, err)

	clock.t = clock.t.AddDate(50, 0, 0)
	got, err = env.shares.Resolve(ctx, forever.Token)
	require.NoError(t, err)
	assert.Equal(t, forever.ID, got.ID)

	_, err = env.shares.Resolve(ctx, "no-such-token")
	assertKind(t, apperr.KindNotFound, err)
	_, err = env.shares.Resolve(ctx, "")
	assertKind(t, apperr.KindNotFound, err)
}

func TestShareDeleteRevokes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := uuid.New()
	w := env.createWork(t, author, "Draft")
	link, err := env.shares.Create(ctx, author, w.ID, nil)
	require.NoError(t, err)

	err = env.shares.Delete(ctx, uuid.New(), link.ID)
	assertKind(t, apperr.KindForbidden, err)
	err = env.shares.Delete(ctx, uuid.Nil, link.ID)
	assertKind(t, apperr.KindUnauthenticated, err)

	require.NoError(t, env.shares.Delete(ctx, author, link.ID))
	_, err = env.shares.Resolve(ctx, link.Token)
	assertKind(t, apperr.KindNotFound, err)

	err = env.shares.Delete(ctx, author, link.ID)
	assertKind(t, apperr.KindNotFound, err)
}

func TestShareOpen(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := uuid.New()
	w := env.createWork(t, author, "Draft")
	env.createChapters(t, author, w.ID, "One", "Two")
	link, err := env.shares.Create(ctx, author, w.ID, nil)
	require.NoError(t, err)

	// Private works are never readable through a link.
	_, err = env.shares.Open(ctx, link.Token)
	assertKind(t, apperr.KindNotFound, err)

	unlisted := models.VisibilityUnlisted
	_, err = env.works.Update(ctx, author, w.ID, models.WorkUpdate{Visibility: &unlisted})
	require.NoError(t, err)

	page, err := env.shares.Open(ctx, link.Token)
	require.NoError(t, err)
	assert.Equal(t, w.ID, page.Work.ID)
	require.NotNil(t, page.Author)
	assert.Equal(t, "ada", page.Author.Handle)
	require.Len(t, page.Chapters, 2)
	assert.Equal(t, "One", page.Chapters[0].Title)
	assert.Equal(t, "Two", page.Chapters[1].Title)
}
