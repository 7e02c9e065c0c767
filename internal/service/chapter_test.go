package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/inkwell/internal/apperr"
	"github.com/lalith-99/inkwell/internal/events"
	"github.com/lalith-99/inkwell/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChapterCreateKeepsIndicesContiguous(t *testing.T) {
	env := newTestEnv(t)
	author := uuid.New()
	w := env.createWork(t, author, "Draft")

	titles := []string{"One", "Two", "Three", "Four", "Five"}
	for k, title := range titles {
		env.createChapters(t, author, w.ID, title)
		assert.Equal(t, titles[:k+1], env.order(t, author, w.ID))
	}
}

func TestChapterCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := uuid.New()
	w := env.createWork(t, author, "Draft")

	_, err := env.chapters.Create(ctx, author, w.ID, "", nil)
	assertKind(t, apperr.KindValidation, err)

	_, err = env.chapters.Create(ctx, author, w.ID, strings.Repeat("x", 201), nil)
	assertKind(t, apperr.KindValidation, err)

	_, err = env.chapters.Create(ctx, author, w.ID, "One", json.RawMessage(`{not json`))
	assertKind(t, apperr.KindValidation, err)

	_, err = env.chapters.Create(ctx, uuid.New(), w.ID, "One", nil)
	assertKind(t, apperr.KindForbidden, err)

	_, err = env.chapters.Create(ctx, author, uuid.New(), "One", nil)
	assertKind(t, apperr.KindNotFound, err)

	ch, err := env.chapters.Create(ctx, author, w.ID, "One", json.RawMessage(`[{"type":"p"}]`))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"type":"p"}]`, string(ch.Content))
}

func TestChapterReorderAtEdgesFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := uuid.New()
	w := env.createWork(t, author, "Draft")
	chs := env.createChapters(t, author, w.ID, "One", "Two", "Three")

	err := env.chapters.Reorder(ctx, author, chs[0].ID, w.ID, models.DirectionUp)
	assertKind(t, apperr.KindValidation, err)
	assert.Equal(t, "cannot move chapter in that direction", apperr.Message(err))

	err = env.chapters.Reorder(ctx, author, chs[2].ID, w.ID, models.DirectionDown)
	assertKind(t, apperr.KindValidation, err)

	assert.Equal(t, []string{"One", "Two", "Three"}, env.order(t, author, w.ID))
}

func TestChapterReorderIsSelfInverse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := uuid.New()
	w := env.createWork(t, author, "Draft")
	chs := env.createChapters(t, author, w.ID, "One", "Two", "Three", "Four")
	original := env.order(t, author, w.ID)

	for _, ch := range chs[1:] {
		require.NoError(t, env.chapters.Reorder(ctx, author, ch.ID, w.ID, models.DirectionUp))
		require.NoError(t, env.chapters.Reorder(ctx, author, ch.ID, w.ID, models.DirectionDown))
		assert.Equal(t, original, env.order(t, author, w.ID))
	}
}

func TestChapterReorderRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := uuid.New()
	w := env.createWork(t, author, "Draft")
	other := env.createWork(t, author, "Other")
	chs := env.createChapters(t, author, w.ID, "One", "Two")

	err := env.chapters.Reorder(ctx, author, chs[1].ID, w.ID, "sideways")
	assertKind(t, apperr.KindValidation, err)

	err = env.chapters.Reorder(ctx, author, uuid.New(), w.ID, models.DirectionUp)
	assertKind(t, apperr.KindNotFound, err)

	err = env.chapters.Reorder(ctx, author, chs[1].ID, other.ID, models.DirectionUp)
	assertKind(t, apperr.KindNotFound, err)

	err = env.chapters.Reorder(ctx, uuid.New(), chs[1].ID, w.ID, models.DirectionUp)
	assertKind(t, apperr.KindForbidden, err)

	// uuid.Nil means "the chapter's own work".
	require.NoError(t, env.chapters.Reorder(ctx, author, chs[1].ID, uuid.Nil, models.DirectionUp))
	assert.Equal(t, []string{"Two", "One"}, env.order(t, author, w.ID))
}

func TestChapterEndToEndScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := uuid.New()

	w := env.createWork(t, author, "Draft")
	assert.Equal(t, "draft", w.Slug)

	chs := env.createChapters(t, author, w.ID, "One", "Two", "Three")
	for i, ch := range chs {
		assert.Equal(t, i, ch.ChapterIndex)
	}

	require.NoError(t, env.chapters.Reorder(ctx, author, chs[1].ID, w.ID, models.DirectionUp))
	assert.Equal(t, []string{"Two", "One", "Three"}, env.order(t, author, w.ID))

	// Deleting compacts: Three moves from 2 to 1.
	require.NoError(t, env.chapters.Delete(ctx, author, chs[0].ID))
	assert.Equal(t, []string{"Two", "Three"}, env.order(t, author, w.ID))
}

func TestChapterDeleteTwiceIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := uuid.New()
	w := env.createWork(t, author, "Draft")
	chs := env.createChapters(t, author, w.ID, "One")

	err := env.chapters.Delete(ctx, uuid.New(), chs[0].ID)
	assertKind(t, apperr.KindForbidden, err)

	require.NoError(t, env.chapters.Delete(ctx, author, chs[0].ID))
	err = env.chapters.Delete(ctx, author, chs[0].ID)
	assertKind(t, apperr.KindNotFound, err)
}

func TestChapterUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := uuid.New()
	w := env.createWork(t, author, "Draft")
	chs := env.createChapters(t, author, w.ID, "One", "Two")

	title := "Uno"
	got, err := env.chapters.Update(ctx, author, chs[0].ID, models.ChapterUpdate{
		Title:   &title,
		Content: json.RawMessage(`[{"type":"h1"}]`),
	})
	require.NoError(t, err)
	assert.Equal(t, "Uno", got.Title)
	assert.Equal(t, 0, got.ChapterIndex)
	assert.JSONEq(t, `[{"type":"h1"}]`, string(got.Content))

	taken := 1
	_, err = env.chapters.Update(ctx, author, chs[0].ID, models.ChapterUpdate{ChapterIndex: &taken})
	assertKind(t, apperr.KindConflict, err)

	negative := -1
	_, err = env.chapters.Update(ctx, author, chs[0].ID, models.ChapterUpdate{ChapterIndex: &negative})
	assertKind(t, apperr.KindValidation, err)

	_, err = env.chapters.Update(ctx, uuid.New(), chs[0].ID, models.ChapterUpdate{Title: &title})
	assertKind(t, apperr.KindForbidden, err)

	_, err = env.chapters.Update(ctx, author, uuid.New(), models.ChapterUpdate{Title: &title})
	assertKind(t, apperr.KindNotFound, err)
}

func TestChapterRevisions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := uuid.New()
	w := env.createWork(t, author, "Draft")
	chs := env.createChapters(t, author, w.ID, "One")

	first, err := env.chapters.SaveRevision(ctx, author, chs[0].ID, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(first.Content))

	_, err = env.chapters.Update(ctx, author, chs[0].ID, models.ChapterUpdate{Content: json.RawMessage(`["v2"]`)})
	require.NoError(t, err)
	summary := "second pass"
	second, err := env.chapters.SaveRevision(ctx, author, chs[0].ID, &summary)
	require.NoError(t, err)

	revs, err := env.chapters.ListRevisions(ctx, author, chs[0].ID)
	require.NoError(t, err)
	require.Len(t, revs, 2)
	assert.Equal(t, second.ID, revs[0].ID)
	assert.JSONEq(t, `["v2"]`, string(revs[0].Content))
	assert.Equal(t, first.ID, revs[1].ID)

	_, err = env.chapters.ListRevisions(ctx, uuid.New(), chs[0].ID)
	assertKind(t, apperr.KindForbidden, err)
}

func TestChapterConcurrentMutationsKeepOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := uuid.New()
	w := env.createWork(t, author, "Draft")

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.chapters.Create(ctx, author, w.ID, "Chapter", nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	require.Len(t, env.order(t, author, w.ID), n)

	chapters, err := env.chapters.ListByWork(ctx, author, w.ID)
	require.NoError(t, err)

	// Reorders and deletes racing each other may fail at an edge, but
	// must never leave a gap or duplicate.
	for i, ch := range chapters {
		wg.Add(1)
		go func(id uuid.UUID, i int) {
			defer wg.Done()
			switch i % 3 {
			case 0:
				_ = env.chapters.Delete(ctx, author, id)
			case 1:
				_ = env.chapters.Reorder(ctx, author, id, w.ID, models.DirectionUp)
			default:
				_ = env.chapters.Reorder(ctx, author, id, w.ID, models.DirectionDown)
			}
		}(ch.ID, i)
	}
	wg.Wait()

	assert.Len(t, env.order(t, author, w.ID), n-7)
}

func TestChapterMutationsPublishEvents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := uuid.New()
	w := env.createWork(t, author, "Draft")

	sub := env.hub.Subscribe(w.ID)
	defer sub.Close()

	chs := env.createChapters(t, author, w.ID, "One", "Two")
	require.NoError(t, env.chapters.Reorder(ctx, author, chs[1].ID, w.ID, models.DirectionUp))
	require.NoError(t, env.chapters.Delete(ctx, author, chs[0].ID))

	want := []events.Type{events.ChapterCreated, events.ChapterCreated, events.ChaptersReordered, events.ChapterDeleted}
	for _, typ := range want {
		select {
		case ev := <-sub.Events():
			assert.Equal(t, typ, ev.Type)
			assert.Equal(t, w.ID, ev.WorkID)
			assert.False(t, ev.At.IsZero())
		case <-time.After(time.Second):
			t.Fatalf("missing %s event", typ)
		}
	}
}
