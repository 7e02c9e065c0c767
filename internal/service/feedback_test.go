package service

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/lalith-99/inkwell/internal/apperr"
	"github.com/lalith-99/inkwell/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sharedChapter returns an unlisted work with one chapter and a live
// share token for it.
func (e *testEnv) sharedChapter(t *testing.T, author uuid.UUID) (*models.Work, *models.Chapter, string) {
	t.Helper()
	ctx := context.Background()
	w := e.createWork(t, author, "Draft")
	ch := e.createChapters(t, author, w.ID, "One")[0]
	vis := models.VisibilityUnlisted
	_, err := e.works.Update(ctx, author, w.ID, models.WorkUpdate{Visibility: &vis})
	require.NoError(t, err)
	link, err := e.shares.Create(ctx, author, w.ID, nil)
	require.NoError(t, err)
	return w, ch, link.Token
}

func TestFeedbackThroughShareLink(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author, reader := uuid.New(), uuid.New()
	_, ch, token := env.sharedChapter(t, author)

	anon, err := env.feedback.Create(ctx, uuid.Nil, token, ch.ID, models.FeedbackAnswers{WhatWorked: "the ending"})
	require.NoError(t, err)
	assert.Nil(t, anon.ReaderID)
	assert.Equal(t, "the ending", anon.Answers.WhatWorked)

	signed, err := env.feedback.Create(ctx, reader, token, ch.ID, models.FeedbackAnswers{FavoriteLine: "It was raining."})
	require.NoError(t, err)
	require.NotNil(t, signed.ReaderID)
	assert.Equal(t, reader, *signed.ReaderID)

	list, err := env.feedback.ListByChapter(ctx, author, ch.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, signed.ID, list[0].ID)
	assert.Equal(t, anon.ID, list[1].ID)

	_, err = env.feedback.ListByChapter(ctx, reader, ch.ID)
	assertKind(t, apperr.KindForbidden, err)
}

func TestFeedbackValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, ch, token := env.sharedChapter(t, uuid.New())

	_, err := env.feedback.Create(ctx, uuid.Nil, token, ch.ID, models.FeedbackAnswers{})
	assertKind(t, apperr.KindValidation, err)

	long := strings.Repeat("a", maxAnswerLen+1)
	_, err = env.feedback.Create(ctx, uuid.Nil, token, ch.ID, models.FeedbackAnswers{WhereLostInterest: long})
	assertKind(t, apperr.KindValidation, err)
}

func TestFeedbackNeedsALiveLinkToTheChapter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	author := uuid.New()
	w, ch, token := env.sharedChapter(t, author)
	answers := models.FeedbackAnswers{WhatWorked: "pacing"}

	_, err := env.feedback.Create(ctx, uuid.Nil, "not-a-token", ch.ID, answers)
	assertKind(t, apperr.KindNotFound, err)

	// A token does not reach chapters of another work.
	other := env.createWork(t, author, "Other")
	foreign := env.createChapters(t, author, other.ID, "Elsewhere")[0]
	_, err = env.feedback.Create(ctx, uuid.Nil, token, foreign.ID, answers)
	assertKind(t, apperr.KindNotFound, err)

	private := models.VisibilityPrivate
	_, err = env.works.Update(ctx, author, w.ID, models.WorkUpdate{Visibility: &private})
	require.NoError(t, err)
	_, err = env.feedback.Create(ctx, uuid.Nil, token, ch.ID, answers)
	assertKind(t, apperr.KindNotFound, err)

	list, err := env.feedback.ListByChapter(ctx, author, ch.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
