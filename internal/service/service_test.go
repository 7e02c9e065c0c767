package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/lalith-99/inkwell/internal/apperr"
	"github.com/lalith-99/inkwell/internal/events"
	"github.com/lalith-99/inkwell/internal/lock"
	"github.com/lalith-99/inkwell/internal/models"
	"github.com/lalith-99/inkwell/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	db       *memory.DB
	hub      *events.Hub
	profiles *ProfileService
	works    *WorkService
	chapters *ChapterService
	shares   *ShareService
	comments *CommentService
	feedback *FeedbackService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := memory.New()
	repos := Repos{
		Profiles:  db.Profiles(),
		Works:     db.Works(),
		Chapters:  db.Chapters(),
		Revisions: db.Revisions(),
		Shares:    db.Shares(),
		Comments:  db.Comments(),
		Feedback:  db.Feedback(),
	}
	logger := zap.NewNop()
	hub := events.NewHub(64, logger)
	profiles := NewProfileService(repos.Profiles, logger)
	shares := NewShareService(repos, "https://ink.example/", hub, logger)

	return &testEnv{
		db:       db,
		hub:      hub,
		profiles: profiles,
		works:    NewWorkService(repos, profiles, hub, logger),
		chapters: NewChapterService(repos, lock.NewLocal(), hub, logger),
		shares:   shares,
		comments: NewCommentService(repos, profiles, hub, logger),
		feedback: NewFeedbackService(repos, shares, hub, logger),
	}
}

func (e *testEnv) createWork(t *testing.T, author uuid.UUID, title string) *models.Work {
	t.Helper()
	w, err := e.works.Create(context.Background(), author, "ada@example.com", CreateWork{Title: title})
	require.NoError(t, err)
	return w
}

func (e *testEnv) createChapters(t *testing.T, author, workID uuid.UUID, titles ...string) []*models.Chapter {
	t.Helper()
	out := make([]*models.Chapter, 0, len(titles))
	for _, title := range titles {
		ch, err := e.chapters.Create(context.Background(), author, workID, title, nil)
		require.NoError(t, err)
		out = append(out, ch)
	}
	return out
}

// order returns chapter titles by chapter_index, and fails unless the
// indices are exactly 0..n-1.
func (e *testEnv) order(t *testing.T, author, workID uuid.UUID) []string {
	t.Helper()
	chapters, err := e.chapters.ListByWork(context.Background(), author, workID)
	require.NoError(t, err)
	titles := make([]string, 0, len(chapters))
	for i, ch := range chapters {
		require.Equal(t, i, ch.ChapterIndex, "index gap or duplicate at %q", ch.Title)
		titles = append(titles, ch.Title)
	}
	return titles
}

func assertKind(t *testing.T, want apperr.Kind, err error) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, want, apperr.KindOf(err), "error: %v", err)
}
