package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/inkwell/internal/models"
)

// Conventions shared by every implementation:
//
//   - Get*/Update return nil, nil when the row does not exist, so callers
//     can tell "not found" apart from a failed query.
//   - Delete returns false, nil when nothing matched.
//   - List* return an empty slice, never nil.
//   - A unique-constraint violation is reported as ErrConflict (wrapped).

// ErrConflict marks a write rejected by a uniqueness rule: owner+slug,
// profile handle, share token, or work_id+chapter_index.
var ErrConflict = errors.New("unique constraint violation")

type ProfileRepository interface {
	Create(ctx context.Context, id uuid.UUID, handle, displayName string) (*models.Profile, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	GetByHandle(ctx context.Context, handle string) (*models.Profile, error)
	Update(ctx context.Context, id uuid.UUID, upd models.ProfileUpdate) (*models.Profile, error)
}

type WorkRepository interface {
	Create(ctx context.Context, w models.NewWork) (*models.Work, error)
	GetByID(ctx context.Context, workID uuid.UUID) (*models.Work, error)
	GetByAuthorSlug(ctx context.Context, authorID uuid.UUID, slug string) (*models.Work, error)

	// ListByAuthor returns the author's works, most recently updated first.
	ListByAuthor(ctx context.Context, authorID uuid.UUID) ([]models.Work, error)

	Update(ctx context.Context, workID uuid.UUID, upd models.WorkUpdate) (*models.Work, error)

	// Delete removes the work; its chapters, shares and everything hanging
	// off a chapter go with it.
	Delete(ctx context.Context, workID uuid.UUID) (bool, error)
}

type ChapterRepository interface {
	// Create appends the chapter: its index is the work's current chapter
	// count, assigned in the same transaction as the insert.
	Create(ctx context.Context, ch models.NewChapter) (*models.Chapter, error)

	GetByID(ctx context.Context, chapterID uuid.UUID) (*models.Chapter, error)

	// ListByWork returns chapters ordered by chapter_index ascending.
	ListByWork(ctx context.Context, workID uuid.UUID) ([]models.Chapter, error)

	// Update writes the given fields. A ChapterIndex is stored as-is; only
	// a duplicate within the work is rejected (ErrConflict).
	Update(ctx context.Context, chapterID uuid.UUID, upd models.ChapterUpdate) (*models.Chapter, error)

	// Delete removes the chapter and shifts every later sibling down by
	// one, atomically.
	Delete(ctx context.Context, chapterID uuid.UUID) (bool, error)

	// SwapIndexes exchanges the chapter_index of two chapters of workID in
	// one atomic step. Returns false if either chapter is not in the work.
	SwapIndexes(ctx context.Context, workID, a, b uuid.UUID) (bool, error)
}

type RevisionRepository interface {
	Create(ctx context.Context, rev models.ChapterRevision) (*models.ChapterRevision, error)

	// ListByChapter returns revisions newest first.
	ListByChapter(ctx context.Context, chapterID uuid.UUID) ([]models.ChapterRevision, error)
}

type ShareRepository interface {
	Create(ctx context.Context, share models.WorkShare) (*models.WorkShare, error)
	GetByID(ctx context.Context, shareID uuid.UUID) (*models.WorkShare, error)

	// GetByToken matches the token only; expiry is the caller's concern.
	GetByToken(ctx context.Context, token string) (*models.WorkShare, error)

	// ListByWork returns shares newest first.
	ListByWork(ctx context.Context, workID uuid.UUID) ([]models.WorkShare, error)

	Delete(ctx context.Context, shareID uuid.UUID) (bool, error)
}

type CommentRepository interface {
	Create(ctx context.Context, c models.InlineComment) (*models.InlineComment, error)
	GetByID(ctx context.Context, commentID uuid.UUID) (*models.InlineComment, error)

	// ListByChapter returns comments oldest first, in reading order of
	// when they were left.
	ListByChapter(ctx context.Context, chapterID uuid.UUID) ([]models.InlineComment, error)

	// SetStatus stores status and resolvedAt together.
	SetStatus(ctx context.Context, commentID uuid.UUID, status models.CommentStatus, resolvedAt *time.Time) (*models.InlineComment, error)
}

type FeedbackRepository interface {
	Create(ctx context.Context, fb models.ChapterFeedback) (*models.ChapterFeedback, error)

	// ListByChapter returns feedback newest first.
	ListByChapter(ctx context.Context, chapterID uuid.UUID) ([]models.ChapterFeedback, error)
}
