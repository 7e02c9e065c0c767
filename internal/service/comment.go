package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/lalith-99/inkwell/internal/apperr"
	"github.com/lalith-99/inkwell/internal/events"
	"github.com/lalith-99/inkwell/internal/models"
	"github.com/lalith-99/inkwell/internal/policy"
	"go.uber.org/zap"
)

const maxCommentLen = 5000

// CommentService manages inline comments on chapters.
//
// Why can anyone signed in comment on a public work, but only the author
// on a private one?
//   - A comment is a reader's note on text they can already see. The
//     signed-in reader of a public work can see it; nobody else can see a
//     private draft.
//   - Resolving is editorial: the work's author resolves anything, and a
//     commenter may resolve or reopen their own note.
type CommentService struct {
	repos    Repos
	profiles *ProfileService
	events   events.Publisher
	logger   *zap.Logger
	now      func() time.Time
}

func NewCommentService(repos Repos, profiles *ProfileService, pub events.Publisher, logger *zap.Logger) *CommentService {
	if pub == nil {
		pub = events.Discard{}
	}
	return &CommentService{repos: repos, profiles: profiles, events: pub, logger: logger, now: time.Now}
}

// viewableChapter loads a chapter and its work if the principal may read
// them.
func (s *CommentService) viewableChapter(ctx context.Context, principal, chapterID uuid.UUID) (*models.Chapter, *models.Work, error) {
	if err := policy.RequirePrincipal(principal); err != nil {
		return nil, nil, err
	}
	ch, err := s.repos.Chapters.GetByID(ctx, chapterID)
	if err != nil {
		return nil, nil, failed(s.logger, "load chapter", err, zap.String("chapter_id", chapterID.String()))
	}
	if ch == nil {
		return nil, nil, apperr.NotFound("chapter")
	}
	w, err := s.repos.Works.GetByID(ctx, ch.WorkID)
	if err != nil {
		return nil, nil, failed(s.logger, "load work", err, zap.String("work_id", ch.WorkID.String()))
	}
	if w == nil {
		return nil, nil, apperr.NotFound("chapter")
	}
	if err := policy.CanView(principal, w.AuthorID, w.Visibility == models.VisibilityPublic); err != nil {
		return nil, nil, err
	}
	return ch, w, nil
}

func validateComment(anchor models.CommentAnchor, body string) error {
	if strings.TrimSpace(body) == "" {
		return apperr.Validation("body is required")
	}
	if utf8.RuneCountInString(body) > maxCommentLen {
		return apperr.Validation("body must be at most %d characters", maxCommentLen)
	}
	if anchor.From < 0 || anchor.To < anchor.From {
		return apperr.Validation("anchor must satisfy 0 <= from <= to")
	}
	return nil
}

// Create leaves a comment on the chapter. The commenter's profile is
// created on first use, like a work author's.
func (s *CommentService) Create(ctx context.Context, principal uuid.UUID, email string, chapterID uuid.UUID, anchor models.CommentAnchor, body string) (*models.CommentWithAuthor, error) {
	if err := validateComment(anchor, body); err != nil {
		return nil, err
	}
	ch, w, err := s.viewableChapter(ctx, principal, chapterID)
	if err != nil {
		return nil, err
	}
	author, err := s.profiles.Ensure(ctx, principal, email)
	if err != nil {
		return nil, err
	}

	c, err := s.repos.Comments.Create(ctx, models.InlineComment{
		ID:        uuid.New(),
		ChapterID: ch.ID,
		AuthorID:  principal,
		Anchor:    anchor,
		Body:      body,
		Status:    models.CommentOpen,
	})
	if err != nil {
		return nil, failed(s.logger, "create comment", err, zap.String("chapter_id", chapterID.String()))
	}

	publish(s.events, s.now, events.CommentCreated, w.ID, c.ID)
	return &models.CommentWithAuthor{InlineComment: *c, Author: author}, nil
}

// ListByChapter returns the chapter's comments oldest first, each with
// its writer's profile.
func (s *CommentService) ListByChapter(ctx context.Context, principal, chapterID uuid.UUID) ([]models.CommentWithAuthor, error) {
	if _, _, err := s.viewableChapter(ctx, principal, chapterID); err != nil {
		return nil, err
	}
	comments, err := s.repos.Comments.ListByChapter(ctx, chapterID)
	if err != nil {
		return nil, failed(s.logger, "list comments", err, zap.String("chapter_id", chapterID.String()))
	}

	authors := make(map[uuid.UUID]*models.Profile)
	out := make([]models.CommentWithAuthor, 0, len(comments))
	for _, c := range comments {
		author, ok := authors[c.AuthorID]
		if !ok {
			author, err = s.repos.Profiles.GetByID(ctx, c.AuthorID)
			if err != nil {
				return nil, failed(s.logger, "load profile", err, zap.String("user_id", c.AuthorID.String()))
			}
			authors[c.AuthorID] = author
		}
		out = append(out, models.CommentWithAuthor{InlineComment: c, Author: author})
	}
	return out, nil
}

// SetStatus resolves or reopens a comment. Resolving an already resolved
// comment keeps its original resolved_at.
func (s *CommentService) SetStatus(ctx context.Context, principal, commentID uuid.UUID, status models.CommentStatus) (*models.InlineComment, error) {
	if !status.Valid() {
		return nil, apperr.Validation("status must be open or resolved")
	}
	if err := policy.RequirePrincipal(principal); err != nil {
		return nil, err
	}
	c, err := s.repos.Comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, failed(s.logger, "load comment", err, zap.String("comment_id", commentID.String()))
	}
	if c == nil {
		return nil, apperr.NotFound("comment")
	}
	_, w, err := s.viewableChapter(ctx, principal, c.ChapterID)
	if err != nil {
		return nil, err
	}
	if principal != c.AuthorID {
		if err := policy.CanMutate(principal, w.AuthorID); err != nil {
			return nil, err
		}
	}

	var resolvedAt *time.Time
	if status == models.CommentResolved {
		if c.Status == models.CommentResolved && c.ResolvedAt != nil {
			resolvedAt = c.ResolvedAt
		} else {
			at := s.now().UTC()
			resolvedAt = &at
		}
	}

	updated, err := s.repos.Comments.SetStatus(ctx, commentID, status, resolvedAt)
	if err != nil {
		return nil, failed(s.logger, "update comment", err, zap.String("comment_id", commentID.String()))
	}
	if updated == nil {
		return nil, apperr.NotFound("comment")
	}

	publish(s.events, s.now, events.CommentUpdated, w.ID, commentID)
	return updated, nil
}
