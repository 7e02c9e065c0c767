package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/inkwell/internal/apperr"
	"github.com/lalith-99/inkwell/internal/events"
	"github.com/lalith-99/inkwell/internal/lock"
	"github.com/lalith-99/inkwell/internal/models"
	"github.com/lalith-99/inkwell/internal/repository"
	"go.uber.org/zap"
)

// ChapterService owns chapter ordering. Create, Delete and Reorder hold
// the work's lock for their whole read-modify-write, and each storage
// call that changes indices is itself atomic, so a work's indices stay
// {0..n-1}.
type ChapterService struct {
	repos  Repos
	locker lock.Locker
	events events.Publisher
	logger *zap.Logger
	now    func() time.Time
}

func NewChapterService(repos Repos, locker lock.Locker, pub events.Publisher, logger *zap.Logger) *ChapterService {
	if pub == nil {
		pub = events.Discard{}
	}
	return &ChapterService{repos: repos, locker: locker, events: pub, logger: logger, now: time.Now}
}

func (s *ChapterService) ownedChapter(ctx context.Context, principal, chapterID uuid.UUID) (*models.Chapter, error) {
	return ownedChapter(ctx, s.repos.Chapters, s.logger, principal, chapterID)
}

// Create appends a chapter to the work. Empty content is stored as [].
func (s *ChapterService) Create(ctx context.Context, principal, workID uuid.UUID, title string, content json.RawMessage) (*models.Chapter, error) {
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	if len(content) > 0 && !json.Valid(content) {
		return nil, apperr.Validation("content_json must be valid JSON")
	}
	w, err := ownedWork(ctx, s.repos.Works, s.logger, principal, workID)
	if err != nil {
		return nil, err
	}

	var ch *models.Chapter
	err = withWorkLock(ctx, s.locker, s.logger, workID, func() error {
		var cerr error
		ch, cerr = s.repos.Chapters.Create(ctx, models.NewChapter{
			ID:       uuid.New(),
			WorkID:   w.ID,
			AuthorID: w.AuthorID,
			Title:    title,
			Content:  content,
		})
		if errors.Is(cerr, repository.ErrConflict) {
			// A sibling was moved onto the next index by an update.
			return apperr.Conflict("another chapter already has the next chapter_index")
		}
		if cerr != nil {
			return failed(s.logger, "create chapter", cerr, zap.String("work_id", workID.String()))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	publish(s.events, s.now, events.ChapterCreated, workID, ch.ID)
	return ch, nil
}

func (s *ChapterService) Get(ctx context.Context, principal, chapterID uuid.UUID) (*models.Chapter, error) {
	return s.ownedChapter(ctx, principal, chapterID)
}

// ListByWork returns the work's chapters by chapter_index ascending.
func (s *ChapterService) ListByWork(ctx context.Context, principal, workID uuid.UUID) ([]models.Chapter, error) {
	if _, err := ownedWork(ctx, s.repos.Works, s.logger, principal, workID); err != nil {
		return nil, err
	}
	chapters, err := s.repos.Chapters.ListByWork(ctx, workID)
	if err != nil {
		return nil, failed(s.logger, "list chapters", err, zap.String("work_id", workID.String()))
	}
	return chapters, nil
}

// Update stores the supplied fields. An explicit chapter_index is taken
// as-is; one already used by a sibling is a conflict.
func (s *ChapterService) Update(ctx context.Context, principal, chapterID uuid.UUID, upd models.ChapterUpdate) (*models.Chapter, error) {
	if upd.Title != nil {
		if err := validateTitle(*upd.Title); err != nil {
			return nil, err
		}
	}
	if upd.ChapterIndex != nil && *upd.ChapterIndex < 0 {
		return nil, apperr.Validation("chapter_index must be a non-negative integer")
	}
	if len(upd.Content) > 0 && !json.Valid(upd.Content) {
		return nil, apperr.Validation("content_json must be valid JSON")
	}
	if _, err := s.ownedChapter(ctx, principal, chapterID); err != nil {
		return nil, err
	}

	ch, err := s.repos.Chapters.Update(ctx, chapterID, upd)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperr.Conflict("another chapter already has that chapter_index")
		}
		return nil, failed(s.logger, "update chapter", err, zap.String("chapter_id", chapterID.String()))
	}
	if ch == nil {
		return nil, apperr.NotFound("chapter")
	}

	publish(s.events, s.now, events.ChapterUpdated, ch.WorkID, ch.ID)
	return ch, nil
}

// Delete removes the chapter and shifts later chapters down by one.
func (s *ChapterService) Delete(ctx context.Context, principal, chapterID uuid.UUID) error {
	ch, err := s.ownedChapter(ctx, principal, chapterID)
	if err != nil {
		return err
	}

	err = withWorkLock(ctx, s.locker, s.logger, ch.WorkID, func() error {
		ok, derr := s.repos.Chapters.Delete(ctx, chapterID)
		if derr != nil {
			return failed(s.logger, "delete chapter", derr, zap.String("chapter_id", chapterID.String()))
		}
		if !ok {
			return apperr.NotFound("chapter")
		}
		return nil
	})
	if err != nil {
		return err
	}

	publish(s.events, s.now, events.ChapterDeleted, ch.WorkID, chapterID)
	return nil
}

// Reorder swaps the chapter with its neighbour in direction. workID may
// be uuid.Nil to mean the chapter's own work; otherwise it must match.
func (s *ChapterService) Reorder(ctx context.Context, principal, chapterID, workID uuid.UUID, dir models.Direction) error {
	if !dir.Valid() {
		return apperr.Validation("direction must be up or down")
	}
	ch, err := s.ownedChapter(ctx, principal, chapterID)
	if err != nil {
		return err
	}
	if workID == uuid.Nil {
		workID = ch.WorkID
	}
	if ch.WorkID != workID {
		return apperr.NotFound("chapter")
	}

	err = withWorkLock(ctx, s.locker, s.logger, workID, func() error {
		siblings, lerr := s.repos.Chapters.ListByWork(ctx, workID)
		if lerr != nil {
			return failed(s.logger, "list chapters", lerr, zap.String("work_id", workID.String()))
		}

		pos := -1
		for i := range siblings {
			if siblings[i].ID == chapterID {
				pos = i
				break
			}
		}
		if pos < 0 {
			return apperr.NotFound("chapter")
		}

		target := pos - 1
		if dir == models.DirectionDown {
			target = pos + 1
		}
		if target < 0 || target >= len(siblings) {
			return apperr.Validation("cannot move chapter in that direction")
		}

		// Swap the stored values rather than writing target positions, so
		// the set of indices is only permuted and can never gain a gap.
		ok, serr := s.repos.Chapters.SwapIndexes(ctx, workID, chapterID, siblings[target].ID)
		if serr != nil {
			return failed(s.logger, "reorder chapters", serr,
				zap.String("work_id", workID.String()),
				zap.String("chapter_id", chapterID.String()),
			)
		}
		if !ok {
			return apperr.NotFound("chapter")
		}
		return nil
	})
	if err != nil {
		return err
	}

	publish(s.events, s.now, events.ChaptersReordered, workID, chapterID)
	return nil
}

// SaveRevision snapshots the chapter's current content.
func (s *ChapterService) SaveRevision(ctx context.Context, principal, chapterID uuid.UUID, summary *string) (*models.ChapterRevision, error) {
	ch, err := s.ownedChapter(ctx, principal, chapterID)
	if err != nil {
		return nil, err
	}

	rev, err := s.repos.Revisions.Create(ctx, models.ChapterRevision{
		ID:        uuid.New(),
		ChapterID: ch.ID,
		AuthorID:  ch.AuthorID,
		Content:   ch.Content,
		Summary:   summary,
	})
	if err != nil {
		return nil, failed(s.logger, "save revision", err, zap.String("chapter_id", chapterID.String()))
	}

	publish(s.events, s.now, events.RevisionCreated, ch.WorkID, rev.ID)
	return rev, nil
}

// ListRevisions returns the chapter's revisions, newest first.
func (s *ChapterService) ListRevisions(ctx context.Context, principal, chapterID uuid.UUID) ([]models.ChapterRevision, error) {
	if _, err := s.ownedChapter(ctx, principal, chapterID); err != nil {
		return nil, err
	}
	revs, err := s.repos.Revisions.ListByChapter(ctx, chapterID)
	if err != nil {
		return nil, failed(s.logger, "list revisions", err, zap.String("chapter_id", chapterID.String()))
	}
	return revs, nil
}
