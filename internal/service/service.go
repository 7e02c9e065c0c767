// Package service holds the operations behind every handler. Each one
// takes the caller's principal explicitly, checks ownership through
// policy, validates input and only then touches storage.
//
// Errors returned from this package are always *apperr.Error.
package service

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/lalith-99/inkwell/internal/apperr"
	"github.com/lalith-99/inkwell/internal/events"
	"github.com/lalith-99/inkwell/internal/ident"
	"github.com/lalith-99/inkwell/internal/lock"
	"github.com/lalith-99/inkwell/internal/models"
	"github.com/lalith-99/inkwell/internal/policy"
	"github.com/lalith-99/inkwell/internal/repository"
	"go.uber.org/zap"
)

const (
	maxTitleLen   = 200
	minSlugLen    = 3
	fallbackSlug  = "untitled"
	createRetries = 3
)

// Repos bundles the storage the services read and write.
type Repos struct {
	Profiles  repository.ProfileRepository
	Works     repository.WorkRepository
	Chapters  repository.ChapterRepository
	Revisions repository.RevisionRepository
	Shares    repository.ShareRepository
	Comments  repository.CommentRepository
	Feedback  repository.FeedbackRepository
}

func validateTitle(title string) error {
	n := utf8.RuneCountInString(title)
	if n == 0 {
		return apperr.Validation("title is required")
	}
	if n > maxTitleLen {
		return apperr.Validation("title must be at most %d characters", maxTitleLen)
	}
	return nil
}

func validateSlug(field, slug string) error {
	if len(slug) < minSlugLen || len(slug) > ident.MaxSlugLen {
		return apperr.Validation("%s must be %d to %d characters", field, minSlugLen, ident.MaxSlugLen)
	}
	if !ident.IsSlug(slug) {
		return apperr.Validation("%s may only contain lowercase letters, digits and single hyphens", field)
	}
	return nil
}

// failed logs err and hides it behind a generic message.
func failed(logger *zap.Logger, op string, err error, fields ...zap.Field) error {
	logger.Error(op+" failed", append(fields, zap.Error(err))...)
	return apperr.Storage("failed to "+op, err)
}

// ownedWork loads a work the principal may change.
func ownedWork(ctx context.Context, works repository.WorkRepository, logger *zap.Logger, principal, workID uuid.UUID) (*models.Work, error) {
	if err := policy.RequirePrincipal(principal); err != nil {
		return nil, err
	}
	w, err := works.GetByID(ctx, workID)
	if err != nil {
		return nil, failed(logger, "load work", err, zap.String("work_id", workID.String()))
	}
	if w == nil {
		return nil, apperr.NotFound("work")
	}
	if err := policy.CanMutate(principal, w.AuthorID); err != nil {
		return nil, err
	}
	return w, nil
}

// ownedChapter loads a chapter the principal may change.
func ownedChapter(ctx context.Context, chapters repository.ChapterRepository, logger *zap.Logger, principal, chapterID uuid.UUID) (*models.Chapter, error) {
	if err := policy.RequirePrincipal(principal); err != nil {
		return nil, err
	}
	ch, err := chapters.GetByID(ctx, chapterID)
	if err != nil {
		return nil, failed(logger, "load chapter", err, zap.String("chapter_id", chapterID.String()))
	}
	if ch == nil {
		return nil, apperr.NotFound("chapter")
	}
	if err := policy.CanMutate(principal, ch.AuthorID); err != nil {
		return nil, err
	}
	return ch, nil
}

// withWorkLock runs fn while holding the work's ordering lock.
//
// Why a lock on top of the Postgres row lock?
//   - Reorder reads the sibling list, picks a neighbour and then swaps.
//     The row lock only lives inside SwapIndexes, so without this lock two
//     moves could both read the same list and pick stale neighbours.
//   - The in-memory backend has no transactions at all; this lock is what
//     keeps its indices contiguous.
//
// Why run unlock with WithoutCancel? A cancelled request must still hand
// the lock back, or the next writer waits out the whole lease.
func withWorkLock(ctx context.Context, locker lock.Locker, logger *zap.Logger, workID uuid.UUID, fn func() error) error {
	unlock, err := locker.Lock(ctx, "work:"+workID.String())
	if err != nil {
		if errors.Is(err, lock.ErrTimeout) {
			return apperr.Conflict("another change to this work is in progress, try again")
		}
		return failed(logger, "lock work", err, zap.String("work_id", workID.String()))
	}
	defer func() {
		if uerr := unlock(context.WithoutCancel(ctx)); uerr != nil {
			logger.Warn("release work lock", zap.String("work_id", workID.String()), zap.Error(uerr))
		}
	}()
	return fn()
}

func publish(pub events.Publisher, now func() time.Time, typ events.Type, workID, entityID uuid.UUID) {
	pub.Publish(events.Event{Type: typ, WorkID: workID, EntityID: entityID, At: now().UTC()})
}
