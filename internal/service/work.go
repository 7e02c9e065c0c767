package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/inkwell/internal/apperr"
	"github.com/lalith-99/inkwell/internal/events"
	"github.com/lalith-99/inkwell/internal/ident"
	"github.com/lalith-99/inkwell/internal/models"
	"github.com/lalith-99/inkwell/internal/policy"
	"github.com/lalith-99/inkwell/internal/repository"
	"go.uber.org/zap"
)

type WorkService struct {
	repos    Repos
	profiles *ProfileService
	events   events.Publisher
	logger   *zap.Logger
	now      func() time.Time
}

func NewWorkService(repos Repos, profiles *ProfileService, pub events.Publisher, logger *zap.Logger) *WorkService {
	if pub == nil {
		pub = events.Discard{}
	}
	return &WorkService{repos: repos, profiles: profiles, events: pub, logger: logger, now: time.Now}
}

// CreateWork is the input to Create. An empty Visibility means private.
type CreateWork struct {
	Title       string
	Description *string
	Visibility  models.Visibility
}

// Create makes a work owned by principal, creating the author profile on
// first use. The slug is derived from the title and suffixed with -1, -2,
// ... until no other work of the same author holds it.
func (s *WorkService) Create(ctx context.Context, principal uuid.UUID, email string, in CreateWork) (*models.Work, error) {
	if err := policy.RequirePrincipal(principal); err != nil {
		return nil, err
	}
	if err := validateTitle(in.Title); err != nil {
		return nil, err
	}
	if in.Visibility == "" {
		in.Visibility = models.VisibilityPrivate
	}
	if !in.Visibility.Valid() {
		return nil, apperr.Validation("visibility must be private, unlisted or public")
	}

	if _, err := s.profiles.Ensure(ctx, principal, email); err != nil {
		return nil, err
	}

	base := ident.GenerateSlug(in.Title)
	if base == "" {
		base = fallbackSlug
	}

	for attempt := 0; attempt < createRetries; attempt++ {
		existing, err := s.repos.Works.ListByAuthor(ctx, principal)
		if err != nil {
			return nil, failed(s.logger, "list works", err, zap.String("author_id", principal.String()))
		}
		taken := make(map[string]struct{}, len(existing))
		for _, w := range existing {
			taken[w.Slug] = struct{}{}
		}
		slug := ident.Disambiguate(base, func(c string) bool {
			_, ok := taken[c]
			return ok
		})

		w, err := s.repos.Works.Create(ctx, models.NewWork{
			ID:          uuid.New(),
			AuthorID:    principal,
			Title:       in.Title,
			Description: in.Description,
			Visibility:  in.Visibility,
			Slug:        slug,
		})
		if err == nil {
			s.logger.Info("work created",
				zap.String("work_id", w.ID.String()),
				zap.String("author_id", principal.String()),
				zap.String("slug", w.Slug),
			)
			return w, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return nil, failed(s.logger, "create work", err, zap.String("author_id", principal.String()))
		}
		// A concurrent create took the slug; recompute.
	}
	return nil, apperr.Conflict("could not allocate a unique slug")
}

func (s *WorkService) Get(ctx context.Context, principal, workID uuid.UUID) (*models.Work, error) {
	return ownedWork(ctx, s.repos.Works, s.logger, principal, workID)
}

// ListByAuthor returns authorID's works, most recently updated first.
// Anyone other than the author only sees public works.
func (s *WorkService) ListByAuthor(ctx context.Context, principal, authorID uuid.UUID) ([]models.Work, error) {
	works, err := s.repos.Works.ListByAuthor(ctx, authorID)
	if err != nil {
		return nil, failed(s.logger, "list works", err, zap.String("author_id", authorID.String()))
	}
	if principal == authorID && principal != uuid.Nil {
		return works, nil
	}
	public := make([]models.Work, 0, len(works))
	for _, w := range works {
		if w.Visibility == models.VisibilityPublic {
			public = append(public, w)
		}
	}
	return public, nil
}

// GetPublic resolves /w/{handle}/{slug}. Only public works resolve.
func (s *WorkService) GetPublic(ctx context.Context, handle, slug string) (*models.WorkWithChapters, error) {
	author, err := s.profiles.GetByHandle(ctx, handle)
	if err != nil {
		return nil, err
	}
	w, err := s.repos.Works.GetByAuthorSlug(ctx, author.ID, slug)
	if err != nil {
		return nil, failed(s.logger, "load work", err, zap.String("handle", handle), zap.String("slug", slug))
	}
	if w == nil || w.Visibility != models.VisibilityPublic {
		return nil, apperr.NotFound("work")
	}
	return withChapters(ctx, s.repos.Chapters, s.logger, *w, author)
}

// Update applies a partial change. A supplied slug must be slug-shaped
// and unused by the author's other works. Sending back the current slug
// is a no-op for it, since generated slugs may be shorter than a chosen
// one is allowed to be.
func (s *WorkService) Update(ctx context.Context, principal, workID uuid.UUID, upd models.WorkUpdate) (*models.Work, error) {
	w, err := ownedWork(ctx, s.repos.Works, s.logger, principal, workID)
	if err != nil {
		return nil, err
	}

	if upd.Title != nil {
		if err := validateTitle(*upd.Title); err != nil {
			return nil, err
		}
	}
	if upd.Visibility != nil && !upd.Visibility.Valid() {
		return nil, apperr.Validation("visibility must be private, unlisted or public")
	}
	if upd.Slug != nil && *upd.Slug == w.Slug {
		upd.Slug = nil
	}
	if upd.Slug != nil {
		if err := validateSlug("slug", *upd.Slug); err != nil {
			return nil, err
		}
		other, err := s.repos.Works.GetByAuthorSlug(ctx, w.AuthorID, *upd.Slug)
		if err != nil {
			return nil, failed(s.logger, "check slug", err, zap.String("work_id", workID.String()))
		}
		if other != nil && other.ID != w.ID {
			return nil, apperr.Conflict("you already have a work with that slug")
		}
	}

	updated, err := s.repos.Works.Update(ctx, workID, upd)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperr.Conflict("you already have a work with that slug")
		}
		return nil, failed(s.logger, "update work", err, zap.String("work_id", workID.String()))
	}
	if updated == nil {
		return nil, apperr.NotFound("work")
	}

	publish(s.events, s.now, events.WorkUpdated, workID, workID)
	return updated, nil
}

// Delete removes the work together with its chapters and shares.
func (s *WorkService) Delete(ctx context.Context, principal, workID uuid.UUID) error {
	if _, err := ownedWork(ctx, s.repos.Works, s.logger, principal, workID); err != nil {
		return err
	}

	ok, err := s.repos.Works.Delete(ctx, workID)
	if err != nil {
		return failed(s.logger, "delete work", err, zap.String("work_id", workID.String()))
	}
	if !ok {
		return apperr.NotFound("work")
	}

	s.logger.Info("work deleted", zap.String("work_id", workID.String()))
	publish(s.events, s.now, events.WorkDeleted, workID, workID)
	return nil
}

func withChapters(ctx context.Context, chapters repository.ChapterRepository, logger *zap.Logger, w models.Work, author *models.Profile) (*models.WorkWithChapters, error) {
	list, err := chapters.ListByWork(ctx, w.ID)
	if err != nil {
		return nil, failed(logger, "list chapters", err, zap.String("work_id", w.ID.String()))
	}
	return &models.WorkWithChapters{Work: w, Author: author, Chapters: list}, nil
}
