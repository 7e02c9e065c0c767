package service

import (
	"context"
	"errors"
	"strings"
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

// ShareLink is a share together with the URL handed to readers.
type ShareLink struct {
	models.WorkShare
	URL string `json:"url"`
}

type ShareService struct {
	repos   Repos
	siteURL string
	events  events.Publisher
	logger  *zap.Logger
	now     func() time.Time
}

func NewShareService(repos Repos, siteURL string, pub events.Publisher, logger *zap.Logger) *ShareService {
	if pub == nil {
		pub = events.Discard{}
	}
	return &ShareService{
		repos:   repos,
		siteURL: strings.TrimRight(siteURL, "/"),
		events:  pub,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *ShareService) link(share models.WorkShare) ShareLink {
	return ShareLink{WorkShare: share, URL: s.siteURL + "/share/" + share.Token}
}

// Create issues a new token for the work. expiresAt is optional and must
// lie in the future.
func (s *ShareService) Create(ctx context.Context, principal, workID uuid.UUID, expiresAt *time.Time) (*ShareLink, error) {
	if expiresAt != nil && !expiresAt.After(s.now()) {
		return nil, apperr.Validation("expires_at must be in the future")
	}
	if _, err := ownedWork(ctx, s.repos.Works, s.logger, principal, workID); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < createRetries; attempt++ {
		share, err := s.repos.Shares.Create(ctx, models.WorkShare{
			ID:        uuid.New(),
			WorkID:    workID,
			Token:     ident.GenerateToken(ident.TokenLen),
			ExpiresAt: expiresAt,
		})
		if err == nil {
			publish(s.events, s.now, events.ShareCreated, workID, share.ID)
			link := s.link(*share)
			return &link, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return nil, failed(s.logger, "create share", err, zap.String("work_id", workID.String()))
		}
	}
	return nil, apperr.Conflict("could not allocate a unique share token")
}

// Resolve returns the share for token while it is still active. Unknown
// and expired tokens look the same to the caller.
func (s *ShareService) Resolve(ctx context.Context, token string) (*models.WorkShare, error) {
	if token == "" {
		return nil, apperr.NotFound("share")
	}
	share, err := s.repos.Shares.GetByToken(ctx, token)
	if err != nil {
		return nil, failed(s.logger, "resolve share", err)
	}
	if share == nil || !share.ActiveAt(s.now()) {
		return nil, apperr.NotFound("share")
	}
	return share, nil
}

// sharedWork returns the work token grants read access to. A work made
// private after the link was issued no longer opens.
func (s *ShareService) sharedWork(ctx context.Context, token string) (*models.Work, error) {
	share, err := s.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	w, err := s.repos.Works.GetByID(ctx, share.WorkID)
	if err != nil {
		return nil, failed(s.logger, "load work", err, zap.String("work_id", share.WorkID.String()))
	}
	if w == nil || w.Visibility == models.VisibilityPrivate {
		return nil, apperr.NotFound("work")
	}
	return w, nil
}

// Open resolves token to the work it grants, with its chapters in order.
func (s *ShareService) Open(ctx context.Context, token string) (*models.WorkWithChapters, error) {
	w, err := s.sharedWork(ctx, token)
	if err != nil {
		return nil, err
	}
	author, err := s.repos.Profiles.GetByID(ctx, w.AuthorID)
	if err != nil {
		return nil, failed(s.logger, "load profile", err, zap.String("user_id", w.AuthorID.String()))
	}
	return withChapters(ctx, s.repos.Chapters, s.logger, *w, author)
}

// ListByWork returns the work's shares, newest first, expired included.
func (s *ShareService) ListByWork(ctx context.Context, principal, workID uuid.UUID) ([]ShareLink, error) {
	if _, err := ownedWork(ctx, s.repos.Works, s.logger, principal, workID); err != nil {
		return nil, err
	}
	shares, err := s.repos.Shares.ListByWork(ctx, workID)
	if err != nil {
		return nil, failed(s.logger, "list shares", err, zap.String("work_id", workID.String()))
	}
	links := make([]ShareLink, 0, len(shares))
	for _, sh := range shares {
		links = append(links, s.link(sh))
	}
	return links, nil
}

// Delete revokes a share. The token stops resolving immediately.
func (s *ShareService) Delete(ctx context.Context, principal, shareID uuid.UUID) error {
	if err := policy.RequirePrincipal(principal); err != nil {
		return err
	}
	share, err := s.repos.Shares.GetByID(ctx, shareID)
	if err != nil {
		return failed(s.logger, "load share", err, zap.String("share_id", shareID.String()))
	}
	if share == nil {
		return apperr.NotFound("share")
	}
	if _, err := ownedWork(ctx, s.repos.Works, s.logger, principal, share.WorkID); err != nil {
		return err
	}

	ok, err := s.repos.Shares.Delete(ctx, shareID)
	if err != nil {
		return failed(s.logger, "delete share", err, zap.String("share_id", shareID.String()))
	}
	if !ok {
		return apperr.NotFound("share")
	}

	publish(s.events, s.now, events.ShareDeleted, share.WorkID, shareID)
	return nil
}
