package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/lalith-99/inkwell/internal/apperr"
	"github.com/lalith-99/inkwell/internal/ident"
	"github.com/lalith-99/inkwell/internal/models"
	"github.com/lalith-99/inkwell/internal/policy"
	"github.com/lalith-99/inkwell/internal/repository"
	"go.uber.org/zap"
)

type ProfileService struct {
	repo   repository.ProfileRepository
	logger *zap.Logger
}

func NewProfileService(repo repository.ProfileRepository, logger *zap.Logger) *ProfileService {
	return &ProfileService{repo: repo, logger: logger}
}

func (s *ProfileService) Get(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, failed(s.logger, "load profile", err, zap.String("user_id", id.String()))
	}
	if p == nil {
		return nil, apperr.NotFound("profile")
	}
	return p, nil
}

func (s *ProfileService) GetByHandle(ctx context.Context, handle string) (*models.Profile, error) {
	p, err := s.repo.GetByHandle(ctx, handle)
	if err != nil {
		return nil, failed(s.logger, "load profile", err, zap.String("handle", handle))
	}
	if p == nil {
		return nil, apperr.NotFound("profile")
	}
	return p, nil
}

// Ensure returns the principal's profile, creating it on first use. The
// handle comes from the local part of email, slugged and suffixed until
// no other profile holds it.
func (s *ProfileService) Ensure(ctx context.Context, principal uuid.UUID, email string) (*models.Profile, error) {
	if err := policy.RequirePrincipal(principal); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByID(ctx, principal)
	if err != nil {
		return nil, failed(s.logger, "load profile", err, zap.String("user_id", principal.String()))
	}
	if existing != nil {
		return existing, nil
	}

	local, _, _ := strings.Cut(email, "@")
	base := ident.GenerateSlug(local)
	if base == "" {
		base = "user"
	}
	displayName := email
	if displayName == "" {
		displayName = "User"
	}

	for attempt := 0; attempt < createRetries; attempt++ {
		var lookupErr error
		handle := ident.Disambiguate(base, func(h string) bool {
			if lookupErr != nil {
				return false
			}
			p, err := s.repo.GetByHandle(ctx, h)
			if err != nil {
				lookupErr = err
				return false
			}
			return p != nil
		})
		if lookupErr != nil {
			return nil, failed(s.logger, "check handle", lookupErr, zap.String("handle", base))
		}

		p, err := s.repo.Create(ctx, principal, handle, displayName)
		if err == nil {
			s.logger.Info("profile created",
				zap.String("user_id", principal.String()),
				zap.String("handle", p.Handle),
			)
			return p, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return nil, failed(s.logger, "create profile", err, zap.String("user_id", principal.String()))
		}

		// Either the handle was claimed in between, or a concurrent
		// request created this very profile.
		if p, gerr := s.repo.GetByID(ctx, principal); gerr == nil && p != nil {
			return p, nil
		}
	}
	return nil, apperr.Conflict("could not allocate a unique handle")
}

func (s *ProfileService) Update(ctx context.Context, principal uuid.UUID, upd models.ProfileUpdate) (*models.Profile, error) {
	if err := policy.RequirePrincipal(principal); err != nil {
		return nil, err
	}
	if upd.Handle != nil {
		if err := validateSlug("handle", *upd.Handle); err != nil {
			return nil, err
		}
	}
	if upd.DisplayName != nil && strings.TrimSpace(*upd.DisplayName) == "" {
		return nil, apperr.Validation("display name cannot be empty")
	}

	p, err := s.repo.Update(ctx, principal, upd)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperr.Conflict("handle is already taken")
		}
		return nil, failed(s.logger, "update profile", err, zap.String("user_id", principal.String()))
	}
	if p == nil {
		return nil, apperr.NotFound("profile")
	}
	return p, nil
}
