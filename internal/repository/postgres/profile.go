package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/inkwell/internal/models"
)

const profileColumns = `id, handle, display_name, bio, created_at, updated_at`

type ProfileStore struct {
	pool *pgxpool.Pool
}

func NewProfileStore(pool *pgxpool.Pool) *ProfileStore {
	return &ProfileStore{pool: pool}
}

func scanProfile(row scanner) (*models.Profile, error) {
	var p models.Profile
	if err := row.Scan(&p.ID, &p.Handle, &p.DisplayName, &p.Bio, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *ProfileStore) Create(ctx context.Context, id uuid.UUID, handle, displayName string) (*models.Profile, error) {
	query := `
		INSERT INTO profiles (id, handle, display_name, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		RETURNING ` + profileColumns

	p, err := scanProfile(s.pool.QueryRow(ctx, query, id, handle, displayName))
	if err != nil {
		return nil, wrap("insert profile", err)
	}
	return p, nil
}

func (s *ProfileStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	p, err := scanProfile(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrap("get profile", err)
	}
	return p, nil
}

func (s *ProfileStore) GetByHandle(ctx context.Context, handle string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE handle = $1`

	p, err := scanProfile(s.pool.QueryRow(ctx, query, handle))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrap("get profile by handle", err)
	}
	return p, nil
}

// Update uses COALESCE so a nil field keeps its stored value.
func (s *ProfileStore) Update(ctx context.Context, id uuid.UUID, upd models.ProfileUpdate) (*models.Profile, error) {
	query := `
		UPDATE profiles SET
			handle       = COALESCE($2, handle),
			display_name = COALESCE($3, display_name),
			bio          = COALESCE($4, bio),
			updated_at   = now()
		WHERE id = $1
		RETURNING ` + profileColumns

	p, err := scanProfile(s.pool.QueryRow(ctx, query, id, upd.Handle, upd.DisplayName, upd.Bio))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrap("update profile", err)
	}
	return p, nil
}
