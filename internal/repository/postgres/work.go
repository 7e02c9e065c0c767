package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/inkwell/internal/models"
)

const workColumns = `id, author_id, title, description, visibility, slug, created_at, updated_at`

type WorkStore struct {
	pool *pgxpool.Pool
}

func NewWorkStore(pool *pgxpool.Pool) *WorkStore {
	return &WorkStore{pool: pool}
}

func scanWork(row scanner) (*models.Work, error) {
	var w models.Work
	if err := row.Scan(
		&w.ID,
		&w.AuthorID,
		&w.Title,
		&w.Description,
		&w.Visibility,
		&w.Slug,
		&w.CreatedAt,
		&w.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *WorkStore) Create(ctx context.Context, nw models.NewWork) (*models.Work, error) {
	query := `
		INSERT INTO works (id, author_id, title, description, visibility, slug, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING ` + workColumns

	w, err := scanWork(s.pool.QueryRow(ctx, query,
		nw.ID, nw.AuthorID, nw.Title, nw.Description, nw.Visibility, nw.Slug))
	if err != nil {
		return nil, wrap("insert work", err)
	}
	return w, nil
}

func (s *WorkStore) GetByID(ctx context.Context, workID uuid.UUID) (*models.Work, error) {
	query := `SELECT ` + workColumns + ` FROM works WHERE id = $1`

	w, err := scanWork(s.pool.QueryRow(ctx, query, workID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrap("get work", err)
	}
	return w, nil
}

func (s *WorkStore) GetByAuthorSlug(ctx context.Context, authorID uuid.UUID, slug string) (*models.Work, error) {
	query := `SELECT ` + workColumns + ` FROM works WHERE author_id = $1 AND slug = $2`

	w, err := scanWork(s.pool.QueryRow(ctx, query, authorID, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrap("get work by slug", err)
	}
	return w, nil
}

func (s *WorkStore) ListByAuthor(ctx context.Context, authorID uuid.UUID) ([]models.Work, error) {
	query := `
		SELECT ` + workColumns + `
		FROM works
		WHERE author_id = $1
		ORDER BY updated_at DESC, id`

	rows, err := s.pool.Query(ctx, query, authorID)
	if err != nil {
		return nil, wrap("list works", err)
	}
	defer rows.Close()

	works := make([]models.Work, 0)
	for rows.Next() {
		w, err := scanWork(rows)
		if err != nil {
			return nil, wrap("scan work", err)
		}
		works = append(works, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate works", err)
	}
	return works, nil
}

// Update writes only the supplied fields. Description has three states:
// nil keeps it, a value sets it, ClearDescription nulls it.
func (s *WorkStore) Update(ctx context.Context, workID uuid.UUID, upd models.WorkUpdate) (*models.Work, error) {
	query := `
		UPDATE works SET
			title       = COALESCE($2, title),
			description = CASE WHEN $3 THEN NULL ELSE COALESCE($4, description) END,
			visibility  = COALESCE($5, visibility),
			slug        = COALESCE($6, slug),
			updated_at  = now()
		WHERE id = $1
		RETURNING ` + workColumns

	w, err := scanWork(s.pool.QueryRow(ctx, query,
		workID, upd.Title, upd.ClearDescription, upd.Description, upd.Visibility, upd.Slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrap("update work", err)
	}
	return w, nil
}

// Delete relies on ON DELETE CASCADE for chapters, revisions and shares.
func (s *WorkStore) Delete(ctx context.Context, workID uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM works WHERE id = $1`, workID)
	if err != nil {
		return false, wrap("delete work", err)
	}
	return tag.RowsAffected() > 0, nil
}
