package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/inkwell/internal/models"
)

const shareColumns = `id, work_id, token, created_at, expires_at`

type ShareStore struct {
	pool *pgxpool.Pool
}

func NewShareStore(pool *pgxpool.Pool) *ShareStore {
	return &ShareStore{pool: pool}
}

func scanShare(row scanner) (*models.WorkShare, error) {
	var sh models.WorkShare
	if err := row.Scan(&sh.ID, &sh.WorkID, &sh.Token, &sh.CreatedAt, &sh.ExpiresAt); err != nil {
		return nil, err
	}
	return &sh, nil
}

func (s *ShareStore) Create(ctx context.Context, share models.WorkShare) (*models.WorkShare, error) {
	query := `
		INSERT INTO work_shares (id, work_id, token, created_at, expires_at)
		VALUES ($1, $2, $3, now(), $4)
		RETURNING ` + shareColumns

	sh, err := scanShare(s.pool.QueryRow(ctx, query, share.ID, share.WorkID, share.Token, share.ExpiresAt))
	if err != nil {
		return nil, wrap("insert share", err)
	}
	return sh, nil
}

func (s *ShareStore) GetByID(ctx context.Context, shareID uuid.UUID) (*models.WorkShare, error) {
	query := `SELECT ` + shareColumns + ` FROM work_shares WHERE id = $1`

	sh, err := scanShare(s.pool.QueryRow(ctx, query, shareID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrap("get share", err)
	}
	return sh, nil
}

func (s *ShareStore) GetByToken(ctx context.Context, token string) (*models.WorkShare, error) {
	query := `SELECT ` + shareColumns + ` FROM work_shares WHERE token = $1`

	sh, err := scanShare(s.pool.QueryRow(ctx, query, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrap("get share by token", err)
	}
	return sh, nil
}

func (s *ShareStore) ListByWork(ctx context.Context, workID uuid.UUID) ([]models.WorkShare, error) {
	query := `
		SELECT ` + shareColumns + `
		FROM work_shares
		WHERE work_id = $1
		ORDER BY created_at DESC, id`

	rows, err := s.pool.Query(ctx, query, workID)
	if err != nil {
		return nil, wrap("list shares", err)
	}
	defer rows.Close()

	shares := make([]models.WorkShare, 0)
	for rows.Next() {
		sh, err := scanShare(rows)
		if err != nil {
			return nil, wrap("scan share", err)
		}
		shares = append(shares, *sh)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate shares", err)
	}
	return shares, nil
}

func (s *ShareStore) Delete(ctx context.Context, shareID uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM work_shares WHERE id = $1`, shareID)
	if err != nil {
		return false, wrap("delete share", err)
	}
	return tag.RowsAffected() > 0, nil
}
