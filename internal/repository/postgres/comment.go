package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/inkwell/internal/models"
)

const commentColumns = `id, chapter_id, author_id, anchor, body, status, created_at, resolved_at`

type CommentStore struct {
	pool *pgxpool.Pool
}

func NewCommentStore(pool *pgxpool.Pool) *CommentStore {
	return &CommentStore{pool: pool}
}

func scanComment(row scanner) (*models.InlineComment, error) {
	var (
		c      models.InlineComment
		anchor []byte
	)
	if err := row.Scan(
		&c.ID,
		&c.ChapterID,
		&c.AuthorID,
		&anchor,
		&c.Body,
		&c.Status,
		&c.CreatedAt,
		&c.ResolvedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(anchor, &c.Anchor); err != nil {
		return nil, fmt.Errorf("decode anchor: %w", err)
	}
	return &c, nil
}

func (s *CommentStore) Create(ctx context.Context, c models.InlineComment) (*models.InlineComment, error) {
	anchor, err := json.Marshal(c.Anchor)
	if err != nil {
		return nil, fmt.Errorf("encode anchor: %w", err)
	}
	status := c.Status
	if status == "" {
		status = models.CommentOpen
	}

	query := `
		INSERT INTO inline_comments (id, chapter_id, author_id, anchor, body, status, created_at, resolved_at)
		VALUES ($1, $2, $3, $4::jsonb, $5, $6, now(), $7)
		RETURNING ` + commentColumns

	out, err := scanComment(s.pool.QueryRow(ctx, query,
		c.ID, c.ChapterID, c.AuthorID, string(anchor), c.Body, status, c.ResolvedAt))
	if err != nil {
		return nil, wrap("insert comment", err)
	}
	return out, nil
}

func (s *CommentStore) GetByID(ctx context.Context, commentID uuid.UUID) (*models.InlineComment, error) {
	query := `SELECT ` + commentColumns + ` FROM inline_comments WHERE id = $1`

	c, err := scanComment(s.pool.QueryRow(ctx, query, commentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrap("get comment", err)
	}
	return c, nil
}

func (s *CommentStore) ListByChapter(ctx context.Context, chapterID uuid.UUID) ([]models.InlineComment, error) {
	query := `
		SELECT ` + commentColumns + `
		FROM inline_comments
		WHERE chapter_id = $1
		ORDER BY created_at ASC, id`

	rows, err := s.pool.Query(ctx, query, chapterID)
	if err != nil {
		return nil, wrap("list comments", err)
	}
	defer rows.Close()

	comments := make([]models.InlineComment, 0)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, wrap("scan comment", err)
		}
		comments = append(comments, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate comments", err)
	}
	return comments, nil
}

func (s *CommentStore) SetStatus(ctx context.Context, commentID uuid.UUID, status models.CommentStatus, resolvedAt *time.Time) (*models.InlineComment, error) {
	query := `
		UPDATE inline_comments SET
			status      = $2,
			resolved_at = $3
		WHERE id = $1
		RETURNING ` + commentColumns

	c, err := scanComment(s.pool.QueryRow(ctx, query, commentID, status, resolvedAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrap("update comment status", err)
	}
	return c, nil
}
