package postgres

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/inkwell/internal/models"
)

const revisionColumns = `id, chapter_id, author_id, content_json, summary, created_at`

type RevisionStore struct {
	pool *pgxpool.Pool
}

func NewRevisionStore(pool *pgxpool.Pool) *RevisionStore {
	return &RevisionStore{pool: pool}
}

func scanRevision(row scanner) (*models.ChapterRevision, error) {
	var (
		r       models.ChapterRevision
		content []byte
	)
	if err := row.Scan(&r.ID, &r.ChapterID, &r.AuthorID, &content, &r.Summary, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.Content = json.RawMessage(content)
	return &r, nil
}

func (s *RevisionStore) Create(ctx context.Context, rev models.ChapterRevision) (*models.ChapterRevision, error) {
	content := rev.Content
	if len(content) == 0 {
		content = json.RawMessage(`[]`)
	}

	query := `
		INSERT INTO chapter_revisions (id, chapter_id, author_id, content_json, summary, created_at)
		VALUES ($1, $2, $3, $4::jsonb, $5, now())
		RETURNING ` + revisionColumns

	r, err := scanRevision(s.pool.QueryRow(ctx, query,
		rev.ID, rev.ChapterID, rev.AuthorID, string(content), rev.Summary))
	if err != nil {
		return nil, wrap("insert revision", err)
	}
	return r, nil
}

func (s *RevisionStore) ListByChapter(ctx context.Context, chapterID uuid.UUID) ([]models.ChapterRevision, error) {
	query := `
		SELECT ` + revisionColumns + `
		FROM chapter_revisions
		WHERE chapter_id = $1
		ORDER BY created_at DESC, id`

	rows, err := s.pool.Query(ctx, query, chapterID)
	if err != nil {
		return nil, wrap("list revisions", err)
	}
	defer rows.Close()

	revisions := make([]models.ChapterRevision, 0)
	for rows.Next() {
		r, err := scanRevision(rows)
		if err != nil {
			return nil, wrap("scan revision", err)
		}
		revisions = append(revisions, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate revisions", err)
	}
	return revisions, nil
}
