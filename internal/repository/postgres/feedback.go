package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/inkwell/internal/models"
)

const feedbackColumns = `id, chapter_id, reader_id, answers, created_at`

type FeedbackStore struct {
	pool *pgxpool.Pool
}

func NewFeedbackStore(pool *pgxpool.Pool) *FeedbackStore {
	return &FeedbackStore{pool: pool}
}

func scanFeedback(row scanner) (*models.ChapterFeedback, error) {
	var (
		fb      models.ChapterFeedback
		answers []byte
	)
	if err := row.Scan(&fb.ID, &fb.ChapterID, &fb.ReaderID, &answers, &fb.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(answers, &fb.Answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	return &fb, nil
}

func (s *FeedbackStore) Create(ctx context.Context, fb models.ChapterFeedback) (*models.ChapterFeedback, error) {
	answers, err := json.Marshal(fb.Answers)
	if err != nil {
		return nil, fmt.Errorf("encode answers: %w", err)
	}

	query := `
		INSERT INTO chapter_feedback (id, chapter_id, reader_id, answers, created_at)
		VALUES ($1, $2, $3, $4::jsonb, now())
		RETURNING ` + feedbackColumns

	out, err := scanFeedback(s.pool.QueryRow(ctx, query, fb.ID, fb.ChapterID, fb.ReaderID, string(answers)))
	if err != nil {
		return nil, wrap("insert feedback", err)
	}
	return out, nil
}

func (s *FeedbackStore) ListByChapter(ctx context.Context, chapterID uuid.UUID) ([]models.ChapterFeedback, error) {
	query := `
		SELECT ` + feedbackColumns + `
		FROM chapter_feedback
		WHERE chapter_id = $1
		ORDER BY created_at DESC, id`

	rows, err := s.pool.Query(ctx, query, chapterID)
	if err != nil {
		return nil, wrap("list feedback", err)
	}
	defer rows.Close()

	feedback := make([]models.ChapterFeedback, 0)
	for rows.Next() {
		fb, err := scanFeedback(rows)
		if err != nil {
			return nil, wrap("scan feedback", err)
		}
		feedback = append(feedback, *fb)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate feedback", err)
	}
	return feedback, nil
}
