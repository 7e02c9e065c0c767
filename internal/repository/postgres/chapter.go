package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/inkwell/internal/models"
)

const chapterColumns = `id, work_id, author_id, chapter_index, title, content_json, created_at, updated_at`

// ChapterStore keeps chapter_index contiguous per work. Every statement
// that changes indices runs in a transaction that first locks the parent
// works row, so index-changing writes on one work are serialized while
// different works proceed in parallel.
type ChapterStore struct {
	pool *pgxpool.Pool
}

func NewChapterStore(pool *pgxpool.Pool) *ChapterStore {
	return &ChapterStore{pool: pool}
}

func scanChapter(row scanner) (*models.Chapter, error) {
	var (
		ch      models.Chapter
		content []byte
	)
	if err := row.Scan(
		&ch.ID,
		&ch.WorkID,
		&ch.AuthorID,
		&ch.ChapterIndex,
		&ch.Title,
		&content,
		&ch.CreatedAt,
		&ch.UpdatedAt,
	); err != nil {
		return nil, err
	}
	ch.Content = json.RawMessage(content)
	return &ch, nil
}

// lockWork takes a row lock on the work. It returns false if the work
// does not exist.
func lockWork(ctx context.Context, tx pgx.Tx, workID uuid.UUID) (bool, error) {
	var id uuid.UUID
	err := tx.QueryRow(ctx, `SELECT id FROM works WHERE id = $1 FOR UPDATE`, workID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *ChapterStore) Create(ctx context.Context, nc models.NewChapter) (*models.Chapter, error) {
	content := nc.Content
	if len(content) == 0 {
		content = json.RawMessage(`[]`)
	}

	var ch *models.Chapter
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := lockWork(ctx, tx, nc.WorkID); err != nil {
			return err
		}

		var next int
		if err := tx.QueryRow(ctx,
			`SELECT count(*) FROM chapters WHERE work_id = $1`, nc.WorkID,
		).Scan(&next); err != nil {
			return err
		}

		query := `
			INSERT INTO chapters (id, work_id, author_id, chapter_index, title, content_json, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6::jsonb, now(), now())
			RETURNING ` + chapterColumns

		var err error
		ch, err = scanChapter(tx.QueryRow(ctx, query,
			nc.ID, nc.WorkID, nc.AuthorID, next, nc.Title, string(content)))
		return err
	})
	if err != nil {
		return nil, wrap("insert chapter", err)
	}
	return ch, nil
}

func (s *ChapterStore) GetByID(ctx context.Context, chapterID uuid.UUID) (*models.Chapter, error) {
	query := `SELECT ` + chapterColumns + ` FROM chapters WHERE id = $1`

	ch, err := scanChapter(s.pool.QueryRow(ctx, query, chapterID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrap("get chapter", err)
	}
	return ch, nil
}

func (s *ChapterStore) ListByWork(ctx context.Context, workID uuid.UUID) ([]models.Chapter, error) {
	query := `
		SELECT ` + chapterColumns + `
		FROM chapters
		WHERE work_id = $1
		ORDER BY chapter_index ASC`

	rows, err := s.pool.Query(ctx, query, workID)
	if err != nil {
		return nil, wrap("list chapters", err)
	}
	defer rows.Close()

	chapters := make([]models.Chapter, 0)
	for rows.Next() {
		ch, err := scanChapter(rows)
		if err != nil {
			return nil, wrap("scan chapter", err)
		}
		chapters = append(chapters, *ch)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("iterate chapters", err)
	}
	return chapters, nil
}

func (s *ChapterStore) Update(ctx context.Context, chapterID uuid.UUID, upd models.ChapterUpdate) (*models.Chapter, error) {
	var content *string
	if upd.Content != nil {
		c := string(upd.Content)
		content = &c
	}

	query := `
		UPDATE chapters SET
			title         = COALESCE($2, title),
			content_json  = COALESCE($3::jsonb, content_json),
			chapter_index = COALESCE($4, chapter_index),
			updated_at    = now()
		WHERE id = $1
		RETURNING ` + chapterColumns

	var ch *models.Chapter
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		// A lone update has no swap in flight, so check the index
		// constraint at the statement rather than at commit.
		if _, err := tx.Exec(ctx, `SET CONSTRAINTS chapters_work_index_key IMMEDIATE`); err != nil {
			return err
		}
		var err error
		ch, err = scanChapter(tx.QueryRow(ctx, query, chapterID, upd.Title, content, upd.ChapterIndex))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrap("update chapter", err)
	}
	return ch, nil
}

// Delete removes the chapter and closes the gap it leaves, so the work's
// indices stay {0..n-1}.
func (s *ChapterStore) Delete(ctx context.Context, chapterID uuid.UUID) (bool, error) {
	deleted := false
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var workID uuid.UUID
		err := tx.QueryRow(ctx, `SELECT work_id FROM chapters WHERE id = $1`, chapterID).Scan(&workID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := lockWork(ctx, tx, workID); err != nil {
			return err
		}

		// Re-read under the lock: a concurrent move may have changed it.
		var index int
		err = tx.QueryRow(ctx,
			`DELETE FROM chapters WHERE id = $1 RETURNING chapter_index`, chapterID,
		).Scan(&index)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
			UPDATE chapters
			SET chapter_index = chapter_index - 1, updated_at = now()
			WHERE work_id = $1 AND chapter_index > $2`,
			workID, index,
		); err != nil {
			return err
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, wrap("delete chapter", err)
	}
	return deleted, nil
}

// SwapIndexes reads both rows under the work lock and writes each one's
// index onto the other.
//
// Why is chapters_work_index_key DEFERRABLE INITIALLY DEFERRED?
//   - Postgres checks an immediate unique constraint row by row, even
//     inside a single UPDATE. Midway through the swap both rows briefly
//     hold the same index and the statement would fail.
//   - Deferred, the check runs at commit, when the two indices have
//     simply traded places.
//   - The alternative is parking one row on a sentinel like -1 first,
//     which costs a third write and a CHECK that allows negatives.
func (s *ChapterStore) SwapIndexes(ctx context.Context, workID, a, b uuid.UUID) (bool, error) {
	swapped := false
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		found, err := lockWork(ctx, tx, workID)
		if err != nil || !found {
			return err
		}

		rows, err := tx.Query(ctx, `
			SELECT id, chapter_index FROM chapters
			WHERE work_id = $1 AND id IN ($2, $3)
			FOR UPDATE`,
			workID, a, b,
		)
		if err != nil {
			return err
		}
		indexes := make(map[uuid.UUID]int, 2)
		for rows.Next() {
			var (
				id  uuid.UUID
				idx int
			)
			if err := rows.Scan(&id, &idx); err != nil {
				rows.Close()
				return err
			}
			indexes[id] = idx
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		ia, okA := indexes[a]
		ib, okB := indexes[b]
		if !okA || !okB {
			return nil
		}

		if _, err := tx.Exec(ctx, `
			UPDATE chapters SET
				chapter_index = CASE id WHEN $2 THEN $4::int WHEN $3 THEN $5::int END,
				updated_at    = now()
			WHERE work_id = $1 AND id IN ($2, $3)`,
			workID, a, b, ib, ia,
		); err != nil {
			return err
		}
		swapped = true
		return nil
	})
	if err != nil {
		return false, wrap("swap chapter indexes", err)
	}
	return swapped, nil
}
