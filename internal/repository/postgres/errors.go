package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lalith-99/inkwell/internal/repository"
)

const uniqueViolation = "23505"

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// wrap annotates err with op, tagging unique violations with
// repository.ErrConflict so callers can match them with errors.Is.
func wrap(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w: %w", op, repository.ErrConflict, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

var (
	_ repository.ProfileRepository  = (*ProfileStore)(nil)
	_ repository.WorkRepository     = (*WorkStore)(nil)
	_ repository.ChapterRepository  = (*ChapterStore)(nil)
	_ repository.RevisionRepository = (*RevisionStore)(nil)
	_ repository.ShareRepository    = (*ShareStore)(nil)
	_ repository.CommentRepository  = (*CommentStore)(nil)
	_ repository.FeedbackRepository = (*FeedbackStore)(nil)
)
