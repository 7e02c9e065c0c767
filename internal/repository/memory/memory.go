// Package memory implements the repository interfaces on in-process maps.
// It mirrors the Postgres schema's rules, including unique keys, cascades
// and chapter index compaction. It backs STORAGE=memory and the service
// tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/inkwell/internal/models"
	"github.com/lalith-99/inkwell/internal/repository"
)

// DB is the shared state behind every store. One mutex guards all maps,
// so each method is atomic, including multi-row ones like SwapIndexes.
type DB struct {
	mu  sync.RWMutex
	now func() time.Time
	seq int64

	profiles  map[uuid.UUID]models.Profile
	works     map[uuid.UUID]record[models.Work]
	chapters  map[uuid.UUID]models.Chapter
	revisions map[uuid.UUID]record[models.ChapterRevision]
	shares    map[uuid.UUID]record[models.WorkShare]
	comments  map[uuid.UUID]record[models.InlineComment]
	feedback  map[uuid.UUID]record[models.ChapterFeedback]
}

// record pairs a row with its insertion sequence, which breaks ties
// between rows that share a timestamp.
type record[T any] struct {
	row T
	seq int64
}

func New() *DB {
	return NewWithClock(time.Now)
}

func NewWithClock(now func() time.Time) *DB {
	return &DB{
		now:       now,
		profiles:  make(map[uuid.UUID]models.Profile),
		works:     make(map[uuid.UUID]record[models.Work]),
		chapters:  make(map[uuid.UUID]models.Chapter),
		revisions: make(map[uuid.UUID]record[models.ChapterRevision]),
		shares:    make(map[uuid.UUID]record[models.WorkShare]),
		comments:  make(map[uuid.UUID]record[models.InlineComment]),
		feedback:  make(map[uuid.UUID]record[models.ChapterFeedback]),
	}
}

func (db *DB) Profiles() *ProfileStore   { return &ProfileStore{db: db} }
func (db *DB) Works() *WorkStore         { return &WorkStore{db: db} }
func (db *DB) Chapters() *ChapterStore   { return &ChapterStore{db: db} }
func (db *DB) Revisions() *RevisionStore { return &RevisionStore{db: db} }
func (db *DB) Shares() *ShareStore       { return &ShareStore{db: db} }
func (db *DB) Comments() *CommentStore   { return &CommentStore{db: db} }
func (db *DB) Feedback() *FeedbackStore  { return &FeedbackStore{db: db} }

func (db *DB) nextSeq() int64 {
	db.seq++
	return db.seq
}

// dropChapterLocked removes a chapter and the rows that reference it.
// It does not touch sibling indices.
func (db *DB) dropChapterLocked(chapterID uuid.UUID) {
	delete(db.chapters, chapterID)
	for id, rec := range db.revisions {
		if rec.row.ChapterID == chapterID {
			delete(db.revisions, id)
		}
	}
	for id, rec := range db.comments {
		if rec.row.ChapterID == chapterID {
			delete(db.comments, id)
		}
	}
	for id, rec := range db.feedback {
		if rec.row.ChapterID == chapterID {
			delete(db.feedback, id)
		}
	}
}

func conflict(what string) error {
	return fmt.Errorf("%s: %w", what, repository.ErrConflict)
}

func cloneJSON(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}

// ---------------------------------------------------------------
// Profiles
// ---------------------------------------------------------------

type ProfileStore struct{ db *DB }

func (s *ProfileStore) Create(_ context.Context, id uuid.UUID, handle, displayName string) (*models.Profile, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.profiles[id]; ok {
		return nil, conflict("insert profile")
	}
	for _, p := range s.db.profiles {
		if p.Handle == handle {
			return nil, conflict("insert profile")
		}
	}
	now := s.db.now()
	p := models.Profile{ID: id, Handle: handle, DisplayName: displayName, CreatedAt: now, UpdatedAt: now}
	s.db.profiles[id] = p
	return &p, nil
}

func (s *ProfileStore) GetByID(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	p, ok := s.db.profiles[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *ProfileStore) GetByHandle(_ context.Context, handle string) (*models.Profile, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	for _, p := range s.db.profiles {
		if p.Handle == handle {
			return &p, nil
		}
	}
	return nil, nil
}

func (s *ProfileStore) Update(_ context.Context, id uuid.UUID, upd models.ProfileUpdate) (*models.Profile, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	p, ok := s.db.profiles[id]
	if !ok {
		return nil, nil
	}
	if upd.Handle != nil && *upd.Handle != p.Handle {
		for _, other := range s.db.profiles {
			if other.Handle == *upd.Handle {
				return nil, conflict("update profile")
			}
		}
		p.Handle = *upd.Handle
	}
	if upd.DisplayName != nil {
		p.DisplayName = *upd.DisplayName
	}
	if upd.Bio != nil {
		bio := *upd.Bio
		p.Bio = &bio
	}
	p.UpdatedAt = s.db.now()
	s.db.profiles[id] = p
	return &p, nil
}

// ---------------------------------------------------------------
// Works
// ---------------------------------------------------------------

type WorkStore struct{ db *DB }

func (s *WorkStore) slugTakenLocked(authorID uuid.UUID, slug string, except uuid.UUID) bool {
	for id, rec := range s.db.works {
		if id != except && rec.row.AuthorID == authorID && rec.row.Slug == slug {
			return true
		}
	}
	return false
}

func (s *WorkStore) Create(_ context.Context, nw models.NewWork) (*models.Work, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.works[nw.ID]; ok {
		return nil, conflict("insert work")
	}
	if s.slugTakenLocked(nw.AuthorID, nw.Slug, uuid.Nil) {
		return nil, conflict("insert work")
	}
	if _, ok := s.db.profiles[nw.AuthorID]; !ok {
		return nil, fmt.Errorf("insert work: author %s has no profile", nw.AuthorID)
	}

	now := s.db.now()
	w := models.Work{
		ID:          nw.ID,
		AuthorID:    nw.AuthorID,
		Title:       nw.Title,
		Description: nw.Description,
		Visibility:  nw.Visibility,
		Slug:        nw.Slug,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.db.works[w.ID] = record[models.Work]{row: w, seq: s.db.nextSeq()}
	return &w, nil
}

func (s *WorkStore) GetByID(_ context.Context, workID uuid.UUID) (*models.Work, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	rec, ok := s.db.works[workID]
	if !ok {
		return nil, nil
	}
	w := rec.row
	return &w, nil
}

func (s *WorkStore) GetByAuthorSlug(_ context.Context, authorID uuid.UUID, slug string) (*models.Work, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	for _, rec := range s.db.works {
		if rec.row.AuthorID == authorID && rec.row.Slug == slug {
			w := rec.row
			return &w, nil
		}
	}
	return nil, nil
}

func (s *WorkStore) ListByAuthor(_ context.Context, authorID uuid.UUID) ([]models.Work, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	recs := make([]record[models.Work], 0)
	for _, rec := range s.db.works {
		if rec.row.AuthorID == authorID {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].row.UpdatedAt.Equal(recs[j].row.UpdatedAt) {
			return recs[i].row.UpdatedAt.After(recs[j].row.UpdatedAt)
		}
		return recs[i].seq > recs[j].seq
	})

	works := make([]models.Work, 0, len(recs))
	for _, rec := range recs {
		works = append(works, rec.row)
	}
	return works, nil
}

func (s *WorkStore) Update(_ context.Context, workID uuid.UUID, upd models.WorkUpdate) (*models.Work, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	rec, ok := s.db.works[workID]
	if !ok {
		return nil, nil
	}
	w := rec.row
	if upd.Slug != nil && *upd.Slug != w.Slug {
		if s.slugTakenLocked(w.AuthorID, *upd.Slug, workID) {
			return nil, conflict("update work")
		}
		w.Slug = *upd.Slug
	}
	if upd.Title != nil {
		w.Title = *upd.Title
	}
	switch {
	case upd.ClearDescription:
		w.Description = nil
	case upd.Description != nil:
		d := *upd.Description
		w.Description = &d
	}
	if upd.Visibility != nil {
		w.Visibility = *upd.Visibility
	}
	w.UpdatedAt = s.db.now()

	// Bump the sequence too, so "most recently updated" stays stable when
	// the clock does not move between writes.
	s.db.works[workID] = record[models.Work]{row: w, seq: s.db.nextSeq()}
	return &w, nil
}

// Delete cascades like the Postgres foreign keys do.
func (s *WorkStore) Delete(_ context.Context, workID uuid.UUID) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.works[workID]; !ok {
		return false, nil
	}
	delete(s.db.works, workID)

	for id, ch := range s.db.chapters {
		if ch.WorkID == workID {
			s.db.dropChapterLocked(id)
		}
	}
	for id, sh := range s.db.shares {
		if sh.row.WorkID == workID {
			delete(s.db.shares, id)
		}
	}
	return true, nil
}

// ---------------------------------------------------------------
// Chapters
// ---------------------------------------------------------------

type ChapterStore struct{ db *DB }

func (s *ChapterStore) siblingsLocked(workID uuid.UUID) []models.Chapter {
	out := make([]models.Chapter, 0)
	for _, ch := range s.db.chapters {
		if ch.WorkID == workID {
			out = append(out, ch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChapterIndex < out[j].ChapterIndex })
	return out
}

func (s *ChapterStore) Create(_ context.Context, nc models.NewChapter) (*models.Chapter, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.works[nc.WorkID]; !ok {
		return nil, fmt.Errorf("insert chapter: work %s does not exist", nc.WorkID)
	}
	if _, ok := s.db.chapters[nc.ID]; ok {
		return nil, conflict("insert chapter")
	}

	content := cloneJSON(nc.Content)
	if len(content) == 0 {
		content = json.RawMessage(`[]`)
	}
	// An explicit index update may have left a sibling at count.
	siblings := s.siblingsLocked(nc.WorkID)
	for _, other := range siblings {
		if other.ChapterIndex == len(siblings) {
			return nil, conflict("insert chapter")
		}
	}

	now := s.db.now()
	ch := models.Chapter{
		ID:           nc.ID,
		WorkID:       nc.WorkID,
		AuthorID:     nc.AuthorID,
		ChapterIndex: len(siblings),
		Title:        nc.Title,
		Content:      content,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.db.chapters[ch.ID] = ch
	return &ch, nil
}

func (s *ChapterStore) GetByID(_ context.Context, chapterID uuid.UUID) (*models.Chapter, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	ch, ok := s.db.chapters[chapterID]
	if !ok {
		return nil, nil
	}
	ch.Content = cloneJSON(ch.Content)
	return &ch, nil
}

func (s *ChapterStore) ListByWork(_ context.Context, workID uuid.UUID) ([]models.Chapter, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	return s.siblingsLocked(workID), nil
}

func (s *ChapterStore) Update(_ context.Context, chapterID uuid.UUID, upd models.ChapterUpdate) (*models.Chapter, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	ch, ok := s.db.chapters[chapterID]
	if !ok {
		return nil, nil
	}
	if upd.ChapterIndex != nil && *upd.ChapterIndex != ch.ChapterIndex {
		for id, other := range s.db.chapters {
			if id != chapterID && other.WorkID == ch.WorkID && other.ChapterIndex == *upd.ChapterIndex {
				return nil, conflict("update chapter")
			}
		}
		ch.ChapterIndex = *upd.ChapterIndex
	}
	if upd.Title != nil {
		ch.Title = *upd.Title
	}
	if upd.Content != nil {
		ch.Content = cloneJSON(upd.Content)
	}
	ch.UpdatedAt = s.db.now()
	s.db.chapters[chapterID] = ch
	return &ch, nil
}

func (s *ChapterStore) Delete(_ context.Context, chapterID uuid.UUID) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	ch, ok := s.db.chapters[chapterID]
	if !ok {
		return false, nil
	}
	s.db.dropChapterLocked(chapterID)

	now := s.db.now()
	for id, other := range s.db.chapters {
		if other.WorkID == ch.WorkID && other.ChapterIndex > ch.ChapterIndex {
			other.ChapterIndex--
			other.UpdatedAt = now
			s.db.chapters[id] = other
		}
	}
	return true, nil
}

func (s *ChapterStore) SwapIndexes(_ context.Context, workID, a, b uuid.UUID) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	chA, okA := s.db.chapters[a]
	chB, okB := s.db.chapters[b]
	if !okA || !okB || chA.WorkID != workID || chB.WorkID != workID {
		return false, nil
	}

	now := s.db.now()
	chA.ChapterIndex, chB.ChapterIndex = chB.ChapterIndex, chA.ChapterIndex
	chA.UpdatedAt, chB.UpdatedAt = now, now
	s.db.chapters[a] = chA
	s.db.chapters[b] = chB
	return true, nil
}

// ---------------------------------------------------------------
// Revisions
// ---------------------------------------------------------------

type RevisionStore struct{ db *DB }

func (s *RevisionStore) Create(_ context.Context, rev models.ChapterRevision) (*models.ChapterRevision, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.chapters[rev.ChapterID]; !ok {
		return nil, fmt.Errorf("insert revision: chapter %s does not exist", rev.ChapterID)
	}
	rev.Content = cloneJSON(rev.Content)
	if len(rev.Content) == 0 {
		rev.Content = json.RawMessage(`[]`)
	}
	rev.CreatedAt = s.db.now()
	s.db.revisions[rev.ID] = record[models.ChapterRevision]{row: rev, seq: s.db.nextSeq()}
	return &rev, nil
}

func (s *RevisionStore) ListByChapter(_ context.Context, chapterID uuid.UUID) ([]models.ChapterRevision, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	recs := make([]record[models.ChapterRevision], 0)
	for _, rec := range s.db.revisions {
		if rec.row.ChapterID == chapterID {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq > recs[j].seq })

	out := make([]models.ChapterRevision, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.row)
	}
	return out, nil
}

// ---------------------------------------------------------------
// Shares
// ---------------------------------------------------------------

type ShareStore struct{ db *DB }

func (s *ShareStore) Create(_ context.Context, share models.WorkShare) (*models.WorkShare, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.works[share.WorkID]; !ok {
		return nil, fmt.Errorf("insert share: work %s does not exist", share.WorkID)
	}
	for _, rec := range s.db.shares {
		if rec.row.Token == share.Token || rec.row.ID == share.ID {
			return nil, conflict("insert share")
		}
	}
	share.CreatedAt = s.db.now()
	s.db.shares[share.ID] = record[models.WorkShare]{row: share, seq: s.db.nextSeq()}
	return &share, nil
}

func (s *ShareStore) GetByID(_ context.Context, shareID uuid.UUID) (*models.WorkShare, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	rec, ok := s.db.shares[shareID]
	if !ok {
		return nil, nil
	}
	sh := rec.row
	return &sh, nil
}

func (s *ShareStore) GetByToken(_ context.Context, token string) (*models.WorkShare, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	for _, rec := range s.db.shares {
		if rec.row.Token == token {
			sh := rec.row
			return &sh, nil
		}
	}
	return nil, nil
}

func (s *ShareStore) ListByWork(_ context.Context, workID uuid.UUID) ([]models.WorkShare, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	recs := make([]record[models.WorkShare], 0)
	for _, rec := range s.db.shares {
		if rec.row.WorkID == workID {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq > recs[j].seq })

	out := make([]models.WorkShare, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.row)
	}
	return out, nil
}

func (s *ShareStore) Delete(_ context.Context, shareID uuid.UUID) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.shares[shareID]; !ok {
		return false, nil
	}
	delete(s.db.shares, shareID)
	return true, nil
}

// ---------------------------------------------------------------
// Comments
// ---------------------------------------------------------------

type CommentStore struct{ db *DB }

func (s *CommentStore) Create(_ context.Context, c models.InlineComment) (*models.InlineComment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.chapters[c.ChapterID]; !ok {
		return nil, fmt.Errorf("insert comment: chapter %s does not exist", c.ChapterID)
	}
	if _, ok := s.db.profiles[c.AuthorID]; !ok {
		return nil, fmt.Errorf("insert comment: author %s has no profile", c.AuthorID)
	}
	if _, ok := s.db.comments[c.ID]; ok {
		return nil, conflict("insert comment")
	}
	if c.Status == "" {
		c.Status = models.CommentOpen
	}
	c.CreatedAt = s.db.now()
	s.db.comments[c.ID] = record[models.InlineComment]{row: c, seq: s.db.nextSeq()}
	return &c, nil
}

func (s *CommentStore) GetByID(_ context.Context, commentID uuid.UUID) (*models.InlineComment, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	rec, ok := s.db.comments[commentID]
	if !ok {
		return nil, nil
	}
	c := rec.row
	return &c, nil
}

func (s *CommentStore) ListByChapter(_ context.Context, chapterID uuid.UUID) ([]models.InlineComment, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	recs := make([]record[models.InlineComment], 0)
	for _, rec := range s.db.comments {
		if rec.row.ChapterID == chapterID {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })

	out := make([]models.InlineComment, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.row)
	}
	return out, nil
}

func (s *CommentStore) SetStatus(_ context.Context, commentID uuid.UUID, status models.CommentStatus, resolvedAt *time.Time) (*models.InlineComment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	rec, ok := s.db.comments[commentID]
	if !ok {
		return nil, nil
	}
	rec.row.Status = status
	rec.row.ResolvedAt = nil
	if resolvedAt != nil {
		at := *resolvedAt
		rec.row.ResolvedAt = &at
	}
	s.db.comments[commentID] = rec
	c := rec.row
	return &c, nil
}

// ---------------------------------------------------------------
// Feedback
// ---------------------------------------------------------------

type FeedbackStore struct{ db *DB }

func (s *FeedbackStore) Create(_ context.Context, fb models.ChapterFeedback) (*models.ChapterFeedback, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.chapters[fb.ChapterID]; !ok {
		return nil, fmt.Errorf("insert feedback: chapter %s does not exist", fb.ChapterID)
	}
	if _, ok := s.db.feedback[fb.ID]; ok {
		return nil, conflict("insert feedback")
	}
	if fb.ReaderID != nil {
		reader := *fb.ReaderID
		fb.ReaderID = &reader
	}
	fb.CreatedAt = s.db.now()
	s.db.feedback[fb.ID] = record[models.ChapterFeedback]{row: fb, seq: s.db.nextSeq()}
	return &fb, nil
}

func (s *FeedbackStore) ListByChapter(_ context.Context, chapterID uuid.UUID) ([]models.ChapterFeedback, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	recs := make([]record[models.ChapterFeedback], 0)
	for _, rec := range s.db.feedback {
		if rec.row.ChapterID == chapterID {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq > recs[j].seq })

	out := make([]models.ChapterFeedback, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.row)
	}
	return out, nil
}

// Compile-time checks that the stores satisfy the repository contracts.
var (
	_ repository.ProfileRepository  = (*ProfileStore)(nil)
	_ repository.WorkRepository     = (*WorkStore)(nil)
	_ repository.ChapterRepository  = (*ChapterStore)(nil)
	_ repository.RevisionRepository = (*RevisionStore)(nil)
	_ repository.ShareRepository    = (*ShareStore)(nil)
	_ repository.CommentRepository  = (*CommentStore)(nil)
	_ repository.FeedbackRepository = (*FeedbackStore)(nil)
)
