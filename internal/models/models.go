package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Visibility controls who can read a work.
//
//   - private:  the author only.
//   - unlisted: anyone holding a live share token.
//   - public:   anyone, through /w/{handle}/{slug}.
type Visibility string

const (
	VisibilityPrivate  Visibility = "private"
	VisibilityUnlisted Visibility = "unlisted"
	VisibilityPublic   Visibility = "public"
)

// Valid reports whether v is one of the three known visibilities.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPrivate, VisibilityUnlisted, VisibilityPublic:
		return true
	}
	return false
}

// Direction is the way a chapter moves in a reorder.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

func (d Direction) Valid() bool {
	return d == DirectionUp || d == DirectionDown
}

// Profile is one per user account. ID is the user id issued by the
// authentication provider, not generated here.
type Profile struct {
	ID          uuid.UUID `json:"id"`
	Handle      string    `json:"handle"`
	DisplayName string    `json:"display_name"`
	Bio         *string   `json:"bio"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProfileUpdate is a partial update; nil fields are left untouched.
type ProfileUpdate struct {
	Handle      *string
	DisplayName *string
	Bio         *string
}

// Work is a writing project. Slug is unique per author, not globally.
type Work struct {
	ID          uuid.UUID  `json:"id"`
	AuthorID    uuid.UUID  `json:"author_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Visibility  Visibility `json:"visibility"`
	Slug        string     `json:"slug"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewWork carries the columns a caller controls on insert.
type NewWork struct {
	ID          uuid.UUID
	AuthorID    uuid.UUID
	Title       string
	Description *string
	Visibility  Visibility
	Slug        string
}

// WorkUpdate is a partial update. ClearDescription sets description to
// NULL and takes precedence over Description.
type WorkUpdate struct {
	Title            *string
	Description      *string
	ClearDescription bool
	Visibility       *Visibility
	Slug             *string
}

// Chapter belongs to exactly one work. ChapterIndex is zero-based and
// contiguous among the work's chapters. Content is an opaque editor
// document and is stored as-is.
type Chapter struct {
	ID           uuid.UUID       `json:"id"`
	WorkID       uuid.UUID       `json:"work_id"`
	AuthorID     uuid.UUID       `json:"author_id"`
	ChapterIndex int             `json:"chapter_index"`
	Title        string          `json:"title"`
	Content      json.RawMessage `json:"content_json"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// NewChapter has no index: storage assigns the next free one.
type NewChapter struct {
	ID       uuid.UUID
	WorkID   uuid.UUID
	AuthorID uuid.UUID
	Title    string
	Content  json.RawMessage
}

type ChapterUpdate struct {
	Title        *string
	Content      json.RawMessage
	ChapterIndex *int
}

// ChapterRevision is a point-in-time snapshot of a chapter's content.
type ChapterRevision struct {
	ID        uuid.UUID       `json:"id"`
	ChapterID uuid.UUID       `json:"chapter_id"`
	AuthorID  uuid.UUID       `json:"author_id"`
	Content   json.RawMessage `json:"content_json"`
	Summary   *string         `json:"summary"`
	CreatedAt time.Time       `json:"created_at"`
}

// WorkShare grants read access to a work while ExpiresAt is unset or in
// the future.
type WorkShare struct {
	ID        uuid.UUID  `json:"id"`
	WorkID    uuid.UUID  `json:"work_id"`
	Token     string     `json:"token"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// ActiveAt reports whether the share still authorizes access at now.
func (s WorkShare) ActiveAt(now time.Time) bool {
	return s.ExpiresAt == nil || now.Before(*s.ExpiresAt)
}

// WorkWithChapters is the read model behind the public and share pages.
type WorkWithChapters struct {
	Work     Work      `json:"work"`
	Author   *Profile  `json:"author,omitempty"`
	Chapters []Chapter `json:"chapters"`
}

// CommentStatus tracks whether an inline comment still needs attention.
type CommentStatus string

const (
	CommentOpen     CommentStatus = "open"
	CommentResolved CommentStatus = "resolved"
)

func (s CommentStatus) Valid() bool {
	return s == CommentOpen || s == CommentResolved
}

// CommentAnchor pins a comment to a span of the chapter text. From and To
// are editor positions; Quote and the context strings let a client find
// the span again after the text around it has moved.
type CommentAnchor struct {
	From          int    `json:"from"`
	To            int    `json:"to"`
	Quote         string `json:"quote"`
	ContextBefore string `json:"contextBefore,omitempty"`
	ContextAfter  string `json:"contextAfter,omitempty"`
}

// InlineComment is a note left on a span of a chapter. ResolvedAt is set
// exactly while Status is resolved.
type InlineComment struct {
	ID         uuid.UUID     `json:"id"`
	ChapterID  uuid.UUID     `json:"chapter_id"`
	AuthorID   uuid.UUID     `json:"author_id"`
	Anchor     CommentAnchor `json:"anchor"`
	Body       string        `json:"body"`
	Status     CommentStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
	ResolvedAt *time.Time    `json:"resolved_at"`
}

// CommentWithAuthor is an InlineComment with its writer's profile.
type CommentWithAuthor struct {
	InlineComment
	Author *Profile `json:"author"`
}

// FeedbackAnswers holds a reader's replies to the fixed feedback prompts.
type FeedbackAnswers struct {
	WhatWorked        string `json:"whatWorked,omitempty"`
	WhereLostInterest string `json:"whereLostInterest,omitempty"`
	FavoriteLine      string `json:"favoriteLine,omitempty"`
}

// Empty reports whether no prompt was answered.
func (a FeedbackAnswers) Empty() bool {
	return a.WhatWorked == "" && a.WhereLostInterest == "" && a.FavoriteLine == ""
}

// ChapterFeedback is one reader's response to a chapter. ReaderID is nil
// for anonymous readers.
type ChapterFeedback struct {
	ID        uuid.UUID       `json:"id"`
	ChapterID uuid.UUID       `json:"chapter_id"`
	ReaderID  *uuid.UUID      `json:"reader_id"`
	Answers   FeedbackAnswers `json:"answers"`
	CreatedAt time.Time       `json:"created_at"`
}
