package service

import (
	"context"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/lalith-99/inkwell/internal/apperr"
	"github.com/lalith-99/inkwell/internal/events"
	"github.com/lalith-99/inkwell/internal/models"
	"go.uber.org/zap"
)

const maxAnswerLen = 2000

// FeedbackService collects reader responses to chapters. Readers reach a
// chapter through a share link, so that is what authorizes a submission;
// they do not need an account.
type FeedbackService struct {
	repos  Repos
	shares *ShareService
	events events.Publisher
	logger *zap.Logger
}

func NewFeedbackService(repos Repos, shares *ShareService, pub events.Publisher, logger *zap.Logger) *FeedbackService {
	if pub == nil {
		pub = events.Discard{}
	}
	return &FeedbackService{repos: repos, shares: shares, events: pub, logger: logger}
}

func validateAnswers(a models.FeedbackAnswers) error {
	if a.Empty() {
		return apperr.Validation("answer at least one question")
	}
	for _, v := range []string{a.WhatWorked, a.WhereLostInterest, a.FavoriteLine} {
		if utf8.RuneCountInString(v) > maxAnswerLen {
			return apperr.Validation("each answer must be at most %d characters", maxAnswerLen)
		}
	}
	return nil
}

// Create stores feedback on a chapter of the work token opens. reader is
// uuid.Nil for an anonymous reader.
func (s *FeedbackService) Create(ctx context.Context, reader uuid.UUID, token string, chapterID uuid.UUID, answers models.FeedbackAnswers) (*models.ChapterFeedback, error) {
	if err := validateAnswers(answers); err != nil {
		return nil, err
	}
	w, err := s.shares.sharedWork(ctx, token)
	if err != nil {
		return nil, err
	}
	ch, err := s.repos.Chapters.GetByID(ctx, chapterID)
	if err != nil {
		return nil, failed(s.logger, "load chapter", err, zap.String("chapter_id", chapterID.String()))
	}
	// A token only reaches the chapters of its own work.
	if ch == nil || ch.WorkID != w.ID {
		return nil, apperr.NotFound("chapter")
	}

	var readerID *uuid.UUID
	if reader != uuid.Nil {
		readerID = &reader
	}
	fb, err := s.repos.Feedback.Create(ctx, models.ChapterFeedback{
		ID:        uuid.New(),
		ChapterID: ch.ID,
		ReaderID:  readerID,
		Answers:   answers,
	})
	if err != nil {
		return nil, failed(s.logger, "create feedback", err, zap.String("chapter_id", chapterID.String()))
	}

	publish(s.events, s.shares.now, events.FeedbackCreated, w.ID, fb.ID)
	return fb, nil
}

// ListByChapter returns the chapter's feedback, newest first. Only the
// author reads it.
func (s *FeedbackService) ListByChapter(ctx context.Context, principal, chapterID uuid.UUID) ([]models.ChapterFeedback, error) {
	if _, err := ownedChapter(ctx, s.repos.Chapters, s.logger, principal, chapterID); err != nil {
		return nil, err
	}
	feedback, err := s.repos.Feedback.ListByChapter(ctx, chapterID)
	if err != nil {
		return nil, failed(s.logger, "list feedback", err, zap.String("chapter_id", chapterID.String()))
	}
	return feedback, nil
}
