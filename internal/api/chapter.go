package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/inkwell/internal/middleware"
	"github.com/lalith-99/inkwell/internal/models"
	"github.com/lalith-99/inkwell/internal/service"
)

type ChapterHandler struct {
	chapters *service.ChapterService
}

func NewChapterHandler(chapters *service.ChapterService) *ChapterHandler {
	return &ChapterHandler{chapters: chapters}
}

type createChapterRequest struct {
	Title   string          `json:"title"`
	Content json.RawMessage `json:"content_json"`
}

type updateChapterRequest struct {
	Title        *string         `json:"title"`
	Content      json.RawMessage `json:"content_json"`
	ChapterIndex *int            `json:"chapter_index"`
}

// moveChapterRequest is the body of POST /v1/chapters/:id/move.
// work_id is optional; when sent it must be the chapter's work.
type moveChapterRequest struct {
	Direction models.Direction `json:"direction" binding:"required"`
	WorkID    *uuid.UUID       `json:"work_id"`
}

type saveRevisionRequest struct {
	Summary *string `json:"summary"`
}

// content drops an explicit null so it reads as "not supplied".
func content(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || isNull(raw) {
		return nil
	}
	return raw
}

// Create handles POST /v1/works/:id/chapters. The chapter is appended.
func (h *ChapterHandler) Create(c *gin.Context) {
	workID, ok := paramID(c, "id", "work")
	if !ok {
		return
	}
	var req createChapterRequest
	if !bindJSON(c, &req) {
		return
	}

	ch, err := h.chapters.Create(c.Request.Context(), middleware.GetUserID(c), workID, req.Title, content(req.Content))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ch)
}

// List handles GET /v1/works/:id/chapters, ordered by chapter_index.
func (h *ChapterHandler) List(c *gin.Context) {
	workID, ok := paramID(c, "id", "work")
	if !ok {
		return
	}

	chapters, err := h.chapters.ListByWork(c.Request.Context(), middleware.GetUserID(c), workID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, chapters)
}

// Get handles GET /v1/chapters/:id
func (h *ChapterHandler) Get(c *gin.Context) {
	chapterID, ok := paramID(c, "id", "chapter")
	if !ok {
		return
	}

	ch, err := h.chapters.Get(c.Request.Context(), middleware.GetUserID(c), chapterID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ch)
}

// Update handles PATCH /v1/chapters/:id
func (h *ChapterHandler) Update(c *gin.Context) {
	chapterID, ok := paramID(c, "id", "chapter")
	if !ok {
		return
	}
	var req updateChapterRequest
	if !bindJSON(c, &req) {
		return
	}

	ch, err := h.chapters.Update(c.Request.Context(), middleware.GetUserID(c), chapterID, models.ChapterUpdate{
		Title:        req.Title,
		Content:      content(req.Content),
		ChapterIndex: req.ChapterIndex,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ch)
}

// Delete handles DELETE /v1/chapters/:id. Later chapters move up one.
func (h *ChapterHandler) Delete(c *gin.Context) {
	chapterID, ok := paramID(c, "id", "chapter")
	if !ok {
		return
	}

	if err := h.chapters.Delete(c.Request.Context(), middleware.GetUserID(c), chapterID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Move handles POST /v1/chapters/:id/move and answers with the work's
// chapters in their new order.
func (h *ChapterHandler) Move(c *gin.Context) {
	chapterID, ok := paramID(c, "id", "chapter")
	if !ok {
		return
	}
	var req moveChapterRequest
	if !bindJSON(c, &req) {
		return
	}
	workID := uuid.Nil
	if req.WorkID != nil {
		workID = *req.WorkID
	}

	ctx := c.Request.Context()
	principal := middleware.GetUserID(c)
	if err := h.chapters.Reorder(ctx, principal, chapterID, workID, req.Direction); err != nil {
		respondError(c, err)
		return
	}

	ch, err := h.chapters.Get(ctx, principal, chapterID)
	if err != nil {
		respondError(c, err)
		return
	}
	chapters, err := h.chapters.ListByWork(ctx, principal, ch.WorkID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, chapters)
}

// SaveRevision handles POST /v1/chapters/:id/revisions
func (h *ChapterHandler) SaveRevision(c *gin.Context) {
	chapterID, ok := paramID(c, "id", "chapter")
	if !ok {
		return
	}
	var req saveRevisionRequest
	// The body is optional.
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	rev, err := h.chapters.SaveRevision(c.Request.Context(), middleware.GetUserID(c), chapterID, req.Summary)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rev)
}

// ListRevisions handles GET /v1/chapters/:id/revisions, newest first.
func (h *ChapterHandler) ListRevisions(c *gin.Context) {
	chapterID, ok := paramID(c, "id", "chapter")
	if !ok {
		return
	}

	revs, err := h.chapters.ListRevisions(c.Request.Context(), middleware.GetUserID(c), chapterID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, revs)
}
