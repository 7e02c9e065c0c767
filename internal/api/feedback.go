package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/inkwell/internal/middleware"
	"github.com/lalith-99/inkwell/internal/models"
	"github.com/lalith-99/inkwell/internal/service"
)

type FeedbackHandler struct {
	feedback *service.FeedbackService
}

func NewFeedbackHandler(feedback *service.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedback: feedback}
}

type createFeedbackRequest struct {
	Answers models.FeedbackAnswers `json:"answers"`
}

// Create handles POST /share/:token/chapters/:id/feedback. The reader may
// be anonymous; a signed-in reader is recorded.
func (h *FeedbackHandler) Create(c *gin.Context) {
	chapterID, ok := paramID(c, "id", "chapter")
	if !ok {
		return
	}
	var req createFeedbackRequest
	if !bindJSON(c, &req) {
		return
	}

	fb, err := h.feedback.Create(c.Request.Context(),
		middleware.GetUserID(c), c.Param("token"), chapterID, req.Answers)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, fb)
}

// List handles GET /v1/chapters/:id/feedback, newest first.
func (h *FeedbackHandler) List(c *gin.Context) {
	chapterID, ok := paramID(c, "id", "chapter")
	if !ok {
		return
	}

	feedback, err := h.feedback.ListByChapter(c.Request.Context(), middleware.GetUserID(c), chapterID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, feedback)
}
