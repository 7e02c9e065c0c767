package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/inkwell/internal/middleware"
	"github.com/lalith-99/inkwell/internal/models"
	"github.com/lalith-99/inkwell/internal/service"
)

// WorkHandler serves the author's own works. Every route sits behind
// AuthMiddleware; ownership is checked by the service.
type WorkHandler struct {
	works *service.WorkService
}

func NewWorkHandler(works *service.WorkService) *WorkHandler {
	return &WorkHandler{works: works}
}

// createWorkRequest is the expected JSON body for POST /v1/works.
// The client never sends an id, slug or author: those are derived.
type createWorkRequest struct {
	Title       string            `json:"title"`
	Description *string           `json:"description"`
	Visibility  models.Visibility `json:"visibility"`
}

// updateWorkRequest keeps description raw so that an explicit null
// (clear it) can be told apart from an absent field (keep it).
type updateWorkRequest struct {
	Title       *string            `json:"title"`
	Description json.RawMessage    `json:"description"`
	Visibility  *models.Visibility `json:"visibility"`
	Slug        *string            `json:"slug"`
}

// Create handles POST /v1/works
func (h *WorkHandler) Create(c *gin.Context) {
	var req createWorkRequest
	if !bindJSON(c, &req) {
		return
	}

	w, err := h.works.Create(c.Request.Context(), middleware.GetUserID(c), middleware.GetEmail(c), service.CreateWork{
		Title:       req.Title,
		Description: req.Description,
		Visibility:  req.Visibility,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, w)
}

// List handles GET /v1/works, most recently updated first.
func (h *WorkHandler) List(c *gin.Context) {
	principal := middleware.GetUserID(c)

	works, err := h.works.ListByAuthor(c.Request.Context(), principal, principal)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, works)
}

// Get handles GET /v1/works/:id
func (h *WorkHandler) Get(c *gin.Context) {
	workID, ok := paramID(c, "id", "work")
	if !ok {
		return
	}

	w, err := h.works.Get(c.Request.Context(), middleware.GetUserID(c), workID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// Update handles PATCH /v1/works/:id
func (h *WorkHandler) Update(c *gin.Context) {
	workID, ok := paramID(c, "id", "work")
	if !ok {
		return
	}
	var req updateWorkRequest
	if !bindJSON(c, &req) {
		return
	}

	upd := models.WorkUpdate{
		Title:      req.Title,
		Visibility: req.Visibility,
		Slug:       req.Slug,
	}
	switch {
	case len(req.Description) == 0:
	case isNull(req.Description):
		upd.ClearDescription = true
	default:
		var desc string
		if err := json.Unmarshal(req.Description, &desc); err != nil {
			badRequest(c, "description must be a string or null")
			return
		}
		upd.Description = &desc
	}

	w, err := h.works.Update(c.Request.Context(), middleware.GetUserID(c), workID, upd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// Delete handles DELETE /v1/works/:id. Chapters and shares go with it.
func (h *WorkHandler) Delete(c *gin.Context) {
	workID, ok := paramID(c, "id", "work")
	if !ok {
		return
	}

	if err := h.works.Delete(c.Request.Context(), middleware.GetUserID(c), workID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
