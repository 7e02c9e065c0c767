package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/inkwell/internal/middleware"
	"github.com/lalith-99/inkwell/internal/models"
	"github.com/lalith-99/inkwell/internal/service"
)

type ProfileHandler struct {
	profiles *service.ProfileService
}

func NewProfileHandler(profiles *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

type updateProfileRequest struct {
	Handle      *string `json:"handle"`
	DisplayName *string `json:"display_name"`
	Bio         *string `json:"bio"`
}

// Me handles GET /v1/me. The profile is created on first visit.
func (h *ProfileHandler) Me(c *gin.Context) {
	p, err := h.profiles.Ensure(c.Request.Context(), middleware.GetUserID(c), middleware.GetEmail(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Update handles PATCH /v1/me
func (h *ProfileHandler) Update(c *gin.Context) {
	var req updateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	principal := middleware.GetUserID(c)
	if _, err := h.profiles.Ensure(ctx, principal, middleware.GetEmail(c)); err != nil {
		respondError(c, err)
		return
	}

	p, err := h.profiles.Update(ctx, principal, models.ProfileUpdate{
		Handle:      req.Handle,
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
