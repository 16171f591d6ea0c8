package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/emilythestrangee/stackit/backend/internal/forum"
)

type UserHandler struct {
	svc *forum.Service
	log zerolog.Logger
}

func NewUserHandler(svc *forum.Service, log zerolog.Logger) *UserHandler {
	return &UserHandler{svc: svc, log: log}
}

// GetUserProfile returns a user's public profile
func (h *UserHandler) GetUserProfile(c *gin.Context) {
	profile, err := h.svc.Profile(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": profile})
}
