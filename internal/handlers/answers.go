package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/emilythestrangee/stackit/backend/internal/forum"
	"github.com/emilythestrangee/stackit/backend/internal/middleware"
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

type AnswerHandler struct {
	svc *forum.Service
	log zerolog.Logger
}

func NewAnswerHandler(svc *forum.Service, log zerolog.Logger) *AnswerHandler {
	return &AnswerHandler{svc: svc, log: log}
}

func (h *AnswerHandler) CreateAnswer(c *gin.Context) {
	var input models.CreateAnswerRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	a, err := h.svc.CreateAnswer(c.Request.Context(), middleware.UserID(c), forum.NewAnswer{
		QuestionID: input.QuestionID,
		Body:       input.Body,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *AnswerHandler) VoteAnswer(c *gin.Context) {
	var input models.VoteRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tally, err := h.svc.VoteAnswer(c.Request.Context(), middleware.UserID(c), c.Param("id"), input.VoteType)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, tally)
}

// AcceptAnswer toggles acceptance; only the question's author may call it
func (h *AnswerHandler) AcceptAnswer(c *gin.Context) {
	res, err := h.svc.AcceptAnswer(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
