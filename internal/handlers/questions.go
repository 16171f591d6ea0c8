package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/emilythestrangee/stackit/backend/internal/forum"
	"github.com/emilythestrangee/stackit/backend/internal/middleware"
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

type QuestionHandler struct {
	svc *forum.Service
	log zerolog.Logger
}

func NewQuestionHandler(svc *forum.Service, log zerolog.Logger) *QuestionHandler {
	return &QuestionHandler{svc: svc, log: log}
}

// GetQuestions returns one page of questions, newest first.
// A missing or malformed page parameter means the first page.
func (h *QuestionHandler) GetQuestions(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		page = 1
	}

	res, err := h.svc.ListQuestions(c.Request.Context(), page)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetQuestion returns a question with its tags, tallies and answers
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	q, err := h.svc.GetQuestion(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	var input models.CreateQuestionRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	q, err := h.svc.CreateQuestion(c.Request.Context(), middleware.UserID(c), forum.NewQuestion{
		Title:       input.Title,
		Description: input.Description,
		Tags:        input.Tags,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, q)
}

// VoteQuestion toggles the caller's vote and returns the new tally
func (h *QuestionHandler) VoteQuestion(c *gin.Context) {
	var input models.VoteRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tally, err := h.svc.VoteQuestion(c.Request.Context(), middleware.UserID(c), c.Param("id"), input.VoteType)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, tally)
}
