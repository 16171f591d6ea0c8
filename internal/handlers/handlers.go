package handlers

import (
	"github.com/rs/zerolog"

	"github.com/emilythestrangee/stackit/backend/internal/forum"
	"github.com/emilythestrangee/stackit/backend/internal/realtime"
)

// Handler combines all handler types
type Handler struct {
	Auth         *AuthHandler
	Question     *QuestionHandler
	Answer       *AnswerHandler
	User         *UserHandler
	Notification *NotificationHandler
	Realtime     *RealtimeHandler
}

// NewHandler creates a unified handler with all sub-handlers
func NewHandler(svc *forum.Service, hub *realtime.Hub, allowedOrigins []string, log zerolog.Logger) *Handler {
	log = log.With().Str("component", "http").Logger()
	return &Handler{
		Auth:         NewAuthHandler(svc, log),
		Question:     NewQuestionHandler(svc, log),
		Answer:       NewAnswerHandler(svc, log),
		User:         NewUserHandler(svc, log),
		Notification: NewNotificationHandler(svc, log),
		Realtime:     NewRealtimeHandler(hub, allowedOrigins, log),
	}
}
