package server

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/emilythestrangee/stackit/backend/internal/auth"
	"github.com/emilythestrangee/stackit/backend/internal/config"
	"github.com/emilythestrangee/stackit/backend/internal/forum"
	"github.com/emilythestrangee/stackit/backend/internal/handlers"
	"github.com/emilythestrangee/stackit/backend/internal/middleware"
	"github.com/emilythestrangee/stackit/backend/internal/realtime"
)

// Deps are the long-lived components the HTTP layer serves.
type Deps struct {
	Service *forum.Service
	Hub     *realtime.Hub
	Tokens  *auth.Tokens
	Log     zerolog.Logger
}

type Server struct {
	cfg     config.Config
	svc     *forum.Service
	tokens  *auth.Tokens
	handler *handlers.Handler
	log     zerolog.Logger
}

// NewServer creates and configures a new server
func NewServer(cfg config.Config, deps Deps) *http.Server {
	s := &Server{
		cfg:     cfg,
		svc:     deps.Service,
		tokens:  deps.Tokens,
		handler: handlers.NewHandler(deps.Service, deps.Hub, cfg.CORSOrigins, deps.Log),
		log:     deps.Log,
	}

	// WriteTimeout stays unset: /ws connections are long-lived and manage
	// their own write deadlines.
	return &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           s.RegisterRoutes(),
		IdleTimeout:       time.Minute,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return c
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	r := gin.New()
	r.Use(
		gin.Recovery(),
		otelgin.Middleware(s.cfg.ServiceName),
		middleware.RequestLogger(s.log),
		middleware.Metrics(),
		cors.New(corsConfig(s.cfg.CORSOrigins)),
	)

	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	requireAuth := middleware.AuthMiddleware(s.tokens)
	r.GET("/ws", requireAuth, s.handler.Realtime.Connect)

	api := r.Group("/api")
	{
		api.POST("/auth/register", s.handler.Auth.Register)
		api.POST("/auth/login", s.handler.Auth.Login)

		api.GET("/questions", s.handler.Question.GetQuestions)
		api.GET("/questions/:id", s.handler.Question.GetQuestion)
		api.GET("/users/:id", s.handler.User.GetUserProfile)

		protected := api.Group("")
		protected.Use(requireAuth)
		{
			protected.GET("/auth/me", s.handler.Auth.GetMe)

			protected.POST("/questions", s.handler.Question.CreateQuestion)
			protected.POST("/questions/:id/vote", s.handler.Question.VoteQuestion)

			protected.POST("/answers", s.handler.Answer.CreateAnswer)
			protected.POST("/answers/:id/vote", s.handler.Answer.VoteAnswer)
			protected.POST("/answers/:id/accept", s.handler.Answer.AcceptAnswer)

			protected.GET("/notifications", s.handler.Notification.GetNotifications)
			protected.POST("/notifications/read", s.handler.Notification.MarkAllRead)
		}
	}

	return r
}

func (s *Server) health(c *gin.Context) {
	stats := s.svc.Health(c.Request.Context())
	status := http.StatusOK
	if stats["status"] != "up" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, stats)
}
