package forum

import (
	"context"
	"strings"

	"github.com/emilythestrangee/stackit/backend/internal/apperr"
	"github.com/emilythestrangee/stackit/backend/internal/auth"
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

type Registration struct {
	Username string `json:"username" validate:"required,min=3,max=30,excludesall= @"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phone" validate:"omitempty,e164"`
}

func (s *Service) Register(ctx context.Context, in Registration) (_ *models.AuthResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "forum.Register")
	defer func() { finish(span, err) }()

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	if err := s.check(in); err != nil {
		return nil, err
	}

	taken, err := s.store.UsernameOrEmailTaken(ctx, in.Username, in.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Conflict("username or email already exists")
	}

	hashed, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal("failed to hash password", err)
	}
	user := &models.User{
		Username: in.Username,
		Email:    in.Email,
		Password: hashed,
		Phone:    in.Phone,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user.ID, user.Username, user.Email)
	if err != nil {
		return nil, apperr.Internal("failed to generate token", err)
	}
	s.log.Info().Str("user", user.ID).Msg("user registered")
	return &models.AuthResponse{Token: token, User: *user, Message: "User registered successfully"}, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (_ *models.AuthResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "forum.Login")
	defer func() { finish(span, err) }()

	user, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.Unauthorized("invalid credentials")
		}
		return nil, err
	}
	if !auth.CheckPassword(user.Password, password) {
		return nil, apperr.Unauthorized("invalid credentials")
	}

	token, err := s.tokens.Issue(user.ID, user.Username, user.Email)
	if err != nil {
		return nil, apperr.Internal("failed to generate token", err)
	}
	return &models.AuthResponse{Token: token, User: *user, Message: "Login successful"}, nil
}

func (s *Service) Me(ctx context.Context, userID string) (*models.User, error) {
	return s.store.GetUser(ctx, userID)
}

func (s *Service) Profile(ctx context.Context, userID string) (*models.UserProfile, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	count, err := s.store.CountUserQuestions(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.UserProfile{
		ID:            user.ID,
		Username:      user.Username,
		QuestionCount: count,
		CreatedAt:     user.CreatedAt,
	}, nil
}
