// Package forum holds the application rules of the Q&A forum: question
// creation with tag resolution, answers and their notifications, voting and
// answer acceptance. Handlers call into a Service; persistence goes through
// store.Store.
package forum

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/emilythestrangee/stackit/backend/internal/apperr"
	"github.com/emilythestrangee/stackit/backend/internal/auth"
	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/store"
	"github.com/emilythestrangee/stackit/backend/internal/telemetry"
)

const DefaultPageSize = 10

// Notifier delivers a notification to its recipient.
type Notifier interface {
	Dispatch(ctx context.Context, n *models.Notification) error
}

type Service struct {
	store    store.Store
	notifier Notifier
	tokens   *auth.Tokens
	validate *validator.Validate
	pageSize int
	log      zerolog.Logger
	tracer   trace.Tracer
}

type Option func(*Service)

func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

func NewService(st store.Store, notifier Notifier, tokens *auth.Tokens, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		store:    st,
		notifier: notifier,
		tokens:   tokens,
		validate: newValidator(),
		pageSize: DefaultPageSize,
		log:      log.With().Str("component", "forum").Logger(),
		tracer:   telemetry.Tracer("github.com/emilythestrangee/stackit/backend/internal/forum"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Health reports the store's health.
func (s *Service) Health(ctx context.Context) map[string]string {
	return s.store.Health(ctx)
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return strings.ToLower(f.Name)
		}
		return name
	})
	return v
}

// check validates in and converts the first failure into a validation
// error with a readable message.
func (s *Service) check(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Internal("validation failed", err)
	}
	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return apperr.Validation("%s is required", field)
	case "email":
		return apperr.Validation("%s must be a valid email address", field)
	case "min":
		if fe.Kind() == reflect.Slice {
			return apperr.Validation("%s must contain at least %s item(s)", field, fe.Param())
		}
		return apperr.Validation("%s must be at least %s characters", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return apperr.Validation("%s must contain at most %s item(s)", field, fe.Param())
		}
		return apperr.Validation("%s must be at most %s characters", field, fe.Param())
	}
	return apperr.Validation("%s is invalid", field)
}

// finish ends span, recording err when the operation failed.
func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperr.KindOf(err).String())
	}
	span.End()
}

// notify hands n to the notifier. Failures never fail the caller.
func (s *Service) notify(ctx context.Context, n *models.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Dispatch(ctx, n); err != nil {
		s.log.Warn().Err(err).
			Str("recipient", n.RecipientID).
			Str("type", string(n.Type)).
			Msg("failed to dispatch notification")
	}
}

func questionLink(id string) string {
	return fmt.Sprintf("/questions/%s", id)
}
