package forum

import (
	"context"

	"github.com/emilythestrangee/stackit/backend/internal/models"
)

// ListNotifications returns the caller's notifications, newest first.
func (s *Service) ListNotifications(ctx context.Context, userID string) (_ []models.NotificationView, err error) {
	ctx, span := s.tracer.Start(ctx, "forum.ListNotifications")
	defer func() { finish(span, err) }()

	list, err := s.store.ListNotifications(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]models.NotificationView, 0, len(list))
	for _, n := range list {
		out = append(out, n.View())
	}
	return out, nil
}

// MarkAllRead marks every unread notification of the caller read and
// returns how many changed.
func (s *Service) MarkAllRead(ctx context.Context, userID string) (_ int64, err error) {
	ctx, span := s.tracer.Start(ctx, "forum.MarkAllRead")
	defer func() { finish(span, err) }()

	return s.store.MarkNotificationsRead(ctx, userID)
}
