package database

import (
	"context"

	"github.com/emilythestrangee/stackit/backend/internal/models"
)

func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = models.NewID()
	}
	db := s.db.WithContext(ctx)
	var sender models.User
	if err := db.Take(&sender, "id = ?", n.SenderID).Error; err != nil {
		return translate(err, "sender")
	}
	if err := db.Omit("Sender").Create(n).Error; err != nil {
		return translate(err, "notification")
	}
	n.Sender = sender
	return nil
}

func (s *Store) ListNotifications(ctx context.Context, recipientID string) ([]models.Notification, error) {
	out := []models.Notification{}
	err := s.db.WithContext(ctx).
		Preload("Sender").
		Where("recipient_id = ?", recipientID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, translate(err, "notifications")
	}
	return out, nil
}

func (s *Store) MarkNotificationsRead(ctx context.Context, recipientID string) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND read = ?", recipientID, false).
		Update("read", true)
	if res.Error != nil {
		return 0, translate(res.Error, "notifications")
	}
	return res.RowsAffected, nil
}
