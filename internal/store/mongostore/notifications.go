package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/emilythestrangee/stackit/backend/internal/apperr"
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = models.NewID()
	}
	sender, err := s.GetUser(ctx, n.SenderID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return apperr.NotFound("sender")
		}
		return err
	}

	n.CreatedAt = now()
	n.UpdatedAt = n.CreatedAt
	_, err = s.col(colNotifications).InsertOne(ctx, notificationDoc{
		ID:        n.ID,
		Recipient: n.RecipientID,
		Sender:    n.SenderID,
		Type:      string(n.Type),
		Content:   n.Content,
		Link:      n.Link,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	})
	if err != nil {
		return translate(err, "notification")
	}
	n.Sender = *sender
	return nil
}

func (s *Store) ListNotifications(ctx context.Context, recipientID string) ([]models.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	docs, err := findAll[notificationDoc](ctx, s.col(colNotifications), bson.M{"recipient": recipientID}, opts)
	if err != nil {
		return nil, translate(err, "notifications")
	}

	senderIDs := make([]string, 0, len(docs))
	for _, d := range docs {
		senderIDs = append(senderIDs, d.Sender)
	}
	senders, err := s.usersByID(ctx, senderIDs)
	if err != nil {
		return nil, translate(err, "notifications")
	}

	out := make([]models.Notification, 0, len(docs))
	for _, d := range docs {
		n := d.model()
		n.Sender = senders[d.Sender]
		out = append(out, n)
	}
	return out, nil
}

func (s *Store) MarkNotificationsRead(ctx context.Context, recipientID string) (int64, error) {
	res, err := s.col(colNotifications).UpdateMany(ctx,
		bson.M{"recipient": recipientID, "read": false},
		bson.M{"$set": bson.M{"read": true, "updatedAt": now()}},
	)
	if err != nil {
		return 0, translate(err, "notifications")
	}
	return res.ModifiedCount, nil
}
