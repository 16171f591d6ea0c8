package models

import "time"

type NotificationType string

const (
	NotificationNewAnswer      NotificationType = "new_answer"
	NotificationMention        NotificationType = "mention"
	NotificationAcceptedAnswer NotificationType = "accepted_answer"
)

type Notification struct {
	ID          string           `gorm:"type:uuid;primaryKey" json:"id"`
	RecipientID string           `gorm:"type:uuid;not null;index:idx_notifications_recipient" json:"recipientId"`
	SenderID    string           `gorm:"type:uuid;not null" json:"senderId"`
	Sender      User             `gorm:"foreignKey:SenderID" json:"-"`
	Type        NotificationType `gorm:"size:32;not null" json:"type"`
	Content     string           `gorm:"not null" json:"content"`
	Link        string           `gorm:"not null" json:"link"`
	Read        bool             `gorm:"default:false;index:idx_notifications_recipient" json:"read"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// NotificationView is a notification as returned to its recipient.
type NotificationView struct {
	ID        string           `json:"id"`
	Sender    AuthorRef        `json:"sender"`
	Type      NotificationType `json:"type"`
	Content   string           `json:"content"`
	Link      string           `json:"link"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
}

func (n Notification) View() NotificationView {
	return NotificationView{
		ID:        n.ID,
		Sender:    n.Sender.Ref(),
		Type:      n.Type,
		Content:   n.Content,
		Link:      n.Link,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}
