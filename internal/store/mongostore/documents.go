package mongostore

import (
	"time"

	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/vote"
)

type userDoc struct {
	ID        string    `bson:"_id"`
	Username  string    `bson:"username"`
	Email     string    `bson:"email"`
	Password  string    `bson:"password"`
	Phone     string    `bson:"phone,omitempty"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func (d userDoc) model() models.User {
	return models.User{
		ID:        d.ID,
		Username:  d.Username,
		Email:     d.Email,
		Password:  d.Password,
		Phone:     d.Phone,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type tagDoc struct {
	ID            string    `bson:"_id"`
	Name          string    `bson:"name"`
	QuestionCount int       `bson:"questionCount"`
	CreatedAt     time.Time `bson:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt"`
}

func (d tagDoc) model() models.Tag {
	return models.Tag{
		ID:            d.ID,
		Name:          d.Name,
		QuestionCount: d.QuestionCount,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

// questionDoc embeds vote sets and the answer id list, so a vote or an
// answer attachment is a single-document update.
type questionDoc struct {
	ID             string    `bson:"_id"`
	Title          string    `bson:"title"`
	Description    string    `bson:"description"`
	Author         string    `bson:"author"`
	Tags           []string  `bson:"tags"`
	Answers        []string  `bson:"answers"`
	Upvotes        []string  `bson:"upvotes"`
	Downvotes      []string  `bson:"downvotes"`
	AcceptedAnswer *string   `bson:"acceptedAnswer"`
	CreatedAt      time.Time `bson:"createdAt"`
	UpdatedAt      time.Time `bson:"updatedAt"`
}

func (d questionDoc) model() models.Question {
	return models.Question{
		ID:               d.ID,
		Title:            d.Title,
		Description:      d.Description,
		AuthorID:         d.Author,
		AcceptedAnswerID: d.AcceptedAnswer,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

type answerDoc struct {
	ID         string    `bson:"_id"`
	Question   string    `bson:"question"`
	Author     string    `bson:"author"`
	Body       string    `bson:"body"`
	IsAccepted bool      `bson:"isAccepted"`
	Upvotes    []string  `bson:"upvotes"`
	Downvotes  []string  `bson:"downvotes"`
	CreatedAt  time.Time `bson:"createdAt"`
	UpdatedAt  time.Time `bson:"updatedAt"`
}

func (d answerDoc) model() models.Answer {
	return models.Answer{
		ID:         d.ID,
		QuestionID: d.Question,
		AuthorID:   d.Author,
		Body:       d.Body,
		IsAccepted: d.IsAccepted,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

type notificationDoc struct {
	ID        string    `bson:"_id"`
	Recipient string    `bson:"recipient"`
	Sender    string    `bson:"sender"`
	Type      string    `bson:"type"`
	Content   string    `bson:"content"`
	Link      string    `bson:"link"`
	Read      bool      `bson:"read"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func (d notificationDoc) model() models.Notification {
	return models.Notification{
		ID:          d.ID,
		RecipientID: d.Recipient,
		SenderID:    d.Sender,
		Type:        models.NotificationType(d.Type),
		Content:     d.Content,
		Link:        d.Link,
		Read:        d.Read,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// voteSets is the projection read and returned by vote updates.
type voteSets struct {
	Upvotes   []string `bson:"upvotes"`
	Downvotes []string `bson:"downvotes"`
}

func (v voteSets) membership(userID string) vote.Membership {
	for _, id := range v.Upvotes {
		if id == userID {
			return vote.InUp
		}
	}
	for _, id := range v.Downvotes {
		if id == userID {
			return vote.InDown
		}
	}
	return vote.None
}

func (v voteSets) tally() vote.Tally {
	return vote.NewTally(len(v.Upvotes), len(v.Downvotes))
}
