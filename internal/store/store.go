// Package store defines the persistence boundary of the forum.
//
// Store is implemented by three backends: Postgres through GORM
// (internal/database), MongoDB (internal/store/mongostore) and an in-memory
// store (internal/store/memstore) used by tests and local development.
// Every method is atomic with respect to a single record; multi-record
// consistency is the caller's concern unless a method says otherwise.
//
// Lookups of absent records return an error wrapping apperr.ErrNotFound.
// List methods return empty slices, never nil.
package store

import (
	"context"

	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/vote"
)

type Store interface {
	UserStore
	QuestionStore
	AnswerStore
	NotificationStore

	// ApplyVote toggles userID's vote on target in direction dir and returns
	// the resulting tally. Votes of distinct users never overwrite each other.
	ApplyVote(ctx context.Context, target vote.Target, userID string, dir vote.Direction) (vote.Tally, vote.Action, error)

	Migrate(ctx context.Context) error
	Health(ctx context.Context) map[string]string
	Close() error
}

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// GetUsersByUsernames returns the users that exist among names.
	GetUsersByUsernames(ctx context.Context, names []string) ([]models.User, error)
	// UsernameOrEmailTaken reports whether either value is already registered.
	UsernameOrEmailTaken(ctx context.Context, username, email string) (bool, error)
}

type QuestionStore interface {
	// CreateQuestion resolves tagNames (already normalized and deduplicated)
	// to tags, creating missing ones, increments each resolved tag's question
	// count by one and inserts q referencing them. q.ID and q.Tags are filled.
	CreateQuestion(ctx context.Context, q *models.Question, tagNames []string) error
	GetQuestion(ctx context.Context, id string) (*models.Question, error)
	// GetQuestionDetail returns the composed aggregate: author, tags,
	// tallies and answers with their authors.
	GetQuestionDetail(ctx context.Context, id string) (*models.QuestionDetail, error)
	// ListQuestions returns summaries newest first along with the total count.
	ListQuestions(ctx context.Context, offset, limit int) ([]models.QuestionSummary, int64, error)
	// SetAcceptedAnswer swaps the question's accepted-answer reference from
	// expected to next. It fails with apperr.ErrConflict when the stored
	// reference is not expected.
	SetAcceptedAnswer(ctx context.Context, questionID string, expected, next *string) error
	GetTag(ctx context.Context, name string) (*models.Tag, error)
	// CountUserQuestions returns the number of questions authored by userID.
	CountUserQuestions(ctx context.Context, userID string) (int64, error)
}

type AnswerStore interface {
	// CreateAnswer inserts a and appends it to its question's answer list.
	CreateAnswer(ctx context.Context, a *models.Answer) error
	GetAnswer(ctx context.Context, id string) (*models.Answer, error)
	SetAnswerAccepted(ctx context.Context, id string, accepted bool) error
	// AnswerTally returns the current tally of an answer.
	AnswerTally(ctx context.Context, id string) (vote.Tally, error)
}

type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	// ListNotifications returns recipientID's notifications newest first
	// with Sender populated.
	ListNotifications(ctx context.Context, recipientID string) ([]models.Notification, error)
	// MarkNotificationsRead marks every unread notification of recipientID
	// read and returns how many changed.
	MarkNotificationsRead(ctx context.Context, recipientID string) (int64, error)
}
