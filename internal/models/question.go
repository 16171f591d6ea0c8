package models

import (
	"time"

	"github.com/emilythestrangee/stackit/backend/internal/vote"
)

type Question struct {
	ID               string    `gorm:"type:uuid;primaryKey" json:"id"`
	Title            string    `gorm:"size:150;not null" json:"title"`
	Description      string    `gorm:"type:text;not null" json:"description"`
	AuthorID         string    `gorm:"type:uuid;index;not null" json:"authorId"`
	Author           User      `gorm:"foreignKey:AuthorID" json:"author"`
	Tags             []Tag     `gorm:"many2many:question_tags" json:"tags"`
	Answers          []Answer  `gorm:"foreignKey:QuestionID" json:"-"`
	AcceptedAnswerID *string   `gorm:"type:uuid" json:"acceptedAnswer"`
	CreatedAt        time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// QuestionSummary is a question as listed: author and tags resolved,
// votes tallied and answers counted.
type QuestionSummary struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Author         AuthorRef `json:"author"`
	Tags           []TagRef  `json:"tags"`
	AcceptedAnswer *string   `json:"acceptedAnswer"`
	vote.Tally
	AnswerCount int       `json:"answerCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// QuestionDetail is the fully composed question aggregate. Answers are
// ordered accepted first, then newest first.
type QuestionDetail struct {
	QuestionSummary
	Answers []AnswerView `json:"answers"`
}

type QuestionPage struct {
	Questions []QuestionSummary `json:"questions"`
	Page      int               `json:"page"`
	Pages     int               `json:"pages"`
	Count     int64             `json:"count"`
}

type CreateQuestionRequest struct {
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description" binding:"required"`
	Tags        []string `json:"tags" binding:"required"`
}
