package models

import (
	"sort"
	"time"

	"github.com/emilythestrangee/stackit/backend/internal/vote"
)

type Answer struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	QuestionID string    `gorm:"type:uuid;index;not null" json:"questionId"`
	AuthorID   string    `gorm:"type:uuid;index;not null" json:"authorId"`
	Author     User      `gorm:"foreignKey:AuthorID" json:"author"`
	Body       string    `gorm:"type:text;not null" json:"body"`
	IsAccepted bool      `gorm:"default:false" json:"isAccepted"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type AnswerView struct {
	ID         string    `json:"id"`
	QuestionID string    `json:"questionId"`
	Author     AuthorRef `json:"author"`
	Body       string    `json:"body"`
	IsAccepted bool      `json:"isAccepted"`
	vote.Tally
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SortAnswers orders answers accepted first, then newest first.
func SortAnswers(answers []AnswerView) {
	sort.SliceStable(answers, func(i, j int) bool {
		if answers[i].IsAccepted != answers[j].IsAccepted {
			return answers[i].IsAccepted
		}
		return answers[i].CreatedAt.After(answers[j].CreatedAt)
	})
}

type CreateAnswerRequest struct {
	QuestionID string `json:"questionId" binding:"required"`
	Body       string `json:"body" binding:"required"`
}

type VoteRequest struct {
	VoteType string `json:"voteType" binding:"required"`
}
