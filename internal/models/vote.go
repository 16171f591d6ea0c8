package models

import "time"

// Vote is one user's membership in the upvote or downvote set of a question
// or answer. The unique index keeps a user in at most one of the two sets.
type Vote struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     string    `gorm:"type:uuid;not null;uniqueIndex:idx_votes_user_target" json:"userId"`
	TargetType string    `gorm:"size:16;not null;uniqueIndex:idx_votes_user_target;index:idx_votes_target" json:"targetType"`
	TargetID   string    `gorm:"type:uuid;not null;uniqueIndex:idx_votes_user_target;index:idx_votes_target" json:"targetId"`
	VoteType   int       `gorm:"not null" json:"voteType"` // +1 or -1
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
