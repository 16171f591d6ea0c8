package database

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/emilythestrangee/stackit/backend/internal/apperr"
	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/vote"
)

// CreateAnswer inserts the answer row. The question's answer list is the
// foreign key, so insertion and attachment are a single statement.
func (s *Store) CreateAnswer(ctx context.Context, a *models.Answer) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Question{}).Where("id = ?", a.QuestionID).Count(&n).Error; err != nil {
			return translate(err, "question")
		}
		if n == 0 {
			return apperr.NotFound("question")
		}
		var author models.User
		if err := tx.Take(&author, "id = ?", a.AuthorID).Error; err != nil {
			return translate(err, "author")
		}
		if a.ID == "" {
			a.ID = models.NewID()
		}
		if err := tx.Omit("Author").Create(a).Error; err != nil {
			return err
		}
		a.Author = author
		return nil
	})
	return translate(err, "answer")
}

func (s *Store) GetAnswer(ctx context.Context, id string) (*models.Answer, error) {
	var a models.Answer
	if err := s.db.WithContext(ctx).Preload("Author").Take(&a, "id = ?", id).Error; err != nil {
		return nil, translate(err, "answer")
	}
	return &a, nil
}

func (s *Store) SetAnswerAccepted(ctx context.Context, id string, accepted bool) error {
	res := s.db.WithContext(ctx).Model(&models.Answer{}).Where("id = ?", id).
		Updates(map[string]any{"is_accepted": accepted, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return translate(res.Error, "answer")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("answer")
	}
	return nil
}

func (s *Store) AnswerTally(ctx context.Context, id string) (vote.Tally, error) {
	db := s.db.WithContext(ctx)
	if err := targetExists(db, vote.Target{Kind: vote.AnswerTarget, ID: id}); err != nil {
		return vote.Tally{}, translate(err, "answer")
	}
	tallies, err := talliesFor(db, vote.AnswerTarget, []string{id})
	if err != nil {
		return vote.Tally{}, translate(err, "answer")
	}
	return tallies[id], nil
}
