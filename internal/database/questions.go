package database

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/stackit/backend/internal/apperr"
	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/vote"
)

func (s *Store) CreateQuestion(ctx context.Context, q *models.Question, tagNames []string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var author models.User
		if err := tx.Take(&author, "id = ?", q.AuthorID).Error; err != nil {
			return translate(err, "author")
		}

		tags := make([]models.Tag, 0, len(tagNames))
		for _, name := range tagNames {
			candidate := models.Tag{ID: models.NewID(), Name: name}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				DoNothing: true,
			}).Create(&candidate).Error
			if err != nil {
				return err
			}

			var tag models.Tag
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&tag, "name = ?", name).Error; err != nil {
				return err
			}
			err = tx.Model(&tag).UpdateColumn("question_count", gorm.Expr("question_count + ?", 1)).Error
			if err != nil {
				return err
			}
			tag.QuestionCount++
			tags = append(tags, tag)
		}

		if q.ID == "" {
			q.ID = models.NewID()
		}
		q.Tags = tags
		if err := tx.Omit("Author", "Tags.*").Create(q).Error; err != nil {
			return err
		}
		q.Author = author
		return nil
	})
	return translate(err, "question")
}

func (s *Store) GetQuestion(ctx context.Context, id string) (*models.Question, error) {
	var q models.Question
	err := s.db.WithContext(ctx).
		Preload("Author").
		Preload("Tags", orderTags).
		Take(&q, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, "question")
	}
	return &q, nil
}

func orderTags(db *gorm.DB) *gorm.DB {
	return db.Order("tags.name")
}

func (s *Store) GetQuestionDetail(ctx context.Context, id string) (*models.QuestionDetail, error) {
	db := s.db.WithContext(ctx)

	var q models.Question
	err := db.
		Preload("Author").
		Preload("Tags", orderTags).
		Preload("Answers.Author").
		Take(&q, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, "question")
	}

	questionTally, err := talliesFor(db, vote.QuestionTarget, []string{q.ID})
	if err != nil {
		return nil, translate(err, "question")
	}
	answerIDs := make([]string, 0, len(q.Answers))
	for _, a := range q.Answers {
		answerIDs = append(answerIDs, a.ID)
	}
	answerTallies, err := talliesFor(db, vote.AnswerTarget, answerIDs)
	if err != nil {
		return nil, translate(err, "answers")
	}

	detail := &models.QuestionDetail{
		QuestionSummary: summarize(q, questionTally[q.ID], len(q.Answers)),
		Answers:         make([]models.AnswerView, 0, len(q.Answers)),
	}
	for _, a := range q.Answers {
		detail.Answers = append(detail.Answers, answerView(a, answerTallies[a.ID]))
	}
	models.SortAnswers(detail.Answers)
	return detail, nil
}

type answerCountRow struct {
	QuestionID string
	Count      int
}

func (s *Store) ListQuestions(ctx context.Context, offset, limit int) ([]models.QuestionSummary, int64, error) {
	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.Question{}).Count(&total).Error; err != nil {
		return nil, 0, translate(err, "questions")
	}

	var questions []models.Question
	err := db.
		Preload("Author").
		Preload("Tags", orderTags).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&questions).Error
	if err != nil {
		return nil, 0, translate(err, "questions")
	}

	ids := make([]string, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.ID)
	}
	tallies, err := talliesFor(db, vote.QuestionTarget, ids)
	if err != nil {
		return nil, 0, translate(err, "questions")
	}

	counts := map[string]int{}
	if len(ids) > 0 {
		var rows []answerCountRow
		err := db.Model(&models.Answer{}).
			Select("question_id, COUNT(*) AS count").
			Where("question_id IN ?", ids).
			Group("question_id").
			Scan(&rows).Error
		if err != nil {
			return nil, 0, translate(err, "questions")
		}
		for _, r := range rows {
			counts[r.QuestionID] = r.Count
		}
	}

	out := make([]models.QuestionSummary, 0, len(questions))
	for _, q := range questions {
		out = append(out, summarize(q, tallies[q.ID], counts[q.ID]))
	}
	return out, total, nil
}

func (s *Store) SetAcceptedAnswer(ctx context.Context, questionID string, expected, next *string) error {
	db := s.db.WithContext(ctx)

	update := db.Model(&models.Question{}).Where("id = ?", questionID)
	if expected == nil {
		update = update.Where("accepted_answer_id IS NULL")
	} else {
		update = update.Where("accepted_answer_id = ?", *expected)
	}
	var value any
	if next != nil {
		value = *next
	}
	res := update.Updates(map[string]any{
		"accepted_answer_id": value,
		"updated_at":         time.Now().UTC(),
	})
	if res.Error != nil {
		return translate(res.Error, "question")
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var n int64
	if err := db.Model(&models.Question{}).Where("id = ?", questionID).Count(&n).Error; err != nil {
		return translate(err, "question")
	}
	if n == 0 {
		return apperr.NotFound("question")
	}
	return apperr.Conflict("accepted answer changed concurrently")
}

func (s *Store) GetTag(ctx context.Context, name string) (*models.Tag, error) {
	var t models.Tag
	if err := s.db.WithContext(ctx).Take(&t, "name = ?", name).Error; err != nil {
		return nil, translate(err, "tag")
	}
	return &t, nil
}

func (s *Store) CountUserQuestions(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Question{}).Where("author_id = ?", userID).Count(&n).Error
	if err != nil {
		return 0, translate(err, "questions")
	}
	return n, nil
}

func summarize(q models.Question, tally vote.Tally, answerCount int) models.QuestionSummary {
	tags := make([]models.TagRef, 0, len(q.Tags))
	for _, t := range q.Tags {
		tags = append(tags, t.Ref())
	}
	return models.QuestionSummary{
		ID:             q.ID,
		Title:          q.Title,
		Description:    q.Description,
		Author:         q.Author.Ref(),
		Tags:           tags,
		AcceptedAnswer: q.AcceptedAnswerID,
		Tally:          tally,
		AnswerCount:    answerCount,
		CreatedAt:      q.CreatedAt,
		UpdatedAt:      q.UpdatedAt,
	}
}

func answerView(a models.Answer, tally vote.Tally) models.AnswerView {
	return models.AnswerView{
		ID:         a.ID,
		QuestionID: a.QuestionID,
		Author:     a.Author.Ref(),
		Body:       a.Body,
		IsAccepted: a.IsAccepted,
		Tally:      tally,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}
