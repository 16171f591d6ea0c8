package mongostore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/emilythestrangee/stackit/backend/internal/apperr"
	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/vote"
)

// upsertTag finds the tag called name, creating it if missing, and bumps
// its question count. A concurrent insert of the same name loses the
// unique-index race once and then matches the winner.
func (s *Store) upsertTag(ctx context.Context, name string) (models.Tag, error) {
	filter := bson.M{"name": name}
	update := bson.M{
		"$setOnInsert": bson.M{"_id": models.NewID(), "name": name, "createdAt": now()},
		"$inc":         bson.M{"questionCount": 1},
		"$set":         bson.M{"updatedAt": now()},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc tagDoc
	err := s.col(colTags).FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if mongo.IsDuplicateKeyError(err) {
		err = s.col(colTags).FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	}
	if err != nil {
		return models.Tag{}, err
	}
	return doc.model(), nil
}

func (s *Store) releaseTags(ctx context.Context, tags []models.Tag) {
	for _, t := range tags {
		_, err := s.col(colTags).UpdateOne(ctx, bson.M{"_id": t.ID}, bson.M{"$inc": bson.M{"questionCount": -1}})
		if err != nil {
			s.log.Error().Err(err).Str("tag", t.Name).Msg("failed to roll back tag count")
		}
	}
}

func (s *Store) CreateQuestion(ctx context.Context, q *models.Question, tagNames []string) error {
	author, err := s.GetUser(ctx, q.AuthorID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return apperr.NotFound("author")
		}
		return err
	}

	tags := make([]models.Tag, 0, len(tagNames))
	tagIDs := make([]string, 0, len(tagNames))
	for _, name := range tagNames {
		tag, err := s.upsertTag(ctx, name)
		if err != nil {
			s.releaseTags(ctx, tags)
			return translate(err, "tag")
		}
		tags = append(tags, tag)
		tagIDs = append(tagIDs, tag.ID)
	}

	if q.ID == "" {
		q.ID = models.NewID()
	}
	q.CreatedAt = now()
	q.UpdatedAt = q.CreatedAt
	_, err = s.col(colQuestions).InsertOne(ctx, questionDoc{
		ID:             q.ID,
		Title:          q.Title,
		Description:    q.Description,
		Author:         q.AuthorID,
		Tags:           tagIDs,
		Answers:        []string{},
		Upvotes:        []string{},
		Downvotes:      []string{},
		AcceptedAnswer: q.AcceptedAnswerID,
		CreatedAt:      q.CreatedAt,
		UpdatedAt:      q.UpdatedAt,
	})
	if err != nil {
		s.releaseTags(ctx, tags)
		return translate(err, "question")
	}
	q.Tags = tags
	q.Author = *author
	return nil
}

func (s *Store) findQuestion(ctx context.Context, id string) (questionDoc, error) {
	var doc questionDoc
	err := s.col(colQuestions).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	return doc, translate(err, "question")
}

func (s *Store) tagsByID(ctx context.Context, ids []string) (map[string]models.Tag, error) {
	out := map[string]models.Tag{}
	if len(ids) == 0 {
		return out, nil
	}
	docs, err := findAll[tagDoc](ctx, s.col(colTags), bson.M{"_id": bson.M{"$in": unique(ids)}})
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		out[d.ID] = d.model()
	}
	return out, nil
}

func (s *Store) GetQuestion(ctx context.Context, id string) (*models.Question, error) {
	doc, err := s.findQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	q := doc.model()
	users, err := s.usersByID(ctx, []string{doc.Author})
	if err != nil {
		return nil, translate(err, "question")
	}
	tags, err := s.tagsByID(ctx, doc.Tags)
	if err != nil {
		return nil, translate(err, "question")
	}
	q.Author = users[doc.Author]
	for _, tid := range doc.Tags {
		if t, ok := tags[tid]; ok {
			q.Tags = append(q.Tags, t)
		}
	}
	return &q, nil
}

func (s *Store) GetQuestionDetail(ctx context.Context, id string) (*models.QuestionDetail, error) {
	doc, err := s.findQuestion(ctx, id)
	if err != nil {
		return nil, err
	}

	answers, err := findAll[answerDoc](ctx, s.col(colAnswers), bson.M{"_id": bson.M{"$in": unique(doc.Answers)}})
	if err != nil {
		return nil, translate(err, "answers")
	}

	userIDs := []string{doc.Author}
	for _, a := range answers {
		userIDs = append(userIDs, a.Author)
	}
	users, err := s.usersByID(ctx, userIDs)
	if err != nil {
		return nil, translate(err, "question")
	}
	tags, err := s.tagsByID(ctx, doc.Tags)
	if err != nil {
		return nil, translate(err, "question")
	}

	detail := &models.QuestionDetail{
		QuestionSummary: summarize(doc, users, tags),
		Answers:         make([]models.AnswerView, 0, len(answers)),
	}
	for _, a := range answers {
		sets := voteSets{Upvotes: a.Upvotes, Downvotes: a.Downvotes}
		detail.Answers = append(detail.Answers, models.AnswerView{
			ID:         a.ID,
			QuestionID: a.Question,
			Author:     users[a.Author].Ref(),
			Body:       a.Body,
			IsAccepted: a.IsAccepted,
			Tally:      sets.tally(),
			CreatedAt:  a.CreatedAt,
			UpdatedAt:  a.UpdatedAt,
		})
	}
	models.SortAnswers(detail.Answers)
	return detail, nil
}

func (s *Store) ListQuestions(ctx context.Context, offset, limit int) ([]models.QuestionSummary, int64, error) {
	total, err := s.col(colQuestions).CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, translate(err, "questions")
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	docs, err := findAll[questionDoc](ctx, s.col(colQuestions), bson.M{}, opts)
	if err != nil {
		return nil, 0, translate(err, "questions")
	}

	var userIDs, tagIDs []string
	for _, d := range docs {
		userIDs = append(userIDs, d.Author)
		tagIDs = append(tagIDs, d.Tags...)
	}
	users, err := s.usersByID(ctx, userIDs)
	if err != nil {
		return nil, 0, translate(err, "questions")
	}
	tags, err := s.tagsByID(ctx, tagIDs)
	if err != nil {
		return nil, 0, translate(err, "questions")
	}

	out := make([]models.QuestionSummary, 0, len(docs))
	for _, d := range docs {
		out = append(out, summarize(d, users, tags))
	}
	return out, total, nil
}

func summarize(d questionDoc, users map[string]models.User, tags map[string]models.Tag) models.QuestionSummary {
	refs := make([]models.TagRef, 0, len(d.Tags))
	for _, tid := range d.Tags {
		if t, ok := tags[tid]; ok {
			refs = append(refs, t.Ref())
		}
	}
	sets := voteSets{Upvotes: d.Upvotes, Downvotes: d.Downvotes}
	return models.QuestionSummary{
		ID:             d.ID,
		Title:          d.Title,
		Description:    d.Description,
		Author:         users[d.Author].Ref(),
		Tags:           refs,
		AcceptedAnswer: d.AcceptedAnswer,
		Tally:          sets.tally(),
		AnswerCount:    len(d.Answers),
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func (s *Store) SetAcceptedAnswer(ctx context.Context, questionID string, expected, next *string) error {
	filter := bson.M{"_id": questionID, "acceptedAnswer": nil}
	if expected != nil {
		filter["acceptedAnswer"] = *expected
	}
	var value any
	if next != nil {
		value = *next
	}
	res, err := s.col(colQuestions).UpdateOne(ctx, filter, bson.M{
		"$set": bson.M{"acceptedAnswer": value, "updatedAt": now()},
	})
	if err != nil {
		return translate(err, "question")
	}
	if res.MatchedCount > 0 {
		return nil
	}
	if err := exists(ctx, s.col(colQuestions), questionID, "question"); err != nil {
		return err
	}
	return apperr.Conflict("accepted answer changed concurrently")
}

func (s *Store) GetTag(ctx context.Context, name string) (*models.Tag, error) {
	var doc tagDoc
	if err := s.col(colTags).FindOne(ctx, bson.M{"name": name}).Decode(&doc); err != nil {
		return nil, translate(err, "tag")
	}
	t := doc.model()
	return &t, nil
}

func (s *Store) CountUserQuestions(ctx context.Context, userID string) (int64, error) {
	n, err := s.col(colQuestions).CountDocuments(ctx, bson.M{"author": userID})
	if err != nil {
		return 0, translate(err, "questions")
	}
	return n, nil
}

// Answers

// CreateAnswer inserts the answer and then appends it to the question. If
// the append fails the inserted answer is removed again.
func (s *Store) CreateAnswer(ctx context.Context, a *models.Answer) error {
	if err := exists(ctx, s.col(colQuestions), a.QuestionID, "question"); err != nil {
		return err
	}
	author, err := s.GetUser(ctx, a.AuthorID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return apperr.NotFound("author")
		}
		return err
	}

	if a.ID == "" {
		a.ID = models.NewID()
	}
	a.CreatedAt = now()
	a.UpdatedAt = a.CreatedAt
	_, err = s.col(colAnswers).InsertOne(ctx, answerDoc{
		ID:         a.ID,
		Question:   a.QuestionID,
		Author:     a.AuthorID,
		Body:       a.Body,
		IsAccepted: a.IsAccepted,
		Upvotes:    []string{},
		Downvotes:  []string{},
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	})
	if err != nil {
		return translate(err, "answer")
	}

	res, err := s.col(colQuestions).UpdateOne(ctx,
		bson.M{"_id": a.QuestionID},
		bson.M{"$push": bson.M{"answers": a.ID}, "$set": bson.M{"updatedAt": now()}},
	)
	if err == nil && res.MatchedCount == 0 {
		err = apperr.NotFound("question")
	}
	if err != nil {
		if _, delErr := s.col(colAnswers).DeleteOne(ctx, bson.M{"_id": a.ID}); delErr != nil {
			s.log.Error().Err(delErr).Str("answer", a.ID).Msg("failed to remove orphaned answer")
		}
		return translate(err, "question")
	}
	a.Author = *author
	return nil
}

func (s *Store) findAnswer(ctx context.Context, id string) (answerDoc, error) {
	var doc answerDoc
	err := s.col(colAnswers).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	return doc, translate(err, "answer")
}

func (s *Store) GetAnswer(ctx context.Context, id string) (*models.Answer, error) {
	doc, err := s.findAnswer(ctx, id)
	if err != nil {
		return nil, err
	}
	a := doc.model()
	author, err := s.GetUser(ctx, doc.Author)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	if author != nil {
		a.Author = *author
	}
	return &a, nil
}

func (s *Store) SetAnswerAccepted(ctx context.Context, id string, accepted bool) error {
	res, err := s.col(colAnswers).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"isAccepted": accepted, "updatedAt": now()}},
	)
	if err != nil {
		return translate(err, "answer")
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("answer")
	}
	return nil
}

func (s *Store) AnswerTally(ctx context.Context, id string) (vote.Tally, error) {
	doc, err := s.findAnswer(ctx, id)
	if err != nil {
		return vote.Tally{}, err
	}
	return voteSets{Upvotes: doc.Upvotes, Downvotes: doc.Downvotes}.tally(), nil
}
