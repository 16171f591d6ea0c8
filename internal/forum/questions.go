package forum

import (
	"context"
	"math"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/emilythestrangee/stackit/backend/internal/apperr"
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

type NewQuestion struct {
	Title       string   `json:"title" validate:"required,min=10,max=150"`
	Description string   `json:"description" validate:"required,min=20"`
	Tags        []string `json:"tags" validate:"required,min=1"`
}

// NormalizeTags trims and lowercases labels, drops empty ones and removes
// duplicates, keeping first-seen order.
func NormalizeTags(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		name := strings.ToLower(strings.TrimSpace(l))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// CreateQuestion validates in, resolves its tags (creating missing ones and
// counting the question once per distinct tag) and stores the question.
func (s *Service) CreateQuestion(ctx context.Context, authorID string, in NewQuestion) (_ *models.QuestionSummary, err error) {
	ctx, span := s.tracer.Start(ctx, "forum.CreateQuestion")
	defer func() { finish(span, err) }()

	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if err := s.check(in); err != nil {
		return nil, err
	}
	tags := NormalizeTags(in.Tags)
	if len(tags) == 0 {
		return nil, apperr.Validation("tags must contain at least one non-empty tag")
	}
	span.SetAttributes(attribute.StringSlice("question.tags", tags))

	q := &models.Question{
		Title:       in.Title,
		Description: in.Description,
		AuthorID:    authorID,
	}
	if err := s.store.CreateQuestion(ctx, q, tags); err != nil {
		return nil, err
	}

	tagRefs := make([]models.TagRef, 0, len(q.Tags))
	for _, t := range q.Tags {
		tagRefs = append(tagRefs, t.Ref())
	}
	s.log.Info().Str("question", q.ID).Str("author", authorID).Strs("tags", tags).Msg("question created")
	return &models.QuestionSummary{
		ID:             q.ID,
		Title:          q.Title,
		Description:    q.Description,
		Author:         q.Author.Ref(),
		Tags:           tagRefs,
		AcceptedAnswer: q.AcceptedAnswerID,
		CreatedAt:      q.CreatedAt,
		UpdatedAt:      q.UpdatedAt,
	}, nil
}

// ListQuestions returns one page of questions, newest first. Pages are
// 1-based; anything below 1 is treated as the first page.
func (s *Service) ListQuestions(ctx context.Context, page int) (_ *models.QuestionPage, err error) {
	ctx, span := s.tracer.Start(ctx, "forum.ListQuestions")
	defer func() { finish(span, err) }()

	// Beyond maxPage the offset would overflow int.
	maxPage := math.MaxInt / s.pageSize
	switch {
	case page < 1:
		page = 1
	case page > maxPage:
		page = maxPage
	}
	span.SetAttributes(attribute.Int("page", page))

	questions, count, err := s.store.ListQuestions(ctx, (page-1)*s.pageSize, s.pageSize)
	if err != nil {
		return nil, err
	}
	return &models.QuestionPage{
		Questions: questions,
		Page:      page,
		Pages:     int((count + int64(s.pageSize) - 1) / int64(s.pageSize)),
		Count:     count,
	}, nil
}

func (s *Service) GetQuestion(ctx context.Context, id string) (_ *models.QuestionDetail, err error) {
	ctx, span := s.tracer.Start(ctx, "forum.GetQuestion")
	span.SetAttributes(attribute.String("question.id", id))
	defer func() { finish(span, err) }()

	return s.store.GetQuestionDetail(ctx, id)
}
