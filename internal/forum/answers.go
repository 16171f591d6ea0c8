package forum

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/emilythestrangee/stackit/backend/internal/models"
)

type NewAnswer struct {
	QuestionID string `json:"questionId" validate:"required"`
	Body       string `json:"body" validate:"required,min=10"`
}

var mentionPattern = regexp.MustCompile(`(?:^|[^\w@])@([A-Za-z0-9_][A-Za-z0-9_.-]*)`)

// Mentions returns the distinct usernames mentioned as @name in body, in
// order of first appearance. Usernames compare case-insensitively, so
// @Carol and @carol count once.
func Mentions(body string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, m := range mentionPattern.FindAllStringSubmatch(body, -1) {
		name := strings.TrimRight(m[1], ".-")
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}
	return out
}

// CreateAnswer stores an answer to in.QuestionID and notifies the
// question's author, unless they answered themselves, plus any other users
// mentioned in the body.
func (s *Service) CreateAnswer(ctx context.Context, authorID string, in NewAnswer) (_ *models.AnswerView, err error) {
	ctx, span := s.tracer.Start(ctx, "forum.CreateAnswer")
	span.SetAttributes(attribute.String("question.id", in.QuestionID))
	defer func() { finish(span, err) }()

	in.Body = strings.TrimSpace(in.Body)
	if err := s.check(in); err != nil {
		return nil, err
	}

	question, err := s.store.GetQuestion(ctx, in.QuestionID)
	if err != nil {
		return nil, err
	}

	answer := &models.Answer{
		QuestionID: question.ID,
		AuthorID:   authorID,
		Body:       in.Body,
	}
	if err := s.store.CreateAnswer(ctx, answer); err != nil {
		return nil, err
	}
	s.log.Info().Str("question", question.ID).Str("answer", answer.ID).Msg("answer created")

	if authorID != question.AuthorID {
		s.notify(ctx, &models.Notification{
			RecipientID: question.AuthorID,
			SenderID:    authorID,
			Type:        models.NotificationNewAnswer,
			Content:     fmt.Sprintf("%s answered your question: %q", answer.Author.Username, question.Title),
			Link:        questionLink(question.ID),
		})
	}
	s.notifyMentions(ctx, answer, question)

	return &models.AnswerView{
		ID:         answer.ID,
		QuestionID: answer.QuestionID,
		Author:     answer.Author.Ref(),
		Body:       answer.Body,
		IsAccepted: answer.IsAccepted,
		CreatedAt:  answer.CreatedAt,
		UpdatedAt:  answer.UpdatedAt,
	}, nil
}

func (s *Service) notifyMentions(ctx context.Context, answer *models.Answer, question *models.Question) {
	names := Mentions(answer.Body)
	if len(names) == 0 {
		return
	}
	users, err := s.store.GetUsersByUsernames(ctx, names)
	if err != nil {
		s.log.Warn().Err(err).Str("answer", answer.ID).Msg("failed to resolve mentions")
		return
	}
	notified := map[string]bool{}
	for _, u := range users {
		if u.ID == answer.AuthorID || u.ID == question.AuthorID || notified[u.ID] {
			continue
		}
		notified[u.ID] = true
		s.notify(ctx, &models.Notification{
			RecipientID: u.ID,
			SenderID:    answer.AuthorID,
			Type:        models.NotificationMention,
			Content:     fmt.Sprintf("%s mentioned you in an answer to %q", answer.Author.Username, question.Title),
			Link:        questionLink(question.ID),
		})
	}
}
