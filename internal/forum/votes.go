package forum

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/emilythestrangee/stackit/backend/internal/apperr"
	"github.com/emilythestrangee/stackit/backend/internal/metrics"
	"github.com/emilythestrangee/stackit/backend/internal/vote"
)

func (s *Service) VoteQuestion(ctx context.Context, userID, questionID, voteType string) (vote.Tally, error) {
	return s.vote(ctx, vote.Target{Kind: vote.QuestionTarget, ID: questionID}, userID, voteType)
}

func (s *Service) VoteAnswer(ctx context.Context, userID, answerID, voteType string) (vote.Tally, error) {
	return s.vote(ctx, vote.Target{Kind: vote.AnswerTarget, ID: answerID}, userID, voteType)
}

func (s *Service) vote(ctx context.Context, target vote.Target, userID, voteType string) (_ vote.Tally, err error) {
	ctx, span := s.tracer.Start(ctx, "forum.Vote")
	span.SetAttributes(
		attribute.String("vote.target", string(target.Kind)),
		attribute.String("vote.target_id", target.ID),
	)
	defer func() { finish(span, err) }()

	dir, err := vote.ParseDirection(voteType)
	if err != nil {
		return vote.Tally{}, apperr.Validation("%s", err.Error())
	}

	tally, action, err := s.store.ApplyVote(ctx, target, userID, dir)
	if err != nil {
		return vote.Tally{}, err
	}
	metrics.Votes.WithLabelValues(string(target.Kind), action.String()).Inc()
	span.SetAttributes(attribute.String("vote.action", action.String()))
	return tally, nil
}
