package forum

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/emilythestrangee/stackit/backend/internal/apperr"
	"github.com/emilythestrangee/stackit/backend/internal/metrics"
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

// AcceptanceChange is what accepting an answer does to a question. Unaccept
// and Accept name the answers whose flag flips; Next is the question's new
// accepted-answer reference.
type AcceptanceChange struct {
	Unaccept *string
	Accept   *string
	Next     *string
}

// Transition computes the change of accepting answerID while current is
// accepted. Accepting the accepted answer again withdraws it; accepting a
// different one replaces it.
func Transition(current *string, answerID string) AcceptanceChange {
	id := answerID
	if current != nil && *current == answerID {
		return AcceptanceChange{Unaccept: &id}
	}
	change := AcceptanceChange{Accept: &id, Next: &id}
	if current != nil {
		prev := *current
		change.Unaccept = &prev
	}
	return change
}

func (c AcceptanceChange) outcome() string {
	switch {
	case c.Accept == nil:
		return metrics.OutcomeUnaccepted
	case c.Unaccept != nil:
		return metrics.OutcomeSwitched
	default:
		return metrics.OutcomeAccepted
	}
}

type AcceptResult struct {
	Message string            `json:"message"`
	Answer  models.AnswerView `json:"answer"`
}

type flagWrite struct {
	answerID string
	accepted bool
}

// AcceptAnswer toggles acceptance of answerID on behalf of callerID, who
// must be the author of the answer's question.
//
// The question's reference is swapped first with a compare-and-set against
// the value read, so of two concurrent accepts exactly one proceeds and the
// other gets a conflict. Answer flags are written afterwards; if one of
// those writes fails, the writes already made and the reference are rolled
// back.
func (s *Service) AcceptAnswer(ctx context.Context, callerID, answerID string) (_ *AcceptResult, err error) {
	ctx, span := s.tracer.Start(ctx, "forum.AcceptAnswer")
	span.SetAttributes(attribute.String("answer.id", answerID))
	defer func() { finish(span, err) }()

	answer, err := s.store.GetAnswer(ctx, answerID)
	if err != nil {
		return nil, err
	}
	question, err := s.store.GetQuestion(ctx, answer.QuestionID)
	if err != nil {
		return nil, err
	}
	if question.AuthorID != callerID {
		metrics.Acceptance.WithLabelValues(metrics.OutcomeForbidden).Inc()
		return nil, apperr.Forbidden("only the question author can accept an answer")
	}

	change := Transition(question.AcceptedAnswerID, answer.ID)

	if err := s.store.SetAcceptedAnswer(ctx, question.ID, question.AcceptedAnswerID, change.Next); err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			metrics.Acceptance.WithLabelValues(metrics.OutcomeConflict).Inc()
		} else {
			metrics.Acceptance.WithLabelValues(metrics.OutcomeFailed).Inc()
		}
		return nil, err
	}

	var writes []flagWrite
	if change.Unaccept != nil {
		writes = append(writes, flagWrite{*change.Unaccept, false})
	}
	if change.Accept != nil {
		writes = append(writes, flagWrite{*change.Accept, true})
	}
	for i, w := range writes {
		if err := s.store.SetAnswerAccepted(ctx, w.answerID, w.accepted); err != nil {
			s.rollbackAcceptance(ctx, question, change, writes[:i])
			metrics.Acceptance.WithLabelValues(metrics.OutcomeFailed).Inc()
			return nil, apperr.Internal("failed to update accepted answer", err)
		}
	}
	metrics.Acceptance.WithLabelValues(change.outcome()).Inc()

	answer.IsAccepted = change.Accept != nil
	tally, err := s.store.AnswerTally(ctx, answer.ID)
	if err != nil {
		return nil, err
	}

	result := &AcceptResult{
		Message: "Answer unaccepted",
		Answer: models.AnswerView{
			ID:         answer.ID,
			QuestionID: answer.QuestionID,
			Author:     answer.Author.Ref(),
			Body:       answer.Body,
			IsAccepted: answer.IsAccepted,
			Tally:      tally,
			CreatedAt:  answer.CreatedAt,
			UpdatedAt:  answer.UpdatedAt,
		},
	}
	if change.Accept != nil {
		result.Message = "Answer accepted"
		if answer.AuthorID != callerID {
			s.notify(ctx, &models.Notification{
				RecipientID: answer.AuthorID,
				SenderID:    callerID,
				Type:        models.NotificationAcceptedAnswer,
				Content:     fmt.Sprintf("%s accepted your answer on %q", question.Author.Username, question.Title),
				Link:        questionLink(question.ID),
			})
		}
	}

	s.log.Info().
		Str("question", question.ID).
		Str("answer", answer.ID).
		Str("outcome", change.outcome()).
		Msg("acceptance changed")
	return result, nil
}

// rollbackAcceptance undoes applied flag writes in reverse order and then
// restores the question's reference. Failures here are only logged.
func (s *Service) rollbackAcceptance(ctx context.Context, q *models.Question, change AcceptanceChange, applied []flagWrite) {
	for i := len(applied) - 1; i >= 0; i-- {
		w := applied[i]
		if err := s.store.SetAnswerAccepted(ctx, w.answerID, !w.accepted); err != nil {
			s.log.Error().Err(err).Str("answer", w.answerID).Msg("acceptance rollback: failed to restore answer flag")
		}
	}
	if err := s.store.SetAcceptedAnswer(ctx, q.ID, change.Next, q.AcceptedAnswerID); err != nil {
		s.log.Error().Err(err).Str("question", q.ID).Msg("acceptance rollback: failed to restore accepted answer")
	}
}
