package database

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/stackit/backend/internal/apperr"
	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/vote"
)

// voteAttempts bounds retries when two requests by the same user race to
// insert the same vote row.
const voteAttempts = 3

func (s *Store) ApplyVote(ctx context.Context, target vote.Target, userID string, dir vote.Direction) (vote.Tally, vote.Action, error) {
	var (
		tally  vote.Tally
		action vote.Action
		err    error
	)
	for attempt := 0; attempt < voteAttempts; attempt++ {
		tally, action, err = s.applyVote(ctx, target, userID, dir)
		if !isUniqueViolation(err) {
			break
		}
		s.log.Debug().Str("target", target.ID).Int("attempt", attempt+1).Msg("vote insert raced, retrying")
	}
	if err != nil {
		return vote.Tally{}, 0, translate(err, "vote")
	}
	return tally, action, nil
}

func (s *Store) applyVote(ctx context.Context, target vote.Target, userID string, dir vote.Direction) (vote.Tally, vote.Action, error) {
	var (
		tally  vote.Tally
		action vote.Action
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := targetExists(tx, target); err != nil {
			return err
		}

		var existing models.Vote
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND target_type = ? AND target_id = ?", userID, string(target.Kind), target.ID).
			Take(&existing).Error
		current := vote.None
		switch {
		case err == nil:
			current = vote.MembershipOf(existing.VoteType)
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return err
		}

		action = vote.Decide(current, dir)
		switch action {
		case vote.Remove:
			err = tx.Delete(&existing).Error
		case vote.Switch:
			err = tx.Model(&existing).Update("vote_type", dir.Value()).Error
		case vote.Add:
			err = tx.Create(&models.Vote{
				ID:         models.NewID(),
				UserID:     userID,
				TargetType: string(target.Kind),
				TargetID:   target.ID,
				VoteType:   dir.Value(),
			}).Error
		}
		if err != nil {
			return err
		}

		tallies, err := talliesFor(tx, target.Kind, []string{target.ID})
		if err != nil {
			return err
		}
		tally = tallies[target.ID]
		return nil
	})
	return tally, action, err
}

func targetExists(tx *gorm.DB, target vote.Target) error {
	var (
		model any
		what  string
	)
	switch target.Kind {
	case vote.QuestionTarget:
		model, what = &models.Question{}, "question"
	case vote.AnswerTarget:
		model, what = &models.Answer{}, "answer"
	default:
		return apperr.Validation("unknown vote target %q", target.Kind)
	}
	var n int64
	if err := tx.Model(model).Where("id = ?", target.ID).Count(&n).Error; err != nil {
		return translate(err, what)
	}
	if n == 0 {
		return apperr.NotFound(what)
	}
	return nil
}

type tallyRow struct {
	TargetID  string
	Upvotes   int
	Downvotes int
}

// talliesFor counts votes for every id in one query. Ids without votes map
// to a zero tally.
func talliesFor(tx *gorm.DB, kind vote.TargetKind, ids []string) (map[string]vote.Tally, error) {
	out := make(map[string]vote.Tally, len(ids))
	for _, id := range ids {
		out[id] = vote.Tally{}
	}
	if len(ids) == 0 {
		return out, nil
	}

	var rows []tallyRow
	err := tx.Model(&models.Vote{}).
		Select("target_id, "+
			"COUNT(*) FILTER (WHERE vote_type > 0) AS upvotes, "+
			"COUNT(*) FILTER (WHERE vote_type < 0) AS downvotes").
		Where("target_type = ? AND target_id IN ?", string(kind), ids).
		Group("target_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.TargetID] = vote.NewTally(r.Upvotes, r.Downvotes)
	}
	return out, nil
}
