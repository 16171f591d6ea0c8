package mongostore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/emilythestrangee/stackit/backend/internal/apperr"
	"github.com/emilythestrangee/stackit/backend/internal/vote"
)

// voteAttempts bounds how often a vote is re-read and re-applied after a
// concurrent change to the same user's membership.
const voteAttempts = 5

// ApplyVote reads the user's membership and applies the resulting change
// with an update guarded on that membership. If another request changed it
// in between, the guard fails to match and the vote is decided again.
func (s *Store) ApplyVote(ctx context.Context, target vote.Target, userID string, dir vote.Direction) (vote.Tally, vote.Action, error) {
	var (
		c    *mongo.Collection
		what string
	)
	switch target.Kind {
	case vote.QuestionTarget:
		c, what = s.col(colQuestions), "question"
	case vote.AnswerTarget:
		c, what = s.col(colAnswers), "answer"
	default:
		return vote.Tally{}, 0, apperr.Validation("unknown vote target %q", target.Kind)
	}

	projection := options.FindOne().SetProjection(bson.M{"upvotes": 1, "downvotes": 1})
	for attempt := 0; attempt < voteAttempts; attempt++ {
		var current voteSets
		err := c.FindOne(ctx, bson.M{"_id": target.ID}, projection).Decode(&current)
		if err != nil {
			return vote.Tally{}, 0, translate(err, what)
		}

		membership := current.membership(userID)
		action := vote.Decide(membership, dir)
		filter, update := voteChange(target.ID, userID, dir, membership, action)

		var after voteSets
		err = c.FindOneAndUpdate(ctx, filter, update,
			options.FindOneAndUpdate().
				SetReturnDocument(options.After).
				SetProjection(bson.M{"upvotes": 1, "downvotes": 1}),
		).Decode(&after)
		switch {
		case err == nil:
			return after.tally(), action, nil
		case errors.Is(err, mongo.ErrNoDocuments):
			s.log.Debug().Str("target", target.ID).Int("attempt", attempt+1).Msg("vote membership changed, retrying")
			continue
		default:
			return vote.Tally{}, 0, translate(err, what)
		}
	}
	return vote.Tally{}, 0, apperr.Conflict("vote changed concurrently, try again")
}

func field(d vote.Direction) string {
	if d == vote.Up {
		return "upvotes"
	}
	return "downvotes"
}

// voteChange builds a filter that only matches while the user still holds
// membership, and the update that performs action.
func voteChange(id, userID string, dir vote.Direction, membership vote.Membership, action vote.Action) (bson.M, bson.M) {
	filter := bson.M{"_id": id}
	switch membership {
	case vote.InUp:
		filter["upvotes"] = userID
	case vote.InDown:
		filter["downvotes"] = userID
	default:
		filter["upvotes"] = bson.M{"$ne": userID}
		filter["downvotes"] = bson.M{"$ne": userID}
	}

	target, other := field(dir), field(dir.Opposite())
	switch action {
	case vote.Remove:
		return filter, bson.M{"$pull": bson.M{target: userID}}
	case vote.Switch:
		return filter, bson.M{"$pull": bson.M{other: userID}, "$addToSet": bson.M{target: userID}}
	default:
		return filter, bson.M{"$addToSet": bson.M{target: userID}}
	}
}
