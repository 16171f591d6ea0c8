package mongostore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/emilythestrangee/stackit/backend/internal/vote"
)

func TestVoteChange(t *testing.T) {
	t.Run("add guards on absence from both sets", func(t *testing.T) {
		filter, update := voteChange("q1", "u1", vote.Up, vote.None, vote.Add)
		assert.Equal(t, bson.M{
			"_id":       "q1",
			"upvotes":   bson.M{"$ne": "u1"},
			"downvotes": bson.M{"$ne": "u1"},
		}, filter)
		assert.Equal(t, bson.M{"$addToSet": bson.M{"upvotes": "u1"}}, update)
	})

	t.Run("remove guards on current membership", func(t *testing.T) {
		filter, update := voteChange("q1", "u1", vote.Down, vote.InDown, vote.Remove)
		assert.Equal(t, bson.M{"_id": "q1", "downvotes": "u1"}, filter)
		assert.Equal(t, bson.M{"$pull": bson.M{"downvotes": "u1"}}, update)
	})

	t.Run("switch moves between sets in one update", func(t *testing.T) {
		filter, update := voteChange("a1", "u1", vote.Up, vote.InDown, vote.Switch)
		assert.Equal(t, bson.M{"_id": "a1", "downvotes": "u1"}, filter)
		assert.Equal(t, bson.M{
			"$pull":     bson.M{"downvotes": "u1"},
			"$addToSet": bson.M{"upvotes": "u1"},
		}, update)
	})
}

func TestVoteSets(t *testing.T) {
	sets := voteSets{Upvotes: []string{"a", "b"}, Downvotes: []string{"c"}}
	assert.Equal(t, vote.InUp, sets.membership("a"))
	assert.Equal(t, vote.InDown, sets.membership("c"))
	assert.Equal(t, vote.None, sets.membership("z"))
	assert.Equal(t, vote.NewTally(2, 1), sets.tally())
}
