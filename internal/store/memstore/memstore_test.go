package memstore

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/stackit/backend/internal/apperr"
	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/vote"
)

func seed(t *testing.T) (*Store, *models.Question) {
	t.Helper()
	ctx := context.Background()
	s := New()
	u := &models.User{Username: "alice", Email: "alice@example.com", Password: "hash"}
	require.NoError(t, s.CreateUser(ctx, u))
	q := &models.Question{Title: "How do channels work?", Description: "Long enough description.", AuthorID: u.ID}
	require.NoError(t, s.CreateQuestion(ctx, q, []string{"go", "channels"}))
	return s, q
}

func TestSetAcceptedAnswer_CompareAndSet(t *testing.T) {
	s, q := seed(t)
	ctx := context.Background()
	a, b := "a", "b"

	require.NoError(t, s.SetAcceptedAnswer(ctx, q.ID, nil, &a))

	err := s.SetAcceptedAnswer(ctx, q.ID, nil, &b)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	require.NoError(t, s.SetAcceptedAnswer(ctx, q.ID, &a, &b))
	got, err := s.GetQuestion(ctx, q.ID)
	require.NoError(t, err)
	require.NotNil(t, got.AcceptedAnswerID)
	assert.Equal(t, "b", *got.AcceptedAnswerID)

	err = s.SetAcceptedAnswer(ctx, "missing", nil, &a)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestCreateQuestion_CountsTags(t *testing.T) {
	s, q := seed(t)
	ctx := context.Background()

	q2 := &models.Question{Title: "Buffered channels?", Description: "Long enough description.", AuthorID: q.AuthorID}
	require.NoError(t, s.CreateQuestion(ctx, q2, []string{"channels"}))

	goTag, err := s.GetTag(ctx, "go")
	require.NoError(t, err)
	assert.Equal(t, 1, goTag.QuestionCount)
	chTag, err := s.GetTag(ctx, "channels")
	require.NoError(t, err)
	assert.Equal(t, 2, chTag.QuestionCount)
	assert.Equal(t, chTag.ID, q2.Tags[0].ID)

	err = s.CreateQuestion(ctx, &models.Question{Title: "x", AuthorID: "ghost"}, []string{"go"})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestApplyVote_ReturnsAction(t *testing.T) {
	s, q := seed(t)
	ctx := context.Background()
	target := vote.Target{Kind: vote.QuestionTarget, ID: q.ID}

	tally, action, err := s.ApplyVote(ctx, target, "u1", vote.Up)
	require.NoError(t, err)
	assert.Equal(t, vote.Add, action)
	assert.Equal(t, 1, tally.VoteCount)

	tally, action, err = s.ApplyVote(ctx, target, "u1", vote.Down)
	require.NoError(t, err)
	assert.Equal(t, vote.Switch, action)
	assert.Equal(t, -1, tally.VoteCount)

	_, _, err = s.ApplyVote(ctx, vote.Target{Kind: vote.AnswerTarget, ID: "missing"}, "u1", vote.Up)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestListQuestions_OffsetBounds(t *testing.T) {
	s, q := seed(t)
	ctx := context.Background()

	for _, offset := range []int{-5, 1, math.MaxInt} {
		page, total, err := s.ListQuestions(ctx, offset, 10)
		require.NoError(t, err)
		assert.Empty(t, page, "offset %d", offset)
		assert.EqualValues(t, 1, total)
	}

	page, _, err := s.ListQuestions(ctx, 0, math.MaxInt)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, q.ID, page[0].ID)
}

func TestGetUsersByUsernames_IgnoresCase(t *testing.T) {
	s, q := seed(t)

	users, err := s.GetUsersByUsernames(context.Background(), []string{"ALICE", "alice", "nobody"})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, q.AuthorID, users[0].ID)
}

func TestCreateNotification_UnknownSender(t *testing.T) {
	s, q := seed(t)
	ctx := context.Background()

	err := s.CreateNotification(ctx, &models.Notification{RecipientID: q.AuthorID, SenderID: "ghost", Type: models.NotificationMention})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	list, err := s.ListNotifications(ctx, q.AuthorID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
