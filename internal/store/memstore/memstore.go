// Package memstore is an in-memory store.Store. It backs the test suites
// and STORE_DRIVER=memory for local development; data does not survive a
// restart.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/emilythestrangee/stackit/backend/internal/apperr"
	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/store"
	"github.com/emilythestrangee/stackit/backend/internal/vote"
)

type questionRecord struct {
	question  models.Question
	tagIDs    []string
	answerIDs []string
	votes     *vote.Sets
}

type answerRecord struct {
	answer models.Answer
	votes  *vote.Sets
}

type Store struct {
	mu sync.RWMutex

	users         map[string]models.User
	questions     map[string]*questionRecord
	answers       map[string]*answerRecord
	tags          map[string]*models.Tag
	tagsByName    map[string]string
	notifications []models.Notification

	lastTick time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:      map[string]models.User{},
		questions:  map[string]*questionRecord{},
		answers:    map[string]*answerRecord{},
		tags:       map[string]*models.Tag{},
		tagsByName: map[string]string{},
	}
}

// now returns a strictly increasing UTC timestamp so newest-first ordering
// is total even for records created in the same clock tick.
func (s *Store) now() time.Time {
	t := time.Now().UTC()
	if !t.After(s.lastTick) {
		t = s.lastTick.Add(time.Microsecond)
	}
	s.lastTick = t
	return t
}

func (s *Store) Migrate(context.Context) error { return nil }

func (s *Store) Health(context.Context) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]string{
		"status":    "up",
		"driver":    "memory",
		"questions": fmt.Sprintf("%d", len(s.questions)),
	}
}

func (s *Store) Close() error { return nil }

// Users

func (s *Store) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Username, u.Username) || strings.EqualFold(existing.Email, u.Email) {
			return apperr.Conflict("username or email already exists")
		}
	}
	if u.ID == "" {
		u.ID = models.NewID()
	}
	u.CreatedAt = s.now()
	u.UpdatedAt = u.CreatedAt
	s.users[u.ID] = *u
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, apperr.NotFound("user")
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, apperr.NotFound("user")
}

func (s *Store) GetUsersByUsernames(_ context.Context, names []string) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.User{}
	seen := map[string]bool{}
	for _, name := range names {
		for _, u := range s.users {
			if strings.EqualFold(u.Username, name) && !seen[u.ID] {
				seen[u.ID] = true
				out = append(out, u)
				break
			}
		}
	}
	return out, nil
}

func (s *Store) UsernameOrEmailTaken(_ context.Context, username, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) || strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

// Questions

func (s *Store) CreateQuestion(_ context.Context, q *models.Question, tagNames []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[q.AuthorID]; !ok {
		return apperr.NotFound("author")
	}

	tagIDs := make([]string, 0, len(tagNames))
	resolved := make([]models.Tag, 0, len(tagNames))
	for _, name := range tagNames {
		id, ok := s.tagsByName[name]
		if !ok {
			now := s.now()
			id = models.NewID()
			s.tags[id] = &models.Tag{ID: id, Name: name, CreatedAt: now, UpdatedAt: now}
			s.tagsByName[name] = id
		}
		tag := s.tags[id]
		tag.QuestionCount++
		tagIDs = append(tagIDs, id)
		resolved = append(resolved, *tag)
	}

	if q.ID == "" {
		q.ID = models.NewID()
	}
	q.CreatedAt = s.now()
	q.UpdatedAt = q.CreatedAt
	q.Tags = resolved
	q.Author = s.users[q.AuthorID]

	stored := *q
	stored.Tags = nil
	stored.Author = models.User{}
	s.questions[q.ID] = &questionRecord{question: stored, tagIDs: tagIDs, votes: vote.NewSets()}
	return nil
}

func (s *Store) GetQuestion(_ context.Context, id string) (*models.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.questions[id]
	if !ok {
		return nil, apperr.NotFound("question")
	}
	q := rec.question
	q.Author = s.users[q.AuthorID]
	for _, tid := range rec.tagIDs {
		q.Tags = append(q.Tags, *s.tags[tid])
	}
	return &q, nil
}

func (s *Store) summary(rec *questionRecord) models.QuestionSummary {
	q := rec.question
	tags := make([]models.TagRef, 0, len(rec.tagIDs))
	for _, tid := range rec.tagIDs {
		tags = append(tags, s.tags[tid].Ref())
	}
	return models.QuestionSummary{
		ID:             q.ID,
		Title:          q.Title,
		Description:    q.Description,
		Author:         s.users[q.AuthorID].Ref(),
		Tags:           tags,
		AcceptedAnswer: q.AcceptedAnswerID,
		Tally:          rec.votes.Tally(),
		AnswerCount:    len(rec.answerIDs),
		CreatedAt:      q.CreatedAt,
		UpdatedAt:      q.UpdatedAt,
	}
}

func (s *Store) GetQuestionDetail(_ context.Context, id string) (*models.QuestionDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.questions[id]
	if !ok {
		return nil, apperr.NotFound("question")
	}
	detail := &models.QuestionDetail{QuestionSummary: s.summary(rec), Answers: []models.AnswerView{}}
	for _, aid := range rec.answerIDs {
		ar := s.answers[aid]
		a := ar.answer
		detail.Answers = append(detail.Answers, models.AnswerView{
			ID:         a.ID,
			QuestionID: a.QuestionID,
			Author:     s.users[a.AuthorID].Ref(),
			Body:       a.Body,
			IsAccepted: a.IsAccepted,
			Tally:      ar.votes.Tally(),
			CreatedAt:  a.CreatedAt,
			UpdatedAt:  a.UpdatedAt,
		})
	}
	models.SortAnswers(detail.Answers)
	return detail, nil
}

func (s *Store) ListQuestions(_ context.Context, offset, limit int) ([]models.QuestionSummary, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := make([]*questionRecord, 0, len(s.questions))
	for _, rec := range s.questions {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].question.CreatedAt.After(recs[j].question.CreatedAt)
	})

	total := int64(len(recs))
	out := []models.QuestionSummary{}
	if offset < 0 || offset >= len(recs) || limit <= 0 {
		return out, total, nil
	}
	end := offset + min(limit, len(recs)-offset)
	for _, rec := range recs[offset:end] {
		out = append(out, s.summary(rec))
	}
	return out, total, nil
}

func (s *Store) SetAcceptedAnswer(_ context.Context, questionID string, expected, next *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.questions[questionID]
	if !ok {
		return apperr.NotFound("question")
	}
	if !sameRef(rec.question.AcceptedAnswerID, expected) {
		return apperr.Conflict("accepted answer changed concurrently")
	}
	rec.question.AcceptedAnswerID = copyRef(next)
	rec.question.UpdatedAt = s.now()
	return nil
}

func (s *Store) GetTag(_ context.Context, name string) (*models.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.tagsByName[name]
	if !ok {
		return nil, apperr.NotFound("tag")
	}
	t := *s.tags[id]
	return &t, nil
}

func (s *Store) CountUserQuestions(_ context.Context, userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, rec := range s.questions {
		if rec.question.AuthorID == userID {
			n++
		}
	}
	return n, nil
}

// Answers

func (s *Store) CreateAnswer(_ context.Context, a *models.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.questions[a.QuestionID]
	if !ok {
		return apperr.NotFound("question")
	}
	if a.ID == "" {
		a.ID = models.NewID()
	}
	a.CreatedAt = s.now()
	a.UpdatedAt = a.CreatedAt
	a.Author = s.users[a.AuthorID]

	stored := *a
	stored.Author = models.User{}
	s.answers[a.ID] = &answerRecord{answer: stored, votes: vote.NewSets()}
	rec.answerIDs = append(rec.answerIDs, a.ID)
	return nil
}

func (s *Store) GetAnswer(_ context.Context, id string) (*models.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.answers[id]
	if !ok {
		return nil, apperr.NotFound("answer")
	}
	a := rec.answer
	a.Author = s.users[a.AuthorID]
	return &a, nil
}

func (s *Store) SetAnswerAccepted(_ context.Context, id string, accepted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.answers[id]
	if !ok {
		return apperr.NotFound("answer")
	}
	rec.answer.IsAccepted = accepted
	rec.answer.UpdatedAt = s.now()
	return nil
}

func (s *Store) AnswerTally(_ context.Context, id string) (vote.Tally, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.answers[id]
	if !ok {
		return vote.Tally{}, apperr.NotFound("answer")
	}
	return rec.votes.Tally(), nil
}

// Votes

func (s *Store) ApplyVote(_ context.Context, target vote.Target, userID string, dir vote.Direction) (vote.Tally, vote.Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sets *vote.Sets
	switch target.Kind {
	case vote.QuestionTarget:
		rec, ok := s.questions[target.ID]
		if !ok {
			return vote.Tally{}, 0, apperr.NotFound("question")
		}
		sets = rec.votes
	case vote.AnswerTarget:
		rec, ok := s.answers[target.ID]
		if !ok {
			return vote.Tally{}, 0, apperr.NotFound("answer")
		}
		sets = rec.votes
	default:
		return vote.Tally{}, 0, apperr.Validation("unknown vote target %q", target.Kind)
	}
	action := sets.Toggle(userID, dir)
	return sets.Tally(), action, nil
}

// Notifications

func (s *Store) CreateNotification(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sender, ok := s.users[n.SenderID]
	if !ok {
		return apperr.NotFound("sender")
	}
	if n.ID == "" {
		n.ID = models.NewID()
	}
	n.CreatedAt = s.now()
	n.UpdatedAt = n.CreatedAt
	n.Sender = sender

	stored := *n
	stored.Sender = models.User{}
	s.notifications = append(s.notifications, stored)
	return nil
}

func (s *Store) ListNotifications(_ context.Context, recipientID string) ([]models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Notification{}
	for i := len(s.notifications) - 1; i >= 0; i-- {
		n := s.notifications[i]
		if n.RecipientID != recipientID {
			continue
		}
		n.Sender = s.users[n.SenderID]
		out = append(out, n)
	}
	return out, nil
}

func (s *Store) MarkNotificationsRead(_ context.Context, recipientID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for i := range s.notifications {
		if s.notifications[i].RecipientID == recipientID && !s.notifications[i].Read {
			s.notifications[i].Read = true
			n++
		}
	}
	return n, nil
}

func sameRef(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func copyRef(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
