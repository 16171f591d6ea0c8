// Package mongostore is the MongoDB implementation of store.Store.
//
// MongoDB has no multi-document transactions on a standalone server, so
// every write that touches more than one document is ordered so that a
// failure midway leaves nothing dangling: the later step is compensated by
// undoing the earlier one.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/emilythestrangee/stackit/backend/internal/apperr"
	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/store"
)

const (
	colUsers         = "users"
	colQuestions     = "questions"
	colAnswers       = "answers"
	colTags          = "tags"
	colNotifications = "notifications"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
	log    zerolog.Logger
}

var _ store.Store = (*Store)(nil)

func New(ctx context.Context, uri, database string, log zerolog.Logger) (*Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("error connecting to mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("error pinging mongodb: %w", err)
	}

	log.Info().Str("database", database).Msg("mongodb connected")
	return &Store{client: client, db: client.Database(database), log: log}, nil
}

func (s *Store) col(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// Migrate creates the indexes the queries rely on. It is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	uniq := options.Index().SetUnique(true)
	indexes := map[string][]mongo.IndexModel{
		colUsers: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: uniq},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: uniq},
		},
		colTags: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: uniq},
		},
		colQuestions: {
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "author", Value: 1}}},
		},
		colAnswers: {
			{Keys: bson.D{{Key: "question", Value: 1}}},
		},
		colNotifications: {
			{Keys: bson.D{{Key: "recipient", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}
	for name, idx := range indexes {
		if _, err := s.col(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create %s indexes: %w", name, err)
		}
	}
	s.log.Info().Msg("mongodb indexes ensured")
	return nil
}

func (s *Store) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	stats := map[string]string{"driver": "mongo"}
	if err := s.client.Ping(ctx, nil); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}
	stats["status"] = "up"
	stats["message"] = "It's healthy"
	return stats
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.log.Info().Msg("disconnected from mongodb")
	return s.client.Disconnect(ctx)
}

func now() time.Time {
	return time.Now().UTC()
}

func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return apperr.NotFound(what)
	case mongo.IsDuplicateKeyError(err):
		return apperr.Conflict(what + " already exists")
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return fmt.Errorf("%s: %w", what, err)
}

func exists(ctx context.Context, c *mongo.Collection, id, what string) error {
	n, err := c.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return translate(err, what)
	}
	if n == 0 {
		return apperr.NotFound(what)
	}
	return nil
}

func equalFold(v string) bson.M {
	return bson.M{"$regex": "^" + regexp.QuoteMeta(v) + "$", "$options": "i"}
}

// Users

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = models.NewID()
	}
	u.CreatedAt = now()
	u.UpdatedAt = u.CreatedAt
	_, err := s.col(colUsers).InsertOne(ctx, userDoc{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Password:  u.Password,
		Phone:     u.Phone,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return apperr.Conflict("username or email already exists")
	}
	return translate(err, "user")
}

func (s *Store) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDoc
	if err := s.col(colUsers).FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translate(err, "user")
	}
	u := doc.model()
	return &u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"email": equalFold(email)})
}

func (s *Store) GetUsersByUsernames(ctx context.Context, names []string) ([]models.User, error) {
	out := []models.User{}
	if len(names) == 0 {
		return out, nil
	}
	anyOf := make(bson.A, 0, len(names))
	for _, name := range names {
		anyOf = append(anyOf, bson.M{"username": equalFold(name)})
	}
	docs, err := findAll[userDoc](ctx, s.col(colUsers), bson.M{"$or": anyOf})
	if err != nil {
		return nil, translate(err, "users")
	}
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

func (s *Store) UsernameOrEmailTaken(ctx context.Context, username, email string) (bool, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"username": equalFold(username)},
		bson.M{"email": equalFold(email)},
	}}
	n, err := s.col(colUsers).CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, translate(err, "user")
	}
	return n > 0, nil
}

// usersByID loads the given users keyed by id. Missing ids are absent.
func (s *Store) usersByID(ctx context.Context, ids []string) (map[string]models.User, error) {
	out := map[string]models.User{}
	if len(ids) == 0 {
		return out, nil
	}
	docs, err := findAll[userDoc](ctx, s.col(colUsers), bson.M{"_id": bson.M{"$in": unique(ids)}})
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		out[d.ID] = d.model()
	}
	return out, nil
}

func findAll[T any](ctx context.Context, c *mongo.Collection, filter any, opts ...*options.FindOptions) ([]T, error) {
	cur, err := c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	var out []T
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func unique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
