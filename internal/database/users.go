package database

import (
	"context"
	"strings"

	"github.com/emilythestrangee/stackit/backend/internal/models"
)

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = models.NewID()
	}
	err := s.db.WithContext(ctx).Create(u).Error
	if isUniqueViolation(err) {
		return translate(err, "username or email")
	}
	return translate(err, "user")
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Take(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err, "user")
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).Take(&u).Error
	if err != nil {
		return nil, translate(err, "user")
	}
	return &u, nil
}

func (s *Store) GetUsersByUsernames(ctx context.Context, names []string) ([]models.User, error) {
	users := []models.User{}
	if len(names) == 0 {
		return users, nil
	}
	lowered := make([]string, len(names))
	for i, name := range names {
		lowered[i] = strings.ToLower(name)
	}
	if err := s.db.WithContext(ctx).Where("LOWER(username) IN ?", lowered).Find(&users).Error; err != nil {
		return nil, translate(err, "users")
	}
	return users, nil
}

func (s *Store) UsernameOrEmailTaken(ctx context.Context, username, email string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("LOWER(username) = LOWER(?) OR LOWER(email) = LOWER(?)", username, email).
		Count(&n).Error
	if err != nil {
		return false, translate(err, "user")
	}
	return n > 0, nil
}
