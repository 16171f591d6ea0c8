package models

import "time"

type User struct {
	ID       string `gorm:"type:uuid;primaryKey" json:"id"`
	Username string `gorm:"unique;not null" json:"username"`
	Email    string `gorm:"unique;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`
	// Phone is optional; when set, offline users get SMS for new answers.
	Phone string `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AuthorRef is the public projection of a User embedded in read views.
type AuthorRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

func (u User) Ref() AuthorRef {
	return AuthorRef{ID: u.ID, Username: u.Username}
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Phone    string `json:"phone"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token   string `json:"token"`
	User    User   `json:"user"`
	Message string `json:"message"`
}

// UserProfile is the public view of a user.
type UserProfile struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	QuestionCount int64     `json:"questionCount"`
	CreatedAt     time.Time `json:"createdAt"`
}
