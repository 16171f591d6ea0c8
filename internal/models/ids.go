package models

import "github.com/google/uuid"

// NewID returns a fresh record identifier. All stores use UUID strings so
// ids are portable between backends.
func NewID() string {
	return uuid.NewString()
}
