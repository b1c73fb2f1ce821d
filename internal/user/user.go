// Package user provides account persistence for the auth endpoints.
package user

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")

	// ErrDuplicate is returned when the username or email is already taken.
	ErrDuplicate = errors.New("user already exists")
)

// UseCases are the accepted answers to the signup "use case" question.
var UseCases = []string{
	"Personal Assistant",
	"Business Automation",
	"Customer Support",
	"Content Creation",
	"Research & Learning",
	"Creative Writing",
	"Other",
}

// Experiences are the accepted answers to the signup "experience" question.
var Experiences = []string{
	"New to AI",
	"Some Experience",
	"Advanced User",
	"AI Developer",
}

// User is a registered account. PasswordHash is the bcrypt hash of the
// password and never leaves the store layer in API responses.
type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	UseCase      string
	Experience   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
