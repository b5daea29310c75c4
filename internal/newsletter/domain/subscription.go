package domain

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

const maxEmailLength = 255

var (
	ErrInvalidEmail         = errors.New("invalid email")
	ErrAlreadySubscribed    = errors.New("email already subscribed to the newsletter")
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

type Subscription struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	SubscribedAt time.Time `json:"subscribedAt"`
}

// NormalizeEmail trims and lowercases email and checks it is a single bare
// address of at most 255 characters.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || len(email) > maxEmailLength {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}
