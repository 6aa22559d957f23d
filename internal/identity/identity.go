// Package identity resolves user profiles from the external identity provider.
package identity

import (
	"context"
	"errors"
)

// ErrUserNotFound is returned when the identity provider has no record of the user.
var ErrUserNotFound = errors.New("user not found")

// User is the public profile joined onto questions, answers and comments.
type User struct {
	ID        string  `json:"id"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	ImageURL  *string `json:"imageUrl"`
}

// Resolver looks up a user by identity-provider ID.
type Resolver interface {
	Resolve(ctx context.Context, userID string) (User, error)
}

// Anonymous is the placeholder shown for users the provider no longer knows.
func Anonymous() User {
	return User{FirstName: "Anonymous", LastName: ""}
}
