package utils

import "github.com/google/uuid"

// NewID returns a random unique identifier for connections and users.
func NewID() string {
	return uuid.NewString()
}
