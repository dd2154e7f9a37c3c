//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
package store

import (
	"context"
	"errors"
	"time"
)

// ErrUserNotFound is returned by UserDirectory when the id does not resolve.
var ErrUserNotFound = errors.New("user not found")

// Sender holds the public display fields of a message author.
type Sender struct {
	ID          string
	DisplayName string
	Username    string
	AvatarURL   string
}

// Message represents a persisted community message.
type Message struct {
	ID        int64
	SenderID  string
	Text      string
	CreatedAt time.Time
}

// MessageLog handles message persistence.
type MessageLog interface {
	// Append persists msg and sets msg.ID. IDs grow with insertion order.
	Append(ctx context.Context, msg *Message) error

	// Recent returns up to limit of the newest messages, oldest first.
	Recent(ctx context.Context, limit int) ([]*Message, error)

	// Close releases the underlying storage.
	Close() error
}

// UserDirectory resolves user ids to display fields.
type UserDirectory interface {
	// LookupSender returns ErrUserNotFound (wrapped) for unknown ids.
	LookupSender(ctx context.Context, id string) (*Sender, error)

	// UpsertSender creates or replaces a directory entry.
	UpsertSender(ctx context.Context, sender *Sender) error
}
