package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/vovakirdan/docify-community/internal/store"
)

const (
	// DefaultHistoryLimit is the number of messages returned when no limit is given.
	DefaultHistoryLimit = 50
	// MaxHistoryLimit is the largest page Recent will return.
	MaxHistoryLimit = 50
	// DefaultMaxTextBytes caps the size of a single message text.
	DefaultMaxTextBytes = 4096
)

// MessageStore is the durable, ordered message log of the community room.
// It is the single writer of message ids and timestamps and serializes appends.
type MessageStore struct {
	log          store.MessageLog
	users        store.UserDirectory
	maxTextBytes int
	now          func() time.Time

	mu            sync.Mutex
	primed        bool
	lastCreatedAt time.Time
}

// NewMessageStore builds a store over a message log and a user directory.
func NewMessageStore(log store.MessageLog, users store.UserDirectory, maxTextBytes int) *MessageStore {
	if maxTextBytes <= 0 {
		maxTextBytes = DefaultMaxTextBytes
	}
	return &MessageStore{
		log:          log,
		users:        users,
		maxTextBytes: maxTextBytes,
		now:          time.Now,
	}
}

// Append validates, enriches and durably writes a message.
// Failures are never retried; the caller must not broadcast on error.
func (s *MessageStore) Append(ctx context.Context, senderID, text string) (*Message, error) {
	if senderID == "" {
		return nil, coreError(ErrCodeValidation, "sender is required")
	}
	if strings.TrimSpace(text) == "" {
		return nil, coreError(ErrCodeValidation, "text must not be empty")
	}
	if len(text) > s.maxTextBytes {
		return nil, coreError(ErrCodeValidation, fmt.Sprintf("text exceeds %d bytes", s.maxTextBytes))
	}

	sender, err := s.users.LookupSender(ctx, senderID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, wrapCoreError(ErrCodeNotFound, "sender not found", err)
		}
		return nil, wrapCoreError(ErrCodeStorage, "user directory unavailable", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.primeLocked(ctx); err != nil {
		return nil, wrapCoreError(ErrCodeStorage, "message store unavailable", err)
	}

	createdAt := s.now().UTC()
	if createdAt.Before(s.lastCreatedAt) {
		createdAt = s.lastCreatedAt
	}

	row := &store.Message{
		SenderID:  senderID,
		Text:      text,
		CreatedAt: createdAt,
	}
	if err := s.log.Append(ctx, row); err != nil {
		return nil, wrapCoreError(ErrCodeStorage, "failed to persist message", err)
	}
	s.lastCreatedAt = createdAt

	return &Message{
		ID:        row.ID,
		SenderID:  row.SenderID,
		Text:      row.Text,
		CreatedAt: row.CreatedAt,
		Sender:    *sender,
	}, nil
}

// primeLocked loads the newest timestamp once so ordering holds across restarts.
func (s *MessageStore) primeLocked(ctx context.Context) error {
	if s.primed {
		return nil
	}
	latest, err := s.log.Recent(ctx, 1)
	if err != nil {
		return err
	}
	if len(latest) == 1 {
		s.lastCreatedAt = latest[0].CreatedAt.UTC()
	}
	s.primed = true
	return nil
}

// Recent returns the latest limit messages, oldest first.
// A non-positive limit falls back to DefaultHistoryLimit and larger ones are
// capped at MaxHistoryLimit.
func (s *MessageStore) Recent(ctx context.Context, limit int) ([]Message, error) {
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}

	rows, err := s.log.Recent(ctx, limit)
	if err != nil {
		return nil, wrapCoreError(ErrCodeStorage, "failed to load history", err)
	}

	senders := make(map[string]Sender)
	messages := make([]Message, 0, len(rows))
	for _, row := range rows {
		sender, ok := senders[row.SenderID]
		if !ok {
			found, err := s.users.LookupSender(ctx, row.SenderID)
			switch {
			case err == nil:
				sender = *found
			case errors.Is(err, store.ErrUserNotFound):
				// Deleted authors keep their messages with blank display fields.
				sender = Sender{ID: row.SenderID}
			default:
				return nil, wrapCoreError(ErrCodeStorage, "user directory unavailable", err)
			}
			senders[row.SenderID] = sender
		}

		messages = append(messages, Message{
			ID:        row.ID,
			SenderID:  row.SenderID,
			Text:      row.Text,
			CreatedAt: row.CreatedAt,
			Sender:    sender,
		})
	}
	return messages, nil
}
