package core

import (
	"time"

	"github.com/vovakirdan/docify-community/internal/store"
)

// Sender carries the display fields of a message author.
type Sender = store.Sender

// Message is the enriched community message handed to clients.
type Message struct {
	ID        int64
	SenderID  string
	Text      string
	CreatedAt time.Time
	Sender    Sender
}
