package core

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Broadcaster persists community messages and fans them out to room members.
type Broadcaster struct {
	store    *MessageStore
	registry *Registry
	log      *zerolog.Logger

	// mu spans persist, snapshot and enqueue so every outbox sees store order.
	// Enqueueing never blocks, so a slow reader cannot stall senders.
	mu sync.Mutex
}

// NewBroadcaster creates a broadcast service over the given store and registry.
func NewBroadcaster(st *MessageStore, registry *Registry, logger *zerolog.Logger) *Broadcaster {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Broadcaster{
		store:    st,
		registry: registry,
		log:      logger,
	}
}

// SendToRoom persists a message and then delivers it to every current member.
// It returns once the message is durable; delivery failures are logged per
// recipient and never reported to the sender.
func (b *Broadcaster) SendToRoom(ctx context.Context, senderID, text string) (*Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	msg, err := b.store.Append(ctx, senderID, text)
	if err != nil {
		return nil, err
	}

	members := b.registry.Snapshot()
	event := &Event{Kind: EventCommunityMessage, Message: msg}

	delivered := 0
	for _, conn := range members {
		if err := conn.Deliver(event); err != nil {
			b.log.Debug().Err(err).
				Str("conn_id", conn.ID).
				Int64("message_id", msg.ID).
				Msg("community delivery failed")
			continue
		}
		delivered++
	}

	b.log.Debug().
		Int64("message_id", msg.ID).
		Str("sender_id", senderID).
		Int("recipients", len(members)).
		Int("delivered", delivered).
		Msg("community message broadcast")

	return msg, nil
}
