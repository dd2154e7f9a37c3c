package core

import (
	"fmt"
	"sync"
)

// DefaultOutboxSize is the per-connection delivery buffer.
const DefaultOutboxSize = 64

// ConnState is the lifecycle state of a connection.
type ConnState int

const (
	StateConnecting ConnState = iota
	StateOpen
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// CloseReason tells the transport why the core closed a connection.
type CloseReason int

const (
	// CloseNormal is a client disconnect or transport error.
	CloseNormal CloseReason = iota
	// CloseSlowConsumer means the outbox overflowed and messages were lost.
	CloseSlowConsumer
	// CloseShutdown means the service is stopping.
	CloseShutdown
)

// Connection is one live client session as seen by the core layer.
// The gateway owns it; the registry only keeps a reference for fan-out.
type Connection struct {
	ID     string
	UserID string // empty for anonymous read-only clients

	mu     sync.Mutex
	state  ConnState
	reason CloseReason
	outbox chan *Event
	done   chan struct{}
}

// NewConnection constructs a connection in the Connecting state.
func NewConnection(id, userID string, outboxSize int) *Connection {
	if outboxSize <= 0 {
		outboxSize = DefaultOutboxSize
	}
	return &Connection{
		ID:     id,
		UserID: userID,
		state:  StateConnecting,
		outbox: make(chan *Event, outboxSize),
		done:   make(chan struct{}),
	}
}

// Anonymous reports whether the connection has no authenticated user.
func (c *Connection) Anonymous() bool {
	return c.UserID == ""
}

// State returns the current lifecycle state.
func (c *Connection) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Outbox yields events queued for this client.
func (c *Connection) Outbox() <-chan *Event {
	return c.outbox
}

// Done is closed once the connection reaches the Closed state.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// CloseReason returns why the connection was closed. Only meaningful after Done.
func (c *Connection) CloseReason() CloseReason {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

// open moves Connecting -> Open. It reports false in any other state.
func (c *Connection) open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateConnecting {
		return false
	}
	c.state = StateOpen
	return true
}

// Deliver enqueues an event without blocking.
// A closed connection yields ErrConnectionClosed; a full outbox closes the
// connection as a slow consumer and yields ErrDelivery.
func (c *Connection) Deliver(ev *Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateOpen {
		return fmt.Errorf("%w: %s: %w", ErrDelivery, c.ID, ErrConnectionClosed)
	}

	select {
	case c.outbox <- ev:
		return nil
	default:
		c.closeLocked(CloseSlowConsumer)
		return fmt.Errorf("%w: %s: outbox full", ErrDelivery, c.ID)
	}
}

// Close moves the connection to Closed. Returns true on the first call only.
func (c *Connection) Close(reason CloseReason) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked(reason)
}

func (c *Connection) closeLocked(reason CloseReason) bool {
	if c.state == StateClosed {
		return false
	}
	c.state = StateClosed
	c.reason = reason
	close(c.done)
	return true
}
