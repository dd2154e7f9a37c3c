package core

import (
	"context"

	"github.com/rs/zerolog"
)

// Gateway drives connection lifecycles and maps client commands onto the
// registry and the broadcaster. Transports call it; it never touches the wire.
type Gateway struct {
	registry    *Registry
	sessions    *Registry // every open connection, joined or not
	broadcaster *Broadcaster
	outboxSize  int
	log         *zerolog.Logger
}

// NewGateway builds a gateway with injected room state.
func NewGateway(registry *Registry, broadcaster *Broadcaster, outboxSize int, logger *zerolog.Logger) *Gateway {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Gateway{
		registry:    registry,
		sessions:    NewRegistry(),
		broadcaster: broadcaster,
		outboxSize:  outboxSize,
		log:         logger,
	}
}

// Accept creates a connection in the Connecting state.
// userID is the trusted identity from the handshake, empty for anonymous.
func (g *Gateway) Accept(id, userID string) *Connection {
	return NewConnection(id, userID, g.outboxSize)
}

// Open completes the handshake. Returns false if conn is not Connecting.
func (g *Gateway) Open(conn *Connection) bool {
	if !conn.open() {
		return false
	}
	g.sessions.Join(conn)
	g.log.Debug().Str("conn_id", conn.ID).Str("user_id", conn.UserID).Msg("connection open")
	return true
}

// Handle applies a client command and returns the reply for the originating
// connection only.
func (g *Gateway) Handle(ctx context.Context, conn *Connection, cmd Command) *Event {
	if conn.State() != StateOpen {
		return errorEvent(coreError(ErrCodeBadRequest, "connection is not open"))
	}

	switch cmd.Kind {
	case CommandJoinCommunity:
		if g.registry.Join(conn) {
			g.log.Debug().Str("conn_id", conn.ID).Msg("joined community")
		}
		return &Event{Kind: EventJoined, Members: g.registry.Len()}

	case CommandLeaveCommunity:
		if g.registry.Leave(conn.ID) {
			g.log.Debug().Str("conn_id", conn.ID).Msg("left community")
		}
		return &Event{Kind: EventLeft}

	case CommandSendCommunityMessage:
		if conn.Anonymous() {
			return errorEvent(coreError(ErrCodeUnauthorized, "authentication required to send messages"))
		}
		if cmd.SenderID != "" && cmd.SenderID != conn.UserID {
			return errorEvent(coreError(ErrCodeValidation, "senderId does not match authenticated user"))
		}

		msg, err := g.broadcaster.SendToRoom(ctx, conn.UserID, cmd.Text)
		if err != nil {
			ce := AsCoreError(err)
			if ce.Code == ErrCodeStorage {
				g.log.Error().Err(err).Str("conn_id", conn.ID).Str("user_id", conn.UserID).Msg("send community message")
			}
			return errorEvent(ce)
		}
		return &Event{Kind: EventMessageAccepted, Message: msg}

	default:
		return errorEvent(coreError(ErrCodeBadRequest, "unknown command"))
	}
}

// Disconnect closes the connection and releases its membership.
// Safe to call more than once and on every exit path.
func (g *Gateway) Disconnect(conn *Connection) {
	conn.Close(CloseNormal)
	g.sessions.Leave(conn.ID)
	if g.registry.Leave(conn.ID) {
		g.log.Debug().Str("conn_id", conn.ID).Msg("membership released on disconnect")
	}
}

// Sessions returns the number of open connections.
func (g *Gateway) Sessions() int {
	return g.sessions.Len()
}

// Shutdown closes every open connection and empties the room.
func (g *Gateway) Shutdown() {
	g.registry.CloseAll()
	if n := g.sessions.CloseAll(); n > 0 {
		g.log.Info().Int("connections", n).Msg("closed community connections")
	}
}
