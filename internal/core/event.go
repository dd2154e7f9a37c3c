package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventCommunityMessage delivers a persisted message to a room member.
	EventCommunityMessage EventKind = iota
	// EventMessageAccepted confirms to the sender that its message was persisted.
	EventMessageAccepted
	// EventJoined confirms a join_community request.
	EventJoined
	// EventLeft confirms a leave_community request.
	EventLeft
	// EventError notifies the originating client about a rejected command.
	EventError
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind    EventKind
	Message *Message
	Members int // For EventJoined
	Error   *CoreError
}

func errorEvent(err error) *Event {
	return &Event{Kind: EventError, Error: AsCoreError(err)}
}
