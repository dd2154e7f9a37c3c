package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoinCommunity subscribes the connection to the community room.
	CommandJoinCommunity CommandKind = iota
	// CommandLeaveCommunity unsubscribes the connection from the community room.
	CommandLeaveCommunity
	// CommandSendCommunityMessage persists and broadcasts a message.
	CommandSendCommunityMessage
)

// Command represents an action requested by a client.
type Command struct {
	Kind     CommandKind
	SenderID string // optional claim, checked against the connection user
	Text     string
}
