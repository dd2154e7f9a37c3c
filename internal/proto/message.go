package proto

import (
	"encoding/json"
	"time"
)

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type" validate:"required"`
	Data json.RawMessage `json:"data,omitempty"`
}

const (
	InboundTypeJoinCommunity        = "join_community"
	InboundTypeLeaveCommunity       = "leave_community"
	InboundTypeSendCommunityMessage = "send_community_message"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventReceiveCommunityMessage = "receive_community_message"
	EventMessageAccepted         = "community_message_accepted"
	EventJoinedCommunity         = "joined_community"
	EventLeftCommunity           = "left_community"

	// ErrCodeInvalidMessage is reported for frames that are not a valid envelope.
	ErrCodeInvalidMessage = "invalid_message"
)

// SendCommunityMessageData is a chat message from the client.
// SenderID is optional and must match the authenticated user when present.
type SendCommunityMessageData struct {
	SenderID string `json:"senderId" validate:"omitempty,max=128"`
	Text     string `json:"text" validate:"required"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Sender is the populated author of a message.
type Sender struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName,omitempty"`
	Username    string `json:"username,omitempty"`
	AvatarURL   string `json:"avatarURL,omitempty"`
}

// MessagePayload is the shape of a community message on the socket and in
// the history API.
type MessagePayload struct {
	ID        int64     `json:"id"`
	SenderID  string    `json:"senderId"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	Sender    Sender    `json:"sender"`
}

// EventJoined confirms a join and reports the current member count.
type EventJoined struct {
	Members int `json:"members"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
