package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/vovakirdan/docify-community/internal/core"
	"github.com/vovakirdan/docify-community/internal/proto"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error) {
	if err := validate.Struct(inbound); err != nil {
		return nil, &proto.Error{Code: proto.ErrCodeInvalidMessage, Msg: "type is required"}
	}

	switch inbound.Type {
	case proto.InboundTypeJoinCommunity:
		return &core.Command{Kind: core.CommandJoinCommunity}, nil
	case proto.InboundTypeLeaveCommunity:
		return &core.Command{Kind: core.CommandLeaveCommunity}, nil
	case proto.InboundTypeSendCommunityMessage:
		if len(inbound.Data) == 0 {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "data is required"}
		}
		var msg proto.SendCommunityMessageData
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "malformed data"}
		}
		if err := validate.Struct(msg); err != nil {
			return nil, &proto.Error{Code: core.ErrCodeValidation, Msg: validationMessage(err)}
		}
		return &core.Command{
			Kind:     core.CommandSendCommunityMessage,
			SenderID: msg.SenderID,
			Text:     msg.Text,
		}, nil
	default:
		return nil, &proto.Error{Code: proto.ErrCodeInvalidMessage, Msg: "unknown message type"}
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid data"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
		switch fe.Tag() {
		case "required":
			parts = append(parts, field+" is required")
		case "max":
			parts = append(parts, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		default:
			parts = append(parts, field+" is invalid")
		}
	}
	return strings.Join(parts, "; ")
}

func messagePayload(m *core.Message) proto.MessagePayload {
	return proto.MessagePayload{
		ID:        m.ID,
		SenderID:  m.SenderID,
		Text:      m.Text,
		CreatedAt: m.CreatedAt.UTC(),
		Sender: proto.Sender{
			ID:          m.Sender.ID,
			DisplayName: m.Sender.DisplayName,
			Username:    m.Sender.Username,
			AvatarURL:   m.Sender.AvatarURL,
		},
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventCommunityMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventReceiveCommunityMessage,
			Data:  messagePayload(event.Message),
		}
	case core.EventMessageAccepted:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventMessageAccepted,
			Data:  messagePayload(event.Message),
		}
	case core.EventJoined:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventJoinedCommunity,
			Data:  proto.EventJoined{Members: event.Members},
		}
	case core.EventLeft:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventLeftCommunity,
		}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}
