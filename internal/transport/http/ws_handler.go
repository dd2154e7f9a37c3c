package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/docify-community/internal/auth"
	"github.com/vovakirdan/docify-community/internal/core"
	"github.com/vovakirdan/docify-community/internal/proto"
	"github.com/vovakirdan/docify-community/internal/utils"
)

// WSOptions configures the WebSocket endpoint.
type WSOptions struct {
	JWT                *auth.JWTConfig
	JWTRequired        bool
	MaxFrameBytes      int64
	RateLimitPerMinute int
}

// WSHandler upgrades HTTP connections and bridges them to core.Gateway.
type WSHandler struct {
	gateway *core.Gateway
	opts    WSOptions
	log     *zerolog.Logger
}

// closeError ends a session with a specific WebSocket close status.
type closeError struct {
	status websocket.StatusCode
	reason string
}

func (e *closeError) Error() string { return e.reason }

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(gateway *core.Gateway, opts WSOptions, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{gateway: gateway, opts: opts, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	userID, ok := h.handshake(w, r)
	if !ok {
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.CloseNow()
	if h.opts.MaxFrameBytes > 0 {
		conn.SetReadLimit(h.opts.MaxFrameBytes)
	}

	session := h.gateway.Accept(utils.NewID(), userID)
	if !h.gateway.Open(session) {
		conn.Close(websocket.StatusInternalError, "session not opened")
		return
	}
	defer h.gateway.Disconnect(session)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, session)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, session)
	}()

	err = <-errCh

	var ce *closeError
	if errors.As(err, &ce) {
		// Close before cancelling so the reader is still there for the handshake.
		h.log.Info().Str("conn_id", session.ID).Str("reason", ce.reason).Msg("ws connection closed by server")
		conn.Close(ce.status, ce.reason)
		cancel()
		<-errCh
		return
	}

	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = "connection error"
			h.log.Warn().Err(err).Str("conn_id", session.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// handshake authenticates the upgrade request. An invalid token is always
// rejected; a missing one yields an anonymous read-only session unless
// tokens are required.
func (h *WSHandler) handshake(w stdhttp.ResponseWriter, r *stdhttp.Request) (string, bool) {
	claims, err := authenticate(h.opts.JWT, r)
	switch {
	case err == nil:
		return claims.UserID(), true
	case errors.Is(err, auth.ErrMissingToken) && !h.opts.JWTRequired:
		return "", true
	default:
		h.log.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("ws handshake rejected")
		stdhttp.Error(w, "unauthorized", stdhttp.StatusUnauthorized)
		return "", false
	}
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, session *core.Connection) error {
	limiter := newRateLimiter(h.opts.RateLimitPerMinute)
	limiter.startReset(ctx.Done())

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		var inbound proto.Inbound
		if typ != websocket.MessageText || json.Unmarshal(data, &inbound) != nil {
			if err := h.writeError(ctx, conn, &proto.Error{Code: proto.ErrCodeInvalidMessage, Msg: "expected a JSON text frame"}); err != nil {
				return err
			}
			continue
		}

		cmd, protoErr := inboundToCommand(inbound)
		if protoErr != nil {
			if err := h.writeError(ctx, conn, protoErr); err != nil {
				return err
			}
			continue
		}

		if cmd.Kind == core.CommandSendCommunityMessage && !limiter.allow() {
			if err := h.writeError(ctx, conn, &proto.Error{Code: core.ErrCodeRateLimited, Msg: "too many messages"}); err != nil {
				return err
			}
			continue
		}

		reply := h.gateway.Handle(ctx, session, *cmd)
		if reply == nil {
			continue
		}
		if err := wsjson.Write(ctx, conn, outboundFromEvent(reply)); err != nil {
			return err
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, session *core.Connection) error {
	for {
		select {
		case event := <-session.Outbox():
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("conn_id", session.ID).Msg("write ws event")
				return err
			}
		case <-session.Done():
			switch session.CloseReason() {
			case core.CloseSlowConsumer:
				return &closeError{status: websocket.StatusPolicyViolation, reason: "slow consumer"}
			case core.CloseShutdown:
				return &closeError{status: websocket.StatusGoingAway, reason: "server shutting down"}
			default:
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) writeError(ctx context.Context, conn *websocket.Conn, protoErr *proto.Error) error {
	return wsjson.Write(ctx, conn, proto.Outbound{
		Type:  proto.OutboundTypeError,
		Error: protoErr,
	})
}
