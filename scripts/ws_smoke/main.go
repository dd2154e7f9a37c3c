package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/docify-community/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8000/ws", "WebSocket address")
	token := flag.String("token", "", "access token of an existing user")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	if *token == "" {
		return fmt.Errorf("-token is required (see: docify-community token --user-id ...)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr+"?token="+url.QueryEscape(*token), nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	mustSend := func(v interface{}) error {
		if err := wsjson.Write(ctx, conn, v); err != nil {
			return fmt.Errorf("send: %w", err)
		}
		return nil
	}

	if err := mustSend(proto.Inbound{Type: proto.InboundTypeJoinCommunity}); err != nil {
		return err
	}

	msgPayload, err := json.Marshal(proto.SendCommunityMessageData{Text: *text})
	if err != nil {
		return fmt.Errorf("marshal msg: %w", err)
	}
	if err := mustSend(proto.Inbound{Type: proto.InboundTypeSendCommunityMessage, Data: msgPayload}); err != nil {
		return err
	}

	var received proto.MessagePayload
	for received.ID == 0 {
		var outbound proto.Outbound
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		fmt.Printf("Received outbound: type=%s", outbound.Type)
		if outbound.Event != "" {
			fmt.Printf(" event=%s", outbound.Event)
		}
		fmt.Println()

		if outbound.Error != nil {
			return fmt.Errorf("server error %s: %s", outbound.Error.Code, outbound.Error.Msg)
		}
		if outbound.Event != proto.EventReceiveCommunityMessage {
			continue
		}

		raw, err := json.Marshal(outbound.Data)
		if err != nil {
			return fmt.Errorf("marshal outbound data: %w", err)
		}
		if err := json.Unmarshal(raw, &received); err != nil {
			fmt.Printf("Raw data: %s\n", string(raw))
			return fmt.Errorf("unmarshal message: %w", err)
		}
		fmt.Printf("Message: id=%d sender=%s text=%q at=%s\n", received.ID, received.SenderID, received.Text, received.CreatedAt)
	}

	return checkHistory(ctx, historyURL(*addr), *token, received.ID)
}

func historyURL(wsAddr string) string {
	u := strings.Replace(wsAddr, "ws", "http", 1)
	return strings.TrimSuffix(u, "/ws") + "/community/history"
}

func checkHistory(ctx context.Context, endpoint, token string, id int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("history: unexpected status %d", resp.StatusCode)
	}

	var history []proto.MessagePayload
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		return fmt.Errorf("decode history: %w", err)
	}
	if len(history) == 0 || history[len(history)-1].ID != id {
		return fmt.Errorf("message %d is not the newest history entry", id)
	}
	fmt.Printf("History OK: %d messages, newest id=%d\n", len(history), id)
	return nil
}
