package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/docify-community/internal/auth"
	"github.com/vovakirdan/docify-community/internal/config"
	"github.com/vovakirdan/docify-community/internal/core"
	"github.com/vovakirdan/docify-community/internal/proto"
	"github.com/vovakirdan/docify-community/internal/store"
	"github.com/vovakirdan/docify-community/internal/store/sqlite"
)

const testSecret = "testsecret"

type testEnv struct {
	ts       *httptest.Server
	cfg      config.Config
	store    *sqlite.SQLiteStore
	messages *core.MessageStore
	gateway  *core.Gateway
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.JWTSecret = testSecret
	cfg.JWTIssuer = "test"
	cfg.ReadHeaderTimeout = time.Second
	cfg.ShutdownTimeout = time.Second
	return cfg
}

// startTestServer wires the full stack over an in-memory SQLite store
// seeded with the given user ids.
func startTestServer(t *testing.T, cfg config.Config, users ...string) *testEnv {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	for _, id := range users {
		if err := st.UpsertSender(context.Background(), &store.Sender{
			ID:          id,
			Username:    id,
			DisplayName: "User " + id,
			AvatarURL:   "https://cdn.example/" + id + ".png",
		}); err != nil {
			t.Fatalf("seed user %s: %v", id, err)
		}
	}

	disabledLogger := zerolog.New(nil)

	messages := core.NewMessageStore(st, st, cfg.MaxTextBytes)
	registry := core.NewRegistry()
	broadcaster := core.NewBroadcaster(messages, registry, &disabledLogger)
	gateway := core.NewGateway(registry, broadcaster, cfg.OutboxSize, &disabledLogger)

	server := NewServer(gateway, messages, &cfg, &disabledLogger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(func() {
		gateway.Shutdown()
		ts.Close()
	})

	return &testEnv{ts: ts, cfg: cfg, store: st, messages: messages, gateway: gateway}
}

func (e *testEnv) token(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.GenerateToken(&auth.JWTConfig{
		Secret: []byte(e.cfg.JWTSecret),
		Issuer: e.cfg.JWTIssuer,
		TTL:    time.Minute,
	}, userID, userID)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func makeJWT(secret, iss, sub string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(ttl).Unix(),
	}
	if iss != "" {
		claims["iss"] = iss
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func (e *testEnv) wsURL() string {
	return strings.Replace(e.ts.URL, "http", "ws", 1) + "/ws"
}

// dial opens a WebSocket as userID, or anonymously when userID is empty.
func (e *testEnv) dial(ctx context.Context, t *testing.T, userID string) *websocket.Conn {
	t.Helper()

	url := e.wsURL()
	if userID != "" {
		url += "?token=" + e.token(t, userID)
	}
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial %q: %v", userID, err)
	}
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func send(ctx context.Context, t *testing.T, conn *websocket.Conn, in any) {
	t.Helper()
	if err := wsjson.Write(ctx, conn, in); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// readUntil reads frames until one matches event (or type "error" when event is empty).
func readUntil(ctx context.Context, t *testing.T, conn *websocket.Conn, event string) proto.Outbound {
	t.Helper()
	for {
		var out proto.Outbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			t.Fatalf("read waiting for %q: %v", event, err)
		}
		if event == "" && out.Type == proto.OutboundTypeError {
			return out
		}
		if event != "" && out.Event == event {
			return out
		}
	}
}

// readEvents reads frames until every listed event has been seen once.
func readEvents(ctx context.Context, t *testing.T, conn *websocket.Conn, events ...string) map[string]proto.Outbound {
	t.Helper()
	want := make(map[string]bool, len(events))
	for _, ev := range events {
		want[ev] = true
	}
	got := make(map[string]proto.Outbound, len(events))
	for len(got) < len(want) {
		var out proto.Outbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			t.Fatalf("read waiting for %v: %v", events, err)
		}
		if _, seen := got[out.Event]; want[out.Event] && !seen {
			got[out.Event] = out
		}
	}
	return got
}

// payload decodes an outbound message event body.
func payload(t *testing.T, out proto.Outbound) proto.MessagePayload {
	t.Helper()
	raw, err := json.Marshal(out.Data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	var m proto.MessagePayload
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("decode message payload: %v", err)
	}
	return m
}

func join(ctx context.Context, t *testing.T, conn *websocket.Conn) {
	t.Helper()
	send(ctx, t, conn, proto.Inbound{Type: proto.InboundTypeJoinCommunity})
	readUntil(ctx, t, conn, proto.EventJoinedCommunity)
}

func sendText(ctx context.Context, t *testing.T, conn *websocket.Conn, senderID, text string) {
	t.Helper()
	data, _ := json.Marshal(proto.SendCommunityMessageData{SenderID: senderID, Text: text})
	send(ctx, t, conn, proto.Inbound{Type: proto.InboundTypeSendCommunityMessage, Data: data})
}
