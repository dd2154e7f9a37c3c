package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/docify-community/internal/store"
)

// memLog is an in-memory store.MessageLog.
type memLog struct {
	mu   sync.Mutex
	rows []*store.Message
}

func (m *memLog) Append(_ context.Context, msg *store.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = int64(len(m.rows) + 1)
	row := *msg
	m.rows = append(m.rows, &row)
	return nil
}

func (m *memLog) Recent(_ context.Context, limit int) ([]*store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	start := max(len(m.rows)-limit, 0)
	out := make([]*store.Message, 0, len(m.rows)-start)
	for _, row := range m.rows[start:] {
		cp := *row
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memLog) Close() error { return nil }

func (m *memLog) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// memDirectory is an in-memory store.UserDirectory.
type memDirectory struct {
	mu    sync.Mutex
	users map[string]store.Sender
}

func newMemDirectory(ids ...string) *memDirectory {
	d := &memDirectory{users: make(map[string]store.Sender)}
	for _, id := range ids {
		d.users[id] = store.Sender{ID: id, Username: id, DisplayName: "User " + id, AvatarURL: "https://cdn.example/" + id + ".png"}
	}
	return d
}

func (d *memDirectory) LookupSender(_ context.Context, id string) (*store.Sender, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.users[id]
	if !ok {
		return nil, fmt.Errorf("lookup %q: %w", id, store.ErrUserNotFound)
	}
	return &s, nil
}

func (d *memDirectory) UpsertSender(_ context.Context, s *store.Sender) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[s.ID] = *s
	return nil
}

func (d *memDirectory) remove(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.users, id)
}

type testStack struct {
	log         *memLog
	users       *memDirectory
	store       *MessageStore
	registry    *Registry
	broadcaster *Broadcaster
	gateway     *Gateway
}

func newTestStack(t *testing.T, users ...string) *testStack {
	t.Helper()

	log := &memLog{}
	dir := newMemDirectory(users...)
	st := NewMessageStore(log, dir, DefaultMaxTextBytes)
	registry := NewRegistry()
	broadcaster := NewBroadcaster(st, registry, nil)
	return &testStack{
		log:         log,
		users:       dir,
		store:       st,
		registry:    registry,
		broadcaster: broadcaster,
		gateway:     NewGateway(registry, broadcaster, 16, nil),
	}
}

// openConn accepts and opens a connection for userID.
func (s *testStack) openConn(t *testing.T, id, userID string) *Connection {
	t.Helper()
	conn := s.gateway.Accept(id, userID)
	if !s.gateway.Open(conn) {
		t.Fatalf("open %s failed", id)
	}
	t.Cleanup(func() { s.gateway.Disconnect(conn) })
	return conn
}

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

func drainTexts(ch <-chan *Event) []string {
	var texts []string
	for {
		select {
		case ev := <-ch:
			if ev.Kind == EventCommunityMessage {
				texts = append(texts, ev.Message.Text)
			}
		default:
			return texts
		}
	}
}
