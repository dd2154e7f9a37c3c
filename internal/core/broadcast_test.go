package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/vovakirdan/docify-community/internal/store"
	"github.com/vovakirdan/docify-community/internal/store/mocks"
)

func TestSendToRoomPreservesStoreOrder(t *testing.T) {
	const senders, perSender = 8, 25
	s := newTestStack(t, "x")
	ctx := context.Background()

	listeners := make([]*Connection, 3)
	for i := range listeners {
		c := NewConnection(fmt.Sprintf("l%d", i), "", senders*perSender)
		c.open()
		s.registry.Join(c)
		listeners[i] = c
	}

	var wg sync.WaitGroup
	for g := range senders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perSender {
				if _, err := s.broadcaster.SendToRoom(ctx, "x", fmt.Sprintf("g%d-%d", g, i)); err != nil {
					t.Error(err)
				}
			}
		}()
	}
	wg.Wait()

	history, err := s.store.Recent(ctx, senders*perSender)
	require.NoError(t, err)
	require.Len(t, history, senders*perSender)

	for _, c := range listeners {
		require.Len(t, c.Outbox(), senders*perSender)
		for i := range senders * perSender {
			ev := <-c.Outbox()
			require.Equal(t, history[i].ID, ev.Message.ID, "listener %s position %d", c.ID, i)
		}
	}
}

func TestSendToRoomFailedPersistenceDoesNotBroadcast(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := mocks.NewMockMessageLog(ctrl)
	users := mocks.NewMockUserDirectory(ctrl)

	users.EXPECT().LookupSender(gomock.Any(), "x").Return(&store.Sender{ID: "x"}, nil)
	log.EXPECT().Recent(gomock.Any(), 1).Return(nil, nil)
	log.EXPECT().Append(gomock.Any(), gomock.Any()).Return(errors.New("database is locked"))

	registry := NewRegistry()
	member := NewConnection("m", "y", 4)
	member.open()
	registry.Join(member)

	b := NewBroadcaster(NewMessageStore(log, users, 0), registry, nil)
	msg, err := b.SendToRoom(context.Background(), "x", "hello")
	require.Nil(t, msg)
	require.ErrorIs(t, err, ErrStorage)
	require.Empty(t, member.Outbox())
}

func TestSendToRoomIsolatesDeliveryFailures(t *testing.T) {
	s := newTestStack(t, "x")
	ctx := context.Background()

	a := NewConnection("a", "", 4)
	b := NewConnection("b", "", 4)
	closed := NewConnection("c", "", 4)
	for _, c := range []*Connection{a, b, closed} {
		c.open()
		s.registry.Join(c)
	}
	closed.Close(CloseNormal)

	msg, err := s.broadcaster.SendToRoom(ctx, "x", "still here")
	require.NoError(t, err)
	require.NotNil(t, msg)

	require.Equal(t, "still here", mustEvent(t, a.Outbox(), EventCommunityMessage).Message.Text)
	require.Equal(t, "still here", mustEvent(t, b.Outbox(), EventCommunityMessage).Message.Text)
	require.Empty(t, closed.Outbox())
}

func TestSendToRoomEvictsSlowConsumer(t *testing.T) {
	s := newTestStack(t, "x")
	ctx := context.Background()

	slow := NewConnection("slow", "", 1)
	fast := NewConnection("fast", "", 8)
	for _, c := range []*Connection{slow, fast} {
		c.open()
		s.registry.Join(c)
	}

	for _, text := range []string{"one", "two", "three"} {
		_, err := s.broadcaster.SendToRoom(ctx, "x", text)
		require.NoError(t, err)
	}

	require.Equal(t, StateClosed, slow.State())
	require.Equal(t, CloseSlowConsumer, slow.CloseReason())
	require.Equal(t, []string{"one", "two", "three"}, drainTexts(fast.Outbox()))
}
