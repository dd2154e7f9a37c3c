package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/vovakirdan/docify-community/internal/store"
	"github.com/vovakirdan/docify-community/internal/store/mocks"
)

func TestAppendRejectsBlankText(t *testing.T) {
	s := newTestStack(t, "x")
	ctx := context.Background()

	for _, text := range []string{"", "   ", "\n\t "} {
		_, err := s.store.Append(ctx, "x", text)
		require.ErrorIs(t, err, ErrValidation, "text %q", text)
	}
	require.Zero(t, s.log.Len())
}

func TestAppendRejectsOversizedText(t *testing.T) {
	s := newTestStack(t, "x")
	ctx := context.Background()

	_, err := s.store.Append(ctx, "x", strings.Repeat("a", DefaultMaxTextBytes+1))
	require.ErrorIs(t, err, ErrValidation)

	msg, err := s.store.Append(ctx, "x", strings.Repeat("a", DefaultMaxTextBytes))
	require.NoError(t, err)
	require.Len(t, msg.Text, DefaultMaxTextBytes)
}

func TestAppendUnknownSender(t *testing.T) {
	s := newTestStack(t, "x")

	_, err := s.store.Append(context.Background(), "ghost", "hello")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, err, store.ErrUserNotFound)

	var ce *CoreError
	require.True(t, errors.As(err, &ce))
	require.Equal(t, ErrCodeNotFound, ce.Code)
	require.Zero(t, s.log.Len())
}

func TestAppendEnrichesSender(t *testing.T) {
	s := newTestStack(t, "x")

	msg, err := s.store.Append(context.Background(), "x", "hello")
	require.NoError(t, err)
	require.Equal(t, int64(1), msg.ID)
	require.Equal(t, "x", msg.SenderID)
	require.Equal(t, "User x", msg.Sender.DisplayName)
	require.Equal(t, "x", msg.Sender.Username)
	require.Equal(t, "https://cdn.example/x.png", msg.Sender.AvatarURL)
	require.False(t, msg.CreatedAt.IsZero())
}

func TestAppendCreatedAtIsNonDecreasing(t *testing.T) {
	s := newTestStack(t, "x")
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := []time.Time{base, base.Add(-time.Minute), base.Add(time.Second)}
	i := 0
	s.store.now = func() time.Time {
		now := clock[i]
		i++
		return now
	}

	var stamps []time.Time
	for range clock {
		msg, err := s.store.Append(ctx, "x", "tick")
		require.NoError(t, err)
		stamps = append(stamps, msg.CreatedAt)
	}
	require.Equal(t, base, stamps[0])
	require.Equal(t, base, stamps[1], "clock going backwards must be clamped")
	require.Equal(t, base.Add(time.Second), stamps[2])
}

func TestAppendStorageFailureIsNotRetried(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := mocks.NewMockMessageLog(ctrl)
	users := mocks.NewMockUserDirectory(ctrl)

	users.EXPECT().LookupSender(gomock.Any(), "x").Return(&store.Sender{ID: "x"}, nil)
	log.EXPECT().Recent(gomock.Any(), 1).Return(nil, nil)
	log.EXPECT().Append(gomock.Any(), gomock.Any()).Return(errors.New("disk full")).Times(1)

	st := NewMessageStore(log, users, 0)
	_, err := st.Append(context.Background(), "x", "hello")
	require.ErrorIs(t, err, ErrStorage)
}

func TestAppendPrimesClockFromLog(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := mocks.NewMockMessageLog(ctrl)
	users := mocks.NewMockUserDirectory(ctrl)

	future := time.Now().Add(time.Hour).UTC()
	users.EXPECT().LookupSender(gomock.Any(), "x").Return(&store.Sender{ID: "x"}, nil).Times(2)
	log.EXPECT().Recent(gomock.Any(), 1).Return([]*store.Message{{ID: 7, CreatedAt: future}}, nil).Times(1)
	log.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, m *store.Message) error {
		m.ID = 8
		return nil
	}).Times(2)

	st := NewMessageStore(log, users, 0)
	for range 2 {
		msg, err := st.Append(context.Background(), "x", "hello")
		require.NoError(t, err)
		require.False(t, msg.CreatedAt.Before(future))
	}
}

func TestRecentDefaultsAndBound(t *testing.T) {
	s := newTestStack(t, "x")
	ctx := context.Background()

	for i := range 10_000 {
		_, err := s.store.Append(ctx, "x", fmt.Sprintf("m%d", i))
		require.NoError(t, err)
	}

	got, err := s.store.Recent(ctx, 50)
	require.NoError(t, err)
	require.Len(t, got, 50)
	require.Equal(t, "m9950", got[0].Text)
	require.Equal(t, "m9999", got[49].Text)

	got, err = s.store.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, DefaultHistoryLimit)

	got, err = s.store.Recent(ctx, 500)
	require.NoError(t, err)
	require.Len(t, got, MaxHistoryLimit)
	require.Equal(t, "m9999", got[len(got)-1].Text)
	for i := 1; i < len(got); i++ {
		require.Less(t, got[i-1].ID, got[i].ID)
	}
}

func TestRecentKeepsMessagesOfDeletedSenders(t *testing.T) {
	s := newTestStack(t, "x", "y")
	ctx := context.Background()

	_, err := s.store.Append(ctx, "x", "from x")
	require.NoError(t, err)
	_, err = s.store.Append(ctx, "y", "from y")
	require.NoError(t, err)

	s.users.remove("x")

	got, err := s.store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, Sender{ID: "x"}, got[0].Sender)
	require.Equal(t, "User y", got[1].Sender.DisplayName)
}

func TestRecentStorageFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := mocks.NewMockMessageLog(ctrl)
	log.EXPECT().Recent(gomock.Any(), DefaultHistoryLimit).Return(nil, errors.New("io error"))

	st := NewMessageStore(log, mocks.NewMockUserDirectory(ctrl), 0)
	_, err := st.Recent(context.Background(), -3)
	require.ErrorIs(t, err, ErrStorage)
}

func TestRecentClampsLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := mocks.NewMockMessageLog(ctrl)
	log.EXPECT().Recent(gomock.Any(), MaxHistoryLimit).Return(nil, nil)

	st := NewMessageStore(log, mocks.NewMockUserDirectory(ctrl), 0)
	got, err := st.Recent(context.Background(), MaxHistoryLimit+1)
	require.NoError(t, err)
	require.Empty(t, got)
}
