package chatclient_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"hackmate/backend/internal/chatclient"
	"hackmate/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	mu   sync.Mutex
	sent []models.RelayEvent
	err  error
}

func (f *fakeTransport) Send(_ context.Context, ev models.RelayEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, ev)
	return nil
}

func (f *fakeTransport) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, ev := range f.sent {
		out = append(out, ev.Type+":"+ev.TeamID)
	}
	return out
}

type MockSnapshot struct {
	mock.Mock
	// during runs inside ListMessages, before it returns.
	during func(teamID string)
}

func (m *MockSnapshot) ListMessages(ctx context.Context, teamID string) ([]models.TeamMessage, error) {
	if m.during != nil {
		m.during(teamID)
	}
	args := m.Called(ctx, teamID)
	list, _ := args.Get(0).([]models.TeamMessage)
	return list, args.Error(1)
}

func msg(id, teamID, body string) models.TeamMessage {
	return models.TeamMessage{ID: id, TeamID: teamID, Sender: "other", Body: body}
}

func ids(entries []chatclient.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Message.ID)
	}
	return out
}

func newSession(t *testing.T, snap *MockSnapshot, opts ...chatclient.Option) (*chatclient.Session, *fakeTransport) {
	t.Helper()
	transport := &fakeTransport{}
	n := 0
	opts = append([]chatclient.Option{chatclient.WithIDGenerator(func() string { n++; return fmt.Sprintf("local-%d", n) })}, opts...)
	return chatclient.NewSession("u1", "Ana", transport, snap, opts...), transport
}

func TestSession_OptimisticSendAndEchoDedup(t *testing.T) {
	snap := new(MockSnapshot)
	snap.On("ListMessages", mock.Anything, "team-1").Return([]models.TeamMessage{}, nil)
	s, transport := newSession(t, snap)
	require.NoError(t, s.SwitchRoom(context.Background(), "team-1"))

	id, err := s.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "local-1", id)

	entries := s.Messages()
	require.Len(t, entries, 1)
	assert.Equal(t, chatclient.StatePending, entries[0].State)
	assert.Equal(t, "u1", entries[0].Message.Sender)
	assert.Equal(t, []string{"join-team:team-1", "send-message:team-1"}, transport.types())

	echo := entries[0].Message
	s.HandleEvent(models.NewMessageEvent(echo))

	entries = s.Messages()
	require.Len(t, entries, 1)
	assert.Equal(t, "local-1", entries[0].Message.ID)
	assert.Equal(t, chatclient.StateSent, entries[0].State)
}

func TestSession_BroadcastAppendsInArrivalOrder(t *testing.T) {
	snap := new(MockSnapshot)
	snap.On("ListMessages", mock.Anything, "team-1").Return([]models.TeamMessage{}, nil)
	s, _ := newSession(t, snap)
	require.NoError(t, s.SwitchRoom(context.Background(), "team-1"))

	s.HandleEvent(models.NewMessageEvent(msg("b", "team-1", "second")))
	s.HandleEvent(models.NewMessageEvent(msg("a", "team-1", "first")))
	s.HandleEvent(models.NewMessageEvent(msg("b", "team-1", "second")))
	s.HandleEvent(models.NewMessageEvent(msg("x", "team-2", "elsewhere")))

	assert.Equal(t, []string{"b", "a"}, ids(s.Messages()))
}

func TestSession_SwitchRoomDiscardsPreviousRoom(t *testing.T) {
	snap := new(MockSnapshot)
	snap.On("ListMessages", mock.Anything, "A").Return([]models.TeamMessage{msg("a1", "A", "old")}, nil)
	snap.On("ListMessages", mock.Anything, "B").Return([]models.TeamMessage{msg("b1", "B", "x"), msg("b2", "B", "y")}, nil)
	s, transport := newSession(t, snap)

	require.NoError(t, s.SwitchRoom(context.Background(), "A"))
	s.HandleEvent(models.NewMessageEvent(msg("a2", "A", "live")))
	assert.Equal(t, []string{"a1", "a2"}, ids(s.Messages()))

	require.NoError(t, s.SwitchRoom(context.Background(), "B"))
	s.HandleEvent(models.NewMessageEvent(msg("a3", "A", "late")))
	s.HandleEvent(models.NewMessageEvent(msg("b3", "B", "live")))

	assert.Equal(t, "B", s.Room())
	assert.Equal(t, []string{"b1", "b2", "b3"}, ids(s.Messages()))
	assert.Equal(t, []string{"join-team:A", "leave-team:A", "join-team:B"}, transport.types())
}

func TestSession_BroadcastDuringSnapshotIsMergedAfterIt(t *testing.T) {
	snap := new(MockSnapshot)
	s, _ := newSession(t, snap)
	snap.during = func(string) {
		// Pushed while the history request is in flight; m2 is also in the snapshot.
		s.HandleEvent(models.NewMessageEvent(msg("m2", "team-1", "two")))
		s.HandleEvent(models.NewMessageEvent(msg("m3", "team-1", "three")))
	}
	snap.On("ListMessages", mock.Anything, "team-1").
		Return([]models.TeamMessage{msg("m1", "team-1", "one"), msg("m2", "team-1", "two")}, nil)

	require.NoError(t, s.SwitchRoom(context.Background(), "team-1"))
	assert.Equal(t, []string{"m1", "m2", "m3"}, ids(s.Messages()))
}

func TestSession_StaleSnapshotIsDropped(t *testing.T) {
	snap := new(MockSnapshot)
	s, _ := newSession(t, snap)
	snap.during = func(teamID string) {
		if teamID == "A" {
			// The participant switches again before A's history arrives.
			require.NoError(t, s.SwitchRoom(context.Background(), "B"))
		}
	}
	snap.On("ListMessages", mock.Anything, "A").Return([]models.TeamMessage{msg("a1", "A", "old")}, nil)
	snap.On("ListMessages", mock.Anything, "B").Return([]models.TeamMessage{msg("b1", "B", "new")}, nil)

	require.NoError(t, s.SwitchRoom(context.Background(), "A"))
	assert.Equal(t, "B", s.Room())
	assert.Equal(t, []string{"b1"}, ids(s.Messages()))
}

func TestSession_SnapshotError(t *testing.T) {
	snap := new(MockSnapshot)
	snap.On("ListMessages", mock.Anything, "team-1").Return(nil, errors.New("503"))
	s, _ := newSession(t, snap)

	err := s.SwitchRoom(context.Background(), "team-1")
	require.Error(t, err)
	assert.Equal(t, "team-1", s.Room())
	assert.Empty(t, s.Messages())
}

func TestSession_FailedSendAndRetry(t *testing.T) {
	snap := new(MockSnapshot)
	snap.On("ListMessages", mock.Anything, "team-1").Return([]models.TeamMessage{}, nil)
	s, transport := newSession(t, snap)
	require.NoError(t, s.SwitchRoom(context.Background(), "team-1"))

	id, err := s.Send(context.Background(), "hello")
	require.NoError(t, err)
	s.HandleEvent(models.NewErrorEvent(models.ErrorCodeStorage, "message could not be saved", id))

	entries := s.Messages()
	require.Len(t, entries, 1)
	assert.Equal(t, chatclient.StateFailed, entries[0].State)
	assert.Equal(t, "message could not be saved", entries[0].Error)

	require.NoError(t, s.Retry(context.Background(), id))
	assert.Equal(t, chatclient.StatePending, s.Messages()[0].State)
	assert.Equal(t, []string{"join-team:team-1", "send-message:team-1", "send-message:team-1"}, transport.types())

	assert.ErrorIs(t, s.Retry(context.Background(), id), chatclient.ErrNotRetrying)
	assert.ErrorIs(t, s.Retry(context.Background(), "nope"), chatclient.ErrUnknownID)
}

func TestSession_TransportFailureMarksFailed(t *testing.T) {
	snap := new(MockSnapshot)
	snap.On("ListMessages", mock.Anything, "team-1").Return([]models.TeamMessage{}, nil)
	s, transport := newSession(t, snap)
	require.NoError(t, s.SwitchRoom(context.Background(), "team-1"))

	transport.err = chatclient.ErrNotConnected
	_, err := s.Send(context.Background(), "hello")
	assert.ErrorIs(t, err, chatclient.ErrNotConnected)
	assert.Equal(t, chatclient.StateFailed, s.Messages()[0].State)
}

func TestSession_SendPreconditions(t *testing.T) {
	s, _ := newSession(t, new(MockSnapshot))

	_, err := s.Send(context.Background(), "hello")
	assert.ErrorIs(t, err, chatclient.ErrNoRoom)

	_, err = s.Send(context.Background(), "  ")
	assert.ErrorIs(t, err, chatclient.ErrEmptyBody)

	assert.ErrorIs(t, s.SwitchRoom(context.Background(), " "), chatclient.ErrNoRoom)
}

func TestSession_UnrelatedErrorIsRecorded(t *testing.T) {
	s, _ := newSession(t, new(MockSnapshot))
	s.HandleEvent(models.NewErrorEvent(models.ErrorCodeBadRequest, "malformed event", ""))
	assert.Equal(t, "malformed event", s.LastError())
}

func TestSession_ReconnectRejoinsWithoutRefetch(t *testing.T) {
	snap := new(MockSnapshot)
	snap.On("ListMessages", mock.Anything, "team-1").Return([]models.TeamMessage{}, nil)
	s, transport := newSession(t, snap)
	ctx := context.Background()

	s.HandleStatus(ctx, chatclient.StatusConnected)
	require.NoError(t, s.SwitchRoom(ctx, "team-1"))
	s.HandleStatus(ctx, chatclient.StatusDisconnected)
	assert.Equal(t, chatclient.StatusDisconnected, s.Status())
	s.HandleStatus(ctx, chatclient.StatusConnecting)
	s.HandleStatus(ctx, chatclient.StatusConnected)

	assert.Equal(t, chatclient.StatusConnected, s.Status())
	assert.Equal(t, []string{"join-team:team-1", "join-team:team-1"}, transport.types())
	snap.AssertNumberOfCalls(t, "ListMessages", 1)
}

func TestSession_ReconnectWithRefetch(t *testing.T) {
	snap := new(MockSnapshot)
	snap.On("ListMessages", mock.Anything, "team-1").Return([]models.TeamMessage{msg("m1", "team-1", "one")}, nil).Once()
	snap.On("ListMessages", mock.Anything, "team-1").
		Return([]models.TeamMessage{msg("m1", "team-1", "one"), msg("m2", "team-1", "missed")}, nil).Once()
	s, _ := newSession(t, snap, chatclient.WithRefetchOnReconnect(true))
	ctx := context.Background()

	s.HandleStatus(ctx, chatclient.StatusConnected)
	require.NoError(t, s.SwitchRoom(ctx, "team-1"))
	id, err := s.Send(ctx, "mine")
	require.NoError(t, err)

	s.HandleStatus(ctx, chatclient.StatusDisconnected)
	s.HandleStatus(ctx, chatclient.StatusConnected)

	assert.Equal(t, []string{"m1", "m2", id}, ids(s.Messages()))
	snap.AssertExpectations(t)
}

func TestSession_OnChange(t *testing.T) {
	calls := 0
	snap := new(MockSnapshot)
	snap.On("ListMessages", mock.Anything, "team-1").Return([]models.TeamMessage{}, nil)
	s, _ := newSession(t, snap, chatclient.WithOnChange(func() { calls++ }))

	require.NoError(t, s.SwitchRoom(context.Background(), "team-1"))
	before := calls
	s.HandleEvent(models.NewMessageEvent(msg("m1", "team-1", "x")))
	assert.Equal(t, before+1, calls)
}
