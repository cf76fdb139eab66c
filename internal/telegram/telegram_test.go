package telegram

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"hackmate/backend/internal/chathub"
	"hackmate/backend/internal/localization"
	"hackmate/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) ListMessages(ctx context.Context, teamID string) ([]models.TeamMessage, error) {
	args := m.Called(ctx, teamID)
	return args.Get(0).([]models.TeamMessage), args.Error(1)
}

func (m *MockStore) CreateMessage(ctx context.Context, msg *models.TeamMessage) error {
	return m.Called(ctx, msg).Error(0)
}

type sentMessage struct {
	chatID int64
	text   string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.mu.Lock()
		f.sent = append(f.sent, sentMessage{chatID: m.ChatID, text: m.Text})
		f.mu.Unlock()
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) textsFor(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.sent {
		if m.chatID == chatID {
			out = append(out, m.text)
		}
	}
	return out
}

func textUpdate(chatID int64, first, text string) tgbotapi.Update {
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			Text: text,
			From: &tgbotapi.User{ID: chatID, FirstName: first, LanguageCode: "en"},
			Chat: tgbotapi.Chat{ID: chatID},
		},
	}
}

func newTestBot(t *testing.T, store *MockStore) (*BotService, *fakeSender, *chathub.ManagerService) {
	t.Helper()
	loc, err := localization.Default()
	require.NoError(t, err)

	hub := chathub.NewManagerService(store)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-hub.Done()
	})

	sender := &fakeSender{}
	return newBotService(sender, hub, loc, 8, nil), sender, hub
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text string
		want Command
		ok   bool
	}{
		{"/team team-1", Command{Name: "team", Arg: "team-1"}, true},
		{"/Team@hackmate_bot  team-1 ", Command{Name: "team", Arg: "team-1"}, true},
		{"/leave", Command{Name: "leave"}, true},
		{"hello", Command{}, false},
		{"/", Command{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := ParseCommand(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_Render(t *testing.T) {
	loc, err := localization.Default()
	require.NoError(t, err)
	c := NewClient(42, "Ana", "en", &fakeSender{}, loc, 1, nil)
	assert.Equal(t, "tg:42", c.GetUserID())

	own := models.NewMessageEvent(models.TeamMessage{Sender: "tg:42", Body: "mine"})
	_, ok := c.render(own)
	assert.False(t, ok)

	text, ok := c.render(models.NewMessageEvent(models.TeamMessage{Sender: "u1", SenderName: "Bo", Body: "hi"}))
	require.True(t, ok)
	assert.Equal(t, "Bo: hi", text)

	text, ok = c.render(models.NewMessageEvent(models.TeamMessage{Sender: "u1", Body: "hi"}))
	require.True(t, ok)
	assert.Equal(t, "u1: hi", text)

	text, ok = c.render(models.NewErrorEvent(models.ErrorCodeValidation, "teamId is required", "m1"))
	require.True(t, ok)
	assert.Equal(t, loc.GetString("en", "not_in_team"), text)

	text, ok = c.render(models.NewErrorEvent(models.ErrorCodeStorage, "message could not be saved", "m1"))
	require.True(t, ok)
	assert.Contains(t, text, "message could not be saved")
}

func TestClient_CloseIsIdempotent(t *testing.T) {
	c := NewClient(1, "", "en", &fakeSender{}, nil, 1, nil)
	c.Close()
	c.Close()
	assert.True(t, c.Closed())
}

func TestBotService_TeamChatBetweenTwoChats(t *testing.T) {
	store := new(MockStore)
	store.On("CreateMessage", mock.Anything, mock.MatchedBy(func(m *models.TeamMessage) bool {
		return m.TeamID == "team-1" && m.Sender == "tg:1" && m.SenderName == "Ana" && m.Body == "hello"
	})).Return(nil).Once()
	bot, sender, hub := newTestBot(t, store)

	bot.HandleUpdate(textUpdate(1, "Ana", "/team team-1"))
	bot.HandleUpdate(textUpdate(2, "Bo", "/team team-1"))
	bot.HandleUpdate(textUpdate(1, "Ana", "hello"))

	require.Eventually(t, func() bool {
		texts := sender.textsFor(2)
		return len(texts) == 2 && texts[1] == "Ana: hello"
	}, 2*time.Second, 5*time.Millisecond)

	presence, err := hub.Presence(context.Background(), "team-1")
	require.NoError(t, err)
	assert.Len(t, presence.Participants, 2)
	store.AssertExpectations(t)

	// The sender only got the join confirmation, not its own echo.
	assert.Equal(t, []string{"You joined team team-1. Messages you write here are sent to the team."}, sender.textsFor(1))
}

func TestBotService_TextWithoutTeam(t *testing.T) {
	store := new(MockStore)
	bot, sender, _ := newTestBot(t, store)

	bot.HandleUpdate(textUpdate(1, "Ana", "hello"))

	require.Eventually(t, func() bool { return len(sender.textsFor(1)) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, bot.Localizer.GetString("en", "not_in_team"), sender.textsFor(1)[0])
	store.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

func TestBotService_Commands(t *testing.T) {
	bot, sender, hub := newTestBot(t, new(MockStore))

	bot.HandleUpdate(textUpdate(1, "Ana", "/help"))
	bot.HandleUpdate(textUpdate(1, "Ana", "/team"))
	bot.HandleUpdate(textUpdate(1, "Ana", "/dance"))
	bot.HandleUpdate(textUpdate(1, "Ana", "/team t"))
	bot.HandleUpdate(textUpdate(1, "Ana", "/leave"))
	bot.HandleUpdate(tgbotapi.Update{Message: &tgbotapi.Message{Chat: tgbotapi.Chat{ID: 1}}})

	assert.Equal(t, []string{
		bot.Localizer.GetString("en", "help"),
		bot.Localizer.GetString("en", "no_team_id"),
		bot.Localizer.GetString("en", "unknown_command"),
		bot.Localizer.Format("en", "joined_team", "t"),
		bot.Localizer.GetString("en", "left_team"),
		bot.Localizer.GetString("en", "unsupported_message_type"),
	}, sender.textsFor(1))

	presence, err := hub.Presence(context.Background(), "t")
	require.NoError(t, err)
	assert.Empty(t, presence.Participants)
}

func TestBotService_RejectedTeamIDIsNotConfirmed(t *testing.T) {
	bot, sender, _ := newTestBot(t, new(MockStore))

	bot.HandleUpdate(textUpdate(1, "Ana", "/team "+strings.Repeat("x", 129)))

	require.Eventually(t, func() bool { return len(sender.textsFor(1)) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, bot.Localizer.Format("en", "send_failed", "teamId is too long"), sender.textsFor(1)[0])
}

func TestBotService_ReplacesDroppedClient(t *testing.T) {
	bot, _, hub := newTestBot(t, new(MockStore))

	first := bot.getOrCreateClient(1, "Ana", "en")
	require.NotNil(t, first)
	hub.Unregister(first)
	require.Eventually(t, first.Closed, time.Second, 5*time.Millisecond)

	second := bot.getOrCreateClient(1, "Ana", "en")
	assert.NotSame(t, first, second)
	state, err := hub.State(context.Background(), second)
	require.NoError(t, err)
	assert.Equal(t, chathub.StateConnected, state)
}
