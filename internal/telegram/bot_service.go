// Package telegram bridges Telegram chats into team rooms. Each chat is a relay
// participant; commands join and leave rooms and plain text is sent to the room.
package telegram

import (
	"context"
	"strings"
	"sync"

	"hackmate/backend/internal/chathub"
	"hackmate/backend/internal/localization"
	"hackmate/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// BotService receives Telegram updates and routes them to the hub.
type BotService struct {
	BotAPI    *tgbotapi.BotAPI
	Bot       Sender
	Hub       *chathub.ManagerService
	Localizer *localization.Localizer

	buffer int
	log    *zap.Logger

	mu      sync.Mutex
	clients map[int64]*Client
}

// NewBotService authorizes token against the Bot API.
func NewBotService(token string, hub *chathub.ManagerService, loc *localization.Localizer, buffer int, log *zap.Logger) (*BotService, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	s := newBotService(bot, hub, loc, buffer, log)
	s.BotAPI = bot
	s.log.Info("telegram bot authorized", zap.String("username", bot.Self.UserName))
	return s, nil
}

func newBotService(bot Sender, hub *chathub.ManagerService, loc *localization.Localizer, buffer int, log *zap.Logger) *BotService {
	if log == nil {
		log = zap.NewNop()
	}
	if buffer <= 0 {
		buffer = 16
	}
	return &BotService{
		Bot:       bot,
		Hub:       hub,
		Localizer: loc,
		buffer:    buffer,
		log:       log,
		clients:   make(map[int64]*Client),
	}
}

// Run long-polls updates until ctx is cancelled.
func (s *BotService) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := s.BotAPI.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			s.BotAPI.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			s.HandleUpdate(update)
		}
	}
}

// HandleUpdate processes one update.
func (s *BotService) HandleUpdate(update tgbotapi.Update) {
	msg := update.Message
	if msg == nil {
		return
	}

	lang, name := "", strings.TrimSpace(msg.Chat.FirstName+" "+msg.Chat.LastName)
	if msg.From != nil {
		lang = msg.From.LanguageCode
		if full := strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName); full != "" {
			name = full
		}
	}

	c := s.getOrCreateClient(msg.Chat.ID, name, lang)
	if c == nil {
		return
	}

	if msg.Text == "" {
		s.reply(c, s.Localizer.GetString(c.Lang, "unsupported_message_type"))
		return
	}

	if cmd, ok := ParseCommand(msg.Text); ok {
		s.handleCommand(c, cmd)
		return
	}

	s.Hub.Dispatch(c, models.RelayEvent{
		Type:    models.EventSendMessage,
		Message: &models.TeamMessage{Body: msg.Text},
	})
}

func (s *BotService) handleCommand(c *Client, cmd Command) {
	switch cmd.Name {
	case CommandTeam:
		if cmd.Arg == "" {
			s.reply(c, s.Localizer.GetString(c.Lang, "no_team_id"))
			return
		}
		if !s.Hub.Dispatch(c, models.RelayEvent{Type: models.EventJoinTeam, TeamID: cmd.Arg}) {
			return
		}
		// A rejected id comes back through the relay as an error event.
		room, _, err := s.Hub.RoomOf(context.Background(), c)
		if err == nil && room == cmd.Arg {
			s.reply(c, s.Localizer.Format(c.Lang, "joined_team", cmd.Arg))
		}
	case CommandLeave:
		if s.Hub.Dispatch(c, models.RelayEvent{Type: models.EventLeaveTeam}) {
			s.reply(c, s.Localizer.GetString(c.Lang, "left_team"))
		}
	case CommandHelp, CommandStart:
		s.reply(c, s.Localizer.GetString(c.Lang, "help"))
	default:
		s.reply(c, s.Localizer.GetString(c.Lang, "unknown_command"))
	}
}

// getOrCreateClient returns the chat's live client, registering a new one if the
// hub has dropped the previous one.
func (s *BotService) getOrCreateClient(chatID int64, name, lang string) *Client {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.clients[chatID]; ok && !c.Closed() {
		return c
	}

	c := NewClient(chatID, name, lang, s.Bot, s.Localizer, s.buffer, s.log)
	if !s.Hub.Register(c) {
		return nil
	}
	s.clients[chatID] = c
	c.Run()
	s.log.Debug("telegram chat connected", zap.Int64("chat_id", chatID))
	return c
}

// reply answers a command directly, outside the relay.
func (s *BotService) reply(c *Client, text string) {
	if _, err := s.Bot.Send(tgbotapi.NewMessage(c.ChatID, text)); err != nil {
		s.log.Warn("failed to send telegram reply", zap.Int64("chat_id", c.ChatID), zap.Error(err))
	}
}
