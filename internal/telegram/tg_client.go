package telegram

import (
	"strconv"
	"sync"
	"sync/atomic"

	"hackmate/backend/internal/localization"
	"hackmate/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Sender is the part of *tgbotapi.BotAPI the bridge needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// UserIDPrefix marks participant ids of Telegram chats.
const UserIDPrefix = "tg:"

// Client implements chathub.Client for one Telegram chat.
type Client struct {
	ChatID    int64
	Name      string
	Lang      string
	Bot       Sender
	Localizer *localization.Localizer
	Send      chan models.RelayEvent

	log       *zap.Logger
	closeOnce sync.Once
	closed    atomic.Bool
}

func NewClient(chatID int64, name, lang string, bot Sender, loc *localization.Localizer, buffer int, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		ChatID:    chatID,
		Name:      name,
		Lang:      lang,
		Bot:       bot,
		Localizer: loc,
		Send:      make(chan models.RelayEvent, buffer),
		log:       log,
	}
}

func (c *Client) GetUserID() string                        { return UserIDPrefix + strconv.FormatInt(c.ChatID, 10) }
func (c *Client) GetUserName() string                      { return c.Name }
func (c *Client) Kind() string                             { return "telegram" }
func (c *Client) GetSendChannel() chan<- models.RelayEvent { return c.Send }

// Run starts the write pump. Updates are read centrally by BotService.
func (c *Client) Run() {
	go c.writePump()
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.Send)
	})
}

// Closed reports whether the hub has dropped this client.
func (c *Client) Closed() bool { return c.closed.Load() }

func (c *Client) writePump() {
	defer c.log.Debug("telegram write pump stopped", zap.Int64("chat_id", c.ChatID))

	for ev := range c.Send {
		text, ok := c.render(ev)
		if !ok {
			continue
		}
		if _, err := c.Bot.Send(tgbotapi.NewMessage(c.ChatID, text)); err != nil {
			c.log.Warn("failed to send telegram message", zap.Int64("chat_id", c.ChatID), zap.Error(err))
		}
	}
}

// render turns a relay event into chat text. Echoes of the chat's own messages
// are skipped.
func (c *Client) render(ev models.RelayEvent) (string, bool) {
	switch ev.Type {
	case models.EventNewMessage:
		if ev.Message == nil || ev.Message.Sender == c.GetUserID() {
			return "", false
		}
		name := ev.Message.SenderName
		if name == "" {
			name = ev.Message.Sender
		}
		return c.Localizer.Format(c.Lang, "message_format", name, ev.Message.Body), true

	case models.EventError:
		// A send without a joined room comes back as a teamId validation error.
		if ev.Code == models.ErrorCodeValidation && ev.Error == "teamId is required" {
			return c.Localizer.GetString(c.Lang, "not_in_team"), true
		}
		return c.Localizer.Format(c.Lang, "send_failed", ev.Error), true
	}
	return "", false
}
