package chathub

import (
	"encoding/json"
	"sync"
	"time"

	"hackmate/backend/internal/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// DefaultMaxMessageSize caps one inbound frame.
	DefaultMaxMessageSize = 8 * 1024
)

// WebSocketClient implements Client over a gorilla/websocket connection.
type WebSocketClient struct {
	UserID   string
	UserName string
	Conn     *websocket.Conn
	Hub      *ManagerService
	Send     chan models.RelayEvent

	// MaxMessageSize caps one inbound frame; zero means DefaultMaxMessageSize.
	MaxMessageSize int64
	Log            *zap.Logger

	closeOnce sync.Once
}

// NewWebSocketClient wires a client with a send buffer of the given size.
func NewWebSocketClient(hub *ManagerService, conn *websocket.Conn, userID, userName string, buffer int, log *zap.Logger) *WebSocketClient {
	if log == nil {
		log = zap.NewNop()
	}
	return &WebSocketClient{
		UserID:   userID,
		UserName: userName,
		Conn:     conn,
		Hub:      hub,
		Send:     make(chan models.RelayEvent, buffer),
		Log:      log,
	}
}

func (c *WebSocketClient) GetUserID() string                        { return c.UserID }
func (c *WebSocketClient) GetUserName() string                      { return c.UserName }
func (c *WebSocketClient) Kind() string                             { return "websocket" }
func (c *WebSocketClient) GetSendChannel() chan<- models.RelayEvent { return c.Send }

// Run starts the pumps. The caller must have registered the client first.
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close stops the write pump, which closes the socket.
func (c *WebSocketClient) Close() {
	c.closeOnce.Do(func() { close(c.Send) })
}

func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		_ = c.Conn.Close()
	}()

	limit := c.MaxMessageSize
	if limit <= 0 {
		limit = DefaultMaxMessageSize
	}
	c.Conn.SetReadLimit(limit)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Log.Warn("websocket read failed", zap.String("user_id", c.UserID), zap.Error(err))
			}
			return
		}

		var ev models.RelayEvent
		if err := json.Unmarshal(frame, &ev); err != nil {
			c.Log.Debug("malformed frame", zap.String("user_id", c.UserID), zap.Error(err))
			// An empty type makes the hub answer with a bad-request error.
			ev = models.RelayEvent{}
		}

		if !c.Hub.Dispatch(c, ev) {
			return
		}
	}
}

func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.Conn.WriteJSON(ev); err != nil {
				c.Log.Debug("websocket write failed", zap.String("user_id", c.UserID), zap.Error(err))
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
