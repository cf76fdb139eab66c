package chathub

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"hackmate/backend/internal/metrics"
	"hackmate/backend/internal/models"
	"hackmate/backend/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Column limits of team_messages.
const (
	maxIDLen     = 64
	maxTeamIDLen = 128
	maxSenderLen = 128
	maxNameLen   = 255
)

const defaultPersistTimeout = 5 * time.Second

// InboundEvent is an event read from a client connection.
type InboundEvent struct {
	Client Client
	Event  models.RelayEvent
}

type submitResult struct {
	msg models.TeamMessage
	err error
}

type submitRequest struct {
	msg   models.TeamMessage
	reply chan submitResult
}

// ManagerService is the realtime relay. A single goroutine (Run) owns the
// registry and the connection states, so every mutation and every broadcast
// happens in the order the events were received.
//
// Sends are persisted before they are broadcast: a message that fails to
// persist is reported to its sender and never reaches the room.
type ManagerService struct {
	Registry *Registry
	Store    storage.MessageStore

	RegisterCh   chan Client
	UnregisterCh chan Client
	IncomingCh   chan InboundEvent

	submitCh chan submitRequest
	queryCh  chan func()
	done     chan struct{}

	conns map[Client]ConnState
	// ctx is the Run context, used as parent for store calls.
	ctx context.Context

	persistTimeout time.Duration
	log            *zap.Logger
	metrics        *metrics.Metrics
	now            func() time.Time
	newID          func() string
}

// Option configures a ManagerService.
type Option func(*ManagerService)

func WithLogger(l *zap.Logger) Option {
	return func(m *ManagerService) {
		if l != nil {
			m.log = l
		}
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *ManagerService) {
		if mt != nil {
			m.metrics = mt
		}
	}
}

// WithPersistTimeout bounds each CreateMessage call.
func WithPersistTimeout(d time.Duration) Option {
	return func(m *ManagerService) {
		if d > 0 {
			m.persistTimeout = d
		}
	}
}

// WithClock replaces time.Now for server-assigned timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *ManagerService) { m.now = now }
}

// WithIDGenerator replaces uuid.NewString for server-assigned message ids.
func WithIDGenerator(gen func() string) Option {
	return func(m *ManagerService) { m.newID = gen }
}

func NewManagerService(store storage.MessageStore, opts ...Option) *ManagerService {
	m := &ManagerService{
		Registry:       NewRegistry(),
		Store:          store,
		RegisterCh:     make(chan Client),
		UnregisterCh:   make(chan Client),
		IncomingCh:     make(chan InboundEvent),
		submitCh:       make(chan submitRequest),
		queryCh:        make(chan func()),
		done:           make(chan struct{}),
		conns:          make(map[Client]ConnState),
		ctx:            context.Background(),
		persistTimeout: defaultPersistTimeout,
		log:            zap.NewNop(),
		now:            time.Now,
		newID:          uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.metrics == nil {
		m.metrics = metrics.New()
	}
	return m
}

// Run processes events until ctx is cancelled, then closes every client.
func (m *ManagerService) Run(ctx context.Context) {
	m.ctx = ctx
	m.log.Info("relay started")
	defer close(m.done)

	for {
		select {
		case <-ctx.Done():
			m.shutdown()
			return

		case client := <-m.RegisterCh:
			m.register(client)

		case client := <-m.UnregisterCh:
			m.unregister(client)

		case in := <-m.IncomingCh:
			m.handle(in.Client, in.Event)

		case req := <-m.submitCh:
			msg, err := m.send(nil, req.msg)
			req.reply <- submitResult{msg: msg, err: err}

		case fn := <-m.queryCh:
			fn()
		}
	}
}

// Done is closed once Run has returned.
func (m *ManagerService) Done() <-chan struct{} { return m.done }

// Register hands a new connection to the hub. It reports false once the hub has stopped.
func (m *ManagerService) Register(c Client) bool {
	select {
	case m.RegisterCh <- c:
		return true
	case <-m.done:
		return false
	}
}

// Unregister removes a connection. Safe to call after the hub stopped.
func (m *ManagerService) Unregister(c Client) {
	select {
	case m.UnregisterCh <- c:
	case <-m.done:
	}
}

// Dispatch hands an event read from c to the hub.
func (m *ManagerService) Dispatch(c Client, ev models.RelayEvent) bool {
	select {
	case m.IncomingCh <- InboundEvent{Client: c, Event: ev}:
		return true
	case <-m.done:
		return false
	}
}

// Submit persists and broadcasts a message that did not come from a relay
// connection (the REST endpoint). TeamID, Sender and Body are required.
func (m *ManagerService) Submit(ctx context.Context, msg models.TeamMessage) (models.TeamMessage, error) {
	req := submitRequest{msg: msg, reply: make(chan submitResult, 1)}
	select {
	case m.submitCh <- req:
	case <-ctx.Done():
		return models.TeamMessage{}, ctx.Err()
	case <-m.done:
		return models.TeamMessage{}, ErrHubStopped
	}

	select {
	case res := <-req.reply:
		return res.msg, res.err
	case <-ctx.Done():
		return models.TeamMessage{}, ctx.Err()
	}
}

// Presence lists the participants currently joined to teamID.
func (m *ManagerService) Presence(ctx context.Context, teamID string) (models.RoomPresence, error) {
	var out models.RoomPresence
	err := m.query(ctx, func() {
		members := m.Registry.Members(teamID)
		out = models.RoomPresence{TeamID: teamID, Participants: make([]models.Participant, 0, len(members))}
		for _, c := range members {
			out.Participants = append(out.Participants, participantOf(c))
		}
	})
	return out, err
}

// State returns the hub's view of c. Unknown clients are reported as disconnected.
func (m *ManagerService) State(ctx context.Context, c Client) (ConnState, error) {
	state := StateDisconnected
	err := m.query(ctx, func() {
		if s, ok := m.conns[c]; ok {
			state = s
		}
	})
	return state, err
}

// RoomOf returns the room c is joined to. Events dispatched before the call
// have been applied by the time it returns.
func (m *ManagerService) RoomOf(ctx context.Context, c Client) (string, bool, error) {
	var (
		room   string
		joined bool
	)
	err := m.query(ctx, func() { room, joined = m.Registry.RoomOf(c) })
	return room, joined, err
}

// query runs fn on the hub goroutine and waits for it.
func (m *ManagerService) query(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		fn()
		close(finished)
	}

	select {
	case m.queryCh <- wrapped:
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		return ErrHubStopped
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *ManagerService) register(c Client) {
	if _, ok := m.conns[c]; ok {
		return
	}
	m.conns[c] = StateConnected
	m.metrics.Connections.Inc()
	m.log.Debug("client registered", zap.String("user_id", c.GetUserID()), zap.String("via", c.Kind()))
}

func (m *ManagerService) unregister(c Client) {
	if _, ok := m.conns[c]; !ok {
		return
	}
	roomID := m.Registry.Remove(c)
	delete(m.conns, c)
	c.Close()
	m.metrics.Connections.Dec()
	m.log.Debug("client unregistered",
		zap.String("user_id", c.GetUserID()),
		zap.String("team_id", roomID),
	)
}

func (m *ManagerService) shutdown() {
	for c := range m.conns {
		m.Registry.Remove(c)
		c.Close()
		m.metrics.Connections.Dec()
	}
	m.conns = make(map[Client]ConnState)
	m.log.Info("relay stopped")
}

func (m *ManagerService) handle(c Client, ev models.RelayEvent) {
	if _, ok := m.conns[c]; !ok {
		// Late event from a read pump whose connection is already gone.
		return
	}

	switch ev.Type {
	case models.EventJoinTeam:
		m.join(c, strings.TrimSpace(ev.TeamID))
	case models.EventLeaveTeam:
		m.leave(c, strings.TrimSpace(ev.TeamID))
	case models.EventSendMessage:
		if ev.Message == nil {
			m.reject(c, models.ErrorCodeBadRequest, "send-message without message", "")
			return
		}
		msg := *ev.Message
		if msg.TeamID == "" {
			msg.TeamID = ev.TeamID
		}
		_, _ = m.send(c, msg)
	case "":
		m.reject(c, models.ErrorCodeBadRequest, "malformed event", "")
	default:
		m.reject(c, models.ErrorCodeBadRequest, "unknown event type "+ev.Type, "")
	}
}

func (m *ManagerService) join(c Client, teamID string) {
	if teamID == "" {
		m.reject(c, models.ErrorCodeValidation, "teamId is required", "")
		return
	}
	if len(teamID) > maxTeamIDLen {
		m.reject(c, models.ErrorCodeValidation, "teamId is too long", "")
		return
	}
	previous := m.Registry.Join(teamID, c)
	m.conns[c] = StateJoinedRoom
	m.metrics.RoomJoins.Inc()
	m.log.Debug("joined team",
		zap.String("user_id", c.GetUserID()),
		zap.String("team_id", teamID),
		zap.String("previous", previous),
	)
}

// leave with an empty teamID leaves the current room.
func (m *ManagerService) leave(c Client, teamID string) {
	if teamID == "" {
		teamID, _ = m.Registry.RoomOf(c)
	}
	if !m.Registry.Leave(teamID, c) {
		return
	}
	m.conns[c] = StateLeftRoom
	m.log.Debug("left team", zap.String("user_id", c.GetUserID()), zap.String("team_id", teamID))
}

// send validates, persists and broadcasts msg. from is nil for REST submissions.
func (m *ManagerService) send(from Client, msg models.TeamMessage) (models.TeamMessage, error) {
	if err := m.prepare(from, &msg); err != nil {
		m.metrics.RelayErrors.WithLabelValues("validation").Inc()
		if from != nil {
			m.reject(from, models.ErrorCodeValidation, err.Error(), msg.ID)
		}
		return models.TeamMessage{}, err
	}

	ctx, cancel := context.WithTimeout(m.ctx, m.persistTimeout)
	err := m.Store.CreateMessage(ctx, &msg)
	cancel()
	if err != nil {
		code, kind := models.ErrorCodeStorage, "storage"
		if errors.Is(err, storage.ErrConflict) {
			code, kind = models.ErrorCodeValidation, "validation"
			err = invalid("id", "is already used in this team")
		} else {
			m.log.Error("failed to persist message",
				zap.String("team_id", msg.TeamID),
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
		}
		m.metrics.RelayErrors.WithLabelValues(kind).Inc()
		if from != nil {
			text := "message could not be saved"
			if code == models.ErrorCodeValidation {
				text = err.Error()
			}
			m.reject(from, code, text, msg.ID)
		}
		return models.TeamMessage{}, err
	}
	m.metrics.MessagesPersisted.Inc()

	m.broadcast(msg)
	return msg, nil
}

// prepare fills defaults from the connection and checks the required fields.
func (m *ManagerService) prepare(from Client, msg *models.TeamMessage) error {
	msg.TeamID = strings.TrimSpace(msg.TeamID)
	msg.ID = strings.TrimSpace(msg.ID)

	if from != nil {
		if msg.TeamID == "" {
			msg.TeamID, _ = m.Registry.RoomOf(from)
		}
		if msg.Sender == "" {
			msg.Sender = from.GetUserID()
		}
		if msg.SenderName == "" {
			msg.SenderName = from.GetUserName()
		}
	}

	switch {
	case msg.TeamID == "":
		return invalid("teamId", "is required")
	case len(msg.TeamID) > maxTeamIDLen:
		return invalid("teamId", "is too long")
	case strings.TrimSpace(msg.Sender) == "":
		return invalid("sender", "is required")
	case len(msg.Sender) > maxSenderLen:
		return invalid("sender", "is too long")
	case utf8.RuneCountInString(msg.SenderName) > maxNameLen:
		return invalid("senderName", "is too long")
	case strings.TrimSpace(msg.Body) == "":
		return invalid("message", "must not be empty")
	case len(msg.ID) > maxIDLen:
		return invalid("id", "is too long")
	}

	if msg.ID == "" {
		msg.ID = m.newID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = m.now().UTC()
	}
	msg.Seq = 0
	return nil
}

func (m *ManagerService) broadcast(msg models.TeamMessage) {
	delivered, failed := m.Registry.Broadcast(msg.TeamID, models.NewMessageEvent(msg))
	m.metrics.BroadcastDelivered.Add(float64(delivered))

	for _, c := range failed {
		m.metrics.BroadcastDropped.Inc()
		m.metrics.RelayErrors.WithLabelValues("transport").Inc()
		m.log.Warn("dropping slow client",
			zap.String("user_id", c.GetUserID()),
			zap.String("team_id", msg.TeamID),
			zap.Error(ErrTransport),
		)
		m.unregister(c)
	}
}

// reject sends an error event to c only. A full buffer drops the reply.
func (m *ManagerService) reject(c Client, code, text, messageID string) {
	if code == models.ErrorCodeBadRequest {
		m.metrics.RelayErrors.WithLabelValues("bad-request").Inc()
	}
	select {
	case c.GetSendChannel() <- models.NewErrorEvent(code, text, messageID):
	default:
		m.log.Warn("error reply dropped", zap.String("user_id", c.GetUserID()), zap.String("code", code))
	}
}
