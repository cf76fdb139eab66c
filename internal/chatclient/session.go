// Package chatclient is the participant side of the team chat: a Session keeps
// the rendered message list of the active room in sync with the relay.
package chatclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"hackmate/backend/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DeliveryState of a message in the local list.
type DeliveryState string

const (
	StatePending DeliveryState = "pending"
	StateSent    DeliveryState = "sent"
	StateFailed  DeliveryState = "failed"
)

// Status is the connection indicator shown to the participant.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

var (
	ErrNoRoom      = errors.New("no team room joined")
	ErrEmptyBody   = errors.New("message must not be empty")
	ErrUnknownID   = errors.New("unknown message id")
	ErrNotRetrying = errors.New("message is not in a failed state")
)

// Transport carries relay events to the server.
type Transport interface {
	Send(ctx context.Context, ev models.RelayEvent) error
}

// Snapshotter fetches the initial history of a room. HTTPSnapshot implements it.
type Snapshotter interface {
	ListMessages(ctx context.Context, teamID string) ([]models.TeamMessage, error)
}

// Entry is one rendered message.
type Entry struct {
	Message models.TeamMessage
	State   DeliveryState
	// Error is the relay's reason when State is StateFailed.
	Error string
}

// Session is the client state machine for one participant.
//
// Messages are kept in a map keyed by id and an insertion-ordered id slice, so an
// optimistic local copy and the relay's echo of it collapse into one entry.
type Session struct {
	mu sync.Mutex

	userID   string
	userName string

	transport Transport
	snapshot  Snapshotter

	room    string
	order   []string
	entries map[string]*Entry
	// generation changes on every room switch; stale snapshots are dropped.
	generation uint64

	status             Status
	everConnected      bool
	lastError          string
	refetchOnReconnect bool

	onChange func()
	newID    func() string
	now      func() time.Time
	log      *zap.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithRefetchOnReconnect makes a reconnect re-fetch the room snapshot and merge it
// into the list. Off by default: a reconnect only re-declares room interest.
func WithRefetchOnReconnect(enabled bool) Option {
	return func(s *Session) { s.refetchOnReconnect = enabled }
}

// WithOnChange registers a callback run after every change to the rendered list
// or the status. It is called without the session lock held.
func WithOnChange(fn func()) Option {
	return func(s *Session) { s.onChange = fn }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

func WithIDGenerator(gen func() string) Option {
	return func(s *Session) { s.newID = gen }
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

func NewSession(userID, userName string, t Transport, snap Snapshotter, opts ...Option) *Session {
	s := &Session{
		userID:    userID,
		userName:  userName,
		transport: t,
		snapshot:  snap,
		entries:   make(map[string]*Entry),
		status:    StatusDisconnected,
		newID:     uuid.NewString,
		now:       time.Now,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetTransport replaces the transport. Used when the transport needs the session
// as its event handler and so is built after it.
func (s *Session) SetTransport(t Transport) {
	s.mu.Lock()
	s.transport = t
	s.mu.Unlock()
}

// Room returns the active team id.
func (s *Session) Room() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}

// Status returns the connection indicator.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// LastError returns the most recent relay error not tied to a message.
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// Messages returns the rendered list in insertion order.
func (s *Session) Messages() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.entries[id])
	}
	return out
}

// SwitchRoom leaves the current room, joins teamID and loads its snapshot.
// The previous room's list is discarded before anything is fetched.
func (s *Session) SwitchRoom(ctx context.Context, teamID string) error {
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return ErrNoRoom
	}

	s.mu.Lock()
	previous := s.room
	s.room = teamID
	s.order = nil
	s.entries = make(map[string]*Entry)
	s.generation++
	gen := s.generation
	t := s.transport
	s.mu.Unlock()
	s.changed()

	if t != nil {
		if previous != "" && previous != teamID {
			if err := t.Send(ctx, models.RelayEvent{Type: models.EventLeaveTeam, TeamID: previous}); err != nil {
				s.log.Debug("leave not sent", zap.String("team_id", previous), zap.Error(err))
			}
		}
		// A join that cannot be sent now is re-declared on connect.
		if err := t.Send(ctx, models.RelayEvent{Type: models.EventJoinTeam, TeamID: teamID}); err != nil {
			s.log.Debug("join not sent", zap.String("team_id", teamID), zap.Error(err))
		}
	}

	return s.loadSnapshot(ctx, teamID, gen)
}

// loadSnapshot fetches history and merges it ahead of anything pushed meanwhile.
func (s *Session) loadSnapshot(ctx context.Context, teamID string, gen uint64) error {
	if s.snapshot == nil {
		return nil
	}
	history, err := s.snapshot.ListMessages(ctx, teamID)
	if err != nil {
		return fmt.Errorf("failed to load %s history: %w", teamID, err)
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return nil
	}
	s.merge(history)
	s.mu.Unlock()
	s.changed()
	return nil
}

// merge puts history first, then every entry not in it, keeping their order.
// Must hold s.mu.
func (s *Session) merge(history []models.TeamMessage) {
	order := make([]string, 0, len(history)+len(s.order))
	seen := make(map[string]bool, len(history))
	for _, msg := range history {
		if msg.ID == "" || seen[msg.ID] {
			continue
		}
		seen[msg.ID] = true
		order = append(order, msg.ID)
		if e, ok := s.entries[msg.ID]; ok {
			e.Message = msg
			e.State = StateSent
			e.Error = ""
			continue
		}
		s.entries[msg.ID] = &Entry{Message: msg, State: StateSent}
	}
	for _, id := range s.order {
		if !seen[id] {
			order = append(order, id)
		}
	}
	s.order = order
}

// Send appends an optimistic copy and sends it. The returned id is the local id,
// which the relay keeps.
func (s *Session) Send(ctx context.Context, body string) (string, error) {
	if strings.TrimSpace(body) == "" {
		return "", ErrEmptyBody
	}

	s.mu.Lock()
	if s.room == "" {
		s.mu.Unlock()
		return "", ErrNoRoom
	}
	msg := models.TeamMessage{
		ID:         s.newID(),
		TeamID:     s.room,
		Sender:     s.userID,
		SenderName: s.userName,
		Body:       body,
		CreatedAt:  s.now().UTC(),
	}
	s.order = append(s.order, msg.ID)
	s.entries[msg.ID] = &Entry{Message: msg, State: StatePending}
	t := s.transport
	s.mu.Unlock()
	s.changed()

	return msg.ID, s.transmit(ctx, t, msg)
}

// Retry resends a failed message under the same id.
func (s *Session) Retry(ctx context.Context, id string) error {
	s.mu.Lock()
	e, ok := s.entries[id]
	switch {
	case !ok:
		s.mu.Unlock()
		return ErrUnknownID
	case e.State != StateFailed:
		s.mu.Unlock()
		return ErrNotRetrying
	}
	e.State = StatePending
	e.Error = ""
	msg := e.Message
	t := s.transport
	s.mu.Unlock()
	s.changed()

	return s.transmit(ctx, t, msg)
}

func (s *Session) transmit(ctx context.Context, t Transport, msg models.TeamMessage) error {
	if t == nil {
		s.fail(msg.ID, "not connected")
		return errors.New("not connected")
	}
	err := t.Send(ctx, models.RelayEvent{Type: models.EventSendMessage, TeamID: msg.TeamID, Message: &msg})
	if err != nil {
		s.fail(msg.ID, err.Error())
		return err
	}
	return nil
}

func (s *Session) fail(id, reason string) {
	s.mu.Lock()
	e, ok := s.entries[id]
	if ok {
		e.State = StateFailed
		e.Error = reason
	}
	s.mu.Unlock()
	if ok {
		s.changed()
	}
}

// HandleEvent applies an event pushed by the relay.
func (s *Session) HandleEvent(ev models.RelayEvent) {
	switch ev.Type {
	case models.EventNewMessage:
		if ev.Message == nil {
			return
		}
		s.receive(*ev.Message)
	case models.EventError:
		if ev.MessageID != "" {
			s.fail(ev.MessageID, ev.Error)
			return
		}
		s.mu.Lock()
		s.lastError = ev.Error
		s.mu.Unlock()
		s.log.Warn("relay error", zap.String("code", ev.Code), zap.String("error", ev.Error))
		s.changed()
	}
}

// receive appends msg unless an entry with its id exists, in which case the
// local copy is confirmed.
func (s *Session) receive(msg models.TeamMessage) {
	s.mu.Lock()
	if msg.TeamID != s.room || msg.ID == "" {
		s.mu.Unlock()
		return
	}
	if e, ok := s.entries[msg.ID]; ok {
		e.Message = msg
		e.State = StateSent
		e.Error = ""
	} else {
		s.order = append(s.order, msg.ID)
		s.entries[msg.ID] = &Entry{Message: msg, State: StateSent}
	}
	s.mu.Unlock()
	s.changed()
}

// HandleStatus is called by the transport on every connection change.
// On connect the active room is re-declared; history is re-fetched only with
// WithRefetchOnReconnect.
func (s *Session) HandleStatus(ctx context.Context, status Status) {
	s.mu.Lock()
	s.status = status
	reconnect := status == StatusConnected && s.everConnected
	if status == StatusConnected {
		s.everConnected = true
	}
	room, gen, t := s.room, s.generation, s.transport
	refetch := reconnect && s.refetchOnReconnect
	s.mu.Unlock()
	s.changed()

	if status != StatusConnected || room == "" || t == nil {
		return
	}
	if err := t.Send(ctx, models.RelayEvent{Type: models.EventJoinTeam, TeamID: room}); err != nil {
		s.log.Warn("failed to re-join team", zap.String("team_id", room), zap.Error(err))
		return
	}
	if refetch {
		if err := s.loadSnapshot(ctx, room, gen); err != nil {
			s.log.Warn("failed to refetch history", zap.String("team_id", room), zap.Error(err))
		}
	}
}

func (s *Session) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}
