package chathub_test

import (
	"testing"
	"time"

	"hackmate/backend/internal/models"
)

type MockClient struct {
	userID string
	name   string
	send   chan models.RelayEvent
	closed int
}

func newMockClient(userID string) *MockClient {
	return newMockClientWithBuffer(userID, 10)
}

func newMockClientWithBuffer(userID string, buffer int) *MockClient {
	return &MockClient{
		userID: userID,
		name:   "name-" + userID,
		send:   make(chan models.RelayEvent, buffer),
	}
}

func (c *MockClient) GetUserID() string                        { return c.userID }
func (c *MockClient) GetUserName() string                      { return c.name }
func (c *MockClient) Kind() string                             { return "mock" }
func (c *MockClient) GetSendChannel() chan<- models.RelayEvent { return c.send }
func (c *MockClient) Run()                                     {}
func (c *MockClient) Close()                                   { c.closed++ }

// next waits for the next queued event.
func (c *MockClient) next(t *testing.T) models.RelayEvent {
	t.Helper()
	select {
	case ev := <-c.send:
		return ev
	case <-time.After(time.Second):
		t.Fatalf("client %s: no event received", c.userID)
		return models.RelayEvent{}
	}
}

// assertEmpty fails if any event is queued.
func (c *MockClient) assertEmpty(t *testing.T) {
	t.Helper()
	select {
	case ev := <-c.send:
		t.Fatalf("client %s: unexpected event %+v", c.userID, ev)
	default:
	}
}
