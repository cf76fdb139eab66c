package chathub

import (
	"sort"

	"hackmate/backend/internal/models"
)

// Registry maps team rooms to their live connections.
//
// It is not safe for concurrent use: the ManagerService goroutine is its only
// owner. A connection is in at most one room; joining a new room leaves the old one.
// Rooms exist only while they have members and are never persisted.
type Registry struct {
	rooms  map[string]map[Client]struct{}
	roomOf map[Client]string
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:  make(map[string]map[Client]struct{}),
		roomOf: make(map[Client]string),
	}
}

// Join puts c in roomID and returns the room it left, if any.
// Joining the room c is already in is a no-op.
func (r *Registry) Join(roomID string, c Client) (previous string) {
	if current, ok := r.roomOf[c]; ok {
		if current == roomID {
			return ""
		}
		r.remove(current, c)
		previous = current
	}

	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[Client]struct{})
		r.rooms[roomID] = members
	}
	members[c] = struct{}{}
	r.roomOf[c] = roomID
	return previous
}

// Leave removes c from roomID. It reports false if c was not in that room.
func (r *Registry) Leave(roomID string, c Client) bool {
	if current, ok := r.roomOf[c]; !ok || current != roomID {
		return false
	}
	r.remove(roomID, c)
	return true
}

// Remove drops c from whatever room it is in and returns that room.
func (r *Registry) Remove(c Client) string {
	roomID, ok := r.roomOf[c]
	if !ok {
		return ""
	}
	r.remove(roomID, c)
	return roomID
}

func (r *Registry) remove(roomID string, c Client) {
	delete(r.roomOf, c)
	members := r.rooms[roomID]
	delete(members, c)
	if len(members) == 0 {
		delete(r.rooms, roomID)
	}
}

// RoomOf returns the room c is joined to.
func (r *Registry) RoomOf(c Client) (string, bool) {
	roomID, ok := r.roomOf[c]
	return roomID, ok
}

// Members returns the connections in roomID, ordered by user id for stable output.
func (r *Registry) Members(roomID string) []Client {
	members := r.rooms[roomID]
	out := make([]Client, 0, len(members))
	for c := range members {
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].GetUserID() < out[j].GetUserID() })
	return out
}

// RoomCount returns the number of rooms with at least one member.
func (r *Registry) RoomCount() int { return len(r.rooms) }

// Broadcast queues ev on every member of roomID without blocking.
// Members whose buffer is full are returned in failed; the others still receive ev.
func (r *Registry) Broadcast(roomID string, ev models.RelayEvent) (delivered int, failed []Client) {
	for c := range r.rooms[roomID] {
		select {
		case c.GetSendChannel() <- ev:
			delivered++
		default:
			failed = append(failed, c)
		}
	}
	return delivered, failed
}
