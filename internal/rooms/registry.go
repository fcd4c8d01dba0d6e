package rooms

import (
	"log/slog"
	"sync"

	"quickscribe/internal/logging"
)

// Subscriber is a live delivery target for one job's updates. Send must
// not block; implementations report false when the payload was dropped
// (dead or saturated connection).
type Subscriber interface {
	Send(payload []byte) bool
	Close()
}

// Registry tracks which subscribers are joined to which job room.
// A subscriber may be in at most one room at a time; joining a second
// room implicitly leaves the first.
type Registry struct {
	mu      sync.RWMutex
	rooms   map[string]map[Subscriber]struct{}
	joined  map[Subscriber]string
	logger  *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		rooms:  make(map[string]map[Subscriber]struct{}),
		joined: make(map[Subscriber]string),
		logger: logging.NewComponentLogger(logger, "rooms"),
	}
}

// Join adds sub to the room for jobID, leaving any previous room first.
func (r *Registry) Join(jobID string, sub Subscriber) {
	if jobID == "" || sub == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(sub)
	members, ok := r.rooms[jobID]
	if !ok {
		members = make(map[Subscriber]struct{})
		r.rooms[jobID] = members
	}
	members[sub] = struct{}{}
	r.joined[sub] = jobID
	r.logger.Debug("subscriber joined",
		logging.String(logging.FieldJobID, jobID),
		logging.Int("members", len(members)))
}

// Leave removes sub from whatever room it is in. Safe to call twice.
func (r *Registry) Leave(sub Subscriber) {
	if sub == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(sub)
}

// LeaveAll removes sub from every room it occupies. With single-room
// membership this is the disconnect path's Leave.
func (r *Registry) LeaveAll(sub Subscriber) {
	r.Leave(sub)
}

func (r *Registry) leaveLocked(sub Subscriber) {
	jobID, ok := r.joined[sub]
	if !ok {
		return
	}
	delete(r.joined, sub)
	members := r.rooms[jobID]
	delete(members, sub)
	if len(members) == 0 {
		delete(r.rooms, jobID)
	}
	r.logger.Debug("subscriber left",
		logging.String(logging.FieldJobID, jobID),
		logging.Int("members", len(members)))
}

// Members returns a snapshot of the room for jobID.
func (r *Registry) Members(jobID string) []Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.rooms[jobID]
	if len(members) == 0 {
		return nil
	}
	out := make([]Subscriber, 0, len(members))
	for sub := range members {
		out = append(out, sub)
	}
	return out
}

// Count reports the number of subscribers in the room for jobID.
func (r *Registry) Count(jobID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[jobID])
}

// Rooms reports the number of rooms with at least one subscriber.
func (r *Registry) Rooms() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Subscribers reports the total live subscriber count across all rooms.
func (r *Registry) Subscribers() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.joined)
}

// CloseAll leaves and closes every subscriber. Used during shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	subs := make([]Subscriber, 0, len(r.joined))
	for sub := range r.joined {
		subs = append(subs, sub)
	}
	r.rooms = make(map[string]map[Subscriber]struct{})
	r.joined = make(map[Subscriber]string)
	r.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
}
