// Package events fans work mutations out to live subscribers so open
// editors can refresh without polling.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Type string

const (
	WorkUpdated       Type = "work.updated"
	WorkDeleted       Type = "work.deleted"
	ChapterCreated    Type = "chapter.created"
	ChapterUpdated    Type = "chapter.updated"
	ChapterDeleted    Type = "chapter.deleted"
	ChaptersReordered Type = "chapters.reordered"
	RevisionCreated   Type = "revision.created"
	ShareCreated      Type = "share.created"
	ShareDeleted      Type = "share.deleted"
	CommentCreated    Type = "comment.created"
	CommentUpdated    Type = "comment.updated"
	FeedbackCreated   Type = "feedback.created"
)

type Event struct {
	Type     Type      `json:"type"`
	WorkID   uuid.UUID `json:"work_id"`
	EntityID uuid.UUID `json:"entity_id"`
	At       time.Time `json:"at"`
}

// Publisher is what services depend on. Publish must not block.
type Publisher interface {
	Publish(ev Event)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(Event) {}

// Hub keeps one room of subscriptions per work.
//
// Why rooms keyed by work id?
//   - A subscriber only ever cares about one work, the one open in its
//     editor. Publishing walks just that room, not every connection.
//   - An empty room is deleted, so the map only holds works that have
//     someone watching.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[uuid.UUID]map[*Subscription]struct{}
	buffer int
	logger *zap.Logger
}

// NewHub creates a hub whose subscriptions buffer up to buffer events.
// A subscriber that falls further behind is dropped.
func NewHub(buffer int, logger *zap.Logger) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{
		rooms:  make(map[uuid.UUID]map[*Subscription]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

type Subscription struct {
	WorkID uuid.UUID

	hub  *Hub
	ch   chan Event
	once sync.Once
}

// Events is closed when the subscription ends, either by Close or because
// the hub dropped a slow reader.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

func (s *Subscription) Close() {
	s.hub.remove(s)
}

func (h *Hub) Subscribe(workID uuid.UUID) *Subscription {
	sub := &Subscription{WorkID: workID, hub: h, ch: make(chan Event, h.buffer)}

	h.mu.Lock()
	room, ok := h.rooms[workID]
	if !ok {
		room = make(map[*Subscription]struct{})
		h.rooms[workID] = room
	}
	room[sub] = struct{}{}
	h.mu.Unlock()

	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(sub)
}

func (h *Hub) removeLocked(sub *Subscription) {
	sub.once.Do(func() {
		if room, ok := h.rooms[sub.WorkID]; ok {
			delete(room, sub)
			if len(room) == 0 {
				delete(h.rooms, sub.WorkID)
			}
		}
		close(sub.ch)
	})
}

// Publish hands ev to every subscriber of its work.
//
// Why drop a full subscriber instead of waiting for it?
//   - Publish runs inside the request that made the change. Blocking on a
//     stalled browser tab would stall that write, and every later write
//     on the same work.
//   - Events only tell the client to refetch. A dropped client reconnects
//     and reloads, so nothing is lost that a reload cannot recover.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.rooms[ev.WorkID] {
		select {
		case sub.ch <- ev:
		default:
			h.logger.Warn("dropping slow event subscriber",
				zap.String("work_id", ev.WorkID.String()),
				zap.String("event", string(ev.Type)),
			)
			h.removeLocked(sub)
		}
	}
}

// Subscribers returns how many subscriptions are open on a work.
func (h *Hub) Subscribers(workID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[workID])
}
