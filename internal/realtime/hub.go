// Package realtime fans out child-list changes to open dashboard streams.
package realtime

import (
	"sync"
)

// EventKind names what happened to a guardian's children.
type EventKind string

const (
	ChildCreated  EventKind = "child.created"
	ChildUpdated  EventKind = "child.updated"
	ChildDeleted  EventKind = "child.deleted"
	CheckinStored EventKind = "checkin.created"
)

type Event struct {
	Kind       EventKind `json:"kind"`
	GuardianID int64     `json:"guardian_id"`
	ChildID    int64     `json:"child_id"`
}

// Hub is an in-process publish/subscribe keyed by guardian ID. Slow
// subscribers drop events rather than block publishers.
type Hub struct {
	mu     sync.Mutex
	subs   map[int64]map[*subscription]struct{}
	buffer int
}

type subscription struct {
	ch   chan Event
	once sync.Once
}

func NewHub(buffer int) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{subs: make(map[int64]map[*subscription]struct{}), buffer: buffer}
}

// Subscribe registers for events about guardianID. The returned function
// unsubscribes and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe(guardianID int64) (<-chan Event, func()) {
	sub := &subscription{ch: make(chan Event, h.buffer)}

	h.mu.Lock()
	set, ok := h.subs[guardianID]
	if !ok {
		set = make(map[*subscription]struct{})
		h.subs[guardianID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	return sub.ch, func() {
		sub.once.Do(func() {
			h.mu.Lock()
			delete(h.subs[guardianID], sub)
			if len(h.subs[guardianID]) == 0 {
				delete(h.subs, guardianID)
			}
			h.mu.Unlock()
			close(sub.ch)
		})
	}
}

// Publish delivers ev to every subscriber of ev.GuardianID.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs[ev.GuardianID] {
		select {
		case sub.ch <- ev:
		default:
		}
	}
}

// Subscribers reports how many streams are open for guardianID.
func (h *Hub) Subscribers(guardianID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[guardianID])
}
