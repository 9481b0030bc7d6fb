// Event bus — synchronous observer registration for engine state
// transitions. Handlers run at the point of mutation, preserving ordering
// with group state changes.
package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/talgya/concord/internal/social"
)

// Event names emitted by the engine.
const (
	EventGroupFormed          = "group_formed"
	EventDissolutionWarning   = "dissolution_warning"
	EventGroupDissolved       = "group_dissolved"
	EventResourceDistribution = "resource_distribution"
	EventGroupArchived        = "group_archived"
	EventDecisionResolved     = "decision_resolved"
)

// Event is a notable state transition in the engine.
type Event struct {
	Name        string         `json:"name"`
	GroupID     social.GroupID `json:"group_id,omitempty"`
	At          time.Time      `json:"at"`
	Description string         `json:"description"`
	Meta        map[string]any `json:"meta,omitempty"`
}

// Handler receives events. Handlers run synchronously under the engine's
// write lock and must not call back into the engine.
type Handler func(Event)

// Bus dispatches events to named subscriptions.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[int]Handler)}
}

// Subscribe registers a handler for the named event and returns a
// subscription id for Unsubscribe.
func (b *Bus) Subscribe(name string, h Handler) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	if b.subs[name] == nil {
		b.subs[name] = make(map[int]Handler)
	}
	b.subs[name][b.nextID] = h
	return b.nextID
}

// Unsubscribe removes a subscription. Unknown ids are ignored.
func (b *Bus) Unsubscribe(name string, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs[name], id)
}

// Emit delivers the event to subscribers in subscription order.
func (b *Bus) Emit(ev Event) {
	b.mu.Lock()
	handlers := b.subs[ev.Name]
	ids := make([]int, 0, len(handlers))
	for id := range handlers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	ordered := make([]Handler, len(ids))
	for i, id := range ids {
		ordered[i] = handlers[id]
	}
	b.mu.Unlock()

	for _, h := range ordered {
		h(ev)
	}
}
