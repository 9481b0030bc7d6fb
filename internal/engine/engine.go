// Engine ties the group, decision, territory, and reputation systems
// together behind one service object owned by the simulation host.
package engine

import (
	"log/slog"
	"sync"
	"time"

	"github.com/talgya/concord/internal/agents"
	"github.com/talgya/concord/internal/config"
	"github.com/talgya/concord/internal/social"
	"github.com/talgya/concord/internal/spatial"
)

// Engine owns all group, resource, territory, and reputation state.
// Mutation follows a single-writer tick model: every mutating method takes
// the write lock for its full duration, so no two mutations on the same
// group ever interleave. The read lock lets the HTTP API observe between
// ticks.
type Engine struct {
	mu sync.RWMutex

	cfg      *config.Config
	provider agents.Provider
	grid     *spatial.Grid
	bus      *Bus
	now      func() time.Time

	groups      map[social.GroupID]*social.Group
	resources   map[social.ResourceID]*social.Resource
	territories map[social.TerritoryID]*social.Territory

	// Group → owned resource ids (the many-to-many ownership relation).
	holdings map[social.GroupID]map[social.ResourceID]bool

	// Pairwise reputation history, append-only per (agent, target).
	reputation map[repPair][]social.ReputationChange

	// Groups under a dissolution warning, keyed by group id.
	pending map[social.GroupID]*dissolutionNotice

	// Recent events (ring buffer, for API display).
	events []Event

	// Events not yet acknowledged by the persistence host. Unlike the
	// display ring this is never trimmed, so the persisted log stays
	// complete even across long gaps between saves.
	unsaved []Event
}

type repPair struct {
	Agent  agents.AgentID
	Target agents.AgentID
}

// New creates an engine with the given configuration and collaborators.
func New(cfg *config.Config, provider agents.Provider, grid *spatial.Grid) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	if grid == nil {
		grid = spatial.NewGrid(cfg.Formation.GridSize)
	}
	return &Engine{
		cfg:         cfg,
		provider:    provider,
		grid:        grid,
		bus:         NewBus(),
		now:         time.Now,
		groups:      make(map[social.GroupID]*social.Group),
		resources:   make(map[social.ResourceID]*social.Resource),
		territories: make(map[social.TerritoryID]*social.Territory),
		holdings:    make(map[social.GroupID]map[social.ResourceID]bool),
		reputation:  make(map[repPair][]social.ReputationChange),
		pending:     make(map[social.GroupID]*dissolutionNotice),
	}
}

// SetClock overrides the engine's time source. Used by tests and
// accelerated simulation hosts.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Bus returns the engine's event bus for observer registration.
func (e *Engine) Bus() *Bus {
	return e.bus
}

// UpdateAgentPosition forwards a position update to the spatial grid.
func (e *Engine) UpdateAgentPosition(id agents.AgentID, x, y float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.grid.UpdatePosition(id, x, y)
}

// TickHour runs the hourly governance pass: decision deadline expiry and
// dissolution grace-period re-checks.
func (e *Engine) TickHour(tick uint64) {
	e.ExpireDecisions()
	e.ProcessGroupLifecycle()
}

// TickDay runs the daily decay pass: contribution, influence, and
// relationship decay, subgroup maintenance, and territory control growth.
func (e *Engine) TickDay(tick uint64) {
	e.ApplyContributionDecay()

	e.mu.Lock()
	for id := range e.groups {
		e.processInfluenceDecay(id)
		e.updateRelationshipScores(id)
		e.manageSubgroups(id)
	}
	e.mu.Unlock()

	e.UpdateTerritoryControl()

	e.mu.RLock()
	slog.Info("daily governance report",
		"tick", tick,
		"groups", len(e.groups),
		"territories", len(e.territories),
		"events", len(e.events),
	)
	e.mu.RUnlock()
}

// Group returns the group with the given id.
func (e *Engine) Group(id social.GroupID) (*social.Group, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	g, ok := e.groups[id]
	return g, ok
}

// Groups returns all live groups. Order is unspecified.
func (e *Engine) Groups() []*social.Group {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*social.Group, 0, len(e.groups))
	for _, g := range e.groups {
		out = append(out, g)
	}
	return out
}

// GroupCount returns the number of live groups.
func (e *Engine) GroupCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.groups)
}

// Territory returns the territory with the given id.
func (e *Engine) Territory(id social.TerritoryID) (*social.Territory, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	t, ok := e.territories[id]
	return t, ok
}

// Territories returns all registered territories. Order is unspecified.
func (e *Engine) Territories() []*social.Territory {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*social.Territory, 0, len(e.territories))
	for _, t := range e.territories {
		out = append(out, t)
	}
	return out
}

// Resource returns the resource with the given id.
func (e *Engine) Resource(id social.ResourceID) (*social.Resource, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	r, ok := e.resources[id]
	return r, ok
}

// Resources returns all registered resources. Order is unspecified.
func (e *Engine) Resources() []*social.Resource {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*social.Resource, 0, len(e.resources))
	for _, r := range e.resources {
		out = append(out, r)
	}
	return out
}

// RestoreGroup reinstates a previously saved group and its resource
// holdings. Used when loading persisted state at startup.
func (e *Engine) RestoreGroup(g *social.Group, resourceIDs []social.ResourceID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.groups[g.ID] = g
	owned := make(map[social.ResourceID]bool, len(resourceIDs))
	for _, rid := range resourceIDs {
		owned[rid] = true
	}
	e.holdings[g.ID] = owned
	e.recomputeAccess(g)
}

// GroupResourceIDs returns the ids of resources owned by the group, or nil
// if the group is unknown.
func (e *Engine) GroupResourceIDs(id social.GroupID) []social.ResourceID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	owned, ok := e.holdings[id]
	if !ok {
		return nil
	}
	out := make([]social.ResourceID, 0, len(owned))
	for rid := range owned {
		out = append(out, rid)
	}
	return out
}

// RecentEvents returns up to limit of the most recent events, newest last.
func (e *Engine) RecentEvents(limit int) []Event {
	e.mu.RLock()
	defer e.mu.RUnlock()
	start := 0
	if limit > 0 && len(e.events) > limit {
		start = len(e.events) - limit
	}
	out := make([]Event, len(e.events)-start)
	copy(out, e.events[start:])
	return out
}

// emitEvent publishes an event to subscribers and the recent-event log.
// Caller holds the write lock.
func (e *Engine) emitEvent(ev Event) {
	if ev.At.IsZero() {
		ev.At = e.now()
	}
	e.events = append(e.events, ev)
	if len(e.events) > 1000 {
		e.events = e.events[len(e.events)-1000:]
	}
	e.unsaved = append(e.unsaved, ev)
	e.bus.Emit(ev)
}

// UnsavedEvents returns all events emitted since the last MarkEventsSaved,
// oldest first.
func (e *Engine) UnsavedEvents() []Event {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Event, len(e.unsaved))
	copy(out, e.unsaved)
	return out
}

// MarkEventsSaved drops the oldest n unsaved events once the host has
// persisted them. Called only after a successful save, so a failed save
// retries the same events.
func (e *Engine) MarkEventsSaved(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if n >= len(e.unsaved) {
		e.unsaved = nil
		return
	}
	e.unsaved = e.unsaved[n:]
}

// clamp restricts v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// daysBetween returns the fractional number of days from a to b.
func daysBetween(a, b time.Time) float64 {
	return b.Sub(a).Hours() / 24
}
