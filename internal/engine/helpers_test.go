package engine

import (
	"fmt"
	"time"

	"github.com/talgya/concord/internal/agents"
	"github.com/talgya/concord/internal/config"
	"github.com/talgya/concord/internal/social"
	"github.com/talgya/concord/internal/spatial"
)

// testClock is a settable time source for deterministic tests.
type testClock struct {
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestEngine() (*Engine, *agents.Directory, *testClock) {
	cfg := config.Default()
	dir := agents.NewDirectory()
	eng := New(cfg, dir, spatial.NewGrid(cfg.Formation.GridSize))
	clock := newTestClock()
	eng.SetClock(clock.Now)
	return eng, dir, clock
}

// newAgent builds a test agent at the given position with the standard
// trait set.
func newAgent(id string, x, y float64) *agents.Agent {
	return &agents.Agent{
		ID:       agents.AgentID(id),
		Name:     id,
		Position: agents.Position{X: x, Y: y},
		Personality: agents.Personality{
			Traits: map[string]float64{
				"leadership":   0.5,
				"cooperation":  0.5,
				"adaptability": 0.5,
				"reliability":  0.5,
				"creativity":   0.5,
			},
		},
		Relationships: make(map[agents.AgentID]agents.Relationship),
		Interactions:  make(map[agents.AgentID]*agents.InteractionTally),
	}
}

// relate records a mutual relationship score between two agents.
func relate(a, b *agents.Agent, score float64) {
	a.Relationships[b.ID] = agents.Relationship{Score: score}
	b.Relationships[a.ID] = agents.Relationship{Score: score}
}

// newActiveGroup creates a group with a leader and enough members to be
// Active, using sequential member ids derived from the prefix.
func newActiveGroup(eng *Engine, prefix string, members int) *social.Group {
	leaderID := agents.AgentID(prefix + "-leader")
	g := eng.CreateGroup(prefix+" group", social.GroupSocial, "", leaderID)
	for i := 1; i < members; i++ {
		eng.AddMember(g.ID, agents.AgentID(fmt.Sprintf("%s-m%d", prefix, i)), social.RoleMember)
	}
	return g
}

// agentID builds a sequential agent id like "m3".
func agentID(prefix string, i int) agents.AgentID {
	return agents.AgentID(fmt.Sprintf("%s%d", prefix, i))
}

// eventNames extracts the names from an event slice.
func eventNames(events []Event) []string {
	names := make([]string, len(events))
	for i, ev := range events {
		names[i] = ev.Name
	}
	return names
}

// fund gives a group enough wealth and assets to stay clear of the
// resource depletion dissolution condition.
func fund(eng *Engine, id social.GroupID) {
	eng.ManageResources(id, ResourceUpdate{
		WealthDelta: 9000,
		AssetDeltas: map[string]float64{"supplies": 100},
	})
}
