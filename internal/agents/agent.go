// Package agents defines the read-only agent records the engine consumes.
// Agent data (personality, goals, relationships, interaction history) is
// owned by an external agent subsystem; the engine only reads it through
// the Provider interface.
package agents

import "time"

// AgentID is a unique identifier for an agent.
type AgentID string

// Position is an agent's location in world coordinates.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Goal is something an agent is trying to accomplish.
type Goal struct {
	Type     string  `json:"type" yaml:"type"`
	Priority float64 `json:"priority" yaml:"priority"` // 0.0–1.0
}

// Personality holds named trait values, each in [0,1].
type Personality struct {
	Traits map[string]float64 `json:"traits" yaml:"traits"`
}

// Relationship is one agent's view of another.
type Relationship struct {
	Score float64 `json:"score"` // 0.0–1.0
}

// InteractionTally summarizes past interactions with a single other agent.
type InteractionTally struct {
	Positive        int       `json:"positive"`
	Neutral         int       `json:"neutral"`
	Negative        int       `json:"negative"`
	LastInteraction time.Time `json:"last_interaction"`
}

// Total returns the total number of recorded interactions.
func (t InteractionTally) Total() int {
	return t.Positive + t.Neutral + t.Negative
}

// Interaction is a single recent interaction event between agents.
type Interaction struct {
	Participants []AgentID `json:"participants"`
	At           time.Time `json:"at"`
}

// EconomicData is the slice of economic state the engine reads.
type EconomicData struct {
	Wealth float64 `json:"wealth"`
}

// Agent is the external agent record.
type Agent struct {
	ID       AgentID  `json:"id"`
	Name     string   `json:"name"`
	Position Position `json:"position"`
	Faction  string   `json:"faction,omitempty"`

	Personality Personality `json:"personality"`
	Goals       []Goal      `json:"goals"`

	// Pairwise social state.
	Relationships map[AgentID]Relationship      `json:"relationships,omitempty"`
	Interactions  map[AgentID]*InteractionTally `json:"interactions,omitempty"`

	RecentInteractions []Interaction `json:"recent_interactions,omitempty"`

	Economic EconomicData `json:"economic"`
}

// RelationshipScore returns the agent's relationship score toward target,
// or 0 if none is recorded.
func (a *Agent) RelationshipScore(target AgentID) float64 {
	if rel, ok := a.Relationships[target]; ok {
		return rel.Score
	}
	return 0
}

// Provider is the lookup contract the engine requires from the external
// agent subsystem. Bulk iteration is caller-provided.
type Provider interface {
	Agent(id AgentID) (*Agent, bool)
}
