// Package social provides the group, membership, decision, territory, and
// reputation data model for the governance engine.
package social

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/concord/internal/agents"
)

// GroupID is a unique identifier for a group.
type GroupID string

// NewGroupID generates a fresh group identifier.
func NewGroupID() GroupID {
	return GroupID(uuid.NewString())
}

// GroupType categorizes a group's primary purpose.
type GroupType uint8

const (
	GroupCombat GroupType = iota
	GroupSocial
	GroupEconomic
	GroupPolitical
	GroupReligious
)

// String returns the config/API name for the group type.
func (t GroupType) String() string {
	switch t {
	case GroupCombat:
		return "combat"
	case GroupSocial:
		return "social"
	case GroupEconomic:
		return "economic"
	case GroupPolitical:
		return "political"
	case GroupReligious:
		return "religious"
	}
	return "unknown"
}

// GroupStatus tracks a group through its lifecycle:
// Forming → Active → (Warning) → Dissolved. Warning is re-entrant: a group
// returns to Active if the dissolution condition clears before the grace
// period expires.
type GroupStatus uint8

const (
	StatusForming GroupStatus = iota
	StatusActive
	StatusWarning
	StatusDissolved
)

// String returns the API name for the status.
func (s GroupStatus) String() string {
	switch s {
	case StatusForming:
		return "forming"
	case StatusActive:
		return "active"
	case StatusWarning:
		return "warning"
	case StatusDissolved:
		return "dissolved"
	}
	return "unknown"
}

// GroupGoal is a collective objective with measured progress.
type GroupGoal struct {
	Type     string  `json:"type"`
	Progress float64 `json:"progress"` // 0–100
}

// MeetingSchedule describes when the group convenes.
type MeetingSchedule struct {
	Frequency   time.Duration `json:"frequency"`
	NextMeeting time.Time     `json:"next_meeting"`
}

// Subgroup is a specialization-based division within a group.
type Subgroup struct {
	Specialization string           `json:"specialization"`
	LeadID         agents.AgentID   `json:"lead_id"`
	MemberIDs      []agents.AgentID `json:"member_ids"`
}

// GroupResources holds a group's shared economic state.
type GroupResources struct {
	Wealth          float64                         `json:"wealth"`
	Assets          map[string]float64              `json:"assets"`
	SharedInventory map[ResourceID]float64          `json:"shared_inventory"`
	Territories     map[TerritoryID]bool            `json:"territories"`
	Access          map[agents.AgentID][]ResourceID `json:"access"`
}

// NewGroupResources returns an empty, fully initialized resource block.
func NewGroupResources() GroupResources {
	return GroupResources{
		Assets:          make(map[string]float64),
		SharedInventory: make(map[ResourceID]float64),
		Territories:     make(map[TerritoryID]bool),
		Access:          make(map[agents.AgentID][]ResourceID),
	}
}

// Group is a persistent collection of agents with roles, shared resources,
// and collective decision-making.
type Group struct {
	ID          GroupID   `json:"id"`
	Name        string    `json:"name"`
	Type        GroupType `json:"type"`
	Description string    `json:"description"`

	LeaderID agents.AgentID             `json:"leader_id"`
	Members  map[agents.AgentID]*Member `json:"members"`

	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`

	Reputation float64        `json:"reputation"` // clamped to configured bounds
	Resources  GroupResources `json:"resources"`
	Goals      []GroupGoal    `json:"goals"`

	ActiveDecisions []*Decision `json:"active_decisions"`
	DecisionHistory []*Decision `json:"decision_history"`

	Schedule  MeetingSchedule      `json:"schedule"`
	Subgroups map[string]*Subgroup `json:"subgroups"`

	Status GroupStatus `json:"status"`
}

// MemberIDs returns member ids in ascending order. The member map is
// presented ordered-by-id everywhere order matters.
func (g *Group) MemberIDs() []agents.AgentID {
	ids := make([]agents.AgentID, 0, len(g.Members))
	for id := range g.Members {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Decision returns the active decision with the given id, or nil.
func (g *Group) Decision(id DecisionID) *Decision {
	for _, d := range g.ActiveDecisions {
		if d.ID == id {
			return d
		}
	}
	return nil
}
