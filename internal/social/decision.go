// Decisions — influence-weighted proposals voted on by group members.
package social

import (
	"time"

	"github.com/google/uuid"

	"github.com/talgya/concord/internal/agents"
)

// DecisionID is a unique identifier for a decision.
type DecisionID string

// NewDecisionID generates a fresh decision identifier.
func NewDecisionID() DecisionID {
	return DecisionID(uuid.NewString())
}

// DecisionType categorizes what a decision changes.
type DecisionType uint8

const (
	DecisionLeadershipChange DecisionType = iota
	DecisionMemberExpulsion
	DecisionAllianceFormation
	DecisionGoalSetting
	DecisionGeneral
)

// String returns the config/API name for the decision type.
func (t DecisionType) String() string {
	switch t {
	case DecisionLeadershipChange:
		return "leadership_change"
	case DecisionMemberExpulsion:
		return "member_expulsion"
	case DecisionAllianceFormation:
		return "alliance_formation"
	case DecisionGoalSetting:
		return "goal_setting"
	case DecisionGeneral:
		return "general"
	}
	return "unknown"
}

// DecisionStatus tracks a decision's lifecycle.
type DecisionStatus uint8

const (
	DecisionPending DecisionStatus = iota
	DecisionApproved
	DecisionRejected
	DecisionExpired
)

// String returns the API name for the status.
func (s DecisionStatus) String() string {
	switch s {
	case DecisionPending:
		return "pending"
	case DecisionApproved:
		return "approved"
	case DecisionRejected:
		return "rejected"
	case DecisionExpired:
		return "expired"
	}
	return "unknown"
}

// DecisionOption is one votable outcome of a decision.
type DecisionOption struct {
	ID          string                  `json:"id"`
	Description string                  `json:"description"`
	Supporters  map[agents.AgentID]bool `json:"supporters"`
	Opposition  map[agents.AgentID]bool `json:"opposition"`
	Weight      float64                 `json:"weight"`
}

// Decision is a collective choice put before a group.
type Decision struct {
	ID          DecisionID        `json:"id"`
	Type        DecisionType      `json:"type"`
	ProposerID  agents.AgentID    `json:"proposer_id"`
	ProposedAt  time.Time         `json:"proposed_at"`
	Description string            `json:"description"`
	Options     []*DecisionOption `json:"options"`
	Status      DecisionStatus    `json:"status"`

	// Influence sum a side must reach before the decision resolves.
	RequiredInfluence float64 `json:"required_influence"`

	Affected []agents.AgentID `json:"affected,omitempty"`
	Deadline time.Time        `json:"deadline"`
}

// Option returns the option with the given id, or nil.
func (d *Decision) Option(id string) *DecisionOption {
	for _, o := range d.Options {
		if o.ID == id {
			return o
		}
	}
	return nil
}

// ClearVote removes any existing vote by the voter from every option,
// keeping at most one active vote per voter per decision.
func (d *Decision) ClearVote(voter agents.AgentID) {
	for _, o := range d.Options {
		delete(o.Supporters, voter)
		delete(o.Opposition, voter)
	}
}
