// Decision and voting — proposal creation, influence-weighted vote
// resolution, and outcome application.
package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/talgya/concord/internal/agents"
	"github.com/talgya/concord/internal/social"
)

// OptionSpec describes one votable option when proposing a decision.
type OptionSpec struct {
	ID          string
	Description string
}

// ProposeDecision creates a pending decision for the group. Returns nil if
// the group is missing, the proposer is not a member, or no options were
// given. The required influence threshold is derived from the decision
// type's configured lookup table.
func (e *Engine) ProposeDecision(groupID social.GroupID, proposerID agents.AgentID, typ social.DecisionType, description string, options []OptionSpec, affected []agents.AgentID) *social.Decision {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, ok := e.groups[groupID]
	if !ok {
		return nil
	}
	proposer, ok := g.Members[proposerID]
	if !ok {
		return nil
	}
	if len(options) == 0 {
		return nil
	}

	now := e.now()
	d := &social.Decision{
		ID:                social.NewDecisionID(),
		Type:              typ,
		ProposerID:        proposerID,
		ProposedAt:        now,
		Description:       description,
		Status:            social.DecisionPending,
		RequiredInfluence: e.cfg.Decisions.Threshold(typ),
		Affected:          affected,
		Deadline:          now.Add(time.Duration(e.cfg.Decisions.VotingPeriodDays * 24 * float64(time.Hour))),
	}
	for _, spec := range options {
		d.Options = append(d.Options, &social.DecisionOption{
			ID:          spec.ID,
			Description: spec.Description,
			Supporters:  make(map[agents.AgentID]bool),
			Opposition:  make(map[agents.AgentID]bool),
		})
	}

	g.ActiveDecisions = append(g.ActiveDecisions, d)
	g.LastActive = now
	proposer.LogActivity(now, fmt.Sprintf("proposed %s decision", typ))

	slog.Info("decision proposed",
		"group", groupID, "decision", d.ID, "type", typ.String(),
		"required_influence", d.RequiredInfluence)
	return d
}

// CastVote records a vote on a pending decision. A voter's prior vote on
// any option of the same decision is removed first, so each voter holds at
// most one active vote per decision. Resolution runs after every vote.
func (e *Engine) CastVote(groupID social.GroupID, decisionID social.DecisionID, voterID agents.AgentID, optionID string, support bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, ok := e.groups[groupID]
	if !ok {
		return false
	}
	d := g.Decision(decisionID)
	if d == nil || d.Status != social.DecisionPending {
		return false
	}
	voter, ok := g.Members[voterID]
	if !ok {
		return false
	}
	opt := d.Option(optionID)
	if opt == nil {
		return false
	}

	d.ClearVote(voterID)
	if support {
		opt.Supporters[voterID] = true
	} else {
		opt.Opposition[voterID] = true
	}

	now := e.now()
	voter.LogActivity(now, fmt.Sprintf("voted on %s decision", d.Type))
	g.LastActive = now

	e.resolveDecision(g, d)
	return true
}

// resolveDecision sums voter influence per option side and resolves the
// decision once either side reaches the required threshold. Caller holds
// the write lock.
func (e *Engine) resolveDecision(g *social.Group, d *social.Decision) {
	for _, opt := range d.Options {
		supportSum := e.influenceSum(g, opt.Supporters)
		againstSum := e.influenceSum(g, opt.Opposition)

		if supportSum >= d.RequiredInfluence {
			d.Status = social.DecisionApproved
			opt.Weight = supportSum
			e.archiveDecision(g, d)
			e.applyOutcome(g, d)
			return
		}
		if againstSum >= d.RequiredInfluence {
			d.Status = social.DecisionRejected
			opt.Weight = againstSum
			e.archiveDecision(g, d)
			return
		}
	}
}

// influenceSum totals the current influence of the listed voters. Voters
// who have since left the group carry no weight.
func (e *Engine) influenceSum(g *social.Group, voters map[agents.AgentID]bool) float64 {
	sum := 0.0
	for id := range voters {
		if m, ok := g.Members[id]; ok {
			sum += m.Influence
		}
	}
	return sum
}

// archiveDecision moves a resolved decision from the active list to the
// append-only history and emits decision_resolved. Caller holds the write
// lock.
func (e *Engine) archiveDecision(g *social.Group, d *social.Decision) {
	for i, active := range g.ActiveDecisions {
		if active.ID == d.ID {
			g.ActiveDecisions = append(g.ActiveDecisions[:i], g.ActiveDecisions[i+1:]...)
			break
		}
	}
	g.DecisionHistory = append(g.DecisionHistory, d)

	e.emitEvent(Event{
		Name:        EventDecisionResolved,
		GroupID:     g.ID,
		Description: fmt.Sprintf("%s decision %s", d.Type, d.Status),
		Meta: map[string]any{
			"decision_id": string(d.ID),
			"type":        d.Type.String(),
			"status":      d.Status.String(),
		},
	})
}

// applyOutcome applies an approved decision's structural effect. Types
// without a built-in effect are acknowledged only. Caller holds the write
// lock.
func (e *Engine) applyOutcome(g *social.Group, d *social.Decision) {
	switch d.Type {
	case social.DecisionLeadershipChange:
		if len(d.Affected) == 0 {
			return
		}
		newLeaderID := d.Affected[0]
		newLeader, ok := g.Members[newLeaderID]
		if !ok {
			slog.Warn("leadership change approved for non-member",
				"group", g.ID, "agent", newLeaderID)
			return
		}

		now := e.now()
		if old, ok := g.Members[g.LeaderID]; ok {
			old.Role = social.RoleAdvisor
			old.LogActivity(now, "stepped down as leader")
		}
		newLeader.Role = social.RoleLeader
		newLeader.LogActivity(now, "became leader")
		g.LeaderID = newLeaderID
		e.recomputeAccess(g)

		slog.Info("leadership changed", "group", g.ID, "leader", newLeaderID)

	case social.DecisionMemberExpulsion:
		for _, id := range d.Affected {
			e.removeMember(g.ID, id)
		}

	default:
		// Alliance formation, goal setting, and general decisions have no
		// built-in structural effect; hosts react via decision_resolved.
	}
}

// ExpireDecisions rejects pending decisions whose voting deadline has
// passed, marking them expired and moving them to history. Expiry is
// deadline-driven only; a pending decision otherwise persists until a vote
// crosses threshold.
func (e *Engine) ExpireDecisions() {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	for _, g := range e.groups {
		// Copy: archiveDecision mutates the active list.
		active := make([]*social.Decision, len(g.ActiveDecisions))
		copy(active, g.ActiveDecisions)
		for _, d := range active {
			if d.Status == social.DecisionPending && now.After(d.Deadline) {
				d.Status = social.DecisionExpired
				e.archiveDecision(g, d)
			}
		}
	}
}
