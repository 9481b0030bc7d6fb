// Group store and lifecycle mutations — creation, membership, roles,
// contribution/influence updates, decay passes, subgroups, and shared
// resource management.
package engine

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/talgya/concord/internal/agents"
	"github.com/talgya/concord/internal/social"
)

// CreateGroup creates a group with the given leader as its first member.
// Creation always succeeds; the group starts Forming and becomes Active
// once membership reaches the configured minimum.
func (e *Engine) CreateGroup(name string, typ social.GroupType, description string, leaderID agents.AgentID) *social.Group {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.createGroup(name, typ, description, leaderID)
}

func (e *Engine) createGroup(name string, typ social.GroupType, description string, leaderID agents.AgentID) *social.Group {
	now := e.now()
	leader := &social.Member{
		ID:              leaderID,
		Role:            social.RoleLeader,
		JoinedAt:        now,
		Contribution:    100,
		Influence:       e.cfg.Group.DefaultInfluence,
		Relationships:   make(map[agents.AgentID]float64),
		Specializations: make(map[string]bool),
	}
	leader.LogActivity(now, "founded group")

	g := &social.Group{
		ID:          social.NewGroupID(),
		Name:        name,
		Type:        typ,
		Description: description,
		LeaderID:    leaderID,
		Members:     map[agents.AgentID]*social.Member{leaderID: leader},
		CreatedAt:   now,
		LastActive:  now,
		Resources:   social.NewGroupResources(),
		Subgroups:   make(map[string]*social.Subgroup),
		Status:      social.StatusForming,
	}

	e.groups[g.ID] = g
	e.holdings[g.ID] = make(map[social.ResourceID]bool)

	slog.Info("group created", "group", g.ID, "name", name, "type", typ.String(), "leader", leaderID)
	return g
}

// AddMember adds an agent to the group with the given role. Fails if the
// group is missing, the agent is already a member, the group is full, or
// the role is Leader (leadership only changes through decisions).
func (e *Engine) AddMember(groupID social.GroupID, memberID agents.AgentID, role social.Role) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.addMember(groupID, memberID, role)
}

func (e *Engine) addMember(groupID social.GroupID, memberID agents.AgentID, role social.Role) bool {
	g, ok := e.groups[groupID]
	if !ok {
		return false
	}
	if _, exists := g.Members[memberID]; exists {
		return false
	}
	if len(g.Members) >= e.cfg.Group.MaxMembers {
		return false
	}
	if role == social.RoleLeader {
		return false
	}

	now := e.now()
	m := &social.Member{
		ID:              memberID,
		Role:            role,
		JoinedAt:        now,
		Contribution:    50,
		Influence:       e.cfg.Group.DefaultInfluence,
		Relationships:   make(map[agents.AgentID]float64),
		Specializations: make(map[string]bool),
	}
	m.LogActivity(now, "joined group")
	g.Members[memberID] = m
	g.LastActive = now

	if g.Status == social.StatusForming && len(g.Members) >= e.cfg.Group.MinMembers {
		g.Status = social.StatusActive
	}
	e.recomputeAccess(g)
	return true
}

// RemoveMember removes an agent from the group. The leader cannot be
// removed. If membership falls below the configured minimum, the group is
// disbanded as a side effect.
func (e *Engine) RemoveMember(groupID social.GroupID, memberID agents.AgentID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.removeMember(groupID, memberID)
}

func (e *Engine) removeMember(groupID social.GroupID, memberID agents.AgentID) bool {
	g, ok := e.groups[groupID]
	if !ok {
		return false
	}
	if _, exists := g.Members[memberID]; !exists {
		return false
	}
	if memberID == g.LeaderID {
		return false
	}

	delete(g.Members, memberID)
	for _, m := range g.Members {
		delete(m.Relationships, memberID)
	}
	g.LastActive = e.now()

	if len(g.Members) < e.cfg.Group.MinMembers {
		e.dissolveGroup(groupID, "membership below minimum")
		return true
	}
	e.recomputeAccess(g)
	return true
}

// UpdateMemberRole changes a member's role. The leader's role is protected,
// and the Leader role itself can only be granted through a leadership
// decision.
func (e *Engine) UpdateMemberRole(groupID social.GroupID, memberID agents.AgentID, role social.Role) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, ok := e.groups[groupID]
	if !ok {
		return false
	}
	m, ok := g.Members[memberID]
	if !ok {
		return false
	}
	if memberID == g.LeaderID || role == social.RoleLeader {
		return false
	}

	m.Role = role
	m.LogActivity(e.now(), fmt.Sprintf("role changed to %s", role))
	e.recomputeAccess(g)
	return true
}

// UpdateMemberContribution sets a member's contribution, clamped to [0,100].
func (e *Engine) UpdateMemberContribution(groupID social.GroupID, memberID agents.AgentID, value float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, ok := e.groups[groupID]
	if !ok {
		return false
	}
	m, ok := g.Members[memberID]
	if !ok {
		return false
	}
	m.Contribution = clamp(value, 0, 100)
	return true
}

// UpdateMemberInfluence sets a member's influence, clamped to [0,100], and
// records the gain or loss in the member's activity log.
func (e *Engine) UpdateMemberInfluence(groupID social.GroupID, memberID agents.AgentID, value float64, reason string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.updateMemberInfluence(groupID, memberID, value, reason)
}

func (e *Engine) updateMemberInfluence(groupID social.GroupID, memberID agents.AgentID, value float64, reason string) bool {
	g, ok := e.groups[groupID]
	if !ok {
		return false
	}
	m, ok := g.Members[memberID]
	if !ok {
		return false
	}

	old := m.Influence
	m.Influence = clamp(value, 0, 100)

	tag := "gain"
	if m.Influence < old {
		tag = "loss"
	}
	m.LogActivity(e.now(), fmt.Sprintf("influence %s: %s (%.1f → %.1f)", tag, reason, old, m.Influence))
	return true
}

// UpdateGroupReputation shifts a group's reputation, clamped to the
// configured bounds.
func (e *Engine) UpdateGroupReputation(groupID social.GroupID, delta float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, ok := e.groups[groupID]
	if !ok {
		return false
	}
	g.Reputation = clamp(g.Reputation+delta, e.cfg.Group.MinReputation, e.cfg.Group.MaxReputation)
	return true
}

// ApplyContributionDecay multiplies every non-leader member's contribution
// by (1 − decay rate), across all groups. The scheduler controls cadence.
func (e *Engine) ApplyContributionDecay() {
	e.mu.Lock()
	defer e.mu.Unlock()

	factor := 1 - e.cfg.Group.ContributionDecayRate
	for _, g := range e.groups {
		for id, m := range g.Members {
			if id == g.LeaderID {
				continue
			}
			m.Contribution = clamp(m.Contribution*factor, 0, 100)
		}
	}
}

// ProcessInfluenceDecay reduces influence for members idle for more than a
// day, proportional to how long they have been idle.
func (e *Engine) ProcessInfluenceDecay(groupID social.GroupID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.processInfluenceDecay(groupID)
}

func (e *Engine) processInfluenceDecay(groupID social.GroupID) bool {
	g, ok := e.groups[groupID]
	if !ok {
		return false
	}

	now := e.now()
	for id, m := range g.Members {
		idleDays := daysBetween(m.LastActivity(), now)
		if idleDays <= 1 {
			continue
		}
		reduced := m.Influence - m.Influence*e.cfg.Group.InfluenceDecayRate*idleDays
		e.updateMemberInfluence(groupID, id, reduced, "Influence decay due to inactivity")
	}
	return true
}

// UpdateRelationshipScores decays every member-pair relationship score by
// the configured rate. Scores approach 0 asymptotically; there is no floor.
func (e *Engine) UpdateRelationshipScores(groupID social.GroupID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.updateRelationshipScores(groupID)
}

func (e *Engine) updateRelationshipScores(groupID social.GroupID) bool {
	g, ok := e.groups[groupID]
	if !ok {
		return false
	}
	factor := 1 - e.cfg.Group.RelationshipDecayRate
	for _, m := range g.Members {
		for target, score := range m.Relationships {
			m.Relationships[target] = score * factor
		}
	}
	return true
}

// ManageSubgroups clears and rebuilds the group's specialization-based
// subgroups. A subgroup forms only for specializations with enough
// participants and is led by the highest-influence member among them.
func (e *Engine) ManageSubgroups(groupID social.GroupID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.manageSubgroups(groupID)
}

func (e *Engine) manageSubgroups(groupID social.GroupID) bool {
	g, ok := e.groups[groupID]
	if !ok {
		return false
	}

	g.Subgroups = make(map[string]*social.Subgroup)

	bySpec := make(map[string][]*social.Member)
	for _, id := range g.MemberIDs() {
		m := g.Members[id]
		for spec := range m.Specializations {
			bySpec[spec] = append(bySpec[spec], m)
		}
	}

	for spec, members := range bySpec {
		if len(members) < e.cfg.Group.MinSubgroupMembers {
			continue
		}
		lead := members[0]
		ids := make([]agents.AgentID, 0, len(members))
		for _, m := range members {
			ids = append(ids, m.ID)
			if m.Influence > lead.Influence {
				lead = m
			}
		}
		g.Subgroups[spec] = &social.Subgroup{
			Specialization: spec,
			LeadID:         lead.ID,
			MemberIDs:      ids,
		}
	}
	return true
}

// ResourceUpdate is a batch of shared-resource mutations applied by
// ManageResources.
type ResourceUpdate struct {
	WealthDelta     float64
	AssetDeltas     map[string]float64
	InventoryDeltas map[social.ResourceID]float64
	TerritoryClaims []social.TerritoryID
}

// ManageResources applies non-negative-clamped deltas to the group's
// wealth, assets, and shared inventory, merges territory claims, and
// recomputes all access permissions from scratch.
func (e *Engine) ManageResources(groupID social.GroupID, update ResourceUpdate) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, ok := e.groups[groupID]
	if !ok {
		return false
	}

	res := &g.Resources
	res.Wealth = max(0, res.Wealth+update.WealthDelta)
	for name, delta := range update.AssetDeltas {
		res.Assets[name] = max(0, res.Assets[name]+delta)
	}
	for id, delta := range update.InventoryDeltas {
		res.SharedInventory[id] = max(0, res.SharedInventory[id]+delta)
	}
	for _, tid := range update.TerritoryClaims {
		res.Territories[tid] = true
	}

	e.recomputeAccess(g)
	g.LastActive = e.now()
	return true
}

// recomputeAccess rebuilds the member → accessible-resource table from the
// fixed role permission table. Deliberately a full deterministic
// recomputation, O(members × resources) per call, so permissions can never
// go stale. Caller holds the write lock.
func (e *Engine) recomputeAccess(g *social.Group) {
	tracked := make(map[social.ResourceID]bool)
	for rid := range e.holdings[g.ID] {
		tracked[rid] = true
	}
	for rid := range g.Resources.SharedInventory {
		tracked[rid] = true
	}

	ids := make([]social.ResourceID, 0, len(tracked))
	for rid := range tracked {
		ids = append(ids, rid)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	access := make(map[agents.AgentID][]social.ResourceID, len(g.Members))
	for memberID, m := range g.Members {
		if !m.Role.GrantsResourceAccess() {
			continue
		}
		granted := make([]social.ResourceID, len(ids))
		copy(granted, ids)
		access[memberID] = granted
	}
	g.Resources.Access = access
}
