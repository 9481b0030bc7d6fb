// Resource ownership and territory control — claims, contests, transfers,
// and disband cleanup.
package engine

import (
	"log/slog"

	"github.com/talgya/concord/internal/social"
)

// RegisterResource adds a resource to the engine's registry. Existing
// entries with the same id are replaced.
func (e *Engine) RegisterResource(r *social.Resource) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resources[r.ID] = r
}

// RegisterTerritory adds a territory to the engine's registry.
func (e *Engine) RegisterTerritory(t *social.Territory) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if t.ContestedBy == nil {
		t.ContestedBy = make(map[social.GroupID]bool)
	}
	e.territories[t.ID] = t
}

// AssignResourceToGroup records that the group owns the resource. Fails if
// either is unknown.
func (e *Engine) AssignResourceToGroup(resourceID social.ResourceID, groupID social.GroupID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.resources[resourceID]; !ok {
		return false
	}
	g, ok := e.groups[groupID]
	if !ok {
		return false
	}
	e.groupHoldings(groupID)[resourceID] = true
	e.recomputeAccess(g)
	return true
}

// RemoveResourceFromGroup removes the ownership record only; the resource
// itself remains registered.
func (e *Engine) RemoveResourceFromGroup(resourceID social.ResourceID, groupID social.GroupID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.resources[resourceID]; !ok {
		return false
	}
	g, ok := e.groups[groupID]
	if !ok {
		return false
	}
	delete(e.holdings[groupID], resourceID)
	e.recomputeAccess(g)
	return true
}

// ClaimTerritory stakes a claim at the given force. Unclaimed territory is
// taken outright. Claimed territory transfers when force exceeds the
// current control score; a claim at or above the contest ratio of the
// control score adds the claimant to the contested-by set; weaker claims
// have no effect. Returns true when the claim changed territory state.
func (e *Engine) ClaimTerritory(territoryID social.TerritoryID, groupID social.GroupID, force float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.territories[territoryID]
	if !ok {
		return false
	}
	g, ok := e.groups[groupID]
	if !ok {
		return false
	}

	now := e.now()

	if t.ControlledBy == "" {
		t.ControlledBy = groupID
		t.ControlScore = clamp(force, 0, 100)
		t.LastClaimed = now
		t.LastUpdated = now
		g.Resources.Territories[territoryID] = true
		slog.Info("territory claimed", "territory", territoryID, "group", groupID, "force", force)
		return true
	}

	switch {
	case force > t.ControlScore:
		if prev, ok := e.groups[t.ControlledBy]; ok {
			delete(prev.Resources.Territories, territoryID)
		}
		t.ControlledBy = groupID
		t.ControlScore = clamp(force, 0, 100)
		t.ContestedBy = make(map[social.GroupID]bool)
		t.LastClaimed = now
		t.LastUpdated = now
		g.Resources.Territories[territoryID] = true
		slog.Info("territory control transferred", "territory", territoryID, "group", groupID, "force", force)
		return true

	case force >= e.cfg.Territory.ContestRatio*t.ControlScore:
		if groupID == t.ControlledBy {
			return false
		}
		t.ContestedBy[groupID] = true
		slog.Info("territory contested", "territory", territoryID, "group", groupID, "force", force)
		return true
	}
	return false
}

// UpdateTerritoryControl grows each controlling group's control score
// linearly with held time (capped at 100) and prunes contesters that no
// longer exist or have gone inactive.
func (e *Engine) UpdateTerritoryControl() {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	for _, t := range e.territories {
		if t.ControlledBy != "" {
			heldDays := daysBetween(t.LastUpdated, now)
			if heldDays > 0 {
				t.ControlScore = clamp(t.ControlScore+e.cfg.Territory.ControlGrowthPerDay*heldDays, 0, 100)
				t.LastUpdated = now
			}
		}

		for gid := range t.ContestedBy {
			g, ok := e.groups[gid]
			if !ok || daysBetween(g.LastActive, now) > e.cfg.Group.InactivityDays {
				delete(t.ContestedBy, gid)
			}
		}
	}
}

// TransferResources moves the listed resources from one group to another.
// All-or-nothing: fails without mutation unless both groups exist and the
// source owns every listed resource.
func (e *Engine) TransferResources(fromID, toID social.GroupID, resourceIDs []social.ResourceID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	from, ok := e.groups[fromID]
	if !ok {
		return false
	}
	to, ok := e.groups[toID]
	if !ok {
		return false
	}
	owned := e.holdings[fromID]
	for _, rid := range resourceIDs {
		if !owned[rid] {
			return false
		}
	}

	dest := e.groupHoldings(toID)
	for _, rid := range resourceIDs {
		delete(owned, rid)
		dest[rid] = true
	}
	e.recomputeAccess(from)
	e.recomputeAccess(to)

	slog.Info("resources transferred", "from", fromID, "to", toID, "count", len(resourceIDs))
	return true
}

// CleanupDisbandedGroup releases everything a disbanded group held:
// resource ownership, territory control, and contest entries.
func (e *Engine) CleanupDisbandedGroup(groupID social.GroupID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cleanupDisbandedGroup(groupID)
}

// groupHoldings returns the ownership set for a group, creating it when
// absent so cleanup on a still-live group cannot leave a nil map behind.
// Caller holds the write lock and has verified the group exists.
func (e *Engine) groupHoldings(groupID social.GroupID) map[social.ResourceID]bool {
	owned, ok := e.holdings[groupID]
	if !ok {
		owned = make(map[social.ResourceID]bool)
		e.holdings[groupID] = owned
	}
	return owned
}

func (e *Engine) cleanupDisbandedGroup(groupID social.GroupID) {
	delete(e.holdings, groupID)

	for _, t := range e.territories {
		if t.ControlledBy == groupID {
			t.ControlledBy = ""
			t.ControlScore = 0
		}
		delete(t.ContestedBy, groupID)
	}
}

// describeResources summarizes a group's holdings for distribution events.
func (e *Engine) describeResources(g *social.Group) map[string]any {
	owned := make([]string, 0, len(e.holdings[g.ID]))
	for rid := range e.holdings[g.ID] {
		owned = append(owned, string(rid))
	}
	return map[string]any{
		"wealth":      g.Resources.Wealth,
		"assets":      len(g.Resources.Assets),
		"inventory":   len(g.Resources.SharedInventory),
		"territories": len(g.Resources.Territories),
		"resources":   owned,
	}
}
