package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/concord/internal/social"
)

func registerTerritory(eng *Engine, id string) *social.Territory {
	t := &social.Territory{
		ID:     social.TerritoryID(id),
		Name:   id,
		Bounds: social.Boundary{X: 0, Y: 0, Width: 25, Height: 25},
	}
	eng.RegisterTerritory(t)
	return t
}

func TestClaimContestTransfer(t *testing.T) {
	eng, _, _ := newTestEngine()
	ga := newActiveGroup(eng, "a", 3)
	gb := newActiveGroup(eng, "b", 3)
	terr := registerTerritory(eng, "north")

	// Unclaimed territory is taken outright.
	require.True(t, eng.ClaimTerritory(terr.ID, ga.ID, 50))
	assert.Equal(t, ga.ID, terr.ControlledBy)
	assert.Equal(t, 50.0, terr.ControlScore)
	assert.True(t, ga.Resources.Territories[terr.ID])

	// 40 ≥ 0.5×50 but below 50: contested, not transferred.
	require.True(t, eng.ClaimTerritory(terr.ID, gb.ID, 40))
	assert.Equal(t, ga.ID, terr.ControlledBy)
	assert.True(t, terr.ContestedBy[gb.ID])

	// 60 > 50: control transfers and the contest set clears.
	require.True(t, eng.ClaimTerritory(terr.ID, gb.ID, 60))
	assert.Equal(t, gb.ID, terr.ControlledBy)
	assert.Equal(t, 60.0, terr.ControlScore)
	assert.Empty(t, terr.ContestedBy)
	assert.True(t, gb.Resources.Territories[terr.ID])
	assert.False(t, ga.Resources.Territories[terr.ID], "previous holder loses the territory")
}

func TestWeakClaimHasNoEffect(t *testing.T) {
	eng, _, _ := newTestEngine()
	ga := newActiveGroup(eng, "a", 3)
	gb := newActiveGroup(eng, "b", 3)
	terr := registerTerritory(eng, "north")

	eng.ClaimTerritory(terr.ID, ga.ID, 80)
	assert.False(t, eng.ClaimTerritory(terr.ID, gb.ID, 30), "below contest ratio")
	assert.Equal(t, ga.ID, terr.ControlledBy)
	assert.Empty(t, terr.ContestedBy)
}

func TestSelfClaimDoesNotContest(t *testing.T) {
	eng, _, _ := newTestEngine()
	ga := newActiveGroup(eng, "a", 3)
	terr := registerTerritory(eng, "north")

	eng.ClaimTerritory(terr.ID, ga.ID, 80)
	assert.False(t, eng.ClaimTerritory(terr.ID, ga.ID, 50))
	assert.Empty(t, terr.ContestedBy)
}

func TestControlGrowsLinearlyWithHeldTime(t *testing.T) {
	eng, _, clock := newTestEngine()
	ga := newActiveGroup(eng, "a", 3)
	fund(eng, ga.ID)
	terr := registerTerritory(eng, "north")
	eng.ClaimTerritory(terr.ID, ga.ID, 50)

	clock.Advance(10 * 24 * time.Hour)
	eng.UpdateTerritoryControl()
	assert.InDelta(t, 60, terr.ControlScore, 1e-9)

	// Repeating the pass without time passing adds nothing.
	eng.UpdateTerritoryControl()
	assert.InDelta(t, 60, terr.ControlScore, 1e-9)

	clock.Advance(100 * 24 * time.Hour)
	eng.UpdateTerritoryControl()
	assert.Equal(t, 100.0, terr.ControlScore, "control is capped")
}

func TestStaleContestersArePruned(t *testing.T) {
	eng, _, clock := newTestEngine()
	ga := newActiveGroup(eng, "a", 3)
	gb := newActiveGroup(eng, "b", 3)
	fund(eng, ga.ID)
	fund(eng, gb.ID)
	terr := registerTerritory(eng, "north")

	eng.ClaimTerritory(terr.ID, ga.ID, 80)
	eng.ClaimTerritory(terr.ID, gb.ID, 50)
	require.True(t, terr.ContestedBy[gb.ID])

	clock.Advance(15 * 24 * time.Hour)
	fund(eng, ga.ID) // keeps the controller active
	eng.UpdateTerritoryControl()
	assert.False(t, terr.ContestedBy[gb.ID], "inactive contester pruned")
}

func TestAssignAndRemoveResource(t *testing.T) {
	eng, _, _ := newTestEngine()
	g := newActiveGroup(eng, "g", 3)
	eng.RegisterResource(&social.Resource{ID: "iron", Type: "ore", Name: "iron vein"})

	assert.False(t, eng.AssignResourceToGroup("missing", g.ID))
	assert.False(t, eng.AssignResourceToGroup("iron", "missing"))

	require.True(t, eng.AssignResourceToGroup("iron", g.ID))
	assert.Contains(t, eng.GroupResourceIDs(g.ID), social.ResourceID("iron"))
	assert.Contains(t, g.Resources.Access["g-leader"], social.ResourceID("iron"))

	require.True(t, eng.RemoveResourceFromGroup("iron", g.ID))
	assert.Empty(t, eng.GroupResourceIDs(g.ID))
	assert.Empty(t, g.Resources.Access["g-leader"])

	_, stillRegistered := eng.Resource("iron")
	assert.True(t, stillRegistered)
}

func TestTransferResourcesAllOrNothing(t *testing.T) {
	eng, _, _ := newTestEngine()
	from := newActiveGroup(eng, "from", 3)
	to := newActiveGroup(eng, "to", 3)

	eng.RegisterResource(&social.Resource{ID: "iron", Type: "ore", Name: "iron"})
	eng.RegisterResource(&social.Resource{ID: "grain", Type: "food", Name: "grain"})
	eng.AssignResourceToGroup("iron", from.ID)

	// One listed resource is not owned: nothing moves.
	assert.False(t, eng.TransferResources(from.ID, to.ID,
		[]social.ResourceID{"iron", "grain"}))
	assert.Contains(t, eng.GroupResourceIDs(from.ID), social.ResourceID("iron"))
	assert.Empty(t, eng.GroupResourceIDs(to.ID))

	assert.True(t, eng.TransferResources(from.ID, to.ID, []social.ResourceID{"iron"}))
	assert.Empty(t, eng.GroupResourceIDs(from.ID))
	assert.Contains(t, eng.GroupResourceIDs(to.ID), social.ResourceID("iron"))
}

func TestCleanupDisbandedGroupReleasesEverything(t *testing.T) {
	eng, _, _ := newTestEngine()
	ga := newActiveGroup(eng, "a", 3)
	gb := newActiveGroup(eng, "b", 3)
	terr := registerTerritory(eng, "north")

	eng.RegisterResource(&social.Resource{ID: "iron", Type: "ore", Name: "iron"})
	eng.AssignResourceToGroup("iron", ga.ID)
	eng.ClaimTerritory(terr.ID, ga.ID, 80)
	eng.ClaimTerritory(terr.ID, gb.ID, 50)

	eng.CleanupDisbandedGroup(ga.ID)
	assert.Empty(t, eng.GroupResourceIDs(ga.ID))
	assert.Equal(t, social.GroupID(""), terr.ControlledBy)
	assert.Equal(t, 0.0, terr.ControlScore)

	eng.CleanupDisbandedGroup(gb.ID)
	assert.Empty(t, terr.ContestedBy)
}

func TestCleanupOnLiveGroupKeepsHoldingsUsable(t *testing.T) {
	eng, _, _ := newTestEngine()
	g := newActiveGroup(eng, "g", 3)
	other := newActiveGroup(eng, "other", 3)

	eng.RegisterResource(&social.Resource{ID: "iron", Type: "ore", Name: "iron"})
	eng.RegisterResource(&social.Resource{ID: "grain", Type: "food", Name: "grain"})
	eng.AssignResourceToGroup("iron", g.ID)
	eng.AssignResourceToGroup("grain", other.ID)

	// Cleanup on a group that is still in the store must not poison
	// later ownership mutations.
	eng.CleanupDisbandedGroup(g.ID)
	require.Empty(t, eng.GroupResourceIDs(g.ID))

	require.True(t, eng.AssignResourceToGroup("iron", g.ID))
	assert.Contains(t, eng.GroupResourceIDs(g.ID), social.ResourceID("iron"))

	eng.CleanupDisbandedGroup(g.ID)
	require.True(t, eng.TransferResources(other.ID, g.ID, []social.ResourceID{"grain"}))
	assert.Contains(t, eng.GroupResourceIDs(g.ID), social.ResourceID("grain"))
}
