package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/concord/internal/agents"
	"github.com/talgya/concord/internal/engine"
	"github.com/talgya/concord/internal/social"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleGroup() *social.Group {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	g := &social.Group{
		ID:         "g1",
		Name:       "miners",
		Type:       social.GroupEconomic,
		LeaderID:   "alice",
		CreatedAt:  now,
		LastActive: now,
		Reputation: 12.5,
		Resources:  social.NewGroupResources(),
		Members: map[agents.AgentID]*social.Member{
			"alice": {
				ID: "alice", Role: social.RoleLeader, JoinedAt: now,
				Contribution: 100, Influence: 50,
				Relationships:   map[agents.AgentID]float64{"bob": 3},
				Specializations: map[string]bool{"smithing": true},
			},
			"bob": {
				ID: "bob", Role: social.RoleMember, JoinedAt: now,
				Contribution: 50, Influence: 50,
				Relationships:   map[agents.AgentID]float64{},
				Specializations: map[string]bool{},
			},
		},
		Goals:     []social.GroupGoal{{Type: "trade", Progress: 30}},
		Subgroups: map[string]*social.Subgroup{},
		Status:    social.StatusActive,
	}
	g.Resources.Wealth = 1200
	return g
}

func TestGroupRoundTrip(t *testing.T) {
	db := openTestDB(t)
	g := sampleGroup()

	holdings := func(social.GroupID) []social.ResourceID {
		return []social.ResourceID{"iron", "grain"}
	}
	require.NoError(t, db.SaveGroups([]*social.Group{g}, holdings))

	loaded, err := db.LoadGroups()
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	got := loaded[0].Group
	assert.Equal(t, g.ID, got.ID)
	assert.Equal(t, g.Type, got.Type)
	assert.Equal(t, g.Status, got.Status)
	assert.Equal(t, g.Reputation, got.Reputation)
	assert.Equal(t, 1200.0, got.Resources.Wealth)
	require.Contains(t, got.Members, agents.AgentID("alice"))
	assert.Equal(t, social.RoleLeader, got.Members["alice"].Role)
	assert.Equal(t, 3.0, got.Members["alice"].Relationships["bob"])
	assert.ElementsMatch(t, []social.ResourceID{"iron", "grain"}, loaded[0].Holdings)
}

func TestSaveGroupsIsFullReplace(t *testing.T) {
	db := openTestDB(t)
	none := func(social.GroupID) []social.ResourceID { return nil }

	require.NoError(t, db.SaveGroups([]*social.Group{sampleGroup()}, none))
	require.NoError(t, db.SaveGroups(nil, none))

	loaded, err := db.LoadGroups()
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestTerritoryAndResourceRoundTrip(t *testing.T) {
	db := openTestDB(t)

	terr := &social.Territory{
		ID:           "north",
		Name:         "Northolt",
		ControlledBy: "g1",
		ContestedBy:  map[social.GroupID]bool{"g2": true},
		Bounds:       social.Boundary{X: 0, Y: 0, Width: 25, Height: 25},
		Resources:    []social.ResourceID{"iron"},
		ControlScore: 64,
	}
	require.NoError(t, db.SaveTerritories([]*social.Territory{terr}))

	territories, err := db.LoadTerritories()
	require.NoError(t, err)
	require.Len(t, territories, 1)
	assert.Equal(t, terr.ControlledBy, territories[0].ControlledBy)
	assert.Equal(t, terr.ControlScore, territories[0].ControlScore)
	assert.True(t, territories[0].ContestedBy["g2"])

	res := &social.Resource{ID: "iron", Type: "ore", Name: "iron vein", Quantity: 120, Value: 5}
	require.NoError(t, db.SaveResources([]*social.Resource{res}))

	resources, err := db.LoadResources()
	require.NoError(t, err)
	require.Len(t, resources, 1)
	assert.Equal(t, res.Quantity, resources[0].Quantity)
}

func TestArchiveSurvivesGroupReplace(t *testing.T) {
	db := openTestDB(t)
	g := sampleGroup()
	none := func(social.GroupID) []social.ResourceID { return nil }

	require.NoError(t, db.ArchiveGroup(g, "inactivity", time.Now()))
	require.NoError(t, db.SaveGroups(nil, none))

	rows, err := db.ArchivedGroups(10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, social.GroupID("g1"), rows[0].GroupID)
	assert.Equal(t, "inactivity", rows[0].Reason)
	assert.Equal(t, "economic", rows[0].Type)
}

func TestEventsRoundTrip(t *testing.T) {
	db := openTestDB(t)

	events := []engine.Event{
		{Name: "group_formed", GroupID: "g1", At: time.Now().UTC().Truncate(time.Second),
			Description: "a group formed", Meta: map[string]any{"leader": "alice"}},
		{Name: "group_dissolved", GroupID: "g1", At: time.Now().UTC().Truncate(time.Second),
			Description: "it fell apart"},
	}
	require.NoError(t, db.SaveEvents(events))
	require.NoError(t, db.SaveEvents(nil))

	recent, err := db.RecentEvents(10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "group_dissolved", recent[0].Name, "newest first")
	assert.Equal(t, "group_formed", recent[1].Name)
	assert.Equal(t, "alice", recent[1].Meta["leader"])
}

func TestMetaRoundTrip(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.SaveMeta("last_tick", "1440"))
	require.NoError(t, db.SaveMeta("last_tick", "2880"))

	value, err := db.GetMeta("last_tick")
	require.NoError(t, err)
	assert.Equal(t, "2880", value)

	_, err = db.GetMeta("missing")
	assert.Error(t, err)
}
