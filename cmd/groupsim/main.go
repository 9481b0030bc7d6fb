// Command groupsim runs the Concord group governance simulation.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/talgya/concord/internal/agents"
	"github.com/talgya/concord/internal/api"
	"github.com/talgya/concord/internal/config"
	"github.com/talgya/concord/internal/engine"
	"github.com/talgya/concord/internal/persistence"
	"github.com/talgya/concord/internal/social"
	"github.com/talgya/concord/internal/spatial"
	"github.com/talgya/concord/internal/worldgen"
)

func main() {
	godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("Concord — Social Group Formation and Governance")

	cfgPath := os.Getenv("GROUPSIM_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "path", cfgPath, "error", err)
		os.Exit(1)
	}

	seed := int64(42)
	if s := os.Getenv("GROUPSIM_SEED"); s != "" {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			seed = v
		}
	}
	dbPath := os.Getenv("GROUPSIM_DB")
	if dbPath == "" {
		dbPath = "data/concord.db"
	}
	apiPort := 8080
	if p := os.Getenv("GROUPSIM_PORT"); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			apiPort = v
		}
	}

	// ── Database ──────────────────────────────────────────────────────
	os.MkdirAll("data", 0755)
	db, err := persistence.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", dbPath)

	// ── World (always regenerated — deterministic from seed) ──────────
	genCfg := worldgen.DefaultGenConfig()
	genCfg.Seed = seed
	genCfg.WorldSize = cfg.Formation.GridSize
	world := worldgen.Generate(genCfg)
	slog.Info("world generated",
		"territories", len(world.Territories),
		"resources", len(world.Resources),
		"agents", len(world.Agents),
	)

	directory := agents.NewDirectory()
	grid := spatial.NewGrid(cfg.Formation.GridSize)
	for _, a := range world.Agents {
		directory.Put(a)
		grid.UpdatePosition(a.ID, a.Position.X, a.Position.Y)
	}

	eng := engine.New(cfg, directory, grid)
	for _, t := range world.Territories {
		eng.RegisterTerritory(t)
	}
	for _, r := range world.Resources {
		eng.RegisterResource(r)
	}

	// ── Restore saved governance state ────────────────────────────────
	var startTick uint64
	saved, err := db.LoadGroups()
	if err != nil {
		slog.Error("failed to load groups", "error", err)
		os.Exit(1)
	}
	if len(saved) > 0 {
		for _, sg := range saved {
			eng.RestoreGroup(sg.Group, sg.Holdings)
		}
		if territories, err := db.LoadTerritories(); err == nil {
			for _, t := range territories {
				eng.RegisterTerritory(t)
			}
		}
		if resources, err := db.LoadResources(); err == nil {
			for _, r := range resources {
				eng.RegisterResource(r)
			}
		}
		if tickStr, err := db.GetMeta("last_tick"); err == nil {
			if t, err := strconv.ParseUint(tickStr, 10, 64); err == nil {
				startTick = t
			}
		}
		slog.Info("governance state restored", "groups", len(saved), "tick", startTick)
	}

	// Archive dissolved groups as they happen.
	eng.Bus().Subscribe(engine.EventGroupArchived, func(ev engine.Event) {
		g, ok := ev.Meta["group"].(*social.Group)
		if !ok {
			return
		}
		reason, _ := ev.Meta["reason"].(string)
		if err := db.ArchiveGroup(g, reason, ev.At); err != nil {
			slog.Error("failed to archive group", "group", g.ID, "error", err)
		}
	})

	// ── Tick loop ─────────────────────────────────────────────────────
	loop := engine.NewLoop()
	loop.Tick = startTick

	snapshot := func() error {
		fresh := eng.UnsavedEvents()
		if err := db.SaveState(eng, fresh, loop.Tick); err != nil {
			return err
		}
		eng.MarkEventsSaved(len(fresh))
		return nil
	}

	loop.OnHour = func(tick uint64) {
		eng.TickHour(tick)

		// Hourly formation check over agents not already in a group.
		free := freeAgents(eng, world.Agents)
		if initiator, partners, ok := eng.ShouldFormGroup(free,
			cfg.Formation.InteractionThreshold, cfg.Formation.CompatibilityThreshold); ok {
			if g := eng.FormGroup(initiator, partners, social.GroupSocial); g != nil {
				settleGroup(eng, world, g, initiator)
			}
		}
	}
	loop.OnDay = func(tick uint64) {
		eng.TickDay(tick)
		if err := snapshot(); err != nil {
			slog.Error("daily save failed", "error", err)
		}
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	adminKey := os.Getenv("GROUPSIM_ADMIN_KEY")
	if adminKey == "" {
		slog.Warn("GROUPSIM_ADMIN_KEY not set — admin POST endpoints will be disabled")
	}

	apiServer := &api.Server{
		Eng:      eng,
		Loop:     loop,
		DB:       db,
		Port:     apiPort,
		AdminKey: adminKey,
		Snapshot: snapshot,
	}
	apiServer.Start()

	// ── Start ─────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		loop.Stop()
	}()

	fmt.Printf("\nConcord is live: %d agents across %d territories.\n",
		len(world.Agents), len(world.Territories))
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", apiPort)
	if startTick > 0 {
		fmt.Printf("Resuming from tick %d\n", startTick)
	}
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	loop.Run()

	slog.Info("final save...")
	if err := snapshot(); err != nil {
		slog.Error("final save failed", "error", err)
	}

	fmt.Println("Simulation stopped. Governance state saved.")
}

// freeAgents returns agents that belong to no live group.
func freeAgents(eng *engine.Engine, all []*agents.Agent) []*agents.Agent {
	taken := make(map[agents.AgentID]bool)
	for _, g := range eng.Groups() {
		for _, id := range g.MemberIDs() {
			taken[id] = true
		}
	}

	var free []*agents.Agent
	for _, a := range all {
		if !taken[a.ID] {
			free = append(free, a)
		}
	}
	return free
}

// settleGroup stakes a newly formed group's initial claim: the territory
// under the leader's position plus its resources, seeded with the members'
// pooled wealth.
func settleGroup(eng *engine.Engine, world *worldgen.World, g *social.Group, leader *agents.Agent) {
	pooled := 0.0
	for _, id := range g.MemberIDs() {
		if a, ok := agentByID(world.Agents, id); ok {
			pooled += a.Economic.Wealth * 0.1
		}
	}
	eng.ManageResources(g.ID, engine.ResourceUpdate{WealthDelta: pooled})

	for _, t := range world.Territories {
		if !t.Bounds.Contains(leader.Position) {
			continue
		}
		force := float64(len(g.Members)) * 10
		if eng.ClaimTerritory(t.ID, g.ID, force) {
			for _, rid := range t.Resources {
				eng.AssignResourceToGroup(rid, g.ID)
			}
		}
		return
	}
}

func agentByID(all []*agents.Agent, id agents.AgentID) (*agents.Agent, bool) {
	for _, a := range all {
		if a.ID == id {
			return a, true
		}
	}
	return nil, false
}
