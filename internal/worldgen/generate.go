// Package worldgen seeds a demo world for the governance engine:
// territories with noise-derived resource richness, and an agent
// population with personalities, goals, and interaction histories.
package worldgen

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/concord/internal/agents"
	"github.com/talgya/concord/internal/social"
)

// GenConfig controls demo world generation.
type GenConfig struct {
	Seed      int64
	WorldSize float64 // edge length of the square world
	GridSide  int     // territories per side
	Agents    int
}

// DefaultGenConfig returns sensible demo settings.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Seed:      42,
		WorldSize: 100,
		GridSide:  4,
		Agents:    24,
	}
}

// World is the generated starting state.
type World struct {
	Territories []*social.Territory
	Resources   []*social.Resource
	Agents      []*agents.Agent
}

var territoryNames = []string{
	"Ashford", "Briarwood", "Coldspring", "Dunmere", "Elderfen", "Foxglove",
	"Greywater", "Hollowmoor", "Ironvale", "Juniper Reach", "Kestrel Ridge",
	"Larkspur", "Mirefield", "Northolt", "Oakhurst", "Pinecrest",
}

var agentNames = []string{
	"Aldric", "Brenna", "Cedric", "Dalia", "Edric", "Fiora", "Garrick",
	"Helena", "Ivo", "Jessa", "Kellan", "Lyra", "Marek", "Nessa", "Orin",
	"Petra", "Quill", "Rosalind", "Stellan", "Tamsin", "Ulric", "Verena",
	"Wystan", "Yvette", "Zarek",
}

var goalTypes = []string{"wealth", "security", "knowledge", "influence", "craft"}

var factions = []string{"", "crown", "compact", "brotherhood", "circle"}

// Generate builds territories, resources, and an agent population from
// the seed. Everything is deterministic for a given config.
func Generate(cfg GenConfig) *World {
	if cfg.Seed == 0 {
		cfg.Seed = rand.Int63()
	}
	rng := rand.New(rand.NewSource(cfg.Seed + 300))
	richNoise := opensimplex.NewNormalized(cfg.Seed)

	w := &World{}
	w.generateTerritories(cfg, richNoise, rng)
	w.spawnAgents(cfg, rng)
	return w
}

// generateTerritories tiles the world into a GridSide × GridSide grid and
// attaches resources scaled by multi-octave noise richness.
func (w *World) generateTerritories(cfg GenConfig, noise opensimplex.Noise, rng *rand.Rand) {
	tile := cfg.WorldSize / float64(cfg.GridSide)

	for row := 0; row < cfg.GridSide; row++ {
		for col := 0; col < cfg.GridSide; col++ {
			cx := (float64(col) + 0.5) * tile
			cy := (float64(row) + 0.5) * tile
			richness := octaveNoise(noise, cx, cy, 4, 0.05, 0.5)

			t := &social.Territory{
				ID:          social.TerritoryID(fmt.Sprintf("territory-%d-%d", row, col)),
				Name:        territoryNames[(row*cfg.GridSide+col)%len(territoryNames)],
				ContestedBy: make(map[social.GroupID]bool),
				Bounds: social.Boundary{
					X:      float64(col) * tile,
					Y:      float64(row) * tile,
					Width:  tile,
					Height: tile,
				},
			}

			// Richer tiles hold more and better resources.
			count := 1 + int(richness*3)
			for i := 0; i < count; i++ {
				res := makeResource(t, i, richness, rng)
				t.Resources = append(t.Resources, res.ID)
				w.Resources = append(w.Resources, res)
			}
			w.Territories = append(w.Territories, t)
		}
	}
}

func makeResource(t *social.Territory, i int, richness float64, rng *rand.Rand) *social.Resource {
	kinds := []struct {
		kind  string
		value float64
	}{
		{"grain", 1},
		{"timber", 2},
		{"ore", 5},
		{"herbs", 3},
	}
	k := kinds[rng.Intn(len(kinds))]

	loc := agents.Position{
		X: t.Bounds.X + rng.Float64()*t.Bounds.Width,
		Y: t.Bounds.Y + rng.Float64()*t.Bounds.Height,
	}
	return &social.Resource{
		ID:       social.ResourceID(fmt.Sprintf("%s-res-%d", t.ID, i)),
		Type:     k.kind,
		Name:     fmt.Sprintf("%s %s", t.Name, k.kind),
		Quantity: math.Round(50 + richness*200),
		Value:    k.value,
		Location: &loc,
	}
}

// spawnAgents creates the demo population with clustered positions so
// proximity scoring has structure, plus seeded relationships and
// interaction histories among cluster neighbors.
func (w *World) spawnAgents(cfg GenConfig, rng *rand.Rand) {
	clusters := 4
	now := time.Now()

	for i := 0; i < cfg.Agents; i++ {
		cluster := i % clusters
		cx := (float64(cluster%2)*0.5 + 0.25) * cfg.WorldSize
		cy := (float64(cluster/2)*0.5 + 0.25) * cfg.WorldSize

		a := &agents.Agent{
			ID:   agents.AgentID(fmt.Sprintf("agent-%03d", i)),
			Name: agentNames[i%len(agentNames)],
			Position: agents.Position{
				X: cx + (rng.Float64()-0.5)*cfg.WorldSize*0.2,
				Y: cy + (rng.Float64()-0.5)*cfg.WorldSize*0.2,
			},
			Faction: factions[rng.Intn(len(factions))],
			Personality: agents.Personality{
				Traits: map[string]float64{
					"leadership":   rng.Float64(),
					"cooperation":  rng.Float64(),
					"adaptability": rng.Float64(),
					"reliability":  rng.Float64(),
					"creativity":   rng.Float64(),
				},
			},
			Relationships: make(map[agents.AgentID]agents.Relationship),
			Interactions:  make(map[agents.AgentID]*agents.InteractionTally),
			Economic:      agents.EconomicData{Wealth: 50 + rng.Float64()*500},
		}

		goalCount := 1 + rng.Intn(3)
		for gi := 0; gi < goalCount; gi++ {
			a.Goals = append(a.Goals, agents.Goal{
				Type:     goalTypes[rng.Intn(len(goalTypes))],
				Priority: math.Round(rng.Float64()*10) / 10,
			})
		}
		w.Agents = append(w.Agents, a)
	}

	// Seed pairwise history inside each cluster.
	for i, a := range w.Agents {
		for j := i + 1; j < len(w.Agents); j++ {
			b := w.Agents[j]
			if i%clusters != j%clusters || rng.Float64() < 0.3 {
				continue
			}
			score := 0.3 + rng.Float64()*0.6
			a.Relationships[b.ID] = agents.Relationship{Score: score}
			b.Relationships[a.ID] = agents.Relationship{Score: score * (0.8 + rng.Float64()*0.4)}

			last := now.Add(-time.Duration(rng.Intn(20*24)) * time.Hour)
			a.Interactions[b.ID] = &agents.InteractionTally{
				Positive: rng.Intn(8), Neutral: rng.Intn(4), Negative: rng.Intn(3),
				LastInteraction: last,
			}
			b.Interactions[a.ID] = &agents.InteractionTally{
				Positive: rng.Intn(8), Neutral: rng.Intn(4), Negative: rng.Intn(3),
				LastInteraction: last,
			}
			a.RecentInteractions = append(a.RecentInteractions, agents.Interaction{
				Participants: []agents.AgentID{a.ID, b.ID}, At: last,
			})
			b.RecentInteractions = append(b.RecentInteractions, agents.Interaction{
				Participants: []agents.AgentID{a.ID, b.ID}, At: last,
			})
		}
	}
}

// octaveNoise layers multiple noise frequencies for natural variation.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
