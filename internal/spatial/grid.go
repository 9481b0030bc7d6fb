// Package spatial provides the proximity index the compatibility scorer
// queries. It tracks last-known agent positions and answers distance queries.
package spatial

import (
	"math"

	"github.com/talgya/concord/internal/agents"
)

// Grid is a flat position index over a square world of the given size.
type Grid struct {
	size      float64
	positions map[agents.AgentID]agents.Position
}

// NewGrid creates a grid covering a size × size world.
func NewGrid(size float64) *Grid {
	if size <= 0 {
		size = 100
	}
	return &Grid{
		size:      size,
		positions: make(map[agents.AgentID]agents.Position),
	}
}

// Size returns the world edge length, used to normalize proximity scores.
func (g *Grid) Size() float64 {
	return g.size
}

// UpdatePosition records an agent's last-known position.
func (g *Grid) UpdatePosition(id agents.AgentID, x, y float64) {
	g.positions[id] = agents.Position{X: x, Y: y}
}

// Position returns an agent's last-known position.
func (g *Grid) Position(id agents.AgentID) (agents.Position, bool) {
	p, ok := g.positions[id]
	return p, ok
}

// Distance returns the euclidean distance between two positions.
func (g *Grid) Distance(a, b agents.Position) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}
