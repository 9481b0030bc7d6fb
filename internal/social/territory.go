// Territories and resources — contested spatial claims and shared holdings.
package social

import (
	"time"

	"github.com/google/uuid"

	"github.com/talgya/concord/internal/agents"
)

// TerritoryID is a unique identifier for a territory.
type TerritoryID string

// ResourceID is a unique identifier for a resource.
type ResourceID string

// NewTerritoryID generates a fresh territory identifier.
func NewTerritoryID() TerritoryID {
	return TerritoryID(uuid.NewString())
}

// NewResourceID generates a fresh resource identifier.
func NewResourceID() ResourceID {
	return ResourceID(uuid.NewString())
}

// Boundary is a territory's rectangular extent in world coordinates.
type Boundary struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains reports whether the position lies within the boundary.
func (b Boundary) Contains(p agents.Position) bool {
	return p.X >= b.X && p.X < b.X+b.Width &&
		p.Y >= b.Y && p.Y < b.Y+b.Height
}

// Territory is a claimable region with a contested control score.
type Territory struct {
	ID   TerritoryID `json:"id"`
	Name string      `json:"name"`

	// ControlledBy is empty while the territory is unclaimed.
	ControlledBy GroupID          `json:"controlled_by,omitempty"`
	ContestedBy  map[GroupID]bool `json:"contested_by"`

	Bounds    Boundary     `json:"bounds"`
	Resources []ResourceID `json:"resources"`

	ControlScore float64   `json:"control_score"` // 0–100
	LastClaimed  time.Time `json:"last_claimed"`

	// LastUpdated marks the previous control-growth pass, so growth stays
	// linear in held time regardless of pass cadence.
	LastUpdated time.Time `json:"last_updated"`
}

// Resource is a tangible holding that groups can own and transfer.
type Resource struct {
	ID       ResourceID       `json:"id"`
	Type     string           `json:"type"`
	Name     string           `json:"name"`
	Quantity float64          `json:"quantity"`
	Value    float64          `json:"value"` // per unit
	Location *agents.Position `json:"location,omitempty"`
}
