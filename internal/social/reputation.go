// Reputation — time-decayed pairwise trust derived from interaction outcomes.
package social

import "time"

// ReputationChange is one entry in a pair's append-only reputation history.
type ReputationChange struct {
	Value  float64   `json:"value"` // clamped to [-0.5, 0.5]
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// InteractionResult is the outcome record supplied by the external
// interaction provider.
type InteractionResult struct {
	Success            bool     `json:"success"`
	ReputationDelta    float64  `json:"reputation_delta,omitempty"`
	EconomicImpact     float64  `json:"economic_impact,omitempty"`
	EmotionalResponses []string `json:"emotional_responses,omitempty"`
}
