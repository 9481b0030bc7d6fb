// Pairwise reputation — interaction outcomes folded into a time-decayed
// per-(agent, target) history.
package engine

import (
	"log/slog"
	"math"
	"strings"

	"github.com/talgya/concord/internal/agents"
	"github.com/talgya/concord/internal/social"
)

// ProcessInteractionReputation converts an interaction outcome into a
// reputation change for the (agent, target) pair and appends it to their
// history. Computation failures are logged and degrade to 0 with no
// history entry; reputation processing never fails the interaction.
func (e *Engine) ProcessInteractionReputation(agentID, targetID agents.AgentID, result social.InteractionResult) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !validNumber(result.ReputationDelta) || !validNumber(result.EconomicImpact) {
		slog.Error("invalid interaction result, reputation unchanged",
			"agent", agentID, "target", targetID,
			"delta", result.ReputationDelta, "economic", result.EconomicImpact)
		return 0
	}

	change := -e.cfg.Reputation.BaseDelta
	reason := "failed interaction"
	if result.Success {
		change = e.cfg.Reputation.BaseDelta
		reason = "successful interaction"
	}
	change += result.ReputationDelta

	if result.EconomicImpact > 0 {
		change *= 1.2
		reason += ", economic gain"
	} else if result.EconomicImpact < 0 {
		change *= 0.8
		reason += ", economic loss"
	}

	if tone := e.emotionalTone(result.EmotionalResponses); tone > 0 {
		change *= 1.1
		reason += ", positive response"
	} else if tone < 0 {
		change *= 0.9
		reason += ", negative response"
	}

	change = clamp(change, -0.5, 0.5)

	pair := repPair{Agent: agentID, Target: targetID}
	e.reputation[pair] = append(e.reputation[pair], social.ReputationChange{
		Value:  change,
		Reason: reason,
		At:     e.now(),
	})
	return change
}

// emotionalTone returns +1 for positive keywords, -1 for negative, with
// negative winning ties.
func (e *Engine) emotionalTone(responses []string) int {
	tone := 0
	for _, response := range responses {
		lowered := strings.ToLower(response)
		for _, kw := range e.cfg.Reputation.NegativeEmotions {
			if strings.Contains(lowered, kw) {
				return -1
			}
		}
		for _, kw := range e.cfg.Reputation.PositiveEmotions {
			if strings.Contains(lowered, kw) {
				tone = 1
			}
		}
	}
	return tone
}

// GetAggregateReputation returns the recency-weighted average of the
// pair's history. Entries older than the recency window carry no weight;
// an empty or fully aged-out history yields 0.
func (e *Engine) GetAggregateReputation(agentID, targetID agents.AgentID) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	history := e.reputation[repPair{Agent: agentID, Target: targetID}]
	if len(history) == 0 {
		return 0
	}

	now := e.now()
	window := e.cfg.Reputation.RecencyWindowDays
	weightedSum := 0.0
	totalWeight := 0.0
	for _, change := range history {
		weight := math.Max(0, 1-daysBetween(change.At, now)/window)
		weightedSum += change.Value * weight
		totalWeight += weight
	}
	if totalWeight == 0 {
		return 0
	}
	return weightedSum / totalWeight
}

// ReputationHistory returns a copy of the pair's append-only history.
func (e *Engine) ReputationHistory(agentID, targetID agents.AgentID) []social.ReputationChange {
	e.mu.RLock()
	defer e.mu.RUnlock()

	history := e.reputation[repPair{Agent: agentID, Target: targetID}]
	out := make([]social.ReputationChange, len(history))
	copy(out, history)
	return out
}

func validNumber(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
