package engine

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/concord/internal/social"
)

func TestSuccessfulInteractionWithModifiers(t *testing.T) {
	eng, _, _ := newTestEngine()

	change := eng.ProcessInteractionReputation("a", "b", social.InteractionResult{
		Success:            true,
		EconomicImpact:     25,
		EmotionalResponses: []string{"I am pleased with this trade"},
	})

	// 0.05 base × 1.2 economic × 1.1 emotional.
	assert.InDelta(t, 0.066, change, 1e-9)

	history := eng.ReputationHistory("a", "b")
	require.Len(t, history, 1)
	assert.InDelta(t, 0.066, history[0].Value, 1e-9)
	assert.Contains(t, history[0].Reason, "successful interaction")
	assert.Contains(t, history[0].Reason, "economic gain")
	assert.Contains(t, history[0].Reason, "positive response")

	// With one recent entry the aggregate equals the change itself.
	assert.InDelta(t, 0.066, eng.GetAggregateReputation("a", "b"), 1e-9)
}

func TestFailedInteractionWithPenalties(t *testing.T) {
	eng, _, _ := newTestEngine()

	change := eng.ProcessInteractionReputation("a", "b", social.InteractionResult{
		Success:            false,
		EconomicImpact:     -10,
		EmotionalResponses: []string{"they are angry about the deal"},
	})

	// -0.05 base × 0.8 economic × 0.9 emotional.
	assert.InDelta(t, -0.036, change, 1e-9)
}

func TestNegativeEmotionWinsTies(t *testing.T) {
	eng, _, _ := newTestEngine()

	change := eng.ProcessInteractionReputation("a", "b", social.InteractionResult{
		Success:            true,
		EmotionalResponses: []string{"pleased at first", "then betrayed"},
	})

	assert.InDelta(t, 0.05*0.9, change, 1e-9)
}

func TestReputationChangeClamped(t *testing.T) {
	eng, _, _ := newTestEngine()

	change := eng.ProcessInteractionReputation("a", "b", social.InteractionResult{
		Success:         true,
		ReputationDelta: 10,
	})
	assert.Equal(t, 0.5, change)

	change = eng.ProcessInteractionReputation("a", "b", social.InteractionResult{
		Success:         false,
		ReputationDelta: -10,
	})
	assert.Equal(t, -0.5, change)
}

func TestInvalidInteractionResultDegradesToZero(t *testing.T) {
	eng, _, _ := newTestEngine()

	change := eng.ProcessInteractionReputation("a", "b", social.InteractionResult{
		Success:         true,
		ReputationDelta: math.NaN(),
	})
	assert.Equal(t, 0.0, change)
	assert.Empty(t, eng.ReputationHistory("a", "b"), "no history entry for invalid input")

	change = eng.ProcessInteractionReputation("a", "b", social.InteractionResult{
		Success:        true,
		EconomicImpact: math.Inf(1),
	})
	assert.Equal(t, 0.0, change)
}

func TestReputationIsDirectional(t *testing.T) {
	eng, _, _ := newTestEngine()

	eng.ProcessInteractionReputation("a", "b", social.InteractionResult{Success: true})

	assert.Len(t, eng.ReputationHistory("a", "b"), 1)
	assert.Empty(t, eng.ReputationHistory("b", "a"))
}

func TestAggregateWeighsRecencyAndAgesOut(t *testing.T) {
	eng, _, clock := newTestEngine()

	eng.ProcessInteractionReputation("a", "b", social.InteractionResult{Success: false})
	clock.Advance(15 * 24 * time.Hour)
	eng.ProcessInteractionReputation("a", "b", social.InteractionResult{Success: true})

	// Old entry (15 days ago) weight 0.5, fresh entry weight 1.0:
	// (-0.05×0.5 + 0.05×1.0) / 1.5.
	assert.InDelta(t, 0.025/1.5, eng.GetAggregateReputation("a", "b"), 1e-9)

	// Once everything is outside the window the aggregate is zero.
	clock.Advance(31 * 24 * time.Hour)
	assert.Equal(t, 0.0, eng.GetAggregateReputation("a", "b"))

	// The history itself is append-only and unaffected by aging.
	assert.Len(t, eng.ReputationHistory("a", "b"), 2)
}

func TestAggregateEmptyHistoryIsZero(t *testing.T) {
	eng, _, _ := newTestEngine()
	assert.Equal(t, 0.0, eng.GetAggregateReputation("a", "b"))
}
