// Group formation — multi-factor compatibility scoring, formation checks,
// and cooperation proposal handling.
package engine

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/talgya/concord/internal/agents"
	"github.com/talgya/concord/internal/config"
	"github.com/talgya/concord/internal/social"
)

// FormationScore is the scored compatibility of one candidate against an
// initiator. Sub-scores are normalized to [0,1]; the composites are on a
// 0–100 scale. Score is the screening composite (affinity, proximity, goal
// alignment); FullScore additionally blends personality and interaction
// history under the configured weights.
type FormationScore struct {
	AgentID   agents.AgentID `json:"agent_id"`
	Score     float64        `json:"score"`
	FullScore float64        `json:"full_score"`

	Affinity      float64 `json:"affinity"`
	Proximity     float64 `json:"proximity"`
	GoalAlignment float64 `json:"goal_alignment"`
	Personality   float64 `json:"personality"`
	Interaction   float64 `json:"interaction"`
}

// FindCompatibleMembers scores each candidate against the initiator,
// drops those below minScore or below the configured personality
// compatibility floor, and returns the rest sorted by descending
// screening score. Candidates equal to the initiator are skipped.
func (e *Engine) FindCompatibleMembers(initiator *agents.Agent, candidates []*agents.Agent, minScore float64) []FormationScore {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.findCompatibleMembers(initiator, candidates, minScore)
}

func (e *Engine) findCompatibleMembers(initiator *agents.Agent, candidates []*agents.Agent, minScore float64) []FormationScore {
	var scores []FormationScore
	for _, candidate := range candidates {
		if candidate.ID == initiator.ID {
			continue
		}
		fs := e.scoreCandidate(initiator, []*agents.Agent{candidate})
		fs.AgentID = candidate.ID
		if fs.Personality < e.cfg.Formation.MinCompatibility {
			continue
		}
		if fs.Score >= minScore {
			scores = append(scores, fs)
		}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	return scores
}

// scoreCandidate computes all sub-scores and both composites for the
// initiator against the given candidate set (averaged when len > 1).
func (e *Engine) scoreCandidate(initiator *agents.Agent, others []*agents.Agent) FormationScore {
	fs := FormationScore{
		AgentID:       initiator.ID,
		Affinity:      e.affinityScore(initiator, others),
		Proximity:     e.proximityScore(initiator, others),
		GoalAlignment: e.goalAlignmentScore(initiator, others),
		Personality:   e.personalityScore(initiator, others),
		Interaction:   e.interactionScore(initiator, others),
	}

	fs.Score = (fs.Affinity*0.4 + fs.Proximity*0.2 + fs.GoalAlignment*0.4) * 100

	w := e.cfg.Formation.Weights
	fs.FullScore = (fs.Affinity*w.Affinity +
		fs.Proximity*w.Proximity +
		fs.GoalAlignment*w.GoalAlignment +
		fs.Personality*w.Personality +
		fs.Interaction*w.Interaction) / w.Sum() * 100
	return fs
}

// affinityScore blends relationship score, faction alignment, and shared
// interaction history, averaged over candidates.
func (e *Engine) affinityScore(a *agents.Agent, others []*agents.Agent) float64 {
	if len(others) == 0 {
		return 0
	}
	sum := 0.0
	for _, other := range others {
		relationship := a.RelationshipScore(other.ID)
		faction := 0.0
		if a.Faction != "" && a.Faction == other.Faction {
			faction = 1.0
		}
		sum += relationship*0.5 + faction*0.3 + sharedHistory(a, other)*0.2
	}
	return sum / float64(len(others))
}

// sharedHistory averages both sides' positive/neutral-weighted success
// rates. Either side lacking history yields 0.
func sharedHistory(a, b *agents.Agent) float64 {
	ta, ok := a.Interactions[b.ID]
	if !ok {
		return 0
	}
	tb, ok := b.Interactions[a.ID]
	if !ok {
		return 0
	}
	if ta.Total() == 0 || tb.Total() == 0 {
		return 0
	}
	rateA := (float64(ta.Positive) + float64(ta.Neutral)*0.5) / float64(ta.Total())
	rateB := (float64(tb.Positive) + float64(tb.Neutral)*0.5) / float64(tb.Total())
	return (rateA + rateB) / 2
}

// proximityScore maps spatial distance into [0,1], zero beyond grid size.
func (e *Engine) proximityScore(a *agents.Agent, others []*agents.Agent) float64 {
	if len(others) == 0 {
		return 0
	}
	sum := 0.0
	for _, other := range others {
		d := e.grid.Distance(a.Position, other.Position)
		sum += math.Max(0, 1-d/e.grid.Size())
	}
	return sum / float64(len(others))
}

// goalAlignmentScore is the fraction of the initiator's goals with a
// same-type counterpart within ±0.2 priority on the candidate.
func (e *Engine) goalAlignmentScore(a *agents.Agent, others []*agents.Agent) float64 {
	if len(others) == 0 {
		return 0
	}
	sum := 0.0
	for _, other := range others {
		shared := 0
		for _, goal := range a.Goals {
			for _, otherGoal := range other.Goals {
				if goal.Type == otherGoal.Type && math.Abs(goal.Priority-otherGoal.Priority) <= 0.2 {
					shared++
					break
				}
			}
		}
		sum += float64(shared) / math.Max(float64(len(a.Goals)), 1)
	}
	return sum / float64(len(others))
}

// personalityScore weights each of the initiator's traits by the
// configured trait-weight table. Traits with configured complementary
// traits score against the candidate's best complementary match; others
// score by direct value similarity.
func (e *Engine) personalityScore(a *agents.Agent, others []*agents.Agent) float64 {
	if len(others) == 0 {
		return 0
	}
	sum := 0.0
	for _, other := range others {
		score := 0.0
		totalWeight := 0.0
		for trait, value := range a.Personality.Traits {
			weight, ok := e.cfg.Formation.TraitWeights[trait]
			if !ok {
				weight = 1
			}
			if comps := e.cfg.Formation.ComplementaryTraits[trait]; len(comps) > 0 {
				best := 0.0
				for _, comp := range comps {
					match := 1 - math.Abs(value-other.Personality.Traits[comp])
					if match > best {
						best = match
					}
				}
				score += best * weight
			} else {
				score += (1 - math.Abs(value-other.Personality.Traits[trait])) * weight
			}
			totalWeight += weight
		}
		if totalWeight > 0 {
			sum += score / totalWeight
		}
	}
	return sum / float64(len(others))
}

// interactionScore is the candidates' average success rate scaled by a
// 30-day recency decay.
func (e *Engine) interactionScore(a *agents.Agent, others []*agents.Agent) float64 {
	if len(others) == 0 {
		return 0
	}
	now := e.now()
	sum := 0.0
	for _, other := range others {
		tally, ok := a.Interactions[other.ID]
		if !ok || tally.Total() == 0 {
			continue
		}
		successRate := (float64(tally.Positive) + float64(tally.Neutral)*0.5) / float64(tally.Total())
		recency := math.Exp(-daysBetween(tally.LastInteraction, now) / 30)
		sum += successRate * recency
	}
	return sum / float64(len(others))
}

// FormGroup screens candidates and creates a group led by the initiator.
// Returns nil when too few candidates pass screening to reach the minimum
// member count. Roles are seeded from the screening score: ≥80 Deputy,
// ≥70 Advisor, otherwise Member.
func (e *Engine) FormGroup(initiator *agents.Agent, candidates []*agents.Agent, typ social.GroupType) *social.Group {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.formGroup(initiator, candidates, typ)
}

func (e *Engine) formGroup(initiator *agents.Agent, candidates []*agents.Agent, typ social.GroupType) *social.Group {
	potential := e.findCompatibleMembers(initiator, candidates, e.cfg.Formation.MinScore)
	if len(potential) < e.cfg.Group.MinMembers-1 {
		return nil
	}
	if len(potential) > e.cfg.Group.MaxMembers-1 {
		potential = potential[:e.cfg.Group.MaxMembers-1]
	}

	g := e.createGroup(
		fmt.Sprintf("%s's Group", initiator.Name),
		typ,
		fmt.Sprintf("Group formed by %s with %d members", initiator.Name, len(potential)),
		initiator.ID,
	)

	for _, p := range potential {
		role := social.RoleMember
		switch {
		case p.Score >= 80:
			role = social.RoleDeputy
		case p.Score >= 70:
			role = social.RoleAdvisor
		}
		e.addMember(g.ID, p.AgentID, role)
	}

	e.emitEvent(Event{
		Name:        EventGroupFormed,
		GroupID:     g.ID,
		Description: fmt.Sprintf("%s formed %q with %d members", initiator.Name, g.Name, len(g.Members)),
		Meta:        map[string]any{"type": typ.String(), "leader": string(initiator.ID)},
	})
	return g
}

// ShouldFormGroup scans for an agent with enough frequent, compatible
// interaction partners to justify forming a group. Returns the initiator
// and their frequent interactors, or ok=false.
func (e *Engine) ShouldFormGroup(all []*agents.Agent, interactionThreshold int, compatibilityThreshold float64) (*agents.Agent, []*agents.Agent, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	index := make(map[agents.AgentID]*agents.Agent, len(all))
	for _, a := range all {
		index[a.ID] = a
	}

	for _, a := range all {
		counts := make(map[agents.AgentID]int)
		for _, interaction := range a.RecentInteractions {
			for _, pid := range interaction.Participants {
				if pid != a.ID {
					counts[pid]++
				}
			}
		}

		var frequent []*agents.Agent
		for id, count := range counts {
			if count < interactionThreshold {
				continue
			}
			if other, ok := index[id]; ok {
				frequent = append(frequent, other)
			}
		}
		if len(frequent) < 2 {
			continue
		}
		sort.Slice(frequent, func(i, j int) bool { return frequent[i].ID < frequent[j].ID })

		if len(e.findCompatibleMembers(a, frequent, compatibilityThreshold)) >= 2 {
			return a, frequent, true
		}
	}
	return nil, nil, false
}

// CooperationProposal is an externally supplied request for two agents to
// cooperate: form a group, join one, and/or share resources.
type CooperationProposal struct {
	FormGroup       bool
	GroupType       social.GroupType
	JoinGroup       bool
	GroupID         social.GroupID
	SharedResources map[string]float64
}

// ProcessCooperation handles a cooperation proposal between two agents.
// Unlike the boolean store operations, lookup failures here are propagated
// as errors for the caller to handle; nothing is retried internally.
func (e *Engine) ProcessCooperation(agentID, targetID agents.AgentID, proposal CooperationProposal) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	initiator, ok := e.provider.Agent(agentID)
	if !ok {
		return fmt.Errorf("agent %s not found", agentID)
	}
	target, ok := e.provider.Agent(targetID)
	if !ok {
		return fmt.Errorf("agent %s not found", targetID)
	}

	if proposal.FormGroup {
		if g := e.formGroup(initiator, []*agents.Agent{target}, proposal.GroupType); g == nil {
			return fmt.Errorf("cooperation between %s and %s did not produce a viable group", agentID, targetID)
		}
	} else if proposal.JoinGroup {
		if err := e.joinGroup(proposal.GroupID, target); err != nil {
			return err
		}
	}

	if len(proposal.SharedResources) > 0 {
		slog.Info("resource sharing arranged",
			"agent", agentID, "target", targetID, "resources", len(proposal.SharedResources))
	}
	return nil
}

// joinGroup admits an agent to a group if they are compatible with its
// current members. Caller holds the write lock.
func (e *Engine) joinGroup(groupID social.GroupID, candidate *agents.Agent) error {
	g, ok := e.groups[groupID]
	if !ok {
		return fmt.Errorf("group %s not found", groupID)
	}

	var members []*agents.Agent
	for _, id := range g.MemberIDs() {
		if a, ok := e.provider.Agent(id); ok {
			members = append(members, a)
		}
	}

	scores := e.findCompatibleMembers(candidate, members, e.cfg.Formation.MinScore)
	if len(scores) == 0 {
		return fmt.Errorf("agent %s not compatible with group %s", candidate.ID, groupID)
	}
	if !e.addMember(groupID, candidate.ID, social.RoleMember) {
		return fmt.Errorf("group %s cannot admit %s", groupID, candidate.ID)
	}
	return nil
}

// FormationTrigger describes an external condition that should prompt a
// formation check.
type FormationTrigger struct {
	Type       string // emergency, resource, goal, periodic, social
	Threshold  float64
	TimeWindow time.Duration
}

// CheckFormationTrigger evaluates a formation trigger against a set of
// agents.
func (e *Engine) CheckFormationTrigger(all []*agents.Agent, trigger FormationTrigger) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	switch trigger.Type {
	case "emergency":
		// Emergencies are routed explicitly by the host, not detected here.
		return false
	case "resource":
		return avgWealth(all) >= trigger.Threshold
	case "goal":
		return e.sharedGoalPressure(all, trigger.Threshold)
	case "periodic":
		if trigger.TimeWindow <= 0 {
			return false
		}
		phase := e.now().UnixMilli() % trigger.TimeWindow.Milliseconds()
		return float64(phase) < trigger.Threshold
	case "social":
		return avgRecentInteractions(all) >= trigger.Threshold
	}
	return false
}

func avgWealth(all []*agents.Agent) float64 {
	if len(all) == 0 {
		return 0
	}
	total := 0.0
	for _, a := range all {
		total += a.Economic.Wealth
	}
	return total / float64(len(all))
}

func avgRecentInteractions(all []*agents.Agent) float64 {
	if len(all) == 0 {
		return 0
	}
	total := 0
	for _, a := range all {
		total += len(a.RecentInteractions)
	}
	return float64(total) / float64(len(all))
}

// sharedGoalPressure reports whether enough agents share a high-priority
// goal type to seed a minimum-size group.
func (e *Engine) sharedGoalPressure(all []*agents.Agent, minPriority float64) bool {
	counts := make(map[string]int)
	for _, a := range all {
		for _, goal := range a.Goals {
			if goal.Priority >= minPriority {
				counts[goal.Type]++
			}
		}
	}
	for _, count := range counts {
		if count >= e.cfg.Group.MinMembers {
			return true
		}
	}
	return false
}

// OptimalGroupSize derives the best member count for a group type from the
// configured size recommendation and the resources available to support
// members. Coordination overhead inflates each member's resource needs.
func (e *Engine) OptimalGroupSize(typ social.GroupType, available map[string]float64) int {
	rec, ok := e.cfg.Formation.SizeRecommendations[typ.String()]
	if !ok {
		rec = config.SizeRecommendation{
			Min:                     e.cfg.Group.MinMembers,
			Optimal:                 4,
			Max:                     e.cfg.Group.MaxMembers,
			EffectivenessMultiplier: 1.0,
		}
	}

	maxByResources := rec.Max
	for _, req := range rec.ResourceRequirements {
		if req.AmountPerMember <= 0 {
			continue
		}
		supported := int(available[req.Type] / (req.AmountPerMember * (1 + rec.Overhead)))
		if supported < maxByResources {
			maxByResources = supported
		}
	}

	optimal := int(float64(rec.Optimal) * rec.EffectivenessMultiplier)
	if maxByResources < optimal {
		return maxByResources
	}
	return optimal
}
