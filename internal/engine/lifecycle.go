// Group dissolution lifecycle — condition evaluation, warning grace
// periods, and disband cleanup.
//
// Grace periods are handled as deferred re-checks: a warning records a
// deadline and later passes re-evaluate the condition, so a lifecycle pass
// never blocks. A group whose condition clears before the deadline returns
// to Active.
package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/talgya/concord/internal/config"
	"github.com/talgya/concord/internal/social"
)

// dissolutionNotice tracks a group under a dissolution warning.
type dissolutionNotice struct {
	Condition config.DissolutionCondition
	WarnedAt  time.Time
	Deadline  time.Time
}

// ProcessGroupLifecycle evaluates every configured dissolution condition
// against every group, issuing warnings, re-checking grace deadlines, and
// dissolving groups whose conditions still hold.
func (e *Engine) ProcessGroupLifecycle() {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()

	ids := make([]social.GroupID, 0, len(e.groups))
	for id := range e.groups {
		ids = append(ids, id)
	}

	for _, id := range ids {
		g, ok := e.groups[id]
		if !ok {
			continue // dissolved earlier in this pass
		}

		if notice, warned := e.pending[id]; warned {
			e.recheckWarning(g, notice, now)
			continue
		}

		for _, cond := range e.cfg.Dissolution {
			metric := e.dissolutionMetric(g, cond.Type, now)

			if metric >= cond.Threshold && cond.GracePeriodDays <= 0 {
				e.dissolveGroup(id, cond.Type)
				break
			}

			warnAt := cond.WarningThreshold
			if warnAt <= 0 {
				warnAt = cond.Threshold
			}
			if metric >= warnAt {
				e.issueWarning(g, cond, metric, now)
				break
			}
		}
	}
}

// issueWarning puts the group into Warning and schedules the grace-period
// re-check. Caller holds the write lock.
func (e *Engine) issueWarning(g *social.Group, cond config.DissolutionCondition, metric float64, now time.Time) {
	grace := time.Duration(cond.GracePeriodDays * 24 * float64(time.Hour))
	g.Status = social.StatusWarning
	e.pending[g.ID] = &dissolutionNotice{
		Condition: cond,
		WarnedAt:  now,
		Deadline:  now.Add(grace),
	}

	e.emitEvent(Event{
		Name:        EventDissolutionWarning,
		GroupID:     g.ID,
		Description: fmt.Sprintf("%q is at risk of dissolution: %s", g.Name, cond.Type),
		Meta: map[string]any{
			"condition":      cond.Type,
			"metric":         metric,
			"time_remaining": grace.String(),
		},
	})
	slog.Warn("dissolution warning",
		"group", g.ID, "condition", cond.Type, "metric", fmt.Sprintf("%.2f", metric),
		"grace", grace)
}

// recheckWarning re-evaluates a warned group: clears the warning if the
// condition no longer holds, and dissolves once the deadline passes with
// the full threshold still met. Caller holds the write lock.
func (e *Engine) recheckWarning(g *social.Group, notice *dissolutionNotice, now time.Time) {
	cond := notice.Condition
	metric := e.dissolutionMetric(g, cond.Type, now)

	warnAt := cond.WarningThreshold
	if warnAt <= 0 {
		warnAt = cond.Threshold
	}

	if metric < warnAt {
		// Condition cleared before the grace period expired.
		delete(e.pending, g.ID)
		g.Status = social.StatusActive
		slog.Info("dissolution warning cleared", "group", g.ID, "condition", cond.Type)
		return
	}

	if !now.Before(notice.Deadline) && metric >= cond.Threshold {
		e.dissolveGroup(g.ID, cond.Type)
	}
}

// dissolveGroup notifies members, distributes resources, archives the
// group, cleans up its holdings, and removes it from the store. Caller
// holds the write lock.
func (e *Engine) dissolveGroup(groupID social.GroupID, reason string) {
	g, ok := e.groups[groupID]
	if !ok {
		return
	}
	g.Status = social.StatusDissolved

	for _, memberID := range g.MemberIDs() {
		e.emitEvent(Event{
			Name:        EventGroupDissolved,
			GroupID:     groupID,
			Description: fmt.Sprintf("%q dissolved: %s", g.Name, reason),
			Meta: map[string]any{
				"member_id": string(memberID),
				"reason":    reason,
			},
		})
	}

	e.emitEvent(Event{
		Name:        EventResourceDistribution,
		GroupID:     groupID,
		Description: fmt.Sprintf("distributing resources of %q", g.Name),
		Meta:        e.describeResources(g),
	})

	e.emitEvent(Event{
		Name:        EventGroupArchived,
		GroupID:     groupID,
		Description: fmt.Sprintf("archiving %q", g.Name),
		Meta: map[string]any{
			"reason": reason,
			"group":  g,
		},
	})

	e.cleanupDisbandedGroup(groupID)
	delete(e.pending, groupID)
	delete(e.groups, groupID)

	slog.Info("group dissolved", "group", groupID, "name", g.Name, "reason", reason)
}

// dissolutionMetric evaluates one condition type as a normalized [0,1]
// severity. Caller holds the write lock.
func (e *Engine) dissolutionMetric(g *social.Group, condType string, now time.Time) float64 {
	switch condType {
	case "conflict":
		return e.conflictLevel(g)
	case "goal_completion":
		return goalCompletion(g)
	case "resource_depletion":
		return e.resourceDepletion(g)
	case "inactivity":
		return e.inactivity(g, now)
	case "ineffectiveness":
		return ineffectiveness(g)
	}
	return 0
}

// conflictLevel measures negative member-pair relationships, normalized by
// pair count.
func (e *Engine) conflictLevel(g *social.Group) float64 {
	ids := g.MemberIDs()
	conflict := 0.0
	pairs := 0
	for i, id1 := range ids {
		for _, id2 := range ids[i+1:] {
			if score := g.Members[id1].Relationships[id2]; score < 0 {
				conflict += -score
			}
			pairs++
		}
	}
	if pairs == 0 {
		return 0
	}
	return conflict / (float64(pairs) * 10)
}

// goalCompletion averages goal progress. A group with no goals left counts
// as complete.
func goalCompletion(g *social.Group) float64 {
	if len(g.Goals) == 0 {
		return 1
	}
	total := 0.0
	for _, goal := range g.Goals {
		total += goal.Progress
	}
	return total / (float64(len(g.Goals)) * 100)
}

// resourceDepletion is the worse of wealth depletion and an empty asset
// pool.
func (e *Engine) resourceDepletion(g *social.Group) float64 {
	depletion := 1 - g.Resources.Wealth/e.cfg.Group.MaxWealth
	totalAssets := 0.0
	for _, amount := range g.Resources.Assets {
		totalAssets += amount
	}
	if totalAssets == 0 {
		return 1
	}
	return clamp(depletion, 0, 1)
}

// inactivity scales time since the group was last active against the
// configured inactivity window.
func (e *Engine) inactivity(g *social.Group, now time.Time) float64 {
	if e.cfg.Group.InactivityDays <= 0 {
		return 0
	}
	return clamp(daysBetween(g.LastActive, now)/e.cfg.Group.InactivityDays, 0, 1)
}

// ineffectiveness combines low average contribution with stalled goals.
func ineffectiveness(g *social.Group) float64 {
	if len(g.Members) == 0 {
		return 1
	}
	totalContribution := 0.0
	for _, m := range g.Members {
		totalContribution += m.Contribution
	}
	avgContribution := totalContribution / float64(len(g.Members)) / 100

	progressing := 0
	for _, goal := range g.Goals {
		if goal.Progress > 0 {
			progressing++
		}
	}
	goalProgress := float64(progressing) / float64(max(1, len(g.Goals)))

	return 1 - (avgContribution+goalProgress)/2
}
