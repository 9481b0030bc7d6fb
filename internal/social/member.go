// Membership — roles, contribution, influence, and the fixed
// role → permission table.
package social

import (
	"time"

	"github.com/talgya/concord/internal/agents"
)

// Role is a member's position within a group.
type Role uint8

const (
	RoleLeader Role = iota
	RoleDeputy
	RoleAdvisor
	RoleMember
	RoleRecruit
	RoleGuest
)

// String returns the config/API name for the role.
func (r Role) String() string {
	switch r {
	case RoleLeader:
		return "leader"
	case RoleDeputy:
		return "deputy"
	case RoleAdvisor:
		return "advisor"
	case RoleMember:
		return "member"
	case RoleRecruit:
		return "recruit"
	case RoleGuest:
		return "guest"
	}
	return "unknown"
}

// Permission tags what a role may do with group resources.
type Permission string

const (
	PermAll               Permission = "all"
	PermManageInventory   Permission = "manage_inventory"
	PermViewAssets        Permission = "view_assets"
	PermUseResources      Permission = "use_resources"
	PermSuggestAllocation Permission = "suggest_allocation"
	PermViewInventory     Permission = "view_inventory"
)

// rolePermissions is the fixed role → permission table. Constructed once,
// never mutated.
var rolePermissions = map[Role][]Permission{
	RoleLeader:  {PermAll},
	RoleDeputy:  {PermManageInventory, PermViewAssets, PermUseResources},
	RoleAdvisor: {PermViewAssets, PermSuggestAllocation},
	RoleMember:  {PermUseResources},
	RoleRecruit: {PermViewInventory},
	RoleGuest:   {},
}

// Permissions returns the permission tags granted by the role.
func (r Role) Permissions() []Permission {
	return rolePermissions[r]
}

// GrantsResourceAccess reports whether the role grants access to tracked
// resource and inventory ids.
func (r Role) GrantsResourceAccess() bool {
	for _, p := range rolePermissions[r] {
		if p == PermAll || p == PermUseResources {
			return true
		}
	}
	return false
}

// ActivityEntry is a timestamped event in a member's append-only log.
type ActivityEntry struct {
	At    time.Time `json:"at"`
	Event string    `json:"event"`
}

// Member is one agent's membership in a group.
type Member struct {
	ID       agents.AgentID `json:"id"`
	Role     Role           `json:"role"`
	JoinedAt time.Time      `json:"joined_at"`

	Contribution float64 `json:"contribution"` // 0–100
	Influence    float64 `json:"influence"`    // 0–100, voting weight

	// Signed relationship scores toward other members.
	Relationships map[agents.AgentID]float64 `json:"relationships"`

	Specializations map[string]bool `json:"specializations"`
	Activity        []ActivityEntry `json:"activity"`
}

// LogActivity appends a timestamped entry to the member's activity log.
func (m *Member) LogActivity(at time.Time, event string) {
	m.Activity = append(m.Activity, ActivityEntry{At: at, Event: event})
}

// LastActivity returns the timestamp of the most recent activity entry,
// falling back to the join time when the log is empty.
func (m *Member) LastActivity() time.Time {
	if len(m.Activity) == 0 {
		return m.JoinedAt
	}
	return m.Activity[len(m.Activity)-1].At
}
