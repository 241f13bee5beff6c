package catalog

import "strings"

// Role names.
const (
	RoleAdmin     = "admin"
	RoleEngineer  = "engineer"
	RolePowerUser = "power_user"
	RoleBusiness  = "business"

	// DefaultRole is the fallback for unknown or absent roles.
	DefaultRole = RoleBusiness
)

// RoleDef bundles the access policy for one role. A nil MonthlyTokenBudget
// means unlimited; a nil MaxTokensPerRequest means uncapped.
type RoleDef struct {
	Name                string
	PermittedModels     []string
	MaxTokensPerRequest *int
	MonthlyTokenBudget  *int64
}

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

var roles = map[string]RoleDef{
	RoleAdmin: {
		Name: RoleAdmin,
		PermittedModels: []string{
			"claude-opus-4-20250514",
			"claude-sonnet-4-20250514",
			"claude-3-5-haiku-20241022",
		},
	},
	RoleEngineer: {
		Name: RoleEngineer,
		PermittedModels: []string{
			"claude-opus-4-20250514",
			"claude-sonnet-4-20250514",
			"claude-3-5-haiku-20241022",
		},
		MaxTokensPerRequest: intPtr(8192),
		MonthlyTokenBudget:  int64Ptr(2_000_000),
	},
	RolePowerUser: {
		Name: RolePowerUser,
		PermittedModels: []string{
			"claude-sonnet-4-20250514",
			"claude-3-5-haiku-20241022",
		},
		MaxTokensPerRequest: intPtr(8192),
		MonthlyTokenBudget:  int64Ptr(500_000),
	},
	RoleBusiness: {
		Name: RoleBusiness,
		PermittedModels: []string{
			"claude-sonnet-4-20250514",
			"claude-3-5-haiku-20241022",
		},
		MaxTokensPerRequest: intPtr(4096),
		MonthlyTokenBudget:  int64Ptr(200_000),
	},
}

// GetRole returns the definition for name, falling back to the default role
// for unknown names.
func GetRole(name string) RoleDef {
	if r, ok := roles[name]; ok {
		return r
	}
	return roles[DefaultRole]
}

// IsKnownRole reports whether name is a recognized role.
func IsKnownRole(name string) bool {
	_, ok := roles[name]
	return ok
}

// Resolution is the outcome of routing a requested model through a role's
// policy.
type Resolution struct {
	ResolvedModel string
	Downgraded    bool
	EffectiveRole string
}

// ResolveModel maps the requested model to one the role may call. Admins
// pass through untouched. Other roles keep their request when permitted,
// otherwise receive their highest-tier permitted model.
func ResolveModel(requested, role string) Resolution {
	if !IsKnownRole(role) {
		role = DefaultRole
	}
	if requested == "" {
		requested = DefaultModel
	}

	if role == RoleAdmin {
		return Resolution{ResolvedModel: requested, EffectiveRole: role}
	}

	def := GetRole(role)
	for _, id := range def.PermittedModels {
		if id == requested {
			return Resolution{ResolvedModel: requested, EffectiveRole: role}
		}
	}

	best := ""
	bestTier := -1
	for _, id := range def.PermittedModels {
		if m, ok := GetModel(id); ok && m.Tier > bestTier {
			best = id
			bestTier = m.Tier
		}
	}
	if best == "" {
		best = DefaultModel
	}
	return Resolution{ResolvedModel: best, Downgraded: true, EffectiveRole: role}
}

// Group-to-role mapping for token-based auth. Matching is by substring on
// the directory group name; first match by priority wins.
var groupRolePriority = []struct {
	Substring string
	Role      string
}{
	{"Admins", RoleAdmin},
	{"Engineers", RoleEngineer},
	{"Power", RolePowerUser},
	{"Business", RoleBusiness},
}

// RoleFromGroups maps directory groups to a role. No groups or no match
// yields the default role.
func RoleFromGroups(groups []string) string {
	for _, p := range groupRolePriority {
		needle := strings.ToLower(p.Substring)
		for _, g := range groups {
			if strings.Contains(strings.ToLower(g), needle) {
				return p.Role
			}
		}
	}
	return DefaultRole
}
