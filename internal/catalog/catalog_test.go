package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveModel_PermittedPassesThrough(t *testing.T) {
	res := ResolveModel("claude-opus-4-20250514", RoleEngineer)
	assert.Equal(t, "claude-opus-4-20250514", res.ResolvedModel)
	assert.False(t, res.Downgraded)
}

func TestResolveModel_DowngradeToHighestPermittedTier(t *testing.T) {
	res := ResolveModel("claude-opus-4-20250514", RoleBusiness)
	assert.Equal(t, "claude-sonnet-4-20250514", res.ResolvedModel)
	assert.True(t, res.Downgraded)
	assert.Equal(t, RoleBusiness, res.EffectiveRole)
}

func TestResolveModel_AdminNeverDowngraded(t *testing.T) {
	res := ResolveModel("claude-opus-4-20250514", RoleAdmin)
	assert.Equal(t, "claude-opus-4-20250514", res.ResolvedModel)
	assert.False(t, res.Downgraded)

	// Admins even pass through models the catalog does not know.
	res = ResolveModel("claude-experimental", RoleAdmin)
	assert.Equal(t, "claude-experimental", res.ResolvedModel)
	assert.False(t, res.Downgraded)
}

func TestResolveModel_EmptyRequestUsesDefault(t *testing.T) {
	res := ResolveModel("", RoleBusiness)
	assert.Equal(t, DefaultModel, res.ResolvedModel)
	assert.False(t, res.Downgraded)
}

func TestResolveModel_UnknownRoleFallsBack(t *testing.T) {
	res := ResolveModel("claude-opus-4-20250514", "intern")
	assert.Equal(t, DefaultRole, res.EffectiveRole)
	assert.True(t, res.Downgraded)
}

func TestResolveModel_ResultAlwaysPermitted(t *testing.T) {
	requests := []string{"", "claude-opus-4-20250514", "claude-sonnet-4-20250514",
		"claude-3-5-haiku-20241022", "bogus-model"}
	for _, role := range []string{RoleEngineer, RolePowerUser, RoleBusiness} {
		def := GetRole(role)
		permitted := map[string]bool{}
		for _, id := range def.PermittedModels {
			permitted[id] = true
		}
		for _, req := range requests {
			res := ResolveModel(req, role)
			assert.True(t, permitted[res.ResolvedModel],
				"role %s request %q resolved to %s", role, req, res.ResolvedModel)
			assert.Equal(t, req != "" && permitted[req] || req == "" && permitted[DefaultModel],
				!res.Downgraded,
				"role %s request %q downgrade flag", role, req)
		}
	}
}

func TestRoleFromGroups_Priority(t *testing.T) {
	tests := []struct {
		groups []string
		want   string
	}{
		{nil, DefaultRole},
		{[]string{}, DefaultRole},
		{[]string{"Dynamo-AI-Business"}, RoleBusiness},
		{[]string{"Dynamo-AI-Engineers"}, RoleEngineer},
		{[]string{"Dynamo-AI-Business", "Dynamo-AI-Admins"}, RoleAdmin},
		{[]string{"Dynamo-AI-Power", "Dynamo-AI-Engineers"}, RoleEngineer},
		{[]string{"dynamo-ai-admins"}, RoleAdmin},
		{[]string{"Unrelated-Group"}, DefaultRole},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RoleFromGroups(tt.groups), "%v", tt.groups)
	}
}

func TestGetRole_UnknownFallsBack(t *testing.T) {
	def := GetRole("nonsense")
	assert.Equal(t, DefaultRole, def.Name)
}

func TestRoleCaps(t *testing.T) {
	admin := GetRole(RoleAdmin)
	assert.Nil(t, admin.MaxTokensPerRequest)
	assert.Nil(t, admin.MonthlyTokenBudget)

	business := GetRole(RoleBusiness)
	require.NotNil(t, business.MaxTokensPerRequest)
	assert.Equal(t, 4096, *business.MaxTokensPerRequest)
	require.NotNil(t, business.MonthlyTokenBudget)
	assert.Equal(t, int64(200_000), *business.MonthlyTokenBudget)
}

func TestAllModels_DescendingTier(t *testing.T) {
	all := AllModels()
	require.Len(t, all, 3)
	for i := 1; i < len(all); i++ {
		assert.Greater(t, all[i-1].Tier, all[i].Tier)
	}
}
