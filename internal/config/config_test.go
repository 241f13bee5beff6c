package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DevelopmentDefaults(t *testing.T) {
	t.Setenv("UPSTREAM_API_KEY", "sk-ant-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Server.Environment)
	assert.Equal(t, 3001, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.GracefulShutdown)
	assert.Equal(t, AuthModeMock, cfg.Auth.Mode)
	assert.Equal(t, EnforcementSoft, cfg.Budget.Enforcement)
	assert.Equal(t, "https://api.anthropic.com/v1", cfg.Upstream.BaseURL)
	assert.Equal(t, 4096, cfg.Upstream.MaxTokens)
	assert.Equal(t, 120*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "*", cfg.CORS.Origin)
}

func TestLoad_ProductionDefaults(t *testing.T) {
	t.Setenv("UPSTREAM_API_KEY", "sk-ant-test")
	t.Setenv("ENGINE_ENV", "production")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, AuthModeToken, cfg.Auth.Mode)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_NodeEnvHonored(t *testing.T) {
	t.Setenv("UPSTREAM_API_KEY", "sk-ant-test")
	t.Setenv("NODE_ENV", "test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvTest, cfg.Server.Environment)
}

func TestLoad_MissingUpstreamKeyFails(t *testing.T) {
	t.Setenv("UPSTREAM_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UPSTREAM_API_KEY")
}

func TestLoad_ProductionRequiresJWTSecret(t *testing.T) {
	t.Setenv("UPSTREAM_API_KEY", "sk-ant-test")
	t.Setenv("ENGINE_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_InvalidEnforcementFails(t *testing.T) {
	t.Setenv("UPSTREAM_API_KEY", "sk-ant-test")
	t.Setenv("TOKEN_BUDGET_ENFORCEMENT", "strict")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TOKEN_BUDGET_ENFORCEMENT")
}

func TestLoad_InvalidAuthModeFails(t *testing.T) {
	t.Setenv("UPSTREAM_API_KEY", "sk-ant-test")
	t.Setenv("AUTH_MODE", "saml")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_MODE")
}

func TestLoad_ExplicitOverrides(t *testing.T) {
	t.Setenv("UPSTREAM_API_KEY", "sk-ant-test")
	t.Setenv("PORT", "8080")
	t.Setenv("TOKEN_BUDGET_ENFORCEMENT", "hard")
	t.Setenv("UPSTREAM_BASE_URL", "http://localhost:9999/v1")
	t.Setenv("CORS_ORIGIN", "https://app.dynamo.works")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, EnforcementHard, cfg.Budget.Enforcement)
	assert.Equal(t, "http://localhost:9999/v1", cfg.Upstream.BaseURL)
	assert.Equal(t, "https://app.dynamo.works", cfg.CORS.Origin)
}
