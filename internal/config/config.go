package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Budget enforcement modes.
const (
	EnforcementSoft = "soft"
	EnforcementHard = "hard"
	EnforcementNone = "none"
)

// Auth modes.
const (
	AuthModeMock  = "mock"
	AuthModeToken = "token"
)

type Config struct {
	Server   ServerConfig
	Upstream UpstreamConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Budget   BudgetConfig
	Alert    AlertConfig
	Logging  LoggingConfig
	CORS     CORSConfig
}

type ServerConfig struct {
	Port             int
	Environment      string
	GracefulShutdown time.Duration
}

type UpstreamConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	MaxTokens    int
	Timeout      time.Duration
}

type DatabaseConfig struct {
	URL            string
	MaxConnections int
}

type RedisConfig struct {
	URL string
}

type AuthConfig struct {
	Mode      string
	JWTSecret string
}

type BudgetConfig struct {
	Enforcement string
}

type AlertConfig struct {
	TopicARN string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type CORSConfig struct {
	Origin string
}

// Load reads configuration from the environment. Defaults depend on the
// selected environment: development and test default to mock auth and
// console logging, production defaults to token auth and JSON logging.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	bindEnvVars(v)

	env := v.GetString("environment")
	if env == "" {
		env = EnvDevelopment
	}
	setDefaults(v, env)

	cfg := &Config{
		Server: ServerConfig{
			Port:             v.GetInt("port"),
			Environment:      env,
			GracefulShutdown: v.GetDuration("graceful_shutdown"),
		},
		Upstream: UpstreamConfig{
			APIKey:       v.GetString("upstream_api_key"),
			BaseURL:      v.GetString("upstream_base_url"),
			DefaultModel: v.GetString("upstream_default_model"),
			MaxTokens:    v.GetInt("upstream_max_tokens"),
			Timeout:      v.GetDuration("upstream_timeout"),
		},
		Database: DatabaseConfig{
			URL:            v.GetString("database_url"),
			MaxConnections: v.GetInt("database_max_connections"),
		},
		Redis: RedisConfig{
			URL: v.GetString("redis_url"),
		},
		Auth: AuthConfig{
			Mode:      v.GetString("auth_mode"),
			JWTSecret: v.GetString("jwt_secret"),
		},
		Budget: BudgetConfig{
			Enforcement: v.GetString("token_budget_enforcement"),
		},
		Alert: AlertConfig{
			TopicARN: v.GetString("alert_topic_arn"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("log_level"),
			Format: v.GetString("log_format"),
		},
		CORS: CORSConfig{
			Origin: v.GetString("cors_origin"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// ENGINE_ENV is the native name; NODE_ENV is honored so the service is a
	// drop-in replacement for the previous deployment.
	_ = v.BindEnv("environment", "ENGINE_ENV", "NODE_ENV")
	_ = v.BindEnv("port", "PORT")
	_ = v.BindEnv("graceful_shutdown", "GRACEFUL_SHUTDOWN")
	_ = v.BindEnv("upstream_api_key", "UPSTREAM_API_KEY")
	_ = v.BindEnv("upstream_base_url", "UPSTREAM_BASE_URL")
	_ = v.BindEnv("upstream_default_model", "UPSTREAM_DEFAULT_MODEL")
	_ = v.BindEnv("upstream_max_tokens", "UPSTREAM_MAX_TOKENS")
	_ = v.BindEnv("upstream_timeout", "UPSTREAM_TIMEOUT")
	_ = v.BindEnv("database_url", "DATABASE_URL")
	_ = v.BindEnv("database_max_connections", "DATABASE_MAX_CONNECTIONS")
	_ = v.BindEnv("redis_url", "REDIS_URL")
	_ = v.BindEnv("auth_mode", "AUTH_MODE")
	_ = v.BindEnv("jwt_secret", "JWT_SECRET")
	_ = v.BindEnv("token_budget_enforcement", "TOKEN_BUDGET_ENFORCEMENT")
	_ = v.BindEnv("alert_topic_arn", "ALERT_TOPIC_ARN")
	_ = v.BindEnv("log_level", "LOG_LEVEL")
	_ = v.BindEnv("log_format", "LOG_FORMAT")
	_ = v.BindEnv("cors_origin", "CORS_ORIGIN")
}

func setDefaults(v *viper.Viper, env string) {
	v.SetDefault("port", 3001)
	v.SetDefault("graceful_shutdown", "10s")

	v.SetDefault("upstream_base_url", "https://api.anthropic.com/v1")
	v.SetDefault("upstream_default_model", "claude-sonnet-4-20250514")
	v.SetDefault("upstream_max_tokens", 4096)
	v.SetDefault("upstream_timeout", "120s")

	v.SetDefault("database_max_connections", 10)
	v.SetDefault("token_budget_enforcement", EnforcementSoft)
	v.SetDefault("cors_origin", "*")
	v.SetDefault("log_level", "info")

	if env == EnvProduction {
		v.SetDefault("auth_mode", AuthModeToken)
		v.SetDefault("log_format", "json")
	} else {
		v.SetDefault("auth_mode", AuthModeMock)
		v.SetDefault("log_format", "console")
	}
}

// Validate checks required values and enum ranges. A failure here aborts
// startup.
func (c *Config) Validate() error {
	switch c.Server.Environment {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		return fmt.Errorf("config: invalid environment %q", c.Server.Environment)
	}

	if c.Upstream.APIKey == "" {
		return fmt.Errorf("config: UPSTREAM_API_KEY is required")
	}

	switch c.Budget.Enforcement {
	case EnforcementSoft, EnforcementHard, EnforcementNone:
	default:
		return fmt.Errorf("config: invalid TOKEN_BUDGET_ENFORCEMENT %q", c.Budget.Enforcement)
	}

	switch c.Auth.Mode {
	case AuthModeMock, AuthModeToken:
	default:
		return fmt.Errorf("config: invalid AUTH_MODE %q", c.Auth.Mode)
	}

	if c.Auth.Mode == AuthModeToken && c.Auth.JWTSecret == "" {
		return fmt.Errorf("config: JWT_SECRET is required when AUTH_MODE=token")
	}

	return nil
}
