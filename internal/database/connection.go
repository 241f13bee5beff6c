package database

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dynamo-works/claude-engine/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the shared handle. It stays nil when no DATABASE_URL is configured,
// and callers are expected to degrade gracefully in that case.
var DB *gorm.DB

type Config struct {
	DSN             string
	MaxConnections  int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	LogLevel        logger.LogLevel
}

func Initialize(cfg *Config) error {
	if cfg.DSN == "" {
		cfg.DSN = os.Getenv("DATABASE_URL")
	}

	if cfg.DSN == "" {
		return fmt.Errorf("database DSN is required")
	}

	if cfg.MaxConnections == 0 {
		cfg.MaxConnections = 10
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = time.Hour
	}
	if cfg.LogLevel == 0 {
		cfg.LogLevel = logger.Warn
	}

	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  cfg.LogLevel,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
		},
	)

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger:      newLogger,
		PrepareStmt: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxConnections)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	DB = db

	if err := Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func Migrate() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	DB.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"")

	if err := DB.AutoMigrate(
		&models.APIKey{},
		&models.UserProfile{},
		&models.TokenUsage{},
		&models.UserBudget{},
		&models.AuditLog{},
	); err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}

	if err := createIndexes(); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

func createIndexes() error {
	// Only one active key per hash; revoked rows keep the hash for history.
	DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_api_keys_key_hash_active ON api_keys(key_hash) WHERE is_active")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_api_keys_user_email ON api_keys(user_email)")

	DB.Exec("CREATE INDEX IF NOT EXISTS idx_token_usage_created_at ON token_usage(created_at)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_token_usage_model ON token_usage(model)")

	DB.Exec("CREATE INDEX IF NOT EXISTS idx_audit_logs_user_timestamp ON audit_logs(user_id, timestamp)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_audit_logs_status ON audit_logs(status)")

	return nil
}

func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

func GetDB() *gorm.DB {
	return DB
}

func IsHealthy() bool {
	if DB == nil {
		return false
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return false
	}

	if err := sqlDB.Ping(); err != nil {
		return false
	}

	return true
}

// TestConnection checks whether a connection can be established without
// touching the shared handle.
func TestConnection(ctx context.Context, cfg *Config) error {
	if cfg.DSN == "" {
		return fmt.Errorf("database DSN is required")
	}

	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: newLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}
