package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dynamo-works/claude-engine/internal/config"
	"github.com/dynamo-works/claude-engine/internal/database"
	"github.com/dynamo-works/claude-engine/internal/handlers"
	"github.com/dynamo-works/claude-engine/internal/logger"
	"github.com/dynamo-works/claude-engine/internal/middleware"
	"github.com/dynamo-works/claude-engine/internal/router"
	"github.com/dynamo-works/claude-engine/internal/services/alert"
	"github.com/dynamo-works/claude-engine/internal/services/audit"
	"github.com/dynamo-works/claude-engine/internal/services/budget"
	keysvc "github.com/dynamo-works/claude-engine/internal/services/key"
	"github.com/dynamo-works/claude-engine/internal/services/profile"
	"github.com/dynamo-works/claude-engine/internal/upstream"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.Initialize(cfg.Logging)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	// Database is optional. Without it the proxy still runs: auth falls back
	// to tokens or mock headers, budget enforcement disables, and the audit
	// trail is log-only.
	var db *gorm.DB
	if cfg.Database.URL != "" {
		dbConfig := &database.Config{
			DSN:            cfg.Database.URL,
			MaxConnections: cfg.Database.MaxConnections,
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := database.TestConnection(ctx, &database.Config{DSN: cfg.Database.URL})
		cancel()

		if err != nil {
			log.Warn("Database unreachable, persistence disabled", zap.Error(err))
		} else if err := database.Initialize(dbConfig); err != nil {
			log.Warn("Database initialization failed, persistence disabled", zap.Error(err))
		} else {
			db = database.GetDB()
			defer database.Close()
			log.Info("Database connected")
		}
	} else {
		log.Info("No DATABASE_URL configured, persistence disabled")
	}

	var budgetCache *budget.Cache
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Warn("Invalid REDIS_URL, budget cache disabled", zap.Error(err))
		} else {
			client := redis.NewClient(opts)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := client.Ping(ctx).Err()
			cancel()
			if err != nil {
				log.Warn("Redis unreachable, budget cache disabled", zap.Error(err))
			} else {
				budgetCache = budget.NewCache(client, log, 0)
				log.Info("Redis budget cache enabled")
			}
		}
	}

	keyService := keysvc.NewService(db, log)
	budgetService := budget.NewService(db, budgetCache, log)
	auditService := audit.NewService(db, log)
	profileService := profile.NewService(db, log)
	alertPublisher := alert.NewPublisher(context.Background(), cfg.Alert.TopicARN, log)

	upstreamClient := upstream.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.APIKey,
		&http.Client{Timeout: cfg.Upstream.Timeout})

	handler := router.New(router.Deps{
		Config:  cfg,
		Logger:  log,
		Auth:    middleware.NewAuthenticator(cfg.Auth, keyService, profileService, log),
		Alerts:  alertPublisher,
		Audits:  auditService,
		Budgets: budgetSourceOrNil(db, budgetService),
		Proxy: handlers.NewProxy(upstreamClient, budgetService, auditService,
			cfg.Upstream.MaxTokens, log),
		Budget: handlers.NewBudgetHandler(budgetService, log),
		Keys:   handlers.NewKeysHandler(keyService, log),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // streaming responses manage their own lifetime
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("Engine started",
			zap.Int("port", cfg.Server.Port),
			zap.String("environment", cfg.Server.Environment),
			zap.String("auth_mode", cfg.Auth.Mode),
			zap.String("budget_enforcement", cfg.Budget.Enforcement),
			zap.Bool("persistence", db != nil))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	log.Info("Shutdown complete")
}

// budgetSourceOrNil keeps the enforcer's store-unavailable skip observable:
// a nil source means no reads at all.
func budgetSourceOrNil(db *gorm.DB, svc *budget.Service) middleware.BudgetSource {
	if db == nil {
		return nil
	}
	return svc
}
