package router

import (
	"net/http"

	"github.com/dynamo-works/claude-engine/internal/config"
	"github.com/dynamo-works/claude-engine/internal/handlers"
	"github.com/dynamo-works/claude-engine/internal/middleware"
	"github.com/dynamo-works/claude-engine/internal/services/alert"
	"github.com/dynamo-works/claude-engine/internal/services/audit"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Deps is everything the route tree needs, built once at startup.
type Deps struct {
	Config  *config.Config
	Logger  *zap.Logger
	Auth    *middleware.Authenticator
	Alerts  *alert.Publisher
	Audits  *audit.Service
	Budgets middleware.BudgetSource
	Proxy   *handlers.Proxy
	Budget  *handlers.BudgetHandler
	Keys    *handlers.KeysHandler
}

// New assembles the full route tree. The proxy surfaces run the staged
// pipeline: auth, scan, budget, model routing, audit setup, then the
// upstream handler.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Recover(d.Logger))
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{d.Config.CORS.Origin},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Authorization", "Content-Type", "X-Request-Id",
			"X-Mock-User-Email", "X-Mock-User-Role",
			"X-User-Id", "X-User-Email", "X-User-Role",
		},
		ExposedHeaders: []string{
			"X-Request-Id", "X-Model-Downgraded",
			"X-Budget-Warning", "X-Sensitive-Data-Warning",
		},
	}))

	r.Get("/health", handlers.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(d.Auth.Middleware)

		v1.Group(func(proxy chi.Router) {
			proxy.Use(middleware.AuditSetup)
			proxy.Use(middleware.SensitiveScan(d.Alerts, d.Audits, d.Logger))
			proxy.Use(middleware.BudgetEnforcer(d.Budgets, d.Config.Budget.Enforcement, d.Logger))
			proxy.Use(middleware.ModelRouter(d.Logger))

			proxy.Post("/chat/completions", d.Proxy.ChatCompletions)
			proxy.Post("/messages", d.Proxy.Messages)
		})

		v1.Get("/models", handlers.ListModels)

		v1.Get("/budget/admin/summary", d.Budget.AdminSummary)
		v1.Get("/budget/{userId}", d.Budget.GetUserBudget)

		v1.Route("/admin/api-keys", func(admin chi.Router) {
			admin.Post("/", d.Keys.Create)
			admin.Get("/", d.Keys.List)
			admin.Delete("/{id}", d.Keys.Revoke)
			admin.Post("/{id}/rotate", d.Keys.Rotate)
		})
	})

	return r
}
