package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/dynamo-works/claude-engine/internal/apierror"
	"github.com/dynamo-works/claude-engine/internal/catalog"
	"github.com/dynamo-works/claude-engine/internal/middleware"
	"github.com/dynamo-works/claude-engine/internal/services/budget"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BudgetHandler serves the self-service and admin budget views.
type BudgetHandler struct {
	budgets *budget.Service
	logger  *zap.Logger
}

func NewBudgetHandler(budgets *budget.Service, logger *zap.Logger) *BudgetHandler {
	return &BudgetHandler{budgets: budgets, logger: logger}
}

// GetUserBudget serves GET /v1/budget/{userId}. Users see their own status;
// admins see anyone's.
func (h *BudgetHandler) GetUserBudget(w http.ResponseWriter, r *http.Request) {
	rc := middleware.GetRequestContext(r)
	userID := chi.URLParam(r, "userId")

	if rc.Role != catalog.RoleAdmin && rc.UserID != userID {
		apierror.Write(w, rc.RequestID, apierror.Forbidden("You may only view your own budget"))
		return
	}

	role := rc.Role
	if userID != rc.UserID {
		// Admin looking at someone else: role comes from the stored counter,
		// falling back to the default.
		role = catalog.DefaultRole
	}

	st, err := h.budgets.GetUserBudget(r.Context(), userID, role)
	if err != nil {
		h.logger.Warn("budget read failed",
			zap.String("request_id", rc.RequestID), zap.Error(err))
		apierror.Write(w, rc.RequestID, apierror.Internal())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(st)
}

// AdminSummary serves GET /v1/budget/admin/summary.
func (h *BudgetHandler) AdminSummary(w http.ResponseWriter, r *http.Request) {
	rc := middleware.GetRequestContext(r)

	if rc.Role != catalog.RoleAdmin {
		apierror.Write(w, rc.RequestID, apierror.Forbidden("Admin access required"))
		return
	}

	rows, err := h.budgets.AdminSummary(r.Context())
	if err != nil {
		h.logger.Warn("budget summary failed",
			zap.String("request_id", rc.RequestID), zap.Error(err))
		apierror.Write(w, rc.RequestID, apierror.Internal())
		return
	}
	if rows == nil {
		rows = []budget.AdminSummaryRow{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"users": rows})
}
