package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dynamo-works/claude-engine/internal/apierror"
	"github.com/dynamo-works/claude-engine/internal/catalog"
	"github.com/dynamo-works/claude-engine/internal/config"
	"github.com/dynamo-works/claude-engine/internal/services/budget"
	"go.uber.org/zap"
)

// BudgetSource reads the monthly status for a user.
type BudgetSource interface {
	GetUserBudget(ctx context.Context, userID, role string) (*budget.Status, error)
}

// BudgetEnforcer checks the monthly counter before the upstream call. It
// skips anonymous requests, admins, and disabled enforcement, and a store
// fault never blocks the request.
func BudgetEnforcer(source BudgetSource, enforcement string, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rc := GetRequestContext(r)

			if rc.UserID == "" || rc.Role == catalog.RoleAdmin ||
				enforcement == config.EnforcementNone || source == nil {
				next.ServeHTTP(w, r)
				return
			}

			st, err := source.GetUserBudget(r.Context(), rc.UserID, rc.Role)
			if err != nil {
				logger.Warn("budget read failed, proceeding",
					zap.String("request_id", rc.RequestID),
					zap.String("user_id", rc.UserID),
					zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			switch {
			case st.Exceeded:
				msg := fmt.Sprintf("Monthly token budget exceeded: %d of %d used. Resets %s.",
					st.CurrentUsage, derefLimit(st.MonthlyLimit), st.ResetDate)
				w.Header().Set("X-Budget-Warning", msg)
				if enforcement == config.EnforcementHard {
					apierror.Write(w, rc.RequestID, apierror.BudgetExceeded(msg))
					return
				}
			case st.Warning:
				w.Header().Set("X-Budget-Warning",
					fmt.Sprintf("Usage at %d%% of monthly limit", st.PercentUsed))
			}

			next.ServeHTTP(w, r)
		})
	}
}

func derefLimit(l *int64) int64 {
	if l == nil {
		return 0
	}
	return *l
}
