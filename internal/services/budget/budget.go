package budget

import (
	"math"
	"time"

	"github.com/dynamo-works/claude-engine/internal/catalog"
)

// WarningThreshold is the fraction of the monthly limit that triggers the
// warning header.
const WarningThreshold = 0.8

// Status is the full budget picture for one user and period. MonthlyLimit
// and Remaining are nil for unlimited roles.
type Status struct {
	UserID           string  `json:"userId"`
	Role             string  `json:"role"`
	MonthlyLimit     *int64  `json:"monthlyLimit"`
	CurrentUsage     int64   `json:"currentUsage"`
	PercentUsed      int     `json:"percentUsed"`
	Remaining        *int64  `json:"remaining"`
	ResetDate        string  `json:"resetDate"`
	Warning          bool    `json:"warning"`
	WarningThreshold float64 `json:"warningThreshold"`
	Exceeded         bool    `json:"exceeded"`
}

// Evaluation is the outcome of checking usage against a limit.
type Evaluation struct {
	Exceeded    bool
	Warning     bool
	PercentUsed int
}

// CurrentPeriodStart returns the first day of the current month, UTC.
func CurrentPeriodStart(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// NextResetDate returns the first day of the next month, UTC.
func NextResetDate(now time.Time) time.Time {
	return CurrentPeriodStart(now).AddDate(0, 1, 0)
}

// MonthlyBudget returns the role's monthly token budget, nil for unlimited.
// Unknown roles take the default role's budget.
func MonthlyBudget(role string) *int64 {
	return catalog.GetRole(role).MonthlyTokenBudget
}

// Evaluate checks used against limit. A nil or non-positive limit means
// unlimited and never warns or exceeds.
func Evaluate(used int64, limit *int64) Evaluation {
	if limit == nil || *limit <= 0 {
		return Evaluation{}
	}
	l := float64(*limit)
	u := float64(used)
	return Evaluation{
		PercentUsed: int(math.Round(100 * u / l)),
		Warning:     u >= WarningThreshold*l,
		Exceeded:    used >= *limit,
	}
}

// EstimateCost prices a call from the static model catalog, rounded to six
// decimal places. Unknown models cost zero.
func EstimateCost(model string, inputTokens, outputTokens int64) float64 {
	m, ok := catalog.GetModel(model)
	if !ok {
		return 0
	}
	cost := (float64(inputTokens)*m.InputCostPerMillion +
		float64(outputTokens)*m.OutputCostPerMillion) / 1e6
	return math.Round(cost*1e6) / 1e6
}
