package models

import "time"

// BudgetStatus indicates how close the projected spend is to the budget.
type BudgetStatus string

const (
	BudgetSafe     BudgetStatus = "SAFE"
	BudgetWarning  BudgetStatus = "WARNING"
	BudgetCritical BudgetStatus = "CRITICAL"
	BudgetUnknown  BudgetStatus = "UNKNOWN"
)

// BudgetProjection relates a monthly estimate to the configured budget.
type BudgetProjection struct {
	Budget           float64      // Monthly budget in USD, 0 when unset
	ProjectedMonthly float64      // Estimated monthly total
	UsedPercent      float64      // ProjectedMonthly as a percentage of Budget
	DailyBurn        float64      // ProjectedMonthly spread over a 30-day month
	RunwayDays       float64      // Days the budget lasts at DailyBurn
	MaxUsers         int          // Users the budget covers at the current per-user cost
	Status           BudgetStatus // SAFE, WARNING, CRITICAL, UNKNOWN
	Confidence       string       // "low", "medium", "high"
	VsPrevious       string       // Comparison text vs the previous saved estimate
	ComputedAt       time.Time
}

// OverBudget reports whether the projected total exceeds the budget.
func (p *BudgetProjection) OverBudget() bool {
	return p != nil && p.Budget > 0 && p.ProjectedMonthly > p.Budget
}
