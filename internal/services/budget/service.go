// Package budget projects monthly estimates against the configured budget.
package budget

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/j-veylop/speechcost-tui/internal/db"
	"github.com/j-veylop/speechcost-tui/internal/logger"
	"github.com/j-veylop/speechcost-tui/internal/models"
)

const (
	daysPerMonth       = 30
	lowConfThreshold   = 50
	medConfThreshold   = 500
	warnPercent        = 80
	criticalRunwayDays = 20
)

// Service computes budget projections and keeps the most recent one.
type Service struct {
	mu     sync.RWMutex
	db     *db.DB
	latest *models.BudgetProjection
}

// New creates a budget service. database may be nil, in which case no
// comparison with saved estimates is made.
func New(database *db.DB) *Service {
	return &Service{db: database}
}

// Project relates est to budget. The profile's sample size sets the
// confidence of the projection.
func (s *Service) Project(budget float64, est models.CostEstimate, p models.UsageProfile) *models.BudgetProjection {
	total := est.TotalMonthly
	proj := &models.BudgetProjection{
		Budget:           budget,
		ProjectedMonthly: total,
		DailyBurn:        total / daysPerMonth,
		RunwayDays:       math.Inf(1),
		Status:           models.BudgetUnknown,
		Confidence:       confidence(p.SampleSize),
		VsPrevious:       s.compareWithPrevious(est),
		ComputedAt:       time.Now(),
	}

	if budget > 0 {
		proj.UsedPercent = total / budget * 100
		if proj.DailyBurn > 0 {
			proj.RunwayDays = budget / proj.DailyBurn
		}
		if perUser := est.CostPerUser(); perUser > 0 {
			proj.MaxUsers = int(math.Floor(budget / perUser))
		}
		proj.Status = status(proj)
	}

	s.mu.Lock()
	s.latest = proj
	s.mu.Unlock()

	return proj
}

// Latest returns the most recent projection, or nil.
func (s *Service) Latest() *models.BudgetProjection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

func confidence(samples int) string {
	switch {
	case samples < lowConfThreshold:
		return "low"
	case samples < medConfThreshold:
		return "medium"
	default:
		return "high"
	}
}

func status(p *models.BudgetProjection) models.BudgetStatus {
	switch {
	case p.OverBudget() && p.RunwayDays < criticalRunwayDays:
		return models.BudgetCritical
	case p.OverBudget() || p.UsedPercent >= warnPercent:
		return models.BudgetWarning
	default:
		return models.BudgetSafe
	}
}

// compareWithPrevious compares the per-user cost with the last saved
// estimate. It runs before the new estimate is saved.
func (s *Service) compareWithPrevious(est models.CostEstimate) string {
	if s.db == nil {
		return "No prior data"
	}
	snaps, err := s.db.GetEstimateSnapshots(1)
	if err != nil {
		logger.Error("failed to load previous estimate", "error", err)
		return "No prior data"
	}
	if len(snaps) == 0 || snaps[0].MonthlyUsers <= 0 {
		return "No prior data"
	}
	prev := snaps[0].TotalMonthly / float64(snaps[0].MonthlyUsers)
	return formatComparison(est.CostPerUser(), prev)
}

func formatComparison(current, reference float64) string {
	if reference <= 0 {
		return "No prior data"
	}
	diff := ((current - reference) / reference) * 100
	if math.Abs(diff) < 10 {
		return "Similar to last estimate"
	} else if diff > 0 {
		return fmt.Sprintf("%.0f%% higher per user than last estimate", diff)
	}
	return fmt.Sprintf("%.0f%% lower per user than last estimate", -diff)
}
