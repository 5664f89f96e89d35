// Package services ties the store, profile builder, estimator and inbox
// watcher together behind one Manager shared by the dashboard and the CLI.
package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/j-veylop/speechcost-tui/internal/config"
	"github.com/j-veylop/speechcost-tui/internal/db"
	"github.com/j-veylop/speechcost-tui/internal/estimator"
	"github.com/j-veylop/speechcost-tui/internal/logger"
	"github.com/j-veylop/speechcost-tui/internal/models"
	"github.com/j-veylop/speechcost-tui/internal/pricing"
	"github.com/j-veylop/speechcost-tui/internal/services/budget"
	"github.com/j-veylop/speechcost-tui/internal/services/ingest"
	"github.com/j-veylop/speechcost-tui/internal/services/profile"
)

// Snapshot is the shared result of the latest refresh. Every tab and CLI
// command reads from it instead of querying on its own.
type Snapshot struct {
	UpdatedAt    time.Time
	TimeRange    models.TimeRange
	MonthlyUsers int
	Profile      models.UsageProfile
	Estimate     models.CostEstimate
	Scenarios    []models.Scenario
	Warnings     []estimator.Warning
	Budget       *models.BudgetProjection
	Trends       []string
	Stats        *models.TotalStats
	Providers    []models.ProviderStats
}

// WarningStrings returns the profile warnings as display lines.
func (s *Snapshot) WarningStrings() []string {
	out := make([]string, len(s.Warnings))
	for i, w := range s.Warnings {
		out[i] = w.String()
	}
	return out
}

// Option customizes a Manager.
type Option func(*Manager)

// WithNotifier replaces the desktop notification function.
func WithNotifier(fn func(title, message string) error) Option {
	return func(m *Manager) { m.notify = fn }
}

// WithoutBackground disables the inbox watcher and the refresh ticker.
// One-shot CLI commands use it.
func WithoutBackground() Option {
	return func(m *Manager) { m.background = false }
}

// Manager owns the session state: one user count, one profile window and
// the latest snapshot, refreshed on a timer and after every import.
type Manager struct {
	mu       sync.RWMutex
	database *db.DB
	pricing  *pricing.Table
	profiles *profile.Service
	budgets  *budget.Service
	ingest   *ingest.Service
	events   hub
	stop     chan struct{}

	refreshInterval time.Duration
	background      bool
	notify          func(title, message string) error

	users      int
	timeRange  models.TimeRange
	budget     float64
	current    *Snapshot
	lastSaved  float64
	overBudget bool

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewManager creates a new service manager.
func NewManager(cfg *config.Config, opts ...Option) (*Manager, error) {
	m := &Manager{
		stop:            make(chan struct{}),
		refreshInterval: cfg.ProfileRefreshInterval,
		background:      true,
		notify:          beeepNotify,
		users:           cfg.MonthlyUsers,
		timeRange:       cfg.ProfileWindow,
		budget:          cfg.MonthlyBudgetUSD,
		lastSaved:       -1,
	}
	for _, opt := range opts {
		opt(m)
	}

	var err error
	if m.pricing, err = pricing.Load(cfg.PricingPath); err != nil {
		return nil, fmt.Errorf("rate card: %w", err)
	}
	if m.database, err = db.New(cfg.DatabasePath); err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	if cfg.RetentionDays > 0 {
		n, err := m.database.PruneSpeechRequests(cfg.Retention())
		if err != nil {
			logger.Warn("failed to prune old requests", "error", err)
		} else if n > 0 {
			logger.Info("pruned old requests", "rows", n, "retention_days", cfg.RetentionDays)
			if err := m.database.Vacuum(); err != nil {
				logger.Warn("vacuum after prune failed", "error", err)
			}
		}
	}

	m.profiles = profile.New(m.database, cfg.ProfileRefreshInterval)
	m.budgets = budget.New(m.database)

	inbox := ""
	if m.background {
		inbox = cfg.InboxPath
	}
	m.ingest, err = ingest.New(m.database, inbox)
	if err != nil {
		_ = m.database.Close()
		return nil, err
	}

	if _, err := m.Refresh(); err != nil {
		logger.Warn("initial refresh failed", "error", err)
	}

	if m.background {
		m.wg.Add(1)
		go m.run()
	}

	return m, nil
}

func beeepNotify(title, message string) error {
	return beeep.Notify(title, message, "")
}

// run drives the periodic refresh and relays inbox imports until Close.
func (m *Manager) run() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case event := <-m.ingest.Events():
			m.handleIngestEvent(event)

		case <-ticker.C:
			if _, err := m.Refresh(); err != nil {
				m.broadcast(ErrorEvent{Service: "profile", Error: err})
			}

		case <-m.stop:
			return
		}
	}
}

func (m *Manager) handleIngestEvent(event ingest.Event) {
	switch event.Type {
	case ingest.EventImported:
		m.broadcast(ImportedEvent{Result: event.Result})
		m.profiles.Invalidate()
		if _, err := m.Refresh(); err != nil {
			m.broadcast(ErrorEvent{Service: "profile", Error: err})
		}

	case ingest.EventError:
		err := event.Error
		if event.File != "" {
			err = fmt.Errorf("%s: %w", event.File, event.Error)
		}
		logger.Error("inbox import failed", "file", event.File, "error", event.Error)
		m.broadcast(ErrorEvent{Service: "ingest", Error: err})
	}
}

// Refresh rebuilds the profile for the current time range, re-estimates it
// and broadcasts the result. On failure the previous snapshot is kept.
func (m *Manager) Refresh() (*Snapshot, error) {
	m.mu.RLock()
	tr := m.timeRange
	m.mu.RUnlock()

	p, err := m.profiles.Build(tr)
	if err != nil {
		return nil, err
	}

	var trends []string
	if prev, err := m.profiles.Previous(tr); err != nil {
		logger.Warn("failed to build previous window", "error", err)
	} else {
		trends = profile.CompareWindows(p, prev)
	}

	stats, err := m.database.GetTotalStats()
	if err != nil {
		return nil, fmt.Errorf("failed to load totals: %w", err)
	}
	providers, err := m.database.GetProviderStats(tr.Days())
	if err != nil {
		return nil, fmt.Errorf("failed to load provider stats: %w", err)
	}

	m.mu.Lock()
	if m.timeRange != tr {
		// The range changed while building; the caller that changed it refreshes.
		snap := m.current
		m.mu.Unlock()
		return snap, nil
	}
	snap := m.compute(p, tr, m.users)
	snap.Trends = trends
	snap.Stats = stats
	snap.Providers = providers
	m.current = snap
	m.mu.Unlock()

	m.afterUpdate(snap)
	return snap, nil
}

// compute runs the estimator and the budget projection. Callers hold m.mu.
func (m *Manager) compute(p models.UsageProfile, tr models.TimeRange, users int) *Snapshot {
	est := estimator.Estimate(p, users, m.pricing)
	return &Snapshot{
		UpdatedAt:    time.Now(),
		TimeRange:    tr,
		MonthlyUsers: users,
		Profile:      p,
		Estimate:     est,
		Scenarios:    estimator.Compare(p, users, m.pricing),
		Warnings:     estimator.ValidateProfile(p, m.pricing),
		Budget:       m.budgets.Project(m.budget, est, p),
	}
}

// afterUpdate persists a snapshot point, checks the budget and broadcasts.
func (m *Manager) afterUpdate(snap *Snapshot) {
	m.saveSnapshot(snap)
	m.checkBudget(snap.Estimate.TotalMonthly)
	m.broadcast(EstimateUpdatedEvent{Snapshot: snap})
}

// saveSnapshot records the estimate when the total moved since the last
// saved point.
func (m *Manager) saveSnapshot(snap *Snapshot) {
	if snap.Profile.IsEmpty() {
		return
	}

	total := snap.Estimate.TotalMonthly
	m.mu.Lock()
	if math.Abs(total-m.lastSaved) < 0.005 {
		m.mu.Unlock()
		return
	}
	m.lastSaved = total
	m.mu.Unlock()

	err := m.database.InsertEstimateSnapshot(&models.EstimateSnapshot{
		Timestamp:     snap.UpdatedAt,
		TimeRange:     snap.TimeRange.Flag(),
		MonthlyUsers:  snap.MonthlyUsers,
		SampleSize:    snap.Profile.SampleSize,
		TotalMonthly:  total,
		Cached:        snap.Estimate.Cached,
		Uncached:      snap.Estimate.Uncached,
		CharacterCost: snap.Estimate.CharacterCost,
		APICallCost:   snap.Estimate.APICallCost,
	})
	if err != nil {
		logger.Error("failed to save estimate snapshot", "error", err)
	}
}

// checkBudget notifies once per upward crossing of the monthly budget.
func (m *Manager) checkBudget(total float64) {
	m.mu.Lock()
	limit := m.budget
	if limit <= 0 {
		m.overBudget = false
		m.mu.Unlock()
		return
	}
	was := m.overBudget
	m.overBudget = total > limit
	crossed := m.overBudget && !was
	m.mu.Unlock()

	if !crossed {
		return
	}

	title := "Speech budget exceeded"
	body := fmt.Sprintf("Projected monthly cost $%.2f is above the $%.2f budget", total, limit)
	if err := m.notify(title, body); err != nil {
		logger.Debug("desktop notification failed", "error", err)
	}
	m.broadcast(BudgetExceededEvent{Total: total, Budget: limit})
}

// SetMonthlyUsers re-estimates the current profile for n users without
// touching the database.
func (m *Manager) SetMonthlyUsers(n int) *Snapshot {
	if n < 0 {
		n = 0
	}

	m.mu.Lock()
	m.users = n
	if m.current == nil {
		m.mu.Unlock()
		return nil
	}
	prev := m.current
	snap := m.compute(prev.Profile, prev.TimeRange, n)
	snap.Trends = prev.Trends
	snap.Stats = prev.Stats
	snap.Providers = prev.Providers
	m.current = snap
	m.mu.Unlock()

	m.afterUpdate(snap)
	return snap
}

// SetTimeRange switches the profile window and refreshes.
func (m *Manager) SetTimeRange(tr models.TimeRange) (*Snapshot, error) {
	m.mu.Lock()
	m.timeRange = tr
	m.mu.Unlock()
	return m.Refresh()
}

// ImportFile stores a log export and refreshes the estimate.
func (m *Manager) ImportFile(ctx context.Context, path string) (*ingest.Result, error) {
	res, err := m.ingest.ImportFile(ctx, path)
	if err != nil {
		return nil, err
	}
	if res.Inserted > 0 {
		m.profiles.Invalidate()
		if _, err := m.Refresh(); err != nil {
			return res, err
		}
	}
	return res, nil
}

// Current returns the latest snapshot, or nil before the first refresh.
func (m *Manager) Current() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// MonthlyUsers returns the user count estimates are computed for.
func (m *Manager) MonthlyUsers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.users
}

// TimeRange returns the current profile window.
func (m *Manager) TimeRange() models.TimeRange {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.timeRange
}

// Budget returns the monthly budget (0 = none).
func (m *Manager) Budget() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.budget
}

// Pricing returns the active price table.
func (m *Manager) Pricing() *pricing.Table {
	return m.pricing
}

// Inbox returns the watched inbox directory, or "" when not watching.
func (m *Manager) Inbox() string {
	return m.ingest.Inbox()
}

// GetUsageHistory loads the history tab data for tr.
func (m *Manager) GetUsageHistory(tr models.TimeRange) (*models.UsageHistory, error) {
	if m.database == nil {
		return nil, errors.New("store not open")
	}
	return m.database.GetUsageHistory(tr)
}

// Database exposes the store for read-only callers such as the CLI reports.
func (m *Manager) Database() *db.DB {
	return m.database
}

// Close stops the background loop, closes every subscription, then the
// watcher and the store. Safe to call more than once.
func (m *Manager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		if m.stop != nil {
			close(m.stop)
		}
		m.wg.Wait()
		m.events.closeAll()

		if m.ingest != nil {
			err = errors.Join(err, m.ingest.Close())
		}
		if m.database != nil {
			err = errors.Join(err, m.database.Close())
		}
	})
	return err
}

// InitialState returns the latest snapshot for TUI initialization.
func (m *Manager) InitialState() *Snapshot {
	if snap := m.Current(); snap != nil {
		return snap
	}
	snap, err := m.Refresh()
	if err != nil {
		logger.Error("failed to build initial state", "error", err)
		return nil
	}
	return snap
}
