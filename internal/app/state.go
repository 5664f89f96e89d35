package app

import (
	"sync"
	"time"

	"github.com/j-veylop/speechcost-tui/internal/models"
	"github.com/j-veylop/speechcost-tui/internal/services"
)

// LoadingState flags the resources with a request in flight.
type LoadingState struct {
	Initial  bool
	Estimate bool
	History  bool
}

func (l *LoadingState) flag(resource string) *bool {
	switch resource {
	case resInitial:
		return &l.Initial
	case resEstimate:
		return &l.Estimate
	case resHistory:
		return &l.History
	}
	return nil
}

// State is the session context shared by every tab. It holds the latest
// snapshot from the service manager; tabs read it and never query the
// database themselves.
type State struct {
	mu sync.RWMutex

	Snapshot    *services.Snapshot
	History     *models.UsageHistory
	Budget      float64
	Loading     LoadingState
	LastUpdated time.Time
	LastError   error

	notifications toastQueue
}

// NewState returns a state that is waiting for its first snapshot.
func NewState() *State {
	return &State{Loading: LoadingState{Initial: true}}
}

// SetLoading sets the flag for resource ("initial", "estimate" or
// "history"). Unknown names are ignored.
func (s *State) SetLoading(resource string, loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f := s.Loading.flag(resource); f != nil {
		*f = loading
	}
}

func (s *State) AnyLoading() bool {
	return len(s.GetLoadingResources()) > 0
}

func (s *State) IsInitialLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Loading.Initial
}

// GetLoadingResources names the resources still loading, in a fixed order.
func (s *State) GetLoadingResources() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for _, r := range []string{resInitial, resEstimate, resHistory} {
		if *s.Loading.flag(r) {
			out = append(out, r)
		}
	}
	return out
}

// SetSnapshot replaces the current snapshot. A nil snapshot is ignored so a
// failed refresh keeps the previous numbers on screen.
func (s *State) SetSnapshot(snap *services.Snapshot) {
	if snap == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Snapshot = snap
	s.LastUpdated = time.Now()
	s.LastError = nil
}

// GetSnapshot returns the current snapshot, or nil before the first load.
func (s *State) GetSnapshot() *services.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Snapshot
}

func (s *State) SetHistory(h *models.UsageHistory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.History = h
}

func (s *State) GetHistory() *models.UsageHistory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.History
}

// SetBudget records the monthly budget in USD; 0 disables it.
func (s *State) SetBudget(b float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Budget = b
}

func (s *State) GetBudget() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Budget
}

// SetError records the most recent failure until the next snapshot.
func (s *State) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastError = err
}

func (s *State) GetError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LastError
}

// GetLastUpdated is when the current snapshot arrived.
func (s *State) GetLastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LastUpdated
}
