package services

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/speechcost-tui/internal/services/ingest"
)

// ServiceEvent is something the manager tells its subscribers about.
type ServiceEvent interface {
	isServiceEvent()
}

type (
	// EstimateUpdatedEvent carries the snapshot produced by a refresh or a
	// user-count change.
	EstimateUpdatedEvent struct {
		Snapshot *Snapshot
	}

	// ImportedEvent reports an inbox file that has been stored.
	ImportedEvent struct {
		Result *ingest.Result
	}

	// BudgetExceededEvent fires once each time the projected total crosses
	// the budget upward.
	BudgetExceededEvent struct {
		Total  float64
		Budget float64
	}

	// ErrorEvent reports a background failure. Service names the source.
	ErrorEvent struct {
		Service string
		Error   error
	}
)

func (EstimateUpdatedEvent) isServiceEvent() {}
func (ImportedEvent) isServiceEvent()        {}
func (BudgetExceededEvent) isServiceEvent()  {}
func (ErrorEvent) isServiceEvent()           {}

const subscriberBuffer = 50

// hub fans events out to subscriber channels. A subscriber that falls
// behind misses events rather than stalling the publisher.
type hub struct {
	mu   sync.Mutex
	subs map[chan ServiceEvent]struct{}
}

func (h *hub) add() chan ServiceEvent {
	ch := make(chan ServiceEvent, subscriberBuffer)
	h.mu.Lock()
	if h.subs == nil {
		h.subs = make(map[chan ServiceEvent]struct{})
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// remove closes ch if it is still subscribed.
func (h *hub) remove(ch chan ServiceEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

func (h *hub) publish(ev ServiceEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		close(ch)
	}
	h.subs = nil
}

// Subscribe registers a new event channel. The returned command delivers
// the first event; the caller re-arms it with WaitForEvent.
func (m *Manager) Subscribe() (chan ServiceEvent, tea.Cmd) {
	ch := m.events.add()
	return ch, WaitForEvent(ch)
}

// Unsubscribe closes ch and stops delivering to it.
func (m *Manager) Unsubscribe(ch chan ServiceEvent) {
	m.events.remove(ch)
}

func (m *Manager) broadcast(ev ServiceEvent) {
	m.events.publish(ev)
}

// WaitForEvent blocks on ch and returns the next event as a tea.Msg, or nil
// once ch is closed.
func WaitForEvent(ch <-chan ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		if ev, ok := <-ch; ok {
			return ev
		}
		return nil
	}
}
