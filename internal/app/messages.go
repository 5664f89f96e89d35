package app

import (
	"time"

	"github.com/j-veylop/speechcost-tui/internal/models"
	"github.com/j-veylop/speechcost-tui/internal/services"
	"github.com/j-veylop/speechcost-tui/internal/services/ingest"
)

// Requests sent by tabs to the root model.
type (
	// RefreshMsg rebuilds the profile from the database and re-estimates.
	RefreshMsg struct{}

	// SetUsersMsg re-estimates the current profile for a new user count.
	SetUsersMsg struct{ Users int }

	// SetTimeRangeMsg moves the profile window.
	SetTimeRangeMsg struct{ TimeRange models.TimeRange }

	// LoadHistoryMsg reloads the history charts for a window.
	LoadHistoryMsg struct{ TimeRange models.TimeRange }

	// ImportFileMsg imports a CSV or JSON lines export from disk.
	ImportFileMsg struct{ Path string }

	TabSwitchMsg  struct{ Tab TabID }
	ToggleHelpMsg struct{}
)

// Results delivered back from commands. A non-nil Error leaves the
// previously shown data in place.
type (
	SnapshotLoadedMsg struct {
		Snapshot *services.Snapshot
		Error    error
	}

	HistoryLoadedMsg struct {
		History *models.UsageHistory
		Error   error
	}

	ImportResultMsg struct {
		Path   string
		Result *ingest.Result
		Error  error
	}

	// ServiceEventMsg forwards one event from the manager subscription.
	ServiceEventMsg struct{ Event services.ServiceEvent }

	// SubscriptionEventMsg hands the subscription channel to the model.
	SubscriptionEventMsg struct{ Channel chan services.ServiceEvent }
)

// Loading and toast bookkeeping.
type (
	TickMsg struct{ Time time.Time }

	// StartLoadingMsg marks Resource busy and shows the loading toast.
	StartLoadingMsg struct{ Resource string }
	StopLoadingMsg  struct{ Resource string }

	AddNotificationMsg struct {
		Type     NotificationType
		Message  string
		Duration time.Duration
	}
	RemoveNotificationMsg        struct{ ID string }
	ClearExpiredNotificationsMsg struct{}
)
