package app

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

type NotificationType int

const (
	NotificationSuccess NotificationType = iota
	NotificationError
	NotificationWarning
	NotificationInfo
	// NotificationLoading is the spinner toast shown while work is in flight.
	NotificationLoading
)

var notificationTypeNames = [...]string{"success", "error", "warning", "info", "loading"}

func (n NotificationType) String() string {
	if n < 0 || int(n) >= len(notificationTypeNames) {
		return "unknown"
	}
	return notificationTypeNames[n]
}

// LoadingNotificationID identifies the single loading toast.
const LoadingNotificationID = "__loading__"

// maxNotifications bounds the toast stack; the oldest are dropped first.
const maxNotifications = 10

// Notification is one toast. A zero Duration never expires.
type Notification struct {
	ID        string
	Type      NotificationType
	Message   string
	CreatedAt time.Time
	Duration  time.Duration
}

func (n Notification) expiredAt(now time.Time) bool {
	return n.Duration > 0 && now.Sub(n.CreatedAt) > n.Duration
}

// toastQueue is the notification stack. Callers hold the State lock.
type toastQueue []Notification

func (q *toastQueue) push(n Notification) {
	*q = append(*q, n)
	if over := len(*q) - maxNotifications; over > 0 {
		*q = slices.Delete(*q, 0, over)
	}
}

func (q *toastQueue) remove(id string) {
	*q = slices.DeleteFunc(*q, func(n Notification) bool { return n.ID == id })
}

func (q *toastQueue) prune(now time.Time) {
	*q = slices.DeleteFunc(*q, func(n Notification) bool { return n.expiredAt(now) })
}

func (q toastQueue) live(now time.Time) []Notification {
	out := make([]Notification, 0, len(q))
	for _, n := range q {
		if !n.expiredAt(now) {
			out = append(out, n)
		}
	}
	return out
}

// AddNotification queues a toast and returns its ID.
func (s *State) AddNotification(t NotificationType, message string, d time.Duration) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	s.notifications.push(Notification{ID: id, Type: t, Message: message, CreatedAt: time.Now(), Duration: d})
	return id
}

func (s *State) RemoveNotification(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications.remove(id)
}

func (s *State) ClearExpiredNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications.prune(time.Now())
}

// GetNotifications returns the unexpired toasts, oldest first.
func (s *State) GetNotifications() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.notifications.live(time.Now())
}

// SetLoadingNotification shows message in the loading toast, creating it if
// needed.
func (s *State) SetLoadingNotification(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := slices.IndexFunc(s.notifications, func(n Notification) bool {
		return n.ID == LoadingNotificationID
	}); i >= 0 {
		s.notifications[i].Message = message
		return
	}
	s.notifications.push(Notification{
		ID:        LoadingNotificationID,
		Type:      NotificationLoading,
		Message:   message,
		CreatedAt: time.Now(),
	})
}

func (s *State) ClearLoadingNotification() {
	s.RemoveNotification(LoadingNotificationID)
}
